// Package pipeline runs one invocation end to end:
//
//	parse -> authenticate -> route -> handle -> build response
//
// The first failing stage short-circuits to the response builder, and every
// invocation produces exactly one Envelope.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/deppfellow/predict-lambda/internal/action"
	"github.com/deppfellow/predict-lambda/internal/auth"
	"github.com/deppfellow/predict-lambda/internal/config"
	"github.com/deppfellow/predict-lambda/internal/errs"
	loggerPkg "github.com/deppfellow/predict-lambda/internal/logger"
	"github.com/deppfellow/predict-lambda/internal/payload"
	"github.com/newrelic/go-agent/v3/integrations/nrpkgerrors"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// TransactionName names the New Relic transaction of an invocation.
const TransactionName = "invoke"

// Processor is the single entry point of an invocation.
//
// It holds only read-only, process-wide state and is safe for concurrent use.
type Processor struct {
	config        *config.Config
	secrets       *auth.SecretValidator
	router        *action.Router
	logger        zerolog.Logger
	loggerService *loggerPkg.LoggerService
}

// NewProcessor wires the pipeline stages. loggerService may be nil.
func NewProcessor(cfg *config.Config, router *action.Router, logger zerolog.Logger, loggerService *loggerPkg.LoggerService) *Processor {
	return &Processor{
		config:        cfg,
		secrets:       auth.NewSecretValidator(cfg.ChallengeSecret),
		router:        router,
		logger:        logger,
		loggerService: loggerService,
	}
}

// Process handles one raw invocation event.
//
// The returned error is non-nil only when required configuration is
// missing; that check runs before the event is looked at. Every other
// outcome, including a panic inside a handler, is an Envelope.
func (p *Processor) Process(ctx context.Context, event json.RawMessage) (Envelope, error) {
	if err := p.config.CheckRequired(); err != nil {
		p.logger.Error().Err(err).Msg("configuration check failed")
		return Envelope{}, err
	}

	start := time.Now()

	// The local HTTP adapter already runs inside an nrecho transaction.
	txn := newrelic.FromContext(ctx)
	if app := p.loggerService.GetApplication(); txn == nil && app != nil {
		txn = app.StartTransaction(TransactionName)
		defer txn.End()
		ctx = newrelic.NewContext(ctx, txn)
	}

	log := p.requestLogger(ctx, txn)
	ctx = log.WithContext(ctx)

	log.Debug().Str("event", string(event)).Msg("invocation received")

	result, err := p.run(ctx, event)
	envelope := Build(result, err)

	p.logOutcome(log, txn, err, envelope, time.Since(start))

	return envelope, nil
}

// run executes the stages. A panic in any stage becomes an unhandled error.
func (p *Processor) run(ctx context.Context, event []byte) (result action.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			zerolog.Ctx(ctx).Error().
				Str("panic", fmt.Sprint(r)).
				Bytes("stack", debug.Stack()).
				Msg("handler panicked")
			result, err = nil, errs.NewUnhandledError(r)
		}
	}()

	req, err := payload.Parse(event)
	if err != nil {
		return nil, err
	}

	if err := p.secrets.Validate(req.Secret()); err != nil {
		return nil, err
	}

	handler, err := p.router.Route(req.Action())
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Debug().Str("action", req.Action()).Msg("dispatching action")

	return handler.Handle(ctx, req)
}

// requestLogger derives the invocation logger. A logger already carried by
// ctx (local HTTP adapter) is reused; otherwise the root logger gets the
// lambda request id and trace context.
func (p *Processor) requestLogger(ctx context.Context, txn *newrelic.Transaction) zerolog.Logger {
	if scoped := zerolog.Ctx(ctx); scoped.GetLevel() != zerolog.Disabled {
		return *scoped
	}

	log := loggerPkg.WithTraceContext(p.logger, txn)

	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		log = log.With().Str("request_id", lc.AwsRequestID).Logger()
	}

	return log
}

// logOutcome logs one line per invocation with severity based on status:
// 5xx -> error, 4xx -> warn, otherwise info. Unhandled errors are logged with
// a stack trace and reported to New Relic.
func (p *Processor) logOutcome(log zerolog.Logger, txn *newrelic.Transaction, err error, envelope Envelope, latency time.Duration) {
	var e *zerolog.Event

	switch {
	case envelope.StatusCode >= 500:
		e = log.Error().Err(err)
	case envelope.StatusCode >= 400:
		e = log.Warn().Err(err)
	default:
		e = log.Info()
	}

	if err != nil {
		classified := errs.Classify(err)
		e = e.Str("error_kind", classified.Kind.String())

		if classified.Kind == errs.KindUnhandled {
			stacked := errors.WithStack(err)
			log.Error().Stack().Err(stacked).Msg("Unhandled exception")

			if txn != nil {
				txn.NoticeError(nrpkgerrors.Wrap(stacked))
			}
		}
	}

	if txn != nil {
		txn.AddAttribute("http.status_code", envelope.StatusCode)
	}

	e.Int("status", envelope.StatusCode).
		Dur("latency", latency).
		Msg("invocation completed")
}
