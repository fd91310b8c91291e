package handler

import (
	"time"

	"github.com/deppfellow/predict-lambda/internal/middleware"
	"github.com/deppfellow/predict-lambda/internal/server"
	"github.com/labstack/echo/v4"
	"github.com/newrelic/go-agent/v3/integrations/nrpkgerrors"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/rs/zerolog"
)

// Handler is the base handler type that holds shared application dependencies.
type Handler struct {
	server *server.Server
}

func NewHandler(s *server.Server) Handler {
	return Handler{server: s}
}

// handleRequest is the shared execution wrapper of every endpoint.
//
// It centralizes:
//   - structured logging with the request-scoped logger
//   - New Relic attributes and error reporting
//   - handler timing
func handleRequest(c echo.Context, operation string, handler func(c echo.Context, logger zerolog.Logger) error) error {
	start := time.Now()

	txn := newrelic.FromContext(c.Request().Context())
	if txn != nil {
		txn.AddAttribute("handler.name", c.Path())
		txn.AddAttribute("handler.operation", operation)
	}

	logger := middleware.GetLogger(c).With().
		Str("operation", operation).
		Str("route", c.Path()).
		Logger()

	logger.Debug().Msg("handling request")

	err := handler(c, logger)
	duration := time.Since(start)

	if err != nil {
		logger.Error().
			Err(err).
			Dur("handler_duration", duration).
			Msg("handler execution failed")

		if txn != nil {
			txn.NoticeError(nrpkgerrors.Wrap(err))
			txn.AddAttribute("handler.status", "error")
			txn.AddAttribute("handler.duration_ms", duration.Milliseconds())
		}
		return err
	}

	if txn != nil {
		txn.AddAttribute("handler.status", "success")
		txn.AddAttribute("handler.duration_ms", duration.Milliseconds())
	}

	logger.Debug().
		Dur("handler_duration", duration).
		Msg("request completed")

	return nil
}
