package handler

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aws/aws-lambda-go/events"
	"github.com/deppfellow/predict-lambda/internal/middleware"
	"github.com/deppfellow/predict-lambda/internal/server"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// InvokeHandler runs an HTTP request through the invocation pipeline.
type InvokeHandler struct {
	Handler
}

func NewInvokeHandler(s *server.Server) *InvokeHandler {
	return &InvokeHandler{
		Handler: NewHandler(s),
	}
}

// Invoke wraps the request as an API Gateway HTTP API (v2) event so the
// payload parser sees exactly what it sees behind a function URL.
//
// The envelope is written verbatim: its status, headers and body. A
// configuration failure has no envelope and surfaces as a 500 from the
// global error handler.
func (h *InvokeHandler) Invoke(c echo.Context) error {
	return handleRequest(c, "invoke", func(c echo.Context, logger zerolog.Logger) error {
		event, err := newHTTPEvent(c)
		if err != nil {
			return err
		}

		raw, err := json.Marshal(event)
		if err != nil {
			return errors.Wrap(err, "failed to encode invocation event")
		}

		envelope, err := h.server.Processor.Process(c.Request().Context(), raw)
		if err != nil {
			return err
		}

		logger.Debug().Int("status", envelope.StatusCode).Msg("invocation finished")

		return middleware.WriteEnvelope(c, envelope)
	})
}

func newHTTPEvent(c echo.Context) (events.APIGatewayV2HTTPRequest, error) {
	req := c.Request()

	data, err := io.ReadAll(req.Body)
	if err != nil {
		return events.APIGatewayV2HTTPRequest{}, errors.Wrap(err, "failed to read request body")
	}

	body, encoded := string(data), false
	if !utf8.Valid(data) {
		body, encoded = base64.StdEncoding.EncodeToString(data), true
	}

	headers := make(map[string]string, len(req.Header))
	for name, values := range req.Header {
		headers[strings.ToLower(name)] = strings.Join(values, ",")
	}

	query := make(map[string]string, len(req.URL.Query()))
	for name, values := range req.URL.Query() {
		query[name] = strings.Join(values, ",")
	}

	now := time.Now()

	return events.APIGatewayV2HTTPRequest{
		Version:               "2.0",
		RouteKey:              "$default",
		RawPath:               req.URL.Path,
		RawQueryString:        req.URL.RawQuery,
		Headers:               headers,
		QueryStringParameters: query,
		RequestContext: events.APIGatewayV2HTTPRequestContext{
			RouteKey:   "$default",
			Stage:      "$default",
			RequestID:  middleware.GetRequestID(c),
			DomainName: req.Host,
			HTTP: events.APIGatewayV2HTTPRequestContextHTTPDescription{
				Method:    req.Method,
				Path:      req.URL.Path,
				Protocol:  req.Proto,
				SourceIP:  c.RealIP(),
				UserAgent: req.UserAgent(),
			},
			Time:      now.UTC().Format("02/Jan/2006:15:04:05 -0700"),
			TimeEpoch: now.UnixMilli(),
		},
		Body:            body,
		IsBase64Encoded: encoded,
	}, nil
}
