package middleware

import (
	"encoding/base64"
	"net/http"

	"github.com/deppfellow/predict-lambda/internal/errs"
	"github.com/deppfellow/predict-lambda/internal/pipeline"
	"github.com/deppfellow/predict-lambda/internal/server"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type GlobalMiddlewares struct {
	server *server.Server
}

func NewGlobalMiddlewares(s *server.Server) *GlobalMiddlewares {
	return &GlobalMiddlewares{
		server: s,
	}
}

func (global *GlobalMiddlewares) CORS() echo.MiddlewareFunc {
	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: global.server.Config.Server.CORSAllowedOrigins,
	})
}

// RequestLogger logs one line per request. Severity follows the status:
// 5xx -> error, 4xx -> warn, otherwise info.
func (global *GlobalMiddlewares) RequestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogError:   true,
		LogLatency: true,
		LogHost:    true,
		LogMethod:  true,
		LogURIPath: true,

		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			statusCode := v.Status

			// The error handler has not run yet when an error is returned, so
			// the response status is still the default.
			if v.Error != nil {
				statusCode = statusOf(v.Error)
			}

			logger := GetLogger(c)

			var e *zerolog.Event
			switch {
			case statusCode >= 500:
				e = logger.Error().Err(v.Error)
			case statusCode >= 400:
				e = logger.Warn()
			default:
				e = logger.Info()
			}

			e.
				Dur("latency", v.Latency).
				Int("status", statusCode).
				Str("method", v.Method).
				Str("uri", v.URI).
				Str("host", v.Host).
				Str("ip", c.RealIP()).
				Str("user_agent", c.Request().UserAgent()).
				Msg("API")

			return nil
		},
	})
}

func (global *GlobalMiddlewares) Recover() echo.MiddlewareFunc {
	return middleware.Recover()
}

func (global *GlobalMiddlewares) Secure() echo.MiddlewareFunc {
	return middleware.Secure()
}

// GlobalErrorHandler answers every error that escapes a handler with the
// pipeline's error body: {"error": ..., "error_details": null}.
func (global *GlobalMiddlewares) GlobalErrorHandler(err error, c echo.Context) {
	status := statusOf(err)

	var message string
	var details map[string]any

	var echoErr *echo.HTTPError
	var classified *errs.Error

	switch {
	case errors.As(err, &echoErr):
		if status == http.StatusNotFound {
			message = "Route not found"
		} else if msg, ok := echoErr.Message.(string); ok {
			message = msg
		} else {
			message = http.StatusText(status)
		}

	case errors.As(err, &classified):
		message = classified.Message
		details = classified.Details

	default:
		message = err.Error()
	}

	GetLogger(c).Error().Stack().
		Err(err).
		Int("status", status).
		Msg(message)

	if !c.Response().Committed {
		_ = WriteEnvelope(c, pipeline.ErrorEnvelope(status, message, details))
	}
}

// statusOf returns the HTTP status an error is answered with.
func statusOf(err error) int {
	var echoErr *echo.HTTPError
	if errors.As(err, &echoErr) {
		return echoErr.Code
	}

	return errs.Classify(err).Status()
}

// WriteEnvelope writes an invocation envelope as a plain HTTP response.
func WriteEnvelope(c echo.Context, envelope pipeline.Envelope) error {
	header := c.Response().Header()
	for name, value := range envelope.Headers {
		header.Set(name, value)
	}

	body := []byte(envelope.Body)
	if envelope.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(envelope.Body)
		if err != nil {
			return errors.Wrap(err, "failed to decode response body")
		}
		body = decoded
	}

	c.Response().WriteHeader(envelope.StatusCode)
	_, err := c.Response().Write(body)
	return err
}
