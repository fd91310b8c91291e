package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/deppfellow/predict-lambda/internal/server"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// HealthHandler reports liveness plus reachability of the model artifact.
type HealthHandler struct {
	Handler
}

func NewHealthHandler(s *server.Server) *HealthHandler {
	return &HealthHandler{
		Handler: NewHandler(s),
	}
}

// CheckHealth returns 200 when the model artifact is reachable and 503
// otherwise. The artifact is only stat'ed, never decoded.
func (h *HealthHandler) CheckHealth(c echo.Context) error {
	return handleRequest(c, "health_check", func(c echo.Context, logger zerolog.Logger) error {
		response := map[string]interface{}{
			"status":      "healthy",
			"timestamp":   time.Now().UTC(),
			"environment": h.server.Config.Workspace,
		}

		checks := make(map[string]interface{})
		response["checks"] = checks

		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		source := h.server.ModelSource
		modelStart := time.Now()

		if err := source.Stat(ctx); err != nil {
			checks["model"] = map[string]interface{}{
				"status":        "unhealthy",
				"source":        source.String(),
				"response_time": time.Since(modelStart).String(),
				"error":         err.Error(),
			}
			response["status"] = "unhealthy"

			logger.Error().
				Err(err).
				Dur("response_time", time.Since(modelStart)).
				Msg("model source health check failed")

			if app := h.server.LoggerService.GetApplication(); app != nil {
				app.RecordCustomEvent("HealthCheckError", map[string]interface{}{
					"check_type":       "model",
					"operation":        "health_check",
					"error_type":       "model_unreachable",
					"response_time_ms": time.Since(modelStart).Milliseconds(),
					"error_message":    err.Error(),
				})
			}

			return c.JSON(http.StatusServiceUnavailable, response)
		}

		checks["model"] = map[string]interface{}{
			"status":        "healthy",
			"source":        source.String(),
			"response_time": time.Since(modelStart).String(),
		}
		checks["features"] = map[string]interface{}{
			"status": "healthy",
			"count":  len(h.server.Schema.Fields()),
		}

		return c.JSON(http.StatusOK, response)
	})
}
