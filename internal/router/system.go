package router

import (
	"github.com/deppfellow/predict-lambda/internal/handler"
	"github.com/labstack/echo/v4"
)

// registerSystemRoutes registers endpoints that are not part of the function
// contract.
func registerSystemRoutes(r *echo.Echo, h *handler.Handlers) {
	r.GET("/status", h.Health.CheckHealth)
	r.GET("/openapi.json", h.OpenAPI.ServeOpenAPI)
}
