// Package router initializes the HTTP router (using Echo).
//
// It registers the middlewares and maps every path to its handler.
package router

import (
	"github.com/deppfellow/predict-lambda/internal/handler"
	"github.com/deppfellow/predict-lambda/internal/middleware"
	"github.com/deppfellow/predict-lambda/internal/server"
	"github.com/labstack/echo/v4"
)

// NewRouter builds the echo instance of the local adapter.
//
// Middleware order matters: the request id must exist before the tracing and
// logger middlewares read it, and the New Relic transaction must exist
// before the context enhancer copies its trace ids into the logger.
func NewRouter(s *server.Server, h *handler.Handlers) *echo.Echo {
	middlewares := middleware.NewMiddlewares(s)

	router := echo.New()
	router.HideBanner = true
	router.HidePort = true

	router.HTTPErrorHandler = middlewares.Global.GlobalErrorHandler

	router.Use(
		middlewares.Global.CORS(),
		middlewares.Global.Secure(),
		middleware.RequestID(),
		middlewares.Tracing.NewRelicMiddleware(),
		middlewares.Tracing.EnhanceTracing(),
		middlewares.ContextEnhancer.EnhanceContext(),
		middlewares.Global.RequestLogger(),
		middlewares.Global.Recover(),
	)

	registerSystemRoutes(router, h)
	registerInvokeRoutes(router, h, middlewares)

	return router
}

// registerInvokeRoutes exposes the function. "/" mirrors a function URL,
// "/invoke" is kept for clients that need a distinct path.
func registerInvokeRoutes(r *echo.Echo, h *handler.Handlers, m *middleware.Middlewares) {
	limit := m.RateLimit.Limit()

	r.POST("/", h.Invoke.Invoke, limit)
	r.POST("/invoke", h.Invoke.Invoke, limit)
}
