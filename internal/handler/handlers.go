package handler

import (
	"github.com/deppfellow/predict-lambda/internal/server"
)

// Handlers is a container that groups all HTTP handlers.
type Handlers struct {
	Invoke  *InvokeHandler
	Health  *HealthHandler
	OpenAPI *OpenAPIHandler
}

func NewHandlers(s *server.Server) *Handlers {
	return &Handlers{
		Invoke:  NewInvokeHandler(s),
		Health:  NewHealthHandler(s),
		OpenAPI: NewOpenAPIHandler(s),
	}
}
