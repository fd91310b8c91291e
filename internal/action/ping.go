package action

import (
	"context"

	"github.com/deppfellow/predict-lambda/internal/payload"
)

// PingHandler answers liveness checks.
type PingHandler struct{}

// NewPingHandler creates a PingHandler.
func NewPingHandler() *PingHandler {
	return &PingHandler{}
}

// Handle always returns {"response": "pong"}.
func (h *PingHandler) Handle(_ context.Context, _ payload.Payload) (Result, error) {
	return Result{"response": "pong"}, nil
}
