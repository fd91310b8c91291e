// Package action maps an action name to the handler that performs it.
//
// The set of actions is closed: adding one means adding a Name constant, a
// Handler implementation and an entry in NewRouter.
package action

import (
	"context"

	"github.com/deppfellow/predict-lambda/internal/errs"
	"github.com/deppfellow/predict-lambda/internal/payload"
)

// Name is an action a caller can request.
type Name string

const (
	Ping    Name = "ping"
	Predict Name = "predict"
)

// Result is the success value of a handler, serialized as the response body.
type Result map[string]any

// Handler performs one action.
type Handler interface {
	Handle(ctx context.Context, p payload.Payload) (Result, error)
}

// Router holds the fixed action table.
type Router struct {
	handlers map[Name]Handler
}

// NewRouter builds the action table. It is read-only afterwards.
func NewRouter(ping *PingHandler, predict *PredictHandler) *Router {
	return &Router{
		handlers: map[Name]Handler{
			Ping:    ping,
			Predict: predict,
		},
	}
}

// Route returns the handler for action, or a RoutingError.
func (r *Router) Route(action string) (Handler, error) {
	handler, ok := r.handlers[Name(action)]
	if !ok {
		return nil, errs.NewRoutingError(action)
	}
	return handler, nil
}
