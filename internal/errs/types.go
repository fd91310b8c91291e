package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a pipeline failure.
//
// The set is closed: every Kind maps to exactly one status code in Status.
type Kind int

const (
	// KindUnhandled is any failure no stage classified (programming faults,
	// I/O errors inside a handler, recovered panics).
	KindUnhandled Kind = iota

	// KindPayload is a malformed, incomplete or over-specified input payload.
	KindPayload

	// KindAuth is a missing or mismatched challenge secret.
	KindAuth

	// KindRouting is an action outside the router table.
	KindRouting

	// KindSchema is a feature set that violates the feature schema.
	KindSchema

	// KindModelState is a predictor that is not ready to predict.
	KindModelState
)

// String returns the machine-friendly name of the kind, e.g. "PAYLOAD_ERROR".
func (k Kind) String() string {
	switch k {
	case KindPayload:
		return "PAYLOAD_ERROR"
	case KindAuth:
		return "AUTH_ERROR"
	case KindRouting:
		return "ROUTING_ERROR"
	case KindSchema:
		return "SCHEMA_ERROR"
	case KindModelState:
		return "MODEL_STATE_ERROR"
	default:
		return "UNHANDLED_ERROR"
	}
}

// Status returns the HTTP status code a failure of this kind is reported with.
//
//   - client faults (payload, routing, schema) -> 400
//   - authentication faults -> 401
//   - operational faults (model state, anything unclassified) -> 500
func (k Kind) Status() int {
	switch k {
	case KindPayload, KindRouting, KindSchema:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindModelState, KindUnhandled:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Error is the classified failure produced by a pipeline stage.
//
// It implements the `error` interface via Error().
// Fields:
//   - Kind: the failure category, decides the status code.
//   - Message: the client-visible message, returned verbatim in the body.
//   - Details: optional structured diagnostics, serialized as "error_details".
//   - cause: the underlying error, kept for logs and errors.Unwrap.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]any

	cause error
}

// Error makes *Error satisfy the built-in `error` interface.
// It returns the Message, so printing/logging the error shows the client text.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap exposes the underlying cause to errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.cause
}

// Status is shorthand for e.Kind.Status().
func (e *Error) Status() int {
	return e.Kind.Status()
}

// WithDetails returns a *copy* of this Error with Details replaced.
func (e *Error) WithDetails(details map[string]any) *Error {
	return &Error{
		Kind:    e.Kind,
		Message: e.Message,
		Details: details,
		cause:   e.cause,
	}
}

// Classify turns any error into an *Error.
//
// Errors that already carry a Kind (anywhere in their chain) are returned as
// is. Everything else becomes a KindUnhandled error whose message is the
// error's own description.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}

	return &Error{
		Kind:    KindUnhandled,
		Message: err.Error(),
		cause:   err,
	}
}

// ConfigError reports required deployment settings that are not present.
//
// It is not a pipeline failure: it is returned before any payload is touched
// and surfaces as a failed invocation rather than a response envelope.
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("Missing required environment variables: %s", strings.Join(e.Missing, ", "))
}
