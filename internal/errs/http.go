package errs

import "fmt"

// NewPayloadError creates a 400 error for an invocation event that could not
// be turned into a request payload.
//
// The message is always prefixed with "Invalid input payload: " followed by
// the underlying cause.
func NewPayloadError(cause error) *Error {
	return &Error{
		Kind:    KindPayload,
		Message: "Invalid input payload: " + cause.Error(),
		cause:   cause,
	}
}

// NewAuthError creates a 401 error for a missing or mismatched secret.
//
// The message never says which of the two happened.
func NewAuthError() *Error {
	return &Error{
		Kind:    KindAuth,
		Message: "Challenge secret missing or mismatch",
	}
}

// NewRoutingError creates a 400 error for an unknown action.
func NewRoutingError(action string) *Error {
	return &Error{
		Kind:    KindRouting,
		Message: fmt.Sprintf("Action not recognized: `%s`", action),
	}
}

// NewSchemaError creates a 400 error for a feature set rejected by the schema.
//
// message is the validator's own wording and is passed through unmodified.
func NewSchemaError(message string, cause error) *Error {
	return &Error{
		Kind:    KindSchema,
		Message: message,
		cause:   cause,
	}
}

// NewModelStateError creates a 500 error for a predictor that is not fitted.
func NewModelStateError(cause error) *Error {
	return &Error{
		Kind:    KindModelState,
		Message: "Model not fitted: " + cause.Error(),
		cause:   cause,
	}
}

// NewUnhandledError creates a 500 error from a recovered panic value.
func NewUnhandledError(recovered any) *Error {
	if err, ok := recovered.(error); ok {
		return &Error{Kind: KindUnhandled, Message: err.Error(), cause: err}
	}

	return &Error{Kind: KindUnhandled, Message: fmt.Sprint(recovered)}
}
