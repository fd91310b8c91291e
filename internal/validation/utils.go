package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Validatable is implemented by payload types that know how to validate themselves.
//
// Typical pattern:
// - Define a struct with validator tags (`validate:"required"`)
// - Implement Validate() error that calls validation.Struct(v)
type Validatable interface {
	Validate() error
}

// FieldError represents a field-level validation error.
// Example:
//
//	{ "field": "action", "error": "is required" }
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// FieldErrors is a list of field errors that satisfies error.
//
// Error() renders "<field> <message>" pairs joined by "; ".
type FieldErrors []FieldError

func (f FieldErrors) Error() string {
	parts := make([]string, 0, len(f))
	for _, fe := range f {
		parts = append(parts, fmt.Sprintf("'%s' %s", fe.Field, fe.Error))
	}
	return strings.Join(parts, "; ")
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// instance returns the shared validator.
//
// validator.Validate caches struct metadata and is safe for concurrent use,
// so one instance serves every invocation.
func instance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()

		// Report fields by their json name ("action"), not the Go name ("Action").
		validate.RegisterTagNameFunc(func(field reflect.StructField) string {
			name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Struct validates v against its `validate` tags.
//
// It returns nil or FieldErrors.
func Struct(v any) error {
	err := instance().Struct(v)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	return extractValidationErrors(validationErrors)
}

// extractValidationErrors converts validator.ValidationErrors into user-friendly messages.
func extractValidationErrors(validationErrors validator.ValidationErrors) FieldErrors {
	fieldErrors := make(FieldErrors, 0, len(validationErrors))

	for _, err := range validationErrors {
		var msg string

		switch err.Tag() {
		case "required":
			msg = "is a required property"

		default:
			// Fallback for tags not explicitly handled above.
			if err.Param() != "" {
				msg = fmt.Sprintf("failed %s:%s", err.Tag(), err.Param())
			} else {
				msg = fmt.Sprintf("failed %s", err.Tag())
			}
		}

		fieldErrors = append(fieldErrors, FieldError{
			Field: err.Field(),
			Error: msg,
		})
	}

	return fieldErrors
}
