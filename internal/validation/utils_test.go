package validation_test

import (
	"testing"

	"github.com/deppfellow/predict-lambda/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Action *string `json:"action" validate:"required"`
	Mode   string  `json:"mode,omitempty" validate:"omitempty,oneof=fast slow"`
}

func (s sample) Validate() error {
	return validation.Struct(s)
}

func TestStruct_Valid(t *testing.T) {
	empty := ""
	var v validation.Validatable = sample{Action: &empty, Mode: "fast"}
	assert.NoError(t, v.Validate())
}

func TestStruct_FieldErrors(t *testing.T) {
	err := sample{Mode: "medium"}.Validate()
	require.Error(t, err)

	var fieldErrors validation.FieldErrors
	require.ErrorAs(t, err, &fieldErrors)
	require.Len(t, fieldErrors, 2)

	assert.Equal(t, validation.FieldError{Field: "action", Error: "is a required property"}, fieldErrors[0])
	assert.Equal(t, validation.FieldError{Field: "mode", Error: "failed oneof:fast slow"}, fieldErrors[1])
}

func TestFieldErrors_Error(t *testing.T) {
	err := validation.FieldErrors{{Field: "action", Error: "is a required property"}}
	assert.Equal(t, "'action' is a required property", err.Error())
}
