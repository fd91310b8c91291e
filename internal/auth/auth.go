// Package auth authenticates a request payload against the configured
// challenge secret.
package auth

import (
	"crypto/subtle"
	"strings"

	"github.com/deppfellow/predict-lambda/internal/errs"
)

// SecretValidator compares presented secrets with the configured one.
type SecretValidator struct {
	secret []byte
}

// NewSecretValidator creates a validator for the configured secret.
func NewSecretValidator(secret string) *SecretValidator {
	return &SecretValidator{secret: []byte(secret)}
}

// Validate fails with an AuthError when presented is empty or, once trimmed,
// differs from the configured secret. The comparison is constant-time.
func (v *SecretValidator) Validate(presented string) error {
	if presented == "" || len(v.secret) == 0 {
		return errs.NewAuthError()
	}

	if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(presented)), v.secret) != 1 {
		return errs.NewAuthError()
	}

	return nil
}
