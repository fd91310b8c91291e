// Package payload turns a raw invocation event into a typed request payload.
//
// Two event shapes are accepted:
//   - HTTP-triggered: a wrapper with "requestContext" and a JSON string "body"
//   - direct: the payload object itself, e.g. {"action": "ping"}
package payload

import (
	"maps"
	"slices"
	"strings"

	"github.com/deppfellow/predict-lambda/internal/validation"
)

// Fields accepted in a payload. Anything else is rejected.
const (
	FieldAction   = "action"
	FieldSecret   = "secret"
	FieldFeatures = "features"
)

var allowedFields = map[string]bool{
	FieldAction:   true,
	FieldSecret:   true,
	FieldFeatures: true,
}

// Payload is the request of one invocation.
//
// It is immutable: fields are only readable through accessors and Features
// hands out a copy.
type Payload struct {
	action   string
	secret   string
	features map[string]any
}

// New builds a Payload directly. features may be nil (absent).
func New(action, secret string, features map[string]any) Payload {
	return Payload{
		action:   action,
		secret:   secret,
		features: maps.Clone(features),
	}
}

// Action is the requested operation name.
func (p Payload) Action() string { return p.action }

// Secret is the challenge secret, "" when absent.
func (p Payload) Secret() string { return p.secret }

// HasFeatures reports whether a feature mapping was sent.
func (p Payload) HasFeatures() bool { return p.features != nil }

// Features returns a copy of the feature mapping (nil when absent).
//
// Numeric values are json.Number as decoded from the event.
func (p Payload) Features() map[string]any {
	return maps.Clone(p.features)
}

// fields is the decoding target of a payload object.
//
// Action is a pointer so that "required" means the key is present: an empty
// or null action is a well-formed payload and is rejected later by routing.
type fields struct {
	Action   *string        `json:"action" validate:"required"`
	Secret   string         `json:"secret"`
	Features map[string]any `json:"features"`
}

func (f fields) Validate() error {
	return validation.Struct(f)
}

// unexpectedFields returns the keys of obj outside allowedFields, sorted.
func unexpectedFields(obj map[string]any) []string {
	var extra []string
	for key := range obj {
		if !allowedFields[key] {
			extra = append(extra, key)
		}
	}
	slices.Sort(extra)
	return extra
}

func quoteAll(names []string) string {
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = "'" + name + "'"
	}
	return strings.Join(quoted, ", ")
}
