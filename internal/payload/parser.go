package payload

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/deppfellow/predict-lambda/internal/errs"
)

// Keys of the HTTP-triggered event wrapper.
const (
	keyRequestContext  = "requestContext"
	keyBody            = "body"
	keyIsBase64Encoded = "isBase64Encoded"
)

// Parse decodes a raw invocation event into a Payload.
//
// Every failure is an *errs.Error of kind KindPayload whose message starts
// with "Invalid input payload: ".
func Parse(event []byte) (Payload, error) {
	obj, err := decodeObject(event)
	if err != nil {
		return Payload{}, errs.NewPayloadError(err)
	}

	if _, wrapped := obj[keyRequestContext]; wrapped {
		body, err := unwrapBody(obj)
		if err != nil {
			return Payload{}, errs.NewPayloadError(err)
		}

		obj, err = decodeObject(body)
		if err != nil {
			return Payload{}, errs.NewPayloadError(err)
		}
	}

	p, err := fromObject(obj)
	if err != nil {
		return Payload{}, errs.NewPayloadError(err)
	}

	return p, nil
}

// decodeObject decodes data as a single JSON object, keeping numbers as json.Number.
func decodeObject(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("unexpected data after JSON object")
	}

	obj, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected a JSON object, got %s", jsonType(value))
	}

	return obj, nil
}

// unwrapBody extracts the JSON body of an HTTP-triggered event.
func unwrapBody(event map[string]any) ([]byte, error) {
	raw, ok := event[keyBody]
	if !ok || raw == nil {
		return nil, errors.New("request body is missing")
	}

	body, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("request body must be a string, got %s", jsonType(raw))
	}

	if encoded, _ := event[keyIsBase64Encoded].(bool); encoded {
		decoded, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return nil, fmt.Errorf("request body is not valid base64: %w", err)
		}
		return decoded, nil
	}

	return []byte(body), nil
}

// fromObject builds a Payload strictly from the keys of obj.
//
// Checks run in order: unexpected keys, value types, required keys. Only
// the presence of action is checked here; its value is left to routing.
func fromObject(obj map[string]any) (Payload, error) {
	if extra := unexpectedFields(obj); len(extra) > 0 {
		return Payload{}, fmt.Errorf("unexpected field(s) %s", quoteAll(extra))
	}

	var f fields

	if raw, ok := obj[FieldAction]; ok {
		// null reads as an empty action.
		var action string
		if raw != nil {
			if action, ok = raw.(string); !ok {
				return Payload{}, fmt.Errorf("'%s' must be a string, got %s", FieldAction, jsonType(raw))
			}
		}
		f.Action = &action
	}

	if raw, ok := obj[FieldSecret]; ok && raw != nil {
		secret, ok := raw.(string)
		if !ok {
			return Payload{}, fmt.Errorf("'%s' must be a string, got %s", FieldSecret, jsonType(raw))
		}
		f.Secret = secret
	}

	if raw, ok := obj[FieldFeatures]; ok && raw != nil {
		features, ok := raw.(map[string]any)
		if !ok {
			return Payload{}, fmt.Errorf("'%s' must be an object, got %s", FieldFeatures, jsonType(raw))
		}
		f.Features = features
	}

	if err := f.Validate(); err != nil {
		return Payload{}, err
	}

	return Payload{
		action:   *f.Action,
		secret:   f.Secret,
		features: f.Features,
	}, nil
}

// jsonType names the JSON type of a decoded value.
func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case json.Number, float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
