package features

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/deppfellow/predict-lambda/internal/errs"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Validate checks features against the schema.
//
// A nil map means the payload carried no features at all. Failures are
// SchemaErrors whose message uses the validator wording callers rely on:
//
//	'request_count' is a required property
//	Additional properties are not allowed ('foo' was unexpected)
//	'abc' is not of type 'number'
//
// When several violations exist, a missing field wins over unexpected
// fields, which win over a bad value.
func (s *Schema) Validate(features map[string]any) error {
	if features == nil {
		return errs.NewSchemaError("'features' is a required property", nil)
	}

	err := s.compiled.Validate(features)
	if err == nil {
		return nil
	}

	var validationErr *jsonschema.ValidationError
	if !errors.As(err, &validationErr) {
		return err
	}

	return errs.NewSchemaError(s.describe(features, leaves(validationErr)), err)
}

// describe renders the most relevant violation.
func (s *Schema) describe(features map[string]any, failures []*jsonschema.ValidationError) string {
	byKeyword := func(keyword string) *jsonschema.ValidationError {
		for _, f := range failures {
			if path.Base(f.KeywordLocation) == keyword {
				return f
			}
		}
		return nil
	}

	if byKeyword("required") != nil {
		for _, field := range s.fields {
			if _, ok := features[field]; !ok {
				return fmt.Sprintf("%s is a required property", pyRepr(field))
			}
		}
	}

	if byKeyword("additionalProperties") != nil {
		var extra []string
		for key := range features {
			if !s.allowed[key] {
				extra = append(extra, pyRepr(key))
			}
		}
		slices.Sort(extra)

		verb := "were"
		if len(extra) == 1 {
			verb = "was"
		}
		return fmt.Sprintf("Additional properties are not allowed (%s %s unexpected)", strings.Join(extra, ", "), verb)
	}

	if failure := byKeyword("type"); failure != nil {
		field := strings.TrimPrefix(failure.InstanceLocation, "/")
		if prop, ok := s.compiled.Properties[field]; ok {
			types := make([]string, len(prop.Types))
			for i, t := range prop.Types {
				types[i] = pyRepr(t)
			}
			return fmt.Sprintf("%s is not of type %s", pyRepr(features[field]), strings.Join(types, ", "))
		}
	}

	if len(failures) > 0 {
		return failures[0].Message
	}
	return "features do not match the schema"
}

// leaves flattens a validation error tree into its leaf causes, ordered by
// instance location so the rendering is deterministic.
func leaves(err *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(err.Causes) == 0 {
		return []*jsonschema.ValidationError{err}
	}

	var out []*jsonschema.ValidationError
	for _, cause := range err.Causes {
		out = append(out, leaves(cause)...)
	}

	slices.SortStableFunc(out, func(a, b *jsonschema.ValidationError) int {
		return strings.Compare(a.InstanceLocation, b.InstanceLocation)
	})
	return out
}

// pyRepr renders a decoded JSON value the way the validator messages quote it.
func pyRepr(v any) string {
	switch value := v.(type) {
	case nil:
		return "None"
	case bool:
		if value {
			return "True"
		}
		return "False"
	case string:
		return "'" + strings.ReplaceAll(value, "'", `\'`) + "'"
	case json.Number:
		return value.String()
	case float64:
		return strconv.FormatFloat(value, 'g', -1, 64)
	case []any:
		items := make([]string, len(value))
		for i, item := range value {
			items[i] = pyRepr(item)
		}
		return "[" + strings.Join(items, ", ") + "]"
	case map[string]any:
		keys := make([]string, 0, len(value))
		for key := range value {
			keys = append(keys, key)
		}
		slices.Sort(keys)

		items := make([]string, len(keys))
		for i, key := range keys {
			items[i] = pyRepr(key) + ": " + pyRepr(value[key])
		}
		return "{" + strings.Join(items, ", ") + "}"
	default:
		return fmt.Sprint(value)
	}
}
