// Package features validates feature sets against the closed feature schema
// and turns a valid set into the single row a predictor consumes.
package features

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed features_schema.json
var defaultSchema []byte

// Schema is a compiled feature schema: a closed set of required numeric fields.
//
// It is read-only after construction and safe for concurrent use.
type Schema struct {
	compiled *jsonschema.Schema
	fields   []string
	allowed  map[string]bool
}

// Default compiles the embedded feature schema.
func Default() (*Schema, error) {
	return Compile("features", defaultSchema)
}

// Load compiles the feature schema stored at path.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read feature schema: %w", err)
	}

	name := filepath.Base(path)
	return Compile(name, data)
}

// Compile compiles a feature schema document.
//
// The document must describe an object whose properties are all numeric,
// all required, and which forbids additional properties.
func Compile(name string, data []byte) (*Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020

	schemaURL := fmt.Sprintf("https://predict-lambda.schemas.local/%s.schema.json", name)
	if err := c.AddResource(schemaURL, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("feature schema load failed: %w", err)
	}

	compiled, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("feature schema compile failed: %w", err)
	}

	if err := checkClosed(compiled); err != nil {
		return nil, fmt.Errorf("feature schema %s: %w", name, err)
	}

	allowed := make(map[string]bool, len(compiled.Required))
	for _, field := range compiled.Required {
		allowed[field] = true
	}

	return &Schema{
		compiled: compiled,
		fields:   slices.Clone(compiled.Required),
		allowed:  allowed,
	}, nil
}

// checkClosed enforces the feature schema contract.
func checkClosed(s *jsonschema.Schema) error {
	if closed, ok := s.AdditionalProperties.(bool); !ok || closed {
		return errors.New("additionalProperties must be false")
	}

	if len(s.Required) == 0 {
		return errors.New("at least one required field is needed")
	}

	if len(s.Properties) != len(s.Required) {
		return errors.New("every property must be required")
	}

	for _, field := range s.Required {
		prop, ok := s.Properties[field]
		if !ok {
			return fmt.Errorf("required field %q has no property definition", field)
		}
		if !slices.Contains(prop.Types, "number") && !slices.Contains(prop.Types, "integer") {
			return fmt.Errorf("field %q must be numeric", field)
		}
	}

	return nil
}

// Fields returns the schema fields in row order.
func (s *Schema) Fields() []string {
	return slices.Clone(s.fields)
}

// Row orders a validated feature set into one predictor row.
func (s *Schema) Row(features map[string]any) ([]float64, error) {
	row := make([]float64, len(s.fields))

	for i, field := range s.fields {
		value, err := toFloat(features[field])
		if err != nil {
			return nil, fmt.Errorf("feature %q: %w", field, err)
		}
		row[i] = value
	}

	return row, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case json.Number:
		return n.Float64()
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case string:
		return 0, fmt.Errorf("not a number: %s", strconv.Quote(n))
	default:
		return 0, fmt.Errorf("not a number: %v", v)
	}
}
