// Package model holds the predictor contract consumed by the Predict action,
// the JSON-persisted MLP classifier that implements it, and the sources a
// model artifact is fetched from (local file or S3).
package model

import (
	"context"
	"fmt"
)

// Row is exactly one feature row: values paired with their feature names.
type Row struct {
	Names  []string
	Values []float64
}

// Predictor maps one feature row to one label.
type Predictor interface {
	// CheckFitted returns nil when the predictor is ready, otherwise an error
	// describing why it is not.
	CheckFitted() error

	// Predict returns the label predicted for row.
	Predict(row Row) (string, error)
}

// Loader produces a predictor. Predict calls Load on every invocation.
type Loader interface {
	Load(ctx context.Context) (Predictor, error)
}

// ArtifactLoader decodes an MLP classifier fetched from a Source.
type ArtifactLoader struct {
	source Source
}

// NewArtifactLoader creates a loader reading from source.
func NewArtifactLoader(source Source) *ArtifactLoader {
	return &ArtifactLoader{source: source}
}

// Load fetches and decodes the artifact. No copy is kept between calls.
func (l *ArtifactLoader) Load(ctx context.Context) (Predictor, error) {
	data, err := l.source.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	clf, err := DecodeMLP(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode model %s: %w", l.source, err)
	}

	return clf, nil
}
