package action

import (
	"context"
	"fmt"
	"time"

	"github.com/deppfellow/predict-lambda/internal/errs"
	"github.com/deppfellow/predict-lambda/internal/features"
	"github.com/deppfellow/predict-lambda/internal/model"
	"github.com/deppfellow/predict-lambda/internal/payload"
	"github.com/rs/zerolog"
)

// PredictHandler classifies one feature set.
type PredictHandler struct {
	schema *features.Schema
	loader model.Loader
}

// NewPredictHandler creates a PredictHandler.
//
// loader is asked for a fresh predictor on every call.
func NewPredictHandler(schema *features.Schema, loader model.Loader) *PredictHandler {
	return &PredictHandler{
		schema: schema,
		loader: loader,
	}
}

// Handle runs, in order:
//  1. schema validation of the features (SchemaError)
//  2. predictor load + fitted check (ModelStateError)
//  3. a single-row prediction
//
// Load and predict failures other than "not fitted" are returned unclassified.
func (h *PredictHandler) Handle(ctx context.Context, p payload.Payload) (Result, error) {
	logger := zerolog.Ctx(ctx)

	set := p.Features()
	if err := h.schema.Validate(set); err != nil {
		return nil, err
	}

	loadStart := time.Now()
	predictor, err := h.loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}

	if err := predictor.CheckFitted(); err != nil {
		modelErr := errs.NewModelStateError(err)
		logger.Error().Err(err).Msg(modelErr.Message)
		return nil, modelErr
	}

	logger.Debug().
		Dur("load_duration", time.Since(loadStart)).
		Msg("model loaded")

	values, err := h.schema.Row(set)
	if err != nil {
		return nil, err
	}

	label, err := predictor.Predict(model.Row{
		Names:  h.schema.Fields(),
		Values: values,
	})
	if err != nil {
		return nil, err
	}

	logger.Info().Str("label", label).Msg("prediction generated")

	return Result{"response": label}, nil
}
