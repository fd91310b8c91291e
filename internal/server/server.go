// Package server defines the core Server struct that composes the function's
// dependencies.
//
// It is shared by both entrypoints: the Lambda runtime only needs Processor,
// the local HTTP adapter additionally wraps it in an http.Server.
//
// It owns the lifecycle of:
//   - configuration
//   - logger + optional New Relic service wrapper
//   - feature schema and model source
//   - the invocation processor
//   - http.Server (local adapter only)
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/deppfellow/predict-lambda/internal/action"
	"github.com/deppfellow/predict-lambda/internal/config"
	"github.com/deppfellow/predict-lambda/internal/features"
	"github.com/deppfellow/predict-lambda/internal/model"
	"github.com/deppfellow/predict-lambda/internal/pipeline"
	"github.com/rs/zerolog"

	loggerPkg "github.com/deppfellow/predict-lambda/internal/logger"
)

// Server is the application container that holds shared resources.
//
// Everything it holds is read-only once New returns, so concurrent
// invocations share it without locking.
type Server struct {
	Config *config.Config

	Logger *zerolog.Logger

	// LoggerService optionally holds the New Relic application instance.
	LoggerService *loggerPkg.LoggerService

	// Schema is the compiled feature schema used by Predict.
	Schema *features.Schema

	// ModelSource is where the predictor artifact is fetched from on every
	// Predict call.
	ModelSource model.Source

	Processor *pipeline.Processor

	httpServer *http.Server
}

// New constructs a Server and wires the invocation pipeline.
//
// Initialization performed:
//   - feature schema (embedded, or MODEL_SCHEMA_PATH)
//   - model source from MODEL_URI (S3 client when the URI is s3://)
//   - action router and processor
//
// The model itself is not loaded here.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger, loggerService *loggerPkg.LoggerService) (*Server, error) {
	schema, err := loadSchema(cfg.Model.SchemaPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load feature schema: %w", err)
	}

	source, err := model.NewSource(ctx, cfg.Model.URI, model.S3Options{
		Region:   cfg.AWS.Region,
		Endpoint: cfg.AWS.EndpointURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize model source: %w", err)
	}

	router := action.NewRouter(
		action.NewPingHandler(),
		action.NewPredictHandler(schema, model.NewArtifactLoader(source)),
	)

	logger.Info().
		Str("model_source", source.String()).
		Int("features", len(schema.Fields())).
		Msg("pipeline initialized")

	return &Server{
		Config:        cfg,
		Logger:        logger,
		LoggerService: loggerService,
		Schema:        schema,
		ModelSource:   source,
		Processor:     pipeline.NewProcessor(cfg, router, *logger, loggerService),
	}, nil
}

func loadSchema(path string) (*features.Schema, error) {
	if path == "" {
		return features.Default()
	}
	return features.Load(path)
}

// SetupHTTPServer configures the internal net/http server for the local
// adapter. handler is the echo router.
func (s *Server) SetupHTTPServer(handler http.Handler) {
	s.httpServer = &http.Server{
		Addr:         ":" + s.Config.Server.Port,
		Handler:      handler,
		ReadTimeout:  s.Config.Server.ReadTimeout,
		WriteTimeout: s.Config.Server.WriteTimeout,
		IdleTimeout:  s.Config.Server.IdleTimeout,
	}
}

// Start runs the HTTP server. It requires SetupHTTPServer to be called first.
func (s *Server) Start() error {
	if s.httpServer == nil {
		return errors.New("HTTP server not initialized")
	}

	s.Logger.Info().
		Str("port", s.Config.Server.Port).
		Str("env", s.Config.Workspace).
		Msg("starting server")

	return s.httpServer.ListenAndServe()
}

// Shutdown stops the HTTP server (finishing inflight requests until ctx
// deadline) and flushes telemetry.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown HTTP server: %w", err)
		}
	}

	s.LoggerService.Shutdown()

	return nil
}
