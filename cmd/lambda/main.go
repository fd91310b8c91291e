// Command lambda is the AWS Lambda entrypoint of the predict function.
package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/deppfellow/predict-lambda/internal/config"
	"github.com/deppfellow/predict-lambda/internal/logger"
	"github.com/deppfellow/predict-lambda/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Missing required settings are not fatal here: every invocation reports
	// them as its error until the deployment is fixed.
	if err := cfg.CheckRequired(); err != nil {
		bootLogger := logger.NewLogger(cfg.Observability)
		bootLogger.Error().Err(err).Msg("function is not configured")
	}

	loggerService, err := logger.NewLoggerService(cfg.Observability)
	log := logger.NewLoggerWithService(cfg.Observability, loggerService)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize telemetry")
	}
	defer loggerService.Shutdown()

	if loggerService.GetApplication() != nil {
		log.Info().Msgf("telemetry enabled, errors will be reported with env=%s", cfg.Workspace)
	} else {
		log.Info().Msg("no telemetry license key found, errors will not be reported")
	}

	srv, err := server.New(context.Background(), cfg, &log, loggerService)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize function")
	}

	lambda.Start(srv.Processor.Process)
}
