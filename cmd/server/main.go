// Command server runs the predict function behind a local HTTP server.
//
// Every POST to / or /invoke is handled exactly as the Lambda runtime would
// handle an API Gateway HTTP API event.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/deppfellow/predict-lambda/internal/config"
	"github.com/deppfellow/predict-lambda/internal/handler"
	"github.com/deppfellow/predict-lambda/internal/logger"
	"github.com/deppfellow/predict-lambda/internal/router"
	"github.com/deppfellow/predict-lambda/internal/server"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	loggerService, err := logger.NewLoggerService(cfg.Observability)
	log := logger.NewLoggerWithService(cfg.Observability, loggerService)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize telemetry")
	}

	// A local server has no per-invocation error channel, so fail fast.
	if err := cfg.CheckRequired(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if err := cfg.Observability.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid observability configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(ctx, cfg, &log, loggerService)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize server")
	}

	r := router.NewRouter(srv, handler.NewHandlers(srv))
	srv.SetupHTTPServer(r)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
