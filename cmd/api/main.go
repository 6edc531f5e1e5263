// Package main implements the HTTP API server for the user count service.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	apihttp "github.com/dsjohal14/usercount/internal/http"
	"github.com/dsjohal14/usercount/internal/libs/config"
	"github.com/dsjohal14/usercount/internal/libs/obs"
	"github.com/dsjohal14/usercount/internal/scope/aggregate"
	"github.com/dsjohal14/usercount/internal/scope/db"
	"github.com/rs/zerolog"
)

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Init logger
	obs.InitLogger(cfg.LogLevel, cfg.Env)
	logger := obs.Logger("api")

	// Storage: one connection per operation, never pooled
	dialer, err := db.NewDialer(cfg.DBDriver, cfg.DatabaseURL, false)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure storage")
	}
	accessor := db.NewAccessor(dialer,
		db.WithLogger(obs.Logger("storage")),
		db.WithOpenRetry(cfg.StorageOpenAttempts, cfg.StorageOpenBackoff),
	)
	service := aggregate.NewService(accessor)

	checkStorage(service, cfg, logger)

	// Create HTTP handler
	handler := apihttp.NewHandler(service, logger,
		apihttp.WithQueryTimeout(cfg.QueryTimeout),
		apihttp.WithErrorDetails(cfg.IsDev()),
	)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           apihttp.NewRouter(handler),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.QueryTimeout + 30*time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start server
	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", cfg.Addr()).
			Str("driver", cfg.DBDriver).
			Msg("starting API server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
		return
	case <-ctx.Done():
	}

	logger.Info().Msg("shutdown signal received, draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().
		Int64("open_handles", accessor.OpenHandles()).
		Msg("server stopped")
}

// checkStorage verifies storage is reachable at startup. Failure is logged but
// not fatal: the root endpoint works without storage and the database may appear later.
func checkStorage(service *aggregate.Service, cfg *config.Config, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.QueryTimeout)
	defer cancel()

	if err := service.Ping(ctx); err != nil {
		logger.Warn().
			Err(err).
			Str("driver", cfg.DBDriver).
			Msg("storage unreachable at startup")
		return
	}

	total, err := service.CountUsers(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("storage reachable but user count failed")
		return
	}
	logger.Info().Int64("total_users", total).Msg("storage connected")
}
