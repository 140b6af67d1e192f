// Copyright (c) 2026 Mirava. All rights reserved.
// Author: an.vubui.dev@gmail.com

// Command api is the entry point for the Mirava HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool).
//  4. Connect to Redis.
//  5. Run database migrations (idempotent).
//  6. Wire domain services and HTTP handlers.
//  7. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anvubui/mirava/internal/admin"
	"github.com/anvubui/mirava/internal/api"
	"github.com/anvubui/mirava/internal/content"
	"github.com/anvubui/mirava/internal/platform/blob"
	"github.com/anvubui/mirava/internal/platform/config"
	"github.com/anvubui/mirava/internal/platform/constants"
	"github.com/anvubui/mirava/internal/platform/migration"
	pgstore "github.com/anvubui/mirava/internal/platform/postgres"
	redisstore "github.com/anvubui/mirava/internal/platform/redis"
	"github.com/anvubui/mirava/internal/platform/sec"
	"github.com/anvubui/mirava/internal/trust/badge"
	"github.com/anvubui/mirava/internal/trust/ban"
	"github.com/anvubui/mirava/internal/trust/moderation"
	"github.com/anvubui/mirava/internal/trust/report"
	"github.com/anvubui/mirava/internal/users/account"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String("app", "mirava"))
	slog.SetDefault(log)

	log.Info("[Mirava] service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", "mirava"))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
	)

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing_postgres_pool")
		pool.Close()
	}()

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing_redis_client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis_close_error", slog.Any("error", cerr))
		}
	}()

	// ── 5. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 6. Identity Verification ──────────────────────────────────────────
	verifier, err := sec.NewIdentityVerifier(cfg.IdentityPubKeyPath, cfg.IdentityIssuer)
	must(log, err, "initialize identity verifier")

	// ── 7. Health Handlers ────────────────────────────────────────────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func() error {
			return pgstore.Ping(context.Background(), pool)
		},
		CheckCache: func() error {
			return redisstore.Ping(context.Background(), rdb)
		},
	}, log)

	// ── 8. Blob Store ─────────────────────────────────────────────────────
	var blobs blob.Store = blob.NopStore{}
	if cfg.BlobRoot != "" {
		blobs = blob.NewFSStore(cfg.BlobRoot, log)
	}

	// ── 9. Domain Wiring ──────────────────────────────────────────────────
	accountRepository := account.NewPostgresRepository(pool)
	libraryRepository := account.NewPostgresLibraryRepository(pool)
	contentRepository := content.NewPostgresRepository(pool)

	accountService := account.NewService(accountRepository, libraryRepository, contentRepository, log)
	accountHandler := account.NewHandler(accountService)

	banService := ban.NewService(accountRepository, log)
	badgeService := badge.NewService(accountRepository, log)
	badgeHandler := badge.NewHandler(badgeService)

	reportStore := report.NewPostgresStore(pool)
	reportCache := report.NewRedisCountCache(rdb)
	reportService := report.NewService(reportStore, reportCache, log)
	reportHandler := report.NewHandler(reportService)

	viewCounter := content.NewRedisViewCounter(rdb)
	contentService := content.NewService(contentRepository, accountRepository, banService, viewCounter, blobs, log)
	contentHandler := content.NewHandler(contentService)

	moderationService := moderation.NewService(contentRepository, accountRepository, log)

	adminHandler := admin.NewHandler(accountService, banService, badgeService, moderationService, reportService, contentService)

	// ── 10. HTTP Server ───────────────────────────────────────────────────
	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Account:   accountHandler,
		Content:   contentHandler,
		Report:    reportHandler,
		Badge:     badgeHandler,
		Admin:     adminHandler,
	}

	server := api.NewServer(context.Background(), cfg, log, verifier, accountService, handlers)

	// ── 11. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown_signal_received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server_startup_error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting_down_server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown_error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server_stopped_cleanly")
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup_failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
