// Copyright (c) 2026 Fugal Labs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the Gatekeeper HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Build the credential signer (missing secrets are fatal here).
//  4. Connect to PostgreSQL (pgxpool) and run migrations.
//  5. Connect to Redis.
//  6. Wire mail delivery, metrics and HTTP handlers.
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

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fugallabs/gatekeeper/internal/api"
	"github.com/fugallabs/gatekeeper/internal/platform/config"
	"github.com/fugallabs/gatekeeper/internal/platform/constants"
	"github.com/fugallabs/gatekeeper/internal/platform/mail"
	"github.com/fugallabs/gatekeeper/internal/platform/metrics"
	"github.com/fugallabs/gatekeeper/internal/platform/migration"
	pgstore "github.com/fugallabs/gatekeeper/internal/platform/postgres"
	"github.com/fugallabs/gatekeeper/internal/platform/ratelimit"
	redisstore "github.com/fugallabs/gatekeeper/internal/platform/redis"
	"github.com/fugallabs/gatekeeper/internal/platform/sec"
	"github.com/fugallabs/gatekeeper/internal/users/auth"
	"github.com/fugallabs/gatekeeper/internal/users/otp"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	log := newLogger(slog.LevelInfo)
	slog.SetDefault(log)

	log.Info("[Gatekeeper] service_initializing", slog.String("version", constants.AppVersion))

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		log = newLogger(slog.LevelDebug)
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.String("mail_provider", cfg.Mail.Provider),
	)

	// ── 3. Credential Signer ──────────────────────────────────────────────
	signer, err := sec.NewSigner(sec.SignerConfig{
		AccessSecret:  cfg.Tokens.AccessSecret,
		RefreshSecret: cfg.Tokens.RefreshSecret,
		AccessTTL:     cfg.Tokens.AccessTTL,
		RefreshTTL:    cfg.Tokens.RefreshTTL,
		Issuer:        constants.AuthIssuer,
	})
	must(log, err, "initialize credential signer")

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 4. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, cfg.StoreTimeout, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 5. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	counters := redisstore.NewCounterStore(rdb, cfg.StoreTimeout)

	// ── 6. Collaborators ──────────────────────────────────────────────────
	sender, err := mail.New(cfg.Mail, log)
	must(log, err, "initialize mail sender")

	recorder := metrics.New(prometheus.DefaultRegisterer)

	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func(ctx context.Context) error {
			return pgstore.Ping(ctx, pool)
		},
		CheckCounterStore: counters.Ping,
	}, log)

	// ── 7. Domain Wiring ──────────────────────────────────────────────────
	otpService := otp.NewService(counters, sender, recorder)
	accountRepository := auth.NewAccountRepository(pool, cfg.StoreTimeout)
	authService := auth.NewService(accountRepository, signer, otpService, recorder)

	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Metrics:   metrics.Handler(prometheus.DefaultGatherer),
		OTP:       otp.NewHandler(otpService),
		Auth:      auth.NewHandler(authService, !cfg.IsDevelopment()),
	}

	server := api.NewServer(cfg, log, api.Dependencies{
		Verifier: signer,
		Limiter:  ratelimit.NewFixedWindow(counters, cfg.RateLimit.Max, cfg.RateLimit.Window),
		Metrics:  recorder,
	}, handlers)

	// ── 8. Graceful Shutdown ──────────────────────────────────────────────
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
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// newLogger builds the process-wide JSON logger.
func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})).With(slog.String("app", constants.AppName))
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
