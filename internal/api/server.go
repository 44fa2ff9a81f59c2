// Copyright (c) 2026 Fugal Labs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package api wires together the HTTP router, middleware chain, and all
domain handlers into a runnable [http.Server].

Architecture:

  - This package is the topmost Presentation layer boundary.
  - It acts as the central composition root for the HTTP transport framework (chi router).
  - Only this package and cmd/api are allowed to import net/http server primitives.
*/
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/fugallabs/gatekeeper/internal/platform/config"
	"github.com/fugallabs/gatekeeper/internal/platform/constants"
	"github.com/fugallabs/gatekeeper/internal/platform/metrics"
	"github.com/fugallabs/gatekeeper/internal/platform/middleware"
	"github.com/fugallabs/gatekeeper/internal/users/auth"
	"github.com/fugallabs/gatekeeper/internal/users/otp"
)

// # Server Definitions

// Server wraps the chi router and the [http.Server].
//
// It is constructed once in main.go with all dependencies injected.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        *slog.Logger
}

// # Handler Registry

// Handlers groups all domain-specific HTTP handler sets.
type Handlers struct {
	// Liveness is the /health handler; always 200 while the process is alive.
	Liveness http.HandlerFunc

	// Readiness is the /ready handler; 200 only when Postgres and Redis answer.
	Readiness http.HandlerFunc

	// Metrics serves the Prometheus exposition format.
	Metrics http.Handler

	// OTP issues and verifies one-time passcodes.
	OTP *otp.Handler

	// Auth handles registration, login and token rotation.
	Auth *auth.Handler
}

// Dependencies are the cross-cutting collaborators of the middleware chain.
type Dependencies struct {
	Verifier middleware.TokenVerifier
	Limiter  middleware.Limiter
	Metrics  *metrics.Metrics
}

// # Server Initialization

// NewServer constructs the chi router with the full middleware chain and
// registers all route groups.
func NewServer(cfg *config.Config, log *slog.Logger, deps Dependencies, h Handlers) *Server {
	r := NewRouter(cfg, log, deps, h)

	return &Server{
		router: r,
		log:    log,
		httpServer: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           r,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
	}
}

// NewRouter builds the routing tree without binding a listener.
func NewRouter(cfg *config.Config, log *slog.Logger, deps Dependencies, h Handlers) *chi.Mux {
	r := chi.NewRouter()

	// # Middleware Chain
	// Global middleware applied in order of execution. Instrument wraps the
	// logger so both observe the final status code.
	r.Use(middleware.RequestID())
	r.Use(middleware.Instrument(deps.Metrics))
	r.Use(middleware.StructuredLogger(log, cfg.TrustProxyHeaders))
	r.Use(chimw.Timeout(constants.GlobalRequestTimeout))
	r.Use(middleware.PanicRecovery(log))
	r.Use(middleware.CORS(cfg, cfg.AllowedOrigins))
	r.Use(chimw.CleanPath)
	r.Use(middleware.Authenticate(deps.Verifier))

	// # Infrastructure Endpoints
	// Unauthenticated probes for container orchestration and scraping.
	r.Get("/health", h.Liveness)
	r.Get("/ready", h.Readiness)
	if h.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.Metrics)
	}

	// # Application API
	// Every API request is counted against the per-address budget first.
	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.IPRateLimit(deps.Limiter, deps.Metrics, cfg.TrustProxyHeaders))
		api.Mount("/otp", h.OTP.Routes())
		api.Mount("/auth", h.Auth.Routes())
	})

	return r
}

// # Server Lifecycle

// ListenAndServe starts the HTTP server.
//
// It blocks until the server is closed or an error occurs.
func (s *Server) ListenAndServe() error {
	s.log.Info("server starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	context, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(context)
}
