// Package http serves the status endpoints of a pipeline run: health checks,
// Prometheus metrics and ledger progress.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/biocad/anbase/internal/infrastructure/monitoring/logging"
	"github.com/biocad/anbase/internal/interfaces/http/handlers"
	"github.com/biocad/anbase/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handlers of the status server. Nil handlers
// leave their routes unregistered.
type RouterConfig struct {
	HealthHandler   *handlers.HealthHandler
	ProgressHandler *handlers.ProgressHandler
	Metrics         http.Handler

	Logger logging.Logger
}

// NewRouter builds the route tree:
//
//	GET /healthz   liveness
//	GET /readyz    readiness of redis and object storage
//	GET /metrics   Prometheus exposition
//	GET /progress  ledger counts and running stage
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	if cfg.Logger != nil {
		r.Use(middleware.RequestLogging(cfg.Logger, middleware.DefaultLoggingConfig()))
	}

	if cfg.HealthHandler != nil {
		r.Get("/healthz", cfg.HealthHandler.Liveness)
		r.Get("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics)
	}
	if cfg.ProgressHandler != nil {
		r.Get("/progress", cfg.ProgressHandler.Progress)
	}

	return r
}

//Personal.AI order the ending
