// Package httpapi wires the ingress, websocket, and filter-discovery HTTP
// surface together behind a chi router.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/agentic-layer/observability-dashboard/internal/distributor"
	"github.com/agentic-layer/observability-dashboard/internal/observability"
	"github.com/agentic-layer/observability-dashboard/internal/registry"
)

// Config bundles everything the router needs to construct handlers.
type Config struct {
	Distributor *distributor.Distributor
	Registry    *registry.Registry
	Metrics     *observability.Metrics
	Tracer      *observability.Tracer
	StaticDir   string // serves the SPA; empty disables the mount
}

// NewRouter builds the chi router exposing /v1/traces, /ws, /api/filters*,
// /health, /metrics (if Metrics is set), and (if StaticDir is set) the
// frontend SPA.
func NewRouter(cfg Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if cfg.Metrics != nil {
		r.Use(metricsMiddleware(cfg.Metrics))
	}

	h := &handlers{
		distributor: cfg.Distributor,
		registry:    cfg.Registry,
		metrics:     cfg.Metrics,
		tracer:      cfg.Tracer,
	}

	r.Get("/health", h.handleHealth)
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics.Handler())
	}

	r.Post("/v1/traces", h.handleTraces)
	r.Get("/ws", h.handleWebsocket)
	r.Get("/api/filters", h.handleFilters)
	r.Get("/api/filters/stats", h.handleFilterStats)

	if cfg.StaticDir != "" {
		fileServer := http.FileServer(http.Dir(cfg.StaticDir))
		r.Handle("/*", fileServer)
	}

	return r
}

type handlers struct {
	distributor *distributor.Distributor
	registry    *registry.Registry
	metrics     *observability.Metrics
	tracer      *observability.Tracer
}

func (h *handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}
