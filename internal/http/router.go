// Package httpapi composes the feature handlers into the service's HTTP
// surface. It stays thin; business logic lives in the internal services.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"docrelay/internal/platform/metrics"
	"docrelay/internal/platform/middleware"
)

// Registrar is any feature handler that can mount its routes.
type Registrar interface {
	Register(r chi.Router)
}

// Config carries the cross-cutting inputs the router needs. HTTPMetrics may
// be nil; observation is then skipped.
type Config struct {
	Logger        *slog.Logger
	JWTSigningKey []byte
	HTTPMetrics   *metrics.HTTP
}

// NewRouter builds the full route tree. Liveness and metrics are served
// outside the authenticated group; every feature route requires a valid
// org-scoped token.
func NewRouter(cfg Config, handlers ...Registrar) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Metrics(cfg.HTTPMetrics))

	r.Get("/healthz", handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.OrgAuth(cfg.JWTSigningKey, cfg.Logger))
		for _, h := range handlers {
			h.Register(r)
		}
	})

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
