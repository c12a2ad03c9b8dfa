package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/observelab/obsdemo/internal/obs"
)

// NewRouter mounts the demo routes through the pipeline, plus the metrics
// exposition endpoint, which is deliberately outside the pipeline so that
// scrapes don't pollute the request metrics.
func NewRouter(p *Pipeline, h *Handlers, metrics *obs.Collector) chi.Router {
	r := chi.NewRouter()

	r.Get("/", p.Handle("/", h.Root))
	r.Get("/health", p.Handle("/health", h.Health))
	r.Get("/slow", p.Handle("/slow", h.Slow))
	r.Get("/error", p.Handle("/error", h.SimulatedError))
	r.Get("/users/{userID}", p.Handle("/users/{userID}", h.User))

	r.Method(http.MethodGet, "/metrics",
		promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))

	return r
}
