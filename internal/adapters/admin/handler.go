// Package admin provides the crawler daemon's ambient HTTP surface: a
// liveness check and the Prometheus scrape endpoint. There are no business
// routes here, unlike the application this repo's structure is adapted
// from, since the daemon has no caller-facing API of its own.
package admin

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler serves /health and /metrics.
type Handler struct {
	router *http.ServeMux
}

// NewHandler builds a Handler. reg is the Prometheus registry to serve under
// /metrics.
func NewHandler(reg prometheus.Gatherer) *Handler {
	h := &Handler{router: http.NewServeMux()}
	h.router.HandleFunc("GET /health", h.health)
	h.router.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return h
}

// ServeHTTP satisfies http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
