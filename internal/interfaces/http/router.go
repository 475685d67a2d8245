// Package http exposes the engine's inspection API: current state, cluster
// partitions and aggregated edges, plus health and Prometheus endpoints.
// Nothing here mutates the engine beyond enable/disable.
package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"brain2-lod/internal/application/engine"
	"brain2-lod/internal/domain/lod"
	"brain2-lod/internal/infrastructure/observability"
)

// Handler serves the inspection API.
type Handler struct {
	engine  *engine.Engine
	metrics *observability.Collector
	ws      http.HandlerFunc
	logger  *zap.Logger
}

// NewHandler creates the handler. ws may be nil when no websocket hub is
// attached; the route is then omitted.
func NewHandler(eng *engine.Engine, metrics *observability.Collector, ws http.HandlerFunc, logger *zap.Logger) *Handler {
	return &Handler{engine: eng, metrics: metrics, ws: ws, logger: logger}
}

// Router builds the chi router.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(h.requestLogger)

	r.Get("/healthz", h.health)
	if h.metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(h.metrics.Registry(), promhttp.HandlerOpts{}))
	}
	if h.ws != nil {
		r.Get("/ws", h.ws)
	}

	r.Route("/api/lod", func(r chi.Router) {
		r.Get("/status", h.status)
		r.Post("/enable", h.enable)
		r.Post("/disable", h.disable)
		r.Get("/clusters/{kind}", h.clusters)
		r.Get("/edges", h.edges)
	})
	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, h.engine.Status())
}

func (h *Handler) enable(w http.ResponseWriter, r *http.Request) {
	h.engine.Enable()
	respond(w, http.StatusOK, h.engine.Status())
}

func (h *Handler) disable(w http.ResponseWriter, r *http.Request) {
	h.engine.Disable()
	respond(w, http.StatusOK, h.engine.Status())
}

func (h *Handler) clusters(w http.ResponseWriter, r *http.Request) {
	kind := lod.Kind(chi.URLParam(r, "kind"))
	switch kind {
	case lod.KindSpatial, lod.KindConnectivity, lod.KindType:
	default:
		respondError(w, http.StatusBadRequest, "unknown cluster kind")
		return
	}

	clusters := h.engine.ClustersFor(kind)
	if clusters == nil {
		respondError(w, http.StatusNotFound, "no clusters built for kind")
		return
	}
	respond(w, http.StatusOK, map[string]interface{}{
		"kind":     kind,
		"count":    len(clusters),
		"clusters": clusters,
	})
}

func (h *Handler) edges(w http.ResponseWriter, r *http.Request) {
	counts := h.engine.EdgeCounts()
	if counts == nil {
		respondError(w, http.StatusNotFound, "no aggregated edges for the current level")
		return
	}

	type pair struct {
		A     string `json:"a"`
		B     string `json:"b"`
		Count int    `json:"count"`
	}
	pairs := make([]pair, 0, len(counts))
	for key, count := range counts {
		pairs = append(pairs, pair{A: key.A, B: key.B, Count: count})
	}
	respond(w, http.StatusOK, map[string]interface{}{
		"count": len(pairs),
		"pairs": pairs,
	})
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		h.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// respond sends a JSON response.
func respond(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		json.NewEncoder(w).Encode(data) //nolint:errcheck // best effort
	}
}

func respondError(w http.ResponseWriter, statusCode int, message string) {
	respond(w, statusCode, map[string]string{"error": message})
}
