package handlers

import (
	"net/http"
	"os"
	"runtime"

	"go.uber.org/zap"

	"github.com/ekaya-inc/landscape-engine/pkg/config"
	"github.com/ekaya-inc/landscape-engine/pkg/services"
)

// PingResponse contains service status, version and graph readiness.
type PingResponse struct {
	Status           string   `json:"status"`
	Version          string   `json:"version"`
	Service          string   `json:"service"`
	GoVersion        string   `json:"go_version"`
	Hostname         string   `json:"hostname"`
	Environment      string   `json:"environment"`
	LoadedLandscapes []string `json:"loaded_landscapes"`
	GraphInitialized bool     `json:"graph_initialized"`
}

// HealthHandler handles health check and ping endpoints.
type HealthHandler struct {
	cfg    *config.Config
	store  services.LandscapeGraphService
	logger *zap.Logger
}

// NewHealthHandler creates a new HealthHandler reporting on the given graph store.
func NewHealthHandler(cfg *config.Config, store services.LandscapeGraphService, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{cfg: cfg, store: store, logger: logger}
}

// RegisterRoutes registers the health handler's routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ping", h.Ping)
}

// Health handles GET /health. The process is healthy whether or not a graph is built.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ping handles GET /ping with version, environment and graph state.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	hostname, err := os.Hostname()
	if err != nil {
		http.Error(w, "failed to get hostname", http.StatusInternalServerError)
		return
	}

	loaded := h.store.LoadedLandscapes()
	names := make([]string, 0, len(loaded))
	for _, l := range loaded {
		names = append(names, l.Name)
	}
	_, summaryErr := h.store.Summary()

	response := PingResponse{
		Status:           "ok",
		Version:          h.cfg.Version,
		Service:          "landscape-engine",
		GoVersion:        runtime.Version(),
		Hostname:         hostname,
		Environment:      h.cfg.Env,
		LoadedLandscapes: names,
		GraphInitialized: summaryErr == nil,
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode ping response", zap.Error(err))
	}
}
