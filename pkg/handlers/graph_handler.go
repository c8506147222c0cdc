package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/landscape-engine/pkg/graph"
	"github.com/ekaya-inc/landscape-engine/pkg/models"
	"github.com/ekaya-inc/landscape-engine/pkg/services"
)

// ============================================================================
// Request/Response Types
// ============================================================================

// LandscapeListResponse for GET available_landscapes and loaded_landscapes.
type LandscapeListResponse struct {
	Landscapes []models.LandscapeInfo `json:"landscapes"`
}

// AddLandscapesRequest for POST /api/graph/landscapes
type AddLandscapesRequest struct {
	Names []string `json:"names" validate:"required,min=1,dive,required"`
}

// AddCustomLandscapeRequest for POST /api/graph/custom_landscape
type AddCustomLandscapeRequest struct {
	Name      string         `json:"name" validate:"required"`
	Landscape map[string]any `json:"landscape" validate:"required"`
}

// MergeRequest for POST /api/graph/merge
type MergeRequest struct {
	Landscapes []models.LandscapeSource `json:"landscapes" validate:"dive"`
	LogLevel   string                   `json:"log_level"`
}

// ============================================================================
// Handler
// ============================================================================

// GraphHandler serves the landscape graph API used by the visualisation.
type GraphHandler struct {
	catalog services.LandscapeCatalog
	store   services.LandscapeGraphService
	merger  services.LandscapeMerger
	logger  *zap.Logger
}

// NewGraphHandler creates a new graph handler.
func NewGraphHandler(
	catalog services.LandscapeCatalog,
	store services.LandscapeGraphService,
	merger services.LandscapeMerger,
	logger *zap.Logger,
) *GraphHandler {
	return &GraphHandler{
		catalog: catalog,
		store:   store,
		merger:  merger,
		logger:  logger,
	}
}

// RegisterRoutes registers the graph handler's routes on the given mux.
func (h *GraphHandler) RegisterRoutes(mux *http.ServeMux) {
	base := "/api/graph"

	mux.HandleFunc("GET "+base, h.GetGraph)
	mux.HandleFunc("GET "+base+"/available_landscapes", h.AvailableLandscapes)
	mux.HandleFunc("GET "+base+"/loaded_landscapes", h.LoadedLandscapes)
	mux.HandleFunc("POST "+base+"/landscapes", h.AddLandscapes)
	mux.HandleFunc("POST "+base+"/custom_landscape", h.AddCustomLandscape)
	mux.HandleFunc("DELETE "+base+"/landscapes/{name}", h.RemoveLandscape)
	mux.HandleFunc("POST "+base+"/populate/{stage}", h.Populate)
	mux.HandleFunc("POST "+base+"/reset", h.Reset)
	mux.HandleFunc("GET "+base+"/relations/{nodeId...}", h.Relations)
	mux.HandleFunc("GET "+base+"/flattened_landscape", h.FlattenedLandscape)
	mux.HandleFunc("GET "+base+"/merged_landscape", h.MergedLandscape)
	mux.HandleFunc("GET "+base+"/summary", h.Summary)
	mux.HandleFunc("POST "+base+"/merge", h.Merge)
}

// GetGraph handles GET /api/graph
// Query: with_idtype_nodes (default true), remove_isolated_nodes, hide_fragments.
func (h *GraphHandler) GetGraph(w http.ResponseWriter, r *http.Request) {
	opts := graph.ViewOptions{
		HideIdtypeNodes:   !boolQuery(r, "with_idtype_nodes", true),
		HideIsolatedNodes: boolQuery(r, "remove_isolated_nodes", false),
		HideFragmentEdges: boolQuery(r, "hide_fragments", false),
	}
	h.writeGraph(w, opts)
}

func (h *GraphHandler) writeGraph(w http.ResponseWriter, opts graph.ViewOptions) {
	g, err := h.store.Graph(opts)
	if err != nil {
		writeServiceError(w, h.logger, err, "get_graph_failed")
		return
	}
	if err := WriteJSON(w, http.StatusOK, g.NodeLink()); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// AvailableLandscapes handles GET /api/graph/available_landscapes
func (h *GraphHandler) AvailableLandscapes(w http.ResponseWriter, r *http.Request) {
	infos, err := h.catalog.Available(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err, "list_landscapes_failed")
		return
	}
	if err := WriteJSON(w, http.StatusOK, LandscapeListResponse{Landscapes: infos}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// LoadedLandscapes handles GET /api/graph/loaded_landscapes
func (h *GraphHandler) LoadedLandscapes(w http.ResponseWriter, r *http.Request) {
	h.writeLoaded(w, http.StatusOK, h.store.LoadedLandscapes())
}

func (h *GraphHandler) writeLoaded(w http.ResponseWriter, status int, infos []models.LandscapeInfo) {
	if err := WriteJSON(w, status, LandscapeListResponse{Landscapes: infos}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// AddLandscapes handles POST /api/graph/landscapes
func (h *GraphHandler) AddLandscapes(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest[AddLandscapesRequest](w, r, h.logger)
	if !ok {
		return
	}

	sources, err := h.catalog.Resolve(r.Context(), req.Names)
	if err != nil {
		writeServiceError(w, h.logger, err, "add_landscapes_failed")
		return
	}
	h.writeLoaded(w, http.StatusOK, h.store.AddLandscapes(sources))
}

// AddCustomLandscape handles POST /api/graph/custom_landscape
func (h *GraphHandler) AddCustomLandscape(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest[AddCustomLandscapeRequest](w, r, h.logger)
	if !ok {
		return
	}

	loaded := h.store.AddLandscapes([]models.LandscapeSource{{
		Name:     req.Name,
		Type:     models.SourceTypeCustom,
		Document: models.Document(req.Landscape),
	}})
	h.writeLoaded(w, http.StatusCreated, loaded)
}

// RemoveLandscape handles DELETE /api/graph/landscapes/{name}
func (h *GraphHandler) RemoveLandscape(w http.ResponseWriter, r *http.Request) {
	if err := h.store.RemoveLandscape(r.PathValue("name")); err != nil {
		writeServiceError(w, h.logger, err, "remove_landscape_failed")
		return
	}
	h.writeLoaded(w, http.StatusOK, h.store.LoadedLandscapes())
}

// Populate handles POST /api/graph/populate/{stage}
// Responds with the full graph after the stage has run.
func (h *GraphHandler) Populate(w http.ResponseWriter, r *http.Request) {
	stage, err := services.ParseStage(r.PathValue("stage"))
	if err != nil {
		writeServiceError(w, h.logger, err, "populate_failed")
		return
	}
	if err := h.store.Populate(stage); err != nil {
		writeServiceError(w, h.logger, err, "populate_failed")
		return
	}
	h.writeGraph(w, graph.ViewOptions{})
}

// Reset handles POST /api/graph/reset
func (h *GraphHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.store.Reset()
	w.WriteHeader(http.StatusNoContent)
}

// Relations handles GET /api/graph/relations/{nodeId}
// Query: policy (all, configured, no_fragments).
func (h *GraphHandler) Relations(w http.ResponseWriter, r *http.Request) {
	policy, err := services.ParseRelationPolicy(r.URL.Query().Get("policy"))
	if err != nil {
		writeServiceError(w, h.logger, err, "get_relations_failed")
		return
	}

	links, err := h.store.RelationsForNode(r.PathValue("nodeId"), policy)
	if err != nil {
		writeServiceError(w, h.logger, err, "get_relations_failed")
		return
	}
	if err := WriteJSON(w, http.StatusOK, links); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// FlattenedLandscape handles GET /api/graph/flattened_landscape
func (h *GraphHandler) FlattenedLandscape(w http.ResponseWriter, r *http.Request) {
	doc, err := h.store.FlattenedLandscape()
	if err != nil {
		writeServiceError(w, h.logger, err, "flatten_failed")
		return
	}
	if err := WriteJSON(w, http.StatusOK, doc); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// MergedLandscape handles GET /api/graph/merged_landscape
// Merges the loaded landscapes; 204 when none are loaded.
func (h *GraphHandler) MergedLandscape(w http.ResponseWriter, r *http.Request) {
	h.writeMergeResult(w, h.store.MergedLandscape(r.URL.Query().Get("log_level")))
}

// Merge handles POST /api/graph/merge
// Merges the landscapes in the request body; 204 when there are none.
func (h *GraphHandler) Merge(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest[MergeRequest](w, r, h.logger)
	if !ok {
		return
	}
	h.writeMergeResult(w, h.merger.Merge(req.Landscapes, req.LogLevel))
}

func (h *GraphHandler) writeMergeResult(w http.ResponseWriter, result *services.MergeResult) {
	if result == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err := WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Summary handles GET /api/graph/summary
func (h *GraphHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.store.Summary()
	if err != nil {
		writeServiceError(w, h.logger, err, "get_summary_failed")
		return
	}
	if err := WriteJSON(w, http.StatusOK, summary); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
