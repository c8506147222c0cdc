package services

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ekaya-inc/landscape-engine/pkg/apperrors"
	"github.com/ekaya-inc/landscape-engine/pkg/graph"
	"github.com/ekaya-inc/landscape-engine/pkg/models"
)

// Stage is one step of graph population.
type Stage string

const (
	StageNodes              Stage = "nodes"
	StageIdtypeRelations    Stage = "idtype_relations"
	StageOneToNRelations    Stage = "one_to_n_relations"
	StageDrilldownRelations Stage = "drilldown_relations"
	StageAll                Stage = "all"
)

// stageOrder is the order stages are applied and reported in.
var stageOrder = []Stage{StageNodes, StageIdtypeRelations, StageOneToNRelations, StageDrilldownRelations}

// ParseStage validates a stage name.
func ParseStage(s string) (Stage, error) {
	switch st := Stage(s); st {
	case StageNodes, StageIdtypeRelations, StageOneToNRelations, StageDrilldownRelations, StageAll:
		return st, nil
	}
	return "", fmt.Errorf("unknown stage %q: %w", s, apperrors.ErrInvalidRequest)
}

// GraphSummary describes the current federated graph.
type GraphSummary struct {
	Landscapes       []string       `json:"landscapes"`
	Stages           []Stage        `json:"stages"`
	Nodes            int            `json:"nodes"`
	Edges            int            `json:"edges"`
	Idtypes          int            `json:"idtypes"`
	Entities         int            `json:"entities"`
	EdgeTypes        map[string]int `json:"edge_types"`
	Components       int            `json:"components"`
	LargestComponent int            `json:"largest_component"`
	Islands          []string       `json:"islands"`
}

// LandscapeGraphService owns the loaded landscape documents and the federated graph built from them.
type LandscapeGraphService interface {
	// AddLandscapes registers sources, replacing documents with the same name.
	AddLandscapes(sources []models.LandscapeSource) []models.LandscapeInfo
	// RemoveLandscape unloads a landscape. Returns ErrNotFound if it is not loaded.
	RemoveLandscape(name string) error
	LoadedLandscapes() []models.LandscapeInfo

	PopulateNodes() error
	PopulateIdtypeRelations() error
	PopulateOneToNRelations() error
	PopulateDrilldownRelations() error
	// Build runs every population stage.
	Build() error
	// Populate runs the named stage.
	Populate(stage Stage) error

	Graph(opts graph.ViewOptions) (*graph.Graph, error)
	RelationsForNode(nodeID string, policy RelationPolicy) ([]graph.Link, error)
	FlattenedLandscape() (models.Document, error)
	// MergedLandscape merges the loaded documents. Returns nil when none are loaded.
	MergedLandscape(logLevel string) *MergeResult
	Summary() (*GraphSummary, error)

	// Reset drops every document, stage and the graph.
	Reset()
}

type landscapeGraphService struct {
	mu sync.RWMutex

	builder *GraphBuilder
	merger  LandscapeMerger
	logger  *zap.Logger

	names   []string
	sources map[string]models.LandscapeSource
	stages  map[Stage]bool
	graph   *graph.Graph
}

var _ LandscapeGraphService = (*landscapeGraphService)(nil)

// NewLandscapeGraphService creates an empty graph store.
func NewLandscapeGraphService(builder *GraphBuilder, merger LandscapeMerger, logger *zap.Logger) LandscapeGraphService {
	return &landscapeGraphService{
		builder: builder,
		merger:  merger,
		logger:  logger.Named("landscape-graph"),
		sources: make(map[string]models.LandscapeSource),
		stages:  make(map[Stage]bool),
	}
}

func (s *landscapeGraphService) AddLandscapes(sources []models.LandscapeSource) []models.LandscapeInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, src := range sources {
		if _, exists := s.sources[src.Name]; !exists {
			s.names = append(s.names, src.Name)
		}
		if src.Document == nil {
			src.Document = models.NewDocument()
		}
		s.sources[src.Name] = src
		s.logger.Info("Loaded landscape", zap.String("landscape", src.Name), zap.String("type", src.Type))
	}
	s.rebuild()
	return s.loaded()
}

func (s *landscapeGraphService) RemoveLandscape(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sources[name]; !ok {
		return fmt.Errorf("landscape %q: %w", name, apperrors.ErrNotFound)
	}
	delete(s.sources, name)
	for i, n := range s.names {
		if n == name {
			s.names = append(s.names[:i], s.names[i+1:]...)
			break
		}
	}
	s.logger.Info("Removed landscape", zap.String("landscape", name))
	s.rebuild()
	return nil
}

func (s *landscapeGraphService) LoadedLandscapes() []models.LandscapeInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded()
}

func (s *landscapeGraphService) loaded() []models.LandscapeInfo {
	out := make([]models.LandscapeInfo, 0, len(s.names))
	for _, name := range s.names {
		out = append(out, models.LandscapeInfo{Name: name, Type: s.sources[name].Type})
	}
	return out
}

func (s *landscapeGraphService) PopulateNodes() error { return s.Populate(StageNodes) }

func (s *landscapeGraphService) PopulateIdtypeRelations() error {
	return s.Populate(StageIdtypeRelations)
}

func (s *landscapeGraphService) PopulateOneToNRelations() error {
	return s.Populate(StageOneToNRelations)
}

func (s *landscapeGraphService) PopulateDrilldownRelations() error {
	return s.Populate(StageDrilldownRelations)
}

func (s *landscapeGraphService) Build() error { return s.Populate(StageAll) }

func (s *landscapeGraphService) Populate(stage Stage) error {
	if _, err := ParseStage(string(stage)); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch stage {
	case StageAll:
		for _, st := range stageOrder {
			s.stages[st] = true
		}
	case StageNodes:
		s.stages[StageNodes] = true
	default:
		if !s.stages[StageNodes] {
			return apperrors.ErrGraphNotInitialized
		}
		s.stages[stage] = true
	}

	s.logger.Info("Populating graph", zap.String("stage", string(stage)))
	s.rebuild()
	return nil
}

// rebuild recomputes the federated graph from every loaded document and the
// completed stages. Callers hold the write lock.
func (s *landscapeGraphService) rebuild() {
	if !s.stages[StageNodes] {
		s.graph = nil
		return
	}

	perLandscape := make([]*graph.Graph, 0, len(s.names))
	for _, name := range s.names {
		doc := s.sources[name].Document
		g := s.builder.Populate(graph.New(), doc, name)
		if s.stages[StageIdtypeRelations] {
			s.builder.DeriveIdtypeRelations(g, name)
		}
		if s.stages[StageOneToNRelations] {
			s.builder.DeriveOneToNRelations(g, doc, name)
		}
		if s.stages[StageDrilldownRelations] {
			s.builder.DeriveDrilldownRelations(g, doc, name)
		}
		perLandscape = append(perLandscape, s.builder.Deduplicate(g))
	}

	federated := graph.Compose(perLandscape...)
	if s.stages[StageIdtypeRelations] && len(perLandscape) > 1 {
		s.builder.LinkFederatedGraph(federated)
	}
	s.graph = s.builder.Deduplicate(federated)

	logConnectivity(federated, s.logger)
}

func (s *landscapeGraphService) Graph(opts graph.ViewOptions) (*graph.Graph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.graph == nil {
		return nil, apperrors.ErrGraphNotInitialized
	}
	return s.graph.View(opts), nil
}

func (s *landscapeGraphService) RelationsForNode(nodeID string, policy RelationPolicy) ([]graph.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.graph == nil {
		return nil, apperrors.ErrGraphNotInitialized
	}
	return RelationsForNode(s.graph, nodeID, policy), nil
}

func (s *landscapeGraphService) FlattenedLandscape() (models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.graph == nil {
		return nil, apperrors.ErrGraphNotInitialized
	}
	return Flatten(s.graph), nil
}

func (s *landscapeGraphService) MergedLandscape(logLevel string) *MergeResult {
	s.mu.RLock()
	sources := make([]models.LandscapeSource, 0, len(s.names))
	for _, name := range s.names {
		sources = append(sources, s.sources[name])
	}
	s.mu.RUnlock()

	// Merge deep-copies its inputs, so the lock is not needed while it runs.
	return s.merger.Merge(sources, logLevel)
}

func (s *landscapeGraphService) Summary() (*GraphSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.graph == nil {
		return nil, apperrors.ErrGraphNotInitialized
	}

	summary := &GraphSummary{
		Landscapes: append([]string{}, s.names...),
		Stages:     []Stage{},
		Nodes:      s.graph.NodeCount(),
		Edges:      s.graph.EdgeCount(),
		Idtypes:    len(s.graph.NodesOfType(graph.NodeTypeIdtype)),
		Entities:   len(s.graph.NodesOfType(graph.NodeTypeEntity)),
		EdgeTypes:  make(map[string]int),
		Islands:    []string{},
	}
	for _, st := range stageOrder {
		if s.stages[st] {
			summary.Stages = append(summary.Stages, st)
		}
	}
	for _, e := range s.graph.Edges() {
		summary.EdgeTypes[string(e.Type())]++
	}

	components, islands := s.graph.ConnectedComponents()
	summary.Components = len(components)
	if len(components) > 0 {
		summary.LargestComponent = components[0].Size
	}
	if islands != nil {
		summary.Islands = islands
	}
	return summary, nil
}

func (s *landscapeGraphService) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.names = nil
	s.sources = make(map[string]models.LandscapeSource)
	s.stages = make(map[Stage]bool)
	s.graph = nil
	s.logger.Info("Reset landscape graph")
}

// logConnectivity logs graph size at info level and each component at debug level.
func logConnectivity(g *graph.Graph, logger *zap.Logger) {
	components, islands := g.ConnectedComponents()

	logger.Info("Rebuilt landscape graph",
		zap.Int("nodes", g.NodeCount()),
		zap.Int("edges", g.EdgeCount()),
		zap.Int("components", len(components)),
		zap.Int("islands", len(islands)))

	if !logger.Core().Enabled(zapcore.DebugLevel) {
		return
	}
	for i, comp := range components {
		nodes := append([]string{}, comp.Nodes...)
		sort.Strings(nodes)
		logger.Debug(fmt.Sprintf("Component %d (%d nodes): %s", i+1, comp.Size, previewNames(nodes)))
	}
	if len(islands) > 0 {
		logger.Debug(fmt.Sprintf("Island nodes (%d): %s", len(islands), previewNames(islands)))
	}
}

// previewNames renders the first five names, then a count of the rest.
func previewNames(names []string) string {
	const limit = 5
	if len(names) <= limit {
		return fmt.Sprintf("%v", names)
	}
	return fmt.Sprintf("%v, ... (%d more)", names[:limit], len(names)-limit)
}
