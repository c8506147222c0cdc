// Package graph is a directed multi-relational graph keyed by canonical relation hashes.
//
// Nodes are keyed by id. Edges are keyed by (source, target, hash), so two edges
// between the same ordered pair coexist only when their relations differ in
// canonical form. Insertion order is kept for nodes, edges and adjacency lists.
package graph

import (
	"github.com/ekaya-inc/landscape-engine/pkg/fingerprint"
	"github.com/ekaya-inc/landscape-engine/pkg/models"
)

// NodeType distinguishes idtype nodes from entity nodes.
type NodeType string

const (
	NodeTypeIdtype NodeType = "idtype"
	NodeTypeEntity NodeType = "entity"
)

// Node is an idtype or entity together with the landscapes that contributed it.
type Node struct {
	ID         string
	Type       NodeType
	Attributes models.Object
	Origins    Origins

	// Location of an entity node, used when flattening.
	DatabaseID string
	SchemaName string
}

// Data is the node payload as served to clients: attributes, type and sorted origins.
func (n *Node) Data() models.Object {
	data := make(models.Object, len(n.Attributes)+2)
	for k, v := range n.Attributes {
		data[k] = v
	}
	data[models.FieldType] = string(n.Type)
	data[models.FieldOrigins] = n.Origins.Sorted()
	return data
}

func (n *Node) clone() *Node {
	c := *n
	c.Attributes = n.Attributes.Clone()
	c.Origins = n.Origins.Clone()
	return &c
}

// EdgeKey identifies an edge.
type EdgeKey struct {
	Source string
	Target string
	Hash   string
}

// Edge is a typed relation between two nodes.
type Edge struct {
	Source   string
	Target   string
	Hash     string
	Relation models.Object
	Origins  Origins
}

// Key returns the edge identity.
func (e *Edge) Key() EdgeKey {
	return EdgeKey{Source: e.Source, Target: e.Target, Hash: e.Hash}
}

// Type returns the relation type of the edge.
func (e *Edge) Type() models.RelationType {
	return models.TypeOf(e.Relation)
}

// IsDerived reports whether the engine inferred the edge.
func (e *Edge) IsDerived() bool {
	return e.Relation.Bool(models.FieldIsDerived, false)
}

// IsFragment reports whether the edge is drilldown scaffolding.
func (e *Edge) IsFragment() bool {
	return e.Type() == models.RelationOrdinoDrilldownFragment
}

// Data is the edge payload as served to clients: relation fields plus sorted origins.
func (e *Edge) Data() models.Object {
	data := make(models.Object, len(e.Relation)+1)
	for k, v := range e.Relation {
		data[k] = v
	}
	data[models.FieldOrigins] = e.Origins.Sorted()
	return data
}

func (e *Edge) clone() *Edge {
	c := *e
	c.Relation = e.Relation.Clone()
	c.Origins = e.Origins.Clone()
	return &c
}

// Graph is not safe for concurrent mutation.
type Graph struct {
	nodes     map[string]*Node
	nodeOrder []string
	edges     map[EdgeKey]*Edge
	edgeOrder []EdgeKey
	out       map[string][]EdgeKey
	in        map[string][]EdgeKey
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*Node),
		edges: make(map[EdgeKey]*Edge),
		out:   make(map[string][]EdgeKey),
		in:    make(map[string][]EdgeKey),
	}
}

// UpsertNode inserts a node or merges it into the existing one with the same id.
// On merge the incoming attributes and location replace the stored ones and
// origins are unioned. A node's type never changes: an incoming node of another
// type is dropped and the existing node is returned as is, so callers detect the
// conflict by comparing types.
func (g *Graph) UpsertNode(n *Node) *Node {
	if existing, ok := g.nodes[n.ID]; ok {
		if existing.Type != n.Type {
			return existing
		}
		existing.Attributes = n.Attributes
		existing.DatabaseID = n.DatabaseID
		existing.SchemaName = n.SchemaName
		existing.Origins = existing.Origins.Union(n.Origins)
		return existing
	}
	if n.Origins == nil {
		n.Origins = NewOrigins()
	}
	g.nodes[n.ID] = n
	g.nodeOrder = append(g.nodeOrder, n.ID)
	return n
}

// AddRelation adds an edge for relation between source and target, keyed by the
// relation's canonical hash. It returns false when either endpoint is not a node.
// If the edge already exists only its origins are extended.
func (g *Graph) AddRelation(source, target string, relation models.Object, origins Origins) (*Edge, bool) {
	return g.UpsertEdge(&Edge{
		Source:   source,
		Target:   target,
		Hash:     fingerprint.RelationHash(relation),
		Relation: relation,
		Origins:  origins,
	})
}

// UpsertEdge inserts an edge or unions its origins into the existing edge with the
// same key. The first payload stored under a key is kept.
func (g *Graph) UpsertEdge(e *Edge) (*Edge, bool) {
	if !g.HasNode(e.Source) || !g.HasNode(e.Target) {
		return nil, false
	}
	key := e.Key()
	if existing, ok := g.edges[key]; ok {
		existing.Origins = existing.Origins.Union(e.Origins)
		return existing, true
	}
	if e.Origins == nil {
		e.Origins = NewOrigins()
	}
	g.edges[key] = e
	g.edgeOrder = append(g.edgeOrder, key)
	g.out[e.Source] = append(g.out[e.Source], key)
	g.in[e.Target] = append(g.in[e.Target], key)
	return e, true
}

// RemoveEdge deletes an edge. It reports whether the edge existed.
func (g *Graph) RemoveEdge(key EdgeKey) bool {
	if _, ok := g.edges[key]; !ok {
		return false
	}
	delete(g.edges, key)
	g.edgeOrder = removeKey(g.edgeOrder, key)
	g.out[key.Source] = removeKey(g.out[key.Source], key)
	g.in[key.Target] = removeKey(g.in[key.Target], key)
	return true
}

func removeKey(keys []EdgeKey, key EdgeKey) []EdgeKey {
	out := keys[:0]
	for _, k := range keys {
		if k != key {
			out = append(out, k)
		}
	}
	return out
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// HasNode reports whether id is a node.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// Edge returns the edge with the given key.
func (g *Graph) Edge(key EdgeKey) (*Edge, bool) {
	e, ok := g.edges[key]
	return e, ok
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.nodeOrder))
	for _, id := range g.nodeOrder {
		out = append(out, g.nodes[id])
	}
	return out
}

// NodesOfType returns the nodes of one type in insertion order.
func (g *Graph) NodesOfType(t NodeType) []*Node {
	var out []*Node
	for _, id := range g.nodeOrder {
		if n := g.nodes[id]; n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

// Edges returns all edges in insertion order.
func (g *Graph) Edges() []*Edge {
	return g.collect(g.edgeOrder)
}

// OutEdges returns the edges leaving id in insertion order.
func (g *Graph) OutEdges(id string) []*Edge {
	return g.collect(g.out[id])
}

// InEdges returns the edges entering id in insertion order.
func (g *Graph) InEdges(id string) []*Edge {
	return g.collect(g.in[id])
}

func (g *Graph) collect(keys []EdgeKey) []*Edge {
	out := make([]*Edge, 0, len(keys))
	for _, k := range keys {
		out = append(out, g.edges[k])
	}
	return out
}

// Degree is the number of edges incident to id.
func (g *Graph) Degree(id string) int {
	return len(g.out[id]) + len(g.in[id])
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Clone returns a deep copy of the graph.
func (g *Graph) Clone() *Graph {
	c := New()
	for _, n := range g.Nodes() {
		c.UpsertNode(n.clone())
	}
	for _, e := range g.Edges() {
		c.UpsertEdge(e.clone())
	}
	return c
}

// Compose unions graphs by node and edge identity into a new graph. Graphs are
// applied in order, so later node payloads win while origins accumulate.
func Compose(graphs ...*Graph) *Graph {
	out := New()
	for _, g := range graphs {
		if g == nil {
			continue
		}
		for _, n := range g.Nodes() {
			out.UpsertNode(n.clone())
		}
	}
	for _, g := range graphs {
		if g == nil {
			continue
		}
		for _, e := range g.Edges() {
			out.UpsertEdge(e.clone())
		}
	}
	return out
}
