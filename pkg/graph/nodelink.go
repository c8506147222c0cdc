package graph

import (
	"encoding/json"

	"github.com/ekaya-inc/landscape-engine/pkg/models"
)

// NodeLink is the node-link JSON form of a graph consumed by the visualisation.
type NodeLink struct {
	Directed   bool           `json:"directed"`
	Multigraph bool           `json:"multigraph"`
	Graph      map[string]any `json:"graph"`
	Nodes      []NodeEntry    `json:"nodes"`
	Links      []Link         `json:"links"`
}

// NodeEntry is one node in node-link form.
type NodeEntry struct {
	ID   string        `json:"id"`
	Data models.Object `json:"data"`
}

// Link is one edge in node-link form. Key is the canonical relation hash.
type Link struct {
	Source string        `json:"source"`
	Target string        `json:"target"`
	Key    string        `json:"key"`
	Data   models.Object `json:"data"`
}

// LinkOf converts an edge to its node-link form.
func LinkOf(e *Edge) Link {
	return Link{Source: e.Source, Target: e.Target, Key: e.Hash, Data: e.Data()}
}

// NodeLink converts the graph to node-link form.
func (g *Graph) NodeLink() NodeLink {
	nl := NodeLink{
		Directed:   true,
		Multigraph: true,
		Graph:      map[string]any{},
		Nodes:      make([]NodeEntry, 0, g.NodeCount()),
		Links:      make([]Link, 0, g.EdgeCount()),
	}
	for _, n := range g.Nodes() {
		nl.Nodes = append(nl.Nodes, NodeEntry{ID: n.ID, Data: n.Data()})
	}
	for _, e := range g.Edges() {
		nl.Links = append(nl.Links, LinkOf(e))
	}
	return nl
}

// MarshalJSON encodes the graph in node-link form.
func (g *Graph) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.NodeLink())
}
