package graph

// ViewOptions select which parts of a graph a view hides.
type ViewOptions struct {
	HideIdtypeNodes   bool
	HideIsolatedNodes bool
	HideFragmentEdges bool
}

// View returns a filtered copy of the graph. Fragment edges and idtype nodes are
// removed first; isolated nodes are judged on what remains.
func (g *Graph) View(opts ViewOptions) *Graph {
	v := New()
	for _, n := range g.Nodes() {
		if opts.HideIdtypeNodes && n.Type == NodeTypeIdtype {
			continue
		}
		v.UpsertNode(n.clone())
	}
	for _, e := range g.Edges() {
		if opts.HideFragmentEdges && e.IsFragment() {
			continue
		}
		// Edges touching hidden nodes are dropped by UpsertEdge.
		v.UpsertEdge(e.clone())
	}
	if !opts.HideIsolatedNodes {
		return v
	}

	out := New()
	for _, n := range v.Nodes() {
		if v.Degree(n.ID) > 0 {
			out.UpsertNode(n)
		}
	}
	for _, e := range v.Edges() {
		out.UpsertEdge(e)
	}
	return out
}
