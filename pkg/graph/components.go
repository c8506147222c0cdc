package graph

import "sort"

// Component is a set of nodes connected when edge direction is ignored.
type Component struct {
	Nodes []string
	Size  int
}

// ConnectedComponents groups nodes into weakly connected components.
// Components with more than one node are returned largest first; single nodes
// are returned separately as islands, in insertion order.
func (g *Graph) ConnectedComponents() ([]Component, []string) {
	visited := make(map[string]bool, len(g.nodes))
	var components []Component
	var islands []string

	for _, id := range g.nodeOrder {
		if visited[id] {
			continue
		}
		members := g.dfs(id, visited)
		if len(members) == 1 {
			islands = append(islands, members[0])
			continue
		}
		components = append(components, Component{Nodes: members, Size: len(members)})
	}

	sort.SliceStable(components, func(i, j int) bool {
		return components[i].Size > components[j].Size
	})
	return components, islands
}

// dfs collects every node reachable from start over edges in either direction.
func (g *Graph) dfs(start string, visited map[string]bool) []string {
	var component []string
	stack := []string{start}

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if visited[current] {
			continue
		}
		visited[current] = true
		component = append(component, current)

		for _, k := range g.out[current] {
			if !visited[k.Target] {
				stack = append(stack, k.Target)
			}
		}
		for _, k := range g.in[current] {
			if !visited[k.Source] {
				stack = append(stack, k.Source)
			}
		}
	}
	return component
}
