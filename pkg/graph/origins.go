package graph

import "sort"

// Origins is the set of landscape names that contributed a node or edge.
type Origins map[string]struct{}

// NewOrigins returns a set holding names. Empty names are ignored.
func NewOrigins(names ...string) Origins {
	o := make(Origins, len(names))
	o.Add(names...)
	return o
}

// Add inserts names into the set.
func (o Origins) Add(names ...string) {
	for _, n := range names {
		if n != "" {
			o[n] = struct{}{}
		}
	}
}

// Has reports whether name is in the set.
func (o Origins) Has(name string) bool {
	_, ok := o[name]
	return ok
}

// Union returns a new set holding the members of both sets.
func (o Origins) Union(other Origins) Origins {
	out := make(Origins, len(o)+len(other))
	for n := range o {
		out[n] = struct{}{}
	}
	for n := range other {
		out[n] = struct{}{}
	}
	return out
}

// Clone copies the set.
func (o Origins) Clone() Origins {
	return o.Union(nil)
}

// Sorted returns the members in lexical order. It never returns nil.
func (o Origins) Sorted() []string {
	out := make([]string, 0, len(o))
	for n := range o {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
