package graph

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/landscape-engine/pkg/models"
)

func entity(id string, origins ...string) *Node {
	return &Node{ID: id, Type: NodeTypeEntity, Attributes: models.Object{"id": id}, Origins: NewOrigins(origins...)}
}

func idtype(id string, origins ...string) *Node {
	return &Node{ID: id, Type: NodeTypeIdtype, Attributes: models.Object{"id": id}, Origins: NewOrigins(origins...)}
}

func rel(typ, source, target string) models.Object {
	return models.Object{
		"type":   typ,
		"source": map[string]any{"id": source},
		"target": map[string]any{"id": target},
	}
}

func TestUpsertNode_UnionsOriginsAndReplacesAttributes(t *testing.T) {
	g := New()
	g.UpsertNode(&Node{ID: "db.a", Type: NodeTypeEntity, Attributes: models.Object{"label": "old"}, Origins: NewOrigins("L1")})
	g.UpsertNode(&Node{ID: "db.a", Type: NodeTypeEntity, Attributes: models.Object{"label": "new"}, Origins: NewOrigins("L2")})
	g.UpsertNode(&Node{ID: "db.a", Type: NodeTypeEntity, Attributes: models.Object{"label": "new"}, Origins: NewOrigins("L1")})

	require.Equal(t, 1, g.NodeCount())
	n, ok := g.Node("db.a")
	require.True(t, ok)
	assert.Equal(t, "new", n.Attributes.String("label"))
	assert.Equal(t, []string{"L1", "L2"}, n.Origins.Sorted())
}


func TestUpsertNode_KeepsFirstType(t *testing.T) {
	g := New()
	g.UpsertNode(&Node{ID: "Cellline", Type: NodeTypeIdtype, Attributes: models.Object{"name": "Cell line"}, Origins: NewOrigins("L1")})
	stored := g.UpsertNode(&Node{ID: "Cellline", Type: NodeTypeEntity, Attributes: models.Object{"name": "table"}, Origins: NewOrigins("L2")})

	assert.Equal(t, NodeTypeIdtype, stored.Type)
	n, ok := g.Node("Cellline")
	require.True(t, ok)
	assert.Same(t, stored, n)
	assert.Equal(t, "Cell line", n.Attributes.String("name"))
	assert.Equal(t, []string{"L1"}, n.Origins.Sorted())
}

func TestAddRelation_SameHashUnionsOrigins(t *testing.T) {
	g := New()
	g.UpsertNode(entity("a"))
	g.UpsertNode(entity("b"))

	first, ok := g.AddRelation("a", "b", rel("1-n", "a", "b"), NewOrigins("L1"))
	require.True(t, ok)
	decorated := rel("1-n", "a", "b")
	decorated["label"] = "ignored by the hash"
	second, ok := g.AddRelation("a", "b", decorated, NewOrigins("L2"))
	require.True(t, ok)

	assert.Same(t, first, second)
	assert.Equal(t, 1, g.EdgeCount())
	assert.Equal(t, []string{"L1", "L2"}, first.Origins.Sorted())
	assert.False(t, first.Relation.Has("label"), "first payload is kept")
}

func TestAddRelation_DistinctHashesAreParallelEdges(t *testing.T) {
	g := New()
	g.UpsertNode(entity("a"))
	g.UpsertNode(entity("b"))

	g.AddRelation("a", "b", rel("1-n", "a", "b"), NewOrigins("L1"))
	g.AddRelation("a", "b", rel("1-1", "a", "b"), NewOrigins("L1"))

	assert.Equal(t, 2, g.EdgeCount())
	assert.Len(t, g.OutEdges("a"), 2)
	assert.Len(t, g.InEdges("b"), 2)
}

func TestAddRelation_MissingEndpointIsSkipped(t *testing.T) {
	g := New()
	g.UpsertNode(entity("a"))

	_, ok := g.AddRelation("a", "missing", rel("1-n", "a", "missing"), NewOrigins("L1"))
	assert.False(t, ok)
	assert.Equal(t, 0, g.EdgeCount())
}

func TestRemoveEdge(t *testing.T) {
	g := New()
	g.UpsertNode(entity("a"))
	g.UpsertNode(entity("b"))
	e, _ := g.AddRelation("a", "b", rel("1-n", "a", "b"), nil)

	assert.True(t, g.RemoveEdge(e.Key()))
	assert.False(t, g.RemoveEdge(e.Key()))
	assert.Equal(t, 0, g.EdgeCount())
	assert.Empty(t, g.OutEdges("a"))
	assert.Empty(t, g.InEdges("b"))
}

func TestCompose(t *testing.T) {
	g1 := New()
	g1.UpsertNode(entity("a", "L1"))
	g1.UpsertNode(entity("b", "L1"))
	g1.AddRelation("a", "b", rel("1-n", "a", "b"), NewOrigins("L1"))

	g2 := New()
	g2.UpsertNode(entity("b", "L2"))
	g2.UpsertNode(entity("c", "L2"))
	g2.UpsertNode(entity("a", "L2"))
	g2.AddRelation("a", "b", rel("1-n", "a", "b"), NewOrigins("L2"))

	out := Compose(g1, g2)
	assert.Equal(t, 3, out.NodeCount())
	assert.Equal(t, 1, out.EdgeCount())
	b, _ := out.Node("b")
	assert.Equal(t, []string{"L1", "L2"}, b.Origins.Sorted())
	assert.Equal(t, []string{"L1", "L2"}, out.Edges()[0].Origins.Sorted())

	// inputs untouched
	assert.Equal(t, []string{"L1"}, g1.Edges()[0].Origins.Sorted())
}

func TestClone_IsIndependent(t *testing.T) {
	g := New()
	g.UpsertNode(entity("a", "L1"))
	c := g.Clone()
	n, _ := c.Node("a")
	n.Origins.Add("L2")
	n.Attributes["x"] = 1

	orig, _ := g.Node("a")
	assert.Equal(t, []string{"L1"}, orig.Origins.Sorted())
	assert.False(t, orig.Attributes.Has("x"))
}

func TestView(t *testing.T) {
	g := New()
	g.UpsertNode(entity("a"))
	g.UpsertNode(entity("b"))
	g.UpsertNode(entity("m"))
	g.UpsertNode(entity("lonely"))
	g.UpsertNode(idtype("gene"))
	g.AddRelation("a", "gene", models.Object{"type": "idtype-mapping", "column": "g", "entityId": "a"}, nil)
	g.AddRelation("a", "m", rel("ordino-drilldown-fragment", "a", "m"), nil)
	g.AddRelation("a", "b", rel("1-n", "a", "b"), nil)

	t.Run("no options", func(t *testing.T) {
		v := g.View(ViewOptions{})
		assert.Equal(t, g.NodeCount(), v.NodeCount())
		assert.Equal(t, g.EdgeCount(), v.EdgeCount())
	})

	t.Run("hide idtype nodes", func(t *testing.T) {
		v := g.View(ViewOptions{HideIdtypeNodes: true})
		assert.False(t, v.HasNode("gene"))
		assert.Equal(t, 2, v.EdgeCount())
	})

	t.Run("hide fragments then isolated", func(t *testing.T) {
		v := g.View(ViewOptions{HideIdtypeNodes: true, HideFragmentEdges: true, HideIsolatedNodes: true})
		ids := []string{}
		for _, n := range v.Nodes() {
			ids = append(ids, n.ID)
		}
		assert.Equal(t, []string{"a", "b"}, ids)
		assert.Equal(t, 1, v.EdgeCount())
	})

	assert.Equal(t, 5, g.NodeCount(), "views do not mutate the source graph")
}

func TestNodeLinkJSON(t *testing.T) {
	g := New()
	g.UpsertNode(entity("a", "L2", "L1"))
	g.UpsertNode(entity("b", "L1"))
	g.AddRelation("a", "b", rel("1-n", "a", "b"), NewOrigins("L1"))

	raw, err := json.Marshal(g)
	require.NoError(t, err)

	var decoded struct {
		Directed   bool `json:"directed"`
		Multigraph bool `json:"multigraph"`
		Nodes      []struct {
			ID   string         `json:"id"`
			Data map[string]any `json:"data"`
		} `json:"nodes"`
		Links []struct {
			Source string         `json:"source"`
			Target string         `json:"target"`
			Key    string         `json:"key"`
			Data   map[string]any `json:"data"`
		} `json:"links"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.True(t, decoded.Directed)
	assert.True(t, decoded.Multigraph)
	require.Len(t, decoded.Nodes, 2)
	assert.Equal(t, "entity", decoded.Nodes[0].Data["type"])
	assert.Equal(t, []any{"L1", "L2"}, decoded.Nodes[0].Data["origins"])
	require.Len(t, decoded.Links, 1)
	assert.Equal(t, "a", decoded.Links[0].Source)
	assert.Len(t, decoded.Links[0].Key, 64)
	assert.Equal(t, "1-n", decoded.Links[0].Data["type"])
}

func TestConnectedComponents(t *testing.T) {
	g := New()
	for _, id := range []string{"a", "b", "c", "d", "e", "island"} {
		g.UpsertNode(entity(id))
	}
	g.AddRelation("a", "b", rel("1-n", "a", "b"), nil)
	g.AddRelation("c", "b", rel("1-n", "c", "b"), nil)
	g.AddRelation("d", "e", rel("1-n", "d", "e"), nil)

	components, islands := g.ConnectedComponents()
	require.Len(t, components, 2)
	assert.Equal(t, 3, components[0].Size)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, components[0].Nodes)
	assert.Equal(t, 2, components[1].Size)
	assert.Equal(t, []string{"island"}, islands)
}
