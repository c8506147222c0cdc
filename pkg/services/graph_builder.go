package services

import (
	"go.uber.org/zap"

	"github.com/ekaya-inc/landscape-engine/pkg/graph"
	"github.com/ekaya-inc/landscape-engine/pkg/models"
)

// GraphBuilder turns landscape documents into graphs. Every method mutates the
// graph it is given and returns it, so stages can be chained.
type GraphBuilder struct {
	logger *zap.Logger
}

// NewGraphBuilder creates a GraphBuilder.
func NewGraphBuilder(logger *zap.Logger) *GraphBuilder {
	return &GraphBuilder{logger: logger.Named("graph-builder")}
}

// Build runs every stage for one landscape and returns its graph.
func (b *GraphBuilder) Build(doc models.Document, landscapeName string) *graph.Graph {
	g := b.Populate(graph.New(), doc, landscapeName)
	b.DeriveIdtypeRelations(g, landscapeName)
	b.DeriveConfiguredRelations(g, doc, landscapeName)
	return b.Deduplicate(g)
}

// Populate upserts an idtype node for every idtype and an entity node for every
// entity in doc. No edges are created.
func (b *GraphBuilder) Populate(g *graph.Graph, doc models.Document, landscapeName string) *graph.Graph {
	if g == nil {
		g = graph.New()
	}

	idtypes := 0
	for _, it := range doc.IdTypes() {
		id := it.String("id")
		if id == "" {
			b.logger.Warn("Skipping idtype without id", zap.String("landscape", landscapeName))
			continue
		}
		b.upsertNode(g, &graph.Node{
			ID:         id,
			Type:       graph.NodeTypeIdtype,
			Attributes: it.Clone(),
			Origins:    graph.NewOrigins(landscapeName),
		}, landscapeName)
		idtypes++
	}

	entities := doc.Entities()
	for _, e := range entities {
		attrs := e.Record.Clone()
		if !attrs.Has("id") {
			attrs["id"] = e.ID
		}
		b.upsertNode(g, &graph.Node{
			ID:         e.ID,
			Type:       graph.NodeTypeEntity,
			Attributes: attrs,
			Origins:    graph.NewOrigins(landscapeName),
			DatabaseID: e.DatabaseID,
			SchemaName: e.SchemaName,
		}, landscapeName)
	}

	b.logger.Debug("Populated nodes",
		zap.String("landscape", landscapeName),
		zap.Int("idtypes", idtypes),
		zap.Int("entities", len(entities)))
	return g
}

// upsertNode keeps the first type seen for an id and warns about the dropped node.
func (b *GraphBuilder) upsertNode(g *graph.Graph, n *graph.Node, landscapeName string) {
	if stored := g.UpsertNode(n); stored.Type != n.Type {
		b.logger.Warn("Skipping node whose id is already used by another node type",
			zap.String("landscape", landscapeName),
			zap.String("id", n.ID),
			zap.String("type", string(n.Type)),
			zap.String("existing_type", string(stored.Type)))
	}
}

// originsFunc decides the origins of a derived edge from the origins of what produced it.
type originsFunc func(contributors ...graph.Origins) graph.Origins

func fixedOrigins(landscapeName string) originsFunc {
	return func(...graph.Origins) graph.Origins { return graph.NewOrigins(landscapeName) }
}

func unionOrigins(contributors ...graph.Origins) graph.Origins {
	out := graph.NewOrigins()
	for _, c := range contributors {
		out = out.Union(c)
	}
	return out
}

// DeriveIdtypeRelations adds an idtype-mapping edge from every entity to each idtype
// its columns reference, then links every pair of entities sharing an idtype with
// a 1-1 edge in both directions.
func (b *GraphBuilder) DeriveIdtypeRelations(g *graph.Graph, landscapeName string) *graph.Graph {
	b.deriveIdtypeRelations(g, fixedOrigins(landscapeName))
	return g
}

// LinkFederatedGraph runs idtype derivation over a composed graph so entities of
// different landscapes that share an idtype become linked. New edges carry the
// union of the origins of the nodes and edges they were derived from. Callers
// deduplicate afterwards.
func (b *GraphBuilder) LinkFederatedGraph(g *graph.Graph) *graph.Graph {
	b.deriveIdtypeRelations(g, unionOrigins)
	return g
}

func (b *GraphBuilder) deriveIdtypeRelations(g *graph.Graph, originsFor originsFunc) {
	mappings := 0
	for _, entity := range g.NodesOfType(graph.NodeTypeEntity) {
		for _, col := range entity.Attributes.Objects(models.KeyColumns) {
			idtypeID := col.String("idtype")
			if idtypeID == "" {
				continue
			}
			idtypeNode, ok := g.Node(idtypeID)
			if !ok || idtypeNode.Type != graph.NodeTypeIdtype {
				b.logger.Debug("Column references unknown idtype",
					zap.String("entity", entity.ID),
					zap.String("column", col.String("columnName")),
					zap.String("idtype", idtypeID))
				continue
			}
			relation := models.Object{
				models.FieldType:      string(models.RelationIdtypeMapping),
				"column":              col["columnName"],
				"entityId":            entity.ID,
				models.FieldSource:    models.Object{"id": entity.ID},
				models.FieldTarget:    models.Object{"id": idtypeID},
				models.FieldIsDerived: true,
			}
			if _, ok := g.AddRelation(entity.ID, idtypeID, relation, originsFor(entity.Origins, idtypeNode.Origins)); ok {
				mappings++
			}
		}
	}

	pairs := 0
	for _, idtypeNode := range g.NodesOfType(graph.NodeTypeIdtype) {
		connected, via := connectedEntities(g, idtypeNode.ID)
		for i := 0; i < len(connected); i++ {
			for j := i + 1; j < len(connected); j++ {
				a, c := connected[i], connected[j]
				origins := originsFor(via[a.ID], via[c.ID])
				b.addEdge(g, a.ID, c.ID, oneToOne(idtypeNode.ID, a, c), origins)
				b.addEdge(g, c.ID, a.ID, oneToOne(idtypeNode.ID, c, a), origins)
				pairs++
			}
		}
	}

	b.logger.Debug("Derived idtype relations",
		zap.Int("idtype_mappings", mappings),
		zap.Int("one_to_one_pairs", pairs))
}

// connectedEntities returns the distinct entities with an idtype-mapping edge into
// idtypeID, in edge order, and the union of their mapping edges' origins.
func connectedEntities(g *graph.Graph, idtypeID string) ([]*graph.Node, map[string]graph.Origins) {
	var nodes []*graph.Node
	via := make(map[string]graph.Origins)
	for _, e := range g.InEdges(idtypeID) {
		if e.Type() != models.RelationIdtypeMapping || e.Source == idtypeID {
			continue
		}
		if _, seen := via[e.Source]; !seen {
			n, ok := g.Node(e.Source)
			if !ok || n.Type != graph.NodeTypeEntity {
				continue
			}
			nodes = append(nodes, n)
			via[e.Source] = graph.NewOrigins()
		}
		via[e.Source] = via[e.Source].Union(e.Origins)
	}
	return nodes, via
}

func oneToOne(idtypeID string, source, target *graph.Node) models.Object {
	return models.Object{
		models.FieldType:      string(models.RelationOneToOne),
		models.FieldViaIdtype: idtypeID,
		models.FieldSource:    models.Object{"id": source.ID, "columns": columnsWithIdtype(source, idtypeID)},
		models.FieldTarget:    models.Object{"id": target.ID, "columns": columnsWithIdtype(target, idtypeID)},
		models.FieldIsDerived: true,
	}
}

func columnsWithIdtype(n *graph.Node, idtypeID string) []any {
	out := []any{}
	for _, col := range n.Attributes.Objects(models.KeyColumns) {
		if col.String("idtype") == idtypeID {
			out = append(out, col.Clone())
		}
	}
	return out
}

// DeriveConfiguredRelations applies every explicitly configured relation of doc.
func (b *GraphBuilder) DeriveConfiguredRelations(g *graph.Graph, doc models.Document, landscapeName string) *graph.Graph {
	b.applyRelations(g, doc, landscapeName, "")
	return g
}

// DeriveOneToNRelations applies only the configured 1-n relations of doc.
func (b *GraphBuilder) DeriveOneToNRelations(g *graph.Graph, doc models.Document, landscapeName string) *graph.Graph {
	b.applyRelations(g, doc, landscapeName, models.RelationOneToN)
	return g
}

// DeriveDrilldownRelations applies only the configured ordino-drilldown relations of doc.
func (b *GraphBuilder) DeriveDrilldownRelations(g *graph.Graph, doc models.Document, landscapeName string) *graph.Graph {
	b.applyRelations(g, doc, landscapeName, models.RelationOrdinoDrilldown)
	return g
}

func (b *GraphBuilder) applyRelations(g *graph.Graph, doc models.Document, landscapeName string, only models.RelationType) {
	origins := graph.NewOrigins(landscapeName)
	for _, raw := range doc.Relations() {
		rel := models.ParseRelation(raw)
		if only != "" && rel.Kind() != only {
			continue
		}
		switch r := rel.(type) {
		case models.OneToNRelation:
			b.applyOneToN(g, r, origins)
		case models.DrilldownRelation:
			b.applyDrilldown(g, r, origins)
		case models.PassiveRelation:
			b.logger.Debug("Relation type produces no edges", zap.String("type", string(r.Type)))
		case models.UnknownRelation:
			b.logger.Warn("Ignoring relation of unknown type",
				zap.String("landscape", landscapeName),
				zap.String("type", string(r.Type)))
		}
	}
}

func (b *GraphBuilder) applyOneToN(g *graph.Graph, r models.OneToNRelation, origins graph.Origins) {
	forward := r.Record().Clone()
	forward[models.FieldIsDerived] = false
	b.addEdge(g, r.Source.ID, r.Target.ID, forward, origins)

	if !r.Bidirectional {
		return
	}
	reverse := swapped(r.Record())
	reverse[models.FieldType] = string(models.RelationNToOne)
	b.addEdge(g, r.Target.ID, r.Source.ID, reverse, origins)
}

func (b *GraphBuilder) applyDrilldown(g *graph.Graph, r models.DrilldownRelation, origins graph.Origins) {
	forward := r.Record().Clone()
	forward[models.FieldIsDerived] = false
	b.addEdge(g, r.Source.ID, r.Target.ID, forward, origins)

	if r.Bidirectional {
		b.addEdge(g, r.Target.ID, r.Source.ID, swapped(r.Record()), origins)
	}

	// Each mapping entity is linked to both ends with fragment edges.
	for _, m := range r.Mapping {
		if m.Entity == "" || m.Entity == r.Source.ID || m.Entity == r.Target.ID {
			continue
		}
		for _, hop := range [][2]string{
			{r.Source.ID, m.Entity},
			{m.Entity, r.Source.ID},
			{m.Entity, r.Target.ID},
			{r.Target.ID, m.Entity},
		} {
			fragment := r.Record().Clone()
			fragment[models.FieldType] = string(models.RelationOrdinoDrilldownFragment)
			fragment[models.FieldMapping] = m.Raw.Clone()
			fragment[models.FieldIsDerived] = true
			b.addEdge(g, hop[0], hop[1], fragment, origins)
		}
	}
}

// swapped returns a derived copy of rel with source and target exchanged.
func swapped(rel models.Object) models.Object {
	out := rel.Clone()
	out[models.FieldSource], out[models.FieldTarget] = out[models.FieldTarget], out[models.FieldSource]
	out[models.FieldIsDerived] = true
	return out
}

func (b *GraphBuilder) addEdge(g *graph.Graph, source, target string, relation models.Object, origins graph.Origins) {
	if _, ok := g.AddRelation(source, target, relation, origins.Clone()); !ok {
		b.logger.Warn("Skipping relation with an endpoint that is not in the graph",
			zap.String("type", relation.String(models.FieldType)),
			zap.String("source", source),
			zap.String("target", target))
	}
}
