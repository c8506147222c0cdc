package services

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/landscape-engine/pkg/apperrors"
	"github.com/ekaya-inc/landscape-engine/pkg/graph"
	"github.com/ekaya-inc/landscape-engine/pkg/models"
)

type orderedPair struct {
	source string
	target string
}

// Deduplicate keeps at most one 1-n edge and one 1-1-via-idtype edge per ordered
// pair of nodes. The first edge encountered survives and absorbs the origins of
// the edges removed in its favour.
func (b *GraphBuilder) Deduplicate(g *graph.Graph) *graph.Graph {
	oneToN := make(map[orderedPair]*graph.Edge)
	oneToOne := make(map[orderedPair]*graph.Edge)
	removed := 0

	for _, e := range g.Edges() {
		var seen map[orderedPair]*graph.Edge
		switch {
		case e.Type() == models.RelationOneToN:
			seen = oneToN
		case e.Type() == models.RelationOneToOne && e.Relation.Has(models.FieldViaIdtype):
			seen = oneToOne
		default:
			continue
		}

		pair := orderedPair{source: e.Source, target: e.Target}
		if survivor, ok := seen[pair]; ok {
			survivor.Origins = survivor.Origins.Union(e.Origins)
			g.RemoveEdge(e.Key())
			removed++
			continue
		}
		seen[pair] = e
	}

	if removed > 0 {
		b.logger.Debug("Removed duplicate edges", zap.Int("count", removed))
	}
	return g
}

// RelationPolicy selects which incident edges RelationsForNode returns.
type RelationPolicy string

const (
	RelationPolicyAll         RelationPolicy = "all"          // every incident edge
	RelationPolicyConfigured  RelationPolicy = "configured"   // only edges declared in a landscape
	RelationPolicyNoFragments RelationPolicy = "no_fragments" // everything but drilldown fragments
)

// ParseRelationPolicy validates a policy name. The empty string means RelationPolicyAll.
func ParseRelationPolicy(s string) (RelationPolicy, error) {
	switch RelationPolicy(s) {
	case "", RelationPolicyAll:
		return RelationPolicyAll, nil
	case RelationPolicyConfigured, RelationPolicyNoFragments:
		return RelationPolicy(s), nil
	default:
		return "", fmt.Errorf("unknown relation policy %q: %w", s, apperrors.ErrInvalidRequest)
	}
}

func (p RelationPolicy) admits(e *graph.Edge) bool {
	switch p {
	case RelationPolicyConfigured:
		return !e.IsDerived() && !e.IsFragment()
	case RelationPolicyNoFragments:
		return !e.IsFragment()
	default:
		return true
	}
}

// RelationsForNode returns the outgoing then incoming edges of nodeID admitted by
// policy. An unknown node yields an empty slice.
func RelationsForNode(g *graph.Graph, nodeID string, policy RelationPolicy) []graph.Link {
	out := []graph.Link{}
	if g == nil || !g.HasNode(nodeID) {
		return out
	}
	for _, e := range g.OutEdges(nodeID) {
		if policy.admits(e) {
			out = append(out, graph.LinkOf(e))
		}
	}
	for _, e := range g.InEdges(nodeID) {
		if e.Source == nodeID {
			continue
		}
		if policy.admits(e) {
			out = append(out, graph.LinkOf(e))
		}
	}
	return out
}

// Flatten projects a graph back into landscape document shape. Entities are
// regrouped by database and schema in first-seen order; relations are the
// non-derived edges without engine bookkeeping fields.
func Flatten(g *graph.Graph) models.Document {
	doc := models.Document{
		models.KeyIdTypes:   []any{},
		models.KeyDatabases: []any{},
		models.KeyRelations: []any{},
	}
	if g == nil {
		return doc
	}

	idtypes := []any{}
	for _, n := range g.NodesOfType(graph.NodeTypeIdtype) {
		idtypes = append(idtypes, n.Attributes.Clone().Without(models.FieldOrigins))
	}

	type schemaGroup struct {
		name     string
		entities []any
	}
	type databaseGroup struct {
		id      string
		schemas []*schemaGroup
		byName  map[string]*schemaGroup
	}
	var databases []*databaseGroup
	byID := make(map[string]*databaseGroup)

	for _, n := range g.NodesOfType(graph.NodeTypeEntity) {
		dbID, schemaName := n.DatabaseID, n.SchemaName
		if dbID == "" {
			dbID, schemaName, _ = models.SplitEntityID(n.ID)
		}
		db, ok := byID[dbID]
		if !ok {
			db = &databaseGroup{id: dbID, byName: make(map[string]*schemaGroup)}
			byID[dbID] = db
			databases = append(databases, db)
		}
		schema, ok := db.byName[schemaName]
		if !ok {
			schema = &schemaGroup{name: schemaName}
			db.byName[schemaName] = schema
			db.schemas = append(db.schemas, schema)
		}

		record := n.Attributes.Clone().Without(models.FieldOrigins)
		if record.String("id") == n.ID {
			delete(record, "id")
		}
		schema.entities = append(schema.entities, record)
	}

	dbs := make([]any, 0, len(databases))
	for _, db := range databases {
		schemas := make([]any, 0, len(db.schemas))
		for _, s := range db.schemas {
			schema := models.Object{models.KeyEntities: s.entities}
			if s.name != "" {
				schema["name"] = s.name
			}
			schemas = append(schemas, schema)
		}
		dbs = append(dbs, models.Object{"id": db.id, models.KeySchemas: schemas})
	}

	relations := []any{}
	for _, e := range g.Edges() {
		if e.IsDerived() {
			continue
		}
		relations = append(relations, e.Relation.Clone().Without(models.FieldIsDerived, models.FieldOrigins))
	}

	doc[models.KeyIdTypes] = idtypes
	doc[models.KeyDatabases] = dbs
	doc[models.KeyRelations] = relations
	return doc
}
