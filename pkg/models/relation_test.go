package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRelation_OneToN(t *testing.T) {
	rel := Object{
		"type":          "1-n",
		"source":        map[string]any{"id": "db.a", "key": "id"},
		"target":        map[string]any{"id": "db.b", "key": "a_id"},
		"bidirectional": true,
	}

	parsed, ok := ParseRelation(rel).(OneToNRelation)
	require.True(t, ok)
	assert.Equal(t, Endpoint{ID: "db.a", Key: "id"}, parsed.Source)
	assert.Equal(t, Endpoint{ID: "db.b", Key: "a_id"}, parsed.Target)
	assert.True(t, parsed.Bidirectional)
	assert.Equal(t, RelationOneToN, parsed.Kind())
}

func TestParseRelation_DrilldownDefaultsToBidirectional(t *testing.T) {
	rel := Object{
		"type":    "ordino-drilldown",
		"source":  map[string]any{"id": "db.a"},
		"target":  map[string]any{"id": "db.b"},
		"mapping": []any{map[string]any{"entity": "db.map", "sourceKey": "a", "targetKey": "b"}},
	}

	parsed, ok := ParseRelation(rel).(DrilldownRelation)
	require.True(t, ok)
	assert.True(t, parsed.Bidirectional)
	require.Len(t, parsed.Mapping, 1)
	assert.Equal(t, "db.map", parsed.Mapping[0].Entity)
	assert.Equal(t, "a", parsed.Mapping[0].SourceKey)
	assert.Equal(t, "b", parsed.Mapping[0].TargetKey)

	rel["bidirectional"] = false
	parsed = ParseRelation(rel).(DrilldownRelation)
	assert.False(t, parsed.Bidirectional)
}

func TestParseRelation_PassiveAndUnknown(t *testing.T) {
	for _, typ := range []string{"1-1", "n-1", "m-n", "m-n-selection", "1-n-selection", "entity-mapping-same-table", "entity-mapping-reference-tables"} {
		_, ok := ParseRelation(Object{"type": typ}).(PassiveRelation)
		assert.True(t, ok, "type %s should be passive", typ)
	}

	unknown, ok := ParseRelation(Object{"type": "something-else"}).(UnknownRelation)
	require.True(t, ok)
	assert.Equal(t, RelationType("something-else"), unknown.Kind())
}

func TestReferencedEntities(t *testing.T) {
	rel := Object{
		"type":   "m-n",
		"source": map[string]any{"id": "db.a"},
		"target": map[string]any{"id": "db.b"},
		"mapping": []any{
			map[string]any{"entity": "db.m1"},
			map[string]any{"entity": "db.m2"},
		},
	}
	assert.Equal(t, []string{"db.a", "db.b", "db.m1", "db.m2"}, ReferencedEntities(rel))

	same := Object{"type": "entity-mapping-same-table", "entity": "db.x"}
	assert.Equal(t, []string{"db.x"}, ReferencedEntities(same))
}
