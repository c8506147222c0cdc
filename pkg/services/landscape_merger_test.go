package services

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ekaya-inc/landscape-engine/pkg/models"
)

func source(t *testing.T, name, typ, raw string) models.LandscapeSource {
	t.Helper()
	return models.LandscapeSource{Name: name, Type: typ, Document: loadDocument(t, raw)}
}

func columnNames(e models.EntityRecord) []string {
	var out []string
	for _, c := range e.Record.Objects(models.KeyColumns) {
		out = append(out, c.String("columnName"))
	}
	return out
}

func TestMerge_NoSources(t *testing.T) {
	m := NewLandscapeMerger(zap.NewNop())
	assert.Nil(t, m.Merge(nil, "debug"))
}

func TestMerge_UpdateReplacesEntity(t *testing.T) {
	oldA := source(t, "A", "file", `{"databases": [{"id": "db", "schemas": [{"name": "public", "entities": [
		{"tableName": "genes", "columns": [{"columnName": "old"}]}
	]}]}]}`)
	newA := source(t, "A", "file", `{"databases": [{"id": "db", "schemas": [{"name": "public", "entities": [
		{"tableName": "genes", "columns": [{"columnName": "new1"}, {"columnName": "new2"}]}
	]}]}]}`)

	result := NewLandscapeMerger(zap.NewNop()).Merge([]models.LandscapeSource{oldA, newA}, "info")
	require.NotNil(t, result)

	entities := result.Document.Entities()
	require.Len(t, entities, 1)
	assert.Equal(t, "db.public.genes", entities[0].ID)
	assert.Equal(t, []string{"new1", "new2"}, columnNames(entities[0]))
}

func TestMerge_AppendsNewContainers(t *testing.T) {
	a := source(t, "A", "file", `{
		"idtypes": [{"id": "Gene", "name": "old"}],
		"databases": [{"id": "db", "schemas": [{"name": "public", "entities": [{"tableName": "genes"}]}]}]
	}`)
	b := source(t, "B", "file", `{
		"idtypes": [{"id": "Gene", "name": "new"}, {"id": "Cell"}],
		"databases": [
			{"id": "db", "schemas": [
				{"name": "public", "entities": [{"tableName": "variants"}]},
				{"name": "extra", "entities": [{"tableName": "x"}]}
			]},
			{"id": "other", "schemas": [{"entities": [{"tableName": "y"}]}]}
		]
	}`)

	result := NewLandscapeMerger(zap.NewNop()).Merge([]models.LandscapeSource{a, b}, "")
	require.NotNil(t, result)

	ids := []string{}
	for _, e := range result.Document.Entities() {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"db.public.genes", "db.public.variants", "db.extra.x", "other.y"}, ids)

	idtypes := result.Document.IdTypes()
	require.Len(t, idtypes, 2)
	assert.Equal(t, "new", idtypes[0].String("name"), "matched idtype is replaced in place")
	assert.Equal(t, "Cell", idtypes[1].String("id"))
}

func TestMerge_NonFileShadowsFile(t *testing.T) {
	file := source(t, "A", "file", `{"idtypes": [{"id": "FromFile"}]}`)
	db := source(t, "A", "database", `{"idtypes": [{"id": "FromDB"}]}`)
	other := source(t, "B", "file", `{"idtypes": [{"id": "Other"}]}`)

	result := NewLandscapeMerger(zap.NewNop()).Merge([]models.LandscapeSource{db, file, other}, "")
	require.NotNil(t, result)

	ids := []string{}
	for _, it := range result.Document.IdTypes() {
		ids = append(ids, it.String("id"))
	}
	// file sources first, then non-file sources
	assert.Equal(t, []string{"Other", "FromDB"}, ids)
}

func TestMerge_ReferentialFilter(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	a := source(t, "A", "file", `{
		"databases": [{"id": "db", "schemas": [{"name": "public", "entities": [
			{"tableName": "x", "columns": [{"columnName": "c", "idtype": "Missing"}]},
			{"tableName": "y"}
		]}]}],
		"relations": [
			{"type": "1-n", "source": {"id": "db.public.x"}, "target": {"id": "db.public.missing"}},
			{"type": "1-n", "source": {"id": "db.public.x"}, "target": {"id": "db.public.y"}},
			{"type": "m-n", "source": {"id": "db.public.x"}, "target": {"id": "db.public.y"},
			 "mapping": [{"entity": "db.public.m1"}, {"entity": "db.public.m2"}]},
			{"type": "entity-mapping-same-table", "entity": "db.public.y"}
		],
		"namedIdSets": [
			{"providerType": "p", "databaseId": "db", "schemaName": "public", "entityId": "x", "ids": [1]},
			{"providerType": "p", "databaseId": "db", "schemaName": "public", "entityId": "gone"}
		]
	}`)

	result := NewLandscapeMerger(zap.New(core)).Merge([]models.LandscapeSource{a}, "warning")
	require.NotNil(t, result)

	relations := result.Document.Relations()
	require.Len(t, relations, 2)
	assert.Equal(t, "db.public.y", relations[0].Object("target").String("id"))
	assert.Equal(t, "entity-mapping-same-table", relations[1].String("type"))

	sets := result.Document.NamedIdSets()
	require.Len(t, sets, 1)
	assert.Equal(t, "x", sets[0].String("entityId"))

	omitted := logs.FilterMessage("Omitting relation").All()
	require.Len(t, omitted, 2)
	assert.Contains(t, omitted[0].ContextMap()["reason"], "target entity db.public.missing does not exist")
	assert.Contains(t, omitted[1].ContextMap()["reason"], "mapping entities db.public.m1, db.public.m2 do not exist")

	assert.Equal(t, 1, logs.FilterField(zap.String("idtype", "Missing")).Len())
	assert.Equal(t, 1, logs.FilterMessageSnippet("Omitting named id set").Len())
}

func TestMerge_RelationsMatchByHash(t *testing.T) {
	const entities = `"databases": [{"id": "db", "schemas": [{"name": "s", "entities": [{"tableName": "a"}, {"tableName": "b"}]}]}]`
	a := source(t, "A", "file", `{`+entities+`, "relations": [
		{"type": "1-n", "source": {"id": "db.s.a"}, "target": {"id": "db.s.b"}, "label": "first"}
	]}`)
	b := source(t, "B", "file", `{`+entities+`, "relations": [
		{"type": "1-n", "source": {"id": "db.s.a"}, "target": {"id": "db.s.b"}, "label": "second"},
		{"type": "n-1", "source": {"id": "db.s.b"}, "target": {"id": "db.s.a"}}
	]}`)

	result := NewLandscapeMerger(zap.NewNop()).Merge([]models.LandscapeSource{a, b}, "debug")
	require.NotNil(t, result)

	relations := result.Document.Relations()
	require.Len(t, relations, 2)
	assert.Equal(t, "second", relations[0].String("label"))
	assert.Equal(t, "n-1", relations[1].String("type"))
}

func TestMerge_Dashboards(t *testing.T) {
	a := source(t, "A", "file", `{"dashboards": [{"id": "d1", "title": "old"}, {"title": "no id"}]}`)
	b := source(t, "B", "file", `{"dashboards": [{"id": "d1", "title": "new"}, {"id": "d2"}]}`)

	result := NewLandscapeMerger(zap.NewNop()).Merge([]models.LandscapeSource{a, b}, "")
	require.NotNil(t, result)
	boards := result.Document.Dashboards()
	require.Len(t, boards, 2)
	assert.Equal(t, "new", boards[0].String("title"))

	noBoards := NewLandscapeMerger(zap.NewNop()).Merge([]models.LandscapeSource{source(t, "A", "file", `{}`)}, "")
	_, has := noBoards.Document[models.KeyDashboards]
	assert.False(t, has)
}

func TestMerge_DoesNotAliasInputs(t *testing.T) {
	a := source(t, "A", "file", `{"idtypes": [{"id": "Gene"}]}`)
	result := NewLandscapeMerger(zap.NewNop()).Merge([]models.LandscapeSource{a}, "")
	result.Document.IdTypes()[0]["id"] = "changed"
	assert.Equal(t, "Gene", a.Document.IdTypes()[0].String("id"))
}

func TestMerge_ResultJSONShape(t *testing.T) {
	result := NewLandscapeMerger(zap.NewNop()).Merge([]models.LandscapeSource{source(t, "A", "file", `{}`)}, "")
	raw, err := json.Marshal(result)
	require.NoError(t, err)
	for _, key := range []string{`"json_obj"`, `"databases":[]`, `"relations":[]`, `"idtypes":[]`, `"namedIdSets":[]`} {
		assert.True(t, strings.Contains(string(raw), key), "missing %s in %s", key, raw)
	}
}

func TestMerge_LogLevelIsPerRun(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	m := NewLandscapeMerger(zap.New(core))
	a := source(t, "A", "file", `{"idtypes": [{"id": "Gene"}]}`)

	m.Merge([]models.LandscapeSource{a}, "error")
	assert.Equal(t, 0, logs.Len())

	m.Merge([]models.LandscapeSource{a}, "debug")
	assert.Greater(t, logs.FilterLevelExact(zapcore.DebugLevel).Len(), 0)
}

func TestCountOf(t *testing.T) {
	tests := []struct {
		n    int
		noun string
		want string
	}{
		{0, "entity", "0 entities"},
		{1, "entity", "1 entity"},
		{2, "idtype", "2 idtypes"},
		{1, "named id set", "1 named id set"},
		{3, "named id set", "3 named id sets"},
		{2, "landscape", "2 landscapes"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, countOf(tt.n, tt.noun))
	}
}

func TestMerge_LogsSummary(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	a := source(t, "A", "file", `{
		"idtypes": [{"id": "Gene"}],
		"databases": [{"id": "db", "schemas": [{"name": "public", "entities": [{"tableName": "genes"}, {"tableName": "cells"}]}]}]
	}`)

	require.NotNil(t, NewLandscapeMerger(zap.New(core)).Merge([]models.LandscapeSource{a}, "info"))

	summary := logs.FilterMessage("Merged 1 landscape into 1 idtype, 2 entities, 0 relations and 0 named id sets")
	assert.Equal(t, 1, summary.Len())
}
