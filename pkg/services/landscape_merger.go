package services

import (
	"fmt"
	"strings"

	"github.com/jinzhu/inflection"
	"go.uber.org/zap"

	"github.com/ekaya-inc/landscape-engine/pkg/fingerprint"
	"github.com/ekaya-inc/landscape-engine/pkg/logging"
	"github.com/ekaya-inc/landscape-engine/pkg/models"
)

// MergeResult wraps a merged landscape document for downstream consumers.
type MergeResult struct {
	Document models.Document `json:"json_obj"`
}

// LandscapeMerger combines several landscape documents into one flattened document.
type LandscapeMerger interface {
	// Merge folds sources into a single document. File sources shadowed by a
	// non-file source of the same name are skipped. logLevel sets the verbosity of
	// this merge only (debug, info, warning, error, critical; default warning).
	// Returns nil when sources is empty.
	Merge(sources []models.LandscapeSource, logLevel string) *MergeResult
}

type landscapeMerger struct {
	logger *zap.Logger
}

// NewLandscapeMerger creates a LandscapeMerger.
func NewLandscapeMerger(logger *zap.Logger) LandscapeMerger {
	return &landscapeMerger{logger: logger.Named("landscape-merger")}
}

func (m *landscapeMerger) Merge(sources []models.LandscapeSource, logLevel string) *MergeResult {
	log := logging.WithLevel(m.logger, logLevel)
	if len(sources) == 0 {
		log.Info("No landscapes to merge")
		return nil
	}

	run := &mergeRun{
		log:      log,
		updating: sameName(sources),
		idtypes:  newKeyedList(),
		boards:   newKeyedList(),
		rels:     newKeyedList(),
		sets:     newKeyedList(),
		dbIndex:  make(map[string]int),
	}
	if run.updating {
		log.Info("Updating landscape", zap.String("landscape", sources[0].Name))
	} else {
		log.Info("Merging landscapes", zap.Int("count", len(sources)))
	}

	ordered := precedenceOrder(sources)
	names := make([]string, 0, len(ordered))
	for _, s := range ordered {
		names = append(names, fmt.Sprintf("%s (from %s)", s.Name, s.Type))
	}
	log.Debug("Landscapes to merge", zap.String("landscapes", strings.Join(names, ", ")))

	for _, s := range ordered {
		run.mergeIdtypes(s)
	}
	log.Info("Merged idtypes", zap.Int("idtypes", len(run.idtypes.items)))

	for _, s := range ordered {
		run.mergeDashboards(s)
	}
	log.Info("Merged dashboards", zap.Int("dashboards", len(run.boards.items)))

	for _, s := range ordered {
		run.mergeDatabases(s)
	}
	entityIDs := run.entityIDs()
	log.Info("Merged entities", zap.Int("entities", len(entityIDs)))

	for _, s := range ordered {
		run.mergeRelations(s, entityIDs)
		run.mergeNamedIdSets(s, entityIDs)
	}
	log.Info("Merged relations and named id sets",
		zap.Int("relations", len(run.rels.items)),
		zap.Int("named_id_sets", len(run.sets.items)))

	log.Info(fmt.Sprintf("Merged %s into %s, %s, %s and %s",
		countOf(len(ordered), "landscape"),
		countOf(len(run.idtypes.items), "idtype"),
		countOf(len(entityIDs), "entity"),
		countOf(len(run.rels.items), "relation"),
		countOf(len(run.sets.items), "named id set")))

	return &MergeResult{Document: run.document()}
}

func sameName(sources []models.LandscapeSource) bool {
	for _, s := range sources[1:] {
		if s.Name != sources[0].Name {
			return false
		}
	}
	return true
}

// precedenceOrder returns file sources not shadowed by a non-file source of the
// same name, followed by all non-file sources, each group in input order. Input
// documents are deep-copied so merging never aliases caller data.
func precedenceOrder(sources []models.LandscapeSource) []models.LandscapeSource {
	shadowed := make(map[string]bool)
	for _, s := range sources {
		if !s.IsFile() {
			shadowed[s.Name] = true
		}
	}
	var files, others []models.LandscapeSource
	for _, s := range sources {
		s.Document = s.Document.Clone()
		switch {
		case !s.IsFile():
			others = append(others, s)
		case !shadowed[s.Name]:
			files = append(files, s)
		}
	}
	return append(files, others...)
}

// keyedList is an ordered list of records with a key index to the first record per key.
type keyedList struct {
	items []models.Object
	index map[string]int
}

func newKeyedList() *keyedList {
	return &keyedList{index: make(map[string]int)}
}

// upsert replaces the record stored under key or appends it. It reports whether a record was replaced.
func (l *keyedList) upsert(key string, item models.Object) bool {
	if i, ok := l.index[key]; ok {
		l.items[i] = item
		return true
	}
	l.index[key] = len(l.items)
	l.items = append(l.items, item)
	return false
}

func (l *keyedList) values() []any {
	out := make([]any, 0, len(l.items))
	for _, item := range l.items {
		out = append(out, item)
	}
	return out
}

type mergedSchema struct {
	record   models.Object
	entities *keyedList
}

type mergedDatabase struct {
	id      string
	record  models.Object
	schemas []*mergedSchema
	index   map[string]int
}

type mergeRun struct {
	log       *zap.Logger
	updating  bool
	idtypes   *keyedList
	boards    *keyedList
	hasBoards bool
	dbs       []*mergedDatabase
	dbIndex   map[string]int
	rels      *keyedList
	sets      *keyedList
}

func sourceFields(s models.LandscapeSource) []zap.Field {
	return []zap.Field{zap.String("landscape", s.Name), zap.String("source_type", s.Type)}
}

// action names what happened to a record for debug logging.
func (r *mergeRun) action(replaced bool) string {
	switch {
	case replaced && r.updating:
		return "Updating"
	case replaced:
		return "Replacing"
	default:
		return "Adding new"
	}
}

func (r *mergeRun) mergeIdtypes(s models.LandscapeSource) {
	idtypes := s.Document.IdTypes()
	if len(idtypes) == 0 {
		r.log.Info("No idtypes to merge", sourceFields(s)...)
		return
	}
	for _, it := range idtypes {
		replaced := r.idtypes.upsert(it.String("id"), it)
		r.log.Debug(r.action(replaced)+" idtype", append(sourceFields(s), zap.String("idtype", it.String("id")))...)
	}
}

func (r *mergeRun) mergeDashboards(s models.LandscapeSource) {
	boards := s.Document.Dashboards()
	if len(boards) == 0 {
		r.log.Info("No dashboards to merge", sourceFields(s)...)
		return
	}
	r.hasBoards = true
	for _, d := range boards {
		id := d.String("id")
		if id == "" {
			r.log.Warn("Skipping dashboard with missing id", sourceFields(s)...)
			continue
		}
		replaced := r.boards.upsert(id, d)
		r.log.Debug(r.action(replaced)+" dashboard", append(sourceFields(s), zap.String("dashboard", id))...)
	}
}

func (r *mergeRun) mergeDatabases(s models.LandscapeSource) {
	databases := s.Document.Databases()
	if len(databases) == 0 {
		r.log.Info("No databases to merge", sourceFields(s)...)
		return
	}
	for _, db := range databases {
		id := db.String("id")
		i, ok := r.dbIndex[id]
		if !ok {
			r.log.Debug(r.action(false)+" database", append(sourceFields(s), zap.String("database", id))...)
			r.dbIndex[id] = len(r.dbs)
			r.dbs = append(r.dbs, newMergedDatabase(db))
			continue
		}
		r.log.Debug("Database already present, merging schemas", append(sourceFields(s), zap.String("database", id))...)
		r.mergeSchemas(s, r.dbs[i], db)
	}
}

func newMergedDatabase(db models.Object) *mergedDatabase {
	out := &mergedDatabase{
		id:     db.String("id"),
		record: db.Without(models.KeySchemas),
		index:  make(map[string]int),
	}
	for _, schema := range db.Objects(models.KeySchemas) {
		out.addSchema(schema)
	}
	return out
}

func (d *mergedDatabase) addSchema(schema models.Object) {
	key := models.SchemaKey(d.id, schema.String("name"))
	if _, ok := d.index[key]; !ok {
		d.index[key] = len(d.schemas)
	}
	entities := newKeyedList()
	for _, e := range schema.Objects(models.KeyEntities) {
		id := models.EntityID(d.id, schema.String("name"), e.String("tableName"))
		if _, dup := entities.index[id]; dup {
			// Keep duplicates as declared; lookups resolve to the first.
			entities.items = append(entities.items, e)
			continue
		}
		entities.upsert(id, e)
	}
	d.schemas = append(d.schemas, &mergedSchema{record: schema.Without(models.KeyEntities), entities: entities})
}

func (r *mergeRun) mergeSchemas(s models.LandscapeSource, base *mergedDatabase, db models.Object) {
	schemas := db.Objects(models.KeySchemas)
	if len(schemas) == 0 {
		r.log.Info("No schemas to merge", append(sourceFields(s), zap.String("database", base.id))...)
		return
	}
	for _, schema := range schemas {
		name := schema.String("name")
		i, ok := base.index[models.SchemaKey(base.id, name)]
		if !ok {
			r.log.Debug(r.action(false)+" schema", append(sourceFields(s), zap.String("database", base.id), zap.String("schema", name))...)
			base.addSchema(schema)
			continue
		}
		target := base.schemas[i]
		entities := schema.Objects(models.KeyEntities)
		if len(entities) == 0 {
			r.log.Info("No entities to merge", append(sourceFields(s), zap.String("schema", models.SchemaKey(base.id, name)))...)
			continue
		}
		for _, e := range entities {
			id := models.EntityID(base.id, name, e.String("tableName"))
			replaced := target.entities.upsert(id, e)
			r.log.Debug(r.action(replaced)+" entity", append(sourceFields(s), zap.String("entity", id))...)
		}
	}
}

// entityIDs collects every entity id of the merged databases and reports column
// idtypes that no merged idtype declares.
func (r *mergeRun) entityIDs() map[string]bool {
	ids := make(map[string]bool)
	for _, db := range r.dbs {
		for _, schema := range db.schemas {
			name := schema.record.String("name")
			for _, e := range schema.entities.items {
				id := models.EntityID(db.id, name, e.String("tableName"))
				for _, col := range e.Objects(models.KeyColumns) {
					idtype := col.String("idtype")
					if idtype == "" {
						continue
					}
					if _, ok := r.idtypes.index[idtype]; !ok {
						r.log.Warn("Column references an idtype that does not exist in the merged landscape",
							zap.String("idtype", idtype),
							zap.String("column", columnLabel(col)),
							zap.String("entity", id))
					}
				}
				ids[id] = true
			}
		}
	}
	return ids
}

func columnLabel(col models.Object) string {
	for _, k := range []string{"label", "id", "columnName"} {
		if v := col.String(k); v != "" {
			return v
		}
	}
	return ""
}

func (r *mergeRun) mergeRelations(s models.LandscapeSource, entityIDs map[string]bool) {
	relations := s.Document.Relations()
	if len(relations) == 0 {
		r.log.Info("No relations to merge", sourceFields(s)...)
		return
	}
	for _, rel := range relations {
		hash, canonical := fingerprint.Relation(rel)
		if reason := missingReferences(rel, entityIDs); reason != "" {
			r.log.Warn("Omitting relation",
				append(sourceFields(s), zap.String("relation", canonical), zap.String("reason", reason))...)
			continue
		}
		replaced := r.rels.upsert(hash, rel)
		r.log.Debug(r.action(replaced)+" relation", append(sourceFields(s), zap.String("relation", canonical))...)
	}
}

// missingReferences explains which referenced entities are absent, or returns "".
func missingReferences(rel models.Object, entityIDs map[string]bool) string {
	if models.TypeOf(rel) == models.RelationEntityMappingSameTable {
		if id := rel.String(models.FieldEntity); !entityIDs[id] {
			return fmt.Sprintf("entity %s does not exist in the merged landscape", id)
		}
		return ""
	}

	var reasons []string
	if id := rel.Object(models.FieldSource).String("id"); !entityIDs[id] {
		reasons = append(reasons, fmt.Sprintf("source entity %s does not exist in the merged landscape", id))
	}
	if id := rel.Object(models.FieldTarget).String("id"); !entityIDs[id] {
		reasons = append(reasons, fmt.Sprintf("target entity %s does not exist in the merged landscape", id))
	}
	var missing []string
	for _, m := range models.ParseMapping(rel) {
		if !entityIDs[m.Entity] {
			missing = append(missing, m.Entity)
		}
	}
	if len(missing) > 0 {
		verb := "does"
		if len(missing) != 1 {
			verb = "do"
		}
		reasons = append(reasons, fmt.Sprintf("mapping %s %s %s not exist in the merged landscape",
			pluralize(len(missing), "entity"), strings.Join(missing, ", "), verb))
	}
	return strings.Join(reasons, " and ")
}

// pluralize returns noun in its plural form unless n is 1.
func pluralize(n int, noun string) string {
	if n == 1 {
		return noun
	}
	return inflection.Plural(noun)
}

// countOf renders "1 entity", "3 entities".
func countOf(n int, noun string) string {
	return fmt.Sprintf("%d %s", n, pluralize(n, noun))
}

func (r *mergeRun) mergeNamedIdSets(s models.LandscapeSource, entityIDs map[string]bool) {
	sets := s.Document.NamedIdSets()
	if len(sets) == 0 {
		r.log.Info("No named id sets to merge", sourceFields(s)...)
		return
	}
	for _, set := range sets {
		key := models.NamedIdSetKey(set)
		if !entityIDs[models.NamedIdSetEntityRef(set)] {
			r.log.Warn("Omitting named id set because its entity does not exist in the merged landscape",
				append(sourceFields(s), zap.String("named_id_set", key), zap.String("entity", set.String("entityId")))...)
			continue
		}
		replaced := r.sets.upsert(key, set)
		r.log.Debug(r.action(replaced)+" named id set", append(sourceFields(s), zap.String("named_id_set", key))...)
	}
}

func (r *mergeRun) document() models.Document {
	databases := make([]any, 0, len(r.dbs))
	for _, db := range r.dbs {
		schemas := make([]any, 0, len(db.schemas))
		for _, schema := range db.schemas {
			rendered := schema.record.Clone()
			rendered[models.KeyEntities] = schema.entities.values()
			schemas = append(schemas, rendered)
		}
		rendered := db.record.Clone()
		rendered[models.KeySchemas] = schemas
		databases = append(databases, rendered)
	}

	doc := models.NewDocument()
	doc[models.KeyIdTypes] = r.idtypes.values()
	doc[models.KeyDatabases] = databases
	doc[models.KeyRelations] = r.rels.values()
	doc[models.KeyNamedIdSets] = r.sets.values()
	if r.hasBoards {
		doc[models.KeyDashboards] = r.boards.values()
	}
	return doc
}
