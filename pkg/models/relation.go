package models

// RelationType is the value of a relation's "type" field.
type RelationType string

const (
	RelationIdtypeMapping                RelationType = "idtype-mapping"
	RelationOneToOne                     RelationType = "1-1"
	RelationOneToN                       RelationType = "1-n"
	RelationNToOne                       RelationType = "n-1"
	RelationOneToNSelection              RelationType = "1-n-selection"
	RelationMToN                         RelationType = "m-n"
	RelationMToNSelection                RelationType = "m-n-selection"
	RelationEntityMappingSameTable       RelationType = "entity-mapping-same-table"
	RelationEntityMappingReferenceTable  RelationType = "entity-mapping-reference-table"
	RelationEntityMappingReferenceTables RelationType = "entity-mapping-reference-tables"
	RelationOrdinoDrilldown              RelationType = "ordino-drilldown"
	RelationOrdinoDrilldownFragment      RelationType = "ordino-drilldown-fragment"
)

// Relation payload fields set by the engine.
const (
	FieldType          = "type"
	FieldSource        = "source"
	FieldTarget        = "target"
	FieldMapping       = "mapping"
	FieldWorkbench     = "workbench"
	FieldEntity        = "entity"
	FieldBidirectional = "bidirectional"
	FieldIsDerived     = "is_derived"
	FieldViaIdtype     = "via_idtype"
	FieldOrigins       = "origins"
)

// TypeOf returns the relation type of a raw relation record.
func TypeOf(rel Object) RelationType {
	return RelationType(rel.String(FieldType))
}

// Endpoint is one side of a relation.
type Endpoint struct {
	ID  string
	Key string
}

func parseEndpoint(o Object) Endpoint {
	return Endpoint{ID: o.String("id"), Key: o.String("key")}
}

// MappingFragment describes the bridging table of a mapped relation.
type MappingFragment struct {
	Entity    string
	SourceKey string
	TargetKey string
	Raw       Object
}

// ParseMapping reads the mapping list of a relation.
func ParseMapping(rel Object) []MappingFragment {
	raw := rel.Objects(FieldMapping)
	out := make([]MappingFragment, 0, len(raw))
	for _, m := range raw {
		out = append(out, MappingFragment{
			Entity:    m.String("entity"),
			SourceKey: m.String("sourceKey"),
			TargetKey: m.String("targetKey"),
			Raw:       m,
		})
	}
	return out
}

// ConfiguredRelation is a relation declared in a landscape document.
// The set of implementations is closed; see ParseRelation.
type ConfiguredRelation interface {
	Kind() RelationType
	Record() Object
	configured()
}

// OneToNRelation adds a forward edge and, when bidirectional, a derived n-1 reverse edge.
type OneToNRelation struct {
	Source        Endpoint
	Target        Endpoint
	Bidirectional bool
	raw           Object
}

// DrilldownRelation links two entities through one or more mapping entities.
type DrilldownRelation struct {
	Source        Endpoint
	Target        Endpoint
	Mapping       []MappingFragment
	Bidirectional bool
	raw           Object
}

// PassiveRelation is a recognised relation type that contributes no edges directly.
type PassiveRelation struct {
	Type RelationType
	raw  Object
}

// UnknownRelation has a type the engine does not recognise.
type UnknownRelation struct {
	Type RelationType
	raw  Object
}

func (r OneToNRelation) Kind() RelationType    { return RelationOneToN }
func (r DrilldownRelation) Kind() RelationType { return RelationOrdinoDrilldown }
func (r PassiveRelation) Kind() RelationType   { return r.Type }
func (r UnknownRelation) Kind() RelationType   { return r.Type }

func (r OneToNRelation) Record() Object    { return r.raw }
func (r DrilldownRelation) Record() Object { return r.raw }
func (r PassiveRelation) Record() Object   { return r.raw }
func (r UnknownRelation) Record() Object   { return r.raw }

func (OneToNRelation) configured()    {}
func (DrilldownRelation) configured() {}
func (PassiveRelation) configured()   {}
func (UnknownRelation) configured()   {}

// ParseRelation classifies a raw relation record.
func ParseRelation(rel Object) ConfiguredRelation {
	t := TypeOf(rel)
	switch t {
	case RelationOneToN:
		return OneToNRelation{
			Source:        parseEndpoint(rel.Object(FieldSource)),
			Target:        parseEndpoint(rel.Object(FieldTarget)),
			Bidirectional: rel.Bool(FieldBidirectional, false),
			raw:           rel,
		}
	case RelationOrdinoDrilldown:
		return DrilldownRelation{
			Source:        parseEndpoint(rel.Object(FieldSource)),
			Target:        parseEndpoint(rel.Object(FieldTarget)),
			Mapping:       ParseMapping(rel),
			Bidirectional: rel.Bool(FieldBidirectional, true),
			raw:           rel,
		}
	case RelationEntityMappingSameTable, RelationEntityMappingReferenceTable, RelationEntityMappingReferenceTables,
		RelationOneToOne, RelationNToOne, RelationOneToNSelection, RelationMToN, RelationMToNSelection:
		return PassiveRelation{Type: t, raw: rel}
	default:
		return UnknownRelation{Type: t, raw: rel}
	}
}

// ReferencedEntities lists the entity ids a relation depends on, in declaration order.
func ReferencedEntities(rel Object) []string {
	if TypeOf(rel) == RelationEntityMappingSameTable {
		return []string{rel.String(FieldEntity)}
	}
	ids := []string{
		rel.Object(FieldSource).String("id"),
		rel.Object(FieldTarget).String("id"),
	}
	for _, m := range ParseMapping(rel) {
		ids = append(ids, m.Entity)
	}
	return ids
}
