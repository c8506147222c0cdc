// Package models contains domain types for the landscape engine.
package models

import "strings"

// Source types of a landscape document.
const (
	SourceTypeFile     = "file"     // Loaded from the landscapes directory
	SourceTypeDatabase = "database" // Stored in the engine_landscapes table
	SourceTypeCustom   = "custom"   // Uploaded through the API
)

// Top-level keys of a landscape document.
const (
	KeyIdTypes     = "idtypes"
	KeyDatabases   = "databases"
	KeySchemas     = "schemas"
	KeyEntities    = "entities"
	KeyColumns     = "columns"
	KeyRelations   = "relations"
	KeyNamedIdSets = "namedIdSets"
	KeyDashboards  = "dashboards"
)

// LandscapeSource is a named landscape document together with where it came from.
// It is the wrapper the merge operation consumes and produces.
type LandscapeSource struct {
	Name     string   `json:"name" validate:"required"`
	Type     string   `json:"type"`
	Document Document `json:"json_obj"`
}

// IsFile reports whether the source was loaded from disk.
func (s LandscapeSource) IsFile() bool {
	return s.Type == SourceTypeFile
}

// Document is a raw landscape document. Every top-level key is optional.
type Document map[string]any

// NewDocument returns an empty document with the collection keys the merger fills.
func NewDocument() Document {
	return Document{
		KeyDatabases:   []any{},
		KeyRelations:   []any{},
		KeyIdTypes:     []any{},
		KeyNamedIdSets: []any{},
	}
}

// Object returns the document as an Object.
func (d Document) Object() Object { return Object(d) }

func (d Document) IdTypes() []Object     { return Object(d).Objects(KeyIdTypes) }
func (d Document) Databases() []Object   { return Object(d).Objects(KeyDatabases) }
func (d Document) Relations() []Object   { return Object(d).Objects(KeyRelations) }
func (d Document) NamedIdSets() []Object { return Object(d).Objects(KeyNamedIdSets) }
func (d Document) Dashboards() []Object  { return Object(d).Objects(KeyDashboards) }

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return Document(Object(d).Clone())
}

// EntityRecord is an entity found while walking databases and schemas.
type EntityRecord struct {
	ID         string
	DatabaseID string
	SchemaName string
	Record     Object
}

// Entities walks databases -> schemas -> entities in document order.
func (d Document) Entities() []EntityRecord {
	var out []EntityRecord
	for _, db := range d.Databases() {
		dbID := db.String("id")
		for _, schema := range db.Objects(KeySchemas) {
			schemaName := schema.String("name")
			for _, entity := range schema.Objects(KeyEntities) {
				out = append(out, EntityRecord{
					ID:         EntityID(dbID, schemaName, entity.String("tableName")),
					DatabaseID: dbID,
					SchemaName: schemaName,
					Record:     entity,
				})
			}
		}
	}
	return out
}

// SchemaKey identifies a schema within a database: <dbId>[.<schemaName>].
func SchemaKey(databaseID, schemaName string) string {
	if schemaName == "" {
		return databaseID
	}
	return databaseID + "." + schemaName
}

// EntityID is <dbId>[.<schemaName>].<tableName>; the schema segment is omitted for unnamed schemas.
func EntityID(databaseID, schemaName, tableName string) string {
	return SchemaKey(databaseID, schemaName) + "." + tableName
}

// SplitEntityID splits a dotted entity id back into its parts. Ids with two segments
// have no schema; ids with more than three segments keep the extra dots in the table name.
func SplitEntityID(id string) (databaseID, schemaName, tableName string) {
	parts := strings.SplitN(id, ".", 3)
	switch len(parts) {
	case 1:
		return "", "", parts[0]
	case 2:
		return parts[0], "", parts[1]
	default:
		return parts[0], parts[1], parts[2]
	}
}
