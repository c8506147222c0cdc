// Package fingerprint computes content-addressed identities for relation records.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"

	"github.com/ekaya-inc/landscape-engine/pkg/models"
)

// volatileFields never contribute to a relation's identity.
var volatileFields = map[string]bool{
	models.FieldOrigins:   true,
	models.FieldIsDerived: true,
}

// Relation returns the canonical hash of a relation together with the canonical
// string it was computed from. Relations with equal minimal forms share a hash.
func Relation(rel map[string]any) (hash string, canonical string) {
	canonical = canonicalize(Minimal(rel), true)
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:]), canonical
}

// RelationHash is Relation without the canonical string.
func RelationHash(rel map[string]any) string {
	hash, _ := Relation(rel)
	return hash
}

// Minimal reduces a relation to the fields that define it for its type.
// Unknown types are returned unmodified.
func Minimal(rel map[string]any) map[string]any {
	o := models.Object(rel)
	switch models.TypeOf(o) {
	case models.RelationOneToOne, models.RelationOneToN, models.RelationOneToNSelection, models.RelationNToOne:
		return endpoints(o)
	case models.RelationMToN, models.RelationMToNSelection, models.RelationEntityMappingReferenceTable:
		return withMapping(endpoints(o), o)
	case models.RelationOrdinoDrilldown:
		return withWorkbench(withMapping(endpoints(o), o), o)
	case models.RelationEntityMappingSameTable:
		return map[string]any{
			models.FieldType:   o[models.FieldType],
			models.FieldEntity: o[models.FieldEntity],
		}
	default:
		return rel
	}
}

func endpoints(o models.Object) map[string]any {
	side := func(key string) map[string]any {
		s := o.Object(key)
		return map[string]any{"id": s["id"], "key": s["key"]}
	}
	return map[string]any{
		models.FieldType:   o[models.FieldType],
		models.FieldSource: side(models.FieldSource),
		models.FieldTarget: side(models.FieldTarget),
	}
}

func withMapping(min map[string]any, o models.Object) map[string]any {
	mapping := o.Objects(models.FieldMapping)
	if len(mapping) == 0 {
		return min
	}
	reduced := make([]any, 0, len(mapping))
	for _, m := range mapping {
		columns := []any{}
		for _, c := range m.Objects(models.KeyColumns) {
			columns = append(columns, c["columnName"])
		}
		reduced = append(reduced, map[string]any{
			"entity":    m["entity"],
			"sourceKey": m["sourceKey"],
			"targetKey": m["targetKey"],
			"columns":   columns,
		})
	}
	min[models.FieldMapping] = reduced
	return min
}

func withWorkbench(min map[string]any, o models.Object) map[string]any {
	wb := o.Object(models.FieldWorkbench)
	if len(wb) == 0 {
		return min
	}
	views := []any{}
	for _, v := range wb.Objects("views") {
		views = append(views, map[string]any{"type": v.String("type")})
	}
	min[models.FieldWorkbench] = map[string]any{"views": views}
	return min
}

// canonicalize renders data as compact JSON with sorted keys. Volatile fields
// are dropped from the top-level object only.
func canonicalize(data any, topLevel bool) string {
	switch v := data.(type) {
	case map[string]any:
		return canonicalizeMap(v, topLevel)
	case models.Object:
		return canonicalizeMap(v, topLevel)
	case []any:
		return canonicalizeArray(v)
	case []models.Object:
		arr := make([]any, len(v))
		for i := range v {
			arr[i] = v[i]
		}
		return canonicalizeArray(arr)
	case []map[string]any:
		arr := make([]any, len(v))
		for i := range v {
			arr[i] = v[i]
		}
		return canonicalizeArray(arr)
	default:
		b, _ := json.Marshal(v)
		return string(b)
	}
}

func canonicalizeMap(m map[string]any, topLevel bool) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		if topLevel && volatileFields[k] {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(',')
		}
		keyJSON, _ := json.Marshal(k)
		sb.Write(keyJSON)
		sb.WriteByte(':')
		sb.WriteString(canonicalize(m[k], false))
	}
	sb.WriteByte('}')
	return sb.String()
}

func canonicalizeArray(arr []any) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, v := range arr {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(canonicalize(v, false))
	}
	sb.WriteByte(']')
	return sb.String()
}
