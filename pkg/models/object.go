package models

import "github.com/ekaya-inc/landscape-engine/pkg/jsonutil"

// Object is a loosely-typed JSON object as found in landscape documents.
// Accessors never fail: missing or mistyped values degrade to zero values.
type Object map[string]any

// String returns the value at key as a string, or "" when absent.
func (o Object) String(key string) string {
	if o == nil {
		return ""
	}
	return jsonutil.FlexibleString(o[key])
}

// Has reports whether key is present with a non-nil value.
func (o Object) Has(key string) bool {
	if o == nil {
		return false
	}
	v, ok := o[key]
	return ok && v != nil
}

// Bool returns the boolean at key, or def when absent or not a boolean.
func (o Object) Bool(key string, def bool) bool {
	if o == nil {
		return def
	}
	v, ok := o[key].(bool)
	if !ok {
		return def
	}
	return v
}

// Object returns the nested object at key, or nil.
func (o Object) Object(key string) Object {
	if o == nil {
		return nil
	}
	return AsObject(o[key])
}

// Objects returns the list of objects at key. Non-object elements are skipped.
func (o Object) Objects(key string) []Object {
	if o == nil {
		return nil
	}
	return AsObjects(o[key])
}

// Clone returns a deep copy of the object.
func (o Object) Clone() Object {
	if o == nil {
		return nil
	}
	return deepCopyObject(o)
}

// Without returns a shallow copy of the object with the given keys removed.
func (o Object) Without(keys ...string) Object {
	out := make(Object, len(o))
	for k, v := range o {
		out[k] = v
	}
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

// AsObject converts a decoded JSON value to an Object, or nil if it is not an object.
func AsObject(v any) Object {
	switch val := v.(type) {
	case Object:
		return val
	case map[string]any:
		return Object(val)
	default:
		return nil
	}
}

// AsObjects converts a decoded JSON array to a list of Objects, skipping non-object elements.
func AsObjects(v any) []Object {
	switch val := v.(type) {
	case []Object:
		return val
	case []map[string]any:
		out := make([]Object, 0, len(val))
		for _, m := range val {
			out = append(out, Object(m))
		}
		return out
	case []any:
		out := make([]Object, 0, len(val))
		for _, item := range val {
			if obj := AsObject(item); obj != nil {
				out = append(out, obj)
			}
		}
		return out
	default:
		return nil
	}
}

// DeepCopy copies maps and slices recursively. Scalars are returned as is.
func DeepCopy(v any) any {
	switch val := v.(type) {
	case Object:
		return deepCopyObject(val)
	case map[string]any:
		return map[string]any(deepCopyObject(Object(val)))
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = DeepCopy(item)
		}
		return out
	case []Object:
		out := make([]Object, len(val))
		for i, item := range val {
			out[i] = deepCopyObject(item)
		}
		return out
	case []map[string]any:
		out := make([]map[string]any, len(val))
		for i, item := range val {
			out[i] = map[string]any(deepCopyObject(Object(item)))
		}
		return out
	case []string:
		out := make([]string, len(val))
		copy(out, val)
		return out
	default:
		return val
	}
}

func deepCopyObject(o Object) Object {
	out := make(Object, len(o))
	for k, v := range o {
		out[k] = DeepCopy(v)
	}
	return out
}
