package jsonutil

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// FlexibleString converts a decoded JSON value to a string, handling hand-written documents
// that carry numbers or booleans where an identifier string is expected.
// Returns empty string for nil.
func FlexibleString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		if val == math.Trunc(val) && math.Abs(val) < 1<<53 {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'g', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	case json.Number:
		return val.String()
	}

	// Fallback: JSON representation of composite values
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(raw)
}

// Normalize round-trips a value through encoding/json so that values produced by other
// decoders (YAML) take the JSON shapes: map[string]any, []any, float64, string, bool.
func Normalize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode value: %w", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode value: %w", err)
	}
	return out, nil
}
