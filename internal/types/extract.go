package types

import (
	"fmt"
	"strconv"
)

// =============================================================================
// UNTYPED FIELD EXTRACTION
// =============================================================================
//
// Request bodies arrive as map[string]any after JSON decoding, so field values
// can be any of:
//   - string
//   - float64         (every JSON number)
//   - bool
//   - nil             (JSON null)
//   - []any           (JSON array)
//   - map[string]any  (JSON object)
//
// These helpers read such values without bare type assertions.

// Field returns the value stored under key. A JSON null counts as absent.
func Field(raw map[string]any, key string) (any, bool) {
	if raw == nil {
		return nil, false
	}
	v, ok := raw[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// ExtractString renders a decoded JSON value as text. Strings are returned
// unchanged; other scalars use their JSON spelling.
func ExtractString(arg any) string {
	switch v := arg.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

// ExtractText returns arg as a string when it is one.
func ExtractText(arg any) (string, bool) {
	s, ok := arg.(string)
	return s, ok
}

// ExtractStringSlice returns arg as an ordered list of strings.
// Returns (nil, false) if arg is not a list or any element is not a string.
// An empty list yields an empty, non-nil slice.
func ExtractStringSlice(arg any) ([]string, bool) {
	switch v := arg.(type) {
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}
