package reference

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Author is a CSL-style personal name as emitted by reference parsers.
type Author struct {
	Family string `json:"family"` // Last/family name
	Given  string `json:"given"`  // First/given name(s)
}

// String renders the author as "Family, Given".
func (a Author) String() string {
	var parts []string
	if a.Family != "" {
		parts = append(parts, a.Family)
	}
	if a.Given != "" {
		parts = append(parts, a.Given)
	}
	return strings.Join(parts, ", ")
}

// maxNameDecodes bounds how many nested serializations FormatNames unwraps.
const maxNameDecodes = 8

// FormatNames normalizes a name field into "Family, Given; Family, Given".
//
// Plain strings are returned unchanged. Strings that look like a serialized
// list or object (JSON, or the single-quoted form some parsers emit) are
// decoded and rendered until the result no longer decodes, so
// FormatNames(FormatNames(s)) == FormatNames(s). Anything that fails to
// decode is returned as-is.
func FormatNames(s string) string {
	for range maxNameDecodes {
		out := decodeNames(s)
		if out == s {
			break
		}
		s = out
	}
	return s
}

func decodeNames(s string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return ""
	}
	if !strings.HasPrefix(trimmed, "[") && !strings.HasPrefix(trimmed, "{") {
		return s
	}

	var v any
	if err := json.Unmarshal([]byte(trimmed), &v); err != nil {
		// Single-quoted literal: ['a', {'family': 'X'}]
		alt := strings.ReplaceAll(trimmed, "'", `"`)
		if err := json.Unmarshal([]byte(alt), &v); err != nil {
			return s
		}
	}

	out := FormatNameList(v)
	if out == "" {
		return s
	}
	return out
}

// FormatNameList renders an already-decoded name value. Objects use their
// family/given members, other entries are stringified.
func FormatNameList(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return FormatNames(t)
	case map[string]any:
		return nameFromMap(t)
	case []any:
		names := make([]string, 0, len(t))
		for _, item := range t {
			var name string
			switch it := item.(type) {
			case map[string]any:
				name = nameFromMap(it)
			case string:
				name = FormatNames(it)
			case []any:
				name = FormatNameList(it)
			case nil:
				continue
			default:
				name = fmt.Sprint(it)
			}
			if name != "" {
				names = append(names, name)
			}
		}
		return strings.Join(names, "; ")
	default:
		return fmt.Sprint(t)
	}
}

func nameFromMap(m map[string]any) string {
	a := Author{
		Family: stringField(m, "family"),
		Given:  stringField(m, "given"),
	}
	if s := a.String(); s != "" {
		return s
	}
	// CSL literal names carry no family/given split
	return stringField(m, "literal")
}

func stringField(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return fmt.Sprint(v)
}
