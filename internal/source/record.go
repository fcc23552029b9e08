package source

import (
	"fmt"
	"strings"
)

// Record is one data item keyed by field name. Nested maps are reachable
// with dotted field paths.
type Record map[string]any

// Get returns the value at field. A dotted field such as "address.city"
// walks nested maps; a literal key containing dots takes precedence.
func (r Record) Get(field string) (any, bool) {
	if v, ok := r[field]; ok {
		return v, true
	}
	head, rest, found := strings.Cut(field, ".")
	if !found {
		return nil, false
	}
	v, ok := r[head]
	if !ok {
		return nil, false
	}
	switch nested := v.(type) {
	case Record:
		return nested.Get(rest)
	case map[string]any:
		return Record(nested).Get(rest)
	default:
		return nil, false
	}
}

// Text renders the value at field, or "" when absent.
func (r Record) Text(field string) string {
	v, ok := r.Get(field)
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// normalizeValue converts driver values to the plain types the rest of
// the harness compares and encodes.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalizeValue(val)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeValue(val)
		}
		return out
	default:
		return v
	}
}

// NewRecord copies m into a Record, normalising nested values.
func NewRecord(m map[string]any) Record {
	r := make(Record, len(m))
	for k, v := range m {
		r[k] = normalizeValue(v)
	}
	return r
}
