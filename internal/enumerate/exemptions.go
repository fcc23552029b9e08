package enumerate

import (
	"math"
	"reflect"
)

// Exemptions is the set of values a template declares as acceptable
// outliers. A nil Exemptions means the template declared none, and the
// runner does not ask the enumerator at all.
//
// Integral numbers are stored as int64 and byte slices as strings, so a
// key read from YAML (int) matches the same key read from SQL (int64).
type Exemptions map[any]struct{}

// NewExemptions builds a declared (non-nil) set. Values that cannot be
// map keys are ignored.
func NewExemptions(values ...any) Exemptions {
	ex := make(Exemptions, len(values))
	for _, v := range values {
		k := normalize(v)
		if hashable(k) {
			ex[k] = struct{}{}
		}
	}
	return ex
}

// Contains reports whether v, after normalisation, is exempt.
func (ex Exemptions) Contains(v any) bool {
	if len(ex) == 0 {
		return false
	}
	k := normalize(v)
	if !hashable(k) {
		return false
	}
	_, ok := ex[k]
	return ok
}

// Len returns the number of exempt values.
func (ex Exemptions) Len() int {
	return len(ex)
}

func hashable(v any) bool {
	if v == nil {
		return true
	}
	return reflect.ValueOf(v).Comparable()
}

func normalize(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case uint:
		return normalizeUint(uint64(n))
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case uint64:
		return normalizeUint(n)
	case float32:
		return normalizeFloat(float64(n))
	case float64:
		return normalizeFloat(n)
	case []byte:
		return string(n)
	}
	return v
}

func normalizeUint(n uint64) any {
	if n > math.MaxInt64 {
		return n
	}
	return int64(n)
}

func normalizeFloat(f float64) any {
	if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
		return int64(f)
	}
	return f
}
