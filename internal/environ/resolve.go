package environ

import (
	"reflect"
)

// Param is one request in a ResolveAll call.
type Param struct {
	// Name identifies the parameter in error messages.
	Name string

	Key Key

	// Optional resolves a missing binding to the zero value of Key.Type
	// instead of failing.
	Optional bool
}

// ParamOf builds a strict Param for type T under tag.
func ParamOf[T any](name string, tag Tag) Param {
	return Param{Name: name, Key: KeyOf[T](tag)}
}

// OptionalParamOf builds an optional Param for type T under tag.
func OptionalParamOf[T any](name string, tag Tag) Param {
	return Param{Name: name, Key: KeyOf[T](tag), Optional: true}
}

// ResolveAll looks up every param and returns the values in input order.
//
// A strict param with no binding, or with a nil binding, fails the whole
// call with an UNRESOLVED_BINDING error naming the first such param.
// A value whose dynamic type cannot be assigned to the param type fails
// with BINDING_TYPE_MISMATCH.
func (e *Environ) ResolveAll(params []Param) ([]any, error) {
	out := make([]any, len(params))
	for i, p := range params {
		raw, ok := e.Lookup(p.Key)
		if !ok || raw == nil {
			if !p.Optional {
				return nil, &BindingError{Code: ErrCodeUnresolved, Key: p.Key, Param: p.Name}
			}
			out[i] = zeroOf(p.Key.Type)
			continue
		}
		if p.Key.Type != nil && !reflect.TypeOf(raw).AssignableTo(p.Key.Type) {
			return nil, &BindingError{Code: ErrCodeTypeMismatch, Key: p.Key, Param: p.Name}
		}
		out[i] = raw
	}
	return out, nil
}

func zeroOf(t reflect.Type) any {
	if t == nil {
		return nil
	}
	return reflect.Zero(t).Interface()
}
