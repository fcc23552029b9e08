package environ

import (
	"fmt"
	"reflect"
)

// Tag is the semantic qualifier of a binding. The empty tag is the
// untagged form.
type Tag string

// Key identifies a binding: the tag plus the exact Go type.
type Key struct {
	Tag  Tag
	Type reflect.Type
}

// KeyOf returns the key for type T under tag.
func KeyOf[T any](tag Tag) Key {
	return Key{Tag: tag, Type: reflect.TypeFor[T]()}
}

// String renders the key as "type" or "type@tag".
func (k Key) String() string {
	name := "<nil>"
	if k.Type != nil {
		name = k.Type.String()
	}
	if k.Tag == "" {
		return name
	}
	return fmt.Sprintf("%s@%s", name, k.Tag)
}

// DeriveFunc lazily computes a value for a key. top is the environ the
// lookup started from. A nil result counts as "not bound".
type DeriveFunc func(top *Environ) any

// Environ is an immutable node in a chain of bindings. The zero value is
// an empty root; runs obtain theirs from Builder.Build.
//
// Environ is safe for concurrent use: nodes are never mutated after
// construction, and derivations must not mutate shared state.
type Environ struct {
	parent *Environ

	// chain node
	key   Key
	value any

	// root node
	values  map[Key]any
	derived map[Key]DeriveFunc
}

// With returns a new environ that binds key to value on top of e.
// e itself is not modified. A nil e is treated as an empty root.
func (e *Environ) With(key Key, value any) *Environ {
	return &Environ{parent: e.orEmpty(), key: key, value: value}
}

// WithSelf returns a new environ that binds itself untagged as
// *Environ, so code holding only resolved params can reach "the current
// environ".
func (e *Environ) WithSelf() *Environ {
	n := &Environ{parent: e.orEmpty(), key: KeyOf[*Environ]("")}
	n.value = n
	return n
}

// orEmpty keeps chain nodes from becoming roots: the root is the only
// node without a parent.
func (e *Environ) orEmpty() *Environ {
	if e == nil {
		return &Environ{}
	}
	return e
}

// Parent returns the environ e was extended from, or nil for a root.
func (e *Environ) Parent() *Environ {
	return e.parent
}

// IsRoot reports whether e holds the bulk bindings of a run.
func (e *Environ) IsRoot() bool {
	return e.parent == nil
}

// Root walks to the bulk node of the chain.
func (e *Environ) Root() *Environ {
	n := e
	for n.parent != nil {
		n = n.parent
	}
	return n
}

// Depth is the number of chain nodes above the root.
func (e *Environ) Depth() int {
	d := 0
	for n := e; n.parent != nil; n = n.parent {
		d++
	}
	return d
}

// Lookup returns the value bound to key, walking outward from e.
func (e *Environ) Lookup(key Key) (any, bool) {
	return e.lookup(key, e)
}

func (e *Environ) lookup(key Key, top *Environ) (any, bool) {
	for n := e; n != nil; n = n.parent {
		if n.parent == nil {
			return n.lookupRoot(key, top)
		}
		if n.key == key {
			return n.value, true
		}
	}
	return nil, false
}

func (e *Environ) lookupRoot(key Key, top *Environ) (any, bool) {
	if v, ok := e.values[key]; ok {
		return v, true
	}
	fn, ok := e.derived[key]
	if !ok {
		return nil, false
	}
	v := fn(top)
	if v == nil {
		return nil, false
	}
	return v, true
}

// Extend binds an untagged value of type T on top of e.
func Extend[T any](e *Environ, v T) *Environ {
	return e.With(KeyOf[T](""), v)
}

// ExtendTagged binds a value of type T under tag on top of e.
func ExtendTagged[T any](e *Environ, tag Tag, v T) *Environ {
	return e.With(KeyOf[T](tag), v)
}

// Lookup returns the value of type T bound under tag and whether it was
// found. A bound value of the wrong dynamic type reports false.
func Lookup[T any](e *Environ, tag Tag) (T, bool) {
	var zero T
	raw, ok := e.Lookup(KeyOf[T](tag))
	if !ok {
		return zero, false
	}
	v, ok := raw.(T)
	if !ok {
		return zero, false
	}
	return v, true
}

// Get returns the untagged value of type T, or the zero value of T when
// nothing is bound. It never fails.
func Get[T any](e *Environ) T {
	v, _ := Lookup[T](e, "")
	return v
}

// GetTagged is Get for a tagged binding.
func GetTagged[T any](e *Environ, tag Tag) T {
	v, _ := Lookup[T](e, tag)
	return v
}

// Require returns the value of type T under tag, failing with an
// UNRESOLVED_BINDING BindingError when absent.
func Require[T any](e *Environ, tag Tag) (T, error) {
	var zero T
	key := KeyOf[T](tag)
	raw, ok := e.Lookup(key)
	if !ok {
		return zero, &BindingError{Code: ErrCodeUnresolved, Key: key}
	}
	v, ok := raw.(T)
	if !ok {
		return zero, &BindingError{Code: ErrCodeTypeMismatch, Key: key}
	}
	return v, nil
}
