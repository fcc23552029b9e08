package environ

// Builder accumulates the bulk bindings and derivations of a root environ.
//
// Registering the same key twice, as a value or a derivation, is a wiring
// defect. The first such error is kept and returned by Build; later calls
// become no-ops so registrations can be chained without checking each one.
//
// A Builder is not safe for concurrent use.
type Builder struct {
	values  map[Key]any
	derived map[Key]DeriveFunc
	err     error
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		values:  make(map[Key]any),
		derived: make(map[Key]DeriveFunc),
	}
}

// Add binds value to key.
func (b *Builder) Add(key Key, value any) *Builder {
	if b.claim(key) {
		b.values[key] = value
	}
	return b
}

// Derive registers fn as the lazy source of key.
func (b *Builder) Derive(key Key, fn DeriveFunc) *Builder {
	if b.claim(key) {
		b.derived[key] = fn
	}
	return b
}

func (b *Builder) claim(key Key) bool {
	if b.err != nil {
		return false
	}
	_, hasValue := b.values[key]
	_, hasDerived := b.derived[key]
	if hasValue || hasDerived {
		b.err = &BindingError{Code: ErrCodeDuplicate, Key: key}
		return false
	}
	return true
}

// Err returns the first registration error, if any.
func (b *Builder) Err() error {
	return b.err
}

// Build produces the root environ. The builder's maps are copied, so
// further registrations do not leak into environs already built.
func (b *Builder) Build() (*Environ, error) {
	if b.err != nil {
		return nil, b.err
	}
	values := make(map[Key]any, len(b.values))
	for k, v := range b.values {
		values[k] = v
	}
	derived := make(map[Key]DeriveFunc, len(b.derived))
	for k, fn := range b.derived {
		derived[k] = fn
	}
	return &Environ{values: values, derived: derived}, nil
}

// Bind registers an untagged value of type T.
func Bind[T any](b *Builder, v T) *Builder {
	return b.Add(KeyOf[T](""), v)
}

// BindTagged registers a value of type T under tag.
func BindTagged[T any](b *Builder, tag Tag, v T) *Builder {
	return b.Add(KeyOf[T](tag), v)
}

// DeriveTagged registers a typed derivation for T under tag. A derivation
// reporting false counts as "not bound".
func DeriveTagged[T any](b *Builder, tag Tag, fn func(top *Environ) (T, bool)) *Builder {
	return b.Derive(KeyOf[T](tag), func(top *Environ) any {
		v, ok := fn(top)
		if !ok {
			return nil
		}
		return v
	})
}
