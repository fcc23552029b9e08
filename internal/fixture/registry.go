package fixture

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// RegistryErrorCode categorizes registration errors.
type RegistryErrorCode string

const (
	// ErrCodeEmptyName indicates a fixture or template without a name.
	ErrCodeEmptyName RegistryErrorCode = "EMPTY_NAME"

	// ErrCodeDuplicateName indicates a fixture or template registered twice.
	ErrCodeDuplicateName RegistryErrorCode = "DUPLICATE_NAME"

	// ErrCodeMissingCheck indicates a runnable template without a check body.
	ErrCodeMissingCheck RegistryErrorCode = "MISSING_CHECK"
)

// RegistryError reports a fixture that cannot be registered.
type RegistryError struct {
	Code     RegistryErrorCode
	Fixture  string
	Template string
}

// Error implements the error interface.
func (e *RegistryError) Error() string {
	if e.Template != "" {
		return fmt.Sprintf("%s: fixture %q template %q", e.Code, e.Fixture, e.Template)
	}
	return fmt.Sprintf("%s: fixture %q", e.Code, e.Fixture)
}

// IsDuplicateName reports whether err is a duplicate-name registry error.
func IsDuplicateName(err error) bool {
	var re *RegistryError
	if errors.As(err, &re) {
		return re.Code == ErrCodeDuplicateName
	}
	return false
}

// Registry holds the statically known fixtures in registration order.
//
// Thread-safety: none. Fill the registry before running it.
type Registry struct {
	fixtures []Fixture
	names    map[string]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{names: make(map[string]struct{})}
}

// Register validates f and appends it.
//
// Fixture names are cleaned as slash paths, so "a//b/" registers as "a/b".
func (r *Registry) Register(f Fixture) error {
	f.Name = cleanName(f.Name)
	if f.Name == "" {
		return &RegistryError{Code: ErrCodeEmptyName}
	}
	if _, ok := r.names[f.Name]; ok {
		return &RegistryError{Code: ErrCodeDuplicateName, Fixture: f.Name}
	}

	seen := make(map[string]struct{}, len(f.Templates))
	for _, t := range f.Templates {
		if t.Name == "" {
			return &RegistryError{Code: ErrCodeEmptyName, Fixture: f.Name}
		}
		if _, ok := seen[t.Name]; ok {
			return &RegistryError{Code: ErrCodeDuplicateName, Fixture: f.Name, Template: t.Name}
		}
		seen[t.Name] = struct{}{}
		if t.Check == nil && !t.Skip {
			return &RegistryError{Code: ErrCodeMissingCheck, Fixture: f.Name, Template: t.Name}
		}
	}

	r.names[f.Name] = struct{}{}
	r.fixtures = append(r.fixtures, f)
	return nil
}

// MustRegister is Register that panics on error. Intended for
// package-level registration.
func (r *Registry) MustRegister(f Fixture) {
	if err := r.Register(f); err != nil {
		panic(err)
	}
}

// Fixtures returns the registered fixtures in registration order.
func (r *Registry) Fixtures() []Fixture {
	out := make([]Fixture, len(r.fixtures))
	copy(out, r.fixtures)
	return out
}

// Match returns the fixtures whose name matches the slash-path glob
// pattern (see path.Match), or whose name has the pattern as a directory
// prefix. An empty pattern matches everything.
func (r *Registry) Match(pattern string) ([]Fixture, error) {
	if pattern == "" {
		return r.Fixtures(), nil
	}
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("fixture pattern %q: %w", pattern, err)
	}

	var out []Fixture
	for _, f := range r.fixtures {
		if ok, _ := path.Match(pattern, f.Name); ok || strings.HasPrefix(f.Name, strings.TrimSuffix(pattern, "/")+"/") {
			out = append(out, f)
		}
	}
	return out, nil
}

func cleanName(name string) string {
	name = strings.Trim(name, "/")
	if name == "" {
		return ""
	}
	return path.Clean(name)
}
