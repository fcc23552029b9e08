// Package enumerate expands one template invocation into instances.
//
// An Enumerator decides how many instances a template has and how each
// instance's environ is derived from the template's environ. It drives an
// InstanceFunc once per instance, sequentially or from several goroutines.
// Rules narrow which instances run; Exemptions name known-acceptable
// outliers that the enumerator recognises and skips.
//
// Every strategy here is usable as its zero value and holds no state
// between calls.
package enumerate

import (
	"context"

	"github.com/roach88/vharness/internal/environ"
)

// InstanceFunc evaluates one instance. It is supplied by the template
// runner, safe for concurrent use, and never blocks on I/O.
type InstanceFunc func(env *environ.Environ)

// Enumerator produces the instances of a template.
type Enumerator interface {
	// Name returns a human-readable name for the instance env.
	Name(env *environ.Environ) (string, error)

	// Project calls each zero or more times, once per instance. It must
	// stop starting new instances once ctx is cancelled and should then
	// return ctx.Err().
	Project(ctx context.Context, env *environ.Environ, each InstanceFunc) error

	// Exempt reports whether the instance env matches the declared
	// exemptions and must not be evaluated.
	Exempt(env *environ.Environ, exemptions Exemptions) (bool, error)
}

// Default runs the template once against the unmodified environ.
type Default struct{}

// Name returns the empty name.
func (Default) Name(*environ.Environ) (string, error) {
	return "", nil
}

// Project calls each exactly once unless ctx is already cancelled.
func (Default) Project(ctx context.Context, env *environ.Environ, each InstanceFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	each(env)
	return nil
}

// Exempt never exempts: there is only one instance.
func (Default) Exempt(*environ.Environ, Exemptions) (bool, error) {
	return false, nil
}
