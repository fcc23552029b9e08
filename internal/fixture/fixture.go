// Package fixture describes validator fixtures and their templates.
//
// A Fixture is a named group of Templates. A Template pairs a check body
// with the enumeration strategy, filters and exemptions that decide which
// instances it runs against. Fixtures are registered explicitly with a
// Registry, or compiled from a suite file by package suite.
package fixture

import (
	"github.com/roach88/vharness/internal/enumerate"
	"github.com/roach88/vharness/internal/environ"
)

// CheckFunc is a template's check body. args holds the values resolved for
// the template's Params, in order.
//
// Returning check.ErrCriticalAbort (wrapped or not) ends the instance as a
// Failure. Any other error, or a panic, ends it as an Error.
type CheckFunc func(args []any) error

// PrepareFunc derives the environ a template runs in from the fixture's
// inbound environ. It runs once per template.
type PrepareFunc func(env *environ.Environ) (*environ.Environ, error)

// Template is one declared check definition.
type Template struct {
	Name string

	// Skip marks the template as skipped: it reports Skipped and its
	// enumerator is never invoked.
	Skip bool

	// NoReport is copied to the result's NotForReporting flag.
	NoReport bool

	// Enumerator produces the instances. Nil means enumerate.Default{}.
	Enumerator enumerate.Enumerator

	// Rules must all allow an instance before it runs.
	Rules []enumerate.Rule

	// Exemptions is handed to the enumerator's Exempt. Nil means the
	// template declares no exemptions.
	Exemptions enumerate.Exemptions

	// Params lists the values the check body needs, resolved per instance.
	Params []environ.Param

	Check CheckFunc
}

// Enum returns the template's enumerator, defaulting to enumerate.Default.
func (t Template) Enum() enumerate.Enumerator {
	if t.Enumerator == nil {
		return enumerate.Default{}
	}
	return t.Enumerator
}

// Fixture is a named group of templates run in declared order.
type Fixture struct {
	// Name is a '/'-separated path such as "billing/invoices".
	Name string

	Skip     bool
	NoReport bool

	// Prepare, when set, runs before each template.
	Prepare PrepareFunc

	Templates []Template
}
