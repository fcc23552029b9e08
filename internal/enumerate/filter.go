package enumerate

import (
	"fmt"

	"github.com/roach88/vharness/internal/environ"
)

// Filter is a predicate over an instance environ.
type Filter interface {
	Filter(env *environ.Environ) (bool, error)
}

// FilterFunc adapts a function to the Filter interface.
type FilterFunc func(env *environ.Environ) (bool, error)

// Filter calls f.
func (f FilterFunc) Filter(env *environ.Environ) (bool, error) {
	return f(env)
}

// Direction says how a Rule reads its filter's result.
type Direction int

const (
	// Allow runs the instance when the filter is true.
	Allow Direction = iota
	// Block skips the instance when the filter is true.
	Block
)

// String returns "allow" or "block".
func (d Direction) String() string {
	switch d {
	case Allow:
		return "allow"
	case Block:
		return "block"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// ParseDirection parses "allow" (or "") and "block".
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "", "allow":
		return Allow, nil
	case "block":
		return Block, nil
	default:
		return Allow, fmt.Errorf("unknown filter direction %q (want allow|block)", s)
	}
}

// Rule is a filter with a direction.
type Rule struct {
	Filter    Filter
	Direction Direction
}

// Allowed evaluates the rule for env.
func (r Rule) Allowed(env *environ.Environ) (bool, error) {
	ok, err := r.Filter.Filter(env)
	if err != nil {
		return false, err
	}
	if r.Direction == Block {
		return !ok, nil
	}
	return ok, nil
}

// Allowed reports whether every rule allows env. Rules are evaluated in
// order and evaluation stops at the first rule that blocks or fails.
func Allowed(rules []Rule, env *environ.Environ) (bool, error) {
	for i, r := range rules {
		ok, err := r.Allowed(env)
		if err != nil {
			return false, fmt.Errorf("filter %d: %w", i, err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}
