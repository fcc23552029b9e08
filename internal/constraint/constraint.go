// Package constraint evaluates check constraints against values.
//
// The check recorder only needs a success/failure boolean. How that boolean
// is produced is up to an Evaluator; the default implementation compiles
// constraint expressions as CUE and unifies them with the value:
//
//	eval := constraint.NewCUE()
//	ok, err := eval.Evaluate(12, ">0 & <100")          // true
//	ok, err = eval.Evaluate("abc", `=~"^[a-z]+$"`)      // true
//	ok, err = eval.Evaluate("x", `"open" | "closed"`)  // false
//
// A constraint that does not compile is an error, not a failed check.
package constraint

import (
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// Evaluator decides whether value satisfies expr.
//
// Implementations must be safe for concurrent use: enumerators may evaluate
// many instances at once.
type Evaluator interface {
	Evaluate(value any, expr string) (bool, error)
}

// Func adapts a function to the Evaluator interface.
type Func func(value any, expr string) (bool, error)

// Evaluate calls f.
func (f Func) Evaluate(value any, expr string) (bool, error) {
	return f(value, expr)
}

// CompileError reports a constraint expression that is not valid CUE.
type CompileError struct {
	Expr string
	Err  error
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	return fmt.Sprintf("invalid constraint %q: %v", e.Expr, e.Err)
}

// Unwrap returns the underlying CUE error.
func (e *CompileError) Unwrap() error {
	return e.Err
}

// CUE evaluates constraints with the CUE SDK.
//
// Thread-safety: a cue.Context is not safe for concurrent use, so every
// evaluation holds mu. Compiled expressions are cached by source text.
type CUE struct {
	mu    sync.Mutex
	ctx   *cue.Context
	cache map[string]cue.Value
}

// NewCUE creates an evaluator with its own CUE runtime.
func NewCUE() *CUE {
	return &CUE{
		ctx:   cuecontext.New(),
		cache: make(map[string]cue.Value),
	}
}

// Compile checks that expr is a valid constraint without evaluating it.
func (c *CUE) Compile(expr string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.compile(expr)
	return err
}

// Evaluate unifies value with expr and reports whether the result is
// concrete and free of conflicts.
func (c *CUE) Evaluate(value any, expr string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	schema, err := c.compile(expr)
	if err != nil {
		return false, err
	}

	v := c.ctx.Encode(value)
	if err := v.Err(); err != nil {
		return false, fmt.Errorf("encode %T: %w", value, err)
	}

	return schema.Unify(v).Validate(cue.Concrete(true)) == nil, nil
}

func (c *CUE) compile(expr string) (cue.Value, error) {
	if v, ok := c.cache[expr]; ok {
		return v, nil
	}
	v := c.ctx.CompileString(expr)
	if err := v.Err(); err != nil {
		return cue.Value{}, &CompileError{Expr: expr, Err: err}
	}
	c.cache[expr] = v
	return v, nil
}
