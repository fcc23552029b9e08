package runner

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// PanicError is a recovered panic, converted to an error so it can be
// captured in the result tree.
type PanicError struct {
	// Value is the value passed to panic.
	Value any

	// Stack is the goroutine stack at the time of recovery.
	Stack []byte
}

func newPanicError(v any) *PanicError {
	return &PanicError{Value: v, Stack: debug.Stack()}
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// IsPanic reports whether err is, or wraps, a recovered panic.
// Uses errors.As to handle wrapped errors.
func IsPanic(err error) bool {
	var pe *PanicError
	return errors.As(err, &pe)
}

// errNoCheck is captured for a runnable template without a check body.
var errNoCheck = errors.New("template has no check body")
