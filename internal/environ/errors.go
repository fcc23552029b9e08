package environ

import (
	"errors"
	"fmt"
)

// BindingErrorCode categorizes binding errors.
type BindingErrorCode string

const (
	// ErrCodeUnresolved indicates a required key has no value.
	ErrCodeUnresolved BindingErrorCode = "UNRESOLVED_BINDING"

	// ErrCodeDuplicate indicates a key was registered twice on a Builder.
	ErrCodeDuplicate BindingErrorCode = "DUPLICATE_BINDING"

	// ErrCodeTypeMismatch indicates a derivation produced a value whose
	// dynamic type does not match its key.
	ErrCodeTypeMismatch BindingErrorCode = "BINDING_TYPE_MISMATCH"
)

// BindingError reports a wiring defect between the environ and its users.
// These are not retried; they surface to whoever asked for the binding.
type BindingError struct {
	Code BindingErrorCode
	Key  Key

	// Param is the requesting parameter name, when resolution went
	// through ResolveAll.
	Param string
}

// Error implements the error interface.
func (e *BindingError) Error() string {
	switch e.Code {
	case ErrCodeUnresolved:
		if e.Param != "" {
			return fmt.Sprintf("%s: cannot resolve parameter %q (%s)", e.Code, e.Param, e.Key)
		}
		return fmt.Sprintf("%s: no value bound for %s", e.Code, e.Key)
	case ErrCodeDuplicate:
		return fmt.Sprintf("%s: %s is already bound", e.Code, e.Key)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Key)
	}
}

// IsUnresolved returns true if err is an UNRESOLVED_BINDING error.
// Uses errors.As to handle wrapped errors.
func IsUnresolved(err error) bool {
	var be *BindingError
	if errors.As(err, &be) {
		return be.Code == ErrCodeUnresolved
	}
	return false
}

// IsDuplicate returns true if err is a DUPLICATE_BINDING error.
func IsDuplicate(err error) bool {
	var be *BindingError
	if errors.As(err, &be) {
		return be.Code == ErrCodeDuplicate
	}
	return false
}
