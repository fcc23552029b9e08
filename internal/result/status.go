// Package result holds the hierarchical outcome of a validation run:
// run -> fixture -> template -> instance -> check.
//
// Every level carries a Status and Summary counters for the level below.
// TemplateResult is written concurrently by instance evaluations; the other
// levels are written by a single runner goroutine and may be read once the
// run returns.
package result

import "fmt"

// Status is the outcome of a run, fixture, template or instance.
type Status int

const (
	StatusSuccess Status = iota
	StatusSkipped
	StatusFailure
	StatusError
)

var statusNames = [...]string{"success", "skipped", "failure", "error"}

// String returns the lowercase status name.
func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("status(%d)", int(s))
	}
	return statusNames[s]
}

// MarshalText renders the status name for JSON and YAML encoders.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CheckStatus is the outcome of a single recorded check.
type CheckStatus int

const (
	CheckSuccess CheckStatus = iota
	CheckFailure
	CheckCriticalFailure
	CheckNotRan
)

var checkStatusNames = [...]string{"success", "failure", "critical_failure", "not_ran"}

// String returns the lowercase check status name.
func (s CheckStatus) String() string {
	if s < 0 || int(s) >= len(checkStatusNames) {
		return fmt.Sprintf("check_status(%d)", int(s))
	}
	return checkStatusNames[s]
}

// MarshalText renders the check status name.
func (s CheckStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CheckResult is one recorded check inside an instance.
type CheckResult struct {
	Name   string      `json:"name"`
	Status CheckStatus `json:"status"`
}

// derive applies the shared status rule: a captured error wins, then any
// failed or errored child, else success. An errored child therefore fails
// its parent; only the parent's own captured error makes it Error.
func derive(err error, s *Summary) Status {
	switch {
	case err != nil:
		return StatusError
	case s.Failure() > 0 || s.Error() > 0:
		return StatusFailure
	default:
		return StatusSuccess
	}
}
