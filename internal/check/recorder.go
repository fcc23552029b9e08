// Package check records the outcome of individual checks made by a check
// body while it evaluates one instance.
package check

import (
	"errors"

	"github.com/roach88/vharness/internal/constraint"
	"github.com/roach88/vharness/internal/result"
)

// ErrCriticalAbort is returned by RecordCritical and CriticalThat when a
// critical check fails. Check bodies return it (wrapped or not) to stop
// evaluating the current instance; the runner turns it into an instance
// Failure, never an Error.
var ErrCriticalAbort = errors.New("critical check failed")

// IsCriticalAbort reports whether err carries ErrCriticalAbort.
func IsCriticalAbort(err error) bool {
	return errors.Is(err, ErrCriticalAbort)
}

// Recorder accumulates the checks of one instance evaluation.
//
// Thread-safety: none. Each instance gets its own Recorder, written by the
// check body and read once by the runner after the body returns.
type Recorder struct {
	eval    constraint.Evaluator
	keep    bool
	failed  bool
	results []result.CheckResult
}

// NewRecorder creates a recorder. With keep=false only the pass/fail flag
// is tracked, so templates past their instance-result cap do not allocate.
// eval may be nil when the body only uses Record and RecordCritical.
func NewRecorder(keep bool, eval constraint.Evaluator) *Recorder {
	r := &Recorder{eval: eval, keep: keep}
	if keep {
		r.results = []result.CheckResult{}
	}
	return r
}

// Record notes a check outcome. It never stops the instance.
func (r *Recorder) Record(success bool, description string) {
	if success {
		r.add(description, result.CheckSuccess)
		return
	}
	r.failed = true
	r.add(description, result.CheckFailure)
}

// RecordCritical notes a check outcome. On failure it returns
// ErrCriticalAbort, which the body should return immediately.
func (r *Recorder) RecordCritical(success bool, description string) error {
	if success {
		r.add(description, result.CheckSuccess)
		return nil
	}
	r.failed = true
	r.add(description, result.CheckCriticalFailure)
	return ErrCriticalAbort
}

// That evaluates value against expr with the injected evaluator and
// records the outcome. It returns an error only when the constraint
// cannot be evaluated.
func (r *Recorder) That(value any, expr, description string) error {
	ok, err := r.evaluate(value, expr)
	if err != nil {
		return err
	}
	r.Record(ok, description)
	return nil
}

// CriticalThat is That with critical-stop semantics.
func (r *Recorder) CriticalThat(value any, expr, description string) error {
	ok, err := r.evaluate(value, expr)
	if err != nil {
		return err
	}
	return r.RecordCritical(ok, description)
}

func (r *Recorder) evaluate(value any, expr string) (bool, error) {
	if r.eval == nil {
		return false, errors.New("check: recorder has no constraint evaluator")
	}
	return r.eval.Evaluate(value, expr)
}

func (r *Recorder) add(description string, status result.CheckStatus) {
	if !r.keep {
		return
	}
	r.results = append(r.results, result.CheckResult{Name: description, Status: status})
}

// Failed reports whether any check failed.
func (r *Recorder) Failed() bool {
	return r.failed
}

// Succeeded reports whether every recorded check passed. A recorder with
// no checks has succeeded.
func (r *Recorder) Succeeded() bool {
	return !r.failed
}

// Keeping reports whether individual check results are kept.
func (r *Recorder) Keeping() bool {
	return r.keep
}

// Results returns the recorded checks, or nil in counts-only mode.
func (r *Recorder) Results() []result.CheckResult {
	return r.results
}
