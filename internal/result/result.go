package result

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// MaxInstanceResults caps the instance results a template keeps verbatim.
// High-cardinality enumerations tend to fail the same way many times;
// the Summary counts stay exact past the cap.
const MaxInstanceResults = 25

// InstanceResult is the outcome of one instance that did not succeed.
type InstanceResult struct {
	Name   string
	Status Status

	// Checks holds the checks recorded up to the end of the instance, or
	// up to the critical check that stopped it. Nil for Error instances
	// and for recorders running in counts-only mode.
	Checks []CheckResult

	// Err is the failure raised by the check body when Status is Error.
	Err error
}

type capturedError struct {
	err error
}

// TemplateResult is the outcome of one template.
//
// Thread-safety: Instances, AddInstanceResult, ShouldRecord, SetError,
// Err and Discard are safe for concurrent use by instance evaluations.
// Status is set by the template runner once enumeration has returned.
type TemplateResult struct {
	Name            string
	NotForReporting bool
	Status          Status

	// Instances counts every evaluated instance, including those not kept.
	Instances *Summary

	mu        sync.Mutex
	stored    atomic.Int32
	discarded atomic.Bool
	instances []InstanceResult
	err       atomic.Pointer[capturedError]
}

// NewTemplateResult creates an empty result for the named template.
func NewTemplateResult(name string, notForReporting bool) *TemplateResult {
	return &TemplateResult{
		Name:            name,
		NotForReporting: notForReporting,
		Instances:       NewSummary(),
	}
}

// ShouldRecord reports whether another instance result would still be
// kept. It is an optimistic check: AddInstanceResult re-checks under the
// lock, since many instances can pass this check at the same time.
func (r *TemplateResult) ShouldRecord() bool {
	return !r.discarded.Load() && r.stored.Load() < MaxInstanceResults
}

// AddInstanceResult keeps ir unless the cap is reached or the list was
// discarded. It reports whether ir was kept.
func (r *TemplateResult) AddInstanceResult(ir InstanceResult) bool {
	if !r.ShouldRecord() {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Re-check: other instances may have filled the list while we waited.
	if r.discarded.Load() || len(r.instances) >= MaxInstanceResults {
		return false
	}
	r.instances = append(r.instances, ir)
	r.stored.Store(int32(len(r.instances)))
	return true
}

// InstanceResults returns a copy of the kept instance results, or nil
// once the list has been discarded. Order is not enumeration order.
func (r *TemplateResult) InstanceResults() []InstanceResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.discarded.Load() {
		return nil
	}
	return slices.Clone(r.instances)
}

// Discard drops the kept instance results for good. Used when a harness
// error makes them unreliable.
func (r *TemplateResult) Discard() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.discarded.Store(true)
	r.instances = nil
}

// Discarded reports whether Discard was called.
func (r *TemplateResult) Discarded() bool {
	return r.discarded.Load()
}

// SetError captures err as the template-level error. Only the first call
// wins; it reports whether this call stored err.
func (r *TemplateResult) SetError(err error) bool {
	if err == nil {
		return false
	}
	return r.err.CompareAndSwap(nil, &capturedError{err: err})
}

// Err returns the captured template-level error, if any.
func (r *TemplateResult) Err() error {
	if c := r.err.Load(); c != nil {
		return c.err
	}
	return nil
}

// Skip marks the template as skipped without running anything.
func (r *TemplateResult) Skip() {
	r.Status = StatusSkipped
}

// Finish derives the final status once enumeration has returned.
func (r *TemplateResult) Finish() {
	r.Status = derive(r.Err(), r.Instances)
}

// FixtureResult is the outcome of one fixture. It is written by a single
// goroutine.
type FixtureResult struct {
	Name            string
	NotForReporting bool
	Status          Status

	Templates *Summary
	Instances *Summary

	templates []*TemplateResult
	discarded bool
	err       error
}

// NewFixtureResult creates an empty result for the named fixture.
func NewFixtureResult(name string, notForReporting bool) *FixtureResult {
	return &FixtureResult{
		Name:            name,
		NotForReporting: notForReporting,
		Templates:       NewSummary(),
		Instances:       NewSummary(),
	}
}

// AddTemplateResult rolls a finished template into the fixture.
func (r *FixtureResult) AddTemplateResult(t *TemplateResult) {
	r.Templates.Count(t.Status)
	r.Instances.Merge(t.Instances)
	if !r.discarded {
		r.templates = append(r.templates, t)
	}
}

// TemplateResults returns the rolled-up templates, or nil after an error.
func (r *FixtureResult) TemplateResults() []*TemplateResult {
	if r.discarded {
		return nil
	}
	return r.templates
}

// SetError captures the first fixture-level error and discards the
// partial template list.
func (r *FixtureResult) SetError(err error) {
	if err == nil {
		return
	}
	if r.err == nil {
		r.err = err
	}
	r.discarded = true
	r.templates = nil
}

// Err returns the captured fixture-level error, if any.
func (r *FixtureResult) Err() error {
	return r.err
}

// Skip marks the fixture as skipped.
func (r *FixtureResult) Skip() {
	r.Status = StatusSkipped
}

// Finish derives the fixture status from its templates.
func (r *FixtureResult) Finish() {
	r.Status = derive(r.err, r.Templates)
}

// RunResult is the root of the tree. A run is never Skipped.
type RunResult struct {
	RunID   string
	RunDate time.Time
	Status  Status

	Fixtures  *Summary
	Templates *Summary
	Instances *Summary

	fixtures []*FixtureResult
	err      error
}

// NewRunResult creates an empty run result.
func NewRunResult(runID string, runDate time.Time) *RunResult {
	return &RunResult{
		RunID:     runID,
		RunDate:   runDate,
		Fixtures:  NewSummary(),
		Templates: NewSummary(),
		Instances: NewSummary(),
	}
}

// AddFixtureResult rolls a finished fixture into the run.
func (r *RunResult) AddFixtureResult(f *FixtureResult) {
	r.Fixtures.Count(f.Status)
	r.Templates.Merge(f.Templates)
	r.Instances.Merge(f.Instances)
	r.fixtures = append(r.fixtures, f)
}

// FixtureResults returns the fixtures run so far. After a run-level error
// this is the partial list up to the failure point.
func (r *RunResult) FixtureResults() []*FixtureResult {
	return r.fixtures
}

// SetError captures the first run-level error.
func (r *RunResult) SetError(err error) {
	if r.err == nil {
		r.err = err
	}
}

// Err returns the captured run-level error, if any.
func (r *RunResult) Err() error {
	return r.err
}

// Finish derives the run status from its fixtures.
func (r *RunResult) Finish() {
	r.Status = derive(r.err, r.Fixtures)
}
