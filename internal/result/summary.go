package result

import (
	"encoding/json"
	"sync/atomic"
)

// Summary counts outcomes at one level of the tree.
//
// Thread-safety: all counters are atomic, so instance evaluations may
// increment a template's Summary concurrently.
type Summary struct {
	total   atomic.Int64
	success atomic.Int64
	skipped atomic.Int64
	failure atomic.Int64
	errors  atomic.Int64
}

// NewSummary returns a zeroed Summary.
func NewSummary() *Summary {
	return &Summary{}
}

func (s *Summary) AddSuccess() {
	s.total.Add(1)
	s.success.Add(1)
}

func (s *Summary) AddSkipped() {
	s.total.Add(1)
	s.skipped.Add(1)
}

func (s *Summary) AddFailure() {
	s.total.Add(1)
	s.failure.Add(1)
}

func (s *Summary) AddError() {
	s.total.Add(1)
	s.errors.Add(1)
}

// Count adds one outcome of the given status.
func (s *Summary) Count(status Status) {
	switch status {
	case StatusSuccess:
		s.AddSuccess()
	case StatusSkipped:
		s.AddSkipped()
	case StatusFailure:
		s.AddFailure()
	case StatusError:
		s.AddError()
	}
}

// Merge adds every counter of other into s.
func (s *Summary) Merge(other *Summary) {
	if other == nil {
		return
	}
	s.total.Add(other.total.Load())
	s.success.Add(other.success.Load())
	s.skipped.Add(other.skipped.Load())
	s.failure.Add(other.failure.Load())
	s.errors.Add(other.errors.Load())
}

func (s *Summary) Total() int64   { return s.total.Load() }
func (s *Summary) Success() int64 { return s.success.Load() }
func (s *Summary) Skipped() int64 { return s.skipped.Load() }
func (s *Summary) Failure() int64 { return s.failure.Load() }
func (s *Summary) Error() int64   { return s.errors.Load() }

// Counts is a plain snapshot of a Summary.
type Counts struct {
	Total   int64 `json:"total"`
	Success int64 `json:"success"`
	Skipped int64 `json:"skipped"`
	Failure int64 `json:"failure"`
	Error   int64 `json:"error"`
}

// Snapshot copies the counters. Counters are read one at a time, so a
// snapshot taken while instances are still running may be inconsistent.
func (s *Summary) Snapshot() Counts {
	return Counts{
		Total:   s.Total(),
		Success: s.Success(),
		Skipped: s.Skipped(),
		Failure: s.Failure(),
		Error:   s.Error(),
	}
}

// MarshalJSON encodes the snapshot.
func (s *Summary) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Snapshot())
}
