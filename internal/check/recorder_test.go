package check

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/vharness/internal/constraint"
	"github.com/roach88/vharness/internal/result"
)

func TestRecorder_Record(t *testing.T) {
	r := NewRecorder(true, nil)
	assert.True(t, r.Succeeded(), "no checks means success")

	r.Record(true, "first")
	r.Record(false, "second")
	r.Record(true, "third")

	assert.True(t, r.Failed())
	assert.False(t, r.Succeeded())
	assert.Equal(t, []result.CheckResult{
		{Name: "first", Status: result.CheckSuccess},
		{Name: "second", Status: result.CheckFailure},
		{Name: "third", Status: result.CheckSuccess},
	}, r.Results())
}

func TestRecorder_RecordCritical(t *testing.T) {
	r := NewRecorder(true, nil)

	require.NoError(t, r.RecordCritical(true, "ok"))
	assert.True(t, r.Succeeded())

	err := r.RecordCritical(false, "stop")
	require.Error(t, err)
	assert.True(t, IsCriticalAbort(err))
	assert.True(t, IsCriticalAbort(fmt.Errorf("wrapped: %w", err)))
	assert.False(t, IsCriticalAbort(errors.New("other")))
	assert.True(t, r.Failed())
	assert.Equal(t, []result.CheckResult{
		{Name: "ok", Status: result.CheckSuccess},
		{Name: "stop", Status: result.CheckCriticalFailure},
	}, r.Results())
}

func TestRecorder_CountsOnly(t *testing.T) {
	r := NewRecorder(false, nil)

	r.Record(true, "a")
	r.Record(false, "b")
	_ = r.RecordCritical(false, "c")

	assert.False(t, r.Keeping())
	assert.True(t, r.Failed())
	assert.Nil(t, r.Results())
}

func TestRecorder_That(t *testing.T) {
	r := NewRecorder(true, constraint.NewCUE())

	require.NoError(t, r.That(5, ">0", "positive"))
	require.NoError(t, r.That(-1, ">0", "negative"))

	err := r.CriticalThat("abc", `=~"^[0-9]+$"`, "digits")
	assert.True(t, IsCriticalAbort(err))

	assert.Equal(t, []result.CheckResult{
		{Name: "positive", Status: result.CheckSuccess},
		{Name: "negative", Status: result.CheckFailure},
		{Name: "digits", Status: result.CheckCriticalFailure},
	}, r.Results())
}

func TestRecorder_ThatEvaluatorError(t *testing.T) {
	boom := errors.New("evaluator down")
	r := NewRecorder(true, constraint.Func(func(any, string) (bool, error) {
		return false, boom
	}))

	assert.ErrorIs(t, r.That(1, "x", "a"), boom)
	assert.ErrorIs(t, r.CriticalThat(1, "x", "b"), boom)
	assert.False(t, r.Failed(), "an unevaluated constraint is not a failed check")
	assert.Empty(t, r.Results())
}

func TestRecorder_ThatWithoutEvaluator(t *testing.T) {
	r := NewRecorder(true, nil)

	err := r.That(1, ">0", "a")
	require.Error(t, err)
	assert.False(t, IsCriticalAbort(err))
}
