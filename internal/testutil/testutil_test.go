package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFixedClock_DefaultsToRunDate(t *testing.T) {
	clock := NewFixedClock(time.Time{})
	assert.Equal(t, RunDate, clock.Now())
	assert.Equal(t, RunDate, clock.Now(), "clock does not move on its own")
}

func TestFixedClock_Advance(t *testing.T) {
	start := time.Date(2025, time.January, 1, 12, 0, 0, 0, time.UTC)
	clock := NewFixedClock(start)

	clock.Advance(90 * time.Minute)
	assert.Equal(t, start.Add(90*time.Minute), clock.Now())
}

func TestFixedClock_ThreadSafe(t *testing.T) {
	clock := NewFixedClock(RunDate)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			clock.Advance(time.Second)
			_ = clock.Now()
		}()
	}
	wg.Wait()

	assert.Equal(t, RunDate.Add(50*time.Second), clock.Now())
}

func TestFixedIDGenerator(t *testing.T) {
	gen := NewFixedIDGenerator("run-123")
	assert.Equal(t, "run-123", gen.Generate())
	assert.Equal(t, "run-123", gen.Generate())

	assert.Equal(t, "test-run-default", NewFixedIDGenerator("").Generate())
}
