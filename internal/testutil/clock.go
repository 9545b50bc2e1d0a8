// Package testutil holds deterministic helpers shared by tests and the
// scenario runner: a logical step clock and a quiet logger.
package testutil

import "sync"

// StepClock numbers scenario steps with a monotonic logical sequence. It
// can be reset, so re-running a scenario yields identical seq values and
// therefore byte-identical golden traces.
type StepClock struct {
	mu  sync.Mutex
	seq int64
}

// NewStepClock creates a clock whose first Next returns 1.
func NewStepClock() *StepClock {
	return &StepClock{}
}

// Next returns the next sequence number.
func (c *StepClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Current returns the last issued sequence number without advancing.
func (c *StepClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Reset rewinds the clock; the next call to Next returns 1 again.
func (c *StepClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
}
