// Package clock supplies the single notion of "current time" used by the
// scheduler and registry. All time values are unix seconds; implementations
// must be monotonically non-decreasing.
package clock

import (
	"sync"
	"time"
)

// Clock yields the current unix timestamp in seconds.
type Clock interface {
	Now() int64
}

// System reads the wall clock.
type System struct{}

// Now returns the current unix time.
func (System) Now() int64 {
	return time.Now().UTC().Unix()
}

// Manual is a controllable clock for tests and simulations. It never moves
// backwards: Set calls with an earlier timestamp are ignored.
type Manual struct {
	mu  sync.Mutex
	now int64
}

// NewManual builds a manual clock starting at the given unix time.
func NewManual(start int64) *Manual {
	return &Manual{now: start}
}

// Now returns the manual clock's current time.
func (m *Manual) Now() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Set moves the clock forward to t. Regressions are ignored.
func (m *Manual) Set(t int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t > m.now {
		m.now = t
	}
}

// Advance moves the clock forward by d seconds. Negative values are ignored.
func (m *Manual) Advance(d int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d > 0 {
		m.now += d
	}
}
