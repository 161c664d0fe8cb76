package data

import (
	"sync"
	"time"
)

// TimeProvider is the clock repositories stamp queue, lease and retry rows
// with. Tests swap in FixedTimeProvider to drive backoff and expiry.
type TimeProvider interface {
	Now() time.Time
}

// RealTimeProvider reads the system clock.
type RealTimeProvider struct{}

// Now returns time.Now.
func (RealTimeProvider) Now() time.Time { return time.Now() }

// FixedTimeProvider is a settable clock. It is safe for concurrent use so
// claim races can share one.
type FixedTimeProvider struct {
	mu  sync.RWMutex
	now time.Time
}

// NewFixedTimeProvider returns a clock stopped at t.
func NewFixedTimeProvider(t time.Time) *FixedTimeProvider {
	return &FixedTimeProvider{now: t}
}

// Now returns the current fixed time.
func (f *FixedTimeProvider) Now() time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.now
}

// SetTime moves the clock to t.
func (f *FixedTimeProvider) SetTime(t time.Time) {
	f.mu.Lock()
	f.now = t
	f.mu.Unlock()
}

// AddTime advances the clock by d.
func (f *FixedTimeProvider) AddTime(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}
