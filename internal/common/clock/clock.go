// internal/common/clock/clock.go
// Time source shared by the lifecycle service, ledger, sweeper and detector.
// Core packages take a Clock instead of calling time.Now() so tests can move time.

package clock

import (
	"sync"
	"time"
)

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

// Real returns the system time in UTC.
type Real struct{}

// Now returns the current system time.
func (Real) Now() time.Time {
	return time.Now().UTC()
}

// NewReal returns a Clock backed by the system time.
func NewReal() Clock {
	return Real{}
}

// Fake is a manually driven clock for tests. Safe for concurrent use.
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

// NewFake creates a Fake clock pinned at t.
func NewFake(t time.Time) *Fake {
	return &Fake{now: t}
}

// Now returns the pinned time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance moves the clock forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// Set pins the clock at t.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t
}

var (
	_ Clock = Real{}
	_ Clock = (*Fake)(nil)
)
