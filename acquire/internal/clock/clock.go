// Package clock abstracts wall-clock reads and blocking sleeps so that
// settle delays and polling loops can be driven by a fake in tests.
package clock

import (
	"context"
	"sync"
	"time"
)

// Clock is the time source used by every bounded wait in the pipeline.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done, whichever comes first.
	Sleep(ctx context.Context, d time.Duration) error
}

// Real is the wall clock.
type Real struct{}

// Now returns the current time.
func (Real) Now() time.Time { return time.Now() }

// Sleep blocks for d or until ctx is done.
func (Real) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Fake is a manually advanced clock. Sleep returns immediately after moving
// the clock forward and invoking OnSleep, which lets tests mutate the world
// "while" time passes.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	slept   time.Duration
	OnSleep func(d time.Duration)
}

// NewFake returns a Fake starting at start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

// Now returns the fake current time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Sleep advances the clock by d.
func (f *Fake) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.Advance(d)
	if f.OnSleep != nil {
		f.OnSleep(d)
	}
	return nil
}

// Advance moves the clock forward without calling OnSleep.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.slept += d
	f.mu.Unlock()
}

// Slept reports the total duration the clock has been advanced.
func (f *Fake) Slept() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.slept
}
