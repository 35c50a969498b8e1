// Package clock provides the time source used by timers in the player.
package clock

import (
	"context"
	"sync/atomic"
	"time"
)

// Timer is a pending callback that can be cancelled.
type Timer interface {
	// Stop cancels the timer. Returns false if it already fired or was stopped.
	Stop() bool
}

// Clock abstracts the time source so timer-driven logic can be tested.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// pollInterval is the granularity of wall clock timers.
const pollInterval = 50 * time.Millisecond

// Wall is a Clock whose timers are measured against the wall clock.
// Durations of hours on a device whose monotonic clock drifts (or that suspends)
// still fire at the expected wall time.
type Wall struct{}

// New returns the wall clock.
func New() Wall {
	return Wall{}
}

// Now returns the current wall time with the monotonic reading stripped.
func (Wall) Now() time.Time {
	return toWallTime(time.Now())
}

type wallTimer struct {
	cancel context.CancelFunc
	done   atomic.Bool
}

func (t *wallTimer) Stop() bool {
	t.cancel()
	return t.done.CompareAndSwap(false, true)
}

// AfterFunc calls f in its own goroutine once d has elapsed on the wall clock.
func (Wall) AfterFunc(d time.Duration, f func()) Timer {
	ctx, cancel := context.WithCancel(context.Background())
	t := &wallTimer{cancel: cancel}

	endTime := toWallTime(time.Now()).Add(d)
	go func() {
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()

		for {
			if !toWallTime(time.Now()).Before(endTime) {
				if t.done.CompareAndSwap(false, true) {
					f()
				}
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return t
}

// toWallTime returns the time with monotonic clock stripped.
func toWallTime(t time.Time) time.Time {
	return time.Unix(t.Unix(), int64(t.Nanosecond()))
}
