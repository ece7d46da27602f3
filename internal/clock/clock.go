// Package clock abstracts wall time and timers so hold detection, settle
// delays and lyric polling can be driven deterministically in tests.
package clock

import (
	"context"
	"time"

	bclock "github.com/benbjohnson/clock"
)

// Clock provides the current time, one-shot timers and tickers.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
	Ticker(d time.Duration) *bclock.Ticker
}

// Timer is a cancellable one-shot timer.
type Timer interface {
	// Stop prevents the timer from firing. It reports whether the call
	// stopped the timer.
	Stop() bool
}

type system struct {
	c bclock.Clock
}

// New returns the system clock.
func New() Clock {
	return system{c: bclock.New()}
}

func (r system) Now() time.Time { return r.c.Now() }

func (r system) AfterFunc(d time.Duration, f func()) Timer {
	return r.c.AfterFunc(d, f)
}

func (r system) Ticker(d time.Duration) *bclock.Ticker {
	return r.c.Ticker(d)
}

// Sleep waits for d on c, returning early with ctx's error when ctx is done.
func Sleep(ctx context.Context, c Clock, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	done := make(chan struct{})
	t := c.AfterFunc(d, func() { close(done) })
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		t.Stop()
		return ctx.Err()
	}
}
