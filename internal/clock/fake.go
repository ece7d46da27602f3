package clock

import (
	"sort"
	"sync"
	"time"

	bclock "github.com/benbjohnson/clock"
)

// Fake is a manually advanced Clock for tests. Time and tickers come from a
// benbjohnson/clock Mock; AfterFunc callbacks run on the goroutine that calls
// Advance, in deadline order, so tests observe their effects as soon as
// Advance returns.
type Fake struct {
	mock *bclock.Mock

	mu     sync.Mutex
	seq    int
	timers []*fakeTimer
}

type fakeTimer struct {
	clock *Fake
	at    time.Time
	seq   int
	f     func()
	done  bool
}

// NewFake returns a fake clock starting at start.
func NewFake(start time.Time) *Fake {
	m := bclock.NewMock()
	m.Set(start)
	return &Fake{mock: m}
}

// Now returns the fake time.
func (c *Fake) Now() time.Time {
	return c.mock.Now()
}

// Ticker returns a mock ticker that fires as the clock is advanced.
func (c *Fake) Ticker(d time.Duration) *bclock.Ticker {
	return c.mock.Ticker(d)
}

// AfterFunc schedules f to run when the clock is advanced past d.
func (c *Fake) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &fakeTimer{clock: c, at: c.mock.Now().Add(d), seq: c.seq, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	return true
}

// Pending returns the number of timers that have neither fired nor stopped.
func (c *Fake) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.done {
			n++
		}
	}
	return n
}

// Advance moves the clock forward by d. Every timer that comes due runs with
// the clock set to its deadline, so timers scheduled from a callback fire in
// the same call when they fall inside the window.
func (c *Fake) Advance(d time.Duration) {
	target := c.mock.Now().Add(d)
	for {
		next := c.nextDue(target)
		if next == nil {
			break
		}
		if next.at.After(c.mock.Now()) {
			c.mock.Set(next.at)
		}
		next.f()
	}
	if target.After(c.mock.Now()) {
		c.mock.Set(target)
	}

	c.mu.Lock()
	c.compact()
	c.mu.Unlock()
}

// nextDue claims the earliest live timer due by target.
func (c *Fake) nextDue(target time.Time) *fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.done && !t.at.After(target) {
			due = append(due, t)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].at.Equal(due[j].at) {
			return due[i].seq < due[j].seq
		}
		return due[i].at.Before(due[j].at)
	})
	due[0].done = true
	return due[0]
}

func (c *Fake) compact() {
	live := c.timers[:0]
	for _, t := range c.timers {
		if !t.done {
			live = append(live, t)
		}
	}
	c.timers = live
}
