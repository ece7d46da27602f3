package clock

import (
	"context"
	"testing"
	"time"
)

func TestFakeAdvanceOrder(t *testing.T) {
	c := NewFake(time.Unix(0, 0))
	var fired []string

	c.AfterFunc(2*time.Second, func() { fired = append(fired, "b") })
	c.AfterFunc(time.Second, func() { fired = append(fired, "a") })
	stopped := c.AfterFunc(1500*time.Millisecond, func() { fired = append(fired, "x") })
	if !stopped.Stop() {
		t.Fatal("Stop() = false on pending timer")
	}
	if stopped.Stop() {
		t.Error("second Stop() = true")
	}

	c.Advance(1999 * time.Millisecond)
	if len(fired) != 1 || fired[0] != "a" {
		t.Fatalf("fired = %v", fired)
	}
	c.Advance(time.Millisecond)
	if len(fired) != 2 || fired[1] != "b" {
		t.Fatalf("fired = %v", fired)
	}
	if c.Pending() != 0 {
		t.Errorf("Pending() = %d", c.Pending())
	}
	if got := c.Now(); !got.Equal(time.Unix(2, 0)) {
		t.Errorf("Now() = %v", got)
	}
}

func TestFakeTimerScheduledFromCallback(t *testing.T) {
	c := NewFake(time.Unix(0, 0))
	count := 0
	var tick func()
	tick = func() {
		count++
		c.AfterFunc(100*time.Millisecond, tick)
	}
	c.AfterFunc(100*time.Millisecond, tick)

	c.Advance(time.Second)
	if count != 10 {
		t.Errorf("count = %d, want 10", count)
	}
}

func TestSleepCancelled(t *testing.T) {
	c := NewFake(time.Unix(0, 0))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := Sleep(ctx, c, time.Second); err != context.Canceled {
		t.Errorf("Sleep() = %v, want Canceled", err)
	}
}

func TestSleepReal(t *testing.T) {
	start := time.Now()
	if err := Sleep(context.Background(), New(), 10*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if time.Since(start) < 10*time.Millisecond {
		t.Error("Sleep returned early")
	}
}

func TestFakeTicker(t *testing.T) {
	c := NewFake(time.Unix(0, 0))
	ticker := c.Ticker(100 * time.Millisecond)
	defer ticker.Stop()

	c.Advance(50 * time.Millisecond)
	select {
	case <-ticker.C:
		t.Fatal("ticked before the interval elapsed")
	default:
	}

	c.Advance(50 * time.Millisecond)
	select {
	case at := <-ticker.C:
		if !at.Equal(time.Unix(0, 0).Add(100 * time.Millisecond)) {
			t.Errorf("tick at %v", at)
		}
	case <-time.After(time.Second):
		t.Fatal("no tick after the interval elapsed")
	}
}
