package ratelimit

import (
	"context"
	"testing"
	"time"
)

// fakeClock advances only when the governor sleeps.
type fakeClock struct {
	now    time.Time
	slept  []time.Duration
	cancel bool
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if c.cancel {
		return context.Canceled
	}
	c.slept = append(c.slept, d)
	c.now = c.now.Add(d)
	return nil
}

func newTestGovernor(ratePerMinute int) (*Governor, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	g := New(ratePerMinute)
	g.now = clock.Now
	g.sleep = clock.Sleep
	return g, clock
}

func TestAcquireFirstCallDoesNotBlock(t *testing.T) {
	g, clock := newTestGovernor(50)
	if err := g.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire should not fail: %v", err)
	}
	if len(clock.slept) != 0 {
		t.Fatalf("first acquire should not sleep, slept %v", clock.slept)
	}
}

func TestAcquireSpacesSuccessiveCalls(t *testing.T) {
	g, clock := newTestGovernor(60) // one call per second

	for i := 0; i < 3; i++ {
		if err := g.Acquire(context.Background()); err != nil {
			t.Fatalf("acquire %d failed: %v", i, err)
		}
	}

	if len(clock.slept) != 2 {
		t.Fatalf("expected 2 sleeps, got %d", len(clock.slept))
	}
	for _, d := range clock.slept {
		if d != time.Second {
			t.Fatalf("expected 1s spacing, slept %v", d)
		}
	}
}

func TestAcquireSkipsSleepAfterNaturalDelay(t *testing.T) {
	g, clock := newTestGovernor(60)

	if err := g.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	clock.now = clock.now.Add(2 * time.Second)
	if err := g.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}

	if len(clock.slept) != 0 {
		t.Fatalf("no sleep expected when interval already elapsed, slept %v", clock.slept)
	}
}

func TestAcquireZeroRateDisablesThrottle(t *testing.T) {
	g, clock := newTestGovernor(0)
	for i := 0; i < 5; i++ {
		if err := g.Acquire(context.Background()); err != nil {
			t.Fatalf("acquire failed: %v", err)
		}
	}
	if len(clock.slept) != 0 {
		t.Fatalf("unthrottled governor should never sleep, slept %v", clock.slept)
	}
}

func TestAcquireHonoursCancellation(t *testing.T) {
	g, clock := newTestGovernor(60)
	if err := g.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}

	clock.cancel = true
	if err := g.Acquire(context.Background()); err == nil {
		t.Fatal("cancelled acquire should surface the context error")
	}
}
