// Package ratelimit gates outbound calls toward an upstream data source to a
// configured requests-per-minute ceiling.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Governor spaces successive Acquire calls at least minInterval apart. It
// never fails; it only delays. The timing state is private to the governor.
type Governor struct {
	mu          sync.Mutex
	minInterval time.Duration
	lastCall    time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New constructs a governor for the given requests-per-minute ceiling. A
// non-positive rate disables throttling.
func New(ratePerMinute int) *Governor {
	var interval time.Duration
	if ratePerMinute > 0 {
		interval = time.Minute / time.Duration(ratePerMinute)
	}
	return &Governor{
		minInterval: interval,
		now:         time.Now,
		sleep:       sleepCtx,
	}
}

// Acquire blocks until at least the minimum interval has elapsed since the
// previous Acquire returned. The only early exit is context cancellation,
// which aborts the calling cycle.
func (g *Governor) Acquire(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.minInterval > 0 && !g.lastCall.IsZero() {
		elapsed := g.now().Sub(g.lastCall)
		if wait := g.minInterval - elapsed; wait > 0 {
			if err := g.sleep(ctx, wait); err != nil {
				return err
			}
		}
	}

	g.lastCall = g.now()
	return nil
}

// MinInterval reports the derived spacing between calls.
func (g *Governor) MinInterval() time.Duration {
	return g.minInterval
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
