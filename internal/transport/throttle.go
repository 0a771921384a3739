package transport

import (
	"context"
	"sync"
	"time"
)

// Throttle enforces a minimum interval between consecutive requests to
// the same key (one key per platform/target). A zero interval disables
// waiting entirely.
type Throttle struct {
	interval time.Duration

	mu   sync.Mutex
	last map[string]time.Time

	// sleep is replaceable for tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewThrottle creates a throttle with the given minimum interval.
func NewThrottle(interval time.Duration) *Throttle {
	return &Throttle{
		interval: interval,
		last:     make(map[string]time.Time),
		sleep:    sleepCtx,
	}
}

// Wait blocks until at least the configured interval has elapsed since
// the previous Wait for the same key, or ctx is cancelled.
func (t *Throttle) Wait(ctx context.Context, key string) error {
	if t == nil || t.interval <= 0 {
		return nil
	}

	t.mu.Lock()
	now := time.Now()
	var delay time.Duration
	if prev, ok := t.last[key]; ok {
		if elapsed := now.Sub(prev); elapsed < t.interval {
			delay = t.interval - elapsed
		}
	}
	t.last[key] = now.Add(delay)
	t.mu.Unlock()

	if delay > 0 {
		return t.sleep(ctx, delay)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
