package crawler

import (
	"context"
	"time"
)

// Throttle spaces outbound requests by a fixed interval.
// The first Wait returns immediately; every later Wait sleeps for the interval.
type Throttle struct {
	interval time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
	started  bool
}

// NewThrottle creates a throttle with the given interval
func NewThrottle(interval time.Duration) *Throttle {
	return &Throttle{
		interval: interval,
		sleep:    sleepContext,
	}
}

// Wait blocks until the next request may be sent or ctx is done
func (t *Throttle) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !t.started {
		t.started = true
		return nil
	}
	if t.interval <= 0 {
		return nil
	}
	return t.sleep(ctx, t.interval)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
