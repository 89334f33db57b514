package backoff

import (
	"context"
	"time"
)

// Delayer waits out a backoff delay.
type Delayer interface {
	Delay(ctx context.Context, d time.Duration) error
}

// TimerDelayer waits on a time.Timer, returning early when ctx is done.
type TimerDelayer struct{}

func (TimerDelayer) Delay(ctx context.Context, d time.Duration) error {
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

// NoopDelayer returns immediately.
type NoopDelayer struct{}

func (NoopDelayer) Delay(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}
