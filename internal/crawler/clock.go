package crawler

import (
	"context"
	"time"
)

var _ Clock = (*systemClock)(nil)

// Clock suspends the caller for a backoff delay.
type Clock interface {
	// Sleep waits for the duration or until the context is done, whichever comes first.
	Sleep(ctx context.Context, d time.Duration) error
}

type systemClock struct{}

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err() // nolint: wrapcheck

	case <-t.C:
		return nil
	}
}

// SystemClock returns a clock that sleeps in real time.
func SystemClock() Clock {
	return systemClock{}
}
