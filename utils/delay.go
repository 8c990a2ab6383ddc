package utils

import (
	"context"
	"time"
)

// Pause sleeps for d, returning early with ctx.Err() if ctx is done first.
// A zero or negative d returns immediately.
func Pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
