package utils

import (
	"context"
	"fmt"
	"time"
)

// Retry runs fn up to maxRetries times.
// If fn returns nil (success) it stops immediately.
// If fn keeps failing, it waits longer each attempt (exponential backoff)
// and returns the last error after all attempts are exhausted.
//
//	attempt 1 fails → wait base
//	attempt 2 fails → wait 2*base
//	attempt 3 fails → wait 4*base
//
// A cancelled ctx stops the wait and returns ctx.Err().
func Retry(ctx context.Context, maxRetries int, base time.Duration, fn func() error) error {
	if maxRetries < 1 {
		maxRetries = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if attempt < maxRetries {
			wait := base * time.Duration(1<<uint(attempt-1))
			Warn("Attempt %d/%d failed: %v, retrying in %v", attempt, maxRetries, lastErr, wait)
			if err := Pause(ctx, wait); err != nil {
				return err
			}
		}
	}

	return fmt.Errorf("all %d attempts failed, last error: %w", maxRetries, lastErr)
}
