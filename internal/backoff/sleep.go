package backoff

import (
	"context"
	"time"
)

// SleepWithContext blocks for duration, returning early with ctx.Err() if
// ctx is cancelled first. A non-positive duration returns immediately.
func SleepWithContext(ctx context.Context, duration time.Duration) error {
	if duration <= 0 {
		return nil
	}

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// SleepWithBackoff sleeps for policy's computed delay at attempt, or returns
// early if ctx is cancelled. Used between retries in RetryWithBackoff.
func SleepWithBackoff(ctx context.Context, policy RetryPolicy, attempt int) error {
	duration := ComputeBackoff(policy, attempt)
	return SleepWithContext(ctx, duration)
}
