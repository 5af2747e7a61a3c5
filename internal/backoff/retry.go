package backoff

import (
	"context"
	"errors"
)

// ErrMaxAttemptsExhausted is returned when a retry loop runs out of attempts
// without fn ever succeeding.
var ErrMaxAttemptsExhausted = errors.New("max retry attempts exhausted")

// RetryResult holds the outcome of RetryWithBackoff's loop, including how
// many attempts it took — remote.Sink discards this and keeps only the
// error, but it's threaded through for callers (and tests) that want to
// assert on attempt counts directly.
type RetryResult[T any] struct {
	Value     T
	Attempts  int
	LastError error
}

// RetryWithBackoff calls fn until it succeeds, fn has been tried
// maxAttempts times, or ctx is cancelled — sleeping between attempts per
// policy. fn receives the 1-indexed attempt number.
//
// This is the retry loop behind remote.Sink.Send's best-effort OTLP export
// (§6): a finalized session is worth a bounded number of retries, never a
// blocking or unbounded one.
func RetryWithBackoff[T any](
	ctx context.Context,
	policy RetryPolicy,
	maxAttempts int,
	fn func(attempt int) (T, error),
) (RetryResult[T], error) {
	var result RetryResult[T]
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result.Attempts = attempt

		if err := ctx.Err(); err != nil {
			result.LastError = lastErr
			return result, err
		}

		value, err := fn(attempt)
		if err == nil {
			result.Value = value
			return result, nil
		}

		lastErr = err
		result.LastError = err

		if attempt < maxAttempts {
			if err := SleepWithBackoff(ctx, policy, attempt); err != nil {
				return result, err
			}
		}
	}

	return result, ErrMaxAttemptsExhausted
}
