// Package backoff computes the exponential-backoff-with-jitter delay the
// telemetry remote sink retries its best-effort OTLP export with (§6:
// "Remote sink (optional)... Failures are logged, never re-raised"). The
// remote sink is the only caller in this module, so the surface here is
// narrowed to one policy shape and one default curve rather than a preset
// library for callers this module doesn't have.
package backoff

import (
	"math"
	"math/rand"
	"time"
)

// RetryPolicy parameterizes one retry loop's backoff curve.
type RetryPolicy struct {
	// InitialMs is the delay before the first retry, in milliseconds.
	InitialMs float64
	// MaxMs caps the computed delay, in milliseconds.
	MaxMs float64
	// Factor is the multiplier applied per additional attempt.
	Factor float64
	// Jitter is the fraction (0.0-1.0) of the base delay added at random.
	Jitter float64
}

// ComputeBackoff returns the delay before retrying attempt, drawing jitter
// from the package's random source. Attempt numbers start at 1.
func ComputeBackoff(policy RetryPolicy, attempt int) time.Duration {
	return ComputeBackoffWithRand(policy, attempt, rand.Float64()) // #nosec G404 -- jitter does not require cryptographic randomness
}

// ComputeBackoffWithRand is ComputeBackoff with the random draw supplied by
// the caller, so the curve itself can be tested deterministically.
// randomValue is expected in [0.0, 1.0).
func ComputeBackoffWithRand(policy RetryPolicy, attempt int, randomValue float64) time.Duration {
	exp := math.Max(float64(attempt-1), 0)
	base := policy.InitialMs * math.Pow(policy.Factor, exp)
	jitterAmount := base * policy.Jitter * randomValue
	total := math.Min(policy.MaxMs, base+jitterAmount)
	return time.Duration(math.Round(total)) * time.Millisecond
}

// DefaultPolicy is the curve the remote sink retries OTLP exports with:
// 100ms initial delay, doubling, capped at 30s, 10% jitter.
func DefaultPolicy() RetryPolicy {
	return RetryPolicy{
		InitialMs: 100,
		MaxMs:     30000,
		Factor:    2,
		Jitter:    0.1,
	}
}
