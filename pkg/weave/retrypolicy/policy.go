// Package retrypolicy implements retry with exponential backoff for
// transient agent failures.
//
// A Policy describes how many attempts to make and how long to wait
// between them. Do runs a function under a policy, classifying each
// failure to decide whether another attempt is worthwhile.
package retrypolicy

import (
	"context"
	"math/rand/v2"
	"time"
)

// Policy configures retry behavior for a single operation.
type Policy struct {
	// MaxAttempts is the maximum number of attempts (including the first).
	MaxAttempts int

	// InitialDelay is the wait after the first failure.
	InitialDelay time.Duration

	// MaxDelay caps the wait between attempts.
	MaxDelay time.Duration

	// Multiplier grows the delay after each failed attempt.
	Multiplier float64

	// Jitter is the random jitter factor (0.0-1.0) applied to each delay.
	Jitter float64

	// RetryableFunc optionally overrides the default retryability check.
	RetryableFunc func(error) bool
}

// Default is the standard policy for agent invocations.
var Default = Policy{
	MaxAttempts:  3,
	InitialDelay: 1 * time.Second,
	MaxDelay:     30 * time.Second,
	Multiplier:   2.0,
	Jitter:       0.1,
}

// Aggressive retries more times with shorter delays.
var Aggressive = Policy{
	MaxAttempts:  5,
	InitialDelay: 500 * time.Millisecond,
	MaxDelay:     10 * time.Second,
	Multiplier:   1.5,
	Jitter:       0.2,
}

// None disables retries.
var None = Policy{
	MaxAttempts: 1,
}

// Result reports the outcome of a retried operation.
type Result[T any] struct {
	// Value is the result if any attempt succeeded.
	Value T

	// Err is the final error if all attempts failed.
	Err error

	// Attempts is the number of attempts made.
	Attempts int

	// Duration is the total time spent across attempts and delays.
	Duration time.Duration
}

// Do executes fn under the policy, respecting context cancellation
// between attempts and during backoff.
func Do[T any](ctx context.Context, p Policy, fn func(context.Context) (T, error)) Result[T] {
	start := time.Now()
	delay := p.InitialDelay
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	retryable := p.RetryableFunc
	if retryable == nil {
		retryable = Retryable
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Result[T]{Err: err, Attempts: attempt, Duration: time.Since(start)}
		}

		value, err := fn(ctx)
		if err == nil {
			return Result[T]{Value: value, Attempts: attempt + 1, Duration: time.Since(start)}
		}
		lastErr = err

		if !retryable(err) {
			return Result[T]{Err: err, Attempts: attempt + 1, Duration: time.Since(start)}
		}

		// Don't sleep after the last attempt.
		if attempt < attempts-1 {
			select {
			case <-ctx.Done():
				return Result[T]{Err: ctx.Err(), Attempts: attempt + 1, Duration: time.Since(start)}
			case <-time.After(withJitter(delay, p.Jitter)):
			}

			delay = time.Duration(float64(delay) * p.Multiplier)
			if p.MaxDelay > 0 && delay > p.MaxDelay {
				delay = p.MaxDelay
			}
		}
	}

	return Result[T]{Err: lastErr, Attempts: attempts, Duration: time.Since(start)}
}

func withJitter(d time.Duration, jitter float64) time.Duration {
	if jitter <= 0 || d <= 0 {
		return d
	}
	// Spread the delay over [d*(1-jitter), d*(1+jitter)].
	spread := float64(d) * jitter
	return time.Duration(float64(d) - spread + rand.Float64()*2*spread)
}
