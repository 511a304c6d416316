// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"math/rand"
	"time"
)

// RetryConfig holds retry configuration.
type RetryConfig struct {
	MaxAttempts     int                          // Total attempts, including the first
	InitialInterval time.Duration                // Delay before the second attempt
	MaxInterval     time.Duration                // Upper bound on any single delay
	Multiplier      float64                      // Exponential backoff multiplier (2.0 doubles each attempt)
	AttemptTimeout  time.Duration                // Deadline applied to each attempt; zero means none
	Jitter          bool                         // Add up to 25% random jitter to spread retries
	OnRetry         func(attempt int, err error) // Optional callback invoked before each retry
}

// DefaultRetryConfig returns the defaults used for remote classifier calls:
// three attempts, one and two second pauses, twenty seconds per attempt.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     3,
		InitialInterval: 1 * time.Second,
		MaxInterval:     30 * time.Second,
		Multiplier:      2.0,
		AttemptTimeout:  20 * time.Second,
	}
}

// RetryableOperation represents an operation that can be retried.
type RetryableOperation func(ctx context.Context) error

// Delay returns the pause before the given attempt (attempt 1 is the first
// retry): InitialInterval * Multiplier^(attempt-1), capped at MaxInterval.
func (c RetryConfig) Delay(attempt int) time.Duration {
	delay := float64(c.InitialInterval)
	for i := 1; i < attempt; i++ {
		delay *= c.Multiplier
	}
	if c.Jitter {
		delay += delay * 0.25 * rand.Float64()
	}
	if c.MaxInterval > 0 {
		return min(time.Duration(delay), c.MaxInterval)
	}
	return time.Duration(delay)
}

// RetryWithBackoff executes an operation with exponential backoff. Each
// attempt runs under its own AttemptTimeout so a hung backend can never
// block the caller indefinitely. Cancelling ctx stops retries at once.
func RetryWithBackoff(ctx context.Context, config RetryConfig, operation RetryableOperation) error {
	attempts := max(config.MaxAttempts, 1)
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(config.Delay(attempt)):
			}

			if config.OnRetry != nil {
				config.OnRetry(attempt, lastErr)
			}
		}

		err := runAttempt(ctx, config.AttemptTimeout, operation)
		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !ClassifyError(err).IsRetryable() {
			return err
		}
	}

	return lastErr
}

func runAttempt(ctx context.Context, timeout time.Duration, operation RetryableOperation) error {
	if timeout <= 0 {
		return operation(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return operation(attemptCtx)
}

// RetryableFunc is a convenience type for retryable functions that return a value.
type RetryableFunc[T any] func(ctx context.Context) (T, error)

// RetryWithResult executes a function that returns a result and error with retry logic.
func RetryWithResult[T any](ctx context.Context, config RetryConfig, fn RetryableFunc[T]) (T, error) {
	var result T
	err := RetryWithBackoff(ctx, config, func(ctx context.Context) error {
		var e error
		result, e = fn(ctx)
		return e
	})
	return result, err
}

// RetryWithCircuitBreaker runs the whole retry loop behind a circuit breaker,
// so an open breaker fails fast instead of burning the retry budget.
func RetryWithCircuitBreaker(ctx context.Context, retryConfig RetryConfig, cb *CircuitBreaker, operation RetryableOperation) error {
	return cb.Execute(ctx, func(ctx context.Context) error {
		return RetryWithBackoff(ctx, retryConfig, operation)
	})
}

// IsRetryable reports whether an error should be retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return ClassifyError(err).IsRetryable()
}
