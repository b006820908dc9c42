package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/dp287517/electrohub-assistant/pkg/provider"
)

// RetryExhaustedError reports that every attempt of a provider call
// failed with a retryable error. It carries the last failure.
type RetryExhaustedError struct {
	Attempts int
	Last     error
}

// Error implements the error interface.
func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("provider call failed after %d attempts: %v", e.Attempts, e.Last)
}

// Unwrap exposes the last failure so callers can classify it
// (errors.As for *provider.Error still works through the wrapper).
func (e *RetryExhaustedError) Unwrap() error { return e.Last }

// withRetry runs fn up to attempts times, sleeping base * 2^(k-2) before
// attempt k (1s, 2s for a 3-attempt policy with a 1s base). Only errors
// the provider classified as transient or quota are retried; fatal errors
// return immediately without delay. The delay is applied only between
// attempts, never after the final one.
//
// This executor wraps provider calls and nothing else: tool invocations
// are never retried, a failing tool simply becomes a failed result.
func withRetry(ctx context.Context, attempts int, base time.Duration, fn func(ctx context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}

	backoff := retry.WithMaxRetries(uint64(attempts-1), retry.NewExponential(base))

	tries := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		tries++
		if callErr := fn(ctx); callErr != nil {
			if provider.Retryable(callErr) {
				return retry.RetryableError(callErr)
			}
			return callErr
		}
		return nil
	})
	if err == nil {
		return nil
	}

	// retry.Do returns the bare last error. If it was retryable, the
	// budget is exhausted; mark it so failover can tell the difference
	// between "gave up" and "refused to try".
	if provider.Retryable(err) && tries >= attempts {
		return &RetryExhaustedError{Attempts: tries, Last: err}
	}
	return err
}
