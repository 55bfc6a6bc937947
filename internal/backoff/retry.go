package backoff

import (
	"context"
	"errors"
	"time"
)

// ErrMaxAttemptsExhausted is returned when all retry attempts have been exhausted.
var ErrMaxAttemptsExhausted = errors.New("max retry attempts exhausted")

// RetryResult holds the result of a retry operation.
type RetryResult[T any] struct {
	// Value is the successful result value.
	Value T
	// Attempts is the number of attempts made (1-indexed).
	Attempts int
	// LastError is the last error encountered, if any.
	LastError error
}

// RetryHook observes a failed attempt that is about to be retried and
// returns the delay to actually sleep for, letting a caller shrink the
// computed exponential delay (e.g. to honor a transport's own
// retry-after guidance) and emit its own progress events in the same
// place it learns the real sleep duration.
type RetryHook func(attempt int, err error, computed time.Duration) time.Duration

// RetryWithBackoff executes the provided function with exponential backoff retry logic.
// It will retry up to maxAttempts times, sleeping between attempts according to the policy.
// Returns the result on success, or an error after all attempts are exhausted or context is cancelled.
//
// The fn function receives the current attempt number (1-indexed) and should return:
//   - (value, nil) on success
//   - (zero, error) on failure (will trigger retry if attempts remain)
//
// Context cancellation is checked between attempts, allowing graceful shutdown.
func RetryWithBackoff[T any](
	ctx context.Context,
	policy BackoffPolicy,
	maxAttempts int,
	fn func(attempt int) (T, error),
) (RetryResult[T], error) {
	return RetryWithBackoffHook(ctx, policy, maxAttempts, nil, nil, fn)
}

// RetryWithBackoffHook is RetryWithBackoff generalized with two optional
// hooks that run only between a failed attempt and its retry sleep:
// shouldRetry decides whether a given attempt/error is worth retrying at
// all (a nil shouldRetry always retries, matching RetryWithBackoff), and
// onRetry observes the retry and may shrink its delay. When shouldRetry
// rejects an attempt, RetryWithBackoffHook returns immediately with that
// attempt's own error rather than ErrMaxAttemptsExhausted, since the
// caller has already decided no further attempt would help.
func RetryWithBackoffHook[T any](
	ctx context.Context,
	policy BackoffPolicy,
	maxAttempts int,
	shouldRetry func(attempt int, err error) bool,
	onRetry RetryHook,
	fn func(attempt int) (T, error),
) (RetryResult[T], error) {
	var result RetryResult[T]
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result.Attempts = attempt

		// Check context before each attempt
		if err := ctx.Err(); err != nil {
			result.LastError = lastErr
			return result, err
		}

		// Execute the function
		value, err := fn(attempt)
		if err == nil {
			result.Value = value
			return result, nil
		}

		lastErr = err
		result.LastError = err

		if err := ctx.Err(); err != nil {
			return result, err
		}
		if shouldRetry != nil && !shouldRetry(attempt, err) {
			return result, err
		}

		// Don't sleep after the last attempt
		if attempt < maxAttempts {
			delay := ComputeBackoff(policy, attempt)
			if onRetry != nil {
				delay = onRetry(attempt, err, delay)
			}
			if err := SleepWithContext(ctx, delay); err != nil {
				return result, err
			}
		}
	}

	return result, ErrMaxAttemptsExhausted
}

// RetryFunc is a convenience wrapper for RetryWithBackoff that uses the default policy.
// It executes the provided function with exponential backoff retry logic.
func RetryFunc[T any](
	ctx context.Context,
	maxAttempts int,
	fn func(attempt int) (T, error),
) (T, error) {
	result, err := RetryWithBackoff(ctx, DefaultPolicy(), maxAttempts, fn)
	return result.Value, err
}

// RetrySimple is a convenience wrapper for simple retry cases without return values.
// It uses the default policy and retries the function up to maxAttempts times.
func RetrySimple(
	ctx context.Context,
	maxAttempts int,
	fn func() error,
) error {
	_, err := RetryWithBackoff(ctx, DefaultPolicy(), maxAttempts, func(_ int) (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}
