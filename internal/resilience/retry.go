package resilience

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/booksflow/booksflow/internal/common"
	"github.com/booksflow/booksflow/internal/service"
)

// WithRetry executes an operation with bounded retries and exponential
// backoff: the delay before attempt k+1 is BaseDelay << (k-1), capped at
// MaxDelay. Errors classified as non-retryable surface immediately, as does
// an open circuit breaker encountered mid-loop; waiting out the backoff
// cannot help either case.
func WithRetry(ctx context.Context, op func(context.Context) error, opts service.RetryOptions) error {
	opts = opts.Normalize()

	var lastErr error
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		if !common.IsRetryable(lastErr) {
			return lastErr
		}
		var unavailable *common.ServiceUnavailableError
		if errors.As(lastErr, &unavailable) {
			return lastErr
		}

		if attempt == opts.MaxAttempts {
			break
		}

		delay := backoff(opts.BaseDelay, attempt, opts.MaxDelay)
		slog.Warn("operation failed, retrying",
			"attempt", attempt,
			"max_attempts", opts.MaxAttempts,
			"delay", delay,
			"error", lastErr)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return lastErr
}

// backoff computes the delay after a failed attempt (1-based).
func backoff(base time.Duration, attempt int, maxDelay time.Duration) time.Duration {
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxDelay {
			return maxDelay
		}
	}
	if delay > maxDelay {
		delay = maxDelay
	}
	return delay
}
