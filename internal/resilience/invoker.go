package resilience

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/booksflow/booksflow/internal/common"
	"github.com/booksflow/booksflow/internal/service"
)

// CallAttempt records one attempt of a remote operation. Attempts are
// transient: they exist for logging within a single invocation.
type CallAttempt struct {
	Start     time.Time
	Operation string
	Err       error
	Attempt   int
}

// Invoker is the entry point for all remote provider calls. It composes the
// per-dependency circuit breaker, the retry loop and a per-call timeout
// around a supplied operation.
type Invoker struct {
	registry *Registry
	logger   *slog.Logger
}

// NewInvoker creates an invoker backed by a breaker registry.
func NewInvoker(registry *Registry, logger *slog.Logger) *Invoker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Invoker{registry: registry, logger: logger}
}

// Invoke runs op against the named dependency. Each retry attempt passes
// back through the dependency's breaker, so a breaker trip during retries
// short-circuits the remaining attempts instead of waiting out the backoff.
// Exhausted retries surface as ExternalServiceError with the attempt count.
func (i *Invoker) Invoke(ctx context.Context, dependency string, op func(context.Context) error, opts service.RetryOptions) error {
	opts = opts.Normalize()
	breaker := i.registry.Get(dependency)

	attempts := 0
	err := WithRetry(ctx, func(ctx context.Context) error {
		attempts++
		attempt := CallAttempt{
			Operation: dependency,
			Attempt:   attempts,
			Start:     time.Now(),
		}

		attempt.Err = breaker.Execute(ctx, func(ctx context.Context) error {
			callCtx, cancel := context.WithTimeout(ctx, opts.CallTimeout)
			defer cancel()
			return op(callCtx)
		})

		i.logger.Debug("remote call attempt",
			"dependency", attempt.Operation,
			"attempt", attempt.Attempt,
			"duration", time.Since(attempt.Start),
			"error", attempt.Err)
		return attempt.Err
	}, opts)
	if err == nil {
		return nil
	}

	// Fast-fail and non-retryable errors keep their type; only genuinely
	// exhausted remote failures get wrapped with the attempt count.
	var unavailable *common.ServiceUnavailableError
	var validation *common.ValidationError
	if errors.As(err, &unavailable) || errors.As(err, &validation) {
		return err
	}
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return err
	}
	if !common.IsRetryable(err) {
		return err
	}

	return &common.ExternalServiceError{
		Dependency: dependency,
		Attempts:   attempts,
		Err:        err,
	}
}

// Call invokes op through inv and returns its typed result. A zero value is
// returned on error.
func Call[T any](ctx context.Context, inv *Invoker, dependency string, op func(context.Context) (T, error), opts service.RetryOptions) (T, error) {
	var result T
	err := inv.Invoke(ctx, dependency, func(ctx context.Context) error {
		var opErr error
		result, opErr = op(ctx)
		return opErr
	}, opts)
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
