// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Common application errors.
var (
	// ErrNotFound indicates a requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized indicates the remote provider rejected our credentials.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrRateLimit indicates a provider rate limit has been exceeded.
	ErrRateLimit = errors.New("rate limit exceeded")
	// ErrMalformedResponse indicates a provider response failed schema validation.
	ErrMalformedResponse = errors.New("malformed provider response")
	// ErrMaxRetries indicates all retry attempts have been exhausted.
	ErrMaxRetries = errors.New("max retries exceeded")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ValidationError represents malformed input. It is never retried and
// surfaces to the caller immediately.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Msg)
	}
	return fmt.Sprintf("validation failed: %s", e.Msg)
}

// NewValidationError creates a validation error for a named field.
func NewValidationError(field, msg string) error {
	return &ValidationError{Field: field, Msg: msg}
}

// ServiceUnavailableError indicates a circuit breaker is open: the call
// failed fast and no remote operation was attempted.
type ServiceUnavailableError struct {
	Dependency string
	RetryAfter string
}

func (e *ServiceUnavailableError) Error() string {
	if e.RetryAfter != "" {
		return fmt.Sprintf("%s unavailable, retry after %s", e.Dependency, e.RetryAfter)
	}
	return fmt.Sprintf("%s unavailable", e.Dependency)
}

// ExternalServiceError indicates a remote call failed after exhausting
// retries. It carries the attempt count and the last underlying error.
type ExternalServiceError struct {
	Err        error
	Dependency string
	Attempts   int
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts: %v", e.Dependency, e.Attempts, e.Err)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}

// ConflictError indicates an attempted link onto a ledger entry that is
// already linked to a different receipt. The existing link is left untouched.
type ConflictError struct {
	EntryID            string
	ConflictingReceipt uuid.UUID
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("ledger entry %s is already linked to receipt %s", e.EntryID, e.ConflictingReceipt)
}

// RetryableError wraps an error with explicit retry metadata, for call sites
// that know better than the default classification.
type RetryableError struct {
	Err       error
	Retryable bool
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// IsRetryable determines whether an error should trigger a retry.
// Validation, authorization, not-found and conflict errors never retry;
// timeouts, rate limits and unclassified remote failures do.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return false
	}
	var conflictErr *ConflictError
	if errors.As(err, &conflictErr) {
		return false
	}
	var unavailableErr *ServiceUnavailableError
	if errors.As(err, &unavailableErr) {
		return false
	}
	if errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrMalformedResponse) ||
		errors.Is(err, context.Canceled) {
		return false
	}

	// Timeouts and rate limits are transient.
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrRateLimit) {
		return true
	}

	// Unclassified remote failures default to retryable.
	return true
}
