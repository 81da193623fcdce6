// Package resilience wraps remote provider calls with circuit breaking,
// bounded retries and timeouts.
package resilience

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/booksflow/booksflow/internal/common"
)

// State is the circuit breaker state.
type State int

// Breaker states.
const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// Default breaker configuration.
const (
	DefaultFailureThreshold = 5
	DefaultRecoveryTimeout  = 60 * time.Second
)

// Breaker tracks consecutive failures for one external dependency and fast
// fails calls while the dependency is considered unhealthy. One breaker
// exists per dependency and is shared across all concurrent calls to it.
type Breaker struct {
	lastFailure time.Time
	name        string
	failures    int
	threshold   int
	recovery    time.Duration
	state       State
	probing     bool
	mu          sync.Mutex
}

// NewBreaker creates a closed breaker for the named dependency.
func NewBreaker(name string, threshold int, recovery time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = DefaultFailureThreshold
	}
	if recovery <= 0 {
		recovery = DefaultRecoveryTimeout
	}
	return &Breaker{
		name:      name,
		threshold: threshold,
		recovery:  recovery,
		state:     StateClosed,
	}
}

// Execute runs op if the breaker admits the call, recording the outcome.
// While the breaker is open and the recovery timeout has not elapsed, it
// fails fast with a ServiceUnavailableError and op is never invoked. After
// the timeout, exactly one probe call passes through in half-open state; its
// outcome decides whether the breaker closes or reopens.
func (b *Breaker) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := b.allow(); err != nil {
		return err
	}

	err := op(ctx)
	if err != nil {
		b.recordFailure()
		return err
	}
	b.recordSuccess()
	return nil
}

// State returns the current breaker state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil
	case StateOpen:
		remaining := b.recovery - time.Since(b.lastFailure)
		if remaining > 0 {
			return &common.ServiceUnavailableError{
				Dependency: b.name,
				RetryAfter: remaining.Round(time.Second).String(),
			}
		}
		// Recovery window elapsed: admit a single probe.
		b.state = StateHalfOpen
		b.probing = true
		slog.Info("circuit breaker probing", "dependency", b.name)
		return nil
	default: // StateHalfOpen
		if b.probing {
			return &common.ServiceUnavailableError{Dependency: b.name}
		}
		b.probing = true
		return nil
	}
}

func (b *Breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen {
		slog.Info("circuit breaker closed", "dependency", b.name)
	}
	b.state = StateClosed
	b.failures = 0
	b.probing = false
}

func (b *Breaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailure = time.Now()
	b.probing = false

	if b.state == StateHalfOpen {
		// Failed probe: back to open with a fresh recovery window.
		b.state = StateOpen
		slog.Warn("circuit breaker reopened", "dependency", b.name)
		return
	}

	if b.failures >= b.threshold {
		b.state = StateOpen
		slog.Warn("circuit breaker opened",
			"dependency", b.name,
			"consecutive_failures", b.failures,
			"recovery_timeout", b.recovery)
	}
}
