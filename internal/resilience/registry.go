package resilience

import (
	"sync"
	"time"
)

// Well-known dependency names.
const (
	DependencyOCR        = "ocr"
	DependencyCategorize = "categorize"
	DependencyBooksSync  = "books-sync"
)

// Registry maps dependency names to their circuit breakers. It replaces any
// notion of module-level breaker state: callers hold a registry and pass it
// into the Invoker, which keeps ownership explicit and testable.
type Registry struct {
	breakers  map[string]*Breaker
	threshold int
	recovery  time.Duration
	mu        sync.RWMutex
}

// NewRegistry creates a registry whose breakers use the given defaults.
func NewRegistry(threshold int, recovery time.Duration) *Registry {
	return &Registry{
		breakers:  make(map[string]*Breaker),
		threshold: threshold,
		recovery:  recovery,
	}
}

// Get returns the breaker for a dependency, creating it on first use.
func (r *Registry) Get(name string) *Breaker {
	r.mu.RLock()
	b, ok := r.breakers[name]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok = r.breakers[name]; ok {
		return b
	}
	b = NewBreaker(name, r.threshold, r.recovery)
	r.breakers[name] = b
	return b
}
