// Package registry provides the process-wide lookup from a GroupKey to
// its singleton breaker, bulkhead, and fallback gate, per spec.md §3 and
// §4.6. Entries are created lazily on first reference for a key and are
// never removed, matching spec.md's stated lifecycle.
package registry

import (
	"sync"

	"github.com/latchbreaker/latchbreaker/breaker"
	"github.com/latchbreaker/latchbreaker/bulkhead"
	"github.com/latchbreaker/latchbreaker/command"
	"github.com/latchbreaker/latchbreaker/config"
	"github.com/latchbreaker/latchbreaker/corelog"
	"github.com/latchbreaker/latchbreaker/fallback"
	"github.com/latchbreaker/latchbreaker/metrics"
)

// Registry is a read-mostly, lazily-populated map from GroupKey to the
// three process-lifetime singletons spec.md §3 names. Grounded on the
// teacher's ai.ProviderRegistry (ai/registry.go): same
// sync.RWMutex-guarded map plus double-checked-lock lazy creation, here
// generalized from a flat name->factory table to three parallel tables
// keyed by the same GroupKey, and from explicit Register() to
// get-or-create-on-first-use.
type Registry struct {
	mu sync.RWMutex

	breakers   map[command.GroupKey]*breaker.CircuitBreaker
	bulkheads  map[command.GroupKey]*bulkhead.Semaphore
	fallbacks  map[command.GroupKey]*fallback.Gate

	provider config.Provider
	logger   corelog.Logger
	sink     metrics.Sink
}

// New builds an explicit, non-global Registry instance. Per SPEC_FULL.md
// §9's Open Question resolution, this is offered alongside the default
// global registry for callers (typically tests) who want an isolated
// instance rather than process-wide shared state.
func New(provider config.Provider, logger corelog.Logger, sink metrics.Sink) *Registry {
	if logger == nil {
		logger = corelog.NoOpLogger{}
	}
	if sink == nil {
		sink = metrics.NoopSink{}
	}
	return &Registry{
		breakers:  make(map[command.GroupKey]*breaker.CircuitBreaker),
		bulkheads: make(map[command.GroupKey]*bulkhead.Semaphore),
		fallbacks: make(map[command.GroupKey]*fallback.Gate),
		provider:  provider,
		logger:    logger,
		sink:      sink,
	}
}

// global is the default process-wide registry, lazily used by callers
// that do not construct their own via New.
var global = New(nil, nil, nil)

// Global returns the default process-wide registry.
func Global() *Registry { return global }

// Breaker returns the singleton breaker for key, creating it with
// spec.md §4.3 defaults on first reference.
func (r *Registry) Breaker(key command.GroupKey) *breaker.CircuitBreaker {
	r.mu.RLock()
	cb, ok := r.breakers[key]
	r.mu.RUnlock()
	if ok {
		return cb
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cb, ok := r.breakers[key]; ok {
		return cb
	}
	cb = breaker.New(breaker.Config{
		Key:      string(key),
		Provider: r.provider,
		Logger:   r.logger,
		Sink:     r.sink,
	})
	r.breakers[key] = cb
	return cb
}

// Bulkhead returns the singleton semaphore bulkhead for key, creating it
// with spec.md §4.4 defaults on first reference.
func (r *Registry) Bulkhead(key command.GroupKey) *bulkhead.Semaphore {
	r.mu.RLock()
	bh, ok := r.bulkheads[key]
	r.mu.RUnlock()
	if ok {
		return bh
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if bh, ok := r.bulkheads[key]; ok {
		return bh
	}
	bh = bulkhead.NewSemaphore(string(key), bulkhead.DefaultMaxConcurrent, r.provider, r.logger)
	r.bulkheads[key] = bh
	return bh
}

// Fallback returns the singleton fallback gate for key, creating it with
// spec.md §4.5 defaults on first reference.
func (r *Registry) Fallback(key command.GroupKey) *fallback.Gate {
	r.mu.RLock()
	fg, ok := r.fallbacks[key]
	r.mu.RUnlock()
	if ok {
		return fg
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if fg, ok := r.fallbacks[key]; ok {
		return fg
	}
	maxConcurrent := fallback.DefaultMaxConcurrent
	if r.provider != nil {
		maxConcurrent = r.provider.Int("mjolnir.fallback."+string(key)+".maxConcurrent", maxConcurrent)
	}
	fg = fallback.New(string(key), maxConcurrent)
	r.fallbacks[key] = fg
	return fg
}
