// Package bulkhead implements the two admission-control variants of
// spec.md §4.4: a non-blocking semaphore bulkhead for synchronous
// commands, and a fixed-worker-plus-bounded-queue bulkhead for commands
// that run on an owned executor.
package bulkhead

import (
	"sync/atomic"

	"github.com/latchbreaker/latchbreaker/config"
	"github.com/latchbreaker/latchbreaker/corelog"
)

// Semaphore is Variant A: tryAcquire is non-blocking and returns false
// immediately if no permit is available; release always returns a
// permit. This is the default for synchronous commands.
//
// Grounded on the teacher's half-open single-flight CAS idiom
// (resilience.CircuitBreaker's probe-slot reservation), applied here to
// a fixed-size permit counter instead of a single boolean slot.
type Semaphore struct {
	key      string
	max      atomic.Int64
	inFlight atomic.Int64
	provider config.Provider
	logger   corelog.Logger
}

// NewSemaphore builds a semaphore bulkhead for key with the given
// maxConcurrent (spec.md default 10). If provider is non-nil,
// mjolnir.pools.<key>.threadCount overrides maxConcurrent on every
// acquire, per spec.md §4.4's "changes in maxConcurrent create a new
// underlying bulkhead atomically" requirement, implemented here as a
// live-read rather than a swapped instance since the permit count is
// already read fresh on every TryAcquire.
func NewSemaphore(key string, maxConcurrent int, provider config.Provider, logger corelog.Logger) *Semaphore {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	if logger == nil {
		logger = corelog.NoOpLogger{}
	}
	s := &Semaphore{key: key, provider: provider, logger: logger}
	s.max.Store(int64(maxConcurrent))
	return s
}

// DefaultMaxConcurrent matches spec.md §4.4's stated default.
const DefaultMaxConcurrent = 10

func (s *Semaphore) maxConcurrent() int64 {
	if s.provider == nil {
		return s.max.Load()
	}
	return int64(s.provider.Int("mjolnir.pools."+s.key+".threadCount", int(s.max.Load())))
}

// TryAcquire attempts to reserve one permit. It never blocks: on success
// it returns true and the caller must call Release exactly once; on
// failure (no permits available) it returns false and must not call
// Release.
func (s *Semaphore) TryAcquire() bool {
	limit := s.maxConcurrent()
	for {
		current := s.inFlight.Load()
		if current >= limit {
			return false
		}
		if s.inFlight.CompareAndSwap(current, current+1) {
			return true
		}
	}
}

// Release returns a permit. Must be called exactly once per successful
// TryAcquire, regardless of the command body's outcome.
func (s *Semaphore) Release() {
	s.inFlight.Add(-1)
}

// InFlight reports the number of permits currently held, for the
// "mjolnir pool <key> activeThreads" gauge metric of spec.md §6.
func (s *Semaphore) InFlight() int64 { return s.inFlight.Load() }
