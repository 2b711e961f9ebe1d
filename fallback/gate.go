// Package fallback implements the fallback gate of spec.md §4.5: a
// semaphore limiting how many fallback bodies may run concurrently for a
// given group key, independent of the primary command's own bulkhead.
package fallback

import "github.com/latchbreaker/latchbreaker/bulkhead"

// DefaultMaxConcurrent matches spec.md §4.5's stated default of 10.
const DefaultMaxConcurrent = 10

// Gate limits concurrent fallback executions per group key. It is
// symmetric with bulkhead.Semaphore by construction, per spec.md §4.5
// ("Acquire/release is symmetric with the bulkhead") and is built
// directly on it rather than duplicating the CAS-loop permit counter.
type Gate struct {
	sem *bulkhead.Semaphore
}

// New builds a fallback gate for key with maxConcurrent permits
// (spec.md default 10).
func New(key string, maxConcurrent int) *Gate {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	return &Gate{sem: bulkhead.NewSemaphore(key, maxConcurrent, nil, nil)}
}

// TryAcquire reserves one fallback slot, non-blocking. On success the
// caller must call Release exactly once after the fallback body
// completes, regardless of its outcome.
func (g *Gate) TryAcquire() bool { return g.sem.TryAcquire() }

// Release returns a fallback slot.
func (g *Gate) Release() { g.sem.Release() }
