package breaker

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// State is one of the three admission states spec.md §3 defines.
type State int32

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// CircuitBreaker is the three-state gate of spec.md §4.3: Closed admits
// everything, Open rejects everything until a cooldown elapses, and
// HalfOpen-Probe admits exactly one concurrent call whose outcome
// decides the next state.
//
// Grounded on the teacher's resilience.CircuitBreaker: atomic state,
// CAS-gated transition to the probe state so exactly one caller wins the
// single-flight race, and a mutex serializing the (state, openedAt) pair
// on write so readers always see a consistent tuple (spec.md §5).
type CircuitBreaker struct {
	cfg     Config
	state   atomic.Int32
	openedAt atomic.Int64 // unix nanos

	mu sync.Mutex // serializes transitions

	counter *RollingCounter
	metrics *CommandMetrics
}

// New builds a breaker for cfg.Key, starting Closed.
func New(cfg Config) *CircuitBreaker {
	cfg = cfg.withDefaults()
	counter := NewRollingCounter(cfg.WindowSize, cfg.BucketCount)
	cb := &CircuitBreaker{
		cfg:     cfg,
		counter: counter,
		metrics: NewCommandMetrics(counter),
	}
	cb.state.Store(int32(Closed))
	return cb
}

// Key is the breaker's GroupKey / breakerKey.
func (cb *CircuitBreaker) Key() string { return cb.cfg.Key }

// Metrics returns the command metrics view backing this breaker.
func (cb *CircuitBreaker) Metrics() *CommandMetrics { return cb.metrics }

// State returns the current state without mutating anything. Unlike
// IsAllowing, it never performs the Open→HalfOpen transition, so it is
// safe to call for diagnostics/logging without affecting admission.
func (cb *CircuitBreaker) State() State {
	return State(cb.state.Load())
}

// IsAllowing reports whether the caller may proceed. It is the only
// method that can transition Open→HalfOpen, and does so at most once per
// cooldown: the goroutine whose CAS wins becomes the sole admitted
// probe for this call; all others, including the same goroutine on any
// later call before the probe resolves, see false.
func (cb *CircuitBreaker) IsAllowing() bool {
	if cb.cfg.forceFixed() {
		return true
	}
	if cb.cfg.forceTripped() {
		return false
	}

	switch State(cb.state.Load()) {
	case Closed:
		return true
	case HalfOpen:
		return false
	case Open:
		openedAt := cb.openedAt.Load()
		if time.Since(time.Unix(0, openedAt)) < cb.cfg.trippedDuration() {
			return false
		}
		// Cooldown elapsed: exactly one caller wins the transition and
		// becomes the probe.
		return cb.state.CompareAndSwap(int32(Open), int32(HalfOpen))
	default:
		return false
	}
}

// MarkSuccess records a successful body execution. In HalfOpen it
// promotes the breaker to Closed and resets metrics so the next window
// starts clean, per spec.md §4.3.
func (cb *CircuitBreaker) MarkSuccess() {
	cb.metrics.MarkSuccess()
	if State(cb.state.Load()) == HalfOpen {
		cb.mu.Lock()
		defer cb.mu.Unlock()
		if cb.state.CompareAndSwap(int32(HalfOpen), int32(Closed)) {
			cb.metrics.Reset()
			cb.logTransition(HalfOpen, Closed)
		}
	}
}

// MarkFailure records a failed body execution (Faulted or TimedOut
// outcomes per spec.md §7, Canceled must never reach here). In HalfOpen
// it reopens the breaker; in Closed it evaluates the trip condition.
func (cb *CircuitBreaker) MarkFailure() {
	cb.metrics.MarkFailure()

	switch State(cb.state.Load()) {
	case HalfOpen:
		cb.mu.Lock()
		// openedAt is stored before the state so that a reader seeing
		// Open never pairs it with the previous trip's timestamp.
		if State(cb.state.Load()) == HalfOpen {
			cb.openedAt.Store(time.Now().UnixNano())
			cb.state.Store(int32(Open))
			cb.logTransition(HalfOpen, Open)
		}
		cb.mu.Unlock()
	case Closed:
		cb.maybeTrip()
	}
}

// maybeTrip checks the Closed→Open condition: total ≥ minimumOperations
// and errorPercent ≥ thresholdPercent (spec.md §4.3).
func (cb *CircuitBreaker) maybeTrip() {
	total := cb.metrics.Total()
	if total < uint64(cb.cfg.minimumOperations()) {
		return
	}
	if cb.metrics.ErrorPercent() < cb.cfg.thresholdPercent() {
		return
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()
	// Leaving Closed only happens under mu, so the state cannot change
	// between this check and the store; openedAt goes first as above.
	if State(cb.state.Load()) == Closed {
		cb.openedAt.Store(time.Now().UnixNano())
		cb.state.Store(int32(Open))
		cb.logTransition(Closed, Open)
	}
}

// MarkShortCircuited records a breaker rejection in the metrics window.
// Rejections are load-shedding, not downstream faults, so this never
// feeds the trip threshold via MarkFailure.
func (cb *CircuitBreaker) MarkShortCircuited() {
	cb.metrics.MarkShortCircuited()
}

// MarkBulkheadRejected records a bulkhead rejection. Like
// MarkShortCircuited, it never triggers the Closed→Open trip evaluation
// directly; it still contributes to errorPercent through
// CommandMetrics.ErrorPercent's formula (spec.md §4.2), which is a
// broader health signal than the trip-evaluation gate.
func (cb *CircuitBreaker) MarkBulkheadRejected() {
	cb.metrics.MarkBulkheadRejected()
}

// MarkThreadPoolRejected records a queued-bulkhead (Variant B) rejection
// due to a full work queue.
func (cb *CircuitBreaker) MarkThreadPoolRejected() {
	cb.metrics.MarkThreadPoolRejected()
}

// MarkBadRequest records a validation-shaped outcome. Per spec.md §4.2
// it never counts as an error in errorPercent, though like every event
// kind it counts toward Total.
func (cb *CircuitBreaker) MarkBadRequest() {
	cb.metrics.MarkBadRequest()
}

// Reset forces the breaker back to Closed with a clean window. Exposed
// for tests and operator intervention; not reachable from the invoker's
// normal classification path.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state.Store(int32(Closed))
	cb.openedAt.Store(0)
	cb.metrics.Reset()
}

func (cb *CircuitBreaker) logTransition(from, to State) {
	cb.cfg.Logger.Info("breaker state transition", map[string]any{
		"breaker": cb.cfg.Key,
		"from":    from.String(),
		"to":      to.String(),
	})
	cb.cfg.Sink.Emit(fmt.Sprintf("mjolnir breaker %s transition", cb.cfg.Key), to.String(), 0)
}
