package breaker

// CommandMetrics is a thin facade over a RollingCounter exposing the two
// figures the breaker's state machine acts on: total operations and
// error percentage over the window (spec.md §4.2).
type CommandMetrics struct {
	counter *RollingCounter
}

// NewCommandMetrics wraps counter.
func NewCommandMetrics(counter *RollingCounter) *CommandMetrics {
	return &CommandMetrics{counter: counter}
}

// Total is the count of all events across every kind in the window.
func (m *CommandMetrics) Total() uint64 {
	totals := m.counter.Snapshot()
	var sum uint64
	for _, v := range totals {
		sum += v
	}
	return sum
}

// ErrorPercent is round(100 * errors / total), or 0 when total is zero.
// Errors are the sum of {Failure, Timeout, ThreadPoolRejected,
// BulkheadRejected}, per spec.md §4.2; ShortCircuited and BadRequest are
// deliberately excluded, they are load-shedding and validation outcomes,
// not downstream faults, so including them would make the breaker trip
// on its own rejections.
func (m *CommandMetrics) ErrorPercent() int {
	totals := m.counter.Snapshot()
	var total, errors uint64
	for k, v := range totals {
		total += v
		switch EventKind(k) {
		case Failure, Timeout, ThreadPoolRejected, BulkheadRejected:
			errors += v
		}
	}
	if total == 0 {
		return 0
	}
	return int((errors*100 + total/2) / total)
}

func (m *CommandMetrics) MarkSuccess()            { m.counter.Increment(Success) }
func (m *CommandMetrics) MarkFailure()            { m.counter.Increment(Failure) }
func (m *CommandMetrics) MarkShortCircuited()     { m.counter.Increment(ShortCircuited) }
func (m *CommandMetrics) MarkTimeout()            { m.counter.Increment(Timeout) }
func (m *CommandMetrics) MarkThreadPoolRejected() { m.counter.Increment(ThreadPoolRejected) }
func (m *CommandMetrics) MarkBulkheadRejected()   { m.counter.Increment(BulkheadRejected) }
func (m *CommandMetrics) MarkBadRequest()         { m.counter.Increment(BadRequest) }

// Reset zeroes the underlying counter.
func (m *CommandMetrics) Reset() { m.counter.Reset() }
