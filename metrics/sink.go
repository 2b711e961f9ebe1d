// Package metrics defines the event-sink surface the breaker, bulkhead,
// and invoker packages emit to, and ships two implementations: a no-op
// default and an OpenTelemetry-backed sink.
package metrics

// Sink is the metrics-sink contract described in SPEC_FULL.md §6.2. Every
// emission names a stable service string (e.g. "mjolnir command
// test.NoOp execute", "mjolnir breaker payments-api IsAllowing"), a
// status label, and a numeric value, either an elapsed-time measurement
// or a point-in-time gauge reading. The shape intentionally matches
// spec.md §6's literal wire format so downstream consumers can parse
// (timestamp, service, status, value) tuples without a sink-specific
// schema.
type Sink interface {
	Emit(service string, status string, value float64)
}

// NoopSink discards every emission. It is the default for every
// constructor in this module that accepts a Sink.
type NoopSink struct{}

func (NoopSink) Emit(string, string, float64) {}
