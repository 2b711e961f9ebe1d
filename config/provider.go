// Package config provides the dynamic key→typed-value configuration
// surface consumed by the breaker, bulkhead, fallback, and invoker
// packages. It recognizes the keys named in SPEC_FULL.md §6.1:
//
//	mjolnir.useCircuitBreakers
//	mjolnir.ignoreTimeouts
//	mjolnir.gaugeIntervalMillis
//	command.<name>.Timeout
//	mjolnir.breaker.<key>.minimumOperations
//	mjolnir.breaker.<key>.thresholdPercent
//	mjolnir.breaker.<key>.trippedDurationMillis
//	mjolnir.breaker.<key>.forceTripped
//	mjolnir.breaker.<key>.forceFixed
//	mjolnir.pools.<key>.threadCount
//	mjolnir.pools.<key>.queueLength
//	mjolnir.fallback.<key>.maxConcurrent
package config

import "time"

// Provider is the key→typed-value surface the core consumes. Every
// getter takes a fallback so a missing key never forces a nil check at
// the call site; that matches spec.md's own framing of config as a set
// of tunables with sane defaults.
type Provider interface {
	Bool(key string, fallback bool) bool
	Int(key string, fallback int) int
	Duration(key string, fallback time.Duration) time.Duration
	String(key string, fallback string) string

	// OnChange registers fn to run whenever key's value is replaced by a
	// reload. Providers that never reload (StaticProvider) accept the
	// registration but never invoke it.
	OnChange(key string, fn func())
}
