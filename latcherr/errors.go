// Package latcherr defines the error taxonomy the invoker classifies
// outcomes into: rejection by breaker or bulkhead, timeout, cancellation,
// fault, and the fallback-specific outcomes layered on top of a failure.
package latcherr

import (
	"errors"
	"fmt"
)

// Kind identifies which branch of the classification in invoker.Invoke
// produced an error. Callers that care about the distinction should use
// the Is* helpers below rather than comparing Kind directly, since a
// single Kind may be reachable through more than one sentinel.
type Kind string

const (
	KindProgrammingError      Kind = "programming_error"
	KindRejectedByBreaker     Kind = "rejected_by_breaker"
	KindRejectedByBulkhead    Kind = "rejected_by_bulkhead"
	KindTimedOut              Kind = "timed_out"
	KindCanceled              Kind = "canceled"
	KindFaulted               Kind = "faulted"
	KindFallbackRejected      Kind = "fallback_rejected"
	KindFallbackFailed        Kind = "fallback_failed"
	KindFallbackNotImplemented Kind = "fallback_not_implemented"
)

// Sentinel errors for errors.Is comparison. For reuse, bad-default-timeout
// and breaker/bulkhead rejection outcomes InvokerError wraps one of these
// in its Err field (other outcomes wrap the body's or context's own
// error); the Kind field on InvokerError is the
// authoritative classification, these sentinels exist so callers that
// only have an `error` in hand (e.g. from a nested command result that
// already unwrapped) can still test with errors.Is.
var (
	ErrCommandReused          = errors.New("latchbreaker: command instance reused")
	ErrBreakerOpen            = errors.New("latchbreaker: breaker rejected")
	ErrBulkheadFull           = errors.New("latchbreaker: bulkhead rejected")
	ErrFallbackFull           = errors.New("latchbreaker: fallback rejected")
	ErrFallbackNotImplemented = errors.New("latchbreaker: fallback not implemented")
	ErrBadDefaultTimeout      = errors.New("latchbreaker: command default timeout must be positive")
)

// InvokerError carries the diagnostic bag spec.md §3 requires on every
// non-RanToCompletion CommandResult: command name, breaker/bulkhead keys,
// the timeout value actually used, and elapsed time.
type InvokerError struct {
	Op         string // e.g. "invoker.Invoke"
	Command    string
	BreakerKey string
	BulkheadKey string
	// TimeoutMillis is an int64 millisecond count, or the literal string
	// "Token" (caller-supplied cancellation, no timeout argument) or
	// "Ignored" (mjolnir.ignoreTimeouts is set), per spec.md §4.6 step 3.
	TimeoutMillis any
	ElapsedMs     int64
	Kind          Kind
	Err           error
}

func (e *InvokerError) Error() string {
	if e.Command != "" {
		return fmt.Sprintf("%s[%s]: %s (breaker=%s bulkhead=%s timeout=%v elapsed=%dms): %v",
			e.Op, e.Kind, e.Command, e.BreakerKey, e.BulkheadKey, e.TimeoutMillis, e.ElapsedMs, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s[%s]: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s[%s]", e.Op, e.Kind)
}

func (e *InvokerError) Unwrap() error {
	return e.Err
}

// New builds an InvokerError. op identifies the call site (mirrors the
// teacher's FrameworkError.Op convention), kind classifies the outcome,
// err is the underlying cause (may be a sentinel above or an arbitrary
// command-body error for KindFaulted).
func New(op string, kind Kind, err error) *InvokerError {
	return &InvokerError{Op: op, Kind: kind, Err: err}
}

// IsRejected reports whether err was a load-shedding rejection (breaker
// open or bulkhead full) rather than a downstream fault. Rejections are
// never counted as breaker failures, per spec.md §4.6 step 4.
func IsRejected(err error) bool {
	return errors.Is(err, ErrBreakerOpen) || errors.Is(err, ErrBulkheadFull)
}

// IsTimeout reports whether err represents a TimedOut classification.
func IsTimeout(err error) bool {
	var ie *InvokerError
	if errors.As(err, &ie) {
		return ie.Kind == KindTimedOut
	}
	return false
}

// IsCanceled reports whether err represents a Canceled classification
// (caller cancellation, distinct from TimedOut, see the Open Question
// resolution in SPEC_FULL.md §9).
func IsCanceled(err error) bool {
	var ie *InvokerError
	if errors.As(err, &ie) {
		return ie.Kind == KindCanceled
	}
	return false
}

// IsProgrammingError reports whether err is one of the programming-error
// classes (command reused, misconfigured default timeout), which must
// never be swallowed by onFailure=Return.
func IsProgrammingError(err error) bool {
	return errors.Is(err, ErrCommandReused) || errors.Is(err, ErrBadDefaultTimeout)
}
