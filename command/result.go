package command

import "github.com/latchbreaker/latchbreaker/latcherr"

// Status is the outcome tag of a Result, per spec.md §3.
type Status string

const (
	RanToCompletion Status = "RanToCompletion"
	Faulted         Status = "Faulted"
	Canceled        Status = "Canceled"
	TimedOut        Status = "TimedOut"
	Rejected        Status = "Rejected"
)

// Result[T] is the tagged product of {status, value, exception} spec.md
// §3 defines. Value is meaningful only when Status is RanToCompletion;
// otherwise it holds T's zero value. Err is non-nil whenever Status is
// not RanToCompletion and carries the diagnostic bag (command name,
// breaker key, bulkhead key, timeout used, elapsed ms, status).
type Result[T any] struct {
	Status Status
	Value  T
	Err    *latcherr.InvokerError
}

// Ok builds a RanToCompletion result.
func Ok[T any](value T) Result[T] {
	return Result[T]{Status: RanToCompletion, Value: value}
}

// Fail builds a non-success result from a classified error. err's Kind
// must already reflect the correct Status; Fail maps one to the other
// directly rather than re-deriving it, since the invoker's classifier is
// the sole place that decision is made (spec.md §7's propagation policy).
func Fail[T any](status Status, err *latcherr.InvokerError) Result[T] {
	return Result[T]{Status: status, Err: err}
}

// Success reports whether the invocation ran to completion.
func (r Result[T]) Success() bool { return r.Status == RanToCompletion }
