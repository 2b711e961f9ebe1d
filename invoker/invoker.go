// Package invoker implements the CommandInvoker of spec.md §4.6: it
// composes timeout and cancellation, performs breaker and bulkhead
// admission, runs the command body, classifies the outcome, publishes
// metrics, and optionally runs a fallback.
package invoker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/latchbreaker/latchbreaker/command"
	"github.com/latchbreaker/latchbreaker/config"
	"github.com/latchbreaker/latchbreaker/corelog"
	"github.com/latchbreaker/latchbreaker/latcherr"
	"github.com/latchbreaker/latchbreaker/metrics"
	"github.com/latchbreaker/latchbreaker/registry"
)

// Invoker orchestrates one invocation end to end. Grounded on the
// teacher's resilience.CircuitBreaker.ExecuteWithTimeout (goroutine +
// channel + select timeout composition, panic recovery via recover() +
// debug.Stack()), generalized to also compose a caller-supplied
// context.Context per spec.md §4.6 step 3, and to run admission and
// fallback around the body rather than just the breaker check.
type Invoker struct {
	Registry *registry.Registry
	Provider config.Provider
	Logger   corelog.Logger
	Sink     metrics.Sink
}

// New builds an Invoker. A nil Provider means useCircuitBreakers
// defaults true and ignoreTimeouts defaults false; a nil Logger/Sink
// default to no-ops.
func New(reg *registry.Registry, provider config.Provider, logger corelog.Logger, sink metrics.Sink) *Invoker {
	if reg == nil {
		reg = registry.Global()
	}
	if logger == nil {
		logger = corelog.NoOpLogger{}
	}
	if sink == nil {
		sink = metrics.NoopSink{}
	}
	return &Invoker{Registry: reg, Provider: provider, Logger: logger, Sink: sink}
}

func (inv *Invoker) useCircuitBreakers() bool {
	if inv.Provider == nil {
		return true
	}
	return inv.Provider.Bool("mjolnir.useCircuitBreakers", true)
}

func (inv *Invoker) ignoreTimeouts() bool {
	if inv.Provider == nil {
		return false
	}
	return inv.Provider.Bool("mjolnir.ignoreTimeouts", false)
}

func (inv *Invoker) commandTimeout(name string, fallback time.Duration) time.Duration {
	if inv.Provider == nil {
		return fallback
	}
	return inv.Provider.Duration(fmt.Sprintf("command.%s.Timeout", name), fallback)
}

// Invoke is the synchronous form: a blocking adapter over InvokeAsync,
// per SPEC_FULL.md §9's sync-over-async decision. The onFailure policy
// is applied here, against the resolved Result, rather than inside the
// goroutine that produces it.
func Invoke[T any](ctx context.Context, inv *Invoker, cmd Command[T], onFailure OnFailure, t Timeout) (command.Result[T], error) {
	future := InvokeAsync(ctx, inv, cmd, onFailure, t)
	result, err := future.Get(context.Background())
	if err != nil {
		return result, err
	}
	if result.Success() || result.Err == nil {
		return result, nil
	}
	if result.Err.Kind == latcherr.KindProgrammingError || onFailure == Throw {
		return result, result.Err
	}
	return result, nil
}

// InvokeAsync is the canonical, asynchronous form. It returns
// immediately with a Future; the invocation runs on its own goroutine,
// so InvokeAsync never blocks the caller beyond admission, which is
// itself non-blocking.
func InvokeAsync[T any](ctx context.Context, inv *Invoker, cmd Command[T], onFailure OnFailure, t Timeout) *Future[T] {
	future := newFuture[T]()
	go runCommand(ctx, inv, cmd, onFailure, t, future)
	return future
}

// runCommand performs spec.md §4.6 steps 1-9 and always resolves future
// exactly once, regardless of which branch the invocation takes.
func runCommand[T any](ctx context.Context, inv *Invoker, cmd Command[T], onFailure OnFailure, t Timeout, future *Future[T]) {
	start := time.Now()
	name := cmd.Descriptor.Name()
	breakerKey := cmd.Descriptor.BreakerKey()
	bulkheadKey := cmd.Descriptor.BulkheadKey()

	op := "invoker.Invoke"

	// Step 1: single-shot guard. Like the non-positive default timeout
	// below, this programming error ignores onFailure=Return.
	if !cmd.Descriptor.MarkInvoked() {
		err := latcherr.New(op, latcherr.KindProgrammingError, latcherr.ErrCommandReused)
		err.Command = name
		finish(future, command.Fail[T](command.Rejected, err))
		return
	}

	// Step 2 & 3: resolve effective timeout and compose cancellation.
	ignoreTimeouts := inv.ignoreTimeouts()
	composedCtx, cancel, diagTimeout, preResolved := composeContext(ctx, cmd.Descriptor, t, ignoreTimeouts, inv.commandTimeout)
	if cancel != nil {
		defer cancel()
	}

	cb := inv.Registry.Breaker(breakerKey)

	if preResolved == preBadDefaultTimeout {
		err := latcherr.New(op, latcherr.KindProgrammingError, latcherr.ErrBadDefaultTimeout)
		err.Command = name
		finish(future, command.Fail[T](command.Rejected, err))
		return
	}

	if preResolved != "" {
		// Pre-expired timeout or pre-canceled token: classify
		// immediately without touching admission or running the body.
		// TimedOut still records a breaker failure, exactly as it would
		// had the deadline fired mid-execution (step 6); Canceled never
		// does, per spec.md §4.6 step 6.
		status := command.TimedOut
		kind := latcherr.KindTimedOut
		if preResolved == preCanceled {
			status = command.Canceled
			kind = latcherr.KindCanceled
		} else {
			cb.MarkFailure()
		}
		err := buildError(op, name, breakerKey, bulkheadKey, diagTimeout, time.Since(start), kind, composedCtx.Err())
		finish(future, command.Fail[T](status, err))
		return
	}

	bh := inv.Registry.Bulkhead(bulkheadKey)

	// Step 4: admission. Rejections are load-shedding, never counted as
	// breaker failures.
	if inv.useCircuitBreakers() && !cb.IsAllowing() {
		cb.MarkShortCircuited()
		inv.Sink.Emit(fmt.Sprintf("mjolnir breaker %s IsAllowing", breakerKey), "rejected", 0)
		err := buildError(op, name, breakerKey, bulkheadKey, diagTimeout, time.Since(start), latcherr.KindRejectedByBreaker, latcherr.ErrBreakerOpen)
		result := runFallback(composedCtx, inv, cmd, command.Rejected, err)
		finish(future, result)
		return
	}

	if !bh.TryAcquire() {
		cb.MarkBulkheadRejected()
		inv.Sink.Emit(fmt.Sprintf("mjolnir pool %s activeThreads", bulkheadKey), "rejected", float64(bh.InFlight()))
		err := buildError(op, name, breakerKey, bulkheadKey, diagTimeout, time.Since(start), latcherr.KindRejectedByBulkhead, latcherr.ErrBulkheadFull)
		result := runFallback(composedCtx, inv, cmd, command.Rejected, err)
		finish(future, result)
		return
	}
	defer bh.Release()

	// Step 5: execution.
	type bodyOutcome struct {
		value T
		err   error
	}
	doneCh := make(chan bodyOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				inv.Logger.Error("command body panicked", map[string]any{
					"command": name,
					"panic":   fmt.Sprint(r),
					"stack":   string(debug.Stack()),
				})
				var zero T
				doneCh <- bodyOutcome{value: zero, err: fmt.Errorf("panic: %v", r)}
			}
		}()
		value, err := cmd.Body(composedCtx)
		doneCh <- bodyOutcome{value: value, err: err}
	}()

	var outcome bodyOutcome
	select {
	case outcome = <-doneCh:
	case <-composedCtx.Done():
		status, kind := classifyContextErr(composedCtx.Err())
		var zero T
		outcome = bodyOutcome{value: zero, err: composedCtx.Err()}
		if status == command.TimedOut {
			cb.MarkFailure()
			inv.Sink.Emit(fmt.Sprintf("mjolnir command %s execute", name), string(status), float64(time.Since(start).Milliseconds()))
		}
		err := buildError(op, name, breakerKey, bulkheadKey, diagTimeout, time.Since(start), kind, composedCtx.Err())
		result := runFallback(composedCtx, inv, cmd, status, err)
		finish(future, result)
		return
	}

	// Step 6: classification of a body that completed on its own.
	elapsed := time.Since(start)
	if outcome.err == nil {
		cb.MarkSuccess()
		inv.Sink.Emit(fmt.Sprintf("mjolnir command %s execute", name), string(command.RanToCompletion), float64(elapsed.Milliseconds()))
		finish(future, command.Ok[T](outcome.value))
		return
	}

	if latcherr.IsRejected(outcome.err) {
		err := buildError(op, name, breakerKey, bulkheadKey, diagTimeout, elapsed, latcherr.KindRejectedByBreaker, outcome.err)
		result := runFallback(composedCtx, inv, cmd, command.Rejected, err)
		finish(future, result)
		return
	}

	status, kind := classifyBodyErr(outcome.err)
	if status == command.TimedOut {
		cb.MarkFailure()
	} else if status == command.Faulted {
		cb.MarkFailure()
	}
	inv.Sink.Emit(fmt.Sprintf("mjolnir command %s execute", name), string(status), float64(elapsed.Milliseconds()))
	err := buildError(op, name, breakerKey, bulkheadKey, diagTimeout, elapsed, kind, outcome.err)
	result := runFallback(composedCtx, inv, cmd, status, err)
	finish(future, result)
}

const (
	preNone                = ""
	preTimedOut            = "timed_out"
	preCanceled            = "canceled"
	preBadDefaultTimeout   = "bad_default_timeout"
)

// composeContext resolves the effective timeout and builds the composed
// cancellation context for this invocation, per spec.md §4.6 steps 2-3.
// diagTimeout is the TimeoutMillis diagnostic value: a numeric
// millisecond count, "Token", or "Ignored". preResolved is non-empty
// when the call is already expired/canceled at entry and must be
// classified without ever reaching admission.
func composeContext(
	ctx context.Context,
	desc *command.Descriptor,
	t Timeout,
	ignoreTimeouts bool,
	resolveCommandTimeout func(name string, fallback time.Duration) time.Duration,
) (composed context.Context, cancel context.CancelFunc, diagTimeout any, preResolved string) {
	if ignoreTimeouts {
		return context.WithoutCancel(ctx), nil, "Ignored", preNone
	}

	switch t.kind {
	case timeoutMillis:
		if t.ms <= 0 {
			return ctx, nil, t.ms, preTimedOut
		}
		// context.WithTimeout on an already-canceled parent cancels the
		// child immediately with the parent's context.Canceled, not
		// DeadlineExceeded (context.propagateCancel). Millis mode must
		// still classify as TimedOut regardless, so check entry state
		// before ever calling WithTimeout.
		if ctx.Err() != nil {
			return ctx, nil, t.ms, preTimedOut
		}
		composed, cancel = context.WithTimeout(ctx, time.Duration(t.ms)*time.Millisecond)
		return composed, cancel, t.ms, preNone

	case timeoutToken:
		if ctx.Err() != nil {
			return ctx, nil, "Token", preCanceled
		}
		return ctx, nil, "Token", preNone

	default: // timeoutDefault
		d := resolveCommandTimeout(desc.Name(), desc.DefaultTimeout())
		if d <= 0 {
			// A non-positive default timeout is a programming error
			// (spec.md §7), not a TimedOut classification; callers
			// reach this branch only via misconfiguration.
			return ctx, nil, d.Milliseconds(), preBadDefaultTimeout
		}
		if ctx.Err() != nil {
			return ctx, nil, d.Milliseconds(), preTimedOut
		}
		composed, cancel = context.WithTimeout(ctx, d)
		return composed, cancel, d.Milliseconds(), preNone
	}
}

// classifyContextErr maps a composed context's terminal error to a
// Status/Kind pair: DeadlineExceeded is our own timeout firing
// (TimedOut), Canceled is the caller's own cancellation propagating
// through (Canceled). This is the Open Question resolution of
// SPEC_FULL.md §9.
func classifyContextErr(err error) (command.Status, latcherr.Kind) {
	if errors.Is(err, context.DeadlineExceeded) {
		return command.TimedOut, latcherr.KindTimedOut
	}
	return command.Canceled, latcherr.KindCanceled
}

// classifyBodyErr maps an error a command body returned directly (as
// opposed to one observed via the composed context's Done channel).
func classifyBodyErr(err error) (command.Status, latcherr.Kind) {
	if errors.Is(err, context.DeadlineExceeded) {
		return command.TimedOut, latcherr.KindTimedOut
	}
	if errors.Is(err, context.Canceled) {
		return command.Canceled, latcherr.KindCanceled
	}
	return command.Faulted, latcherr.KindFaulted
}

func buildError(op, name string, breakerKey, bulkheadKey command.GroupKey, diagTimeout any, elapsed time.Duration, kind latcherr.Kind, cause error) *latcherr.InvokerError {
	return &latcherr.InvokerError{
		Op:          op,
		Command:     name,
		BreakerKey:  string(breakerKey),
		BulkheadKey: string(bulkheadKey),
		TimeoutMillis: diagTimeout,
		ElapsedMs:   elapsed.Milliseconds(),
		Kind:        kind,
		Err:         cause,
	}
}

// runFallback executes step 8: if cmd has a fallback, acquire the
// fallback gate and run it once; otherwise (or on fallback-gate
// rejection, or if the fallback itself errors) return the original
// failure, wrapped with a fallback-specific marker where applicable.
func runFallback[T any](ctx context.Context, inv *Invoker, cmd Command[T], status command.Status, cause *latcherr.InvokerError) command.Result[T] {
	if status == command.RanToCompletion || cmd.Fallback == nil {
		return command.Fail[T](status, cause)
	}

	gate := inv.Registry.Fallback(cmd.Descriptor.Group())
	if !gate.TryAcquire() {
		wrapped := &latcherr.InvokerError{
			Op:          cause.Op,
			Command:     cause.Command,
			BreakerKey:  cause.BreakerKey,
			BulkheadKey: cause.BulkheadKey,
			TimeoutMillis: cause.TimeoutMillis,
			ElapsedMs:   cause.ElapsedMs,
			Kind:        latcherr.KindFallbackRejected,
			Err:         cause,
		}
		return command.Fail[T](status, wrapped)
	}
	defer gate.Release()

	value, err := cmd.Fallback(ctx, cause)
	if err != nil {
		kind := latcherr.KindFallbackFailed
		if errors.Is(err, latcherr.ErrFallbackNotImplemented) {
			kind = latcherr.KindFallbackNotImplemented
		}
		wrapped := &latcherr.InvokerError{
			Op:          cause.Op,
			Command:     cause.Command,
			BreakerKey:  cause.BreakerKey,
			BulkheadKey: cause.BulkheadKey,
			TimeoutMillis: cause.TimeoutMillis,
			ElapsedMs:   cause.ElapsedMs,
			Kind:        kind,
			Err:         cause,
		}
		return command.Fail[T](status, wrapped)
	}
	return command.Ok[T](value)
}

func finish[T any](future *Future[T], result command.Result[T]) {
	future.resolve(result)
}
