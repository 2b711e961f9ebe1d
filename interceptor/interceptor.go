// Package interceptor defines the contract a hand-written proxy uses to
// route a method call through invoker.Invoke instead of calling the
// underlying implementation directly. There is no generated or
// reflection-based proxy here: a caller writes one small adapter per
// intercepted method, following the pattern Example demonstrates.
package interceptor

import (
	"context"

	"github.com/latchbreaker/latchbreaker/command"
	"github.com/latchbreaker/latchbreaker/invoker"
)

// Descriptor builds the command.Descriptor for one intercepted method
// call. Implementations typically call command.CachedDescriptor keyed by
// the method's own identity: it returns a fresh, unused Descriptor on
// every call (only the derived name and keys are shared), so calling it
// once per invocation of the same proxied method is safe.
type Descriptor interface {
	CommandDescriptor() *command.Descriptor
}

// Invocation is the per-call mapping a hand-written proxy method
// supplies: the descriptor identifying this command class, the body
// that performs the real work, and an optional fallback. T is the
// method's return type.
type Invocation[T any] struct {
	Descriptor *command.Descriptor
	Body       func(ctx context.Context) (T, error)
	Fallback   func(ctx context.Context, cause error) (T, error)
}

// Run adapts one Invocation into a synchronous invoker call using the
// command's configured default timeout and Throw semantics, the
// defaults a proxied method should use unless it has a specific reason
// not to. Proxy authors who need Token/Millis timeouts or Return
// semantics call invoker.Invoke directly instead of Run.
func Run[T any](ctx context.Context, inv *invoker.Invoker, call Invocation[T]) (T, error) {
	cmd := invoker.Command[T]{
		Descriptor: call.Descriptor,
		Body:       call.Body,
		Fallback:   call.Fallback,
	}
	result, err := invoker.Invoke(ctx, inv, cmd, invoker.Throw, invoker.DefaultTimeout)
	return result.Value, err
}
