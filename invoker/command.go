package invoker

import (
	"context"

	"github.com/latchbreaker/latchbreaker/command"
)

// Command bundles one command's descriptor, body, and optional fallback
// for a single call to Invoke/InvokeAsync. Body receives the composed
// cancellation context (timeout + caller cancellation); it must honor
// ctx.Done() to be cooperatively cancellable, per spec.md §5.
//
// Fallback, if set, runs once when Body's outcome is anything but
// RanToCompletion, receiving the classification cause. It is skipped
// entirely for RanToCompletion (spec.md §4.6 step 8).
type Command[T any] struct {
	Descriptor *command.Descriptor
	Body       func(ctx context.Context) (T, error)
	Fallback   func(ctx context.Context, cause error) (T, error)
}
