package invoker

import (
	"context"

	"github.com/latchbreaker/latchbreaker/command"
)

// Future is the completion handle InvokeAsync returns. Exactly one
// Result is ever sent on it.
type Future[T any] struct {
	ch chan command.Result[T]
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{ch: make(chan command.Result[T], 1)}
}

func (f *Future[T]) resolve(r command.Result[T]) {
	f.ch <- r
}

// Get blocks until the result is available, or ctx is done first, in
// which case it returns a zero Result and ctx.Err(). It does not cancel
// the in-flight invocation, which is already governed by its own
// composed context.
func (f *Future[T]) Get(ctx context.Context) (command.Result[T], error) {
	select {
	case r := <-f.ch:
		return r, nil
	case <-ctx.Done():
		var zero command.Result[T]
		return zero, ctx.Err()
	}
}
