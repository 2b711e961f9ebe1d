package interceptor_test

import (
	"context"
	"fmt"

	"github.com/latchbreaker/latchbreaker/command"
	"github.com/latchbreaker/latchbreaker/interceptor"
	"github.com/latchbreaker/latchbreaker/invoker"
	"github.com/latchbreaker/latchbreaker/registry"
)

// PricingService is a plain interface with no knowledge of this module.
type PricingService interface {
	Quote(ctx context.Context, sku string) (int64, error)
}

type liveService struct{}

func (liveService) Quote(ctx context.Context, sku string) (int64, error) {
	return 4999, nil
}

// guardedPricing is the hand-written adapter: one method per intercepted
// call, each building an Invocation and delegating to interceptor.Run.
// This is the shape every proxied method in a real caller follows; there
// is no code generation involved.
type guardedPricing struct {
	inner PricingService
	inv   *invoker.Invoker
}

func newGuardedPricing(inner PricingService, reg *registry.Registry) *guardedPricing {
	return &guardedPricing{inner: inner, inv: invoker.New(reg, nil, nil, nil)}
}

func (g *guardedPricing) Quote(ctx context.Context, sku string) (int64, error) {
	// A fresh Descriptor per call: descriptors are single-use, so a
	// proxied method that may be called more than once builds one each
	// time (command.CachedDescriptor would also return a fresh one).
	group := command.GroupKey("pricing-service")
	desc := command.New(command.DeriveName(group, "PricingCommand"), group)
	return interceptor.Run(ctx, g.inv, interceptor.Invocation[int64]{
		Descriptor: desc,
		Body: func(ctx context.Context) (int64, error) {
			return g.inner.Quote(ctx, sku)
		},
	})
}

func Example() {
	reg := registry.New(nil, nil, nil)
	svc := newGuardedPricing(liveService{}, reg)

	price, err := svc.Quote(context.Background(), "sku-1")
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println(price)
	// Output: 4999
}
