package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryLazyCreatesAndReturnsSameInstance(t *testing.T) {
	r := New(nil, nil, nil)

	cb1 := r.Breaker("group-a")
	cb2 := r.Breaker("group-a")
	assert.Same(t, cb1, cb2)

	bh1 := r.Bulkhead("group-a")
	bh2 := r.Bulkhead("group-a")
	assert.Same(t, bh1, bh2)

	fg1 := r.Fallback("group-a")
	fg2 := r.Fallback("group-a")
	assert.Same(t, fg1, fg2)
}

func TestRegistryDifferentKeysGetDifferentInstances(t *testing.T) {
	r := New(nil, nil, nil)
	assert.NotSame(t, r.Breaker("a"), r.Breaker("b"))
}

func TestRegistryConcurrentFirstAccessIsSafe(t *testing.T) {
	r := New(nil, nil, nil)
	var wg sync.WaitGroup
	seen := make(chan string, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cb := r.Breaker("shared")
			seen <- cb.Key()
		}()
	}
	wg.Wait()
	close(seen)
	for k := range seen {
		assert.Equal(t, "shared", k)
	}
}

func TestGlobalReturnsProcessWideRegistry(t *testing.T) {
	assert.Same(t, Global(), Global())
}
