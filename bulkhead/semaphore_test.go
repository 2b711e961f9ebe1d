package bulkhead

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/latchbreaker/latchbreaker/config"
)

func TestSemaphoreAcquireReleaseRespectsLimit(t *testing.T) {
	s := NewSemaphore("k1", 2, nil, nil)

	assert.True(t, s.TryAcquire())
	assert.True(t, s.TryAcquire())
	assert.False(t, s.TryAcquire())
	assert.Equal(t, int64(2), s.InFlight())

	s.Release()
	assert.True(t, s.TryAcquire())
}

func TestSemaphoreLiveReadsProviderOverride(t *testing.T) {
	static := config.NewStaticProvider(nil)
	s := NewSemaphore("k2", 1, static, nil)

	assert.True(t, s.TryAcquire())
	assert.False(t, s.TryAcquire())

	static.Set("mjolnir.pools.k2.threadCount", 2)
	assert.True(t, s.TryAcquire())
}

func TestSemaphoreNeverLeaksPermitsUnderConcurrency(t *testing.T) {
	s := NewSemaphore("k3", 4, nil, nil)
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.TryAcquire() {
				defer s.Release()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(0), s.InFlight())
}
