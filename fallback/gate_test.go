package fallback

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGateAcquireReleaseRespectsLimit(t *testing.T) {
	g := New("svc", 1)

	assert.True(t, g.TryAcquire())
	assert.False(t, g.TryAcquire())

	g.Release()
	assert.True(t, g.TryAcquire())
}

func TestGateDefaultsWhenMaxConcurrentNonPositive(t *testing.T) {
	g := New("svc2", 0)
	for i := 0; i < DefaultMaxConcurrent; i++ {
		assert.True(t, g.TryAcquire())
	}
	assert.False(t, g.TryAcquire())
}
