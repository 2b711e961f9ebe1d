package invoker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/latchbreaker/latchbreaker/command"
	"github.com/latchbreaker/latchbreaker/config"
	"github.com/latchbreaker/latchbreaker/latcherr"
	"github.com/latchbreaker/latchbreaker/registry"
)

func freshInvoker() *Invoker {
	return New(registry.New(nil, nil, nil), nil, nil, nil)
}

func descFor(group string) *command.Descriptor {
	return command.New(group+".Op", command.GroupKey(group))
}

func TestInvokeHappyPath(t *testing.T) {
	inv := freshInvoker()
	cmd := Command[int]{
		Descriptor: descFor("happy"),
		Body: func(ctx context.Context) (int, error) {
			return 7, nil
		},
	}

	result, err := Invoke(context.Background(), inv, cmd, Throw, Millis(1000))
	assert.NoError(t, err)
	assert.True(t, result.Success())
	assert.Equal(t, 7, result.Value)
}

func TestInvokePreExpiredToken(t *testing.T) {
	inv := freshInvoker()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	bodyRan := false
	cmd := Command[int]{
		Descriptor: descFor("pretoken"),
		Body: func(ctx context.Context) (int, error) {
			bodyRan = true
			return 0, nil
		},
	}

	result, err := Invoke(ctx, inv, cmd, Return, Token())
	assert.False(t, bodyRan)
	assert.NoError(t, err)
	assert.Equal(t, command.Canceled, result.Status)
	assert.Equal(t, latcherr.KindCanceled, result.Err.Kind)
}

func TestInvokeZeroTimeout(t *testing.T) {
	inv := freshInvoker()
	bodyRan := false
	cmd := Command[int]{
		Descriptor: descFor("zerotimeout"),
		Body: func(ctx context.Context) (int, error) {
			bodyRan = true
			return 0, nil
		},
	}

	result, err := Invoke(context.Background(), inv, cmd, Return, Millis(0))
	assert.False(t, bodyRan)
	assert.NoError(t, err)
	assert.Equal(t, command.TimedOut, result.Status)
	assert.Equal(t, latcherr.KindTimedOut, result.Err.Kind)
}

func TestInvokeFaultedWithThrowSurfacesError(t *testing.T) {
	inv := freshInvoker()
	boom := errors.New("boom")
	cmd := Command[int]{
		Descriptor: descFor("faultthrow"),
		Body: func(ctx context.Context) (int, error) {
			return 0, boom
		},
	}

	result, err := Invoke(context.Background(), inv, cmd, Throw, Millis(1000))
	assert.Error(t, err)
	assert.Equal(t, command.Faulted, result.Status)
	assert.True(t, errors.Is(err, boom))
}

func TestInvokeFaultedWithReturnSwallowsError(t *testing.T) {
	inv := freshInvoker()
	boom := errors.New("boom")
	cmd := Command[int]{
		Descriptor: descFor("faultreturn"),
		Body: func(ctx context.Context) (int, error) {
			return 0, boom
		},
	}

	result, err := Invoke(context.Background(), inv, cmd, Return, Millis(1000))
	assert.NoError(t, err)
	assert.Equal(t, command.Faulted, result.Status)
	assert.True(t, errors.Is(result.Err, boom))
}

func TestInvokeAlreadyCanceledParentWithMillisClassifiesAsTimedOutNotCanceled(t *testing.T) {
	inv := freshInvoker()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	bodyRan := false
	cmd := Command[int]{
		Descriptor: descFor("canceledparentmillis"),
		Body: func(ctx context.Context) (int, error) {
			bodyRan = true
			return 0, nil
		},
	}

	result, err := Invoke(ctx, inv, cmd, Return, Millis(1000))
	assert.False(t, bodyRan, "admission/body must not run when the parent is already dead")
	assert.NoError(t, err)
	assert.Equal(t, command.TimedOut, result.Status)
	assert.Equal(t, latcherr.KindTimedOut, result.Err.Kind)
}

func TestInvokeAlreadyCanceledParentWithDefaultTimeoutClassifiesAsTimedOut(t *testing.T) {
	inv := freshInvoker()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	bodyRan := false
	cmd := Command[int]{
		Descriptor: descFor("canceledparentdefault"),
		Body: func(ctx context.Context) (int, error) {
			bodyRan = true
			return 0, nil
		},
	}

	result, err := Invoke(ctx, inv, cmd, Return, DefaultTimeout)
	assert.False(t, bodyRan)
	assert.NoError(t, err)
	assert.Equal(t, command.TimedOut, result.Status)
	assert.Equal(t, latcherr.KindTimedOut, result.Err.Kind)
}

func TestInvokeIgnoreTimeoutsOutlivesDeadline(t *testing.T) {
	static := config.NewStaticProvider(map[string]any{
		"mjolnir.ignoreTimeouts": true,
	})
	inv := New(registry.New(static, nil, nil), static, nil, nil)

	cmd := Command[int]{
		Descriptor: descFor("ignoretimeouts"),
		Body: func(ctx context.Context) (int, error) {
			time.Sleep(30 * time.Millisecond)
			return 1, nil
		},
	}

	result, err := Invoke(context.Background(), inv, cmd, Throw, Millis(5))
	assert.NoError(t, err)
	assert.True(t, result.Success())
}

func TestInvokeBreakerTripsAfterFailures(t *testing.T) {
	reg := registry.New(nil, nil, nil)
	inv := New(reg, nil, nil, nil)
	group := command.GroupKey("flaky")

	boom := errors.New("boom")
	for i := 0; i < 10; i++ {
		cmd := Command[int]{
			Descriptor: command.New("flaky.Op", group),
			Body: func(ctx context.Context) (int, error) {
				return 0, boom
			},
		}
		_, _ = Invoke(context.Background(), inv, cmd, Return, Millis(1000))
	}

	assert.False(t, reg.Breaker(group).IsAllowing())

	cmd := Command[int]{
		Descriptor: command.New("flaky.Op", group),
		Body: func(ctx context.Context) (int, error) {
			return 9, nil
		},
	}
	result, err := Invoke(context.Background(), inv, cmd, Return, Millis(1000))
	assert.NoError(t, err)
	assert.Equal(t, command.Rejected, result.Status)
}

func TestInvokeCommandReuseIsProgrammingErrorRegardlessOfOnFailure(t *testing.T) {
	inv := freshInvoker()
	desc := descFor("reuse")
	cmd := Command[int]{
		Descriptor: desc,
		Body: func(ctx context.Context) (int, error) {
			return 1, nil
		},
	}

	_, err := Invoke(context.Background(), inv, cmd, Return, Millis(1000))
	assert.NoError(t, err)

	_, err = Invoke(context.Background(), inv, cmd, Return, Millis(1000))
	assert.Error(t, err)
	assert.True(t, latcherr.IsProgrammingError(err))
}

func TestInvokeCachedDescriptorIsReusableAcrossCalls(t *testing.T) {
	inv := freshInvoker()
	group := command.GroupKey("cached-proxy")

	for i := 0; i < 2; i++ {
		desc := command.CachedDescriptor("QuoteCommand", group)
		cmd := Command[int]{
			Descriptor: desc,
			Body: func(ctx context.Context) (int, error) {
				return i, nil
			},
		}
		result, err := Invoke(context.Background(), inv, cmd, Throw, Millis(1000))
		assert.NoError(t, err, "a descriptor built by CachedDescriptor must be usable on every call")
		assert.True(t, result.Success())
		assert.Equal(t, i, result.Value)
	}
}

func TestInvokeFallbackRunsOnFault(t *testing.T) {
	inv := freshInvoker()
	boom := errors.New("boom")
	cmd := Command[int]{
		Descriptor: descFor("fallback"),
		Body: func(ctx context.Context) (int, error) {
			return 0, boom
		},
		Fallback: func(ctx context.Context, cause error) (int, error) {
			return 99, nil
		},
	}

	result, err := Invoke(context.Background(), inv, cmd, Throw, Millis(1000))
	assert.NoError(t, err)
	assert.True(t, result.Success())
	assert.Equal(t, 99, result.Value)
}
