package resolve

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveMemoizes(t *testing.T) {
	var calls atomic.Int64
	spec := NewSpec("counter", func(context.Context, *Context) (any, error) {
		calls.Add(1)
		return "value", nil
	})

	rc := NewContext()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		v, err := rc.Resolve(ctx, spec)
		require.NoError(t, err)
		assert.Equal(t, "value", v)
	}
	assert.Equal(t, int64(1), calls.Load())
}

func TestResolveDepthFirst(t *testing.T) {
	var order []string
	mk := func(name string, requires ...*Spec) *Spec {
		return NewSpec(name, func(context.Context, *Context) (any, error) {
			order = append(order, name)
			return name, nil
		}, requires...)
	}

	leaf := mk("leaf")
	mid := mk("mid", leaf)
	root := mk("root", mid)

	rc := NewContext()
	_, err := rc.Resolve(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, []string{"leaf", "mid", "root"}, order)
}

func TestProviderReadsRequirements(t *testing.T) {
	base := NewSpec("base", func(context.Context, *Context) (any, error) {
		return 21, nil
	})
	doubled := NewSpec("doubled", func(_ context.Context, rc *Context) (any, error) {
		v, err := rc.Get(base)
		if err != nil {
			return nil, err
		}
		return v.(int) * 2, nil
	}, base)

	rc := NewContext()
	v, err := rc.Resolve(context.Background(), doubled)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestGetNeverResolves(t *testing.T) {
	spec := NewSpec("lazy", func(context.Context, *Context) (any, error) {
		return "v", nil
	})

	rc := NewContext()
	_, err := rc.Get(spec)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotResolved)
}

func TestSeed(t *testing.T) {
	evt := NewSeed("event")

	rc := NewContext()
	rc.Seed(evt, "the-event")

	v, err := rc.Resolve(context.Background(), evt)
	require.NoError(t, err)
	assert.Equal(t, "the-event", v)
}

func TestUnseededSeedFails(t *testing.T) {
	evt := NewSeed("event")

	rc := NewContext()
	_, err := rc.Resolve(context.Background(), evt)
	assert.ErrorIs(t, err, ErrNotSeeded)
}

func TestProviderErrorMemoized(t *testing.T) {
	var calls atomic.Int64
	spec := NewSpec("flaky", func(context.Context, *Context) (any, error) {
		calls.Add(1)
		return nil, errors.New("provider down")
	})

	rc := NewContext()
	ctx := context.Background()

	_, err1 := rc.Resolve(ctx, spec)
	_, err2 := rc.Resolve(ctx, spec)
	require.Error(t, err1)
	require.Error(t, err2)

	// The failure is memoized too; the provider runs once per event.
	assert.Equal(t, int64(1), calls.Load())

	var rerr *ResolutionError
	require.ErrorAs(t, err1, &rerr)
	assert.Equal(t, "flaky", rerr.Spec)
}

func TestConcurrentResolveSharesOneAcquisition(t *testing.T) {
	var calls atomic.Int64
	gate := make(chan struct{})
	spec := NewSpec("slow", func(context.Context, *Context) (any, error) {
		calls.Add(1)
		<-gate
		return "shared", nil
	})

	rc := NewContext()
	ctx := context.Background()

	const goroutines = 16
	var wg sync.WaitGroup
	wg.Add(goroutines)
	results := make([]any, goroutines)
	for i := 0; i < goroutines; i++ {
		go func(i int) {
			defer wg.Done()
			v, err := rc.Resolve(ctx, spec)
			require.NoError(t, err)
			results[i] = v
		}(i)
	}

	close(gate)
	wg.Wait()

	assert.Equal(t, int64(1), calls.Load())
	for _, v := range results {
		assert.Equal(t, "shared", v)
	}
}

func TestTeardownReverseOrder(t *testing.T) {
	var released []string
	mk := func(name string, requires ...*Spec) *Spec {
		return NewScopedSpec(name, func(context.Context, *Context) (any, Release, error) {
			return name, func(context.Context) error {
				released = append(released, name)
				return nil
			}, nil
		}, requires...)
	}

	a := mk("a")
	b := mk("b", a)
	c := mk("c", b)

	rc := NewContext()
	ctx := context.Background()
	_, err := rc.Resolve(ctx, c)
	require.NoError(t, err)

	require.NoError(t, rc.Teardown(ctx))
	assert.Equal(t, []string{"c", "b", "a"}, released)
}

func TestTeardownExactlyOnce(t *testing.T) {
	var releases atomic.Int64
	spec := NewScopedSpec("res", func(context.Context, *Context) (any, Release, error) {
		return "r", func(context.Context) error {
			releases.Add(1)
			return nil
		}, nil
	})

	rc := NewContext()
	ctx := context.Background()
	_, err := rc.Resolve(ctx, spec)
	require.NoError(t, err)

	require.NoError(t, rc.Teardown(ctx))
	require.NoError(t, rc.Teardown(ctx))
	assert.Equal(t, int64(1), releases.Load())
}

func TestTeardownContinuesPastFailures(t *testing.T) {
	var released []string
	ok := NewScopedSpec("ok", func(context.Context, *Context) (any, Release, error) {
		return "ok", func(context.Context) error {
			released = append(released, "ok")
			return nil
		}, nil
	})
	failing := NewScopedSpec("failing", func(context.Context, *Context) (any, Release, error) {
		return "f", func(context.Context) error {
			released = append(released, "failing")
			return errors.New("release broke")
		}, nil
	}, ok)

	rc := NewContext()
	ctx := context.Background()
	_, err := rc.Resolve(ctx, failing)
	require.NoError(t, err)

	err = rc.Teardown(ctx)
	require.Error(t, err)
	// The failing hook did not stop the remaining hook.
	assert.Equal(t, []string{"failing", "ok"}, released)
}

func TestResolveAfterTeardownFails(t *testing.T) {
	spec := NewSpec("v", func(context.Context, *Context) (any, error) {
		return 1, nil
	})

	rc := NewContext()
	ctx := context.Background()
	require.NoError(t, rc.Teardown(ctx))

	_, err := rc.Resolve(ctx, spec)
	assert.ErrorIs(t, err, ErrContextClosed)
}

func TestValidateAcyclic(t *testing.T) {
	provider := func(context.Context, *Context) (any, error) { return nil, nil }

	t.Run("accepts dag", func(t *testing.T) {
		a := NewSpec("a", provider)
		b := NewSpec("b", provider, a)
		c := NewSpec("c", provider, a, b)
		assert.NoError(t, ValidateAcyclic(c))
	})

	t.Run("rejects two-cycle", func(t *testing.T) {
		a := &Spec{name: "a", provide: provider}
		b := &Spec{name: "b", provide: provider, requires: []*Spec{a}}
		a.requires = []*Spec{b}

		err := ValidateAcyclic(a)
		require.Error(t, err)
		var cerr *CycleError
		require.ErrorAs(t, err, &cerr)
		assert.GreaterOrEqual(t, len(cerr.Path), 2)
	})

	t.Run("rejects three-cycle", func(t *testing.T) {
		a := &Spec{name: "a", provide: provider}
		b := &Spec{name: "b", provide: provider, requires: []*Spec{a}}
		c := &Spec{name: "c", provide: provider, requires: []*Spec{b}}
		a.requires = []*Spec{c}

		assert.Error(t, ValidateAcyclic(a))
	})

	t.Run("rejects self-cycle", func(t *testing.T) {
		a := &Spec{name: "a", provide: provider}
		a.requires = []*Spec{a}
		assert.Error(t, ValidateAcyclic(a))
	})
}

func TestRuntimeCycleGuard(t *testing.T) {
	// Build a cycle behind ValidateAcyclic's back; resolution must fail,
	// not deadlock.
	provider := func(context.Context, *Context) (any, error) { return nil, nil }
	a := &Spec{name: "a", provide: provider}
	b := &Spec{name: "b", provide: provider, requires: []*Spec{a}}
	a.requires = []*Spec{b}

	rc := NewContext()
	_, err := rc.Resolve(context.Background(), a)
	require.Error(t, err)
}

func TestValue(t *testing.T) {
	spec := NewSpec("n", func(context.Context, *Context) (any, error) {
		return 42, nil
	})

	rc := NewContext()
	ctx := context.Background()

	n, err := Value[int](ctx, rc, spec)
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	_, err = Value[string](ctx, rc, spec)
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestNilSpecPanics(t *testing.T) {
	assert.Panics(t, func() { NewSpec("x", nil) })
	assert.Panics(t, func() { NewScopedSpec("x", nil) })
}
