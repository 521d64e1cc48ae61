package rule

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/botkit/pkg/botkit/event"
	"github.com/randalmurphal/botkit/pkg/botkit/resolve"
)

func msgEvent(eventType, adapter string) event.Event {
	return event.NewAny(eventType, event.CategoryMessage, adapter, nil)
}

func constant(v bool) Predicate {
	return Func(func(context.Context, event.Event, *resolve.Context) (bool, error) {
		return v, nil
	})
}

func failing() Predicate {
	return Func(func(context.Context, event.Event, *resolve.Context) (bool, error) {
		return false, errors.New("predicate broke")
	})
}

func check(t *testing.T, p Predicate, evt event.Event) (bool, error) {
	t.Helper()
	return p.Check(context.Background(), evt, resolve.NewContext())
}

func TestAnd(t *testing.T) {
	evt := msgEvent("message.text", "console")

	tests := []struct {
		name  string
		preds []Predicate
		want  bool
	}{
		{"empty is true", nil, true},
		{"all true", []Predicate{constant(true), constant(true)}, true},
		{"one false", []Predicate{constant(true), constant(false)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := check(t, And(tt.preds...), evt)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestAndShortCircuits(t *testing.T) {
	evt := msgEvent("message.text", "console")
	called := false
	probe := Func(func(context.Context, event.Event, *resolve.Context) (bool, error) {
		called = true
		return true, nil
	})

	ok, err := check(t, And(constant(false), probe), evt)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, called, "And must stop at the first false")
}

func TestOr(t *testing.T) {
	evt := msgEvent("message.text", "console")

	// An empty permission set grants access.
	ok, err := check(t, Or(), evt)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = check(t, Or(constant(false), constant(true)), evt)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = check(t, Or(constant(false), constant(false)), evt)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOrShortCircuits(t *testing.T) {
	evt := msgEvent("message.text", "console")
	called := false
	probe := Func(func(context.Context, event.Event, *resolve.Context) (bool, error) {
		called = true
		return false, nil
	})

	ok, err := check(t, Or(constant(true), probe), evt)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, called, "Or must stop at the first true")
}

func TestErrorsPropagate(t *testing.T) {
	evt := msgEvent("message.text", "console")

	_, err := check(t, And(failing(), constant(true)), evt)
	assert.Error(t, err)

	_, err = check(t, Or(failing(), constant(true)), evt)
	assert.Error(t, err)

	_, err = check(t, Not(failing()), evt)
	assert.Error(t, err)
}

func TestNot(t *testing.T) {
	evt := msgEvent("message.text", "console")

	ok, err := check(t, Not(constant(true)), evt)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = check(t, Not(constant(false)), evt)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCategory(t *testing.T) {
	ok, err := check(t, Category(event.CategoryMessage, event.CategoryNotice),
		msgEvent("message.text", "console"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = check(t, Category(event.CategoryRequest),
		msgEvent("message.text", "console"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestType(t *testing.T) {
	ok, err := check(t, Type("message.text", "message.group"),
		msgEvent("message.text", "console"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = check(t, Type("message.group"), msgEvent("message.text", "console"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFromAdapter(t *testing.T) {
	ok, err := check(t, FromAdapter("console"), msgEvent("message.text", "console"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = check(t, FromAdapter("onebot"), msgEvent("message.text", "console"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolved(t *testing.T) {
	role := resolve.NewSpec("role", func(context.Context, *resolve.Context) (any, error) {
		return "admin", nil
	})

	isAdmin := Resolved(role, func(v any) bool { return v == "admin" })
	rc := resolve.NewContext()

	ok, err := isAdmin.Check(context.Background(), msgEvent("message.text", "console"), rc)
	require.NoError(t, err)
	assert.True(t, ok)

	// The predicate's resolution is memoized in the shared context.
	v, err := rc.Get(role)
	require.NoError(t, err)
	assert.Equal(t, "admin", v)
}
