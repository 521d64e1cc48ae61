package node

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/botkit/pkg/botkit/event"
	"github.com/randalmurphal/botkit/pkg/botkit/resolve"
	"github.com/randalmurphal/botkit/pkg/botkit/rule"
)

func noopHandler(context.Context, event.Event, *resolve.Context) error {
	return nil
}

func TestDefaults(t *testing.T) {
	n := New("greeter", noopHandler)

	assert.Equal(t, "greeter", n.ID())
	assert.Equal(t, DefaultPriority, n.Priority())
	assert.False(t, n.Block())
	assert.Empty(t, n.Plugin())
	assert.Empty(t, n.Deps())
	assert.NoError(t, n.Validate())
}

func TestOptions(t *testing.T) {
	dep := resolve.NewSeed("dep")
	n := New("guard", noopHandler,
		WithPriority(5),
		WithBlock(),
		WithDeps(dep),
	)

	assert.Equal(t, 5, n.Priority())
	assert.True(t, n.Block())
	require.Len(t, n.Deps(), 1)
	assert.Same(t, dep, n.Deps()[0])
}

func TestWithOwnerCopies(t *testing.T) {
	n := New("greeter", noopHandler)
	owned := n.WithOwner("my-plugin")

	assert.Equal(t, "my-plugin", owned.Plugin())
	assert.Empty(t, n.Plugin(), "original must stay untagged")
	assert.Equal(t, n.ID(), owned.ID())
}

func TestPredicateCombinesRuleAndPermission(t *testing.T) {
	evt := event.NewAny("message.text", event.CategoryMessage, "console", nil)
	rc := resolve.NewContext()
	ctx := context.Background()

	tests := []struct {
		name string
		opts []Option
		want bool
	}{
		{"no predicates match everything", nil, true},
		{"rule only", []Option{WithRule(rule.Type("message.text"))}, true},
		{"rule rejects", []Option{WithRule(rule.Type("message.group"))}, false},
		{"rule and permission", []Option{
			WithRule(rule.Type("message.text")),
			WithPermission(rule.FromAdapter("console")),
		}, true},
		{"permission rejects", []Option{
			WithRule(rule.Type("message.text")),
			WithPermission(rule.FromAdapter("onebot")),
		}, false},
		{"permissions are disjunctive", []Option{
			WithPermission(rule.FromAdapter("onebot"), rule.FromAdapter("console")),
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := New("n", noopHandler, tt.opts...)
			ok, err := n.Predicate().Check(ctx, evt, rc)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestMultipleRulesConjunctive(t *testing.T) {
	evt := event.NewAny("message.text", event.CategoryMessage, "console", nil)
	n := New("n", noopHandler,
		WithRule(rule.Type("message.text")),
		WithRule(rule.FromAdapter("onebot")),
	)

	ok, err := n.Predicate().Check(context.Background(), evt, resolve.NewContext())
	require.NoError(t, err)
	assert.False(t, ok, "both rules must pass")
}

func TestValidate(t *testing.T) {
	t.Run("empty id", func(t *testing.T) {
		assert.Error(t, New("", noopHandler).Validate())
	})

	t.Run("whitespace id", func(t *testing.T) {
		assert.Error(t, New("bad id", noopHandler).Validate())
	})

	t.Run("nil handler", func(t *testing.T) {
		assert.Error(t, New("n", nil).Validate())
	})

	t.Run("acyclic deps pass", func(t *testing.T) {
		provider := func(context.Context, *resolve.Context) (any, error) { return nil, nil }
		a := resolve.NewSpec("a", provider)
		b := resolve.NewSpec("b", provider, a)
		n := New("n", noopHandler, WithDeps(b))
		assert.NoError(t, n.Validate())
	})
}

func TestString(t *testing.T) {
	n := New("greeter", noopHandler, WithPriority(3), WithBlock())
	assert.Equal(t, "Node(greeter, priority=3, block=true)", n.String())
}
