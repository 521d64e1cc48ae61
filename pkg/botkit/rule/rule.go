package rule

import (
	"context"

	"github.com/randalmurphal/botkit/pkg/botkit/event"
	"github.com/randalmurphal/botkit/pkg/botkit/resolve"
)

// Predicate decides whether a node applies to an event. Predicates may
// resolve dependencies through the event's resolution context; those
// resolutions share the event's memoization with handler dependencies.
type Predicate interface {
	Check(ctx context.Context, evt event.Event, rc *resolve.Context) (bool, error)
}

// Func adapts a function to the Predicate interface.
type Func func(ctx context.Context, evt event.Event, rc *resolve.Context) (bool, error)

// Check implements Predicate.
func (f Func) Check(ctx context.Context, evt event.Event, rc *resolve.Context) (bool, error) {
	return f(ctx, evt, rc)
}

// And combines predicates conjunctively. Evaluation is left-to-right and
// stops at the first false or first error. And() with no predicates is
// always true, so a node without a rule matches every event.
func And(preds ...Predicate) Predicate {
	return Func(func(ctx context.Context, evt event.Event, rc *resolve.Context) (bool, error) {
		for _, p := range preds {
			ok, err := p.Check(ctx, evt, rc)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	})
}

// Or combines predicates disjunctively. Evaluation is left-to-right and
// stops at the first true or first error. Or() with no predicates is
// always true: an empty permission set grants access.
func Or(preds ...Predicate) Predicate {
	return Func(func(ctx context.Context, evt event.Event, rc *resolve.Context) (bool, error) {
		if len(preds) == 0 {
			return true, nil
		}
		for _, p := range preds {
			ok, err := p.Check(ctx, evt, rc)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	})
}

// Not inverts a predicate. Errors pass through.
func Not(p Predicate) Predicate {
	return Func(func(ctx context.Context, evt event.Event, rc *resolve.Context) (bool, error) {
		ok, err := p.Check(ctx, evt, rc)
		if err != nil {
			return false, err
		}
		return !ok, nil
	})
}

// Category matches events of any of the given categories.
func Category(categories ...event.Category) Predicate {
	return Func(func(_ context.Context, evt event.Event, _ *resolve.Context) (bool, error) {
		for _, c := range categories {
			if evt.Category() == c {
				return true, nil
			}
		}
		return false, nil
	})
}

// Type matches events whose fine-grained type equals any of the given types.
func Type(types ...string) Predicate {
	return Func(func(_ context.Context, evt event.Event, _ *resolve.Context) (bool, error) {
		for _, t := range types {
			if evt.Type() == t {
				return true, nil
			}
		}
		return false, nil
	})
}

// FromAdapter matches events produced by any of the named adapters.
func FromAdapter(names ...string) Predicate {
	return Func(func(_ context.Context, evt event.Event, _ *resolve.Context) (bool, error) {
		for _, n := range names {
			if evt.Adapter() == n {
				return true, nil
			}
		}
		return false, nil
	})
}

// Resolved builds a predicate over a resolved dependency. The spec is
// resolved through the event's context, so the value is acquired once and
// shared with every other predicate and handler that declares it.
func Resolved(spec *resolve.Spec, check func(v any) bool) Predicate {
	return Func(func(ctx context.Context, _ event.Event, rc *resolve.Context) (bool, error) {
		v, err := rc.Resolve(ctx, spec)
		if err != nil {
			return false, err
		}
		return check(v), nil
	})
}
