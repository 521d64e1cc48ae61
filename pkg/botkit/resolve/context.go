package resolve

import (
	"context"
	"errors"
	"sync"
)

// entry tracks one spec's resolution within a Context.
// done is closed when val/err are final, so concurrent resolvers of the
// same spec wait for the first acquisition instead of starting a second.
type entry struct {
	done chan struct{}
	val  any
	err  error
}

// Context is the per-event resolution scope.
//
// It memoizes resolved values by spec identity, so every handler and
// predicate evaluated for one event that asks for the same spec shares a
// single resolved instance. Scoped-resource release hooks are stacked in
// resolution order and run in reverse during Teardown.
//
// A Context is safe for concurrent use by handlers running within the same
// priority tier. It must never be shared across events.
type Context struct {
	mu      sync.Mutex
	entries map[*Spec]*entry
	stack   []releaseEntry
	closed  bool
}

type releaseEntry struct {
	spec    *Spec
	release Release
}

// NewContext creates an empty resolution context for one event.
func NewContext() *Context {
	return &Context{entries: make(map[*Spec]*entry)}
}

// Seed injects a pre-resolved value, typically for seed specs such as the
// current event. Seeding a spec that already has a value replaces it;
// seeding after teardown started is ignored.
func (rc *Context) Seed(s *Spec, v any) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.closed {
		return
	}
	e := &entry{done: make(chan struct{}), val: v}
	close(e.done)
	rc.entries[s] = e
}

// Get returns the already-resolved value for a spec. It never triggers
// resolution; providers use it to read their declared requirements.
func (rc *Context) Get(s *Spec) (any, error) {
	rc.mu.Lock()
	e, ok := rc.entries[s]
	rc.mu.Unlock()
	if !ok {
		return nil, &ResolutionError{Spec: s.Name(), Err: ErrNotResolved}
	}
	select {
	case <-e.done:
	default:
		return nil, &ResolutionError{Spec: s.Name(), Err: ErrNotResolved}
	}
	return e.val, e.err
}

// Resolve resolves a spec and all of its requirements depth-first,
// memoizing every result by spec identity. Two resolutions of the same
// spec within one context share a single provider invocation, even when
// they race from different goroutines.
func (rc *Context) Resolve(ctx context.Context, s *Spec) (any, error) {
	return rc.resolve(ctx, s, nil)
}

func (rc *Context) resolve(ctx context.Context, s *Spec, path []*Spec) (any, error) {
	if s == nil {
		return nil, ErrNilSpec
	}
	for _, p := range path {
		if p == s {
			// Registration-time validation should have caught this;
			// the runtime guard keeps a bad graph from deadlocking.
			return nil, newCycleError(append(path, s))
		}
	}

	rc.mu.Lock()
	if rc.closed {
		rc.mu.Unlock()
		return nil, ErrContextClosed
	}
	if e, ok := rc.entries[s]; ok {
		rc.mu.Unlock()
		select {
		case <-e.done:
			return e.val, e.err
		case <-ctx.Done():
			return nil, &ResolutionError{Spec: s.Name(), Err: ctx.Err()}
		}
	}
	e := &entry{done: make(chan struct{})}
	rc.entries[s] = e
	rc.mu.Unlock()

	val, release, err := rc.acquire(ctx, s, append(path, s))

	rc.mu.Lock()
	e.val, e.err = val, err
	if err == nil && release != nil {
		rc.stack = append(rc.stack, releaseEntry{spec: s, release: release})
	}
	rc.mu.Unlock()
	close(e.done)

	return val, err
}

// acquire resolves requirements and invokes the provider. Runs outside the
// context lock so providers can call back into the context.
func (rc *Context) acquire(ctx context.Context, s *Spec, path []*Spec) (any, Release, error) {
	for _, req := range s.requires {
		if _, err := rc.resolve(ctx, req, path); err != nil {
			return nil, nil, &ResolutionError{Spec: s.Name(), Err: err}
		}
	}

	switch {
	case s.scoped != nil:
		val, release, err := s.scoped(ctx, rc)
		if err != nil {
			return nil, nil, &ResolutionError{Spec: s.Name(), Err: err}
		}
		return val, release, nil
	case s.provide != nil:
		val, err := s.provide(ctx, rc)
		if err != nil {
			return nil, nil, &ResolutionError{Spec: s.Name(), Err: err}
		}
		return val, nil, nil
	default:
		// Seed spec that was never seeded for this event.
		return nil, nil, &ResolutionError{Spec: s.Name(), Err: ErrNotSeeded}
	}
}

// Teardown runs all registered release hooks in reverse resolution order.
// Each hook runs exactly once; a failing hook does not stop the remaining
// hooks. After Teardown the context rejects further resolution.
func (rc *Context) Teardown(ctx context.Context) error {
	rc.mu.Lock()
	if rc.closed {
		rc.mu.Unlock()
		return nil
	}
	rc.closed = true
	stack := rc.stack
	rc.stack = nil
	rc.mu.Unlock()

	var errs []error
	for i := len(stack) - 1; i >= 0; i-- {
		if err := stack[i].release(ctx); err != nil {
			errs = append(errs, &ResolutionError{Spec: stack[i].spec.Name(), Err: err})
		}
	}
	return errors.Join(errs...)
}

// Value resolves a spec and asserts its type.
func Value[T any](ctx context.Context, rc *Context, s *Spec) (T, error) {
	var zero T
	v, err := rc.Resolve(ctx, s)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, &ResolutionError{Spec: s.Name(), Err: ErrTypeMismatch}
	}
	return typed, nil
}
