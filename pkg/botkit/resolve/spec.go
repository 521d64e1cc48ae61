package resolve

import (
	"context"
	"fmt"
)

// Provider produces a value for a spec. It may read values of the spec's
// declared requirements through Context.Get; by the time a provider runs,
// all of its requirements are resolved.
type Provider func(ctx context.Context, rc *Context) (any, error)

// Release tears down a scoped resource. Release hooks run during Context
// teardown in reverse resolution order.
type Release func(ctx context.Context) error

// ScopedProvider acquires a resource and returns its release hook.
// The release hook may be nil if the resource needs no teardown.
type ScopedProvider func(ctx context.Context, rc *Context) (any, Release, error)

// Spec declares a dependency a handler or predicate needs resolved.
//
// A spec is one of three kinds:
//   - value: a pure provider, invoked at most once per event
//   - scoped: a resource provider whose release hook runs at teardown
//   - seed: no provider; the dispatcher injects the value per event
//
// Specs are created once at plugin load time and shared; identity is
// pointer identity, which is also the memoization key within an event.
type Spec struct {
	name     string
	requires []*Spec
	provide  Provider
	scoped   ScopedProvider
}

// NewSpec creates a value spec with the given provider and requirements.
func NewSpec(name string, provide Provider, requires ...*Spec) *Spec {
	if provide == nil {
		panic("resolve: provider cannot be nil")
	}
	return &Spec{name: name, provide: provide, requires: requires}
}

// NewScopedSpec creates a scoped-resource spec. The provider's release hook
// is registered for context teardown on first (and only) acquisition.
func NewScopedSpec(name string, provide ScopedProvider, requires ...*Spec) *Spec {
	if provide == nil {
		panic("resolve: scoped provider cannot be nil")
	}
	return &Spec{name: name, scoped: provide, requires: requires}
}

// NewSeed creates a seed spec. It has no provider; the value must be
// injected with Context.Seed before anything resolves it.
func NewSeed(name string) *Spec {
	return &Spec{name: name}
}

// Name returns the spec's display name, used in errors and logs.
func (s *Spec) Name() string {
	return s.name
}

// Requires returns the spec's declared requirements.
func (s *Spec) Requires() []*Spec {
	return s.requires
}

func (s *Spec) String() string {
	return fmt.Sprintf("Spec(%s)", s.name)
}

// dfs colors for cycle detection.
const (
	colorWhite = iota // unvisited
	colorGray         // on the current path
	colorBlack        // fully explored
)

// ValidateAcyclic checks that the requirement graphs rooted at the given
// specs contain no cycles. It is intended to run at registration time so
// cyclic declarations are rejected before any event is dispatched.
func ValidateAcyclic(specs ...*Spec) error {
	colors := make(map[*Spec]int)

	var visit func(s *Spec, path []*Spec) error
	visit = func(s *Spec, path []*Spec) error {
		switch colors[s] {
		case colorBlack:
			return nil
		case colorGray:
			return newCycleError(append(path, s))
		}
		colors[s] = colorGray
		for _, req := range s.requires {
			if err := visit(req, append(path, s)); err != nil {
				return err
			}
		}
		colors[s] = colorBlack
		return nil
	}

	for _, s := range specs {
		if s == nil {
			continue
		}
		if err := visit(s, nil); err != nil {
			return err
		}
	}
	return nil
}
