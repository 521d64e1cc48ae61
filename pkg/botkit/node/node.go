package node

import (
	"context"
	"fmt"
	"strings"

	"github.com/randalmurphal/botkit/pkg/botkit/event"
	"github.com/randalmurphal/botkit/pkg/botkit/resolve"
	"github.com/randalmurphal/botkit/pkg/botkit/rule"
)

// DefaultPriority is assigned to nodes that do not declare one. It sits
// mid-range so plugins can schedule both before and after the default tier.
const DefaultPriority = 100

// Handler is the body of a node. It runs after the node's predicate matched
// and its declared dependencies resolved; it reads them through rc.
type Handler func(ctx context.Context, evt event.Event, rc *resolve.Context) error

// Node is a registered unit of business logic: a predicate, a priority, a
// block flag, declared dependencies, and a handler body.
//
// Nodes are immutable once registered. The registry groups them by owning
// plugin for hot reload; it never mutates a node in place.
type Node struct {
	id         string
	plugin     string
	priority   int
	block      bool
	rule       rule.Predicate
	permission rule.Predicate
	deps       []*resolve.Spec
	handler    Handler
}

// Option configures node construction.
type Option func(*Node)

// WithPriority sets the node's priority. Lower values run first.
func WithPriority(p int) Option {
	return func(n *Node) {
		n.priority = p
	}
}

// WithBlock marks the node as blocking: once it matches and runs for an
// event, no node of a higher priority value runs for that event.
func WithBlock() Option {
	return func(n *Node) {
		n.block = true
	}
}

// WithRule sets the node's rule predicate. Multiple calls combine
// conjunctively.
func WithRule(preds ...rule.Predicate) Option {
	return func(n *Node) {
		if n.rule != nil {
			preds = append([]rule.Predicate{n.rule}, preds...)
		}
		n.rule = rule.And(preds...)
	}
}

// WithPermission sets the node's permission predicate. Multiple predicates
// combine disjunctively.
func WithPermission(preds ...rule.Predicate) Option {
	return func(n *Node) {
		n.permission = rule.Or(preds...)
	}
}

// WithDeps declares the dependency specs the handler needs resolved before
// it runs. Resolution failure for any of them skips the node.
func WithDeps(specs ...*resolve.Spec) Option {
	return func(n *Node) {
		n.deps = append(n.deps, specs...)
	}
}

// New creates a node with the given id and handler body.
func New(id string, handler Handler, opts ...Option) *Node {
	n := &Node{
		id:       id,
		priority: DefaultPriority,
		handler:  handler,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// ID returns the node's unique identifier.
func (n *Node) ID() string { return n.id }

// Plugin returns the owning plugin's name, set by the registry at load time.
func (n *Node) Plugin() string { return n.plugin }

// Priority returns the node's priority. Lower values run first.
func (n *Node) Priority() int { return n.priority }

// Block reports whether the node short-circuits lower-priority tiers.
func (n *Node) Block() bool { return n.block }

// Deps returns the node's declared dependency specs.
func (n *Node) Deps() []*resolve.Spec { return n.deps }

// Handler returns the node's handler body.
func (n *Node) Handler() Handler { return n.handler }

// WithOwner returns a copy of the node tagged with its owning plugin.
// Registered nodes are immutable, so ownership is set on a copy.
func (n *Node) WithOwner(plugin string) *Node {
	c := *n
	c.plugin = plugin
	return &c
}

// Predicate returns the node's effective predicate: rule AND permission.
func (n *Node) Predicate() rule.Predicate {
	switch {
	case n.rule == nil && n.permission == nil:
		return rule.And()
	case n.rule == nil:
		return n.permission
	case n.permission == nil:
		return n.rule
	default:
		return rule.And(n.rule, n.permission)
	}
}

// Validate checks structural invariants: a usable id, a handler body, and
// an acyclic dependency declaration.
func (n *Node) Validate() error {
	if n.id == "" {
		return fmt.Errorf("node id cannot be empty")
	}
	if strings.ContainsAny(n.id, " \t\n\r") {
		return fmt.Errorf("node id %q cannot contain whitespace", n.id)
	}
	if n.handler == nil {
		return fmt.Errorf("node %s: handler cannot be nil", n.id)
	}
	if err := resolve.ValidateAcyclic(n.deps...); err != nil {
		return fmt.Errorf("node %s: %w", n.id, err)
	}
	return nil
}

func (n *Node) String() string {
	return fmt.Sprintf("Node(%s, priority=%d, block=%t)", n.id, n.priority, n.block)
}
