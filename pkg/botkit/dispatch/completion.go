package dispatch

import (
	"context"
	"time"

	"github.com/randalmurphal/botkit/pkg/botkit/journal"
)

// NodeResult is the outcome of one node for one event.
type NodeResult struct {
	NodeID   string
	Plugin   string
	Status   journal.NodeStatus
	Err      error
	Duration time.Duration
}

// Completion is the awaitable result of one submitted event. Submit returns
// it immediately; it is signalled once the event's dispatch cycle finishes
// (including teardown). Callers that want fire-and-forget simply drop it.
type Completion struct {
	done    chan struct{}
	results []NodeResult
	blocked bool
	claimed bool
}

func newCompletion() *Completion {
	return &Completion{done: make(chan struct{})}
}

// Done returns a channel closed when the dispatch cycle has finished.
func (c *Completion) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the cycle finishes or ctx is cancelled.
func (c *Completion) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Results returns the per-node outcomes of the cycle. Valid only after Done.
func (c *Completion) Results() []NodeResult {
	return c.results
}

// Blocked reports whether a blocking node short-circuited the cycle.
// Valid only after Done.
func (c *Completion) Blocked() bool {
	return c.blocked
}

// Claimed reports whether an event waiter claimed the event, in which case
// the pipeline did not run and Results is empty. Valid only after Done.
func (c *Completion) Claimed() bool {
	return c.claimed
}

// Errors returns the errors of all failed nodes in execution order.
// Valid only after Done.
func (c *Completion) Errors() []error {
	var errs []error
	for _, r := range c.results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return errs
}

// finish records the outcome and signals waiters. Called exactly once.
func (c *Completion) finish(results []NodeResult, blocked, claimed bool) {
	c.results = results
	c.blocked = blocked
	c.claimed = claimed
	close(c.done)
}
