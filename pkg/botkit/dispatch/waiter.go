package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/randalmurphal/botkit/pkg/botkit/event"
)

// Matcher decides whether a waiter claims an event.
type Matcher func(evt event.Event) bool

// DefaultWaitTimeout bounds a waiter that sets no explicit timeout.
const DefaultWaitTimeout = 60 * time.Second

type waitConfig struct {
	timeout   time.Duration
	maxEvents int
}

// WaitOption configures WaitFor.
type WaitOption func(*waitConfig)

// WithWaitTimeout bounds how long the waiter blocks for a match.
func WithWaitTimeout(d time.Duration) WaitOption {
	return func(c *waitConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxEvents bounds how many events the waiter inspects before giving
// up with ErrWaitBudget. Zero means unlimited.
func WithMaxEvents(n int) WaitOption {
	return func(c *waitConfig) {
		if n > 0 {
			c.maxEvents = n
		}
	}
}

// waiter is one registered WaitFor call.
type waiter struct {
	match     Matcher
	maxEvents int
	seen      int

	// result carries the claimed event or the budget error; buffered so
	// the dispatch worker never blocks on delivery.
	result chan waitResult
}

type waitResult struct {
	evt event.Event
	err error
}

// waiterSet holds the active waiters in registration order. Events are
// offered to waiters before the pipeline runs; the first match claims the
// event and the claimed event skips normal dispatch.
type waiterSet struct {
	mu      sync.Mutex
	waiters []*waiter
	failed  error
}

// wait registers a waiter and blocks for a match, timeout, budget
// exhaustion, or cancellation.
func (ws *waiterSet) wait(ctx context.Context, m Matcher, opts ...WaitOption) (event.Event, error) {
	if m == nil {
		m = func(event.Event) bool { return true }
	}
	cfg := waitConfig{timeout: DefaultWaitTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}

	w := &waiter{match: m, maxEvents: cfg.maxEvents, result: make(chan waitResult, 1)}

	ws.mu.Lock()
	if ws.failed != nil {
		err := ws.failed
		ws.mu.Unlock()
		return nil, err
	}
	ws.waiters = append(ws.waiters, w)
	ws.mu.Unlock()

	timer := time.NewTimer(cfg.timeout)
	defer timer.Stop()

	select {
	case res := <-w.result:
		return res.evt, res.err
	case <-timer.C:
		ws.remove(w)
		// A delivery may have raced the timeout.
		select {
		case res := <-w.result:
			return res.evt, res.err
		default:
			return nil, ErrWaitTimeout
		}
	case <-ctx.Done():
		ws.remove(w)
		select {
		case res := <-w.result:
			return res.evt, res.err
		default:
			return nil, ctx.Err()
		}
	}
}

// offer presents an event to the waiters in registration order. The first
// matching waiter claims it; offer reports whether the event was claimed.
// Waiters that exhaust their event budget on this event fail with
// ErrWaitBudget.
func (ws *waiterSet) offer(evt event.Event) bool {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	kept := ws.waiters[:0]
	claimed := false
	for _, w := range ws.waiters {
		if claimed {
			kept = append(kept, w)
			continue
		}
		if w.match(evt) {
			w.result <- waitResult{evt: evt}
			claimed = true
			continue
		}
		if w.maxEvents > 0 {
			w.seen++
			if w.seen >= w.maxEvents {
				w.result <- waitResult{err: ErrWaitBudget}
				continue
			}
		}
		kept = append(kept, w)
	}
	ws.waiters = kept
	return claimed
}

// remove drops a waiter, typically after its timeout or cancellation.
func (ws *waiterSet) remove(target *waiter) {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	kept := ws.waiters[:0]
	for _, w := range ws.waiters {
		if w != target {
			kept = append(kept, w)
		}
	}
	ws.waiters = kept
}

// failAll fails every active waiter and rejects future ones, used when the
// dispatcher stops.
func (ws *waiterSet) failAll(err error) {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	ws.failed = err
	for _, w := range ws.waiters {
		w.result <- waitResult{err: err}
	}
	ws.waiters = nil
}
