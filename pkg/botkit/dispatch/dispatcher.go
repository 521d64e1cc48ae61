package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/randalmurphal/botkit/pkg/botkit/event"
	"github.com/randalmurphal/botkit/pkg/botkit/journal"
	"github.com/randalmurphal/botkit/pkg/botkit/node"
	"github.com/randalmurphal/botkit/pkg/botkit/observability"
	"github.com/randalmurphal/botkit/pkg/botkit/registry"
	"github.com/randalmurphal/botkit/pkg/botkit/resolve"
)

// EventSpec is the seed spec for the current event. The dispatcher seeds it
// into every event's resolution context; providers and predicates declare it
// as a requirement to read the event being dispatched.
var EventSpec = resolve.NewSeed("event")

// CurrentEvent reads the current event from a resolution context.
func CurrentEvent(ctx context.Context, rc *resolve.Context) (event.Event, error) {
	return resolve.Value[event.Event](ctx, rc, EventSpec)
}

// SnapshotSource supplies the active node snapshot. *registry.Registry
// satisfies it.
type SnapshotSource interface {
	Snapshot() *registry.Snapshot
}

// submission pairs an event with its completion signal on the intake queue.
type submission struct {
	evt  event.Event
	comp *Completion
}

// Dispatcher is the event bus: it receives events on a buffered intake
// queue and runs one dispatch cycle per event on a worker pool.
//
// Each cycle captures the snapshot active at cycle start, evaluates node
// predicates, executes matching nodes tier by tier in ascending priority,
// honors block short-circuiting, and tears down the event's resolution
// context before signalling completion. Node failures are isolated: a
// failing predicate, resolution, or handler skips only that node.
type Dispatcher struct {
	cfg config
	src SnapshotSource

	intake chan *submission

	mu       sync.Mutex
	started  bool
	stopping bool
	submits  sync.WaitGroup // in-progress Submit calls
	workers  sync.WaitGroup

	cycleCtx    context.Context
	cycleCancel context.CancelFunc

	waiters waiterSet
}

// New creates a dispatcher reading snapshots from src.
func New(src SnapshotSource, opts ...Option) *Dispatcher {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Dispatcher{
		cfg:    cfg,
		src:    src,
		intake: make(chan *submission, cfg.queueSize),
	}
}

// Start launches the worker pool. Workers inherit ctx: cancelling it
// force-cancels in-flight cycles, so prefer Stop for a graceful exit.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started {
		return fmt.Errorf("dispatcher already started")
	}
	d.started = true
	d.cycleCtx, d.cycleCancel = context.WithCancel(ctx)

	d.workers.Add(d.cfg.workers)
	for i := 0; i < d.cfg.workers; i++ {
		go d.worker()
	}
	return nil
}

// Submit enqueues an event for dispatch and returns an awaitable completion.
// It blocks while the intake queue is full; ctx bounds the wait. Callers
// that want fire-and-forget drop the returned completion.
func (d *Dispatcher) Submit(ctx context.Context, evt event.Event) (*Completion, error) {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return nil, ErrNotStarted
	}
	if d.stopping {
		d.mu.Unlock()
		return nil, ErrStopped
	}
	d.submits.Add(1)
	d.mu.Unlock()
	defer d.submits.Done()

	observability.LogEventReceived(d.cfg.logger, evt.Seq(), evt.Type(), evt.Adapter())
	d.cfg.metrics.RecordQueueDepth(ctx, int64(len(d.intake)))

	sub := &submission{evt: evt, comp: newCompletion()}
	select {
	case d.intake <- sub:
		return sub.comp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-d.cycleCtx.Done():
		return nil, ErrStopped
	}
}

// Stop drains the dispatcher: it rejects new submissions, processes the
// events already admitted, and waits up to the grace period (shortened by
// ctx) for in-flight cycles to finish. Cycles still running at the deadline
// are force-cancelled; their teardown is still attempted.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.started || d.stopping {
		d.mu.Unlock()
		return nil
	}
	d.stopping = true
	d.mu.Unlock()

	// Let in-progress Submit calls land or bail before closing intake.
	d.submits.Wait()
	close(d.intake)

	d.waiters.failAll(ErrStopped)

	done := make(chan struct{})
	go func() {
		d.workers.Wait()
		close(done)
	}()

	timer := time.NewTimer(d.cfg.gracePeriod)
	defer timer.Stop()

	select {
	case <-done:
		d.cycleCancel()
		return nil
	case <-timer.C:
	case <-ctx.Done():
	}

	// Grace expired: force-cancel remaining cycles and wait them out.
	d.cycleCancel()
	<-done
	return ctx.Err()
}

// WaitFor blocks until an event matching m arrives, claiming it so the
// normal pipeline does not run for it. See waiter.go for options.
func (d *Dispatcher) WaitFor(ctx context.Context, m Matcher, opts ...WaitOption) (event.Event, error) {
	return d.waiters.wait(ctx, m, opts...)
}

func (d *Dispatcher) worker() {
	defer d.workers.Done()
	for sub := range d.intake {
		d.dispatch(sub)
	}
}

// dispatch runs one full cycle for one event.
func (d *Dispatcher) dispatch(sub *submission) {
	evt := sub.evt

	// Waiters get first claim; a claimed event skips the pipeline.
	if d.waiters.offer(evt) {
		if d.cfg.logger != nil {
			d.cfg.logger.Debug("event claimed by waiter",
				"event_seq", evt.Seq(), "event_type", evt.Type())
		}
		sub.comp.finish(nil, false, true)
		return
	}

	logger := observability.EnrichLogger(d.cfg.logger, evt.Seq(), evt.Type(), evt.Adapter())
	done := observability.TimedOperation()
	startedAt := time.Now()

	ctx, span := d.cfg.spans.StartDispatchSpan(d.cycleCtx, evt.Seq(), evt.Type(), evt.Adapter())

	snap := d.src.Snapshot()
	rc := resolve.NewContext()
	rc.Seed(EventSpec, evt)

	var results []NodeResult
	blocked := false

	for _, tier := range snap.Tiers() {
		if ctx.Err() != nil {
			break
		}
		tierResults, tierBlocked := d.runTier(ctx, tier, evt, rc)
		results = append(results, tierResults...)
		if tierBlocked {
			blocked = true
			break
		}
	}

	// Teardown runs even when the cycle was force-cancelled.
	tdCtx, tdCancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	if err := rc.Teardown(tdCtx); err != nil {
		observability.LogTeardownError(logger, evt.Seq(), err)
	}
	tdCancel()

	duration := time.Since(startedAt)
	d.cfg.metrics.RecordDispatch(ctx, evt.Adapter(), duration, len(results), blocked)
	d.cfg.spans.EndSpanWithError(span, nil)
	observability.LogDispatchComplete(logger, evt.Seq(), done(), len(results), blocked)

	d.record(ctx, evt, startedAt, duration, blocked, results)

	sub.comp.finish(results, blocked, false)
}

// runTier executes one priority tier. Nodes within a tier run concurrently
// unless sequential execution was configured; either way the tier finishes
// before the next one starts. Returns the tier's results in registration
// order and whether any node in it blocked.
func (d *Dispatcher) runTier(ctx context.Context, tier []*node.Node, evt event.Event, rc *resolve.Context) ([]NodeResult, bool) {
	outcomes := make([]*NodeResult, len(tier))
	blocks := make([]bool, len(tier))

	run := func(i int, n *node.Node) {
		res, blocked := d.runNode(ctx, n, evt, rc)
		outcomes[i] = res
		blocks[i] = blocked
	}

	if d.cfg.sequentialTiers {
		for i, n := range tier {
			run(i, n)
		}
	} else {
		var wg sync.WaitGroup
		wg.Add(len(tier))
		for i, n := range tier {
			go func(i int, n *node.Node) {
				defer wg.Done()
				run(i, n)
			}(i, n)
		}
		wg.Wait()
	}

	var results []NodeResult
	blocked := false
	for i, res := range outcomes {
		if res != nil {
			results = append(results, *res)
		}
		if blocks[i] {
			blocked = true
		}
	}
	return results, blocked
}

// runNode evaluates one node for one event: predicate, dependency
// resolution, handler. Every failure mode is isolated to this node. The
// returned result is nil when the node simply did not match. The bool
// reports whether the node blocks lower tiers: a blocking node counts once
// it matched and its handler was invoked, even if the handler failed.
func (d *Dispatcher) runNode(ctx context.Context, n *node.Node, evt event.Event, rc *resolve.Context) (*NodeResult, bool) {
	logger := d.cfg.logger

	matched, err := d.checkPredicate(ctx, n, evt, rc)
	if err != nil {
		perr := &PredicateError{NodeID: n.ID(), Err: err}
		observability.LogNodeSkipped(logger, n.ID(), "predicate_error", perr)
		return &NodeResult{
			NodeID: n.ID(), Plugin: n.Plugin(),
			Status: journal.StatusSkippedPredicate, Err: perr,
		}, false
	}
	if !matched {
		return nil, false
	}

	for _, spec := range n.Deps() {
		if _, err := rc.Resolve(ctx, spec); err != nil {
			rerr := &ResolutionError{NodeID: n.ID(), Err: err}
			observability.LogNodeSkipped(logger, n.ID(), "resolution_error", rerr)
			return &NodeResult{
				NodeID: n.ID(), Plugin: n.Plugin(),
				Status: journal.StatusSkippedResolution, Err: rerr,
			}, false
		}
	}

	observability.LogNodeStart(logger, n.ID())
	d.runNodeHooks(ctx, d.cfg.nodePreHooks, n.ID(), evt, "node pre hook")
	nodeCtx, span := d.cfg.spans.StartNodeSpan(ctx, n.ID())
	start := time.Now()

	err = d.invoke(nodeCtx, n, evt, rc)
	d.runNodeHooks(ctx, d.cfg.nodePostHooks, n.ID(), evt, "node post hook")

	elapsed := time.Since(start)
	d.cfg.metrics.RecordNodeExecution(nodeCtx, n.ID(), elapsed, err)
	d.cfg.spans.EndSpanWithError(span, err)

	res := &NodeResult{
		NodeID: n.ID(), Plugin: n.Plugin(),
		Status: journal.StatusExecuted, Duration: elapsed,
	}
	switch {
	case err == nil:
		observability.LogNodeComplete(logger, n.ID(), float64(elapsed.Milliseconds()))
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		res.Status = journal.StatusCancelled
		res.Err = &HandlerError{NodeID: n.ID(), Err: err}
		observability.LogNodeError(logger, n.ID(), res.Err)
	default:
		res.Status = journal.StatusFailed
		res.Err = &HandlerError{NodeID: n.ID(), Err: err}
		observability.LogNodeError(logger, n.ID(), res.Err)
	}

	// The handler ran, so the block applies regardless of its outcome.
	return res, n.Block()
}

// runNodeHooks invokes node hooks with panic containment. Hook failures are
// logged and never affect the node's outcome.
func (d *Dispatcher) runNodeHooks(ctx context.Context, hooks []NodeHook, nodeID string, evt event.Event, stage string) {
	for _, h := range hooks {
		err := func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("panic: %v", r)
				}
			}()
			return h(ctx, nodeID, evt)
		}()
		if err != nil && d.cfg.logger != nil {
			d.cfg.logger.Warn(stage+" failed",
				"node_id", nodeID, "event_seq", evt.Seq(), "error", err.Error())
		}
	}
}

// checkPredicate evaluates the node's predicate with panic containment.
func (d *Dispatcher) checkPredicate(ctx context.Context, n *node.Node, evt event.Event, rc *resolve.Context) (matched bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			matched = false
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return n.Predicate().Check(ctx, evt, rc)
}

// invoke runs the handler body with panic containment.
func (d *Dispatcher) invoke(ctx context.Context, n *node.Node, evt event.Event, rc *resolve.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return n.Handler()(ctx, evt, rc)
}

// record writes the cycle's outcome to the journal, if one is configured.
func (d *Dispatcher) record(ctx context.Context, evt event.Event, startedAt time.Time, duration time.Duration, blocked bool, results []NodeResult) {
	if d.cfg.recorder == nil {
		return
	}

	nodes := make([]journal.NodeRecord, len(results))
	for i, r := range results {
		nr := journal.NodeRecord{
			NodeID:     r.NodeID,
			Plugin:     r.Plugin,
			Status:     r.Status,
			DurationMs: float64(r.Duration.Microseconds()) / 1000,
		}
		if r.Err != nil {
			nr.Error = r.Err.Error()
		}
		nodes[i] = nr
	}

	rec := &journal.DispatchRecord{
		EventID:   evt.ID(),
		Seq:       evt.Seq(),
		EventType: evt.Type(),
		Adapter:   evt.Adapter(),
		Blocked:   blocked,
		StartedAt: startedAt,
		Duration:  duration,
		Nodes:     nodes,
	}
	if err := d.cfg.recorder.Record(context.WithoutCancel(ctx), rec); err != nil && d.cfg.logger != nil {
		d.cfg.logger.Warn("journal write failed",
			"event_seq", evt.Seq(), "error", err.Error())
	}
}
