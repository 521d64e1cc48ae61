package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/randalmurphal/botkit/pkg/botkit/event"
	"github.com/randalmurphal/botkit/pkg/botkit/journal"
	"github.com/randalmurphal/botkit/pkg/botkit/observability"
)

// NodeHook observes a single node execution within a dispatch cycle. Pre
// hooks run after the node matched and its dependencies resolved; post
// hooks run after the handler returned. Hook errors and panics are logged
// and never affect the node's outcome.
type NodeHook func(ctx context.Context, nodeID string, evt event.Event) error

// Defaults for dispatcher construction.
const (
	DefaultQueueSize   = 256
	DefaultWorkers     = 8
	DefaultGracePeriod = 10 * time.Second
)

type config struct {
	queueSize       int
	workers         int
	sequentialTiers bool
	gracePeriod     time.Duration
	logger          *slog.Logger
	metrics         observability.MetricsRecorder
	spans           observability.SpanManager
	recorder        journal.Recorder
	nodePreHooks    []NodeHook
	nodePostHooks   []NodeHook
}

func defaultConfig() config {
	return config{
		queueSize:   DefaultQueueSize,
		workers:     DefaultWorkers,
		gracePeriod: DefaultGracePeriod,
		metrics:     observability.NoopMetrics{},
		spans:       observability.NoopSpanManager{},
	}
}

// Option configures a Dispatcher.
type Option func(*config)

// WithQueueSize sets the intake queue capacity.
func WithQueueSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.queueSize = n
		}
	}
}

// WithWorkers sets the number of dispatch workers, and so the maximum number
// of events in flight simultaneously.
func WithWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithSequentialTiers forces nodes within a priority tier to run one at a
// time in registration order. The default runs a tier's nodes concurrently;
// no ordering is promised within a tier either way.
func WithSequentialTiers() Option {
	return func(c *config) {
		c.sequentialTiers = true
	}
}

// WithGracePeriod sets how long Stop waits for in-flight cycles before
// force-cancelling them.
func WithGracePeriod(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.gracePeriod = d
		}
	}
}

// WithLogger sets the structured logger. A nil logger disables logging.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(c *config) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithSpans sets the trace span manager.
func WithSpans(s observability.SpanManager) Option {
	return func(c *config) {
		if s != nil {
			c.spans = s
		}
	}
}

// WithNodePreHook registers a hook invoked before each matched node's
// handler runs.
func WithNodePreHook(h NodeHook) Option {
	return func(c *config) {
		if h != nil {
			c.nodePreHooks = append(c.nodePreHooks, h)
		}
	}
}

// WithNodePostHook registers a hook invoked after each matched node's
// handler returns.
func WithNodePostHook(h NodeHook) Option {
	return func(c *config) {
		if h != nil {
			c.nodePostHooks = append(c.nodePostHooks, h)
		}
	}
}

// WithJournal sets the dispatch journal. The dispatcher writes one record
// per completed cycle; a nil recorder disables journaling.
func WithJournal(r journal.Recorder) Option {
	return func(c *config) {
		c.recorder = r
	}
}
