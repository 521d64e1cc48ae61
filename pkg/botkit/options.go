package botkit

import (
	"log/slog"
	"time"

	"github.com/randalmurphal/botkit/pkg/botkit/adapter"
	"github.com/randalmurphal/botkit/pkg/botkit/config"
	"github.com/randalmurphal/botkit/pkg/botkit/dispatch"
	kerrors "github.com/randalmurphal/botkit/pkg/botkit/errors"
	"github.com/randalmurphal/botkit/pkg/botkit/journal"
	"github.com/randalmurphal/botkit/pkg/botkit/observability"
	"github.com/randalmurphal/botkit/pkg/botkit/registry"
)

type botConfig struct {
	logger      *slog.Logger
	gracePeriod time.Duration

	dispatchOpts   []dispatch.Option
	supervisorOpts []adapter.Option

	plugins  []registry.Plugin
	adapters []adapter.Adapter

	startupHooks   []Hook
	shutdownHooks  []Hook
	preprocessors  []EventHook
	postprocessors []EventHook
}

func defaultBotConfig() botConfig {
	return botConfig{
		gracePeriod: dispatch.DefaultGracePeriod,
	}
}

// Option configures bot construction.
type Option func(*botConfig)

// WithLogger sets the structured logger shared by the dispatcher and the
// adapter supervisor. A nil logger disables logging.
func WithLogger(l *slog.Logger) Option {
	return func(c *botConfig) {
		c.logger = l
	}
}

// WithMetrics enables metrics recording on the dispatcher and supervisor.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(c *botConfig) {
		c.dispatchOpts = append(c.dispatchOpts, dispatch.WithMetrics(m))
		c.supervisorOpts = append(c.supervisorOpts, adapter.WithMetrics(m))
	}
}

// WithSpans enables trace spans on the dispatcher.
func WithSpans(s observability.SpanManager) Option {
	return func(c *botConfig) {
		c.dispatchOpts = append(c.dispatchOpts, dispatch.WithSpans(s))
	}
}

// WithJournal enables the dispatch journal.
func WithJournal(r journal.Recorder) Option {
	return func(c *botConfig) {
		c.dispatchOpts = append(c.dispatchOpts, dispatch.WithJournal(r))
	}
}

// WithGracePeriod sets the shutdown grace period applied to both the
// supervisor and the dispatcher.
func WithGracePeriod(d time.Duration) Option {
	return func(c *botConfig) {
		if d > 0 {
			c.gracePeriod = d
			c.dispatchOpts = append(c.dispatchOpts, dispatch.WithGracePeriod(d))
		}
	}
}

// WithDispatchOptions passes options through to the dispatcher.
func WithDispatchOptions(opts ...dispatch.Option) Option {
	return func(c *botConfig) {
		c.dispatchOpts = append(c.dispatchOpts, opts...)
	}
}

// WithSupervisorOptions passes options through to the adapter supervisor.
func WithSupervisorOptions(opts ...adapter.Option) Option {
	return func(c *botConfig) {
		c.supervisorOpts = append(c.supervisorOpts, opts...)
	}
}

// WithPlugins loads plugins at construction time. Validation failures fail
// New.
func WithPlugins(plugins ...registry.Plugin) Option {
	return func(c *botConfig) {
		c.plugins = append(c.plugins, plugins...)
	}
}

// WithAdapters registers the protocol adapters the bot runs.
func WithAdapters(adapters ...adapter.Adapter) Option {
	return func(c *botConfig) {
		c.adapters = append(c.adapters, adapters...)
	}
}

// WithStartupHook adds a hook that runs during Run, after the dispatcher
// starts and before the adapters start. A failing hook aborts startup.
func WithStartupHook(h Hook) Option {
	return func(c *botConfig) {
		c.startupHooks = append(c.startupHooks, h)
	}
}

// WithShutdownHook adds a hook that runs during Shutdown, after the
// adapters and dispatcher stop. Hook errors are logged, never fatal.
func WithShutdownHook(h Hook) Option {
	return func(c *botConfig) {
		c.shutdownHooks = append(c.shutdownHooks, h)
	}
}

// WithEventPreprocessor adds a hook that runs before an event enters the
// pipeline. A preprocessor error drops the event; the drop is logged and
// other events are unaffected.
func WithEventPreprocessor(h EventHook) Option {
	return func(c *botConfig) {
		c.preprocessors = append(c.preprocessors, h)
	}
}

// WithEventPostprocessor adds a hook that runs after an event's dispatch
// cycle completes. Errors are logged, never fatal.
func WithEventPostprocessor(h EventHook) Option {
	return func(c *botConfig) {
		c.postprocessors = append(c.postprocessors, h)
	}
}

// FromConfig maps a loaded configuration onto bot options. Recognized
// sections and keys:
//
//	dispatcher:
//	  workers, queue_size, sequential_tiers, grace_period
//	adapters:
//	  retry_attempts, retry_initial_backoff, retry_max_backoff
//
// Unknown keys are ignored, so a config file may carry application
// settings alongside the bot's.
func FromConfig(cfg config.Config) Option {
	return func(c *botConfig) {
		disp := cfg.Sub("dispatcher")
		if disp.Has("workers") {
			c.dispatchOpts = append(c.dispatchOpts, dispatch.WithWorkers(disp.Int("workers", dispatch.DefaultWorkers)))
		}
		if disp.Has("queue_size") {
			c.dispatchOpts = append(c.dispatchOpts, dispatch.WithQueueSize(disp.Int("queue_size", dispatch.DefaultQueueSize)))
		}
		if disp.Bool("sequential_tiers", false) {
			c.dispatchOpts = append(c.dispatchOpts, dispatch.WithSequentialTiers())
		}
		if disp.Has("grace_period") {
			WithGracePeriod(disp.Duration("grace_period", dispatch.DefaultGracePeriod))(c)
		}

		ad := cfg.Sub("adapters")
		if ad.Has("retry_attempts") || ad.Has("retry_initial_backoff") || ad.Has("retry_max_backoff") {
			retry := kerrors.DefaultRetry
			retry.MaxAttempts = ad.Int("retry_attempts", retry.MaxAttempts)
			retry.InitialBackoff = ad.Duration("retry_initial_backoff", retry.InitialBackoff)
			retry.MaxBackoff = ad.Duration("retry_max_backoff", retry.MaxBackoff)
			c.supervisorOpts = append(c.supervisorOpts, adapter.WithRetryPolicy(retry))
		}
	}
}
