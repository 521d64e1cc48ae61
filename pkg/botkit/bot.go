package botkit

import (
	"context"
	"fmt"
	"sync"

	"github.com/randalmurphal/botkit/pkg/botkit/adapter"
	"github.com/randalmurphal/botkit/pkg/botkit/dispatch"
	"github.com/randalmurphal/botkit/pkg/botkit/event"
	"github.com/randalmurphal/botkit/pkg/botkit/registry"
)

// Hook runs at a bot lifecycle moment.
type Hook func(ctx context.Context, b *Bot) error

// EventHook runs before or after an event's dispatch cycle.
type EventHook func(ctx context.Context, evt event.Event) error

// Bot composes the registry, the dispatcher, and the adapter supervisor
// into one process-wide lifecycle: construct with New, start with Run,
// stop by cancelling Run's context or calling Shutdown.
type Bot struct {
	cfg        botConfig
	registry   *registry.Registry
	dispatcher *dispatch.Dispatcher
	supervisor *adapter.Supervisor

	mu      sync.Mutex
	running bool
}

// New builds a bot. Plugins given via WithPlugins are validated and loaded
// here; a validation failure fails construction.
func New(opts ...Option) (*Bot, error) {
	cfg := defaultBotConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	reg := registry.New()
	for _, p := range cfg.plugins {
		if err := reg.Load(p); err != nil {
			return nil, fmt.Errorf("load plugin: %w", err)
		}
	}

	b := &Bot{cfg: cfg, registry: reg}

	dispatchOpts := append([]dispatch.Option{dispatch.WithLogger(cfg.logger)}, cfg.dispatchOpts...)
	b.dispatcher = dispatch.New(reg, dispatchOpts...)

	supervisorOpts := append([]adapter.Option{adapter.WithLogger(cfg.logger)}, cfg.supervisorOpts...)
	b.supervisor = adapter.NewSupervisor(&botSink{bot: b}, supervisorOpts...)

	return b, nil
}

// Run starts the bot and blocks until ctx is cancelled, then performs a
// graceful shutdown. Startup order: dispatcher, startup hooks, adapters.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return b.Shutdown(context.Background())
}

// Start launches the dispatcher, runs the startup hooks, and starts the
// adapters. It does not block; most callers want Run.
func (b *Bot) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return fmt.Errorf("bot already running")
	}
	b.running = true
	b.mu.Unlock()

	fail := func(err error) error {
		_ = b.dispatcher.Stop(ctx)
		b.mu.Lock()
		b.running = false
		b.mu.Unlock()
		return err
	}

	if err := b.dispatcher.Start(context.WithoutCancel(ctx)); err != nil {
		b.mu.Lock()
		b.running = false
		b.mu.Unlock()
		return err
	}

	for _, h := range b.cfg.startupHooks {
		if err := b.runHook(ctx, h); err != nil {
			return fail(fmt.Errorf("startup hook: %w", err))
		}
	}

	if len(b.cfg.adapters) > 0 {
		if err := b.supervisor.Start(context.WithoutCancel(ctx), b.cfg.adapters...); err != nil {
			return fail(fmt.Errorf("start adapters: %w", err))
		}
	}

	if b.cfg.logger != nil {
		b.cfg.logger.Info("bot started",
			"plugins", len(b.registry.Plugins()),
			"adapters", len(b.cfg.adapters))
	}
	return nil
}

// Shutdown stops the bot gracefully: adapters first (no new input), then
// the dispatcher (drain admitted events up to the grace period), then the
// shutdown hooks. Hook errors are logged, never returned.
func (b *Bot) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return nil
	}
	b.running = false
	b.mu.Unlock()

	if err := b.supervisor.Stop(b.cfg.gracePeriod); err != nil && b.cfg.logger != nil {
		b.cfg.logger.Warn("supervisor stop", "error", err.Error())
	}

	err := b.dispatcher.Stop(ctx)

	for _, h := range b.cfg.shutdownHooks {
		if herr := b.runHook(ctx, h); herr != nil && b.cfg.logger != nil {
			b.cfg.logger.Warn("shutdown hook failed", "error", herr.Error())
		}
	}

	if b.cfg.logger != nil {
		b.cfg.logger.Info("bot stopped")
	}
	return err
}

// Submit pushes an event through the preprocessors and into the
// dispatcher, returning the awaitable completion. Application code uses it
// to inject synthetic events; adapters go through the same path.
func (b *Bot) Submit(ctx context.Context, evt event.Event) (*dispatch.Completion, error) {
	for _, pre := range b.cfg.preprocessors {
		if err := b.runEventHook(ctx, pre, evt); err != nil {
			if b.cfg.logger != nil {
				b.cfg.logger.Warn("event dropped by preprocessor",
					"event_seq", evt.Seq(), "error", err.Error())
			}
			return nil, fmt.Errorf("event preprocessor: %w", err)
		}
	}

	comp, err := b.dispatcher.Submit(ctx, evt)
	if err != nil {
		return nil, err
	}

	if len(b.cfg.postprocessors) > 0 {
		go func() {
			<-comp.Done()
			for _, post := range b.cfg.postprocessors {
				if err := b.runEventHook(context.WithoutCancel(ctx), post, evt); err != nil && b.cfg.logger != nil {
					b.cfg.logger.Warn("event postprocessor failed",
						"event_seq", evt.Seq(), "error", err.Error())
				}
			}
		}()
	}
	return comp, nil
}

// WaitFor blocks until an event matching m arrives and claims it; the
// claimed event skips the pipeline. Handlers use it for multi-step
// conversations.
func (b *Bot) WaitFor(ctx context.Context, m dispatch.Matcher, opts ...dispatch.WaitOption) (event.Event, error) {
	return b.dispatcher.WaitFor(ctx, m, opts...)
}

// Load registers a plugin while the bot is running.
func (b *Bot) Load(p registry.Plugin) error {
	return b.registry.Load(p)
}

// Unload removes a plugin while the bot is running.
func (b *Bot) Unload(name string) error {
	return b.registry.Unload(name)
}

// Reload hot-swaps a plugin. The swap is atomic: in-flight dispatch cycles
// finish against the snapshot they captured, and the old definition stays
// active if the new one fails validation.
func (b *Bot) Reload(p registry.Plugin) error {
	return b.registry.Reload(p)
}

// Registry exposes the underlying plugin registry.
func (b *Bot) Registry() *registry.Registry {
	return b.registry
}

// Adapter looks up a running adapter by name, for handlers that emit
// outbound messages.
func (b *Bot) Adapter(name string) (adapter.Adapter, bool) {
	return b.supervisor.Adapter(name)
}

// Send delivers an outbound payload through a named adapter.
func (b *Bot) Send(ctx context.Context, adapterName, target string, payload any) error {
	return b.supervisor.Send(ctx, adapterName, target, payload)
}

// runHook invokes a lifecycle hook with panic containment.
func (b *Bot) runHook(ctx context.Context, h Hook) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h(ctx, b)
}

// runEventHook invokes an event hook with panic containment.
func (b *Bot) runEventHook(ctx context.Context, h EventHook, evt event.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h(ctx, evt)
}

// botSink routes adapter events through the bot's Submit path so the
// preprocessors see adapter traffic too.
type botSink struct {
	bot *Bot
}

func (s *botSink) Submit(ctx context.Context, evt event.Event) (*dispatch.Completion, error) {
	return s.bot.Submit(ctx, evt)
}
