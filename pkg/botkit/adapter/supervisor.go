package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	kerrors "github.com/randalmurphal/botkit/pkg/botkit/errors"
	"github.com/randalmurphal/botkit/pkg/botkit/observability"
)

// ErrReceiveLoopExited marks a receive loop that returned without an error
// while its context was still live.
var ErrReceiveLoopExited = errors.New("receive loop exited unexpectedly")

// ErrAdapterNotFound indicates a lookup or send for an unknown adapter.
var ErrAdapterNotFound = errors.New("adapter not found")

// State is an adapter handle's lifecycle state.
type State string

// Handle states.
const (
	StateRunning State = "running"
	StateBackoff State = "backoff"
	StateFailed  State = "failed"
	StateStopped State = "stopped"
)

// Handle is the supervisor's record of one running adapter.
type Handle struct {
	adapter Adapter

	mu       sync.Mutex
	state    State
	attempts int
	lastErr  error
}

// State returns the handle's current lifecycle state.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// LastError returns the most recent receive-loop error, if any.
func (h *Handle) LastError() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastErr
}

func (h *Handle) set(s State, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state = s
	if err != nil {
		h.lastErr = err
	}
}

func (h *Handle) bumpAttempts() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.attempts++
	return h.attempts
}

type supervisorConfig struct {
	retry   kerrors.RetryConfig
	logger  *slog.Logger
	metrics observability.MetricsRecorder
}

// Option configures a Supervisor.
type Option func(*supervisorConfig)

// WithRetryPolicy sets the per-adapter restart policy applied when a
// receive loop exits unexpectedly.
func WithRetryPolicy(cfg kerrors.RetryConfig) Option {
	return func(c *supervisorConfig) {
		c.retry = cfg
	}
}

// WithLogger sets the structured logger. A nil logger disables logging.
func WithLogger(l *slog.Logger) Option {
	return func(c *supervisorConfig) {
		c.logger = l
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(c *supervisorConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// Supervisor runs N adapters, each on its own goroutine, and forwards their
// events to a sink. A receive loop that exits unexpectedly is restarted
// under a bounded retry/backoff policy; when the budget is exhausted the
// handle is marked failed. One adapter's failure never affects the others
// or the sink.
type Supervisor struct {
	cfg  supervisorConfig
	sink Sink

	mu      sync.Mutex
	handles map[string]*Handle
	started bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSupervisor creates a supervisor forwarding events to sink.
func NewSupervisor(sink Sink, opts ...Option) *Supervisor {
	cfg := supervisorConfig{
		retry:   kerrors.DefaultRetry,
		metrics: observability.NoopMetrics{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Supervisor{
		cfg:     cfg,
		sink:    sink,
		handles: make(map[string]*Handle),
	}
}

// Start launches one receive loop per adapter. Adapter names must be unique.
func (s *Supervisor) Start(ctx context.Context, adapters ...Adapter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("supervisor already started")
	}

	for _, a := range adapters {
		if _, dup := s.handles[a.Name()]; dup {
			return fmt.Errorf("duplicate adapter name: %s", a.Name())
		}
		s.handles[a.Name()] = &Handle{adapter: a, state: StateRunning}
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.started = true

	for _, a := range adapters {
		h := s.handles[a.Name()]
		s.wg.Add(1)
		go func(a Adapter, h *Handle) {
			defer s.wg.Done()
			s.run(runCtx, a, h)
		}(a, h)
	}
	return nil
}

// run supervises one adapter's receive loop until it stops cleanly or
// exhausts its restart budget.
func (s *Supervisor) run(ctx context.Context, a Adapter, h *Handle) {
	retry := s.cfg.retry
	// Every unexpected loop exit is worth a restart attempt; the policy's
	// categorization applies, not the default transient/permanent split.
	if retry.RetryableFunc == nil {
		retry.RetryableFunc = func(error) bool { return true }
	}

	res := kerrors.WithRetryContext(ctx, retry, func(ctx context.Context) (struct{}, error) {
		h.set(StateRunning, nil)
		err := a.Start(ctx, s.sink)

		if ctx.Err() != nil {
			// Shutdown, not a crash.
			return struct{}{}, nil
		}
		if err == nil {
			err = ErrReceiveLoopExited
		}

		attempt := h.bumpAttempts()
		h.set(StateBackoff, err)
		observability.LogAdapterRestart(s.cfg.logger, a.Name(), attempt, err)
		s.cfg.metrics.RecordAdapterRestart(ctx, a.Name())
		return struct{}{}, err
	})

	switch {
	case ctx.Err() != nil:
		h.set(StateStopped, nil)
	case res.Err != nil:
		h.set(StateFailed, res.Err)
		observability.LogAdapterFailed(s.cfg.logger, a.Name(), res.Err)
	default:
		h.set(StateStopped, nil)
	}
}

// Stop shuts the adapters down: it cancels every receive loop, calls each
// adapter's Stop, and waits up to grace for the loops to finish. Loops
// still running at the deadline are abandoned; their context is already
// cancelled.
func (s *Supervisor) Stop(grace time.Duration) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	cancel := s.cancel
	handles := make([]*Handle, 0, len(s.handles))
	for _, h := range s.handles {
		handles = append(handles, h)
	}
	s.mu.Unlock()

	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), grace)
	defer stopCancel()

	var stopWG sync.WaitGroup
	for _, h := range handles {
		stopWG.Add(1)
		go func(h *Handle) {
			defer stopWG.Done()
			if err := h.adapter.Stop(stopCtx); err != nil && s.cfg.logger != nil {
				s.cfg.logger.Warn("adapter stop failed",
					"adapter", h.adapter.Name(), "error", err.Error())
			}
		}(h)
	}
	stopWG.Wait()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-stopCtx.Done():
		return fmt.Errorf("adapter loops still running after grace period")
	}
}

// Adapter looks up a running adapter by name, for handlers that emit
// outbound messages.
func (s *Supervisor) Adapter(name string) (Adapter, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.handles[name]
	if !ok {
		return nil, false
	}
	return h.adapter, true
}

// Handle returns the supervisor's record for a named adapter.
func (s *Supervisor) Handle(name string) (*Handle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.handles[name]
	return h, ok
}

// Send delivers an outbound payload through a named adapter. Failures are
// logged and returned; they never affect the adapter's receive loop.
func (s *Supervisor) Send(ctx context.Context, adapterName, target string, payload any) error {
	a, ok := s.Adapter(adapterName)
	if !ok {
		return fmt.Errorf("%w: %s", ErrAdapterNotFound, adapterName)
	}
	if err := a.Send(ctx, target, payload); err != nil {
		if s.cfg.logger != nil {
			s.cfg.logger.Error("adapter send failed",
				"adapter", adapterName, "target", target, "error", err.Error())
		}
		return fmt.Errorf("send via %s: %w", adapterName, err)
	}
	return nil
}

// States reports every handle's current state, keyed by adapter name.
func (s *Supervisor) States() map[string]State {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]State, len(s.handles))
	for name, h := range s.handles {
		out[name] = h.State()
	}
	return out
}
