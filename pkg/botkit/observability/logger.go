// Package observability provides production-grade observability features
// for botkit: structured logging, metrics, and distributed tracing.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds dispatch context to a logger.
// Returns a new logger with event_seq, event_type, and adapter fields.
//
// Example:
//
//	enriched := EnrichLogger(logger, 42, "message.group", "onebot")
//	enriched.Info("dispatching") // includes event_seq, event_type, adapter
func EnrichLogger(logger *slog.Logger, seq uint64, eventType, adapter string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.Uint64("event_seq", seq),
		slog.String("event_type", eventType),
		slog.String("adapter", adapter),
	)
}

// LogEventReceived logs an event entering the intake queue.
func LogEventReceived(logger *slog.Logger, seq uint64, eventType, adapter string) {
	if logger == nil {
		return
	}
	logger.Info("event received",
		slog.Uint64("event_seq", seq),
		slog.String("event_type", eventType),
		slog.String("adapter", adapter),
	)
}

// LogDispatchComplete logs a finished dispatch cycle.
func LogDispatchComplete(logger *slog.Logger, seq uint64, durationMs float64, matched int, blocked bool) {
	if logger == nil {
		return
	}
	logger.Info("dispatch completed",
		slog.Uint64("event_seq", seq),
		slog.Float64("duration_ms", durationMs),
		slog.Int("nodes_matched", matched),
		slog.Bool("blocked", blocked),
	)
}

// LogNodeStart logs node execution start.
func LogNodeStart(logger *slog.Logger, nodeID string) {
	if logger == nil {
		return
	}
	logger.Debug("node starting",
		slog.String("node_id", nodeID),
	)
}

// LogNodeComplete logs successful node completion.
func LogNodeComplete(logger *slog.Logger, nodeID string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("node completed",
		slog.String("node_id", nodeID),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogNodeError logs node execution error.
func LogNodeError(logger *slog.Logger, nodeID string, err error) {
	if logger == nil {
		return
	}
	logger.Error("node failed",
		slog.String("node_id", nodeID),
		slog.String("error", err.Error()),
	)
}

// LogNodeSkipped logs a node skipped due to predicate or resolution failure.
func LogNodeSkipped(logger *slog.Logger, nodeID, reason string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("node skipped",
		slog.String("node_id", nodeID),
		slog.String("reason", reason),
		slog.String("error", err.Error()),
	)
}

// LogTeardownError logs a resolution-context teardown failure (non-fatal).
func LogTeardownError(logger *slog.Logger, seq uint64, err error) {
	if logger == nil {
		return
	}
	logger.Warn("teardown failed",
		slog.Uint64("event_seq", seq),
		slog.String("error", err.Error()),
	)
}

// LogAdapterRestart logs an adapter receive-loop restart attempt.
func LogAdapterRestart(logger *slog.Logger, adapter string, attempt int, err error) {
	if logger == nil {
		return
	}
	logger.Warn("adapter restarting",
		slog.String("adapter", adapter),
		slog.Int("attempt", attempt),
		slog.String("error", err.Error()),
	)
}

// LogAdapterFailed logs an adapter giving up after its retry budget.
func LogAdapterFailed(logger *slog.Logger, adapter string, err error) {
	if logger == nil {
		return
	}
	logger.Error("adapter failed",
		slog.String("adapter", adapter),
		slog.String("error", err.Error()),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	durationMs := done()
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
