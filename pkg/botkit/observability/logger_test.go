package observability

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func captureLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	return logger, &buf
}

func TestNilLoggerIsSafe(t *testing.T) {
	assert.NotPanics(t, func() {
		assert.Nil(t, EnrichLogger(nil, 1, "t", "a"))
		LogEventReceived(nil, 1, "t", "a")
		LogDispatchComplete(nil, 1, 1.5, 2, false)
		LogNodeStart(nil, "n")
		LogNodeComplete(nil, "n", 1.5)
		LogNodeError(nil, "n", errors.New("x"))
		LogNodeSkipped(nil, "n", "r", errors.New("x"))
		LogTeardownError(nil, 1, errors.New("x"))
		LogAdapterRestart(nil, "a", 1, errors.New("x"))
		LogAdapterFailed(nil, "a", errors.New("x"))
	})
}

func TestEnrichLogger(t *testing.T) {
	logger, buf := captureLogger()

	enriched := EnrichLogger(logger, 42, "message.group", "onebot")
	enriched.Info("dispatching")

	out := buf.String()
	assert.Contains(t, out, "event_seq=42")
	assert.Contains(t, out, "event_type=message.group")
	assert.Contains(t, out, "adapter=onebot")
}

func TestLogHelpers(t *testing.T) {
	logger, buf := captureLogger()

	LogEventReceived(logger, 7, "message.text", "console")
	LogNodeStart(logger, "greeter")
	LogNodeComplete(logger, "greeter", 2.5)
	LogNodeError(logger, "greeter", errors.New("boom"))
	LogNodeSkipped(logger, "greeter", "predicate_error", errors.New("broke"))
	LogDispatchComplete(logger, 7, 10.0, 3, true)
	LogTeardownError(logger, 7, errors.New("release failed"))
	LogAdapterRestart(logger, "onebot", 2, errors.New("conn reset"))
	LogAdapterFailed(logger, "onebot", errors.New("gave up"))

	out := buf.String()
	for _, want := range []string{
		"event received",
		"node starting",
		"node completed",
		"node failed",
		"node skipped",
		"dispatch completed",
		"teardown failed",
		"adapter restarting",
		"adapter failed",
	} {
		assert.Contains(t, out, want)
	}
	assert.Contains(t, out, "blocked=true")
	assert.Contains(t, out, "reason=predicate_error")
}

func TestTimedOperation(t *testing.T) {
	done := TimedOperation()
	time.Sleep(5 * time.Millisecond)
	assert.GreaterOrEqual(t, done(), float64(0))
}
