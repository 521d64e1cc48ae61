package errors

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategorize(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Category
	}{
		{"explicit transient", Transient(stderrors.New("conn reset"), "recv"), CategoryTransient},
		{"explicit permanent", Permanent(stderrors.New("bad token"), "auth"), CategoryPermanent},
		{"timeout", &TimeoutError{Operation: "recv", Duration: "5s"}, CategoryTransient},
		{"context canceled", context.Canceled, CategoryPermanent},
		{"deadline exceeded", context.DeadlineExceeded, CategoryPermanent},
		{"unknown defaults transient", stderrors.New("connection refused"), CategoryTransient},
		{"nil fails safe", nil, CategoryPermanent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Categorize(tt.err))
		})
	}
}

func TestCategorizedErrorUnwrap(t *testing.T) {
	base := stderrors.New("connection reset")
	err := Transient(base, "receive loop")

	assert.ErrorIs(t, err, base)
	assert.Contains(t, err.Error(), "receive loop")
	assert.Contains(t, err.Error(), "transient")
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(stderrors.New("flaky")))
	assert.False(t, IsRetryable(Permanent(stderrors.New("bad creds"), "")))
}

func TestWithRetrySucceedsAfterFailures(t *testing.T) {
	attempts := 0
	cfg := RetryConfig{
		MaxAttempts:    5,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		BackoffFactor:  2.0,
	}

	res := WithRetry(cfg, func() (string, error) {
		attempts++
		if attempts < 3 {
			return "", stderrors.New("transient glitch")
		}
		return "ok", nil
	})

	require.NoError(t, res.Err)
	assert.Equal(t, "ok", res.Value)
	assert.Equal(t, 3, res.Attempts)
}

func TestWithRetryStopsOnPermanent(t *testing.T) {
	attempts := 0
	res := WithRetry(DefaultRetry, func() (int, error) {
		attempts++
		return 0, Permanent(stderrors.New("bad config"), "load")
	})

	require.Error(t, res.Err)
	assert.Equal(t, 1, attempts)

	var catErr *CategorizedError
	require.ErrorAs(t, res.Err, &catErr)
	assert.Equal(t, CategoryPermanent, catErr.Category)
}

func TestWithRetryExhaustsBudget(t *testing.T) {
	cfg := RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		BackoffFactor:  1.5,
	}

	attempts := 0
	res := WithRetry(cfg, func() (struct{}, error) {
		attempts++
		return struct{}{}, stderrors.New("still down")
	})

	require.Error(t, res.Err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 3, res.Attempts)
	assert.Contains(t, res.Err.Error(), "max retries exceeded")
}

func TestWithRetryContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := WithRetryContext(ctx, DefaultRetry, func(context.Context) (int, error) {
		t.Fatal("fn must not run with a cancelled context")
		return 0, nil
	})

	require.Error(t, res.Err)
	assert.Equal(t, 0, res.Attempts)
}

func TestWithRetryContextCancelledDuringBackoff(t *testing.T) {
	cfg := RetryConfig{
		MaxAttempts:    10,
		InitialBackoff: time.Second,
		MaxBackoff:     time.Second,
		BackoffFactor:  1.0,
	}

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	res := WithRetryContext(ctx, cfg, func(context.Context) (int, error) {
		attempts++
		return 0, stderrors.New("down")
	})

	require.Error(t, res.Err)
	assert.Equal(t, 1, attempts)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestRetryableFuncOverride(t *testing.T) {
	cfg := RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Millisecond,
		BackoffFactor:  1.0,
		RetryableFunc:  func(error) bool { return false },
	}

	attempts := 0
	res := WithRetry(cfg, func() (int, error) {
		attempts++
		return 0, stderrors.New("normally retryable")
	})

	require.Error(t, res.Err)
	assert.Equal(t, 1, attempts)
}
