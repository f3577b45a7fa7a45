package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyisaiah47/deep-cut-sub000/internal/gameclock"
)

func fastRetryConfig(maxRetries int) RetryConfig {
	return RetryConfig{
		MaxRetries: maxRetries,
		BaseDelay:  time.Millisecond,
		Clock:      gameclock.New(),
		Op:         "test_op",
	}
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	out, err := Retry(context.Background(), fastRetryConfig(3), func(context.Context) (string, error) {
		calls++
		if calls <= 2 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 3, calls, "fails twice then succeeds: exactly 3 invocations")
}

func TestRetryExhaustsBudget(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	_, err := Retry(context.Background(), fastRetryConfig(2), func(context.Context) (int, error) {
		calls++
		return 0, boom
	})
	assert.Equal(t, 3, calls, "maxRetries=2 means 3 invocations")
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.ErrorIs(t, err, boom, "original error surfaces through the wrap")
}

func TestRetryNoRetryOnFirstSuccess(t *testing.T) {
	calls := 0
	out, err := Retry(context.Background(), fastRetryConfig(5), func(context.Context) (int, error) {
		calls++
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, out)
	assert.Equal(t, 1, calls)
}

func TestRetryHonorsContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Retry(ctx, RetryConfig{
		MaxRetries: 10,
		BaseDelay:  time.Hour,
		Clock:      gameclock.New(),
		Op:         "slow_op",
	}, func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, errors.New("transient")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls, "cancellation preempts the backoff wait")
}

func TestBackoffDelayGrows(t *testing.T) {
	base := 100 * time.Millisecond
	for attempt := 0; attempt < 4; attempt++ {
		d := backoffDelay(base, attempt)
		lo := base << attempt
		hi := lo + lo/10
		assert.GreaterOrEqual(t, d, lo, "attempt %d", attempt)
		assert.LessOrEqual(t, d, hi, "attempt %d jitter bounded at 10%%", attempt)
	}
}
