package retry

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/floresta-chain/nodeharness/ulogger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetrySucceedsFirstAttempt(t *testing.T) {
	logger := ulogger.NewVerboseTestLogger(t)

	calls := 0

	result, err := Retry(context.Background(), logger, func() (int, error) {
		calls++
		return 42, nil
	}, 5, 1, time.Millisecond, "retrying")

	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, 1, calls)
}

func TestRetryEventuallySucceeds(t *testing.T) {
	logger := ulogger.NewVerboseTestLogger(t)

	calls := 0

	result, err := Retry(context.Background(), logger, func() (string, error) {
		calls++
		if calls < 3 {
			return "", fmt.Errorf("not yet")
		}
		return "ok", nil
	}, 5, 1, time.Millisecond, "retrying")

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 3, calls)
}

func TestRetryExhaustsAttempts(t *testing.T) {
	logger := ulogger.NewVerboseTestLogger(t)

	calls := 0

	_, err := Retry(context.Background(), logger, func() (int, error) {
		calls++
		return 0, fmt.Errorf("always failing")
	}, 3, 1, time.Millisecond, "retrying")

	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryStopsOnContextCancel(t *testing.T) {
	logger := ulogger.NewVerboseTestLogger(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Retry(ctx, logger, func() (int, error) {
		return 0, fmt.Errorf("should not matter")
	}, 5, 1, time.Millisecond, "retrying")

	require.ErrorIs(t, err, context.Canceled)
}

func TestCappedExponentialBackoff(t *testing.T) {
	next := CappedExponentialBackoff(time.Second, 2.0, 10*time.Second)
	assert.Equal(t, 2*time.Second, next)

	capped := CappedExponentialBackoff(8*time.Second, 2.0, 10*time.Second)
	assert.Equal(t, 10*time.Second, capped)
}
