package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/fulfillment-service/pkg/logging"
	"github.com/wms-platform/fulfillment-service/pkg/metrics"
)

func TestCircuitBreaker_TripsAfterConsecutiveFailures(t *testing.T) {
	m := metrics.New(metrics.DefaultConfig("fulfillment-test"))
	config := DefaultCircuitBreakerConfig("kafka")
	config.FailureThreshold = 2
	cb := NewCircuitBreaker(config, logging.NewNop(), m)

	boom := errors.New("broker down")
	fail := func(context.Context) error { return boom }

	assert.ErrorIs(t, cb.Execute(context.Background(), fail), boom)
	assert.ErrorIs(t, cb.Execute(context.Background(), fail), boom)
	assert.Equal(t, gobreaker.StateOpen, cb.State())

	called := false
	err := cb.Execute(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CircuitBreakerTrips.WithLabelValues("fulfillment-test", "kafka")))
	assert.Equal(t, float64(gobreaker.StateOpen), testutil.ToFloat64(m.CircuitBreakerState.WithLabelValues("fulfillment-test", "kafka")))
}

func TestCircuitBreaker_PassesThroughSuccess(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig("mongo"), nil, nil)
	require.NoError(t, cb.Execute(context.Background(), func(context.Context) error { return nil }))
	assert.Equal(t, gobreaker.StateClosed, cb.State())
	assert.Equal(t, "mongo", cb.Name())
}

func TestRetry(t *testing.T) {
	errBusy := errors.New("busy")
	config := &RetryConfig{
		MaxAttempts:     4,
		InitialDelay:    time.Millisecond,
		MaxDelay:        2 * time.Millisecond,
		BackoffFactor:   2,
		RetryableErrors: func(err error) bool { return errors.Is(err, errBusy) },
	}

	t.Run("succeeds after retries", func(t *testing.T) {
		attempts := 0
		err := Retry(context.Background(), config, func() error {
			attempts++
			if attempts < 3 {
				return errBusy
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, attempts)
	})

	t.Run("stops on non-retryable error", func(t *testing.T) {
		attempts := 0
		fatal := errors.New("fatal")
		err := Retry(context.Background(), config, func() error {
			attempts++
			return fatal
		})
		assert.ErrorIs(t, err, fatal)
		assert.Equal(t, 1, attempts)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		attempts := 0
		err := Retry(context.Background(), config, func() error {
			attempts++
			return errBusy
		})
		assert.ErrorIs(t, err, errBusy)
		assert.Equal(t, 4, attempts)
	})

	t.Run("honours cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := Retry(ctx, config, func() error { return errBusy })
		assert.ErrorIs(t, err, context.Canceled)
	})
}
