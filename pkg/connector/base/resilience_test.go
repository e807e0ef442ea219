package base

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ajitpratap0/idbridge/pkg/errors"
	"github.com/ajitpratap0/idbridge/pkg/testutil"
)

func TestCircuitBreaker_Transitions(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 2,
		SuccessThreshold: 1,
		Timeout:          time.Minute,
	}, zaptest.NewLogger(t))
	cb.now = func() time.Time { return now }

	var states []CircuitState
	cb.OnStateChange(func(s CircuitState) { states = append(states, s) })

	fault := func() error { return errors.New(errors.ErrorTypeTimeout, "read timeout") }
	ok := func() error { return nil }

	assert.Error(t, cb.Execute(fault))
	assert.Equal(t, StateClosed, cb.State())
	assert.Error(t, cb.Execute(fault))
	assert.Equal(t, StateOpen, cb.State())

	assert.ErrorIs(t, cb.Execute(ok), ErrCircuitOpen)
	assert.Equal(t, int64(1), cb.Stats().RejectedCalls)

	now = now.Add(2 * time.Minute)
	require.NoError(t, cb.Execute(ok))
	assert.Equal(t, StateClosed, cb.State())

	assert.Equal(t, []CircuitState{StateOpen, StateHalfOpen, StateClosed}, states)
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	now := time.Now()
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1, SuccessThreshold: 1, Timeout: time.Second}, zaptest.NewLogger(t))
	cb.now = func() time.Time { return now }

	conn := func() error { return errors.New(errors.ErrorTypeConnection, "reset") }
	_ = cb.Execute(conn)
	require.Equal(t, StateOpen, cb.State())

	now = now.Add(2 * time.Second)
	_ = cb.Execute(conn)
	assert.Equal(t, StateOpen, cb.State())
	assert.Equal(t, "open", cb.Stats().State)
}

func TestRetryPolicy_GetDelay(t *testing.T) {
	rp := NewRetryPolicy(5, 100*time.Millisecond, time.Second)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{3, 800 * time.Millisecond},
		{4, time.Second},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			assert.Equal(t, tt.want, rp.GetDelay(tt.attempt))
		})
	}
}

func TestRetryPolicy_Execute(t *testing.T) {
	rp := NewRetryPolicy(3, time.Millisecond, 2*time.Millisecond)

	calls := 0
	err := rp.Execute(context.Background(), func() error {
		calls++
		return errors.New(errors.ErrorTypeTimeout, "slow")
	})
	assert.True(t, errors.IsType(err, errors.ErrorTypeTimeout))
	assert.Equal(t, 3, calls)

	calls = 0
	err = rp.Execute(context.Background(), func() error {
		calls++
		return errors.New(errors.ErrorTypeAlreadyExists, "dup")
	})
	assert.True(t, errors.IsType(err, errors.ErrorTypeAlreadyExists))
	assert.Equal(t, 1, calls)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = NewRetryPolicy(3, time.Hour, time.Hour).Execute(ctx, func() error {
		return errors.New(errors.ErrorTypeConnection, "down")
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHealthChecker_Periodic(t *testing.T) {
	var fail atomic.Bool
	var results atomic.Int64

	hc := NewHealthChecker("periodic", 5*time.Millisecond, time.Second, zaptest.NewLogger(t))
	hc.SetCheckFunc(func(context.Context) error {
		if fail.Load() {
			return errors.New(errors.ErrorTypeConnection, "down")
		}
		return nil
	})
	hc.OnResult(func(bool) { results.Add(1) })

	hc.Start(context.Background())
	defer hc.Stop()

	testutil.AssertEventually(t, func() bool { return hc.CheckCount() >= 2 }, time.Second, "health checks did not run")
	assert.True(t, hc.IsHealthy())

	fail.Store(true)
	testutil.AssertEventually(t, func() bool {
		return hc.GetStatus().Status == StatusUnhealthy
	}, time.Second, "checker never became unhealthy")

	status := hc.GetStatus()
	assert.Equal(t, "connection: down", status.Details["last_error"])
	assert.GreaterOrEqual(t, hc.FailureCount(), int64(3))
	assert.Positive(t, results.Load())
}

func TestHealthChecker_DegradedBeforeUnhealthy(t *testing.T) {
	hc := NewHealthChecker("manual", 0, time.Second, zaptest.NewLogger(t))
	hc.SetCheckFunc(func(context.Context) error { return errors.New(errors.ErrorTypeTimeout, "slow") })
	hc.Start(context.Background())
	defer hc.Stop()

	_ = hc.Check(context.Background())
	assert.Equal(t, StatusDegraded, hc.GetStatus().Status)
	_ = hc.Check(context.Background())
	_ = hc.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, hc.GetStatus().Status)
}

func TestErrorHandler_ShouldRetry(t *testing.T) {
	eh := NewErrorHandler(zaptest.NewLogger(t))

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"typed connection", errors.New(errors.ErrorTypeConnection, "x"), true},
		{"typed already exists", errors.New(errors.ErrorTypeAlreadyExists, "x"), false},
		{"foreign refused", fmt.Errorf("dial tcp 10.0.0.1:3306: connect: connection refused"), true},
		{"foreign other", fmt.Errorf("syntax error"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, eh.ShouldRetry(tt.err))
		})
	}
}
