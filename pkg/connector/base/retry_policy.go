package base

import (
	"context"
	"time"

	"github.com/jpillora/backoff"

	"github.com/ajitpratap0/idbridge/pkg/errors"
)

// RetryPolicy defines retry behavior
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       bool
}

// NewRetryPolicy creates a new retry policy with exponential backoff
func NewRetryPolicy(maxAttempts int, initialDelay, maxDelay time.Duration) *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:  maxAttempts,
		InitialDelay: initialDelay,
		MaxDelay:     maxDelay,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// DefaultRetryPolicy returns a sensible default retry policy
func DefaultRetryPolicy() *RetryPolicy {
	return NewRetryPolicy(3, time.Second, 30*time.Second)
}

// NoRetryPolicy returns a policy that doesn't retry
func NoRetryPolicy() *RetryPolicy {
	return &RetryPolicy{MaxAttempts: 1}
}

func (rp *RetryPolicy) backoff() *backoff.Backoff {
	return &backoff.Backoff{
		Min:    rp.InitialDelay,
		Max:    rp.MaxDelay,
		Factor: rp.Multiplier,
		Jitter: rp.Jitter,
	}
}

// Execute runs fn until it succeeds, fails with a non-retryable error, or
// MaxAttempts is reached
func (rp *RetryPolicy) Execute(ctx context.Context, fn func() error) error {
	return rp.ExecuteWithCondition(ctx, fn, errors.IsRetryable)
}

// ExecuteWithCondition runs fn with retry only while shouldRetry holds
func (rp *RetryPolicy) ExecuteWithCondition(ctx context.Context, fn func() error, shouldRetry func(error) bool) error {
	attempts := rp.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	b := rp.backoff()

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !shouldRetry(err) || attempt == attempts-1 {
			break
		}

		timer := time.NewTimer(b.Duration())
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Wrap(ctx.Err(), errors.ErrorTypeTimeout, "retry cancelled")
		case <-timer.C:
		}
	}
	return lastErr
}

// GetDelay returns the delay before retry number attempt (zero based)
func (rp *RetryPolicy) GetDelay(attempt int) time.Duration {
	b := rp.backoff()
	b.Jitter = false
	return b.ForAttempt(float64(attempt))
}
