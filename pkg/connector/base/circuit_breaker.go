package base

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/idbridge/pkg/errors"
)

// CircuitState represents the state of a circuit breaker
type CircuitState int32

const (
	// StateClosed allows all calls to pass through
	StateClosed CircuitState = iota
	// StateOpen blocks all calls
	StateOpen
	// StateHalfOpen allows a limited number of probe calls
	StateHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig is the configuration for circuit breaker
type CircuitBreakerConfig struct {
	FailureThreshold int           // Consecutive backend faults before opening
	SuccessThreshold int           // Consecutive successes in half-open before closing
	Timeout          time.Duration // Time spent open before probing
	HalfOpenLimit    int           // Concurrent probes allowed while half-open
}

// DefaultCircuitBreakerConfig returns the thresholds connectors use
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          30 * time.Second,
		HalfOpenLimit:    1,
	}
}

// ErrCircuitOpen is returned while the breaker rejects calls
var ErrCircuitOpen = errors.New(errors.ErrorTypeHealth, "circuit breaker is open")

// CircuitBreaker stops calling a backend that keeps failing at the
// transport level. Provisioning outcomes such as AlreadyExists or
// UnknownUid are successful round trips and never trip it.
type CircuitBreaker struct {
	config CircuitBreakerConfig
	logger *zap.Logger

	mu                   sync.Mutex
	state                CircuitState
	lastStateChange      time.Time
	nextRetryTime        time.Time
	consecutiveFailures  int
	consecutiveSuccesses int
	halfOpenInFlight     int
	totalCalls           int64
	rejectedCalls        int64

	onStateChange func(CircuitState)
	now           func() time.Time
}

// NewCircuitBreaker creates a closed circuit breaker
func NewCircuitBreaker(config CircuitBreakerConfig, logger *zap.Logger) *CircuitBreaker {
	if config.HalfOpenLimit <= 0 {
		config.HalfOpenLimit = 1
	}
	return &CircuitBreaker{
		config:          config,
		logger:          logger.With(zap.String("component", "circuit_breaker")),
		state:           StateClosed,
		lastStateChange: time.Now(),
		now:             time.Now,
	}
}

// OnStateChange registers a callback invoked on every transition
func (cb *CircuitBreaker) OnStateChange(fn func(CircuitState)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.onStateChange = fn
}

// Execute runs fn unless the circuit is open
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.allow() {
		return ErrCircuitOpen
	}
	err := fn()
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.totalCalls++
	switch cb.state {
	case StateClosed:
		return true
	case StateOpen:
		if cb.now().Before(cb.nextRetryTime) {
			cb.rejectedCalls++
			return false
		}
		cb.transition(StateHalfOpen)
		fallthrough
	case StateHalfOpen:
		if cb.halfOpenInFlight >= cb.config.HalfOpenLimit {
			cb.rejectedCalls++
			return false
		}
		cb.halfOpenInFlight++
		return true
	}
	return false
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateHalfOpen && cb.halfOpenInFlight > 0 {
		cb.halfOpenInFlight--
	}

	if isBackendFault(err) {
		cb.consecutiveSuccesses = 0
		cb.consecutiveFailures++
		switch cb.state {
		case StateClosed:
			if cb.consecutiveFailures >= cb.config.FailureThreshold {
				cb.transition(StateOpen)
			}
		case StateHalfOpen:
			cb.transition(StateOpen)
		}
		return
	}

	cb.consecutiveFailures = 0
	if cb.state == StateHalfOpen {
		cb.consecutiveSuccesses++
		if cb.consecutiveSuccesses >= cb.config.SuccessThreshold {
			cb.transition(StateClosed)
		}
	}
}

// transition must be called with mu held
func (cb *CircuitBreaker) transition(to CircuitState) {
	if cb.state == to {
		return
	}
	cb.state = to
	cb.lastStateChange = cb.now()
	cb.consecutiveSuccesses = 0
	cb.halfOpenInFlight = 0

	switch to {
	case StateOpen:
		cb.nextRetryTime = cb.now().Add(cb.config.Timeout)
		cb.logger.Warn("circuit breaker opened",
			zap.Time("retry_after", cb.nextRetryTime),
			zap.Int("consecutive_failures", cb.consecutiveFailures))
	case StateHalfOpen:
		cb.logger.Info("circuit breaker half-open")
	case StateClosed:
		cb.consecutiveFailures = 0
		cb.logger.Info("circuit breaker closed")
	}

	if cb.onStateChange != nil {
		cb.onStateChange(to)
	}
}

// State returns the current state
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// CircuitBreakerStats is a snapshot of breaker statistics
type CircuitBreakerStats struct {
	State               string    `json:"state"`
	LastStateChange     time.Time `json:"last_state_change"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	TotalCalls          int64     `json:"total_calls"`
	RejectedCalls       int64     `json:"rejected_calls"`
	NextRetryTime       time.Time `json:"next_retry_time,omitempty"`
}

// Stats returns a snapshot of the breaker
func (cb *CircuitBreaker) Stats() CircuitBreakerStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return CircuitBreakerStats{
		State:               cb.state.String(),
		LastStateChange:     cb.lastStateChange,
		ConsecutiveFailures: cb.consecutiveFailures,
		TotalCalls:          cb.totalCalls,
		RejectedCalls:       cb.rejectedCalls,
		NextRetryTime:       cb.nextRetryTime,
	}
}

// isBackendFault reports whether err means the backend could not be reached
// or did not answer
func isBackendFault(err error) bool {
	if err == nil {
		return false
	}
	switch errors.TypeOf(err) {
	case errors.ErrorTypeConnection, errors.ErrorTypeTimeout:
		return true
	}
	return false
}
