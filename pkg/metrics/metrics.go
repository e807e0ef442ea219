// Package metrics provides operation tracking for idbridge connectors using
// Prometheus metrics.
//
// # Basic Usage
//
//	collector := metrics.NewCollector("mysql")
//	timer := metrics.NewTimer("create")
//	uid, err := connector.Create(ctx, oc, attrs, opts)
//	collector.RecordOperation("create", err, timer.Stop())
//
// Every connector instance owns a Collector. The package level vectors are
// registered once on the default Prometheus registry and are exposed by the
// `idbridge monitor` command.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ajitpratap0/idbridge/pkg/errors"
)

// Operation status label values
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Collector records metrics for a single connector instance. Counts are
// mirrored locally so Metrics() can report them without scraping.
type Collector struct {
	name      string
	startTime time.Time

	mu        sync.RWMutex
	ops       map[string]int64
	failures  map[string]int64
	lastError map[string]string
}

// NewCollector creates a new metrics collector for a connector.
func NewCollector(name string) *Collector {
	return &Collector{
		name:      name,
		startTime: time.Now(),
		ops:       make(map[string]int64),
		failures:  make(map[string]int64),
		lastError: make(map[string]string),
	}
}

// RecordOperation records the outcome and duration of a provisioning operation
func (c *Collector) RecordOperation(operation string, err error, duration time.Duration) {
	status := StatusSuccess
	if err != nil {
		status = StatusFailure
	}

	OperationsTotal.WithLabelValues(c.name, operation, status).Inc()
	OperationDuration.WithLabelValues(c.name, operation).Observe(duration.Seconds())
	if err != nil {
		OperationErrors.WithLabelValues(c.name, operation, string(errors.TypeOf(err))).Inc()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.ops[operation]++
	if err != nil {
		c.failures[operation]++
		c.lastError[operation] = err.Error()
	}
}

// RecordHealth sets the health gauge (1 healthy, 0 otherwise)
func (c *Collector) RecordHealth(healthy bool) {
	v := 0.0
	if healthy {
		v = 1
	}
	ConnectorHealth.WithLabelValues(c.name).Set(v)
}

// RecordCircuitState publishes the circuit breaker state (0 closed, 1 open, 2 half-open)
func (c *Collector) RecordCircuitState(state int) {
	CircuitBreakerState.WithLabelValues(c.name).Set(float64(state))
}

// Count returns how many times an operation ran
func (c *Collector) Count(operation string) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ops[operation]
}

// Failures returns how many times an operation failed
func (c *Collector) Failures(operation string) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.failures[operation]
}

// GetAll returns all current metric values
func (c *Collector) GetAll() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ops := make(map[string]int64, len(c.ops))
	for k, v := range c.ops {
		ops[k] = v
	}
	failures := make(map[string]int64, len(c.failures))
	for k, v := range c.failures {
		failures[k] = v
	}
	lastErrors := make(map[string]string, len(c.lastError))
	for k, v := range c.lastError {
		lastErrors[k] = v
	}

	return map[string]interface{}{
		"component":   c.name,
		"start_time":  c.startTime,
		"uptime":      time.Since(c.startTime).Seconds(),
		"operations":  ops,
		"failures":    failures,
		"last_errors": lastErrors,
	}
}

// StartTime returns when the collector was created
func (c *Collector) StartTime() time.Time {
	return c.startTime
}

var (
	// OperationsTotal counts provisioning operations.
	// Labels: connector, operation (create/update/delete/search/...), status
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "idbridge_operations_total",
			Help: "Total number of connector operations",
		},
		[]string{"connector", "operation", "status"},
	)

	// OperationErrors counts failed operations by error type.
	OperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "idbridge_operation_errors_total",
			Help: "Failed connector operations by error type",
		},
		[]string{"connector", "operation", "error_type"},
	)

	// OperationDuration tracks operation latency. Shell driven operations
	// routinely take seconds, so buckets reach a minute.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "idbridge_operation_duration_seconds",
			Help:    "Connector operation duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"connector", "operation"},
	)

	// ConnectorHealth reports the last health check result
	ConnectorHealth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "idbridge_connector_healthy",
			Help: "1 when the last health check passed",
		},
		[]string{"connector"},
	)

	// CircuitBreakerState reports the circuit breaker state
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "idbridge_circuit_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 open, 2 half-open)",
		},
		[]string{"connector"},
	)
)

// Timer provides a simple timing mechanism for measuring operation durations.
type Timer struct {
	start time.Time
	name  string
}

// NewTimer creates a new timer and starts timing immediately.
func NewTimer(name string) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
	}
}

// Stop returns the elapsed duration since creation.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}

// Name returns the timer name
func (t *Timer) Name() string {
	return t.name
}
