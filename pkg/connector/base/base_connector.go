// Package base provides the BaseConnector that all idbridge connectors
// embed. It carries the cross-cutting behavior of a provisioning connector:
// circuit breaking, rate limiting, retries, health monitoring, metrics,
// tracing and operation-scoped logging.
//
// # Usage
//
// Connectors embed BaseConnector and route every SPI operation through
// RunOperation:
//
//	type Connector struct {
//	    *base.BaseConnector
//	    db *sql.DB
//	}
//
//	func (c *Connector) Delete(ctx context.Context, oc core.ObjectClass, uid core.Uid, opts *core.OperationOptions) error {
//	    return c.RunOperation(ctx, core.OpDelete, oc, opts, func(ctx context.Context) error {
//	        return c.dropUser(ctx, string(uid))
//	    })
//	}
//
// # Lifecycle
//
// 1. Create with NewBaseConnector
// 2. Initialize with the connector's BaseConfig and a health check function
// 3. Run operations
// 4. Close to stop the health checker
//
// Provisioning outcomes (already exists, unknown uid, invalid attribute) are
// logged at info level and do not trip the circuit breaker. Connection and
// timeout errors do, and are the only errors retried.
package base

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ajitpratap0/idbridge/pkg/config"
	"github.com/ajitpratap0/idbridge/pkg/connector/core"
	"github.com/ajitpratap0/idbridge/pkg/errors"
	"github.com/ajitpratap0/idbridge/pkg/logger"
	"github.com/ajitpratap0/idbridge/pkg/metrics"
	"github.com/ajitpratap0/idbridge/pkg/observability"
)

// BaseConnector provides common functionality for all connectors
type BaseConnector struct {
	name          string
	connectorType string
	version       string
	config        *config.BaseConfig
	logger        *zap.Logger

	ctx        context.Context
	cancel     context.CancelFunc
	closed     bool
	closeMutex sync.Mutex

	circuitBreaker   *CircuitBreaker
	rateLimiter      *rate.Limiter
	healthChecker    *HealthChecker
	metricsCollector *metrics.Collector
	errorHandler     *ErrorHandler
	retryPolicy      *RetryPolicy
}

// NewBaseConnector creates a new base connector. It is usable before
// Initialize; operations then run without breaker, rate limit or retries.
func NewBaseConnector(name, connectorType, version string) *BaseConnector {
	l := logger.Get().With(zap.String("connector", name), zap.String("type", connectorType))
	return &BaseConnector{
		name:             name,
		connectorType:    connectorType,
		version:          version,
		logger:           l,
		metricsCollector: metrics.NewCollector(name),
		errorHandler:     NewErrorHandler(l),
		retryPolicy:      NoRetryPolicy(),
	}
}

// Initialize sets up the resilience features from cfg. check is run by the
// health checker and by Health.
func (bc *BaseConnector) Initialize(ctx context.Context, cfg *config.BaseConfig, check func(ctx context.Context) error) error {
	if cfg == nil {
		return errors.New(errors.ErrorTypeConfig, "configuration is required")
	}

	bc.closeMutex.Lock()
	defer bc.closeMutex.Unlock()

	bc.config = cfg
	bc.ctx, bc.cancel = context.WithCancel(context.WithoutCancel(ctx))
	bc.closed = false

	if cfg.Reliability.CircuitBreaker {
		bc.circuitBreaker = NewCircuitBreaker(DefaultCircuitBreakerConfig(), bc.logger)
		bc.circuitBreaker.OnStateChange(func(s CircuitState) {
			bc.metricsCollector.RecordCircuitState(int(s))
		})
		bc.metricsCollector.RecordCircuitState(int(StateClosed))
	}

	if n := cfg.Reliability.RateLimitPerSec; n > 0 {
		bc.rateLimiter = rate.NewLimiter(rate.Limit(n), n)
	}

	bc.retryPolicy = NewRetryPolicy(
		cfg.Reliability.RetryAttempts,
		cfg.Reliability.RetryDelay,
		cfg.Reliability.MaxRetryDelay,
	)

	bc.healthChecker = NewHealthChecker(bc.name, cfg.Reliability.HealthCheckInterval, cfg.Timeouts.Request, bc.logger)
	bc.healthChecker.SetCheckFunc(check)
	bc.healthChecker.OnResult(bc.metricsCollector.RecordHealth)
	bc.healthChecker.Start(bc.ctx)

	bc.logger.Info("connector initialized", zap.String("version", bc.version))
	return nil
}

// Name returns the connector name
func (bc *BaseConnector) Name() string {
	return bc.name
}

// Type returns the connector type
func (bc *BaseConnector) Type() string {
	return bc.connectorType
}

// Version returns the connector version
func (bc *BaseConnector) Version() string {
	return bc.version
}

// Logger returns the connector logger
func (bc *BaseConnector) Logger() *zap.Logger {
	return bc.logger
}

// OpLogger returns the connector logger tagged with the operation id and
// the requesting user in ctx
func (bc *BaseConnector) OpLogger(ctx context.Context) *zap.Logger {
	l := bc.logger
	if id := logger.OperationID(ctx); id != "" {
		l = l.With(zap.String("operation_id", id))
	}
	if user := logger.RunAsUser(ctx); user != "" {
		l = l.With(zap.String("run_as_user", user))
	}
	return l
}

// Config returns the connector configuration
func (bc *BaseConnector) Config() *config.BaseConfig {
	return bc.config
}

// IsClosed reports whether Close was called
func (bc *BaseConnector) IsClosed() bool {
	bc.closeMutex.Lock()
	defer bc.closeMutex.Unlock()
	return bc.closed
}

// Health runs the health check, or reports the last periodic result when
// periodic checks are enabled
func (bc *BaseConnector) Health(ctx context.Context) error {
	if bc.IsClosed() {
		return errors.New(errors.ErrorTypeConnection, "connector is closed")
	}
	if bc.healthChecker == nil {
		return errors.New(errors.ErrorTypeHealth, "connector is not initialized")
	}

	if bc.healthChecker.interval <= 0 || bc.healthChecker.CheckCount() == 0 {
		if err := bc.healthChecker.Check(ctx); err != nil {
			return errors.Wrap(err, errors.ErrorTypeHealth, "health check failed")
		}
		return nil
	}

	status := bc.healthChecker.GetStatus()
	if status.Status != StatusHealthy {
		return errors.Wrap(status.Error, errors.ErrorTypeHealth, "health check failed")
	}
	return nil
}

// Metrics returns current metrics
func (bc *BaseConnector) Metrics() map[string]interface{} {
	m := bc.metricsCollector.GetAll()
	m["name"] = bc.name
	m["type"] = bc.connectorType
	m["version"] = bc.version
	m["errors"] = bc.errorHandler.GetErrorStats()

	if bc.circuitBreaker != nil {
		stats := bc.circuitBreaker.Stats()
		m["circuit_breaker_state"] = stats.State
		m["circuit_breaker_rejected"] = stats.RejectedCalls
	}
	if bc.rateLimiter != nil {
		m["rate_limit"] = float64(bc.rateLimiter.Limit())
		m["rate_limit_burst"] = bc.rateLimiter.Burst()
	}
	if bc.healthChecker != nil {
		status := bc.healthChecker.GetStatus()
		m["health_status"] = status.Status
		m["health_check_count"] = bc.healthChecker.CheckCount()
		m["health_failure_count"] = bc.healthChecker.FailureCount()
	}
	return m
}

// Close stops background work. It is safe to call more than once.
func (bc *BaseConnector) Close(ctx context.Context) error {
	bc.closeMutex.Lock()
	defer bc.closeMutex.Unlock()

	if bc.closed {
		return nil
	}
	if bc.cancel != nil {
		bc.cancel()
	}
	if bc.healthChecker != nil {
		bc.healthChecker.Stop()
	}
	bc.closed = true
	bc.logger.Info("connector closed")
	return nil
}

// ExecuteWithRetry runs fn with the configured retry policy. Only errors
// the error handler deems transient are retried.
func (bc *BaseConnector) ExecuteWithRetry(ctx context.Context, fn func() error) error {
	return bc.retryPolicy.ExecuteWithCondition(ctx, func() error {
		err := fn()
		if err != nil && bc.errorHandler.ShouldRetry(err) {
			bc.logger.Warn("retrying after transient error", zap.Error(err))
		}
		return err
	}, bc.errorHandler.ShouldRetry)
}

// RateLimit blocks until the rate limiter admits a call
func (bc *BaseConnector) RateLimit(ctx context.Context) error {
	if bc.rateLimiter == nil {
		return nil
	}
	if err := bc.rateLimiter.Wait(ctx); err != nil {
		return errors.Wrap(err, errors.ErrorTypeTimeout, "rate limit wait aborted")
	}
	return nil
}

// RunOperation executes fn as one instrumented SPI operation: it tags ctx
// with an operation id and the RunAsUser of opts, opens a span, applies the
// rate limit and circuit breaker, and records metrics and logs for the
// outcome. opts may be nil.
func (bc *BaseConnector) RunOperation(ctx context.Context, op string, oc core.ObjectClass, opts *core.OperationOptions, fn func(ctx context.Context) error) error {
	if bc.IsClosed() {
		return errors.New(errors.ErrorTypeConnection, "connector is closed")
	}

	ctx = logger.NewOperationContext(ctx, bc.name, string(oc))
	attrs := []attribute.KeyValue{
		attribute.String("connector", bc.name),
		attribute.String("operation", op),
		attribute.String("object_class", string(oc)),
		attribute.String("operation_id", logger.OperationID(ctx)),
	}
	if opts != nil && opts.RunAsUser != "" {
		ctx = logger.WithRunAsUser(ctx, opts.RunAsUser)
		attrs = append(attrs, attribute.String("run_as_user", opts.RunAsUser))
	}
	ctx, span := observability.StartSpan(ctx, bc.connectorType+"."+op, attrs...)

	timer := metrics.NewTimer(op)
	err := bc.RateLimit(ctx)
	if err == nil {
		if bc.circuitBreaker != nil {
			err = bc.circuitBreaker.Execute(func() error { return fn(ctx) })
		} else {
			err = fn(ctx)
		}
	}
	elapsed := timer.Stop()

	err = bc.errorHandler.HandleError(ctx, op, err)
	bc.metricsCollector.RecordOperation(op, err, elapsed)
	observability.EndSpan(span, err)

	if err == nil {
		bc.OpLogger(ctx).Debug("operation completed",
			zap.String("operation", op),
			zap.String("object_class", string(oc)),
			zap.Duration("duration", elapsed))
	}
	return err
}

// MetricsCollector returns the metrics collector
func (bc *BaseConnector) MetricsCollector() *metrics.Collector {
	return bc.metricsCollector
}

// CircuitBreaker returns the circuit breaker, nil when disabled
func (bc *BaseConnector) CircuitBreaker() *CircuitBreaker {
	return bc.circuitBreaker
}

// RequestTimeout returns the per-request timeout, falling back to a minute
func (bc *BaseConnector) RequestTimeout() time.Duration {
	if bc.config == nil || bc.config.Timeouts.Request <= 0 {
		return time.Minute
	}
	return bc.config.Timeouts.Request
}
