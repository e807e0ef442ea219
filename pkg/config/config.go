// Package config provides the configuration system for idbridge connectors.
// BaseConfig carries the settings every connector shares; connector specific
// structures in connectors.go embed it inline.
//
// The configuration is organized into logical sections:
//   - Timeouts: connection, request and idle durations
//   - Reliability: retries, circuit breaker, rate limiting, health checks
//   - Pool: database/sql pool sizing for the SQL connectors
//   - Security: TLS settings for database transports
//   - Observability: logging, metrics and tracing switches
//
// Example usage:
//
//	cfg := config.NewMySQLConfig("hr-mysql")
//	cfg.Host = "db.internal"
//	cfg.Password = os.Getenv("MYSQL_ADMIN_PASSWORD")
//
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"time"

	"go.uber.org/multierr"

	"github.com/ajitpratap0/idbridge/pkg/errors"
)

// BaseConfig is the configuration shared by all connectors. Connector
// configurations embed it with the yaml inline tag.
type BaseConfig struct {
	// Name identifies the connector instance
	Name string `yaml:"name" json:"name" mapstructure:"name"`
	// Type selects the connector implementation (mysql, oracleerp, solaris)
	Type string `yaml:"type" json:"type" mapstructure:"type"`
	// Version indicates the configuration version
	Version string `yaml:"version" json:"version" mapstructure:"version"`

	Timeouts      TimeoutConfig       `yaml:"timeouts" json:"timeouts" mapstructure:"timeouts"`
	Reliability   ReliabilityConfig   `yaml:"reliability" json:"reliability" mapstructure:"reliability"`
	Pool          PoolConfig          `yaml:"pool" json:"pool" mapstructure:"pool"`
	Security      SecurityConfig      `yaml:"security" json:"security" mapstructure:"security"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability" mapstructure:"observability"`
}

// TimeoutConfig contains all timeout-related settings.
type TimeoutConfig struct {
	// Connection timeout for establishing connections and logging in
	Connection time.Duration `yaml:"connection" json:"connection" mapstructure:"connection"`
	// Request timeout for a single statement or shell command
	Request time.Duration `yaml:"request" json:"request" mapstructure:"request"`
	// Idle timeout before pooled connections are closed
	Idle time.Duration `yaml:"idle" json:"idle" mapstructure:"idle"`
}

// ReliabilityConfig contains reliability and error handling settings.
type ReliabilityConfig struct {
	// RetryAttempts sets maximum attempts for retryable failures
	RetryAttempts int `yaml:"retry_attempts" json:"retry_attempts" mapstructure:"retry_attempts"`
	// RetryDelay is the initial delay between retries
	RetryDelay time.Duration `yaml:"retry_delay" json:"retry_delay" mapstructure:"retry_delay"`
	// MaxRetryDelay caps the retry delay
	MaxRetryDelay time.Duration `yaml:"max_retry_delay" json:"max_retry_delay" mapstructure:"max_retry_delay"`
	// CircuitBreaker enables the circuit breaker around backend calls
	CircuitBreaker bool `yaml:"circuit_breaker" json:"circuit_breaker" mapstructure:"circuit_breaker"`
	// RateLimitPerSec limits backend operations per second (0 = unlimited)
	RateLimitPerSec int `yaml:"rate_limit_per_sec" json:"rate_limit_per_sec" mapstructure:"rate_limit_per_sec"`
	// HealthCheckInterval enables periodic health checks when > 0
	HealthCheckInterval time.Duration `yaml:"health_check_interval" json:"health_check_interval" mapstructure:"health_check_interval"`
}

// PoolConfig sizes the database/sql pool used by the SQL connectors.
type PoolConfig struct {
	MaxOpenConns    int           `yaml:"max_open_conns" json:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" json:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
}

// SecurityConfig contains transport security settings.
type SecurityConfig struct {
	// EnableTLS enables TLS towards the database
	EnableTLS bool `yaml:"enable_tls" json:"enable_tls" mapstructure:"enable_tls"`
	// TLSSkipVerify disables certificate verification (insecure)
	TLSSkipVerify bool `yaml:"tls_skip_verify" json:"tls_skip_verify" mapstructure:"tls_skip_verify"`
}

// ObservabilityConfig contains monitoring settings.
type ObservabilityConfig struct {
	EnableMetrics bool   `yaml:"enable_metrics" json:"enable_metrics" mapstructure:"enable_metrics"`
	EnableTracing bool   `yaml:"enable_tracing" json:"enable_tracing" mapstructure:"enable_tracing"`
	LogLevel      string `yaml:"log_level" json:"log_level" mapstructure:"log_level"`
}

// NewBaseConfig creates a new BaseConfig with defaults suited to
// provisioning traffic: few connections, short requests, modest retries.
func NewBaseConfig(name, connectorType string) *BaseConfig {
	return &BaseConfig{
		Name:    name,
		Type:    connectorType,
		Version: "1.0.0",
		Timeouts: TimeoutConfig{
			Connection: 30 * time.Second,
			Request:    60 * time.Second,
			Idle:       5 * time.Minute,
		},
		Reliability: ReliabilityConfig{
			RetryAttempts:  3,
			RetryDelay:     time.Second,
			MaxRetryDelay:  30 * time.Second,
			CircuitBreaker: true,
		},
		Pool: PoolConfig{
			MaxOpenConns:    4,
			MaxIdleConns:    2,
			ConnMaxLifetime: time.Hour,
		},
		Observability: ObservabilityConfig{
			EnableMetrics: true,
			LogLevel:      "info",
		},
	}
}

// ApplyDefaults fills zero values with the NewBaseConfig defaults
func (c *BaseConfig) ApplyDefaults() {
	d := NewBaseConfig(c.Name, c.Type)
	if c.Version == "" {
		c.Version = d.Version
	}
	if c.Timeouts.Connection <= 0 {
		c.Timeouts.Connection = d.Timeouts.Connection
	}
	if c.Timeouts.Request <= 0 {
		c.Timeouts.Request = d.Timeouts.Request
	}
	if c.Timeouts.Idle <= 0 {
		c.Timeouts.Idle = d.Timeouts.Idle
	}
	if c.Reliability.RetryAttempts <= 0 {
		c.Reliability.RetryAttempts = d.Reliability.RetryAttempts
	}
	if c.Reliability.RetryDelay <= 0 {
		c.Reliability.RetryDelay = d.Reliability.RetryDelay
	}
	if c.Reliability.MaxRetryDelay <= 0 {
		c.Reliability.MaxRetryDelay = d.Reliability.MaxRetryDelay
	}
	if c.Pool.MaxOpenConns <= 0 {
		c.Pool.MaxOpenConns = d.Pool.MaxOpenConns
	}
	if c.Pool.MaxIdleConns <= 0 {
		c.Pool.MaxIdleConns = d.Pool.MaxIdleConns
	}
	if c.Pool.ConnMaxLifetime <= 0 {
		c.Pool.ConnMaxLifetime = d.Pool.ConnMaxLifetime
	}
	if c.Observability.LogLevel == "" {
		c.Observability.LogLevel = d.Observability.LogLevel
	}
}

// Validate checks the shared settings and reports every problem at once
func (c *BaseConfig) Validate() error {
	var err error
	if c.Name == "" {
		err = multierr.Append(err, errors.New(errors.ErrorTypeConfig, "name is required"))
	}
	if c.Reliability.RetryAttempts < 0 {
		err = multierr.Append(err, errors.New(errors.ErrorTypeConfig, "reliability.retry_attempts must not be negative"))
	}
	if c.Reliability.RateLimitPerSec < 0 {
		err = multierr.Append(err, errors.New(errors.ErrorTypeConfig, "reliability.rate_limit_per_sec must not be negative"))
	}
	if c.Pool.MaxIdleConns > c.Pool.MaxOpenConns && c.Pool.MaxOpenConns > 0 {
		err = multierr.Append(err, errors.New(errors.ErrorTypeConfig, "pool.max_idle_conns exceeds pool.max_open_conns"))
	}
	return err
}

// Base returns the embedded BaseConfig; connector configs satisfy Provider through it
func (c *BaseConfig) Base() *BaseConfig {
	return c
}

// Provider is implemented by every connector configuration
type Provider interface {
	Base() *BaseConfig
	ApplyDefaults()
	Validate() error
}
