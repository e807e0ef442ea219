// Package idbridge provides identity provisioning connectors. Each connector
// bridges a small provisioning interface (create, update, delete, search,
// authenticate) to one backend that stores accounts:
//
//   - MySQL user accounts and their grants
//   - Oracle E-Business Suite accounts, responsibility assignments and
//     the responsibility and application catalogs
//   - Solaris local and NIS accounts and groups, managed over SSH
//
// # Quick Start
//
// Create a connector from settings and add an account:
//
//	import (
//	    "context"
//
//	    "github.com/ajitpratap0/idbridge/pkg/connector/core"
//	    "github.com/ajitpratap0/idbridge/pkg/connector/registry"
//	    _ "github.com/ajitpratap0/idbridge/pkg/connector/mysql"
//	)
//
//	conn, _ := registry.CreateFromMap(map[string]interface{}{
//	    "type": "mysql", "name": "hr", "host": "db.internal",
//	    "user": "admin", "password": "${MYSQL_PASSWORD}",
//	})
//	_ = conn.Initialize(ctx)
//	defer conn.Close(ctx)
//
//	attrs := core.MustAttributeSet(core.NameAttribute("jdoe"), core.PasswordAttribute("s3cret"))
//	uid, err := conn.(core.CreateOp).Create(ctx, core.ObjectClassAccount, attrs, nil)
//
// # Key Packages
//
//	pkg/connector/core      - Provisioning interface, attributes, filters, schema
//	pkg/connector/base      - Retries, circuit breaker, rate limit, health checks
//	pkg/connector/registry  - Connector factories
//	pkg/connector/mysql     - MySQL users
//	pkg/connector/oracleerp - Oracle E-Business Suite accounts
//	pkg/connector/solaris   - Solaris and NIS accounts and groups
//	pkg/config              - Typed connector configuration
//	pkg/errors              - Structured error handling
//	pkg/logger              - Structured logging
//	pkg/metrics             - Prometheus operation metrics
//	pkg/pool                - Bounded pool of reusable sessions
//
// # Configuration
//
// Connector configurations embed config.BaseConfig:
//
//	type BaseConfig struct {
//	    Timeouts      TimeoutConfig       // Connection, request, idle
//	    Reliability   ReliabilityConfig   // Retries, circuit breaker, rate limit
//	    Pool          PoolConfig          // Open and idle connections
//	    Security      SecurityConfig      // TLS
//	    Observability ObservabilityConfig // Metrics, tracing
//	}
//
// Environment variables are supported with ${VAR_NAME} syntax. The idbridge
// command also reads IDBRIDGE_* overrides.
package idbridge
