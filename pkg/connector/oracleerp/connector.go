// Package oracleerp implements the Oracle E-Business Suite connector.
//
// Accounts are FND_USER rows. All writes go through the fnd_user_pkg PL/SQL
// API so the ERP keeps its own auditing and password hashing; the connector
// never writes FND tables directly. ERP accounts cannot be removed, so Delete
// end-dates the account.
package oracleerp

import (
	"context"
	"database/sql"
	"strconv"

	go_ora "github.com/sijms/go-ora/v2"
	"go.uber.org/zap"

	"github.com/ajitpratap0/idbridge/pkg/config"
	"github.com/ajitpratap0/idbridge/pkg/connector/base"
	"github.com/ajitpratap0/idbridge/pkg/connector/core"
	"github.com/ajitpratap0/idbridge/pkg/errors"
)

const (
	connectorType = "oracleerp"
	version       = "1.0.0"
)

// Opener opens a connection pool for a DSN
type Opener func(dsn string) (*sql.DB, error)

func openOracle(dsn string) (*sql.DB, error) {
	return sql.Open("oracle", dsn)
}

// Option customizes a Connector
type Option func(*Connector)

// WithDB makes the connector use db instead of opening its own pool
func WithDB(db *sql.DB) Option {
	return func(c *Connector) { c.db = db }
}

// WithOpener replaces sql.Open
func WithOpener(open Opener) Option {
	return func(c *Connector) { c.open = open }
}

// Connector manages Oracle ERP accounts and their responsibilities
type Connector struct {
	*base.BaseConnector

	config *config.OracleERPConfig
	db     *sql.DB
	open   Opener
	schema *core.Schema
}

var (
	_ core.Connector      = (*Connector)(nil)
	_ core.SchemaOp       = (*Connector)(nil)
	_ core.TestOp         = (*Connector)(nil)
	_ core.CreateOp       = (*Connector)(nil)
	_ core.UpdateOp       = (*Connector)(nil)
	_ core.DeleteOp       = (*Connector)(nil)
	_ core.SearchOp       = (*Connector)(nil)
	_ core.AuthenticateOp = (*Connector)(nil)
)

// New creates an Oracle ERP connector. Call Initialize before use.
func New(cfg *config.OracleERPConfig, opts ...Option) *Connector {
	c := &Connector{
		BaseConnector: base.NewBaseConnector(cfg.Name, connectorType, version),
		config:        cfg,
		open:          openOracle,
		schema:        buildSchema(cfg.ReturnResponsibilities == nil || *cfg.ReturnResponsibilities),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Initialize opens the connection pool and verifies it
func (c *Connector) Initialize(ctx context.Context) error {
	if err := c.BaseConnector.Initialize(ctx, &c.config.BaseConfig, c.ping); err != nil {
		return err
	}

	if c.db == nil {
		db, err := c.open(c.dsn())
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeConfig, "failed to open Oracle connection pool")
		}
		db.SetMaxOpenConns(c.config.Pool.MaxOpenConns)
		db.SetMaxIdleConns(c.config.Pool.MaxIdleConns)
		db.SetConnMaxLifetime(c.config.Pool.ConnMaxLifetime)
		db.SetConnMaxIdleTime(c.config.Timeouts.Idle)
		c.db = db
	}

	if err := c.ExecuteWithRetry(ctx, func() error { return c.ping(ctx) }); err != nil {
		return err
	}

	c.Logger().Info("connected to Oracle ERP",
		zap.String("host", c.config.Host),
		zap.String("service", c.config.Service),
		zap.String("apps_schema", c.config.AppsSchema))
	return nil
}

// Close closes the connection pool
func (c *Connector) Close(ctx context.Context) error {
	var err error
	if c.db != nil {
		if cerr := c.db.Close(); cerr != nil {
			err = errors.Wrap(cerr, errors.ErrorTypeConnection, "failed to close Oracle connection pool")
		}
	}
	if berr := c.BaseConnector.Close(ctx); berr != nil && err == nil {
		err = berr
	}
	return err
}

// Schema describes accounts, responsibility names and applications
func (c *Connector) Schema(context.Context) (*core.Schema, error) {
	return c.schema, nil
}

// Test checks that the database answers queries
func (c *Connector) Test(ctx context.Context) error {
	return c.RunOperation(ctx, core.OpTest, "", nil, func(ctx context.Context) error {
		if err := c.ping(ctx); err != nil {
			return err
		}
		var one int
		if err := c.db.QueryRowContext(ctx, "SELECT 1 FROM dual").Scan(&one); err != nil {
			return mapError(err, core.OpTest, "")
		}
		return nil
	})
}

func (c *Connector) ping(ctx context.Context) error {
	if c.db == nil {
		return errors.New(errors.ErrorTypeConnection, "connector is not initialized")
	}
	if err := c.db.PingContext(ctx); err != nil {
		return mapConnectError(err)
	}
	return nil
}

func (c *Connector) dsn() string {
	opts := map[string]string{
		"TIMEOUT": strconv.Itoa(int(c.config.Timeouts.Connection.Seconds())),
	}
	if c.config.Security.EnableTLS {
		opts["SSL"] = "true"
		if c.config.Security.TLSSkipVerify {
			opts["SSL VERIFY"] = "false"
		}
	}
	return go_ora.BuildUrl(c.config.Host, c.config.Port, c.config.Service, c.config.User, c.config.Password, opts)
}

// object qualifies an APPS object name
func (c *Connector) object(name string) string {
	return c.config.AppsSchema + "." + name
}
