// Package mysql implements the MySQL user connector. Accounts are MySQL
// users on a single host pattern; new accounts receive the grants of a
// template account (the user model).
package mysql

import (
	"context"
	"database/sql"
	"net"
	"strconv"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/ajitpratap0/idbridge/pkg/config"
	"github.com/ajitpratap0/idbridge/pkg/connector/base"
	"github.com/ajitpratap0/idbridge/pkg/connector/core"
	"github.com/ajitpratap0/idbridge/pkg/errors"
)

const (
	connectorType = "mysql"
	version       = "1.0.0"

	// maxUserNameLength is the MySQL 5.7+ limit on account names
	maxUserNameLength = 32
)

// Opener opens a connection pool for a DSN
type Opener func(dsn string) (*sql.DB, error)

func openMySQL(dsn string) (*sql.DB, error) {
	return sql.Open("mysql", dsn)
}

// Option customizes a Connector
type Option func(*Connector)

// WithDB makes the connector use db instead of opening its own pool
func WithDB(db *sql.DB) Option {
	return func(c *Connector) { c.db = db }
}

// WithOpener replaces sql.Open, used for the admin pool and for
// authentication pools
func WithOpener(open Opener) Option {
	return func(c *Connector) { c.open = open }
}

// Connector manages MySQL user accounts
type Connector struct {
	*base.BaseConnector

	config *config.MySQLConfig
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

// New creates a MySQL connector. Call Initialize before use.
func New(cfg *config.MySQLConfig, opts ...Option) *Connector {
	c := &Connector{
		BaseConnector: base.NewBaseConnector(cfg.Name, connectorType, version),
		config:        cfg,
		open:          openMySQL,
		schema:        buildSchema(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Initialize opens the admin connection pool and verifies it
func (c *Connector) Initialize(ctx context.Context) error {
	if err := c.BaseConnector.Initialize(ctx, &c.config.BaseConfig, c.ping); err != nil {
		return err
	}

	if c.db == nil {
		db, err := c.open(c.dsn(c.config.User, c.config.Password, c.config.Database))
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeConfig, "failed to open MySQL connection pool")
		}
		db.SetMaxOpenConns(c.config.Pool.MaxOpenConns)
		db.SetMaxIdleConns(c.config.Pool.MaxIdleConns)
		db.SetConnMaxLifetime(c.config.Pool.ConnMaxLifetime)
		db.SetConnMaxIdleTime(c.config.Timeouts.Idle)
		c.db = db
	}

	err := c.ExecuteWithRetry(ctx, func() error { return c.ping(ctx) })
	if err != nil {
		return err
	}

	c.Logger().Info("connected to MySQL",
		zap.String("host", c.config.Host),
		zap.Int("port", c.config.Port),
		zap.String("user_model", c.config.UserModel))
	return nil
}

// Close closes the connection pool
func (c *Connector) Close(ctx context.Context) error {
	var err error
	if c.db != nil {
		if cerr := c.db.Close(); cerr != nil {
			err = errors.Wrap(cerr, errors.ErrorTypeConnection, "failed to close MySQL connection pool")
		}
	}
	if berr := c.BaseConnector.Close(ctx); berr != nil && err == nil {
		err = berr
	}
	return err
}

// Schema returns the account object class
func (c *Connector) Schema(context.Context) (*core.Schema, error) {
	return c.schema, nil
}

// Test checks that the server answers queries
func (c *Connector) Test(ctx context.Context) error {
	return c.RunOperation(ctx, core.OpTest, "", nil, func(ctx context.Context) error {
		if err := c.ping(ctx); err != nil {
			return err
		}
		var one int
		if err := c.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
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

// dsn builds a go-sql-driver DSN for the configured server
func (c *Connector) dsn(user, password, database string) string {
	mc := mysql.NewConfig()
	mc.User = user
	mc.Passwd = password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(c.config.Host, strconv.Itoa(c.config.Port))
	mc.DBName = database
	mc.Timeout = c.config.Timeouts.Connection
	mc.ReadTimeout = c.config.Timeouts.Request
	mc.WriteTimeout = c.config.Timeouts.Request
	mc.ParseTime = true
	if c.config.Security.EnableTLS {
		mc.TLSConfig = "true"
		if c.config.Security.TLSSkipVerify {
			mc.TLSConfig = "skip-verify"
		}
	}
	return mc.FormatDSN()
}

func buildSchema() *core.Schema {
	return &core.Schema{ObjectClasses: []core.ObjectClassInfo{{
		Type: core.ObjectClassAccount,
		Attributes: []core.AttributeInfo{
			{Name: core.AttrName, Type: core.TypeString, Required: true},
			{Name: core.AttrPassword, Type: core.TypeGuarded, Required: true, NotReadable: true, NotReturnedByDefault: true},
		},
	}}}
}
