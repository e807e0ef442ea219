// Package solaris implements the Solaris shell connector. It manages local
// accounts and groups with the native user commands, or NIS accounts by
// editing the NIS source files on the master, over an interactive SSH
// session.
package solaris

import (
	"context"

	"go.uber.org/zap"

	"github.com/ajitpratap0/idbridge/pkg/config"
	"github.com/ajitpratap0/idbridge/pkg/connector/base"
	"github.com/ajitpratap0/idbridge/pkg/connector/core"
	"github.com/ajitpratap0/idbridge/pkg/errors"
	"github.com/ajitpratap0/idbridge/pkg/pool"
)

const (
	connectorType = "solaris"
	version       = "1.0.0"
)

// Option customizes a Connector
type Option func(*Connector)

// WithDialer replaces the SSH dialer
func WithDialer(d Dialer) Option {
	return func(c *Connector) { c.dialer = d }
}

// Connector manages Solaris accounts and groups
type Connector struct {
	*base.BaseConnector

	config   *config.SolarisConfig
	dialer   Dialer
	repo     repository
	sessions *pool.Pool[*Session]
	schema   *core.Schema
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

// New creates a Solaris connector. Call Initialize before use.
func New(cfg *config.SolarisConfig, opts ...Option) *Connector {
	c := &Connector{
		BaseConnector: base.NewBaseConnector(cfg.Name, connectorType, version),
		config:        cfg,
		repo:          newRepository(cfg),
		schema:        buildSchema(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Initialize sets up the session pool and logs in once to verify the
// configuration
func (c *Connector) Initialize(ctx context.Context) error {
	if c.dialer == nil {
		d, err := newSSHDialer(c.config, c.Logger())
		if err != nil {
			return err
		}
		c.dialer = d
	}
	c.sessions = pool.New(c.config.Pool.MaxOpenConns, c.openSession, func(s *Session) error {
		return s.Close()
	})

	if err := c.BaseConnector.Initialize(ctx, &c.config.BaseConfig, c.check); err != nil {
		return err
	}

	if err := c.ExecuteWithRetry(ctx, func() error { return c.check(ctx) }); err != nil {
		return err
	}

	c.Logger().Info("connected to Solaris host",
		zap.String("host", c.config.Host),
		zap.Int("port", c.config.Port),
		zap.String("login_user", c.config.LoginUser),
		zap.String("system_database_type", c.config.SystemDatabaseType))
	return nil
}

// Close logs out of every pooled session
func (c *Connector) Close(ctx context.Context) error {
	var err error
	if c.sessions != nil {
		if cerr := c.sessions.Close(); cerr != nil {
			err = errors.Wrap(cerr, errors.ErrorTypeConnection, "failed to close shell sessions")
		}
	}
	if berr := c.BaseConnector.Close(ctx); berr != nil && err == nil {
		err = berr
	}
	return err
}

// Metrics adds session pool counters to the base metrics
func (c *Connector) Metrics() map[string]interface{} {
	m := c.BaseConnector.Metrics()
	if c.sessions != nil {
		m["sessions"] = c.sessions.Stats()
	}
	return m
}

// Schema returns the account and group object classes
func (c *Connector) Schema(context.Context) (*core.Schema, error) {
	return c.schema, nil
}

// Test logs in and runs a trivial command
func (c *Connector) Test(ctx context.Context) error {
	return c.RunOperation(ctx, core.OpTest, "", nil, c.check)
}

func (c *Connector) check(ctx context.Context) error {
	if c.sessions == nil {
		return errors.New(errors.ErrorTypeConnection, "connector is not initialized")
	}
	return c.withSession(ctx, func(s *Session) error {
		out, err := read(s, core.OpTest, c.config.Host, "uname -sr")
		if err != nil {
			return err
		}
		c.Logger().Debug("host answered", zap.String("uname", out))
		return nil
	})
}

func (c *Connector) loginCredentials() Credentials {
	creds := Credentials{User: c.config.LoginUser, Password: c.config.Password}
	if c.config.ConnectionType == config.ConnectionTypeSSHPubKey {
		creds.PrivateKey = c.config.PrivateKey
		creds.Passphrase = c.config.Passphrase
	}
	return creds
}

func (c *Connector) openSession(ctx context.Context) (*Session, error) {
	exp, err := c.dialer.Dial(ctx, c.loginCredentials())
	if err != nil {
		return nil, err
	}
	s, err := login(exp, c.config, c.RequestTimeout(), c.Logger())
	if err != nil {
		exp.Close()
		return nil, err
	}
	c.Logger().Debug("shell session opened", zap.Bool("su", s.su), zap.Bool("sudo", s.sudo))
	return s, nil
}

// withSession runs fn on a pooled session. Sessions left in an unknown
// state by a transport failure are discarded.
func (c *Connector) withSession(ctx context.Context, fn func(s *Session) error) error {
	s, err := c.sessions.Acquire(ctx)
	if err != nil {
		return err
	}
	err = fn(s)
	if rerr := c.sessions.Release(s, !s.broken); rerr != nil {
		c.Logger().Warn("failed to close shell session", zap.Error(rerr))
	}
	return err
}
