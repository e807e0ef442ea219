package mysql

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/ajitpratap0/idbridge/pkg/connector/core"
	"github.com/ajitpratap0/idbridge/pkg/errors"
)

// identifiedByPassword matches the password hash clause pre-5.7 servers
// print in SHOW GRANTS
var identifiedByPassword = regexp.MustCompile(`(?i)\s+IDENTIFIED BY PASSWORD\s+(<secret>|'[^']*')`)

func (c *Connector) account(name string) string {
	return account(name, c.config.UserHost)
}

func (c *Connector) accountClass(oc core.ObjectClass) (*core.ObjectClassInfo, error) {
	return c.schema.RequireObjectClass(oc)
}

// Create creates a MySQL user and grants it the privileges of the user model
func (c *Connector) Create(ctx context.Context, oc core.ObjectClass, attrs core.AttributeSet, opts *core.OperationOptions) (core.Uid, error) {
	var uid core.Uid
	err := c.RunOperation(ctx, core.OpCreate, oc, opts, func(ctx context.Context) error {
		oci, err := c.accountClass(oc)
		if err != nil {
			return err
		}
		if err := oci.ValidateCreate(attrs); err != nil {
			return err
		}
		name, err := attrs.RequireString(core.AttrName)
		if err != nil {
			return err
		}
		if err := validateUserName(name); err != nil {
			return err
		}
		password, err := attrs.RequirePassword(core.AttrPassword)
		if err != nil {
			return err
		}

		stmt := fmt.Sprintf("CREATE USER %s IDENTIFIED BY %s", c.account(name), quoteString(password.Reveal()))
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return mapError(err, core.OpCreate, name)
		}

		if err := c.copyModelGrants(ctx, name); err != nil {
			c.dropAfterFailedCreate(ctx, name)
			return err
		}

		c.OpLogger(ctx).Info("user created", zap.String("user", name))
		uid = core.Uid(name)
		return nil
	})
	return uid, err
}

func validateUserName(name string) error {
	if len(name) > maxUserNameLength {
		return errors.Newf(errors.ErrorTypeInvalidAttribute, "user name %q exceeds %d characters", name, maxUserNameLength).
			WithDetail("attribute", core.AttrName)
	}
	return nil
}

// copyModelGrants replays the grants of the user model for name
func (c *Connector) copyModelGrants(ctx context.Context, name string) error {
	rows, err := c.db.QueryContext(ctx, "SHOW GRANTS FOR "+c.account(c.config.UserModel))
	if err != nil {
		if n, ok := serverErrorNumber(err); ok && n == errNoSuchGrant {
			c.OpLogger(ctx).Warn("user model has no grants, new user keeps default privileges",
				zap.String("user_model", c.config.UserModel),
				zap.String("user", name))
			return nil
		}
		return mapError(err, core.OpCreate, name)
	}

	var grants []string
	for rows.Next() {
		var grant string
		if err := rows.Scan(&grant); err != nil {
			rows.Close()
			return mapError(err, core.OpCreate, name)
		}
		grants = append(grants, c.retarget(grant, name))
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return mapError(err, core.OpCreate, name)
	}

	for _, grant := range grants {
		if _, err := c.db.ExecContext(ctx, grant); err != nil {
			return mapError(err, core.OpCreate, name)
		}
	}
	return nil
}

// retarget rewrites a SHOW GRANTS line of the user model so it applies to name
func (c *Connector) retarget(grant, name string) string {
	model, host := c.config.UserModel, c.config.UserHost
	target := c.account(name)
	grant = strings.ReplaceAll(grant, "`"+model+"`@`"+host+"`", target)
	grant = strings.ReplaceAll(grant, "'"+model+"'@'"+host+"'", target)
	return identifiedByPassword.ReplaceAllString(grant, "")
}

func (c *Connector) dropAfterFailedCreate(ctx context.Context, name string) {
	if _, err := c.db.ExecContext(ctx, "DROP USER "+c.account(name)); err != nil {
		c.OpLogger(ctx).Warn("failed to drop partially created user", zap.String("user", name), zap.Error(err))
	}
}

// Update renames a user and/or changes its password and returns the
// resulting Uid
func (c *Connector) Update(ctx context.Context, oc core.ObjectClass, uid core.Uid, attrs core.AttributeSet, opts *core.OperationOptions) (core.Uid, error) {
	result := uid
	err := c.RunOperation(ctx, core.OpUpdate, oc, opts, func(ctx context.Context) error {
		oci, err := c.accountClass(oc)
		if err != nil {
			return err
		}
		if err := oci.ValidateUpdate(attrs); err != nil {
			return err
		}

		current := string(uid)
		changed := false

		newName, ok, err := attrs.OptionalString(core.AttrName)
		if err != nil {
			return err
		}
		if ok && newName != current {
			if err := validateUserName(newName); err != nil {
				return err
			}
			stmt := fmt.Sprintf("RENAME USER %s TO %s", c.account(current), c.account(newName))
			if _, err := c.db.ExecContext(ctx, stmt); err != nil {
				return c.renameError(ctx, err, current, newName)
			}
			c.OpLogger(ctx).Info("user renamed", zap.String("from", current), zap.String("to", newName))
			current = newName
			changed = true
		}

		if attrs.Has(core.AttrPassword) {
			password, err := attrs.RequirePassword(core.AttrPassword)
			if err != nil {
				return err
			}
			stmt := fmt.Sprintf("ALTER USER %s IDENTIFIED BY %s", c.account(current), quoteString(password.Reveal()))
			if _, err := c.db.ExecContext(ctx, stmt); err != nil {
				return mapError(err, core.OpUpdate, current)
			}
			c.OpLogger(ctx).Info("password changed", zap.String("user", current))
			changed = true
		}

		if !changed {
			exists, err := c.exists(ctx, current)
			if err != nil {
				return err
			}
			if !exists {
				return errors.Newf(errors.ErrorTypeUnknownUid, "user %s does not exist", current)
			}
		}

		result = core.Uid(current)
		return nil
	})
	return result, err
}

// renameError tells a missing source account from an occupied target; MySQL
// reports both as 1396
func (c *Connector) renameError(ctx context.Context, err error, from, to string) error {
	if n, ok := serverErrorNumber(err); !ok || n != errCannotUser {
		return mapError(err, core.OpUpdate, from)
	}
	exists, lookupErr := c.exists(ctx, from)
	if lookupErr != nil {
		return lookupErr
	}
	if exists {
		return errors.Wrap(err, errors.ErrorTypeAlreadyExists, "user "+to+" already exists")
	}
	return errors.Wrap(err, errors.ErrorTypeUnknownUid, "user "+from+" does not exist")
}

func (c *Connector) exists(ctx context.Context, name string) (bool, error) {
	var n int
	err := c.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM mysql.user WHERE User = ? AND Host = ?", name, c.config.UserHost).Scan(&n)
	if err != nil {
		return false, mapError(err, core.OpSearch, name)
	}
	return n > 0, nil
}

// Delete drops a user
func (c *Connector) Delete(ctx context.Context, oc core.ObjectClass, uid core.Uid, opts *core.OperationOptions) error {
	return c.RunOperation(ctx, core.OpDelete, oc, opts, func(ctx context.Context) error {
		if _, err := c.accountClass(oc); err != nil {
			return err
		}
		if _, err := c.db.ExecContext(ctx, "DROP USER "+c.account(string(uid))); err != nil {
			return mapError(err, core.OpDelete, string(uid))
		}
		c.OpLogger(ctx).Info("user deleted", zap.String("user", string(uid)))
		return nil
	})
}

// Authenticate verifies credentials by connecting as the user
func (c *Connector) Authenticate(ctx context.Context, oc core.ObjectClass, username string, password core.GuardedString, opts *core.OperationOptions) (core.Uid, error) {
	var uid core.Uid
	err := c.RunOperation(ctx, core.OpAuthenticate, oc, opts, func(ctx context.Context) error {
		if _, err := c.accountClass(oc); err != nil {
			return err
		}
		if strings.TrimSpace(username) == "" || password.IsEmpty() {
			return errors.New(errors.ErrorTypeInvalidCredential, "username and password are required")
		}

		db, err := c.open(c.dsn(username, password.Reveal(), ""))
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeConfig, "failed to open authentication connection")
		}
		defer db.Close()
		db.SetMaxOpenConns(1)

		if err := db.PingContext(ctx); err != nil {
			if n, ok := serverErrorNumber(err); ok && n == errAccessDenied {
				return errors.Wrap(err, errors.ErrorTypeInvalidCredential, "invalid credentials for user "+username)
			}
			return mapConnectError(err)
		}
		uid = core.Uid(username)
		return nil
	})
	return uid, err
}
