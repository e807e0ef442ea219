package oracleerp

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ajitpratap0/idbridge/pkg/connector/core"
	"github.com/ajitpratap0/idbridge/pkg/errors"
)

// querier is satisfied by *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// param is one named fnd_user_pkg argument, bound unless literal is set
type param struct {
	name    string
	value   interface{}
	literal string
}

func nullLiteral(typ core.AttributeType) string {
	switch typ {
	case core.TypeInt:
		return "null_number"
	case core.TypeTime:
		return "null_date"
	}
	return "null_char"
}

// call runs BEGIN <apps>.fnd_user_pkg.<proc>(p => :p, ...); END;
func (c *Connector) call(ctx context.Context, q querier, proc string, params []param) error {
	var b strings.Builder
	fmt.Fprintf(&b, "BEGIN %s.%s(", c.object("fnd_user_pkg"), proc)
	args := make([]interface{}, 0, len(params))
	for i, p := range params {
		if i > 0 {
			b.WriteString(", ")
		}
		if p.literal != "" {
			fmt.Fprintf(&b, "%s => %s", p.name, p.literal)
			continue
		}
		fmt.Fprintf(&b, "%s => :%s", p.name, p.name)
		args = append(args, sql.Named(p.name, p.value))
	}
	b.WriteString("); END;")

	_, err := q.ExecContext(ctx, b.String(), args...)
	return err
}

func bindValue(col accountColumn, a core.Attribute) (interface{}, error) {
	switch col.typ {
	case core.TypeInt:
		return a.IntValue()
	case core.TypeTime:
		return a.TimeValue()
	case core.TypeGuarded:
		g, err := a.GuardedValue()
		if err != nil {
			return nil, err
		}
		return g.Reveal(), nil
	}
	s, err := a.StringValue()
	if err != nil {
		return nil, err
	}
	if col.attr == AttrOwner {
		s = strings.ToUpper(s)
	}
	return s, nil
}

// userParams builds the CreateUser/UpdateUser arguments for the supplied
// attributes. On update an empty attribute clears the column through the
// fnd_user_pkg null constants. The second result reports whether any
// account column was supplied.
func (c *Connector) userParams(user string, attrs core.AttributeSet, update bool) ([]param, bool, error) {
	owner := c.config.DefaultOwner
	if v, ok, err := attrs.OptionalString(AttrOwner); err != nil {
		return nil, false, err
	} else if ok {
		owner = strings.ToUpper(v)
	}

	params := []param{
		{name: "x_user_name", value: user},
		{name: "x_owner", value: owner},
	}
	supplied := attrs.Has(AttrOwner)

	expired := false
	if a, ok := attrs.Find(core.AttrPasswordExpired); ok && !a.IsEmpty() {
		v, err := a.BoolValue()
		if err != nil {
			return nil, false, errors.Wrap(err, errors.ErrorTypeInvalidAttribute, "invalid "+core.AttrPasswordExpired)
		}
		expired = v
	}

	for _, col := range accountColumns {
		if col.param == "" || col.attr == core.AttrName || col.attr == AttrOwner {
			continue
		}
		if col.attr == AttrPasswordDate && expired {
			params = append(params, param{name: col.param, literal: c.object("fnd_user_pkg.null_date")})
			supplied = true
			continue
		}
		a, ok := attrs.Find(col.attr)
		if !ok {
			continue
		}
		if a.IsEmpty() {
			if update {
				params = append(params, param{name: col.param, literal: c.object("fnd_user_pkg." + nullLiteral(col.typ))})
				supplied = true
			}
			continue
		}
		v, err := bindValue(col, a)
		if err != nil {
			return nil, false, errors.Wrap(err, errors.ErrorTypeInvalidAttribute, "invalid "+col.attr)
		}
		params = append(params, param{name: col.param, value: v})
		supplied = true
	}
	return params, supplied, nil
}

func (c *Connector) withTx(ctx context.Context, op, user string, fn func(tx *sql.Tx) error) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return mapError(err, op, user)
	}
	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			c.OpLogger(ctx).Warn("rollback failed", zap.String("user", user), zap.Error(rerr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return mapError(err, op, user)
	}
	return nil
}

func (c *Connector) setEnabled(ctx context.Context, q querier, user string, enabled bool) error {
	proc := "DisableUser"
	if enabled {
		proc = "EnableUser"
	}
	if err := c.call(ctx, q, proc, []param{{name: "username", value: user}}); err != nil {
		return mapError(err, core.OpUpdate, user)
	}
	return nil
}

func optionalEnable(attrs core.AttributeSet) (bool, bool, error) {
	a, ok := attrs.Find(core.AttrEnable)
	if !ok || a.IsEmpty() {
		return false, false, nil
	}
	v, err := a.BoolValue()
	if err != nil {
		return false, false, errors.Wrap(err, errors.ErrorTypeInvalidAttribute, "invalid "+core.AttrEnable)
	}
	return v, true, nil
}

// Create creates an account through fnd_user_pkg.CreateUser and assigns its
// responsibilities
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
		user := strings.ToUpper(name)

		params, _, err := c.userParams(user, attrs, false)
		if err != nil {
			return err
		}
		enabled, enableSet, err := optionalEnable(attrs)
		if err != nil {
			return err
		}
		var resps []Responsibility
		if a, ok := attrs.Find(AttrResponsibilities); ok {
			if resps, err = parseResponsibilities(a.StringValues()); err != nil {
				return err
			}
		}

		err = c.withTx(ctx, core.OpCreate, user, func(tx *sql.Tx) error {
			if err := c.call(ctx, tx, "CreateUser", params); err != nil {
				return mapError(err, core.OpCreate, user)
			}
			if err := c.applyResponsibilities(ctx, tx, user, respDiff{add: resps}); err != nil {
				return err
			}
			if enableSet && !enabled {
				return c.setEnabled(ctx, tx, user, false)
			}
			return nil
		})
		if err != nil {
			return err
		}

		c.OpLogger(ctx).Info("account created", zap.String("user", user), zap.Int("responsibilities", len(resps)))
		uid = core.Uid(user)
		return nil
	})
	return uid, err
}

// Update changes account columns, the enabled state and responsibilities.
// Accounts cannot be renamed.
func (c *Connector) Update(ctx context.Context, oc core.ObjectClass, uid core.Uid, attrs core.AttributeSet, opts *core.OperationOptions) (core.Uid, error) {
	user := strings.ToUpper(string(uid))
	err := c.RunOperation(ctx, core.OpUpdate, oc, opts, func(ctx context.Context) error {
		oci, err := c.accountClass(oc)
		if err != nil {
			return err
		}
		name, ok, err := attrs.OptionalString(core.AttrName)
		if err != nil {
			return err
		}
		if ok && strings.EqualFold(name, user) {
			attrs = attrs.Without(core.AttrName)
		}
		if err := oci.ValidateUpdate(attrs); err != nil {
			return err
		}

		params, supplied, err := c.userParams(user, attrs, true)
		if err != nil {
			return err
		}
		enabled, enableSet, err := optionalEnable(attrs)
		if err != nil {
			return err
		}
		var desired []Responsibility
		respSet := attrs.Has(AttrResponsibilities)
		if respSet {
			a, _ := attrs.Find(AttrResponsibilities)
			if desired, err = parseResponsibilities(a.StringValues()); err != nil {
				return err
			}
		}

		return c.withTx(ctx, core.OpUpdate, user, func(tx *sql.Tx) error {
			if err := c.requireUser(ctx, tx, user); err != nil {
				return err
			}
			if supplied {
				if err := c.call(ctx, tx, "UpdateUser", params); err != nil {
					return mapError(err, core.OpUpdate, user)
				}
			}
			if enableSet {
				if err := c.setEnabled(ctx, tx, user, enabled); err != nil {
					return err
				}
			}
			if respSet {
				current, err := c.currentAssignments(ctx, tx, user)
				if err != nil {
					return err
				}
				diff := diffResponsibilities(current, desired)
				if err := c.applyResponsibilities(ctx, tx, user, diff); err != nil {
					return err
				}
				if !diff.empty() {
					c.OpLogger(ctx).Info("responsibilities changed",
						zap.String("user", user),
						zap.Int("added", len(diff.add)),
						zap.Int("changed", len(diff.change)),
						zap.Int("removed", len(diff.remove)))
				}
			}
			return nil
		})
	})
	if err != nil {
		return "", err
	}
	return core.Uid(user), nil
}

// Delete end-dates the account; ERP accounts cannot be removed
func (c *Connector) Delete(ctx context.Context, oc core.ObjectClass, uid core.Uid, opts *core.OperationOptions) error {
	user := strings.ToUpper(string(uid))
	return c.RunOperation(ctx, core.OpDelete, oc, opts, func(ctx context.Context) error {
		if _, err := c.accountClass(oc); err != nil {
			return err
		}
		if err := c.requireUser(ctx, c.db, user); err != nil {
			return err
		}
		if err := c.setEnabled(ctx, c.db, user, false); err != nil {
			return err
		}
		c.OpLogger(ctx).Info("account disabled", zap.String("user", user))
		return nil
	})
}

func (c *Connector) requireUser(ctx context.Context, q querier, user string) error {
	var n int
	err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM "+c.object("FND_USER")+" WHERE user_name = :user_name",
		sql.Named("user_name", user)).Scan(&n)
	if err != nil {
		return mapError(err, core.OpSearch, user)
	}
	if n == 0 {
		return errors.Newf(errors.ErrorTypeUnknownUid, "user %s does not exist", user)
	}
	return nil
}

// Authenticate checks credentials with fnd_web_sec.validate_login
func (c *Connector) Authenticate(ctx context.Context, oc core.ObjectClass, username string, password core.GuardedString, opts *core.OperationOptions) (core.Uid, error) {
	user := strings.ToUpper(strings.TrimSpace(username))
	var uid core.Uid
	err := c.RunOperation(ctx, core.OpAuthenticate, oc, opts, func(ctx context.Context) error {
		if _, err := c.accountClass(oc); err != nil {
			return err
		}
		if user == "" || password.IsEmpty() {
			return errors.New(errors.ErrorTypeInvalidCredential, "username and password are required")
		}

		var valid sql.NullString
		err := c.db.QueryRowContext(ctx,
			"SELECT "+c.object("fnd_web_sec.validate_login")+"(:username, :password) FROM dual",
			sql.Named("username", user), sql.Named("password", password.Reveal())).Scan(&valid)
		if err != nil {
			return mapError(err, core.OpAuthenticate, user)
		}
		if valid.String != "Y" {
			return errors.Newf(errors.ErrorTypeInvalidCredential, "invalid credentials for user %s", user)
		}
		uid = core.Uid(user)
		return nil
	})
	return uid, err
}

func (c *Connector) accountClass(oc core.ObjectClass) (*core.ObjectClassInfo, error) {
	oci, err := c.schema.RequireObjectClass(oc)
	if err != nil {
		return nil, err
	}
	if oci.Type != core.ObjectClassAccount {
		return nil, errors.Newf(errors.ErrorTypeUnsupported, "object class %s is read-only", oc)
	}
	return oci, nil
}
