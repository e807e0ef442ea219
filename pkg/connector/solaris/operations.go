package solaris

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/ajitpratap0/idbridge/pkg/connector/core"
	"github.com/ajitpratap0/idbridge/pkg/errors"
)

// nameFilter narrows a search to one entry when the filter is an equality
// on the name
var nameFilter = core.FilterTranslator[string]{
	Compare: func(f *core.CompareFilter, not bool) (string, bool) {
		if not || f.Op != core.OpEquals {
			return "", false
		}
		if !strings.EqualFold(f.Name, core.AttrName) && !strings.EqualFold(f.Name, core.AttrUid) {
			return "", false
		}
		v := f.StringValue()
		return v, namePattern.MatchString(v)
	},
}

// Create adds an account or group and returns its name as Uid
func (c *Connector) Create(ctx context.Context, oc core.ObjectClass, attrs core.AttributeSet, opts *core.OperationOptions) (core.Uid, error) {
	var uid core.Uid
	err := c.RunOperation(ctx, core.OpCreate, oc, opts, func(ctx context.Context) error {
		oci, err := c.schema.RequireObjectClass(oc)
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
		if err := validateName(core.AttrName, name); err != nil {
			return err
		}
		rest := attrs.Without(core.AttrName)

		if oci.Type == core.ObjectClassGroup {
			g, err := parseGroupChange(rest)
			if err != nil {
				return err
			}
			err = c.withSession(ctx, func(s *Session) error {
				return c.repo.createGroup(s, name, g)
			})
			if err != nil {
				return err
			}
			c.OpLogger(ctx).Info("group created", zap.String("group", name))
			uid = core.Uid(name)
			return nil
		}

		ch, err := parseAccountChange(rest)
		if err != nil {
			return err
		}
		err = c.withSession(ctx, func(s *Session) error {
			created, err := c.repo.createAccount(s, name, ch)
			if err != nil && created {
				c.removeAfterFailedCreate(ctx, s, name)
			}
			return err
		})
		if err != nil {
			return err
		}
		c.OpLogger(ctx).Info("account created", zap.String("account", name), zap.String("repository", c.repo.kind()))
		uid = core.Uid(name)
		return nil
	})
	return uid, err
}

// removeAfterFailedCreate deletes an account whose creation failed after
// its entry was written
func (c *Connector) removeAfterFailedCreate(ctx context.Context, s *Session, name string) {
	if s.broken {
		c.OpLogger(ctx).Warn("session lost, partially created account left in place", zap.String("account", name))
		return
	}
	if err := c.repo.deleteAccount(s, account{name: name}); err != nil {
		c.OpLogger(ctx).Warn("failed to remove partially created account",
			zap.String("account", name), zap.Error(err))
	}
}

// Update changes attributes of an account or group. Renames return the new
// name as Uid.
func (c *Connector) Update(ctx context.Context, oc core.ObjectClass, uid core.Uid, attrs core.AttributeSet, opts *core.OperationOptions) (core.Uid, error) {
	result := uid
	err := c.RunOperation(ctx, core.OpUpdate, oc, opts, func(ctx context.Context) error {
		oci, err := c.schema.RequireObjectClass(oc)
		if err != nil {
			return err
		}
		name := string(uid)
		v, ok, err := attrs.OptionalString(core.AttrName)
		if err != nil {
			return err
		}
		if ok && v == name {
			attrs = attrs.Without(core.AttrName)
		}
		if err := oci.ValidateUpdate(attrs); err != nil {
			return err
		}

		var newName string
		if attrs.Has(core.AttrName) {
			if newName, err = attrs.RequireString(core.AttrName); err != nil {
				return err
			}
			if err := validateName(core.AttrName, newName); err != nil {
				return err
			}
		}
		rest := attrs.Without(core.AttrName)

		if oci.Type == core.ObjectClassGroup {
			g, err := parseGroupChange(rest)
			if err != nil {
				return err
			}
			g.newName = newName
			err = c.withSession(ctx, func(s *Session) error {
				if _, err := c.requireGroup(s, name); err != nil {
					return err
				}
				return c.repo.updateGroup(s, name, g)
			})
			if err != nil {
				return err
			}
		} else {
			ch, err := parseAccountChange(rest)
			if err != nil {
				return err
			}
			ch.newName = newName
			err = c.withSession(ctx, func(s *Session) error {
				if _, err := c.requireAccount(s, name); err != nil {
					return err
				}
				return c.repo.updateAccount(s, name, ch)
			})
			if err != nil {
				return err
			}
		}

		if newName != "" {
			result = core.Uid(newName)
		}
		c.OpLogger(ctx).Info("object updated",
			zap.String("uid", name),
			zap.String("new_uid", string(result)),
			zap.Strings("attributes", attrs.Names()))
		return nil
	})
	return result, err
}

// Delete removes an account or group
func (c *Connector) Delete(ctx context.Context, oc core.ObjectClass, uid core.Uid, opts *core.OperationOptions) error {
	return c.RunOperation(ctx, core.OpDelete, oc, opts, func(ctx context.Context) error {
		oci, err := c.schema.RequireObjectClass(oc)
		if err != nil {
			return err
		}
		name := string(uid)
		err = c.withSession(ctx, func(s *Session) error {
			if oci.Type == core.ObjectClassGroup {
				if _, err := c.requireGroup(s, name); err != nil {
					return err
				}
				return c.repo.deleteGroup(s, name)
			}
			a, err := c.requireAccount(s, name)
			if err != nil {
				return err
			}
			return c.repo.deleteAccount(s, a)
		})
		if err != nil {
			return err
		}
		c.OpLogger(ctx).Info("object deleted", zap.String("uid", name))
		return nil
	})
}

func (c *Connector) requireAccount(s *Session, name string) (account, error) {
	if namePattern.MatchString(name) {
		accounts, err := c.repo.listAccounts(s, name)
		if err != nil {
			return account{}, err
		}
		for _, a := range accounts {
			if a.name == name {
				return a, nil
			}
		}
	}
	return account{}, errors.Newf(errors.ErrorTypeUnknownUid, "account %s does not exist", name)
}

func (c *Connector) requireGroup(s *Session, name string) (group, error) {
	groups, err := c.repo.listGroups(s)
	if err != nil {
		return group{}, err
	}
	if g, ok := findGroup(groups, name); ok {
		return g, nil
	}
	return group{}, errors.Newf(errors.ErrorTypeUnknownUid, "group %s does not exist", name)
}

// Search lists accounts or groups. An equality filter on the name reads a
// single account; every filter is also evaluated in memory.
func (c *Connector) Search(ctx context.Context, oc core.ObjectClass, filter core.Filter, handler core.ResultsHandler, opts *core.OperationOptions) error {
	return c.RunOperation(ctx, core.OpSearch, oc, opts, func(ctx context.Context) error {
		oci, err := c.schema.RequireObjectClass(oc)
		if err != nil {
			return err
		}

		var objects []*core.ConnectorObject
		err = c.withSession(ctx, func(s *Session) error {
			if oci.Type == core.ObjectClassGroup {
				groups, err := c.repo.listGroups(s)
				for _, g := range groups {
					objects = append(objects, g.object())
				}
				return err
			}

			var name string
			if filter != nil {
				if n, ok := nameFilter.Translate(filter); ok {
					name = n
				}
			}
			accounts, err := c.repo.listAccounts(s, name)
			for _, a := range accounts {
				objects = append(objects, a.object())
			}
			return err
		})
		if err != nil {
			return err
		}

		returned := oci.AttributesToReturn(opts)
		sent := 0
		for _, obj := range objects {
			if !core.Match(filter, obj) {
				continue
			}
			if !handler(obj.Keep(returned)) {
				break
			}
			sent++
			if opts != nil && opts.PageSize > 0 && sent >= opts.PageSize {
				break
			}
		}
		return nil
	})
}

// Authenticate checks the password by opening an SSH connection as the user
func (c *Connector) Authenticate(ctx context.Context, oc core.ObjectClass, username string, password core.GuardedString, opts *core.OperationOptions) (core.Uid, error) {
	var uid core.Uid
	err := c.RunOperation(ctx, core.OpAuthenticate, oc, opts, func(ctx context.Context) error {
		oci, err := c.schema.RequireObjectClass(oc)
		if err != nil {
			return err
		}
		if oci.Type != core.ObjectClassAccount {
			return errors.Newf(errors.ErrorTypeUnsupported, "authenticate is not supported for %s", oc)
		}
		if username == "" || password.IsEmpty() {
			return errors.New(errors.ErrorTypeInvalidCredential, "username and password are required")
		}

		exp, err := c.dialer.Dial(ctx, Credentials{User: username, Password: password.Reveal()})
		if errors.IsType(err, errors.ErrorTypeAuthentication) {
			return errors.Wrap(err, errors.ErrorTypeInvalidCredential, "invalid username or password").
				WithDetail("user", username)
		}
		if err != nil {
			return err
		}
		if err := exp.Close(); err != nil {
			c.OpLogger(ctx).Debug("closing authentication session failed", zap.Error(err))
		}
		uid = core.Uid(username)
		return nil
	})
	return uid, err
}
