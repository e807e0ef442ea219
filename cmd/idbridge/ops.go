package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	gojson "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/ajitpratap0/idbridge/pkg/connector/core"
	"github.com/ajitpratap0/idbridge/pkg/errors"
)

func printJSON(w io.Writer, v interface{}) error {
	data, err := gojson.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode output")
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// capability returns conn as T or an Unsupported error naming op
func capability[T any](conn core.Connector, op string) (T, error) {
	impl, ok := conn.(T)
	if !ok {
		var zero T
		return zero, errors.Newf(errors.ErrorTypeUnsupported, "connector %s does not support %s", conn.Name(), op)
	}
	return impl, nil
}

// objectClass accepts the short forms account and group
func objectClass(arg string) core.ObjectClass {
	switch strings.ToLower(arg) {
	case "account":
		return core.ObjectClassAccount
	case "group":
		return core.ObjectClassGroup
	}
	return core.ObjectClass(arg)
}

// parseAttributes turns name=value pairs into an attribute set. A repeated
// name becomes a multi-valued attribute; name= alone clears the attribute.
func parseAttributes(pairs []string) (core.AttributeSet, error) {
	var order []string
	values := map[string][]interface{}{}
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, errors.Newf(errors.ErrorTypeInvalidAttribute, "attribute %q must be name=value", p)
		}
		if _, seen := values[name]; !seen {
			order = append(order, name)
			values[name] = nil
		}
		if value != "" {
			values[name] = append(values[name], value)
		}
	}

	attrs := make([]core.Attribute, 0, len(order))
	for _, name := range order {
		attrs = append(attrs, core.NewAttribute(name, values[name]...))
	}
	return core.NewAttributeSet(attrs...)
}

func operationOptions(cmd *cobra.Command) *core.OperationOptions {
	opts := &core.OperationOptions{}
	if cmd.Flags().Lookup("attrs") != nil {
		opts.AttributesToGet, _ = cmd.Flags().GetStringSlice("attrs")
	}
	if cmd.Flags().Lookup("page-size") != nil {
		opts.PageSize, _ = cmd.Flags().GetInt("page-size")
	}
	opts.RunAsUser, _ = cmd.Flags().GetString("run-as")
	return opts
}

func addRunAsFlag(cmd *cobra.Command) {
	cmd.Flags().String("run-as", "", "User recorded as the requester of the operation")
}

func (c *cli) schemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Show the object classes and attributes of the configured connector",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withConnector(cmd, func(ctx context.Context, conn core.Connector) error {
				op, err := capability[core.SchemaOp](conn, core.OpSchema)
				if err != nil {
					return err
				}
				s, err := op.Schema(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{
					"connector":  conn.Name(),
					"version":    conn.Version(),
					"operations": core.Operations(conn),
					"schema":     s,
				})
			})
		},
	}
}

func (c *cli) testCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Check that the configured backend is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withConnector(cmd, func(ctx context.Context, conn core.Connector) error {
				op, err := capability[core.TestOp](conn, core.OpTest)
				if err != nil {
					return err
				}
				if err := op.Test(ctx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "connector %s OK\n", conn.Name())
				return nil
			})
		},
	}
}

func (c *cli) createCommand() *cobra.Command {
	var pairs []string
	cmd := &cobra.Command{
		Use:   "create <object-class>",
		Short: "Create an object",
		Example: `  idbridge create account -c mysql.yaml -a __NAME__=jdoe -a __PASSWORD__=s3cret
  idbridge create group -c solaris.yaml -a __NAME__=dev -a users=jdoe -a users=alice`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			attrs, err := parseAttributes(pairs)
			if err != nil {
				return err
			}
			return c.withConnector(cmd, func(ctx context.Context, conn core.Connector) error {
				op, err := capability[core.CreateOp](conn, core.OpCreate)
				if err != nil {
					return err
				}
				uid, err := op.Create(ctx, objectClass(args[0]), attrs, operationOptions(cmd))
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]string{"uid": string(uid)})
			})
		},
	}
	cmd.Flags().StringArrayVarP(&pairs, "attr", "a", nil, "Attribute as name=value; repeat for more values")
	addRunAsFlag(cmd)
	return cmd
}

func (c *cli) updateCommand() *cobra.Command {
	var pairs []string
	cmd := &cobra.Command{
		Use:   "update <object-class> <uid>",
		Short: "Replace attribute values of an object",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			attrs, err := parseAttributes(pairs)
			if err != nil {
				return err
			}
			return c.withConnector(cmd, func(ctx context.Context, conn core.Connector) error {
				op, err := capability[core.UpdateOp](conn, core.OpUpdate)
				if err != nil {
					return err
				}
				uid, err := op.Update(ctx, objectClass(args[0]), core.Uid(args[1]), attrs, operationOptions(cmd))
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]string{"uid": string(uid)})
			})
		},
	}
	cmd.Flags().StringArrayVarP(&pairs, "attr", "a", nil, "Attribute as name=value; repeat for more values, name= clears")
	addRunAsFlag(cmd)
	return cmd
}

func (c *cli) deleteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <object-class> <uid>",
		Short: "Delete an object",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withConnector(cmd, func(ctx context.Context, conn core.Connector) error {
				op, err := capability[core.DeleteOp](conn, core.OpDelete)
				if err != nil {
					return err
				}
				if err := op.Delete(ctx, objectClass(args[0]), core.Uid(args[1]), operationOptions(cmd)); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[1])
				return nil
			})
		},
	}
	addRunAsFlag(cmd)
	return cmd
}

func addSearchFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("attrs", nil, "Attributes to return (comma separated)")
	cmd.Flags().Int("page-size", 0, "Maximum number of results")
	addRunAsFlag(cmd)
}

// search streams matching objects to w as a JSON array
func search(ctx context.Context, w io.Writer, conn core.Connector, oc core.ObjectClass, filter core.Filter, opts *core.OperationOptions) (int, error) {
	op, err := capability[core.SearchOp](conn, core.OpSearch)
	if err != nil {
		return 0, err
	}
	var results []*core.ConnectorObject
	err = op.Search(ctx, oc, filter, func(obj *core.ConnectorObject) bool {
		results = append(results, obj)
		return true
	}, opts)
	if err != nil {
		return 0, err
	}
	if results == nil {
		results = []*core.ConnectorObject{}
	}
	return len(results), printJSON(w, results)
}

func (c *cli) searchCommand() *cobra.Command {
	var expr string
	cmd := &cobra.Command{
		Use:   "search <object-class>",
		Short: "Search objects",
		Example: `  idbridge search account -c erp.yaml --filter 'owner eq "CUST"'
  idbridge search account -c solaris.yaml --filter '__NAME__ sw "svc" and shell eq "/bin/false"'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter core.Filter
			if expr != "" {
				f, err := core.ParseFilter(expr)
				if err != nil {
					return err
				}
				filter = f
			}
			return c.withConnector(cmd, func(ctx context.Context, conn core.Connector) error {
				_, err := search(ctx, cmd.OutOrStdout(), conn, objectClass(args[0]), filter, operationOptions(cmd))
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&expr, "filter", "f", "", "Filter expression")
	addSearchFlags(cmd)
	return cmd
}

func (c *cli) getCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <object-class> <uid>",
		Short: "Read one object by uid",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withConnector(cmd, func(ctx context.Context, conn core.Connector) error {
				op, err := capability[core.SearchOp](conn, core.OpSearch)
				if err != nil {
					return err
				}
				var found *core.ConnectorObject
				err = op.Search(ctx, objectClass(args[0]), core.Equals(core.AttrUid, args[1]), func(obj *core.ConnectorObject) bool {
					found = obj
					return false
				}, operationOptions(cmd))
				if err != nil {
					return err
				}
				if found == nil {
					return errors.Newf(errors.ErrorTypeUnknownUid, "%s %s does not exist", args[0], args[1])
				}
				return printJSON(cmd.OutOrStdout(), found)
			})
		},
	}
	addSearchFlags(cmd)
	return cmd
}

func (c *cli) authenticateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "authenticate <username>",
		Short: "Verify an account password",
		Long: `Verify an account password. The password is taken from --password or
the IDBRIDGE_USER_PASSWORD environment variable.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password := c.v.GetString("user_password")
			return c.withConnector(cmd, func(ctx context.Context, conn core.Connector) error {
				op, err := capability[core.AuthenticateOp](conn, core.OpAuthenticate)
				if err != nil {
					return err
				}
				oc, _ := cmd.Flags().GetString("object-class")
				uid, err := op.Authenticate(ctx, objectClass(oc), args[0], core.NewGuardedString(password), operationOptions(cmd))
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]string{"uid": string(uid)})
			})
		},
	}
	cmd.Flags().String("password", "", "Password to verify")
	cmd.Flags().String("object-class", "account", "Object class of the account")
	_ = c.v.BindPFlag("user_password", cmd.Flags().Lookup("password"))
	addRunAsFlag(cmd)
	return cmd
}
