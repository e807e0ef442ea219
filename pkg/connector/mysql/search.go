package mysql

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/ajitpratap0/idbridge/pkg/connector/core"
)

// where is a translated SQL condition with its bind arguments
type where struct {
	sql  string
	args []interface{}
}

var userFilter = core.FilterTranslator[where]{
	Compare: compareUser,
	And: func(l, r where) (where, bool) {
		return where{"(" + l.sql + " AND " + r.sql + ")", append(append([]interface{}{}, l.args...), r.args...)}, true
	},
	Or: func(l, r where) (where, bool) {
		return where{"(" + l.sql + " OR " + r.sql + ")", append(append([]interface{}{}, l.args...), r.args...)}, true
	},
}

// compareUser translates comparisons on the account name. Other attributes
// are not stored in mysql.user and cannot be translated.
func compareUser(f *core.CompareFilter, not bool) (where, bool) {
	if !strings.EqualFold(f.Name, core.AttrName) && !strings.EqualFold(f.Name, core.AttrUid) {
		return where{}, false
	}
	v := f.StringValue()

	like := func(pattern string) (where, bool) {
		if not {
			return where{"User NOT LIKE ?", []interface{}{pattern}}, true
		}
		return where{"User LIKE ?", []interface{}{pattern}}, true
	}

	switch f.Op {
	case core.OpEquals:
		if not {
			return where{"User <> ?", []interface{}{v}}, true
		}
		return where{"User = ?", []interface{}{v}}, true
	case core.OpStartsWith:
		return like(escapeLike(v) + "%")
	case core.OpEndsWith:
		return like("%" + escapeLike(v))
	case core.OpContains:
		return like("%" + escapeLike(v) + "%")
	case core.OpGreaterThan:
		if not {
			return where{"User <= ?", []interface{}{v}}, true
		}
		return where{"User > ?", []interface{}{v}}, true
	case core.OpLessThan:
		if not {
			return where{"User >= ?", []interface{}{v}}, true
		}
		return where{"User < ?", []interface{}{v}}, true
	}
	return where{}, false
}

// buildSearchQuery returns the account query and whether filter must be
// applied to the results
func (c *Connector) buildSearchQuery(filter core.Filter, opts *core.OperationOptions) (string, []interface{}, bool) {
	var b strings.Builder
	args := make([]interface{}, 0, len(c.config.ExcludedUsers)+2)

	b.WriteString("SELECT DISTINCT User FROM mysql.user")
	conds := make([]string, 0, 2)
	if len(c.config.ExcludedUsers) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(c.config.ExcludedUsers)), ",")
		conds = append(conds, "User NOT IN ("+placeholders+")")
		for _, u := range c.config.ExcludedUsers {
			args = append(args, u)
		}
	}

	inMemory := false
	if filter != nil {
		if w, ok := userFilter.Translate(filter); ok {
			conds = append(conds, w.sql)
			args = append(args, w.args...)
		} else {
			inMemory = true
		}
	}

	if len(conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}
	b.WriteString(" ORDER BY User")
	if opts != nil && opts.PageSize > 0 && !inMemory {
		b.WriteString(" LIMIT ?")
		args = append(args, opts.PageSize)
	}
	return b.String(), args, inMemory
}

// Search streams accounts matching filter to handler until it returns false
func (c *Connector) Search(ctx context.Context, oc core.ObjectClass, filter core.Filter, handler core.ResultsHandler, opts *core.OperationOptions) error {
	return c.RunOperation(ctx, core.OpSearch, oc, opts, func(ctx context.Context) error {
		if _, err := c.accountClass(oc); err != nil {
			return err
		}

		query, args, inMemory := c.buildSearchQuery(filter, opts)
		if inMemory {
			c.OpLogger(ctx).Debug("filter applied in memory", zap.Stringer("filter", filter))
		}

		rows, err := c.db.QueryContext(ctx, query, args...)
		if err != nil {
			return mapError(err, core.OpSearch, "")
		}
		defer rows.Close()

		returned := 0
		for rows.Next() {
			var user string
			if err := rows.Scan(&user); err != nil {
				return mapError(err, core.OpSearch, "")
			}
			obj := core.NewConnectorObject(core.ObjectClassAccount, core.Uid(user), user)
			if inMemory && !filter.Accept(obj) {
				continue
			}
			returned++
			if !handler(obj) {
				break
			}
			if inMemory && opts != nil && opts.PageSize > 0 && returned >= opts.PageSize {
				break
			}
		}
		if err := rows.Err(); err != nil {
			return mapError(err, core.OpSearch, "")
		}
		return nil
	})
}
