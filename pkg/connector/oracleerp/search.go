package oracleerp

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/idbridge/pkg/connector/core"
)

// filterColumn maps a filterable attribute to its FND_USER column
func filterColumn(attr string) (string, bool) {
	switch {
	case strings.EqualFold(attr, core.AttrName), strings.EqualFold(attr, core.AttrUid):
		return "user_name", true
	case strings.EqualFold(attr, AttrEmailAddress):
		return "email_address", true
	case strings.EqualFold(attr, AttrDescription):
		return "description", true
	}
	return "", false
}

type where struct {
	sql  string
	args []interface{}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func join(op string) func(l, r where) (where, bool) {
	return func(l, r where) (where, bool) {
		return where{"(" + l.sql + " " + op + " " + r.sql + ")", append(append([]interface{}{}, l.args...), r.args...)}, true
	}
}

// accountFilter returns a translator whose bind names are unique within
// one query
func accountFilter() core.FilterTranslator[where] {
	n := 0
	bind := func(v interface{}) (string, interface{}) {
		n++
		name := "f" + strconv.Itoa(n)
		return ":" + name, sql.Named(name, v)
	}

	compare := func(f *core.CompareFilter, not bool) (where, bool) {
		col, ok := filterColumn(f.Name)
		if !ok {
			return where{}, false
		}
		v := f.StringValue()
		if col == "user_name" {
			v = strings.ToUpper(v)
		}
		nullable := col != "user_name"

		var pattern string
		switch f.Op {
		case core.OpEquals:
			placeholder, arg := bind(v)
			switch {
			case !not:
				return where{col + " = " + placeholder, []interface{}{arg}}, true
			case nullable:
				return where{"(" + col + " IS NULL OR " + col + " <> " + placeholder + ")", []interface{}{arg}}, true
			default:
				return where{col + " <> " + placeholder, []interface{}{arg}}, true
			}
		case core.OpStartsWith:
			pattern = likeEscaper.Replace(v) + "%"
		case core.OpEndsWith:
			pattern = "%" + likeEscaper.Replace(v)
		case core.OpContains:
			pattern = "%" + likeEscaper.Replace(v) + "%"
		default:
			return where{}, false
		}

		placeholder, arg := bind(pattern)
		like := col + " LIKE " + placeholder + ` ESCAPE '\'`
		switch {
		case !not:
			return where{like, []interface{}{arg}}, true
		case nullable:
			return where{"(" + col + " IS NULL OR " + col + " NOT LIKE " + placeholder + ` ESCAPE '\')`, []interface{}{arg}}, true
		default:
			return where{col + " NOT LIKE " + placeholder + ` ESCAPE '\'`, []interface{}{arg}}, true
		}
	}

	return core.FilterTranslator[where]{Compare: compare, And: join("AND"), Or: join("OR")}
}

func (c *Connector) accountColumnList() string {
	cols := make([]string, 0, len(accountColumns))
	for _, col := range accountColumns {
		if col.column != "" {
			cols = append(cols, col.column)
		}
	}
	return strings.Join(cols, ", ")
}

// buildAccountQuery returns the FND_USER query and whether filter must be
// applied to the results
func (c *Connector) buildAccountQuery(filter core.Filter) (string, []interface{}, bool) {
	var conds []string
	var args []interface{}

	if c.config.AccountsIncluded != "" {
		conds = append(conds, "("+c.config.AccountsIncluded+")")
	}
	if c.config.ActiveAccountsOnly {
		conds = append(conds, "(end_date IS NULL OR end_date > SYSDATE)")
	}

	inMemory := false
	if filter != nil {
		if w, ok := accountFilter().Translate(filter); ok {
			conds = append(conds, w.sql)
			args = append(args, w.args...)
		} else {
			inMemory = true
		}
	}

	query := "SELECT " + c.accountColumnList() + " FROM " + c.object("FND_USER")
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	return query + " ORDER BY user_name", args, inMemory
}

// Search dispatches on the object class
func (c *Connector) Search(ctx context.Context, oc core.ObjectClass, filter core.Filter, handler core.ResultsHandler, opts *core.OperationOptions) error {
	return c.RunOperation(ctx, core.OpSearch, oc, opts, func(ctx context.Context) error {
		oci, err := c.schema.RequireObjectClass(oc)
		if err != nil {
			return err
		}
		switch oci.Type {
		case ObjectClassResponsibilityNames:
			return c.searchLookup(ctx, c.responsibilityNamesQuery(), oci.Type, AttrApplication, filter, handler, opts)
		case ObjectClassApplications:
			return c.searchLookup(ctx, c.applicationsQuery(), oci.Type, AttrApplicationShortName, filter, handler, opts)
		}
		return c.searchAccounts(ctx, oci, filter, handler, opts)
	})
}

// upperNames copies f with __NAME__ and __UID__ values upper-cased, the
// way FND_USER stores user_name
func upperNames(f core.Filter) core.Filter {
	switch f := f.(type) {
	case *core.CompareFilter:
		if col, ok := filterColumn(f.Name); ok && col == "user_name" {
			return &core.CompareFilter{Op: f.Op, Name: f.Name, Value: strings.ToUpper(f.StringValue())}
		}
	case *core.AndFilter:
		return &core.AndFilter{Left: upperNames(f.Left), Right: upperNames(f.Right)}
	case *core.OrFilter:
		return &core.OrFilter{Left: upperNames(f.Left), Right: upperNames(f.Right)}
	case *core.NotFilter:
		return &core.NotFilter{Filter: upperNames(f.Filter)}
	}
	return f
}

func (c *Connector) searchAccounts(ctx context.Context, oci *core.ObjectClassInfo, filter core.Filter, handler core.ResultsHandler, opts *core.OperationOptions) error {
	if filter != nil {
		filter = upperNames(filter)
	}
	query, args, inMemory := c.buildAccountQuery(filter)
	if inMemory {
		c.OpLogger(ctx).Debug("filter applied in memory", zap.Stringer("filter", filter))
	}

	returned := oci.AttributesToReturn(opts)
	withResps := false
	for _, name := range returned {
		if strings.EqualFold(name, AttrResponsibilities) || strings.EqualFold(name, AttrResponsibilityKeys) {
			withResps = true
		}
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return mapError(err, core.OpSearch, "")
	}
	// rows are buffered so responsibility lookups do not hold a second
	// connection while the cursor is open
	var objs []*core.ConnectorObject
	for rows.Next() {
		obj, err := scanAccount(rows)
		if err != nil {
			rows.Close()
			return mapError(err, core.OpSearch, "")
		}
		objs = append(objs, obj)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return mapError(err, core.OpSearch, "")
	}

	count := 0
	for _, obj := range objs {
		if withResps {
			current, err := c.currentAssignments(ctx, c.db, obj.Name)
			if err != nil {
				return err
			}
			resps := make([]interface{}, 0, len(current))
			keys := make([]interface{}, 0, len(current))
			for _, a := range current {
				resps = append(resps, a.Responsibility.String())
				keys = append(keys, a.keyString())
			}
			obj.Attributes = append(obj.Attributes,
				core.NewAttribute(AttrResponsibilities, resps...),
				core.NewAttribute(AttrResponsibilityKeys, keys...))
		}
		if inMemory && !filter.Accept(obj) {
			continue
		}
		count++
		if !handler(obj.Keep(returned)) {
			return nil
		}
		if opts != nil && opts.PageSize > 0 && count >= opts.PageSize {
			return nil
		}
	}
	return nil
}

func scanAccount(rows *sql.Rows) (*core.ConnectorObject, error) {
	var (
		userName                             string
		description, email, fax              sql.NullString
		startDate, endDate                   sql.NullTime
		lastLogon, passwordDate              sql.NullTime
		accessesLeft, lifespanAccesses       sql.NullInt64
		lifespanDays, employeeID, customerID sql.NullInt64
		supplierID, personPartyID, userID    sql.NullInt64
	)
	// column order follows accountColumns
	err := rows.Scan(&userName, &startDate, &endDate, &lastLogon, &description, &passwordDate,
		&accessesLeft, &lifespanAccesses, &lifespanDays, &employeeID, &email, &fax,
		&customerID, &supplierID, &personPartyID, &userID)
	if err != nil {
		return nil, err
	}

	obj := core.NewConnectorObject(core.ObjectClassAccount, core.Uid(userName), userName)
	addTime(obj, AttrStartDate, startDate)
	addTime(obj, AttrEndDate, endDate)
	addTime(obj, AttrLastLogonDate, lastLogon)
	addString(obj, AttrDescription, description)
	addTime(obj, AttrPasswordDate, passwordDate)
	addInt(obj, AttrPasswordAccessesLeft, accessesLeft)
	addInt(obj, AttrPasswordLifespanAccesses, lifespanAccesses)
	addInt(obj, AttrPasswordLifespanDays, lifespanDays)
	addInt(obj, AttrEmployeeID, employeeID)
	addString(obj, AttrEmailAddress, email)
	addString(obj, AttrFax, fax)
	addInt(obj, AttrCustomerID, customerID)
	addInt(obj, AttrSupplierID, supplierID)
	addInt(obj, AttrPersonPartyID, personPartyID)
	addInt(obj, AttrUserID, userID)
	obj.Add(core.AttrEnable, !endDate.Valid || endDate.Time.After(time.Now()))
	return obj, nil
}

func addTime(obj *core.ConnectorObject, name string, v sql.NullTime) {
	if v.Valid {
		obj.Add(name, v.Time)
	}
}

func addString(obj *core.ConnectorObject, name string, v sql.NullString) {
	if v.Valid {
		obj.Add(name, v.String)
	}
}

func addInt(obj *core.ConnectorObject, name string, v sql.NullInt64) {
	if v.Valid {
		obj.Add(name, v.Int64)
	}
}

func (c *Connector) responsibilityNamesQuery() string {
	return "SELECT DISTINCT fr.responsibility_name, fa.application_name " +
		"FROM " + c.object("fnd_responsibility_vl") + " fr " +
		"JOIN " + c.object("fnd_application_vl") + " fa ON fa.application_id = fr.application_id " +
		"WHERE (fr.end_date IS NULL OR fr.end_date > SYSDATE) " +
		"ORDER BY fr.responsibility_name, fa.application_name"
}

func (c *Connector) applicationsQuery() string {
	return "SELECT application_name, application_short_name FROM " + c.object("fnd_application_vl") +
		" ORDER BY application_name"
}

// searchLookup lists a two-column reference table. The lists are small, so
// filters are applied in memory. Uids are "name||second" to stay unique.
func (c *Connector) searchLookup(ctx context.Context, query string, oc core.ObjectClass, second string, filter core.Filter, handler core.ResultsHandler, opts *core.OperationOptions) error {
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return mapError(err, core.OpSearch, "")
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var name, other string
		if err := rows.Scan(&name, &other); err != nil {
			return mapError(err, core.OpSearch, "")
		}
		uid := name
		if oc == ObjectClassResponsibilityNames {
			uid = name + respSeparator + other
		}
		obj := core.NewConnectorObject(oc, core.Uid(uid), name).Add(second, other)
		if !core.Match(filter, obj) {
			continue
		}
		count++
		if !handler(obj) {
			break
		}
		if opts != nil && opts.PageSize > 0 && count >= opts.PageSize {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return mapError(err, core.OpSearch, "")
	}
	return nil
}
