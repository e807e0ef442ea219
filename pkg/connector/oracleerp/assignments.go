package oracleerp

import (
	"context"
	"database/sql"
	"time"

	"github.com/ajitpratap0/idbridge/pkg/connector/core"
	"github.com/ajitpratap0/idbridge/pkg/errors"
)

func (c *Connector) assignmentsQuery() string {
	return "SELECT fr.responsibility_name, fa.application_name, fsg.security_group_key, furg.start_date, furg.end_date, " +
		"fa.application_short_name, fr.responsibility_key " +
		"FROM " + c.object("fnd_user") + " fu " +
		"JOIN " + c.object("fnd_user_resp_groups_direct") + " furg ON furg.user_id = fu.user_id " +
		"JOIN " + c.object("fnd_responsibility_vl") + " fr ON fr.responsibility_id = furg.responsibility_id " +
		"AND fr.application_id = furg.responsibility_application_id " +
		"JOIN " + c.object("fnd_application_vl") + " fa ON fa.application_id = fr.application_id " +
		"JOIN " + c.object("fnd_security_groups_vl") + " fsg ON fsg.security_group_id = furg.security_group_id " +
		"WHERE fu.user_name = :user_name AND (furg.end_date IS NULL OR furg.end_date > SYSDATE) " +
		"ORDER BY fr.responsibility_name, fa.application_name"
}

// currentAssignments lists the active responsibility assignments of user
func (c *Connector) currentAssignments(ctx context.Context, q querier, user string) ([]assignment, error) {
	rows, err := q.QueryContext(ctx, c.assignmentsQuery(), sql.Named("user_name", user))
	if err != nil {
		return nil, mapError(err, core.OpSearch, user)
	}
	defer rows.Close()

	var out []assignment
	for rows.Next() {
		var (
			a          assignment
			start, end sql.NullTime
		)
		if err := rows.Scan(&a.Name, &a.Application, &a.SecurityGroup, &start, &end, &a.appShortName, &a.respKey); err != nil {
			return nil, mapError(err, core.OpSearch, user)
		}
		a.groupKey = a.SecurityGroup
		a.Start = nullTime(start)
		a.End = nullTime(end)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, core.OpSearch, user)
	}
	return out, nil
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func (c *Connector) resolveQuery() string {
	return "SELECT fa.application_short_name, fr.responsibility_key, fsg.security_group_key " +
		"FROM " + c.object("fnd_responsibility_vl") + " fr " +
		"JOIN " + c.object("fnd_application_vl") + " fa ON fa.application_id = fr.application_id " +
		"CROSS JOIN " + c.object("fnd_security_groups_vl") + " fsg " +
		"WHERE fr.responsibility_name = :resp_name AND fa.application_name = :app_name " +
		"AND (fsg.security_group_key = :group_key OR fsg.security_group_name = :group_name)"
}

// resolve finds the keys fnd_user_pkg.AddResp needs for r. The security
// group may be given by key or by name.
func (c *Connector) resolve(ctx context.Context, q querier, r Responsibility) (assignment, error) {
	a := assignment{Responsibility: r}
	err := q.QueryRowContext(ctx, c.resolveQuery(),
		sql.Named("resp_name", r.Name),
		sql.Named("app_name", r.Application),
		sql.Named("group_key", r.SecurityGroup),
		sql.Named("group_name", r.SecurityGroup),
	).Scan(&a.appShortName, &a.respKey, &a.groupKey)
	if errors.Is(err, sql.ErrNoRows) {
		return a, errors.Newf(errors.ErrorTypeInvalidAttribute, "unknown responsibility %q", r.String()).
			WithDetail("attribute", AttrResponsibilities)
	}
	if err != nil {
		return a, mapError(err, core.OpSearch, "")
	}
	return a, nil
}

// applyResponsibilities adds new assignments, re-adds changed ones with
// their new dates and end-dates removed ones
func (c *Connector) applyResponsibilities(ctx context.Context, q querier, user string, d respDiff) error {
	for _, r := range d.add {
		a, err := c.resolve(ctx, q, r)
		if err != nil {
			return err
		}
		if err := c.addResp(ctx, q, user, a); err != nil {
			return err
		}
	}
	for _, a := range d.change {
		if err := c.addResp(ctx, q, user, a); err != nil {
			return err
		}
	}
	for _, a := range d.remove {
		err := c.call(ctx, q, "DelResp", []param{
			{name: "username", value: user},
			{name: "resp_app", value: a.appShortName},
			{name: "resp_key", value: a.respKey},
			{name: "security_group", value: a.groupKey},
		})
		if err != nil {
			return mapError(err, core.OpUpdate, user)
		}
	}
	return nil
}

func (c *Connector) addResp(ctx context.Context, q querier, user string, a assignment) error {
	params := []param{
		{name: "username", value: user},
		{name: "resp_app", value: a.appShortName},
		{name: "resp_key", value: a.respKey},
		{name: "security_group", value: a.groupKey},
		{name: "description", literal: "NULL"},
	}
	if a.Start != nil {
		params = append(params, param{name: "start_date", value: *a.Start})
	} else {
		params = append(params, param{name: "start_date", literal: "TRUNC(SYSDATE)"})
	}
	if a.End != nil {
		params = append(params, param{name: "end_date", value: *a.End})
	} else {
		params = append(params, param{name: "end_date", literal: "NULL"})
	}

	if err := c.call(ctx, q, "AddResp", params); err != nil {
		return mapError(err, core.OpUpdate, user)
	}
	return nil
}
