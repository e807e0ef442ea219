package oracleerp

import (
	"strings"
	"time"

	"github.com/ajitpratap0/idbridge/pkg/connector/core"
	"github.com/ajitpratap0/idbridge/pkg/errors"
)

const respSeparator = "||"

// accepted layouts for responsibility dates; the first one is used for output
var respDateLayouts = []string{core.DateLayout, "2006-01-02 15:04:05.0", "2006-01-02 15:04:05"}

// Responsibility is one responsibility assignment of an account, written
// "Responsibility Name||Application Name||Security Group||start||end"
type Responsibility struct {
	Name          string
	Application   string
	SecurityGroup string
	Start         *time.Time
	End           *time.Time
}

// ParseResponsibility parses the assignment string form. Start and end may
// be omitted, empty or "null".
func ParseResponsibility(s string) (Responsibility, error) {
	parts := strings.Split(s, respSeparator)
	if len(parts) != 3 && len(parts) != 5 {
		return Responsibility{}, invalidResponsibility(s, "expected name||application||security group[||start||end]")
	}

	r := Responsibility{
		Name:          strings.TrimSpace(parts[0]),
		Application:   strings.TrimSpace(parts[1]),
		SecurityGroup: strings.TrimSpace(parts[2]),
	}
	if r.Name == "" || r.Application == "" || r.SecurityGroup == "" {
		return Responsibility{}, invalidResponsibility(s, "name, application and security group are required")
	}

	if len(parts) == 5 {
		var err error
		if r.Start, err = parseRespDate(parts[3]); err != nil {
			return Responsibility{}, invalidResponsibility(s, err.Error())
		}
		if r.End, err = parseRespDate(parts[4]); err != nil {
			return Responsibility{}, invalidResponsibility(s, err.Error())
		}
	}
	return r, nil
}

func invalidResponsibility(s, reason string) error {
	return errors.Newf(errors.ErrorTypeInvalidAttribute, "invalid responsibility %q: %s", s, reason).
		WithDetail("attribute", AttrResponsibilities)
}

func parseRespDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") {
		return nil, nil
	}
	var lastErr error
	for _, layout := range respDateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return &t, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func formatRespDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(core.DateLayout)
}

// String renders the assignment string form
func (r Responsibility) String() string {
	return strings.Join([]string{
		r.Name, r.Application, r.SecurityGroup, formatRespDate(r.Start), formatRespDate(r.End),
	}, respSeparator)
}

// Key identifies the assignment regardless of its dates
func (r Responsibility) Key() string {
	return strings.ToUpper(r.Name + respSeparator + r.Application + respSeparator + r.SecurityGroup)
}

// SameDates reports whether r and o have the same start and end days
func (r Responsibility) SameDates(o Responsibility) bool {
	return formatRespDate(r.Start) == formatRespDate(o.Start) && formatRespDate(r.End) == formatRespDate(o.End)
}

// assignment is a current responsibility assignment with the keys
// fnd_user_pkg needs to change it
type assignment struct {
	Responsibility
	appShortName string
	respKey      string
	groupKey     string
}

func (a assignment) keyString() string {
	return a.respKey + respSeparator + a.appShortName + respSeparator + a.groupKey
}

// respDiff is the set of calls that turns current into desired
type respDiff struct {
	add    []Responsibility // not assigned yet
	change []assignment     // assigned with other dates; Responsibility holds the desired dates
	remove []assignment
}

func (d respDiff) empty() bool {
	return len(d.add) == 0 && len(d.change) == 0 && len(d.remove) == 0
}

func diffResponsibilities(current []assignment, desired []Responsibility) respDiff {
	var d respDiff

	want := make(map[string]Responsibility, len(desired))
	order := make([]string, 0, len(desired))
	for _, r := range desired {
		if _, dup := want[r.Key()]; !dup {
			order = append(order, r.Key())
		}
		want[r.Key()] = r
	}

	have := make(map[string]bool, len(current))
	for _, a := range current {
		have[a.Key()] = true
		r, ok := want[a.Key()]
		switch {
		case !ok:
			d.remove = append(d.remove, a)
		case !r.SameDates(a.Responsibility):
			changed := a
			changed.Start, changed.End = r.Start, r.End
			d.change = append(d.change, changed)
		}
	}

	for _, k := range order {
		if !have[k] {
			d.add = append(d.add, want[k])
		}
	}
	return d
}

func parseResponsibilities(values []string) ([]Responsibility, error) {
	out := make([]Responsibility, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		r, err := ParseResponsibility(v)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
