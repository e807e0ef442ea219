package solaris

import (
	"regexp"
	"strings"

	"github.com/ajitpratap0/idbridge/pkg/connector/core"
	"github.com/ajitpratap0/idbridge/pkg/errors"
)

// namePattern is the portable login and group name character set
var namePattern = regexp.MustCompile(`^[A-Za-z0-9_.][A-Za-z0-9_.-]*$`)

// accountChange holds the account attributes of a create or update. Nil
// fields were not supplied.
type accountChange struct {
	newName string

	comment, dir, shell, group, expire *string
	authorization, profile, role       *string
	secondary                          *[]string
	uid, inactive, min, max, warn      *int64

	password       *core.GuardedString
	lock           *bool
	expirePassword bool
}

// groupChange holds the group attributes of a create or update
type groupChange struct {
	newName string
	gid     *int64
	users   *[]string
}

func validateName(attr, name string) error {
	if !namePattern.MatchString(name) {
		return errors.Newf(errors.ErrorTypeInvalidAttribute, "%q is not a valid name", name).
			WithDetail("attribute", attr)
	}
	return nil
}

// validateField rejects values that would corrupt a colon separated
// passwd or group entry
func validateField(attr string, v *string) error {
	if v != nil && strings.ContainsAny(*v, ":\n\\") {
		return errors.Newf(errors.ErrorTypeInvalidAttribute, "attribute %s may not contain ':', '\\' or a newline", attr).
			WithDetail("attribute", attr)
	}
	return nil
}

func optString(attrs core.AttributeSet, name string) (*string, error) {
	v, ok, err := attrs.OptionalString(name)
	if err != nil || !ok {
		return nil, err
	}
	return &v, nil
}

func optInt(attrs core.AttributeSet, name string) (*int64, error) {
	a, ok := attrs.Find(name)
	if !ok || a.IsEmpty() {
		return nil, nil
	}
	n, err := a.IntValue()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInvalidAttribute, "attribute "+name+" must be an integer")
	}
	return &n, nil
}

func optBool(attrs core.AttributeSet, name string) (*bool, error) {
	a, ok := attrs.Find(name)
	if !ok || a.IsEmpty() {
		return nil, nil
	}
	b, err := a.BoolValue()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInvalidAttribute, "attribute "+name+" must be a boolean")
	}
	return &b, nil
}

func optNames(attrs core.AttributeSet, name string) (*[]string, error) {
	a, ok := attrs.Find(name)
	if !ok {
		return nil, nil
	}
	names := []string{}
	for _, v := range a.StringValues() {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if err := validateName(name, v); err != nil {
			return nil, err
		}
		names = append(names, v)
	}
	return &names, nil
}

// parseAccountChange reads every account attribute except __NAME__
func parseAccountChange(attrs core.AttributeSet) (*accountChange, error) {
	ch := &accountChange{}
	var err error

	strs := []struct {
		name string
		dst  **string
	}{
		{AttrComment, &ch.comment},
		{AttrDir, &ch.dir},
		{AttrShell, &ch.shell},
		{AttrGroup, &ch.group},
		{AttrExpire, &ch.expire},
		{AttrAuthorization, &ch.authorization},
		{AttrProfile, &ch.profile},
		{AttrRole, &ch.role},
	}
	for _, s := range strs {
		if *s.dst, err = optString(attrs, s.name); err != nil {
			return nil, err
		}
		if err := validateField(s.name, *s.dst); err != nil {
			return nil, err
		}
	}

	ints := []struct {
		name string
		dst  **int64
	}{
		{AttrUidNumber, &ch.uid},
		{AttrInactive, &ch.inactive},
		{AttrMin, &ch.min},
		{AttrMax, &ch.max},
		{AttrWarn, &ch.warn},
	}
	for _, n := range ints {
		if *n.dst, err = optInt(attrs, n.name); err != nil {
			return nil, err
		}
	}

	if ch.secondary, err = optNames(attrs, AttrSecondaryGroup); err != nil {
		return nil, err
	}
	if ch.lock, err = optBool(attrs, core.AttrLockOut); err != nil {
		return nil, err
	}
	expired, err := optBool(attrs, core.AttrPasswordExpired)
	if err != nil {
		return nil, err
	}
	ch.expirePassword = expired != nil && *expired

	if a, ok := attrs.Find(core.AttrPassword); ok && !a.IsEmpty() {
		pw, err := a.GuardedValue()
		if err != nil {
			return nil, err
		}
		ch.password = &pw
	}
	return ch, nil
}

// parseGroupChange reads every group attribute except __NAME__
func parseGroupChange(attrs core.AttributeSet) (*groupChange, error) {
	g := &groupChange{}
	var err error
	if g.gid, err = optInt(attrs, AttrGid); err != nil {
		return nil, err
	}
	if g.users, err = optNames(attrs, AttrUsers); err != nil {
		return nil, err
	}
	return g, nil
}

// aging reports whether any password aging value was supplied
func (ch *accountChange) aging() bool {
	return ch.min != nil || ch.max != nil || ch.warn != nil
}

// rbac reports whether any RBAC attribute was supplied
func (ch *accountChange) rbac() bool {
	return ch.authorization != nil || ch.profile != nil || ch.role != nil
}
