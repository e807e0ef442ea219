package core

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ajitpratap0/idbridge/pkg/errors"
)

// ObjectClass names a kind of object a connector manages
type ObjectClass string

const (
	ObjectClassAccount ObjectClass = "__ACCOUNT__"
	ObjectClassGroup   ObjectClass = "__GROUP__"
)

// Uid identifies an object within its object class
type Uid string

// Operational attribute names
const (
	AttrName            = "__NAME__"
	AttrUid             = "__UID__"
	AttrPassword        = "__PASSWORD__"
	AttrCurrentPassword = "__CURRENT_PASSWORD__"
	AttrEnable          = "__ENABLE__"
	AttrEnableDate      = "__ENABLE_DATE__"
	AttrDisableDate     = "__DISABLE_DATE__"
	AttrLockOut         = "__LOCK_OUT__"
	AttrPasswordExpired = "__PASSWORD_EXPIRED__"
)

// DateLayout is the layout date-only attribute values use
const DateLayout = "2006-01-02"

// Attribute is a named, possibly multi-valued value
type Attribute struct {
	Name   string        `json:"name"`
	Values []interface{} `json:"values"`
}

// NewAttribute creates an attribute
func NewAttribute(name string, values ...interface{}) Attribute {
	return Attribute{Name: name, Values: values}
}

// NameAttribute creates the __NAME__ attribute
func NameAttribute(name string) Attribute {
	return NewAttribute(AttrName, name)
}

// PasswordAttribute creates the __PASSWORD__ attribute
func PasswordAttribute(password string) Attribute {
	return NewAttribute(AttrPassword, NewGuardedString(password))
}

// EnableAttribute creates the __ENABLE__ attribute
func EnableAttribute(enabled bool) Attribute {
	return NewAttribute(AttrEnable, enabled)
}

// Is reports whether the attribute has the given name, ignoring case
func (a Attribute) Is(name string) bool {
	return equalFold(a.Name, name)
}

// IsEmpty reports whether the attribute carries no meaningful value
func (a Attribute) IsEmpty() bool {
	for _, v := range a.Values {
		switch tv := v.(type) {
		case nil:
		case string:
			if strings.TrimSpace(tv) != "" {
				return false
			}
		case GuardedString:
			if !tv.IsEmpty() {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// SingleValue returns the only value, nil for no values, or an error when
// the attribute is multi-valued
func (a Attribute) SingleValue() (interface{}, error) {
	switch len(a.Values) {
	case 0:
		return nil, nil
	case 1:
		return a.Values[0], nil
	default:
		return nil, errors.Newf(errors.ErrorTypeInvalidAttribute, "attribute %s must be single valued", a.Name)
	}
}

// StringValue returns the single value as a string
func (a Attribute) StringValue() (string, error) {
	v, err := a.SingleValue()
	if err != nil {
		return "", err
	}
	return toString(v), nil
}

// StringValues returns all non-nil values as strings
func (a Attribute) StringValues() []string {
	out := make([]string, 0, len(a.Values))
	for _, v := range a.Values {
		if v == nil {
			continue
		}
		out = append(out, toString(v))
	}
	return out
}

// BoolValue returns the single value as a bool
func (a Attribute) BoolValue() (bool, error) {
	v, err := a.SingleValue()
	if err != nil {
		return false, err
	}
	switch tv := v.(type) {
	case bool:
		return tv, nil
	case string:
		b, perr := strconv.ParseBool(tv)
		if perr != nil {
			return false, errors.Newf(errors.ErrorTypeInvalidAttribute, "attribute %s: %q is not a boolean", a.Name, tv)
		}
		return b, nil
	default:
		return false, errors.Newf(errors.ErrorTypeInvalidAttribute, "attribute %s: %T is not a boolean", a.Name, v)
	}
}

// IntValue returns the single value as an int64
func (a Attribute) IntValue() (int64, error) {
	v, err := a.SingleValue()
	if err != nil {
		return 0, err
	}
	switch tv := v.(type) {
	case int:
		return int64(tv), nil
	case int32:
		return int64(tv), nil
	case int64:
		return tv, nil
	case float64:
		return int64(tv), nil
	case string:
		n, perr := strconv.ParseInt(strings.TrimSpace(tv), 10, 64)
		if perr != nil {
			return 0, errors.Newf(errors.ErrorTypeInvalidAttribute, "attribute %s: %q is not an integer", a.Name, tv)
		}
		return n, nil
	default:
		return 0, errors.Newf(errors.ErrorTypeInvalidAttribute, "attribute %s: %T is not an integer", a.Name, v)
	}
}

// TimeValue returns the single value as a time. Strings are accepted in
// RFC 3339 or date-only form.
func (a Attribute) TimeValue() (time.Time, error) {
	v, err := a.SingleValue()
	if err != nil {
		return time.Time{}, err
	}
	switch tv := v.(type) {
	case time.Time:
		return tv, nil
	case string:
		if t, perr := time.Parse(time.RFC3339, tv); perr == nil {
			return t, nil
		}
		if t, perr := time.Parse(DateLayout, tv); perr == nil {
			return t, nil
		}
		return time.Time{}, errors.Newf(errors.ErrorTypeInvalidAttribute, "attribute %s: %q is not a date", a.Name, tv)
	default:
		return time.Time{}, errors.Newf(errors.ErrorTypeInvalidAttribute, "attribute %s: %T is not a date", a.Name, v)
	}
}

// GuardedValue returns the single value as a GuardedString; plain strings are wrapped
func (a Attribute) GuardedValue() (GuardedString, error) {
	v, err := a.SingleValue()
	if err != nil {
		return GuardedString{}, err
	}
	switch tv := v.(type) {
	case GuardedString:
		return tv, nil
	case string:
		return NewGuardedString(tv), nil
	case nil:
		return GuardedString{}, nil
	default:
		return GuardedString{}, errors.Newf(errors.ErrorTypeInvalidAttribute, "attribute %s: %T is not a password", a.Name, v)
	}
}

func toString(v interface{}) string {
	switch tv := v.(type) {
	case nil:
		return ""
	case string:
		return tv
	case time.Time:
		return tv.Format(time.RFC3339)
	case GuardedString:
		return tv.Reveal()
	default:
		return fmt.Sprint(tv)
	}
}

// AttributeSet holds attributes keyed case-insensitively by name
type AttributeSet map[string]Attribute

// NewAttributeSet builds a set and rejects duplicate names
func NewAttributeSet(attrs ...Attribute) (AttributeSet, error) {
	s := make(AttributeSet, len(attrs))
	for _, a := range attrs {
		key := strings.ToUpper(a.Name)
		if _, dup := s[key]; dup {
			return nil, errors.Newf(errors.ErrorTypeInvalidAttribute, "attribute %s given more than once", a.Name)
		}
		s[key] = a
	}
	return s, nil
}

// MustAttributeSet is NewAttributeSet for literal sets known to be valid
func MustAttributeSet(attrs ...Attribute) AttributeSet {
	s, err := NewAttributeSet(attrs...)
	if err != nil {
		panic(err)
	}
	return s
}

// Find looks an attribute up by name
func (s AttributeSet) Find(name string) (Attribute, bool) {
	a, ok := s[strings.ToUpper(name)]
	return a, ok
}

// Has reports whether the set contains name
func (s AttributeSet) Has(name string) bool {
	_, ok := s.Find(name)
	return ok
}

// Without returns a copy of the set minus the given names
func (s AttributeSet) Without(names ...string) AttributeSet {
	out := make(AttributeSet, len(s))
	for k, v := range s {
		out[k] = v
	}
	for _, n := range names {
		delete(out, strings.ToUpper(n))
	}
	return out
}

// Names returns the attribute names in sorted order
func (s AttributeSet) Names() []string {
	names := make([]string, 0, len(s))
	for _, a := range s {
		names = append(names, a.Name)
	}
	sort.Strings(names)
	return names
}

// Attributes returns the attributes sorted by name
func (s AttributeSet) Attributes() []Attribute {
	out := make([]Attribute, 0, len(s))
	for _, a := range s {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// RequireString returns the value of a required, non-blank, single valued attribute
func (s AttributeSet) RequireString(name string) (string, error) {
	a, ok := s.Find(name)
	if !ok || a.IsEmpty() {
		return "", errors.Newf(errors.ErrorTypeInvalidAttribute, "attribute %s is required", name)
	}
	v, err := a.StringValue()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(v), nil
}

// OptionalString returns the value of an optional single valued attribute
func (s AttributeSet) OptionalString(name string) (string, bool, error) {
	a, ok := s.Find(name)
	if !ok {
		return "", false, nil
	}
	v, err := a.StringValue()
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// RequirePassword returns a required, non-empty password attribute
func (s AttributeSet) RequirePassword(name string) (GuardedString, error) {
	a, ok := s.Find(name)
	if !ok || a.IsEmpty() {
		return GuardedString{}, errors.Newf(errors.ErrorTypeInvalidAttribute, "attribute %s is required", name)
	}
	return a.GuardedValue()
}

// ConnectorObject is an object read from a backend
type ConnectorObject struct {
	ObjectClass ObjectClass `json:"object_class"`
	Uid         Uid         `json:"uid"`
	Name        string      `json:"name"`
	Attributes  []Attribute `json:"attributes"`
}

// NewConnectorObject creates an object with its identity set
func NewConnectorObject(oc ObjectClass, uid Uid, name string) *ConnectorObject {
	return &ConnectorObject{ObjectClass: oc, Uid: uid, Name: name}
}

// Add appends an attribute, skipping attributes without values
func (o *ConnectorObject) Add(name string, values ...interface{}) *ConnectorObject {
	kept := values[:0:0]
	for _, v := range values {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		kept = append(kept, v)
	}
	if len(kept) == 0 {
		return o
	}
	o.Attributes = append(o.Attributes, NewAttribute(name, kept...))
	return o
}

// Attribute returns the named attribute; __UID__ and __NAME__ are synthesized
func (o *ConnectorObject) Attribute(name string) (Attribute, bool) {
	switch {
	case equalFold(name, AttrUid):
		return NewAttribute(AttrUid, string(o.Uid)), true
	case equalFold(name, AttrName):
		return NewAttribute(AttrName, o.Name), true
	}
	for _, a := range o.Attributes {
		if a.Is(name) {
			return a, true
		}
	}
	return Attribute{}, false
}

// Keep drops every attribute not in names. Uid and name are always kept.
func (o *ConnectorObject) Keep(names []string) *ConnectorObject {
	if len(names) == 0 {
		return o
	}
	kept := o.Attributes[:0]
	for _, a := range o.Attributes {
		for _, n := range names {
			if a.Is(n) {
				kept = append(kept, a)
				break
			}
		}
	}
	o.Attributes = kept
	return o
}

func equalFold(a, b string) bool {
	return strings.EqualFold(a, b)
}
