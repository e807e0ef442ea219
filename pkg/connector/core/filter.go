package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Filter selects connector objects
type Filter interface {
	Accept(obj *ConnectorObject) bool
	String() string
}

// FilterOp is a comparison operator
type FilterOp string

const (
	OpEquals      FilterOp = "eq"
	OpStartsWith  FilterOp = "sw"
	OpEndsWith    FilterOp = "ew"
	OpContains    FilterOp = "co"
	OpGreaterThan FilterOp = "gt"
	OpLessThan    FilterOp = "lt"
)

// CompareFilter compares one attribute against a value
type CompareFilter struct {
	Op    FilterOp
	Name  string
	Value interface{}
}

// Equals matches objects where any value of name equals value
func Equals(name string, value interface{}) *CompareFilter {
	return &CompareFilter{Op: OpEquals, Name: name, Value: value}
}

// StartsWith matches string values with the given prefix
func StartsWith(name, prefix string) *CompareFilter {
	return &CompareFilter{Op: OpStartsWith, Name: name, Value: prefix}
}

// EndsWith matches string values with the given suffix
func EndsWith(name, suffix string) *CompareFilter {
	return &CompareFilter{Op: OpEndsWith, Name: name, Value: suffix}
}

// Contains matches string values containing sub
func Contains(name, sub string) *CompareFilter {
	return &CompareFilter{Op: OpContains, Name: name, Value: sub}
}

// GreaterThan matches values ordered after value
func GreaterThan(name string, value interface{}) *CompareFilter {
	return &CompareFilter{Op: OpGreaterThan, Name: name, Value: value}
}

// LessThan matches values ordered before value
func LessThan(name string, value interface{}) *CompareFilter {
	return &CompareFilter{Op: OpLessThan, Name: name, Value: value}
}

// StringValue returns the compared value as a string
func (f *CompareFilter) StringValue() string {
	return toString(f.Value)
}

func (f *CompareFilter) Accept(obj *ConnectorObject) bool {
	a, ok := obj.Attribute(f.Name)
	if !ok {
		return false
	}
	want := toString(f.Value)
	for _, v := range a.Values {
		got := toString(v)
		switch f.Op {
		case OpEquals:
			if got == want {
				return true
			}
		case OpStartsWith:
			if strings.HasPrefix(got, want) {
				return true
			}
		case OpEndsWith:
			if strings.HasSuffix(got, want) {
				return true
			}
		case OpContains:
			if strings.Contains(got, want) {
				return true
			}
		case OpGreaterThan:
			if compareValues(v, f.Value) > 0 {
				return true
			}
		case OpLessThan:
			if compareValues(v, f.Value) < 0 {
				return true
			}
		}
	}
	return false
}

func (f *CompareFilter) String() string {
	return fmt.Sprintf("%s %s %q", f.Name, f.Op, toString(f.Value))
}

// compareValues orders numbers numerically, times chronologically and
// everything else lexically
func compareValues(a, b interface{}) int {
	if ta, ok := a.(time.Time); ok {
		if tb, ok := asTime(b); ok {
			return ta.Compare(tb)
		}
	}
	sa, sb := toString(a), toString(b)
	if na, err := strconv.ParseFloat(sa, 64); err == nil {
		if nb, err := strconv.ParseFloat(sb, 64); err == nil {
			switch {
			case na < nb:
				return -1
			case na > nb:
				return 1
			default:
				return 0
			}
		}
	}
	return strings.Compare(sa, sb)
}

func asTime(v interface{}) (time.Time, bool) {
	if t, ok := v.(time.Time); ok {
		return t, true
	}
	t, err := NewAttribute("", v).TimeValue()
	return t, err == nil
}

// AndFilter matches when both sides match
type AndFilter struct {
	Left, Right Filter
}

// And combines filters with a logical and
func And(first Filter, rest ...Filter) Filter {
	f := first
	for _, r := range rest {
		f = &AndFilter{Left: f, Right: r}
	}
	return f
}

func (f *AndFilter) Accept(obj *ConnectorObject) bool {
	return f.Left.Accept(obj) && f.Right.Accept(obj)
}

func (f *AndFilter) String() string {
	return "(" + f.Left.String() + " and " + f.Right.String() + ")"
}

// OrFilter matches when either side matches
type OrFilter struct {
	Left, Right Filter
}

// Or combines filters with a logical or
func Or(first Filter, rest ...Filter) Filter {
	f := first
	for _, r := range rest {
		f = &OrFilter{Left: f, Right: r}
	}
	return f
}

func (f *OrFilter) Accept(obj *ConnectorObject) bool {
	return f.Left.Accept(obj) || f.Right.Accept(obj)
}

func (f *OrFilter) String() string {
	return "(" + f.Left.String() + " or " + f.Right.String() + ")"
}

// NotFilter negates a filter
type NotFilter struct {
	Filter Filter
}

// Not negates f
func Not(f Filter) Filter {
	return &NotFilter{Filter: f}
}

func (f *NotFilter) Accept(obj *ConnectorObject) bool {
	return !f.Filter.Accept(obj)
}

func (f *NotFilter) String() string {
	return "not " + f.Filter.String()
}

// FilterTranslator converts filters into a native query form T. Negation
// is pushed down to the leaves, so Compare receives a not flag. Any of the
// callbacks may report false to signal that part of the tree has no native
// form; the whole filter is then left for in-memory evaluation.
type FilterTranslator[T any] struct {
	Compare func(f *CompareFilter, not bool) (T, bool)
	And     func(left, right T) (T, bool)
	Or      func(left, right T) (T, bool)
}

// Translate returns the native form of f, or false when f must be
// evaluated in memory
func (tr FilterTranslator[T]) Translate(f Filter) (T, bool) {
	return tr.translate(f, false)
}

func (tr FilterTranslator[T]) translate(f Filter, not bool) (T, bool) {
	var zero T
	switch tf := f.(type) {
	case *CompareFilter:
		if tr.Compare == nil {
			return zero, false
		}
		return tr.Compare(tf, not)
	case *NotFilter:
		return tr.translate(tf.Filter, !not)
	case *AndFilter:
		if not {
			return tr.combine(tr.Or, tf.Left, tf.Right, true)
		}
		return tr.combine(tr.And, tf.Left, tf.Right, false)
	case *OrFilter:
		if not {
			return tr.combine(tr.And, tf.Left, tf.Right, true)
		}
		return tr.combine(tr.Or, tf.Left, tf.Right, false)
	}
	return zero, false
}

func (tr FilterTranslator[T]) combine(join func(l, r T) (T, bool), left, right Filter, not bool) (T, bool) {
	var zero T
	if join == nil {
		return zero, false
	}
	l, ok := tr.translate(left, not)
	if !ok {
		return zero, false
	}
	r, ok := tr.translate(right, not)
	if !ok {
		return zero, false
	}
	return join(l, r)
}

// Match reports whether obj passes f; a nil filter matches everything
func Match(f Filter, obj *ConnectorObject) bool {
	return f == nil || f.Accept(obj)
}
