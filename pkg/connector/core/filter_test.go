package core

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/idbridge/pkg/errors"
)

func sampleAccount() *ConnectorObject {
	return NewConnectorObject(ObjectClassAccount, "jdoe", "jdoe").
		Add("email", "jdoe@example.com").
		Add("uid", "1042").
		Add("groups", "staff", "wheel")
}

func TestCompareFilter_Accept(t *testing.T) {
	obj := sampleAccount()

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"uid equals", Equals(AttrUid, "jdoe"), true},
		{"name starts", StartsWith(AttrName, "jd"), true},
		{"email ends", EndsWith("email", "@example.com"), true},
		{"email contains", Contains("email", "doe@"), true},
		{"multi valued equals", Equals("groups", "wheel"), true},
		{"numeric greater", GreaterThan("uid", 999), true},
		{"numeric not less", LessThan("uid", "200"), false},
		{"missing attribute", Equals("shell", "/bin/sh"), false},
		{"case sensitive", StartsWith(AttrName, "JD"), false},
		{"and", And(StartsWith(AttrName, "j"), Equals("groups", "staff")), true},
		{"or", Or(Equals(AttrName, "x"), Equals(AttrName, "jdoe")), true},
		{"not", Not(Equals("groups", "staff")), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Accept(obj))
		})
	}
	assert.True(t, Match(nil, obj))
}

func TestParseFilter(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{`__NAME__ eq "jdoe"`, `__NAME__ eq "jdoe"`},
		{`a sw x and b ew y or c co z`, `((a sw "x" and b ew "y") or c co "z")`},
		{`a eq 1 and (b eq 2 or c eq 3)`, `(a eq "1" and (b eq "2" or c eq "3"))`},
		{`not a eq "q \"x\""`, `not a eq "q \"x\""`},
		{`NOT a GT 3`, `not a gt "3"`},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			f, err := ParseFilter(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, f.String())
		})
	}

	f, err := ParseFilter("  ")
	require.NoError(t, err)
	assert.Nil(t, f)
}

func TestParseFilter_Errors(t *testing.T) {
	tests := []struct {
		expr    string
		wantErr string
	}{
		{`a xx b`, "unknown filter operator"},
		{`a eq`, "unexpected end of filter"},
		{`a eq "open`, "unterminated string"},
		{`(a eq b`, "missing )"},
		{`a eq b c`, `unexpected "c"`},
		{`"a" eq b`, "expected attribute name"},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			_, err := ParseFilter(tt.expr)
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func sqlTranslator() FilterTranslator[string] {
	return FilterTranslator[string]{
		Compare: func(f *CompareFilter, not bool) (string, bool) {
			if f.Name != AttrName {
				return "", false
			}
			op := "="
			if not {
				op = "<>"
			}
			return fmt.Sprintf("User %s '%s'", op, f.StringValue()), f.Op == OpEquals
		},
		And: func(l, r string) (string, bool) { return "(" + l + " AND " + r + ")", true },
		Or:  func(l, r string) (string, bool) { return "(" + l + " OR " + r + ")", true },
	}
}

func TestFilterTranslator(t *testing.T) {
	tr := sqlTranslator()

	got, ok := tr.Translate(Or(Equals(AttrName, "a"), Equals(AttrName, "b")))
	require.True(t, ok)
	assert.Equal(t, "(User = 'a' OR User = 'b')", got)

	got, ok = tr.Translate(Not(And(Equals(AttrName, "a"), Equals(AttrName, "b"))))
	require.True(t, ok)
	assert.Equal(t, "(User <> 'a' OR User <> 'b')", got)

	_, ok = tr.Translate(And(Equals(AttrName, "a"), Equals("email", "b")))
	assert.False(t, ok)

	_, ok = tr.Translate(StartsWith(AttrName, "a"))
	assert.False(t, ok)
}

func TestFilter_StringRoundTrip(t *testing.T) {
	f := And(Equals(AttrName, "jdoe"), Not(Contains("email", "test")))
	parsed, err := ParseFilter(strings.TrimSuffix(strings.TrimPrefix(f.String(), "("), ")"))
	require.NoError(t, err)
	assert.Equal(t, f.String(), parsed.String())
}
