package solaris

import (
	"regexp"
	"strings"

	"github.com/ajitpratap0/idbridge/pkg/errors"
)

// outputClasses maps messages of failed commands to error types; the first
// match wins
var outputClasses = []struct {
	pattern *regexp.Regexp
	typ     errors.ErrorType
}{
	{regexp.MustCompile(`already exists|in use`), errors.ErrorTypeAlreadyExists},
	{regexp.MustCompile(`does not exist|unknown user|User unknown|not found|Unknown|no such key`), errors.ErrorTypeUnknownUid},
	{regexp.MustCompile(`invalid|Invalid|not a valid|bad`), errors.ErrorTypeInvalidAttribute},
	{regexp.MustCompile(`Permission denied|not allowed|Sorry, try again`), errors.ErrorTypePermission},
}

// commandError classifies the output of a command that exited with code
func commandError(op, target, out string, code int) error {
	typ := errors.ErrorTypeInternal
	for _, c := range outputClasses {
		if c.pattern.MatchString(out) {
			typ = c.typ
			break
		}
	}
	msg := firstLine(out)
	if msg == "" {
		msg = "no output"
	}
	return errors.Newf(typ, "%s %s failed: %s", op, target, msg).
		WithDetail("exit_code", code).
		WithDetail("output", out)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
