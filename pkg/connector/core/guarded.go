package core

import "crypto/subtle"

const redacted = "********"

// GuardedString holds a secret that must never be printed or logged.
// String, GoString and MarshalJSON all redact the value.
type GuardedString struct {
	secret []byte
}

// NewGuardedString wraps a clear text secret
func NewGuardedString(clear string) GuardedString {
	return GuardedString{secret: []byte(clear)}
}

// Reveal returns the clear text. Callers must not log the result.
func (g GuardedString) Reveal() string {
	return string(g.secret)
}

// IsEmpty reports whether the secret is empty
func (g GuardedString) IsEmpty() bool {
	return len(g.secret) == 0
}

// Equals compares two secrets in constant time
func (g GuardedString) Equals(other GuardedString) bool {
	return subtle.ConstantTimeCompare(g.secret, other.secret) == 1
}

func (g GuardedString) String() string {
	return redacted
}

func (g GuardedString) GoString() string {
	return redacted
}

func (g GuardedString) MarshalJSON() ([]byte, error) {
	return []byte(`"` + redacted + `"`), nil
}
