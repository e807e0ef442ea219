package solaris

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ajitpratap0/idbridge/pkg/errors"
)

const commandSuffix = ") 2>&1; " + errorCodeEcho + "\n"

// step is one scripted command and the shell's answer to it
type step struct {
	cmd    string
	out    string
	code   int
	passwd bool
	reject bool
}

func ok(cmd string) step               { return step{cmd: cmd} }
func reply(cmd, out string) step       { return step{cmd: cmd, out: out} }
func fail(cmd, out string, n int) step { return step{cmd: cmd, out: out, code: n} }
func passwd(cmd string) step           { return step{cmd: cmd, passwd: true} }

// rejectPasswd re-prompts after every answer, printing out, until it is
// interrupted; ^C aborts the whole command list
func rejectPasswd(cmd, out string) step { return step{cmd: cmd, out: out, reject: true} }

// fakeShell plays a terminal: input is echoed, scripted commands print
// their output and exit code, then the prompt
type fakeShell struct {
	t *testing.T

	mu           sync.Mutex
	buf          string
	prompt       string
	steps        []step
	next         func(in string)
	rootPassword string
	answers      []string
	closed       bool
}

func newFakeShell(t *testing.T, steps ...step) *fakeShell {
	return &fakeShell{
		t:            t,
		buf:          "Last login: Mon Oct 12 09:14:02 2026 from 10.0.0.5\r\n$ ",
		prompt:       "$ ",
		steps:        steps,
		rootPassword: "root-pw",
	}
}

func (f *fakeShell) write(s string) {
	f.buf += s
}

func (f *fakeShell) finish(out string, code int) {
	if out != "" {
		f.write(strings.ReplaceAll(out, "\n", "\r\n") + "\r\n")
	}
	f.write(fmt.Sprintf("%s%d\r\n%s", errorCodeMarker, code, f.prompt))
}

func (f *fakeShell) answer(in string) {
	f.answers = append(f.answers, strings.TrimSuffix(in, "\n"))
}

func (f *fakeShell) Send(in string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return fmt.Errorf("session closed")
	}
	if next := f.next; next != nil {
		f.next = nil
		next(in)
		return nil
	}

	switch {
	case in == "exit\n":
		return nil
	case in == "sudo -v\n":
		f.write("sudo -v\r\n[sudo] password for admin: ")
		f.next = func(in string) {
			f.answer(in)
			f.write("\r\n" + f.prompt)
		}
	case strings.HasPrefix(in, "su "):
		f.write(strings.TrimSuffix(in, "\n") + "\r\nPassword: ")
		f.next = func(in string) {
			if strings.TrimSuffix(in, "\n") == f.rootPassword {
				f.prompt = "# "
				f.write("\r\n# ")
				return
			}
			f.write("\r\nsu: Sorry\r\n" + f.prompt)
		}
	case strings.HasPrefix(in, "(") && strings.HasSuffix(in, commandSuffix):
		cmd := strings.TrimSuffix(strings.TrimPrefix(in, "("), commandSuffix)
		f.write(strings.TrimSuffix(in, "\n") + "\r\n")
		if cmd == "sudo -k" {
			f.finish("", 0)
			return nil
		}
		if len(f.steps) == 0 {
			f.t.Errorf("unexpected command %q", cmd)
			f.finish("sh: unexpected", 127)
			return nil
		}
		st := f.steps[0]
		f.steps = f.steps[1:]
		assert.Equal(f.t, st.cmd, cmd)
		if st.reject {
			var prompt func(in string)
			prompt = func(in string) {
				if in == "\x03" {
					f.write("^C\r\n" + f.prompt)
					return
				}
				f.answer(in)
				f.write("\r\n" + st.out + "\r\nNew Password: ")
				f.next = prompt
			}
			f.write("New Password: ")
			f.next = prompt
			return nil
		}
		if !st.passwd {
			f.finish(st.out, st.code)
			return nil
		}
		f.write("New Password: ")
		f.next = func(in string) {
			f.answer(in)
			f.write("\r\nRe-enter new Password: ")
			f.next = func(in string) {
				f.answer(in)
				f.write("\r\n")
				f.finish(st.out, st.code)
			}
		}
	default:
		f.t.Errorf("unexpected input %q", in)
	}
	return nil
}

// Expect matches against everything written so far; output after the
// match stays buffered
func (f *fakeShell) Expect(re *regexp.Regexp, _ time.Duration) (string, []string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	loc := re.FindStringIndex(f.buf)
	if loc == nil {
		return f.buf, nil, fmt.Errorf("expect %q timed out, buffer %q", re.String(), f.buf)
	}
	m := re.FindStringSubmatch(f.buf)
	out := f.buf[:loc[1]]
	f.buf = f.buf[loc[1]:]
	return out, m, nil
}

func (f *fakeShell) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeShell) remaining() []step {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.steps
}

func (f *fakeShell) passwords() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.answers...)
}

// fakeDialer hands out the scripted shell for the connector login and
// checks passwords of other users against users
type fakeDialer struct {
	mu    sync.Mutex
	shell *fakeShell
	users map[string]string
	dials []Credentials
}

func (d *fakeDialer) Dial(_ context.Context, creds Credentials) (Expecter, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials = append(d.dials, creds)
	if creds.User == "admin" {
		return d.shell, nil
	}
	if pw, ok := d.users[creds.User]; ok && pw == creds.Password {
		return newFakeShell(d.shell.t), nil
	}
	return nil, errors.New(errors.ErrorTypeAuthentication, "ssh: unable to authenticate")
}

func sudoSh(cmd string) string {
	return "sudo sh -c " + shellQuote(cmd)
}
