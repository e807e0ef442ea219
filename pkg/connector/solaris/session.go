package solaris

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/idbridge/pkg/config"
	"github.com/ajitpratap0/idbridge/pkg/errors"
)

const (
	errorCodeMarker = "ERRORCODE="
	errorCodeEcho   = `echo "` + errorCodeMarker + `$?"`

	// passwd prompts twice; a third prompt means the password was rejected
	maxPasswordPrompts = 2
)

var (
	errorCodePattern      = regexp.MustCompile(errorCodeMarker + `(\d+)`)
	passwordPromptPattern = regexp.MustCompile(`(?i)password[^:\n]*:\s*$`)
	suFailurePattern      = `(Sorry|incorrect|failure)`
	sudoFailurePattern    = `(Sorry, try again|not allowed|may not run sudo)`

	// passwdExchangePattern matches either the next passwd prompt or the
	// exit code of the finished command
	passwdExchangePattern = regexp.MustCompile(`(?i)(new password:)\s*$|` + errorCodeMarker + `(\d+)`)
	passwdPromptLine      = regexp.MustCompile(`(?i)new password:`)
)

// Session is a logged-in shell on the managed host. A Session is not safe
// for concurrent use; the connector pools them.
type Session struct {
	exp     Expecter
	prompt  *regexp.Regexp
	timeout time.Duration
	sudo    bool
	su      bool
	broken  bool
	logger  *zap.Logger
}

func promptPattern(prompt string) string {
	return regexp.QuoteMeta(strings.TrimSpace(prompt)) + `\s*$`
}

// login waits for the shell prompt and escalates privileges with su or
// sudo as configured
func login(exp Expecter, cfg *config.SolarisConfig, timeout time.Duration, logger *zap.Logger) (*Session, error) {
	s := &Session{
		exp:     exp,
		prompt:  regexp.MustCompile(promptPattern(cfg.LoginShellPrompt)),
		timeout: timeout,
		logger:  logger,
	}
	loginTimeout := cfg.Timeouts.Connection
	if loginTimeout <= 0 {
		loginTimeout = timeout
	}

	if _, _, err := exp.Expect(s.prompt, loginTimeout); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "no shell prompt after login").
			WithDetail("prompt", cfg.LoginShellPrompt)
	}

	if cfg.RootUser != "" {
		if err := s.switchUser(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.SudoAuthorization {
		if err := s.validateSudo(cfg.Password); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Session) switchUser(cfg *config.SolarisConfig) error {
	if err := s.exp.Send("su " + cfg.RootUser + "\n"); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to send su")
	}
	if _, _, err := s.exp.Expect(passwordPromptPattern, s.timeout); err != nil {
		return errors.Wrap(err, errors.ErrorTypeAuthentication, "su did not ask for a password")
	}
	if err := s.exp.Send(cfg.RootPassword + "\n"); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to send su password")
	}

	rootPrompt := promptPattern(cfg.RootShellPrompt)
	_, m, err := s.exp.Expect(regexp.MustCompile(suFailurePattern+`|`+rootPrompt), s.timeout)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeAuthentication, "no root prompt after su")
	}
	if len(m) > 1 && m[1] != "" {
		return errors.Newf(errors.ErrorTypeAuthentication, "su to %s failed", cfg.RootUser)
	}
	s.prompt = regexp.MustCompile(rootPrompt)
	s.su = true
	return nil
}

// validateSudo primes the sudo timestamp so later privileged commands do
// not prompt
func (s *Session) validateSudo(password string) error {
	if err := s.exp.Send("sudo -v\n"); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to send sudo -v")
	}
	re := regexp.MustCompile(sudoFailurePattern + `|(?i:(password[^:\n]*:))\s*$|` + s.prompt.String())

	answered := false
	for {
		_, m, err := s.exp.Expect(re, s.timeout)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypePermission, "sudo -v did not finish")
		}
		switch {
		case m[1] != "":
			_ = s.exp.Send("\x03")
			return errors.New(errors.ErrorTypePermission, "sudo authorization failed")
		case m[2] != "":
			if answered {
				_ = s.exp.Send("\x03")
				return errors.New(errors.ErrorTypePermission, "sudo rejected the password")
			}
			answered = true
			if err := s.exp.Send(password + "\n"); err != nil {
				return errors.Wrap(err, errors.ErrorTypeConnection, "failed to send sudo password")
			}
		default:
			s.sudo = true
			return nil
		}
	}
}

// privileged prefixes cmd with sudo when sudo authorization is on.
// Compound commands run under sudo sh -c so every part is privileged.
func (s *Session) privileged(cmd string) string {
	if !s.sudo {
		return cmd
	}
	if strings.ContainsAny(cmd, "|&;<>$`") {
		return "sudo sh -c " + shellQuote(cmd)
	}
	return "sudo " + cmd
}

// Run executes cmd and returns its combined output and exit code
func (s *Session) Run(cmd string) (string, int, error) {
	if err := s.send(cmd); err != nil {
		return "", -1, err
	}
	out, m, err := s.exp.Expect(errorCodePattern, s.timeout)
	if err != nil {
		s.broken = true
		return "", -1, errors.Wrap(err, errors.ErrorTypeTimeout, "command did not finish").
			WithDetail("command", firstWord(cmd))
	}
	return s.finish(cmd, out, m[1])
}

// Passwd runs an interactive passwd command, answering both password
// prompts with password
func (s *Session) Passwd(cmd, password string) (string, int, error) {
	if err := s.send(cmd); err != nil {
		return "", -1, err
	}

	var all strings.Builder
	prompts := 0
	for {
		out, m, err := s.exp.Expect(passwdExchangePattern, s.timeout)
		if err != nil {
			s.broken = true
			return "", -1, errors.Wrap(err, errors.ErrorTypeTimeout, "passwd did not finish")
		}
		all.WriteString(out)
		if m[2] != "" {
			return s.finish(cmd, all.String(), m[2])
		}

		prompts++
		answer := password + "\n"
		if prompts > maxPasswordPrompts {
			answer = "\x03"
		}
		if err := s.exp.Send(answer); err != nil {
			s.broken = true
			return "", -1, errors.Wrap(err, errors.ErrorTypeConnection, "failed to answer passwd prompt")
		}
		if prompts > maxPasswordPrompts {
			return s.passwdRejected(cmd, all.String())
		}
	}
}

// passwdRejected waits for the shell after passwd was interrupted. ^C may
// abort the whole command list, so the exit code line is optional.
func (s *Session) passwdRejected(cmd, out string) (string, int, error) {
	done := regexp.MustCompile(errorCodeMarker + `\d+|` + s.prompt.String())
	rest, m, err := s.exp.Expect(done, s.timeout)
	if err != nil {
		s.broken = true
		return "", -1, errors.Wrap(err, errors.ErrorTypeTimeout, "no prompt after interrupting passwd")
	}
	if strings.HasPrefix(m[0], errorCodeMarker) {
		if _, _, err := s.exp.Expect(s.prompt, s.timeout); err != nil {
			s.broken = true
			return "", -1, errors.Wrap(err, errors.ErrorTypeTimeout, "no prompt after interrupting passwd")
		}
	}

	out = passwdMessages(out + strings.TrimSuffix(rest, m[0]))
	msg := "password rejected"
	if line := firstLine(out); line != "" {
		msg += ": " + line
	}
	return out, -1, errors.New(errors.ErrorTypeInvalidAttribute, msg).
		WithDetail("command", firstWord(cmd))
}

// passwdMessages keeps what passwd printed besides its prompts
func passwdMessages(out string) string {
	var kept []string
	for _, l := range strings.Split(cleanOutput(out), "\n") {
		l = strings.TrimSpace(l)
		if l == "" || l == "^C" || passwdPromptLine.MatchString(l) {
			continue
		}
		kept = append(kept, l)
	}
	return strings.Join(kept, "\n")
}

func (s *Session) send(cmd string) error {
	s.logger.Debug("running command", zap.String("command", cmd))
	if err := s.exp.Send("(" + cmd + ") 2>&1; " + errorCodeEcho + "\n"); err != nil {
		s.broken = true
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to send command")
	}
	return nil
}

func (s *Session) finish(cmd, out, code string) (string, int, error) {
	if _, _, err := s.exp.Expect(s.prompt, s.timeout); err != nil {
		s.broken = true
		return "", -1, errors.Wrap(err, errors.ErrorTypeTimeout, "no prompt after command")
	}
	n, _ := strconv.Atoi(code)
	out = cleanOutput(out)
	if n != 0 {
		s.logger.Debug("command failed", zap.String("command", firstWord(cmd)), zap.Int("exit_code", n))
	}
	return out, n, nil
}

// Close leaves su and sudo and ends the shell
func (s *Session) Close() error {
	if !s.broken {
		if s.sudo {
			_, _, _ = s.Run("sudo -k")
		}
		if s.su {
			_ = s.exp.Send("exit\n")
		}
		_ = s.exp.Send("exit\n")
	}
	return s.exp.Close()
}

// cleanOutput drops the echoed command line and the exit code marker and
// normalizes line endings
func cleanOutput(out string) string {
	out = strings.ReplaceAll(out, "\r\n", "\n")
	out = strings.ReplaceAll(out, "\r", "")
	if i := strings.Index(out, errorCodeEcho); i >= 0 {
		out = out[i+len(errorCodeEcho):]
		if j := strings.IndexByte(out, '\n'); j >= 0 {
			out = out[j+1:]
		} else {
			out = ""
		}
	}
	if i := strings.LastIndex(out, errorCodeMarker); i >= 0 {
		out = out[:i]
	}
	return strings.TrimSpace(out)
}

func firstWord(cmd string) string {
	if f := strings.Fields(cmd); len(f) > 0 {
		if f[0] == "sudo" && len(f) > 1 {
			return f[1]
		}
		return f[0]
	}
	return ""
}
