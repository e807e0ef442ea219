package solaris

import (
	"strings"

	"github.com/ajitpratap0/idbridge/pkg/config"
	"github.com/ajitpratap0/idbridge/pkg/connector/core"
	"github.com/ajitpratap0/idbridge/pkg/errors"
)

// repository edits one user database: the local files or NIS maps
type repository interface {
	// kind is the passwd -r repository name
	kind() string

	// listAccounts returns every account, or only name when name is set
	listAccounts(s *Session, name string) ([]account, error)
	// createAccount reports whether the account entry was written, so a
	// failure in a later step can be rolled back
	createAccount(s *Session, name string, ch *accountChange) (bool, error)
	updateAccount(s *Session, name string, ch *accountChange) error
	deleteAccount(s *Session, a account) error

	listGroups(s *Session) ([]group, error)
	createGroup(s *Session, name string, g *groupChange) error
	updateGroup(s *Session, name string, g *groupChange) error
	deleteGroup(s *Session, name string) error
}

func newRepository(cfg *config.SolarisConfig) repository {
	if cfg.IsNIS() {
		return &nisRepository{cfg: cfg}
	}
	return &filesRepository{cfg: cfg}
}

// run executes a privileged command that must succeed
func run(s *Session, op, target, cmd string) (string, error) {
	return check(s, op, target, s.privileged(cmd))
}

// read executes an unprivileged command that must succeed
func read(s *Session, op, target, cmd string) (string, error) {
	return check(s, op, target, cmd)
}

func check(s *Session, op, target, cmd string) (string, error) {
	out, code, err := s.Run(cmd)
	if err != nil {
		return "", err
	}
	if code != 0 {
		return out, commandError(op, target, out, code)
	}
	return out, nil
}

// setPassword runs the passwd exchange for name
func setPassword(s *Session, repo, op, name string, pw core.GuardedString) error {
	out, code, err := s.Passwd(s.privileged(passwdCommand(repo, name)), pw.Reveal())
	if err != nil {
		return err
	}
	if code != 0 {
		return commandError(op, name, out, code)
	}
	return nil
}

// entryExists reports whether a colon separated file has an entry for name
func entryExists(s *Session, op, file, name string) (bool, error) {
	cmd := s.privileged("grep " + shellQuote("^"+sedName(name)+":") + " " + file)
	out, code, err := s.Run(cmd)
	switch {
	case err != nil:
		return false, err
	case code == 0:
		return true, nil
	case code == 1:
		return false, nil
	}
	return false, commandError(op, file, out, code)
}

// requireFree fails with AlreadyExists when file has an entry for name
func requireFree(s *Session, op, file, kind, name string) error {
	exists, err := entryExists(s, op, file, name)
	if err != nil {
		return err
	}
	if exists {
		return errors.Newf(errors.ErrorTypeAlreadyExists, "%s %s already exists", kind, name)
	}
	return nil
}

// unknownAsEmpty turns a failed single-entry lookup into an empty result
func unknownAsEmpty(err error) error {
	if errors.IsType(err, errors.ErrorTypeUnknownUid) {
		return nil
	}
	return err
}

func withDefault(v *string, def string) *string {
	if v != nil || strings.TrimSpace(def) == "" {
		return v
	}
	return &def
}
