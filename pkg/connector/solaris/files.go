package solaris

import (
	"path"

	"github.com/ajitpratap0/idbridge/pkg/config"
	"github.com/ajitpratap0/idbridge/pkg/connector/core"
)

// filesRepository manages local accounts with the native user commands
type filesRepository struct {
	cfg *config.SolarisConfig
}

func (r *filesRepository) kind() string { return config.SystemDatabaseFiles }

func (r *filesRepository) listAccounts(s *Session, name string) ([]account, error) {
	cmd := "logins -oxma"
	if name != "" {
		cmd += " -l " + name
	}
	out, err := run(s, core.OpSearch, "accounts", cmd)
	if err != nil {
		if name != "" {
			return nil, unknownAsEmpty(err)
		}
		return nil, err
	}
	return parseLogins(out)
}

func (r *filesRepository) createAccount(s *Session, name string, ch *accountChange) (bool, error) {
	add := *ch
	if add.dir == nil && r.cfg.HomeBaseDirectory != "" {
		dir := path.Join(r.cfg.HomeBaseDirectory, name)
		add.dir = &dir
	}
	add.group = withDefault(add.group, r.cfg.DefaultPrimaryGroup)
	add.shell = withDefault(add.shell, r.cfg.LoginShell)

	if _, err := run(s, core.OpCreate, name, useraddCommand(name, &add, r.cfg.MakeDirectory)); err != nil {
		return false, err
	}
	return true, r.secure(s, core.OpCreate, name, ch)
}

func (r *filesRepository) updateAccount(s *Session, name string, ch *accountChange) error {
	if cmd, ok := usermodCommand(name, ch, r.cfg.MakeDirectory); ok {
		if _, err := run(s, core.OpUpdate, name, cmd); err != nil {
			return err
		}
	}
	if ch.newName != "" {
		name = ch.newName
	}
	return r.secure(s, core.OpUpdate, name, ch)
}

// secure applies password, aging, lock and expiry settings
func (r *filesRepository) secure(s *Session, op, name string, ch *accountChange) error {
	repo := r.kind()
	if ch.password != nil {
		if err := setPassword(s, repo, op, name, *ch.password); err != nil {
			return err
		}
	}
	if cmd, ok := agingCommand(repo, name, ch); ok {
		if _, err := run(s, op, name, cmd); err != nil {
			return err
		}
	}
	if ch.lock != nil && (*ch.lock || op == core.OpUpdate) {
		if _, err := run(s, op, name, lockCommand(repo, name, *ch.lock)); err != nil {
			return err
		}
	}
	if ch.expirePassword {
		if _, err := run(s, op, name, expirePasswordCommand(repo, name)); err != nil {
			return err
		}
	}
	return nil
}

func (r *filesRepository) deleteAccount(s *Session, a account) error {
	_, err := run(s, core.OpDelete, a.name, userdelCommand(a.name, r.cfg.DeleteHomeDirectory))
	return err
}

func (r *filesRepository) listGroups(s *Session) ([]group, error) {
	out, err := read(s, core.OpSearch, "groups", "cat "+etcGroup)
	if err != nil {
		return nil, err
	}
	return parseGroups(out), nil
}

func (r *filesRepository) createGroup(s *Session, name string, g *groupChange) error {
	if _, err := run(s, core.OpCreate, name, groupaddCommand(name, g.gid)); err != nil {
		return err
	}
	if g.users != nil && len(*g.users) > 0 {
		_, err := run(s, core.OpCreate, name, setMembersCommand(etcGroup, name, *g.users))
		return err
	}
	return nil
}

func (r *filesRepository) updateGroup(s *Session, name string, g *groupChange) error {
	if cmd, ok := groupmodCommand(name, g); ok {
		if _, err := run(s, core.OpUpdate, name, cmd); err != nil {
			return err
		}
	}
	if g.newName != "" {
		name = g.newName
	}
	if g.users != nil {
		_, err := run(s, core.OpUpdate, name, setMembersCommand(etcGroup, name, *g.users))
		return err
	}
	return nil
}

func (r *filesRepository) deleteGroup(s *Session, name string) error {
	_, err := run(s, core.OpDelete, name, groupdelCommand(name))
	return err
}
