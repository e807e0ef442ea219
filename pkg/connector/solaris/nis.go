package solaris

import (
	"path"
	"strconv"
	"strings"

	"github.com/ajitpratap0/idbridge/pkg/config"
	"github.com/ajitpratap0/idbridge/pkg/connector/core"
	"github.com/ajitpratap0/idbridge/pkg/errors"
)

const (
	// nisDefaultGid is the Solaris "other" group useradd falls back to
	nisDefaultGid   = "1"
	nisDefaultHome  = "/home"
	nisDefaultShell = "/bin/sh"
	nisLocked       = "*LK*"
)

// nisRepository edits the NIS source files on the master and rebuilds the
// maps with make
type nisRepository struct {
	cfg *config.SolarisConfig
}

func (r *nisRepository) kind() string { return config.SystemDatabaseNIS }

func (r *nisRepository) passwdFile() string { return path.Join(r.cfg.NISPwdDir, "passwd") }
func (r *nisRepository) shadowFile() string { return path.Join(r.cfg.NISPwdDir, "shadow") }
func (r *nisRepository) groupFile() string  { return path.Join(r.cfg.NISPwdDir, "group") }

func (r *nisRepository) make(s *Session, op, target, mapName string) error {
	_, err := run(s, op, target, makeCommand(r.cfg.NISBuildDirectory, mapName))
	return err
}

// unsupported rejects settings the NIS source files have no place for
func (r *nisRepository) unsupported(ch *accountChange) error {
	var attr string
	switch {
	case ch.rbac():
		attr = "authorization, profile and role"
	case ch.aging():
		attr = "password aging"
	case ch.lock != nil:
		attr = core.AttrLockOut
	case ch.expirePassword:
		attr = core.AttrPasswordExpired
	case ch.expire != nil, ch.inactive != nil:
		attr = "expire and inactive"
	default:
		return nil
	}
	return errors.Newf(errors.ErrorTypeUnsupported, "%s cannot be managed for NIS accounts", attr)
}

func (r *nisRepository) listAccounts(s *Session, name string) ([]account, error) {
	groups, err := r.listGroups(s)
	if err != nil {
		return nil, err
	}
	cmd := "ypcat passwd"
	if name != "" {
		cmd = "ypmatch " + name + " passwd"
	}
	out, err := read(s, core.OpSearch, "accounts", cmd)
	if err != nil {
		if name != "" {
			return nil, unknownAsEmpty(err)
		}
		return nil, err
	}
	return parsePasswd(out, groups), nil
}

// gid resolves a group name or number against the NIS group source file
func (r *nisRepository) gid(s *Session, op, groupName string) (string, error) {
	if _, err := strconv.Atoi(groupName); err == nil {
		return groupName, nil
	}
	out, err := run(s, op, groupName, lookupGidCommand(r.groupFile(), groupName))
	if err != nil {
		return "", err
	}
	gid := strings.TrimSpace(out)
	if gid == "" {
		return "", errors.Newf(errors.ErrorTypeInvalidAttribute, "group %s does not exist", groupName).
			WithDetail("attribute", AttrGroup)
	}
	return gid, nil
}

func (r *nisRepository) nextID(s *Session, op, target, file string) (string, error) {
	out, err := run(s, op, target, nextIDCommand(file))
	if err != nil {
		return "", err
	}
	id := strings.TrimSpace(out)
	if _, err := strconv.Atoi(id); err != nil {
		return "", errors.Newf(errors.ErrorTypeInternal, "unexpected id %q computed from %s", id, file)
	}
	return id, nil
}

func (r *nisRepository) createAccount(s *Session, name string, ch *accountChange) (bool, error) {
	op := core.OpCreate
	if err := r.unsupported(ch); err != nil {
		return false, err
	}
	exists, err := entryExists(s, op, r.passwdFile(), name)
	if err != nil {
		return false, err
	}
	if exists {
		return false, errors.Newf(errors.ErrorTypeAlreadyExists, "account %s already exists", name)
	}

	var uid string
	if ch.uid != nil {
		uid = itoa(*ch.uid)
	} else if uid, err = r.nextID(s, op, name, r.passwdFile()); err != nil {
		return false, err
	}
	groupName := nisDefaultGid
	if g := withDefault(ch.group, r.cfg.DefaultPrimaryGroup); g != nil {
		groupName = *g
	}
	gid, err := r.gid(s, op, groupName)
	if err != nil {
		return false, err
	}
	base := r.cfg.HomeBaseDirectory
	if base == "" {
		base = nisDefaultHome
	}
	dir := path.Join(base, name)
	if ch.dir != nil {
		dir = *ch.dir
	}
	shell := nisDefaultShell
	if sh := withDefault(ch.shell, r.cfg.LoginShell); sh != nil {
		shell = *sh
	}
	comment := ""
	if ch.comment != nil {
		comment = *ch.comment
	}

	pwField := nisLocked
	if r.cfg.NISShadow {
		pwField = "x"
	}
	line := strings.Join([]string{name, pwField, uid, gid, comment, dir, shell}, ":")
	if _, err := run(s, op, name, appendLineCommand(r.passwdFile(), line)); err != nil {
		return false, err
	}
	if r.cfg.NISShadow {
		if _, err := run(s, op, name, appendLineCommand(r.shadowFile(), name+":"+nisLocked+":::::::")); err != nil {
			return true, err
		}
	}
	if ch.secondary != nil && len(*ch.secondary) > 0 {
		if _, err := run(s, op, name, membershipCommand(r.groupFile(), name, *ch.secondary)); err != nil {
			return true, err
		}
		if err := r.make(s, op, name, "group"); err != nil {
			return true, err
		}
	}
	if err := r.make(s, op, name, "passwd"); err != nil {
		return true, err
	}
	if r.cfg.MakeDirectory {
		if _, err := run(s, op, name, mkhomeCommand(dir, uid, gid)); err != nil {
			return true, err
		}
	}
	if ch.password != nil {
		return true, setPassword(s, r.kind(), op, name, *ch.password)
	}
	return true, nil
}

func (r *nisRepository) updateAccount(s *Session, name string, ch *accountChange) error {
	op := core.OpUpdate
	if err := r.unsupported(ch); err != nil {
		return err
	}

	fields := map[int]string{}
	if ch.newName != "" {
		if err := requireFree(s, op, r.passwdFile(), "account", ch.newName); err != nil {
			return err
		}
		fields[1] = ch.newName
	}
	if ch.uid != nil {
		fields[3] = itoa(*ch.uid)
	}
	if ch.group != nil {
		gid, err := r.gid(s, op, *ch.group)
		if err != nil {
			return err
		}
		fields[4] = gid
	}
	if ch.comment != nil {
		fields[5] = *ch.comment
	}
	if ch.dir != nil {
		fields[6] = *ch.dir
	}
	if ch.shell != nil {
		fields[7] = *ch.shell
	}

	passwdChanged := len(fields) > 0
	groupChanged := false
	if passwdChanged {
		if _, err := run(s, op, name, updateFieldsCommand(r.passwdFile(), name, fields)); err != nil {
			return err
		}
	}

	target := name
	if ch.newName != "" {
		target = ch.newName
		if r.cfg.NISShadow {
			if _, err := run(s, op, name, renameLineCommand(r.shadowFile(), name, target)); err != nil {
				return err
			}
		}
		if _, err := run(s, op, name, renameMemberCommand(r.groupFile(), name, target)); err != nil {
			return err
		}
		groupChanged = true
	}
	if ch.secondary != nil {
		if _, err := run(s, op, target, membershipCommand(r.groupFile(), target, *ch.secondary)); err != nil {
			return err
		}
		groupChanged = true
	}

	if groupChanged {
		if err := r.make(s, op, target, "group"); err != nil {
			return err
		}
	}
	if passwdChanged {
		if err := r.make(s, op, target, "passwd"); err != nil {
			return err
		}
	}
	if ch.password != nil {
		return setPassword(s, r.kind(), op, target, *ch.password)
	}
	return nil
}

func (r *nisRepository) deleteAccount(s *Session, a account) error {
	op := core.OpDelete
	if _, err := run(s, op, a.name, deleteLineCommand(r.passwdFile(), a.name)); err != nil {
		return err
	}
	if r.cfg.NISShadow {
		if _, err := run(s, op, a.name, deleteLineCommand(r.shadowFile(), a.name)); err != nil {
			return err
		}
	}
	if _, err := run(s, op, a.name, membershipCommand(r.groupFile(), a.name, nil)); err != nil {
		return err
	}
	if err := r.make(s, op, a.name, "passwd"); err != nil {
		return err
	}
	if err := r.make(s, op, a.name, "group"); err != nil {
		return err
	}
	if r.cfg.DeleteHomeDirectory && removableHome(a.dir) {
		_, err := run(s, op, a.name, removeHomeCommand(a.dir))
		return err
	}
	return nil
}

// removableHome refuses to remove the root or a top-level directory
func removableHome(dir string) bool {
	dir = path.Clean(dir)
	return path.IsAbs(dir) && path.Dir(dir) != "/"
}

func (r *nisRepository) listGroups(s *Session) ([]group, error) {
	out, err := read(s, core.OpSearch, "groups", "ypcat group")
	if err != nil {
		return nil, err
	}
	return parseGroups(out), nil
}

func (r *nisRepository) createGroup(s *Session, name string, g *groupChange) error {
	op := core.OpCreate
	if err := requireFree(s, op, r.groupFile(), "group", name); err != nil {
		return err
	}

	var gid string
	var err error
	if g.gid != nil {
		gid = itoa(*g.gid)
	} else if gid, err = r.nextID(s, op, name, r.groupFile()); err != nil {
		return err
	}
	var users []string
	if g.users != nil {
		users = *g.users
	}
	line := strings.Join([]string{name, "", gid, strings.Join(users, ",")}, ":")
	if _, err := run(s, op, name, appendLineCommand(r.groupFile(), line)); err != nil {
		return err
	}
	return r.make(s, op, name, "group")
}

func (r *nisRepository) updateGroup(s *Session, name string, g *groupChange) error {
	fields := map[int]string{}
	if g.newName != "" {
		if err := requireFree(s, core.OpUpdate, r.groupFile(), "group", g.newName); err != nil {
			return err
		}
		fields[1] = g.newName
	}
	if g.gid != nil {
		fields[3] = itoa(*g.gid)
	}
	if g.users != nil {
		fields[4] = strings.Join(*g.users, ",")
	}
	if len(fields) == 0 {
		return nil
	}
	if _, err := run(s, core.OpUpdate, name, updateFieldsCommand(r.groupFile(), name, fields)); err != nil {
		return err
	}
	return r.make(s, core.OpUpdate, name, "group")
}

func (r *nisRepository) deleteGroup(s *Session, name string) error {
	if _, err := run(s, core.OpDelete, name, deleteLineCommand(r.groupFile(), name)); err != nil {
		return err
	}
	return r.make(s, core.OpDelete, name, "group")
}
