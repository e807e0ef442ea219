package solaris

import (
	"strconv"
	"strings"

	"github.com/ajitpratap0/idbridge/pkg/connector/core"
	"github.com/ajitpratap0/idbridge/pkg/errors"
)

// loginsFields is the field count of a `logins -oxma` line without
// secondary groups
const loginsFields = 14

// account is one user as read from logins, ypcat or a passwd file
type account struct {
	name      string
	uid       string
	group     string
	comment   string
	dir       string
	shell     string
	locked    bool
	min       string
	max       string
	warn      string
	inactive  string
	expire    string
	secondary []string
}

type group struct {
	name  string
	gid   string
	users []string
}

// parseLogins parses `logins -oxma` output:
//
//	login:uid:group:gid[:group:gid...]:gecos:dir:shell:pwstatus:lastchg:min:max:warn:inactive:expire
//
// where -m inserts a group:gid pair per secondary group.
func parseLogins(out string) ([]account, error) {
	var accounts []account
	for _, line := range lines(out) {
		f := strings.Split(line, ":")
		if len(f) < loginsFields || (len(f)-loginsFields)%2 != 0 {
			return nil, errors.Newf(errors.ErrorTypeInternal, "unexpected logins output %q", line)
		}
		tail := f[len(f)-10:]
		a := account{
			name:     f[0],
			uid:      f[1],
			group:    f[2],
			comment:  tail[0],
			dir:      tail[1],
			shell:    tail[2],
			locked:   tail[3] == "LK",
			min:      tail[5],
			max:      tail[6],
			warn:     tail[7],
			inactive: tail[8],
			expire:   tail[9],
		}
		for i := 4; i < len(f)-10; i += 2 {
			a.secondary = append(a.secondary, f[i])
		}
		accounts = append(accounts, a)
	}
	return accounts, nil
}

// parsePasswd parses passwd(4) lines. groups resolves primary gids to
// names and supplies secondary memberships.
func parsePasswd(out string, groups []group) []account {
	byGid := make(map[string]string, len(groups))
	for _, g := range groups {
		byGid[g.gid] = g.name
	}

	var accounts []account
	for _, line := range lines(out) {
		f := strings.Split(line, ":")
		if len(f) < 7 {
			continue
		}
		a := account{
			name:    f[0],
			uid:     f[2],
			group:   f[3],
			comment: f[4],
			dir:     f[5],
			shell:   f[6],
			locked:  strings.HasPrefix(f[1], "*LK*"),
		}
		if name, ok := byGid[f[3]]; ok {
			a.group = name
		}
		for _, g := range groups {
			for _, u := range g.users {
				if u == a.name {
					a.secondary = append(a.secondary, g.name)
					break
				}
			}
		}
		accounts = append(accounts, a)
	}
	return accounts
}

// parseGroups parses group(4) lines
func parseGroups(out string) []group {
	var groups []group
	for _, line := range lines(out) {
		f := strings.Split(line, ":")
		if len(f) < 3 || strings.HasPrefix(f[0], "+") || strings.HasPrefix(f[0], "-") {
			continue
		}
		g := group{name: f[0], gid: f[2]}
		if len(f) > 3 {
			for _, u := range strings.Split(f[3], ",") {
				if u = strings.TrimSpace(u); u != "" {
					g.users = append(g.users, u)
				}
			}
		}
		groups = append(groups, g)
	}
	return groups
}

func findGroup(groups []group, name string) (group, bool) {
	for _, g := range groups {
		if g.name == name {
			return g, true
		}
	}
	return group{}, false
}

func lines(out string) []string {
	var ls []string
	for _, l := range strings.Split(out, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			ls = append(ls, l)
		}
	}
	return ls
}

// number converts an id or aging field, dropping the "unset" markers
func number(s string) interface{} {
	if s == "" || s == "-1" {
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	return n
}

func date(s string) interface{} {
	switch s {
	case "", "-1", "000000":
		return nil
	}
	return s
}

func (a account) object() *core.ConnectorObject {
	obj := core.NewConnectorObject(core.ObjectClassAccount, core.Uid(a.name), a.name)
	obj.Add(AttrUidNumber, number(a.uid)).
		Add(AttrGroup, a.group).
		Add(AttrComment, a.comment).
		Add(AttrDir, a.dir).
		Add(AttrShell, a.shell).
		Add(core.AttrLockOut, a.locked).
		Add(AttrMin, number(a.min)).
		Add(AttrMax, number(a.max)).
		Add(AttrWarn, number(a.warn)).
		Add(AttrInactive, number(a.inactive)).
		Add(AttrExpire, date(a.expire))
	if len(a.secondary) > 0 {
		values := make([]interface{}, len(a.secondary))
		for i, g := range a.secondary {
			values[i] = g
		}
		obj.Add(AttrSecondaryGroup, values...)
	}
	return obj
}

func (g group) object() *core.ConnectorObject {
	obj := core.NewConnectorObject(core.ObjectClassGroup, core.Uid(g.name), g.name)
	obj.Add(AttrGid, number(g.gid))
	if len(g.users) > 0 {
		values := make([]interface{}, len(g.users))
		for i, u := range g.users {
			values[i] = u
		}
		obj.Add(AttrUsers, values...)
	}
	return obj
}
