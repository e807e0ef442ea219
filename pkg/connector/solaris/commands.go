package solaris

import (
	"path"
	"sort"
	"strconv"
	"strings"
)

const (
	etcGroup = "/etc/group"
	tmpFile  = "/tmp/idbridge.$$"
)

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// sedName escapes a validated name for use inside a sed or awk regex
func sedName(name string) string {
	return strings.ReplaceAll(name, ".", `\.`)
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

// accountFlags renders the useradd/usermod options shared by both commands
func accountFlags(ch *accountChange, makeDir bool) []string {
	var f []string
	str := func(flag string, v *string) {
		if v != nil {
			f = append(f, flag, shellQuote(*v))
		}
	}
	str("-c", ch.comment)
	str("-d", ch.dir)
	if makeDir {
		f = append(f, "-m")
	}
	str("-g", ch.group)
	if ch.secondary != nil {
		f = append(f, "-G", shellQuote(strings.Join(*ch.secondary, ",")))
	}
	str("-s", ch.shell)
	if ch.uid != nil {
		f = append(f, "-u", itoa(*ch.uid))
	}
	str("-e", ch.expire)
	if ch.inactive != nil {
		f = append(f, "-f", itoa(*ch.inactive))
	}
	str("-A", ch.authorization)
	str("-P", ch.profile)
	str("-R", ch.role)
	return f
}

func useraddCommand(name string, ch *accountChange, makeDir bool) string {
	return strings.Join(append(append([]string{"useradd"}, accountFlags(ch, makeDir)...), name), " ")
}

// usermodCommand returns false when there is nothing for usermod to change
func usermodCommand(name string, ch *accountChange, makeDir bool) (string, bool) {
	f := accountFlags(ch, makeDir && ch.dir != nil)
	if ch.newName != "" {
		f = append(f, "-l", ch.newName)
	}
	if len(f) == 0 {
		return "", false
	}
	return strings.Join(append(append([]string{"usermod"}, f...), name), " "), true
}

func userdelCommand(name string, removeHome bool) string {
	if removeHome {
		return "userdel -r " + name
	}
	return "userdel " + name
}

func passwdCommand(repo, name string) string {
	return "passwd -r " + repo + " " + name
}

// agingCommand returns false when no aging value was supplied
func agingCommand(repo, name string, ch *accountChange) (string, bool) {
	if !ch.aging() {
		return "", false
	}
	f := []string{"passwd", "-r", repo}
	if ch.min != nil {
		f = append(f, "-n", itoa(*ch.min))
	}
	if ch.max != nil {
		f = append(f, "-x", itoa(*ch.max))
	}
	if ch.warn != nil {
		f = append(f, "-w", itoa(*ch.warn))
	}
	return strings.Join(append(f, name), " "), true
}

func lockCommand(repo, name string, lock bool) string {
	if lock {
		return "passwd -r " + repo + " -l " + name
	}
	return "passwd -r " + repo + " -u " + name
}

func expirePasswordCommand(repo, name string) string {
	return "passwd -r " + repo + " -f " + name
}

func groupaddCommand(name string, gid *int64) string {
	if gid != nil {
		return "groupadd -g " + itoa(*gid) + " " + name
	}
	return "groupadd " + name
}

// groupmodCommand returns false when neither gid nor name change
func groupmodCommand(name string, g *groupChange) (string, bool) {
	f := []string{"groupmod"}
	if g.gid != nil {
		f = append(f, "-g", itoa(*g.gid))
	}
	if g.newName != "" {
		f = append(f, "-n", g.newName)
	}
	if len(f) == 1 {
		return "", false
	}
	return strings.Join(append(f, name), " "), true
}

func groupdelCommand(name string) string {
	return "groupdel " + name
}

// rewrite runs a filter over file and copies the result back, keeping the
// file's owner and mode
func rewrite(filter, file string) string {
	return filter + " " + file + " > " + tmpFile + " && cp " + tmpFile + " " + file + " && rm -f " + tmpFile
}

// setMembersCommand replaces the member list of group in file
func setMembersCommand(file, group string, users []string) string {
	script := `s/^\(` + sedName(group) + `:[^:]*:[^:]*:\).*$/\1` + strings.Join(users, ",") + `/`
	return rewrite("sed "+shellQuote(script), file)
}

// deleteLineCommand removes the entry keyed by name from a colon separated file
func deleteLineCommand(file, name string) string {
	return rewrite("sed "+shellQuote(`/^`+sedName(name)+`:/d`), file)
}

// renameLineCommand renames the entry keyed by name
func renameLineCommand(file, name, newName string) string {
	return rewrite("sed "+shellQuote(`s/^`+sedName(name)+`:/`+newName+`:/`), file)
}

func appendLineCommand(file, line string) string {
	return "echo " + shellQuote(line) + " >> " + file
}

// nextIDCommand prints one more than the highest regular id in the third
// field of file. Scripts use nawk since Solaris /usr/bin/awk lacks -v.
func nextIDCommand(file string) string {
	return "nawk -F: 'BEGIN{m=99} $3>m && $3<60000{m=$3} END{print m+1}' " + file
}

// lookupGidCommand prints the gid of the named group
func lookupGidCommand(file, group string) string {
	return "nawk -F: -v g=" + shellQuote(group) + " '$1==g{print $3}' " + file
}

// updateFieldsCommand sets fields of the entry keyed by name. fields maps
// 1-based field numbers to their new value.
func updateFieldsCommand(file, name string, fields map[int]string) string {
	nums := make([]int, 0, len(fields))
	for n := range fields {
		nums = append(nums, n)
	}
	sort.Ints(nums)

	args := []string{"nawk", "-F:", "-v", "OFS=:", "-v", "u=" + shellQuote(name)}
	var body strings.Builder
	for _, n := range nums {
		v := "f" + strconv.Itoa(n)
		args = append(args, "-v", v+"="+shellQuote(fields[n]))
		body.WriteString("$" + strconv.Itoa(n) + "=" + v + "; ")
	}
	args = append(args, shellQuote(`$1==u{ `+body.String()+`} {print}`))
	return rewrite(strings.Join(args, " "), file)
}

// membershipCommand makes user a member of exactly the listed groups in a
// group file. A nil groups list removes user everywhere.
func membershipCommand(file, user string, groups []string) string {
	script := `{ n=split($4,m,","); out=""; ` +
		`for(i=1;i<=n;i++) if(m[i]!=u && m[i]!="") out=out (out==""?"":",") m[i]; ` +
		`if(index(gs, "," $1 ",")) out=out (out==""?"":",") u; ` +
		`if(NF>=3) $4=out; print }`
	return rewrite("nawk -F: -v OFS=: -v u="+shellQuote(user)+
		" -v gs="+shellQuote(","+strings.Join(groups, ",")+",")+" "+shellQuote(script), file)
}

// renameMemberCommand renames user in every member list of a group file
func renameMemberCommand(file, user, newName string) string {
	script := `{ n=split($4,m,","); out=""; ` +
		`for(i=1;i<=n;i++) out=out (i>1?",":"") (m[i]==o?r:m[i]); ` +
		`if(NF>=4) $4=out; print }`
	return rewrite("nawk -F: -v OFS=: -v o="+shellQuote(user)+" -v r="+shellQuote(newName)+" "+shellQuote(script), file)
}

func makeCommand(buildDir, target string) string {
	return "cd " + shellQuote(buildDir) + " && /usr/ccs/bin/make " + target
}

func mkhomeCommand(dir string, uid, gid string) string {
	return "mkdir -p " + shellQuote(dir) + " && chown " + uid + ":" + gid + " " + shellQuote(dir)
}

func removeHomeCommand(dir string) string {
	return "rm -rf " + shellQuote(path.Clean(dir))
}
