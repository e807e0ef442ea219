package mysql

import "strings"

var stringEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	"\x00", `\0`,
	"\n", `\n`,
	"\r", `\r`,
	"\x1a", `\Z`,
)

// quoteString renders s as a single quoted MySQL string literal. Account
// management statements do not accept placeholders for names or passwords.
func quoteString(s string) string {
	return "'" + stringEscaper.Replace(s) + "'"
}

// account renders 'name'@'host'
func account(name, host string) string {
	return quoteString(name) + "@" + quoteString(host)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike escapes LIKE wildcards so s matches literally
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
