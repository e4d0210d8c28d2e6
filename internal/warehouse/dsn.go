package warehouse

import (
	"net/url"
	"regexp"
	"strings"

	mysqldriver "github.com/go-sql-driver/mysql"
)

// SanitizeDSN normalizes operator-supplied DSNs before handing them to the
// driver. URL-style DSNs get their userinfo percent-encoded so passwords
// containing @, #, or % do not mis-split the authority component. MySQL DSNs
// are rewritten to the tcp() form go-sql-driver requires. Snowflake has its
// own non-URL format and passes through unchanged.
func SanitizeDSN(engine, dsn string) string {
	switch engine {
	case "postgres":
		return sanitizeURLDSN(dsn)
	case "mysql":
		return sanitizeMySQLDSN(dsn)
	default:
		return dsn
	}
}

// mysqlBareHostPort matches "user:pass@host:port/db" with no tcp() wrapper.
var mysqlBareHostPort = regexp.MustCompile(`^(.+)@([^(@]+:\d+)(/.*)?$`)

func sanitizeMySQLDSN(dsn string) string {
	if cfg, err := mysqldriver.ParseDSN(dsn); err == nil && (cfg.Net == "tcp" || cfg.Net == "unix") {
		return cfg.FormatDSN()
	}

	// user:pass@(host:port)/db, missing the "tcp" keyword.
	if idx := strings.LastIndex(dsn, "@("); idx >= 0 {
		fixed := dsn[:idx] + "@tcp" + dsn[idx+1:]
		if cfg, err := mysqldriver.ParseDSN(fixed); err == nil {
			return cfg.FormatDSN()
		}
	}

	// user:pass@host:port/db, no parens at all.
	if m := mysqlBareHostPort.FindStringSubmatch(dsn); m != nil {
		fixed := m[1] + "@tcp(" + m[2] + ")" + m[3]
		if cfg, err := mysqldriver.ParseDSN(fixed); err == nil {
			return cfg.FormatDSN()
		}
	}

	// Let the connect call produce the error.
	return dsn
}

func sanitizeURLDSN(dsn string) string {
	schemeEnd := strings.Index(dsn, "://")
	if schemeEnd < 0 {
		return dsn
	}

	scheme := dsn[:schemeEnd]
	rest := dsn[schemeEnd+3:]

	query := ""
	if qi := strings.IndexByte(rest, '?'); qi >= 0 {
		query = rest[qi:]
		rest = rest[:qi]
	}

	// Everything before the last '@' is userinfo.
	atIdx := strings.LastIndex(rest, "@")
	if atIdx < 0 {
		return dsn
	}

	userinfo := rest[:atIdx]
	hostpath := rest[atIdx+1:]

	user := userinfo
	pass := ""
	if ci := strings.IndexByte(userinfo, ':'); ci >= 0 {
		user = userinfo[:ci]
		pass = userinfo[ci+1:]
	}

	return scheme + "://" + url.PathEscape(user) + ":" + url.PathEscape(pass) + "@" + hostpath + query
}
