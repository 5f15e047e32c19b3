package store

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrUnsupportedDSN is returned for connection strings no driver handles.
var ErrUnsupportedDSN = errors.New("store: unsupported dsn")

// sqliteParams are appended to every SQLite source.
const sqliteParams = "_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000"

func resolveDriver(dsn string) (driver, source string, dialect Dialect, err error) {
	switch {
	case dsn == "":
		return "", "", 0, fmt.Errorf("%w: empty", ErrUnsupportedDSN)
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return "pgx", WithSchemaOptions(dsn), Postgres, nil
	case strings.HasPrefix(dsn, "sqlite://"):
		return "sqlite3", sqliteSource(strings.TrimPrefix(dsn, "sqlite://")), SQLite, nil
	case strings.HasPrefix(dsn, "file:"):
		return "sqlite3", sqliteSource(dsn), SQLite, nil
	case strings.Contains(dsn, "://"):
		scheme, _, _ := strings.Cut(dsn, "://")
		return "", "", 0, fmt.Errorf("%w: scheme %q", ErrUnsupportedDSN, scheme)
	case isKeywordDSN(dsn):
		return "pgx", dsn, Postgres, nil
	default:
		return "sqlite3", sqliteSource(dsn), SQLite, nil
	}
}

// isKeywordDSN reports whether dsn looks like a libpq "key=value key=value"
// connection string.
func isKeywordDSN(dsn string) bool {
	first, _, _ := strings.Cut(strings.TrimSpace(dsn), " ")
	key, _, ok := strings.Cut(first, "=")
	if !ok {
		return false
	}
	switch key {
	case "host", "hostaddr", "port", "dbname", "user", "password", "sslmode", "options":
		return true
	}
	return false
}

func sqliteSource(path string) string {
	if strings.Contains(path, "?") {
		return path + "&" + sqliteParams
	}
	return path + "?" + sqliteParams
}

// WithSchemaOptions rewrites a URL connection string carrying a schema
// parameter so the server's search_path is set through the options
// parameter instead. The first schema and the first options are consumed;
// an existing options value keeps its content and gains
// "-c search_path=<schema>" after a space. Every other parameter is kept in
// its original order. DSNs that aren't URLs, or whose schema is empty, are
// returned unchanged.
func WithSchemaOptions(dsn string) string {
	if !strings.Contains(dsn, "://") || !strings.Contains(dsn, "schema=") {
		return dsn
	}

	rest, fragment, hasFragment := strings.Cut(dsn, "#")
	base, rawQuery, _ := strings.Cut(rest, "?")

	var (
		schema, options      string
		haveSchema, haveOpts bool
		preserved            [][2]string
	)
	for _, kv := range parseQuery(rawQuery) {
		switch {
		case kv[0] == "schema" && !haveSchema:
			schema, haveSchema = kv[1], true
		case kv[0] == "options" && !haveOpts:
			options, haveOpts = kv[1], true
		default:
			preserved = append(preserved, kv)
		}
	}
	if schema == "" {
		return dsn
	}

	searchPath := "-c search_path=" + schema
	if options != "" {
		options += " " + searchPath
	} else {
		options = searchPath
	}
	preserved = append(preserved, [2]string{"options", options})

	parts := make([]string, len(preserved))
	for i, kv := range preserved {
		parts[i] = quote(kv[0]) + "=" + quote(kv[1])
	}
	out := base + "?" + strings.Join(parts, "&")
	if hasFragment && fragment != "" {
		out += "#" + fragment
	}
	return out
}

// parseQuery splits a raw query into decoded key/value pairs in order.
// Blank values are kept and fields without "=" get an empty value.
func parseQuery(raw string) [][2]string {
	var out [][2]string
	for _, field := range strings.Split(raw, "&") {
		if field == "" {
			continue
		}
		k, v, _ := strings.Cut(field, "=")
		out = append(out, [2]string{unescape(k), unescape(v)})
	}
	return out
}

// unescape decodes "+" as a space and %XX escapes. Malformed escapes are
// left as they are.
func unescape(s string) string {
	s = strings.ReplaceAll(s, "+", " ")
	if !strings.Contains(s, "%") {
		return s
	}
	if decoded, err := url.PathUnescape(s); err == nil {
		return decoded
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
			b.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
			i += 2
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// quote percent-encodes every byte outside the RFC 3986 unreserved set.
func quote(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9' ||
		c == '-' || c == '.' || c == '_' || c == '~'
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}
