package store

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jward/graphsnap/internal/canonical"
)

// quoteIdent double-quotes an SQL identifier. Both SQLite and PostgreSQL
// accept this form and keep the identifier's case.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// columnList quotes and joins column names for a SELECT or INSERT.
func columnList(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
	}
	return strings.Join(quoted, ",")
}

// placeholderList returns "?,?,?" for n placeholders.
func placeholderList(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}

// coerceID turns a loosely scanned id column into its string form.
func coerceID(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case [16]byte:
		return uuid.UUID(x).String()
	case time.Time:
		return canonical.FormatTime(x)
	default:
		return fmt.Sprint(x)
	}
}

// decodeJSONColumn turns a loosely scanned JSON column into canonical values.
// NULL becomes nil and text that isn't JSON is kept as a string.
func decodeJSONColumn(v any) any {
	var raw []byte
	switch x := v.(type) {
	case nil:
		return nil
	case []byte:
		raw = x
	case string:
		raw = []byte(x)
	default:
		return canonical.Canonicalize(x)
	}
	decoded, err := canonical.Unmarshal(raw)
	if err != nil {
		return string(raw)
	}
	return decoded
}

// encodeJSONColumn is the inverse of decodeJSONColumn for inserts.
func encodeJSONColumn(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case string:
		return x, nil
	}
	b, err := canonical.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
