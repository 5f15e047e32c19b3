package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithSchemaOptions(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "schema only",
			in:   "postgresql://user:pw@localhost:5432/db?schema=graph",
			want: "postgresql://user:pw@localhost:5432/db?options=-c%20search_path%3Dgraph",
		},
		{
			name: "other params keep their order",
			in:   "postgresql://localhost/db?sslmode=disable&schema=graph&application_name=snap",
			want: "postgresql://localhost/db?sslmode=disable&application_name=snap&options=-c%20search_path%3Dgraph",
		},
		{
			name: "existing options gain search_path",
			in:   "postgres://localhost/db?options=-c%20statement_timeout%3D5000&schema=graph",
			want: "postgres://localhost/db?options=-c%20statement_timeout%3D5000%20-c%20search_path%3Dgraph",
		},
		{
			name: "only the first schema is consumed",
			in:   "postgres://localhost/db?schema=first&schema=second",
			want: "postgres://localhost/db?schema=second&options=-c%20search_path%3Dfirst",
		},
		{
			name: "blank values survive",
			in:   "postgres://localhost/db?target_session_attrs=&schema=s",
			want: "postgres://localhost/db?target_session_attrs=&options=-c%20search_path%3Ds",
		},
		{
			name: "fragment survives",
			in:   "postgres://localhost/db?schema=s#frag",
			want: "postgres://localhost/db?options=-c%20search_path%3Ds#frag",
		},
		{
			name: "empty schema leaves dsn alone",
			in:   "postgres://localhost/db?schema=&sslmode=disable",
			want: "postgres://localhost/db?schema=&sslmode=disable",
		},
		{
			name: "no schema param",
			in:   "postgres://localhost/db?sslmode=disable",
			want: "postgres://localhost/db?sslmode=disable",
		},
		{
			name: "not a url",
			in:   "host=localhost dbname=db schema=graph",
			want: "host=localhost dbname=db schema=graph",
		},
		{
			name: "look-alike key is not a schema",
			in:   "postgres://localhost/db?myschema=x",
			want: "postgres://localhost/db?myschema=x",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, WithSchemaOptions(tt.in))
		})
	}
}

func TestWithSchemaOptions_DecodesBeforeReencoding(t *testing.T) {
	t.Parallel()
	got := WithSchemaOptions("postgres://localhost/db?application_name=my+app%2Fv1&schema=s")
	assert.Equal(t, "postgres://localhost/db?application_name=my%20app%2Fv1&options=-c%20search_path%3Ds", got)
}

func TestResolveDriver(t *testing.T) {
	t.Parallel()
	tests := []struct {
		dsn     string
		driver  string
		source  string
		dialect Dialect
	}{
		{"postgres://localhost/db", "pgx", "postgres://localhost/db", Postgres},
		{"postgresql://localhost/db?schema=s", "pgx", "postgresql://localhost/db?options=-c%20search_path%3Ds", Postgres},
		{"host=localhost port=5432 dbname=postgres user=postgres password=", "pgx",
			"host=localhost port=5432 dbname=postgres user=postgres password=", Postgres},
		{"sqlite:///tmp/g.db", "sqlite3", "/tmp/g.db?" + sqliteParams, SQLite},
		{"file:g.db?cache=shared", "sqlite3", "file:g.db?cache=shared&" + sqliteParams, SQLite},
		{"./graph.db", "sqlite3", "./graph.db?" + sqliteParams, SQLite},
	}
	for _, tt := range tests {
		driver, source, dialect, err := resolveDriver(tt.dsn)
		require.NoError(t, err, tt.dsn)
		assert.Equal(t, tt.driver, driver, tt.dsn)
		assert.Equal(t, tt.source, source, tt.dsn)
		assert.Equal(t, tt.dialect, dialect, tt.dsn)
	}
}

func TestQuote_UnreservedOnly(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "aZ09-._~", quote("aZ09-._~"))
	assert.Equal(t, "%2F%3A%40%20%3D%26%2B", quote("/:@ =&+"))
	assert.Equal(t, "caf%C3%A9", quote("café"))
}
