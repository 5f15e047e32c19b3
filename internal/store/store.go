// Package store reads snapshot rows out of the relational store that holds
// the extracted code graph. PostgreSQL is reached through pgx and local
// SQLite databases through go-sqlite3; both sit behind database/sql.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// Dialect identifies the SQL flavor a Store speaks.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

func (d Dialect) String() string {
	switch d {
	case Postgres:
		return "postgres"
	default:
		return "sqlite"
	}
}

// Store is the data access layer over the node and edge tables.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// Open connects to the store named by dsn. PostgreSQL URLs and keyword DSNs
// use pgx; sqlite:// URLs, file: URIs and bare paths use SQLite. The pool is
// capped at a single connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	driver, source, dialect, err := resolveDriver(dsn)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db, dialect: dialect}, nil
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	return Open(context.Background(), dbPath)
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use in transactions.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect reports which SQL flavor the store speaks.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// Migrate creates the node and edge tables and their snapshot indexes.
// Idempotent. The DDL is portable between SQLite and PostgreSQL.
func (s *Store) Migrate(ctx context.Context, t Tables) error {
	t = t.withDefaults()
	if err := t.Validate(); err != nil {
		return err
	}
	nodes, edges := quoteIdent(t.Nodes), quoteIdent(t.Edges)
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ` + nodes + ` (
  "id"            TEXT PRIMARY KEY,
  "type"          TEXT,
  "originalType"  TEXT,
  "filePath"      TEXT,
  "data"          TEXT,
  "location"      TEXT,
  "snapshotId"    TEXT NOT NULL,
  "createdAt"     TIMESTAMP,
  "updatedAt"     TIMESTAMP
)`,
		`CREATE TABLE IF NOT EXISTS ` + edges + ` (
  "id"            TEXT PRIMARY KEY,
  "fromId"        TEXT NOT NULL,
  "toId"          TEXT NOT NULL,
  "kind"          TEXT,
  "filePath"      TEXT,
  "snapshotId"    TEXT NOT NULL,
  "version"       INTEGER DEFAULT 1,
  "createdAt"     TIMESTAMP
)`,
		`CREATE INDEX IF NOT EXISTS ` + quoteIdent("idx_"+t.Nodes+"_snapshot") + ` ON ` + nodes + `("snapshotId")`,
		`CREATE INDEX IF NOT EXISTS ` + quoteIdent("idx_"+t.Edges+"_snapshot") + ` ON ` + edges + `("snapshotId")`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders into the store's dialect.
func (s *Store) rebind(query string) string {
	if s.dialect != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
