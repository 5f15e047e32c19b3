package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/graphsnap/internal/canonical"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background(), Tables{}))
	t.Cleanup(func() { s.Close() })
	return s
}

func str(s string) sql.NullString { return sql.NullString{String: s, Valid: true} }

func at(ts time.Time) sql.NullTime { return sql.NullTime{Time: ts, Valid: true} }

// =============================================================================
// Schema & Lifecycle
// =============================================================================

func TestMigrate_TablesExist(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	for _, table := range []string{DefaultNodesTable, DefaultEdgesTable} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.Migrate(context.Background(), Tables{}))
}

func TestMigrate_CustomTables(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()
	tables := Tables{Nodes: "Nodes_v2", Edges: "Edges_v2"}
	require.NoError(t, s.Migrate(ctx, tables))

	require.NoError(t, s.InsertNodes(ctx, "Nodes_v2", []NodeRow{{ID: "n1", SnapshotID: str("s")}}))
	rows, err := s.SnapshotNodes(ctx, "Nodes_v2", "s")
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestMigrate_RejectsBadTableName(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	err := s.Migrate(context.Background(), Tables{Nodes: `x"; DROP TABLE y; --`})
	require.ErrorIs(t, err, ErrInvalidTable)
}

func TestOpen_WALMode(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	var mode string
	err := s.db.QueryRow("PRAGMA journal_mode").Scan(&mode)
	require.NoError(t, err)
	assert.Equal(t, "wal", mode)
	assert.Equal(t, SQLite, s.Dialect())
}

func TestOpen_SQLiteURL(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "url.db")
	s, err := Open(context.Background(), "sqlite://"+path)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, 1, s.DB().Stats().MaxOpenConnections)
}

func TestOpen_UnsupportedScheme(t *testing.T) {
	t.Parallel()
	_, err := Open(context.Background(), "mysql://root@localhost/db")
	require.ErrorIs(t, err, ErrUnsupportedDSN)

	_, err = Open(context.Background(), "")
	require.ErrorIs(t, err, ErrUnsupportedDSN)
}

// =============================================================================
// Snapshot rows
// =============================================================================

func TestSnapshotNodes_OrderedAndFiltered(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.InsertNodes(ctx, DefaultNodesTable, []NodeRow{
		{ID: "c", Type: str("Call"), SnapshotID: str("snap-1")},
		{ID: "a", Type: str("Function"), OriginalType: str("FunctionDeclaration"), FilePath: str("a.js"),
			Data: map[string]any{"name": "main", "async": false}, Location: map[string]any{"line": 3},
			SnapshotID: str("snap-1"), CreatedAt: at(created)},
		{ID: "b", SnapshotID: str("snap-1")},
		{ID: "z", SnapshotID: str("snap-2")},
	}))

	rows, err := s.SnapshotNodes(ctx, DefaultNodesTable, "snap-1")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "a", rows[0].ID)
	assert.Equal(t, "b", rows[1].ID)
	assert.Equal(t, "c", rows[2].ID)

	first := rows[0]
	assert.Equal(t, "Function", first.Type.String)
	assert.Equal(t, "FunctionDeclaration", first.OriginalType.String)
	assert.True(t, first.CreatedAt.Valid)
	assert.True(t, first.CreatedAt.Time.Equal(created))
	assert.False(t, first.UpdatedAt.Valid)

	data, ok := first.Data.(canonical.Map)
	require.True(t, ok, "data should decode to a canonical map, got %T", first.Data)
	assert.Equal(t, []string{"async", "name"}, data.Keys())
	line, _ := first.Location.(canonical.Map).Get("line")
	assert.Equal(t, int64(3), line)

	assert.Nil(t, rows[1].Data)
	assert.False(t, rows[1].Type.Valid)
}

func TestSnapshotNodes_NonJSONTextKeptAsString(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.InsertNodes(ctx, DefaultNodesTable, []NodeRow{
		{ID: "a", Data: "not json {", SnapshotID: str("s")},
	}))

	rows, err := s.SnapshotNodes(ctx, DefaultNodesTable, "s")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "not json {", rows[0].Data)
}

func TestSnapshotNodes_IntegerIDs(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.db.Exec(`CREATE TABLE "IntNodes" ("id" INTEGER, "type" TEXT, "originalType" TEXT, "filePath" TEXT,
		"data" TEXT, "location" TEXT, "snapshotId" TEXT, "createdAt" TIMESTAMP, "updatedAt" TIMESTAMP)`)
	require.NoError(t, err)
	_, err = s.db.Exec(`INSERT INTO "IntNodes" ("id", "snapshotId") VALUES (42, 's'), (7, 's')`)
	require.NoError(t, err)

	rows, err := s.SnapshotNodes(ctx, "IntNodes", "s")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "7", rows[0].ID)
	assert.Equal(t, "42", rows[1].ID)
}

func TestSnapshotEdges_Ordered(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertEdges(ctx, DefaultEdgesTable, []EdgeRow{
		{ID: "e3", FromID: "b", ToID: "a", Kind: str("CALL"), SnapshotID: str("s")},
		{ID: "e2", FromID: "a", ToID: "b", Kind: str("IMPORT"), SnapshotID: str("s"),
			Version: sql.NullInt64{Int64: 2, Valid: true}},
		{ID: "e1", FromID: "a", ToID: "b", Kind: str("CALL"), SnapshotID: str("s")},
		{ID: "e4", FromID: "a", ToID: "b", Kind: str("CALL"), SnapshotID: str("other")},
	}))

	rows, err := s.SnapshotEdges(ctx, DefaultEdgesTable, "s")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"e1", "e2", "e3"}, []string{rows[0].ID, rows[1].ID, rows[2].ID})
	assert.Equal(t, int64(2), rows[1].Version.Int64)
	assert.False(t, rows[0].Version.Valid)
}

func TestSnapshotRows_UnknownSnapshotIsEmpty(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	nodes, err := s.SnapshotNodes(ctx, DefaultNodesTable, "missing")
	require.NoError(t, err)
	assert.Empty(t, nodes)
	edges, err := s.SnapshotEdges(ctx, DefaultEdgesTable, "missing")
	require.NoError(t, err)
	assert.Empty(t, edges)
}

func TestSnapshotRows_MissingTableWrapsDriverError(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	_, err := s.SnapshotNodes(context.Background(), "NoSuchTable", "s")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query nodes")
}

func TestSnapshotRows_CanceledContext(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.SnapshotEdges(ctx, DefaultEdgesTable, "s")
	require.ErrorIs(t, err, context.Canceled)
}

func TestDeleteSnapshot(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.InsertNodes(ctx, DefaultNodesTable, []NodeRow{
		{ID: "a", SnapshotID: str("s")}, {ID: "b", SnapshotID: str("keep")},
	}))
	require.NoError(t, s.InsertEdges(ctx, DefaultEdgesTable, []EdgeRow{
		{ID: "e", FromID: "a", ToID: "a", SnapshotID: str("s")},
	}))

	require.NoError(t, s.DeleteSnapshot(ctx, Tables{}, "s"))

	nodes, err := s.SnapshotNodes(ctx, DefaultNodesTable, "s")
	require.NoError(t, err)
	assert.Empty(t, nodes)
	kept, err := s.SnapshotNodes(ctx, DefaultNodesTable, "keep")
	require.NoError(t, err)
	assert.Len(t, kept, 1)
}

func TestRebind(t *testing.T) {
	t.Parallel()
	pg := &Store{dialect: Postgres}
	lite := &Store{dialect: SQLite}
	q := `SELECT 1 FROM "t" WHERE "a" = ? AND "b" = ?`
	assert.Equal(t, `SELECT 1 FROM "t" WHERE "a" = $1 AND "b" = $2`, pg.rebind(q))
	assert.Equal(t, q, lite.rebind(q))
}
