package graphsnap

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/jward/graphsnap/internal/config"
	"github.com/jward/graphsnap/internal/store"
)

// Conn is the store connection a snapshot is read through.
type Conn interface {
	SnapshotNodes(ctx context.Context, table, snapshotID string) ([]NodeRow, error)
	SnapshotEdges(ctx context.Context, table, snapshotID string) ([]EdgeRow, error)
	Close() error
}

// Opener opens a Conn for a connection string.
type Opener func(ctx context.Context, dsn string) (Conn, error)

// OpenStore is the default Opener. It dispatches on the DSN to PostgreSQL or
// SQLite.
func OpenStore(ctx context.Context, dsn string) (Conn, error) {
	s, err := store.Open(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return s, nil
}

var _ Conn = (*store.Store)(nil)

type options struct {
	dsn        string
	nodesTable string
	edgesTable string
	opener     Opener
	logger     *slog.Logger
	metrics    *Metrics
	clock      func() time.Time

	// beforeBuild runs after the store is closed and before the graph is
	// built.
	beforeBuild func()
}

// Option configures Materialize.
type Option func(*options)

// WithDSN sets the connection string. Without it the DSN comes from
// DATABASE_URL or the DB_* variables.
func WithDSN(dsn string) Option {
	return func(o *options) { o.dsn = dsn }
}

// WithNodesTable overrides the nodes table. Empty means DefaultNodesTable.
func WithNodesTable(table string) Option {
	return func(o *options) { o.nodesTable = table }
}

// WithEdgesTable overrides the edges table. Empty means DefaultEdgesTable.
func WithEdgesTable(table string) Option {
	return func(o *options) { o.edgesTable = table }
}

// WithOpener replaces the function used to open the store connection.
func WithOpener(open Opener) Option {
	return func(o *options) { o.opener = open }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics records every materialization in m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithClock sets the clock that stamps snapshot creation times.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.clock = now }
}

func newOptions(opts []Option) *options {
	o := &options{
		opener: OpenStore,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.nodesTable == "" {
		o.nodesTable = DefaultNodesTable
	}
	if o.edgesTable == "" {
		o.edgesTable = DefaultEdgesTable
	}
	if o.dsn == "" {
		o.dsn = config.ResolveDSN(os.Getenv)
	}
	return o
}

// Materialize loads snapshotID from the store and returns it as a sealed,
// deterministically ordered Snapshot.
//
// One connection is opened; node rows and then edge rows are read on it, and
// it is closed before the graph is built, on success and failure alike. The
// call is all or nothing: on error the returned snapshot is nil. Materialize
// keeps no state between calls and may run concurrently for different ids.
func Materialize(ctx context.Context, snapshotID string, opts ...Option) (snap *Snapshot, err error) {
	if snapshotID == "" {
		return nil, fmt.Errorf("%w: snapshot id is required", ErrInvalidArgument)
	}
	o := newOptions(opts)
	for _, table := range []string{o.nodesTable, o.edgesTable} {
		if !store.ValidIdent(table) {
			return nil, fmt.Errorf("%w: table name %q", ErrInvalidArgument, table)
		}
	}

	log := o.logger.With("snapshot_id", snapshotID, "run_id", uuid.NewString())
	start := time.Now()
	defer func() {
		var nodes, edges int
		if snap != nil {
			nodes, edges = len(snap.nodes), len(snap.edges)
		}
		o.metrics.observe(err, time.Since(start), nodes, edges)
	}()

	log.Debug("loading snapshot", "nodes_table", o.nodesTable, "edges_table", o.edgesTable)
	nodeRows, edgeRows, err := load(ctx, o, snapshotID)
	if err != nil {
		log.Error("materialize failed", "error", err)
		return nil, err
	}

	nodes := make([]Node, len(nodeRows))
	for i, r := range nodeRows {
		nodes[i] = nodeFromRow(r)
	}
	edges := make([]Edge, len(edgeRows))
	for i, r := range edgeRows {
		edges[i] = edgeFromRow(r)
	}

	if o.beforeBuild != nil {
		o.beforeBuild()
	}
	snap = newSnapshot(snapshotID, nodes, edges, o.clock(), SourceSQL)

	log.Info("snapshot materialized",
		"nodes", len(snap.nodes),
		"edges", len(snap.edges),
		"duration", time.Since(start))
	return snap, nil
}

// load reads the rows of snapshotID over a single connection and closes it.
// A close error is reported when the reads themselves succeeded.
func load(ctx context.Context, o *options, snapshotID string) (nodes []NodeRow, edges []EdgeRow, err error) {
	conn, err := o.opener(ctx, o.dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("graphsnap: connect: %w", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil && err == nil {
			nodes, edges = nil, nil
			err = fmt.Errorf("graphsnap: close store: %w", cerr)
		}
	}()

	nodes, err = conn.SnapshotNodes(ctx, o.nodesTable, snapshotID)
	if err != nil {
		return nil, nil, fmt.Errorf("graphsnap: load nodes: %w", err)
	}
	edges, err = conn.SnapshotEdges(ctx, o.edgesTable, snapshotID)
	if err != nil {
		return nil, nil, fmt.Errorf("graphsnap: load edges: %w", err)
	}
	return nodes, edges, nil
}
