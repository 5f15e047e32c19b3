package main

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/graphsnap"
	"github.com/jward/graphsnap/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the node and edge tables",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

var seedCmd = &cobra.Command{
	Use:   "seed <rows.json>",
	Short: "Load node and edge rows from a JSON file",
	Long:  `Creates the tables if needed and inserts the rows of a file shaped like {"nodes": [...], "edges": [...]}, using the column names of the store.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runSeed,
}

var flagSeedReplace bool

func init() {
	seedCmd.Flags().BoolVar(&flagSeedReplace, "replace", false, "delete the existing rows of every snapshot id in the file first")
}

func openStore(cmd *cobra.Command) (*store.Store, store.Tables, error) {
	s, err := store.Open(cmd.Context(), cfg.ResolveDSN(os.Getenv))
	if err != nil {
		return nil, store.Tables{}, fmt.Errorf("opening store: %w", err)
	}
	return s, store.Tables{Nodes: cfg.NodesTable, Edges: cfg.EdgesTable}, nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	s, tables, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer s.Close()
	if err := s.Migrate(cmd.Context(), tables); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Migrated %s and %s (%s)\n", tables.Nodes, tables.Edges, s.Dialect())
	return nil
}

// seedNode and seedEdge mirror the store columns.
type seedNode struct {
	ID           string     `json:"id"`
	Type         *string    `json:"type"`
	OriginalType *string    `json:"originalType"`
	FilePath     *string    `json:"filePath"`
	Data         any        `json:"data"`
	Location     any        `json:"location"`
	SnapshotID   string     `json:"snapshotId"`
	CreatedAt    *time.Time `json:"createdAt"`
	UpdatedAt    *time.Time `json:"updatedAt"`
}

type seedEdge struct {
	ID         string     `json:"id"`
	FromID     string     `json:"fromId"`
	ToID       string     `json:"toId"`
	Kind       *string    `json:"kind"`
	FilePath   *string    `json:"filePath"`
	SnapshotID string     `json:"snapshotId"`
	Version    *int64     `json:"version"`
	CreatedAt  *time.Time `json:"createdAt"`
}

type seedFile struct {
	Nodes []seedNode `json:"nodes"`
	Edges []seedEdge `json:"edges"`
}

func runSeed(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading seed file: %w", err)
	}
	var seed seedFile
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&seed); err != nil {
		return fmt.Errorf("%w: parsing %s: %w", graphsnap.ErrInvalidArgument, args[0], err)
	}

	s, tables, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	if err := s.Migrate(ctx, tables); err != nil {
		return err
	}

	nodes := make([]store.NodeRow, len(seed.Nodes))
	for i, n := range seed.Nodes {
		nodes[i] = store.NodeRow{
			ID:           n.ID,
			Type:         nullString(n.Type),
			OriginalType: nullString(n.OriginalType),
			FilePath:     nullString(n.FilePath),
			Data:         n.Data,
			Location:     n.Location,
			SnapshotID:   sql.NullString{String: n.SnapshotID, Valid: true},
			CreatedAt:    nullTime(n.CreatedAt),
			UpdatedAt:    nullTime(n.UpdatedAt),
		}
	}
	edges := make([]store.EdgeRow, len(seed.Edges))
	for i, e := range seed.Edges {
		version := sql.NullInt64{Int64: 1, Valid: true}
		if e.Version != nil {
			version.Int64 = *e.Version
		}
		edges[i] = store.EdgeRow{
			ID:         e.ID,
			FromID:     e.FromID,
			ToID:       e.ToID,
			Kind:       nullString(e.Kind),
			FilePath:   nullString(e.FilePath),
			SnapshotID: sql.NullString{String: e.SnapshotID, Valid: true},
			Version:    version,
			CreatedAt:  nullTime(e.CreatedAt),
		}
	}

	if flagSeedReplace {
		for _, id := range seedSnapshotIDs(seed) {
			if err := s.DeleteSnapshot(ctx, tables, id); err != nil {
				return err
			}
		}
	}
	if err := s.InsertNodes(ctx, tables.Nodes, nodes); err != nil {
		return err
	}
	if err := s.InsertEdges(ctx, tables.Edges, edges); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Seeded %d nodes and %d edges\n", len(nodes), len(edges))
	return nil
}

// seedSnapshotIDs returns the distinct snapshot ids of the file's rows in
// first-seen order.
func seedSnapshotIDs(seed seedFile) []string {
	seen := make(map[string]bool)
	var ids []string
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, n := range seed.Nodes {
		add(n.SnapshotID)
	}
	for _, e := range seed.Edges {
		add(e.SnapshotID)
	}
	return ids
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
