package store

import (
	"database/sql"
	"errors"
	"fmt"
	"regexp"
)

// Default table names of the extracted code graph.
const (
	DefaultNodesTable = "AstNode"
	DefaultEdgesTable = "GraphEdge"
)

// ErrInvalidTable is returned for a table name that isn't a plain identifier.
var ErrInvalidTable = errors.New("store: invalid table name")

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdent reports whether name can be used as a table name.
func ValidIdent(name string) bool {
	return identPattern.MatchString(name)
}

// Tables names the node and edge tables. Empty fields mean the defaults.
type Tables struct {
	Nodes string
	Edges string
}

func (t Tables) withDefaults() Tables {
	if t.Nodes == "" {
		t.Nodes = DefaultNodesTable
	}
	if t.Edges == "" {
		t.Edges = DefaultEdgesTable
	}
	return t
}

// Validate checks that both table names are plain identifiers.
func (t Tables) Validate() error {
	for _, name := range []string{t.Nodes, t.Edges} {
		if !ValidIdent(name) {
			return fmt.Errorf("%w: %q", ErrInvalidTable, name)
		}
	}
	return nil
}

// NodeRow is one row of the nodes table. Data and Location hold decoded JSON
// (canonical values), the raw text when it isn't JSON, or nil for NULL.
type NodeRow struct {
	ID           string
	Type         sql.NullString
	OriginalType sql.NullString
	FilePath     sql.NullString
	Data         any
	Location     any
	SnapshotID   sql.NullString
	CreatedAt    sql.NullTime
	UpdatedAt    sql.NullTime
}

// EdgeRow is one row of the edges table.
type EdgeRow struct {
	ID         string
	FromID     string
	ToID       string
	Kind       sql.NullString
	FilePath   sql.NullString
	SnapshotID sql.NullString
	Version    sql.NullInt64
	CreatedAt  sql.NullTime
}
