package graphsnap

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/jward/graphsnap/internal/canonical"
	"github.com/jward/graphsnap/internal/graph"
)

// FormatVersion is the version of the persisted snapshot form.
const FormatVersion = 1

// Snapshot is a materialized, read-only view of one snapshot id: the sealed
// graph plus the node and edge records it was built from. Nodes are sorted by
// id and edges by (source, target, kind, serialized properties). Accessors
// return copies, so a Snapshot can be shared between goroutines.
type Snapshot struct {
	id        string
	graph     *Graph
	nodes     []Node
	edges     []Edge
	createdAt string
	source    string
}

func newSnapshot(id string, nodes []Node, edges []Edge, createdAt time.Time, source string) *Snapshot {
	nodes = graph.SortNodes(nodes)
	edges = graph.SortEdges(edges)
	return &Snapshot{
		id:        id,
		graph:     graph.Build(nodes, edges),
		nodes:     nodes,
		edges:     edges,
		createdAt: canonical.FormatTime(createdAt.UTC()),
		source:    source,
	}
}

// ID returns the snapshot id the snapshot was materialized from.
func (s *Snapshot) ID() string { return s.id }

// Graph returns the sealed graph. Each call returns its own handle, so
// overwriting the returned value leaves the snapshot untouched.
func (s *Snapshot) Graph() *Graph {
	if s.graph == nil {
		return nil
	}
	g := *s.graph
	return &g
}

// Nodes returns the node records sorted by id.
func (s *Snapshot) Nodes() []Node { return slices.Clone(s.nodes) }

// Edges returns the edge records in composite-key order.
func (s *Snapshot) Edges() []Edge { return slices.Clone(s.edges) }

// NodeCount returns the number of node records.
func (s *Snapshot) NodeCount() int { return len(s.nodes) }

// EdgeCount returns the number of edge records.
func (s *Snapshot) EdgeCount() int { return len(s.edges) }

// CreatedAt returns the ISO-8601 UTC time the snapshot was materialized.
func (s *Snapshot) CreatedAt() string { return s.createdAt }

// Source returns where the snapshot came from, SourceSQL for the store.
func (s *Snapshot) Source() string { return s.source }

// Equal reports whether s and other hold the same records, graph and
// metadata.
func (s *Snapshot) Equal(other *Snapshot) bool {
	if s == nil || other == nil {
		return s == other
	}
	a, err := json.Marshal(s)
	if err != nil {
		return false
	}
	b, err := json.Marshal(other)
	if err != nil {
		return false
	}
	return string(a) == string(b)
}

type snapshotJSON struct {
	Version    int          `json:"version"`
	SnapshotID string       `json:"snapshot_id"`
	CreatedAt  string       `json:"created_at"`
	Source     string       `json:"source"`
	Nodes      []Node       `json:"nodes"`
	Edges      []Edge       `json:"edges"`
	Graph      *graph.Graph `json:"graph"`
}

// MarshalJSON encodes the snapshot in its persisted form.
func (s *Snapshot) MarshalJSON() ([]byte, error) {
	nodes, edges := s.nodes, s.edges
	if nodes == nil {
		nodes = []Node{}
	}
	if edges == nil {
		edges = []Edge{}
	}
	return json.Marshal(snapshotJSON{
		Version:    FormatVersion,
		SnapshotID: s.id,
		CreatedAt:  s.createdAt,
		Source:     s.source,
		Nodes:      nodes,
		Edges:      edges,
		Graph:      s.graph,
	})
}

// UnmarshalJSON decodes the persisted form. The decoded graph is sealed. A
// snapshot that already holds a graph can't be overwritten.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	if s.graph != nil {
		return ErrFrozen
	}
	var wire snapshotJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	if wire.Version != FormatVersion {
		return fmt.Errorf("decode snapshot: unsupported format version %d", wire.Version)
	}
	if wire.Graph == nil {
		return errors.New("decode snapshot: missing graph")
	}
	*s = Snapshot{
		id:        wire.SnapshotID,
		graph:     wire.Graph,
		nodes:     wire.Nodes,
		edges:     wire.Edges,
		createdAt: wire.CreatedAt,
		source:    wire.Source,
	}
	return nil
}
