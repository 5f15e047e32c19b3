package graphsnap

import (
	"errors"

	"github.com/jward/graphsnap/internal/canonical"
	"github.com/jward/graphsnap/internal/graph"
	"github.com/jward/graphsnap/internal/store"
)

// Public type aliases for the internal graph, property and row types. These
// are Go type aliases (=), identical to the internal types at compile time.

type Graph = graph.Graph
type Builder = graph.Builder
type Node = graph.Node
type Edge = graph.Edge
type Properties = canonical.Map
type NodeRow = store.NodeRow
type EdgeRow = store.EdgeRow
type Store = store.Store

// Default table names.
const (
	DefaultNodesTable = store.DefaultNodesTable
	DefaultEdgesTable = store.DefaultEdgesTable
)

// SourceSQL tags snapshots materialized from the relational store.
const SourceSQL = "sql"

var (
	// ErrInvalidArgument is returned for a missing snapshot id or other bad
	// input, before any I/O happens.
	ErrInvalidArgument = errors.New("graphsnap: invalid argument")

	// ErrFrozen is returned by every structural mutation of a sealed graph.
	ErrFrozen = graph.ErrFrozen
)

// NewBuilder returns a Builder for an empty graph.
func NewBuilder() *Builder { return graph.NewBuilder() }

// BuildGraph sorts nodes by id and edges by their composite key, inserts them
// in that order and returns the sealed graph.
func BuildGraph(nodes []Node, edges []Edge) *Graph { return graph.Build(nodes, edges) }

// Canonicalize returns the canonical form of a property value: mappings with
// sorted keys, sequences with canonical items, and scalars with stable types.
func Canonicalize(v any) any { return canonical.Canonicalize(v) }

// StableSerialize renders v as compact, key-sorted, ASCII-only JSON. It never
// fails; values the codec can't encode fall back to their Go syntax form.
func StableSerialize(v any) string { return canonical.StableSerialize(v) }
