// Package graph provides the sealed directed multigraph that snapshots are
// built into.
//
// Construction is two-phase. A Builder accepts structural mutations; Seal
// hands back a *Graph, which has no mutation methods at all, and turns every
// later Builder mutation into ErrFrozen. Parallel edges between the same pair
// of nodes are kept, distinguished by their insertion order.
//
// A sealed Graph is never written to again, so any number of goroutines may
// read it without locking.
package graph

import (
	"errors"
	"sort"

	"github.com/jward/graphsnap/internal/canonical"
)

// ErrFrozen is returned by every structural mutation attempted after Seal.
var ErrFrozen = errors.New("graph: frozen graph can't be modified")

// ErrNotFound is returned when removing a node or edge that isn't present.
var ErrNotFound = errors.New("graph: not found")

// Node is a vertex and its attributes. Empty Kind or Label mean unset.
type Node struct {
	ID         string        `json:"id"`
	Kind       string        `json:"kind,omitempty"`
	Label      string        `json:"label,omitempty"`
	Properties canonical.Map `json:"properties"`
}

// Edge is a directed edge and its attributes. Empty Kind means unset.
type Edge struct {
	Source     string        `json:"source"`
	Target     string        `json:"target"`
	Kind       string        `json:"kind,omitempty"`
	Properties canonical.Map `json:"properties"`
}

// Graph is a read-only directed multigraph. The zero value is an empty graph
// that can only be populated by UnmarshalJSON.
type Graph struct {
	nodes  []Node
	index  map[string]int // node ID -> position in nodes
	edges  []Edge
	out    map[string][]int // node ID -> positions in edges
	in     map[string][]int
	sealed bool
}

func newGraph() *Graph {
	return &Graph{
		index: make(map[string]int),
		out:   make(map[string][]int),
		in:    make(map[string][]int),
	}
}

// Build sorts nodes with SortNodes and edges with SortEdges, inserts them in
// that order, and returns the sealed graph. Endpoints missing from nodes are
// added without attributes, as a multigraph does for add-edge on unknown nodes.
func Build(nodes []Node, edges []Edge) *Graph {
	g := newGraph()
	for _, n := range SortNodes(nodes) {
		g.addNode(n)
	}
	for _, e := range SortEdges(edges) {
		g.addEdge(e)
	}
	g.sealed = true
	return g
}

// SortNodes returns a copy of nodes ordered by ID. Equal IDs keep their
// relative order.
func SortNodes(nodes []Node) []Node {
	out := make([]Node, len(nodes))
	copy(out, nodes)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SortEdges returns a copy of edges ordered by the composite key
// (source, target, kind, stable serialization of properties).
func SortEdges(edges []Edge) []Edge {
	type keyed struct {
		edge  Edge
		props string
	}
	ks := make([]keyed, len(edges))
	for i, e := range edges {
		ks[i] = keyed{edge: e, props: canonical.StableSerialize(e.Properties)}
	}
	sort.SliceStable(ks, func(i, j int) bool {
		a, b := ks[i], ks[j]
		if a.edge.Source != b.edge.Source {
			return a.edge.Source < b.edge.Source
		}
		if a.edge.Target != b.edge.Target {
			return a.edge.Target < b.edge.Target
		}
		if a.edge.Kind != b.edge.Kind {
			return a.edge.Kind < b.edge.Kind
		}
		return a.props < b.props
	})
	out := make([]Edge, len(ks))
	for i, k := range ks {
		out[i] = k.edge
	}
	return out
}

// addNode inserts n, or replaces the attributes of an existing node with the
// same ID while keeping its position.
func (g *Graph) addNode(n Node) {
	if i, ok := g.index[n.ID]; ok {
		g.nodes[i] = n
		return
	}
	g.index[n.ID] = len(g.nodes)
	g.nodes = append(g.nodes, n)
}

// addEdge appends e, adding bare endpoints as needed, and returns its key
// among the parallel edges from e.Source to e.Target.
func (g *Graph) addEdge(e Edge) int {
	if _, ok := g.index[e.Source]; !ok {
		g.addNode(Node{ID: e.Source})
	}
	if _, ok := g.index[e.Target]; !ok {
		g.addNode(Node{ID: e.Target})
	}
	key := len(g.EdgesBetween(e.Source, e.Target))
	pos := len(g.edges)
	g.edges = append(g.edges, e)
	g.out[e.Source] = append(g.out[e.Source], pos)
	g.in[e.Target] = append(g.in[e.Target], pos)
	return key
}

// reindex rebuilds the lookup maps after a removal.
func (g *Graph) reindex() {
	g.index = make(map[string]int, len(g.nodes))
	for i, n := range g.nodes {
		g.index[n.ID] = i
	}
	g.out = make(map[string][]int)
	g.in = make(map[string][]int)
	for pos, e := range g.edges {
		g.out[e.Source] = append(g.out[e.Source], pos)
		g.in[e.Target] = append(g.in[e.Target], pos)
	}
}

// Sealed reports whether the graph has been sealed. Graphs obtained from
// Build, Builder.Seal or UnmarshalJSON always are.
func (g *Graph) Sealed() bool { return g.sealed }

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges, counting parallel edges separately.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// HasNode reports whether id is a node of g.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.index[id]
	return ok
}

// Node returns the node with the given ID.
func (g *Graph) Node(id string) (Node, bool) {
	i, ok := g.index[id]
	if !ok {
		return Node{}, false
	}
	return g.nodes[i], true
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// NodeIDs returns all node IDs in insertion order.
func (g *Graph) NodeIDs() []string {
	ids := make([]string, len(g.nodes))
	for i, n := range g.nodes {
		ids[i] = n.ID
	}
	return ids
}

// Edges returns all edges in insertion order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// OutEdges returns the edges leaving id, in insertion order.
func (g *Graph) OutEdges(id string) []Edge {
	return g.collect(g.out[id])
}

// InEdges returns the edges entering id, in insertion order.
func (g *Graph) InEdges(id string) []Edge {
	return g.collect(g.in[id])
}

// EdgesBetween returns the parallel edges from source to target. An edge's
// position in the result is its key.
func (g *Graph) EdgesBetween(source, target string) []Edge {
	var out []Edge
	for _, pos := range g.out[source] {
		if g.edges[pos].Target == target {
			out = append(out, g.edges[pos])
		}
	}
	return out
}

// HasEdge reports whether at least one edge runs from source to target.
func (g *Graph) HasEdge(source, target string) bool {
	for _, pos := range g.out[source] {
		if g.edges[pos].Target == target {
			return true
		}
	}
	return false
}

// Successors returns the distinct targets of edges leaving id, in the order
// they were first connected.
func (g *Graph) Successors(id string) []string {
	return distinct(g.out[id], func(pos int) string { return g.edges[pos].Target })
}

// Predecessors returns the distinct sources of edges entering id, in the
// order they were first connected.
func (g *Graph) Predecessors(id string) []string {
	return distinct(g.in[id], func(pos int) string { return g.edges[pos].Source })
}

func (g *Graph) collect(positions []int) []Edge {
	out := make([]Edge, len(positions))
	for i, pos := range positions {
		out[i] = g.edges[pos]
	}
	return out
}

func distinct(positions []int, pick func(int) string) []string {
	seen := make(map[string]bool, len(positions))
	var out []string
	for _, pos := range positions {
		id := pick(pos)
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
