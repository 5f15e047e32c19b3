package graphsnap

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"
)

// FeatureColumns is the width of the node feature matrix.
const FeatureColumns = 6

// OtherBucket is the feature column for kinds outside KindBuckets.
const OtherBucket = 5

// BucketLabels names the feature columns in order.
var BucketLabels = [FeatureColumns]string{"Container", "Logic", "Data", "Ref", "Statement", "Other"}

// KindBuckets maps node kinds to their feature column. Kinds not listed,
// including an empty kind, fall into OtherBucket.
var KindBuckets = map[string]int{
	"Module":              0,
	"Block":               0,
	"Function":            1,
	"Conditional":         1,
	"Loop":                1,
	"Return":              1,
	"Variable":            2,
	"Parameter":           2,
	"Assignment":          2,
	"Literal":             2,
	"Call":                3,
	"MemberExpression":    3,
	"Identifier":          3,
	"ExpressionStatement": 4,
	"Import":              4,
	"Unknown":             5,
}

// KindBucket returns the feature column of kind.
func KindBucket(kind string) int {
	if b, ok := KindBuckets[kind]; ok {
		return b
	}
	return OtherBucket
}

// ValidationError reports a tensor bundle whose parts don't line up.
type ValidationError struct {
	// MissingIDs are in the node mapping but not among the nodes.
	MissingIDs []string
	// ExtraIDs are among the nodes but not in the node mapping.
	ExtraIDs []string
	// MissingKeys are required keys absent from a persisted bundle.
	MissingKeys []string
	// Detail describes any other shape problem.
	Detail string
}

func (e *ValidationError) Error() string {
	switch {
	case len(e.MissingKeys) > 0:
		return fmt.Sprintf("tensor bundle is missing required keys %v", e.MissingKeys)
	case len(e.MissingIDs) > 0 || len(e.ExtraIDs) > 0:
		var parts []string
		if len(e.MissingIDs) > 0 {
			parts = append(parts, fmt.Sprintf("missing %d node ids from nodes list: %v", len(e.MissingIDs), e.MissingIDs))
		}
		if len(e.ExtraIDs) > 0 {
			parts = append(parts, fmt.Sprintf("found %d node ids not present in node mapping: %v", len(e.ExtraIDs), e.ExtraIDs))
		}
		return "nodes and node mapping must cover the same ids (" + strings.Join(parts, "; ") + ")"
	default:
		return "invalid tensor bundle: " + e.Detail
	}
}

// Matrix is a dense row-major float32 matrix.
type Matrix struct {
	Rows int
	Cols int
	Data []float32
}

// NewMatrix returns a zeroed rows×cols matrix.
func NewMatrix(rows, cols int) *Matrix {
	return &Matrix{Rows: rows, Cols: cols, Data: make([]float32, rows*cols)}
}

// At returns the element at row i, column j.
func (m *Matrix) At(i, j int) float32 { return m.Data[i*m.Cols+j] }

// Set stores v at row i, column j.
func (m *Matrix) Set(i, j int, v float32) { m.Data[i*m.Cols+j] = v }

// Row returns a copy of row i.
func (m *Matrix) Row(i int) []float32 {
	return slices.Clone(m.Data[i*m.Cols : (i+1)*m.Cols])
}

// MarshalJSON encodes the matrix as a list of rows.
func (m *Matrix) MarshalJSON() ([]byte, error) {
	rows := make([][]float32, m.Rows)
	for i := range rows {
		rows[i] = m.Data[i*m.Cols : (i+1)*m.Cols]
	}
	return json.Marshal(rows)
}

// UnmarshalJSON decodes a list of equally wide rows.
func (m *Matrix) UnmarshalJSON(data []byte) error {
	var rows [][]float32
	if err := json.Unmarshal(data, &rows); err != nil {
		return err
	}
	out := Matrix{Rows: len(rows)}
	if len(rows) > 0 {
		out.Cols = len(rows[0])
	}
	out.Data = make([]float32, 0, out.Rows*out.Cols)
	for i, r := range rows {
		if len(r) != out.Cols {
			return &ValidationError{Detail: fmt.Sprintf("row %d has %d columns, want %d", i, len(r), out.Cols)}
		}
		out.Data = append(out.Data, r...)
	}
	*m = out
	return nil
}

// EdgeIndex is a coordinate list of edges: row 0 holds source indices and
// row 1 target indices.
type EdgeIndex [2][]int64

// Len returns the number of edges.
func (e EdgeIndex) Len() int { return len(e[0]) }

// MarshalJSON always encodes two lists, even for a graph without edges.
func (e EdgeIndex) MarshalJSON() ([]byte, error) {
	rows := [2][]int64{e[0], e[1]}
	for i := range rows {
		if rows[i] == nil {
			rows[i] = []int64{}
		}
	}
	return json.Marshal(rows)
}

// NodeMapping assigns indices 0..N-1 to the graph's node ids in ascending
// lexicographic order.
func NodeMapping(g *Graph) map[string]int {
	ids := g.NodeIDs()
	sort.Strings(ids)
	mapping := make(map[string]int, len(ids))
	for i, id := range ids {
		mapping[id] = i
	}
	return mapping
}

// BuildEdgeIndex translates the graph's edges, in graph order, into mapping
// indices.
func BuildEdgeIndex(g *Graph, mapping map[string]int) (EdgeIndex, error) {
	edges := g.Edges()
	idx := EdgeIndex{make([]int64, 0, len(edges)), make([]int64, 0, len(edges))}
	for _, e := range edges {
		src, ok := mapping[e.Source]
		if !ok {
			return EdgeIndex{}, &ValidationError{ExtraIDs: []string{e.Source}}
		}
		dst, ok := mapping[e.Target]
		if !ok {
			return EdgeIndex{}, &ValidationError{ExtraIDs: []string{e.Target}}
		}
		idx[0] = append(idx[0], int64(src))
		idx[1] = append(idx[1], int64(dst))
	}
	return idx, nil
}

// FeatureMatrix builds the len(mapping)×6 one-hot matrix of node kind
// buckets. The node ids and the mapping must cover exactly the same ids.
func FeatureMatrix(nodes []Node, mapping map[string]int) (*Matrix, error) {
	if err := validateNodeSet(nodes, mapping); err != nil {
		return nil, err
	}
	x := NewMatrix(len(mapping), FeatureColumns)
	for _, n := range nodes {
		x.Set(mapping[n.ID], KindBucket(n.Kind), 1)
	}
	return x, nil
}

func validateNodeSet(nodes []Node, mapping map[string]int) error {
	seen := make(map[string]bool, len(nodes))
	var extra []string
	for _, n := range nodes {
		if seen[n.ID] {
			continue
		}
		seen[n.ID] = true
		if _, ok := mapping[n.ID]; !ok {
			extra = append(extra, n.ID)
		}
	}
	var missing []string
	for id := range mapping {
		if !seen[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 && len(extra) == 0 {
		return nil
	}
	sort.Strings(missing)
	sort.Strings(extra)
	return &ValidationError{MissingIDs: missing, ExtraIDs: extra}
}

// TensorBundle is the model-facing form of a snapshot.
type TensorBundle struct {
	X           *Matrix        `json:"x"`
	EdgeIndex   EdgeIndex      `json:"edge_index"`
	NodeMapping map[string]int `json:"node_mapping"`
}

// BuildTensorBundle derives the node mapping, edge index and feature matrix
// of s.
func BuildTensorBundle(s *Snapshot) (*TensorBundle, error) {
	mapping := NodeMapping(s.graph)
	x, err := FeatureMatrix(s.nodes, mapping)
	if err != nil {
		return nil, err
	}
	idx, err := BuildEdgeIndex(s.graph, mapping)
	if err != nil {
		return nil, err
	}
	return &TensorBundle{X: x, EdgeIndex: idx, NodeMapping: mapping}, nil
}

// SaveTensorBundle writes b to path as JSON with the keys x, edge_index and
// node_mapping, creating parent directories as needed.
func SaveTensorBundle(b *TensorBundle, path string) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encode tensor bundle: %w", err)
	}
	return writeFileAtomic(path, data)
}

var requiredBundleKeys = []string{"x", "edge_index", "node_mapping"}

// LoadTensorBundle reads a bundle written by SaveTensorBundle. A bundle
// missing a required key, or whose parts disagree in size, fails with a
// *ValidationError. A bundle without nodes loads with a 0×6 matrix.
func LoadTensorBundle(path string) (*TensorBundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tensor bundle: %w", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode tensor bundle %s: %w", path, err)
	}
	var missing []string
	for _, key := range requiredBundleKeys {
		if _, ok := raw[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, &ValidationError{MissingKeys: missing}
	}

	b := &TensorBundle{X: &Matrix{}}
	if err := json.Unmarshal(raw["x"], b.X); err != nil {
		return nil, fmt.Errorf("decode x: %w", err)
	}
	if b.X.Rows == 0 {
		// An empty list of rows carries no width.
		b.X.Cols = FeatureColumns
	}
	if err := json.Unmarshal(raw["edge_index"], &b.EdgeIndex); err != nil {
		return nil, fmt.Errorf("decode edge_index: %w", err)
	}
	if err := json.Unmarshal(raw["node_mapping"], &b.NodeMapping); err != nil {
		return nil, fmt.Errorf("decode node_mapping: %w", err)
	}
	if err := b.check(); err != nil {
		return nil, err
	}
	return b, nil
}

// check verifies that the parts of b agree in size.
func (b *TensorBundle) check() error {
	if b.X.Rows != len(b.NodeMapping) {
		return &ValidationError{Detail: fmt.Sprintf("x has %d rows but node_mapping has %d ids", b.X.Rows, len(b.NodeMapping))}
	}
	if len(b.EdgeIndex[0]) != len(b.EdgeIndex[1]) {
		return &ValidationError{Detail: fmt.Sprintf("edge_index rows differ in length (%d and %d)", len(b.EdgeIndex[0]), len(b.EdgeIndex[1]))}
	}
	n := int64(len(b.NodeMapping))
	for _, row := range b.EdgeIndex {
		for _, i := range row {
			if i < 0 || i >= n {
				return &ValidationError{Detail: fmt.Sprintf("edge_index refers to node %d outside 0..%d", i, n-1)}
			}
		}
	}
	return nil
}
