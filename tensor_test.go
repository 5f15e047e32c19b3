package graphsnap

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func materializeRows(t *testing.T, nodes []NodeRow, edges []EdgeRow) *Snapshot {
	t.Helper()
	conn := &fakeConn{nodes: nodes, edges: edges}
	snap, err := Materialize(context.Background(), "snap", WithOpener(conn.opener()), WithClock(fixedClock))
	require.NoError(t, err)
	return snap
}

// =============================================================================
// Buckets
// =============================================================================

func TestKindBucket(t *testing.T) {
	t.Parallel()
	tests := []struct {
		kind string
		want int
	}{
		{"Module", 0}, {"Block", 0},
		{"Function", 1}, {"Conditional", 1}, {"Loop", 1}, {"Return", 1},
		{"Variable", 2}, {"Parameter", 2}, {"Assignment", 2}, {"Literal", 2},
		{"Call", 3}, {"MemberExpression", 3}, {"Identifier", 3},
		{"ExpressionStatement", 4}, {"Import", 4},
		{"Unknown", 5}, {"ClassDeclaration", 5}, {"", 5}, {"function", 5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, KindBucket(tt.kind), "kind %q", tt.kind)
	}
}

// =============================================================================
// Bundle derivation
// =============================================================================

func TestBuildTensorBundle_TwoNodes(t *testing.T) {
	t.Parallel()
	snap := materializeRows(t,
		[]NodeRow{nodeRow("b", "Call"), nodeRow("a", "Function")},
		[]EdgeRow{edgeRow("e1", "a", "b", "IMPORT"), edgeRow("e2", "b", "a", "CALL")},
	)

	b, err := BuildTensorBundle(snap)
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"a": 0, "b": 1}, b.NodeMapping)
	assert.Equal(t, EdgeIndex{{0, 1}, {1, 0}}, b.EdgeIndex)
	require.Equal(t, 2, b.X.Rows)
	require.Equal(t, FeatureColumns, b.X.Cols)
	assert.Equal(t, []float32{0, 1, 0, 0, 0, 0}, b.X.Row(0))
	assert.Equal(t, []float32{0, 0, 0, 1, 0, 0}, b.X.Row(1))
}

func TestBuildTensorBundle_IsolatedNode(t *testing.T) {
	t.Parallel()
	snap := materializeRows(t, []NodeRow{nodeRow("solo", "Module")}, nil)

	b, err := BuildTensorBundle(snap)
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"solo": 0}, b.NodeMapping)
	assert.Zero(t, b.EdgeIndex.Len())
	assert.Equal(t, 1, b.X.Rows)
	assert.Equal(t, []float32{1, 0, 0, 0, 0, 0}, b.X.Row(0))

	data, err := json.Marshal(b.EdgeIndex)
	require.NoError(t, err)
	assert.JSONEq(t, `[[],[]]`, string(data))
}

func TestBuildTensorBundle_EmptySnapshot(t *testing.T) {
	t.Parallel()
	b, err := BuildTensorBundle(materializeRows(t, nil, nil))
	require.NoError(t, err)
	assert.Empty(t, b.NodeMapping)
	assert.Zero(t, b.X.Rows)
	assert.Zero(t, b.EdgeIndex.Len())
}

func TestBuildTensorBundle_UnsetKindIsOther(t *testing.T) {
	t.Parallel()
	b, err := BuildTensorBundle(materializeRows(t, []NodeRow{nodeRow("a", "")}, nil))
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 0, 0, 0, 1}, b.X.Row(0))
}

func TestBuildTensorBundle_Ring(t *testing.T) {
	t.Parallel()
	var nodes []NodeRow
	var edges []EdgeRow
	for i := range 100 {
		nodes = append(nodes, nodeRow(fmt.Sprintf("node_%d", i), "Variable"))
	}
	for i := range 150 {
		edges = append(edges, edgeRow(fmt.Sprintf("e%d", i),
			fmt.Sprintf("node_%d", i%100), fmt.Sprintf("node_%d", (i*7+3)%100), "FLOW"))
	}
	snap := materializeRows(t, nodes, edges)

	b, err := BuildTensorBundle(snap)
	require.NoError(t, err)
	require.Len(t, b.NodeMapping, 100)
	require.Equal(t, 150, b.EdgeIndex.Len())
	assert.Equal(t, 100, b.X.Rows)

	// Indices follow lexicographic id order, not numeric.
	assert.Equal(t, 0, b.NodeMapping["node_0"])
	assert.Equal(t, 1, b.NodeMapping["node_1"])
	assert.Equal(t, 2, b.NodeMapping["node_10"])

	for k, e := range snap.Graph().Edges() {
		assert.Equal(t, int64(b.NodeMapping[e.Source]), b.EdgeIndex[0][k])
		assert.Equal(t, int64(b.NodeMapping[e.Target]), b.EdgeIndex[1][k])
	}
	for i := range b.X.Rows {
		assert.Equal(t, float32(1), b.X.At(i, 2))
	}
}

// =============================================================================
// Feature matrix validation
// =============================================================================

func TestFeatureMatrix_MismatchedIDs(t *testing.T) {
	t.Parallel()
	nodes := []Node{{ID: "a"}, {ID: "x"}, {ID: "w"}}
	mapping := map[string]int{"a": 0, "b": 1, "c": 2}

	_, err := FeatureMatrix(nodes, mapping)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"b", "c"}, verr.MissingIDs)
	assert.Equal(t, []string{"w", "x"}, verr.ExtraIDs)
	assert.Contains(t, err.Error(), "missing 2 node ids from nodes list: [b c]")
	assert.Contains(t, err.Error(), "found 2 node ids not present in node mapping: [w x]")
}

func TestFeatureMatrix_OnlyMissing(t *testing.T) {
	t.Parallel()
	_, err := FeatureMatrix([]Node{{ID: "a"}}, map[string]int{"a": 0, "b": 1})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, verr.ExtraIDs)
	assert.NotContains(t, err.Error(), "not present in node mapping")
}

func TestBuildEdgeIndex_UnmappedEndpoint(t *testing.T) {
	t.Parallel()
	g := BuildGraph([]Node{{ID: "a"}, {ID: "b"}}, []Edge{{Source: "a", Target: "b"}})
	_, err := BuildEdgeIndex(g, map[string]int{"a": 0})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"b"}, verr.ExtraIDs)
}

// =============================================================================
// Persistence
// =============================================================================

func TestTensorBundle_SaveLoad(t *testing.T) {
	t.Parallel()
	snap := materializeRows(t,
		[]NodeRow{nodeRow("a", "Function"), nodeRow("b", "Import"), nodeRow("c", "")},
		[]EdgeRow{edgeRow("e1", "a", "b", "IMPORT"), edgeRow("e2", "a", "c", "CALL")},
	)
	b, err := BuildTensorBundle(snap)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out", "nested", "bundle.json")
	require.NoError(t, SaveTensorBundle(b, path))

	got, err := LoadTensorBundle(path)
	require.NoError(t, err)
	assert.Equal(t, b.NodeMapping, got.NodeMapping)
	assert.Equal(t, b.EdgeIndex, got.EdgeIndex)
	assert.Equal(t, b.X, got.X)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var keys map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &keys))
	assert.Len(t, keys, 3)
	assert.Contains(t, keys, "x")
	assert.Contains(t, keys, "edge_index")
	assert.Contains(t, keys, "node_mapping")
}

func TestTensorBundle_EmptySaveLoadAudits(t *testing.T) {
	t.Parallel()
	b, err := BuildTensorBundle(materializeRows(t, nil, nil))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "empty.bundle.json")
	require.NoError(t, SaveTensorBundle(b, path))

	got, err := LoadTensorBundle(path)
	require.NoError(t, err)
	assert.Zero(t, got.X.Rows)
	assert.Equal(t, FeatureColumns, got.X.Cols)

	report, err := AuditBundle(got)
	require.NoError(t, err)
	assert.Zero(t, report.Rows)
	assert.False(t, report.AllOther)
}

func TestLoadTensorBundle_Invalid(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing keys", `{"x":[[1,0,0,0,0,0]]}`, "missing required keys [edge_index node_mapping]"},
		{"row mismatch", `{"x":[[1,0,0,0,0,0],[0,1,0,0,0,0]],"edge_index":[[],[]],"node_mapping":{"a":0}}`, "x has 2 rows but node_mapping has 1 ids"},
		{"ragged edge index", `{"x":[[1,0,0,0,0,0]],"edge_index":[[0],[]],"node_mapping":{"a":0}}`, "edge_index rows differ"},
		{"index out of range", `{"x":[[1,0,0,0,0,0]],"edge_index":[[0],[3]],"node_mapping":{"a":0}}`, "outside 0..0"},
		{"ragged x", `{"x":[[1,0,0,0,0,0],[1]],"edge_index":[[],[]],"node_mapping":{"a":0,"b":1}}`, "row 1 has 1 columns"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "bundle.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o644))

			_, err := LoadTensorBundle(path)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadTensorBundle_MissingFile(t *testing.T) {
	t.Parallel()
	_, err := LoadTensorBundle(filepath.Join(t.TempDir(), "nope.json"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

// =============================================================================
// Pipeline
// =============================================================================

func TestRunExportPipeline(t *testing.T) {
	t.Parallel()
	dsn := newSeededDSN(t,
		[]NodeRow{nodeRow("a", "Function"), nodeRow("b", "Call")},
		[]EdgeRow{edgeRow("e1", "a", "b", "CALL")},
	)
	out := filepath.Join(t.TempDir(), "bundle.json")

	b, err := RunExportPipeline(context.Background(), "snap", out, WithDSN(dsn))
	require.NoError(t, err)
	assert.Equal(t, EdgeIndex{{0}, {1}}, b.EdgeIndex)

	loaded, err := LoadTensorBundle(out)
	require.NoError(t, err)
	assert.Equal(t, b.NodeMapping, loaded.NodeMapping)
}

func TestRunExportPipeline_RequiresOutputPath(t *testing.T) {
	t.Parallel()
	opened := false
	_, err := RunExportPipeline(context.Background(), "snap", "",
		WithOpener(func(context.Context, string) (Conn, error) {
			opened = true
			return &fakeConn{}, nil
		}))
	require.ErrorIs(t, err, ErrInvalidArgument)
	assert.False(t, opened)
}

func TestRunExportPipeline_PropagatesLoadFailure(t *testing.T) {
	t.Parallel()
	out := filepath.Join(t.TempDir(), "bundle.json")
	conn := &fakeConn{edgesErr: fmt.Errorf("no such table")}
	_, err := RunExportPipeline(context.Background(), "snap", out, WithOpener(conn.opener()))
	require.Error(t, err)
	assert.NoFileExists(t, out)
}
