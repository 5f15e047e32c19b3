// Package graphsnap exports point-in-time snapshots of a code-structure graph
// from the relational store that holds it into an immutable, deterministically
// ordered in-memory graph, and persists those snapshots for feature
// extraction.
//
// # Pipeline
//
// A snapshot is materialized in four steps:
//
//  1. Load: open one store connection, read the node rows of the snapshot
//     ordered by id and the edge rows ordered by (fromId, toId, kind), and
//     close the connection.
//
//  2. Canonicalize: map every row to a [Node] or [Edge] whose properties are
//     a canonical ordered map, with nested keys sorted at every level.
//
//  3. Build: insert nodes sorted by id and edges sorted by the composite key
//     (source, target, kind, serialized properties) into a multigraph and
//     seal it.
//
//  4. Wrap: hold the sealed [Graph] and the sorted records in a [Snapshot]
//     stamped with its creation time and source.
//
// Materializing the same snapshot id against unchanged rows always yields the
// same nodes, edges and graph.
//
// # Usage
//
//	ctx := context.Background()
//	snap, err := graphsnap.Materialize(ctx, "snap-42",
//		graphsnap.WithDSN("postgres://localhost/graph?schema=public"))
//	if err != nil { ... }
//
//	path, err := graphsnap.Export(snap, "out/snap-42.json")
//	bundle, err := graphsnap.BuildTensorBundle(snap)
//
// # Immutability
//
// A sealed [Graph] has no mutation methods. The builder that produced it
// reports [ErrFrozen] for every structural change attempted after sealing, and
// decoding a persisted snapshot yields a sealed graph again. Sealed graphs are
// safe for any number of concurrent readers.
package graphsnap
