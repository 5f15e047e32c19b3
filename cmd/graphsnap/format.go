package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/jward/graphsnap"
)

var (
	okColor    = color.New(color.FgGreen)
	alertColor = color.New(color.FgYellow, color.Bold)
)

// printSnapshotSummary writes the two result lines of one materialized
// snapshot.
func printSnapshotSummary(w io.Writer, r snapshotResult) {
	okColor.Fprintf(w, "Snapshot frozen with %d nodes and %d edges.\n", r.nodes, r.edges)
	fmt.Fprintf(w, "Wrote snapshot to %s\n", r.path)
}

// printAuditReport writes the bundle shape, the per-bucket node counts as
// aligned columns, and the verdict.
func printAuditReport(w io.Writer, b *graphsnap.TensorBundle, r *graphsnap.AuditReport) {
	fmt.Fprintf(w, "x: %d x %d\n", b.X.Rows, b.X.Cols)
	fmt.Fprintf(w, "edge_index: 2 x %d\n", b.EdgeIndex.Len())
	fmt.Fprintf(w, "node_mapping: %d ids\n", len(b.NodeMapping))
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "BUCKET\tLABEL\tNODES")
	for i, label := range graphsnap.BucketLabels {
		fmt.Fprintf(tw, "%d\t%s\t%d\n", i, label, r.BucketCounts[i])
	}
	tw.Flush()
	fmt.Fprintln(w)

	if r.AllOther {
		alertColor.Fprintln(w, "Alert: every node is in the Other bucket; node kinds did not match any known bucket.")
	}
	okColor.Fprintln(w, "Structure audit passed.")
}

// auditFailed reports a bundle that failed validation on stderr and marks the
// error as handled. Other errors are returned untouched.
func auditFailed(err error) error {
	var verr *graphsnap.ValidationError
	if !errors.As(err, &verr) {
		return err
	}
	errorHandled = true
	alertColor.Fprintf(os.Stderr, "Structure audit failed: %s\n", verr)
	return err
}
