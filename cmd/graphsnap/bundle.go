package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jward/graphsnap"
)

var flagBundleOutput string

var bundleCmd = &cobra.Command{
	Use:   "bundle <snapshot-id>",
	Short: "Materialize a snapshot and save its tensor bundle",
	Long:  "Runs the export pipeline: materializes the snapshot, derives the node mapping, edge index and feature matrix, and saves them as one JSON bundle.",
	Args:  cobra.ExactArgs(1),
	RunE:  runBundle,
}

func init() {
	bundleCmd.Flags().StringVarP(&flagBundleOutput, "output", "o", "", "bundle file (default: <output-dir>/<id>.bundle.json)")
}

func runBundle(cmd *cobra.Command, args []string) error {
	id := args[0]
	path := flagBundleOutput
	if path == "" {
		dir, err := resolveOutputDir()
		if err != nil {
			return err
		}
		path = filepath.Join(dir, id+".bundle.json")
	}

	b, err := graphsnap.RunExportPipeline(cmd.Context(), id, path, materializeOptions()...)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Bundle with %d nodes and %d edges.\n", b.X.Rows, b.EdgeIndex.Len())
	fmt.Fprintf(os.Stdout, "Wrote bundle to %s\n", path)
	return nil
}

var auditCmd = &cobra.Command{
	Use:   "audit <bundle-path>",
	Short: "Check the feature matrix of a saved tensor bundle",
	Args:  cobra.ExactArgs(1),
	RunE:  runAudit,
}

func runAudit(cmd *cobra.Command, args []string) error {
	b, err := graphsnap.LoadTensorBundle(args[0])
	if err != nil {
		return auditFailed(err)
	}
	report, err := graphsnap.AuditBundle(b)
	if err != nil {
		return auditFailed(err)
	}
	printAuditReport(os.Stdout, b, report)
	return nil
}
