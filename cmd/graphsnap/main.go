package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/jward/graphsnap"
	"github.com/jward/graphsnap/internal/config"
)

var (
	flagDSN         string
	flagConfig      string
	flagNodesTable  string
	flagEdgesTable  string
	flagVerbose     bool
	flagMetricsFile string
)

// errorHandled is set when a command already reported its failure so main()
// doesn't double-print.
var errorHandled bool

// Per-run state set up by the root command before any subcommand runs.
var (
	cfg      config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *graphsnap.Metrics
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:               "graphsnap",
	Short:             "Freeze AST graph snapshots and export them for model training",
	Long:              "Graphsnap reads the node and edge rows of a snapshot from a relational store, freezes them into an immutable graph, and exports the graph or its tensor bundle.",
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return writeMetrics()
	},
	// No Run; prints help by default.
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagDSN, "dsn", "", "store connection string (default: DATABASE_URL or DB_* variables)")
	pf.StringVar(&flagConfig, "config", "", "YAML config file")
	pf.StringVar(&flagNodesTable, "nodes-table", "", "node table name (default: AstNode)")
	pf.StringVar(&flagEdgesTable, "edges-table", "", "edge table name (default: GraphEdge)")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")
	pf.StringVar(&flagMetricsFile, "metrics-file", "", "write Prometheus metrics to this textfile on exit")

	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(bundleCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(archiveCmd)
}

// setup layers the config file, the environment and the flags, then builds
// the logger and metrics registry shared by every subcommand.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(flagConfig, os.Getenv)
	if err != nil {
		return err
	}
	if flagDSN != "" {
		cfg.DSN = flagDSN
	}
	if flagNodesTable != "" {
		cfg.NodesTable = flagNodesTable
	}
	if flagEdgesTable != "" {
		cfg.EdgesTable = flagEdgesTable
	}
	if flagVerbose {
		cfg.LogLevel = "debug"
	}
	if f := cmd.Flags().Lookup("jobs"); f != nil && f.Changed {
		cfg.Jobs = flagJobs
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %w", graphsnap.ErrInvalidArgument, err)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return err
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	registry = prometheus.NewRegistry()
	metrics = graphsnap.NewMetrics(registry)
	return nil
}

// materializeOptions returns the library options for the resolved config.
func materializeOptions() []graphsnap.Option {
	return []graphsnap.Option{
		graphsnap.WithDSN(cfg.ResolveDSN(os.Getenv)),
		graphsnap.WithNodesTable(cfg.NodesTable),
		graphsnap.WithEdgesTable(cfg.EdgesTable),
		graphsnap.WithLogger(logger),
		graphsnap.WithMetrics(metrics),
	}
}

func writeMetrics() error {
	if flagMetricsFile == "" || registry == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(flagMetricsFile, registry); err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}
	return nil
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return startDir
		}
		dir = parent
	}
}

// resolveOutputDir returns the directory snapshots are written to: the
// configured output dir, relative paths taken from the repo root, or
// .graphsnap/snapshots under the repo root.
func resolveOutputDir() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("resolving working directory: %w", err)
	}
	repoRoot := findRepoRoot(wd)
	if cfg.OutputDir != "" {
		if filepath.IsAbs(cfg.OutputDir) {
			return cfg.OutputDir, nil
		}
		return filepath.Join(repoRoot, cfg.OutputDir), nil
	}
	return filepath.Join(repoRoot, ".graphsnap", "snapshots"), nil
}
