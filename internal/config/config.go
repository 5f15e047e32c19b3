// Package config resolves graphsnap settings. Values come from built-in
// defaults, then an optional YAML file, then the environment; the CLI applies
// its flags last and calls Validate.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/jward/graphsnap/internal/store"
)

// Config holds every tunable of a graphsnap run.
type Config struct {
	// DSN overrides the connection resolved from the environment.
	DSN        string `yaml:"dsn"`
	NodesTable string `yaml:"nodes_table" validate:"required,sqlident"`
	EdgesTable string `yaml:"edges_table" validate:"required,sqlident"`
	// OutputDir is where snapshots go when no explicit path is given. Empty
	// means <repo-root>/.graphsnap/snapshots.
	OutputDir  string `yaml:"output_dir"`
	ArchiveDir string `yaml:"archive_dir"`
	Jobs       int    `yaml:"jobs" validate:"gte=1,lte=64"`
	LogLevel   string `yaml:"log_level" validate:"oneof=debug info warn error"`
}

// Environment variables read by Load.
const (
	EnvNodesTable = "GRAPHSNAP_NODES_TABLE"
	EnvEdgesTable = "GRAPHSNAP_EDGES_TABLE"
	EnvOutputDir  = "GRAPHSNAP_OUTPUT_DIR"
	EnvArchiveDir = "GRAPHSNAP_ARCHIVE_DIR"
	EnvJobs       = "GRAPHSNAP_JOBS"
	EnvLogLevel   = "GRAPHSNAP_LOG_LEVEL"
	EnvDSN        = "GRAPHSNAP_DSN"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("sqlident", func(fl validator.FieldLevel) bool {
		return store.ValidIdent(fl.Field().String())
	})
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		NodesTable: store.DefaultNodesTable,
		EdgesTable: store.DefaultEdgesTable,
		Jobs:       4,
		LogLevel:   "info",
	}
}

// Load layers the YAML file at path (skipped when empty) and then the
// environment over Default. getenv is usually os.Getenv.
func Load(path string, getenv func(string) string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(getenv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	for env, dst := range map[string]*string{
		EnvDSN:        &c.DSN,
		EnvNodesTable: &c.NodesTable,
		EnvEdgesTable: &c.EdgesTable,
		EnvOutputDir:  &c.OutputDir,
		EnvArchiveDir: &c.ArchiveDir,
		EnvLogLevel:   &c.LogLevel,
	} {
		if v := getenv(env); v != "" {
			*dst = v
		}
	}
	if v := getenv(EnvJobs); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvJobs, err)
		}
		c.Jobs = n
	}
	return nil
}

// Validate checks the settings after every layer has been applied.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ResolveDSN returns the connection string for a run: c.DSN when set, then
// DATABASE_URL, then a PostgreSQL URL assembled from DB_HOST, DB_PORT,
// DB_NAME, DB_USER and DB_PASSWORD.
func (c Config) ResolveDSN(getenv func(string) string) string {
	if c.DSN != "" {
		return c.DSN
	}
	return ResolveDSN(getenv)
}

// ResolveDSN builds the connection string from the environment alone.
func ResolveDSN(getenv func(string) string) string {
	if dsn := getenv("DATABASE_URL"); dsn != "" {
		return dsn
	}
	or := func(key, def string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return def
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(or("DB_HOST", "localhost"), or("DB_PORT", "5432")),
		Path:   "/" + or("DB_NAME", "postgres"),
	}
	user := or("DB_USER", "postgres")
	if pw := getenv("DB_PASSWORD"); pw != "" {
		u.User = url.UserPassword(user, pw)
	} else {
		u.User = url.User(user)
	}
	return u.String()
}
