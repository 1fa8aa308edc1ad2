// Package config is the root configuration tree for the ingestion core,
// following the teacher repo's idiom (cmd/tempo/app.Config): one struct
// per component, with defaults set by Default and flags registered for
// the whole tree by Config.RegisterFlags. Load does not validate values;
// the fail-fast startup check on chunk sizes is planner.ValidateStartup.
// Configuration is immutable for the process lifetime once Load returns
// (spec.md §5).
package config

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/vitalpipe/ingest/internal/model"
)

// Config is the root config for the ingestion process.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Batch      BatchConfig      `yaml:"batch"`
	Validation ValidationConfig `yaml:"validation"`
	Async      AsyncConfig      `yaml:"async"`
	Reconcile  ReconcileConfig  `yaml:"reconcile"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	HTTPListenAddr string `yaml:"http_listen_addr"`
}

// DatabaseConfig controls the pgx connection pool.
type DatabaseConfig struct {
	DSN         string `yaml:"dsn"`
	MaxConns    int32  `yaml:"max_conns"`
	StatementTimeoutSeconds int `yaml:"statement_timeout_seconds"`
}

// BatchConfig holds the BATCH_* keys from spec.md §6.3.
type BatchConfig struct {
	MaxRetries              int                     `yaml:"max_retries"`
	InitialBackoffMS        int                     `yaml:"initial_backoff_ms"`
	MaxBackoffMS            int                     `yaml:"max_backoff_ms"`
	EnableParallel          bool                    `yaml:"enable_parallel"`
	MaxParallelFamilies     int                     `yaml:"max_parallel_families"`
	ChunkSizeOverride       map[model.Family]int    `yaml:"chunk_size_override"`
	EnableProgressTracking  bool                    `yaml:"enable_progress_tracking"`
	EnableDeduplication     bool                    `yaml:"enable_deduplication"`
	BlockingPoolThreshold   int                     `yaml:"blocking_pool_threshold"`
}

// ValidationConfig holds the VALIDATION_<METRIC>_<MIN|MAX> keys.
type ValidationConfig struct {
	Bounds BoundsConfig `yaml:"bounds"`
}

// AsyncConfig holds the ASYNC_THRESHOLD_* routing keys.
type AsyncConfig struct {
	ThresholdBytes   int `yaml:"threshold_bytes"`
	ThresholdRecords int `yaml:"threshold_records"`
}

// ReconcileConfig holds the Status Reconciler's thresholds.
type ReconcileConfig struct {
	DataLossWarnPct              float64 `yaml:"data_loss_warn_pct"`
	DataLossErrorPct             float64 `yaml:"data_loss_error_pct"`
	SilentFailureAbsoluteTolerance int   `yaml:"silent_failure_absolute_tolerance"`
}

// Default returns the documented defaults from spec.md §6.3.
func Default() *Config {
	return &Config{
		Server: ServerConfig{HTTPListenAddr: ":8080"},
		Database: DatabaseConfig{
			DSN:                     "postgres://localhost:5432/vitalpipe",
			MaxConns:                10,
			StatementTimeoutSeconds: 30,
		},
		Batch: BatchConfig{
			MaxRetries:             3,
			InitialBackoffMS:       100,
			MaxBackoffMS:           5000,
			EnableParallel:         true,
			MaxParallelFamilies:    len(model.AllFamilies()),
			ChunkSizeOverride:      map[model.Family]int{},
			EnableProgressTracking: true,
			EnableDeduplication:    true,
			BlockingPoolThreshold:  2000,
		},
		Validation: ValidationConfig{Bounds: DefaultBounds()},
		Async: AsyncConfig{
			ThresholdBytes:   5 * 1024 * 1024,
			ThresholdRecords: 10000,
		},
		Reconcile: ReconcileConfig{
			DataLossWarnPct:                1.0,
			DataLossErrorPct:               5.0,
			SilentFailureAbsoluteTolerance: 50,
		},
	}
}

// RegisterFlags wires the scalar fields above onto f, POSIX-style,
// matching the teacher's RegisterFlagsAndApplyDefaults idiom. Per-family
// chunk-size overrides and validation bounds have no flags; they are set
// only through the YAML file.
func (c *Config) RegisterFlags(f *pflag.FlagSet) {
	f.StringVar(&c.Server.HTTPListenAddr, "server.http-listen-addr", c.Server.HTTPListenAddr, "HTTP listen address")
	f.StringVar(&c.Database.DSN, "database.dsn", c.Database.DSN, "Postgres connection string")
	f.Int32Var(&c.Database.MaxConns, "database.max-conns", c.Database.MaxConns, "Max pooled connections")
	f.IntVar(&c.Database.StatementTimeoutSeconds, "database.statement-timeout-seconds", c.Database.StatementTimeoutSeconds, "Per-chunk statement timeout")

	f.IntVar(&c.Batch.MaxRetries, "batch.max-retries", c.Batch.MaxRetries, "Per-chunk retry ceiling")
	f.IntVar(&c.Batch.InitialBackoffMS, "batch.initial-backoff-ms", c.Batch.InitialBackoffMS, "Initial retry backoff")
	f.IntVar(&c.Batch.MaxBackoffMS, "batch.max-backoff-ms", c.Batch.MaxBackoffMS, "Max retry backoff")
	f.BoolVar(&c.Batch.EnableParallel, "batch.enable-parallel", c.Batch.EnableParallel, "Process families in parallel")
	f.IntVar(&c.Batch.MaxParallelFamilies, "batch.max-parallel-families", c.Batch.MaxParallelFamilies, "Bounded concurrency limit across families")
	f.BoolVar(&c.Batch.EnableProgressTracking, "batch.enable-progress-tracking", c.Batch.EnableProgressTracking, "Chunk-level progress tracking switch; no component reads it and no progress events are emitted")
	f.BoolVar(&c.Batch.EnableDeduplication, "batch.enable-deduplication", c.Batch.EnableDeduplication, "Enable intra-batch deduplication")
	f.IntVar(&c.Batch.BlockingPoolThreshold, "batch.blocking-pool-threshold", c.Batch.BlockingPoolThreshold, "Per-family record count above which validation runs on the blocking pool; grouping always runs inline")

	f.Float64Var(&c.Reconcile.DataLossWarnPct, "reconcile.data-loss-warn-pct", c.Reconcile.DataLossWarnPct, "Loss percentage that triggers partial_success")
	f.Float64Var(&c.Reconcile.DataLossErrorPct, "reconcile.data-loss-error-pct", c.Reconcile.DataLossErrorPct, "Loss percentage that triggers error")
	f.IntVar(&c.Reconcile.SilentFailureAbsoluteTolerance, "reconcile.silent-failure-absolute-tolerance", c.Reconcile.SilentFailureAbsoluteTolerance, "Absolute row-count tolerance before treating loss as silent failure")

	f.IntVar(&c.Async.ThresholdBytes, "async.threshold-bytes", c.Async.ThresholdBytes, "Payload byte size above which ingestion is deferred")
	f.IntVar(&c.Async.ThresholdRecords, "async.threshold-records", c.Async.ThresholdRecords, "Record count above which ingestion is deferred")
}

// Load builds a Config from defaults, an optional YAML file, and CLI
// flags, in that order of precedence (flags win). It returns an error if
// the file can't be read/parsed; callers should treat this as fatal.
func Load(args []string, yamlPath string) (*Config, error) {
	cfg := Default()

	if yamlPath != "" {
		data, err := os.ReadFile(yamlPath)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", yamlPath, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", yamlPath, err)
		}
	}

	f := pflag.NewFlagSet("vitalpipe", pflag.ContinueOnError)
	cfg.RegisterFlags(f)
	if err := f.Parse(args); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	return cfg, nil
}
