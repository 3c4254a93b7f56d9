package config

import "time"

// Config is the root configuration structure for the pricelist tools.
// It locates the rule documents, bounds the extraction engine, describes
// the input files, and configures the audit store and telemetry.
type Config struct {
	// Rules locates the rule documents, either on disk or in a git repository.
	Rules RulesConfig `yaml:"rules"`

	// Engine contains the extraction engine limits.
	Engine EngineConfig `yaml:"engine"`

	// Input describes how supplier files are read by the CLI.
	Input InputConfig `yaml:"input"`

	// Audit contains configuration for persisted evaluation traces.
	Audit AuditConfig `yaml:"audit"`

	// Telemetry contains configuration for logging, metrics, and tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// RulesConfig contains configuration for loading rule documents.
type RulesConfig struct {
	// Source selects where rule documents come from.
	// Options: "file", "git"
	// Default: "file"
	Source string `yaml:"source"`

	// FilePath is a rule document or a directory of documents (source: file).
	// Default: "./rules"
	FilePath string `yaml:"file_path"`

	// MaxFileSize is the largest accepted rule document in bytes.
	// Default: 1MB
	MaxFileSize int64 `yaml:"max_file_size"`

	// Git contains repository settings (source: git).
	Git GitConfig `yaml:"git"`
}

// GitConfig contains configuration for a rules repository.
type GitConfig struct {
	// Repository is the clone URL (https:// or git@).
	Repository string `yaml:"repository"`

	// Branch to check out.
	// Default: "main"
	Branch string `yaml:"branch"`

	// Path is the document or directory inside the repository.
	// Default: "rules"
	Path string `yaml:"path"`

	// LocalPath is where the repository is cloned.
	// Default: "data/rules-repo"
	LocalPath string `yaml:"local_path"`

	// Depth limits clone history; 0 means full history.
	// Default: 1
	Depth int `yaml:"depth"`

	// Timeout bounds a clone or pull.
	// Default: 60s
	Timeout time.Duration `yaml:"timeout"`

	// Auth contains repository credentials.
	Auth GitAuthConfig `yaml:"auth"`
}

// GitAuthConfig contains credentials for a rules repository.
type GitAuthConfig struct {
	// Type is the authentication method.
	// Options: "none", "token", "ssh"
	// Default: "none"
	Type string `yaml:"type"`

	// TokenEnv names the environment variable holding an access token.
	TokenEnv string `yaml:"token_env"`

	// SSHKeyPath is the private key used for ssh authentication.
	SSHKeyPath string `yaml:"ssh_key_path"`

	// SSHKeyPassphraseEnv names the environment variable holding the key passphrase.
	SSHKeyPassphraseEnv string `yaml:"ssh_key_passphrase_env"`
}

// EngineConfig contains extraction engine limits.
type EngineConfig struct {
	// MaxCellLength is the longest cell text a rule will read.
	// Default: 4096
	MaxCellLength int `yaml:"max_cell_length"`

	// MaxFields is the largest number of target fields per document.
	// Default: 500
	MaxFields int `yaml:"max_fields"`

	// MaxRulesPerField is the largest number of rules per field.
	// Default: 100
	MaxRulesPerField int `yaml:"max_rules_per_field"`
}

// InputConfig describes how the CLI reads supplier files.
type InputConfig struct {
	// Sheet is the workbook sheet to read; empty means the first sheet.
	Sheet string `yaml:"sheet"`

	// HeaderRows is the number of leading rows skipped before data.
	// Default: 1
	HeaderRows int `yaml:"header_rows"`

	// CSVDelimiter is the field separator of CSV inputs.
	// Default: ","
	CSVDelimiter string `yaml:"csv_delimiter"`

	// CSVEncoding is the character set of CSV inputs.
	// Options: "utf-8", "windows-1251", "koi8-r"
	// Default: "utf-8"
	CSVEncoding string `yaml:"csv_encoding"`

	// MaxRows stops reading after this many data rows; 0 means unlimited.
	MaxRows int `yaml:"max_rows"`
}

// AuditConfig contains configuration for persisted evaluation traces.
type AuditConfig struct {
	// Enabled turns on audit recording for extract runs.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Backend selects the store.
	// Options: "memory", "sqlite"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite store settings.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Retention contains pruning policy.
	Retention RetentionConfig `yaml:"retention"`
}

// SQLiteConfig contains SQLite store settings.
type SQLiteConfig struct {
	// Path is the database file.
	// Default: "data/audit.db"
	Path string `yaml:"path"`

	// Driver is the database/sql driver name.
	// Options: "sqlite" (pure Go), "sqlite3" (cgo)
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// MaxOpenConns bounds the connection pool.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// BusyTimeout is how long a writer waits on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	// WALMode enables write-ahead logging.
	// Default: true
	WALMode bool `yaml:"wal_mode"`
}

// RetentionConfig contains audit pruning policy.
type RetentionConfig struct {
	// RetentionDays deletes records older than this; 0 keeps everything.
	// Default: 90
	RetentionDays int `yaml:"retention_days"`

	// MaxRecords keeps only the newest records; 0 means unlimited.
	MaxRecords int64 `yaml:"max_records"`

	// PruneSchedule is a cron expression for background pruning.
	// Default: "0 3 * * *"
	PruneSchedule string `yaml:"prune_schedule"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging contains structured logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains OpenTelemetry tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text", "console"
	// Default: "console"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Namespace is the metric name prefix.
	// Default: "pricelist"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "extraction"
	Subsystem string `yaml:"subsystem"`

	// Textfile is where metrics are written after a run, for the
	// node_exporter textfile collector. Empty disables the export.
	Textfile string `yaml:"textfile"`

	// RowDurationBuckets defines histogram buckets for per-row duration (seconds).
	RowDurationBuckets []float64 `yaml:"row_duration_buckets"`
}

// TracingConfig contains OpenTelemetry tracing configuration.
type TracingConfig struct {
	// Enabled controls whether spans are exported.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler is the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "always"
	Sampler string `yaml:"sampler"`

	// SampleRatio is used by the "ratio" sampler.
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP/gRPC collector address (host:port).
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS to the collector.
	Insecure bool `yaml:"insecure"`

	// Timeout bounds span export.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`

	// ServiceName is the service.name resource attribute.
	// Default: "pricelist"
	ServiceName string `yaml:"service_name"`
}
