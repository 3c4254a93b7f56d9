package config

import "time"

// Default values for configuration fields.
const (
	// Rules defaults
	DefaultRulesSource      = "file"
	DefaultRulesFilePath    = "./rules"
	DefaultRulesMaxFileSize = int64(1024 * 1024)
	DefaultGitBranch        = "main"
	DefaultGitPath          = "rules"
	DefaultGitLocalPath     = "data/rules-repo"
	DefaultGitDepth         = 1
	DefaultGitTimeout       = 60 * time.Second
	DefaultGitAuthType      = "none"

	// Engine defaults
	DefaultMaxCellLength    = 4096
	DefaultMaxFields        = 500
	DefaultMaxRulesPerField = 100

	// Input defaults
	DefaultHeaderRows   = 1
	DefaultCSVDelimiter = ","
	DefaultCSVEncoding  = "utf-8"

	// Audit defaults
	DefaultAuditEnabled       = false
	DefaultAuditBackend       = "sqlite"
	DefaultSQLitePath         = "data/audit.db"
	DefaultSQLiteDriver       = "sqlite"
	DefaultSQLiteMaxOpenConns = 10
	DefaultSQLiteBusyTimeout  = 5 * time.Second
	DefaultSQLiteWALMode      = true
	DefaultRetentionDays      = 90
	DefaultPruneSchedule      = "0 3 * * *"

	// Telemetry defaults
	DefaultLoggingLevel     = "info"
	DefaultLoggingFormat    = "console"
	DefaultMetricsEnabled   = true
	DefaultMetricsNamespace = "pricelist"
	DefaultMetricsSubsystem = "extraction"
	DefaultTracingEnabled   = false
	DefaultTracingSampler   = "always"
	DefaultTracingRatio     = 1.0
	DefaultTracingTimeout   = 10 * time.Second
	DefaultServiceName      = "pricelist"
)

// Default returns a configuration with every default applied, including the
// boolean defaults that ApplyDefaults cannot tell apart from an explicit false.
// Files are decoded on top of it.
func Default() *Config {
	cfg := &Config{}
	cfg.Audit.Enabled = DefaultAuditEnabled
	cfg.Audit.SQLite.WALMode = DefaultSQLiteWALMode
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	cfg.Telemetry.Tracing.Enabled = DefaultTracingEnabled
	cfg.Telemetry.Tracing.SampleRatio = DefaultTracingRatio
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Rules defaults
	if cfg.Rules.Source == "" {
		cfg.Rules.Source = DefaultRulesSource
	}
	if cfg.Rules.FilePath == "" {
		cfg.Rules.FilePath = DefaultRulesFilePath
	}
	if cfg.Rules.MaxFileSize == 0 {
		cfg.Rules.MaxFileSize = DefaultRulesMaxFileSize
	}
	if cfg.Rules.Git.Branch == "" {
		cfg.Rules.Git.Branch = DefaultGitBranch
	}
	if cfg.Rules.Git.Path == "" {
		cfg.Rules.Git.Path = DefaultGitPath
	}
	if cfg.Rules.Git.LocalPath == "" {
		cfg.Rules.Git.LocalPath = DefaultGitLocalPath
	}
	if cfg.Rules.Git.Depth == 0 {
		cfg.Rules.Git.Depth = DefaultGitDepth
	}
	if cfg.Rules.Git.Timeout == 0 {
		cfg.Rules.Git.Timeout = DefaultGitTimeout
	}
	if cfg.Rules.Git.Auth.Type == "" {
		cfg.Rules.Git.Auth.Type = DefaultGitAuthType
	}

	// Engine defaults
	if cfg.Engine.MaxCellLength == 0 {
		cfg.Engine.MaxCellLength = DefaultMaxCellLength
	}
	if cfg.Engine.MaxFields == 0 {
		cfg.Engine.MaxFields = DefaultMaxFields
	}
	if cfg.Engine.MaxRulesPerField == 0 {
		cfg.Engine.MaxRulesPerField = DefaultMaxRulesPerField
	}

	// Input defaults
	if cfg.Input.HeaderRows == 0 {
		cfg.Input.HeaderRows = DefaultHeaderRows
	}
	if cfg.Input.CSVDelimiter == "" {
		cfg.Input.CSVDelimiter = DefaultCSVDelimiter
	}
	if cfg.Input.CSVEncoding == "" {
		cfg.Input.CSVEncoding = DefaultCSVEncoding
	}

	// Audit defaults
	if cfg.Audit.Backend == "" {
		cfg.Audit.Backend = DefaultAuditBackend
	}
	if cfg.Audit.SQLite.Path == "" {
		cfg.Audit.SQLite.Path = DefaultSQLitePath
	}
	if cfg.Audit.SQLite.Driver == "" {
		cfg.Audit.SQLite.Driver = DefaultSQLiteDriver
	}
	if cfg.Audit.SQLite.MaxOpenConns == 0 {
		cfg.Audit.SQLite.MaxOpenConns = DefaultSQLiteMaxOpenConns
	}
	if cfg.Audit.SQLite.BusyTimeout == 0 {
		cfg.Audit.SQLite.BusyTimeout = DefaultSQLiteBusyTimeout
	}
	if cfg.Audit.Retention.RetentionDays == 0 {
		cfg.Audit.Retention.RetentionDays = DefaultRetentionDays
	}
	if cfg.Audit.Retention.PruneSchedule == "" {
		cfg.Audit.Retention.PruneSchedule = DefaultPruneSchedule
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if cfg.Telemetry.Tracing.Sampler == "" {
		cfg.Telemetry.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Telemetry.Tracing.Timeout == 0 {
		cfg.Telemetry.Tracing.Timeout = DefaultTracingTimeout
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultServiceName
	}
}
