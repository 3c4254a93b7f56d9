package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variable overrides.
const EnvPrefix = "PRICELIST_"

// LoadConfig loads configuration from a YAML file at the specified path.
// The file is decoded on top of Default(), so omitted sections keep their
// defaults. The configuration is not modified by environment variables; use
// LoadConfigWithEnvOverrides for that functionality.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := parseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention PRICELIST_SECTION_FIELD (e.g., PRICELIST_RULES_FILE_PATH).
// Environment variables always take precedence over file-based configuration.
//
// An empty path skips the file and starts from Default().
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = Default()
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}
		cfg, err = parseConfig(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func parseConfig(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(cfg)
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Values that fail to parse are ignored.
func applyEnvOverrides(cfg *Config) {
	// Rules overrides
	envString("RULES_SOURCE", &cfg.Rules.Source)
	envString("RULES_FILE_PATH", &cfg.Rules.FilePath)
	envInt64("RULES_MAX_FILE_SIZE", &cfg.Rules.MaxFileSize)
	envString("RULES_GIT_REPOSITORY", &cfg.Rules.Git.Repository)
	envString("RULES_GIT_BRANCH", &cfg.Rules.Git.Branch)
	envString("RULES_GIT_PATH", &cfg.Rules.Git.Path)
	envString("RULES_GIT_LOCAL_PATH", &cfg.Rules.Git.LocalPath)
	envInt("RULES_GIT_DEPTH", &cfg.Rules.Git.Depth)
	envDuration("RULES_GIT_TIMEOUT", &cfg.Rules.Git.Timeout)
	envString("RULES_GIT_AUTH_TYPE", &cfg.Rules.Git.Auth.Type)
	envString("RULES_GIT_AUTH_TOKEN_ENV", &cfg.Rules.Git.Auth.TokenEnv)
	envString("RULES_GIT_AUTH_SSH_KEY_PATH", &cfg.Rules.Git.Auth.SSHKeyPath)

	// Engine overrides
	envInt("ENGINE_MAX_CELL_LENGTH", &cfg.Engine.MaxCellLength)
	envInt("ENGINE_MAX_FIELDS", &cfg.Engine.MaxFields)
	envInt("ENGINE_MAX_RULES_PER_FIELD", &cfg.Engine.MaxRulesPerField)

	// Input overrides
	envString("INPUT_SHEET", &cfg.Input.Sheet)
	envInt("INPUT_HEADER_ROWS", &cfg.Input.HeaderRows)
	envString("INPUT_CSV_DELIMITER", &cfg.Input.CSVDelimiter)
	envString("INPUT_CSV_ENCODING", &cfg.Input.CSVEncoding)
	envInt("INPUT_MAX_ROWS", &cfg.Input.MaxRows)

	// Audit overrides
	envBool("AUDIT_ENABLED", &cfg.Audit.Enabled)
	envString("AUDIT_BACKEND", &cfg.Audit.Backend)
	envString("AUDIT_SQLITE_PATH", &cfg.Audit.SQLite.Path)
	envString("AUDIT_SQLITE_DRIVER", &cfg.Audit.SQLite.Driver)
	envDuration("AUDIT_SQLITE_BUSY_TIMEOUT", &cfg.Audit.SQLite.BusyTimeout)
	envBool("AUDIT_SQLITE_WAL_MODE", &cfg.Audit.SQLite.WALMode)
	envInt("AUDIT_RETENTION_RETENTION_DAYS", &cfg.Audit.Retention.RetentionDays)
	envInt64("AUDIT_RETENTION_MAX_RECORDS", &cfg.Audit.Retention.MaxRecords)
	envString("AUDIT_RETENTION_PRUNE_SCHEDULE", &cfg.Audit.Retention.PruneSchedule)

	// Telemetry overrides
	envString("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("TELEMETRY_LOGGING_ADD_SOURCE", &cfg.Telemetry.Logging.AddSource)
	envBool("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envString("TELEMETRY_METRICS_TEXTFILE", &cfg.Telemetry.Metrics.Textfile)
	envBool("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	envBool("TELEMETRY_TRACING_INSECURE", &cfg.Telemetry.Tracing.Insecure)
	envString("TELEMETRY_TRACING_SAMPLER", &cfg.Telemetry.Tracing.Sampler)
	envFloat("TELEMETRY_TRACING_SAMPLE_RATIO", &cfg.Telemetry.Tracing.SampleRatio)
}

func envString(key string, dst *string) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		*dst = val
	}
}

func envInt(key string, dst *int) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envInt64(key string, dst *int64) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			*dst = i
		}
	}
}

func envBool(key string, dst *bool) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envFloat(key string, dst *float64) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			*dst = f
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}
