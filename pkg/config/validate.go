package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "rules.file_path").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateRules(&cfg.Rules)...)
	errs = append(errs, validateEngine(&cfg.Engine)...)
	errs = append(errs, validateInput(&cfg.Input)...)
	errs = append(errs, validateAudit(&cfg.Audit)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

func validateRules(cfg *RulesConfig) []FieldError {
	var errs []FieldError

	switch cfg.Source {
	case "file":
		if cfg.FilePath == "" {
			errs = append(errs, FieldError{
				Field:   "rules.file_path",
				Message: "file path is required when source is 'file'",
			})
		}
	case "git":
		if cfg.Git.Repository == "" {
			errs = append(errs, FieldError{
				Field:   "rules.git.repository",
				Message: "repository is required when source is 'git'",
			})
		}
		if cfg.Git.LocalPath == "" {
			errs = append(errs, FieldError{
				Field:   "rules.git.local_path",
				Message: "local path is required when source is 'git'",
			})
		}
		if cfg.Git.Depth < 0 {
			errs = append(errs, FieldError{
				Field:   "rules.git.depth",
				Message: "depth must be non-negative",
			})
		}
		errs = append(errs, validateGitAuth(&cfg.Git.Auth)...)
	default:
		errs = append(errs, FieldError{
			Field:   "rules.source",
			Message: fmt.Sprintf("invalid rules source %q: must be 'file' or 'git'", cfg.Source),
		})
	}

	if cfg.MaxFileSize < 0 {
		errs = append(errs, FieldError{
			Field:   "rules.max_file_size",
			Message: "max file size must be positive",
		})
	}

	return errs
}

func validateGitAuth(cfg *GitAuthConfig) []FieldError {
	switch cfg.Type {
	case "none", "":
		return nil
	case "token":
		if cfg.TokenEnv == "" {
			return []FieldError{{
				Field:   "rules.git.auth.token_env",
				Message: "token_env is required for token authentication",
			}}
		}
	case "ssh":
		if cfg.SSHKeyPath == "" {
			return []FieldError{{
				Field:   "rules.git.auth.ssh_key_path",
				Message: "ssh_key_path is required for ssh authentication",
			}}
		}
	default:
		return []FieldError{{
			Field:   "rules.git.auth.type",
			Message: fmt.Sprintf("invalid auth type %q: must be 'none', 'token', or 'ssh'", cfg.Type),
		}}
	}
	return nil
}

func validateEngine(cfg *EngineConfig) []FieldError {
	var errs []FieldError

	if cfg.MaxCellLength <= 0 {
		errs = append(errs, FieldError{
			Field:   "engine.max_cell_length",
			Message: "max cell length must be positive",
		})
	}
	if cfg.MaxFields <= 0 {
		errs = append(errs, FieldError{
			Field:   "engine.max_fields",
			Message: "max fields must be positive",
		})
	}
	if cfg.MaxRulesPerField <= 0 {
		errs = append(errs, FieldError{
			Field:   "engine.max_rules_per_field",
			Message: "max rules per field must be positive",
		})
	}

	return errs
}

func validateInput(cfg *InputConfig) []FieldError {
	var errs []FieldError

	if cfg.HeaderRows < 0 {
		errs = append(errs, FieldError{
			Field:   "input.header_rows",
			Message: "header rows must be non-negative",
		})
	}
	if len([]rune(cfg.CSVDelimiter)) != 1 {
		errs = append(errs, FieldError{
			Field:   "input.csv_delimiter",
			Message: fmt.Sprintf("csv delimiter %q must be a single character", cfg.CSVDelimiter),
		})
	}
	validEncodings := map[string]bool{"utf-8": true, "windows-1251": true, "koi8-r": true}
	if !validEncodings[strings.ToLower(cfg.CSVEncoding)] {
		errs = append(errs, FieldError{
			Field:   "input.csv_encoding",
			Message: fmt.Sprintf("invalid csv encoding %q: must be 'utf-8', 'windows-1251', or 'koi8-r'", cfg.CSVEncoding),
		})
	}
	if cfg.MaxRows < 0 {
		errs = append(errs, FieldError{
			Field:   "input.max_rows",
			Message: "max rows must be non-negative",
		})
	}

	return errs
}

func validateAudit(cfg *AuditConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "memory":
	case "sqlite":
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{
				Field:   "audit.sqlite.path",
				Message: "path is required for the sqlite backend",
			})
		}
		if cfg.SQLite.Driver != "sqlite" && cfg.SQLite.Driver != "sqlite3" {
			errs = append(errs, FieldError{
				Field:   "audit.sqlite.driver",
				Message: fmt.Sprintf("invalid driver %q: must be 'sqlite' or 'sqlite3'", cfg.SQLite.Driver),
			})
		}
		if cfg.SQLite.MaxOpenConns < 0 {
			errs = append(errs, FieldError{
				Field:   "audit.sqlite.max_open_conns",
				Message: "max open connections must be non-negative",
			})
		}
		if cfg.SQLite.BusyTimeout < 0 {
			errs = append(errs, FieldError{
				Field:   "audit.sqlite.busy_timeout",
				Message: "busy timeout must be positive",
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "audit.backend",
			Message: fmt.Sprintf("invalid audit backend %q: must be 'memory' or 'sqlite'", cfg.Backend),
		})
	}

	if cfg.Retention.RetentionDays < 0 {
		errs = append(errs, FieldError{
			Field:   "audit.retention.retention_days",
			Message: "retention days must be non-negative",
		})
	}
	if cfg.Retention.MaxRecords < 0 {
		errs = append(errs, FieldError{
			Field:   "audit.retention.max_records",
			Message: "max records must be non-negative",
		})
	}
	if cfg.Retention.PruneSchedule != "" {
		if _, err := cron.ParseStandard(cfg.Retention.PruneSchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "audit.retention.prune_schedule",
				Message: fmt.Sprintf("invalid cron expression %q: %v", cfg.Retention.PruneSchedule, err),
			})
		}
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	validFormats := map[string]bool{"json": true, "text": true, "console": true}
	if !validFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json', 'text', or 'console'", cfg.Logging.Format),
		})
	}

	for i, b := range cfg.Metrics.RowDurationBuckets {
		if b <= 0 || (i > 0 && b <= cfg.Metrics.RowDurationBuckets[i-1]) {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.row_duration_buckets",
				Message: "buckets must be positive and strictly increasing",
			})
			break
		}
	}

	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.endpoint",
			Message: "tracing endpoint is required when tracing is enabled",
		})
	}
	validSamplers := map[string]bool{"always": true, "never": true, "ratio": true}
	if !validSamplers[cfg.Tracing.Sampler] {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sampler",
			Message: fmt.Sprintf("invalid sampler %q: must be 'always', 'never', or 'ratio'", cfg.Tracing.Sampler),
		})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1.0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "sample ratio must be between 0.0 and 1.0",
		})
	}

	return errs
}
