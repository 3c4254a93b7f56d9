package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
rules:
  file_path: ./rules/perfume.yaml
input:
  csv_encoding: windows-1251
  csv_delimiter: ";"
audit:
  enabled: true
  backend: sqlite
  sqlite:
    driver: sqlite3
    busy_timeout: 2s
  retention:
    max_records: 10000
telemetry:
  logging:
    level: debug
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Rules.FilePath != "./rules/perfume.yaml" {
		t.Errorf("Rules.FilePath = %q", cfg.Rules.FilePath)
	}
	if cfg.Rules.Source != DefaultRulesSource {
		t.Errorf("Rules.Source = %q, want default", cfg.Rules.Source)
	}
	if cfg.Input.CSVEncoding != "windows-1251" || cfg.Input.CSVDelimiter != ";" {
		t.Errorf("Input = %+v", cfg.Input)
	}
	if !cfg.Audit.Enabled || cfg.Audit.SQLite.Driver != "sqlite3" {
		t.Errorf("Audit = %+v", cfg.Audit)
	}
	if cfg.Audit.SQLite.BusyTimeout != 2*time.Second {
		t.Errorf("BusyTimeout = %v", cfg.Audit.SQLite.BusyTimeout)
	}
	if !cfg.Audit.SQLite.WALMode {
		t.Error("WALMode should keep its default of true when omitted")
	}
	if cfg.Audit.Retention.MaxRecords != 10000 {
		t.Errorf("MaxRecords = %d", cfg.Audit.Retention.MaxRecords)
	}
	if !cfg.Telemetry.Metrics.Enabled {
		t.Error("Metrics.Enabled should keep its default of true when omitted")
	}
	if cfg.Telemetry.Logging.Level != "debug" || cfg.Telemetry.Logging.Format != DefaultLoggingFormat {
		t.Errorf("Logging = %+v", cfg.Telemetry.Logging)
	}
	if cfg.Engine.MaxCellLength != DefaultMaxCellLength {
		t.Errorf("MaxCellLength = %d", cfg.Engine.MaxCellLength)
	}
}

func TestLoadConfig_ExplicitFalse(t *testing.T) {
	path := writeConfig(t, `
audit:
  sqlite:
    wal_mode: false
telemetry:
  metrics:
    enabled: false
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Audit.SQLite.WALMode {
		t.Error("explicit wal_mode: false was overridden")
	}
	if cfg.Telemetry.Metrics.Enabled {
		t.Error("explicit metrics.enabled: false was overridden")
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantVal bool
	}{
		{"malformed yaml", "rules: [unclosed", false},
		{"invalid value", "audit:\n  backend: postgres\n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			var ve ValidationError
			if errors.As(err, &ve) != tt.wantVal {
				t.Errorf("errors.As(ValidationError) = %v, want %v (%v)", !tt.wantVal, tt.wantVal, err)
			}
		})
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
rules:
  file_path: ./from-file.yaml
telemetry:
  logging:
    level: info
`)

	t.Setenv("PRICELIST_RULES_FILE_PATH", "./from-env.yaml")
	t.Setenv("PRICELIST_TELEMETRY_LOGGING_LEVEL", "warn")
	t.Setenv("PRICELIST_ENGINE_MAX_CELL_LENGTH", "1024")
	t.Setenv("PRICELIST_AUDIT_ENABLED", "true")
	t.Setenv("PRICELIST_AUDIT_SQLITE_BUSY_TIMEOUT", "250ms")
	t.Setenv("PRICELIST_TELEMETRY_TRACING_SAMPLE_RATIO", "0.25")
	t.Setenv("PRICELIST_INPUT_MAX_ROWS", "not-a-number")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides() error = %v", err)
	}

	if cfg.Rules.FilePath != "./from-env.yaml" {
		t.Errorf("Rules.FilePath = %q", cfg.Rules.FilePath)
	}
	if cfg.Telemetry.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q", cfg.Telemetry.Logging.Level)
	}
	if cfg.Engine.MaxCellLength != 1024 {
		t.Errorf("MaxCellLength = %d", cfg.Engine.MaxCellLength)
	}
	if !cfg.Audit.Enabled {
		t.Error("Audit.Enabled not overridden")
	}
	if cfg.Audit.SQLite.BusyTimeout != 250*time.Millisecond {
		t.Errorf("BusyTimeout = %v", cfg.Audit.SQLite.BusyTimeout)
	}
	if cfg.Telemetry.Tracing.SampleRatio != 0.25 {
		t.Errorf("SampleRatio = %v", cfg.Telemetry.Tracing.SampleRatio)
	}
	if cfg.Input.MaxRows != 0 {
		t.Errorf("unparseable override should be ignored, MaxRows = %d", cfg.Input.MaxRows)
	}
}

func TestLoadConfigWithEnvOverrides_NoFile(t *testing.T) {
	t.Setenv("PRICELIST_RULES_SOURCE", "git")
	t.Setenv("PRICELIST_RULES_GIT_REPOSITORY", "https://example.com/rules.git")

	cfg, err := LoadConfigWithEnvOverrides("")
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides(\"\") error = %v", err)
	}
	if cfg.Rules.Source != "git" || cfg.Rules.Git.Repository != "https://example.com/rules.git" {
		t.Errorf("Rules = %+v", cfg.Rules)
	}
	if cfg.Rules.Git.Branch != DefaultGitBranch {
		t.Errorf("Git.Branch = %q", cfg.Rules.Git.Branch)
	}
}
