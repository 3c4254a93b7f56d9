package config

import (
	"errors"
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:      "unknown rules source",
			mutate:    func(c *Config) { c.Rules.Source = "s3" },
			wantField: "rules.source",
		},
		{
			name:      "git without repository",
			mutate:    func(c *Config) { c.Rules.Source = "git" },
			wantField: "rules.git.repository",
		},
		{
			name: "token auth without env",
			mutate: func(c *Config) {
				c.Rules.Source = "git"
				c.Rules.Git.Repository = "https://example.com/rules.git"
				c.Rules.Git.Auth.Type = "token"
			},
			wantField: "rules.git.auth.token_env",
		},
		{
			name:      "negative cell length",
			mutate:    func(c *Config) { c.Engine.MaxCellLength = -1 },
			wantField: "engine.max_cell_length",
		},
		{
			name:      "multi-character delimiter",
			mutate:    func(c *Config) { c.Input.CSVDelimiter = ";;" },
			wantField: "input.csv_delimiter",
		},
		{
			name:      "unknown encoding",
			mutate:    func(c *Config) { c.Input.CSVEncoding = "latin-9" },
			wantField: "input.csv_encoding",
		},
		{
			name:      "unknown sqlite driver",
			mutate:    func(c *Config) { c.Audit.SQLite.Driver = "pgx" },
			wantField: "audit.sqlite.driver",
		},
		{
			name:      "bad cron schedule",
			mutate:    func(c *Config) { c.Audit.Retention.PruneSchedule = "daily" },
			wantField: "audit.retention.prune_schedule",
		},
		{
			name:      "console logging accepted, xml rejected",
			mutate:    func(c *Config) { c.Telemetry.Logging.Format = "xml" },
			wantField: "telemetry.logging.format",
		},
		{
			name:      "unsorted buckets",
			mutate:    func(c *Config) { c.Telemetry.Metrics.RowDurationBuckets = []float64{0.01, 0.001} },
			wantField: "telemetry.metrics.row_duration_buckets",
		},
		{
			name:      "tracing without endpoint",
			mutate:    func(c *Config) { c.Telemetry.Tracing.Enabled = true },
			wantField: "telemetry.tracing.endpoint",
		},
		{
			name:      "sample ratio out of range",
			mutate:    func(c *Config) { c.Telemetry.Tracing.SampleRatio = 2 },
			wantField: "telemetry.tracing.sample_ratio",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}

			var ve ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Validate() error = %v, want ValidationError", err)
			}
			found := false
			for _, fe := range ve.Errors {
				if fe.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("errors %v do not mention %s", ve.Errors, tt.wantField)
			}
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	single := ValidationError{Errors: []FieldError{{Field: "a", Message: "bad"}}}
	if got := single.Error(); got != "configuration validation failed: a: bad" {
		t.Errorf("Error() = %q", got)
	}

	multi := ValidationError{Errors: []FieldError{{Field: "a", Message: "bad"}, {Field: "b", Message: "worse"}}}
	if got := multi.Error(); !strings.Contains(got, "2 errors") || !strings.Contains(got, "  - b: worse") {
		t.Errorf("Error() = %q", got)
	}
}

func TestApplyDefaults_Idempotent(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	first := *cfg
	ApplyDefaults(cfg)

	if cfg.Rules != first.Rules || cfg.Engine != first.Engine || cfg.Input != first.Input {
		t.Error("ApplyDefaults is not idempotent")
	}
	if cfg.Audit.Retention.PruneSchedule != DefaultPruneSchedule {
		t.Errorf("PruneSchedule = %q", cfg.Audit.Retention.PruneSchedule)
	}
}
