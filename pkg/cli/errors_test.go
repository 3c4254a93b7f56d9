package cli

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestConfigErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *ConfigError
		want string
	}{
		{
			name: "with field",
			err:  NewConfigError("audit.backend", `unsupported backend "postgres"`),
			want: `config error in audit.backend: unsupported backend "postgres"`,
		},
		{
			name: "without field",
			err:  &ConfigError{Message: "failed to load config"},
			want: "config error: failed to load config",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWrapConfigError(t *testing.T) {
	cause := errors.New("invalid cron expression")
	err := WrapConfigError("audit.retention.prune_schedule", cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is() should find the wrapped cause")
	}
	want := "config error in audit.retention.prune_schedule: invalid cron expression"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestCommandError(t *testing.T) {
	cause := errors.New("validation failed")
	err := NewCommandError("lint", cause)

	if err.Error() != "lint: validation failed" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is() should find the wrapped error")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"command failure", NewCommandError("test", errors.New("test failures")), ExitFailure},
		{"plain error", errors.New("boom"), ExitFailure},
		{"config error", NewConfigError("audit.backend", "unsupported"), ExitConfig},
		{"wrapped config error", fmt.Errorf("setup: %w", WrapConfigError("config", errors.New("bad yaml"))), ExitConfig},
		{"interrupted", NewCommandError("extract", context.Canceled), ExitInterrupted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}
