package cli

import (
	"context"
	"errors"
	"fmt"
)

// Process exit codes of the pricelist commands.
const (
	ExitOK          = 0
	ExitFailure     = 1   // validation, test or extraction failure
	ExitConfig      = 2   // unusable application configuration
	ExitInterrupted = 130 // SIGINT or SIGTERM
)

// ConfigError reports an unusable application configuration value.
// Field is the dotted YAML path, e.g. "audit.sqlite.path".
type ConfigError struct {
	Field   string
	Message string
	Cause   error
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "config error: " + e.Message
	}
	return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
}

func (e *ConfigError) Unwrap() error { return e.Cause }

// CommandError reports the failure of a subcommand after its configuration
// was accepted.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

// NewConfigError returns a ConfigError without a cause.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// WrapConfigError returns a ConfigError carrying cause.
func WrapConfigError(field string, cause error) *ConfigError {
	return &ConfigError{Field: field, Message: cause.Error(), Cause: cause}
}

// NewCommandError returns a CommandError for the named subcommand.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{Command: command, Err: err}
}

// ExitCode maps an error returned by a command to a process exit code.
func ExitCode(err error) int {
	var cfgErr *ConfigError
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	case errors.As(err, &cfgErr):
		return ExitConfig
	default:
		return ExitFailure
	}
}
