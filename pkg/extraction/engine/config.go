package engine

import (
	"fmt"
)

// EngineConfig contains limits applied when building and running an engine.
type EngineConfig struct {
	// MaxCellLength is the largest cell, in bytes, a rule will read.
	// Rules reading a longer cell fail with ErrCellTooLong and the next rule
	// of the field is tried.
	// Default: 4096.
	MaxCellLength int

	// MaxFields is the maximum number of fields in a configuration.
	// Default: 500.
	MaxFields int

	// MaxRulesPerField is the maximum number of rules of a single field.
	// Default: 100.
	MaxRulesPerField int
}

// DefaultEngineConfig returns the default engine configuration.
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		MaxCellLength:    4096,
		MaxFields:        500,
		MaxRulesPerField: 100,
	}
}

// Validate validates the engine configuration.
func (c *EngineConfig) Validate() error {
	if c.MaxCellLength <= 0 {
		return fmt.Errorf("%w: max cell length must be positive", ErrInvalidConfig)
	}
	if c.MaxFields <= 0 {
		return fmt.Errorf("%w: max fields must be positive", ErrInvalidConfig)
	}
	if c.MaxRulesPerField <= 0 {
		return fmt.Errorf("%w: max rules per field must be positive", ErrInvalidConfig)
	}
	return nil
}

// WithMaxCellLength sets the maximum cell length.
func (c *EngineConfig) WithMaxCellLength(n int) *EngineConfig {
	c.MaxCellLength = n
	return c
}

// WithMaxFields sets the maximum number of fields.
func (c *EngineConfig) WithMaxFields(n int) *EngineConfig {
	c.MaxFields = n
	return c
}

// WithMaxRulesPerField sets the maximum number of rules per field.
func (c *EngineConfig) WithMaxRulesPerField(n int) *EngineConfig {
	c.MaxRulesPerField = n
	return c
}
