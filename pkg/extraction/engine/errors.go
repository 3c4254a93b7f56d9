package engine

import (
	"errors"
	"fmt"

	"mercator-hq/pricelist/pkg/rules/ast"
)

var (
	// ErrInvalidConfig indicates an invalid engine configuration.
	ErrInvalidConfig = errors.New("invalid engine configuration")

	// ErrCellTooLong indicates a cell exceeds EngineConfig.MaxCellLength.
	ErrCellTooLong = errors.New("cell exceeds maximum length")

	// ErrRulePanic indicates a rule panicked during evaluation.
	ErrRulePanic = errors.New("rule panicked")
)

// BuildError indicates a rule could not be compiled into the engine.
type BuildError struct {
	Field  string
	RuleID string
	Cause  error
}

// Error returns the error message.
func (e *BuildError) Error() string {
	if e.RuleID == "" {
		return fmt.Sprintf("field %s: %v", e.Field, e.Cause)
	}
	return fmt.Sprintf("field %s rule %s: %v", e.Field, e.RuleID, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *BuildError) Unwrap() error {
	return e.Cause
}

// RuleEvaluationError indicates a single rule failed at runtime. It is
// recorded in the trace and never aborts the row.
type RuleEvaluationError struct {
	Field    string
	RuleID   string
	Strategy ast.StrategyType
	Cause    error
}

// Error returns the error message.
func (e *RuleEvaluationError) Error() string {
	return fmt.Sprintf("field %s rule %s (%s): %v", e.Field, e.RuleID, e.Strategy, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *RuleEvaluationError) Unwrap() error {
	return e.Cause
}
