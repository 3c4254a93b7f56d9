package errors

import (
	stderrors "errors"
	"fmt"
	"strings"

	"mercator-hq/pricelist/pkg/rules/ast"
)

// ErrorType categorizes a rule document error.
type ErrorType string

const (
	ErrorTypeSyntax     ErrorType = "syntax"     // YAML syntax or decode error
	ErrorTypeStructural ErrorType = "structural" // Missing or malformed entries
	ErrorTypeSemantic   ErrorType = "semantic"   // Invalid pattern, bad reference, cycle
	ErrorTypeIO         ErrorType = "io"         // File I/O error
)

// Error is a single problem found in a rule document.
type Error struct {
	Type       ErrorType    // Category of error
	Message    string       // Error message
	Location   ast.Location // Source location (file, line, column)
	Context    string       // Surrounding lines of the document
	Suggestion string       // Suggested fix (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("[%s] %s\n", e.Type, e.Message))

	if e.Location.IsValid() {
		sb.WriteString(fmt.Sprintf("  --> %s\n", e.Location.String()))
	}

	if e.Context != "" {
		sb.WriteString("  |\n")
		sb.WriteString(e.Context)
		sb.WriteString("  |\n")
	}

	if e.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("  = suggestion: %s\n", e.Suggestion))
	}

	return sb.String()
}

// ConfigError collects every error found while loading or validating a rule
// document. It is fatal: no engine may be built from the document.
type ConfigError struct {
	Errors []*Error
}

// NewConfigError creates an empty error collection.
func NewConfigError() *ConfigError {
	return &ConfigError{
		Errors: make([]*Error, 0),
	}
}

// Add appends an error to the collection.
func (ce *ConfigError) Add(err *Error) {
	ce.Errors = append(ce.Errors, err)
}

// AddError creates and adds a new error.
func (ce *ConfigError) AddError(errType ErrorType, message string, location ast.Location) {
	ce.Add(&Error{
		Type:     errType,
		Message:  message,
		Location: location,
	})
}

// AddErrorWithSuggestion creates and adds a new error with a suggestion.
func (ce *ConfigError) AddErrorWithSuggestion(errType ErrorType, message string, location ast.Location, suggestion string) {
	ce.Add(&Error{
		Type:       errType,
		Message:    message,
		Location:   location,
		Suggestion: suggestion,
	})
}

// Merge appends the entries of another error. Errors that are not a
// *ConfigError or *Error are recorded with the given fallback type.
func (ce *ConfigError) Merge(err error, fallback ErrorType) {
	if err == nil {
		return
	}
	var other *ConfigError
	if stderrors.As(err, &other) {
		ce.Errors = append(ce.Errors, other.Errors...)
		return
	}
	var single *Error
	if stderrors.As(err, &single) {
		ce.Add(single)
		return
	}
	ce.AddError(fallback, err.Error(), ast.Location{})
}

// HasErrors returns true if the collection is not empty.
func (ce *ConfigError) HasErrors() bool {
	return len(ce.Errors) > 0
}

// Count returns the number of errors.
func (ce *ConfigError) Count() int {
	return len(ce.Errors)
}

// Error implements the error interface.
func (ce *ConfigError) Error() string {
	if !ce.HasErrors() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d error(s):\n\n", ce.Count()))

	for i, err := range ce.Errors {
		sb.WriteString(fmt.Sprintf("Error %d:\n", i+1))
		sb.WriteString(err.Error())
		sb.WriteString("\n")
	}

	return sb.String()
}

// ToError returns nil if the collection is empty, otherwise the collection itself.
func (ce *ConfigError) ToError() error {
	if !ce.HasErrors() {
		return nil
	}
	return ce
}

// ByType returns all errors of the given type.
func (ce *ConfigError) ByType(errType ErrorType) []*Error {
	var result []*Error
	for _, err := range ce.Errors {
		if err.Type == errType {
			result = append(result, err)
		}
	}
	return result
}

// HasErrorType returns true if the collection contains an error of the given type.
func (ce *ConfigError) HasErrorType(errType ErrorType) bool {
	for _, err := range ce.Errors {
		if err.Type == errType {
			return true
		}
	}
	return false
}

// IsConfigError reports whether err is or wraps a rule document error.
func IsConfigError(err error) bool {
	var ce *ConfigError
	if stderrors.As(err, &ce) {
		return true
	}
	var e *Error
	return stderrors.As(err, &e)
}

// AsConfigError returns err as a *ConfigError. A single *Error is wrapped in a
// new collection. It returns nil if err is not a rule document error.
func AsConfigError(err error) *ConfigError {
	var ce *ConfigError
	if stderrors.As(err, &ce) {
		return ce
	}
	var e *Error
	if stderrors.As(err, &e) {
		return &ConfigError{Errors: []*Error{e}}
	}
	return nil
}
