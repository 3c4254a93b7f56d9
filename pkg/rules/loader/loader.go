package loader

import (
	"fmt"
	"os"

	"mercator-hq/pricelist/pkg/rules/ast"
	rulesErrors "mercator-hq/pricelist/pkg/rules/errors"
)

const (
	// DefaultMaxFileSize is the largest rule document accepted (1MB).
	DefaultMaxFileSize = 1 << 20
	// DefaultMaxFields bounds the number of fields per configuration.
	DefaultMaxFields = 500
	// DefaultMaxRulesPerField bounds the number of rules per field.
	DefaultMaxRulesPerField = 100
)

// Loader reads rule documents into unvalidated ast.RuleConfig values.
type Loader struct {
	maxFileSize      int64
	maxFields        int
	maxRulesPerField int
}

// New creates a loader with default limits.
func New() *Loader {
	return &Loader{
		maxFileSize:      DefaultMaxFileSize,
		maxFields:        DefaultMaxFields,
		maxRulesPerField: DefaultMaxRulesPerField,
	}
}

// WithMaxFileSize sets the maximum document size in bytes.
func (l *Loader) WithMaxFileSize(size int64) *Loader {
	l.maxFileSize = size
	return l
}

// WithMaxFields sets the maximum number of fields. Zero disables the check.
func (l *Loader) WithMaxFields(n int) *Loader {
	l.maxFields = n
	return l
}

// WithMaxRulesPerField sets the maximum number of rules per field. Zero
// disables the check.
func (l *Loader) WithMaxRulesPerField(n int) *Loader {
	l.maxRulesPerField = n
	return l
}

// Load reads the rule document at path.
func (l *Loader) Load(path string) (*ast.RuleConfig, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &rulesErrors.Error{
			Type:     rulesErrors.ErrorTypeIO,
			Message:  fmt.Sprintf("Failed to access file: %v", err),
			Location: ast.Location{File: path},
		}
	}
	if info.IsDir() {
		return nil, &rulesErrors.Error{
			Type:     rulesErrors.ErrorTypeIO,
			Message:  "Path is a directory, expected a rule document",
			Location: ast.Location{File: path},
		}
	}
	if info.Size() > l.maxFileSize {
		return nil, &rulesErrors.Error{
			Type:     rulesErrors.ErrorTypeIO,
			Message:  fmt.Sprintf("File size %d exceeds maximum %d bytes", info.Size(), l.maxFileSize),
			Location: ast.Location{File: path},
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &rulesErrors.Error{
			Type:     rulesErrors.ErrorTypeIO,
			Message:  fmt.Sprintf("Failed to read file: %v", err),
			Location: ast.Location{File: path},
		}
	}

	return l.LoadBytes(data, path)
}

// LoadBytes reads a rule document from memory. sourcePath is used in error
// locations and may be empty.
func (l *Loader) LoadBytes(data []byte, sourcePath string) (*ast.RuleConfig, error) {
	if int64(len(data)) > l.maxFileSize {
		return nil, &rulesErrors.Error{
			Type:     rulesErrors.ErrorTypeIO,
			Message:  fmt.Sprintf("Data size %d exceeds maximum %d bytes", len(data), l.maxFileSize),
			Location: ast.Location{File: sourcePath},
		}
	}

	doc, err := parseYAMLBytes(data)
	if err != nil {
		e := &rulesErrors.Error{
			Type:       rulesErrors.ErrorTypeSyntax,
			Message:    fmt.Sprintf("YAML parsing failed: %v", err),
			Location:   ast.Location{File: sourcePath, Line: errorLine(err), Column: 1},
			Suggestion: "Check YAML syntax (indentation, colons, quotes)",
		}
		e.Context = rulesErrors.ExtractContextBytes(data, e.Location, 2)
		return nil, e
	}

	cfg, err := newBuilder(sourcePath, l.maxFields, l.maxRulesPerField).buildConfig(doc)
	if err != nil {
		rulesErrors.AddContext(rulesErrors.AsConfigError(err), data)
		return nil, err
	}
	return cfg, nil
}

// LoadMulti loads several documents and composes them into one configuration.
// Fields are appended in file order and metadata comes from the first file.
// Errors from all files are reported together.
func (l *Loader) LoadMulti(paths []string) (*ast.RuleConfig, error) {
	if len(paths) == 0 {
		return nil, &rulesErrors.Error{
			Type:    rulesErrors.ErrorTypeIO,
			Message: "No rule documents provided",
		}
	}

	all := rulesErrors.NewConfigError()
	var merged *ast.RuleConfig

	for _, path := range paths {
		cfg, err := l.Load(path)
		if err != nil {
			all.Merge(err, rulesErrors.ErrorTypeIO)
			continue
		}
		if merged == nil {
			merged = cfg
			continue
		}
		merged.Fields = append(merged.Fields, cfg.Fields...)
		merged.SourceFiles = append(merged.SourceFiles, cfg.SourceFiles...)
	}

	if all.HasErrors() {
		return nil, all
	}

	for i, f := range merged.Fields {
		f.Index = i
	}
	return merged, nil
}
