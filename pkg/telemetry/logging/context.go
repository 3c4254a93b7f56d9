package logging

import "context"

// Log keys of the run fields carried in a context.
const (
	RunIDKey        = "run_id"
	RulesKey        = "rules"
	RulesVersionKey = "rules_version" // "<version>+<sha12>" for git rules
	SourceKey       = "source"
)

type runFieldsKey struct{}

// runFields identifies one extraction run: which rules ran over which file.
type runFields struct {
	runID, rules, version, source string
}

func fieldsFrom(ctx context.Context) runFields {
	if ctx == nil {
		return runFields{}
	}
	f, _ := ctx.Value(runFieldsKey{}).(runFields)
	return f
}

func withFields(ctx context.Context, update func(*runFields)) context.Context {
	f := fieldsFrom(ctx)
	update(&f)
	return context.WithValue(ctx, runFieldsKey{}, f)
}

// WithRunID returns a context carrying the audit run ID.
func WithRunID(ctx context.Context, runID string) context.Context {
	return withFields(ctx, func(f *runFields) { f.runID = runID })
}

// WithRules returns a context carrying the rule document name and version.
func WithRules(ctx context.Context, name, version string) context.Context {
	return withFields(ctx, func(f *runFields) { f.rules, f.version = name, version })
}

// WithSource returns a context carrying the input file name.
func WithSource(ctx context.Context, source string) context.Context {
	return withFields(ctx, func(f *runFields) { f.source = source })
}

// GetRunID returns the run ID in ctx, or "".
func GetRunID(ctx context.Context) string { return fieldsFrom(ctx).runID }

// GetRules returns the rule document name and version in ctx.
func GetRules(ctx context.Context) (name, version string) {
	f := fieldsFrom(ctx)
	return f.rules, f.version
}

// GetSource returns the input file name in ctx, or "".
func GetSource(ctx context.Context) string { return fieldsFrom(ctx).source }

// extractContextFields returns the non-empty run fields of ctx as slog
// key-value pairs.
func extractContextFields(ctx context.Context) []any {
	f := fieldsFrom(ctx)
	var args []any
	for _, kv := range [...][2]string{
		{RunIDKey, f.runID},
		{RulesKey, f.rules},
		{RulesVersionKey, f.version},
		{SourceKey, f.source},
	} {
		if kv[1] != "" {
			args = append(args, kv[0], kv[1])
		}
	}
	return args
}
