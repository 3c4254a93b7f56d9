package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"mercator-hq/pricelist/pkg/cli"
	"mercator-hq/pricelist/pkg/config"
	"mercator-hq/pricelist/pkg/rules"
	rulesErrors "mercator-hq/pricelist/pkg/rules/errors"
	"mercator-hq/pricelist/pkg/rules/watch"
)

var lintFlags struct {
	file   string
	dir    string
	format string
	watch  bool
}

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Validate rule documents",
	Long: `Validate extraction rule documents for syntax and semantic errors.

The lint command loads rule documents and performs the same validation the
engine requires before it can be built:
  - YAML syntax and unknown keys
  - Field and rule structure (targets, ids, strategies, parameters)
  - Regular expressions and capture groups
  - Derived field references and dependency cycles

A directory is validated as one composed configuration, the way extract
loads it.

Examples:
  # Lint single file
  pricelist lint --file rules/perfume.yaml

  # Lint directory
  pricelist lint --dir rules/

  # Re-validate whenever a document changes
  pricelist lint --dir rules/ --watch

  # JSON output for CI/CD
  pricelist lint --file rules/perfume.yaml --format json`,
	RunE: lintRules,
}

func init() {
	rootCmd.AddCommand(lintCmd)

	lintCmd.Flags().StringVarP(&lintFlags.file, "file", "f", "", "rule document to validate")
	lintCmd.Flags().StringVarP(&lintFlags.dir, "dir", "d", "", "directory of rule documents")
	lintCmd.Flags().StringVar(&lintFlags.format, "format", "text", "output format: text, json")
	lintCmd.Flags().BoolVarP(&lintFlags.watch, "watch", "w", false, "re-validate on every change until interrupted")
}

// ValidationResult represents the validation result for one lint target.
type ValidationResult struct {
	Target string            `json:"target"`
	Files  []string          `json:"files,omitempty"`
	Valid  bool              `json:"valid"`
	Fields int               `json:"fields,omitempty"`
	Rules  int               `json:"rules,omitempty"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// ValidationError represents a single validation error.
type ValidationError struct {
	File       string `json:"file,omitempty"`
	Line       int    `json:"line,omitempty"`
	Column     int    `json:"column,omitempty"`
	Message    string `json:"message"`
	Type       string `json:"type,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func lintRules(cmd *cobra.Command, args []string) error {
	if lintFlags.file == "" && lintFlags.dir == "" {
		return fmt.Errorf("either --file or --dir must be specified")
	}
	format, err := cli.ParseOutputFormat(lintFlags.format, cli.FormatText, cli.FormatJSON)
	if err != nil {
		return err
	}

	cfg, err := loadAppConfig()
	if err != nil {
		return err
	}

	var targets []string
	if lintFlags.file != "" {
		targets = append(targets, lintFlags.file)
	}
	if lintFlags.dir != "" {
		targets = append(targets, lintFlags.dir)
	}

	out := commandOutput(cmd)
	err = lintOnce(out, cfg, targets, format)
	if !lintFlags.watch {
		return err
	}
	return watchAndLint(commandContext(cmd), out, cfg, targets, format)
}

func lintOnce(out io.Writer, cfg *config.Config, targets []string, format cli.OutputFormat) error {
	results := make([]ValidationResult, 0, len(targets))
	for _, target := range targets {
		results = append(results, validateTarget(cfg, target))
	}

	if format == cli.FormatJSON {
		if err := cli.NewFormatter(cli.FormatJSON).FormatTo(out, results); err != nil {
			return err
		}
	} else {
		outputLintText(out, results)
	}

	for _, r := range results {
		if !r.Valid {
			return cli.NewCommandError("lint", fmt.Errorf("validation failed"))
		}
	}
	return nil
}

func validateTarget(cfg *config.Config, target string) ValidationResult {
	result := ValidationResult{Target: target, Valid: true}

	paths, err := documentPaths(target)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, ValidationError{Message: err.Error(), Type: string(rulesErrors.ErrorTypeIO)})
		return result
	}
	result.Files = paths

	ruleCfg, err := rules.LoadAndValidateWith(newRulesLoader(cfg), paths...)
	if err != nil {
		result.Valid = false
		result.Errors = validationErrors(err)
		return result
	}

	result.Fields = len(ruleCfg.Fields)
	for _, f := range ruleCfg.Fields {
		result.Rules += len(f.Rules)
	}
	return result
}

func validationErrors(err error) []ValidationError {
	ce := rulesErrors.AsConfigError(err)
	if ce == nil {
		return []ValidationError{{Message: err.Error()}}
	}
	out := make([]ValidationError, 0, len(ce.Errors))
	for _, e := range ce.Errors {
		out = append(out, ValidationError{
			File:       e.Location.File,
			Line:       e.Location.Line,
			Column:     e.Location.Column,
			Message:    e.Message,
			Type:       string(e.Type),
			Suggestion: e.Suggestion,
		})
	}
	return out
}

func outputLintText(out io.Writer, results []ValidationResult) {
	totalErrors := 0

	for _, result := range results {
		fmt.Fprintf(out, "Validating %s...\n", result.Target)

		if result.Valid {
			fmt.Fprintf(out, "✓ %d document(s) valid\n", len(result.Files))
			fmt.Fprintf(out, "✓ %d field(s), %d rule(s)\n", result.Fields, result.Rules)
		}

		for _, err := range result.Errors {
			fmt.Fprintf(out, "✗ Error: %s", err.Message)
			if err.Line > 0 {
				fmt.Fprintf(out, " (%s line %d", err.File, err.Line)
				if err.Column > 0 {
					fmt.Fprintf(out, ", col %d", err.Column)
				}
				fmt.Fprint(out, ")")
			}
			if err.Type != "" {
				fmt.Fprintf(out, " [%s]", err.Type)
			}
			fmt.Fprintln(out)
			if err.Suggestion != "" {
				fmt.Fprintf(out, "  suggestion: %s\n", err.Suggestion)
			}
			totalErrors++
		}

		fmt.Fprintln(out)
	}

	fmt.Fprintln(out, "Summary:")
	fmt.Fprintf(out, "  %d target(s), %d error(s)\n", len(results), totalErrors)
}

// watchAndLint re-runs lint for every target whose documents change. It
// returns when ctx is cancelled or a watcher fails.
func watchAndLint(ctx context.Context, out io.Writer, cfg *config.Config, targets []string, format cli.OutputFormat) error {
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	changes := make(chan string, len(targets))
	errCh := make(chan error, len(targets))

	for _, target := range targets {
		wcfg := watch.DefaultConfig()
		wcfg.Path = target
		w, err := watch.New(wcfg, logger.Slog())
		if err != nil {
			return fmt.Errorf("failed to watch %q: %w", target, err)
		}
		defer w.Stop()

		go func(target string) {
			errCh <- w.Watch(ctx, func(string) {
				select {
				case changes <- target:
				default:
				}
			})
		}(target)
	}

	fmt.Fprintln(out, "Watching for changes (Ctrl+C to stop)...")
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			if err != nil {
				return cli.NewCommandError("lint", err)
			}
		case target := <-changes:
			fmt.Fprintln(out)
			// Failures are reported and watching continues.
			_ = lintOnce(out, cfg, []string{target}, format)
		}
	}
}
