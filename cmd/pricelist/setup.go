package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"mercator-hq/pricelist/pkg/audit"
	"mercator-hq/pricelist/pkg/audit/storage"
	"mercator-hq/pricelist/pkg/cli"
	"mercator-hq/pricelist/pkg/config"
	"mercator-hq/pricelist/pkg/extraction/engine"
	"mercator-hq/pricelist/pkg/rules"
	"mercator-hq/pricelist/pkg/rules/ast"
	"mercator-hq/pricelist/pkg/rules/gitsource"
	"mercator-hq/pricelist/pkg/rules/loader"
	"mercator-hq/pricelist/pkg/telemetry/logging"
)

// loadAppConfig returns the global configuration, loading --config with
// environment overrides on first use.
func loadAppConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, cli.WrapConfigError("config", err)
	}
	return cfg, nil
}

// newLogger builds the command logger. --verbose forces debug level.
func newLogger(cfg *config.Config) (*logging.Logger, error) {
	level := cfg.Telemetry.Logging.Level
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(logging.Config{
		Level:     level,
		Format:    cfg.Telemetry.Logging.Format,
		AddSource: cfg.Telemetry.Logging.AddSource,
		Writer:    os.Stderr,
	})
	if err != nil {
		return nil, cli.WrapConfigError("telemetry.logging", err)
	}
	return logger, nil
}

// loadedRules is a validated rule configuration and where it came from.
type loadedRules struct {
	Config *ast.RuleConfig
	Paths  []string

	// Commit is set when the documents were read from a git repository.
	Commit *gitsource.CommitInfo
}

// Version is the document version, suffixed with the short commit SHA for
// documents read from git.
func (l *loadedRules) Version() string {
	if l.Commit == nil {
		return l.Config.Version
	}
	return l.Config.Version + "+" + l.Commit.ShortSHA()
}

// newRulesLoader returns a loader bounded by the configured limits.
func newRulesLoader(cfg *config.Config) *loader.Loader {
	return loader.New().
		WithMaxFileSize(cfg.Rules.MaxFileSize).
		WithMaxFields(cfg.Engine.MaxFields).
		WithMaxRulesPerField(cfg.Engine.MaxRulesPerField)
}

// resolveRules loads and validates the rule documents. An explicit path wins;
// otherwise the configured file path or git repository is used.
func resolveRules(ctx context.Context, cfg *config.Config, path string, logger *logging.Logger) (*loadedRules, error) {
	var commit *gitsource.CommitInfo

	if path == "" {
		switch cfg.Rules.Source {
		case "git":
			src, err := gitsource.New(&cfg.Rules.Git, logger.Slog())
			if err != nil {
				return nil, cli.WrapConfigError("rules.git", err)
			}
			snap, err := src.Sync(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to sync rules repository: %w", err)
			}
			path = snap.RulesPath
			commit = snap.Commit
			logger.Info("rules repository synced",
				"commit", commit.ShortSHA(),
				"updated", snap.Updated,
				"changed_files", len(snap.ChangedFiles),
			)
		default:
			path = cfg.Rules.FilePath
		}
	}

	paths, err := documentPaths(path)
	if err != nil {
		return nil, err
	}

	ruleCfg, err := rules.LoadAndValidateWith(newRulesLoader(cfg), paths...)
	if err != nil {
		return nil, err
	}

	return &loadedRules{Config: ruleCfg, Paths: paths, Commit: commit}, nil
}

// documentPaths expands a directory into its rule documents.
func documentPaths(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to access rules %q: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	paths, err := rules.FindDocuments(path)
	if err != nil {
		return nil, fmt.Errorf("failed to list rule documents in %q: %w", path, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no rule documents found in %q", path)
	}
	return paths, nil
}

// engineConfig converts the application limits into engine limits.
func engineConfig(cfg *config.Config) *engine.EngineConfig {
	return engine.DefaultEngineConfig().
		WithMaxCellLength(cfg.Engine.MaxCellLength).
		WithMaxFields(cfg.Engine.MaxFields).
		WithMaxRulesPerField(cfg.Engine.MaxRulesPerField)
}

// openAuditStorage opens the configured audit backend.
func openAuditStorage(cfg *config.AuditConfig) (audit.Storage, error) {
	switch cfg.Backend {
	case "memory":
		return storage.NewMemoryStorage(), nil
	case "sqlite":
		if dir := filepath.Dir(cfg.SQLite.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create audit directory: %w", err)
			}
		}
		s, err := storage.NewSQLiteStorage(&storage.SQLiteConfig{
			Path:         cfg.SQLite.Path,
			Driver:       cfg.SQLite.Driver,
			MaxOpenConns: cfg.SQLite.MaxOpenConns,
			MaxIdleConns: cfg.SQLite.MaxOpenConns,
			WALMode:      cfg.SQLite.WALMode,
			BusyTimeout:  cfg.SQLite.BusyTimeout,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, cli.NewConfigError("audit.backend", fmt.Sprintf("unsupported backend %q", cfg.Backend))
	}
}

// commandOutput returns where a command writes its results.
func commandOutput(cmd *cobra.Command) io.Writer {
	if cmd == nil {
		return os.Stdout
	}
	return cmd.OutOrStdout()
}

// commandContext returns the command context, which is cancelled on SIGINT
// and SIGTERM when run through Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if cmd != nil && cmd.Context() != nil {
		return cmd.Context()
	}
	return context.Background()
}
