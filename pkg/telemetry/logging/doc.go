// Package logging provides structured logging for the pricelist tools.
//
// # Overview
//
// The logging package wraps log/slog with JSON, text and console handlers.
// Context variants add the run ID, rule document and input file of the
// extraction run stored in the context.
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	})
//
//	logger.Info("Rules loaded",
//	    "rules", "perfume-supplier-a",
//	    "field_count", 12,
//	)
//
//	// Components that take a *slog.Logger get the underlying handler.
//	eng, err := engine.New(ruleCfg, engCfg, logger.Slog())
//
//	// Attach a run ID so every line of one extraction run can be correlated.
//	ctx = logging.WithRules(ctx, ruleCfg.Name, version)
//	ctx = logging.WithRunID(ctx, runID)
//	logger.InfoContext(ctx, "extraction finished", "rows", n)
//
// # Performance
//
// Disabled levels return before any attribute is formatted, so Debug calls
// on the per-row path are cheap when the level is info or above.
package logging
