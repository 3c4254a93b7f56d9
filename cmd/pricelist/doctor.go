package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/pricelist/pkg/audit"
	"mercator-hq/pricelist/pkg/cli"
	"mercator-hq/pricelist/pkg/config"
	"mercator-hq/pricelist/pkg/telemetry/health"
	"mercator-hq/pricelist/pkg/telemetry/logging"
)

var doctorFlags struct {
	format  string
	timeout time.Duration
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the configured environment",
	Long: `Check that the configured rules load and the audit store opens. A metrics
textfile directory that is not writable is reported as a warning.

Examples:
  pricelist doctor
  pricelist doctor --config config.yaml --format json`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)

	doctorCmd.Flags().StringVar(&doctorFlags.format, "format", "text", "output format: text, json")
	doctorCmd.Flags().DurationVar(&doctorFlags.timeout, "timeout", 0, "timeout per check (default 5s; git sync uses its own timeout)")
}

func runDoctor(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(doctorFlags.format, cli.FormatText, cli.FormatJSON)
	if err != nil {
		return err
	}
	cfg, err := loadAppConfig()
	if err != nil {
		return err
	}

	timeout := doctorFlags.timeout
	if timeout == 0 && cfg.Rules.Source == "git" {
		timeout = cfg.Rules.Git.Timeout
	}
	checker := newDoctorChecker(cfg, logging.Nop(), timeout)
	report := checker.Run(commandContext(cmd))

	out := commandOutput(cmd)
	if format == cli.FormatJSON {
		if err := cli.NewFormatter(cli.FormatJSON).FormatTo(out, report); err != nil {
			return err
		}
	} else {
		outputDoctorText(out, report)
	}

	if !report.Healthy() {
		return cli.NewCommandError("doctor", fmt.Errorf("%s", report.Status))
	}
	return nil
}

// newDoctorChecker registers one check per configured component.
func newDoctorChecker(cfg *config.Config, logger *logging.Logger, timeout time.Duration) *health.Checker {
	checker := health.New(timeout)

	checker.RegisterCheck("rules", func(ctx context.Context) error {
		_, err := resolveRules(ctx, cfg, "", logger)
		return err
	})

	if cfg.Audit.Enabled {
		checker.RegisterCheck("audit", func(ctx context.Context) error {
			store, err := openAuditStorage(&cfg.Audit)
			if err != nil {
				return err
			}
			defer store.Close()
			_, err = store.Count(ctx, &audit.Query{})
			return err
		})
	}

	if path := cfg.Telemetry.Metrics.Textfile; cfg.Telemetry.Metrics.Enabled && path != "" {
		checker.RegisterOptional("metrics_textfile", func(ctx context.Context) error {
			return checkWritableDir(filepath.Dir(path))
		})
	}

	return checker
}

// checkWritableDir creates and removes a temporary file in dir.
func checkWritableDir(dir string) error {
	f, err := os.CreateTemp(dir, ".pricelist-doctor-*")
	if err != nil {
		return fmt.Errorf("%s is not writable: %w", dir, err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

func outputDoctorText(out io.Writer, report health.Report) {
	for _, c := range report.Checks {
		switch c.Status {
		case health.StatusOK:
			fmt.Fprintf(out, "✓ %s (%.1fms)\n", c.Name, c.Duration.Seconds()*1000)
		case health.StatusWarning:
			fmt.Fprintf(out, "! %s: %s\n", c.Name, c.Message)
		default:
			fmt.Fprintf(out, "✗ %s: %s\n", c.Name, c.Message)
		}
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Status: %s\n", report.Status)
}
