package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"mercator-hq/pricelist/pkg/audit/recorder"
	"mercator-hq/pricelist/pkg/cli"
	"mercator-hq/pricelist/pkg/config"
	"mercator-hq/pricelist/pkg/extraction/engine"
	"mercator-hq/pricelist/pkg/source"
	"mercator-hq/pricelist/pkg/telemetry/logging"
	"mercator-hq/pricelist/pkg/telemetry/metrics"
	"mercator-hq/pricelist/pkg/telemetry/tracing"
)

var extractFlags struct {
	rulesPath  string
	input      string
	sheet      string
	headerRows int
	headerKeys bool
	maxRows    int
	format     string
	output     string
	trace      bool
	audit      bool
	progress   bool
}

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract fields from a price list",
	Long: `Extract canonical fields from every data row of a workbook or CSV file.

Rules come from --rules, or from the configured rules source (a local
path or a git repository) when --rules is omitted. Rows are keyed by column
letter; with --header-keys the header text of each column is a key too.

Examples:
  # Extract to the terminal
  pricelist extract --rules rules/perfume.yaml --input prices.xlsx

  # CSV output for a spreadsheet
  pricelist extract --rules rules/perfume.yaml --input prices.xlsx --format csv -o out.csv

  # Show every rule attempt
  pricelist extract --rules rules/perfume.yaml --input prices.csv --trace

  # Persist traces to the configured audit store
  pricelist extract --input prices.xlsx --audit`,
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringVarP(&extractFlags.rulesPath, "rules", "r", "", "rule document or directory (default: configured rules source)")
	extractCmd.Flags().StringVarP(&extractFlags.input, "input", "i", "", "price list file (.xlsx, .csv)")
	extractCmd.Flags().StringVar(&extractFlags.sheet, "sheet", "", "workbook sheet (default: configured sheet or first sheet)")
	extractCmd.Flags().IntVar(&extractFlags.headerRows, "header-rows", -1, "leading rows that are not data (default: configured value)")
	extractCmd.Flags().BoolVar(&extractFlags.headerKeys, "header-keys", true, "also key cells by the header text of their column")
	extractCmd.Flags().IntVar(&extractFlags.maxRows, "max-rows", 0, "stop after this many data rows (0: configured value)")
	extractCmd.Flags().StringVar(&extractFlags.format, "format", "text", "output format: text, json, csv")
	extractCmd.Flags().StringVarP(&extractFlags.output, "output", "o", "", "output file (default: stdout)")
	extractCmd.Flags().BoolVar(&extractFlags.trace, "trace", false, "include the evaluation trace of every row")
	extractCmd.Flags().BoolVar(&extractFlags.audit, "audit", false, "record traces in the audit store even if audit is disabled in config")
	extractCmd.Flags().BoolVar(&extractFlags.progress, "progress", false, "report progress on stderr")

	// Mark required flags - panic if this fails as it's a programming error
	if err := extractCmd.MarkFlagRequired("input"); err != nil {
		panic(fmt.Sprintf("failed to mark input flag as required: %v", err))
	}
}

// ExtractedRow is the result of one data row.
type ExtractedRow struct {
	Row    int                     `json:"row"`
	Fields engine.ResultBag        `json:"fields"`
	Trace  *engine.EvaluationTrace `json:"trace,omitempty"`
}

// ExtractReport is the output of an extract run.
type ExtractReport struct {
	RunID         string         `json:"run_id,omitempty"`
	Source        string         `json:"source"`
	Sheet         string         `json:"sheet,omitempty"`
	Config        string         `json:"config"`
	ConfigVersion string         `json:"config_version"`
	Targets       []string       `json:"targets"`
	Records       []ExtractedRow `json:"rows"`
}

// Header implements cli.Tabular.
func (r *ExtractReport) Header() []string {
	return append([]string{"row"}, r.Targets...)
}

// Rows implements cli.Tabular. Absent fields are empty cells.
func (r *ExtractReport) Rows() [][]string {
	rows := make([][]string, 0, len(r.Records))
	for _, er := range r.Records {
		line := make([]string, 0, len(r.Targets)+1)
		line = append(line, strconv.Itoa(er.Row))
		for _, t := range r.Targets {
			line = append(line, er.Fields[t])
		}
		rows = append(rows, line)
	}
	return rows
}

// String renders the report for the terminal.
func (r *ExtractReport) String() string {
	var sb strings.Builder
	for _, er := range r.Records {
		fmt.Fprintf(&sb, "Row %d\n", er.Row)
		for _, t := range r.Targets {
			if v, ok := er.Fields.Get(t); ok {
				fmt.Fprintf(&sb, "  %-24s %s\n", t, v)
			}
		}
		if er.Trace != nil {
			sb.WriteString("  trace:\n")
			for _, line := range strings.Split(strings.TrimRight(er.Trace.String(), "\n"), "\n") {
				sb.WriteString("    ")
				sb.WriteString(line)
				sb.WriteString("\n")
			}
		}
	}
	fmt.Fprintf(&sb, "\n%d row(s) from %s (%s %s)\n", len(r.Records), r.Source, r.Config, r.ConfigVersion)
	return sb.String()
}

func runExtract(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(extractFlags.format, cli.FormatText, cli.FormatJSON, cli.FormatCSV)
	if err != nil {
		return err
	}

	cfg, err := loadAppConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	report, err := extract(commandContext(cmd), cfg, logger)
	if err != nil {
		return cli.NewCommandError("extract", err)
	}

	var out io.Writer = commandOutput(cmd)
	if extractFlags.output != "" {
		// #nosec G304 - the output path is chosen by the user.
		f, err := os.Create(extractFlags.output)
		if err != nil {
			return cli.NewCommandError("extract", fmt.Errorf("failed to create output: %w", err))
		}
		defer f.Close()
		out = f
	}

	formatter := cli.NewFormatter(format)
	if csvf, ok := formatter.(*cli.CSVFormatter); ok {
		csvf.Comma = csvDelimiter(cfg.Input.CSVDelimiter)
	}
	if err := formatter.FormatTo(out, report); err != nil {
		return cli.NewCommandError("extract", fmt.Errorf("failed to write output: %w", err))
	}
	return nil
}

// extract runs the configured engine over the input file.
func extract(ctx context.Context, cfg *config.Config, logger *logging.Logger) (_ *ExtractReport, err error) {
	tracer, err := tracing.New(&cfg.Telemetry.Tracing, Version)
	if err != nil {
		return nil, cli.WrapConfigError("telemetry.tracing", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Telemetry.Tracing.Timeout)
		defer cancel()
		if serr := tracer.Shutdown(shutdownCtx); serr != nil {
			logger.Warn("failed to flush spans", "error", serr)
		}
	}()

	ctx, span := tracer.StartRun(ctx)
	defer func() {
		tracing.SetError(span, err)
		span.End()
	}()

	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
	defer func() {
		if werr := collector.WriteTextfile(cfg.Telemetry.Metrics.Textfile); werr != nil {
			logger.Warn("failed to write metrics", "error", werr)
		}
	}()

	loaded, err := resolveRules(ctx, cfg, extractFlags.rulesPath, logger)
	if err != nil {
		collector.RecordRulesRejected()
		return nil, err
	}

	eng, err := engine.New(loaded.Config, engineConfig(cfg), logger.Slog(), engine.WithRecorder(collector))
	if err != nil {
		collector.RecordRulesRejected()
		return nil, err
	}
	collector.RecordRulesLoaded(loaded.Config.Name, len(eng.Fields()), eng.RuleCount())
	tracing.SetRulesAttributes(span, loaded.Config.Name, loaded.Version(), len(eng.Fields()), eng.RuleCount())
	ctx = logging.WithRules(ctx, loaded.Config.Name, loaded.Version())

	table, err := source.Open(extractFlags.input, sourceOptions(cfg))
	if err != nil {
		return nil, err
	}
	ctx = logging.WithSource(ctx, table.Source)

	report := &ExtractReport{
		Source:        table.Source,
		Sheet:         table.Sheet,
		Config:        loaded.Config.Name,
		ConfigVersion: loaded.Version(),
		Targets:       eng.Fields(),
		Records:       make([]ExtractedRow, 0, len(table.Records)),
	}

	var rec *recorder.Recorder
	if cfg.Audit.Enabled || extractFlags.audit {
		store, err := openAuditStorage(&cfg.Audit)
		if err != nil {
			return nil, err
		}
		rec = recorder.NewRecorder(store, &recorder.Config{
			Enabled:      true,
			AsyncBuffer:  1000,
			BatchSize:    100,
			WriteTimeout: cfg.Audit.SQLite.BusyTimeout,
			Backend:      cfg.Audit.Backend,
		}, recorder.Run{
			Source:        table.Source,
			Sheet:         table.Sheet,
			ConfigName:    loaded.Config.Name,
			ConfigVersion: loaded.Version(),
		}, recorder.WithObserver(collector), recorder.WithLogger(logger.Slog()))
		ctx = logging.WithRunID(ctx, rec.RunID())
		defer func() {
			rec.Close()
			written, failed, dropped := rec.Stats()
			logger.InfoContext(ctx, "audit records written",
				"written", written,
				"failed", failed,
				"dropped", dropped,
			)
			if cerr := store.Close(); cerr != nil {
				logger.Warn("failed to close audit store", "error", cerr)
			}
		}()
		report.RunID = rec.RunID()
	}
	tracing.SetSourceAttributes(span, report.RunID, table.Source, table.Sheet, len(table.Records))

	var progress cli.ProgressReporter
	if extractFlags.progress {
		progress = cli.NewProgressReporter(os.Stderr)
		progress.Start(len(table.Records))
	}

	start := time.Now()
	ruleErrors := 0
	for _, record := range table.Records {
		if err := ctx.Err(); err != nil {
			if progress != nil {
				progress.Fail(err)
			}
			return nil, err
		}

		rowCtx, rowSpan := tracer.StartRow(ctx, record.Number)
		bag, tr := eng.Parse(record.Row)
		errs := len(tr.Errors())
		ruleErrors += errs
		tracing.SetRowAttributes(rowSpan, len(bag), errs)

		if rec != nil {
			if err := rec.Record(rowCtx, record.Number, bag, tr); err != nil {
				logger.WarnContext(ctx, "failed to record row", "row", record.Number, "error", err)
			}
		}
		rowSpan.End()

		er := ExtractedRow{Row: record.Number, Fields: bag}
		if extractFlags.trace {
			er.Trace = tr
		}
		report.Records = append(report.Records, er)

		if progress != nil {
			progress.Row(errs)
		}
	}
	if progress != nil {
		progress.Finish()
	}

	logger.InfoContext(ctx, "extraction finished",
		"sheet", table.Sheet,
		"rows", len(table.Records),
		"rule_errors", ruleErrors,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return report, nil
}

// sourceOptions merges the input configuration with command flags.
func sourceOptions(cfg *config.Config) source.Options {
	opts := source.Options{
		Sheet:      cfg.Input.Sheet,
		HeaderRows: cfg.Input.HeaderRows,
		HeaderKeys: extractFlags.headerKeys,
		Delimiter:  csvDelimiter(cfg.Input.CSVDelimiter),
		Encoding:   cfg.Input.CSVEncoding,
		MaxRows:    cfg.Input.MaxRows,
	}
	if extractFlags.sheet != "" {
		opts.Sheet = extractFlags.sheet
	}
	if extractFlags.headerRows >= 0 {
		opts.HeaderRows = extractFlags.headerRows
	}
	if extractFlags.maxRows > 0 {
		opts.MaxRows = extractFlags.maxRows
	}
	return opts
}

// csvDelimiter returns the first rune of s, or ',' when s is empty.
func csvDelimiter(s string) rune {
	if r, _ := utf8.DecodeRuneInString(s); r != utf8.RuneError {
		return r
	}
	return ','
}
