package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/pricelist/pkg/audit"
	"mercator-hq/pricelist/pkg/audit/retention"
	"mercator-hq/pricelist/pkg/cli"
	"mercator-hq/pricelist/pkg/extraction/engine"
	"mercator-hq/pricelist/pkg/telemetry/metrics"
)

var auditFlags struct {
	backend    string
	timeRange  string
	runID      string
	configName string
	source     string
	field      string
	ruleID     string
	outcome    string
	limit      int
	offset     int
	order      string
	format     string
	output     string
	count      bool

	retentionDays int
	maxRecords    int64
	schedule      bool
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query and prune persisted evaluation traces",
	Long: `Query and prune the audit store written by "extract --audit".

Every audited row is one record: the run it belongs to, the source file and
row number, the rule document name and version, the extracted fields and
every rule attempt.

Subcommands:
  query   - Query audit records with filters
  prune   - Delete records past the retention policy

Examples:
  # Rows of one run where a rule failed
  pricelist audit query --run 3f1c... --outcome error

  # Rows whose brand came from the fallback rule, as JSON
  pricelist audit query --field Product.Brand --rule brand-first-word --format json

  # Apply the retention policy now
  pricelist audit prune

  # Apply it on the configured cron schedule until interrupted
  pricelist audit prune --schedule`,
}

var auditQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query audit records",
	RunE:  queryAudit,
}

var auditPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete audit records past the retention policy",
	RunE:  pruneAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditQueryCmd)
	auditCmd.AddCommand(auditPruneCmd)

	auditCmd.PersistentFlags().StringVar(&auditFlags.backend, "backend", "", "backend: sqlite, memory (uses config if not specified)")

	auditQueryCmd.Flags().StringVar(&auditFlags.timeRange, "time-range", "", "time range (RFC3339 interval: start/end)")
	auditQueryCmd.Flags().StringVar(&auditFlags.runID, "run", "", "filter by run ID")
	auditQueryCmd.Flags().StringVar(&auditFlags.configName, "config-name", "", "filter by rule document name")
	auditQueryCmd.Flags().StringVar(&auditFlags.source, "source", "", "filter by source file")
	auditQueryCmd.Flags().StringVar(&auditFlags.field, "field", "", "filter by target field of a rule attempt")
	auditQueryCmd.Flags().StringVar(&auditFlags.ruleID, "rule", "", "filter by rule ID of a rule attempt")
	auditQueryCmd.Flags().StringVar(&auditFlags.outcome, "outcome", "", "filter by rule attempt outcome (matched, skipped, error)")
	auditQueryCmd.Flags().IntVar(&auditFlags.limit, "limit", audit.DefaultLimit, "max results")
	auditQueryCmd.Flags().IntVar(&auditFlags.offset, "offset", 0, "pagination offset")
	auditQueryCmd.Flags().StringVar(&auditFlags.order, "order", "desc", "sort order by time: asc, desc")
	auditQueryCmd.Flags().StringVar(&auditFlags.format, "format", "text", "output format: text, json, csv")
	auditQueryCmd.Flags().StringVarP(&auditFlags.output, "output", "o", "", "output file (default: stdout)")
	auditQueryCmd.Flags().BoolVar(&auditFlags.count, "count", false, "print only the number of matching records")

	auditPruneCmd.Flags().IntVar(&auditFlags.retentionDays, "retention-days", -1, "override retention days (0 keeps everything)")
	auditPruneCmd.Flags().Int64Var(&auditFlags.maxRecords, "max-records", -1, "override max records (0 is unlimited)")
	auditPruneCmd.Flags().BoolVar(&auditFlags.schedule, "schedule", false, "prune on the configured cron schedule until interrupted")
}

// buildAuditQuery converts the query flags into an audit query.
func buildAuditQuery() (*audit.Query, error) {
	query := &audit.Query{
		RunID:      auditFlags.runID,
		ConfigName: auditFlags.configName,
		Source:     auditFlags.source,
		Field:      auditFlags.field,
		RuleID:     auditFlags.ruleID,
		Outcome:    engine.Outcome(auditFlags.outcome),
		Limit:      auditFlags.limit,
		Offset:     auditFlags.offset,
		SortOrder:  auditFlags.order,
	}

	if auditFlags.timeRange != "" {
		parts := strings.Split(auditFlags.timeRange, "/")
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid time range format (expected: start/end)")
		}

		startTime, err := time.Parse(time.RFC3339, parts[0])
		if err != nil {
			return nil, fmt.Errorf("invalid start time: %w", err)
		}
		query.StartTime = &startTime

		endTime, err := time.Parse(time.RFC3339, parts[1])
		if err != nil {
			return nil, fmt.Errorf("invalid end time: %w", err)
		}
		query.EndTime = &endTime
	}

	if err := query.Validate(); err != nil {
		return nil, err
	}
	return query, nil
}

func openConfiguredAuditStorage() (audit.Storage, error) {
	cfg, err := loadAppConfig()
	if err != nil {
		return nil, err
	}
	auditCfg := cfg.Audit
	if auditFlags.backend != "" {
		auditCfg.Backend = auditFlags.backend
	}
	store, err := openAuditStorage(&auditCfg)
	if err != nil {
		return nil, cli.NewCommandError("audit", fmt.Errorf("failed to open audit store: %w", err))
	}
	return store, nil
}

func queryAudit(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(auditFlags.format, cli.FormatText, cli.FormatJSON, cli.FormatCSV)
	if err != nil {
		return err
	}
	query, err := buildAuditQuery()
	if err != nil {
		return err
	}

	store, err := openConfiguredAuditStorage()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := commandContext(cmd)

	var out io.Writer = commandOutput(cmd)
	if auditFlags.output != "" {
		// #nosec G304 - the output path is chosen by the user.
		f, err := os.Create(auditFlags.output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	if auditFlags.count {
		n, err := store.Count(ctx, query)
		if err != nil {
			return cli.NewCommandError("audit", fmt.Errorf("count failed: %w", err))
		}
		fmt.Fprintln(out, n)
		return nil
	}

	records, err := store.Query(ctx, query)
	if err != nil {
		return cli.NewCommandError("audit", fmt.Errorf("query failed: %w", err))
	}

	switch format {
	case cli.FormatJSON:
		return cli.NewFormatter(cli.FormatJSON).FormatTo(out, records)
	case cli.FormatCSV:
		return cli.NewFormatter(cli.FormatCSV).FormatTo(out, auditTable(records))
	default:
		return outputAuditText(out, records, query)
	}
}

// auditTable lists one record per CSV line.
type auditTable []*audit.Record

func (t auditTable) Header() []string {
	return []string{"id", "run_id", "timestamp", "source", "sheet", "row", "config", "config_version", "fields", "rule_errors"}
}

func (t auditTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, r := range t {
		rows = append(rows, []string{
			r.ID,
			r.RunID,
			r.Timestamp.UTC().Format(time.RFC3339Nano),
			r.Source,
			r.Sheet,
			strconv.Itoa(r.RowNumber),
			r.ConfigName,
			r.ConfigVersion,
			strconv.Itoa(len(r.Bag)),
			strconv.Itoa(len(r.Errors())),
		})
	}
	return rows
}

func outputAuditText(out io.Writer, records []*audit.Record, query *audit.Query) error {
	fmt.Fprintln(out, "Querying audit records...")
	fmt.Fprintln(out)

	if query.StartTime != nil && query.EndTime != nil {
		fmt.Fprintf(out, "Time range: %s to %s\n",
			query.StartTime.Format(time.RFC3339),
			query.EndTime.Format(time.RFC3339))
	}
	fmt.Fprintf(out, "Total records: %d\n", len(records))
	fmt.Fprintln(out)

	if len(records) == 0 {
		fmt.Fprintln(out, "No records found.")
		return nil
	}

	for i, record := range records {
		if i > 0 {
			fmt.Fprintln(out)
		}

		fmt.Fprintf(out, "Record ID: %s\n", record.ID)
		fmt.Fprintf(out, "Run: %s\n", record.RunID)
		fmt.Fprintf(out, "Timestamp: %s\n", record.Timestamp.Format(time.RFC3339))
		fmt.Fprintf(out, "Source: %s", record.Source)
		if record.Sheet != "" {
			fmt.Fprintf(out, " [%s]", record.Sheet)
		}
		fmt.Fprintf(out, " row %d\n", record.RowNumber)
		fmt.Fprintf(out, "Rules: %s %s\n", record.ConfigName, record.ConfigVersion)
		if record.TraceID != "" {
			fmt.Fprintf(out, "Trace ID: %s\n", record.TraceID)
		}
		for _, k := range sortedKeys(record.Bag) {
			winner := ""
			if e, ok := record.Winner(k); ok {
				winner = e.RuleID
			}
			fmt.Fprintf(out, "  %-24s %-20q %s\n", k, record.Bag[k], winner)
		}
		for _, e := range record.Errors() {
			fmt.Fprintf(out, "  ✗ %s/%s: %s\n", e.Field, e.RuleID, e.Detail)
		}

		// Show limited output for large result sets
		if i >= 9 && len(records) > 10 {
			remaining := len(records) - 10
			fmt.Fprintln(out)
			fmt.Fprintf(out, "... and %d more records\n", remaining)
			fmt.Fprintf(out, "Use --limit and --offset for pagination.\n")
			break
		}
	}

	return nil
}

func pruneAudit(cmd *cobra.Command, args []string) error {
	cfg, err := loadAppConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	store, err := openConfiguredAuditStorage()
	if err != nil {
		return err
	}
	defer store.Close()

	rc := &retention.Config{
		RetentionDays: cfg.Audit.Retention.RetentionDays,
		MaxRecords:    cfg.Audit.Retention.MaxRecords,
		PruneSchedule: cfg.Audit.Retention.PruneSchedule,
	}
	if auditFlags.retentionDays >= 0 {
		rc.RetentionDays = auditFlags.retentionDays
	}
	if auditFlags.maxRecords >= 0 {
		rc.MaxRecords = auditFlags.maxRecords
	}

	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
	defer func() {
		if werr := collector.WriteTextfile(cfg.Telemetry.Metrics.Textfile); werr != nil {
			logger.Warn("failed to write metrics", "error", werr)
		}
	}()

	pruner := retention.NewPruner(store, rc)
	pruner.SetObserver(collector)

	ctx := commandContext(cmd)
	out := commandOutput(cmd)

	if auditFlags.schedule {
		scheduler := retention.NewScheduler(pruner)
		if err := scheduler.Start(ctx); err != nil {
			return cli.NewCommandError("audit", err)
		}
		if next := scheduler.NextRun(); next != nil {
			fmt.Fprintf(out, "Pruning on %q, next run at %s (Ctrl+C to stop)\n", rc.PruneSchedule, next.Format(time.RFC3339))
		}
		<-ctx.Done()
		scheduler.Stop()
		if last := scheduler.LastPass(); !last.At.IsZero() {
			fmt.Fprintf(out, "Last pass at %s pruned %d record(s)\n", last.At.Format(time.RFC3339), last.Result.Total())
		}
		return nil
	}

	result, err := pruner.Prune(ctx)
	if err != nil {
		return cli.NewCommandError("audit", err)
	}
	fmt.Fprintf(out, "Pruned %d record(s): %d past %d day(s), %d above %d record(s)\n",
		result.Total(), result.ByAge, rc.RetentionDays, result.ByCount, rc.MaxRecords)
	return nil
}
