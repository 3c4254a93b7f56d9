/*
Package cli provides command-line helpers shared by the pricelist commands.

Output Formatting:

Results are written as text, JSON or CSV:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, result); err != nil {
		return err
	}

CSV output requires a value implementing Tabular.

Progress Reporting:

Long extractions report progress on stderr:

	progress := cli.NewProgressReporter(os.Stderr)
	progress.Start(len(records))
	for _, rec := range records {
		_, trace := eng.Parse(rec.Row)
		progress.Row(len(trace.Errors()))
	}
	progress.Finish()

Signal Handling and Exit Codes:

	ctx, stop := cli.SetupSignalHandler()
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(cli.ExitCode(err))
	}

Configuration errors exit with 2, interrupted runs with 130 and every other
failure with 1.
*/
package cli
