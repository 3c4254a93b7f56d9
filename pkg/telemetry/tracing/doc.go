// Package tracing exports OpenTelemetry spans of extraction runs over
// OTLP/gRPC: one run span per input file with a child span per row.
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, version)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	ctx, run := tracer.StartRun(ctx)
//	defer run.End()
//	for _, rec := range table.Records {
//	    _, row := tracer.StartRow(ctx, rec.Number)
//	    bag, trace := eng.Parse(rec.Row)
//	    tracing.SetRowAttributes(row, len(bag), len(trace.Errors()))
//	    row.End()
//	}
//
// A disabled configuration yields a Tracer backed by the noop provider.
package tracing
