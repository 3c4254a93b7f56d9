// Package telemetry groups the observability packages of the pricelist tools.
//
// # Components
//
//   - logging: structured logging on log/slog
//   - metrics: Prometheus metrics, exported as a node_exporter textfile
//   - tracing: OpenTelemetry spans around extraction runs
//   - health: named readiness checks behind "pricelist doctor"
//
// The extraction engine itself only depends on *slog.Logger and its Recorder
// hook; the CLI wires these packages together.
package telemetry
