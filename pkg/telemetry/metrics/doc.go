// Package metrics provides Prometheus metrics collection for the extraction
// engine and the tools built around it.
//
// # Overview
//
// The Collector implements engine.Recorder, so attaching it to an engine with
// engine.WithRecorder exports one counter sample per attempted rule and one
// duration observation per parsed row. Rule document loads and audit store
// writes are recorded by the CLI around those operations.
//
// # Metrics
//
//   - <ns>_<sub>_rule_evaluations_total{field, rule_id, strategy, outcome}
//   - <ns>_<sub>_row_duration_seconds
//   - <ns>_<sub>_rows_total
//   - <ns>_<sub>_fields_extracted_total
//   - <ns>_<sub>_row_field_coverage_ratio
//   - <ns>_<sub>_rule_document_loads_total{result}
//   - <ns>_<sub>_rule_document_fields / rule_document_rules
//   - <ns>_<sub>_audit_records_total{backend, result}
//   - <ns>_<sub>_audit_pruned_total{reason}
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	eng, err := engine.New(engCfg, rules, logger, engine.WithRecorder(collector))
//	...
//	if err := collector.WriteTextfile(cfg.Telemetry.Metrics.Textfile); err != nil {
//		return err
//	}
//
// The CLI is a batch process, so metrics are exported to a node_exporter
// textfile instead of being scraped over HTTP.
//
// # Cardinality
//
// Rule labels are bounded by the rule document, but a directory of documents
// can still be large. Label sets beyond the cardinality limit are folded into
// rule_id="other".
package metrics
