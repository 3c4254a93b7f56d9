package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys use the "pricelist.*" namespace.
const (
	AttrRunID        = "pricelist.run_id"
	AttrRules        = "pricelist.rules.name"
	AttrRulesVersion = "pricelist.rules.version"
	AttrFieldCount   = "pricelist.rules.fields"
	AttrRuleCount    = "pricelist.rules.rules"

	AttrSource    = "pricelist.source"
	AttrSheet     = "pricelist.source.sheet"
	AttrRowNumber = "pricelist.row.number"
	AttrExtracted = "pricelist.row.extracted"
	AttrRuleErrs  = "pricelist.row.rule_errors"

	AttrRowsTotal = "pricelist.run.rows"
)

// SetRulesAttributes records the rule document a run uses.
func SetRulesAttributes(span trace.Span, name, version string, fields, rules int) {
	attrs := []attribute.KeyValue{
		attribute.String(AttrRules, name),
		attribute.Int(AttrFieldCount, fields),
		attribute.Int(AttrRuleCount, rules),
	}
	if version != "" {
		attrs = append(attrs, attribute.String(AttrRulesVersion, version))
	}
	span.SetAttributes(attrs...)
}

// SetSourceAttributes records the input file of a run and its row count.
func SetSourceAttributes(span trace.Span, runID, source, sheet string, rows int) {
	attrs := []attribute.KeyValue{
		attribute.String(AttrRunID, runID),
		attribute.String(AttrSource, source),
		attribute.Int(AttrRowsTotal, rows),
	}
	if sheet != "" {
		attrs = append(attrs, attribute.String(AttrSheet, sheet))
	}
	span.SetAttributes(attrs...)
}

// SetRowAttributes records the outcome of one row.
func SetRowAttributes(span trace.Span, extracted, ruleErrors int) {
	span.SetAttributes(
		attribute.Int(AttrExtracted, extracted),
		attribute.Int(AttrRuleErrs, ruleErrors),
	)
}
