package metrics

import (
	"mercator-hq/pricelist/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// RuleDocumentMetrics tracks loading of rule documents.
type RuleDocumentMetrics struct {
	loadsTotal *prometheus.CounterVec
	fields     *prometheus.GaugeVec
	rules      *prometheus.GaugeVec
}

// NewRuleDocumentMetrics creates and registers rule document metrics with the provided registry.
func NewRuleDocumentMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RuleDocumentMetrics {
	rm := &RuleDocumentMetrics{
		loadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rule_document_loads_total",
				Help:      "Total number of rule document loads by result",
			},
			[]string{"result"},
		),

		fields: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rule_document_fields",
				Help:      "Number of target fields in the loaded rule document",
			},
			[]string{"document"},
		),

		rules: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rule_document_rules",
				Help:      "Number of rules in the loaded rule document",
			},
			[]string{"document"},
		),
	}

	registry.MustRegister(rm.loadsTotal, rm.fields, rm.rules)

	return rm
}

// RecordLoad records a successful load of document with its size.
func (rm *RuleDocumentMetrics) RecordLoad(document string, fields, rules int) {
	rm.loadsTotal.WithLabelValues("success").Inc()
	rm.fields.WithLabelValues(document).Set(float64(fields))
	rm.rules.WithLabelValues(document).Set(float64(rules))
}

// RecordLoadError records a rejected document.
func (rm *RuleDocumentMetrics) RecordLoadError() {
	rm.loadsTotal.WithLabelValues("error").Inc()
}
