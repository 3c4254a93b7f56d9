package metrics

import (
	"time"

	"mercator-hq/pricelist/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// ExtractionMetrics tracks rule outcomes and per-row evaluation cost.
type ExtractionMetrics struct {
	// Rule outcomes by field, rule, strategy and outcome
	ruleEvaluations *prometheus.CounterVec

	// Parse duration per row
	rowDuration prometheus.Histogram

	// Rows parsed
	rowsTotal prometheus.Counter

	// Fields present in result bags
	fieldsExtracted prometheus.Counter

	// extracted / total fields per row
	fieldCoverage prometheus.Histogram
}

// NewExtractionMetrics creates and registers extraction metrics with the provided registry.
func NewExtractionMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ExtractionMetrics {
	em := &ExtractionMetrics{
		ruleEvaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rule_evaluations_total",
				Help:      "Total number of attempted extraction rules by outcome",
			},
			[]string{"field", "rule_id", "strategy", "outcome"},
		),

		rowDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "row_duration_seconds",
				Help:      "Duration of a single row extraction in seconds",
				Buckets:   cfg.RowDurationBuckets,
			},
		),

		rowsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rows_total",
				Help:      "Total number of rows parsed",
			},
		),

		fieldsExtracted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "fields_extracted_total",
				Help:      "Total number of fields present in result bags",
			},
		),

		fieldCoverage: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "row_field_coverage_ratio",
				Help:      "Share of configured fields extracted per row",
				Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
			},
		),
	}

	registry.MustRegister(
		em.ruleEvaluations,
		em.rowDuration,
		em.rowsTotal,
		em.fieldsExtracted,
		em.fieldCoverage,
	)

	return em
}

// RecordRule records one attempted rule.
func (em *ExtractionMetrics) RecordRule(field, ruleID, strategy, outcome string) {
	em.ruleEvaluations.WithLabelValues(field, ruleID, strategy, outcome).Inc()
}

// RecordRow records one parsed row.
func (em *ExtractionMetrics) RecordRow(duration time.Duration, extracted, total int) {
	em.rowsTotal.Inc()
	em.rowDuration.Observe(duration.Seconds())
	em.fieldsExtracted.Add(float64(extracted))
	if total > 0 {
		em.fieldCoverage.Observe(float64(extracted) / float64(total))
	}
}
