package metrics

import (
	"mercator-hq/pricelist/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// AuditMetrics tracks writes to and pruning of the audit store.
type AuditMetrics struct {
	recordsTotal *prometheus.CounterVec
	prunedTotal  *prometheus.CounterVec
}

// NewAuditMetrics creates and registers audit metrics with the provided registry.
func NewAuditMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *AuditMetrics {
	am := &AuditMetrics{
		recordsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "audit_records_total",
				Help:      "Total number of audit records written by backend and result",
			},
			[]string{"backend", "result"},
		),

		prunedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "audit_pruned_total",
				Help:      "Total number of audit records deleted by retention",
			},
			[]string{"reason"},
		),
	}

	registry.MustRegister(am.recordsTotal, am.prunedTotal)

	return am
}

// RecordWrite records count records written to backend.
func (am *AuditMetrics) RecordWrite(backend string, count int, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	am.recordsTotal.WithLabelValues(backend, result).Add(float64(count))
}

// RecordPrune records records removed by the age and max-records policies.
func (am *AuditMetrics) RecordPrune(byAge, byCount int64) {
	am.prunedTotal.WithLabelValues("age").Add(float64(byAge))
	am.prunedTotal.WithLabelValues("max_records").Add(float64(byCount))
}
