package metrics

import (
	"fmt"
	"sync"
	"time"

	"mercator-hq/pricelist/pkg/config"
	"mercator-hq/pricelist/pkg/extraction/engine"
	"mercator-hq/pricelist/pkg/rules/ast"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultMaxCardinality bounds the number of distinct rule label sets.
const DefaultMaxCardinality = 10000

// Collector is the entry point for all Prometheus metrics of the pricelist
// tools. It owns the registry and implements engine.Recorder.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	extractionMetrics *ExtractionMetrics
	ruleMetrics       *RuleDocumentMetrics
	auditMetrics      *AuditMetrics

	cardinalityLimiter *CardinalityLimiter
}

var _ engine.Recorder = (*Collector)(nil)

// NewCollector creates a new metrics collector with the specified configuration
// and Prometheus registry. If registry is nil, a fresh registry is created.
//
// Example:
//
//	cfg := &config.MetricsConfig{
//		Enabled:   true,
//		Namespace: "pricelist",
//		Subsystem: "extraction",
//	}
//	collector := metrics.NewCollector(cfg, nil)
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = "pricelist"
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = "extraction"
	}
	if len(cfg.RowDurationBuckets) == 0 {
		// A row is a handful of regexp and map lookups (1µs - 16ms)
		cfg.RowDurationBuckets = prometheus.ExponentialBuckets(0.000001, 2, 15)
	}

	return &Collector{
		config:             cfg,
		registry:           registry,
		extractionMetrics:  NewExtractionMetrics(cfg, registry),
		ruleMetrics:        NewRuleDocumentMetrics(cfg, registry),
		auditMetrics:       NewAuditMetrics(cfg, registry),
		cardinalityLimiter: NewCardinalityLimiter(DefaultMaxCardinality),
	}
}

// RecordRule implements engine.Recorder.
func (c *Collector) RecordRule(field, ruleID string, strategy ast.StrategyType, outcome engine.Outcome) {
	if !c.config.Enabled {
		return
	}

	labelSet := fmt.Sprintf("rule:%s:%s:%s", field, ruleID, outcome)
	if !c.cardinalityLimiter.Allow(labelSet) {
		ruleID = "other"
	}

	c.extractionMetrics.RecordRule(field, ruleID, string(strategy), string(outcome))
}

// RecordRow implements engine.Recorder.
func (c *Collector) RecordRow(duration time.Duration, extracted, total int) {
	if !c.config.Enabled {
		return
	}

	c.extractionMetrics.RecordRow(duration, extracted, total)
}

// RecordRulesLoaded records a rule document that passed validation.
func (c *Collector) RecordRulesLoaded(document string, fields, rules int) {
	if !c.config.Enabled {
		return
	}

	c.ruleMetrics.RecordLoad(document, fields, rules)
}

// RecordRulesRejected records a rule document that failed to load.
func (c *Collector) RecordRulesRejected() {
	if !c.config.Enabled {
		return
	}

	c.ruleMetrics.RecordLoadError()
}

// RecordAuditWrite records records written to the audit store.
func (c *Collector) RecordAuditWrite(backend string, count int, err error) {
	if !c.config.Enabled {
		return
	}

	c.auditMetrics.RecordWrite(backend, count, err)
}

// RecordAuditPrune records a retention pass.
func (c *Collector) RecordAuditPrune(byAge, byCount int64) {
	if !c.config.Enabled {
		return
	}

	c.auditMetrics.RecordPrune(byAge, byCount)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// WriteTextfile writes the current metric values in the Prometheus text
// format to path, for collection by node_exporter's textfile collector.
// An empty path is a no-op.
func (c *Collector) WriteTextfile(path string) error {
	if !c.config.Enabled || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label combinations per metric.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow checks if a label set is allowed. Returns true if the label set
// already exists or if we haven't reached the cardinality limit yet.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	// Double-check after acquiring write lock
	if _, exists := cl.current[labelSet]; exists {
		return true
	}

	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
