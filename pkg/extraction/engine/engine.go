package engine

import (
	"fmt"
	"log/slog"
	"time"

	"mercator-hq/pricelist/pkg/row"
	"mercator-hq/pricelist/pkg/rules/ast"
	"mercator-hq/pricelist/pkg/rules/validator"
)

// Recorder observes rule outcomes and row evaluations, typically to export
// metrics. Implementations must be safe for concurrent use.
type Recorder interface {
	// RecordRule is called once per attempted rule.
	RecordRule(field, ruleID string, strategy ast.StrategyType, outcome Outcome)

	// RecordRow is called once per Parse call.
	RecordRow(duration time.Duration, extracted, total int)
}

type nopRecorder struct{}

func (nopRecorder) RecordRule(string, string, ast.StrategyType, Outcome) {}
func (nopRecorder) RecordRow(time.Duration, int, int)                  {}

// Option configures an Engine.
type Option func(*Engine)

// WithRecorder sets the observer of rule outcomes.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

// Engine evaluates a RuleConfig against rows. It is built once and is safe
// for concurrent use: Parse never mutates the engine or the configuration.
type Engine struct {
	// cfg is the validated configuration the engine was built from.
	cfg *ast.RuleConfig

	// fields holds the compiled rules in evaluation order.
	fields []compiledField

	// ruleCount is the total number of compiled rules.
	ruleCount int

	config   *EngineConfig
	logger   *slog.Logger
	recorder Recorder
}

// BuildEngine builds an engine with default limits.
func BuildEngine(cfg *ast.RuleConfig) (*Engine, error) {
	return New(cfg, nil, nil)
}

// New validates cfg and compiles it into an engine. A configuration that
// fails validation yields the validator's *errors.ConfigError.
func New(cfg *ast.RuleConfig, config *EngineConfig, logger *slog.Logger, opts ...Option) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: rule configuration cannot be nil", ErrInvalidConfig)
	}

	if config == nil {
		config = DefaultEngineConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	if err := validator.NewValidator().Validate(cfg); err != nil {
		return nil, err
	}

	fields, err := buildPlan(cfg, config)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:      cfg,
		fields:   fields,
		config:   config,
		logger:   logger,
		recorder: nopRecorder{},
	}
	for _, f := range fields {
		e.ruleCount += len(f.rules)
	}
	for _, opt := range opts {
		opt(e)
	}

	logger.Info("extraction engine built",
		"config", cfg.Name,
		"field_count", len(fields),
		"rule_count", e.ruleCount,
	)

	return e, nil
}

// Parse evaluates every field against r. For each field, rules are tried in
// priority order until one matches; every attempt is recorded in the trace.
// Fields without a matching rule are absent from the bag.
func (e *Engine) Parse(r row.Row) (ResultBag, *EvaluationTrace) {
	start := time.Now()

	st := &evalState{
		row:           r,
		bag:           make(ResultBag, len(e.fields)),
		maxCellLength: e.config.MaxCellLength,
		folded:        make(map[string]string, r.Len()),
	}
	trace := newTrace(e.ruleCount)

	for _, f := range e.fields {
		for _, rule := range f.rules {
			entry := e.evaluateRule(f.target, rule, st)
			trace.append(entry)
			e.recorder.RecordRule(f.target, rule.id, rule.strategy, entry.Outcome)

			if entry.Outcome == OutcomeMatched {
				st.bag[f.target] = entry.Value
				break
			}
		}
	}

	e.recorder.RecordRow(time.Since(start), len(st.bag), len(e.fields))
	return st.bag, trace
}

// Extract evaluates r and returns only the result bag.
func (e *Engine) Extract(r row.Row) ResultBag {
	bag, _ := e.Parse(r)
	return bag
}

// Explain evaluates r and renders its trace for people.
func (e *Engine) Explain(r row.Row) string {
	_, trace := e.Parse(r)
	return trace.String()
}

// evaluateRule runs one rule, turning errors and panics into an error entry.
func (e *Engine) evaluateRule(target string, rule compiledRule, st *evalState) (entry TraceEntry) {
	entry = TraceEntry{Field: target, RuleID: rule.id, Strategy: rule.strategy}

	defer func() {
		if p := recover(); p != nil {
			entry = e.failed(entry, fmt.Errorf("%w: %v", ErrRulePanic, p))
		}
	}()

	res, err := rule.eval.evaluate(st)
	if err != nil {
		return e.failed(entry, err)
	}

	entry.Detail = res.detail
	if res.matched {
		entry.Outcome = OutcomeMatched
		entry.Value = res.value
	} else {
		entry.Outcome = OutcomeSkipped
	}
	return entry
}

func (e *Engine) failed(entry TraceEntry, cause error) TraceEntry {
	err := &RuleEvaluationError{
		Field:    entry.Field,
		RuleID:   entry.RuleID,
		Strategy: entry.Strategy,
		Cause:    cause,
	}
	e.logger.Debug("rule evaluation failed",
		"field", entry.Field,
		"rule", entry.RuleID,
		"strategy", entry.Strategy,
		"error", cause,
	)
	entry.Outcome = OutcomeError
	entry.Value = ""
	entry.Detail = cause.Error()
	entry.Err = err
	return entry
}

// Config returns the configuration the engine was built from.
func (e *Engine) Config() *ast.RuleConfig {
	return e.cfg
}

// Fields returns the target fields in evaluation order.
func (e *Engine) Fields() []string {
	out := make([]string, len(e.fields))
	for i, f := range e.fields {
		out[i] = f.target
	}
	return out
}

// RuleCount returns the number of compiled rules.
func (e *Engine) RuleCount() int {
	return e.ruleCount
}
