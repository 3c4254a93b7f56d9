package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	"mercator-hq/pricelist/pkg/rules/ast"
)

// Outcome is the result of one rule attempt.
type Outcome string

const (
	// OutcomeMatched means the rule produced the field value.
	OutcomeMatched Outcome = "matched"
	// OutcomeSkipped means the rule did not apply to the row.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeError means the rule failed; the next rule was tried.
	OutcomeError Outcome = "error"
)

// TraceEntry records one attempted rule.
type TraceEntry struct {
	// Field is the target field being resolved.
	Field string `json:"field"`

	// RuleID identifies the rule within the field.
	RuleID string `json:"rule_id"`

	// Strategy is the rule strategy.
	Strategy ast.StrategyType `json:"strategy"`

	// Outcome is matched, skipped or error.
	Outcome Outcome `json:"outcome"`

	// Value is the extracted value (matched only).
	Value string `json:"value,omitempty"`

	// Detail explains a skip or error, or what matched.
	Detail string `json:"detail,omitempty"`

	// Err is the *RuleEvaluationError of an error outcome.
	Err error `json:"-"`
}

// EvaluationTrace is the ordered, append-only log of rule attempts for one
// row. It is meant for diagnostics and audit only.
type EvaluationTrace struct {
	entries []TraceEntry
}

func newTrace(capacity int) *EvaluationTrace {
	return &EvaluationTrace{entries: make([]TraceEntry, 0, capacity)}
}

func (t *EvaluationTrace) append(e TraceEntry) {
	t.entries = append(t.entries, e)
}

// Entries returns a copy of all entries in evaluation order.
func (t *EvaluationTrace) Entries() []TraceEntry {
	if t == nil {
		return nil
	}
	out := make([]TraceEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len returns the number of entries.
func (t *EvaluationTrace) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// ForField returns the entries of one field in evaluation order.
func (t *EvaluationTrace) ForField(target string) []TraceEntry {
	var out []TraceEntry
	for _, e := range t.Entries() {
		if e.Field == target {
			out = append(out, e)
		}
	}
	return out
}

// Winner returns the matched entry of a field, if any.
func (t *EvaluationTrace) Winner(target string) (TraceEntry, bool) {
	for _, e := range t.Entries() {
		if e.Field == target && e.Outcome == OutcomeMatched {
			return e, true
		}
	}
	return TraceEntry{}, false
}

// Errors returns the entries with an error outcome.
func (t *EvaluationTrace) Errors() []TraceEntry {
	var out []TraceEntry
	for _, e := range t.Entries() {
		if e.Outcome == OutcomeError {
			out = append(out, e)
		}
	}
	return out
}

// MarshalJSON encodes the trace as an array of entries.
func (t *EvaluationTrace) MarshalJSON() ([]byte, error) {
	entries := t.Entries()
	if entries == nil {
		entries = []TraceEntry{}
	}
	return json.Marshal(entries)
}

// UnmarshalJSON decodes a trace produced by MarshalJSON.
func (t *EvaluationTrace) UnmarshalJSON(data []byte) error {
	var entries []TraceEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	t.entries = entries
	return nil
}

// String renders the trace grouped by field:
//
//	Product.Brand
//	  [matched] brand-table (lookup_table) = "D&G"
//	Product.Size
//	  [skipped] size-ml (pattern_extract): no match
func (t *EvaluationTrace) String() string {
	var sb strings.Builder
	current := ""
	for i, e := range t.Entries() {
		if i == 0 || e.Field != current {
			current = e.Field
			sb.WriteString(current)
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("  [%s] %s (%s)", e.Outcome, e.RuleID, e.Strategy))
		if e.Outcome == OutcomeMatched {
			sb.WriteString(fmt.Sprintf(" = %q", e.Value))
		}
		if e.Detail != "" {
			sb.WriteString(": ")
			sb.WriteString(e.Detail)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
