package audit

import (
	"context"
	"time"

	"mercator-hq/pricelist/pkg/extraction/engine"
	"mercator-hq/pricelist/pkg/rules/ast"
)

// Record is the audit trail of one parsed row.
type Record struct {
	// ID uniquely identifies the record (UUID).
	ID string `json:"id"`

	// RunID groups the records of one extraction run.
	RunID string `json:"run_id"`

	// Source is the file or stream the row came from.
	Source string `json:"source"`
	Sheet  string `json:"sheet,omitempty"`

	// RowNumber is the 1-based row number in the source.
	RowNumber int `json:"row_number"`

	// ConfigName and ConfigVersion identify the rule document. For rules
	// loaded from git the version carries the short commit SHA, "1.0+3f1c2a9b0d4e".
	ConfigName    string `json:"config_name"`
	ConfigVersion string `json:"config_version"`

	// TraceID links the record to the OpenTelemetry span of the row, if any.
	TraceID string `json:"trace_id,omitempty"`

	// Bag is the extracted result bag.
	Bag map[string]string `json:"bag"`

	// Entries are the rule attempts in evaluation order.
	Entries []Entry `json:"entries"`

	// Timestamp is when the row was parsed.
	Timestamp time.Time `json:"timestamp"`
}

// Entry is the persisted form of one engine trace entry.
type Entry struct {
	Field    string           `json:"field"`
	RuleID   string           `json:"rule_id"`
	Strategy ast.StrategyType `json:"strategy"`
	Outcome  engine.Outcome   `json:"outcome"`
	Value    string           `json:"value,omitempty"`
	Detail   string           `json:"detail,omitempty"`
}

// EntriesFromTrace converts an engine trace into audit entries.
func EntriesFromTrace(trace *engine.EvaluationTrace) []Entry {
	src := trace.Entries()
	entries := make([]Entry, 0, len(src))
	for _, e := range src {
		entries = append(entries, Entry{
			Field:    e.Field,
			RuleID:   e.RuleID,
			Strategy: e.Strategy,
			Outcome:  e.Outcome,
			Value:    e.Value,
			Detail:   e.Detail,
		})
	}
	return entries
}

// Errors returns the entries with an error outcome.
func (r *Record) Errors() []Entry {
	var out []Entry
	for _, e := range r.Entries {
		if e.Outcome == engine.OutcomeError {
			out = append(out, e)
		}
	}
	return out
}

// Winner returns the matched entry of a field, if any.
func (r *Record) Winner(field string) (Entry, bool) {
	for _, e := range r.Entries {
		if e.Field == field && e.Outcome == engine.OutcomeMatched {
			return e, true
		}
	}
	return Entry{}, false
}

// Query defines filter parameters for querying audit records.
// Empty fields do not filter.
type Query struct {
	// Time range (inclusive).
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`

	RunID      string `json:"run_id,omitempty"`
	ConfigName string `json:"config_name,omitempty"`
	Source     string `json:"source,omitempty"`

	// Field, RuleID and Outcome match records having at least one entry
	// with all of the given values.
	Field   string         `json:"field,omitempty"`
	RuleID  string         `json:"rule_id,omitempty"`
	Outcome engine.Outcome `json:"outcome,omitempty"`

	// Pagination
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`

	// SortOrder orders by timestamp then row number: "asc" or "desc".
	SortOrder string `json:"sort_order,omitempty"`
}

// HasEntryFilter reports whether the query filters on rule attempts.
func (q *Query) HasEntryFilter() bool {
	return q.Field != "" || q.RuleID != "" || q.Outcome != ""
}

// MatchesEntry reports whether e satisfies the entry filters of q.
func (q *Query) MatchesEntry(e Entry) bool {
	if q.Field != "" && e.Field != q.Field {
		return false
	}
	if q.RuleID != "" && e.RuleID != q.RuleID {
		return false
	}
	if q.Outcome != "" && e.Outcome != q.Outcome {
		return false
	}
	return true
}

// Matches reports whether r satisfies every filter of q. Pagination is not
// considered.
func (q *Query) Matches(r *Record) bool {
	if q.StartTime != nil && r.Timestamp.Before(*q.StartTime) {
		return false
	}
	if q.EndTime != nil && r.Timestamp.After(*q.EndTime) {
		return false
	}
	if q.RunID != "" && r.RunID != q.RunID {
		return false
	}
	if q.ConfigName != "" && r.ConfigName != q.ConfigName {
		return false
	}
	if q.Source != "" && r.Source != q.Source {
		return false
	}
	if !q.HasEntryFilter() {
		return true
	}
	for _, e := range r.Entries {
		if q.MatchesEntry(e) {
			return true
		}
	}
	return false
}

// Storage defines the interface for audit storage backends.
type Storage interface {
	// Store persists one record.
	Store(ctx context.Context, record *Record) error

	// StoreBatch persists several records atomically where the backend
	// supports it.
	StoreBatch(ctx context.Context, records []*Record) error

	// Query retrieves records matching the query filters.
	Query(ctx context.Context, query *Query) ([]*Record, error)

	// Count returns the number of records matching the query filters.
	Count(ctx context.Context, query *Query) (int64, error)

	// Delete removes records matching the query filters and returns how
	// many were removed. Pagination is ignored.
	Delete(ctx context.Context, query *Query) (int64, error)

	// Close closes the backend.
	Close() error
}
