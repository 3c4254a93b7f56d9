package audit

import (
	"fmt"

	"mercator-hq/pricelist/pkg/extraction/engine"
)

const (
	// DefaultLimit is the number of records returned when Limit is zero.
	DefaultLimit = 100

	// MaxLimit is the maximum number of records returned by one query.
	MaxLimit = 10000
)

var validOutcomes = map[engine.Outcome]bool{
	engine.OutcomeMatched: true,
	engine.OutcomeSkipped: true,
	engine.OutcomeError:   true,
}

// Validate returns a *QueryError if any parameter is invalid.
func (q *Query) Validate() error {
	if q.Limit < 0 {
		return NewQueryError(q, fmt.Errorf("limit must be >= 0, got %d", q.Limit))
	}
	if q.Limit > MaxLimit {
		return NewQueryError(q, fmt.Errorf("limit must be <= %d, got %d", MaxLimit, q.Limit))
	}
	if q.Offset < 0 {
		return NewQueryError(q, fmt.Errorf("offset must be >= 0, got %d", q.Offset))
	}
	if q.SortOrder != "" && q.SortOrder != "asc" && q.SortOrder != "desc" {
		return NewQueryError(q, fmt.Errorf("invalid sort order: %s (must be 'asc' or 'desc')", q.SortOrder))
	}
	if q.StartTime != nil && q.EndTime != nil && q.StartTime.After(*q.EndTime) {
		return NewQueryError(q, fmt.Errorf("start_time must be before end_time"))
	}
	if q.Outcome != "" && !validOutcomes[q.Outcome] {
		return NewQueryError(q, fmt.Errorf("invalid outcome: %s (must be 'matched', 'skipped', or 'error')", q.Outcome))
	}
	return nil
}

// ApplyDefaults fills the default limit and sort order.
func (q *Query) ApplyDefaults() {
	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}
	if q.SortOrder == "" {
		q.SortOrder = "desc"
	}
}
