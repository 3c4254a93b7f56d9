package ast

import (
	"sort"
	"strings"
)

// StrategyType identifies the extraction strategy of a rule.
type StrategyType string

const (
	StrategyLiteralMatch   StrategyType = "literal_match"
	StrategyContains       StrategyType = "contains"
	StrategyPatternExtract StrategyType = "pattern_extract"
	StrategyLookupTable    StrategyType = "lookup_table"
	StrategyDerived        StrategyType = "derived"
	StrategyDefault        StrategyType = "default"
)

// Strategies lists every strategy tag in canonical spelling.
var Strategies = []StrategyType{
	StrategyLiteralMatch,
	StrategyContains,
	StrategyPatternExtract,
	StrategyLookupTable,
	StrategyDerived,
	StrategyDefault,
}

// strategyAliases maps accepted spellings (lowercased, without separators) to tags.
var strategyAliases = map[string]StrategyType{
	"literalmatch":   StrategyLiteralMatch,
	"literal":        StrategyLiteralMatch,
	"contains":       StrategyContains,
	"patternextract": StrategyPatternExtract,
	"pattern":        StrategyPatternExtract,
	"lookuptable":    StrategyLookupTable,
	"lookup":         StrategyLookupTable,
	"derived":        StrategyDerived,
	"default":        StrategyDefault,
}

// ParseStrategy resolves a strategy tag as written in a document.
// Both "pattern_extract" and "PatternExtract" are accepted.
func ParseStrategy(tag string) (StrategyType, bool) {
	key := strings.ToLower(strings.NewReplacer("_", "", "-", "", " ", "").Replace(tag))
	s, ok := strategyAliases[key]
	return s, ok
}

// StrategyNames returns the canonical strategy tags as strings.
func StrategyNames() []string {
	names := make([]string, len(Strategies))
	for i, s := range Strategies {
		names[i] = string(s)
	}
	return names
}

// RuleSpec is one declarative extraction rule of a field.
type RuleSpec struct {
	ID       string       // Unique rule ID within its field
	Strategy StrategyType // Extraction strategy
	Priority int          // Lower values are evaluated first
	Params   Params       // Strategy parameters, matching Strategy
	Index    int          // Declaration index within the field
	Location Location     // Source location
}

// Source returns the column referenced by the rule, or "" for rules that do
// not read the row (derived, default).
func (r *RuleSpec) Source() string {
	if p, ok := r.Params.(ColumnParams); ok {
		return p.Column()
	}
	return ""
}

// SortRules orders rules by priority (lowest first), breaking ties by
// declaration index. The sort is stable and deterministic.
func SortRules(rules []*RuleSpec) {
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority < rules[j].Priority
		}
		return rules[i].Index < rules[j].Index
	})
}
