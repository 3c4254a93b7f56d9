package engine

import (
	"fmt"
	"sort"

	"mercator-hq/pricelist/pkg/rules/ast"
)

// compiledRule is a rule ready for evaluation.
type compiledRule struct {
	id       string
	strategy ast.StrategyType
	eval     evaluator
}

// compiledField is a field with its rules in evaluation order.
type compiledField struct {
	target string
	rules  []compiledRule
}

// buildPlan compiles every rule and orders the fields so that fields
// referenced by derived rules are resolved first.
func buildPlan(cfg *ast.RuleConfig, config *EngineConfig) ([]compiledField, error) {
	if len(cfg.Fields) > config.MaxFields {
		return nil, fmt.Errorf("%w: %d fields exceed maximum %d", ErrInvalidConfig, len(cfg.Fields), config.MaxFields)
	}

	order, err := fieldOrder(cfg)
	if err != nil {
		return nil, err
	}

	plan := make([]compiledField, 0, len(order))
	for _, field := range order {
		if len(field.Rules) > config.MaxRulesPerField {
			return nil, &BuildError{
				Field: field.Target,
				Cause: fmt.Errorf("%w: %d rules exceed maximum %d", ErrInvalidConfig, len(field.Rules), config.MaxRulesPerField),
			}
		}

		// Rules are stored sorted by the loader; sort a copy again so that
		// hand-built configurations get the same order.
		rules := append([]*ast.RuleSpec(nil), field.Rules...)
		ast.SortRules(rules)

		cf := compiledField{target: field.Target, rules: make([]compiledRule, 0, len(rules))}
		for _, rule := range rules {
			eval, err := compile(rule)
			if err != nil {
				return nil, &BuildError{Field: field.Target, RuleID: rule.ID, Cause: err}
			}
			cf.rules = append(cf.rules, compiledRule{id: rule.ID, strategy: rule.Strategy, eval: eval})
		}
		plan = append(plan, cf)
	}
	return plan, nil
}

// fieldOrder returns the fields in a stable topological order of derived
// references (Kahn's algorithm). Among fields that are ready, the one
// declared first goes first, so without forward references the result is
// declaration order.
func fieldOrder(cfg *ast.RuleConfig) ([]*ast.FieldSpec, error) {
	index := make(map[string]int, len(cfg.Fields))
	for i, f := range cfg.Fields {
		index[f.Target] = i
	}

	indegree := make([]int, len(cfg.Fields))
	dependents := make([][]int, len(cfg.Fields))
	for i, f := range cfg.Fields {
		for _, ref := range f.Dependencies() {
			j, ok := index[ref]
			if !ok || j == i {
				continue
			}
			indegree[i]++
			dependents[j] = append(dependents[j], i)
		}
	}

	var ready []int
	for i, d := range indegree {
		if d == 0 {
			ready = append(ready, i)
		}
	}

	order := make([]*ast.FieldSpec, 0, len(cfg.Fields))
	for len(ready) > 0 {
		sort.Ints(ready)
		next := ready[0]
		ready = ready[1:]
		order = append(order, cfg.Fields[next])

		for _, dep := range dependents[next] {
			indegree[dep]--
			if indegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}

	if len(order) != len(cfg.Fields) {
		var stuck []string
		for i, d := range indegree {
			if d > 0 {
				stuck = append(stuck, cfg.Fields[i].Target)
			}
		}
		return nil, &BuildError{Field: stuck[0], Cause: fmt.Errorf("circular derived reference among %v", stuck)}
	}
	return order, nil
}
