package validator

import (
	"fmt"
	"strings"

	"mercator-hq/pricelist/pkg/row"
	"mercator-hq/pricelist/pkg/rules/ast"
	rulesErrors "mercator-hq/pricelist/pkg/rules/errors"
)

// SemanticValidator checks patterns, derived references and lookup tables.
type SemanticValidator struct {
	cfg    *ast.RuleConfig
	errors *rulesErrors.ConfigError
}

// NewSemanticValidator creates a new semantic validator.
func NewSemanticValidator() *SemanticValidator {
	return &SemanticValidator{
		errors: rulesErrors.NewConfigError(),
	}
}

// Validate performs semantic validation of cfg.
func (v *SemanticValidator) Validate(cfg *ast.RuleConfig) error {
	v.cfg = cfg
	v.errors = rulesErrors.NewConfigError()

	for _, field := range cfg.Fields {
		for _, rule := range field.Rules {
			switch p := rule.Params.(type) {
			case *ast.PatternExtractParams:
				v.validatePattern(field, rule, p)
			case *ast.LookupTableParams:
				v.validateLookupTable(field, rule, p)
			case *ast.DerivedParams:
				v.validateDerived(field, rule, p)
			}
		}
	}

	v.validateDerivedCycles()

	return v.errors.ToError()
}

func (v *SemanticValidator) add(message string, loc ast.Location, suggestion string) {
	v.errors.AddErrorWithSuggestion(rulesErrors.ErrorTypeSemantic, message, loc, suggestion)
}

// validatePattern checks that the pattern compiles and the group exists.
func (v *SemanticValidator) validatePattern(field *ast.FieldSpec, rule *ast.RuleSpec, p *ast.PatternExtractParams) {
	re, err := p.Compile()
	if err != nil {
		v.add(fmt.Sprintf("Invalid pattern in rule %q of field %q: %v", rule.ID, field.Target, err),
			rule.Location, "Patterns use RE2 syntax; escape literal parentheses as \\( and \\)")
		return
	}
	if _, err := p.GroupIndex(re); err != nil {
		var names []string
		for _, n := range re.SubexpNames() {
			if n != "" {
				names = append(names, n)
			}
		}
		v.add(fmt.Sprintf("Rule %q of field %q: %v", rule.ID, field.Target, err),
			rule.Location, rulesErrors.SuggestName(p.Group, names, "groups"))
	}
}

// validateLookupTable rejects keys that collide once normalized the way the
// engine compares them.
func (v *SemanticValidator) validateLookupTable(field *ast.FieldSpec, rule *ast.RuleSpec, p *ast.LookupTableParams) {
	seen := make(map[string]string, len(p.Table))
	for _, key := range sortedTableKeys(p.Table) {
		norm := row.NormalizeKey(key)
		if norm == "" {
			continue
		}
		if other, dup := seen[norm]; dup {
			v.add(fmt.Sprintf("Lookup keys %q and %q of rule %q in field %q collide ignoring case, punctuation and spacing", other, key, rule.ID, field.Target),
				rule.Location, "Keep one of the keys")
			continue
		}
		seen[norm] = key
	}
}

// validateDerived checks references and placeholders of a derived rule.
func (v *SemanticValidator) validateDerived(field *ast.FieldSpec, rule *ast.RuleSpec, p *ast.DerivedParams) {
	targets := v.cfg.Targets()
	listed := make(map[string]bool, len(p.From))

	for _, ref := range p.From {
		listed[ref] = true
		if ref == field.Target {
			v.add(fmt.Sprintf("Derived rule %q of field %q references its own field", rule.ID, field.Target),
				rule.Location, "Reference other fields only")
			continue
		}
		if v.cfg.Field(ref) == nil {
			v.add(fmt.Sprintf("Derived rule %q of field %q references undefined field %q", rule.ID, field.Target, ref),
				rule.Location, rulesErrors.SuggestName(ref, targets, "fields"))
		}
	}

	for _, ph := range p.Placeholders() {
		if !listed[ph] {
			v.add(fmt.Sprintf("Format of derived rule %q in field %q uses {%s}, which is not listed in 'from'", rule.ID, field.Target, ph),
				rule.Location, fmt.Sprintf("Add %s to 'from'", ph))
		}
	}
}

// validateDerivedCycles rejects derived references that form a cycle.
func (v *SemanticValidator) validateDerivedCycles() {
	visited := make(map[string]bool)
	inProgress := make(map[string]bool)

	for _, field := range v.cfg.Fields {
		if !visited[field.Target] {
			v.checkDerivedCycle(field.Target, visited, inProgress, nil)
		}
	}
}

// checkDerivedCycle performs DFS over derived references.
func (v *SemanticValidator) checkDerivedCycle(target string, visited, inProgress map[string]bool, path []string) {
	visited[target] = true
	inProgress[target] = true
	path = append(path, target)

	field := v.cfg.Field(target)
	if field == nil {
		inProgress[target] = false
		return
	}

	for _, ref := range field.Dependencies() {
		if ref == target {
			continue // reported as a self reference
		}
		if inProgress[ref] {
			cycle := append(append([]string(nil), path[indexOf(path, ref):]...), ref)
			v.add(fmt.Sprintf("Circular derived reference: %s", strings.Join(cycle, " -> ")),
				field.Location, "Remove one of the derived references in the cycle")
			continue
		}
		if !visited[ref] {
			v.checkDerivedCycle(ref, visited, inProgress, path)
		}
	}

	inProgress[target] = false
}

func indexOf(path []string, s string) int {
	for i, p := range path {
		if p == s {
			return i
		}
	}
	return 0
}
