package validator

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"mercator-hq/pricelist/pkg/row"
	"mercator-hq/pricelist/pkg/rules/ast"
	rulesErrors "mercator-hq/pricelist/pkg/rules/errors"
)

var (
	// kebabCasePattern validates configuration names (e.g. "perfume-supplier-a").
	kebabCasePattern = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

	// targetPattern validates dotted field names (e.g. "Product.Brand").
	targetPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*(\.[A-Za-z][A-Za-z0-9_]*)*$`)
)

// StructuralValidator checks required entries, naming and parameters.
type StructuralValidator struct {
	errors *rulesErrors.ConfigError
}

// NewStructuralValidator creates a new structural validator.
func NewStructuralValidator() *StructuralValidator {
	return &StructuralValidator{
		errors: rulesErrors.NewConfigError(),
	}
}

// Validate performs structural validation of cfg.
func (v *StructuralValidator) Validate(cfg *ast.RuleConfig) error {
	v.errors = rulesErrors.NewConfigError()

	v.validateMetadata(cfg)
	v.validateFields(cfg)

	return v.errors.ToError()
}

func (v *StructuralValidator) add(message string, loc ast.Location) {
	v.errors.AddError(rulesErrors.ErrorTypeStructural, message, loc)
}

func (v *StructuralValidator) addWithSuggestion(message string, loc ast.Location, suggestion string) {
	v.errors.AddErrorWithSuggestion(rulesErrors.ErrorTypeStructural, message, loc, suggestion)
}

// validateMetadata validates document metadata.
func (v *StructuralValidator) validateMetadata(cfg *ast.RuleConfig) {
	if cfg.Version == "" {
		v.addWithSuggestion("Missing required field 'version'", cfg.Location,
			rulesErrors.SuggestMissingField("version", `"1.0"`))
	} else if !ast.SupportedVersions[cfg.Version] {
		v.addWithSuggestion(fmt.Sprintf("Unsupported document version %q", cfg.Version), cfg.Location,
			"Supported versions: 1.0")
	}

	if cfg.Name == "" {
		v.addWithSuggestion("Missing required field 'name'", cfg.Location,
			rulesErrors.SuggestMissingField("name", `"my-supplier"`))
	} else if !kebabCasePattern.MatchString(cfg.Name) {
		v.addWithSuggestion(fmt.Sprintf("Configuration name %q must be kebab-case (lowercase with hyphens)", cfg.Name),
			cfg.Location, "Example: 'perfume-supplier-a'")
	}

	if len(cfg.Fields) == 0 {
		v.addWithSuggestion("Configuration must declare at least one field", cfg.Location,
			"Add a 'fields' section with at least one field")
	}
}

// validateFields validates every field and its rules.
func (v *StructuralValidator) validateFields(cfg *ast.RuleConfig) {
	targets := make(map[string]ast.Location)

	for i, field := range cfg.Fields {
		if field.Target == "" {
			v.addWithSuggestion(fmt.Sprintf("Field at index %d missing required field 'target'", i),
				field.Location, rulesErrors.SuggestMissingField("target", "Product.Brand"))
		} else {
			if !targetPattern.MatchString(field.Target) {
				v.addWithSuggestion(fmt.Sprintf("Invalid target %q", field.Target), field.Location,
					"Use dotted identifiers such as 'Product.Brand'")
			}
			if first, dup := targets[field.Target]; dup {
				v.add(fmt.Sprintf("Duplicate target %q (first declared at %s)", field.Target, first), field.Location)
			} else {
				targets[field.Target] = field.Location
			}
		}

		if len(field.Rules) == 0 {
			v.addWithSuggestion(fmt.Sprintf("Field %q has no rules", field.Target), field.Location,
				"Add at least one rule; a 'default' rule always matches")
			continue
		}

		ids := make(map[string]bool)
		for j, rule := range field.Rules {
			if rule.ID == "" {
				v.addWithSuggestion(fmt.Sprintf("Rule at index %d of field %q missing required field 'id'", j, field.Target),
					rule.Location, "Add an id that is unique within the field")
			} else if ids[rule.ID] {
				v.add(fmt.Sprintf("Duplicate rule id %q in field %q", rule.ID, field.Target), rule.Location)
			}
			ids[rule.ID] = true

			v.validateRule(field.Target, rule)
		}
	}
}

// validateRule checks the strategy tag and required parameters of a rule.
func (v *StructuralValidator) validateRule(target string, rule *ast.RuleSpec) {
	where := fmt.Sprintf("rule %q of field %q", rule.ID, target)

	if rule.Strategy == "" {
		v.addWithSuggestion(fmt.Sprintf("Missing strategy in %s", where), rule.Location,
			"Valid strategies: "+strings.Join(ast.StrategyNames(), ", "))
		return
	}
	if rule.Params == nil || ast.StrategyOf(rule.Params) != rule.Strategy {
		v.addWithSuggestion(fmt.Sprintf("Unknown strategy %q in %s", rule.Strategy, where), rule.Location,
			rulesErrors.SuggestName(string(rule.Strategy), ast.StrategyNames(), "strategies"))
		return
	}

	missing := func(param string) {
		v.addWithSuggestion(fmt.Sprintf("Missing parameter '%s' in %s", param, where), rule.Location,
			rulesErrors.SuggestMissingField(param, ""))
	}
	empty := func(param string) {
		v.add(fmt.Sprintf("Parameter '%s' in %s must not be empty", param, where), rule.Location)
	}

	switch p := rule.Params.(type) {
	case *ast.LiteralMatchParams:
		if blank(p.Source) {
			missing("source")
		}
		if blank(p.Literal) {
			missing("literal")
		} else if p.Value == "" {
			empty("value")
		}

	case *ast.ContainsParams:
		if blank(p.Source) {
			missing("source")
		}
		if len(p.Tokens) == 0 {
			missing("tokens")
		}
		for _, tok := range p.Tokens {
			if blank(tok) {
				empty("tokens")
				break
			}
		}

	case *ast.PatternExtractParams:
		if blank(p.Source) {
			missing("source")
		}
		if p.Pattern == "" {
			missing("pattern")
		}
		v.validateTransform(p.Transform, where, rule.Location)

	case *ast.LookupTableParams:
		if blank(p.Source) {
			missing("source")
		}
		if len(p.Table) == 0 {
			missing("table")
		}
		for _, key := range sortedTableKeys(p.Table) {
			if value := p.Table[key]; row.NormalizeKey(key) == "" || value == "" {
				v.add(fmt.Sprintf("Lookup table of %s has an empty key or value (%q: %q)", where, key, value), rule.Location)
			}
		}
		if !ast.ValidTokenModes[p.Token] {
			v.addWithSuggestion(fmt.Sprintf("Unknown token mode %q in %s", p.Token, where), rule.Location,
				"Valid token modes: whole, first_word, last_word, words")
		}
		if p.Transform != "" {
			v.validateTransform(p.Transform, where, rule.Location)
		}

	case *ast.DerivedParams:
		if len(p.From) == 0 {
			missing("from")
		}
		for _, ref := range p.From {
			if blank(ref) {
				empty("from")
				break
			}
		}

	case *ast.DefaultParams:
		if p.Value == "" {
			missing("value")
		}
	}
}

func (v *StructuralValidator) validateTransform(t ast.Transform, where string, loc ast.Location) {
	if !ast.ValidTransforms[t] {
		v.addWithSuggestion(fmt.Sprintf("Unknown transform %q in %s", t, where), loc,
			"Valid transforms: none, trim, upper, lower, title")
	}
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func sortedTableKeys(table map[string]string) []string {
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
