package loader

import (
	"fmt"
	"sort"
	"strings"

	"mercator-hq/pricelist/pkg/rules/ast"
	rulesErrors "mercator-hq/pricelist/pkg/rules/errors"
)

var (
	documentKeys = keySet("version", "name", "description", "fields")
	fieldKeys    = keySet("target", "description", "rules")
	ruleKeys     = keySet("id", "description", "strategy", "priority")

	// strategyKeys lists the parameter keys accepted by each strategy.
	strategyKeys = map[ast.StrategyType]map[string]bool{
		ast.StrategyLiteralMatch:   keySet("source", "literal", "value"),
		ast.StrategyContains:       keySet("source", "token", "tokens", "whole_word", "value"),
		ast.StrategyPatternExtract: keySet("source", "pattern", "group", "transform", "ignore_case"),
		ast.StrategyLookupTable:    keySet("source", "token", "table", "transform"),
		ast.StrategyDerived:        keySet("from", "format", "separator"),
		ast.StrategyDefault:        keySet("value"),
	}
)

func keySet(keys ...string) map[string]bool {
	m := make(map[string]bool, len(keys))
	for _, k := range keys {
		m[k] = true
	}
	return m
}

// builder constructs ast nodes from intermediate YAML structures.
type builder struct {
	sourcePath       string
	maxFields        int
	maxRulesPerField int
	errors           *rulesErrors.ConfigError
}

func newBuilder(sourcePath string, maxFields, maxRulesPerField int) *builder {
	return &builder{
		sourcePath:       sourcePath,
		maxFields:        maxFields,
		maxRulesPerField: maxRulesPerField,
		errors:           rulesErrors.NewConfigError(),
	}
}

func (b *builder) location(line, column int) ast.Location {
	return ast.Location{File: b.sourcePath, Line: line, Column: column}
}

// buildConfig transforms a yamlDocument into an ast.RuleConfig.
func (b *builder) buildConfig(doc *yamlDocument) (*ast.RuleConfig, error) {
	cfg := &ast.RuleConfig{
		Version:     doc.Version,
		Name:        doc.Name,
		Description: doc.Description,
		Fields:      make([]*ast.FieldSpec, 0, len(doc.Fields)),
		Location:    b.location(1, 1),
	}
	if b.sourcePath != "" {
		cfg.SourceFiles = []string{b.sourcePath}
	}

	b.checkKeys(doc.keys, documentKeys, "document")

	if b.maxFields > 0 && len(doc.Fields) > b.maxFields {
		b.errors.AddErrorWithSuggestion(rulesErrors.ErrorTypeStructural,
			fmt.Sprintf("Document declares %d fields, maximum is %d", len(doc.Fields), b.maxFields),
			cfg.Location,
			"Split the document or raise the field limit")
	}

	for i := range doc.Fields {
		cfg.Fields = append(cfg.Fields, b.buildField(&doc.Fields[i], i))
	}

	if b.errors.HasErrors() {
		return nil, b.errors
	}
	return cfg, nil
}

// buildField transforms a yamlField into an ast.FieldSpec with sorted rules.
func (b *builder) buildField(yf *yamlField, index int) *ast.FieldSpec {
	field := &ast.FieldSpec{
		Target:      yf.Target,
		Description: yf.Description,
		Rules:       make([]*ast.RuleSpec, 0, len(yf.Rules)),
		Index:       index,
		Location:    b.location(yf.line, yf.column),
	}

	b.checkKeys(yf.keys, fieldKeys, fmt.Sprintf("field %q", yf.Target))

	if b.maxRulesPerField > 0 && len(yf.Rules) > b.maxRulesPerField {
		b.errors.AddError(rulesErrors.ErrorTypeStructural,
			fmt.Sprintf("Field %q declares %d rules, maximum is %d", yf.Target, len(yf.Rules), b.maxRulesPerField),
			field.Location)
	}

	for i := range yf.Rules {
		field.Rules = append(field.Rules, b.buildRule(yf.Target, &yf.Rules[i], i))
	}

	ast.SortRules(field.Rules)
	return field
}

// buildRule transforms a yamlRule into an ast.RuleSpec. A rule with an
// unknown strategy keeps the raw tag and nil Params; the validator reports it.
func (b *builder) buildRule(target string, yr *yamlRule, index int) *ast.RuleSpec {
	rule := &ast.RuleSpec{
		ID:       yr.ID,
		Priority: yr.Priority,
		Index:    index,
		Location: b.location(yr.line, yr.column),
	}

	strategy, ok := ast.ParseStrategy(yr.Strategy)
	if !ok {
		rule.Strategy = ast.StrategyType(yr.Strategy)
		return rule
	}
	rule.Strategy = strategy

	allowed := strategyKeys[strategy]
	for _, k := range yr.keys {
		if ruleKeys[k.name] || allowed[k.name] {
			continue
		}
		loc := b.location(k.line, k.column)
		if isParamKey(k.name) {
			b.errors.AddErrorWithSuggestion(rulesErrors.ErrorTypeStructural,
				fmt.Sprintf("Parameter %q does not apply to strategy %s (field %q, rule %q)", k.name, strategy, target, yr.ID),
				loc,
				fmt.Sprintf("Parameters of %s: %s", strategy, strings.Join(sortedKeys(allowed), ", ")))
			continue
		}
		b.errors.AddErrorWithSuggestion(rulesErrors.ErrorTypeStructural,
			fmt.Sprintf("Unknown key %q in rule %q", k.name, yr.ID),
			loc,
			rulesErrors.SuggestName(k.name, ruleKeyNames(strategy), "keys"))
	}

	rule.Params = buildParams(strategy, yr)
	return rule
}

// buildParams fills the parameter struct of a strategy, applying defaults.
func buildParams(strategy ast.StrategyType, yr *yamlRule) ast.Params {
	switch strategy {
	case ast.StrategyLiteralMatch:
		value := yr.Literal
		if yr.Value != nil {
			value = *yr.Value
		}
		return &ast.LiteralMatchParams{Source: yr.Source, Literal: yr.Literal, Value: value}

	case ast.StrategyContains:
		tokens := append([]string(nil), yr.Tokens...)
		if yr.Token != "" {
			tokens = append(tokens, yr.Token)
		}
		p := &ast.ContainsParams{Source: yr.Source, Tokens: tokens, WholeWord: yr.WholeWord}
		if yr.Value != nil {
			p.Value = *yr.Value
		}
		return p

	case ast.StrategyPatternExtract:
		return &ast.PatternExtractParams{
			Source:     yr.Source,
			Pattern:    yr.Pattern,
			Group:      yr.Group,
			Transform:  transformOrDefault(yr.Transform),
			IgnoreCase: yr.IgnoreCase,
		}

	case ast.StrategyLookupTable:
		mode := ast.TokenMode(yr.Token)
		if mode == "" {
			mode = ast.TokenWhole
		}
		table := make(map[string]string, len(yr.Table))
		for k, v := range yr.Table {
			table[k] = v
		}
		return &ast.LookupTableParams{
			Source:    yr.Source,
			Token:     mode,
			Table:     table,
			Transform: ast.Transform(yr.Transform),
		}

	case ast.StrategyDerived:
		sep := " "
		if yr.Separator != nil {
			sep = *yr.Separator
		}
		return &ast.DerivedParams{
			From:      append([]string(nil), yr.From...),
			Format:    yr.Format,
			Separator: sep,
		}

	case ast.StrategyDefault:
		p := &ast.DefaultParams{}
		if yr.Value != nil {
			p.Value = *yr.Value
		}
		return p
	}
	return nil
}

func transformOrDefault(t string) ast.Transform {
	if t == "" {
		return ast.TransformTrim
	}
	return ast.Transform(t)
}

// checkKeys reports keys that are not in allowed.
func (b *builder) checkKeys(keys []yamlKey, allowed map[string]bool, where string) {
	for _, k := range keys {
		if allowed[k.name] {
			continue
		}
		b.errors.AddErrorWithSuggestion(rulesErrors.ErrorTypeStructural,
			fmt.Sprintf("Unknown key %q in %s", k.name, where),
			b.location(k.line, k.column),
			rulesErrors.SuggestName(k.name, sortedKeys(allowed), "keys"))
	}
}

func isParamKey(name string) bool {
	for _, keys := range strategyKeys {
		if keys[name] {
			return true
		}
	}
	return false
}

func ruleKeyNames(strategy ast.StrategyType) []string {
	names := sortedKeys(ruleKeys)
	return append(names, sortedKeys(strategyKeys[strategy])...)
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
