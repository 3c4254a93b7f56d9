package engine

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"mercator-hq/pricelist/pkg/row"
	"mercator-hq/pricelist/pkg/rules/ast"
)

// result is the outcome of one evaluator call.
type result struct {
	value   string
	matched bool
	detail  string
}

func matched(value, detail string) result { return result{value: value, matched: true, detail: detail} }
func skipped(detail string) result        { return result{detail: detail} }

// evaluator is a compiled rule. Implementations hold only immutable state
// and are shared by concurrent Parse calls.
type evaluator interface {
	evaluate(st *evalState) (result, error)
}

// evalState is the per-Parse view of the row and the bag in progress.
type evalState struct {
	row           row.Row
	bag           ResultBag
	maxCellLength int
	folded        map[string]string
}

// column returns the cell text of key. A missing column is a skip, an
// oversized cell is an error.
func (st *evalState) column(key string) (string, bool, error) {
	text, ok := st.row.Get(key)
	if !ok {
		return "", false, nil
	}
	if st.maxCellLength > 0 && len(text) > st.maxCellLength {
		return "", true, fmt.Errorf("%w: column %s has %d bytes, limit is %d", ErrCellTooLong, key, len(text), st.maxCellLength)
	}
	return text, true, nil
}

// foldedColumn returns the case-folded cell text, computed once per Parse.
func (st *evalState) foldedColumn(key, text string) string {
	k := row.FoldKey(key)
	if f, ok := st.folded[k]; ok {
		return f
	}
	f := row.Fold(text)
	st.folded[k] = f
	return f
}

func missingColumn(key string) result {
	return skipped(fmt.Sprintf("column %s not present", key))
}

// compile turns a validated rule into an evaluator. Every strategy must be
// handled here; an unknown Params type is a build error.
func compile(rule *ast.RuleSpec) (evaluator, error) {
	switch p := rule.Params.(type) {
	case *ast.LiteralMatchParams:
		return &literalMatch{source: p.Source, literal: normalizeLiteral(p.Literal), value: p.Value}, nil

	case *ast.ContainsParams:
		c := &containsMatch{source: p.Source, wholeWord: p.WholeWord, value: p.Value}
		for _, tok := range p.Tokens {
			c.tokens = append(c.tokens, tok)
			c.folded = append(c.folded, row.Fold(strings.TrimSpace(tok)))
		}
		return c, nil

	case *ast.PatternExtractParams:
		re, err := p.Compile()
		if err != nil {
			return nil, fmt.Errorf("invalid pattern: %w", err)
		}
		group, err := p.GroupIndex(re)
		if err != nil {
			return nil, err
		}
		return &patternExtract{source: p.Source, re: re, group: group, transform: p.Transform}, nil

	case *ast.LookupTableParams:
		l := &lookupTable{source: p.Source, mode: p.Token, table: make(map[string]string, len(p.Table)), transform: p.Transform}
		for _, key := range sortedKeys(p.Table) {
			k := row.NormalizeKey(key)
			if _, dup := l.table[k]; dup || k == "" {
				continue
			}
			l.table[k] = p.Table[key]
			if n := len(strings.Fields(k)); n > l.maxWords {
				l.maxWords = n
			}
		}
		return l, nil

	case *ast.DerivedParams:
		return &derived{params: p}, nil

	case *ast.DefaultParams:
		return &constant{value: p.Value}, nil

	case nil:
		return nil, fmt.Errorf("rule has no parameters (strategy %q)", rule.Strategy)

	default:
		return nil, fmt.Errorf("unsupported parameters %T", p)
	}
}

// literalMatch matches a whole cell against a literal, ignoring case.
type literalMatch struct {
	source  string
	literal string
	value   string
}

func normalizeLiteral(s string) string {
	return row.Fold(strings.TrimSpace(s))
}

func (m *literalMatch) evaluate(st *evalState) (result, error) {
	text, ok, err := st.column(m.source)
	if err != nil {
		return result{}, err
	}
	if !ok {
		return missingColumn(m.source), nil
	}
	if strings.TrimSpace(st.foldedColumn(m.source, text)) != m.literal {
		return skipped("no match"), nil
	}
	return matched(m.value, ""), nil
}

// containsMatch looks for the first configured token in a cell.
type containsMatch struct {
	source    string
	tokens    []string
	folded    []string
	wholeWord bool
	value     string
}

func (m *containsMatch) evaluate(st *evalState) (result, error) {
	text, ok, err := st.column(m.source)
	if err != nil {
		return result{}, err
	}
	if !ok {
		return missingColumn(m.source), nil
	}
	f := st.foldedColumn(m.source, text)
	for i, tok := range m.folded {
		if containsToken(f, tok, m.wholeWord) {
			value := m.value
			if value == "" {
				value = strings.TrimSpace(m.tokens[i])
			}
			return matched(value, fmt.Sprintf("token %q", m.tokens[i])), nil
		}
	}
	return skipped("no token found"), nil
}

// patternExtract yields a capture group of a regular expression.
type patternExtract struct {
	source    string
	re        *regexp.Regexp
	group     int
	transform ast.Transform
}

func (m *patternExtract) evaluate(st *evalState) (result, error) {
	text, ok, err := st.column(m.source)
	if err != nil {
		return result{}, err
	}
	if !ok {
		return missingColumn(m.source), nil
	}
	sub := m.re.FindStringSubmatchIndex(text)
	if sub == nil {
		return skipped("no match"), nil
	}
	start, end := sub[2*m.group], sub[2*m.group+1]
	if start < 0 {
		return skipped("group did not participate in the match"), nil
	}
	value := applyTransform(text[start:end], m.transform)
	if value == "" {
		return skipped("empty capture"), nil
	}
	return matched(value, ""), nil
}

// lookupTable maps a token of a cell through a table.
type lookupTable struct {
	source    string
	mode      ast.TokenMode
	table     map[string]string
	maxWords  int
	transform ast.Transform
}

func (m *lookupTable) evaluate(st *evalState) (result, error) {
	text, ok, err := st.column(m.source)
	if err != nil {
		return result{}, err
	}
	if !ok {
		return missingColumn(m.source), nil
	}
	ws := row.Words(st.foldedColumn(m.source, text))
	if len(ws) == 0 {
		return skipped("empty cell"), nil
	}

	var candidates []string
	switch m.mode {
	case ast.TokenFirstWord:
		candidates = []string{ws[0]}
	case ast.TokenLastWord:
		candidates = []string{ws[len(ws)-1]}
	case ast.TokenWords:
		// Left to right, longest key first at each position.
		for i := range ws {
			for n := min(m.maxWords, len(ws)-i); n >= 1; n-- {
				candidates = append(candidates, strings.Join(ws[i:i+n], " "))
			}
		}
	default:
		candidates = []string{strings.Join(ws, " ")}
	}

	for _, key := range candidates {
		if value, ok := m.table[key]; ok {
			if m.transform != "" {
				value = applyTransform(value, m.transform)
			}
			return matched(value, fmt.Sprintf("key %q", key)), nil
		}
	}
	return skipped("no table key"), nil
}

// sortedKeys returns the table keys in order, so that keys normalizing to
// the same form resolve to the smallest original key.
func sortedKeys(table map[string]string) []string {
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// derived formats already extracted fields.
type derived struct {
	params *ast.DerivedParams
}

func (m *derived) evaluate(st *evalState) (result, error) {
	var missing []string
	for _, ref := range m.params.From {
		if !st.bag.Has(ref) {
			missing = append(missing, ref)
		}
	}
	if len(missing) > 0 {
		return skipped("missing " + strings.Join(missing, ", ")), nil
	}
	value := strings.TrimSpace(m.params.Render(st.bag))
	if value == "" {
		return skipped("empty result"), nil
	}
	return matched(value, ""), nil
}

// constant always yields its value.
type constant struct {
	value string
}

func (m *constant) evaluate(*evalState) (result, error) {
	return matched(m.value, ""), nil
}

// applyTransform normalizes an extracted value.
func applyTransform(s string, t ast.Transform) string {
	switch t {
	case ast.TransformNone:
		return s
	case ast.TransformUpper:
		return strings.ToUpper(strings.TrimSpace(s))
	case ast.TransformLower:
		return strings.ToLower(strings.TrimSpace(s))
	case ast.TransformTitle:
		return cases.Title(language.Und).String(strings.TrimSpace(s))
	default:
		return strings.TrimSpace(s)
	}
}
