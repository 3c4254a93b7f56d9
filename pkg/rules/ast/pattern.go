package ast

import (
	"fmt"
	"regexp"
)

// Compile compiles the rule pattern, honoring IgnoreCase.
func (p *PatternExtractParams) Compile() (*regexp.Regexp, error) {
	expr := p.Pattern
	if p.IgnoreCase {
		expr = "(?i)" + expr
	}
	return regexp.Compile(expr)
}

// GroupIndex resolves the submatch index yielded by a compiled pattern:
// the configured group, else the first named group, else group 1, else the
// whole match (0).
func (p *PatternExtractParams) GroupIndex(re *regexp.Regexp) (int, error) {
	names := re.SubexpNames()
	if p.Group != "" {
		idx := re.SubexpIndex(p.Group)
		if idx < 0 {
			return 0, fmt.Errorf("pattern has no group named %q", p.Group)
		}
		return idx, nil
	}
	for i := 1; i < len(names); i++ {
		if names[i] != "" {
			return i, nil
		}
	}
	if re.NumSubexp() > 0 {
		return 1, nil
	}
	return 0, nil
}

var placeholderPattern = regexp.MustCompile(`\{([^{}]+)\}`)

// Placeholders returns the field names referenced as {Target} in Format, in
// order of appearance.
func (p *DerivedParams) Placeholders() []string {
	matches := placeholderPattern.FindAllStringSubmatch(p.Format, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}

// Render formats the derived value from resolved field values. All From
// fields must be present in values.
func (p *DerivedParams) Render(values map[string]string) string {
	if p.Format == "" {
		parts := make([]string, 0, len(p.From))
		for _, ref := range p.From {
			parts = append(parts, values[ref])
		}
		return joinNonEmpty(parts, p.Separator)
	}
	return placeholderPattern.ReplaceAllStringFunc(p.Format, func(m string) string {
		return values[m[1:len(m)-1]]
	})
}

func joinNonEmpty(parts []string, sep string) string {
	out := ""
	for _, s := range parts {
		if s == "" {
			continue
		}
		if out != "" {
			out += sep
		}
		out += s
	}
	return out
}
