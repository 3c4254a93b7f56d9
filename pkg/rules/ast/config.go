package ast

// SupportedVersions lists the document format versions understood by the loader.
var SupportedVersions = map[string]bool{
	"1.0": true,
}

// RuleConfig is the root node of a rule document.
// It holds the ordered field declarations evaluated by the extraction engine.
type RuleConfig struct {
	Version     string       // Document format version ("1.0")
	Name        string       // Configuration name (kebab-case)
	Description string       // Human-readable description
	Fields      []*FieldSpec // Field declarations in document order
	SourceFiles []string     // Files this configuration was loaded from
	Location    Location     // Source location of the document root
}

// FieldSpec declares one canonical output field and its candidate rules.
type FieldSpec struct {
	Target      string      // Canonical output key, e.g. "Product.Brand"
	Description string      // Human-readable description
	Rules       []*RuleSpec // Candidate rules in evaluation order
	Index       int         // Declaration index within the configuration
	Location    Location    // Source location
}

// Field returns the field declaration for target, or nil if none exists.
func (c *RuleConfig) Field(target string) *FieldSpec {
	for _, f := range c.Fields {
		if f.Target == target {
			return f
		}
	}
	return nil
}

// Targets returns the target names of all fields in declaration order.
func (c *RuleConfig) Targets() []string {
	targets := make([]string, 0, len(c.Fields))
	for _, f := range c.Fields {
		targets = append(targets, f.Target)
	}
	return targets
}

// RuleCount returns the total number of rules across all fields.
func (c *RuleConfig) RuleCount() int {
	n := 0
	for _, f := range c.Fields {
		n += len(f.Rules)
	}
	return n
}

// Rule returns the rule with the given ID, or nil if the field has no such rule.
func (f *FieldSpec) Rule(id string) *RuleSpec {
	for _, r := range f.Rules {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// Dependencies returns the targets referenced by derived rules of this field,
// deduplicated, in first-reference order.
func (f *FieldSpec) Dependencies() []string {
	var deps []string
	seen := make(map[string]bool)
	for _, r := range f.Rules {
		p, ok := r.Params.(*DerivedParams)
		if !ok {
			continue
		}
		for _, ref := range p.From {
			if !seen[ref] {
				seen[ref] = true
				deps = append(deps, ref)
			}
		}
	}
	return deps
}
