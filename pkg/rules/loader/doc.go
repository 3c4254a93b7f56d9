// Package loader reads rule documents into the ast model.
//
// Loading happens in two steps. The YAML text is first decoded into
// intermediate structures that keep the line and column of every field and
// rule entry. A builder then turns them into ast nodes: it resolves strategy
// tags, checks that every key belongs to the rule's strategy, fills parameter
// defaults and sorts each field's rules by priority and declaration order.
//
// The loader only reports what it can see while building. Cross-entry checks
// (unknown derived references, cycles, pattern compilation) belong to the
// validator package, and callers normally use rules.LoadAndValidate, which
// runs both.
//
// Basic usage:
//
//	l := loader.New().WithMaxFields(200)
//	cfg, err := l.Load("rules/perfume.yaml")
//	if err != nil {
//	    // err is a *errors.ConfigError
//	}
package loader
