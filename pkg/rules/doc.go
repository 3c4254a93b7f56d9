// Package rules loads and validates field-extraction rule documents.
//
// A rule document declares, for every canonical output field, an ordered
// chain of extraction rules. It is written by people who know the supplier
// files, not the engine, so every error is reported with its location and,
// where possible, a suggestion.
//
// # Architecture
//
// The package is organized into subpackages:
//
//   - ast: the in-memory RuleConfig model
//   - loader: YAML decoding and AST construction
//   - validator: structural and semantic validation
//   - errors: ConfigError with locations, context and suggestions
//   - watch: re-validation of documents on change
//   - gitsource: rule documents from a git repository
//
// # Basic Usage
//
//	cfg, err := rules.LoadAndValidate("rules/perfume.yaml")
//	if err != nil {
//	    log.Fatal(err) // *errors.ConfigError
//	}
//	eng, err := engine.BuildEngine(cfg)
//
// # Document Structure
//
//	version: "1.0"
//	name: perfume-supplier-a
//	fields:
//	  - target: Product.Brand
//	    rules:
//	      - id: brand-table
//	        strategy: lookup_table
//	        priority: 10
//	        source: E
//	        token: first_word
//	        table: {"D&G": "D&G", "VERSACE": "VERSACE"}
//	      - id: brand-first-word
//	        strategy: pattern_extract
//	        priority: 20
//	        source: E
//	        pattern: '^(?P<brand>\S+)'
//	        transform: upper
//
// Rules of a field are tried by ascending priority; rules with equal
// priority keep their document order.
package rules
