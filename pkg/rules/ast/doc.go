// Package ast provides the in-memory model of a field-extraction rule document.
//
// A document is loaded once at startup into a RuleConfig and handed to the
// extraction engine. The model mirrors the YAML structure:
//
//	RuleConfig
//	├── Metadata (version, name, description)
//	└── Fields ([]*FieldSpec)
//	    ├── Target ("Product.Brand")
//	    └── Rules ([]*RuleSpec, sorted by priority then declaration order)
//	        ├── ID, Strategy, Priority
//	        └── Params (one of the strategy parameter structs)
//
// # Strategies
//
// Params is a closed set of variants, one per strategy:
//
//	LiteralMatchParams    literal_match    column text equals a literal
//	ContainsParams        contains         column text contains a token
//	PatternExtractParams  pattern_extract  regular expression with named groups
//	LookupTableParams     lookup_table     token of the column is a table key
//	DerivedParams         derived          computed from already resolved fields
//	DefaultParams         default          constant fallback
//
// Consumers switch on the concrete Params type; the marker method is unexported
// so no other package can add a variant.
//
// # Source Locations
//
// Every FieldSpec and RuleSpec carries the Location of its YAML node so that
// loader and validator errors can point at the offending entry:
//
//	rules/perfume.yaml:42:9
//
// # Immutability
//
// A RuleConfig is not modified after validation. The engine keeps a reference
// to it and may be shared between goroutines without locking.
package ast
