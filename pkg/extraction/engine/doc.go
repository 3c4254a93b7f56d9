// Package engine evaluates field-extraction rules against price-list rows.
//
// An Engine is built once from a validated rule configuration and then
// reused for every row of every file. Parse is a pure function of the
// configuration and the row: identical inputs always produce an identical
// ResultBag and EvaluationTrace.
//
// # Evaluation
//
//	Row
//	 ↓
//	For each field (declaration order, derived dependencies first):
//	  For each rule (priority, then declaration order):
//	    evaluate → matched?  yes → write bag[field], next field
//	                         no  → trace "skipped", next rule
//	    error or panic           → trace "error", next rule
//	 ↓
//	ResultBag + EvaluationTrace
//
// A field with no matching rule is absent from the bag. That is the normal
// signal for "unknown", not an error.
//
// # Strategies
//
//   - literal_match: the whole cell equals a literal, ignoring case
//   - contains: the cell contains a token, ignoring case, optionally as a whole word
//   - pattern_extract: a capture group of a regular expression
//   - lookup_table: a word, the whole cell or a word sequence is a table key
//   - derived: formatted from fields already in the bag
//   - default: a constant
//
// Rules are compiled when the engine is built; patterns are compiled once
// and lookup keys are folded once.
//
// # Basic Usage
//
//	cfg, err := rules.LoadAndValidate("rules/perfume.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	eng, err := engine.BuildEngine(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	bag, trace := eng.Parse(row.New(map[string]string{
//	    "E": "D&G Pour Homme EDT TST (125ml)",
//	}))
//	brand, ok := bag.Get("Product.Brand") // "D&G", true
//
// # Thread Safety
//
// The engine holds no mutable state. Any number of goroutines may call Parse
// on the same engine with independent rows.
package engine
