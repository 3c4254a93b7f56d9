// Package validator checks rule documents before an engine is built from them.
//
// Validation runs in two passes:
//
//  1. Structural: metadata, required entries, unique targets and rule IDs,
//     known strategies and modes, required parameters per strategy.
//  2. Semantic: pattern compilation and groups, derived references,
//     format placeholders, reference cycles, lookup key collisions.
//
// The semantic pass only runs when the structural pass found nothing, so a
// missing parameter is not reported a second time as an invalid pattern.
// All errors are returned together in one *errors.ConfigError.
package validator
