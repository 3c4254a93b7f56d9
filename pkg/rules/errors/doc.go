// Package errors provides rich error reporting for rule documents.
//
// Loader and validator failures are collected into a ConfigError instead of
// stopping at the first problem, so a single lint run reports everything that
// is wrong with a document:
//
//	Found 2 error(s):
//
//	Error 1:
//	[structural] Unknown strategy "pattern_extrct"
//	  --> rules/perfume.yaml:31:9
//	  |
//	   30 |       - id: size
//	-> 31 |         strategy: pattern_extrct
//	      |          ^
//	   32 |         source: E
//	  |
//	  = suggestion: Did you mean 'pattern_extract'?
//
// Error types:
//
//	syntax      YAML syntax or decoding error
//	structural  missing or malformed document entries
//	semantic    invalid pattern, unknown or cyclic derived reference
//	io          file access and size limits
//
// An engine must never be built from a document that produced a ConfigError.
package errors
