package ast

import "fmt"

// Location represents the source location of a node in the original rule document.
type Location struct {
	File   string // Path to the rule document
	Line   int    // Line number (1-based)
	Column int    // Column number (1-based)
}

// String returns a human-readable representation of the location.
// Format: "file:line:column"
func (l Location) String() string {
	if l.File == "" {
		if l.Line > 0 {
			return fmt.Sprintf("<memory>:%d:%d", l.Line, l.Column)
		}
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// IsValid returns true if the location has valid file and line information.
func (l Location) IsValid() bool {
	return l.File != "" && l.Line > 0
}
