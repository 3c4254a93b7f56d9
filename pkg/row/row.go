// Package row provides the immutable, case-insensitive row of a price list.
//
// A Row maps source column keys (a column letter such as "E", or a header
// such as "Description") to raw cell text. Keys are compared after Unicode
// case folding, so "e", "E" and " E " name the same column. Looking up a
// column that the row does not have reports absence and is never an error.
package row

import (
	"encoding/json"
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// Fold returns the case-folded form of s used for case-insensitive
// comparisons of column keys and cell tokens.
func Fold(s string) string {
	// A Caser keeps state and is not safe for concurrent use.
	return cases.Fold().String(s)
}

// FoldKey normalizes a column key.
func FoldKey(key string) string {
	return Fold(strings.TrimSpace(key))
}

// wordTrim is stripped from both ends of every word.
const wordTrim = "()[]{},;:\"'"

// Words splits text into whitespace separated words without surrounding
// punctuation. "D&G Pour Homme (125ml)" yields [D&G Pour Homme 125ml].
func Words(text string) []string {
	fields := strings.Fields(text)
	out := fields[:0]
	for _, f := range fields {
		if w := strings.Trim(f, wordTrim); w != "" {
			out = append(out, w)
		}
	}
	return out
}

// NormalizeKey folds a lookup key or cell text into the form lookup tables
// compare: case folded words joined by single spaces. Keys made only of
// punctuation normalize to "".
func NormalizeKey(s string) string {
	return strings.Join(Words(Fold(s)), " ")
}

type cell struct {
	key   string
	value string
}

// Row is an immutable mapping from column key to raw cell text.
// The zero Row is empty and ready to use.
type Row struct {
	cells map[string]cell
}

// New builds a Row from a key to text mapping. The input is copied.
// If two keys fold to the same column, the value of the lexicographically
// smallest original key is kept.
func New(values map[string]string) Row {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	cells := make(map[string]cell, len(values))
	for _, k := range keys {
		folded := FoldKey(k)
		if _, exists := cells[folded]; exists {
			continue
		}
		cells[folded] = cell{key: k, value: values[k]}
	}
	return Row{cells: cells}
}

// Get returns the text of a column and whether the row has that column.
func (r Row) Get(key string) (string, bool) {
	c, ok := r.cells[FoldKey(key)]
	return c.value, ok
}

// Has reports whether the row has the column.
func (r Row) Has(key string) bool {
	_, ok := r.cells[FoldKey(key)]
	return ok
}

// Len returns the number of columns.
func (r Row) Len() int {
	return len(r.cells)
}

// Keys returns the original column keys in sorted order.
func (r Row) Keys() []string {
	keys := make([]string, 0, len(r.cells))
	for _, c := range r.cells {
		keys = append(keys, c.key)
	}
	sort.Strings(keys)
	return keys
}

// Map returns a copy of the row keyed by the original column keys.
func (r Row) Map() map[string]string {
	m := make(map[string]string, len(r.cells))
	for _, c := range r.cells {
		m[c.key] = c.value
	}
	return m
}

// MarshalJSON encodes the row as an object of original keys.
func (r Row) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Map())
}
