package engine

import "sort"

// ResultBag maps canonical target fields to extracted values. Only fields
// whose rules matched are present; an absent field means "unknown".
type ResultBag map[string]string

// Get returns the value of a field and whether it was extracted.
func (b ResultBag) Get(target string) (string, bool) {
	v, ok := b[target]
	return v, ok
}

// Has reports whether a field was extracted.
func (b ResultBag) Has(target string) bool {
	_, ok := b[target]
	return ok
}

// Keys returns the extracted fields in sorted order.
func (b ResultBag) Keys() []string {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a copy of the bag.
func (b ResultBag) Clone() ResultBag {
	out := make(ResultBag, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}
