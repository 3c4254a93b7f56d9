// Package health runs environment checks behind `pricelist doctor`.
//
// Each check is a function of a context returning nil when its component is
// usable. Checks run concurrently, each bounded by the checker's timeout, and
// are reported sorted by name. A failed required check makes the report
// unready; failed optional checks only degrade it.
package health
