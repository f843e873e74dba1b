// Package clean implements the row-level and corpus-level cleaning transforms
// and the fixed per-family cleaning pipelines built from them.
//
// Every transform is a pure function: it returns a new corpus and leaves its
// input untouched. Records that fail a predicate are dropped silently; the
// number of dropped records is returned for reporting.
package clean

import "github.com/leapstack-labs/sftprep/pkg/core"

// Valid reports whether every required field of r is present and non-blank.
func Valid[R any](r R, required []core.Field[R]) bool {
	for _, f := range required {
		if core.IsBlank(f.Get(r)) {
			return false
		}
	}
	return true
}

// FilterValid keeps the records that pass Valid, in order.
func FilterValid[R any](c core.Corpus[R], required []core.Field[R]) (core.Corpus[R], int) {
	return core.Filter(c, func(r R) bool { return Valid(r, required) })
}
