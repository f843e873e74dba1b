package clean

import "github.com/leapstack-labs/sftprep/pkg/core"

// dedupKey distinguishes a null key from every string key, including "".
type dedupKey struct {
	null  bool
	value string
}

// Dedup keeps the first record for each distinct key value and drops the rest.
// Keys are compared by exact string equality with no normalization, so "a" and
// "a " are different keys. All null keys are equal to each other.
func Dedup[R any](c core.Corpus[R], key core.Field[R]) (core.Corpus[R], int) {
	seen := make(map[dedupKey]struct{}, len(c.Records))
	return core.Filter(c, func(r R) bool {
		k := keyOf(key.Get(r))
		if _, dup := seen[k]; dup {
			return false
		}
		seen[k] = struct{}{}
		return true
	})
}

// CountDuplicates returns how many records Dedup would remove.
func CountDuplicates[R any](c core.Corpus[R], key core.Field[R]) int {
	_, removed := Dedup(c, key)
	return removed
}

func keyOf(v *string) dedupKey {
	if v == nil {
		return dedupKey{null: true}
	}
	return dedupKey{value: *v}
}
