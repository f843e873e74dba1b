package core

// Corpus is an ordered sequence of records sharing one schema.
// Transforms never modify a corpus; they return a new one.
type Corpus[R any] struct {
	Family  Family
	Records []R
}

// NewCorpus creates a corpus holding a copy of records.
func NewCorpus[R any](family Family, records ...R) Corpus[R] {
	out := make([]R, len(records))
	copy(out, records)
	return Corpus[R]{Family: family, Records: out}
}

// Len returns the number of records.
func (c Corpus[R]) Len() int { return len(c.Records) }

// Filter returns a new corpus with the records for which keep returns true,
// in original order, and the number of records removed.
func Filter[R any](c Corpus[R], keep func(R) bool) (Corpus[R], int) {
	out := make([]R, 0, len(c.Records))
	for _, r := range c.Records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return Corpus[R]{Family: c.Family, Records: out}, len(c.Records) - len(out)
}

// Map returns a new corpus with fn applied to every record.
func Map[R any](c Corpus[R], fn func(R) R) Corpus[R] {
	out := make([]R, len(c.Records))
	for i, r := range c.Records {
		out[i] = fn(r)
	}
	return Corpus[R]{Family: c.Family, Records: out}
}
