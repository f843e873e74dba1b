package inspect

import (
	"fmt"
	"math"
	"slices"

	"github.com/leapstack-labs/sftprep/pkg/core"
)

// Stats summarizes a length distribution.
type Stats struct {
	Count  int     `json:"count"`
	Min    int     `json:"min"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	P95    float64 `json:"p95"`
	Max    int     `json:"max"`
}

// Lengths tokenizes every text and returns the token counts in order.
func Lengths(texts []string, tok Tokenizer) ([]int, error) {
	out := make([]int, len(texts))
	for i, t := range texts {
		ids, err := tok.Tokenize(t)
		if err != nil {
			return nil, fmt.Errorf("failed to tokenize text %d: %w", i, err)
		}
		out[i] = len(ids)
	}
	return out, nil
}

// Describe computes summary statistics. An empty input yields the zero Stats.
func Describe(lengths []int) Stats {
	if len(lengths) == 0 {
		return Stats{}
	}
	sorted := slices.Clone(lengths)
	slices.Sort(sorted)

	var sum float64
	for _, n := range sorted {
		sum += float64(n)
	}
	return Stats{
		Count:  len(sorted),
		Min:    sorted[0],
		Mean:   sum / float64(len(sorted)),
		Median: Percentile(sorted, 50),
		P95:    Percentile(sorted, 95),
		Max:    sorted[len(sorted)-1],
	}
}

// Percentile interpolates linearly between the closest ranks of an ascending
// slice, matching numpy's default method. p is clamped to [0, 100].
func Percentile(sorted []int, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	p = math.Max(0, math.Min(100, p))
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	frac := rank - float64(lo)
	return float64(sorted[lo]) + (float64(sorted[hi])-float64(sorted[lo]))*frac
}

// Texts extracts a string column from a table.
func Texts(t *core.Table, column string) ([]string, error) {
	out := make([]string, t.Len())
	for i, row := range t.Rows {
		v, ok := row[column]
		if !ok || v == nil {
			return nil, fmt.Errorf("row %d: column %q is missing", i, column)
		}
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("row %d: column %q is %T, not a string", i, column, v)
		}
		out[i] = s
	}
	return out, nil
}

// Report is the inspection result for one stored dataset.
type Report struct {
	Family    core.Family `json:"family"`
	Stage     core.Stage  `json:"stage"`
	Tokenizer string      `json:"tokenizer"`
	Stats     Stats       `json:"stats"`
}

// Table inspects the text column of a formatted table.
func Table(t *core.Table, stage core.Stage, tokName string, tok Tokenizer) (Report, error) {
	texts, err := Texts(t, "text")
	if err != nil {
		return Report{}, err
	}
	lengths, err := Lengths(texts, tok)
	if err != nil {
		return Report{}, err
	}
	return Report{Family: t.Family, Stage: stage, Tokenizer: tokName, Stats: Describe(lengths)}, nil
}
