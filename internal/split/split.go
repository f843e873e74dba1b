// Package split partitions a corpus into train and validation sets with a
// seeded, reproducible shuffle.
package split

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/leapstack-labs/sftprep/pkg/core"
)

// Defaults used when no split options are configured.
const (
	DefaultTrainRatio = 0.1
	DefaultSeed       = 42
)

// ErrInvalidRatio is returned when the train ratio is outside [0, 1].
var ErrInvalidRatio = errors.New("train ratio must be within [0, 1]")

// Report describes one split.
type Report struct {
	Total      int     `json:"total"`
	Train      int     `json:"train"`
	Validation int     `json:"validation"`
	TrainRatio float64 `json:"train_ratio"`
	Seed       int64   `json:"seed"`
}

// TrainSize returns how many of n records go to the train partition.
func TrainSize(n int, ratio float64) (int, error) {
	if math.IsNaN(ratio) || ratio < 0 || ratio > 1 {
		return 0, fmt.Errorf("%w: got %v", ErrInvalidRatio, ratio)
	}
	return int(math.Round(ratio * float64(n))), nil
}

// Split shuffles c with a source seeded by seed and returns the first
// round(ratio*n) records as train and the rest as validation.
// The same corpus, ratio and seed always produce the same partitions.
func Split[R any](c core.Corpus[R], ratio float64, seed int64) (train, validation core.Corpus[R], err error) {
	n := c.Len()
	k, err := TrainSize(n, ratio)
	if err != nil {
		return train, validation, err
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	train = core.Corpus[R]{Family: c.Family, Records: make([]R, 0, k)}
	validation = core.Corpus[R]{Family: c.Family, Records: make([]R, 0, n-k)}
	for i, idx := range perm {
		if i < k {
			train.Records = append(train.Records, c.Records[idx])
		} else {
			validation.Records = append(validation.Records, c.Records[idx])
		}
	}
	return train, validation, nil
}

// Tables is Split at the storage boundary. Columns are carried through
// unchanged so formatted or raw tables split the same way as typed corpora.
func Tables(t *core.Table, ratio float64, seed int64) (train, validation *core.Table, report Report, err error) {
	c := core.Corpus[core.Row]{Family: t.Family, Records: t.Rows}
	tr, va, err := Split(c, ratio, seed)
	if err != nil {
		return nil, nil, Report{}, err
	}
	train = &core.Table{Family: t.Family, Columns: t.Columns, Rows: tr.Records}
	validation = &core.Table{Family: t.Family, Columns: t.Columns, Rows: va.Records}
	report = Report{
		Total:      c.Len(),
		Train:      tr.Len(),
		Validation: va.Len(),
		TrainRatio: ratio,
		Seed:       seed,
	}
	return train, validation, report, nil
}
