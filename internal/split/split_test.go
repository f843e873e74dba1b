package split

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sftprep/pkg/core"
)

func corpus(n int) core.Corpus[core.WritingRecord] {
	recs := make([]core.WritingRecord, n)
	for i := range recs {
		recs[i] = core.WritingRecord{Prompt: core.String(fmt.Sprintf("p%d", i)), Solution: core.String("s")}
	}
	return core.NewCorpus(core.FamilyWriting, recs...)
}

func prompts(c core.Corpus[core.WritingRecord]) []string {
	out := make([]string, c.Len())
	for i, r := range c.Records {
		out[i] = core.Value(r.Prompt)
	}
	return out
}

func TestTrainSize(t *testing.T) {
	tests := []struct {
		n     int
		ratio float64
		want  int
	}{
		{100, 0.1, 10},
		{15, 0.1, 2},
		{14, 0.1, 1},
		{10, 0, 0},
		{10, 1, 10},
		{0, 0.5, 0},
		{3, 0.5, 2},
	}
	for _, tt := range tests {
		got, err := TrainSize(tt.n, tt.ratio)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "n=%d ratio=%v", tt.n, tt.ratio)
	}
}

func TestSplit_InvalidRatio(t *testing.T) {
	for _, r := range []float64{-0.1, 1.01, math.NaN()} {
		_, _, err := Split(corpus(5), r, DefaultSeed)
		assert.ErrorIs(t, err, ErrInvalidRatio)
	}
}

func TestSplit_Partition(t *testing.T) {
	c := corpus(57)
	train, val, err := Split(c, 0.3, 7)
	require.NoError(t, err)

	assert.Equal(t, 17, train.Len())
	assert.Equal(t, 40, val.Len())
	assert.Equal(t, core.FamilyWriting, train.Family)
	assert.Equal(t, core.FamilyWriting, val.Family)

	seen := map[string]int{}
	for _, p := range append(prompts(train), prompts(val)...) {
		seen[p]++
	}
	assert.Len(t, seen, 57, "no record is lost")
	for p, n := range seen {
		assert.Equal(t, 1, n, "record %s appears %d times", p, n)
	}
}

func TestSplit_Deterministic(t *testing.T) {
	c := corpus(200)
	t1, v1, err := Split(c, DefaultTrainRatio, DefaultSeed)
	require.NoError(t, err)
	t2, v2, err := Split(c, DefaultTrainRatio, DefaultSeed)
	require.NoError(t, err)
	assert.Equal(t, prompts(t1), prompts(t2))
	assert.Equal(t, prompts(v1), prompts(v2))

	t3, _, err := Split(c, DefaultTrainRatio, DefaultSeed+1)
	require.NoError(t, err)
	assert.NotEqual(t, prompts(t1), prompts(t3))
}

func TestSplit_Shuffles(t *testing.T) {
	c := corpus(50)
	_, val, err := Split(c, 0, DefaultSeed)
	require.NoError(t, err)
	assert.Equal(t, 50, val.Len())
	assert.NotEqual(t, prompts(c), prompts(val))
}

func TestTables(t *testing.T) {
	tbl := &core.Table{Family: core.FamilyMath, Columns: []string{"question", "extra"}}
	for i := 0; i < 20; i++ {
		tbl.Rows = append(tbl.Rows, core.Row{"question": fmt.Sprint(i), "extra": i})
	}

	train, val, report, err := Tables(tbl, 0.25, DefaultSeed)
	require.NoError(t, err)
	assert.Equal(t, Report{Total: 20, Train: 5, Validation: 15, TrainRatio: 0.25, Seed: DefaultSeed}, report)
	assert.Equal(t, tbl.Columns, train.Columns)
	assert.Equal(t, tbl.Columns, val.Columns)
	assert.Len(t, train.Rows, 5)
	assert.Len(t, val.Rows, 15)

	_, _, _, err = Tables(tbl, 2, DefaultSeed)
	assert.ErrorIs(t, err, ErrInvalidRatio)
}
