package clean

import (
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sftprep/internal/langdetect"
	"github.com/leapstack-labs/sftprep/internal/testutil"
	"github.com/leapstack-labs/sftprep/pkg/core"
)

var s = core.String

func math(q, sol, ans *string) core.MathRecord {
	return core.MathRecord{Question: q, GeneratedSolution: sol, ExpectedAnswer: ans}
}

func writing(p, sol *string) core.WritingRecord {
	return core.WritingRecord{Prompt: p, Solution: sol}
}

func questions(c core.Corpus[core.MathRecord]) []string {
	out := make([]string, len(c.Records))
	for i, r := range c.Records {
		out[i] = core.Value(r.Question)
	}
	return out
}

// englishIfMarked treats any text containing "en:" as English and "es:" as Spanish.
var englishIfMarked = langdetect.Func(func(text string) (string, error) {
	switch {
	case strings.Contains(text, "en:"):
		return "en", nil
	case strings.Contains(text, "es:"):
		return "es", nil
	default:
		return "", langdetect.ErrUndetermined
	}
})

func TestValid(t *testing.T) {
	fields := core.MathSchema.Fields
	tests := []struct {
		name string
		rec  core.MathRecord
		want bool
	}{
		{"all present", math(s("q"), s("sol"), s("1")), true},
		{"null answer", math(s("q"), s("sol"), nil), false},
		{"empty answer", math(s("q"), s("sol"), s("")), false},
		{"whitespace answer", math(s("q"), s("sol"), s(" \t\n")), false},
		{"null question", math(nil, s("sol"), s("1")), false},
		{"padded values", math(s("  q "), s("sol\n"), s(" 1")), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Valid(tt.rec, fields))
		})
	}
}

func TestFilterValid_Idempotent(t *testing.T) {
	c := core.NewCorpus(core.FamilyMath,
		math(s("a"), s("x"), s("1")),
		math(s("b"), nil, s("2")),
		math(s("c"), s("z"), s("3")),
		math(s(" "), s("w"), s("4")),
	)

	once, removed := FilterValid(c, core.MathSchema.Fields)
	assert.Equal(t, 2, removed)
	assert.Equal(t, []string{"a", "c"}, questions(once))

	twice, removed := FilterValid(once, core.MathSchema.Fields)
	assert.Equal(t, 0, removed)
	assert.Equal(t, once, twice)
}

func TestDedup(t *testing.T) {
	c := core.NewCorpus(core.FamilyMath,
		math(s("a"), s("first"), s("1")),
		math(s("b"), s("x"), s("2")),
		math(s("a"), s("second"), s("3")),
		math(s("a "), s("padded"), s("4")),
		math(nil, s("n1"), s("5")),
		math(nil, s("n2"), s("6")),
		math(s(""), s("e"), s("7")),
	)

	out, removed := Dedup(c, core.MathQuestion)
	assert.Equal(t, 2, removed)
	require.Len(t, out.Records, 5)
	assert.Equal(t, "first", core.Value(out.Records[0].GeneratedSolution), "first occurrence wins")
	assert.Equal(t, "padded", core.Value(out.Records[2].GeneratedSolution), "keys are not normalized")
	assert.Equal(t, "n1", core.Value(out.Records[3].GeneratedSolution), "null keys collide with each other")
	assert.Equal(t, "e", core.Value(out.Records[4].GeneratedSolution), "empty string differs from null")

	// Input is untouched.
	assert.Len(t, c.Records, 7)
}

func TestDedup_Properties(t *testing.T) {
	keys := []string{"x", "y", "x", "z", "y", "x", "w"}
	recs := make([]core.MathRecord, len(keys))
	for i, k := range keys {
		recs[i] = math(s(k), s("sol"), s("1"))
	}
	c := core.NewCorpus(core.FamilyMath, recs...)

	out, removed := Dedup(c, core.MathQuestion)
	assert.LessOrEqual(t, out.Len(), c.Len())
	assert.Equal(t, c.Len()-out.Len(), removed)

	retained := map[string]bool{}
	for _, q := range questions(out) {
		assert.False(t, retained[q], "key %q retained twice", q)
		retained[q] = true
	}
	for _, k := range keys {
		assert.True(t, retained[k], "dropped key %q has no retained twin", k)
	}
	assert.Equal(t, []string{"x", "y", "z", "w"}, questions(out))
	assert.Equal(t, 3, CountDuplicates(c, core.MathQuestion))
}

func TestNormalize(t *testing.T) {
	r := writing(s("  hello \n"), nil)
	got := Normalize(r, core.WritingSchema.Fields)
	assert.Equal(t, "hello", core.Value(got.Prompt))
	assert.Nil(t, got.Solution)
	assert.Equal(t, "  hello \n", core.Value(r.Prompt), "input record is not mutated")

	again := Normalize(got, core.WritingSchema.Fields)
	assert.Equal(t, got, again)
}

func TestNormalizeForm(t *testing.T) {
	// "e" plus a combining acute composes to U+00E9 under NFC; the "fi"
	// ligature only folds under NFKC.
	r := writing(s(" cafe\u0301 "), s("\ufb01ne"))

	nfc := NormalizeForm(r, core.WritingSchema.Fields, FormNFC)
	assert.Equal(t, "caf\u00e9", core.Value(nfc.Prompt))
	assert.Equal(t, "\ufb01ne", core.Value(nfc.Solution))

	nfkc := NormalizeForm(r, core.WritingSchema.Fields, FormNFKC)
	assert.Equal(t, "fine", core.Value(nfkc.Solution))

	assert.Equal(t, nfkc, NormalizeForm(nfkc, core.WritingSchema.Fields, FormNFKC))
}

func TestParseUnicodeForm(t *testing.T) {
	for in, want := range map[string]UnicodeForm{"": FormNone, "nfc": FormNFC, " NFKC ": FormNFKC} {
		got, err := ParseUnicodeForm(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseUnicodeForm("NFD")
	assert.Error(t, err)
}

func TestFilterLanguage(t *testing.T) {
	c := core.NewCorpus(core.FamilyWriting,
		writing(s("en: one"), s("en: sol")),
		writing(s("es: dos"), s("en: sol")),
		writing(s("en: three"), s("???")),
		writing(s("en: four"), nil),
		writing(s("en: five"), s("   ")),
		writing(s("en: six"), s("en: sol")),
	)

	for _, workers := range []int{0, 1, 4} {
		out, removed := FilterLanguage(c, core.WritingSchema.Fields, LanguageOptions{
			Detector: englishIfMarked,
			Workers:  workers,
		})
		assert.Equal(t, 4, removed, "workers=%d", workers)
		require.Len(t, out.Records, 2)
		assert.Equal(t, "en: one", core.Value(out.Records[0].Prompt))
		assert.Equal(t, "en: six", core.Value(out.Records[1].Prompt))
	}
}

func TestFilterLanguage_Target(t *testing.T) {
	c := core.NewCorpus(core.FamilyWriting,
		writing(s("en: a"), s("en: b")),
		writing(s("es: a"), s("es: b")),
	)
	out, removed := FilterLanguage(c, core.WritingSchema.Fields, LanguageOptions{
		Detector: englishIfMarked,
		Target:   "ES",
	})
	assert.Equal(t, 1, removed)
	require.Len(t, out.Records, 1)
	assert.Equal(t, "es: a", core.Value(out.Records[0].Prompt))
}

func TestFilterLanguage_FailuresDrop(t *testing.T) {
	c := core.NewCorpus(core.FamilyWriting, writing(s("en: a"), s("en: b")))

	t.Run("nil detector", func(t *testing.T) {
		out, removed := FilterLanguage(c, core.WritingSchema.Fields, LanguageOptions{})
		assert.Equal(t, 1, removed)
		assert.Empty(t, out.Records)
	})

	t.Run("error", func(t *testing.T) {
		d := langdetect.Func(func(string) (string, error) { return "", errors.New("boom") })
		_, removed := FilterLanguage(c, core.WritingSchema.Fields, LanguageOptions{Detector: d})
		assert.Equal(t, 1, removed)
	})

	t.Run("panic", func(t *testing.T) {
		d := langdetect.Func(func(string) (string, error) { panic("bad input") })
		_, removed := FilterLanguage(c, core.WritingSchema.Fields, LanguageOptions{Detector: d, Workers: 2})
		assert.Equal(t, 1, removed)
	})
}

func TestFilterLanguage_DetectsTrimmedText(t *testing.T) {
	var seen atomic.Value
	d := langdetect.Func(func(text string) (string, error) {
		seen.Store(text)
		return "en", nil
	})
	c := core.NewCorpus(core.FamilyWriting, writing(s("  padded  "), s("  padded  ")))
	out, _ := FilterLanguage(c, core.WritingSchema.Fields, LanguageOptions{Detector: d})
	assert.Equal(t, "padded", seen.Load())
	assert.Equal(t, "  padded  ", core.Value(out.Records[0].Prompt), "filter does not normalize")
}

func TestCleanMath_EndToEnd(t *testing.T) {
	c := core.NewCorpus(core.FamilyMath,
		math(s("q1"), s("s1"), s("1")),
		math(s("q2"), s("s2"), s("2")),
		math(s("q1"), s("s1 again"), s("1")),
		math(s("q3"), s("s3"), s("3")),
		math(s("q4"), s("s4"), s("  ")),
		math(s("q5"), s("s5"), s("5")),
		math(s("q3"), s("s3 again"), s("3")),
		math(s("  q6 "), s("s6\n"), s("6")),
		math(s("q7"), s("s7"), s("7")),
		math(s("q8"), s("s8"), s("8")),
	)

	out, report := CleanMath(c, Options{Logger: testutil.NewTestLogger(t)})

	require.Len(t, out.Records, 7)
	assert.Equal(t, []string{"q1", "q2", "q3", "q5", "q6", "q7", "q8"}, questions(out))
	assert.Equal(t, "s1", core.Value(out.Records[0].GeneratedSolution))
	assert.Equal(t, "s6", core.Value(out.Records[4].GeneratedSolution))

	assert.Equal(t, core.FamilyMath, report.Family)
	assert.Equal(t, 10, report.Before.Rows)
	assert.Equal(t, 2, report.Before.DuplicateKeys)
	assert.Equal(t, 1, report.Before.BlankFields["expected_answer"])
	assert.Equal(t, 7, report.After.Rows)
	assert.Equal(t, 0, report.After.DuplicateKeys)
	assert.Equal(t, 3, report.Removed())
	assert.Equal(t, []StageReport{
		{Name: StageDedup, Removed: 2, Remaining: 8},
		{Name: StageDropEmpty, Removed: 1, Remaining: 7},
		{Name: StageNormalize, Removed: 0, Remaining: 7},
	}, report.Stages)
	assert.Equal(t, "q1", report.Sample["question"])
}

func TestCleanMath_DedupBeforeNormalize(t *testing.T) {
	c := core.NewCorpus(core.FamilyMath,
		math(s("q"), s("a"), s("1")),
		math(s("q "), s("b"), s("2")),
	)
	out, _ := CleanMath(c, Options{})
	require.Len(t, out.Records, 2)
	assert.Equal(t, "q", core.Value(out.Records[0].Question))
	assert.Equal(t, "q", core.Value(out.Records[1].Question))
}

func TestCleanWriting(t *testing.T) {
	c := core.NewCorpus(core.FamilyWriting,
		writing(s(" en: story "), s("en: body ")),
		writing(s("es: cuento"), s("en: body")),
		writing(s(" en: story "), s("en: other")),
		writing(s("en: empty"), s("")),
		writing(s("en: poem"), s("en: verse")),
	)

	out, report := CleanWriting(c, Options{
		Language: LanguageOptions{Detector: englishIfMarked, Workers: 2},
		Logger:   testutil.NewTestLogger(t),
	})

	require.Len(t, out.Records, 2)
	assert.Equal(t, "en: story", core.Value(out.Records[0].Prompt))
	assert.Equal(t, "en: body", core.Value(out.Records[0].Solution))
	assert.Equal(t, "en: poem", core.Value(out.Records[1].Prompt))

	names := make([]string, len(report.Stages))
	for i, st := range report.Stages {
		names[i] = st.Name
	}
	assert.Equal(t, []string{StageLanguage, StageDedup, StageDropEmpty, StageNormalize}, names)
	assert.Equal(t, 2, report.Stages[0].Removed)
	assert.Equal(t, 1, report.Stages[1].Removed)
	assert.Equal(t, 0, report.Stages[2].Removed)
}

func TestCleanMath_Empty(t *testing.T) {
	out, report := CleanMath(core.NewCorpus[core.MathRecord](core.FamilyMath), Options{})
	assert.Empty(t, out.Records)
	assert.Equal(t, 0, report.After.Rows)
	assert.Nil(t, report.Sample)
}
