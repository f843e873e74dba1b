package clean

import (
	"log/slog"

	"github.com/leapstack-labs/sftprep/pkg/core"
)

// Stage names reported by the cleaning pipelines.
const (
	StageLanguage  = "language_filter"
	StageDedup     = "dedup"
	StageDropEmpty = "drop_empty"
	StageNormalize = "normalize"
)

// Stage is one named transform in a cleaning pipeline.
type Stage[R any] struct {
	Name  string
	Apply func(core.Corpus[R]) (core.Corpus[R], int)
}

// Options configures the per-family pipelines.
type Options struct {
	Language    LanguageOptions
	UnicodeForm UnicodeForm
	Logger      *slog.Logger
}

// StageReport records the effect of one stage.
type StageReport struct {
	Name      string `json:"name"`
	Removed   int    `json:"removed"`
	Remaining int    `json:"remaining"`
}

// Inspection summarizes blank fields and duplicate keys in a corpus.
type Inspection struct {
	Rows          int            `json:"rows"`
	BlankFields   map[string]int `json:"blank_fields"`
	DuplicateKeys int            `json:"duplicate_keys"`
}

// Report is the outcome of a cleaning run.
type Report struct {
	Family core.Family   `json:"family"`
	Before Inspection    `json:"before"`
	After  Inspection    `json:"after"`
	Stages []StageReport `json:"stages"`
	Sample core.Row      `json:"sample,omitempty"`
}

// Removed returns the total number of records dropped.
func (r Report) Removed() int {
	return r.Before.Rows - r.After.Rows
}

// Inspect counts blank required fields and duplicate keys.
func Inspect[R any](c core.Corpus[R], schema core.Schema[R]) Inspection {
	blank := make(map[string]int, len(schema.Fields))
	for _, f := range schema.Fields {
		blank[f.Name] = 0
	}
	for _, r := range c.Records {
		for _, f := range schema.Fields {
			if core.IsBlank(f.Get(r)) {
				blank[f.Name]++
			}
		}
	}
	return Inspection{
		Rows:          c.Len(),
		BlankFields:   blank,
		DuplicateKeys: CountDuplicates(c, schema.Key),
	}
}

// Run applies stages in order and reports every stage's removal count.
// Removal counts are informational and never change control flow.
func Run[R any](c core.Corpus[R], schema core.Schema[R], stages []Stage[R], logger *slog.Logger) (core.Corpus[R], Report) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With("family", string(schema.Family))

	report := Report{Family: schema.Family, Before: Inspect(c, schema)}
	logger.Info("cleaning corpus", "rows", c.Len(),
		"duplicate_keys", report.Before.DuplicateKeys)
	for name, n := range report.Before.BlankFields {
		logger.Debug("blank field count", "field", name, "count", n)
	}

	cur := c
	for _, st := range stages {
		var removed int
		cur, removed = st.Apply(cur)
		report.Stages = append(report.Stages, StageReport{Name: st.Name, Removed: removed, Remaining: cur.Len()})
		logger.Info("stage complete", "stage", st.Name, "removed", removed, "remaining", cur.Len())
	}

	report.After = Inspect(cur, schema)
	if cur.Len() > 0 {
		report.Sample = schema.ToRow(cur.Records[0])
	}
	return cur, report
}

// WritingStages is the prompt/solution pipeline:
// language filter, dedup on the raw prompt, drop blanks, trim.
func WritingStages(opts Options) []Stage[core.WritingRecord] {
	fields := core.WritingSchema.Fields
	return []Stage[core.WritingRecord]{
		{Name: StageLanguage, Apply: func(c core.Corpus[core.WritingRecord]) (core.Corpus[core.WritingRecord], int) {
			return FilterLanguage(c, fields, opts.Language)
		}},
		dedupStage(core.WritingSchema),
		dropEmptyStage(core.WritingSchema),
		normalizeStage(core.WritingSchema, opts.UnicodeForm),
	}
}

// MathStages is the question/solution/answer pipeline:
// dedup on the raw question, drop blanks, trim. No language filter.
func MathStages(opts Options) []Stage[core.MathRecord] {
	return []Stage[core.MathRecord]{
		dedupStage(core.MathSchema),
		dropEmptyStage(core.MathSchema),
		normalizeStage(core.MathSchema, opts.UnicodeForm),
	}
}

// CleanWriting runs the prompt/solution pipeline.
func CleanWriting(c core.Corpus[core.WritingRecord], opts Options) (core.Corpus[core.WritingRecord], Report) {
	return Run(c, core.WritingSchema, WritingStages(opts), opts.Logger)
}

// CleanMath runs the question/solution/answer pipeline.
func CleanMath(c core.Corpus[core.MathRecord], opts Options) (core.Corpus[core.MathRecord], Report) {
	return Run(c, core.MathSchema, MathStages(opts), opts.Logger)
}

func dedupStage[R any](s core.Schema[R]) Stage[R] {
	return Stage[R]{Name: StageDedup, Apply: func(c core.Corpus[R]) (core.Corpus[R], int) {
		return Dedup(c, s.Key)
	}}
}

func dropEmptyStage[R any](s core.Schema[R]) Stage[R] {
	return Stage[R]{Name: StageDropEmpty, Apply: func(c core.Corpus[R]) (core.Corpus[R], int) {
		return FilterValid(c, s.Fields)
	}}
}

func normalizeStage[R any](s core.Schema[R], form UnicodeForm) Stage[R] {
	return Stage[R]{Name: StageNormalize, Apply: func(c core.Corpus[R]) (core.Corpus[R], int) {
		return NormalizeCorpus(c, s.Fields, form), 0
	}}
}
