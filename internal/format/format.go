package format

import (
	"log/slog"

	"github.com/leapstack-labs/sftprep/pkg/core"
)

// DefaultMaxTokens is the default whitespace-token budget.
const DefaultMaxTokens = 1024

// Output column names.
const (
	ColumnText      = "text"
	ColumnNumTokens = "num_tokens"
)

// Options control token counting, truncation and which columns are written.
type Options struct {
	MaxTokens   int  `koanf:"max_tokens"`
	CountTokens bool `koanf:"count_tokens"`
	// Truncate implies CountTokens.
	Truncate bool `koanf:"truncate"`
	// KeepFields writes the source columns next to text.
	KeepFields bool `koanf:"keep_fields"`
}

// DefaultOptions returns the per-family defaults. Both families keep their
// source fields; only the writing family counts and truncates.
func DefaultOptions(f core.Family) Options {
	switch f {
	case core.FamilyWriting:
		return Options{MaxTokens: DefaultMaxTokens, CountTokens: true, Truncate: true, KeepFields: true}
	default:
		return Options{MaxTokens: DefaultMaxTokens, KeepFields: true}
	}
}

func (o Options) counts() bool { return o.CountTokens || o.Truncate }

func (o Options) budget() int {
	if o.MaxTokens > 0 {
		return o.MaxTokens
	}
	return DefaultMaxTokens
}

// Formatted is a source record with its rendered text.
type Formatted[R any] struct {
	Record R
	Text   string
	// NumTokens is nil when token counting is off.
	NumTokens *int
	Truncated bool
}

// Report summarizes a formatted corpus.
type Report struct {
	Family       core.Family `json:"family"`
	Total        int         `json:"total"`
	Truncated    int         `json:"truncated"`
	Retained     int         `json:"retained"`
	TruncatedPct float64     `json:"truncated_pct"`
	RetainedPct  float64     `json:"retained_pct"`
	MaxTokens    int         `json:"max_tokens,omitempty"`
	Sample       core.Row    `json:"sample,omitempty"`
}

// FormatRecord renders, validates and optionally truncates one record.
func FormatRecord[R any](r R, tpl Template[R], opts Options) (Formatted[R], error) {
	for _, f := range tpl.Required {
		if f.Get(r) == nil {
			return Formatted[R]{}, &MissingFieldError{Family: tpl.Family, Field: f.Name}
		}
	}

	text := tpl.Render(r)
	if err := Validate(text); err != nil {
		return Formatted[R]{}, err
	}

	out := Formatted[R]{Record: r, Text: text}
	if !opts.counts() {
		return out, nil
	}
	n := CountTokens(text)
	if opts.Truncate {
		out.Text, n, out.Truncated = Truncate(text, opts.budget())
	}
	out.NumTokens = &n
	return out, nil
}

// FormatCorpus formats every record in order. It stops at the first failure
// and returns it wrapped in a *RecordError.
func FormatCorpus[R any](c core.Corpus[R], tpl Template[R], opts Options, logger *slog.Logger) ([]Formatted[R], Report, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	out := make([]Formatted[R], 0, c.Len())
	report := Report{Family: tpl.Family, Total: c.Len()}
	if opts.Truncate {
		report.MaxTokens = opts.budget()
	}
	for i, r := range c.Records {
		f, err := FormatRecord(r, tpl, opts)
		if err != nil {
			return nil, Report{}, &RecordError{Index: i, Err: err}
		}
		if f.Truncated {
			report.Truncated++
		}
		out = append(out, f)
	}
	report.Retained = report.Total - report.Truncated
	if report.Total > 0 {
		report.TruncatedPct = 100 * float64(report.Truncated) / float64(report.Total)
		report.RetainedPct = 100 * float64(report.Retained) / float64(report.Total)
	}

	logger.Info("formatted corpus",
		"family", string(tpl.Family),
		"total", report.Total,
		"retained", report.Retained,
		"truncated", report.Truncated)
	return out, report, nil
}

// Columns returns the output column order for a schema under opts.
func Columns[R any](s core.Schema[R], opts Options) []string {
	var cols []string
	if opts.KeepFields {
		cols = append(cols, s.Columns()...)
	}
	cols = append(cols, ColumnText)
	if opts.counts() {
		cols = append(cols, ColumnNumTokens)
	}
	return cols
}

// Row converts a formatted record to a storage row.
func Row[R any](s core.Schema[R], f Formatted[R], opts Options) core.Row {
	row := core.Row{ColumnText: f.Text}
	if opts.KeepFields {
		for k, v := range s.ToRow(f.Record) {
			row[k] = v
		}
	}
	if opts.counts() && f.NumTokens != nil {
		row[ColumnNumTokens] = int64(*f.NumTokens)
	}
	return row
}

// Table builds the storage table for a formatted corpus.
func Table[R any](s core.Schema[R], fs []Formatted[R], opts Options) *core.Table {
	rows := make([]core.Row, len(fs))
	for i, f := range fs {
		rows[i] = Row(s, f, opts)
	}
	return &core.Table{Family: s.Family, Columns: Columns(s, opts), Rows: rows}
}

// FormatTable formats c and converts the result to a table in one step.
func FormatTable[R any](c core.Corpus[R], s core.Schema[R], tpl Template[R], opts Options, logger *slog.Logger) (*core.Table, Report, error) {
	fs, report, err := FormatCorpus(c, tpl, opts, logger)
	if err != nil {
		return nil, report, err
	}
	t := Table(s, fs, opts)
	if len(t.Rows) > 0 {
		report.Sample = t.Rows[0]
	}
	return t, report, nil
}
