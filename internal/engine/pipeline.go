package engine

import (
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/sftprep/internal/clean"
	"github.com/leapstack-labs/sftprep/internal/format"
	"github.com/leapstack-labs/sftprep/pkg/core"
)

// pipeline hides a family's record type behind table-level operations.
type pipeline interface {
	clean(t *core.Table, opts clean.Options, logger *slog.Logger) (*core.Table, clean.Report, error)
	format(t *core.Table, opts format.Options, logger *slog.Logger) (*core.Table, format.Report, error)
}

type typedPipeline[R any] struct {
	schema  core.Schema[R]
	cleanFn func(core.Corpus[R], clean.Options) (core.Corpus[R], clean.Report)
	tpl     format.Template[R]
}

var pipelines = map[core.Family]pipeline{
	core.FamilyWriting: typedPipeline[core.WritingRecord]{
		schema:  core.WritingSchema,
		cleanFn: clean.CleanWriting,
		tpl:     format.WritingTemplate,
	},
	core.FamilyMath: typedPipeline[core.MathRecord]{
		schema:  core.MathSchema,
		cleanFn: clean.CleanMath,
		tpl:     format.MathTemplate,
	},
}

func pipelineFor(f core.Family) (pipeline, error) {
	p, ok := pipelines[f]
	if !ok {
		return nil, fmt.Errorf("no pipeline for family %q", f)
	}
	return p, nil
}

func (p typedPipeline[R]) corpus(t *core.Table) (core.Corpus[R], error) {
	if t == nil {
		return core.Corpus[R]{}, fmt.Errorf("nil table")
	}
	return core.CorpusFromTable(p.schema, t)
}

// clean drops every column outside the schema. A schema column absent from
// the table reads as null in every row, so validation drops those rows.
func (p typedPipeline[R]) clean(t *core.Table, opts clean.Options, logger *slog.Logger) (*core.Table, clean.Report, error) {
	c, err := p.corpus(t)
	if err != nil {
		return nil, clean.Report{}, err
	}
	if missing := missingColumns(t, p.schema.Columns()); len(missing) > 0 && t.Len() > 0 {
		logger.Warn("table is missing schema columns, affected rows will be dropped",
			"missing", missing, "columns", t.Columns)
	}
	out, report := p.cleanFn(c, opts)
	return core.TableFromCorpus(p.schema, out), report, nil
}

func (p typedPipeline[R]) format(t *core.Table, opts format.Options, logger *slog.Logger) (*core.Table, format.Report, error) {
	c, err := p.corpus(t)
	if err != nil {
		return nil, format.Report{}, err
	}
	return format.FormatTable(c, p.schema, p.tpl, opts, logger)
}

// missingColumns returns the entries of cols absent from t's column list.
func missingColumns(t *core.Table, cols []string) []string {
	have := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		have[c] = true
	}
	var missing []string
	for _, c := range cols {
		if !have[c] {
			missing = append(missing, c)
		}
	}
	return missing
}
