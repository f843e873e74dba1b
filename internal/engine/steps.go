package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/leapstack-labs/sftprep/internal/format"
	"github.com/leapstack-labs/sftprep/internal/inspect"
	"github.com/leapstack-labs/sftprep/internal/source"
	"github.com/leapstack-labs/sftprep/internal/split"
	"github.com/leapstack-labs/sftprep/internal/storage"
	"github.com/leapstack-labs/sftprep/pkg/core"
)

// SubsetReport describes one fetched subset.
type SubsetReport struct {
	Name    string   `json:"name"`
	Rows    int      `json:"rows"`
	Columns []string `json:"columns"`
	// Types holds the source column types, parallel to Columns.
	Types []string `json:"types,omitempty"`
}

// FetchReport describes the raw corpus assembled by fetch.
type FetchReport struct {
	Family  core.Family    `json:"family"`
	Dataset string         `json:"dataset,omitempty"`
	Subsets []SubsetReport `json:"subsets"`
	Rows    int            `json:"rows"`
	Columns []string       `json:"columns"`
}

// SplitReport is split.Report tagged with its family.
type SplitReport struct {
	Family core.Family `json:"family"`
	split.Report
}

// FormatReport holds the train and validation format reports.
type FormatReport struct {
	Family     core.Family   `json:"family"`
	Train      format.Report `json:"train"`
	Validation format.Report `json:"validation"`
}

// InspectReport holds token length statistics for the formatted stages.
type InspectReport struct {
	Family  core.Family      `json:"family"`
	Reports []inspect.Report `json:"reports"`
}

// MissingStageError is returned when a step's input has not been produced.
type MissingStageError struct {
	Family core.Family
	Stage  core.Stage
	Dir    string
	// Step produces the missing stage.
	Step core.Step
}

func (e *MissingStageError) Error() string {
	return fmt.Sprintf("%s %s data not found in %s\nHint: run 'sftprep %s -f %s' first",
		e.Family, e.Stage, e.Dir, e.Step, e.Family)
}

func (e *MissingStageError) Unwrap() error { return storage.ErrNotFound }

var producedBy = map[core.Stage]core.Step{
	core.StageRaw:                 core.StepFetch,
	core.StageCleaned:             core.StepClean,
	core.StageTrain:               core.StepSplit,
	core.StageValidation:          core.StepSplit,
	core.StageFormattedTrain:      core.StepFormat,
	core.StageFormattedValidation: core.StepFormat,
}

func (e *Engine) load(ctx context.Context, f core.Family, s core.Stage) (*core.Table, error) {
	dir := e.layout.Dir(f, s)
	t, err := e.store.Load(ctx, dir)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, &MissingStageError{Family: f, Stage: s, Dir: dir, Step: producedBy[s]}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s %s: %w", f, s, err)
	}
	if t.Family == "" {
		t.Family = f
	}
	return t, nil
}

func (e *Engine) save(ctx context.Context, f core.Family, s core.Stage, t *core.Table) error {
	dir := e.layout.Dir(f, s)
	t.Family = f
	if err := e.store.Save(ctx, dir, t); err != nil {
		return fmt.Errorf("failed to save %s %s: %w", f, s, err)
	}
	e.logger.Debug("saved stage", "family", string(f), "stage", string(s), "dir", dir, "rows", t.Len())
	return nil
}

func (e *Engine) fetch(ctx context.Context, f core.Family) (StageResult, error) {
	fc, err := e.familyConfig(f)
	if err != nil {
		return StageResult{}, err
	}
	subsets, err := e.src.Fetch(ctx, source.Ref{Family: f, Dataset: fc.Dataset, Subsets: fc.Subsets})
	if err != nil {
		return StageResult{}, err
	}

	raw := source.Concat(f, subsets)
	report := FetchReport{Family: f, Dataset: fc.Dataset, Rows: raw.Len(), Columns: raw.Columns}
	for _, s := range subsets {
		sub := SubsetReport{Name: s.Name, Rows: s.Table.Len(), Columns: s.Table.Columns}
		if len(s.Types) > 0 {
			sub.Types = make([]string, len(sub.Columns))
			for i, c := range sub.Columns {
				sub.Types[i] = s.Types[c]
			}
		}
		report.Subsets = append(report.Subsets, sub)
	}
	if err := e.save(ctx, f, core.StageRaw, raw); err != nil {
		return StageResult{Report: report}, err
	}
	return StageResult{RowsOut: raw.Len(), Report: report}, nil
}

func (e *Engine) clean(ctx context.Context, f core.Family) (StageResult, error) {
	p, err := pipelineFor(f)
	if err != nil {
		return StageResult{}, err
	}
	raw, err := e.load(ctx, f, core.StageRaw)
	if err != nil {
		return StageResult{}, err
	}
	cleaned, report, err := p.clean(raw, e.cleanOpts, e.logger.With("family", string(f)))
	if err != nil {
		return StageResult{RowsIn: raw.Len()}, err
	}
	sr := StageResult{RowsIn: raw.Len(), RowsOut: cleaned.Len(), Removed: report.Removed(), Report: report}
	return sr, e.save(ctx, f, core.StageCleaned, cleaned)
}

func (e *Engine) split(ctx context.Context, f core.Family) (StageResult, error) {
	cleaned, err := e.load(ctx, f, core.StageCleaned)
	if err != nil {
		return StageResult{}, err
	}
	train, validation, rep, err := split.Tables(cleaned, e.trainRatio, e.seed)
	if err != nil {
		return StageResult{RowsIn: cleaned.Len()}, err
	}
	sr := StageResult{RowsIn: cleaned.Len(), RowsOut: train.Len() + validation.Len(), Report: SplitReport{Family: f, Report: rep}}
	if err := e.save(ctx, f, core.StageTrain, train); err != nil {
		return sr, err
	}
	return sr, e.save(ctx, f, core.StageValidation, validation)
}

func (e *Engine) format(ctx context.Context, f core.Family) (StageResult, error) {
	p, err := pipelineFor(f)
	if err != nil {
		return StageResult{}, err
	}
	fc, err := e.familyConfig(f)
	if err != nil {
		return StageResult{}, err
	}

	report := FormatReport{Family: f}
	var sr StageResult
	// a failure on validation still reports the finished train split
	fail := func(err error) (StageResult, error) {
		sr.Report = report
		return sr, err
	}
	for _, pair := range [...]struct {
		in, out core.Stage
		rep     *format.Report
	}{
		{core.StageTrain, core.StageFormattedTrain, &report.Train},
		{core.StageValidation, core.StageFormattedValidation, &report.Validation},
	} {
		t, err := e.load(ctx, f, pair.in)
		if err != nil {
			return fail(err)
		}
		sr.RowsIn += t.Len()
		out, rep, err := p.format(t, fc.Format, e.logger.With("stage", string(pair.in)))
		if err != nil {
			return fail(fmt.Errorf("%s: %w", pair.in, err))
		}
		rep.Family = f
		*pair.rep = rep
		sr.RowsOut += out.Len()
		if err := e.save(ctx, f, pair.out, out); err != nil {
			return fail(err)
		}
	}
	sr.Report = report
	return sr, nil
}

func (e *Engine) inspect(ctx context.Context, f core.Family) (StageResult, error) {
	tok, err := e.tokenizerFor()
	if err != nil {
		return StageResult{}, err
	}

	report := InspectReport{Family: f}
	var sr StageResult
	for _, s := range []core.Stage{core.StageFormattedTrain, core.StageFormattedValidation} {
		t, err := e.load(ctx, f, s)
		if err != nil {
			sr.Report = report
			return sr, err
		}
		sr.RowsIn += t.Len()
		rep, err := inspect.Table(t, s, e.tokName, tok)
		if err != nil {
			sr.Report = report
			return sr, fmt.Errorf("%s: %w", s, err)
		}
		rep.Family = f
		e.logger.Info("token lengths", "family", string(f), "stage", string(s),
			"count", rep.Stats.Count, "mean", rep.Stats.Mean, "p95", rep.Stats.P95, "max", rep.Stats.Max)
		report.Reports = append(report.Reports, rep)
	}
	sr.RowsOut = sr.RowsIn
	sr.Report = report
	return sr, nil
}
