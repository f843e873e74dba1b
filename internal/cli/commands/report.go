package commands

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/leapstack-labs/sftprep/internal/clean"
	"github.com/leapstack-labs/sftprep/internal/cli/output"
	"github.com/leapstack-labs/sftprep/internal/engine"
	"github.com/leapstack-labs/sftprep/internal/format"
	"github.com/leapstack-labs/sftprep/internal/state"
	"github.com/leapstack-labs/sftprep/pkg/core"
)

const sampleWidth = 100

// renderRunResult writes every stage report. Samples appear in verbose text
// mode and always in JSON.
func renderRunResult(r *output.Renderer, res *engine.RunResult, verbose bool) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(res)
	}

	for _, sr := range res.Stages {
		r.Header(2, fmt.Sprintf("%s %s", sr.Family, sr.Step))
		switch rep := sr.Report.(type) {
		case engine.FetchReport:
			renderFetch(r, rep)
		case clean.Report:
			renderClean(r, rep, verbose)
		case engine.SplitReport:
			renderSplit(r, rep)
		case engine.FormatReport:
			renderFormat(r, rep, verbose)
		case engine.InspectReport:
			renderInspect(r, rep)
		}
		r.Muted(fmt.Sprintf("%d in, %d out in %s", sr.RowsIn, sr.RowsOut, sr.Duration.Round(time.Millisecond)))
		r.Println("")
	}

	msg := fmt.Sprintf("Run %s %s (%d stages)", shortID(res.RunID), res.Status, len(res.Stages))
	if res.Status == state.RunStatusCompleted {
		r.Success(msg)
	} else {
		r.Warning(msg)
	}
	return nil
}

func renderFetch(r *output.Renderer, rep engine.FetchReport) {
	if rep.Dataset != "" {
		r.KeyValue("Dataset", rep.Dataset)
	}
	r.KeyValue("Rows", rep.Rows)
	rows := make([][]any, 0, len(rep.Subsets))
	for _, s := range rep.Subsets {
		cols := slices.Clone(s.Columns)
		if len(s.Types) == len(cols) {
			for i, typ := range s.Types {
				cols[i] += " " + typ
			}
		}
		rows = append(rows, []any{s.Name, s.Rows, strings.Join(cols, ", ")})
	}
	r.Table([]string{"Subset", "Rows", "Columns"}, rows)
}

func renderClean(r *output.Renderer, rep clean.Report, verbose bool) {
	r.KeyValue("Rows", fmt.Sprintf("%d -> %d (%d removed)", rep.Before.Rows, rep.After.Rows, rep.Removed()))
	r.KeyValue("Duplicate keys", fmt.Sprintf("%d -> %d", rep.Before.DuplicateKeys, rep.After.DuplicateKeys))

	fields := slices.Sorted(maps.Keys(rep.Before.BlankFields))
	blank := make([][]any, 0, len(fields))
	for _, f := range fields {
		blank = append(blank, []any{f, rep.Before.BlankFields[f], rep.After.BlankFields[f]})
	}
	r.Table([]string{"Field", "Blank Before", "Blank After"}, blank)

	stages := make([][]any, 0, len(rep.Stages))
	for _, s := range rep.Stages {
		stages = append(stages, []any{s.Name, s.Removed, s.Remaining})
	}
	r.Table([]string{"Stage", "Removed", "Remaining"}, stages)

	if verbose {
		renderSample(r, rep.Sample)
	}
}

func renderSplit(r *output.Renderer, rep engine.SplitReport) {
	r.KeyValue("Total", rep.Total)
	r.KeyValue("Train", rep.Train)
	r.KeyValue("Validation", rep.Validation)
	r.KeyValue("Train ratio", rep.TrainRatio)
	r.KeyValue("Seed", rep.Seed)
}

func renderFormat(r *output.Renderer, rep engine.FormatReport, verbose bool) {
	if rep.Train.MaxTokens > 0 {
		r.KeyValue("Max tokens", rep.Train.MaxTokens)
	}
	row := func(name string, fr format.Report) []any {
		return []any{name, fr.Total, fr.Truncated, fr.Retained,
			fmt.Sprintf("%.2f%%", fr.TruncatedPct), fmt.Sprintf("%.2f%%", fr.RetainedPct)}
	}
	r.Table([]string{"Split", "Total", "Truncated", "Retained", "Truncated %", "Retained %"}, [][]any{
		row(string(core.StageTrain), rep.Train),
		row(string(core.StageValidation), rep.Validation),
	})
	if verbose {
		renderSample(r, rep.Train.Sample)
	}
}

func renderInspect(r *output.Renderer, rep engine.InspectReport) {
	if len(rep.Reports) > 0 {
		r.KeyValue("Tokenizer", rep.Reports[0].Tokenizer)
	}
	rows := make([][]any, 0, len(rep.Reports))
	for _, ir := range rep.Reports {
		s := ir.Stats
		rows = append(rows, []any{ir.Stage, s.Count, s.Min,
			fmt.Sprintf("%.1f", s.Mean), fmt.Sprintf("%.1f", s.Median), fmt.Sprintf("%.1f", s.P95), s.Max})
	}
	r.Table([]string{"Stage", "Count", "Min", "Mean", "Median", "P95", "Max"}, rows)
}

func renderSample(r *output.Renderer, sample core.Row) {
	if len(sample) == 0 {
		return
	}
	r.Println("")
	r.Muted("Sample")
	for _, k := range slices.Sorted(maps.Keys(sample)) {
		r.KeyValue(k, oneLine(fmt.Sprint(sample[k]), sampleWidth))
	}
}

// oneLine collapses whitespace and cuts s to at most width runes.
func oneLine(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-3]) + "..."
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
