package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/leapstack-labs/sftprep/internal/state"
	"github.com/leapstack-labs/sftprep/pkg/core"
)

// StageResult is the outcome of one step for one family.
type StageResult struct {
	Family   core.Family   `json:"family"`
	Step     core.Step     `json:"step"`
	RowsIn   int           `json:"rows_in"`
	RowsOut  int           `json:"rows_out"`
	Removed  int           `json:"removed"`
	Duration time.Duration `json:"duration"`
	// Report is the step-specific report (FetchReport, clean.Report,
	// SplitReport, FormatReport or InspectReport).
	Report any `json:"report"`
}

// RunResult collects every stage executed by a run.
type RunResult struct {
	RunID    string          `json:"run_id"`
	Command  string          `json:"command"`
	Families []core.Family   `json:"families"`
	Steps    []core.Step     `json:"steps"`
	Status   state.RunStatus `json:"status"`
	Stages   []StageResult   `json:"stages"`
}

// Run executes steps for every family and records the run.
// Families run in the given order; within a family, steps run in canonical
// order. The first failing stage stops the run.
func (e *Engine) Run(ctx context.Context, command string, families []core.Family, steps []core.Step) (*RunResult, error) {
	if len(families) == 0 {
		return nil, errors.New("no families selected")
	}
	names := make([]string, len(steps))
	for i, s := range steps {
		names[i] = string(s)
	}
	steps, err := core.ParseSteps(names)
	if err != nil {
		return nil, err
	}
	if len(steps) == 0 {
		return nil, errors.New("no steps selected")
	}

	// Bookkeeping must survive a cancelled ctx.
	bg := context.WithoutCancel(ctx)
	run, err := e.state.CreateRun(bg, command, families, steps)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	e.logger.Info("starting run", "run_id", run.ID, "command", command,
		"families", families, "steps", steps)

	result := &RunResult{
		RunID:    run.ID,
		Command:  command,
		Families: families,
		Steps:    steps,
		Status:   state.RunStatusRunning,
	}

	runErr := e.runAll(ctx, run.ID, families, steps, result)

	if runErr != nil {
		result.Status = state.RunStatusFailed
		if err := e.state.CompleteRun(bg, run.ID, state.RunStatusFailed, runErr.Error()); err != nil {
			e.logger.Error("failed to complete run", "run_id", run.ID, "error", err)
		}
		e.logger.Error("run failed", "run_id", run.ID, "error", runErr)
		return result, runErr
	}

	result.Status = state.RunStatusCompleted
	if err := e.state.CompleteRun(bg, run.ID, state.RunStatusCompleted, ""); err != nil {
		return result, fmt.Errorf("failed to complete run: %w", err)
	}
	e.logger.Info("run completed", "run_id", run.ID, "stages", len(result.Stages))
	return result, nil
}

func (e *Engine) runAll(ctx context.Context, runID string, families []core.Family, steps []core.Step, result *RunResult) error {
	for _, f := range families {
		for _, s := range steps {
			if err := ctx.Err(); err != nil {
				return err
			}
			sr, err := e.runStage(ctx, runID, f, s)
			result.Stages = append(result.Stages, sr)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Engine) runStage(ctx context.Context, runID string, f core.Family, s core.Step) (StageResult, error) {
	logger := e.logger.With("family", string(f), "step", string(s))
	logger.Info("running stage")

	start := time.Now().UTC()
	sr, err := e.execute(ctx, f, s)
	sr.Family, sr.Step = f, s
	sr.Duration = time.Since(start)

	completed := time.Now().UTC()
	rec := &state.StageRun{
		RunID:       runID,
		Family:      f,
		Step:        s,
		Status:      state.RunStatusCompleted,
		RowsIn:      sr.RowsIn,
		RowsOut:     sr.RowsOut,
		Removed:     sr.Removed,
		StartedAt:   start,
		CompletedAt: &completed,
	}
	if err != nil {
		rec.Status = state.RunStatusFailed
		rec.Error = err.Error()
	}
	if sr.Report != nil {
		if details, jerr := json.Marshal(sr.Report); jerr == nil {
			rec.Details = string(details)
		} else {
			logger.Warn("failed to encode stage report", "error", jerr)
		}
	}
	if rerr := e.state.RecordStage(context.WithoutCancel(ctx), rec); rerr != nil {
		logger.Error("failed to record stage", "error", rerr)
		if err == nil {
			err = rerr
		}
	}

	if err != nil {
		return sr, fmt.Errorf("%s %s: %w", f, s, err)
	}
	logger.Info("stage complete", "rows_in", sr.RowsIn, "rows_out", sr.RowsOut,
		"removed", sr.Removed, "duration", sr.Duration)
	return sr, nil
}

func (e *Engine) execute(ctx context.Context, f core.Family, s core.Step) (StageResult, error) {
	switch s {
	case core.StepFetch:
		return e.fetch(ctx, f)
	case core.StepClean:
		return e.clean(ctx, f)
	case core.StepSplit:
		return e.split(ctx, f)
	case core.StepFormat:
		return e.format(ctx, f)
	case core.StepInspect:
		return e.inspect(ctx, f)
	}
	return StageResult{}, fmt.Errorf("unknown step %q", s)
}
