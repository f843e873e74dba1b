package commands

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sftprep/internal/cli/output"
	"github.com/leapstack-labs/sftprep/internal/state"
)

// RunDetail is the JSON shape of `runs <id>`.
type RunDetail struct {
	Run    *state.Run        `json:"run"`
	Stages []*state.StageRun `json:"stages"`
}

// NewRunsCommand creates the runs command.
func NewRunsCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "Show pipeline run history",
		Long: `List recent runs recorded in the state database, or show the stages of
one run. A run id may be abbreviated to any unique prefix.`,
		Example: `  sftprep runs
  sftprep runs -n 5
  sftprep runs 3f2a9c1e`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContextWithoutEngine(cmd)
			store := state.NewSQLiteStore(cmdCtx.Logger)
			if err := store.Open(cmdCtx.Cfg.StatePath); err != nil {
				return fmt.Errorf("failed to open state store: %w", err)
			}
			defer func() { _ = store.Close() }()

			if len(args) == 1 {
				return showRun(cmd, cmdCtx.Renderer, store, args[0])
			}
			return listRuns(cmd, cmdCtx.Renderer, store, limit)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list")
	return cmd
}

func listRuns(cmd *cobra.Command, r *output.Renderer, store state.Store, limit int) error {
	runs, err := store.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if r.EffectiveMode() == output.ModeJSON {
		if runs == nil {
			runs = []*state.Run{}
		}
		return r.JSON(runs)
	}

	r.Header(1, fmt.Sprintf("Runs (%d)", len(runs)))
	if len(runs) == 0 {
		r.Muted("No runs recorded yet. Use 'sftprep run' to start one.")
		return nil
	}
	rows := make([][]any, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []any{
			shortID(run.ID), run.Command, joinAny(run.Families), joinAny(run.Steps),
			run.Status, run.StartedAt.Local().Format(time.DateTime), formatDuration(run),
		})
	}
	r.Table([]string{"ID", "Command", "Families", "Steps", "Status", "Started", "Duration"}, rows)
	return nil
}

func showRun(cmd *cobra.Command, r *output.Renderer, store state.Store, id string) error {
	run, err := store.GetRun(cmd.Context(), id)
	if errors.Is(err, state.ErrRunNotFound) {
		return fmt.Errorf("%w\nHint: use 'sftprep runs' to list run ids", err)
	}
	if err != nil {
		return err
	}
	stages, err := store.ListStageRuns(cmd.Context(), run.ID)
	if err != nil {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		if stages == nil {
			stages = []*state.StageRun{}
		}
		return r.JSON(RunDetail{Run: run, Stages: stages})
	}

	r.Header(1, "Run "+shortID(run.ID))
	r.KeyValue("ID", run.ID)
	r.KeyValue("Command", run.Command)
	r.KeyValue("Status", run.Status)
	r.KeyValue("Started", run.StartedAt.Local().Format(time.DateTime))
	r.KeyValue("Duration", formatDuration(run))
	if run.Error != "" {
		r.KeyValue("Error", oneLine(run.Error, sampleWidth))
	}
	r.Println("")

	rows := make([][]any, 0, len(stages))
	for _, sr := range stages {
		rows = append(rows, []any{sr.Family, sr.Step, sr.Status, sr.RowsIn, sr.RowsOut, sr.Removed, oneLine(sr.Error, 60)})
	}
	r.Table([]string{"Family", "Step", "Status", "Rows In", "Rows Out", "Removed", "Error"}, rows)
	return nil
}

func formatDuration(run *state.Run) string {
	if run.CompletedAt == nil {
		return "-"
	}
	return run.Duration().Round(time.Millisecond).String()
}

func joinAny[T ~string](items []T) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = string(it)
	}
	return strings.Join(parts, ",")
}
