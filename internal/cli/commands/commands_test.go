package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sftprep/internal/clean"
	"github.com/leapstack-labs/sftprep/internal/cli/testutil"
	"github.com/leapstack-labs/sftprep/internal/engine"
	"github.com/leapstack-labs/sftprep/internal/format"
	"github.com/leapstack-labs/sftprep/internal/inspect"
	"github.com/leapstack-labs/sftprep/internal/split"
	"github.com/leapstack-labs/sftprep/internal/state"
	"github.com/leapstack-labs/sftprep/pkg/core"
)

func TestStepCommands(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{NewFetchCommand(), "fetch", []string{"family"}},
		{NewCleanCommand(), "clean", []string{"family", "language", "workers", "min-detect-length", "unicode-form"}},
		{NewSplitCommand(), "split", []string{"family", "train-ratio", "seed"}},
		{NewFormatCommand(), "format", []string{"family"}},
		{NewInspectCommand(), "inspect", []string{"family", "tokenizer", "add-special-tokens"}},
	}

	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short)
			for _, name := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(name), "missing flag --%s", name)
			}
			f := tt.cmd.Flags().Lookup("family")
			assert.Equal(t, "f", f.Shorthand)
			assert.Equal(t, "all", f.DefValue)
		})
	}
}

func TestRunCommand(t *testing.T) {
	cmd := NewRunCommand()

	assert.Equal(t, "run", cmd.Use)
	assert.Contains(t, cmd.Aliases, "all")
	for _, name := range []string{"family", "stages", "language", "workers", "train-ratio", "seed", "tokenizer"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "missing flag --%s", name)
	}
}

func TestRunsCommand(t *testing.T) {
	cmd := NewRunsCommand()

	assert.Equal(t, "runs [run-id]", cmd.Use)
	limit := cmd.Flags().Lookup("limit")
	require.NotNil(t, limit)
	assert.Equal(t, "n", limit.Shorthand)
	assert.Equal(t, "20", limit.DefValue)
}

func TestVersionCommand(t *testing.T) {
	cmd := NewVersionCommand("1.2.3")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "sftprep v1.2.3")
}

func sampleResult(status state.RunStatus) *engine.RunResult {
	return &engine.RunResult{
		RunID:    "0123456789abcdef",
		Command:  "run",
		Families: []core.Family{core.FamilyMath},
		Steps:    core.Steps(),
		Status:   status,
		Stages: []engine.StageResult{
			{
				Family: core.FamilyMath, Step: core.StepFetch, RowsOut: 5, Duration: 12 * time.Millisecond,
				Report: engine.FetchReport{
					Family:  core.FamilyMath,
					Dataset: "nvidia/OpenMathInstruct-1",
					Subsets: []engine.SubsetReport{
						{Name: "train", Rows: 5, Columns: []string{"question", "expected_answer"}},
						{Name: "validation", Columns: []string{"question", "expected_answer"}, Types: []string{"VARCHAR", "BIGINT"}},
					},
					Rows:    5,
				},
			},
			{
				Family: core.FamilyMath, Step: core.StepClean, RowsIn: 5, RowsOut: 3, Removed: 2,
				Report: clean.Report{
					Family: core.FamilyMath,
					Before: clean.Inspection{Rows: 5, BlankFields: map[string]int{"question": 1}, DuplicateKeys: 1},
					After:  clean.Inspection{Rows: 3, BlankFields: map[string]int{"question": 0}},
					Stages: []clean.StageReport{{Name: "dedup", Removed: 1, Remaining: 4}, {Name: "drop_empty", Removed: 1, Remaining: 3}},
					Sample: core.Row{"question": "What is\n 2+2?"},
				},
			},
			{
				Family: core.FamilyMath, Step: core.StepSplit, RowsIn: 3, RowsOut: 3,
				Report: engine.SplitReport{Family: core.FamilyMath, Report: split.Report{Total: 3, Train: 2, Validation: 1, TrainRatio: 0.5, Seed: 42}},
			},
			{
				Family: core.FamilyMath, Step: core.StepFormat, RowsIn: 3, RowsOut: 3,
				Report: engine.FormatReport{
					Family:     core.FamilyMath,
					Train:      format.Report{Total: 2, Truncated: 1, Retained: 1, TruncatedPct: 50, RetainedPct: 50},
					Validation: format.Report{Total: 1, Retained: 1, RetainedPct: 100},
				},
			},
			{
				Family: core.FamilyMath, Step: core.StepInspect, RowsIn: 3, RowsOut: 3,
				Report: engine.InspectReport{Family: core.FamilyMath, Reports: []inspect.Report{
					{Family: core.FamilyMath, Stage: core.StageFormattedTrain, Tokenizer: "whitespace", Stats: inspect.Stats{Count: 2, Min: 4, Mean: 5, Median: 5, P95: 5.9, Max: 6}},
				}},
			},
		},
	}
}

func TestRenderRunResult_Markdown(t *testing.T) {
	tr := testutil.NewTestRendererMarkdown()

	require.NoError(t, renderRunResult(tr.Renderer, sampleResult(state.RunStatusCompleted), false))
	out := tr.Output()

	testutil.AssertNoANSI(t, out)
	testutil.AssertValidMarkdown(t, out)
	assert.Contains(t, out, "## Openmath Fetch")
	assert.Contains(t, out, "| train | 5 | question, expected_answer |")
	assert.Contains(t, out, "| validation | 0 | question VARCHAR, expected_answer BIGINT |")
	assert.Contains(t, out, "- **Rows:** 5 -> 3 (2 removed)")
	assert.Contains(t, out, "- **Duplicate keys:** 1 -> 0")
	assert.Contains(t, out, "| question | 1 | 0 |")
	assert.Contains(t, out, "| drop_empty | 1 | 3 |")
	assert.Contains(t, out, "- **Train:** 2")
	assert.Contains(t, out, "| train | 2 | 1 | 1 | 50.00% | 50.00% |")
	assert.Contains(t, out, "| validation | 1 | 0 | 1 | 0.00% | 100.00% |")
	assert.Contains(t, out, "- **Tokenizer:** whitespace")
	assert.Contains(t, out, "| 2 | 4 | 5.0 | 5.0 | 5.9 | 6 |")
	assert.Contains(t, out, "Run 01234567 completed (5 stages)")
	assert.NotContains(t, out, "Sample", "samples are verbose only")
}

func TestRenderRunResult_VerboseSample(t *testing.T) {
	tr := testutil.NewTestRendererMarkdown()

	require.NoError(t, renderRunResult(tr.Renderer, sampleResult(state.RunStatusCompleted), true))

	assert.Contains(t, tr.Output(), "- **question:** What is 2+2?")
}

func TestRenderRunResult_Failed(t *testing.T) {
	tr := testutil.NewTestRendererMarkdown()
	res := sampleResult(state.RunStatusFailed)
	res.Stages = res.Stages[:1]

	require.NoError(t, renderRunResult(tr.Renderer, res, false))

	assert.Contains(t, tr.Output(), "Run 01234567 failed (1 stages)")
}

func TestRenderRunResult_JSON(t *testing.T) {
	tr := testutil.NewTestRendererJSON()

	require.NoError(t, renderRunResult(tr.Renderer, sampleResult(state.RunStatusCompleted), false))

	var decoded struct {
		RunID  string `json:"run_id"`
		Status string `json:"status"`
		Stages []struct {
			Step   string         `json:"step"`
			Report map[string]any `json:"report"`
		} `json:"stages"`
	}
	require.NoError(t, json.Unmarshal(tr.Out.Bytes(), &decoded))
	assert.Equal(t, "0123456789abcdef", decoded.RunID)
	assert.Equal(t, "completed", decoded.Status)
	require.Len(t, decoded.Stages, 5)
	assert.Equal(t, "clean", decoded.Stages[1].Step)
	assert.Contains(t, decoded.Stages[1].Report, "sample")
	assert.EqualValues(t, 42, decoded.Stages[2].Report["seed"])
}

func TestOneLine(t *testing.T) {
	assert.Equal(t, "a b c", oneLine("a\n b\t\tc ", 10))
	assert.Equal(t, "abcdefg...", oneLine(strings.Repeat("abcdefghij", 3), 10))
	assert.Equal(t, "ééé", oneLine("ééé", 3))
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "01234567", shortID("0123456789"))
	assert.Equal(t, "abc", shortID("abc"))
}

func TestFormatDuration(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	run := &state.Run{StartedAt: start}
	assert.Equal(t, "-", formatDuration(run))

	done := start.Add(1500 * time.Millisecond)
	run.CompletedAt = &done
	assert.Equal(t, "1.5s", formatDuration(run))
}

func TestJoinAny(t *testing.T) {
	assert.Equal(t, "deepwriting,openmath", joinAny([]core.Family{core.FamilyWriting, core.FamilyMath}))
	assert.Equal(t, "", joinAny([]core.Step(nil)))
}
