package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sftprep/internal/cli/output"
	"github.com/leapstack-labs/sftprep/pkg/core"
)

// familyFlag registers --family/-f on cmd.
func familyFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "family", "f", "all", "Dataset family (deepwriting|openmath|all)")
	_ = cmd.RegisterFlagCompletionFunc("family", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		names := []string{"all"}
		for _, f := range core.Families() {
			names = append(names, string(f))
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	})
}

func cleanFlags(cmd *cobra.Command) {
	cmd.Flags().String("language", "", "ISO 639-1 code kept by the language filter (default en)")
	cmd.Flags().Int("workers", 0, "Concurrent language detections (default 4)")
	cmd.Flags().Int("min-detect-length", 0, "Minimum runes for language detection (default 3)")
	cmd.Flags().String("unicode-form", "", "Unicode normal form applied after trimming (NFC|NFKC)")
}

func splitFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("train-ratio", 0, "Fraction of records assigned to train (default 0.1)")
	cmd.Flags().Int64("seed", 0, "Shuffle seed (default 42)")
}

func inspectFlags(cmd *cobra.Command) {
	cmd.Flags().String("tokenizer", "", "Tokenizer vocabulary, path, or 'whitespace' (default gpt2)")
	cmd.Flags().Bool("add-special-tokens", true, "Include special tokens in counts")
}

func newStepCommand(step core.Step, short, long, example string) *cobra.Command {
	var family string
	cmd := &cobra.Command{
		Use:     string(step),
		Short:   short,
		Long:    long,
		Example: example,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return executeSteps(cmd, string(step), family, []core.Step{step})
		},
	}
	familyFlag(cmd, &family)
	return cmd
}

// NewFetchCommand creates the fetch command.
func NewFetchCommand() *cobra.Command {
	return newStepCommand(core.StepFetch,
		"Download raw datasets",
		`Read every configured subset of each family and save the concatenated
raw corpus, with all source columns, to <data_dir>/<family>_raw.

Subsets are read with DuckDB: parquet, JSON lines and CSV files, local or
remote (hf://, https://, s3://).`,
		`  # Fetch both families
  sftprep fetch

  # Fetch only OpenMath
  sftprep fetch -f openmath`)
}

// NewCleanCommand creates the clean command.
func NewCleanCommand() *cobra.Command {
	cmd := newStepCommand(core.StepClean,
		"Clean raw datasets",
		`Load the raw corpus and apply the family's cleaning pipeline:

  deepwriting: language filter, dedup on prompt, drop blanks, trim
  openmath:    dedup on question, drop blanks, trim

The result keeps only the schema columns and is saved to <family>_cleaned.`,
		`  sftprep clean
  sftprep clean -f deepwriting --language en --workers 8`)
	cleanFlags(cmd)
	return cmd
}

// NewSplitCommand creates the split command.
func NewSplitCommand() *cobra.Command {
	cmd := newStepCommand(core.StepSplit,
		"Split cleaned datasets into train and validation",
		`Shuffle the cleaned corpus with a seeded permutation and save the first
round(train_ratio * n) records as train and the rest as validation.`,
		`  sftprep split --train-ratio 0.9 --seed 42`)
	splitFlags(cmd)
	return cmd
}

// NewFormatCommand creates the format command.
func NewFormatCommand() *cobra.Command {
	return newStepCommand(core.StepFormat,
		"Render train and validation records as SFT text",
		`Render each record as a prompt followed by <reasoning> and <answer> blocks.
Token counting, truncation and kept source columns follow the family's
format options. A record missing a required field fails the command.`,
		`  sftprep format -f openmath`)
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand() *cobra.Command {
	cmd := newStepCommand(core.StepInspect,
		"Report token length statistics of formatted datasets",
		`Tokenize the text column of the formatted train and validation sets and
report count, min, mean, median, p95 and max token lengths.`,
		`  sftprep inspect
  sftprep inspect --tokenizer whitespace`)
	inspectFlags(cmd)
	return cmd
}

// executeSteps runs steps and renders the result, including partial results
// of a failed run.
func executeSteps(cmd *cobra.Command, command, familySelector string, steps []core.Step) error {
	families, err := core.ResolveFamilies(familySelector)
	if err != nil {
		return err
	}

	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	result, runErr := cmdCtx.Engine.Run(cmd.Context(), command, families, steps)
	if result != nil {
		if err := renderRunResult(cmdCtx.Renderer, result, cmdCtx.Cfg.Verbose); err != nil {
			return err
		}
	}
	if runErr != nil && cmdCtx.Renderer.EffectiveMode() != output.ModeJSON {
		cmdCtx.Renderer.Error(runErr.Error())
	}
	return runErr
}
