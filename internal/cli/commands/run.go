package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sftprep/pkg/core"
)

// RunOptions holds options for the run command.
type RunOptions struct {
	Family string
	Stages []string
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline end to end",
		Long: `Execute pipeline steps for the selected families.

Steps always run in pipeline order (fetch, clean, split, format, inspect)
regardless of the order given. Each family runs all of its steps before the
next family starts. The first failing step stops the run.`,
		Example: `  # Run everything
  sftprep run

  # Re-run cleaning onwards for one family
  sftprep run -f deepwriting --stages clean,split,format

  # Machine-readable report
  sftprep run -o json`,
		Aliases: []string{"all"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRun(cmd, opts)
		},
	}

	familyFlag(cmd, &opts.Family)
	cmd.Flags().StringSliceVar(&opts.Stages, "stages", nil, "Comma-separated steps to run (default all)")
	_ = cmd.RegisterFlagCompletionFunc("stages", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		var names []string
		for _, s := range core.Steps() {
			names = append(names, string(s))
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	})
	cleanFlags(cmd)
	splitFlags(cmd)
	inspectFlags(cmd)

	return cmd
}

func runRun(cmd *cobra.Command, opts *RunOptions) error {
	cfg := getConfig()
	names := cfg.Run.Stages
	if cmd.Flags().Changed("stages") {
		names = opts.Stages
	}
	steps, err := core.ParseSteps(names)
	if err != nil {
		return err
	}
	return executeSteps(cmd, "run", opts.Family, steps)
}
