package commands

import (
	"github.com/spf13/cobra"
)

// RunsOptions holds options for the runs command.
type RunsOptions struct {
	Limit      int
	Validation bool
}

// NewRunsCommand creates the runs command.
func NewRunsCommand() *cobra.Command {
	opts := &RunsOptions{}

	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "Show pipeline run history",
		Long: `List recent pipeline runs, newest first. Pass a run ID to show its
stages. Use --validation to list recent validation summaries instead.`,
		Example: `  parklake runs
  parklake runs --limit 5
  parklake runs 0b7f3c52-8d0e-4a5e-9d39-3f1b8f1e2a10
  parklake runs --validation`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(cmd, args, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "Maximum number of entries")
	cmd.Flags().BoolVar(&opts.Validation, "validation", false, "List validation summaries")

	return cmd
}

func runRuns(cmd *cobra.Command, args []string, opts *RunsOptions) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	store, err := cc.openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	switch {
	case len(args) == 1:
		run, err := store.GetRun(ctx, args[0])
		if err != nil {
			return err
		}
		stages, err := store.GetStageRunsForRun(ctx, run.ID)
		if err != nil {
			return err
		}
		renderRun(cmd.OutOrStdout(), run, stages)
	case opts.Validation:
		summaries, err := store.ListValidationSummaries(ctx, opts.Limit)
		if err != nil {
			return err
		}
		renderSummaries(cmd.OutOrStdout(), summaries)
	default:
		runs, err := store.ListRuns(ctx, opts.Limit)
		if err != nil {
			return err
		}
		renderRuns(cmd.OutOrStdout(), runs)
	}
	return nil
}
