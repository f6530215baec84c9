package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nomadiq-labs/parklake/internal/pipeline"
)

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full pipeline once",
		Long: `Ingest, load RAW, validate and build the staged layer (and the curated
layer when pipeline.curated is set). A failed attempt is retried as a
whole up to --retries times with exponential backoff. Every attempt is
recorded in the run history.`,
		Example: `  # Run once with the configured settings
  parklake run

  # Include the curated layer and fail on any validation failure
  parklake run --curated --raise --threshold 0`,
		Args: cobra.NoArgs,
		RunE: runRun,
	}

	cmd.Flags().Int("retries", 0, "Attempts after the first failure")
	cmd.Flags().Bool("curated", false, "Run the curated transform stage")
	cmd.Flags().Int("threshold", 0, "Validation failures tolerated before --raise aborts the run")
	cmd.Flags().Bool("raise", false, "Abort the run when validation failures exceed the threshold")

	return cmd
}

func runRun(cmd *cobra.Command, _ []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	orch, store, err := cc.newOrchestrator(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	run, runErr := orch.Run(ctx, "manual")
	if errors.Is(runErr, pipeline.ErrRunInProgress) {
		return runErr
	}
	if run != nil {
		stages, err := store.GetStageRunsForRun(ctx, run.ID)
		if err != nil {
			return errors.Join(runErr, err)
		}
		renderRun(cmd.OutOrStdout(), run, stages)
	}
	if runErr != nil {
		return fmt.Errorf("run failed: %w", runErr)
	}
	return nil
}
