package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nomadiq-labs/parklake/internal/pipeline"
)

// NewScheduleCommand creates the schedule command.
func NewScheduleCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the pipeline on a cron schedule",
		Long: `Block and trigger a pipeline run each time the cron expression fires
in the configured timezone. A tick that fires while a run is still going
is skipped. Stop with Ctrl-C.`,
		Example: `  # Daily at 02:00 Chicago time (the default)
  parklake schedule

  # Every six hours, UTC
  parklake schedule --cron "0 */6 * * *" --timezone UTC`,
		Args: cobra.NoArgs,
		RunE: runSchedule,
	}

	cmd.Flags().String("cron", "", "Five-field cron expression")
	cmd.Flags().String("timezone", "", "IANA timezone the expression is evaluated in")
	cmd.Flags().Bool("curated", false, "Run the curated transform stage")

	return cmd
}

func runSchedule(cmd *cobra.Command, _ []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	loc, err := cc.Cfg.Pipeline.Location()
	if err != nil {
		return err
	}

	orch, store, err := cc.newOrchestrator(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	sched, err := pipeline.NewScheduler(cc.Cfg.Pipeline.Cron, loc, orch, cc.Logger)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Schedule %q (%s), next run at %s\n",
		cc.Cfg.Pipeline.Cron, loc, sched.Next().Format(time.RFC3339))
	return sched.Run(ctx)
}
