package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/nomadiq-labs/parklake/internal/validation"
)

// ValidateOptions holds options for the validate command.
type ValidateOptions struct {
	All bool
}

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	opts := &ValidateOptions{}

	cmd := &cobra.Command{
		Use:   "validate [layer]",
		Short: "Run the data-quality rules against a layer",
		Long: `Check the newest local file of every tracked table in a layer
(default RAW) and write a timestamped parquet report.

Failures are reported but do not fail the command unless --raise is set
and the number of failures exceeds --threshold.`,
		Example: `  # Validate the RAW layer
  parklake validate

  # Gate on any failure in STAGED, listing every rule
  parklake validate staged --raise --threshold 0 --all`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args, opts)
		},
	}

	cmd.Flags().Int("threshold", 0, "Failures tolerated before --raise fails the command")
	cmd.Flags().Bool("raise", false, "Fail when failures exceed the threshold")
	cmd.Flags().String("report-dir", "", "Folder for validation reports")
	cmd.Flags().BoolVar(&opts.All, "all", false, "List passing rules as well as failures")

	return cmd
}

func runValidate(cmd *cobra.Command, args []string, opts *ValidateOptions) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	var layer string
	if len(args) == 1 {
		layer = strings.ToUpper(args[0])
	}

	summary, gateErr := validation.RunNonBlocking(cmd.Context(), cc.validationOptions(layer))
	if summary == nil {
		return gateErr
	}

	results, err := validation.ReadReport(summary.ReportPath)
	if err != nil {
		cc.Logger.Warn("could not read validation report", "path", summary.ReportPath, "error", err)
	}
	renderValidation(cmd.OutOrStdout(), summary, results, opts.All)

	return gateErr
}
