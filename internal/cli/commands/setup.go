package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nomadiq-labs/parklake/internal/lakehouse"
)

// NewSetupCommand creates the setup command.
func NewSetupCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Create the catalog, layer schemas and run-state database",
		Long: `Load the DuckLake extensions, register object storage credentials,
attach the catalog and create the RAW, STAGED and CURATED schemas.
The run-state database is created and migrated as well.

Safe to run repeatedly.`,
		Example: `  # Initialise the project in the current directory
  parklake setup`,
		Args: cobra.NoArgs,
		RunE: runSetup,
	}
}

func runSetup(cmd *cobra.Command, _ []string) (err error) {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	store, err := cc.openStore()
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, store.Close()) }()

	cat, err := cc.openCatalog(ctx, false)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, cat.Close()) }()

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Catalog:  %s\n", cc.Cfg.Catalog.Path)
	_, _ = fmt.Fprintf(out, "Data:     %s\n", cc.Cfg.DataDir)
	_, _ = fmt.Fprintf(out, "Schemas:  %s\n", strings.Join(lakehouse.Schemas, ", "))
	_, _ = fmt.Fprintf(out, "State:    %s\n", cc.Cfg.StatePath)
	return nil
}
