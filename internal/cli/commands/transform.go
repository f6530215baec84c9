package commands

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nomadiq-labs/parklake/internal/prune"
	"github.com/nomadiq-labs/parklake/internal/transform"
)

// NewTransformCommand creates the transform command.
func NewTransformCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "transform <layer>",
		Short: "Run the SQL scripts of a layer",
		Long: `Execute every script under <sql-dir>/<layer>/ against the catalog in
dependency order, then prune the layer's local data folder.

Scripts declare dependencies in a frontmatter block:

  /*---
  name: park_alerts
  depends_on: [parks]
  ---*/`,
		Example: `  parklake transform staged
  parklake transform curated`,
		ValidArgs: []string{"staged", "curated"},
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE:      runTransform,
	}
}

func runTransform(cmd *cobra.Command, args []string) (err error) {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	folder := strings.ToLower(args[0])
	schema := strings.ToUpper(args[0])

	cat, err := cc.openCatalog(ctx, false)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, cat.Close()) }()

	runner := transform.NewRunner(cat, cc.Logger)
	ran, err := runner.Run(ctx, filepath.Join(cc.Cfg.SQLDir, folder), schema)
	for _, name := range ran {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "ran %s.%s\n", schema, name)
	}
	if err != nil {
		return err
	}

	if _, perr := prune.Snapshots(filepath.Join(cc.Cfg.DataDir, schema), cc.Logger); perr != nil {
		cc.Logger.Warn("prune failed", "layer", schema, "error", perr)
	}
	return nil
}
