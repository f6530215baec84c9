package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nomadiq-labs/parklake/internal/lakehouse"
)

// NewSyncCommand creates the sync command.
func NewSyncCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Load the newest snapshot of each source into RAW",
		Long: `List the bucket, pick the newest snapshot per source and replace the
matching RAW table with its contents. Older local RAW files are pruned
afterwards.`,
		Args: cobra.NoArgs,
		RunE: runSync,
	}
}

func runSync(cmd *cobra.Command, _ []string) (err error) {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	bucket, err := cc.openObjectStore(ctx, "sync")
	if err != nil {
		return err
	}
	cat, err := cc.openCatalog(ctx, false)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, cat.Close()) }()

	loader := lakehouse.NewLoader(cat, cc.Logger)
	syncer := lakehouse.NewSyncer(loader, bucket, cc.Cfg.DataDir, cc.Logger)

	tables, err := syncer.SyncRaw(ctx)
	for _, table := range tables {
		meta, merr := cat.GetTableMetadata(ctx, table)
		if merr != nil {
			cc.Logger.Debug("table metadata unavailable", "table", table, "error", merr)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "loaded %s\n", table)
			continue
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "loaded %s (%d rows, %d columns)\n", meta.Qualified(), meta.RowCount, len(meta.Columns))
	}
	return err
}
