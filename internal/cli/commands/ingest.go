package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewIngestCommand creates the ingest command.
func NewIngestCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Fetch parks and alerts and upload timestamped snapshots",
		Long: `Page through each configured NPS endpoint, encode the records as a
parquet snapshot and upload it to the bucket under a timestamped name.

Requires NPS_API_KEY, MINIO_EXTERNAL_URL and MINIO_BUCKET_NAME.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}

			ingester, err := cc.newIngester(cmd.Context())
			if err != nil {
				return err
			}
			keys, err := ingester.IngestAll(cmd.Context())
			for _, key := range keys {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "uploaded %s\n", key)
			}
			return err
		},
	}
}
