package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/nomadiq-labs/parklake/internal/api"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the curated layer over HTTP",
		Long: `Attach the catalog read-only and serve the curated tables as JSON.

Endpoints:
  /nps_distances            /nps_park_usage_annual
  /nps_parks_to_landmarks   /nps_landmarks
  /nps_to_state_distance    /park_alert_categories
  /park_alerts              /park_usage_annual
  /healthz`,
		Example: `  parklake serve --addr :8000`,
		Args:    cobra.NoArgs,
		RunE:    runServe,
	}

	cmd.Flags().String("addr", "", "Listen address")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) (err error) {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	cat, err := cc.openCatalog(ctx, true)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, cat.Close()) }()

	srv := api.NewServer(api.Config{
		Addr:    cc.Cfg.API.Addr,
		Catalog: cat,
		Logger:  cc.Logger,
	})
	return srv.Serve(ctx)
}
