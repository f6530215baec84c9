package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nomadiq-labs/parklake/internal/config"
	"github.com/nomadiq-labs/parklake/internal/lakehouse"
	"github.com/nomadiq-labs/parklake/internal/nps"
	"github.com/nomadiq-labs/parklake/internal/objectstore"
	"github.com/nomadiq-labs/parklake/internal/pipeline"
	"github.com/nomadiq-labs/parklake/internal/state"
	"github.com/nomadiq-labs/parklake/internal/validation"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg    *config.Config
	Logger *slog.Logger
}

// NewCommandContext reads the config and logger stored by the root command.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	cfg := config.FromContext(cmd.Context())
	if cfg == nil {
		return nil, errors.New("configuration not loaded")
	}
	return &CommandContext{
		Cfg:    cfg,
		Logger: config.GetLogger(cmd.Context()),
	}, nil
}

// openStore opens the run-state database, creating its folder and schema.
func (c *CommandContext) openStore() (*state.SQLiteStore, error) {
	stateDir := filepath.Dir(c.Cfg.StatePath)
	if stateDir != "." && stateDir != "" {
		if err := os.MkdirAll(stateDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	store := state.NewSQLiteStore(c.Logger)
	if err := store.Open(c.Cfg.StatePath); err != nil {
		return nil, err
	}
	if err := store.InitSchema(); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

func (c *CommandContext) openCatalog(ctx context.Context, readOnly bool) (*lakehouse.Catalog, error) {
	return lakehouse.Open(ctx, c.Cfg.Lakehouse(readOnly), c.Logger)
}

func (c *CommandContext) openObjectStore(ctx context.Context, op string) (*objectstore.Store, error) {
	if err := c.Cfg.RequireStorage(op); err != nil {
		return nil, err
	}
	return objectstore.New(ctx, c.Cfg.Storage.ObjectStore(), c.Logger)
}

func (c *CommandContext) newIngester(ctx context.Context) (*nps.Ingester, error) {
	if err := c.Cfg.RequireIngest(); err != nil {
		return nil, err
	}
	store, err := c.openObjectStore(ctx, "ingest")
	if err != nil {
		return nil, err
	}
	client := nps.NewClient(c.Cfg.NPS.ClientConfig(), c.Logger)
	return nps.NewIngester(client, store, c.Cfg.NPS.Sources(), c.Logger), nil
}

func (c *CommandContext) validationOptions(layer string) validation.Options {
	if layer == "" {
		layer = c.Cfg.Validation.Layer
	}
	return validation.Options{
		DataDir:        c.Cfg.DataDir,
		Layer:          layer,
		ReportDir:      c.Cfg.Validation.ReportDir,
		FailThreshold:  c.Cfg.Validation.FailThreshold,
		RaiseOnFailure: c.Cfg.Validation.RaiseOnFailure,
		Logger:         c.Logger,
	}
}

// newOrchestrator wires a pipeline against the configured stack. The caller
// closes the returned state store.
func (c *CommandContext) newOrchestrator(ctx context.Context) (*pipeline.Orchestrator, *state.SQLiteStore, error) {
	ingester, err := c.newIngester(ctx)
	if err != nil {
		return nil, nil, err
	}
	lister, err := c.openObjectStore(ctx, "run")
	if err != nil {
		return nil, nil, err
	}
	store, err := c.openStore()
	if err != nil {
		return nil, nil, err
	}

	orch := pipeline.New(pipeline.Options{
		Store: store,
		OpenCatalog: func(ctx context.Context) (pipeline.Catalog, error) {
			cat, err := c.openCatalog(ctx, false)
			if err != nil {
				return nil, err
			}
			return cat, nil
		},
		Ingester:   ingester,
		Lister:     lister,
		DataDir:    c.Cfg.DataDir,
		SQLDir:     c.Cfg.SQLDir,
		Validation: c.validationOptions(""),
		Curated:    c.Cfg.Pipeline.Curated,
		Retries:    uint64(max(c.Cfg.Pipeline.Retries, 0)),
		RetryDelay: c.Cfg.Pipeline.RetryDelay,
		LeaseTTL:   c.Cfg.Pipeline.LeaseTTL,
		Logger:     c.Logger,
	})
	return orch, store, nil
}
