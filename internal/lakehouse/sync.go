package lakehouse

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/nomadiq-labs/parklake/internal/prune"
	"github.com/nomadiq-labs/parklake/internal/snapshot"
)

// Lister enumerates snapshot keys and resolves them to engine-readable URIs.
type Lister interface {
	List(ctx context.Context, suffix string) ([]string, error)
	URI(key string) string
}

// Syncer loads the newest snapshot of every source into the raw layer.
type Syncer struct {
	loader  *Loader
	lister  Lister
	dataDir string
	logger  *slog.Logger
}

// NewSyncer creates a Syncer. dataDir is the catalog data path whose RAW
// folder is pruned after a successful sync; empty disables pruning.
func NewSyncer(loader *Loader, lister Lister, dataDir string, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Syncer{loader: loader, lister: lister, dataDir: dataDir, logger: logger}
}

// SyncRaw resolves the latest snapshot per source, loads each into the RAW
// schema and prunes superseded raw data files. The first load failure aborts
// the sync before anything is pruned.
func (s *Syncer) SyncRaw(ctx context.Context) ([]string, error) {
	keys, err := s.lister.List(ctx, snapshot.Extension)
	if err != nil {
		return nil, &LoadError{URI: "bucket listing", Err: err}
	}

	latest, skipped := snapshot.SelectLatest(keys)
	if len(skipped) > 0 {
		s.logger.Warn("ignoring objects that are not snapshots", "keys", skipped)
	}
	s.logger.Info("resolved latest snapshots", "objects", len(keys), "sources", len(latest))

	tables := make([]string, 0, len(latest))
	for _, ref := range latest {
		table, err := s.loader.LoadSource(ctx, s.lister.URI(ref.Key), SchemaRaw)
		if err != nil {
			return tables, fmt.Errorf("raw sync aborted: %w", err)
		}
		tables = append(tables, table)
	}

	if s.dataDir != "" {
		if _, err := prune.Snapshots(filepath.Join(s.dataDir, SchemaRaw), s.logger); err != nil {
			s.logger.Warn("raw prune failed", "error", err)
		}
	}
	return tables, nil
}
