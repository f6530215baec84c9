package nps

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nomadiq-labs/parklake/internal/snapshot"
)

// Source is one collection to ingest and the object name it lands under.
type Source struct {
	Name       string
	Endpoint   string
	ObjectName string
}

// Fetcher retrieves all records of a collection.
type Fetcher interface {
	FetchCollection(ctx context.Context, endpoint string) ([]map[string]any, error)
}

// Ingester fetches each source, encodes it and uploads the snapshot.
type Ingester struct {
	fetcher Fetcher
	store   snapshot.Putter
	sources []Source
	logger  *slog.Logger
	now     func() time.Time
}

// NewIngester creates an Ingester.
func NewIngester(fetcher Fetcher, store snapshot.Putter, sources []Source, logger *slog.Logger) *Ingester {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Ingester{
		fetcher: fetcher,
		store:   store,
		sources: sources,
		logger:  logger,
		now:     time.Now,
	}
}

// IngestAll ingests every source in order and returns the uploaded keys.
// The first failing source aborts the remainder.
func (i *Ingester) IngestAll(ctx context.Context) ([]string, error) {
	keys := make([]string, 0, len(i.sources))
	for _, src := range i.sources {
		key, err := i.Ingest(ctx, src)
		if err != nil {
			return keys, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// Ingest fetches, encodes and uploads one source.
func (i *Ingester) Ingest(ctx context.Context, src Source) (string, error) {
	if src.Endpoint == "" {
		return "", fmt.Errorf("source %s: no endpoint configured", src.Name)
	}
	start := time.Now()

	records, err := i.fetcher.FetchCollection(ctx, src.Endpoint)
	if err != nil {
		i.logger.Error("fetch failed", "source", src.Name, "error", err)
		return "", fmt.Errorf("source %s: %w", src.Name, err)
	}

	data, err := snapshot.Encode(records)
	if err != nil {
		i.logger.Error("encode failed", "source", src.Name, "error", err)
		return "", fmt.Errorf("source %s: %w", src.Name, err)
	}

	key, err := snapshot.Upload(ctx, i.store, data, src.ObjectName, i.now())
	if err != nil {
		i.logger.Error("upload failed", "source", src.Name, "error", err)
		return "", fmt.Errorf("source %s: %w", src.Name, err)
	}

	i.logger.Info("ingested source",
		"source", src.Name,
		"records", len(records),
		"key", key,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return key, nil
}
