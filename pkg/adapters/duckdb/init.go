// Package duckdb is the DuckDB engine behind the DuckLake catalog. Importing
// it registers the "duckdb" catalog type.
package duckdb

import (
	"log/slog"

	"github.com/nomadiq-labs/parklake/pkg/adapter"
)

func init() {
	adapter.Register("duckdb", func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}
