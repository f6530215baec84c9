// Package adapter provides the catalog Adapter contract, a name-keyed
// registry of engine factories and the database/sql plumbing that concrete
// engines embed. Engines live under pkg/adapters.
package adapter

import (
	"github.com/nomadiq-labs/parklake/pkg/core"
)

type (
	// Config selects and configures an engine session.
	Config = core.AdapterConfig
	// Metadata describes a catalog table.
	Metadata = core.TableMetadata
	// Rows is a query result set.
	Rows = core.Rows
	// Adapter is a SQL engine session hosting the catalog.
	Adapter = core.Adapter
)
