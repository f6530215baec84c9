package core

import (
	"context"
	"database/sql"
)

// Adapter is a SQL engine session that hosts the lakehouse catalog.
// Implementations are registered by name and selected by catalog.type.
type Adapter interface {
	Connect(ctx context.Context, cfg AdapterConfig) error
	Close() error

	// Exec runs a statement that returns no rows (ATTACH, CREATE, COPY).
	Exec(ctx context.Context, sql string) error

	Query(ctx context.Context, sql string, args ...any) (*Rows, error)

	// GetTableMetadata describes a table. Unqualified names resolve against
	// the engine's default schema.
	GetTableMetadata(ctx context.Context, table string) (*TableMetadata, error)
}

// AdapterConfig selects and configures an engine session.
type AdapterConfig struct {
	// Type is the registered adapter name, e.g. "duckdb".
	Type string
	// Path is the engine database file; empty means in-memory.
	Path string
	// Params carries engine-specific settings such as extensions and secrets.
	Params map[string]any
}

// Column is one column of a catalog table.
type Column struct {
	Name     string
	Type     string
	Nullable bool
	Position int
}

// TableMetadata is the shape and size of a catalog table.
type TableMetadata struct {
	Schema   string
	Name     string
	Columns  []Column
	RowCount int64
}

// Qualified returns SCHEMA.NAME.
func (m *TableMetadata) Qualified() string {
	return m.Schema + "." + m.Name
}

// Rows is a result set returned by Adapter.Query.
type Rows struct {
	*sql.Rows
}
