package adapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nomadiq-labs/parklake/pkg/core"
)

// ErrNotConnected is returned by BaseSQLAdapter methods before Connect.
var ErrNotConnected = errors.New("catalog connection not established")

// BaseSQLAdapter carries the database/sql handle shared by concrete adapters.
// Embed it to get Close, Exec, Query and TableMetadata.
type BaseSQLAdapter struct {
	DB     *sql.DB
	Cfg    core.AdapterConfig
	Logger *slog.Logger
}

// Close closes the connection. Closing an unconnected adapter is a no-op.
func (b *BaseSQLAdapter) Close() error {
	if b.DB == nil {
		return nil
	}
	if b.Logger != nil {
		b.Logger.Debug("closing catalog connection")
	}
	err := b.DB.Close()
	b.DB = nil
	return err
}

// Exec runs a statement that returns no rows.
func (b *BaseSQLAdapter) Exec(ctx context.Context, stmt string) error {
	if b.DB == nil {
		return ErrNotConnected
	}
	if _, err := b.DB.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}
	return nil
}

// Query runs a statement with positional arguments. The caller closes the rows
// and checks rows.Err after iterating.
func (b *BaseSQLAdapter) Query(ctx context.Context, stmt string, args ...any) (*core.Rows, error) {
	if b.DB == nil {
		return nil, ErrNotConnected
	}
	//nolint:rowserrcheck // checked by the caller
	rows, err := b.DB.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	return &core.Rows{Rows: rows}, nil
}

// SplitQualified splits "SCHEMA.TABLE" into its parts. An unqualified name
// falls back to defaultSchema.
func SplitQualified(table, defaultSchema string) (schema, name string) {
	if s, n, ok := strings.Cut(table, "."); ok && !strings.Contains(n, ".") {
		return s, n
	}
	return defaultSchema, table
}

// TableMetadata describes a table from information_schema.columns plus a row
// count. A row count that cannot be read is reported as zero.
func (b *BaseSQLAdapter) TableMetadata(ctx context.Context, table, defaultSchema string) (*core.TableMetadata, error) {
	if b.DB == nil {
		return nil, ErrNotConnected
	}

	schema, name := SplitQualified(table, defaultSchema)
	rows, err := b.DB.QueryContext(ctx, `
		SELECT column_name, data_type, is_nullable, ordinal_position
		FROM information_schema.columns
		WHERE table_schema = ? AND table_name = ?
		ORDER BY ordinal_position`, schema, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	meta := &core.TableMetadata{Schema: schema, Name: name}
	for rows.Next() {
		var (
			col      core.Column
			nullable string
		)
		if err := rows.Scan(&col.Name, &col.Type, &nullable, &col.Position); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		col.Nullable = nullable == "YES"
		meta.Columns = append(meta.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}
	if len(meta.Columns) == 0 {
		return nil, fmt.Errorf("table %s.%s not found", schema, name)
	}

	countSQL := fmt.Sprintf("SELECT COUNT(*) FROM %s.%s", schema, name) //nolint:gosec // names come from information_schema
	if err := b.DB.QueryRowContext(ctx, countSQL).Scan(&meta.RowCount); err != nil {
		if b.Logger != nil {
			b.Logger.Debug("row count unavailable", "table", table, "error", err)
		}
		meta.RowCount = 0
	}
	return meta, nil
}
