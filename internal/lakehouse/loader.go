package lakehouse

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nomadiq-labs/parklake/internal/snapshot"
)

// LoadError reports a snapshot that could not be materialized.
type LoadError struct {
	URI   string
	Table string
	Err   error
}

func (e *LoadError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("load %s: %v", e.URI, e.Err)
	}
	return fmt.Sprintf("load %s into %s: %v", e.URI, e.Table, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Loader replaces raw tables with the contents of a snapshot.
type Loader struct {
	db     Execer
	logger *slog.Logger
}

// NewLoader creates a Loader over db.
func NewLoader(db Execer, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loader{db: db, logger: logger}
}

// LoadSource replaces <schema>.<TABLE> with the snapshot at uri plus the
// lineage columns, in a single statement. It returns the qualified table.
func (l *Loader) LoadSource(ctx context.Context, uri, schema string) (string, error) {
	ref, err := snapshot.ParseRef(uri)
	if err != nil {
		return "", &LoadError{URI: uri, Err: err}
	}
	table := ref.Table()

	stmt, err := RawLoadSQL(schema, table, ref.Name(), uri)
	if err != nil {
		return "", &LoadError{URI: uri, Table: table, Err: err}
	}

	l.logger.Info("loading snapshot", "uri", uri, "table", schema+"."+table)
	if err := l.db.Exec(ctx, stmt); err != nil {
		l.logger.Error("load failed", "uri", uri, "table", schema+"."+table, "error", err)
		return "", &LoadError{URI: uri, Table: schema + "." + table, Err: err}
	}
	return schema + "." + table, nil
}

// RawLoadSQL builds the create-or-replace statement for one snapshot.
func RawLoadSQL(schema, table, sourceFile, uri string) (string, error) {
	if err := ValidateIdent(schema); err != nil {
		return "", err
	}
	if err := ValidateIdent(table); err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "CREATE OR REPLACE TABLE %s.%s AS\n", schema, table)
	b.WriteString("SELECT *,\n")
	fmt.Fprintf(&b, "    %s AS _source_file,\n", Quote(sourceFile))
	b.WriteString("    CURRENT_TIMESTAMP AS _ingestion_timestamp,\n")
	b.WriteString("    ROW_NUMBER() OVER () AS _record_id\n")
	fmt.Fprintf(&b, "FROM read_parquet(%s)", Quote(uri))
	return b.String(), nil
}
