package lakehouse

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomadiq-labs/parklake/internal/snapshot"
	"github.com/nomadiq-labs/parklake/pkg/adapters/duckdb"
	"github.com/nomadiq-labs/parklake/pkg/core"
)

func newEngine(t *testing.T) *duckdb.Adapter {
	t.Helper()
	ctx := context.Background()
	adp := duckdb.New(nil)
	require.NoError(t, adp.Connect(ctx, core.AdapterConfig{
		Path:   ":memory:",
		Params: map[string]any{"settings": map[string]any{"threads": "1"}},
	}))
	t.Cleanup(func() { _ = adp.Close() })
	require.NoError(t, CreateSchemas(ctx, adp, []string{SchemaRaw}))
	return adp
}

func writeSnapshot(t *testing.T, records []map[string]any) string {
	t.Helper()
	data, err := snapshot.Encode(records)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "parks_data_2024-06-01 00:00:00.parquet")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func tableRows(t *testing.T, db *duckdb.Adapter, query string) [][]any {
	t.Helper()
	rows, err := db.Query(context.Background(), query)
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	require.NoError(t, err)
	var out [][]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		require.NoError(t, rows.Scan(ptrs...))
		out = append(out, values)
	}
	require.NoError(t, rows.Err())
	return out
}

func TestLoader_LoadSourceTwiceGivesSameTable(t *testing.T) {
	ctx := context.Background()
	db := newEngine(t)
	uri := writeSnapshot(t, []map[string]any{
		{"parkCode": "yell", "fullName": "Yellowstone National Park", "latitude": 44.59, "addresses": map[string]any{"city": "Mammoth"}},
		{"parkCode": "grca", "fullName": "Grand Canyon National Park", "latitude": 36.17},
		{"parkCode": "acad", "fullName": "Acadia National Park", "latitude": 44.40, "visitors": 4069098},
	})

	const (
		countSQL   = `SELECT COUNT(*) FROM RAW.PARKS`
		contentSQL = `SELECT * EXCLUDE (_ingestion_timestamp) FROM RAW.PARKS ORDER BY _record_id`
	)

	loader := NewLoader(db, nil)
	table, err := loader.LoadSource(ctx, uri, SchemaRaw)
	require.NoError(t, err)
	assert.Equal(t, "RAW.PARKS", table)
	firstCount := tableRows(t, db, countSQL)
	firstContent := tableRows(t, db, contentSQL)

	_, err = loader.LoadSource(ctx, uri, SchemaRaw)
	require.NoError(t, err)
	secondCount := tableRows(t, db, countSQL)
	secondContent := tableRows(t, db, contentSQL)

	assert.Equal(t, [][]any{{int64(3)}}, firstCount)
	assert.Equal(t, firstCount, secondCount, "reload replaces instead of appending")
	assert.Equal(t, firstContent, secondContent)

	lineage := tableRows(t, db, `SELECT DISTINCT _source_file FROM RAW.PARKS`)
	assert.Equal(t, [][]any{{"parks_data_2024-06-01 00:00:00"}}, lineage)

	ids := tableRows(t, db, `SELECT _record_id FROM RAW.PARKS ORDER BY _record_id`)
	assert.Equal(t, [][]any{{int64(1)}, {int64(2)}, {int64(3)}}, ids)
}
