package adapter

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockBase(t *testing.T) (*BaseSQLAdapter, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &BaseSQLAdapter{DB: db}, mock
}

func TestBaseSQLAdapter_NotConnected(t *testing.T) {
	ctx := context.Background()
	base := &BaseSQLAdapter{}

	assert.NoError(t, base.Close(), "closing an unconnected adapter")
	assert.ErrorIs(t, base.Exec(ctx, "SELECT 1"), ErrNotConnected)

	_, err := base.Query(ctx, "SELECT 1")
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = base.TableMetadata(ctx, "RAW.PARKS", "main")
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestBaseSQLAdapter_Close(t *testing.T) {
	base, mock := newMockBase(t)
	mock.ExpectClose()

	require.NoError(t, base.Close())
	assert.Nil(t, base.DB, "handle is released")
	assert.NoError(t, base.Close(), "second close is a no-op")
}

func TestBaseSQLAdapter_Exec(t *testing.T) {
	tests := []struct {
		name    string
		mockErr error
		wantErr string
	}{
		{name: "success"},
		{name: "engine error", mockErr: errors.New("Catalog Error: schema RAW does not exist"), wantErr: "failed to execute SQL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base, mock := newMockBase(t)
			exp := mock.ExpectExec(regexp.QuoteMeta("CREATE SCHEMA IF NOT EXISTS RAW"))
			if tt.mockErr != nil {
				exp.WillReturnError(tt.mockErr)
			} else {
				exp.WillReturnResult(sqlmock.NewResult(0, 0))
			}

			err := base.Exec(context.Background(), "CREATE SCHEMA IF NOT EXISTS RAW")
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.ErrorIs(t, err, tt.mockErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestBaseSQLAdapter_QueryArgs(t *testing.T) {
	base, mock := newMockBase(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM CURATED.PARK_ALERTS WHERE park_name ILIKE ?")).
		WithArgs("%Zion%").
		WillReturnRows(sqlmock.NewRows([]string{"park_name"}).AddRow("Zion National Park"))

	rows, err := base.Query(context.Background(), "SELECT * FROM CURATED.PARK_ALERTS WHERE park_name ILIKE ?", "%Zion%")
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		names = append(names, name)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"Zion National Park"}, names)
}

func TestBaseSQLAdapter_QueryError(t *testing.T) {
	base, mock := newMockBase(t)
	mock.ExpectQuery("SELECT").WillReturnError(errors.New("boom"))

	_, err := base.Query(context.Background(), "SELECT 1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to execute query")
}

func TestBaseSQLAdapter_TableMetadata(t *testing.T) {
	columnsSQL := regexp.QuoteMeta("FROM information_schema.columns")

	t.Run("columns and row count", func(t *testing.T) {
		base, mock := newMockBase(t)
		mock.ExpectQuery(columnsSQL).
			WithArgs("RAW", "PARKS").
			WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable", "ordinal_position"}).
				AddRow("parkCode", "VARCHAR", "YES", 1).
				AddRow("_record_id", "BIGINT", "NO", 2))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM RAW.PARKS")).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(474))

		meta, err := base.TableMetadata(context.Background(), "RAW.PARKS", "main")
		require.NoError(t, err)
		assert.Equal(t, "RAW", meta.Schema)
		assert.Equal(t, "PARKS", meta.Name)
		assert.Equal(t, "RAW.PARKS", meta.Qualified())
		assert.Equal(t, int64(474), meta.RowCount)
		require.Len(t, meta.Columns, 2)
		assert.True(t, meta.Columns[0].Nullable)
		assert.False(t, meta.Columns[1].Nullable)
		assert.Equal(t, 2, meta.Columns[1].Position)
	})

	t.Run("count failure is zero", func(t *testing.T) {
		base, mock := newMockBase(t)
		mock.ExpectQuery(columnsSQL).
			WithArgs("main", "parks").
			WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable", "ordinal_position"}).
				AddRow("id", "INTEGER", "NO", 1))
		mock.ExpectQuery("SELECT COUNT").WillReturnError(errors.New("locked"))

		meta, err := base.TableMetadata(context.Background(), "parks", "main")
		require.NoError(t, err)
		assert.Equal(t, int64(0), meta.RowCount)
	})

	t.Run("missing table", func(t *testing.T) {
		base, mock := newMockBase(t)
		mock.ExpectQuery(columnsSQL).
			WithArgs("RAW", "GONE").
			WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable", "ordinal_position"}))

		_, err := base.TableMetadata(context.Background(), "RAW.GONE", "main")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "table RAW.GONE not found")
	})
}
