package snapshot

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlatten(t *testing.T) {
	in := map[string]any{
		"id": "1",
		"addresses": map[string]any{
			"physical": map[string]any{"city": "Mammoth"},
			"type":     "Physical",
		},
		"empty":  map[string]any{},
		"topics": []any{"Geysers", "Wildlife"},
	}

	got, err := Flatten(in)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"id":                      "1",
		"addresses.physical.city": "Mammoth",
		"addresses.type":          "Physical",
		"empty":                   map[string]any{},
		"topics":                  []any{"Geysers", "Wildlife"},
	}, got)
}

func TestFlatten_Collision(t *testing.T) {
	in := map[string]any{
		"a.b": "flat",
		"a":   map[string]any{"b": "nested"},
	}

	// Map order varies, so run enough times to hit both visiting orders.
	for i := 0; i < 20; i++ {
		_, err := Flatten(in)
		require.ErrorIs(t, err, ErrColumnCollision)
		assert.Contains(t, err.Error(), "a.b")
	}

	_, err := Encode([]map[string]any{{"id": 1}, in})
	require.ErrorIs(t, err, ErrColumnCollision)
	assert.Contains(t, err.Error(), "record 1")
}

func TestEncode_EmptyInput(t *testing.T) {
	tests := []struct {
		name    string
		records []map[string]any
	}{
		{"nil records", nil},
		{"no records", []map[string]any{}},
		{"records without columns", []map[string]any{{}, {}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Encode(tt.records)
			assert.ErrorIs(t, err, ErrEmptyInput)
		})
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	records := []map[string]any{
		{"id": "A1", "parkCode": "yell", "latitude": "44.59", "visits": 10, "open": true},
		{"id": "A2", "parkCode": "grca", "latitude": "36.17", "visits": 20, "open": false},
		{"id": "A3", "parkCode": "acad", "latitude": "44.40", "visits": 30, "open": true},
	}

	data, err := Encode(records)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), "PAR1"), "parquet magic header")

	frame, err := Decode(context.Background(), data)
	require.NoError(t, err)

	assert.Equal(t, len(records), frame.NumRows())
	assert.ElementsMatch(t, []string{"id", "parkCode", "latitude", "visits", "open"}, frame.Columns())
	assert.Equal(t, []any{"A1", "A2", "A3"}, frame.Column("id"))
	assert.Equal(t, []any{int64(10), int64(20), int64(30)}, frame.Column("visits"))
	assert.Equal(t, []any{true, false, true}, frame.Column("open"))
}

func TestEncode_NestedAndSparse(t *testing.T) {
	var records []map[string]any
	body := `[
		{"id": "1", "operatingHours": {"name": "Main", "standardHours": {"monday": "All Day"}}, "relevanceScore": 1},
		{"id": "2", "relevanceScore": 2.5, "images": [{"url": "x"}]},
		{"id": "3", "category": null}
	]`
	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	require.NoError(t, dec.Decode(&records))

	data, err := Encode(records)
	require.NoError(t, err)

	frame, err := Decode(context.Background(), data)
	require.NoError(t, err)

	assert.Equal(t, 3, frame.NumRows())
	assert.Equal(t, []any{"All Day", nil, nil}, frame.Column("operatingHours.standardHours.monday"))
	assert.Equal(t, []any{float64(1), 2.5, nil}, frame.Column("relevanceScore"))
	assert.Equal(t, []any{nil, `[{"url":"x"}]`, nil}, frame.Column("images"))
	assert.Equal(t, []any{nil, nil, nil}, frame.Column("category"))
}

func TestEncode_MixedTypesFallBackToString(t *testing.T) {
	data, err := Encode([]map[string]any{
		{"total": "75"},
		{"total": 75},
		{"total": true},
	})
	require.NoError(t, err)

	frame, err := Decode(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, []any{"75", "75", "true"}, frame.Column("total"))
}

func TestFrame_AddColumn(t *testing.T) {
	f := NewFrame()
	require.NoError(t, f.AddColumn("id", []any{1, 2}))

	assert.Error(t, f.AddColumn("id", []any{3, 4}), "duplicate column")
	assert.Error(t, f.AddColumn("name", []any{"a"}), "length mismatch")
	assert.Error(t, f.SetColumn("missing", []any{1, 2}))

	require.NoError(t, f.SetColumn("id", []any{"1", "2"}))
	assert.Equal(t, []any{"1", "2"}, f.Column("id"))
	assert.True(t, f.Has("id"))
	assert.False(t, f.Has("name"))
	assert.Nil(t, f.Column("name"))
	assert.Equal(t, 2, f.NumRows())
}

func TestFrame_EmptyHasNoRows(t *testing.T) {
	assert.Equal(t, 0, NewFrame().NumRows())
}
