package nps

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nomadiq-labs/parklake/internal/snapshot"
	"github.com/nomadiq-labs/parklake/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	collections map[string][]map[string]any
	errs        map[string]error
	calls       []string
}

func (f *fakeFetcher) FetchCollection(_ context.Context, endpoint string) ([]map[string]any, error) {
	f.calls = append(f.calls, endpoint)
	if err := f.errs[endpoint]; err != nil {
		return nil, err
	}
	return f.collections[endpoint], nil
}

type memoryStore struct {
	objects map[string][]byte
}

func (m *memoryStore) Put(_ context.Context, key string, body []byte) error {
	if m.objects == nil {
		m.objects = make(map[string][]byte)
	}
	m.objects[key] = body
	return nil
}

var testSources = []Source{
	{Name: "parks", Endpoint: "https://nps.test/parks", ObjectName: "parks_data.parquet"},
	{Name: "alerts", Endpoint: "https://nps.test/alerts", ObjectName: "alerts_data.parquet"},
}

func TestIngester_IngestAll(t *testing.T) {
	fetcher := &fakeFetcher{collections: map[string][]map[string]any{
		"https://nps.test/parks":  {{"id": "1", "parkCode": "yell"}, {"id": "2", "parkCode": "grca"}},
		"https://nps.test/alerts": {{"id": "a", "category": "Danger"}},
	}}
	store := &memoryStore{}

	ing := NewIngester(fetcher, store, testSources, testutil.NewTestLogger(t))
	ing.now = func() time.Time { return time.Date(2024, 6, 1, 2, 0, 0, 0, time.UTC) }

	keys, err := ing.IngestAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"parks_data_2024-06-01 02:00:00.parquet",
		"alerts_data_2024-06-01 02:00:00.parquet",
	}, keys)

	frame, err := snapshot.Decode(context.Background(), store.objects[keys[0]])
	require.NoError(t, err)
	assert.Equal(t, 2, frame.NumRows())
	assert.Equal(t, []any{"yell", "grca"}, frame.Column("parkCode"))
}

func TestIngester_AbortsOnFirstFailure(t *testing.T) {
	boom := &UpstreamError{Endpoint: "https://nps.test/parks", StatusCode: 500, Err: errors.New("boom")}
	fetcher := &fakeFetcher{errs: map[string]error{"https://nps.test/parks": boom}}
	store := &memoryStore{}

	keys, err := NewIngester(fetcher, store, testSources, nil).IngestAll(context.Background())
	require.Error(t, err)

	var upstream *UpstreamError
	assert.ErrorAs(t, err, &upstream)
	assert.Empty(t, keys)
	assert.Equal(t, []string{"https://nps.test/parks"}, fetcher.calls, "alerts must not be fetched")
	assert.Empty(t, store.objects)
}

func TestIngester_EmptyCollection(t *testing.T) {
	fetcher := &fakeFetcher{collections: map[string][]map[string]any{}}

	_, err := NewIngester(fetcher, &memoryStore{}, testSources[:1], nil).IngestAll(context.Background())
	assert.ErrorIs(t, err, snapshot.ErrEmptyInput)
}

func TestIngester_MissingEndpoint(t *testing.T) {
	_, err := NewIngester(&fakeFetcher{}, &memoryStore{}, nil, nil).Ingest(context.Background(), Source{Name: "parks"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no endpoint configured")
}
