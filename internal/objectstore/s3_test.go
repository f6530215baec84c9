package objectstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/nomadiq-labs/parklake/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 serves the path-style subset of the S3 API the store uses.
type fakeS3 struct {
	mu      sync.Mutex
	bucket  string
	objects map[string][]byte
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	prefix := "/" + f.bucket
	if !strings.HasPrefix(r.URL.Path, prefix) {
		http.Error(w, "no such bucket", http.StatusNotFound)
		return
	}
	key := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, prefix), "/")

	switch {
	case r.Method == http.MethodPut && key != "":
		body, _ := io.ReadAll(r.Body)
		f.objects[key] = body
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodGet && key == "":
		keys := make([]string, 0, len(f.objects))
		for k := range f.objects {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?><ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/"><Name>%s</Name><KeyCount>%d</KeyCount><MaxKeys>1000</MaxKeys><IsTruncated>false</IsTruncated>`, f.bucket, len(keys))
		for _, k := range keys {
			fmt.Fprintf(w, `<Contents><Key>%s</Key><Size>%d</Size></Contents>`, k, len(f.objects[k]))
		}
		fmt.Fprint(w, `</ListBucketResult>`)
	default:
		http.Error(w, "unsupported", http.StatusMethodNotAllowed)
	}
}

func newTestStore(t *testing.T) (*Store, *fakeS3) {
	t.Helper()
	fake := &fakeS3{bucket: "nps", objects: make(map[string][]byte)}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	store, err := New(context.Background(), Config{
		Endpoint:  srv.URL,
		Bucket:    "nps",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
	}, testutil.NewTestLogger(t))
	require.NoError(t, err)
	return store, fake
}

func TestNew_RequiresBucketAndEndpoint(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing bucket", Config{Endpoint: "localhost:9000"}},
		{"missing endpoint", Config{Bucket: "nps"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(context.Background(), tt.cfg, nil)
			assert.ErrorIs(t, err, ErrNotConfigured)
		})
	}
}

func TestEndpointURL(t *testing.T) {
	assert.Equal(t, "http://localhost:9000", EndpointURL("localhost:9000", false))
	assert.Equal(t, "https://minio.internal", EndpointURL("minio.internal", true))
	assert.Equal(t, "http://127.0.0.1:9000", EndpointURL("http://127.0.0.1:9000", true))
}

func TestStore_PutList(t *testing.T) {
	ctx := context.Background()
	store, fake := newTestStore(t)

	require.NoError(t, store.Put(ctx, "parks_data_2024-01-01 00:00:00.parquet", []byte("PAR1")))
	require.NoError(t, store.Put(ctx, "alerts_data_2024-01-01 00:00:00.parquet", []byte("PAR1")))
	require.NoError(t, store.Put(ctx, "notes.txt", []byte("hello")))

	assert.Equal(t, []byte("PAR1"), fake.objects["parks_data_2024-01-01 00:00:00.parquet"])

	keys, err := store.List(ctx, ".parquet")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"alerts_data_2024-01-01 00:00:00.parquet",
		"parks_data_2024-01-01 00:00:00.parquet",
	}, keys)
}

func TestStore_URI(t *testing.T) {
	store, _ := newTestStore(t)
	assert.Equal(t, "s3://nps/parks_data_2024-01-01 00:00:00.parquet", store.URI("parks_data_2024-01-01 00:00:00.parquet"))
}
