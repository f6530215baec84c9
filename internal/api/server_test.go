package api

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomadiq-labs/parklake/internal/testutil"
	"github.com/nomadiq-labs/parklake/pkg/adapter"
)

func newTestServer(t *testing.T) (*Server, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	srv := NewServer(Config{
		Catalog: &adapter.BaseSQLAdapter{DB: db},
		Logger:  testutil.NewTestLogger(t),
	})
	return srv, mock
}

func get(t *testing.T, srv *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func endpoint(t *testing.T, path string) Endpoint {
	t.Helper()
	for _, ep := range Endpoints {
		if ep.Path == path {
			return ep
		}
	}
	t.Fatalf("no endpoint %s", path)
	return Endpoint{}
}

func TestEndpoint_Build(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		params   url.Values
		wantSQL  string
		wantArgs []any
	}{
		{
			name:    "no filters",
			path:    "/nps_distances",
			wantSQL: "SELECT * FROM CURATED.NPS_DISTANCES",
		},
		{
			name:     "contains filter",
			path:     "/nps_distances",
			params:   url.Values{"starting_national_park": {"Yellow"}},
			wantSQL:  "SELECT * FROM CURATED.NPS_DISTANCES WHERE starting_national_park ILIKE ?",
			wantArgs: []any{"%Yellow%"},
		},
		{
			name:     "text and integer filters",
			path:     "/park_usage_annual",
			params:   url.Values{"park_name": {"Zion"}, "year": {"2023"}},
			wantSQL:  "SELECT * FROM CURATED.PARK_USAGE_ANNUAL WHERE park_name ILIKE ? AND year = ?",
			wantArgs: []any{"%Zion%", int64(2023)},
		},
		{
			name:     "category maps to alert_category",
			path:     "/park_alerts",
			params:   url.Values{"category": {"closure"}},
			wantSQL:  "SELECT * FROM CURATED.PARK_ALERTS WHERE alert_category ILIKE ?",
			wantArgs: []any{"%closure%"},
		},
		{
			name:     "paged prefix filters with defaults",
			path:     "/nps_parks_to_landmarks",
			params:   url.Values{"park_state": {"ut"}},
			wantSQL:  "SELECT park_name, property_name, park_state FROM CURATED.NPS_PARKS_TO_LANDMARKS WHERE park_state ILIKE ? LIMIT ? OFFSET ?",
			wantArgs: []any{"ut%", 100, 0},
		},
		{
			name:     "explicit paging",
			path:     "/nps_parks_to_landmarks",
			params:   url.Values{"limit": {"5"}, "offset": {"10"}},
			wantSQL:  "SELECT park_name, property_name, park_state FROM CURATED.NPS_PARKS_TO_LANDMARKS LIMIT ? OFFSET ?",
			wantArgs: []any{5, 10},
		},
		{
			name:    "distinct list is ordered",
			path:    "/park_alert_categories",
			wantSQL: "SELECT DISTINCT alert_category FROM CURATED.PARK_ALERTS ORDER BY alert_category",
		},
		{
			name:    "blank parameter is ignored",
			path:    "/nps_to_state_distance",
			params:  url.Values{"park_name": {"  "}},
			wantSQL: "SELECT * FROM CURATED.NPS_TO_STATE_DISTANCE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := endpoint(t, tt.path).Build(tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestEndpoint_BuildRejectsBadNumbers(t *testing.T) {
	tests := []struct {
		path   string
		params url.Values
		want   string
	}{
		{"/park_usage_annual", url.Values{"year": {"recent"}}, "invalid year"},
		{"/nps_parks_to_landmarks", url.Values{"limit": {"-1"}}, "invalid limit"},
		{"/nps_parks_to_landmarks", url.Values{"offset": {"x"}}, "invalid offset"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			_, _, err := endpoint(t, tt.path).Build(tt.params)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestServer_Records(t *testing.T) {
	srv, mock := newTestServer(t)

	mock.ExpectQuery("SELECT * FROM CURATED.PARK_ALERTS WHERE park_name ILIKE ?").
		WithArgs("%Zion%").
		WillReturnRows(sqlmock.NewRows([]string{"park_name", "alert_category"}).
			AddRow("Zion National Park", "Park Closure").
			AddRow("Zion National Park", []byte("Caution")))

	rec := get(t, srv, "/park_alerts?park_name=Zion")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `[
		{"park_name": "Zion National Park", "alert_category": "Park Closure"},
		{"park_name": "Zion National Park", "alert_category": "Caution"}
	]`, rec.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServer_EmptyResultIsEmptyList(t *testing.T) {
	srv, mock := newTestServer(t)

	mock.ExpectQuery("SELECT * FROM CURATED.NPS_DISTANCES").
		WillReturnRows(sqlmock.NewRows([]string{"starting_national_park"}))

	rec := get(t, srv, "/nps_distances")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestServer_DistinctList(t *testing.T) {
	srv, mock := newTestServer(t)

	mock.ExpectQuery("SELECT DISTINCT landmark_name FROM CURATED.NPS_PARKS_TO_LANDMARKS ORDER BY landmark_name").
		WillReturnRows(sqlmock.NewRows([]string{"landmark_name"}).
			AddRow("Alcatraz Island").
			AddRow("Bandelier"))

	rec := get(t, srv, "/nps_landmarks")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["Alcatraz Island", "Bandelier"]`, rec.Body.String())
}

func TestServer_NonFiniteFloatsBecomeNull(t *testing.T) {
	srv, mock := newTestServer(t)

	mock.ExpectQuery("SELECT * FROM CURATED.NPS_TO_STATE_DISTANCE").
		WillReturnRows(sqlmock.NewRows([]string{"park_name", "distance"}).
			AddRow("Acadia", math.NaN()).
			AddRow("Arches", math.Inf(1)).
			AddRow("Badlands", 412.5))

	rec := get(t, srv, "/nps_to_state_distance")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[
		{"park_name": "Acadia", "distance": null},
		{"park_name": "Arches", "distance": null},
		{"park_name": "Badlands", "distance": 412.5}
	]`, rec.Body.String())
}

func TestServer_NonFiniteFloatsInListsBecomeNull(t *testing.T) {
	srv, mock := newTestServer(t)

	mock.ExpectQuery("SELECT * FROM CURATED.NPS_TO_STATE_DISTANCE").
		WillReturnRows(sqlmock.NewRows([]string{"park_name", "distances", "extent"}).
			AddRow("Acadia",
				[]any{12.5, math.NaN()},
				map[string]any{"min": math.Inf(-1), "max": 80.0, "hops": []any{math.Inf(1)}}))

	rec := get(t, srv, "/nps_to_state_distance")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{
		"park_name": "Acadia",
		"distances": [12.5, null],
		"extent": {"min": null, "max": 80, "hops": [null]}
	}]`, rec.Body.String())
}

func TestWriteJSON_EncodeFailureIsErrorBody(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, []any{make(chan int)})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"error":"failed to encode response`)
}

func TestServer_QueryErrorReturnsErrorBody(t *testing.T) {
	srv, mock := newTestServer(t)

	mock.ExpectQuery("SELECT * FROM CURATED.NPS_PARK_USAGE_ANNUAL WHERE year = ?").
		WithArgs(2020).
		WillReturnError(errors.New("Catalog Error: Table does not exist"))

	rec := get(t, srv, "/nps_park_usage_annual?year=2020")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error"`)
	assert.Contains(t, rec.Body.String(), "Table does not exist")
}

func TestServer_BadParameterReturnsErrorBody(t *testing.T) {
	srv, mock := newTestServer(t)

	rec := get(t, srv, "/park_usage_annual?year=soon")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"error": "invalid year \"soon\": must be an integer"}`, rec.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServer_Healthz(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := get(t, srv, "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rec.Body.String())
}

func TestServer_ServeStopsOnCancel(t *testing.T) {
	srv := NewServer(Config{Addr: "127.0.0.1:0", Logger: testutil.NewTestLogger(t)})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
