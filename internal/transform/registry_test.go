package transform

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func names(units []*Unit) []string {
	out := make([]string, len(units))
	for i, u := range units {
		out[i] = u.Name
	}
	return out
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "b_parks.sql", "CREATE OR REPLACE TABLE STAGED.PARKS AS SELECT * FROM RAW.PARKS;")
	writeScript(t, dir, "a_alerts.sql", `/*---
depends_on: [b_parks]
---*/
CREATE OR REPLACE TABLE STAGED.ALERTS AS SELECT * FROM RAW.ALERTS;`)
	writeScript(t, dir, "c_usage.sql", "SELECT 1;")
	writeScript(t, dir, "notes.md", "not a script")

	units, err := Discover(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"b_parks", "a_alerts", "c_usage"}, names(units))
	assert.Equal(t, filepath.Join(dir, "a_alerts.sql"), units[1].Path)
	assert.Equal(t, "CREATE OR REPLACE TABLE STAGED.ALERTS AS SELECT * FROM RAW.ALERTS;", units[1].SQL)
}

func TestDiscover_MissingFolder(t *testing.T) {
	units, err := Discover(filepath.Join(t.TempDir(), "curated"))
	require.NoError(t, err)
	assert.Empty(t, units)
}

func TestDiscover_BadFrontmatterNamesFile(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "broken.sql", "/*---\nowner: me\n---*/\nSELECT 1;")

	_, err := Discover(dir)
	var fmErr *FrontmatterError
	require.ErrorAs(t, err, &fmErr)
	assert.Contains(t, err.Error(), "broken.sql")
}

func TestOrder(t *testing.T) {
	tests := []struct {
		name    string
		units   []*Unit
		want    []string
		wantErr string
	}{
		{
			name:  "by name without dependencies",
			units: []*Unit{{Name: "c"}, {Name: "a"}, {Name: "b"}},
			want:  []string{"a", "b", "c"},
		},
		{
			name:  "dependencies first",
			units: []*Unit{{Name: "a", DependsOn: []string{"c"}}, {Name: "b"}, {Name: "c"}},
			want:  []string{"b", "c", "a"},
		},
		{
			name:    "unknown dependency",
			units:   []*Unit{{Name: "a", DependsOn: []string{"missing"}}},
			wantErr: `unknown dependency "missing"`,
		},
		{
			name:    "cycle",
			units:   []*Unit{{Name: "a", DependsOn: []string{"b"}}, {Name: "b", DependsOn: []string{"a"}}},
			wantErr: "dependency cycle",
		},
		{
			name:    "duplicate name",
			units:   []*Unit{{Name: "a", Path: "x.sql"}, {Name: "a", Path: "y.sql"}},
			wantErr: `duplicate transform "a"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Order(tt.units)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(got))
		})
	}
}

func TestDiscover_ProjectScripts(t *testing.T) {
	root := filepath.Join("..", "..", "sql")

	staged, err := Discover(filepath.Join(root, "staged"))
	require.NoError(t, err)
	assert.Equal(t, []string{"parks", "alerts"}, names(staged))

	curated, err := Discover(filepath.Join(root, "curated"))
	require.NoError(t, err)
	assert.Equal(t, []string{"park_alerts", "park_locations"}, names(curated))
	for _, u := range curated {
		assert.Contains(t, u.SQL, "CREATE OR REPLACE TABLE CURATED.")
	}
}
