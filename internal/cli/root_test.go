package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		wantErr bool
	}{
		{name: "defaults", level: "", format: ""},
		{name: "debug text", level: "debug", format: "text"},
		{name: "warn json", level: "WARN", format: "JSON"},
		{name: "bad level", level: "loud", format: "text", wantErr: true},
		{name: "bad format", level: "info", format: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(new(bytes.Buffer), tt.level, tt.format)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}
}

func TestNewLogger_JSONOutput(t *testing.T) {
	buf := new(bytes.Buffer)
	logger, err := NewLogger(buf, "info", "json")
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("visible", "stage", "ingest")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"stage":"ingest"`)
}

func TestRootCmd_Subcommands(t *testing.T) {
	cmd := NewRootCmd()

	want := []string{"setup", "ingest", "sync", "validate", "transform", "run", "schedule", "serve", "runs", "version"}
	for _, name := range want {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}
}

func TestRootCmd_RunsOnEmptyHistory(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, "runs", "--project-dir", dir)

	require.NoError(t, err)
	assert.Contains(t, out, "(no runs)")
	assert.FileExists(t, filepath.Join(dir, ".parklake", "state.db"))
}

func TestRootCmd_ValidateEmptyLayer(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, "validate", "raw", "--project-dir", dir, "--log-level", "error")

	require.NoError(t, err)
	assert.Contains(t, out, "Validation RAW: 0/0 checks failed")

	reports, err := os.ReadDir(filepath.Join(dir, "data", "validation_reports"))
	require.NoError(t, err)
	assert.Len(t, reports, 1)
}

func TestRootCmd_InvalidLogFormat(t *testing.T) {
	_, err := execute(t, "runs", "--project-dir", t.TempDir(), "--log-format", "xml")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log format")
}

func TestRootCmd_TransformRejectsUnknownLayer(t *testing.T) {
	_, err := execute(t, "transform", "raw", "--project-dir", t.TempDir())

	assert.Error(t, err)
}

func TestRootCmd_IngestRequiresSettings(t *testing.T) {
	for _, name := range []string{"NPS_API_KEY", "MINIO_EXTERNAL_URL", "MINIO_BUCKET_NAME"} {
		t.Setenv(name, "")
	}

	_, err := execute(t, "ingest", "--project-dir", t.TempDir())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "NPS_API_KEY")
	assert.Contains(t, err.Error(), "MINIO_BUCKET_NAME")
}
