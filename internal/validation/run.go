package validation

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/nomadiq-labs/parklake/internal/prune"
	"github.com/nomadiq-labs/parklake/internal/snapshot"
)

// DefaultLayer is validated when no layer is given.
const DefaultLayer = "RAW"

// ThresholdExceededError is returned when failures exceed the configured
// threshold and the gate is enabled.
type ThresholdExceededError struct {
	Layer     string
	Failures  int
	Threshold int
}

func (e *ThresholdExceededError) Error() string {
	return fmt.Sprintf("validation failures %d exceed threshold %d (layer=%s)", e.Failures, e.Threshold, e.Layer)
}

// Summary describes one validation pass.
type Summary struct {
	Layer      string `json:"layer"`
	Failures   int    `json:"failures"`
	Total      int    `json:"total"`
	ReportPath string `json:"report"`
}

// Options configures a validation pass.
type Options struct {
	// DataDir holds one folder per layer, each with one folder per table.
	DataDir string
	Layer   string
	// ReportDir receives the timestamped report file.
	ReportDir      string
	FailThreshold  int
	RaiseOnFailure bool
	Logger         *slog.Logger
	// Now is used for the report timestamp. Defaults to time.Now.
	Now func() time.Time
}

// RunAll validates the newest file of every tracked table in layer. A table
// with no file under <dataDir>/<LAYER>/<TABLE>/ contributes no results.
func RunAll(ctx context.Context, dataDir, layer string, logger *slog.Logger) ([]Result, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	layer = strings.ToUpper(layer)

	var results []Result
	for _, rs := range RuleSets {
		folder := filepath.Join(dataDir, layer, rs.Folder)
		path, err := prune.Newest(folder)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve newest file for %s: %w", rs.Table, err)
		}
		if path == "" {
			logger.Info("no data file found, skipping", "table", rs.Table, "folder", folder)
			continue
		}

		frame, err := snapshot.ReadFile(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", rs.Table, err)
		}
		logger.Debug("validating", "table", rs.Table, "file", path, "rows", frame.NumRows())
		results = append(results, rs.Check(frame)...)
	}
	return results, nil
}

// RunNonBlocking validates a layer, writes the report and returns the
// summary. A report that cannot be written is logged and does not fail the
// pass. The only error besides load failures is ThresholdExceededError.
func RunNonBlocking(ctx context.Context, opts Options) (*Summary, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	layer := opts.Layer
	if layer == "" {
		layer = DefaultLayer
	}

	results, err := RunAll(ctx, opts.DataDir, layer, logger)
	if err != nil {
		return nil, err
	}

	reportPath := filepath.Join(opts.ReportDir,
		fmt.Sprintf("validation_results_%s_%s.parquet", layer, now().Format("20060102_150405")))
	if err := WriteReport(reportPath, results); err != nil {
		logger.Error("failed to write validation report", "path", reportPath, "error", err)
	}

	failures := 0
	for _, r := range results {
		if !r.Passed {
			failures++
		}
	}
	summary := &Summary{Layer: layer, Failures: failures, Total: len(results), ReportPath: reportPath}
	logger.Info("validation summary", "layer", layer, "failures", failures, "checks", len(results), "report", reportPath)

	if opts.RaiseOnFailure && failures > opts.FailThreshold {
		return summary, &ThresholdExceededError{Layer: layer, Failures: failures, Threshold: opts.FailThreshold}
	}
	return summary, nil
}

// WriteReport writes results as a parquet file, creating its directory.
func WriteReport(path string, results []Result) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create report dir: %w", err)
	}
	if err := parquet.WriteFile(path, results); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// ReadReport reads a report written by WriteReport.
func ReadReport(path string) ([]Result, error) {
	results, err := parquet.ReadFile[Result](path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report %s: %w", path, err)
	}
	return results, nil
}
