package state

import (
	"context"
	"fmt"
	"time"

	"github.com/nomadiq-labs/parklake/pkg/core"
)

// SaveValidationSummary stores the outcome of a validation pass. runID may
// be empty for passes run outside the pipeline.
func (s *SQLiteStore) SaveValidationSummary(ctx context.Context, runID string, summary *core.ValidationSummary) error {
	if err := s.ready(); err != nil {
		return err
	}
	if summary.CreatedAt.IsZero() {
		summary.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO validation_summaries (run_id, layer, failures, total, report_path, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		nullString(runID), summary.Layer, summary.Failures, summary.Total, summary.ReportPath, formatTime(summary.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save validation summary: %w", err)
	}
	return nil
}

// ListValidationSummaries returns up to limit summaries, newest first.
func (s *SQLiteStore) ListValidationSummaries(ctx context.Context, limit int) ([]*core.ValidationSummary, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT layer, failures, total, report_path, created_at
		 FROM validation_summaries ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list validation summaries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*core.ValidationSummary
	for rows.Next() {
		var (
			vs        core.ValidationSummary
			createdAt string
		)
		if err := rows.Scan(&vs.Layer, &vs.Failures, &vs.Total, &vs.ReportPath, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan validation summary: %w", err)
		}
		if vs.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, &vs)
	}
	return out, rows.Err()
}
