package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nomadiq-labs/parklake/pkg/core"
)

// RecordStageRun inserts a stage result. ID and StartedAt are filled in when
// empty.
func (s *SQLiteStore) RecordStageRun(ctx context.Context, stage *core.StageRun) error {
	if err := s.ready(); err != nil {
		return err
	}
	if stage.ID == "" {
		stage.ID = generateID()
	}
	if stage.StartedAt.IsZero() {
		stage.StartedAt = time.Now().UTC()
	}
	if stage.Status == "" {
		stage.Status = core.StageStatusRunning
	}

	var completedAt sql.NullString
	if stage.CompletedAt != nil {
		completedAt = nullString(formatTime(*stage.CompletedAt))
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO stage_runs (id, run_id, stage, position, status, detail, started_at, completed_at, error, execution_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		stage.ID, stage.RunID, stage.Stage, stage.Position, string(stage.Status), nullString(stage.Detail),
		formatTime(stage.StartedAt), completedAt, nullString(stage.Error), stage.ExecutionMS,
	)
	if err != nil {
		return fmt.Errorf("failed to record stage %s: %w", stage.Stage, err)
	}
	return nil
}

// UpdateStageRun finishes a stage, computing its execution time from the
// stored start.
func (s *SQLiteStore) UpdateStageRun(ctx context.Context, id string, status core.StageStatus, detail, errMsg string) error {
	if err := s.ready(); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		var startedAt string
		if err := tx.QueryRowContext(ctx, `SELECT started_at FROM stage_runs WHERE id = ?`, id).Scan(&startedAt); err != nil {
			return fmt.Errorf("failed to load stage %s: %w", id, err)
		}
		start, err := parseTime(startedAt)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		_, err = tx.ExecContext(ctx,
			`UPDATE stage_runs SET status = ?, detail = ?, error = ?, completed_at = ?, execution_ms = ? WHERE id = ?`,
			string(status), nullString(detail), nullString(errMsg), formatTime(now), now.Sub(start).Milliseconds(), id,
		)
		if err != nil {
			return fmt.Errorf("failed to update stage %s: %w", id, err)
		}
		return nil
	})
}

// GetStageRunsForRun returns the stages of a run in execution order.
func (s *SQLiteStore) GetStageRunsForRun(ctx context.Context, runID string) ([]*core.StageRun, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, stage, position, status, detail, started_at, completed_at, error, execution_ms
		 FROM stage_runs WHERE run_id = ? ORDER BY position, started_at`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list stages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var stages []*core.StageRun
	for rows.Next() {
		var (
			st          core.StageRun
			status      string
			detail      sql.NullString
			startedAt   string
			completedAt sql.NullString
			errMsg      sql.NullString
		)
		if err := rows.Scan(&st.ID, &st.RunID, &st.Stage, &st.Position, &status, &detail,
			&startedAt, &completedAt, &errMsg, &st.ExecutionMS); err != nil {
			return nil, fmt.Errorf("failed to scan stage: %w", err)
		}
		st.Status = core.StageStatus(status)
		st.Detail = detail.String
		st.Error = errMsg.String
		if st.StartedAt, err = parseTime(startedAt); err != nil {
			return nil, err
		}
		if st.CompletedAt, err = parseNullTime(completedAt); err != nil {
			return nil, err
		}
		stages = append(stages, &st)
	}
	return stages, rows.Err()
}
