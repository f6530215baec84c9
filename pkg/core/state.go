package core

import (
	"context"
	"time"
)

// Store defines the interface for run-state operations.
type Store interface {
	Open(path string) error
	Close() error
	InitSchema() error

	// Run operations
	CreateRun(ctx context.Context, trigger string) (*Run, error)
	GetRun(ctx context.Context, id string) (*Run, error)
	CompleteRun(ctx context.Context, id string, status RunStatus, errMsg string) error
	GetLatestRun(ctx context.Context) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]*Run, error)

	// Stage operations
	RecordStageRun(ctx context.Context, stage *StageRun) error
	UpdateStageRun(ctx context.Context, id string, status StageStatus, detail, errMsg string) error
	GetStageRunsForRun(ctx context.Context, runID string) ([]*StageRun, error)

	// Validation summaries
	SaveValidationSummary(ctx context.Context, runID string, summary *ValidationSummary) error
	ListValidationSummaries(ctx context.Context, limit int) ([]*ValidationSummary, error)

	// Lease operations guard against overlapping pipeline runs.
	AcquireLease(ctx context.Context, name, holder string, ttl time.Duration) (bool, error)
	ReleaseLease(ctx context.Context, name, holder string) error
}

// RunStatus represents the status of a pipeline run.
type RunStatus string

// Run status constants.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// Run represents one execution of the pipeline.
type Run struct {
	ID          string
	Trigger     string
	Status      RunStatus
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
}

// Duration returns how long the run took, or zero while it is still running.
func (r *Run) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// StageStatus represents the status of a single pipeline stage.
type StageStatus string

// Stage status constants.
const (
	StageStatusRunning StageStatus = "running"
	StageStatusSuccess StageStatus = "success"
	StageStatusFailed  StageStatus = "failed"
	StageStatusSkipped StageStatus = "skipped"
)

// StageRun represents a single stage execution within a run.
type StageRun struct {
	ID          string
	RunID       string
	Stage       string
	Position    int
	Status      StageStatus
	Detail      string
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
	ExecutionMS int64
}

// ValidationSummary is the outcome of one validation pass over a layer.
type ValidationSummary struct {
	Layer      string
	Failures   int
	Total      int
	ReportPath string
	CreatedAt  time.Time
}
