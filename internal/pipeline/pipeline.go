// Package pipeline sequences one full sync: ingest, raw sync, validation and
// layer transforms, guarded against overlapping runs and retried as a whole.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/nomadiq-labs/parklake/internal/lakehouse"
	"github.com/nomadiq-labs/parklake/internal/prune"
	"github.com/nomadiq-labs/parklake/internal/transform"
	"github.com/nomadiq-labs/parklake/internal/validation"
	"github.com/nomadiq-labs/parklake/pkg/core"
)

// LeaseName is the state-store lease held for the duration of a run.
const LeaseName = "pipeline"

// Stage names in execution order.
const (
	StageIngest   = "ingest"
	StageRawSync  = "raw_sync"
	StageValidate = "validate"
	StageStaged   = "staged_transform"
	StageCurated  = "curated_transform"
)

// ErrRunInProgress is returned when another run holds the pipeline lease.
var ErrRunInProgress = errors.New("pipeline run already in progress")

// Catalog is the engine handle a run executes against.
type Catalog interface {
	Exec(ctx context.Context, sql string) error
	Close() error
}

// Ingester lands fresh snapshots in object storage.
type Ingester interface {
	IngestAll(ctx context.Context) ([]string, error)
}

// Options wires an Orchestrator.
type Options struct {
	Store core.Store
	// OpenCatalog acquires the catalog at the start of each attempt.
	OpenCatalog func(ctx context.Context) (Catalog, error)
	Ingester    Ingester
	Lister      lakehouse.Lister

	DataDir    string
	SQLDir     string
	Validation validation.Options

	// Curated enables the curated transform stage.
	Curated    bool
	Retries    uint64
	RetryDelay time.Duration
	LeaseTTL   time.Duration
	Logger     *slog.Logger
}

// Orchestrator runs the pipeline.
type Orchestrator struct {
	opts   Options
	logger *slog.Logger
}

// New creates an Orchestrator.
func New(opts Options) *Orchestrator {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.LeaseTTL <= 0 {
		opts.LeaseTTL = 2 * time.Hour
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	return &Orchestrator{opts: opts, logger: opts.Logger}
}

// stage is one step of a run. It returns a short detail for the run record.
type stage struct {
	name string
	fn   func(ctx context.Context, rc *runContext) (string, error)
}

// runContext carries the handles of a single attempt.
type runContext struct {
	run     *core.Run
	catalog Catalog
}

func (o *Orchestrator) stages() []stage {
	return []stage{
		{StageIngest, o.ingest},
		{StageRawSync, o.rawSync},
		{StageValidate, o.validate},
		{StageStaged, o.transformLayer("staged", lakehouse.SchemaStaged)},
		{StageCurated, o.curated},
	}
}

// Run executes the pipeline under the lease, retrying failed attempts with
// exponential backoff. Each attempt is recorded as its own run. It returns
// the last attempt's run.
func (o *Orchestrator) Run(ctx context.Context, trigger string) (*core.Run, error) {
	holder := uuid.NewString()
	ok, err := o.opts.Store.AcquireLease(ctx, LeaseName, holder, o.opts.LeaseTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		o.logger.Warn("skipping run, lease held elsewhere", "trigger", trigger)
		return nil, ErrRunInProgress
	}
	defer func() {
		// Release even when ctx is already cancelled.
		if err := o.opts.Store.ReleaseLease(context.WithoutCancel(ctx), LeaseName, holder); err != nil {
			o.logger.Error("failed to release lease", "error", err)
		}
	}()

	backoff := retry.WithMaxRetries(o.opts.Retries, retry.NewExponential(o.opts.RetryDelay))

	var last *core.Run
	attempt := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		run, err := o.attempt(ctx, trigger)
		if run != nil {
			last = run
		}
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		o.logger.Warn("run attempt failed", "attempt", attempt, "error", err)
		return retry.RetryableError(err)
	})
	return last, err
}

// retryable reports whether another attempt could succeed.
func retryable(err error) bool {
	var gate *validation.ThresholdExceededError
	switch {
	case errors.As(err, &gate):
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}

func (o *Orchestrator) attempt(ctx context.Context, trigger string) (*core.Run, error) {
	store := o.opts.Store
	run, err := store.CreateRun(ctx, trigger)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	o.logger.Info("starting run", "run_id", run.ID, "trigger", trigger)

	runErr := o.execute(ctx, run)

	status, msg := core.RunStatusCompleted, ""
	switch {
	case errors.Is(runErr, context.Canceled):
		status, msg = core.RunStatusCancelled, runErr.Error()
	case runErr != nil:
		status, msg = core.RunStatusFailed, runErr.Error()
	}
	if err := store.CompleteRun(context.WithoutCancel(ctx), run.ID, status, msg); err != nil {
		o.logger.Error("failed to complete run", "run_id", run.ID, "error", err)
	}

	if runErr != nil {
		o.logger.Error("run failed", "run_id", run.ID, "error", runErr)
	} else {
		o.logger.Info("run completed", "run_id", run.ID)
	}

	if updated, err := store.GetRun(context.WithoutCancel(ctx), run.ID); err == nil {
		run = updated
	}
	return run, runErr
}

// execute acquires the catalog, runs every stage in order and releases the
// catalog. The first failing stage aborts the run.
func (o *Orchestrator) execute(ctx context.Context, run *core.Run) (err error) {
	cat, err := o.opts.OpenCatalog(ctx)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer func() {
		if cerr := cat.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close catalog: %w", cerr))
		}
	}()

	rc := &runContext{run: run, catalog: cat}
	for i, st := range o.stages() {
		if err := o.runStage(ctx, rc, i, st); err != nil {
			return fmt.Errorf("%s: %w", st.name, err)
		}
	}
	return nil
}

func (o *Orchestrator) runStage(ctx context.Context, rc *runContext, pos int, st stage) error {
	store := o.opts.Store
	rec := &core.StageRun{RunID: rc.run.ID, Stage: st.name, Position: pos, Status: core.StageStatusRunning}
	if err := store.RecordStageRun(ctx, rec); err != nil {
		return err
	}

	start := time.Now()
	detail, err := st.fn(ctx, rc)
	status := core.StageStatusSuccess
	switch {
	case errors.Is(err, errSkipped):
		status, err = core.StageStatusSkipped, nil
	case err != nil:
		status = core.StageStatusFailed
	}

	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	if uerr := store.UpdateStageRun(context.WithoutCancel(ctx), rec.ID, status, detail, errMsg); uerr != nil {
		o.logger.Error("failed to record stage", "stage", st.name, "error", uerr)
	}
	o.logger.Info("stage finished", "run_id", rc.run.ID, "stage", st.name, "status", status,
		"detail", detail, "duration_ms", time.Since(start).Milliseconds())
	return err
}

var errSkipped = errors.New("stage skipped")

func (o *Orchestrator) ingest(ctx context.Context, _ *runContext) (string, error) {
	keys, err := o.opts.Ingester.IngestAll(ctx)
	if err != nil {
		return fmt.Sprintf("%d snapshots", len(keys)), err
	}
	return fmt.Sprintf("%d snapshots", len(keys)), nil
}

func (o *Orchestrator) rawSync(ctx context.Context, rc *runContext) (string, error) {
	loader := lakehouse.NewLoader(rc.catalog, o.logger)
	syncer := lakehouse.NewSyncer(loader, o.opts.Lister, o.opts.DataDir, o.logger)
	tables, err := syncer.SyncRaw(ctx)
	return fmt.Sprintf("%d tables", len(tables)), err
}

func (o *Orchestrator) validate(ctx context.Context, rc *runContext) (string, error) {
	opts := o.opts.Validation
	opts.Logger = o.logger
	summary, err := validation.RunNonBlocking(ctx, opts)
	if summary == nil {
		return "", err
	}

	rec := &core.ValidationSummary{
		Layer:      summary.Layer,
		Failures:   summary.Failures,
		Total:      summary.Total,
		ReportPath: summary.ReportPath,
	}
	if serr := o.opts.Store.SaveValidationSummary(ctx, rc.run.ID, rec); serr != nil {
		o.logger.Error("failed to save validation summary", "error", serr)
	}
	return fmt.Sprintf("%d/%d failed", summary.Failures, summary.Total), err
}

// transformLayer runs the scripts of sql/<folder> and prunes the layer's
// data files.
func (o *Orchestrator) transformLayer(folder, schema string) func(context.Context, *runContext) (string, error) {
	return func(ctx context.Context, rc *runContext) (string, error) {
		runner := transform.NewRunner(rc.catalog, o.logger)
		ran, err := runner.Run(ctx, filepath.Join(o.opts.SQLDir, folder), schema)
		if err != nil {
			return fmt.Sprintf("%d scripts", len(ran)), err
		}
		if _, err := prune.Snapshots(filepath.Join(o.opts.DataDir, schema), o.logger); err != nil {
			o.logger.Warn("prune failed", "schema", schema, "error", err)
		}
		return fmt.Sprintf("%d scripts", len(ran)), nil
	}
}

func (o *Orchestrator) curated(ctx context.Context, rc *runContext) (string, error) {
	if !o.opts.Curated {
		return "disabled", errSkipped
	}
	return o.transformLayer("curated", lakehouse.SchemaCurated)(ctx, rc)
}
