package transform

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// TransformError reports the script that stopped a layer run.
type TransformError struct {
	Script string
	Err    error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("transform %s failed: %v", e.Script, e.Err)
}

func (e *TransformError) Unwrap() error {
	return e.Err
}

// Execer runs a statement against the catalog.
type Execer interface {
	Exec(ctx context.Context, sql string) error
}

// Runner executes the scripts of a layer folder.
type Runner struct {
	db     Execer
	logger *slog.Logger
}

// NewRunner creates a Runner over db.
func NewRunner(db Execer, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{db: db, logger: logger}
}

// Run executes every script in folder verbatim, in dependency order, with
// schema recorded for logging. It returns the names of the scripts that ran.
// The first failing script aborts the rest.
func (r *Runner) Run(ctx context.Context, folder, schema string) ([]string, error) {
	units, err := Discover(folder)
	if err != nil {
		return nil, &TransformError{Script: folder, Err: err}
	}
	return r.RunUnits(ctx, units, schema)
}

// RunUnits executes already ordered units.
func (r *Runner) RunUnits(ctx context.Context, units []*Unit, schema string) ([]string, error) {
	if len(units) == 0 {
		r.logger.Info("no transforms to run", "schema", schema)
		return nil, nil
	}

	ran := make([]string, 0, len(units))
	for _, u := range units {
		if err := ctx.Err(); err != nil {
			return ran, &TransformError{Script: u.Path, Err: err}
		}

		start := time.Now()
		if err := r.db.Exec(ctx, u.SQL); err != nil {
			r.logger.Error("transform failed", "script", u.Path, "schema", schema, "error", err)
			return ran, &TransformError{Script: u.Path, Err: err}
		}
		r.logger.Info("transform complete", "script", u.Path, "name", u.Name, "schema", schema,
			"duration_ms", time.Since(start).Milliseconds())
		ran = append(ran, u.Name)
	}
	return ran, nil
}
