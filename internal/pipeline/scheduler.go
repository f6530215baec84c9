package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/nomadiq-labs/parklake/pkg/core"
)

// Runner is what the scheduler triggers.
type Runner interface {
	Run(ctx context.Context, trigger string) (*core.Run, error)
}

// Scheduler triggers runs on a cron expression in a fixed timezone. A tick
// that fires while the previous run is still going is skipped.
type Scheduler struct {
	cron   *cron.Cron
	runner Runner
	logger *slog.Logger
	ctx    context.Context
}

// NewScheduler parses a five-field cron expression and binds it to runner.
func NewScheduler(expr string, loc *time.Location, runner Runner, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if loc == nil {
		loc = time.UTC
	}

	cl := cronLogger{logger: logger}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		runner: runner,
		logger: logger,
		ctx:    context.Background(),
	}
	if _, err := s.cron.AddFunc(expr, s.tick); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", expr, err)
	}
	return s, nil
}

func (s *Scheduler) tick() {
	run, err := s.runner.Run(s.ctx, "schedule")
	switch {
	case errors.Is(err, ErrRunInProgress):
		s.logger.Warn("scheduled run skipped", "reason", err)
	case err != nil:
		s.logger.Error("scheduled run failed", "error", err)
	case run != nil:
		s.logger.Info("scheduled run finished", "run_id", run.ID, "duration", run.Duration())
	}
}

// Next returns the next activation time.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	if entries[0].Next.IsZero() {
		return entries[0].Schedule.Next(time.Now().In(s.cron.Location()))
	}
	return entries[0].Next
}

// Run starts the scheduler and blocks until ctx is done, then waits for a
// running job to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.ctx = ctx
	s.cron.Start()
	s.logger.Info("scheduler started", "next", s.Next())

	<-ctx.Done()
	s.logger.Info("scheduler stopping")
	<-s.cron.Stop().Done()
	return nil
}

// cronLogger adapts slog to the cron logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
