package pipeline

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomadiq-labs/parklake/pkg/core"
)

type countingRunner struct {
	calls atomic.Int32
}

func (r *countingRunner) Run(_ context.Context, trigger string) (*core.Run, error) {
	r.calls.Add(1)
	return &core.Run{ID: "r", Trigger: trigger}, nil
}

func TestNewScheduler_InvalidSpec(t *testing.T) {
	_, err := NewScheduler("not a cron", time.UTC, &countingRunner{}, nil)
	assert.ErrorContains(t, err, "invalid schedule")
}

func TestScheduler_NextUsesLocation(t *testing.T) {
	loc, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)

	s, err := NewScheduler("0 2 * * *", loc, &countingRunner{}, nil)
	require.NoError(t, err)

	next := s.Next().In(loc)
	assert.Equal(t, 2, next.Hour())
	assert.Equal(t, 0, next.Minute())
	assert.True(t, next.After(time.Now()))
}

func TestScheduler_RunStopsOnCancel(t *testing.T) {
	runner := &countingRunner{}
	s, err := NewScheduler("@every 1h", time.UTC, runner, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.Equal(t, int32(0), runner.calls.Load())
}

func TestScheduler_TickTriggersRun(t *testing.T) {
	runner := &countingRunner{}
	s, err := NewScheduler("0 2 * * *", time.UTC, runner, nil)
	require.NoError(t, err)

	s.tick()
	assert.Equal(t, int32(1), runner.calls.Load())
}
