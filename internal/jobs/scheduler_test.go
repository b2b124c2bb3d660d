package jobs_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"pickup-service/internal/jobs"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeLease struct {
	mu       sync.Mutex
	held     map[string]bool
	released []string
	err      error
}

func (l *fakeLease) AcquireLease(_ context.Context, key string, _ time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, false, l.err
	}
	if l.held[key] {
		return nil, false, nil
	}
	return func() {
		l.mu.Lock()
		l.released = append(l.released, key)
		l.mu.Unlock()
	}, true, nil
}

func TestScheduler_RunOnceNow(t *testing.T) {
	s := jobs.NewScheduler(zap.NewNop(), nil, 0)
	var calls atomic.Int32
	require.NoError(t, s.Run("sweep", time.Minute, func(context.Context) (int, error) {
		calls.Add(1)
		return 7, nil
	}))

	n, err := s.RunOnceNow(context.Background(), "sweep")
	require.NoError(t, err)
	require.Equal(t, 7, n)
	require.Equal(t, int32(1), calls.Load())

	_, err = s.RunOnceNow(context.Background(), "nope")
	require.ErrorIs(t, err, jobs.ErrUnknownTask)
}

func TestScheduler_RegisterValidation(t *testing.T) {
	s := jobs.NewScheduler(zap.NewNop(), nil, 0)
	noop := func(context.Context) (int, error) { return 0, nil }

	require.Error(t, s.Run("zero", 0, noop))
	require.NoError(t, s.Run("release", time.Minute, noop))
	require.Error(t, s.Run("release", time.Minute, noop), "duplicate names are rejected")
}

func TestScheduler_LeaseHeldElsewhereSkips(t *testing.T) {
	lease := &fakeLease{held: map[string]bool{"jobs:lease:sweep": true}}
	s := jobs.NewScheduler(zap.NewNop(), lease, time.Minute)
	var calls atomic.Int32
	task := func(context.Context) (int, error) { calls.Add(1); return 1, nil }
	require.NoError(t, s.Run("sweep", time.Minute, task))
	require.NoError(t, s.Run("release", time.Minute, task))

	n, err := s.RunOnceNow(context.Background(), "sweep")
	require.NoError(t, err)
	require.Zero(t, n)
	require.Zero(t, calls.Load())

	n, err = s.RunOnceNow(context.Background(), "release")
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, []string{"jobs:lease:release"}, lease.released)
}

func TestScheduler_LeaseErrorAndTaskError(t *testing.T) {
	boom := errors.New("redis down")
	s := jobs.NewScheduler(zap.NewNop(), &fakeLease{err: boom}, time.Minute)
	require.NoError(t, s.Run("sweep", time.Minute, func(context.Context) (int, error) { return 1, nil }))
	_, err := s.RunOnceNow(context.Background(), "sweep")
	require.ErrorIs(t, err, boom)

	failing := errors.New("db gone")
	s = jobs.NewScheduler(zap.NewNop(), nil, 0)
	require.NoError(t, s.Run("release", time.Minute, func(context.Context) (int, error) { return 2, failing }))
	n, err := s.RunOnceNow(context.Background(), "release")
	require.ErrorIs(t, err, failing)
	require.Equal(t, 2, n)
}

func TestScheduler_TicksAndStops(t *testing.T) {
	s := jobs.NewScheduler(zap.NewNop(), nil, 0)
	ticked := make(chan struct{}, 1)
	var stopped atomic.Bool
	require.NoError(t, s.Run("tick", time.Second, func(ctx context.Context) (int, error) {
		select {
		case ticked <- struct{}{}:
		default:
		}
		<-ctx.Done()
		stopped.Store(true)
		return 0, ctx.Err()
	}))

	s.Start()
	select {
	case <-ticked:
	case <-time.After(5 * time.Second):
		t.Fatal("task was not scheduled")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Stop(ctx)
	require.True(t, stopped.Load(), "running task sees cancellation")
}
