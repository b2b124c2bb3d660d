package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Task: идемпотентная периодическая задача; возвращает число обработанных строк.
type Task func(ctx context.Context) (int, error)

// Lease не даёт двум репликам выполнять одну задачу одновременно.
type Lease interface {
	AcquireLease(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

var ErrUnknownTask = errors.New("unknown task")

type Scheduler struct {
	cron     *cron.Cron
	log      *zap.Logger
	lease    Lease
	leaseTTL time.Duration

	mu    sync.Mutex
	tasks map[string]Task

	ctx    context.Context
	cancel context.CancelFunc
}

func NewScheduler(log *zap.Logger, lease Lease, leaseTTL time.Duration) *Scheduler {
	cl := cronLogger{log: log}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:     cron.New(cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)), cron.WithLogger(cl)),
		log:      log,
		lease:    lease,
		leaseTTL: leaseTTL,
		tasks:    make(map[string]Task),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Run регистрирует задачу с фиксированным интервалом.
func (s *Scheduler) Run(name string, interval time.Duration, task Task) error {
	if interval <= 0 {
		return fmt.Errorf("task %s: interval must be > 0", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.tasks[name]; dup {
		return fmt.Errorf("task %s already registered", name)
	}
	if _, err := s.cron.AddFunc("@every "+interval.String(), func() { s.execute(s.ctx, name, task) }); err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	s.tasks[name] = task
	return nil
}

func (s *Scheduler) Start() {
	s.log.Info("starting job scheduler", zap.Int("tasks", len(s.tasks)))
	s.cron.Start()
}

// Stop отменяет контекст задач и ждёт завершения текущих запусков (или ctx).
func (s *Scheduler) Stop(ctx context.Context) {
	s.log.Info("stopping job scheduler")
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn("job scheduler stop timed out")
	}
}

// RunOnceNow выполняет задачу немедленно, минуя расписание (CLI, тесты).
func (s *Scheduler) RunOnceNow(ctx context.Context, name string) (int, error) {
	s.mu.Lock()
	task, ok := s.tasks[name]
	s.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}
	return s.execute(ctx, name, task)
}

func (s *Scheduler) execute(ctx context.Context, name string, task Task) (int, error) {
	if s.lease != nil {
		release, ok, err := s.lease.AcquireLease(ctx, "jobs:lease:"+name, s.leaseTTL)
		if err != nil {
			s.log.Error("job lease failed", zap.String("task", name), zap.Error(err))
			return 0, err
		}
		if !ok {
			s.log.Debug("job lease held elsewhere, skipping", zap.String("task", name))
			return 0, nil
		}
		defer release()
	}

	started := time.Now()
	n, err := task(ctx)
	if err != nil {
		s.log.Error("job failed", zap.String("task", name), zap.Duration("took", time.Since(started)), zap.Error(err))
		return n, err
	}
	s.log.Debug("job done", zap.String("task", name), zap.Int("count", n), zap.Duration("took", time.Since(started)))
	return n, nil
}

// cronLogger адаптирует zap к cron.Logger.
type cronLogger struct{ log *zap.Logger }

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Debugw("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
