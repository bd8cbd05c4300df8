package usecase

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"MarketSniper/internal/config"
	"MarketSniper/internal/domain"
	"MarketSniper/internal/ports"
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// JitterFunc picks a delay in [lower, upper].
type JitterFunc func(lower, upper time.Duration) time.Duration

// TaskScheduler walks the task queue forever, one task at a time.
type TaskScheduler struct {
	tasks    ports.TaskRepository
	queue    *taskQueue
	pipeline *Pipeline
	cfg      config.SchedulerConfig
	logger   *slog.Logger
	sleep    SleepFunc
	jitter   JitterFunc
}

// SchedulerOption customises a TaskScheduler.
type SchedulerOption func(*TaskScheduler)

// WithSleep replaces the context-aware sleep.
func WithSleep(fn SleepFunc) SchedulerOption {
	return func(s *TaskScheduler) { s.sleep = fn }
}

// WithJitter replaces the random per-page delay.
func WithJitter(fn JitterFunc) SchedulerOption {
	return func(s *TaskScheduler) { s.jitter = fn }
}

// NewTaskScheduler builds the polling loop over tasks.
func NewTaskScheduler(tasks ports.TaskRepository, pipeline *Pipeline, cfg config.SchedulerConfig, log *slog.Logger, opts ...SchedulerOption) *TaskScheduler {
	if log == nil {
		log = slog.Default()
	}
	s := &TaskScheduler{
		tasks:    tasks,
		queue:    newTaskQueue(tasks),
		pipeline: pipeline,
		cfg:      cfg,
		logger:   log,
		sleep:    sleepContext,
		jitter:   randomJitter,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run processes tasks until ctx is cancelled. Tasks whose quota ran out since the
// queue was filled are skipped without fetching.
func (s *TaskScheduler) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		id, ok, err := s.queue.next(ctx)
		if err != nil {
			s.logger.Error("refill task queue failed", "error", err)
			if s.sleep(ctx, s.cfg.IdleDelay) != nil {
				return nil
			}
			continue
		}
		if !ok {
			s.logger.Debug("no active tasks", "retry_in", s.cfg.IdleDelay)
			if s.sleep(ctx, s.cfg.IdleDelay) != nil {
				return nil
			}
			continue
		}

		task, err := s.tasks.Task(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrTaskNotFound) {
				continue
			}
			s.logger.Error("load task failed", "task", id, "error", err)
			if s.sleep(ctx, s.cfg.IdleDelay) != nil {
				return nil
			}
			continue
		}
		if !task.Active() {
			s.logger.Debug("task quota exhausted, skipping", "task", id)
			continue
		}

		if err := s.RunTask(ctx, task); err != nil && ctx.Err() != nil {
			return nil
		}
	}
}

// RunTask waits the per-page jitter and processes one task. After a rate limit it
// pauses before returning; the task is picked up again on the next queue pass.
func (s *TaskScheduler) RunTask(ctx context.Context, task domain.Task) error {
	log := s.logger.With("cycle", uuid.NewString(), "task", task.ID)

	delay := s.jitter(s.cfg.MinDelay, s.cfg.MaxDelay) * time.Duration(task.Pages)
	if err := s.sleep(ctx, delay); err != nil {
		return err
	}

	err := s.pipeline.ProcessTask(ctx, log, task)
	if errors.Is(err, domain.ErrRateLimited) {
		log.Warn("rate limited, pausing", "pause", s.cfg.RateLimitPause)
		return s.sleep(ctx, s.cfg.RateLimitPause)
	}
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// randomJitter works in whole milliseconds, both bounds inclusive.
func randomJitter(lower, upper time.Duration) time.Duration {
	lo, hi := lower.Milliseconds(), upper.Milliseconds()
	if hi <= lo {
		return lower
	}
	return time.Duration(lo+rand.Int64N(hi-lo+1)) * time.Millisecond
}
