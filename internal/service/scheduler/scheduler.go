// Package scheduler runs the periodic analytics, learning, health and content tasks of the daemon.
package scheduler

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/davidleathers/aurelius-backend/internal/infrastructure/config"
	"github.com/davidleathers/aurelius-backend/internal/metrics"
)

// Task is a unit of periodic work. Run is called once at start and then once per Interval; after
// an error the next run waits the scheduler's retry delay instead.
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler runs tasks side by side until its context ends
type Scheduler struct {
	tasks      []Task
	retryDelay time.Duration
	logger     *zap.Logger
	metrics    *metrics.Registry
}

// New creates a Scheduler. m may be nil.
func New(cfg config.SchedulerConfig, logger *zap.Logger, m *metrics.Registry) *Scheduler {
	return &Scheduler{
		retryDelay: cfg.RetryDelay,
		logger:     logger.Named("scheduler"),
		metrics:    m,
	}
}

// Add registers a task. Tasks must be added before Run.
func (s *Scheduler) Add(tasks ...Task) {
	s.tasks = append(s.tasks, tasks...)
}

// Run blocks until ctx is cancelled and returns nil on shutdown. A failing task never stops the
// others.
func (s *Scheduler) Run(ctx context.Context) error {
	if len(s.tasks) == 0 {
		return errors.New("scheduler has no tasks")
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, task := range s.tasks {
		task := task
		g.Go(func() error {
			s.loop(ctx, task)
			return nil
		})
	}

	s.logger.Info("scheduler started", zap.Int("tasks", len(s.tasks)))
	err := g.Wait()
	s.logger.Info("scheduler stopped")
	return err
}

func (s *Scheduler) loop(ctx context.Context, task Task) {
	logger := s.logger.With(zap.String("task", task.Name))
	logger.Info("task started", zap.Duration("interval", task.Interval))

	for {
		wait := task.Interval
		if err := task.Run(ctx); err != nil {
			if ctx.Err() != nil {
				logger.Info("task abandoned on shutdown", zap.Error(err))
				return
			}
			logger.Error("task failed", zap.Error(err), zap.Duration("retry_in", s.retryDelay))
			s.metrics.RecordTaskError(task.Name)
			wait = s.retryDelay
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Info("task stopped")
			return
		case <-timer.C:
		}
	}
}
