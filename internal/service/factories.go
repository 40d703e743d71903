package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/davidleathers/aurelius-backend/internal/infrastructure/config"
	"github.com/davidleathers/aurelius-backend/internal/infrastructure/logstore"
	"github.com/davidleathers/aurelius-backend/internal/metrics"
	"github.com/davidleathers/aurelius-backend/internal/service/analytics"
	"github.com/davidleathers/aurelius-backend/internal/service/content"
	"github.com/davidleathers/aurelius-backend/internal/service/learning"
	"github.com/davidleathers/aurelius-backend/internal/service/ratelimit"
	"github.com/davidleathers/aurelius-backend/internal/service/recorder"
	"github.com/davidleathers/aurelius-backend/internal/service/scheduler"
)

// Services holds the long-lived service instances sharing one log store. It is built once at
// startup and handed to whatever drives the services.
type Services struct {
	Recorder  recorder.Service
	Limiter   ratelimit.Limiter
	Analytics analytics.Service
	Learning  learning.Service

	// Content is nil when no OpenAI API key is configured
	Content *content.Generator
}

// NewServices wires the services over store. The learning service loads its persisted state here.
func NewServices(ctx context.Context, cfg *config.Config, store logstore.Store, logger *zap.Logger, m *metrics.Registry) *Services {
	limiter := ratelimit.NewLimiter(store, cfg.RateLimits, logger)
	learn := learning.NewService(ctx, store, logger, m)

	s := &Services{
		Recorder:  recorder.NewService(store, logger),
		Limiter:   limiter,
		Analytics: analytics.NewService(store, limiter, cfg.Analytics, logger, m),
		Learning:  learn,
	}

	if cfg.OpenAI.APIKey != "" {
		s.Content = content.NewGenerator(content.NewClient(cfg.OpenAI), learn, cfg.OpenAI, logger, m)
	} else {
		logger.Info("no OpenAI API key configured, content task disabled")
	}

	return s
}

// Tasks returns the periodic tasks of the daemon
func (s *Services) Tasks(cfg config.SchedulerConfig, logger *zap.Logger) []scheduler.Task {
	logger = logger.Named("tasks")

	tasks := []scheduler.Task{
		scheduler.AnalyticsTask(s.Analytics, cfg.AnalyticsInterval, time.Now, logger),
		scheduler.LearningTask(s.Learning, cfg.LearningInterval, logger),
		scheduler.HealthTask(s.Analytics, cfg.HealthInterval, logger),
	}
	if s.Content != nil {
		tasks = append(tasks, scheduler.ContentTask(s.Content, s.Limiter, s.Recorder, nil, cfg.ContentInterval, logger))
	}
	return tasks
}
