package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/davidleathers/aurelius-backend/internal/domain/records"
	"github.com/davidleathers/aurelius-backend/internal/service/analytics"
	"github.com/davidleathers/aurelius-backend/internal/service/learning"
	"github.com/davidleathers/aurelius-backend/internal/service/ratelimit"
	"github.com/davidleathers/aurelius-backend/internal/service/recorder"
)

// LowRateLimitThreshold is the remaining budget below which the health task warns
const LowRateLimitThreshold = 10

// Task names, used as metric labels
const (
	TaskAnalytics = "analytics"
	TaskLearning  = "learning"
	TaskHealth    = "health"
	TaskContent   = "content"
)

// AnalyticsTask generates and exports the daily report on every run, the weekly report on
// Mondays and the monthly report on the first of the month (UTC).
func AnalyticsTask(svc analytics.Service, interval time.Duration, now func() time.Time, logger *zap.Logger) Task {
	return Task{
		Name:     TaskAnalytics,
		Interval: interval,
		Run: func(ctx context.Context) error {
			today := now().UTC()

			periods := []analytics.Period{analytics.PeriodDaily}
			if today.Weekday() == time.Monday {
				periods = append(periods, analytics.PeriodWeekly)
			}
			if today.Day() == 1 {
				periods = append(periods, analytics.PeriodMonthly)
			}

			var errs []error
			for _, period := range periods {
				report, err := svc.GenerateReport(ctx, period)
				if err != nil {
					errs = append(errs, fmt.Errorf("%s report: %w", period, err))
					continue
				}
				logger.Info("generated analytics report",
					zap.String("period", period.String()),
					zap.Strings("degraded", report.DegradedSections))

				if period == analytics.PeriodDaily {
					if _, err := svc.ExportReport(report); err != nil {
						logger.Warn("daily report export failed", zap.Error(err))
					}
				}
			}
			return errors.Join(errs...)
		},
	}
}

// LearningTask runs one learning cycle per interval
func LearningTask(svc learning.Service, interval time.Duration, logger *zap.Logger) Task {
	return Task{
		Name:     TaskLearning,
		Interval: interval,
		Run: func(ctx context.Context) error {
			summary, err := svc.RunLearningCycle(ctx)
			if err != nil {
				return err
			}
			if summary.InsightsGenerated > 0 {
				logger.Info("learning cycle completed", zap.Int("insights", summary.InsightsGenerated))
			} else {
				logger.Info("learning cycle completed: no new insights")
			}
			return nil
		},
	}
}

// HealthTask logs the real-time metrics and warns about platforms close to their hourly budget
func HealthTask(svc analytics.Service, interval time.Duration, logger *zap.Logger) Task {
	return Task{
		Name:     TaskHealth,
		Interval: interval,
		Run: func(ctx context.Context) error {
			m, err := svc.RealTimeMetrics(ctx)
			if err != nil {
				return err
			}

			logger.Info("system health",
				zap.String("status", m.SystemStatus),
				zap.String("store", m.DatabaseStatus))
			logger.Debug("recent activity",
				zap.Int("posts", m.RecentActivity.LastHourPosts),
				zap.Int("interactions", m.RecentActivity.LastHourInteractions),
				zap.Int("sales", m.RecentActivity.LastHourSales))

			for _, platform := range records.Platforms {
				status, ok := m.RateLimits[platform.String()]
				if ok && status.Remaining < LowRateLimitThreshold {
					logger.Warn("rate limit low",
						zap.String("platform", platform.String()),
						zap.Int("remaining", status.Remaining))
				}
			}
			return nil
		},
	}
}

// PostWriter writes posts; *content.Generator satisfies it
type PostWriter interface {
	Post(ctx context.Context, topic string, platform records.Platform) (string, error)
}

// DefaultTopics are rotated through by the content task
var DefaultTopics = []string{
	"business automation tips",
	"social media management insights",
	"productivity improvements",
	"AI-powered business solutions",
	"customer engagement strategies",
}

// ContentTask drafts one post per platform with budget left and logs each as a "draft"
// interaction. Topics rotate in order. Publishing a draft, and spending budget on it, is left to
// the platform clients.
func ContentTask(
	writer PostWriter,
	limiter ratelimit.Limiter,
	rec recorder.Service,
	topics []string,
	interval time.Duration,
	logger *zap.Logger,
) Task {
	if len(topics) == 0 {
		topics = DefaultTopics
	}
	var next atomic.Uint64

	return Task{
		Name:     TaskContent,
		Interval: interval,
		Run: func(ctx context.Context) error {
			topic := topics[(next.Add(1)-1)%uint64(len(topics))]

			var failed []string
			for _, platform := range records.Platforms {
				allowed, err := limiter.Allow(ctx, platform.String())
				if err != nil {
					return err
				}
				if !allowed {
					logger.Warn("rate limit reached, skipping", zap.String("platform", platform.String()))
					continue
				}

				post, err := writer.Post(ctx, topic, platform)
				if err != nil {
					failed = append(failed, platform.String())
					continue
				}

				if _, err := rec.LogInteraction(ctx, platform, "draft", map[string]any{
					"content": post,
					"topic":   topic,
				}); err != nil {
					return err
				}
			}

			if len(failed) > 0 {
				return fmt.Errorf("content generation failed for %s", strings.Join(failed, ", "))
			}
			return nil
		},
	}
}
