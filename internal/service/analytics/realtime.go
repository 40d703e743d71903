package analytics

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/davidleathers/aurelius-backend/internal/domain/records"
	"github.com/davidleathers/aurelius-backend/internal/service/logscan"
	"github.com/davidleathers/aurelius-backend/internal/service/ratelimit"
)

const (
	statusOperational = "operational"
	statusDegraded    = "degraded"

	storeConnected    = "connected"
	storeDisconnected = "disconnected"
)

// RealTimeMetrics reports the last hour of activity. Unavailable parts are logged and left empty.
func (s *service) RealTimeMetrics(ctx context.Context) (*RealTimeMetrics, error) {
	now := s.now().UTC().Round(0)
	lastHour := Window{Start: now.Add(-time.Hour), End: now}

	m := &RealTimeMetrics{
		Timestamp:      now,
		SystemStatus:   statusOperational,
		StoreBackend:   s.store.Backend(),
		DatabaseStatus: storeConnected,
		RateLimits:     make(map[string]ratelimit.Status, len(records.Platforms)),
	}

	if err := s.store.Ping(ctx); err != nil {
		s.logger.Error("log store ping failed", zap.Error(err))
		m.DatabaseStatus = storeDisconnected
		m.SystemStatus = statusDegraded
		return m, nil
	}

	if s.limiter != nil {
		for _, platform := range records.Platforms {
			status, err := s.limiter.Status(ctx, platform.String())
			if err != nil {
				s.logger.Warn("failed to read rate limit status", zap.String("platform", platform.String()), zap.Error(err))
				continue
			}
			m.RateLimits[platform.String()] = status
			s.metrics.SetRateLimitRemaining(platform.String(), status.Remaining)
		}
	}

	for _, platform := range records.Platforms {
		recs, err := s.scanner.Interactions(ctx, platform, logscan.All)
		if err != nil {
			s.logger.Warn("failed to read recent interactions", zap.String("platform", platform.String()), zap.Error(err))
			m.SystemStatus = statusDegraded
			continue
		}
		for _, rec := range recs {
			if !lastHour.Contains(rec.Timestamp) {
				continue
			}
			m.RecentActivity.LastHourInteractions++
			if strings.Contains(rec.Type, classPost) {
				m.RecentActivity.LastHourPosts++
			}
		}
	}

	sales := s.sales(ctx, lastHour)
	if sales.Degraded {
		m.SystemStatus = statusDegraded
	}
	m.RecentActivity.LastHourSales = sales.Value.TotalSales

	return m, nil
}
