// Package ratelimit tracks per-platform hourly call budgets in the log store.
//
// Counters are fixed hourly windows keyed {platform}_rate_limit:{YYYY-MM-DD-HH}. Increments are not
// serialized against each other; two processes sharing a budget may lose an update.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/davidleathers/aurelius-backend/internal/infrastructure/config"
	"github.com/davidleathers/aurelius-backend/internal/infrastructure/logstore"
)

const (
	hourLayout = "2006-01-02-15"

	// markerTTL outlives the counter's hour so stale windows can be told apart
	markerTTL = 2 * time.Hour
)

// Status is the current budget of one platform
type Status struct {
	CurrentCount int64     `json:"current_count"`
	Limit        int       `json:"limit"`
	Remaining    int       `json:"remaining"`
	ResetTime    time.Time `json:"reset_time"`
}

// Limiter checks and consumes hourly platform budgets
type Limiter interface {
	// Allow reports whether another call fits in the current hour
	Allow(ctx context.Context, platform string) (bool, error)

	// Increment consumes one call from the current hour
	Increment(ctx context.Context, platform string) (int64, error)

	// Status reports the current hour's usage
	Status(ctx context.Context, platform string) (Status, error)
}

type limiter struct {
	store  logstore.Store
	limits config.RateLimitConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewLimiter creates a Limiter over store with per-platform limits
func NewLimiter(store logstore.Store, limits config.RateLimitConfig, logger *zap.Logger) Limiter {
	return &limiter{
		store:  store,
		limits: limits,
		logger: logger.Named("ratelimit"),
		now:    time.Now,
	}
}

// Key returns the counter key of the hour containing at
func Key(platform string, at time.Time) string {
	return fmt.Sprintf("%s_rate_limit:%s", platform, at.UTC().Format(hourLayout))
}

func (l *limiter) Allow(ctx context.Context, platform string) (bool, error) {
	count, err := l.current(ctx, platform, l.now())
	if err != nil {
		return false, err
	}

	limit := l.limits.Limit(platform)
	if count >= int64(limit) {
		l.logger.Warn("rate limit reached",
			zap.String("platform", platform),
			zap.Int64("current_count", count),
			zap.Int("limit", limit))
		return false, nil
	}

	return true, nil
}

func (l *limiter) Increment(ctx context.Context, platform string) (int64, error) {
	key := Key(platform, l.now())

	count, err := l.store.Incr(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("increment %s: %w", key, err)
	}

	if err := l.store.Set(ctx, key+"_exp", "1", markerTTL); err != nil {
		l.logger.Warn("failed to set rate limit expiry marker", zap.String("key", key), zap.Error(err))
	}

	return count, nil
}

func (l *limiter) Status(ctx context.Context, platform string) (Status, error) {
	now := l.now().UTC()

	count, err := l.current(ctx, platform, now)
	if err != nil {
		return Status{}, err
	}

	limit := l.limits.Limit(platform)
	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return Status{
		CurrentCount: count,
		Limit:        limit,
		Remaining:    remaining,
		ResetTime:    now.Truncate(time.Hour).Add(time.Hour),
	}, nil
}

func (l *limiter) current(ctx context.Context, platform string, at time.Time) (int64, error) {
	key := Key(platform, at)

	value, err := l.store.Get(ctx, key)
	var notFound logstore.ErrKeyNotFound
	if errors.As(err, &notFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", key, err)
	}

	count, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("counter %s is not an integer: %w", key, err)
	}

	return count, nil
}
