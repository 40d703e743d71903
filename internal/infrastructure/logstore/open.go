package logstore

import (
	"context"

	"go.uber.org/zap"

	apperrors "github.com/davidleathers/aurelius-backend/internal/domain/errors"
	"github.com/davidleathers/aurelius-backend/internal/infrastructure/config"
)

// Open connects to Redis and, when that fails and the local store is enabled, falls back to
// the sqlite file store so the bot keeps logging and reporting in degraded mode.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Store, error) {
	redisStore, err := NewRedisStore(&cfg.Redis, logger)
	if err == nil {
		return redisStore, nil
	}

	if !cfg.LocalStore.Enabled {
		return nil, apperrors.NewExternalError("redis", "log store unavailable").WithCause(err)
	}

	logger.Warn("failed to connect to redis, falling back to local storage",
		zap.String("addr", cfg.Redis.URL),
		zap.Error(err))

	sqliteStore, sqliteErr := NewSQLiteStore(cfg.LocalStore.Path, logger)
	if sqliteErr != nil {
		return nil, apperrors.NewInternalError("local log store unavailable").WithCause(sqliteErr)
	}

	if err := sqliteStore.Ping(ctx); err != nil {
		sqliteStore.Close()
		return nil, apperrors.NewInternalError("local log store ping failed").WithCause(err)
	}

	return sqliteStore, nil
}
