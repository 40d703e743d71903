package logstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	apperrors "github.com/davidleathers/aurelius-backend/internal/domain/errors"
	"github.com/davidleathers/aurelius-backend/internal/infrastructure/config"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	cfg := &config.RedisConfig{
		URL:          mr.Addr(),
		PoolSize:     5,
		MinIdleConns: 1,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}

	store, err := NewRedisStore(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store, mr
}

func setupTestSQLite(t *testing.T) *SQLiteStore {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "store", "aurelius.db"), zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// storeContract runs the behaviour every backend must share.
func storeContract(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("scalar set and get", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "learning_patterns", `{"cycle_count":1}`, 0))

		value, err := store.Get(ctx, "learning_patterns")
		require.NoError(t, err)
		assert.Equal(t, `{"cycle_count":1}`, value)
	})

	t.Run("missing scalar", func(t *testing.T) {
		_, err := store.Get(ctx, "nope")
		var notFound ErrKeyNotFound
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "nope", notFound.Key)
	})

	t.Run("hash fields", func(t *testing.T) {
		created, err := store.HSet(ctx, "interaction:twitter:1", map[string]string{
			"type":      "post_tweet",
			"timestamp": "2024-03-04T10:00:00Z",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), created)

		created, err = store.HSet(ctx, "interaction:twitter:1", map[string]string{
			"type": "reply",
			"data": `{"content":"hi"}`,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), created)

		all, err := store.HGetAll(ctx, "interaction:twitter:1")
		require.NoError(t, err)
		assert.Equal(t, map[string]string{
			"type":      "reply",
			"timestamp": "2024-03-04T10:00:00Z",
			"data":      `{"content":"hi"}`,
		}, all)

		field, err := store.HGet(ctx, "interaction:twitter:1", "data")
		require.NoError(t, err)
		assert.Equal(t, `{"content":"hi"}`, field)

		_, err = store.HGet(ctx, "interaction:twitter:1", "missing")
		assert.ErrorAs(t, err, &ErrKeyNotFound{})
	})

	t.Run("missing hash is empty", func(t *testing.T) {
		all, err := store.HGetAll(ctx, "interaction:none")
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("increment", func(t *testing.T) {
		for want := int64(1); want <= 3; want++ {
			got, err := store.Incr(ctx, "twitter_rate_limit:2024-03-04-10")
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
	})

	t.Run("list push and range", func(t *testing.T) {
		n, err := store.LPush(ctx, "interactions:mastodon", "k1")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		n, err = store.LPush(ctx, "interactions:mastodon", "k2", "k3")
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)

		all, err := store.LRange(ctx, "interactions:mastodon", 0, -1)
		require.NoError(t, err)
		assert.Equal(t, []string{"k3", "k2", "k1"}, all)

		head, err := store.LRange(ctx, "interactions:mastodon", 0, 1)
		require.NoError(t, err)
		assert.Equal(t, []string{"k3", "k2"}, head)

		beyond, err := store.LRange(ctx, "interactions:mastodon", 0, 100)
		require.NoError(t, err)
		assert.Len(t, beyond, 3)

		tail, err := store.LRange(ctx, "interactions:mastodon", -1, -1)
		require.NoError(t, err)
		assert.Equal(t, []string{"k1"}, tail)

		empty, err := store.LRange(ctx, "interactions:none", 0, -1)
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "strategy_updates", "{}", 0))
		require.NoError(t, store.Delete(ctx, "strategy_updates"))
		_, err := store.Get(ctx, "strategy_updates")
		assert.ErrorAs(t, err, &ErrKeyNotFound{})
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, store.Ping(ctx))
	})
}

func TestRedisStore(t *testing.T) {
	store, _ := setupTestRedis(t)
	assert.Equal(t, "redis", store.Backend())
	storeContract(t, store)
}

func TestSQLiteStore(t *testing.T) {
	store := setupTestSQLite(t)
	assert.Equal(t, "sqlite", store.Backend())
	storeContract(t, store)
}

func TestRedisStore_TTL(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	key := ReportKey("daily", time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC))
	require.NoError(t, store.Set(ctx, key, "{}", 30*24*time.Hour))
	assert.Equal(t, 30*24*time.Hour, mr.TTL(key))

	mr.FastForward(31 * 24 * time.Hour)
	_, err := store.Get(ctx, key)
	assert.ErrorAs(t, err, &ErrKeyNotFound{})
}

func TestSQLiteStore_TTL(t *testing.T) {
	store := setupTestSQLite(t)
	ctx := context.Background()

	now := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Set(ctx, "report", "{}", time.Hour))
	_, err := store.Get(ctx, "report")
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, err = store.Get(ctx, "report")
	assert.ErrorAs(t, err, &ErrKeyNotFound{})
}

func TestNewRedisStore_Errors(t *testing.T) {
	t.Run("nil logger", func(t *testing.T) {
		_, err := NewRedisStore(&config.RedisConfig{URL: "localhost:6379"}, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "logger is required")
	})

	t.Run("nil config", func(t *testing.T) {
		_, err := NewRedisStore(nil, zaptest.NewLogger(t))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "redis config is required")
	})

	t.Run("connection failure", func(t *testing.T) {
		_, err := NewRedisStore(&config.RedisConfig{
			URL:         "localhost:1",
			DialTimeout: 100 * time.Millisecond,
		}, zaptest.NewLogger(t))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "redis connection failed")
	})
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("prefers redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := config.Defaults()
		cfg.Redis.URL = mr.Addr()

		store, err := Open(ctx, cfg, zaptest.NewLogger(t))
		require.NoError(t, err)
		defer store.Close()
		assert.Equal(t, "redis", store.Backend())
	})

	t.Run("falls back to sqlite", func(t *testing.T) {
		cfg := config.Defaults()
		cfg.Redis.URL = "localhost:1"
		cfg.Redis.DialTimeout = 100 * time.Millisecond
		cfg.Redis.MaxRetries = -1
		cfg.LocalStore.Path = filepath.Join(t.TempDir(), "fallback.db")

		store, err := Open(ctx, cfg, zaptest.NewLogger(t))
		require.NoError(t, err)
		defer store.Close()
		assert.Equal(t, "sqlite", store.Backend())
	})

	t.Run("fails without fallback", func(t *testing.T) {
		cfg := config.Defaults()
		cfg.Redis.URL = "localhost:1"
		cfg.Redis.DialTimeout = 100 * time.Millisecond
		cfg.Redis.MaxRetries = -1
		cfg.LocalStore.Enabled = false

		_, err := Open(ctx, cfg, zaptest.NewLogger(t))
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExternal))
	})
}

func TestReportKey(t *testing.T) {
	start := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "analytics_report:monthly:2024-12-01", ReportKey("monthly", start))
	assert.Equal(t, "interactions:discord", InteractionIndexKey("discord"))
	assert.Equal(t, "customer_interactions:c-42", CustomerInteractionsKey("c-42"))
}
