package testutil

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/davidleathers/aurelius-backend/internal/infrastructure/config"
	"github.com/davidleathers/aurelius-backend/internal/infrastructure/logstore"
)

// TestStore is a Redis-backed log store running on miniredis
type TestStore struct {
	*logstore.RedisStore
	Server *miniredis.Miniredis
}

// NewTestStore starts miniredis and connects a RedisStore to it. Both are closed on cleanup.
func NewTestStore(t *testing.T) *TestStore {
	t.Helper()

	mr := miniredis.RunT(t)

	store, err := logstore.NewRedisStore(&config.RedisConfig{
		URL:          mr.Addr(),
		PoolSize:     5,
		MinIdleConns: 1,
		MaxRetries:   1,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	t.Cleanup(func() { store.Close() })

	return &TestStore{RedisStore: store, Server: mr}
}
