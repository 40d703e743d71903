package logstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

// SQLiteStore is the file-backed fallback used when Redis is unreachable. It emulates the
// scalar, hash and list semantics the services rely on; expiry applies to scalars only.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewSQLiteStore opens (or creates) the fallback database at path
func NewSQLiteStore(path string, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite serializes writers; one connection avoids SQLITE_BUSY between pooled conns
	db.SetMaxOpenConns(1)

	schema := []string{
		`CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			expires_at INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS hashes (
			key TEXT NOT NULL,
			field TEXT NOT NULL,
			value TEXT NOT NULL,
			PRIMARY KEY (key, field)
		)`,
		`CREATE TABLE IF NOT EXISTS lists (
			key TEXT NOT NULL,
			pos INTEGER NOT NULL,
			value TEXT NOT NULL,
			PRIMARY KEY (key, pos)
		)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create table: %w", err)
		}
	}

	logger.Warn("using local sqlite log store, data persistence may be degraded", zap.String("path", path))

	return &SQLiteStore{
		db:     db,
		logger: logger,
		now:    time.Now,
	}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	var expiresAt sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT value, expires_at FROM kv WHERE key = ?`, key).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrKeyNotFound{Key: key}
	}
	if err != nil {
		s.logger.Error("sqlite get failed", zap.String("key", key), zap.Error(err))
		return "", fmt.Errorf("sqlite get failed: %w", err)
	}

	if expiresAt.Valid && s.now().UnixNano() >= expiresAt.Int64 {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
			s.logger.Warn("sqlite expired key cleanup failed", zap.String("key", key), zap.Error(err))
		}
		return "", ErrKeyNotFound{Key: key}
	}

	return value, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	var expiresAt sql.NullInt64
	if ttl > 0 {
		expiresAt = sql.NullInt64{Int64: s.now().Add(ttl).UnixNano(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at
	`, key, value, expiresAt)
	if err != nil {
		s.logger.Error("sqlite set failed", zap.String("key", key), zap.Duration("ttl", ttl), zap.Error(err))
		return fmt.Errorf("sqlite set failed: %w", err)
	}

	return nil
}

func (s *SQLiteStore) HGet(ctx context.Context, key, field string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM hashes WHERE key = ? AND field = ?`, key, field).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrKeyNotFound{Key: key + "#" + field}
	}
	if err != nil {
		s.logger.Error("sqlite hget failed", zap.String("key", key), zap.String("field", field), zap.Error(err))
		return "", fmt.Errorf("sqlite hget failed: %w", err)
	}

	return value, nil
}

func (s *SQLiteStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT field, value FROM hashes WHERE key = ?`, key)
	if err != nil {
		s.logger.Error("sqlite hgetall failed", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("sqlite hgetall failed: %w", err)
	}
	defer rows.Close()

	result := make(map[string]string)
	for rows.Next() {
		var field, value string
		if err := rows.Scan(&field, &value); err != nil {
			return nil, fmt.Errorf("sqlite hgetall scan failed: %w", err)
		}
		result[field] = value
	}

	return result, rows.Err()
}

func (s *SQLiteStore) HSet(ctx context.Context, key string, fields map[string]string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite hset begin failed: %w", err)
	}
	defer tx.Rollback()

	var created int64
	for field, value := range fields {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM hashes WHERE key = ? AND field = ?`, key, field).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			created++
		} else if err != nil {
			return 0, fmt.Errorf("sqlite hset lookup failed: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO hashes (key, field, value) VALUES (?, ?, ?)
			ON CONFLICT(key, field) DO UPDATE SET value = excluded.value
		`, key, field, value); err != nil {
			s.logger.Error("sqlite hset failed", zap.String("key", key), zap.Error(err))
			return 0, fmt.Errorf("sqlite hset failed: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite hset commit failed: %w", err)
	}

	return created, nil
}

func (s *SQLiteStore) Incr(ctx context.Context, key string) (int64, error) {
	current, err := s.Get(ctx, key)
	var notFound ErrKeyNotFound
	switch {
	case errors.As(err, &notFound):
		current = "0"
	case err != nil:
		return 0, err
	}

	value, err := strconv.ParseInt(current, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("sqlite incr: value at %s is not an integer: %w", key, err)
	}
	value++

	// INCR keeps the existing expiry
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, expires_at) VALUES (?, ?, NULL)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, strconv.FormatInt(value, 10)); err != nil {
		s.logger.Error("sqlite incr failed", zap.String("key", key), zap.Error(err))
		return 0, fmt.Errorf("sqlite incr failed: %w", err)
	}

	return value, nil
}

func (s *SQLiteStore) LPush(ctx context.Context, key string, values ...string) (int64, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("lpush requires at least one value")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite lpush begin failed: %w", err)
	}
	defer tx.Rollback()

	var head sql.NullInt64
	if err := tx.QueryRowContext(ctx, `SELECT MIN(pos) FROM lists WHERE key = ?`, key).Scan(&head); err != nil {
		return 0, fmt.Errorf("sqlite lpush head lookup failed: %w", err)
	}

	pos := int64(0)
	if head.Valid {
		pos = head.Int64
	}
	for _, v := range values {
		pos--
		if _, err := tx.ExecContext(ctx, `INSERT INTO lists (key, pos, value) VALUES (?, ?, ?)`, key, pos, v); err != nil {
			s.logger.Error("sqlite lpush failed", zap.String("key", key), zap.Error(err))
			return 0, fmt.Errorf("sqlite lpush failed: %w", err)
		}
	}

	var length int64
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM lists WHERE key = ?`, key).Scan(&length); err != nil {
		return 0, fmt.Errorf("sqlite lpush count failed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite lpush commit failed: %w", err)
	}

	return length, nil
}

func (s *SQLiteStore) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	var length int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM lists WHERE key = ?`, key).Scan(&length); err != nil {
		s.logger.Error("sqlite lrange count failed", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("sqlite lrange failed: %w", err)
	}

	offset, count, ok := normalizeRange(length, start, stop)
	if !ok {
		return []string{}, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT value FROM lists WHERE key = ? ORDER BY pos ASC LIMIT ? OFFSET ?`, key, count, offset)
	if err != nil {
		s.logger.Error("sqlite lrange failed", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("sqlite lrange failed: %w", err)
	}
	defer rows.Close()

	result := make([]string, 0, count)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("sqlite lrange scan failed: %w", err)
		}
		result = append(result, v)
	}

	return result, rows.Err()
}

// normalizeRange applies Redis LRANGE index rules and returns offset and count.
func normalizeRange(length, start, stop int64) (int64, int64, bool) {
	if start < 0 {
		start += length
		if start < 0 {
			start = 0
		}
	}
	if stop < 0 {
		stop += length
	}
	if stop >= length {
		stop = length - 1
	}
	if start >= length || start > stop {
		return 0, 0, false
	}
	return start, stop - start + 1, true
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	for _, stmt := range []string{
		`DELETE FROM kv WHERE key = ?`,
		`DELETE FROM hashes WHERE key = ?`,
		`DELETE FROM lists WHERE key = ?`,
	} {
		if _, err := s.db.ExecContext(ctx, stmt, key); err != nil {
			s.logger.Error("sqlite delete failed", zap.String("key", key), zap.Error(err))
			return fmt.Errorf("sqlite delete failed: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Backend() string {
	return "sqlite"
}

func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("sqlite close failed: %w", err)
	}
	s.logger.Info("sqlite log store closed")
	return nil
}
