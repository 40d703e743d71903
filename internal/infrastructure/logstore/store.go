// Package logstore is the append-only event log shared by the platform clients and the analytics
// and learning services: one hash per record, per-topic index lists of record keys (newest first)
// and scalar cells for reports and learned state.
package logstore

import (
	"context"
	"fmt"
	"time"
)

// Store is the log-store contract consumed by the services.
type Store interface {
	// Get returns the scalar value stored at key or ErrKeyNotFound
	Get(ctx context.Context, key string) (string, error)

	// Set stores a scalar value; a zero ttl means no expiry
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// HGet returns one hash field or ErrKeyNotFound
	HGet(ctx context.Context, key, field string) (string, error)

	// HGetAll returns every field of a hash; a missing hash is an empty map
	HGetAll(ctx context.Context, key string) (map[string]string, error)

	// HSet writes the given fields and returns how many were newly created
	HSet(ctx context.Context, key string, fields map[string]string) (int64, error)

	// Incr atomically increments an integer scalar
	Incr(ctx context.Context, key string) (int64, error)

	// LPush prepends values to a list and returns its new length
	LPush(ctx context.Context, key string, values ...string) (int64, error)

	// LRange returns list elements between start and stop inclusive; stop -1 means the tail
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)

	// Delete removes a key of any kind
	Delete(ctx context.Context, key string) error

	// Ping checks the backend is reachable
	Ping(ctx context.Context) error

	// Backend names the implementation ("redis" or "sqlite")
	Backend() string

	// Close releases the connection
	Close() error
}

// ErrKeyNotFound is returned when a scalar key or hash field doesn't exist
type ErrKeyNotFound struct {
	Key string
}

func (e ErrKeyNotFound) Error() string {
	return "log store key not found: " + e.Key
}

// Index lists and well-known keys
const (
	PaymentEventIndexKey     = "payment_events:paypal"
	SalesInteractionIndexKey = "sales_interactions"
	LearningPatternsKey      = "learning_patterns"
	StrategyUpdatesKey       = "strategy_updates"

	reportKeyPrefix = "analytics_report"
)

// InteractionIndexKey is the newest-first list of interaction record keys for a platform
func InteractionIndexKey(platform string) string {
	return "interactions:" + platform
}

// CustomerInteractionsKey is the newest-first list of sales interaction keys for one customer
func CustomerInteractionsKey(customerID string) string {
	return "customer_interactions:" + customerID
}

// ReportKey is where a generated report is persisted: analytics_report:{period}:{YYYY-MM-DD}
func ReportKey(period string, start time.Time) string {
	return fmt.Sprintf("%s:%s:%s", reportKeyPrefix, period, start.Format("2006-01-02"))
}
