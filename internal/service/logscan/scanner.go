// Package logscan reads typed records back out of the log store's index lists.
//
// Each index entry is decoded on its own: a record that cannot be decoded is logged once at warn
// level and skipped, while a store failure aborts the scan and is returned to the caller.
package logscan

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/davidleathers/aurelius-backend/internal/domain/records"
	"github.com/davidleathers/aurelius-backend/internal/infrastructure/logstore"
	"github.com/davidleathers/aurelius-backend/internal/metrics"
)

// All scans a whole index
const All int64 = -1

// Scanner decodes the records referenced by the log store indexes
type Scanner struct {
	store   logstore.Store
	logger  *zap.Logger
	metrics *metrics.Registry
}

// NewScanner creates a Scanner. m may be nil.
func NewScanner(store logstore.Store, logger *zap.Logger, m *metrics.Registry) *Scanner {
	return &Scanner{
		store:   store,
		logger:  logger,
		metrics: m,
	}
}

// Interactions returns the newest interaction records of a platform. stop is the last index
// position to read (inclusive) or All.
func (s *Scanner) Interactions(ctx context.Context, platform records.Platform, stop int64) ([]records.InteractionRecord, error) {
	return scan(ctx, s, logstore.InteractionIndexKey(platform.String()), stop, records.DecodeInteraction)
}

// PaymentEvents returns the newest payment gateway events
func (s *Scanner) PaymentEvents(ctx context.Context, stop int64) ([]records.PaymentEvent, error) {
	return scan(ctx, s, logstore.PaymentEventIndexKey, stop, records.DecodePaymentEvent)
}

// SalesInteractions returns the newest sales conversation steps across all customers
func (s *Scanner) SalesInteractions(ctx context.Context, stop int64) ([]records.SalesInteraction, error) {
	return scan(ctx, s, logstore.SalesInteractionIndexKey, stop, records.DecodeSalesInteraction)
}

// CustomerInteractionCount returns how many sales steps a customer has ever logged
func (s *Scanner) CustomerInteractionCount(ctx context.Context, customerID string) (int, error) {
	keys, err := s.store.LRange(ctx, logstore.CustomerInteractionsKey(customerID), 0, All)
	if err != nil {
		return 0, fmt.Errorf("list interactions of customer %s: %w", customerID, err)
	}
	return len(keys), nil
}

// Skip logs a record that decoded but could not be used. It must be the only warning for that record.
func (s *Scanner) Skip(topic, key string, err error) {
	s.logger.Warn("skipping unparsable record",
		zap.String("topic", topic),
		zap.String("key", key),
		zap.Error(err))
	s.metrics.RecordSkippedRecord(topic)
}

func scan[T any](
	ctx context.Context,
	s *Scanner,
	index string,
	stop int64,
	decode func(key string, fields map[string]string) (T, error),
) ([]T, error) {
	keys, err := s.store.LRange(ctx, index, 0, stop)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", index, err)
	}

	out := make([]T, 0, len(keys))
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		fields, err := s.store.HGetAll(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", key, err)
		}

		rec, err := decode(key, fields)
		if errors.Is(err, records.ErrEmptyRecord) {
			// index entry outlived its hash
			continue
		}
		if err != nil {
			s.Skip(index, key, err)
			continue
		}

		out = append(out, rec)
	}

	return out, nil
}
