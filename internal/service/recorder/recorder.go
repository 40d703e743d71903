// Package recorder appends interaction, payment and sales records to the log store on behalf of the
// platform clients.
package recorder

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/davidleathers/aurelius-backend/internal/domain/errors"
	"github.com/davidleathers/aurelius-backend/internal/domain/records"
	"github.com/davidleathers/aurelius-backend/internal/infrastructure/logstore"
)

// Service is the write side of the event log
type Service interface {
	// LogInteraction records a social-platform event and indexes it under interactions:{platform}
	LogInteraction(ctx context.Context, platform records.Platform, interactionType string, payload any) (string, error)

	// LogPaymentEvent records a payment gateway event and indexes it under payment_events:paypal
	LogPaymentEvent(ctx context.Context, eventType string, payload any) (string, error)

	// LogSalesInteraction records a sales conversation step, indexed globally and per customer
	LogSalesInteraction(ctx context.Context, customerID, interactionType string, payload any) (string, error)
}

type service struct {
	store  logstore.Store
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

// NewService creates a recorder writing to store
func NewService(store logstore.Store, logger *zap.Logger) Service {
	return &service{
		store:  store,
		logger: logger.Named("recorder"),
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
}

func (s *service) LogInteraction(ctx context.Context, platform records.Platform, interactionType string, payload any) (string, error) {
	if platform == "" {
		return "", apperrors.NewValidationError("INVALID_PLATFORM", "platform is required")
	}

	key := fmt.Sprintf("interaction:%s:%s", platform, s.newID())
	fields, err := records.EncodeFields(interactionType, platform.String(), "", s.now(), payload)
	if err != nil {
		return "", apperrors.NewValidationError("INVALID_PAYLOAD", "interaction payload is not serializable").WithCause(err)
	}

	if err := s.write(ctx, key, fields, logstore.InteractionIndexKey(platform.String())); err != nil {
		return "", err
	}

	s.logger.Debug("interaction logged",
		zap.String("key", key),
		zap.String("platform", platform.String()),
		zap.String("type", interactionType))

	return key, nil
}

func (s *service) LogPaymentEvent(ctx context.Context, eventType string, payload any) (string, error) {
	key := fmt.Sprintf("payment_event:%s:%s", records.PaymentPlatform, s.newID())
	fields, err := records.EncodeFields(eventType, records.PaymentPlatform, "", s.now(), payload)
	if err != nil {
		return "", apperrors.NewValidationError("INVALID_PAYLOAD", "payment payload is not serializable").WithCause(err)
	}

	if err := s.write(ctx, key, fields, logstore.PaymentEventIndexKey); err != nil {
		return "", err
	}

	s.logger.Info("payment event logged", zap.String("key", key), zap.String("type", eventType))
	return key, nil
}

func (s *service) LogSalesInteraction(ctx context.Context, customerID, interactionType string, payload any) (string, error) {
	if customerID == "" {
		return "", apperrors.NewValidationError("INVALID_CUSTOMER", "customer id is required")
	}

	key := fmt.Sprintf("sales_interaction:%s:%s", customerID, s.newID())
	fields, err := records.EncodeFields(interactionType, "", customerID, s.now(), payload)
	if err != nil {
		return "", apperrors.NewValidationError("INVALID_PAYLOAD", "sales payload is not serializable").WithCause(err)
	}

	if err := s.write(ctx, key, fields,
		logstore.CustomerInteractionsKey(customerID),
		logstore.SalesInteractionIndexKey); err != nil {
		return "", err
	}

	s.logger.Info("sales interaction logged",
		zap.String("key", key),
		zap.String("customer_id", customerID),
		zap.String("type", interactionType))

	return key, nil
}

// write stores the hash first so an index never points at a record that was not written
func (s *service) write(ctx context.Context, key string, fields map[string]string, indexes ...string) error {
	if _, err := s.store.HSet(ctx, key, fields); err != nil {
		return apperrors.NewExternalError("logstore", "failed to write record").WithCause(err)
	}

	for _, index := range indexes {
		if _, err := s.store.LPush(ctx, index, key); err != nil {
			return apperrors.NewExternalError("logstore", "failed to index record").
				WithCause(err).
				WithDetails(map[string]interface{}{"index": index, "key": key})
		}
	}

	return nil
}
