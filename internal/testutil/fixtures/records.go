package fixtures

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/davidleathers/aurelius-backend/internal/domain/records"
	"github.com/davidleathers/aurelius-backend/internal/infrastructure/logstore"
)

// InteractionBuilder builds and seeds social interaction records
type InteractionBuilder struct {
	t        *testing.T
	key      string
	platform records.Platform
	kind     string
	at       time.Time
	payload  map[string]any
}

// NewInteraction creates an InteractionBuilder with a "post" type at the current time
func NewInteraction(t *testing.T, platform records.Platform) *InteractionBuilder {
	t.Helper()
	return &InteractionBuilder{
		t:        t,
		key:      fmt.Sprintf("interaction:%s:%s", platform, uuid.NewString()),
		platform: platform,
		kind:     "post",
		at:       time.Now().UTC(),
		payload:  map[string]any{},
	}
}

// WithKey overrides the generated record key
func (b *InteractionBuilder) WithKey(key string) *InteractionBuilder {
	b.key = key
	return b
}

// WithType sets the interaction type tag
func (b *InteractionBuilder) WithType(kind string) *InteractionBuilder {
	b.kind = kind
	return b
}

// At sets the record timestamp
func (b *InteractionBuilder) At(at time.Time) *InteractionBuilder {
	b.at = at
	return b
}

// WithContent sets the free-text content
func (b *InteractionBuilder) WithContent(content string) *InteractionBuilder {
	b.payload["content"] = content
	return b
}

// WithField sets an arbitrary payload field
func (b *InteractionBuilder) WithField(name string, value any) *InteractionBuilder {
	b.payload[name] = value
	return b
}

// Seed writes the record and indexes it, returning its key
func (b *InteractionBuilder) Seed(store logstore.Store) string {
	b.t.Helper()
	fields, err := records.EncodeFields(b.kind, b.platform.String(), "", b.at, b.payload)
	require.NoError(b.t, err)
	seed(b.t, store, b.key, fields, logstore.InteractionIndexKey(b.platform.String()))
	return b.key
}

// PaymentEventBuilder builds and seeds payment gateway events
type PaymentEventBuilder struct {
	t       *testing.T
	key     string
	kind    string
	at      time.Time
	payload map[string]any
}

// NewPaymentEvent creates a PaymentEventBuilder for the given event type at the current time
func NewPaymentEvent(t *testing.T, kind string) *PaymentEventBuilder {
	t.Helper()
	return &PaymentEventBuilder{
		t:       t,
		key:     fmt.Sprintf("payment_event:%s:%s", records.PaymentPlatform, uuid.NewString()),
		kind:    kind,
		at:      time.Now().UTC(),
		payload: map[string]any{"currency": "USD"},
	}
}

// WithAmount sets the amount, as a number or numeric string
func (b *PaymentEventBuilder) WithAmount(amount any) *PaymentEventBuilder {
	b.payload["amount"] = amount
	return b
}

// At sets the event timestamp
func (b *PaymentEventBuilder) At(at time.Time) *PaymentEventBuilder {
	b.at = at
	return b
}

// Seed writes the event and indexes it, returning its key
func (b *PaymentEventBuilder) Seed(store logstore.Store) string {
	b.t.Helper()
	fields, err := records.EncodeFields(b.kind, records.PaymentPlatform, "", b.at, b.payload)
	require.NoError(b.t, err)
	seed(b.t, store, b.key, fields, logstore.PaymentEventIndexKey)
	return b.key
}

// SalesInteractionBuilder builds and seeds sales conversation steps
type SalesInteractionBuilder struct {
	t          *testing.T
	key        string
	customerID string
	kind       string
	at         time.Time
	payload    map[string]any
}

// NewSalesInteraction creates a SalesInteractionBuilder for a customer at the current time
func NewSalesInteraction(t *testing.T, customerID, kind string) *SalesInteractionBuilder {
	t.Helper()
	return &SalesInteractionBuilder{
		t:          t,
		key:        fmt.Sprintf("sales_interaction:%s:%s", customerID, uuid.NewString()),
		customerID: customerID,
		kind:       kind,
		at:         time.Now().UTC(),
		payload:    map[string]any{},
	}
}

// At sets the step timestamp
func (b *SalesInteractionBuilder) At(at time.Time) *SalesInteractionBuilder {
	b.at = at
	return b
}

// WithPlatform sets the lead source platform
func (b *SalesInteractionBuilder) WithPlatform(platform string) *SalesInteractionBuilder {
	b.payload["platform"] = platform
	return b
}

// WithResponse sets the bot's reply text
func (b *SalesInteractionBuilder) WithResponse(response string) *SalesInteractionBuilder {
	b.payload["response"] = response
	return b
}

// WithField sets an arbitrary payload field
func (b *SalesInteractionBuilder) WithField(name string, value any) *SalesInteractionBuilder {
	b.payload[name] = value
	return b
}

// Seed writes the step and indexes it per customer and globally, returning its key
func (b *SalesInteractionBuilder) Seed(store logstore.Store) string {
	b.t.Helper()
	fields, err := records.EncodeFields(b.kind, "", b.customerID, b.at, b.payload)
	require.NoError(b.t, err)
	seed(b.t, store, b.key, fields,
		logstore.CustomerInteractionsKey(b.customerID),
		logstore.SalesInteractionIndexKey)
	return b.key
}

// SeedRaw writes an arbitrary hash and indexes it, for malformed-record cases
func SeedRaw(t *testing.T, store logstore.Store, key string, fields map[string]string, indexes ...string) {
	t.Helper()
	seed(t, store, key, fields, indexes...)
}

func seed(t *testing.T, store logstore.Store, key string, fields map[string]string, indexes ...string) {
	t.Helper()
	ctx := context.Background()

	_, err := store.HSet(ctx, key, fields)
	require.NoError(t, err)

	for _, index := range indexes {
		_, err := store.LPush(ctx, index, key)
		require.NoError(t, err)
	}
}
