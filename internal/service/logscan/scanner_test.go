package logscan

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/davidleathers/aurelius-backend/internal/domain/records"
	"github.com/davidleathers/aurelius-backend/internal/infrastructure/logstore"
	"github.com/davidleathers/aurelius-backend/internal/testutil"
	"github.com/davidleathers/aurelius-backend/internal/testutil/fixtures"
	"github.com/davidleathers/aurelius-backend/internal/testutil/mocks"
)

func TestScanner_Interactions(t *testing.T) {
	store := testutil.NewTestStore(t)
	core, logs := observer.New(zap.WarnLevel)
	scanner := NewScanner(store, zap.New(core), nil)
	ctx := testutil.TestContext(t)

	at := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	first := fixtures.NewInteraction(t, records.PlatformTwitter).WithType("post").At(at).Seed(store)
	fixtures.SeedRaw(t, store, "interaction:twitter:bad-json", map[string]string{
		records.FieldType:      "reply",
		records.FieldTimestamp: "2024-03-04T10:05:00Z",
		records.FieldData:      "{not json",
	}, logstore.InteractionIndexKey("twitter"))
	fixtures.SeedRaw(t, store, "interaction:twitter:bad-ts", map[string]string{
		records.FieldType:      "like",
		records.FieldTimestamp: "last tuesday",
	}, logstore.InteractionIndexKey("twitter"))
	// index entry whose hash has expired
	_, err := store.LPush(ctx, logstore.InteractionIndexKey("twitter"), "interaction:twitter:gone")
	require.NoError(t, err)
	last := fixtures.NewInteraction(t, records.PlatformTwitter).WithType("like").At(at.Add(time.Hour)).Seed(store)

	recs, err := scanner.Interactions(ctx, records.PlatformTwitter, All)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, last, recs[0].Key, "newest first")
	assert.Equal(t, first, recs[1].Key)

	warnings := logs.FilterMessage("skipping unparsable record").All()
	require.Len(t, warnings, 2, "one warning per bad record")
	assert.Equal(t, "interaction:twitter:bad-ts", warnings[0].ContextMap()["key"])
	assert.Equal(t, "interaction:twitter:bad-json", warnings[1].ContextMap()["key"])
}

func TestScanner_StopBoundsTheScan(t *testing.T) {
	store := testutil.NewTestStore(t)
	scanner := NewScanner(store, zaptest.NewLogger(t), nil)

	for i := 0; i < 5; i++ {
		fixtures.NewPaymentEvent(t, "order_created").Seed(store)
	}

	events, err := scanner.PaymentEvents(testutil.TestContext(t), 2)
	require.NoError(t, err)
	assert.Len(t, events, 3)
}

func TestScanner_SalesAndCustomerCount(t *testing.T) {
	store := testutil.NewTestStore(t)
	scanner := NewScanner(store, zaptest.NewLogger(t), nil)
	ctx := testutil.TestContext(t)

	fixtures.NewSalesInteraction(t, "c1", "inquiry").Seed(store)
	fixtures.NewSalesInteraction(t, "c1", "follow_up").Seed(store)
	fixtures.NewSalesInteraction(t, "c2", "inquiry").Seed(store)

	steps, err := scanner.SalesInteractions(ctx, All)
	require.NoError(t, err)
	assert.Len(t, steps, 3)

	count, err := scanner.CustomerInteractionCount(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = scanner.CustomerInteractionCount(ctx, "nobody")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestScanner_StoreFailure(t *testing.T) {
	storeErr := errors.New("connection reset")

	t.Run("index read", func(t *testing.T) {
		store := &mocks.Store{}
		store.On("LRange", mock.Anything, "sales_interactions", int64(0), All).Return(nil, storeErr)

		_, err := NewScanner(store, zaptest.NewLogger(t), nil).SalesInteractions(context.Background(), All)
		assert.ErrorIs(t, err, storeErr)
		store.AssertExpectations(t)
	})

	t.Run("record read", func(t *testing.T) {
		store := &mocks.Store{}
		store.On("LRange", mock.Anything, "payment_events:paypal", int64(0), All).Return([]string{"k1"}, nil)
		store.On("HGetAll", mock.Anything, "k1").Return(nil, storeErr)

		_, err := NewScanner(store, zaptest.NewLogger(t), nil).PaymentEvents(context.Background(), All)
		assert.ErrorIs(t, err, storeErr)
	})

	t.Run("cancelled", func(t *testing.T) {
		store := &mocks.Store{}
		store.On("LRange", mock.Anything, "payment_events:paypal", int64(0), All).Return([]string{"k1"}, nil)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := NewScanner(store, zaptest.NewLogger(t), nil).PaymentEvents(ctx, All)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
