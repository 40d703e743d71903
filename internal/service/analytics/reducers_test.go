package analytics

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidleathers/aurelius-backend/internal/domain/records"
)

var testWindow = Window{
	Start: time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC),
	End:   time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC),
}

func inWindow(hour int) time.Time {
	return testWindow.Start.Add(time.Duration(hour) * time.Hour)
}

func interaction(kind string, at time.Time, content string) records.InteractionRecord {
	payload := records.Payload{}
	if content != "" {
		payload["content"] = content
	}
	return records.InteractionRecord{Key: kind, Type: kind, Timestamp: at, Payload: payload}
}

func payment(kind, amount string, at time.Time) records.PaymentEvent {
	payload := records.Payload{}
	if amount != "" {
		payload["amount"] = amount
	}
	return records.PaymentEvent{Key: kind + amount, Type: kind, Timestamp: at, Payload: payload}
}

func TestClassifyInteraction(t *testing.T) {
	tests := map[string]string{
		"post":          classPost,
		"create_post":   classPost,
		"repost":        classPost,
		"reply":         classReply,
		"reply_mention": classReply,
		"mention":       classMention,
		"like":          classLike,
		"favourite":     classLike,
		"share":         classShare,
		"boost":         classShare,
		"retweet":       classShare,
		"follow":        "",
		"tweet":         "",
		"":              "",
	}

	for input, want := range tests {
		assert.Equal(t, want, classifyInteraction(input), input)
	}
}

func TestReduceEngagement(t *testing.T) {
	t.Run("counts and rate", func(t *testing.T) {
		recs := []records.InteractionRecord{
			interaction("post", inWindow(1), ""),
			interaction("post", inWindow(2), ""),
			interaction("reply", inWindow(3), ""),
			interaction("like", inWindow(4), ""),
		}

		m := reduceEngagement(recs, testWindow)
		assert.Equal(t, 4, m.TotalInteractions)
		assert.Equal(t, 2, m.PostsCreated)
		assert.Equal(t, 1, m.RepliesSent)
		assert.Equal(t, 1, m.LikesGiven)
		assert.Equal(t, 0, m.SharesMade)
		assert.InDelta(t, 100.0, m.EngagementRate, 1e-9)
	})

	t.Run("no posts means zero rate", func(t *testing.T) {
		recs := []records.InteractionRecord{
			interaction("reply", inWindow(1), ""),
			interaction("like", inWindow(1), ""),
			interaction("boost", inWindow(1), ""),
		}

		m := reduceEngagement(recs, testWindow)
		assert.Equal(t, 0, m.PostsCreated)
		assert.Equal(t, 0.0, m.EngagementRate)
		assert.Equal(t, 1, m.SharesMade)
	})

	t.Run("window is half open", func(t *testing.T) {
		recs := []records.InteractionRecord{
			interaction("post", testWindow.Start, ""),
			interaction("post", testWindow.End, ""),
			interaction("post", testWindow.Start.Add(-time.Second), ""),
		}

		m := reduceEngagement(recs, testWindow)
		assert.Equal(t, 1, m.TotalInteractions)
	})

	t.Run("top content", func(t *testing.T) {
		long := strings.Repeat("x", 60)
		recs := []records.InteractionRecord{
			interaction("post", inWindow(1), "a"),
			interaction("post", inWindow(1), "b"),
			interaction("post", inWindow(1), "b"),
			interaction("post", inWindow(1), long),
			interaction("post", inWindow(1), "c"),
			interaction("post", inWindow(1), "d"),
			interaction("post", inWindow(1), "e"),
			interaction("post", inWindow(1), ""),
		}

		m := reduceEngagement(recs, testWindow)
		require.Len(t, m.TopPerformingContent, 5)
		assert.Equal(t, ContentSnippet{Content: "b", Interactions: 2}, m.TopPerformingContent[0])
		assert.Equal(t, "a", m.TopPerformingContent[1].Content, "ties keep first-seen order")
		assert.Equal(t, strings.Repeat("x", 50)+"...", m.TopPerformingContent[2].Content)
		assert.Equal(t, "d", m.TopPerformingContent[4].Content)
	})

	t.Run("empty", func(t *testing.T) {
		m := reduceEngagement(nil, testWindow)
		assert.Equal(t, newEngagementMetrics(), m)
	})
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 50))
	assert.Equal(t, strings.Repeat("é", 50), truncate(strings.Repeat("é", 50), 50))
	assert.Equal(t, strings.Repeat("é", 50)+"...", truncate(strings.Repeat("é", 51), 50))
}

func TestReduceSales(t *testing.T) {
	noSkip := func(key string, err error) { t.Fatalf("unexpected skip of %s: %v", key, err) }

	t.Run("revenue refunds and net", func(t *testing.T) {
		events := []records.PaymentEvent{
			payment("payment_completed", "10", inWindow(1)),
			payment("payment_completed", "20", inWindow(2)),
			payment("payment_refunded", "5", inWindow(3)),
		}

		m := reduceSales(events, testWindow, noSkip)
		assert.Equal(t, 2, m.TotalSales)
		assert.Equal(t, 30.0, m.TotalRevenue)
		assert.Equal(t, 1, m.TotalRefunds)
		assert.Equal(t, 5.0, m.RefundAmount)
		assert.Equal(t, 25.0, m.NetRevenue)
		assert.Equal(t, 0.0, m.ConversionRate, "no orders means zero conversion")
		require.Len(t, m.ConversionEvents, 2)
		assert.Equal(t, ConversionEvent{Type: "sale_completed", Amount: 10, Timestamp: inWindow(1)}, m.ConversionEvents[0])
	})

	t.Run("conversion rate from orders", func(t *testing.T) {
		events := []records.PaymentEvent{
			payment("order_created", "", inWindow(1)),
			payment("order_created", "", inWindow(1)),
			payment("order_created", "", inWindow(1)),
			payment("order_created", "", inWindow(1)),
			payment("paypal.payment_completed", "9.99", inWindow(2)),
			payment("payment_completed", "0.01", testWindow.End),
		}

		m := reduceSales(events, testWindow, noSkip)
		assert.Equal(t, 4, m.OrdersCreated)
		assert.Equal(t, 1, m.TotalSales)
		assert.Equal(t, 25.0, m.ConversionRate)
		assert.Equal(t, 9.99, m.TotalRevenue)
	})

	t.Run("decimal sums stay exact", func(t *testing.T) {
		events := []records.PaymentEvent{
			payment("payment_completed", "0.1", inWindow(1)),
			payment("payment_completed", "0.2", inWindow(1)),
		}

		m := reduceSales(events, testWindow, noSkip)
		assert.Equal(t, 0.3, m.TotalRevenue)
	})

	t.Run("bad amount is skipped", func(t *testing.T) {
		var skipped []string
		events := []records.PaymentEvent{
			payment("payment_completed", "ten", inWindow(1)),
			payment("payment_completed", "10", inWindow(1)),
		}

		m := reduceSales(events, testWindow, func(key string, err error) { skipped = append(skipped, key) })
		assert.Equal(t, []string{"payment_completedten"}, skipped)
		assert.Equal(t, 1, m.TotalSales)
		assert.Equal(t, 10.0, m.TotalRevenue)
	})
}

func TestReduceLeads(t *testing.T) {
	step := func(customer, platform string, at time.Time) records.SalesInteraction {
		payload := records.Payload{}
		if platform != "" {
			payload["platform"] = platform
		}
		return records.SalesInteraction{CustomerID: customer, Timestamp: at, Payload: payload}
	}

	history := map[string]int{"c1": 3, "c2": 1, "c3": 2}
	lookups := 0
	qualified := func(_ context.Context, id string) (bool, error) {
		lookups++
		return history[id] > 1, nil
	}

	steps := []records.SalesInteraction{
		step("c1", "twitter", inWindow(1)),
		step("c1", "twitter", inWindow(2)),
		step("c2", "discord", inWindow(3)),
		step("c3", "", inWindow(4)),
		step("c4", "mastodon", testWindow.End),
		step("", "twitter", inWindow(5)),
	}

	m, err := reduceLeads(context.Background(), steps, testWindow, qualified, 1)
	require.NoError(t, err)

	assert.Equal(t, 3, m.TotalLeads)
	assert.Equal(t, 3, m.NewCustomers)
	assert.Equal(t, 2, m.QualifiedLeads)
	assert.Equal(t, 3, lookups, "one lookup per unique customer")
	assert.Equal(t, map[string]int{"twitter": 2, "discord": 1, "unknown": 1}, m.LeadSources)
	assert.InDelta(t, 100.0/3, m.ConversionRate, 1e-9)
	assert.InDelta(t, 200.0/3, m.LeadQualityScore, 1e-9)

	t.Run("no leads means zero rates", func(t *testing.T) {
		m, err := reduceLeads(context.Background(), nil, testWindow, qualified, 5)
		require.NoError(t, err)
		assert.Equal(t, 0.0, m.ConversionRate)
		assert.Equal(t, 0.0, m.LeadQualityScore)
	})

	t.Run("lookup failure", func(t *testing.T) {
		failing := func(context.Context, string) (bool, error) { return false, errors.New("boom") }
		_, err := reduceLeads(context.Background(), steps, testWindow, failing, 0)
		assert.Error(t, err)
	})
}
