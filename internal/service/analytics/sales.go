package analytics

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/davidleathers/aurelius-backend/internal/domain/records"
	"github.com/davidleathers/aurelius-backend/internal/infrastructure/logstore"
	"github.com/davidleathers/aurelius-backend/internal/service/logscan"
)

const (
	eventPaymentCompleted = "payment_completed"
	eventOrderCreated     = "order_created"
	eventPaymentRefunded  = "payment_refunded"

	conversionSaleCompleted = "sale_completed"
)

func newSalesMetrics() SalesMetrics {
	return SalesMetrics{ConversionEvents: []ConversionEvent{}}
}

// reduceSales sums the payment events inside w. Money is accumulated as decimals and converted
// once at the end. Events whose amount cannot be read are passed to skip and left out.
func reduceSales(events []records.PaymentEvent, w Window, skip func(key string, err error)) SalesMetrics {
	m := newSalesMetrics()
	revenue := decimal.Zero
	refunds := decimal.Zero

	for _, ev := range events {
		if !w.Contains(ev.Timestamp) {
			continue
		}

		switch {
		case strings.Contains(ev.Type, eventPaymentCompleted):
			amount, err := ev.Payload.Amount("amount")
			if err != nil {
				skip(ev.Key, fmt.Errorf("invalid amount: %w", err))
				continue
			}
			m.TotalSales++
			revenue = revenue.Add(amount)
			m.ConversionEvents = append(m.ConversionEvents, ConversionEvent{
				Type:      conversionSaleCompleted,
				Amount:    amount.InexactFloat64(),
				Timestamp: ev.Timestamp,
			})

		case strings.Contains(ev.Type, eventOrderCreated):
			m.OrdersCreated++

		case strings.Contains(ev.Type, eventPaymentRefunded):
			amount, err := ev.Payload.Amount("amount")
			if err != nil {
				skip(ev.Key, fmt.Errorf("invalid amount: %w", err))
				continue
			}
			m.TotalRefunds++
			refunds = refunds.Add(amount)
		}
	}

	m.TotalRevenue = revenue.InexactFloat64()
	m.RefundAmount = refunds.InexactFloat64()
	m.NetRevenue = revenue.Sub(refunds).InexactFloat64()

	if m.OrdersCreated > 0 {
		m.ConversionRate = float64(m.TotalSales) / float64(m.OrdersCreated) * 100
	}

	return m
}

func (s *service) sales(ctx context.Context, w Window) Outcome[SalesMetrics] {
	events, err := s.scanner.PaymentEvents(ctx, logscan.All)
	if err != nil {
		return degrade(s, "sales", newSalesMetrics(), err)
	}
	return Complete(reduceSales(events, w, s.skipper(logstore.PaymentEventIndexKey)))
}
