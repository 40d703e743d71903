package analytics

import (
	"context"

	"github.com/davidleathers/aurelius-backend/internal/domain/errors"
	"github.com/davidleathers/aurelius-backend/internal/domain/records"
	"github.com/davidleathers/aurelius-backend/internal/infrastructure/logstore"
	"github.com/davidleathers/aurelius-backend/internal/service/logscan"
)

const (
	trendWeek        = 7
	trendUpFactor    = 1.1
	trendDownFactor  = 0.9
	maxHistoricalDay = 366
)

// HistoricalTrends builds the per-day series. Each topic is scanned once and bucketed by day;
// day 0 is today.
func (s *service) HistoricalTrends(ctx context.Context, days int) (*HistoricalTrends, error) {
	if days <= 0 || days > maxHistoricalDay {
		return nil, errors.NewValidationError("INVALID_DAYS", "days must be between 1 and 366")
	}

	events, err := s.scanner.PaymentEvents(ctx, logscan.All)
	if err != nil {
		return nil, errors.NewExternalError("logstore", "failed to read payment events").WithCause(err)
	}

	steps, err := s.scanner.SalesInteractions(ctx, logscan.All)
	if err != nil {
		return nil, errors.NewExternalError("logstore", "failed to read sales interactions").WithCause(err)
	}

	interactions := make(map[records.Platform][]records.InteractionRecord, len(records.Platforms))
	for _, platform := range records.Platforms {
		recs, err := s.scanner.Interactions(ctx, platform, logscan.All)
		if err != nil {
			return nil, errors.NewExternalError("logstore", "failed to read interactions").WithCause(err)
		}
		interactions[platform] = recs
	}

	trends := &HistoricalTrends{
		PeriodDays:   days,
		DailyMetrics: make([]DailyMetric, 0, days),
		Trends: Trends{
			RevenueTrend:    TrendStable,
			EngagementTrend: TrendStable,
			LeadTrend:       TrendStable,
		},
	}

	today := WindowFor(PeriodDaily, s.now())
	qualified := s.hasRepeatContact()
	skip := s.skipper(logstore.PaymentEventIndexKey)

	for i := 0; i < days; i++ {
		w := Window{Start: today.Start.AddDate(0, 0, -i), End: today.End.AddDate(0, 0, -i)}

		sales := reduceSales(events, w, skip)
		leads, err := reduceLeads(ctx, steps, w, qualified, sales.TotalSales)
		if err != nil {
			return nil, errors.NewExternalError("logstore", "failed to read customer history").WithCause(err)
		}

		day := DailyMetric{
			Date:    w.Start.Format("2006-01-02"),
			Revenue: sales.TotalRevenue,
			Sales:   sales.TotalSales,
			Leads:   leads.TotalLeads,
		}
		for _, platform := range records.Platforms {
			day.Interactions += reduceEngagement(interactions[platform], w).TotalInteractions
		}

		trends.DailyMetrics = append(trends.DailyMetrics, day)
	}

	if len(trends.DailyMetrics) >= 2*trendWeek {
		recent := trends.DailyMetrics[:trendWeek]
		previous := trends.DailyMetrics[trendWeek : 2*trendWeek]

		trends.Trends.RevenueTrend = compareWeeks(recent, previous, func(d DailyMetric) float64 { return d.Revenue })
		trends.Trends.EngagementTrend = compareWeeks(recent, previous, func(d DailyMetric) float64 { return float64(d.Interactions) })
		trends.Trends.LeadTrend = compareWeeks(recent, previous, func(d DailyMetric) float64 { return float64(d.Leads) })
	}

	return trends, nil
}

// compareWeeks is increasing above +10%, decreasing below -10%, otherwise stable
func compareWeeks(recent, previous []DailyMetric, value func(DailyMetric) float64) string {
	var r, p float64
	for _, d := range recent {
		r += value(d)
	}
	for _, d := range previous {
		p += value(d)
	}

	switch {
	case r > p*trendUpFactor:
		return TrendIncreasing
	case r < p*trendDownFactor:
		return TrendDecreasing
	default:
		return TrendStable
	}
}
