// Package analytics turns the event log into periodic engagement, sales and lead reports.
package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	apperrors "github.com/davidleathers/aurelius-backend/internal/domain/errors"
	"github.com/davidleathers/aurelius-backend/internal/domain/records"
	"github.com/davidleathers/aurelius-backend/internal/infrastructure/config"
	"github.com/davidleathers/aurelius-backend/internal/infrastructure/logstore"
	"github.com/davidleathers/aurelius-backend/internal/infrastructure/telemetry"
	"github.com/davidleathers/aurelius-backend/internal/metrics"
	"github.com/davidleathers/aurelius-backend/internal/service/logscan"
	"github.com/davidleathers/aurelius-backend/internal/service/ratelimit"
)

// DefaultReportTTL is how long persisted reports are kept when no TTL is configured
const DefaultReportTTL = 30 * 24 * time.Hour

// Service defines the analytics service interface
type Service interface {
	// GenerateReport computes, persists and returns the report of the period containing now.
	// Reducer failures degrade their section to zero values; an error means no report was produced.
	GenerateReport(ctx context.Context, period Period) (*Report, error)

	// LoadReport reads a persisted report back
	LoadReport(ctx context.Context, period Period, start time.Time) (*Report, error)

	// RealTimeMetrics summarizes the last hour, platform budgets and store health
	RealTimeMetrics(ctx context.Context) (*RealTimeMetrics, error)

	// HistoricalTrends returns per-day metrics for the last days days and week-over-week trends
	HistoricalTrends(ctx context.Context, days int) (*HistoricalTrends, error)

	// ExportReport renders a report as indented JSON with a timestamped file name
	ExportReport(report *Report) (*ExportedReport, error)
}

// service implements the Service interface
type service struct {
	store   logstore.Store
	scanner *logscan.Scanner
	limiter ratelimit.Limiter
	cfg     config.AnalyticsConfig
	logger  *zap.Logger
	metrics *metrics.Registry
	tracer  trace.Tracer
	now     func() time.Time
}

// NewService creates a new analytics service. limiter and m may be nil.
func NewService(
	store logstore.Store,
	limiter ratelimit.Limiter,
	cfg config.AnalyticsConfig,
	logger *zap.Logger,
	m *metrics.Registry,
) Service {
	if cfg.ReportTTL <= 0 {
		cfg.ReportTTL = DefaultReportTTL
	}

	logger = logger.Named("analytics")

	return &service{
		store:   store,
		scanner: logscan.NewScanner(store, logger, m),
		limiter: limiter,
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		tracer:  telemetry.Tracer("aurelius/analytics"),
		now:     time.Now,
	}
}

// GenerateReport generates the analytics report of a period
func (s *service) GenerateReport(ctx context.Context, period Period) (*Report, error) {
	period = ParsePeriod(period.String())
	started := time.Now()

	ctx, span := s.tracer.Start(ctx, "analytics.GenerateReport",
		trace.WithAttributes(attribute.String("report.period", period.String())))
	defer span.End()

	w := WindowFor(period, s.now())
	logger := telemetry.WithTrace(ctx, s.logger).With(zap.String("period", period.String()))
	logger.Info("generating analytics report",
		zap.Time("start_date", w.Start),
		zap.Time("end_date", w.End))

	report := &Report{
		Period:      period,
		StartDate:   w.Start,
		EndDate:     w.End,
		GeneratedAt: s.now().UTC().Round(0),
		SocialMedia: make(map[records.Platform]EngagementMetrics, len(records.Platforms)),
	}

	for _, platform := range records.Platforms {
		out := s.engagement(ctx, platform, w)
		report.SocialMedia[platform] = out.Value
		if out.Degraded {
			report.DegradedSections = append(report.DegradedSections, "social_media."+platform.String())
		}
	}

	sales := s.sales(ctx, w)
	report.Sales = sales.Value
	if sales.Degraded {
		report.DegradedSections = append(report.DegradedSections, "sales")
	}

	leads := s.leads(ctx, w, sales.Value.TotalSales)
	report.Leads = leads.Value
	if leads.Degraded {
		report.DegradedSections = append(report.DegradedSections, "leads")
	}

	report.Summary = summarize(report)
	report.PerformanceInsights = performanceInsights(report)

	// a cancelled run is abandoned rather than persisted with partial data
	if err := ctx.Err(); err != nil {
		s.metrics.RecordReport(period.String(), metrics.OutcomeFailure, time.Since(started))
		return nil, fmt.Errorf("report generation abandoned: %w", err)
	}

	if err := s.persist(ctx, report); err != nil {
		telemetry.RecordError(span, err)
		logger.Error("failed to generate analytics report", zap.Error(err), zap.Stack("stack"))
		s.metrics.RecordReport(period.String(), metrics.OutcomeFailure, time.Since(started))
		return nil, err
	}

	outcome := metrics.OutcomeSuccess
	if len(report.DegradedSections) > 0 {
		outcome = metrics.OutcomeDegraded
	}
	s.metrics.RecordReport(period.String(), outcome, time.Since(started))

	logger.Info("generated analytics report",
		zap.Int("insights", len(report.PerformanceInsights)),
		zap.Strings("degraded_sections", report.DegradedSections),
		zap.Duration("duration", time.Since(started)))

	return report, nil
}

func (s *service) persist(ctx context.Context, report *Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return apperrors.NewInternalError("failed to encode report").WithCause(err)
	}

	key := logstore.ReportKey(report.Period.String(), report.StartDate)
	if err := s.store.Set(ctx, key, string(data), s.cfg.ReportTTL); err != nil {
		return apperrors.NewExternalError("logstore", "failed to persist report").
			WithCause(err).
			WithDetails(map[string]interface{}{"key": key})
	}

	return nil
}

// LoadReport reads the persisted report of period starting at start
func (s *service) LoadReport(ctx context.Context, period Period, start time.Time) (*Report, error) {
	key := logstore.ReportKey(ParsePeriod(period.String()).String(), start)

	data, err := s.store.Get(ctx, key)
	var notFound logstore.ErrKeyNotFound
	if errors.As(err, &notFound) {
		return nil, apperrors.NewNotFoundError("report " + key)
	}
	if err != nil {
		return nil, apperrors.NewExternalError("logstore", "failed to load report").WithCause(err)
	}

	var report Report
	if err := json.Unmarshal([]byte(data), &report); err != nil {
		return nil, apperrors.NewParseError("report", "stored report is not valid JSON").WithCause(err)
	}

	return &report, nil
}

func summarize(r *Report) Summary {
	sum := Summary{
		TotalSales:     r.Sales.TotalSales,
		TotalRevenue:   r.Sales.TotalRevenue,
		TotalLeads:     r.Leads.TotalLeads,
		ConversionRate: r.Leads.ConversionRate,
	}
	for _, platform := range records.Platforms {
		sum.TotalSocialInteractions += r.SocialMedia[platform].TotalInteractions
		sum.TotalPostsCreated += r.SocialMedia[platform].PostsCreated
	}
	return sum
}

// performanceInsights derives at most one revenue, one engagement and one conversion insight
func performanceInsights(r *Report) []PerformanceInsight {
	insights := []PerformanceInsight{}

	if r.Sales.TotalRevenue > 0 {
		insights = append(insights, PerformanceInsight{
			Type:    "revenue",
			Message: fmt.Sprintf("Generated $%.2f in revenue with %d completed sales", r.Sales.TotalRevenue, r.Sales.TotalSales),
			Metric:  r.Sales.TotalRevenue,
		})
	}

	best := records.Platforms[0]
	for _, platform := range records.Platforms[1:] {
		if r.SocialMedia[platform].TotalInteractions > r.SocialMedia[best].TotalInteractions {
			best = platform
		}
	}
	if n := r.SocialMedia[best].TotalInteractions; n > 0 {
		insights = append(insights, PerformanceInsight{
			Type:    "engagement",
			Message: fmt.Sprintf("%s had the highest engagement with %d interactions", best.Title(), n),
			Metric:  float64(n),
		})
	}

	if r.Leads.ConversionRate > 0 {
		insights = append(insights, PerformanceInsight{
			Type:    "conversion",
			Message: fmt.Sprintf("Lead to sale conversion rate: %.1f%%", r.Leads.ConversionRate),
			Metric:  r.Leads.ConversionRate,
		})
	}

	return insights
}

// degrade logs a reducer failure and returns its empty result
func degrade[T any](s *service, reducer string, empty T, err error) Outcome[T] {
	s.logger.Error("reducer failed, using empty result", zap.String("reducer", reducer), zap.Error(err))
	s.metrics.RecordReducerDegraded(reducer)
	return Degrade(empty, err)
}

func (s *service) skipper(topic string) func(key string, err error) {
	return func(key string, err error) {
		s.scanner.Skip(topic, key, err)
	}
}
