// Package learning mines the event log for content, timing and sales patterns, turns them into
// insights and keeps the strategy blob the content generator reads.
package learning

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	apperrors "github.com/davidleathers/aurelius-backend/internal/domain/errors"
	"github.com/davidleathers/aurelius-backend/internal/domain/records"
	"github.com/davidleathers/aurelius-backend/internal/infrastructure/logstore"
	"github.com/davidleathers/aurelius-backend/internal/infrastructure/telemetry"
	"github.com/davidleathers/aurelius-backend/internal/metrics"
	"github.com/davidleathers/aurelius-backend/internal/service/analytics"
	"github.com/davidleathers/aurelius-backend/internal/service/logscan"
)

// Service defines the learning service interface
type Service interface {
	// RunLearningCycle mines, derives insights, saves the strategy and rewrites the learned state.
	// On error the learned state in memory and in the store is left as it was.
	RunLearningCycle(ctx context.Context) (*CycleSummary, error)

	// Status summarizes the learned state
	Status() Status

	// ApplyLearnedOptimizations returns the learned content hints for a platform
	ApplyLearnedOptimizations(contentType string, platform records.Platform) Optimizations

	// State reports whether a cycle is running
	State() State
}

// Analysis dimensions
const (
	dimensionContent = "content_performance"
	dimensionTiming  = "timing_patterns"
	dimensionSales   = "sales_patterns"
)

// service implements the Service interface
type service struct {
	store      logstore.Store
	scanner    *logscan.Scanner
	strategies *StrategyStore
	logger     *zap.Logger
	metrics    *metrics.Registry
	tracer     trace.Tracer
	now        func() time.Time

	mu       sync.RWMutex
	patterns *Patterns
	state    atomic.Int32
}

// NewService creates the learning service and loads the learned state. A missing or unreadable
// document starts the service with fresh state. m may be nil.
func NewService(ctx context.Context, store logstore.Store, logger *zap.Logger, m *metrics.Registry) Service {
	logger = logger.Named("learning")

	patterns, err := LoadPatterns(ctx, store)
	switch {
	case err != nil:
		logger.Error("failed to load learning patterns, starting fresh", zap.Error(err))
		patterns = NewPatterns()
	case patterns.CycleCount > 0:
		logger.Info("loaded learning patterns", zap.Int("cycle_count", patterns.CycleCount))
	default:
		logger.Info("no learning patterns found, starting fresh")
	}

	return &service{
		store:      store,
		scanner:    logscan.NewScanner(store, logger, m),
		strategies: NewStrategyStore(store, logger),
		logger:     logger,
		metrics:    m,
		tracer:     telemetry.Tracer("aurelius/learning"),
		now:        time.Now,
		patterns:   patterns,
	}
}

// RunLearningCycle runs one cycle. Cycles do not overlap: a call made while another cycle is
// running fails immediately.
func (s *service) RunLearningCycle(ctx context.Context) (*CycleSummary, error) {
	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return nil, apperrors.NewValidationError("CYCLE_RUNNING", "a learning cycle is already running")
	}
	defer s.state.Store(int32(StateIdle))

	started := time.Now()
	ctx, span := s.tracer.Start(ctx, "learning.RunLearningCycle")
	defer span.End()

	logger := telemetry.WithTrace(ctx, s.logger)
	logger.Info("starting learning cycle")

	results := s.analyze(ctx, logger)
	insights := GenerateInsights(results)
	completedAt := s.now().UTC().Round(0)

	if err := ctx.Err(); err != nil {
		return nil, s.fail(span, logger, started, fmt.Errorf("learning cycle abandoned: %w", err))
	}

	if err := s.strategies.Save(ctx, DeriveStrategy(insights, completedAt)); err != nil {
		return nil, s.fail(span, logger, started, err)
	}

	s.mu.RLock()
	next := s.patterns.next(completedAt, results, insights)
	s.mu.RUnlock()

	if err := SavePatterns(ctx, s.store, next); err != nil {
		return nil, s.fail(span, logger, started, err)
	}

	s.mu.Lock()
	s.patterns = next
	s.mu.Unlock()

	for _, insight := range insights {
		s.metrics.RecordInsight(insight.Type, insight.Priority)
	}
	s.metrics.RecordLearningCycle(metrics.OutcomeSuccess, time.Since(started))

	summary := &CycleSummary{
		CycleCompletedAt:        completedAt,
		InsightsGenerated:       len(insights),
		AnalysisResults:         results,
		Insights:                insights,
		ImprovementsImplemented: countHighPriority(insights),
	}

	span.SetAttributes(
		attribute.Int("learning.cycle", next.CycleCount),
		attribute.Int("learning.insights", summary.InsightsGenerated))
	logger.Info("learning cycle completed",
		zap.Int("cycle", next.CycleCount),
		zap.Int("insights", summary.InsightsGenerated),
		zap.Int("high_priority", summary.ImprovementsImplemented),
		zap.Strings("degraded", results.Degraded),
		zap.Duration("duration", time.Since(started)))

	return summary, nil
}

func (s *service) fail(span trace.Span, logger *zap.Logger, started time.Time, err error) error {
	telemetry.RecordError(span, err)
	logger.Error("learning cycle failed", zap.Error(err), zap.Stack("stack"))
	s.metrics.RecordLearningCycle(metrics.OutcomeFailure, time.Since(started))
	return err
}

// analyze runs the three miners one after another. A failing miner leaves its dimension empty
// and does not stop the others.
func (s *service) analyze(ctx context.Context, logger *zap.Logger) AnalysisResults {
	var results AnalysisResults

	content := runMiner(logger, dimensionContent, emptyContentAnalysis(), func() (ContentAnalysis, error) {
		byPlatform, err := s.interactionsByPlatform(ctx, contentScanStop)
		if err != nil {
			return ContentAnalysis{}, err
		}
		return mineContent(byPlatform), nil
	})

	timing := runMiner(logger, dimensionTiming, emptyTimingAnalysis(), func() (TimingAnalysis, error) {
		byPlatform, err := s.interactionsByPlatform(ctx, timingScanStop)
		if err != nil {
			return TimingAnalysis{}, err
		}
		return mineTiming(byPlatform), nil
	})

	sales := runMiner(logger, dimensionSales, emptySalesAnalysis(), func() (SalesAnalysis, error) {
		steps, err := s.scanner.SalesInteractions(ctx, salesScanStop)
		if err != nil {
			return SalesAnalysis{}, err
		}
		return mineSales(steps), nil
	})

	results.ContentPerformance = content.Value
	results.TimingPatterns = timing.Value
	results.SalesPatterns = sales.Value

	for _, d := range []struct {
		name     string
		degraded bool
	}{
		{dimensionContent, content.Degraded},
		{dimensionTiming, timing.Degraded},
		{dimensionSales, sales.Degraded},
	} {
		if d.degraded {
			results.Degraded = append(results.Degraded, d.name)
		}
	}

	return results
}

func runMiner[T any](logger *zap.Logger, dimension string, empty T, mine func() (T, error)) analytics.Outcome[T] {
	value, err := mine()
	if err != nil {
		logger.Error("pattern mining failed, using empty result", zap.String("dimension", dimension), zap.Error(err))
		return analytics.Degrade(empty, err)
	}
	return analytics.Complete(value)
}

func (s *service) interactionsByPlatform(ctx context.Context, stop int64) (map[records.Platform][]records.InteractionRecord, error) {
	out := make(map[records.Platform][]records.InteractionRecord, len(records.Platforms))
	for _, platform := range records.Platforms {
		recs, err := s.scanner.Interactions(ctx, platform, stop)
		if err != nil {
			return nil, err
		}
		out[platform] = recs
	}
	return out, nil
}

func emptyContentAnalysis() ContentAnalysis {
	return mineContent(nil)
}

func emptyTimingAnalysis() TimingAnalysis {
	return TimingAnalysis{
		OptimalHours:           map[records.Platform][]int{},
		OptimalDays:            map[records.Platform][]string{},
		PlatformSpecificTiming: map[records.Platform]PlatformTiming{},
	}
}

func emptySalesAnalysis() SalesAnalysis {
	return mineSales(nil)
}

// Status summarizes the learned state
func (s *service) Status() Status {
	s.mu.RLock()
	p := s.patterns
	s.mu.RUnlock()

	status := Status{
		LastLearningCycle:    NeverRun,
		TotalCycles:          p.CycleCount,
		PatternsLearned:      p.SectionCount(),
		RecentInsightsCount:  len(p.GeneratedInsights),
		HighPriorityInsights: countHighPriority(p.GeneratedInsights),
		State:                s.State().String(),
	}
	if p.LastAnalysis != nil {
		status.LastLearningCycle = p.LastAnalysis.UTC().Format(time.RFC3339Nano)
	}
	return status
}

// State reports whether a cycle is running
func (s *service) State() State {
	return State(s.state.Load())
}

// ApplyLearnedOptimizations reads the last completed cycle's analysis for platform. Anything the
// system has not learned yet falls back to defaults.
func (s *service) ApplyLearnedOptimizations(contentType string, platform records.Platform) Optimizations {
	opts := Optimizations{
		RecommendedKeywords: []string{},
		OptimalLength:       DefaultOptimalLength,
		ContentStyle:        DefaultContentStyle,
	}

	s.mu.RLock()
	results := s.patterns.AnalysisResults
	s.mu.RUnlock()

	if results == nil {
		s.logger.Debug("no learned optimizations yet",
			zap.String("content_type", contentType),
			zap.String("platform", platform.String()))
		return opts
	}

	content := results.ContentPerformance
	if keywords := content.HighPerformingKeywords; len(keywords) > 0 {
		if len(keywords) > insightKeywordCount {
			keywords = keywords[:insightKeywordCount]
		}
		opts.RecommendedKeywords = append([]string(nil), keywords...)
	}

	if lengths, ok := content.OptimalContentLength[platform]; ok {
		opts.OptimalLength = lengths.RecommendedRange
	}

	if hours, ok := results.TimingPatterns.OptimalHours[platform]; ok {
		opts.BestPostingTime = append([]int(nil), hours...)
	}

	if best := content.BestContentTypes[platform]; len(best) > 0 {
		opts.ContentStyle = best[0].Category
	}

	return opts
}
