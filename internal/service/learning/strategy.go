package learning

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/davidleathers/aurelius-backend/internal/domain/errors"
	"github.com/davidleathers/aurelius-backend/internal/domain/records"
	"github.com/davidleathers/aurelius-backend/internal/infrastructure/logstore"
)

// ContentStrategy biases generated content
type ContentStrategy struct {
	PriorityKeywords []string `json:"priority_keywords,omitempty"`
}

// SalesStrategy tunes the follow-up sequence
type SalesStrategy struct {
	RecommendedTouchpoints *float64 `json:"recommended_touchpoints,omitempty"`
}

// PlatformStrategy holds the preferred content category per platform. Summary keeps the
// display text of the insight it came from.
type PlatformStrategy struct {
	ContentPreferences map[records.Platform]string `json:"content_preferences,omitempty"`
	Summary            string                      `json:"summary,omitempty"`
}

// StrategyUpdates is the strategy blob read by the content generator. Timing lists the
// recommended posting hours per platform.
type StrategyUpdates struct {
	ContentStrategy  ContentStrategy            `json:"content_strategy"`
	TimingStrategy   map[records.Platform][]int `json:"timing_strategy"`
	SalesStrategy    SalesStrategy              `json:"sales_strategy"`
	PlatformStrategy PlatformStrategy           `json:"platform_strategy"`
	UpdatedAt        time.Time                  `json:"updated_at"`
}

func newStrategyUpdates(at time.Time) StrategyUpdates {
	return StrategyUpdates{
		TimingStrategy: make(map[records.Platform][]int),
		UpdatedAt:      at,
	}
}

// DeriveStrategy builds the strategy blob from the structured details of each insight
func DeriveStrategy(insights []Insight, at time.Time) StrategyUpdates {
	updates := newStrategyUpdates(at)

	for _, insight := range insights {
		d := insight.Details
		switch insight.Type {
		case InsightContentOptimization:
			if len(d.Keywords) > 0 {
				updates.ContentStrategy.PriorityKeywords = d.Keywords
			}
		case InsightTimingOptimization:
			if d.Platform != "" && len(d.Hours) > 0 {
				updates.TimingStrategy[d.Platform] = d.Hours
			}
		case InsightSalesOptimization:
			touchpoints := d.AverageTouchpoints
			updates.SalesStrategy.RecommendedTouchpoints = &touchpoints
		case InsightPlatformOptimization:
			updates.PlatformStrategy.ContentPreferences = d.ContentPreferences
			updates.PlatformStrategy.Summary = insight.Insight
		}
	}

	return updates
}

// ParseStrategyFromInsightText rebuilds a strategy blob by splitting each insight's display text
// on its fixed delimiters. It reads what older deployments stored, where insights carried no
// details; fields it cannot parse are left unset.
func ParseStrategyFromInsightText(insights []Insight, at time.Time) StrategyUpdates {
	updates := newStrategyUpdates(at)

	for _, insight := range insights {
		text := insight.Insight

		switch insight.Type {
		case InsightContentOptimization:
			if keywords := afterLast(text, ": "); keywords != "" {
				updates.ContentStrategy.PriorityKeywords = strings.Split(keywords, ", ")
			}

		case InsightTimingOptimization:
			platform := ""
			if strings.Contains(text, " for ") {
				platform, _, _ = strings.Cut(afterLast(text, " for "), ":")
			}
			times := afterLast(text, ": ")
			if platform == "" || times == "" {
				continue
			}
			var hours []int
			for _, label := range strings.Split(times, ", ") {
				if h, err := strconv.Atoi(strings.TrimSuffix(label, ":00")); err == nil {
					hours = append(hours, h)
				}
			}
			if len(hours) > 0 {
				updates.TimingStrategy[records.Platform(platform)] = hours
			}

		case InsightSalesOptimization:
			if !strings.Contains(text, "touchpoints") {
				continue
			}
			number, _, _ := strings.Cut(afterLast(text, " needs "), " touchpoints")
			if touchpoints, err := strconv.ParseFloat(number, 64); err == nil {
				updates.SalesStrategy.RecommendedTouchpoints = &touchpoints
			}

		case InsightPlatformOptimization:
			updates.PlatformStrategy.Summary = text
		}
	}

	return updates
}

// afterLast returns what follows the last sep in s, or "" when sep does not occur
func afterLast(s, sep string) string {
	i := strings.LastIndex(s, sep)
	if i < 0 {
		return ""
	}
	return s[i+len(sep):]
}

// StrategyStore persists the strategy blob under logstore.StrategyUpdatesKey
type StrategyStore struct {
	store  logstore.Store
	logger *zap.Logger
}

// NewStrategyStore creates a StrategyStore
func NewStrategyStore(store logstore.Store, logger *zap.Logger) *StrategyStore {
	return &StrategyStore{store: store, logger: logger}
}

// Save replaces the stored strategy. It never expires.
func (s *StrategyStore) Save(ctx context.Context, updates StrategyUpdates) error {
	data, err := json.Marshal(updates)
	if err != nil {
		return apperrors.NewInternalError("failed to encode strategy updates").WithCause(err)
	}

	if err := s.store.Set(ctx, logstore.StrategyUpdatesKey, string(data), 0); err != nil {
		return apperrors.NewExternalError("logstore", "failed to save strategy updates").WithCause(err)
	}

	s.logger.Debug("saved strategy updates",
		zap.Int("priority_keywords", len(updates.ContentStrategy.PriorityKeywords)),
		zap.Int("timed_platforms", len(updates.TimingStrategy)))
	return nil
}

// Load returns the stored strategy, or a not-found error before the first cycle
func (s *StrategyStore) Load(ctx context.Context) (*StrategyUpdates, error) {
	data, err := s.store.Get(ctx, logstore.StrategyUpdatesKey)
	var notFound logstore.ErrKeyNotFound
	if errors.As(err, &notFound) {
		return nil, apperrors.NewNotFoundError("strategy updates")
	}
	if err != nil {
		return nil, apperrors.NewExternalError("logstore", "failed to load strategy updates").WithCause(err)
	}

	var updates StrategyUpdates
	if err := json.Unmarshal([]byte(data), &updates); err != nil {
		return nil, apperrors.NewParseError("strategy_updates", "stored strategy is not valid JSON").WithCause(err)
	}
	return &updates, nil
}
