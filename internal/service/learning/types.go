package learning

import (
	"time"

	"github.com/davidleathers/aurelius-backend/internal/domain/records"
)

// ScoredCategory is a content category with its mean engagement score
type ScoredCategory struct {
	Category string  `json:"category"`
	Score    float64 `json:"score"`
}

// LengthStats describes the content lengths seen on a platform, in characters
type LengthStats struct {
	Average          float64 `json:"average"`
	Median           int     `json:"median"`
	RecommendedRange [2]int  `json:"recommended_range"`
}

// ContentAnalysis is what the content miner learned from recent interactions
type ContentAnalysis struct {
	HighPerformingKeywords []string                              `json:"high_performing_keywords"`
	OptimalContentLength   map[records.Platform]LengthStats      `json:"optimal_content_length"`
	BestContentTypes       map[records.Platform][]ScoredCategory `json:"best_content_types"`
}

// PlatformTiming holds the mean engagement score per hour of day and per weekday name
type PlatformTiming struct {
	HourPerformance map[int]float64    `json:"hour_performance"`
	DayPerformance  map[string]float64 `json:"day_performance"`
}

// TimingAnalysis is what the timing miner learned from recent interactions
type TimingAnalysis struct {
	OptimalHours           map[records.Platform][]int          `json:"optimal_hours"`
	OptimalDays            map[records.Platform][]string       `json:"optimal_days"`
	PlatformSpecificTiming map[records.Platform]PlatformTiming `json:"platform_specific_timing"`
}

// ConversionPath is a run of consecutive step types shared by converted journeys
type ConversionPath struct {
	Pattern    []string `json:"pattern"`
	Frequency  int      `json:"frequency"`
	Percentage float64  `json:"percentage"`
}

// JourneyPatterns summarizes the reconstructed customer journeys
type JourneyPatterns struct {
	AverageTouchpoints    float64          `json:"average_touchpoints"`
	ConversionRate        float64          `json:"conversion_rate"`
	CommonConversionPaths []ConversionPath `json:"common_conversion_paths"`
}

// ScoredMessage is a sales step type with the mean effectiveness of its responses
type ScoredMessage struct {
	Type  string  `json:"type"`
	Score float64 `json:"score"`
}

// SalesAnalysis is what the sales miner learned from recent sales conversations
type SalesAnalysis struct {
	// CustomerJourneyPatterns is nil when no journey could be reconstructed
	CustomerJourneyPatterns *JourneyPatterns `json:"customer_journey_patterns,omitempty"`
	EffectiveSalesMessages  []ScoredMessage  `json:"effective_sales_messages"`
}

// AnalysisResults bundles the three mining dimensions of one cycle
type AnalysisResults struct {
	ContentPerformance ContentAnalysis `json:"content_performance"`
	TimingPatterns     TimingAnalysis  `json:"timing_patterns"`
	SalesPatterns      SalesAnalysis   `json:"sales_patterns"`

	// Degraded names the dimensions that failed and were left empty
	Degraded []string `json:"degraded,omitempty"`
}

// Insight types
const (
	InsightContentOptimization  = "content_optimization"
	InsightTimingOptimization   = "timing_optimization"
	InsightSalesOptimization    = "sales_optimization"
	InsightPlatformOptimization = "platform_optimization"
)

// Insight priorities
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
)

// InsightDetails carries the values an insight's text was formatted from
type InsightDetails struct {
	Keywords           []string                    `json:"keywords,omitempty"`
	Platform           records.Platform            `json:"platform,omitempty"`
	Hours              []int                       `json:"hours,omitempty"`
	AverageTouchpoints float64                     `json:"average_touchpoints,omitempty"`
	ContentPreferences map[records.Platform]string `json:"content_preferences,omitempty"`
}

// Insight is an actionable recommendation. Insight is the display text; Details holds the
// structured inputs that downstream strategy derivation reads.
type Insight struct {
	Type           string         `json:"type"`
	Priority       string         `json:"priority"`
	Insight        string         `json:"insight"`
	Action         string         `json:"action"`
	ExpectedImpact string         `json:"expected_impact"`
	Details        InsightDetails `json:"details"`
}

// CycleSummary is returned by a completed learning cycle
type CycleSummary struct {
	CycleCompletedAt        time.Time       `json:"cycle_completed_at"`
	InsightsGenerated       int             `json:"insights_generated"`
	AnalysisResults         AnalysisResults `json:"analysis_results"`
	Insights                []Insight       `json:"insights"`
	ImprovementsImplemented int             `json:"improvements_implemented"`
}

// State of the learning cycle runner
type State int32

const (
	StateIdle State = iota
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	default:
		return "idle"
	}
}

// NeverRun is reported as the last cycle time before the first cycle completes
const NeverRun = "Never"

// Status is the learning system overview
type Status struct {
	LastLearningCycle    string `json:"last_learning_cycle"`
	TotalCycles          int    `json:"total_cycles"`
	PatternsLearned      int    `json:"patterns_learned"`
	RecentInsightsCount  int    `json:"recent_insights_count"`
	HighPriorityInsights int    `json:"high_priority_insights"`
	State                string `json:"state"`
}

// DefaultOptimalLength is the recommended length range when a platform has no learned data
var DefaultOptimalLength = [2]int{100, 200}

// DefaultContentStyle is used when a platform has no learned best content type
const DefaultContentStyle = "general"

// Optimizations are the learned hints for generating content on one platform
type Optimizations struct {
	RecommendedKeywords []string `json:"recommended_keywords"`
	OptimalLength       [2]int   `json:"optimal_length"`
	BestPostingTime     []int    `json:"best_posting_time"`
	ContentStyle        string   `json:"content_style"`
}
