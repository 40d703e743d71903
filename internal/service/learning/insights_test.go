package learning

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidleathers/aurelius-backend/internal/domain/records"
)

func sampleResults() AnalysisResults {
	return AnalysisResults{
		ContentPerformance: ContentAnalysis{
			HighPerformingKeywords: []string{"course", "launch", "today", "thank", "guide", "extra"},
			OptimalContentLength: map[records.Platform]LengthStats{
				records.PlatformTwitter: {Average: 120, Median: 118, RecommendedRange: [2]int{96, 144}},
			},
			BestContentTypes: map[records.Platform][]ScoredCategory{
				records.PlatformTwitter: {{Category: "promotional", Score: 3}, {Category: "general", Score: 1}},
				records.PlatformDiscord: {{Category: "question", Score: 2}},
			},
		},
		TimingPatterns: TimingAnalysis{
			OptimalHours: map[records.Platform][]int{
				records.PlatformTwitter: {14, 9, 20},
				records.PlatformMastodon: {},
				records.PlatformDiscord: {18},
			},
		},
		SalesPatterns: SalesAnalysis{
			CustomerJourneyPatterns: &JourneyPatterns{AverageTouchpoints: 2.5, ConversionRate: 40},
		},
	}
}

func TestGenerateInsights(t *testing.T) {
	insights := GenerateInsights(sampleResults())
	require.Len(t, insights, 5)

	assert.Equal(t, Insight{
		Type:           InsightContentOptimization,
		Priority:       PriorityHigh,
		Insight:        "Top performing keywords: course, launch, today, thank, guide",
		Action:         "Incorporate these keywords more frequently in content",
		ExpectedImpact: "15-25% increase in engagement",
		Details:        InsightDetails{Keywords: []string{"course", "launch", "today", "thank", "guide"}},
	}, insights[0])

	assert.Equal(t, InsightTimingOptimization, insights[1].Type)
	assert.Equal(t, PriorityMedium, insights[1].Priority)
	assert.Equal(t, "Best posting times for twitter: 14, 9, 20:00", insights[1].Insight)
	assert.Equal(t, "Schedule more posts during these hours on twitter", insights[1].Action)
	assert.Equal(t, InsightDetails{Platform: records.PlatformTwitter, Hours: []int{14, 9, 20}}, insights[1].Details)

	assert.Equal(t, "Best posting times for discord: 18:00", insights[2].Insight)

	assert.Equal(t, InsightSalesOptimization, insights[3].Type)
	assert.Equal(t, PriorityHigh, insights[3].Priority)
	assert.Equal(t, "Average customer needs 2.5 touchpoints before conversion", insights[3].Insight)
	assert.Equal(t, "20-30% improvement in conversion rate", insights[3].ExpectedImpact)

	assert.Equal(t, InsightPlatformOptimization, insights[4].Type)
	assert.Equal(t, "Platform content preferences: twitter=promotional, discord=question", insights[4].Insight)
	assert.Equal(t, map[records.Platform]string{
		records.PlatformTwitter: "promotional",
		records.PlatformDiscord: "question",
	}, insights[4].Details.ContentPreferences)

	assert.Equal(t, 2, countHighPriority(insights))
}

func TestGenerateInsights_Deterministic(t *testing.T) {
	assert.Equal(t, GenerateInsights(sampleResults()), GenerateInsights(sampleResults()))
}

func TestGenerateInsights_Empty(t *testing.T) {
	insights := GenerateInsights(AnalysisResults{})
	assert.NotNil(t, insights)
	assert.Empty(t, insights)

	zeroTouchpoints := AnalysisResults{
		SalesPatterns: SalesAnalysis{CustomerJourneyPatterns: &JourneyPatterns{}},
	}
	assert.Empty(t, GenerateInsights(zeroTouchpoints))
}

func TestDeriveStrategy(t *testing.T) {
	at := time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC)
	updates := DeriveStrategy(GenerateInsights(sampleResults()), at)

	assert.Equal(t, []string{"course", "launch", "today", "thank", "guide"}, updates.ContentStrategy.PriorityKeywords)
	assert.Equal(t, map[records.Platform][]int{
		records.PlatformTwitter: {14, 9, 20},
		records.PlatformDiscord: {18},
	}, updates.TimingStrategy)
	require.NotNil(t, updates.SalesStrategy.RecommendedTouchpoints)
	assert.Equal(t, 2.5, *updates.SalesStrategy.RecommendedTouchpoints)
	assert.Equal(t, "question", updates.PlatformStrategy.ContentPreferences[records.PlatformDiscord])
	assert.Equal(t, at, updates.UpdatedAt)

	empty := DeriveStrategy(nil, at)
	assert.Empty(t, empty.ContentStrategy.PriorityKeywords)
	assert.Empty(t, empty.TimingStrategy)
	assert.Nil(t, empty.SalesStrategy.RecommendedTouchpoints)
}

func TestParseStrategyFromInsightText(t *testing.T) {
	at := time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC)
	insights := GenerateInsights(sampleResults())

	legacy := ParseStrategyFromInsightText(insights, at)
	structured := DeriveStrategy(insights, at)

	t.Run("agrees with structured derivation", func(t *testing.T) {
		assert.Equal(t, structured.ContentStrategy, legacy.ContentStrategy)
		assert.Equal(t, structured.TimingStrategy, legacy.TimingStrategy)
		assert.Equal(t, structured.SalesStrategy, legacy.SalesStrategy)
		assert.Equal(t, structured.PlatformStrategy.Summary, legacy.PlatformStrategy.Summary)
		assert.Nil(t, legacy.PlatformStrategy.ContentPreferences)
	})

	t.Run("text without details", func(t *testing.T) {
		parsed := ParseStrategyFromInsightText([]Insight{
			{Type: InsightContentOptimization, Insight: "Top performing keywords: sale, guide"},
			{Type: InsightTimingOptimization, Insight: "Best posting times for mastodon: 7, 8:00"},
			{Type: InsightSalesOptimization, Insight: "Average customer needs 3.0 touchpoints before conversion"},
			{Type: InsightPlatformOptimization, Insight: "Platform content preferences: twitter=general"},
		}, at)

		assert.Equal(t, []string{"sale", "guide"}, parsed.ContentStrategy.PriorityKeywords)
		assert.Equal(t, []int{7, 8}, parsed.TimingStrategy[records.PlatformMastodon])
		require.NotNil(t, parsed.SalesStrategy.RecommendedTouchpoints)
		assert.Equal(t, 3.0, *parsed.SalesStrategy.RecommendedTouchpoints)
		assert.Equal(t, "Platform content preferences: twitter=general", parsed.PlatformStrategy.Summary)
	})

	t.Run("unparsable text leaves fields unset", func(t *testing.T) {
		parsed := ParseStrategyFromInsightText([]Insight{
			{Type: InsightContentOptimization, Insight: "no delimiter here"},
			{Type: InsightTimingOptimization, Insight: "Best posting times: soon"},
			{Type: InsightSalesOptimization, Insight: "Average customer needs many touchpoints"},
			{Type: InsightSalesOptimization, Insight: "nothing to see"},
		}, at)

		assert.Empty(t, parsed.ContentStrategy.PriorityKeywords)
		assert.Empty(t, parsed.TimingStrategy)
		assert.Nil(t, parsed.SalesStrategy.RecommendedTouchpoints)
	})
}
