package analytics

import (
	"time"

	"github.com/davidleathers/aurelius-backend/internal/domain/records"
	"github.com/davidleathers/aurelius-backend/internal/service/ratelimit"
)

// ContentSnippet is a truncated piece of content and how often it appeared in the window
type ContentSnippet struct {
	Content      string `json:"content"`
	Interactions int    `json:"interactions"`
}

// EngagementMetrics summarizes one platform's interactions in a window
type EngagementMetrics struct {
	TotalInteractions    int              `json:"total_interactions"`
	PostsCreated         int              `json:"posts_created"`
	RepliesSent          int              `json:"replies_sent"`
	MentionsReceived     int              `json:"mentions_received"`
	LikesGiven           int              `json:"likes_given"`
	SharesMade           int              `json:"shares_made"`
	EngagementRate       float64          `json:"engagement_rate"`
	TopPerformingContent []ContentSnippet `json:"top_performing_content"`
}

// ConversionEvent is a completed sale inside the window
type ConversionEvent struct {
	Type      string    `json:"type"`
	Amount    float64   `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}

// SalesMetrics summarizes payment events in a window
type SalesMetrics struct {
	TotalSales       int               `json:"total_sales"`
	TotalRevenue     float64           `json:"total_revenue"`
	TotalRefunds     int               `json:"total_refunds"`
	RefundAmount     float64           `json:"refund_amount"`
	NetRevenue       float64           `json:"net_revenue"`
	OrdersCreated    int               `json:"orders_created"`
	ConversionRate   float64           `json:"conversion_rate"`
	ConversionEvents []ConversionEvent `json:"conversion_events"`
}

// LeadMetrics summarizes sales conversations in a window
type LeadMetrics struct {
	TotalLeads       int            `json:"total_leads"`
	NewCustomers     int            `json:"new_customers"`
	QualifiedLeads   int            `json:"qualified_leads"`
	ConversionRate   float64        `json:"conversion_rate"`
	LeadSources      map[string]int `json:"lead_sources"`
	LeadQualityScore float64        `json:"lead_quality_score"`
}

// Summary rolls the report sections up into headline numbers
type Summary struct {
	TotalSocialInteractions int     `json:"total_social_interactions"`
	TotalPostsCreated       int     `json:"total_posts_created"`
	TotalSales              int     `json:"total_sales"`
	TotalRevenue            float64 `json:"total_revenue"`
	TotalLeads              int     `json:"total_leads"`
	ConversionRate          float64 `json:"conversion_rate"`
}

// PerformanceInsight is a human-readable observation with the number behind it
type PerformanceInsight struct {
	Type    string  `json:"type"`
	Message string  `json:"message"`
	Metric  float64 `json:"metric"`
}

// Report is the analytics document generated for one period
type Report struct {
	Period              Period                                 `json:"period"`
	StartDate           time.Time                              `json:"start_date"`
	EndDate             time.Time                              `json:"end_date"`
	GeneratedAt         time.Time                              `json:"generated_at"`
	Summary             Summary                                `json:"summary"`
	SocialMedia         map[records.Platform]EngagementMetrics `json:"social_media"`
	Sales               SalesMetrics                           `json:"sales"`
	Leads               LeadMetrics                            `json:"leads"`
	PerformanceInsights []PerformanceInsight                   `json:"performance_insights"`

	// DegradedSections names the reducers that fell back to empty results
	DegradedSections []string `json:"degraded_sections,omitempty"`
}

// RecentActivity counts what happened in the last hour
type RecentActivity struct {
	LastHourPosts        int `json:"last_hour_posts"`
	LastHourInteractions int `json:"last_hour_interactions"`
	LastHourSales        int `json:"last_hour_sales"`
}

// RealTimeMetrics is the health snapshot logged by the scheduler
type RealTimeMetrics struct {
	Timestamp      time.Time                   `json:"timestamp"`
	SystemStatus   string                      `json:"system_status"`
	StoreBackend   string                      `json:"store_backend"`
	DatabaseStatus string                      `json:"database_status"`
	RecentActivity RecentActivity              `json:"recent_activity"`
	RateLimits     map[string]ratelimit.Status `json:"rate_limits"`
}

// DailyMetric is one day of the historical series
type DailyMetric struct {
	Date         string  `json:"date"`
	Revenue      float64 `json:"revenue"`
	Sales        int     `json:"sales"`
	Leads        int     `json:"leads"`
	Interactions int     `json:"interactions"`
}

// Trend direction values
const (
	TrendIncreasing = "increasing"
	TrendDecreasing = "decreasing"
	TrendStable     = "stable"
)

// Trends compares the latest week against the week before
type Trends struct {
	RevenueTrend    string `json:"revenue_trend"`
	EngagementTrend string `json:"engagement_trend"`
	LeadTrend       string `json:"lead_trend"`
}

// HistoricalTrends is a per-day series, newest day first
type HistoricalTrends struct {
	PeriodDays   int           `json:"period_days"`
	DailyMetrics []DailyMetric `json:"daily_metrics"`
	Trends       Trends        `json:"trends"`
}
