package learning

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	apperrors "github.com/davidleathers/aurelius-backend/internal/domain/errors"
	"github.com/davidleathers/aurelius-backend/internal/infrastructure/logstore"
)

// Patterns is the learned state document. It is loaded once at startup and rewritten wholesale
// after every completed cycle; it is never updated in place.
type Patterns struct {
	// Sections reserved for learned behaviour; they are carried through every rewrite
	ContentPerformance    map[string]any `json:"content_performance"`
	EngagementPatterns    map[string]any `json:"engagement_patterns"`
	SalesConversion       map[string]any `json:"sales_conversion"`
	CustomerBehavior      map[string]any `json:"customer_behavior"`
	OptimalTiming         map[string]any `json:"optimal_timing"`
	PlatformEffectiveness map[string]any `json:"platform_effectiveness"`

	LastAnalysis      *time.Time       `json:"last_analysis,omitempty"`
	AnalysisResults   *AnalysisResults `json:"analysis_results,omitempty"`
	GeneratedInsights []Insight        `json:"generated_insights,omitempty"`
	CycleCount        int              `json:"cycle_count,omitempty"`
}

const reservedSections = 6

// NewPatterns returns the state of a system that has never learned anything
func NewPatterns() *Patterns {
	return &Patterns{
		ContentPerformance:    map[string]any{},
		EngagementPatterns:    map[string]any{},
		SalesConversion:       map[string]any{},
		CustomerBehavior:      map[string]any{},
		OptimalTiming:         map[string]any{},
		PlatformEffectiveness: map[string]any{},
	}
}

// SectionCount is the number of top-level sections present in the document
func (p *Patterns) SectionCount() int {
	n := reservedSections
	if p.LastAnalysis != nil {
		n++
	}
	if p.AnalysisResults != nil {
		n++
	}
	if p.GeneratedInsights != nil {
		n++
	}
	if p.CycleCount > 0 {
		n++
	}
	return n
}

// next returns the document that replaces p after a completed cycle
func (p *Patterns) next(at time.Time, results AnalysisResults, insights []Insight) *Patterns {
	n := *p
	n.LastAnalysis = &at
	n.AnalysisResults = &results
	n.GeneratedInsights = insights
	n.CycleCount = p.CycleCount + 1
	return &n
}

// LoadPatterns reads the learned state; a missing document yields fresh state
func LoadPatterns(ctx context.Context, store logstore.Store) (*Patterns, error) {
	data, err := store.Get(ctx, logstore.LearningPatternsKey)
	var notFound logstore.ErrKeyNotFound
	if errors.As(err, &notFound) {
		return NewPatterns(), nil
	}
	if err != nil {
		return nil, apperrors.NewExternalError("logstore", "failed to load learning patterns").WithCause(err)
	}

	p := NewPatterns()
	if err := json.Unmarshal([]byte(data), p); err != nil {
		return nil, apperrors.NewParseError("learning_patterns", "stored learning patterns are not valid JSON").WithCause(err)
	}
	return p, nil
}

// SavePatterns replaces the learned state document. It never expires.
func SavePatterns(ctx context.Context, store logstore.Store, p *Patterns) error {
	data, err := json.Marshal(p)
	if err != nil {
		return apperrors.NewInternalError("failed to encode learning patterns").WithCause(err)
	}

	if err := store.Set(ctx, logstore.LearningPatternsKey, string(data), 0); err != nil {
		return apperrors.NewExternalError("logstore", "failed to save learning patterns").WithCause(err)
	}
	return nil
}
