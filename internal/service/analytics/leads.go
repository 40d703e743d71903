package analytics

import (
	"context"

	"github.com/davidleathers/aurelius-backend/internal/domain/records"
	"github.com/davidleathers/aurelius-backend/internal/service/logscan"
)

const unknownLeadSource = "unknown"

func newLeadMetrics() LeadMetrics {
	return LeadMetrics{LeadSources: map[string]int{}}
}

// qualifier reports whether a customer counts as a qualified lead
type qualifier func(ctx context.Context, customerID string) (bool, error)

// reduceLeads counts the customers who talked to the bot inside w. A customer is qualified when
// their all-time history has more than one interaction, regardless of the window. Lead sources
// count every in-window interaction. completedSales is the window's sale count.
func reduceLeads(ctx context.Context, steps []records.SalesInteraction, w Window, qualified qualifier, completedSales int) (LeadMetrics, error) {
	m := newLeadMetrics()

	seen := make(map[string]bool)
	for _, step := range steps {
		if !w.Contains(step.Timestamp) || step.CustomerID == "" {
			continue
		}

		source := step.Payload.String("platform")
		if source == "" {
			source = unknownLeadSource
		}
		m.LeadSources[source]++

		if seen[step.CustomerID] {
			continue
		}
		seen[step.CustomerID] = true

		ok, err := qualified(ctx, step.CustomerID)
		if err != nil {
			return newLeadMetrics(), err
		}
		if ok {
			m.QualifiedLeads++
		}
	}

	m.TotalLeads = len(seen)
	m.NewCustomers = len(seen)

	if m.TotalLeads > 0 {
		m.ConversionRate = float64(completedSales) / float64(m.TotalLeads) * 100
		m.LeadQualityScore = float64(m.QualifiedLeads) / float64(m.TotalLeads) * 100
	}

	return m, nil
}

// hasRepeatContact qualifies customers with more than one logged interaction, caching per scan
func (s *service) hasRepeatContact() qualifier {
	cache := make(map[string]bool)
	return func(ctx context.Context, customerID string) (bool, error) {
		if ok, hit := cache[customerID]; hit {
			return ok, nil
		}
		count, err := s.scanner.CustomerInteractionCount(ctx, customerID)
		if err != nil {
			return false, err
		}
		cache[customerID] = count > 1
		return count > 1, nil
	}
}

// leads runs the lead reducer. The conversion rate uses completedSales from the sales reducer of
// the same window.
func (s *service) leads(ctx context.Context, w Window, completedSales int) Outcome[LeadMetrics] {
	steps, err := s.scanner.SalesInteractions(ctx, logscan.All)
	if err != nil {
		return degrade(s, "leads", newLeadMetrics(), err)
	}

	m, err := reduceLeads(ctx, steps, w, s.hasRepeatContact(), completedSales)
	if err != nil {
		return degrade(s, "leads", newLeadMetrics(), err)
	}

	return Complete(m)
}
