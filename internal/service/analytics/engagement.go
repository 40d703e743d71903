package analytics

import (
	"context"
	"sort"
	"strings"

	"github.com/davidleathers/aurelius-backend/internal/domain/records"
	"github.com/davidleathers/aurelius-backend/internal/service/logscan"
)

// Interaction classes, matched as substrings of the type tag in this order
const (
	classPost    = "post"
	classReply   = "reply"
	classMention = "mention"
	classLike    = "like"
	classShare   = "share"
)

var interactionClasses = []struct {
	class   string
	markers []string
}{
	{classPost, []string{"post"}},
	{classReply, []string{"reply"}},
	{classMention, []string{"mention"}},
	{classLike, []string{"like", "favourite"}},
	{classShare, []string{"share", "boost", "retweet"}},
}

const (
	snippetLength = 50
	topContentMax = 5
)

// classifyInteraction returns the first class whose marker occurs in the type tag, or ""
func classifyInteraction(interactionType string) string {
	for _, c := range interactionClasses {
		for _, marker := range c.markers {
			if strings.Contains(interactionType, marker) {
				return c.class
			}
		}
	}
	return ""
}

func newEngagementMetrics() EngagementMetrics {
	return EngagementMetrics{TopPerformingContent: []ContentSnippet{}}
}

// reduceEngagement tallies the interactions that fall inside w
func reduceEngagement(recs []records.InteractionRecord, w Window) EngagementMetrics {
	m := newEngagementMetrics()

	counts := make(map[string]int)
	var order []string

	for _, rec := range recs {
		if !w.Contains(rec.Timestamp) {
			continue
		}
		m.TotalInteractions++

		switch classifyInteraction(rec.Type) {
		case classPost:
			m.PostsCreated++
		case classReply:
			m.RepliesSent++
		case classMention:
			m.MentionsReceived++
		case classLike:
			m.LikesGiven++
		case classShare:
			m.SharesMade++
		}

		if content := rec.Content(); content != "" {
			snippet := truncate(content, snippetLength)
			if _, seen := counts[snippet]; !seen {
				order = append(order, snippet)
			}
			counts[snippet]++
		}
	}

	if m.PostsCreated > 0 {
		engagements := m.RepliesSent + m.LikesGiven + m.SharesMade
		m.EngagementRate = float64(engagements) / float64(m.PostsCreated) * 100
	}

	// stable sort keeps first-seen order among equal counts
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > topContentMax {
		order = order[:topContentMax]
	}
	for _, snippet := range order {
		m.TopPerformingContent = append(m.TopPerformingContent, ContentSnippet{
			Content:      snippet,
			Interactions: counts[snippet],
		})
	}

	return m
}

// truncate cuts s to n runes and marks the cut with "..."
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

func (s *service) engagement(ctx context.Context, platform records.Platform, w Window) Outcome[EngagementMetrics] {
	recs, err := s.scanner.Interactions(ctx, platform, logscan.All)
	if err != nil {
		return degrade(s, "engagement_"+platform.String(), newEngagementMetrics(), err)
	}
	return Complete(reduceEngagement(recs, w))
}
