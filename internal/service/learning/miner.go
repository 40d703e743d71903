package learning

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/davidleathers/aurelius-backend/internal/domain/records"
)

// How many of the newest index entries each miner reads (inclusive stop positions)
const (
	contentScanStop = 100
	timingScanStop  = 200
	salesScanStop   = 100
)

const (
	topCategories          = 3
	topKeywordsPerPlatform = 10
	maxKeywords            = 15
	minKeywordLength       = 4
	topTimeSlots           = 3
	topMessages            = 5
	topPatterns            = 5
	minPatternLength       = 2
	maxPatternLength       = 4
)

// Content categories, matched in this order; the first rule with a marker in the text wins
var categoryRules = []struct {
	category string
	markers  []string
}{
	{"promotional", []string{"buy", "purchase", "sale", "offer", "discount"}},
	{"educational", []string{"how", "why", "what", "guide", "tip"}},
	{"question", []string{"?", "question", "ask", "help"}},
	{"appreciation", []string{"thank", "appreciate", "grateful"}},
	{"announcement", []string{"new", "update", "announce", "launch"}},
}

const categoryGeneral = "general"

// categorize assigns content to the first category whose marker occurs in it
func categorize(content string) string {
	lower := strings.ToLower(content)
	for _, rule := range categoryRules {
		for _, marker := range rule.markers {
			if strings.Contains(lower, marker) {
				return rule.category
			}
		}
	}
	return categoryGeneral
}

// Base engagement weights, matched in this order against the interaction type
var engagementWeights = []struct {
	marker string
	weight float64
}{
	{"post", 1.0},
	{"reply", 2.0},
	{"like", 1.5},
	{"share", 3.0},
	{"mention", 2.5},
	{"dm", 4.0},
}

const (
	salesBonus  = 1.5
	followBonus = 1.3
)

// estimateEngagement scores an interaction from its type, boosted when the raw payload mentions
// sales or follows
func estimateEngagement(interactionType, rawData string) float64 {
	lowerType := strings.ToLower(interactionType)

	var score float64
	for _, w := range engagementWeights {
		if strings.Contains(lowerType, w.marker) {
			score = w.weight
			break
		}
	}

	lowerData := strings.ToLower(rawData)
	if strings.Contains(lowerData, "sales") {
		score *= salesBonus
	}
	if strings.Contains(lowerData, "follow") {
		score *= followBonus
	}

	return score
}

// keywords returns the lower-cased, purely alphabetic words of content longer than three characters
func keywords(content string) []string {
	var out []string
	for _, word := range strings.Fields(strings.ToLower(content)) {
		if utf8.RuneCountInString(word) < minKeywordLength || !isAlpha(word) {
			continue
		}
		out = append(out, word)
	}
	return out
}

func isAlpha(word string) bool {
	for _, r := range word {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return word != ""
}

// mineContent learns keyword, length and category performance per platform
func mineContent(byPlatform map[records.Platform][]records.InteractionRecord) ContentAnalysis {
	analysis := ContentAnalysis{
		HighPerformingKeywords: []string{},
		OptimalContentLength:   make(map[records.Platform]LengthStats),
		BestContentTypes:       make(map[records.Platform][]ScoredCategory),
	}

	seenKeyword := make(map[string]bool)

	for _, platform := range records.Platforms {
		categories := newTally[string]()
		words := newTally[string]()
		var lengths []int

		for _, rec := range byPlatform[platform] {
			content := rec.Content()
			if content == "" {
				continue
			}

			lengths = append(lengths, utf8.RuneCountInString(content))
			for _, word := range keywords(content) {
				words.add(word, 1)
			}
			categories.add(categorize(content), estimateEngagement(rec.Type, rec.RawData))
		}

		if len(lengths) > 0 {
			analysis.OptimalContentLength[platform] = lengthStats(lengths)
		}

		if categories.len() > 0 {
			best := categories.byMean(topCategories)
			scored := make([]ScoredCategory, 0, len(best))
			for _, category := range best {
				scored = append(scored, ScoredCategory{Category: category, Score: categories.mean(category)})
			}
			analysis.BestContentTypes[platform] = scored
		}

		for _, word := range words.bySum(topKeywordsPerPlatform) {
			if seenKeyword[word] || len(analysis.HighPerformingKeywords) >= maxKeywords {
				continue
			}
			seenKeyword[word] = true
			analysis.HighPerformingKeywords = append(analysis.HighPerformingKeywords, word)
		}
	}

	return analysis
}

func lengthStats(lengths []int) LengthStats {
	total := 0
	for _, n := range lengths {
		total += n
	}
	avg := float64(total) / float64(len(lengths))

	sorted := append([]int(nil), lengths...)
	sort.Ints(sorted)

	return LengthStats{
		Average:          avg,
		Median:           sorted[len(sorted)/2],
		RecommendedRange: [2]int{int(avg * 0.8), int(avg * 1.2)},
	}
}

// mineTiming learns the best hours of day and weekdays per platform
func mineTiming(byPlatform map[records.Platform][]records.InteractionRecord) TimingAnalysis {
	analysis := TimingAnalysis{
		OptimalHours:           make(map[records.Platform][]int),
		OptimalDays:            make(map[records.Platform][]string),
		PlatformSpecificTiming: make(map[records.Platform]PlatformTiming),
	}

	for _, platform := range records.Platforms {
		hours := newTally[int]()
		days := newTally[string]()

		for _, rec := range byPlatform[platform] {
			score := estimateEngagement(rec.Type, rec.RawData)
			at := rec.Timestamp.UTC()
			hours.add(at.Hour(), score)
			days.add(at.Weekday().String(), score)
		}

		if hours.len() > 0 {
			analysis.OptimalHours[platform] = hours.byMean(topTimeSlots)
			analysis.OptimalDays[platform] = days.byMean(topTimeSlots)
		}

		analysis.PlatformSpecificTiming[platform] = PlatformTiming{
			HourPerformance: hours.means(),
			DayPerformance:  days.means(),
		}
	}

	return analysis
}

// mineSales rebuilds customer journeys from sales steps, then learns touchpoints, conversion
// paths and which step types carry the most effective responses
func mineSales(steps []records.SalesInteraction) SalesAnalysis {
	analysis := SalesAnalysis{EffectiveSalesMessages: []ScoredMessage{}}

	journeys := make(map[string][]records.SalesInteraction)
	var customers []string
	effectiveness := newTally[string]()

	for _, step := range steps {
		if step.CustomerID != "" {
			if _, seen := journeys[step.CustomerID]; !seen {
				customers = append(customers, step.CustomerID)
			}
			journeys[step.CustomerID] = append(journeys[step.CustomerID], step)
		}

		if step.Payload.Has("response") {
			effectiveness.add(step.Type, responseEffectiveness(step.Payload.String("response")))
		}
	}

	if len(customers) > 0 {
		var touchpoints int
		var conversionPaths [][]string

		for _, customer := range customers {
			journey := journeys[customer]
			// the index is newest first
			sort.SliceStable(journey, func(i, j int) bool {
				return journey[i].Timestamp.Before(journey[j].Timestamp)
			})
			touchpoints += len(journey)

			if converted(journey) {
				path := make([]string, 0, len(journey))
				for _, step := range journey {
					path = append(path, step.Type)
				}
				conversionPaths = append(conversionPaths, path)
			}
		}

		analysis.CustomerJourneyPatterns = &JourneyPatterns{
			AverageTouchpoints:    float64(touchpoints) / float64(len(customers)),
			ConversionRate:        float64(len(conversionPaths)) / float64(len(customers)) * 100,
			CommonConversionPaths: findCommonPatterns(conversionPaths),
		}
	}

	for _, stepType := range effectiveness.byMean(topMessages) {
		analysis.EffectiveSalesMessages = append(analysis.EffectiveSalesMessages, ScoredMessage{
			Type:  stepType,
			Score: effectiveness.mean(stepType),
		})
	}

	return analysis
}

// converted reports whether any step of the journey mentions a payment
func converted(journey []records.SalesInteraction) bool {
	for _, step := range journey {
		if strings.Contains(strings.ToLower(step.RawData), "payment") {
			return true
		}
	}
	return false
}

// responseEffectiveness is length/100, doubled when the response asks for payment and
// boosted when it asks a question
func responseEffectiveness(response string) float64 {
	score := float64(utf8.RuneCountInString(response)) / 100
	if strings.Contains(strings.ToLower(response), "payment") {
		score *= 2
	}
	if strings.Contains(response, "?") {
		score *= 1.5
	}
	return score
}

// findCommonPatterns counts every run of 2 to 4 consecutive types across sequences and returns
// the most frequent runs seen more than once. Percentage is relative to the number of sequences.
func findCommonPatterns(sequences [][]string) []ConversionPath {
	paths := []ConversionPath{}
	if len(sequences) == 0 {
		return paths
	}

	counts := newTally[string]()
	patterns := make(map[string][]string)

	for _, seq := range sequences {
		for length := minPatternLength; length <= maxPatternLength && length <= len(seq); length++ {
			for i := 0; i+length <= len(seq); i++ {
				pattern := seq[i : i+length]
				key := strings.Join(pattern, "\x00")
				if _, seen := patterns[key]; !seen {
					patterns[key] = append([]string(nil), pattern...)
				}
				counts.add(key, 1)
			}
		}
	}

	for _, key := range counts.bySum(topPatterns) {
		frequency := counts.count(key)
		if frequency <= 1 {
			continue
		}
		paths = append(paths, ConversionPath{
			Pattern:    patterns[key],
			Frequency:  frequency,
			Percentage: float64(frequency) / float64(len(sequences)) * 100,
		})
	}

	return paths
}
