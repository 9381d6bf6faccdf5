package signals

import (
	"sort"
	"time"

	"github.com/varaprasadz-boop/VenGrow-sub005/internal/types"
)

// Signal is one classified activity entry.
type Signal struct {
	ID         string    `json:"id"`
	EventID    string    `json:"event_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Category   string    `json:"category"`
	Weight     string    `json:"weight"`
	Polarity   string    `json:"polarity"`
	Summary    string    `json:"summary"`
}

// CategorySummary counts the signals of one category.
type CategorySummary struct {
	Category         string         `json:"category"`
	SignalCount      int            `json:"signal_count"`
	ByWeight         map[string]int `json:"by_weight"`
	ByPolarity       map[string]int `json:"by_polarity"`
	DominantPolarity string         `json:"dominant_polarity"`
	Trend            string         `json:"trend"` // "improving", "stable", "declining"
}

// Escalation is a rule that fired.
type Escalation struct {
	Rule             EscalationRule `json:"rule"`
	TriggeringCount  int            `json:"triggering_count"`
	EarliestOccurred time.Time      `json:"earliest_occurred"`
	LatestOccurred   time.Time      `json:"latest_occurred"`
}

// Summary aggregates the signals of one entity within a window.
type Summary struct {
	EntityType       string                     `json:"entity_type"`
	EntityID         string                     `json:"entity_id"`
	Since            time.Time                  `json:"since"`
	Until            time.Time                  `json:"until"`
	Signals          []Signal                   `json:"signals"`
	Categories       map[string]CategorySummary `json:"categories"`
	OverallSentiment string                     `json:"overall_sentiment"`
	SentimentReason  string                     `json:"sentiment_reason"`
	Escalations      []Escalation               `json:"escalations"`
}

// Classified converts activity entries to signals, dropping entries no
// registration matches.
func Classified(entries []types.ActivityEntry) []Signal {
	out := make([]Signal, 0, len(entries))
	for _, e := range entries {
		c, ok := Classify(e)
		if !ok {
			continue
		}
		out = append(out, Signal{
			ID:         c.Registration.ID,
			EventID:    e.EventID,
			OccurredAt: e.OccurredAt,
			Category:   c.Category,
			Weight:     c.Weight,
			Polarity:   c.Polarity,
			Summary:    e.Summary,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OccurredAt.Before(out[j].OccurredAt) })
	return out
}

// Aggregate produces a Summary from the activity entries of one entity.
// Escalation windows are measured back from until.
func Aggregate(entries []types.ActivityEntry, entityType, entityID string, since, until time.Time) Summary {
	signals := Classified(entries)

	categories := make(map[string]*CategorySummary)
	for _, s := range signals {
		cs, exists := categories[s.Category]
		if !exists {
			cs = &CategorySummary{
				Category:   s.Category,
				ByWeight:   make(map[string]int),
				ByPolarity: make(map[string]int),
			}
			categories[s.Category] = cs
		}
		cs.SignalCount++
		cs.ByWeight[s.Weight]++
		cs.ByPolarity[s.Polarity]++
	}

	result := make(map[string]CategorySummary, len(categories))
	for cat, cs := range categories {
		cs.DominantPolarity = dominantPolarity(cs.ByPolarity)
		cs.Trend = computeTrend(signals, cat, since, until)
		result[cat] = *cs
	}

	escalations := EvaluateEscalations(signals, until)
	sentiment, reason := computeSentiment(result, escalations)

	return Summary{
		EntityType:       entityType,
		EntityID:         entityID,
		Since:            since,
		Until:            until,
		Signals:          signals,
		Categories:       result,
		OverallSentiment: sentiment,
		SentimentReason:  reason,
		Escalations:      escalations,
	}
}

// EvaluateEscalations checks every count and cross-category rule against
// signals as of now.
func EvaluateEscalations(signals []Signal, now time.Time) []Escalation {
	escalated := []Escalation{}
	for _, reg := range Registry {
		for _, rule := range reg.EscalationRules {
			if es, ok := evaluateRule(rule, signals, now); ok {
				escalated = append(escalated, es)
			}
		}
	}
	for _, rule := range CrossCategoryRules {
		if es, ok := evaluateRule(rule, signals, now); ok {
			escalated = append(escalated, es)
		}
	}
	return escalated
}

func evaluateRule(rule EscalationRule, signals []Signal, now time.Time) (Escalation, bool) {
	switch rule.TriggerType {
	case "count":
		return evaluateCountRule(rule, signals, now)
	case "cross_category":
		return evaluateCrossCategoryRule(rule, signals, now)
	default:
		return Escalation{}, false
	}
}

func evaluateCountRule(rule EscalationRule, signals []Signal, now time.Time) (Escalation, bool) {
	windowStart := now.AddDate(0, 0, -rule.WithinDays)

	var matching []Signal
	for _, s := range signals {
		if s.OccurredAt.Before(windowStart) {
			continue
		}
		if rule.SignalID != "" && s.ID != rule.SignalID {
			continue
		}
		if rule.SignalCategory != "" && s.Category != rule.SignalCategory {
			continue
		}
		if rule.SignalPolarity != "" && s.Polarity != rule.SignalPolarity {
			continue
		}
		matching = append(matching, s)
	}
	if len(matching) == 0 || len(matching) < rule.Count {
		return Escalation{}, false
	}

	// signals are already in time order.
	return Escalation{
		Rule:             rule,
		TriggeringCount:  len(matching),
		EarliestOccurred: matching[0].OccurredAt,
		LatestOccurred:   matching[len(matching)-1].OccurredAt,
	}, true
}

func evaluateCrossCategoryRule(rule EscalationRule, signals []Signal, now time.Time) (Escalation, bool) {
	windowStart := now.AddDate(0, 0, -rule.WithinDays)

	counts := make(map[int]int, len(rule.RequiredCategories))
	var earliest, latest time.Time
	for _, s := range signals {
		if s.OccurredAt.Before(windowStart) {
			continue
		}
		for i, req := range rule.RequiredCategories {
			if s.Category != req.Category || (req.SignalID != "" && s.ID != req.SignalID) {
				continue
			}
			counts[i]++
			if earliest.IsZero() || s.OccurredAt.Before(earliest) {
				earliest = s.OccurredAt
			}
			if s.OccurredAt.After(latest) {
				latest = s.OccurredAt
			}
		}
	}

	total := 0
	for i, req := range rule.RequiredCategories {
		if counts[i] < req.MinCount {
			return Escalation{}, false
		}
		total += counts[i]
	}
	return Escalation{
		Rule:             rule,
		TriggeringCount:  total,
		EarliestOccurred: earliest,
		LatestOccurred:   latest,
	}, true
}

// dominantPolarity returns the polarity with the highest count, ties broken
// alphabetically.
func dominantPolarity(byPolarity map[string]int) string {
	best := ""
	bestCount := 0
	for p, c := range byPolarity {
		if c > bestCount || (c == bestCount && p < best) {
			best = p
			bestCount = c
		}
	}
	return best
}

// computeTrend compares negative signal volume in the first and second half
// of the window.
func computeTrend(signals []Signal, category string, since, until time.Time) string {
	mid := since.Add(until.Sub(since) / 2)
	var firstHalf, secondHalf int
	for _, s := range signals {
		if s.Category != category || s.Polarity != "negative" {
			continue
		}
		if s.OccurredAt.Before(mid) {
			firstHalf++
		} else {
			secondHalf++
		}
	}
	if secondHalf > firstHalf+1 {
		return "declining"
	}
	if firstHalf > secondHalf+1 {
		return "improving"
	}
	return "stable"
}

func computeSentiment(categories map[string]CategorySummary, escalations []Escalation) (string, string) {
	for _, e := range escalations {
		if e.Rule.EscalatedWeight == "critical" {
			return "critical", "Critical escalation triggered: " + e.Rule.EscalatedDescription
		}
	}
	for _, e := range escalations {
		if IsAtLeastWeight(e.Rule.EscalatedWeight, "strong") {
			return "concerning", "Escalation triggered: " + e.Rule.EscalatedDescription
		}
	}

	var negativeCount, positiveCount int
	for _, cs := range categories {
		negativeCount += cs.ByPolarity["negative"]
		positiveCount += cs.ByPolarity["positive"]
	}
	if negativeCount > positiveCount*2 && negativeCount >= 2 {
		return "concerning", "Predominantly negative moderation activity."
	}
	if negativeCount > positiveCount {
		return "mixed", "More negative than positive signals, but no escalation."
	}
	return "positive", "Activity is predominantly positive or neutral."
}
