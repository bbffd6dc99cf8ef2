package signals

import (
	"encoding/json"
	"slices"
	"time"

	"github.com/matthewbaird/propmanage/internal/types"
)

// Sentiment levels, from best to worst.
const (
	SentimentPositive   = "positive"
	SentimentMixed      = "mixed"
	SentimentConcerning = "concerning"
	SentimentCritical   = "critical"
)

// Aggregate summarizes the entries of one entity that fall within
// [since, until]. Escalation windows are measured back from until.
func Aggregate(entries []types.ActivityEntry, entityType, entityID string, since, until time.Time) types.SignalSummary {
	var (
		inWindow []types.ActivityEntry
		tallies  = make(map[string]*types.CategorySummary)
		payments paymentTally
	)
	for _, e := range entries {
		if e.OccurredAt.Before(since) || e.OccurredAt.After(until) {
			continue
		}
		inWindow = append(inWindow, e)
		tallyEntry(tallies, e)
		if e.EventType == "bill_paid" {
			payments.add(e.Payload)
		}
	}

	categories := make(map[string]types.CategorySummary, len(tallies))
	for name, cs := range tallies {
		cs.DominantPolarity = dominantPolarity(cs.ByPolarity)
		categories[name] = *cs
	}

	escalations := EvaluateEscalations(inWindow, until)
	sentiment, reason := computeSentiment(categories, escalations)

	return types.SignalSummary{
		EntityType:       entityType,
		EntityID:         entityID,
		Since:            since,
		Until:            until,
		Categories:       categories,
		OverallSentiment: sentiment,
		SentimentReason:  reason,
		Escalations:      escalations,
		Payments:         payments.history(),
	}
}

func tallyEntry(tallies map[string]*types.CategorySummary, e types.ActivityEntry) {
	cs, ok := tallies[e.Category]
	if !ok {
		cs = &types.CategorySummary{
			Category:   e.Category,
			ByWeight:   make(map[string]int),
			ByPolarity: make(map[string]int),
		}
		tallies[e.Category] = cs
	}
	cs.SignalCount++
	cs.ByWeight[e.Weight]++
	cs.ByPolarity[e.Polarity]++
}

// paymentTally accumulates punctuality over bill_paid payloads.
type paymentTally struct {
	paid, late   int
	maxLate      int
	totalLateDay int
}

func (t *paymentTally) add(payload json.RawMessage) {
	var p struct {
		DaysPastDue int `json:"days_past_due"`
	}
	if len(payload) > 0 {
		_ = json.Unmarshal(payload, &p)
	}
	t.paid++
	if p.DaysPastDue <= 0 {
		return
	}
	t.late++
	t.totalLateDay += p.DaysPastDue
	t.maxLate = max(t.maxLate, p.DaysPastDue)
}

func (t paymentTally) history() types.PaymentHistory {
	h := types.PaymentHistory{
		Paid:           t.paid,
		OnTime:         t.paid - t.late,
		Late:           t.late,
		MaxDaysPastDue: t.maxLate,
	}
	if t.paid > 0 {
		h.AverageDaysPastDue = float64(t.totalLateDay) / float64(t.paid)
	}
	return h
}

// EvaluateEscalations checks every escalation rule in the registry against
// the entries, with each rule's window ending at asOf.
func EvaluateEscalations(entries []types.ActivityEntry, asOf time.Time) []types.EscalatedSignal {
	escalated := []types.EscalatedSignal{}
	for _, reg := range SignalRegistry {
		for _, rule := range reg.EscalationRules {
			if es, ok := evaluateCountRule(rule, entries, asOf); ok {
				escalated = append(escalated, es)
			}
		}
	}
	return escalated
}

// evaluateCountRule fires when at least rule.Count matching entries fall in
// the rule's trailing window.
func evaluateCountRule(rule types.EscalationRule, entries []types.ActivityEntry, asOf time.Time) (types.EscalatedSignal, bool) {
	if rule.Count <= 0 {
		return types.EscalatedSignal{}, false
	}
	from := asOf.AddDate(0, 0, -rule.WithinDays)

	var times []time.Time
	for _, e := range entries {
		switch {
		case e.OccurredAt.Before(from), e.OccurredAt.After(asOf):
		case rule.SignalCategory != "" && e.Category != rule.SignalCategory:
		case rule.SignalPolarity != "" && e.Polarity != rule.SignalPolarity:
		default:
			times = append(times, e.OccurredAt)
		}
	}
	if len(times) < rule.Count {
		return types.EscalatedSignal{}, false
	}

	slices.SortFunc(times, func(a, b time.Time) int { return a.Compare(b) })
	return types.EscalatedSignal{
		Rule:             rule,
		TriggeringCount:  len(times),
		EarliestOccurred: times[0],
		LatestOccurred:   times[len(times)-1],
	}, true
}

// dominantPolarity returns the polarity with the highest count. Ties go to
// the alphabetically first polarity.
func dominantPolarity(byPolarity map[string]int) string {
	best, bestCount := "", 0
	for p, c := range byPolarity {
		if c > bestCount || (c == bestCount && p < best) {
			best, bestCount = p, c
		}
	}
	return best
}

// computeSentiment grades a tenant from its category tallies and
// escalations. A critical escalation or any critical-weight signal is
// critical; a strong escalation, or negatives outnumbering positives two to
// one, is concerning; any negative majority is mixed.
func computeSentiment(categories map[string]types.CategorySummary, escalations []types.EscalatedSignal) (string, string) {
	strongEscalations := 0
	for _, e := range escalations {
		switch e.Rule.EscalatedWeight {
		case "critical":
			return SentimentCritical, "Critical escalation triggered: " + e.Rule.EscalatedDescription
		case "strong":
			strongEscalations++
		}
	}

	var critical, negative, positive int
	for _, cs := range categories {
		critical += cs.ByWeight["critical"]
		negative += cs.ByPolarity["negative"]
		positive += cs.ByPolarity["positive"]
	}

	switch {
	case critical > 0:
		return SentimentCritical, "Critical-weight signals present requiring immediate attention."
	case strongEscalations > 0 || negative > positive*2:
		return SentimentConcerning, "Late payment pattern or predominantly negative activity."
	case negative > positive:
		return SentimentMixed, "More negative than positive signals, but no critical concerns."
	}
	return SentimentPositive, "Payments and lease activity are predominantly positive or neutral."
}
