package signals

import (
	"testing"
	"time"

	"github.com/matthewbaird/propmanage/internal/types"
)

var refTime = time.Date(2024, time.June, 30, 12, 0, 0, 0, time.UTC)

func makeActivity(eventType, category, weight, polarity string, daysAgo int) types.ActivityEntry {
	return types.ActivityEntry{
		EventID:           "test-" + category,
		EventType:         eventType,
		OccurredAt:        refTime.AddDate(0, 0, -daysAgo),
		IndexedEntityType: "tenant",
		IndexedEntityID:   "1",
		EntityRole:        "related",
		Summary:           "test entry",
		Category:          category,
		Weight:            weight,
		Polarity:          polarity,
	}
}

func window() (time.Time, time.Time) {
	return refTime.AddDate(0, -6, 0), refTime
}

func TestAggregate_CategoryCounts(t *testing.T) {
	entries := []types.ActivityEntry{
		makeActivity("bill_paid", "financial", "info", "positive", 10),
		makeActivity("bill_paid", "financial", "info", "positive", 20),
		makeActivity("room_status_changed", "maintenance", "weak", "negative", 5),
	}

	since, until := window()
	summary := Aggregate(entries, "tenant", "1", since, until)

	if len(summary.Categories) != 2 {
		t.Errorf("got %d categories, want 2", len(summary.Categories))
	}
	if summary.Categories["financial"].SignalCount != 2 {
		t.Errorf("financial count = %d, want 2", summary.Categories["financial"].SignalCount)
	}
	if summary.Categories["maintenance"].SignalCount != 1 {
		t.Errorf("maintenance count = %d, want 1", summary.Categories["maintenance"].SignalCount)
	}
}

func TestAggregate_IgnoresEntriesOutsideWindow(t *testing.T) {
	entries := []types.ActivityEntry{
		makeActivity("bill_paid", "financial", "info", "positive", 10),
		makeActivity("bill_paid", "financial", "moderate", "negative", 400),
	}

	since, until := window()
	summary := Aggregate(entries, "tenant", "1", since, until)

	if got := summary.Categories["financial"].SignalCount; got != 1 {
		t.Errorf("financial count = %d, want 1", got)
	}
}

func TestAggregate_DominantPolarity(t *testing.T) {
	entries := []types.ActivityEntry{
		makeActivity("bill_paid", "financial", "info", "positive", 10),
		makeActivity("bill_paid", "financial", "info", "positive", 20),
		makeActivity("bill_paid", "financial", "moderate", "negative", 15),
	}

	since, until := window()
	summary := Aggregate(entries, "tenant", "1", since, until)

	if summary.Categories["financial"].DominantPolarity != "positive" {
		t.Errorf("dominant polarity = %q, want positive", summary.Categories["financial"].DominantPolarity)
	}
}

func TestAggregate_PositiveSentiment(t *testing.T) {
	entries := []types.ActivityEntry{
		makeActivity("bill_paid", "financial", "info", "positive", 10),
		makeActivity("bill_paid", "financial", "info", "positive", 40),
		makeActivity("bill_paid", "financial", "info", "positive", 70),
	}

	since, until := window()
	summary := Aggregate(entries, "tenant", "1", since, until)

	if summary.OverallSentiment != "positive" {
		t.Errorf("sentiment = %q, want positive", summary.OverallSentiment)
	}
	if len(summary.Escalations) != 0 {
		t.Errorf("got %d escalations, want 0", len(summary.Escalations))
	}
}

func TestAggregate_ConcerningSentiment(t *testing.T) {
	// Three late payments spread over five months trip the 180-day pattern
	// but not the 90-day acute rule.
	entries := []types.ActivityEntry{
		makeActivity("bill_paid", "financial", "moderate", "negative", 20),
		makeActivity("bill_paid", "financial", "moderate", "negative", 80),
		makeActivity("bill_paid", "financial", "moderate", "negative", 150),
		makeActivity("bill_paid", "financial", "info", "positive", 50),
		makeActivity("bill_paid", "financial", "info", "positive", 110),
	}

	since, until := window()
	summary := Aggregate(entries, "tenant", "1", since, until)

	if summary.OverallSentiment != "concerning" {
		t.Errorf("sentiment = %q, want concerning", summary.OverallSentiment)
	}
}

func TestAggregate_CriticalSentiment(t *testing.T) {
	entries := []types.ActivityEntry{
		makeActivity("bill_paid", "financial", "moderate", "negative", 5),
		makeActivity("bill_paid", "financial", "moderate", "negative", 35),
		makeActivity("bill_paid", "financial", "moderate", "negative", 65),
	}

	since, until := window()
	summary := Aggregate(entries, "tenant", "1", since, until)

	if summary.OverallSentiment != "critical" {
		t.Errorf("sentiment = %q, want critical", summary.OverallSentiment)
	}
}

func TestEvaluateEscalations_CountRule(t *testing.T) {
	entries := []types.ActivityEntry{
		makeActivity("bill_paid", "financial", "moderate", "negative", 10),
		makeActivity("bill_paid", "financial", "moderate", "negative", 100),
		makeActivity("bill_paid", "financial", "moderate", "negative", 170),
	}

	escalations := EvaluateEscalations(entries, refTime)

	found := false
	for _, e := range escalations {
		if e.Rule.ID == "fin_late_acute" {
			t.Error("expected fin_late_acute to NOT fire when payments span more than 90 days")
		}
		if e.Rule.ID == "fin_late_pattern" {
			found = true
			if e.TriggeringCount != 3 {
				t.Errorf("triggering count = %d, want 3", e.TriggeringCount)
			}
			if !e.EarliestOccurred.Before(e.LatestOccurred) {
				t.Errorf("earliest %v not before latest %v", e.EarliestOccurred, e.LatestOccurred)
			}
		}
	}
	if !found {
		t.Error("expected fin_late_pattern escalation to fire")
	}
}

func TestEvaluateEscalations_NotEnoughForTrigger(t *testing.T) {
	entries := []types.ActivityEntry{
		makeActivity("bill_paid", "financial", "moderate", "negative", 10),
		makeActivity("bill_paid", "financial", "moderate", "negative", 20),
	}

	escalations := EvaluateEscalations(entries, refTime)

	if len(escalations) != 0 {
		t.Errorf("got %d escalations, want 0", len(escalations))
	}
}

func TestWeightSeverity(t *testing.T) {
	if WeightSeverity("critical") != 1 {
		t.Error("critical should be 1")
	}
	if WeightSeverity("info") != 5 {
		t.Error("info should be 5")
	}
	if WeightSeverity("unknown") != 6 {
		t.Error("unknown should be 6")
	}
}

func TestIsAtLeastWeight(t *testing.T) {
	if !IsAtLeastWeight("critical", "strong") {
		t.Error("critical should be at least strong")
	}
	if !IsAtLeastWeight("strong", "strong") {
		t.Error("strong should be at least strong")
	}
	if IsAtLeastWeight("info", "strong") {
		t.Error("info should NOT be at least strong")
	}
}

func TestAggregate_PaymentHistory(t *testing.T) {
	onTime := makeActivity("bill_paid", "financial", "info", "positive", 40)
	onTime.Payload = []byte(`{"days_past_due":0}`)
	late := makeActivity("bill_paid", "financial", "moderate", "negative", 20)
	late.Payload = []byte(`{"days_past_due":12}`)
	veryLate := makeActivity("bill_paid", "financial", "strong", "negative", 10)
	veryLate.Payload = []byte(`{"days_past_due":45}`)
	other := makeActivity("meter_reading_recorded", "utility", "info", "neutral", 5)

	since, until := window()
	summary := Aggregate([]types.ActivityEntry{onTime, late, veryLate, other}, "tenant", "1", since, until)

	p := summary.Payments
	if p.Paid != 3 || p.OnTime != 1 || p.Late != 2 {
		t.Errorf("payments = %+v, want 3 paid, 1 on time, 2 late", p)
	}
	if p.MaxDaysPastDue != 45 {
		t.Errorf("max days past due = %d, want 45", p.MaxDaysPastDue)
	}
	if p.AverageDaysPastDue != 19 {
		t.Errorf("average days past due = %v, want 19", p.AverageDaysPastDue)
	}
}

func TestAggregate_NoPayments(t *testing.T) {
	since, until := window()
	summary := Aggregate(nil, "tenant", "1", since, until)
	if summary.Payments != (types.PaymentHistory{}) {
		t.Errorf("payments = %+v, want zero", summary.Payments)
	}
	if summary.OverallSentiment != SentimentPositive {
		t.Errorf("sentiment = %q, want positive", summary.OverallSentiment)
	}
}
