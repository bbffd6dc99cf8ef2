// Package signals provides the signal registry, classifier, and aggregator
// that turn billing activity into tenant payment signals.
package signals

import (
	"fmt"

	"github.com/matthewbaird/propmanage/internal/types"
)

// WeightOrder maps signal weights to numeric severity (lower = more severe).
var WeightOrder = map[string]int{
	"critical": 1,
	"strong":   2,
	"moderate": 3,
	"weak":     4,
	"info":     5,
}

// registryByEventType is the lookup map built at Init time.
var registryByEventType map[string][]types.SignalRegistration

// SignalRegistry contains all signal registrations.
var SignalRegistry = []types.SignalRegistration{
	// === Financial ===
	{
		ID:          "bill_paid_on_time",
		EventType:   "bill_paid",
		Condition:   "days_past_due == 0",
		Category:    "financial",
		Weight:      "info",
		Polarity:    "positive",
		Description: "Bill paid on or before its due date",
	},
	{
		ID:          "bill_paid_late",
		EventType:   "bill_paid",
		Condition:   "days_past_due > 0",
		Category:    "financial",
		Weight:      "moderate",
		Polarity:    "negative",
		Description: "Bill paid after its due date",
		EscalationRules: []types.EscalationRule{
			{
				ID:                   "fin_late_pattern",
				Description:          "Repeated late payments indicate financial stress",
				SignalCategory:       "financial",
				SignalPolarity:       "negative",
				Count:                3,
				WithinDays:           180,
				EscalatedWeight:      "strong",
				EscalatedDescription: "3+ late payments in 6 months. Pattern, not one-off.",
				RecommendedAction:    "Reach out to the tenant and offer a payment plan if appropriate.",
			},
			{
				ID:                   "fin_late_acute",
				Description:          "Rapid late payment acceleration",
				SignalCategory:       "financial",
				SignalPolarity:       "negative",
				Count:                3,
				WithinDays:           90,
				EscalatedWeight:      "critical",
				EscalatedDescription: "3 late payments in 90 days. Likely financial distress.",
				RecommendedAction:    "Contact the tenant immediately.",
			},
		},
	},
	{
		ID:          "bill_paid_very_late",
		EventType:   "bill_paid",
		Condition:   "days_past_due >= 30",
		Category:    "financial",
		Weight:      "strong",
		Polarity:    "negative",
		Description: "Bill paid a month or more after its due date",
	},

	// === Utility ===
	{
		ID:          "meter_reading",
		EventType:   "meter_reading_recorded",
		Category:    "utility",
		Weight:      "info",
		Polarity:    "neutral",
		Description: "Meter reading recorded",
	},
	{
		ID:          "zero_usage",
		EventType:   "meter_reading_recorded",
		Condition:   "total_usage == 0",
		Category:    "utility",
		Weight:      "weak",
		Polarity:    "negative",
		Description: "No water or electricity used during the period",
	},

	// === Lifecycle ===
	{
		ID:          "lease_started",
		EventType:   "lease_created",
		Category:    "lifecycle",
		Weight:      "strong",
		Polarity:    "positive",
		Description: "New lease signed",
	},
	{
		ID:          "lease_ended_early",
		EventType:   "lease_terminated",
		Condition:   "days_remaining > 0",
		Category:    "lifecycle",
		Weight:      "strong",
		Polarity:    "negative",
		Description: "Lease terminated before its end date",
	},
	{
		ID:          "lease_ended",
		EventType:   "lease_terminated",
		Category:    "lifecycle",
		Weight:      "moderate",
		Polarity:    "neutral",
		Description: "Lease terminated at or after its end date",
	},

	// === Property ===
	{
		ID:          "room_maintenance",
		EventType:   "room_status_changed",
		Condition:   "to == Maintenance",
		Category:    "maintenance",
		Weight:      "weak",
		Polarity:    "negative",
		Description: "Room taken out of service for maintenance",
	},
}

func init() {
	Init()
}

// Init builds the lookup maps and parses every registration condition. It
// runs at package load; call it again after changing SignalRegistry. A
// malformed condition panics.
func Init() {
	registryByEventType = make(map[string][]types.SignalRegistration, len(SignalRegistry))
	conditions = make(map[string]condition)
	for _, reg := range SignalRegistry {
		registryByEventType[reg.EventType] = append(registryByEventType[reg.EventType], reg)
		if reg.Condition == "" {
			continue
		}
		c, err := parseCondition(reg.Condition)
		if err != nil {
			panic(fmt.Sprintf("signal registration %s: %v", reg.ID, err))
		}
		conditions[reg.Condition] = c
	}
}

// LookupSignals returns all signal registrations matching the given event type.
func LookupSignals(eventType string) []types.SignalRegistration {
	return registryByEventType[eventType]
}

// WeightSeverity returns the numeric severity for a weight (lower = more severe).
// Returns 6 for unknown weights.
func WeightSeverity(weight string) int {
	if s, ok := WeightOrder[weight]; ok {
		return s
	}
	return 6
}

// IsAtLeastWeight returns true if actual is at least as severe as minimum.
func IsAtLeastWeight(actual, minimum string) bool {
	return WeightSeverity(actual) <= WeightSeverity(minimum)
}
