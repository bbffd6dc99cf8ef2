package signals

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/matthewbaird/propmanage/internal/types"
)

// DomainEvent is the part of a domain event the classifier reads.
type DomainEvent struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
}

// ClassificationResult holds the output of classifying a domain event.
type ClassificationResult struct {
	Category     string
	Weight       string
	Polarity     string
	Description  string
	Registration *types.SignalRegistration
}

// ClassifyEvent picks the registration for an event. Conditional
// registrations are matched against the payload and the most severe match
// wins; otherwise the first unconditional registration applies. ok is false
// when nothing matches.
func ClassifyEvent(evt DomainEvent) (result ClassificationResult, ok bool) {
	registrations := LookupSignals(evt.EventType)
	if len(registrations) == 0 {
		return ClassificationResult{}, false
	}

	var payload map[string]any
	if len(evt.Payload) > 0 {
		_ = json.Unmarshal(evt.Payload, &payload)
	}

	var best, fallback *types.SignalRegistration
	for i := range registrations {
		reg := &registrations[i]
		if reg.Condition == "" {
			if fallback == nil {
				fallback = reg
			}
			continue
		}
		if !matchCondition(reg.Condition, payload) {
			continue
		}
		if best == nil || WeightSeverity(reg.Weight) < WeightSeverity(best.Weight) {
			best = reg
		}
	}
	if best == nil {
		best = fallback
	}
	if best == nil {
		return ClassificationResult{}, false
	}
	return ClassificationResult{
		Category:     best.Category,
		Weight:       best.Weight,
		Polarity:     best.Polarity,
		Description:  best.Description,
		Registration: best,
	}, true
}

// condition is a parsed "field op value" registration condition.
type condition struct {
	field string
	op    string
	value string
}

// Two-character operators come first so "<=" is not read as "<".
var operators = []string{"<=", ">=", "==", "<", ">"}

func parseCondition(s string) (condition, error) {
	for _, op := range operators {
		field, value, found := strings.Cut(s, op)
		if !found {
			continue
		}
		field, value = strings.TrimSpace(field), strings.TrimSpace(value)
		if field == "" || value == "" {
			break
		}
		return condition{field: field, op: op, value: value}, nil
	}
	return condition{}, fmt.Errorf("malformed condition %q", s)
}

// conditions caches parsed registration conditions; Init fills it.
var conditions map[string]condition

// matchCondition reports whether payload satisfies the condition. A missing
// field or a malformed condition never matches.
func matchCondition(s string, payload map[string]any) bool {
	if payload == nil {
		return false
	}
	c, ok := conditions[s]
	if !ok {
		var err error
		if c, err = parseCondition(s); err != nil {
			return false
		}
	}
	return c.match(payload)
}

func (c condition) match(payload map[string]any) bool {
	actual, ok := payload[c.field]
	if !ok {
		return false
	}
	if c.op == "==" {
		return valueEquals(actual, c.value)
	}
	cmp, ok := valueCompare(actual, c.value)
	if !ok {
		return false
	}
	switch c.op {
	case "<=":
		return cmp <= 0
	case ">=":
		return cmp >= 0
	case "<":
		return cmp < 0
	default:
		return cmp > 0
	}
}

// valueEquals checks a payload value against the condition's literal.
func valueEquals(actual any, expected string) bool {
	switch v := actual.(type) {
	case string:
		return v == expected
	case float64:
		if ev, err := strconv.ParseFloat(expected, 64); err == nil {
			return v == ev
		}
		return false
	case bool:
		b, err := strconv.ParseBool(expected)
		return err == nil && b == v
	}
	return false
}

// valueCompare compares a payload number against threshold. Numeric
// strings count as numbers so quoted decimal amounts compare correctly.
func valueCompare(actual any, threshold string) (int, bool) {
	var av float64
	switch v := actual.(type) {
	case float64:
		av = v
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		av = f
	default:
		return 0, false
	}
	tv, err := strconv.ParseFloat(threshold, 64)
	if err != nil {
		return 0, false
	}
	switch {
	case av < tv:
		return -1, true
	case av > tv:
		return 1, true
	}
	return 0, true
}
