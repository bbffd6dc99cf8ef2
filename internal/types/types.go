// Package types provides the Go structs shared across the billing engine, the
// store, and the HTTP layer. Entities mirror the rows of the SQLite schema;
// money and meter values use decimal.Decimal so fee arithmetic stays exact.
package types

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Clients read amounts as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// RoomStatus is the occupancy state of a room.
type RoomStatus string

const (
	RoomVacant      RoomStatus = "Vacant"
	RoomOccupied    RoomStatus = "Occupied"
	RoomMaintenance RoomStatus = "Maintenance"
)

// Valid reports whether s is a known room status.
func (s RoomStatus) Valid() bool {
	switch s {
	case RoomVacant, RoomOccupied, RoomMaintenance:
		return true
	}
	return false
}

// LeaseStatus is the lifecycle state of a lease.
type LeaseStatus string

const (
	LeaseActive     LeaseStatus = "Active"
	LeaseTerminated LeaseStatus = "Terminated"
)

// BillStatus is either the stored status of a bill (Pending, Paid) or its
// effective status, which adds Overdue.
type BillStatus string

const (
	BillPending BillStatus = "Pending"
	BillPaid    BillStatus = "Paid"
	BillOverdue BillStatus = "Overdue"
)

// Building groups rooms at one address.
type Building struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Rooms   []Room `json:"rooms"`
}

// Room is a rentable unit inside a building. The last readings are the meter
// values recorded by the most recent meter reading and never decrease.
type Room struct {
	ID               int64           `json:"id"`
	BuildingID       int64           `json:"building_id"`
	RoomNumber       string          `json:"room_number"`
	Area             float64         `json:"area"`
	Status           RoomStatus      `json:"status"`
	LastWaterReading decimal.Decimal `json:"last_water_reading"`
	LastElecReading  decimal.Decimal `json:"last_elec_reading"`
}

// Tenant is a person who can hold leases.
type Tenant struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Lease binds one room to one tenant for a date range at a fixed rent.
type Lease struct {
	ID         int64           `json:"id"`
	RoomID     int64           `json:"room_id"`
	TenantID   int64           `json:"tenant_id"`
	StartDate  Date            `json:"start_date"`
	EndDate    Date            `json:"end_date"`
	RentAmount decimal.Decimal `json:"rent_amount"`
	Deposit    decimal.Decimal `json:"deposit"`
	Status     LeaseStatus     `json:"status"`
	Bills      []Bill          `json:"bills"`
}

// Bill is one period's obligation for a lease. Status holds the stored
// status; callers that render a bill replace it with the effective status.
type Bill struct {
	ID          int64           `json:"id"`
	LeaseID     int64           `json:"lease_id"`
	Period      string          `json:"period"`
	RentFee     decimal.Decimal `json:"rent_fee"`
	WaterFee    decimal.Decimal `json:"water_fee"`
	ElecFee     decimal.Decimal `json:"elec_fee"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      BillStatus      `json:"status"`
	DueDate     Date            `json:"due_date"`
}

// ─── Activity & Signal Types ───────────────────────────────────────────────────
// ActivityEntry rows live in their own table, written by the event recorder
// rather than the lifecycle manager.

// SourceRef identifies an entity referenced by a domain event.
type SourceRef struct {
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	Role       string `json:"role"` // "subject", "target", "related", "context"
}

// ActivityEntry is a secondary index entry over the domain event log,
// keyed by a referenced entity. One event produces multiple entries.
type ActivityEntry struct {
	EventID           string          `json:"event_id"`
	EventType         string          `json:"event_type"`
	OccurredAt        time.Time       `json:"occurred_at"`
	IndexedEntityType string          `json:"indexed_entity_type"`
	IndexedEntityID   string          `json:"indexed_entity_id"`
	EntityRole        string          `json:"entity_role"`
	SourceRefs        []SourceRef     `json:"source_refs"`
	Summary           string          `json:"summary"`
	Category          string          `json:"category"`
	Weight            string          `json:"weight"`
	Polarity          string          `json:"polarity"`
	Payload           json.RawMessage `json:"payload"`
}

// SignalRegistration maps an event type to a signal classification.
type SignalRegistration struct {
	ID              string           `json:"id"`
	EventType       string           `json:"event_type"`
	Condition       string           `json:"condition,omitempty"`
	Category        string           `json:"category"`
	Weight          string           `json:"weight"`
	Polarity        string           `json:"polarity"`
	Description     string           `json:"description"`
	EscalationRules []EscalationRule `json:"escalation_rules,omitempty"`
}

// EscalationRule defines when repeated signals escalate in severity.
type EscalationRule struct {
	ID                   string `json:"id"`
	Description          string `json:"description"`
	SignalCategory       string `json:"signal_category,omitempty"`
	SignalPolarity       string `json:"signal_polarity,omitempty"`
	Count                int    `json:"count"`
	WithinDays           int    `json:"within_days"`
	EscalatedWeight      string `json:"escalated_weight"`
	EscalatedDescription string `json:"escalated_description"`
	RecommendedAction    string `json:"recommended_action,omitempty"`
}

// EscalatedSignal is a triggered escalation rule with context.
type EscalatedSignal struct {
	Rule             EscalationRule `json:"rule"`
	TriggeringCount  int            `json:"triggering_count"`
	EarliestOccurred time.Time      `json:"earliest_occurred"`
	LatestOccurred   time.Time      `json:"latest_occurred"`
}

// CategorySummary aggregates signals within a single category.
type CategorySummary struct {
	Category         string         `json:"category"`
	SignalCount      int            `json:"signal_count"`
	ByWeight         map[string]int `json:"by_weight"`
	ByPolarity       map[string]int `json:"by_polarity"`
	DominantPolarity string         `json:"dominant_polarity"`
}

// SignalSummary is the aggregated signal overview for an entity.
type SignalSummary struct {
	EntityType       string                     `json:"entity_type"`
	EntityID         string                     `json:"entity_id"`
	Since            time.Time                  `json:"since"`
	Until            time.Time                  `json:"until"`
	Categories       map[string]CategorySummary `json:"categories"`
	OverallSentiment string                     `json:"overall_sentiment"` // "positive", "mixed", "concerning", "critical"
	SentimentReason  string                     `json:"sentiment_reason"`
	Escalations      []EscalatedSignal          `json:"escalations"`
	Payments         PaymentHistory             `json:"payments"`
}

// PaymentHistory summarizes the bill_paid entries of a signal window.
type PaymentHistory struct {
	Paid               int     `json:"paid"`
	OnTime             int     `json:"on_time"`
	Late               int     `json:"late"`
	MaxDaysPastDue     int     `json:"max_days_past_due"`
	AverageDaysPastDue float64 `json:"average_days_past_due"`
}
