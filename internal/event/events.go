package event

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/matthewbaird/propmanage/internal/signals"
	"github.com/matthewbaird/propmanage/internal/types"
)

// DomainEvent carries the canonical shape of every domain event.
type DomainEvent struct {
	ID               string            `json:"id"`
	EventType        string            `json:"event_type"`
	OccurredAt       time.Time         `json:"occurred_at"`
	AffectedEntities []types.SourceRef `json:"affected_entities"`
	Summary          string            `json:"summary"`
	Category         string            `json:"category"` // "lease", "payment", "utility", "property"
	Weight           string            `json:"weight"`   // "critical", "strong", "moderate", "weak", "info"
	Polarity         string            `json:"polarity"` // "positive", "negative", "neutral"
	Payload          json.RawMessage   `json:"payload"`
}

func newID() string { return uuid.New().String() }

func mustJSON(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

func ref(entityType string, id int64, role string) types.SourceRef {
	return types.SourceRef{EntityType: entityType, EntityID: strconv.FormatInt(id, 10), Role: role}
}

// newEvent builds an event with the given defaults, then lets the signal
// registry override category, weight and polarity when a registration
// matches the payload.
func newEvent(eventType, summary, category, weight, polarity string, refs []types.SourceRef, payload any) DomainEvent {
	evt := DomainEvent{
		ID:               newID(),
		EventType:        eventType,
		OccurredAt:       time.Now(),
		AffectedEntities: refs,
		Summary:          summary,
		Category:         category,
		Weight:           weight,
		Polarity:         polarity,
		Payload:          mustJSON(payload),
	}
	if c, ok := signals.ClassifyEvent(signals.DomainEvent{
		EventID:   evt.ID,
		EventType: evt.EventType,
		Payload:   evt.Payload,
	}); ok {
		evt.Category = c.Category
		evt.Weight = c.Weight
		evt.Polarity = c.Polarity
	}
	return evt
}

// ── Lease events ─────────────────────────────────────────────────────────────

// LeaseCreatedPayload carries event-specific data for LeaseCreated.
type LeaseCreatedPayload struct {
	LeaseID    int64           `json:"lease_id"`
	RoomID     int64           `json:"room_id"`
	BuildingID int64           `json:"building_id"`
	TenantID   int64           `json:"tenant_id"`
	RoomNumber string          `json:"room_number"`
	StartDate  types.Date      `json:"start_date"`
	EndDate    types.Date      `json:"end_date"`
	RentAmount decimal.Decimal `json:"rent_amount"`
	Deposit    decimal.Decimal `json:"deposit"`
	BillCount  int             `json:"bill_count"`
}

func NewLeaseCreated(p LeaseCreatedPayload) DomainEvent {
	return newEvent("lease_created",
		fmt.Sprintf("Lease %d created for room %s, %d bills scheduled", p.LeaseID, p.RoomNumber, p.BillCount),
		"lease", "strong", "positive",
		[]types.SourceRef{
			ref("lease", p.LeaseID, "subject"),
			ref("room", p.RoomID, "target"),
			ref("tenant", p.TenantID, "related"),
			ref("building", p.BuildingID, "context"),
		}, p)
}

// LeaseTerminatedPayload carries event-specific data for LeaseTerminated.
type LeaseTerminatedPayload struct {
	LeaseID       int64      `json:"lease_id"`
	RoomID        int64      `json:"room_id"`
	TenantID      int64      `json:"tenant_id"`
	EndDate       types.Date `json:"end_date"`
	TerminatedOn  types.Date `json:"terminated_on"`
	DaysRemaining int        `json:"days_remaining"`
	UnpaidBills   int        `json:"unpaid_bills"`
}

func NewLeaseTerminated(p LeaseTerminatedPayload) DomainEvent {
	return newEvent("lease_terminated",
		fmt.Sprintf("Lease %d terminated on %s", p.LeaseID, p.TerminatedOn),
		"lease", "moderate", "neutral",
		[]types.SourceRef{
			ref("lease", p.LeaseID, "subject"),
			ref("room", p.RoomID, "target"),
			ref("tenant", p.TenantID, "related"),
		}, p)
}

// LeaseDeletedPayload carries event-specific data for LeaseDeleted.
type LeaseDeletedPayload struct {
	LeaseID      int64 `json:"lease_id"`
	RoomID       int64 `json:"room_id"`
	TenantID     int64 `json:"tenant_id"`
	BillsDeleted int64 `json:"bills_deleted"`
	RoomVacated  bool  `json:"room_vacated"`
}

func NewLeaseDeleted(p LeaseDeletedPayload) DomainEvent {
	return newEvent("lease_deleted",
		fmt.Sprintf("Lease %d deleted with %d bills", p.LeaseID, p.BillsDeleted),
		"lease", "moderate", "neutral",
		[]types.SourceRef{
			ref("lease", p.LeaseID, "subject"),
			ref("room", p.RoomID, "target"),
			ref("tenant", p.TenantID, "related"),
		}, p)
}

// ── Billing events ───────────────────────────────────────────────────────────

// MeterReadingRecordedPayload carries event-specific data for MeterReadingRecorded.
type MeterReadingRecordedPayload struct {
	BillID       int64           `json:"bill_id"`
	LeaseID      int64           `json:"lease_id"`
	RoomID       int64           `json:"room_id"`
	TenantID     int64           `json:"tenant_id"`
	Period       string          `json:"period"`
	CurrentWater decimal.Decimal `json:"current_water"`
	CurrentElec  decimal.Decimal `json:"current_elec"`
	WaterUsage   decimal.Decimal `json:"water_usage"`
	ElecUsage    decimal.Decimal `json:"elec_usage"`
	TotalUsage   decimal.Decimal `json:"total_usage"`
	WaterFee     decimal.Decimal `json:"water_fee"`
	ElecFee      decimal.Decimal `json:"elec_fee"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
}

func NewMeterReadingRecorded(p MeterReadingRecordedPayload) DomainEvent {
	return newEvent("meter_reading_recorded",
		fmt.Sprintf("Meter reading for bill %d (%s): water %s, electricity %s",
			p.BillID, p.Period, p.WaterUsage, p.ElecUsage),
		"utility", "info", "neutral",
		[]types.SourceRef{
			ref("bill", p.BillID, "subject"),
			ref("room", p.RoomID, "target"),
			ref("lease", p.LeaseID, "related"),
			ref("tenant", p.TenantID, "related"),
		}, p)
}

// BillPaidPayload carries event-specific data for BillPaid.
type BillPaidPayload struct {
	BillID      int64           `json:"bill_id"`
	LeaseID     int64           `json:"lease_id"`
	TenantID    int64           `json:"tenant_id"`
	Period      string          `json:"period"`
	Amount      decimal.Decimal `json:"amount"`
	DueDate     types.Date      `json:"due_date"`
	PaidOn      types.Date      `json:"paid_on"`
	DaysPastDue int             `json:"days_past_due"`
	PaidBy      string          `json:"paid_by"` // "tenant" or "landlord"
}

func NewBillPaid(p BillPaidPayload) DomainEvent {
	return newEvent("bill_paid",
		fmt.Sprintf("Bill %d for %s paid (%s)", p.BillID, p.Period, p.Amount),
		"payment", "info", "positive",
		[]types.SourceRef{
			ref("bill", p.BillID, "subject"),
			ref("lease", p.LeaseID, "related"),
			ref("tenant", p.TenantID, "related"),
		}, p)
}

// ── Property events ──────────────────────────────────────────────────────────

// RoomStatusChangedPayload carries event-specific data for RoomStatusChanged.
type RoomStatusChangedPayload struct {
	RoomID     int64            `json:"room_id"`
	BuildingID int64            `json:"building_id"`
	From       types.RoomStatus `json:"from"`
	To         types.RoomStatus `json:"to"`
}

func NewRoomStatusChanged(p RoomStatusChangedPayload) DomainEvent {
	return newEvent("room_status_changed",
		fmt.Sprintf("Room %d changed from %s to %s", p.RoomID, p.From, p.To),
		"property", "weak", "neutral",
		[]types.SourceRef{
			ref("room", p.RoomID, "subject"),
			ref("building", p.BuildingID, "context"),
		}, p)
}

// BuildingDeletedPayload carries event-specific data for BuildingDeleted.
type BuildingDeletedPayload struct {
	BuildingID    int64 `json:"building_id"`
	RoomsDeleted  int64 `json:"rooms_deleted"`
	LeasesDeleted int64 `json:"leases_deleted"`
	BillsDeleted  int64 `json:"bills_deleted"`
}

func NewBuildingDeleted(p BuildingDeletedPayload) DomainEvent {
	return newEvent("building_deleted",
		fmt.Sprintf("Building %d deleted with %d rooms, %d leases and %d bills",
			p.BuildingID, p.RoomsDeleted, p.LeasesDeleted, p.BillsDeleted),
		"property", "strong", "neutral",
		[]types.SourceRef{
			ref("building", p.BuildingID, "subject"),
		}, p)
}
