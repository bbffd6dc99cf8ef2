package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/propmanage/internal/billing"
	"github.com/matthewbaird/propmanage/internal/event"
	"github.com/matthewbaird/propmanage/internal/policy"
	"github.com/matthewbaird/propmanage/internal/store"
	"github.com/matthewbaird/propmanage/internal/types"
)

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func d(s string) types.Date { return types.MustParseDate(s) }

type memRecorder struct {
	mu     sync.Mutex
	events []event.DomainEvent
	err    error
}

func (r *memRecorder) Record(_ context.Context, evt event.DomainEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return r.err
}

func (r *memRecorder) eventTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.EventType
	}
	return out
}

type env struct {
	store    *store.Store
	mgr      *Manager
	rec      *memRecorder
	building types.Building
	room     types.Room
	other    types.Room
	tenant   types.Tenant
	stranger types.Tenant
	clock    *time.Time
}

func newEnv(t *testing.T, opts Options) *env {
	t.Helper()
	ctx := context.Background()
	s, err := store.Open(ctx, "file::memory:?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(ctx))

	e := &env{store: s, rec: &memRecorder{}}
	now := time.Date(2024, time.January, 10, 9, 0, 0, 0, time.UTC)
	e.clock = &now
	opts.Recorder = e.rec
	opts.Now = func() time.Time { return *e.clock }
	e.mgr = New(s, opts)

	e.building, err = s.CreateBuilding(ctx, "Building A", "123 Main Street")
	require.NoError(t, err)
	e.room, err = s.CreateRoom(ctx, types.Room{
		BuildingID: e.building.ID, RoomNumber: "A-101", Area: 50,
		LastWaterReading: dec("100"), LastElecReading: dec("200"),
	})
	require.NoError(t, err)
	e.other, err = s.CreateRoom(ctx, types.Room{
		BuildingID: e.building.ID, RoomNumber: "A-102", Area: 60,
		LastWaterReading: dec("150"), LastElecReading: dec("250"),
	})
	require.NoError(t, err)
	e.tenant, err = s.CreateTenant(ctx, "User1", "13800138001")
	require.NoError(t, err)
	e.stranger, err = s.CreateTenant(ctx, "User2", "13800138002")
	require.NoError(t, err)
	return e
}

func (e *env) lease(t *testing.T, roomID int64) types.Lease {
	t.Helper()
	l, err := e.mgr.CreateLease(context.Background(), LeaseInput{
		RoomID: roomID, TenantID: e.tenant.ID,
		StartDate: d("2024-01-01"), EndDate: d("2025-01-01"),
		RentAmount: dec("3000"), Deposit: dec("6000"),
	})
	require.NoError(t, err)
	return l
}

func (e *env) roomStatus(t *testing.T, id int64) types.RoomStatus {
	t.Helper()
	r, err := e.store.GetRoom(context.Background(), id)
	require.NoError(t, err)
	return r.Status
}

// ── CreateLease ──────────────────────────────────────────────────────────────

func TestCreateLease_GeneratesBillsAndOccupiesRoom(t *testing.T) {
	e := newEnv(t, Options{})
	l := e.lease(t, e.room.ID)

	assert.Equal(t, types.LeaseActive, l.Status)
	require.Len(t, l.Bills, 12)
	assert.Equal(t, "2024-01", l.Bills[0].Period)
	assert.Equal(t, "2024-12", l.Bills[11].Period)
	assert.Equal(t, d("2024-01-15"), l.Bills[0].DueDate)
	for _, b := range l.Bills {
		assert.True(t, b.TotalAmount.Equal(dec("3000")), "period %s total %s", b.Period, b.TotalAmount)
		assert.Equal(t, types.BillPending, b.Status)
		assert.NotZero(t, b.ID)
	}
	assert.Equal(t, types.RoomOccupied, e.roomStatus(t, e.room.ID))

	require.Equal(t, []string{"lease_created"}, e.rec.eventTypes())
	assert.Contains(t, string(e.rec.events[0].Payload), `"bill_count":12`)
}

func TestCreateLease_RoomNotVacant(t *testing.T) {
	e := newEnv(t, Options{})
	ctx := context.Background()
	first := e.lease(t, e.room.ID)

	_, err := e.mgr.CreateLease(ctx, LeaseInput{
		RoomID: e.room.ID, TenantID: e.stranger.ID,
		StartDate: d("2024-02-01"), EndDate: d("2024-08-01"),
		RentAmount: dec("2500"),
	})
	require.ErrorIs(t, err, billing.ErrInvalidState)
	assert.Contains(t, err.Error(), "Room is not vacant")

	leases, err := e.store.ListLeases(ctx, store.LeaseFilter{RoomIDs: []int64{e.room.ID}})
	require.NoError(t, err)
	require.Len(t, leases, 1)
	assert.Equal(t, first.ID, leases[0].ID)
	assert.Len(t, leases[0].Bills, 12)
	assert.Equal(t, types.RoomOccupied, e.roomStatus(t, e.room.ID))
}

func TestCreateLease_MaintenanceRoomRefused(t *testing.T) {
	e := newEnv(t, Options{})
	_, err := e.mgr.SetRoomStatus(context.Background(), e.room.ID, types.RoomMaintenance)
	require.NoError(t, err)

	_, err = e.mgr.CreateLease(context.Background(), LeaseInput{
		RoomID: e.room.ID, TenantID: e.tenant.ID,
		StartDate: d("2024-01-01"), EndDate: d("2024-06-01"), RentAmount: dec("1000"),
	})
	assert.ErrorIs(t, err, billing.ErrInvalidState)
}

func TestCreateLease_InvalidRangeWritesNothing(t *testing.T) {
	e := newEnv(t, Options{})
	ctx := context.Background()

	for _, end := range []string{"2024-01-01", "2023-12-31"} {
		_, err := e.mgr.CreateLease(ctx, LeaseInput{
			RoomID: e.room.ID, TenantID: e.tenant.ID,
			StartDate: d("2024-01-01"), EndDate: d(end), RentAmount: dec("3000"),
		})
		require.ErrorIs(t, err, billing.ErrInvalidRange, "end %s", end)
	}

	leases, err := e.store.ListLeases(ctx, store.LeaseFilter{})
	require.NoError(t, err)
	assert.Empty(t, leases)
	bills, err := e.store.ListBills(ctx, store.BillFilter{})
	require.NoError(t, err)
	assert.Empty(t, bills)
	assert.Equal(t, types.RoomVacant, e.roomStatus(t, e.room.ID))
	assert.Empty(t, e.rec.eventTypes())
}

func TestCreateLease_NotFound(t *testing.T) {
	e := newEnv(t, Options{})
	ctx := context.Background()

	_, err := e.mgr.CreateLease(ctx, LeaseInput{RoomID: 999, TenantID: e.tenant.ID,
		StartDate: d("2024-01-01"), EndDate: d("2024-06-01"), RentAmount: dec("1")})
	var nf *billing.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "room", nf.Entity)

	_, err = e.mgr.CreateLease(ctx, LeaseInput{RoomID: e.room.ID, TenantID: 999,
		StartDate: d("2024-01-01"), EndDate: d("2024-06-01"), RentAmount: dec("1")})
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "tenant", nf.Entity)
	assert.Equal(t, types.RoomVacant, e.roomStatus(t, e.room.ID))
}

func TestCreateLease_DepositCap(t *testing.T) {
	e := newEnv(t, Options{Deposit: policy.DepositLimit{MaxMonths: dec("1")}})

	_, err := e.mgr.CreateLease(context.Background(), LeaseInput{
		RoomID: e.room.ID, TenantID: e.tenant.ID,
		StartDate: d("2024-01-01"), EndDate: d("2025-01-01"),
		RentAmount: dec("3000"), Deposit: dec("6000"),
	})
	var v *policy.Violation
	require.ErrorAs(t, err, &v)
	assert.Equal(t, "security_deposit_limit", v.RuleType)
	assert.Equal(t, types.RoomVacant, e.roomStatus(t, e.room.ID))
}

func TestCreateLease_RecorderFailureDoesNotFailLease(t *testing.T) {
	e := newEnv(t, Options{})
	e.rec.err = errors.New("activity store down")

	l := e.lease(t, e.room.ID)
	assert.NotZero(t, l.ID)
	assert.Equal(t, types.RoomOccupied, e.roomStatus(t, e.room.ID))
}

// ── Payments ─────────────────────────────────────────────────────────────────

func TestPayBill_Idempotent(t *testing.T) {
	e := newEnv(t, Options{})
	ctx := context.Background()
	l := e.lease(t, e.room.ID)
	billID := l.Bills[0].ID

	b, err := e.mgr.PayBill(ctx, billID)
	require.NoError(t, err)
	assert.Equal(t, types.BillPaid, b.Status)

	b, err = e.mgr.PayBill(ctx, billID)
	require.NoError(t, err)
	assert.Equal(t, types.BillPaid, b.Status)

	stored, err := e.store.GetBill(ctx, billID)
	require.NoError(t, err)
	assert.Equal(t, types.BillPaid, stored.Status)
	assert.Equal(t, []string{"lease_created", "bill_paid"}, e.rec.eventTypes())
}

func TestPayBill_NotFound(t *testing.T) {
	e := newEnv(t, Options{})
	_, err := e.mgr.PayBill(context.Background(), 42)
	assert.ErrorIs(t, err, billing.ErrNotFound)
}

func TestPayBill_LateRecordsDaysPastDue(t *testing.T) {
	e := newEnv(t, Options{})
	l := e.lease(t, e.room.ID)

	*e.clock = time.Date(2024, time.January, 25, 9, 0, 0, 0, time.UTC)
	_, err := e.mgr.PayBill(context.Background(), l.Bills[0].ID)
	require.NoError(t, err)

	paid := e.rec.events[len(e.rec.events)-1]
	assert.Contains(t, string(paid.Payload), `"days_past_due":10`)
	assert.Equal(t, "negative", paid.Polarity)
}

func TestPayTenantBill_Ownership(t *testing.T) {
	e := newEnv(t, Options{})
	ctx := context.Background()
	l := e.lease(t, e.room.ID)

	_, err := e.mgr.PayTenantBill(ctx, e.stranger.ID, l.Bills[0].ID)
	require.ErrorIs(t, err, billing.ErrNotFound)
	_, err = e.mgr.PayTenantBill(ctx, 0, l.Bills[0].ID)
	require.ErrorIs(t, err, billing.ErrNotFound)
	stored, err := e.store.GetBill(ctx, l.Bills[0].ID)
	require.NoError(t, err)
	assert.Equal(t, types.BillPending, stored.Status)

	b, err := e.mgr.PayTenantBill(ctx, e.tenant.ID, l.Bills[0].ID)
	require.NoError(t, err)
	assert.Equal(t, types.BillPaid, b.Status)
	assert.Contains(t, string(e.rec.events[len(e.rec.events)-1].Payload), `"paid_by":"tenant"`)
}

// ── Meter readings ───────────────────────────────────────────────────────────

func TestRecordMeterReading_PricesUsage(t *testing.T) {
	e := newEnv(t, Options{})
	ctx := context.Background()
	l := e.lease(t, e.room.ID)

	b, err := e.mgr.RecordMeterReading(ctx, l.Bills[0].ID, billing.Reading{Water: dec("150"), Elec: dec("250")})
	require.NoError(t, err)
	assert.True(t, b.WaterFee.Equal(dec("250")), "water fee %s", b.WaterFee)
	assert.True(t, b.ElecFee.Equal(dec("50")), "elec fee %s", b.ElecFee)
	assert.True(t, b.TotalAmount.Equal(dec("3300")), "total %s", b.TotalAmount)

	stored, err := e.store.GetBill(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, stored.TotalAmount.Equal(dec("3300")))

	room, err := e.store.GetRoom(ctx, e.room.ID)
	require.NoError(t, err)
	assert.True(t, room.LastWaterReading.Equal(dec("150")))
	assert.True(t, room.LastElecReading.Equal(dec("250")))

	last := e.rec.events[len(e.rec.events)-1]
	assert.Equal(t, "meter_reading_recorded", last.EventType)
	assert.Contains(t, string(last.Payload), `"water_usage":50`)
}

func TestRecordMeterReading_CustomRates(t *testing.T) {
	e := newEnv(t, Options{Rates: billing.Rates{WaterUnitPrice: dec("2"), ElecUnitPrice: dec("0.5")}})
	l := e.lease(t, e.room.ID)

	b, err := e.mgr.RecordMeterReading(context.Background(), l.Bills[0].ID, billing.Reading{Water: dec("110"), Elec: dec("220")})
	require.NoError(t, err)
	assert.True(t, b.WaterFee.Equal(dec("20")))
	assert.True(t, b.ElecFee.Equal(dec("10")))
}

func TestRecordMeterReading_RegressionChangesNothing(t *testing.T) {
	e := newEnv(t, Options{})
	ctx := context.Background()
	l := e.lease(t, e.room.ID)

	_, err := e.mgr.RecordMeterReading(ctx, l.Bills[0].ID, billing.Reading{Water: dec("90"), Elec: dec("250")})
	var ve *billing.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "current_water", ve.Field)

	stored, err := e.store.GetBill(ctx, l.Bills[0].ID)
	require.NoError(t, err)
	assert.True(t, stored.WaterFee.IsZero())
	assert.True(t, stored.TotalAmount.Equal(dec("3000")))
	room, err := e.store.GetRoom(ctx, e.room.ID)
	require.NoError(t, err)
	assert.True(t, room.LastWaterReading.Equal(dec("100")))
	assert.True(t, room.LastElecReading.Equal(dec("200")))
}

func TestRecordMeterReading_ConcurrentReadingsSerialize(t *testing.T) {
	e := newEnv(t, Options{})
	ctx := context.Background()
	l := e.lease(t, e.room.ID)

	var wg sync.WaitGroup
	for i := range 4 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = e.mgr.RecordMeterReading(ctx, l.Bills[i].ID, billing.Reading{
				Water: dec("100").Add(decimal.NewFromInt(int64(10 * (i + 1)))),
				Elec:  dec("200").Add(decimal.NewFromInt(int64(10 * (i + 1)))),
			})
		}(i)
	}
	wg.Wait()

	// Whatever the order, the room's readings never go backwards and the
	// fees charged add up to the final reading.
	room, err := e.store.GetRoom(ctx, e.room.ID)
	require.NoError(t, err)
	bills, err := e.store.ListBills(ctx, store.BillFilter{LeaseIDs: []int64{l.ID}})
	require.NoError(t, err)
	water := decimal.Zero
	for _, b := range bills {
		water = water.Add(b.WaterFee)
	}
	assert.True(t, water.Equal(room.LastWaterReading.Sub(dec("100")).Mul(dec("5"))),
		"water fees %s for reading %s", water, room.LastWaterReading)
	assert.Zero(t, e.mgr.rooms.len())
}

// ── Termination and deletion ─────────────────────────────────────────────────

func TestTerminateLease(t *testing.T) {
	e := newEnv(t, Options{})
	ctx := context.Background()
	l := e.lease(t, e.room.ID)

	got, err := e.mgr.TerminateLease(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, types.LeaseTerminated, got.Status)
	assert.Equal(t, types.RoomVacant, e.roomStatus(t, e.room.ID))
	assert.Len(t, got.Bills, 12)

	term := e.rec.events[len(e.rec.events)-1]
	assert.Equal(t, "lease_terminated", term.EventType)
	assert.Equal(t, "negative", term.Polarity)
	assert.Contains(t, string(term.Payload), `"unpaid_bills":12`)

	_, err = e.mgr.TerminateLease(ctx, l.ID)
	assert.ErrorIs(t, err, billing.ErrInvalidState)

	// The room can be leased again.
	e.lease(t, e.room.ID)
}

func TestDeleteLease_CascadesAndVacates(t *testing.T) {
	e := newEnv(t, Options{})
	ctx := context.Background()
	l := e.lease(t, e.room.ID)

	require.NoError(t, e.mgr.DeleteLease(ctx, l.ID))

	_, err := e.store.GetLease(ctx, l.ID)
	assert.ErrorIs(t, err, billing.ErrNotFound)
	bills, err := e.store.ListBills(ctx, store.BillFilter{LeaseIDs: []int64{l.ID}})
	require.NoError(t, err)
	assert.Empty(t, bills)
	assert.Equal(t, types.RoomVacant, e.roomStatus(t, e.room.ID))
	assert.Contains(t, string(e.rec.events[len(e.rec.events)-1].Payload), `"bills_deleted":12`)

	assert.ErrorIs(t, e.mgr.DeleteLease(ctx, l.ID), billing.ErrNotFound)
}

func TestDeleteLease_TerminatedLeavesRoomAlone(t *testing.T) {
	e := newEnv(t, Options{})
	ctx := context.Background()
	l := e.lease(t, e.room.ID)
	_, err := e.mgr.TerminateLease(ctx, l.ID)
	require.NoError(t, err)
	_, err = e.mgr.SetRoomStatus(ctx, e.room.ID, types.RoomMaintenance)
	require.NoError(t, err)

	require.NoError(t, e.mgr.DeleteLease(ctx, l.ID))
	assert.Equal(t, types.RoomMaintenance, e.roomStatus(t, e.room.ID))
}

func TestDeleteBuilding_BlockedByActiveLease(t *testing.T) {
	e := newEnv(t, Options{})
	ctx := context.Background()
	l := e.lease(t, e.room.ID)

	err := e.mgr.DeleteBuilding(ctx, e.building.ID)
	require.ErrorIs(t, err, billing.ErrInvalidState)
	_, err = e.store.GetBuilding(ctx, e.building.ID)
	require.NoError(t, err)

	_, err = e.mgr.TerminateLease(ctx, l.ID)
	require.NoError(t, err)
	require.NoError(t, e.mgr.DeleteBuilding(ctx, e.building.ID))

	_, err = e.store.GetBuilding(ctx, e.building.ID)
	assert.ErrorIs(t, err, billing.ErrNotFound)
	_, err = e.store.GetRoom(ctx, e.other.ID)
	assert.ErrorIs(t, err, billing.ErrNotFound)
	bills, err := e.store.ListBills(ctx, store.BillFilter{})
	require.NoError(t, err)
	assert.Empty(t, bills)

	last := e.rec.events[len(e.rec.events)-1]
	assert.Equal(t, "building_deleted", last.EventType)
	assert.Contains(t, string(last.Payload), `"rooms_deleted":2`)
	assert.Contains(t, string(last.Payload), `"leases_deleted":1`)
}

func TestDeleteBuilding_Empty(t *testing.T) {
	e := newEnv(t, Options{})
	ctx := context.Background()
	b, err := e.store.CreateBuilding(ctx, "Building B", "456 Oak Avenue")
	require.NoError(t, err)

	require.NoError(t, e.mgr.DeleteBuilding(ctx, b.ID))
	assert.ErrorIs(t, e.mgr.DeleteBuilding(ctx, b.ID), billing.ErrNotFound)
}

// ── Room status ──────────────────────────────────────────────────────────────

func TestSetRoomStatus(t *testing.T) {
	e := newEnv(t, Options{})
	ctx := context.Background()

	r, err := e.mgr.SetRoomStatus(ctx, e.room.ID, types.RoomMaintenance)
	require.NoError(t, err)
	assert.Equal(t, types.RoomMaintenance, r.Status)
	r, err = e.mgr.SetRoomStatus(ctx, e.room.ID, types.RoomVacant)
	require.NoError(t, err)
	assert.Equal(t, types.RoomVacant, r.Status)
	_, err = e.mgr.SetRoomStatus(ctx, e.room.ID, types.RoomVacant)
	require.NoError(t, err)
	assert.Equal(t, []string{"room_status_changed", "room_status_changed"}, e.rec.eventTypes())

	_, err = e.mgr.SetRoomStatus(ctx, e.room.ID, types.RoomOccupied)
	assert.ErrorIs(t, err, billing.ErrInvalidState)

	_, err = e.mgr.SetRoomStatus(ctx, e.room.ID, "Demolished")
	var ve *billing.ValidationError
	assert.ErrorAs(t, err, &ve)

	e.lease(t, e.room.ID)
	_, err = e.mgr.SetRoomStatus(ctx, e.room.ID, types.RoomMaintenance)
	assert.ErrorIs(t, err, billing.ErrInvalidState)
}
