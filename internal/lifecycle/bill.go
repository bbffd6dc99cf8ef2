package lifecycle

import (
	"context"
	"fmt"

	"github.com/matthewbaird/propmanage/internal/billing"
	"github.com/matthewbaird/propmanage/internal/event"
	"github.com/matthewbaird/propmanage/internal/store"
	"github.com/matthewbaird/propmanage/internal/types"
)

// PayBill marks a bill Paid. Paying a paid bill succeeds without change.
func (m *Manager) PayBill(ctx context.Context, billID int64) (types.Bill, error) {
	return m.pay(ctx, billID, "landlord", func(tx *store.Store) (types.Bill, error) {
		return tx.GetBill(ctx, billID)
	})
}

// PayTenantBill marks a bill Paid on behalf of tenantID. A bill on another
// tenant's lease is reported as not found.
func (m *Manager) PayTenantBill(ctx context.Context, tenantID, billID int64) (types.Bill, error) {
	return m.pay(ctx, billID, "tenant", func(tx *store.Store) (types.Bill, error) {
		return tx.GetTenantBill(ctx, tenantID, billID)
	})
}

// pay marks the bill returned by lookup Paid. lookup decides which bills the
// caller may see.
func (m *Manager) pay(ctx context.Context, billID int64, paidBy string, lookup func(*store.Store) (types.Bill, error)) (types.Bill, error) {
	var (
		bill    types.Bill
		lease   types.Lease
		wasPaid bool
	)
	err := m.store.WithTx(ctx, func(tx *store.Store) error {
		var err error
		if bill, err = lookup(tx); err != nil {
			return err
		}
		if lease, err = tx.GetLease(ctx, bill.LeaseID); err != nil {
			return err
		}
		wasPaid = bill.Status == types.BillPaid
		if wasPaid {
			return nil
		}
		if err := tx.UpdateBillStatus(ctx, billID, types.BillPaid); err != nil {
			return err
		}
		bill.Status = types.BillPaid
		return nil
	})
	if err != nil {
		return types.Bill{}, fmt.Errorf("paying bill %d: %w", billID, err)
	}
	if wasPaid {
		return bill, nil
	}

	today := m.Today()
	m.recordEvent(ctx, event.NewBillPaid(event.BillPaidPayload{
		BillID:      bill.ID,
		LeaseID:     bill.LeaseID,
		TenantID:    lease.TenantID,
		Period:      bill.Period,
		Amount:      bill.TotalAmount,
		DueDate:     bill.DueDate,
		PaidOn:      today,
		DaysPastDue: max(0, today.DaysSince(bill.DueDate)),
		PaidBy:      paidBy,
	}))
	return bill, nil
}

// RecordMeterReading prices the usage between the room's last readings and
// current, stores the new fees on the bill and advances the room's
// readings. A reading below the last recorded one fails with a
// *billing.ValidationError and changes nothing.
func (m *Manager) RecordMeterReading(ctx context.Context, billID int64, current billing.Reading) (types.Bill, error) {
	// The room of a bill never changes, so it is safe to resolve before locking.
	bill, err := m.store.GetBill(ctx, billID)
	if err != nil {
		return types.Bill{}, err
	}
	lease, err := m.store.GetLease(ctx, bill.LeaseID)
	if err != nil {
		return types.Bill{}, err
	}
	unlock := m.rooms.Lock(lease.RoomID)
	defer unlock()

	var before types.Room
	err = m.store.WithTx(ctx, func(tx *store.Store) error {
		var err error
		if bill, err = tx.GetBill(ctx, billID); err != nil {
			return err
		}
		if before, err = tx.GetRoom(ctx, lease.RoomID); err != nil {
			return err
		}
		updated, room, err := billing.ApplyReading(bill, before, current, m.rates)
		if err != nil {
			return err
		}
		if err := tx.UpdateBillFees(ctx, updated); err != nil {
			return err
		}
		if err := tx.UpdateRoomReadings(ctx, room.ID, room.LastWaterReading, room.LastElecReading); err != nil {
			return err
		}
		bill = updated
		return nil
	})
	if err != nil {
		return types.Bill{}, fmt.Errorf("recording meter reading for bill %d: %w", billID, err)
	}

	waterUsage := current.Water.Sub(before.LastWaterReading)
	elecUsage := current.Elec.Sub(before.LastElecReading)
	m.recordEvent(ctx, event.NewMeterReadingRecorded(event.MeterReadingRecordedPayload{
		BillID:       bill.ID,
		LeaseID:      bill.LeaseID,
		RoomID:       lease.RoomID,
		TenantID:     lease.TenantID,
		Period:       bill.Period,
		CurrentWater: current.Water,
		CurrentElec:  current.Elec,
		WaterUsage:   waterUsage,
		ElecUsage:    elecUsage,
		TotalUsage:   waterUsage.Add(elecUsage),
		WaterFee:     bill.WaterFee,
		ElecFee:      bill.ElecFee,
		TotalAmount:  bill.TotalAmount,
	}))
	return bill, nil
}
