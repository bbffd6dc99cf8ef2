package lifecycle

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/matthewbaird/propmanage/internal/billing"
	"github.com/matthewbaird/propmanage/internal/event"
	"github.com/matthewbaird/propmanage/internal/store"
	"github.com/matthewbaird/propmanage/internal/types"
)

// LeaseInput is the data needed to open a lease.
type LeaseInput struct {
	RoomID     int64
	TenantID   int64
	StartDate  types.Date
	EndDate    types.Date
	RentAmount decimal.Decimal
	Deposit    decimal.Decimal
}

// CreateLease opens an Active lease on a vacant room, generates its bill
// schedule and marks the room Occupied, all in one transaction. It fails
// with ErrNotFound for an unknown room or tenant, ErrInvalidState when the
// room is not vacant, ErrInvalidRange when the end date is not after the
// start date, and a *policy.Violation when the deposit is over the cap.
func (m *Manager) CreateLease(ctx context.Context, in LeaseInput) (types.Lease, error) {
	unlock := m.rooms.Lock(in.RoomID)
	defer unlock()

	today := m.Today()
	var (
		lease types.Lease
		room  types.Room
	)
	err := m.store.WithTx(ctx, func(tx *store.Store) error {
		var err error
		if room, err = tx.GetRoom(ctx, in.RoomID); err != nil {
			return err
		}
		if room.Status != types.RoomVacant {
			return billing.InvalidState("Room is not vacant")
		}
		if _, err := tx.GetTenant(ctx, in.TenantID); err != nil {
			return err
		}
		if !in.EndDate.After(in.StartDate) {
			return &billing.RangeError{Message: "End date must be after start date"}
		}
		if err := m.deposit.Check(in.RentAmount, in.Deposit); err != nil {
			return err
		}

		created, err := tx.CreateLease(ctx, types.Lease{
			RoomID:     in.RoomID,
			TenantID:   in.TenantID,
			StartDate:  in.StartDate,
			EndDate:    in.EndDate,
			RentAmount: in.RentAmount,
			Deposit:    in.Deposit,
			Status:     types.LeaseActive,
		})
		if err != nil {
			return err
		}

		drafts := billing.GenerateSchedule(billing.LeaseTerms{
			StartDate:  in.StartDate,
			EndDate:    in.EndDate,
			RentAmount: in.RentAmount,
		}, today, m.schedule)
		bills := make([]types.Bill, len(drafts))
		for i, d := range drafts {
			bills[i] = d.Bill(created.ID)
		}
		if err := tx.InsertBills(ctx, bills); err != nil {
			return err
		}
		if err := tx.UpdateRoomStatus(ctx, in.RoomID, types.RoomOccupied); err != nil {
			return err
		}

		lease, err = tx.GetLease(ctx, created.ID)
		return err
	})
	if err != nil {
		return types.Lease{}, fmt.Errorf("creating lease on room %d: %w", in.RoomID, err)
	}

	m.recordEvent(ctx, event.NewLeaseCreated(event.LeaseCreatedPayload{
		LeaseID:    lease.ID,
		RoomID:     room.ID,
		BuildingID: room.BuildingID,
		TenantID:   lease.TenantID,
		RoomNumber: room.RoomNumber,
		StartDate:  lease.StartDate,
		EndDate:    lease.EndDate,
		RentAmount: lease.RentAmount,
		Deposit:    lease.Deposit,
		BillCount:  len(lease.Bills),
	}))
	return lease, nil
}

// TerminateLease ends an Active lease and returns its room to Vacant.
// Terminating a lease twice fails with ErrInvalidState. Bills are kept.
func (m *Manager) TerminateLease(ctx context.Context, leaseID int64) (types.Lease, error) {
	current, err := m.store.GetLease(ctx, leaseID)
	if err != nil {
		return types.Lease{}, err
	}
	unlock := m.rooms.Lock(current.RoomID)
	defer unlock()

	var lease types.Lease
	err = m.store.WithTx(ctx, func(tx *store.Store) error {
		var err error
		if lease, err = tx.GetLease(ctx, leaseID); err != nil {
			return err
		}
		if lease.Status != types.LeaseActive {
			return billing.InvalidState("lease %d is already %s", leaseID, lease.Status)
		}
		if err := tx.UpdateLeaseStatus(ctx, leaseID, types.LeaseTerminated); err != nil {
			return err
		}
		lease.Status = types.LeaseTerminated
		return tx.UpdateRoomStatus(ctx, lease.RoomID, types.RoomVacant)
	})
	if err != nil {
		return types.Lease{}, fmt.Errorf("terminating lease %d: %w", leaseID, err)
	}

	today := m.Today()
	unpaid := 0
	for _, b := range lease.Bills {
		if b.Status != types.BillPaid {
			unpaid++
		}
	}
	m.recordEvent(ctx, event.NewLeaseTerminated(event.LeaseTerminatedPayload{
		LeaseID:       lease.ID,
		RoomID:        lease.RoomID,
		TenantID:      lease.TenantID,
		EndDate:       lease.EndDate,
		TerminatedOn:  today,
		DaysRemaining: max(0, lease.EndDate.DaysSince(today)),
		UnpaidBills:   unpaid,
	}))
	return lease, nil
}

// DeleteLease removes a lease and its bills. If the lease was Active its
// room goes back to Vacant.
func (m *Manager) DeleteLease(ctx context.Context, leaseID int64) error {
	current, err := m.store.GetLease(ctx, leaseID)
	if err != nil {
		return err
	}
	unlock := m.rooms.Lock(current.RoomID)
	defer unlock()

	var (
		lease        types.Lease
		billsDeleted int64
	)
	err = m.store.WithTx(ctx, func(tx *store.Store) error {
		var err error
		if lease, err = tx.GetLease(ctx, leaseID); err != nil {
			return err
		}
		if billsDeleted, err = tx.DeleteBillsByLeases(ctx, []int64{leaseID}); err != nil {
			return err
		}
		if err := tx.DeleteLease(ctx, leaseID); err != nil {
			return err
		}
		if lease.Status == types.LeaseActive {
			return tx.UpdateRoomStatus(ctx, lease.RoomID, types.RoomVacant)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("deleting lease %d: %w", leaseID, err)
	}

	m.recordEvent(ctx, event.NewLeaseDeleted(event.LeaseDeletedPayload{
		LeaseID:      lease.ID,
		RoomID:       lease.RoomID,
		TenantID:     lease.TenantID,
		BillsDeleted: billsDeleted,
		RoomVacated:  lease.Status == types.LeaseActive,
	}))
	return nil
}
