package store

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/matthewbaird/propmanage/internal/billing"
	"github.com/matthewbaird/propmanage/internal/types"
)

var leaseColumns = []string{
	"id", "room_id", "tenant_id", "start_date", "end_date", "rent_amount", "deposit", "status",
}

// LeaseFilter narrows ListLeases. Zero fields match everything; a non-nil
// TenantID always filters, even on an id no tenant has.
type LeaseFilter struct {
	TenantID *int64
	RoomIDs  []int64
	Status   types.LeaseStatus
}

func (f LeaseFilter) predicate(t *entsql.SelectTable) *entsql.Predicate {
	var preds []*entsql.Predicate
	if f.TenantID != nil {
		preds = append(preds, entsql.EQ(t.C("tenant_id"), *f.TenantID))
	}
	if len(f.RoomIDs) > 0 {
		preds = append(preds, entsql.In(t.C("room_id"), int64Args(f.RoomIDs)...))
	}
	if f.Status != "" {
		preds = append(preds, entsql.EQ(t.C("status"), string(f.Status)))
	}
	if len(preds) == 0 {
		return nil
	}
	return entsql.And(preds...)
}

// CreateLease inserts a lease row. Bills are inserted separately.
func (s *Store) CreateLease(ctx context.Context, l types.Lease) (types.Lease, error) {
	if l.Status == "" {
		l.Status = types.LeaseActive
	}
	id, err := s.insert(ctx, builder.Insert("leases").
		Columns("room_id", "tenant_id", "start_date", "end_date", "rent_amount", "deposit", "status").
		Values(l.RoomID, l.TenantID, l.StartDate.String(), l.EndDate.String(),
			l.RentAmount.String(), l.Deposit.String(), string(l.Status)))
	if err != nil {
		return types.Lease{}, fmt.Errorf("creating lease: %w", err)
	}
	l.ID = id
	if l.Bills == nil {
		l.Bills = []types.Bill{}
	}
	return l, nil
}

// GetLease returns a lease with its bills ordered by period.
func (s *Store) GetLease(ctx context.Context, id int64) (types.Lease, error) {
	t := entsql.Table("leases")
	leases, err := s.selectLeases(ctx, t, entsql.EQ(t.C("id"), id))
	if err != nil {
		return types.Lease{}, err
	}
	if len(leases) == 0 {
		return types.Lease{}, billing.NotFound("lease", id)
	}
	return leases[0], nil
}

// ListLeases returns every lease matching f, with bills, ordered by id.
func (s *Store) ListLeases(ctx context.Context, f LeaseFilter) ([]types.Lease, error) {
	t := entsql.Table("leases")
	return s.selectLeases(ctx, t, f.predicate(t))
}

// ActiveLeaseForTenant returns the tenant's active lease. When more than one
// is active the earliest created wins.
func (s *Store) ActiveLeaseForTenant(ctx context.Context, tenantID int64) (types.Lease, error) {
	leases, err := s.ListLeases(ctx, LeaseFilter{TenantID: &tenantID, Status: types.LeaseActive})
	if err != nil {
		return types.Lease{}, err
	}
	if len(leases) == 0 {
		return types.Lease{}, fmt.Errorf("tenant %d has no active lease: %w", tenantID, billing.ErrNotFound)
	}
	return leases[0], nil
}

// CountActiveLeasesInBuilding counts active leases on the building's rooms.
func (s *Store) CountActiveLeasesInBuilding(ctx context.Context, buildingID int64) (int, error) {
	l := entsql.Table("leases")
	r := entsql.Table("rooms")
	n, err := s.count(ctx, builder.Select(entsql.Count("*")).
		From(l).
		Join(r).On(l.C("room_id"), r.C("id")).
		Where(entsql.And(
			entsql.EQ(r.C("building_id"), buildingID),
			entsql.EQ(l.C("status"), string(types.LeaseActive)),
		)))
	if err != nil {
		return 0, fmt.Errorf("counting active leases of building %d: %w", buildingID, err)
	}
	return n, nil
}

func (s *Store) selectLeases(ctx context.Context, t *entsql.SelectTable, where *entsql.Predicate) ([]types.Lease, error) {
	sel := builder.Select(qualify(t, leaseColumns)...).From(t).OrderBy(t.C("id"))
	if where != nil {
		sel.Where(where)
	}
	rows, err := s.query(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("querying leases: %w", err)
	}

	leases := []types.Lease{}
	var ids []int64
	for rows.Next() {
		l := types.Lease{Bills: []types.Bill{}}
		if err := rows.Scan(
			&l.ID, &l.RoomID, &l.TenantID, &l.StartDate, &l.EndDate,
			&l.RentAmount, &l.Deposit, (*string)(&l.Status),
		); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning lease: %w", err)
		}
		leases = append(leases, l)
		ids = append(ids, l.ID)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()
	if len(leases) == 0 {
		return leases, nil
	}

	bills, err := s.ListBills(ctx, BillFilter{LeaseIDs: ids})
	if err != nil {
		return nil, err
	}
	index := make(map[int64]int, len(leases))
	for i, l := range leases {
		index[l.ID] = i
	}
	for _, b := range bills {
		i := index[b.LeaseID]
		leases[i].Bills = append(leases[i].Bills, b)
	}
	return leases, nil
}

// UpdateLeaseStatus sets a lease's lifecycle status.
func (s *Store) UpdateLeaseStatus(ctx context.Context, id int64, status types.LeaseStatus) error {
	res, err := s.exec(ctx, builder.Update("leases").
		Set("status", string(status)).
		Where(entsql.EQ("id", id)))
	if err != nil {
		return fmt.Errorf("updating lease %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return billing.NotFound("lease", id)
	}
	return nil
}

// DeleteLease removes a lease row. Its bills must already be gone.
func (s *Store) DeleteLease(ctx context.Context, id int64) error {
	res, err := s.exec(ctx, builder.Delete("leases").Where(entsql.EQ("id", id)))
	if err != nil {
		return fmt.Errorf("deleting lease %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return billing.NotFound("lease", id)
	}
	return nil
}

// DeleteLeasesByRooms removes every lease on the given rooms and returns
// how many were deleted. Their bills must already be gone.
func (s *Store) DeleteLeasesByRooms(ctx context.Context, roomIDs []int64) (int64, error) {
	if len(roomIDs) == 0 {
		return 0, nil
	}
	res, err := s.exec(ctx, builder.Delete("leases").Where(entsql.In("room_id", int64Args(roomIDs)...)))
	if err != nil {
		return 0, fmt.Errorf("deleting leases: %w", err)
	}
	return res.RowsAffected()
}
