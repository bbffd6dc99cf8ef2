package store

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/matthewbaird/propmanage/internal/billing"
	"github.com/matthewbaird/propmanage/internal/types"
)

var billColumns = []string{
	"id", "lease_id", "period", "rent_fee", "water_fee", "elec_fee", "total_amount", "status", "due_date",
}

// BillFilter narrows ListBills. Zero fields match everything; a non-nil
// TenantID always filters. Status is matched later against the effective
// status, so it is not a filter here.
type BillFilter struct {
	LeaseIDs   []int64
	TenantID   *int64
	BuildingID int64
}

// InsertBills inserts bills in one statement. IDs are not returned; read
// the bills back by lease.
func (s *Store) InsertBills(ctx context.Context, bills []types.Bill) error {
	if len(bills) == 0 {
		return nil
	}
	ins := builder.Insert("bills").
		Columns("lease_id", "period", "rent_fee", "water_fee", "elec_fee", "total_amount", "status", "due_date")
	for _, b := range bills {
		ins.Values(b.LeaseID, b.Period, b.RentFee.String(), b.WaterFee.String(), b.ElecFee.String(),
			b.TotalAmount.String(), string(b.Status), b.DueDate.String())
	}
	if _, err := s.exec(ctx, ins); err != nil {
		return fmt.Errorf("inserting bills: %w", err)
	}
	return nil
}

// GetBill returns the bill with the given id.
func (s *Store) GetBill(ctx context.Context, id int64) (types.Bill, error) {
	b := entsql.Table("bills")
	bills, err := s.selectBills(ctx, builder.Select(qualify(b, billColumns)...).
		From(b).
		Where(entsql.EQ(b.C("id"), id)))
	if err != nil {
		return types.Bill{}, err
	}
	if len(bills) == 0 {
		return types.Bill{}, billing.NotFound("bill", id)
	}
	return bills[0], nil
}

// GetTenantBill returns a bill only if it belongs to one of the tenant's
// leases. A bill owned by someone else is reported as not found.
func (s *Store) GetTenantBill(ctx context.Context, tenantID, billID int64) (types.Bill, error) {
	b := entsql.Table("bills")
	l := entsql.Table("leases")
	bills, err := s.selectBills(ctx, builder.Select(qualify(b, billColumns)...).
		From(b).
		Join(l).On(b.C("lease_id"), l.C("id")).
		Where(entsql.And(
			entsql.EQ(b.C("id"), billID),
			entsql.EQ(l.C("tenant_id"), tenantID),
		)))
	if err != nil {
		return types.Bill{}, err
	}
	if len(bills) == 0 {
		return types.Bill{}, billing.NotFound("bill", billID)
	}
	return bills[0], nil
}

// ListBills returns the bills matching f ordered by lease then period.
func (s *Store) ListBills(ctx context.Context, f BillFilter) ([]types.Bill, error) {
	b := entsql.Table("bills")
	sel := builder.Select(qualify(b, billColumns)...).From(b)

	var preds []*entsql.Predicate
	if len(f.LeaseIDs) > 0 {
		preds = append(preds, entsql.In(b.C("lease_id"), int64Args(f.LeaseIDs)...))
	}
	if f.TenantID != nil || f.BuildingID != 0 {
		l := entsql.Table("leases")
		sel.Join(l).On(b.C("lease_id"), l.C("id"))
		if f.TenantID != nil {
			preds = append(preds, entsql.EQ(l.C("tenant_id"), *f.TenantID))
		}
		if f.BuildingID != 0 {
			r := entsql.Table("rooms")
			sel.Join(r).On(l.C("room_id"), r.C("id"))
			preds = append(preds, entsql.EQ(r.C("building_id"), f.BuildingID))
		}
	}
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	sel.OrderBy(b.C("lease_id"), b.C("period"))
	return s.selectBills(ctx, sel)
}

func (s *Store) selectBills(ctx context.Context, sel *entsql.Selector) ([]types.Bill, error) {
	rows, err := s.query(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("querying bills: %w", err)
	}
	defer rows.Close()

	bills := []types.Bill{}
	for rows.Next() {
		var b types.Bill
		if err := rows.Scan(
			&b.ID, &b.LeaseID, &b.Period, &b.RentFee, &b.WaterFee, &b.ElecFee,
			&b.TotalAmount, (*string)(&b.Status), &b.DueDate,
		); err != nil {
			return nil, fmt.Errorf("scanning bill: %w", err)
		}
		bills = append(bills, b)
	}
	return bills, rows.Err()
}

// UpdateBillFees stores a bill's utility fees and total.
func (s *Store) UpdateBillFees(ctx context.Context, b types.Bill) error {
	return s.updateBill(ctx, b.ID, builder.Update("bills").
		Set("water_fee", b.WaterFee.String()).
		Set("elec_fee", b.ElecFee.String()).
		Set("total_amount", b.TotalAmount.String()))
}

// UpdateBillStatus sets a bill's stored status.
func (s *Store) UpdateBillStatus(ctx context.Context, id int64, status types.BillStatus) error {
	return s.updateBill(ctx, id, builder.Update("bills").Set("status", string(status)))
}

func (s *Store) updateBill(ctx context.Context, id int64, u *entsql.UpdateBuilder) error {
	res, err := s.exec(ctx, u.Where(entsql.EQ("id", id)))
	if err != nil {
		return fmt.Errorf("updating bill %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return billing.NotFound("bill", id)
	}
	return nil
}

// DeleteBillsByLeases removes every bill of the given leases.
func (s *Store) DeleteBillsByLeases(ctx context.Context, leaseIDs []int64) (int64, error) {
	if len(leaseIDs) == 0 {
		return 0, nil
	}
	res, err := s.exec(ctx, builder.Delete("bills").Where(entsql.In("lease_id", int64Args(leaseIDs)...)))
	if err != nil {
		return 0, fmt.Errorf("deleting bills: %w", err)
	}
	return res.RowsAffected()
}

func qualify(t *entsql.SelectTable, columns []string) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = t.C(c)
	}
	return out
}
