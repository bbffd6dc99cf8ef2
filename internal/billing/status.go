package billing

import "github.com/matthewbaird/propmanage/internal/types"

// EffectiveStatus derives a bill's status as of today. A paid bill stays
// Paid; an unpaid bill is Overdue once today is past its due date, and
// Pending on the due date itself.
func EffectiveStatus(bill types.Bill, today types.Date) types.BillStatus {
	if bill.Status == types.BillPaid {
		return types.BillPaid
	}
	if today.After(bill.DueDate) {
		return types.BillOverdue
	}
	return types.BillPending
}

// Resolve returns a copy of bills with every status replaced by its
// effective status.
func Resolve(bills []types.Bill, today types.Date) []types.Bill {
	out := make([]types.Bill, len(bills))
	for i, b := range bills {
		b.Status = EffectiveStatus(b, today)
		out[i] = b
	}
	return out
}
