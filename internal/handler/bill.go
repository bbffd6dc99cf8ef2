package handler

import (
	"net/http"

	"github.com/matthewbaird/propmanage/internal/billing"
	"github.com/matthewbaird/propmanage/internal/lifecycle"
	"github.com/matthewbaird/propmanage/internal/store"
	"github.com/matthewbaird/propmanage/internal/types"
)

// BillHandler serves bills for the landlord.
type BillHandler struct {
	store *store.Store
	mgr   *lifecycle.Manager
}

// NewBillHandler creates a new BillHandler.
func NewBillHandler(s *store.Store, mgr *lifecycle.Manager) *BillHandler {
	return &BillHandler{store: s, mgr: mgr}
}

// ListBills returns bills with their effective status. The status filter
// applies to the effective status, so status=Overdue finds unpaid bills
// past their due date.
func (h *BillHandler) ListBills(w http.ResponseWriter, r *http.Request) {
	buildingID, ok := parseIntQuery(w, r, "building_id")
	if !ok {
		return
	}
	status := types.BillStatus(r.URL.Query().Get("status"))
	switch status {
	case "", types.BillPending, types.BillPaid, types.BillOverdue:
	default:
		writeError(w, http.StatusBadRequest, "INVALID_PARAM", "status must be Pending, Paid or Overdue")
		return
	}

	bills, err := h.store.ListBills(r.Context(), store.BillFilter{BuildingID: buildingID})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, filterStatus(billing.Resolve(bills, h.mgr.Today()), status))
}

func filterStatus(bills []types.Bill, status types.BillStatus) []types.Bill {
	out := make([]types.Bill, 0, len(bills))
	for _, b := range bills {
		if status == "" || b.Status == status {
			out = append(out, b)
		}
	}
	return out
}

func (h *BillHandler) GetBill(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	bill, err := h.store.GetBill(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	bill.Status = billing.EffectiveStatus(bill, h.mgr.Today())
	writeJSON(w, http.StatusOK, bill)
}

// RecordMeterReading prices utility usage onto the bill and advances the
// room's last readings.
func (h *BillHandler) RecordMeterReading(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	var req meterReadingRequest
	if !decodeAndValidate(r.Context(), w, r, &req) {
		return
	}
	bill, err := h.mgr.RecordMeterReading(r.Context(), id, req.reading())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	bill.Status = billing.EffectiveStatus(bill, h.mgr.Today())
	writeJSON(w, http.StatusOK, bill)
}

// PayBill marks a bill Paid on the tenant's behalf.
func (h *BillHandler) PayBill(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	bill, err := h.mgr.PayBill(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	bill.Status = billing.EffectiveStatus(bill, h.mgr.Today())
	writeJSON(w, http.StatusOK, bill)
}
