package handler

import (
	"errors"
	"net/http"

	"github.com/matthewbaird/propmanage/internal/billing"
	"github.com/matthewbaird/propmanage/internal/lifecycle"
	"github.com/matthewbaird/propmanage/internal/store"
)

// MyHandler serves the tenant's own lease and bills. Every route runs
// behind RequireTenant.
type MyHandler struct {
	store *store.Store
	mgr   *lifecycle.Manager
}

// NewMyHandler creates a new MyHandler.
func NewMyHandler(s *store.Store, mgr *lifecycle.Manager) *MyHandler {
	return &MyHandler{store: s, mgr: mgr}
}

func (h *MyHandler) Lease(w http.ResponseWriter, r *http.Request) {
	lease, err := h.store.ActiveLeaseForTenant(r.Context(), tenantIDFrom(r.Context()))
	if errors.Is(err, billing.ErrNotFound) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "No active lease found")
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resolveLease(lease, h.mgr.Today()))
}

func (h *MyHandler) Bills(w http.ResponseWriter, r *http.Request) {
	tenantID := tenantIDFrom(r.Context())
	bills, err := h.store.ListBills(r.Context(), store.BillFilter{TenantID: &tenantID})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, billing.Resolve(bills, h.mgr.Today()))
}

// PayBill pays one of the caller's bills. A bill that belongs to someone
// else is reported as missing.
func (h *MyHandler) PayBill(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	bill, err := h.mgr.PayTenantBill(r.Context(), tenantIDFrom(r.Context()), id)
	if errors.Is(err, billing.ErrNotFound) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Bill not found or access denied")
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	bill.Status = billing.EffectiveStatus(bill, h.mgr.Today())
	writeJSON(w, http.StatusOK, bill)
}
