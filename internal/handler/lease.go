package handler

import (
	"net/http"

	"github.com/matthewbaird/propmanage/internal/billing"
	"github.com/matthewbaird/propmanage/internal/lifecycle"
	"github.com/matthewbaird/propmanage/internal/store"
	"github.com/matthewbaird/propmanage/internal/types"
)

// LeaseHandler serves leases for the landlord.
type LeaseHandler struct {
	store *store.Store
	mgr   *lifecycle.Manager
}

// NewLeaseHandler creates a new LeaseHandler.
func NewLeaseHandler(s *store.Store, mgr *lifecycle.Manager) *LeaseHandler {
	return &LeaseHandler{store: s, mgr: mgr}
}

// resolveLease replaces the stored status of the lease's bills with their
// effective status.
func resolveLease(l types.Lease, today types.Date) types.Lease {
	l.Bills = billing.Resolve(l.Bills, today)
	if l.Bills == nil {
		l.Bills = []types.Bill{}
	}
	return l
}

// ListLeases returns leases with their bills. Optional filters: tenant_id
// and status.
func (h *LeaseHandler) ListLeases(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := parseIntQuery(w, r, "tenant_id")
	if !ok {
		return
	}
	var f store.LeaseFilter
	if tenantID != 0 {
		f.TenantID = &tenantID
	}
	switch s := types.LeaseStatus(r.URL.Query().Get("status")); s {
	case "":
	case types.LeaseActive, types.LeaseTerminated:
		f.Status = s
	default:
		writeError(w, http.StatusBadRequest, "INVALID_PARAM", "status must be Active or Terminated")
		return
	}

	leases, err := h.store.ListLeases(r.Context(), f)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	today := h.mgr.Today()
	out := make([]types.Lease, len(leases))
	for i, l := range leases {
		out[i] = resolveLease(l, today)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *LeaseHandler) CreateLease(w http.ResponseWriter, r *http.Request) {
	var req createLeaseRequest
	if !decodeAndValidate(r.Context(), w, r, &req) {
		return
	}
	lease, err := h.mgr.CreateLease(r.Context(), req.input())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resolveLease(lease, h.mgr.Today()))
}

func (h *LeaseHandler) GetLease(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	lease, err := h.store.GetLease(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resolveLease(lease, h.mgr.Today()))
}

func (h *LeaseHandler) TerminateLease(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	lease, err := h.mgr.TerminateLease(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resolveLease(lease, h.mgr.Today()))
}

func (h *LeaseHandler) DeleteLease(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	if err := h.mgr.DeleteLease(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
