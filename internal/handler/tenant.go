package handler

import (
	"net/http"

	"github.com/matthewbaird/propmanage/internal/store"
	"github.com/matthewbaird/propmanage/internal/types"
)

// TenantHandler serves tenant records.
type TenantHandler struct {
	store *store.Store
}

// NewTenantHandler creates a new TenantHandler.
func NewTenantHandler(s *store.Store) *TenantHandler {
	return &TenantHandler{store: s}
}

func (h *TenantHandler) ListTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.store.ListTenants(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if tenants == nil {
		tenants = []types.Tenant{}
	}
	writeJSON(w, http.StatusOK, tenants)
}

func (h *TenantHandler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	var req createTenantRequest
	if !decodeAndValidate(r.Context(), w, r, &req) {
		return
	}
	t, err := h.store.CreateTenant(r.Context(), req.Name, req.Phone)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *TenantHandler) GetTenant(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	t, err := h.store.GetTenant(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}
