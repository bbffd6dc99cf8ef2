package handler

import (
	"net/http"

	"github.com/matthewbaird/propmanage/internal/lifecycle"
	"github.com/matthewbaird/propmanage/internal/store"
	"github.com/matthewbaird/propmanage/internal/types"
)

// PropertyHandler serves buildings and rooms.
type PropertyHandler struct {
	store *store.Store
	mgr   *lifecycle.Manager
}

// NewPropertyHandler creates a new PropertyHandler.
func NewPropertyHandler(s *store.Store, mgr *lifecycle.Manager) *PropertyHandler {
	return &PropertyHandler{store: s, mgr: mgr}
}

func (h *PropertyHandler) ListBuildings(w http.ResponseWriter, r *http.Request) {
	buildings, err := h.store.ListBuildings(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if buildings == nil {
		buildings = []types.Building{}
	}
	writeJSON(w, http.StatusOK, buildings)
}

func (h *PropertyHandler) CreateBuilding(w http.ResponseWriter, r *http.Request) {
	var req createBuildingRequest
	if !decodeAndValidate(r.Context(), w, r, &req) {
		return
	}
	b, err := h.store.CreateBuilding(r.Context(), req.Name, req.Address)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if b.Rooms == nil {
		b.Rooms = []types.Room{}
	}
	writeJSON(w, http.StatusCreated, b)
}

func (h *PropertyHandler) GetBuilding(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	b, err := h.store.GetBuilding(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if b.Rooms == nil {
		b.Rooms = []types.Room{}
	}
	writeJSON(w, http.StatusOK, b)
}

// DeleteBuilding removes a building with everything under it. Buildings
// with active leases are refused.
func (h *PropertyHandler) DeleteBuilding(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	if err := h.mgr.DeleteBuilding(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PropertyHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	buildingID, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	var req createRoomRequest
	if !decodeAndValidate(r.Context(), w, r, &req) {
		return
	}
	if _, err := h.store.GetBuilding(r.Context(), buildingID); err != nil {
		writeDomainError(w, err)
		return
	}
	room, err := h.store.CreateRoom(r.Context(), req.room(buildingID))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, room)
}

func (h *PropertyHandler) SetRoomStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	var req roomStatusRequest
	if !decodeAndValidate(r.Context(), w, r, &req) {
		return
	}
	room, err := h.mgr.SetRoomStatus(r.Context(), id, req.Status)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}
