package lifecycle

import (
	"context"
	"fmt"

	"github.com/matthewbaird/propmanage/internal/billing"
	"github.com/matthewbaird/propmanage/internal/event"
	"github.com/matthewbaird/propmanage/internal/store"
	"github.com/matthewbaird/propmanage/internal/types"
)

// SetRoomStatus moves a room between Vacant and Maintenance. Occupied is
// never set directly, and an Occupied room cannot be changed here.
func (m *Manager) SetRoomStatus(ctx context.Context, roomID int64, status types.RoomStatus) (types.Room, error) {
	if !status.Valid() {
		return types.Room{}, &billing.ValidationError{
			Field:   "status",
			Message: fmt.Sprintf("unknown room status %q", status),
		}
	}

	unlock := m.rooms.Lock(roomID)
	defer unlock()

	var from types.RoomStatus
	var room types.Room
	err := m.store.WithTx(ctx, func(tx *store.Store) error {
		var err error
		if room, err = tx.GetRoom(ctx, roomID); err != nil {
			return err
		}
		from = room.Status
		if from == status && status != types.RoomOccupied {
			return nil
		}
		if err := validateTransition(roomTransitions, from, status); err != nil {
			return err
		}
		if err := tx.UpdateRoomStatus(ctx, roomID, status); err != nil {
			return err
		}
		room.Status = status
		return nil
	})
	if err != nil {
		return types.Room{}, fmt.Errorf("setting status of room %d: %w", roomID, err)
	}
	if from == status {
		return room, nil
	}

	m.recordEvent(ctx, event.NewRoomStatusChanged(event.RoomStatusChangedPayload{
		RoomID:     room.ID,
		BuildingID: room.BuildingID,
		From:       from,
		To:         status,
	}))
	return room, nil
}

// DeleteBuilding removes a building with its rooms, their leases and the
// leases' bills. A building with any Active lease is refused with
// ErrInvalidState.
func (m *Manager) DeleteBuilding(ctx context.Context, buildingID int64) error {
	var payload event.BuildingDeletedPayload
	err := m.store.WithTx(ctx, func(tx *store.Store) error {
		building, err := tx.GetBuilding(ctx, buildingID)
		if err != nil {
			return err
		}
		active, err := tx.CountActiveLeasesInBuilding(ctx, buildingID)
		if err != nil {
			return err
		}
		if active > 0 {
			return billing.InvalidState("building %d has %d active leases", buildingID, active)
		}

		roomIDs := make([]int64, len(building.Rooms))
		for i, r := range building.Rooms {
			roomIDs[i] = r.ID
		}
		var leaseIDs []int64
		if len(roomIDs) > 0 {
			leases, err := tx.ListLeases(ctx, store.LeaseFilter{RoomIDs: roomIDs})
			if err != nil {
				return err
			}
			for _, l := range leases {
				leaseIDs = append(leaseIDs, l.ID)
			}
		}

		payload.BuildingID = buildingID
		if payload.BillsDeleted, err = tx.DeleteBillsByLeases(ctx, leaseIDs); err != nil {
			return err
		}
		if payload.LeasesDeleted, err = tx.DeleteLeasesByRooms(ctx, roomIDs); err != nil {
			return err
		}
		if payload.RoomsDeleted, err = tx.DeleteRoomsByBuilding(ctx, buildingID); err != nil {
			return err
		}
		return tx.DeleteBuilding(ctx, buildingID)
	})
	if err != nil {
		return fmt.Errorf("deleting building %d: %w", buildingID, err)
	}

	m.recordEvent(ctx, event.NewBuildingDeleted(payload))
	return nil
}
