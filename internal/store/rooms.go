package store

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/shopspring/decimal"

	"github.com/matthewbaird/propmanage/internal/billing"
	"github.com/matthewbaird/propmanage/internal/types"
)

var roomColumns = []string{
	"id", "building_id", "room_number", "area", "status", "last_water_reading", "last_elec_reading",
}

func scanRooms(rows *entsql.Rows) ([]types.Room, error) {
	defer rows.Close()
	var rooms []types.Room
	for rows.Next() {
		var r types.Room
		if err := rows.Scan(
			&r.ID, &r.BuildingID, &r.RoomNumber, &r.Area, (*string)(&r.Status),
			&r.LastWaterReading, &r.LastElecReading,
		); err != nil {
			return nil, fmt.Errorf("scanning room: %w", err)
		}
		rooms = append(rooms, r)
	}
	return rooms, rows.Err()
}

// CreateRoom inserts a room into an existing building. A zero status
// defaults to Vacant.
func (s *Store) CreateRoom(ctx context.Context, r types.Room) (types.Room, error) {
	if r.Status == "" {
		r.Status = types.RoomVacant
	}
	id, err := s.insert(ctx, builder.Insert("rooms").
		Columns("building_id", "room_number", "area", "status", "last_water_reading", "last_elec_reading").
		Values(r.BuildingID, r.RoomNumber, r.Area, string(r.Status), r.LastWaterReading.String(), r.LastElecReading.String()))
	if err != nil {
		return types.Room{}, fmt.Errorf("creating room: %w", err)
	}
	r.ID = id
	return r, nil
}

// GetRoom returns the room with the given id.
func (s *Store) GetRoom(ctx context.Context, id int64) (types.Room, error) {
	rows, err := s.query(ctx, builder.Select(roomColumns...).
		From(entsql.Table("rooms")).
		Where(entsql.EQ("id", id)))
	if err != nil {
		return types.Room{}, fmt.Errorf("querying room: %w", err)
	}
	rooms, err := scanRooms(rows)
	if err != nil {
		return types.Room{}, err
	}
	if len(rooms) == 0 {
		return types.Room{}, billing.NotFound("room", id)
	}
	return rooms[0], nil
}

// ListRooms returns the rooms of the given buildings ordered by id. With no
// building ids it returns every room.
func (s *Store) ListRooms(ctx context.Context, buildingIDs ...int64) ([]types.Room, error) {
	sel := builder.Select(roomColumns...).From(entsql.Table("rooms")).OrderBy("id")
	if len(buildingIDs) > 0 {
		sel.Where(entsql.In("building_id", int64Args(buildingIDs)...))
	}
	rows, err := s.query(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("listing rooms: %w", err)
	}
	return scanRooms(rows)
}

// UpdateRoomStatus sets a room's occupancy status.
func (s *Store) UpdateRoomStatus(ctx context.Context, id int64, status types.RoomStatus) error {
	return s.updateRoom(ctx, id, builder.Update("rooms").Set("status", string(status)))
}

// UpdateRoomReadings stores a room's latest meter values.
func (s *Store) UpdateRoomReadings(ctx context.Context, id int64, water, elec decimal.Decimal) error {
	return s.updateRoom(ctx, id, builder.Update("rooms").
		Set("last_water_reading", water.String()).
		Set("last_elec_reading", elec.String()))
}

func (s *Store) updateRoom(ctx context.Context, id int64, u *entsql.UpdateBuilder) error {
	res, err := s.exec(ctx, u.Where(entsql.EQ("id", id)))
	if err != nil {
		return fmt.Errorf("updating room %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return billing.NotFound("room", id)
	}
	return nil
}

// DeleteRoomsByBuilding removes every room of a building. Leases on those
// rooms must already be gone.
func (s *Store) DeleteRoomsByBuilding(ctx context.Context, buildingID int64) (int64, error) {
	res, err := s.exec(ctx, builder.Delete("rooms").Where(entsql.EQ("building_id", buildingID)))
	if err != nil {
		return 0, fmt.Errorf("deleting rooms of building %d: %w", buildingID, err)
	}
	return res.RowsAffected()
}
