package store

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/matthewbaird/propmanage/internal/billing"
	"github.com/matthewbaird/propmanage/internal/types"
)

// CreateBuilding inserts a building with no rooms.
func (s *Store) CreateBuilding(ctx context.Context, name, address string) (types.Building, error) {
	id, err := s.insert(ctx, builder.Insert("buildings").
		Columns("name", "address").
		Values(name, address))
	if err != nil {
		return types.Building{}, fmt.Errorf("creating building: %w", err)
	}
	return types.Building{ID: id, Name: name, Address: address, Rooms: []types.Room{}}, nil
}

// GetBuilding returns a building with its rooms.
func (s *Store) GetBuilding(ctx context.Context, id int64) (types.Building, error) {
	buildings, err := s.selectBuildings(ctx, entsql.EQ("id", id))
	if err != nil {
		return types.Building{}, err
	}
	if len(buildings) == 0 {
		return types.Building{}, billing.NotFound("building", id)
	}
	return buildings[0], nil
}

// ListBuildings returns every building with its rooms, ordered by id.
func (s *Store) ListBuildings(ctx context.Context) ([]types.Building, error) {
	return s.selectBuildings(ctx, nil)
}

func (s *Store) selectBuildings(ctx context.Context, where *entsql.Predicate) ([]types.Building, error) {
	sel := builder.Select("id", "name", "address").From(entsql.Table("buildings")).OrderBy("id")
	if where != nil {
		sel.Where(where)
	}
	rows, err := s.query(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("querying buildings: %w", err)
	}

	var (
		buildings []types.Building
		ids       []int64
	)
	for rows.Next() {
		b := types.Building{Rooms: []types.Room{}}
		if err := rows.Scan(&b.ID, &b.Name, &b.Address); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning building: %w", err)
		}
		buildings = append(buildings, b)
		ids = append(ids, b.ID)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()
	if len(buildings) == 0 {
		return []types.Building{}, nil
	}

	rooms, err := s.ListRooms(ctx, ids...)
	if err != nil {
		return nil, err
	}
	index := make(map[int64]int, len(buildings))
	for i, b := range buildings {
		index[b.ID] = i
	}
	for _, r := range rooms {
		i := index[r.BuildingID]
		buildings[i].Rooms = append(buildings[i].Rooms, r)
	}
	return buildings, nil
}

// DeleteBuilding removes the building row. Its rooms must already be gone.
func (s *Store) DeleteBuilding(ctx context.Context, id int64) error {
	res, err := s.exec(ctx, builder.Delete("buildings").Where(entsql.EQ("id", id)))
	if err != nil {
		return fmt.Errorf("deleting building %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return billing.NotFound("building", id)
	}
	return nil
}
