// Package seed loads demo buildings, rooms, tenants and one running lease
// into an empty database.
package seed

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/matthewbaird/propmanage/internal/lifecycle"
	"github.com/matthewbaird/propmanage/internal/logging"
	"github.com/matthewbaird/propmanage/internal/store"
	"github.com/matthewbaird/propmanage/internal/types"
)

type roomSeed struct {
	number      string
	area        float64
	water, elec int64
}

type buildingSeed struct {
	name, address string
	rooms         []roomSeed
}

var demoBuildings = []buildingSeed{
	{"Building A", "123 Main Street", []roomSeed{
		{"A-101", 50, 100, 200},
		{"A-102", 60, 150, 250},
		{"A-103", 55, 120, 220},
	}},
	{"Building B", "456 Oak Avenue", []roomSeed{
		{"B-201", 70, 90, 180},
		{"B-202", 65, 110, 210},
		{"B-203", 58, 130, 230},
	}},
}

var demoTenants = []types.Tenant{
	{Name: "User1", Phone: "13800138001"},
	{Name: "User2", Phone: "13800138002"},
	{Name: "User3", Phone: "13800138003"},
}

// Result reports what Demo created.
type Result struct {
	Skipped   bool
	Buildings int
	Rooms     int
	Tenants   int
	Lease     *types.Lease
}

// Demo seeds the demo data set. If any building already exists it skips
// seeding. The lease for User1 on A-102 starts on the first of the current
// month, runs twelve months and goes through the lifecycle manager, so its
// bills are scheduled and the room is marked Occupied.
func Demo(ctx context.Context, s *store.Store, mgr *lifecycle.Manager) (Result, error) {
	existing, err := s.ListBuildings(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("checking buildings: %w", err)
	}
	if len(existing) > 0 {
		logging.Logger.WithField("buildings", len(existing)).Info("database already seeded, skipping")
		return Result{Skipped: true}, nil
	}

	var (
		res      Result
		leaseRm  types.Room
		leaseTnt types.Tenant
	)
	err = s.WithTx(ctx, func(tx *store.Store) error {
		for _, bs := range demoBuildings {
			b, err := tx.CreateBuilding(ctx, bs.name, bs.address)
			if err != nil {
				return err
			}
			res.Buildings++
			for _, rs := range bs.rooms {
				room, err := tx.CreateRoom(ctx, types.Room{
					BuildingID:       b.ID,
					RoomNumber:       rs.number,
					Area:             rs.area,
					Status:           types.RoomVacant,
					LastWaterReading: decimal.NewFromInt(rs.water),
					LastElecReading:  decimal.NewFromInt(rs.elec),
				})
				if err != nil {
					return err
				}
				res.Rooms++
				if rs.number == "A-102" {
					leaseRm = room
				}
			}
		}
		for i, ts := range demoTenants {
			t, err := tx.CreateTenant(ctx, ts.Name, ts.Phone)
			if err != nil {
				return err
			}
			res.Tenants++
			if i == 0 {
				leaseTnt = t
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("seeding properties: %w", err)
	}

	today := mgr.Today()
	start := types.NewDate(today.Year, today.Month, 1)
	lease, err := mgr.CreateLease(ctx, lifecycle.LeaseInput{
		RoomID:     leaseRm.ID,
		TenantID:   leaseTnt.ID,
		StartDate:  start,
		EndDate:    types.NewDate(start.Year, start.Month+12, 1),
		RentAmount: decimal.NewFromInt(3000),
		Deposit:    decimal.NewFromInt(6000),
	})
	if err != nil {
		return Result{}, fmt.Errorf("seeding lease: %w", err)
	}
	res.Lease = &lease

	logging.Logger.WithFields(logrus.Fields{
		"buildings": res.Buildings,
		"rooms":     res.Rooms,
		"tenants":   res.Tenants,
		"bills":     len(lease.Bills),
	}).Info("seeded demo data")
	return res, nil
}
