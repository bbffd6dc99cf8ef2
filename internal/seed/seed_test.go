package seed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/propmanage/internal/lifecycle"
	"github.com/matthewbaird/propmanage/internal/store"
	"github.com/matthewbaird/propmanage/internal/types"
)

func TestDemo_SeedsOnceAndLeasesA102(t *testing.T) {
	ctx := context.Background()
	s, err := store.Open(ctx, "file::memory:?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(ctx))

	now := time.Date(2024, time.March, 20, 8, 0, 0, 0, time.UTC)
	mgr := lifecycle.New(s, lifecycle.Options{Now: func() time.Time { return now }})

	res, err := Demo(ctx, s, mgr)
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.Equal(t, 2, res.Buildings)
	assert.Equal(t, 6, res.Rooms)
	assert.Equal(t, 3, res.Tenants)

	require.NotNil(t, res.Lease)
	assert.Equal(t, "2024-03-01", res.Lease.StartDate.String())
	assert.Equal(t, "2025-03-01", res.Lease.EndDate.String())
	assert.Len(t, res.Lease.Bills, 12)

	buildings, err := s.ListBuildings(ctx)
	require.NoError(t, err)
	require.Len(t, buildings, 2)
	for _, r := range buildings[0].Rooms {
		want := types.RoomVacant
		if r.RoomNumber == "A-102" {
			want = types.RoomOccupied
			assert.Equal(t, r.ID, res.Lease.RoomID)
		}
		assert.Equal(t, want, r.Status, r.RoomNumber)
	}

	tenant, err := s.GetTenant(ctx, res.Lease.TenantID)
	require.NoError(t, err)
	assert.Equal(t, "User1", tenant.Name)

	again, err := Demo(ctx, s, mgr)
	require.NoError(t, err)
	assert.True(t, again.Skipped)
	tenants, err := s.ListTenants(ctx)
	require.NoError(t, err)
	assert.Len(t, tenants, 3)
}
