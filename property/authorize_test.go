package property_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/property-engine/billing"
	"github.com/warp/property-engine/property"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// seedHierarchy builds two admins with one plot/room/tenant each, so every
// test can probe both the owning chain and the cross-admin boundary.
func seedHierarchy(t *testing.T) *property.Memory {
	t.Helper()
	mem := property.NewMemory()
	ctx := context.Background()

	for _, suffix := range []string{"1", "2"} {
		require.NoError(t, mem.SaveAdmin(ctx, property.Admin{
			ID:   billing.AdminID("admin-" + suffix),
			Name: "Admin " + suffix,
		}))
		require.NoError(t, mem.SavePlot(ctx, property.Plot{
			ID:      billing.PlotID("plot-" + suffix),
			OwnerID: billing.AdminID("admin-" + suffix),
			Name:    "Plot " + suffix,
		}))
		require.NoError(t, mem.SaveRoom(ctx, property.Room{
			ID:     billing.RoomID("room-" + suffix),
			PlotID: billing.PlotID("plot-" + suffix),
			Number: "10" + suffix,
			Rent:   decimal.NewFromInt(1500),
			Status: property.RoomOccupied,
		}))
		require.NoError(t, mem.SaveTenant(ctx, property.Tenant{
			ID:     billing.TenantID("t-" + suffix),
			Name:   "Tenant " + suffix,
			RoomID: billing.RoomID("room-" + suffix),
			PlotID: billing.PlotID("plot-" + suffix),
		}))
	}
	return mem
}

// =============================================================================
// OWNERSHIP CHAIN
// =============================================================================

func TestAuthorizer_OwnChainResolves(t *testing.T) {
	auth := property.NewAuthorizer(seedHierarchy(t))
	ctx := context.Background()

	plot, err := auth.Plot(ctx, "admin-1", "plot-1")
	require.NoError(t, err)
	assert.Equal(t, "Plot 1", plot.Name)

	room, err := auth.Room(ctx, "admin-1", "room-1")
	require.NoError(t, err)
	assert.Equal(t, "101", room.Number)

	tenant, err := auth.Tenant(ctx, "admin-1", "t-1")
	require.NoError(t, err)
	assert.Equal(t, "Tenant 1", tenant.Name)
}

func TestAuthorizer_ForeignChainDenied(t *testing.T) {
	// GIVEN: admin-1 probing admin-2's entities
	// THEN: ErrNotAuthorized at every level, with no entity returned

	auth := property.NewAuthorizer(seedHierarchy(t))
	ctx := context.Background()

	plot, err := auth.Plot(ctx, "admin-1", "plot-2")
	assert.ErrorIs(t, err, billing.ErrNotAuthorized)
	assert.Nil(t, plot)

	room, err := auth.Room(ctx, "admin-1", "room-2")
	assert.ErrorIs(t, err, billing.ErrNotAuthorized)
	assert.Nil(t, room)

	tenant, err := auth.Tenant(ctx, "admin-1", "t-2")
	assert.ErrorIs(t, err, billing.ErrNotAuthorized)
	assert.Nil(t, tenant)
}

func TestAuthorizer_MissingEntities(t *testing.T) {
	auth := property.NewAuthorizer(seedHierarchy(t))
	ctx := context.Background()

	_, err := auth.Plot(ctx, "admin-1", "ghost")
	assert.ErrorIs(t, err, billing.ErrPlotNotFound)

	_, err = auth.Room(ctx, "admin-1", "ghost")
	assert.ErrorIs(t, err, billing.ErrRoomNotFound)

	_, err = auth.Tenant(ctx, "admin-1", "ghost")
	assert.ErrorIs(t, err, billing.ErrTenantNotFound)
}

func TestAuthorizer_OrphanedRoomDenied(t *testing.T) {
	// GIVEN: A room whose plot record is gone
	// THEN: The chain cannot be walked, so access is denied

	mem := seedHierarchy(t)
	ctx := context.Background()
	require.NoError(t, mem.SaveRoom(ctx, property.Room{
		ID:     "room-orphan",
		PlotID: "plot-gone",
	}))

	auth := property.NewAuthorizer(mem)
	_, err := auth.Room(ctx, "admin-1", "room-orphan")
	assert.Error(t, err)
}

// =============================================================================
// SCOPE
// =============================================================================

func TestScope_CoversOwnEntitiesOnly(t *testing.T) {
	auth := property.NewAuthorizer(seedHierarchy(t))

	scope, err := auth.Scope(context.Background(), "admin-1")
	require.NoError(t, err)

	assert.Equal(t, []billing.PlotID{"plot-1"}, scope.PlotIDs)
	assert.Equal(t, []billing.RoomID{"room-1"}, scope.RoomIDs)
	assert.Equal(t, []billing.TenantID{"t-1"}, scope.TenantIDs)

	assert.True(t, scope.HasTenant("t-1"))
	assert.False(t, scope.HasTenant("t-2"))
}

func TestScope_EmptyForUnknownAdmin(t *testing.T) {
	auth := property.NewAuthorizer(seedHierarchy(t))

	scope, err := auth.Scope(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, scope.PlotIDs)
	assert.Empty(t, scope.RoomIDs)
	assert.Empty(t, scope.TenantIDs)
	assert.False(t, scope.HasTenant("t-1"))
}

// =============================================================================
// TENANCY PROJECTION
// =============================================================================

func TestTenant_TenancyProjection(t *testing.T) {
	tenant := property.Tenant{
		ID:     "t-1",
		Name:   "Asha",
		RoomID: "room-1",
		PlotID: "plot-1",
		Agreement: billing.Agreement{
			Start: billing.NewDate(2024, time.January, 1),
			End:   billing.NewDate(2024, time.December, 31),
			Rent:  decimal.NewFromInt(1500),
		},
		MonthlyRent: decimal.NewFromInt(1600),
	}

	tn := tenant.Tenancy("admin-1")
	assert.Equal(t, billing.TenantID("t-1"), tn.TenantID)
	assert.Equal(t, "Asha", tn.TenantName)
	assert.Equal(t, billing.AdminID("admin-1"), tn.OwnerID)
	assert.True(t, tn.MonthlyRent.Equal(decimal.NewFromInt(1600)), "billed rent follows the agreement override")
	assert.Equal(t, billing.NewDate(2024, time.December, 31), tn.Agreement.End)
}
