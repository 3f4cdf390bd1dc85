/*
Package property models the ownership hierarchy the billing engine is
scoped by: an administrator owns plots, plots contain rooms, rooms are
occupied by tenants under an agreement.

Every billing read and write is authorized against this chain; see
authorize.go.
*/
package property

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/property-engine/billing"
)

// =============================================================================
// HIERARCHY ENTITIES
// =============================================================================

// Admin is the property administrator. Authentication is handled
// upstream; this record only anchors the ownership chain.
type Admin struct {
	ID        billing.AdminID
	Name      string
	Email     string
	CreatedAt time.Time
}

// Plot is a physical building owned by one admin.
type Plot struct {
	ID        billing.PlotID
	OwnerID   billing.AdminID
	Name      string
	Address   string
	CreatedAt time.Time
}

type RoomStatus string

const (
	RoomAvailable   RoomStatus = "available"
	RoomOccupied    RoomStatus = "occupied"
	RoomMaintenance RoomStatus = "maintenance"
	RoomReserved    RoomStatus = "reserved"
)

// Room is a rentable unit within a plot.
type Room struct {
	ID        billing.RoomID
	PlotID    billing.PlotID
	Number    string
	Type      string // 1BHK, 2BHK, Single
	Rent      decimal.Decimal
	Deposit   decimal.Decimal
	Status    RoomStatus
	CreatedAt time.Time
}

// Tenant occupies a room under an agreement. Document URLs are opaque
// strings; this system never reads file bytes.
type Tenant struct {
	ID     billing.TenantID
	Name   string
	Mobile string
	Email  string

	RoomID billing.RoomID
	PlotID billing.PlotID

	Agreement   billing.Agreement
	MonthlyRent decimal.Decimal // finances.rent; may differ from the room's listed rent
	DocumentURL string

	CreatedAt time.Time
}

// Tenancy projects the tenant into the billing engine's input, carrying
// the owning admin for notification routing.
func (t Tenant) Tenancy(ownerID billing.AdminID) billing.Tenancy {
	return billing.Tenancy{
		TenantID:    t.ID,
		TenantName:  t.Name,
		RoomID:      t.RoomID,
		PlotID:      t.PlotID,
		OwnerID:     ownerID,
		Agreement:   t.Agreement,
		MonthlyRent: t.MonthlyRent,
	}
}
