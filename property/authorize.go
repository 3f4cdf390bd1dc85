/*
authorize.go - Ownership-chain authorization

PURPOSE:
  Resolves and checks the admin -> plot -> room -> tenant chain before the
  billing engine touches anything. The contract is deliberately blunt: an
  entity that exists but belongs to another admin comes back as
  ErrNotAuthorized, with nothing about its contents leaked.

USAGE:
  auth := property.NewAuthorizer(store)
  room, err := auth.Room(ctx, adminID, roomID)
  // err is ErrRoomNotFound, ErrNotAuthorized, or nil
*/
package property

import (
	"context"

	"github.com/warp/property-engine/billing"
)

type Authorizer struct {
	store Store
}

func NewAuthorizer(store Store) *Authorizer {
	return &Authorizer{store: store}
}

// Plot returns the plot when the admin owns it.
func (a *Authorizer) Plot(ctx context.Context, admin billing.AdminID, id billing.PlotID) (*Plot, error) {
	p, err := a.store.GetPlot(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.OwnerID != admin {
		return nil, billing.ErrNotAuthorized
	}
	return p, nil
}

// Room walks room -> plot -> owner.
func (a *Authorizer) Room(ctx context.Context, admin billing.AdminID, id billing.RoomID) (*Room, error) {
	r, err := a.store.GetRoom(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := a.Plot(ctx, admin, r.PlotID); err != nil {
		return nil, billing.ErrNotAuthorized
	}
	return r, nil
}

// Tenant walks tenant -> room -> plot -> owner.
func (a *Authorizer) Tenant(ctx context.Context, admin billing.AdminID, id billing.TenantID) (*Tenant, error) {
	t, err := a.store.GetTenant(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := a.Room(ctx, admin, t.RoomID); err != nil {
		return nil, billing.ErrNotAuthorized
	}
	return t, nil
}

// Scope returns the admin's plot, room, and tenant id sets for filtered
// list queries.
func (a *Authorizer) Scope(ctx context.Context, admin billing.AdminID) (Scope, error) {
	plots, err := a.store.ListPlots(ctx, admin)
	if err != nil {
		return Scope{}, err
	}

	var s Scope
	for _, p := range plots {
		s.PlotIDs = append(s.PlotIDs, p.ID)
	}

	rooms, err := a.store.ListRooms(ctx, s.PlotIDs)
	if err != nil {
		return Scope{}, err
	}
	for _, r := range rooms {
		s.RoomIDs = append(s.RoomIDs, r.ID)
	}

	tenants, err := a.store.ListTenants(ctx, s.PlotIDs)
	if err != nil {
		return Scope{}, err
	}
	for _, t := range tenants {
		s.TenantIDs = append(s.TenantIDs, t.ID)
	}
	return s, nil
}

// Scope is the set of ids one admin may see.
type Scope struct {
	PlotIDs   []billing.PlotID
	RoomIDs   []billing.RoomID
	TenantIDs []billing.TenantID
}

// HasTenant reports membership without another store round trip.
func (s Scope) HasTenant(id billing.TenantID) bool {
	for _, t := range s.TenantIDs {
		if t == id {
			return true
		}
	}
	return false
}
