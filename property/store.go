package property

import (
	"context"
	"sync"

	"github.com/warp/property-engine/billing"
)

// =============================================================================
// STORE - Persistence interface for the hierarchy
// =============================================================================

type Store interface {
	SaveAdmin(ctx context.Context, a Admin) error
	GetAdmin(ctx context.Context, id billing.AdminID) (*Admin, error)
	ListAdmins(ctx context.Context) ([]Admin, error)

	SavePlot(ctx context.Context, p Plot) error
	GetPlot(ctx context.Context, id billing.PlotID) (*Plot, error)
	ListPlots(ctx context.Context, owner billing.AdminID) ([]Plot, error)

	SaveRoom(ctx context.Context, r Room) error
	GetRoom(ctx context.Context, id billing.RoomID) (*Room, error)
	ListRooms(ctx context.Context, plotIDs []billing.PlotID) ([]Room, error)

	SaveTenant(ctx context.Context, t Tenant) error
	GetTenant(ctx context.Context, id billing.TenantID) (*Tenant, error)
	GetTenantByRoom(ctx context.Context, roomID billing.RoomID) (*Tenant, error)
	ListTenants(ctx context.Context, plotIDs []billing.PlotID) ([]Tenant, error)
}

// =============================================================================
// MEMORY STORE - For tests and local development
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	admins  map[billing.AdminID]Admin
	plots   map[billing.PlotID]Plot
	rooms   map[billing.RoomID]Room
	tenants map[billing.TenantID]Tenant
}

func NewMemory() *Memory {
	return &Memory{
		admins:  make(map[billing.AdminID]Admin),
		plots:   make(map[billing.PlotID]Plot),
		rooms:   make(map[billing.RoomID]Room),
		tenants: make(map[billing.TenantID]Tenant),
	}
}

func (m *Memory) SaveAdmin(_ context.Context, a Admin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.admins[a.ID] = a
	return nil
}

func (m *Memory) GetAdmin(_ context.Context, id billing.AdminID) (*Admin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.admins[id]
	if !ok {
		return nil, billing.ErrNotAuthorized
	}
	return &a, nil
}

func (m *Memory) ListAdmins(_ context.Context) ([]Admin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	admins := make([]Admin, 0, len(m.admins))
	for _, a := range m.admins {
		admins = append(admins, a)
	}
	return admins, nil
}

func (m *Memory) SavePlot(_ context.Context, p Plot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plots[p.ID] = p
	return nil
}

func (m *Memory) GetPlot(_ context.Context, id billing.PlotID) (*Plot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.plots[id]
	if !ok {
		return nil, billing.ErrPlotNotFound
	}
	return &p, nil
}

func (m *Memory) ListPlots(_ context.Context, owner billing.AdminID) ([]Plot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []Plot
	for _, p := range m.plots {
		if p.OwnerID == owner {
			result = append(result, p)
		}
	}
	return result, nil
}

func (m *Memory) SaveRoom(_ context.Context, r Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[r.ID] = r
	return nil
}

func (m *Memory) GetRoom(_ context.Context, id billing.RoomID) (*Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[id]
	if !ok {
		return nil, billing.ErrRoomNotFound
	}
	return &r, nil
}

func (m *Memory) ListRooms(_ context.Context, plotIDs []billing.PlotID) ([]Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []Room
	for _, r := range m.rooms {
		if containsPlot(plotIDs, r.PlotID) {
			result = append(result, r)
		}
	}
	return result, nil
}

func (m *Memory) SaveTenant(_ context.Context, t Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tenants[t.ID] = t
	return nil
}

func (m *Memory) GetTenant(_ context.Context, id billing.TenantID) (*Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tenants[id]
	if !ok {
		return nil, billing.ErrTenantNotFound
	}
	return &t, nil
}

func (m *Memory) GetTenantByRoom(_ context.Context, roomID billing.RoomID) (*Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.tenants {
		if t.RoomID == roomID {
			tt := t
			return &tt, nil
		}
	}
	return nil, billing.ErrTenantNotFound
}

func (m *Memory) ListTenants(_ context.Context, plotIDs []billing.PlotID) ([]Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []Tenant
	for _, t := range m.tenants {
		if containsPlot(plotIDs, t.PlotID) {
			result = append(result, t)
		}
	}
	return result, nil
}

func containsPlot(ids []billing.PlotID, id billing.PlotID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
