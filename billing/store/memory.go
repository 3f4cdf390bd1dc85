// Package store provides in-memory implementations of the billing store
// interfaces, used by tests and local development.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/property-engine/billing"
)

// =============================================================================
// MEMORY STORE - Implements every billing store interface
// =============================================================================

type Memory struct {
	mu            sync.RWMutex
	obligations   map[billing.ObligationID]*billing.Obligation
	byMonth       map[monthKey]billing.ObligationID
	readings      map[billing.ReadingID]*billing.Reading
	roomReadings  map[billing.RoomID][]billing.ReadingID
	payments      []billing.Payment
	finance       []billing.FinanceEntry
	notifications []billing.Notification
}

type monthKey struct {
	TenantID billing.TenantID
	Month    billing.Month
}

func NewMemory() *Memory {
	return &Memory{
		obligations:  make(map[billing.ObligationID]*billing.Obligation),
		byMonth:      make(map[monthKey]billing.ObligationID),
		readings:     make(map[billing.ReadingID]*billing.Reading),
		roomReadings: make(map[billing.RoomID][]billing.ReadingID),
	}
}

func cloneObligation(o *billing.Obligation) *billing.Obligation {
	c := *o
	c.OtherCharges = append([]billing.OtherCharge(nil), o.OtherCharges...)
	return &c
}

func cloneReading(r *billing.Reading) *billing.Reading {
	c := *r
	return &c
}

// =============================================================================
// OBLIGATIONS
// =============================================================================

func (m *Memory) InsertObligation(_ context.Context, o *billing.Obligation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := monthKey{TenantID: o.TenantID, Month: o.Month}
	if _, exists := m.byMonth[k]; exists {
		return billing.ErrObligationExists
	}

	o.Version = 1
	m.obligations[o.ID] = cloneObligation(o)
	m.byMonth[k] = o.ID
	return nil
}

func (m *Memory) UpdateObligation(_ context.Context, o *billing.Obligation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.obligations[o.ID]
	if !ok {
		return billing.ErrObligationNotFound
	}
	if stored.Version != o.Version {
		return billing.ErrConcurrentModification
	}

	o.Version++
	m.obligations[o.ID] = cloneObligation(o)
	return nil
}

func (m *Memory) GetObligation(_ context.Context, id billing.ObligationID) (*billing.Obligation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.obligations[id]
	if !ok {
		return nil, billing.ErrObligationNotFound
	}
	return cloneObligation(o), nil
}

func (m *Memory) GetObligationForMonth(_ context.Context, tenantID billing.TenantID, month billing.Month) (*billing.Obligation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byMonth[monthKey{TenantID: tenantID, Month: month}]
	if !ok {
		return nil, billing.ErrObligationNotFound
	}
	return cloneObligation(m.obligations[id]), nil
}

func (m *Memory) ListObligations(_ context.Context, f billing.ObligationFilter) ([]*billing.Obligation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*billing.Obligation
	for _, o := range m.obligations {
		if f.Match(o) {
			result = append(result, cloneObligation(o))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].DueDate.After(result[j].DueDate)
	})
	return result, nil
}

// =============================================================================
// READINGS
// =============================================================================

func (m *Memory) InsertReading(_ context.Context, r *billing.Reading) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.readings[r.ID] = cloneReading(r)
	m.roomReadings[r.RoomID] = append(m.roomReadings[r.RoomID], r.ID)
	return nil
}

func (m *Memory) UpdateReading(_ context.Context, r *billing.Reading) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.readings[r.ID]; !ok {
		return billing.ErrReadingNotFound
	}
	m.readings[r.ID] = cloneReading(r)
	return nil
}

func (m *Memory) GetReading(_ context.Context, id billing.ReadingID) (*billing.Reading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.readings[id]
	if !ok {
		return nil, billing.ErrReadingNotFound
	}
	return cloneReading(r), nil
}

func (m *Memory) LatestReading(_ context.Context, roomID billing.RoomID) (*billing.Reading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := m.roomReadings[roomID]
	if len(ids) == 0 {
		return nil, nil
	}
	return cloneReading(m.readings[ids[len(ids)-1]]), nil
}

func (m *Memory) ListReadings(_ context.Context, roomID billing.RoomID) ([]*billing.Reading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := m.roomReadings[roomID]
	result := make([]*billing.Reading, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		result = append(result, cloneReading(m.readings[ids[i]]))
	}
	return result, nil
}

// =============================================================================
// PAYMENTS
// =============================================================================

func (m *Memory) AppendPayment(_ context.Context, p billing.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments = append(m.payments, p)
	return nil
}

func (m *Memory) ListPayments(_ context.Context, f billing.PaymentFilter) ([]billing.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []billing.Payment
	for i := len(m.payments) - 1; i >= 0; i-- {
		p := m.payments[i]
		if len(f.TenantIDs) > 0 && !containsVal(f.TenantIDs, p.TenantID) {
			continue
		}
		if len(f.Statuses) > 0 && !containsVal(f.Statuses, p.Status) {
			continue
		}
		result = append(result, p)
		if f.Limit > 0 && len(result) >= f.Limit {
			break
		}
	}
	return result, nil
}

// =============================================================================
// FINANCE
// =============================================================================

func (m *Memory) AppendFinance(_ context.Context, e billing.FinanceEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finance = append(m.finance, e)
	return nil
}

func (m *Memory) ListFinance(_ context.Context, f billing.FinanceFilter) ([]billing.FinanceEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []billing.FinanceEntry
	for i := len(m.finance) - 1; i >= 0; i-- {
		e := m.finance[i]
		if len(f.Types) > 0 && !containsVal(f.Types, e.Type) {
			continue
		}
		if len(f.PlotIDs) > 0 && !containsVal(f.PlotIDs, e.PlotID) {
			continue
		}
		if len(f.TenantIDs) > 0 && !containsVal(f.TenantIDs, e.TenantID) {
			continue
		}
		if f.Category != "" && e.Category != f.Category {
			continue
		}
		result = append(result, e)
	}
	return result, nil
}

// =============================================================================
// NOTIFICATIONS
// =============================================================================

func (m *Memory) AppendNotification(_ context.Context, n billing.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, n)
	return nil
}

func (m *Memory) ListNotifications(_ context.Context, recipient billing.AdminID, read *bool, limit int) ([]billing.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []billing.Notification
	for i := len(m.notifications) - 1; i >= 0; i-- {
		n := m.notifications[i]
		if n.RecipientID != recipient {
			continue
		}
		if read != nil && n.Read != *read {
			continue
		}
		result = append(result, n)
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (m *Memory) MarkNotificationRead(_ context.Context, id string, recipient billing.AdminID, read bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.notifications {
		if m.notifications[i].ID == id && m.notifications[i].RecipientID == recipient {
			m.notifications[i].Read = read
			return nil
		}
	}
	return billing.ErrNotificationNotFound
}

func containsVal[T comparable](xs []T, x T) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
