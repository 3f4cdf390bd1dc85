/*
store.go - Persistence interfaces for billing data

PURPOSE:
  Defines the interface between billing logic and the database. The
  engine never touches SQL; it speaks these interfaces, which are
  implemented by store/sqlite for production and billing/store for tests.

CONTRACTS:
  ObligationStore:   Point lookups, filtered lists, insert-with-uniqueness,
                     and compare-and-swap updates on the Version field
  ReadingStore:      Reading persistence plus latest-reading lookup per room
  PaymentStore:      Append-only payment events
  FinanceStore:      Append-only income/expense records
  NotificationStore: Fire-and-forget notifications with read tracking

CONCURRENCY:
  UpdateObligation is a compare-and-swap: the save only succeeds when the
  stored row still carries the caller's Version, and increments it. This
  is what makes the read-modify-write pattern in payment.go safe against
  lost updates.

UNIQUENESS:
  InsertObligation enforces at most one obligation per (tenant, month)
  and surfaces violations as ErrObligationExists.
*/
package billing

import "context"

// =============================================================================
// OBLIGATION STORE
// =============================================================================

// ObligationFilter narrows list queries. Nil/empty fields match everything.
type ObligationFilter struct {
	TenantIDs []TenantID
	RoomIDs   []RoomID
	PlotIDs   []PlotID
	Statuses  []ObligationStatus
	DueFrom   *TimePoint
	DueTo     *TimePoint
}

// Match reports whether an obligation passes the filter.
func (f ObligationFilter) Match(o *Obligation) bool {
	if len(f.TenantIDs) > 0 && !containsID(f.TenantIDs, o.TenantID) {
		return false
	}
	if len(f.RoomIDs) > 0 && !containsID(f.RoomIDs, o.RoomID) {
		return false
	}
	if len(f.PlotIDs) > 0 && !containsID(f.PlotIDs, o.PlotID) {
		return false
	}
	if len(f.Statuses) > 0 && !containsID(f.Statuses, o.Status) {
		return false
	}
	if f.DueFrom != nil && o.DueDate.Before(*f.DueFrom) {
		return false
	}
	if f.DueTo != nil && o.DueDate.After(*f.DueTo) {
		return false
	}
	return true
}

func containsID[T comparable](xs []T, x T) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

type ObligationStore interface {
	// InsertObligation persists a new obligation. Returns
	// ErrObligationExists when one already exists for (TenantID, Month).
	InsertObligation(ctx context.Context, o *Obligation) error

	// UpdateObligation saves a mutated obligation via compare-and-swap on
	// Version. Returns ErrConcurrentModification on mismatch; on success
	// the in-memory Version is incremented to match the store.
	UpdateObligation(ctx context.Context, o *Obligation) error

	GetObligation(ctx context.Context, id ObligationID) (*Obligation, error)

	// GetObligationForMonth returns the obligation for (tenant, month),
	// or ErrObligationNotFound.
	GetObligationForMonth(ctx context.Context, tenantID TenantID, m Month) (*Obligation, error)

	// ListObligations returns obligations matching the filter, ordered by
	// due date descending.
	ListObligations(ctx context.Context, f ObligationFilter) ([]*Obligation, error)
}

// =============================================================================
// READING STORE
// =============================================================================

type ReadingStore interface {
	InsertReading(ctx context.Context, r *Reading) error

	// UpdateReading persists merge bookkeeping (AddedToRent, ObligationID).
	UpdateReading(ctx context.Context, r *Reading) error

	GetReading(ctx context.Context, id ReadingID) (*Reading, error)

	// LatestReading returns the most recently recorded reading for a room,
	// or nil when the room has none.
	LatestReading(ctx context.Context, roomID RoomID) (*Reading, error)

	// ListReadings returns a room's readings, newest first.
	ListReadings(ctx context.Context, roomID RoomID) ([]*Reading, error)
}

// =============================================================================
// PAYMENT / FINANCE / NOTIFICATION STORES
// =============================================================================

type PaymentFilter struct {
	TenantIDs []TenantID
	Statuses  []PaymentStatus
	Limit     int // 0 = no limit
}

type PaymentStore interface {
	// AppendPayment records a payment event. Append-only: payments are the
	// audit trail and are never updated or deleted.
	AppendPayment(ctx context.Context, p Payment) error

	// ListPayments returns payments matching the filter, newest first.
	ListPayments(ctx context.Context, f PaymentFilter) ([]Payment, error)
}

type FinanceFilter struct {
	Types     []FinanceType
	PlotIDs   []PlotID
	TenantIDs []TenantID
	Category  string
}

type FinanceStore interface {
	AppendFinance(ctx context.Context, e FinanceEntry) error
	ListFinance(ctx context.Context, f FinanceFilter) ([]FinanceEntry, error)
}

type NotificationStore interface {
	AppendNotification(ctx context.Context, n Notification) error

	// ListNotifications returns an admin's notifications, newest first.
	// read filters by read state when non-nil; limit 0 means no limit.
	ListNotifications(ctx context.Context, recipient AdminID, read *bool, limit int) ([]Notification, error)

	MarkNotificationRead(ctx context.Context, id string, recipient AdminID, read bool) error
}
