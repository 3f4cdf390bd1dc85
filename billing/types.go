/*
Package billing implements the rent and billing derivation engine.

PURPOSE:
  This package derives monthly rent obligations from tenancy agreements,
  merges metered electricity charges into them, records partial and full
  payments, and classifies every obligation by its due-date status.

KEY CONCEPTS IN THIS FILE (types.go):
  - Obligation: One tenant's rent record for one calendar month
  - Reading: An electricity meter reading priced into a utility charge
  - Payment: An immutable ledger entry for one payment event
  - FinanceEntry: Income/expense record derived from billing activity
  - Notification: Fire-and-forget event raised toward the owning admin

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal for all money, never float64
  2. Derived fields are stored, but only ever written through Recompute -
     totalAmount, pendingAmount, and status cannot drift independently
  3. Explicit reference dates: nothing in this package reads the clock
  4. Typed IDs prevent mixing tenant/room/plot identifiers

SEE ALSO:
  - period.go:   Agreement terms and month resolution
  - schedule.go: Obligation generation
  - charges.go:  Total/pending recomputation and electricity merge
  - payment.go:  Payment application and its side effects
  - classify.go: Status derivation and reporting buckets
*/
package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type AdminID string
type PlotID string
type RoomID string
type TenantID string
type ObligationID string
type ReadingID string
type PaymentID string

// =============================================================================
// OBLIGATION - One tenant-month rent record
// =============================================================================

type ObligationStatus string

const (
	StatusPending ObligationStatus = "pending"
	StatusPartial ObligationStatus = "partial"
	StatusPaid    ObligationStatus = "paid"
	StatusOverdue ObligationStatus = "overdue"
)

type PaymentMethod string

const (
	MethodCash   PaymentMethod = "cash"
	MethodOnline PaymentMethod = "online"
	MethodCheque PaymentMethod = "cheque"
)

// OtherCharge is an itemized extra on an obligation (parking, maintenance).
type OtherCharge struct {
	Description string
	Amount      decimal.Decimal
}

// Obligation is one tenant's rent record for one calendar month.
//
// INVARIANTS:
//   - Total == BaseRent + Electricity + PreviousDues + sum(OtherCharges)
//   - Pending == Total - Paid (subject to the overpayment policy)
//   - Status is derived; see classify.go
//   - At most one obligation exists per (TenantID, Month)
//
// Total, Pending, and Status are persisted for query efficiency but are
// only ever written through Recompute. Obligations are never deleted;
// they are the historical billing record.
type Obligation struct {
	ID       ObligationID
	TenantID TenantID
	RoomID   RoomID
	PlotID   PlotID
	Month    Month

	DueDate     TimePoint
	GeneratedAt TimePoint

	BaseRent     decimal.Decimal
	Electricity  decimal.Decimal
	PreviousDues decimal.Decimal
	OtherCharges []OtherCharge

	Total   decimal.Decimal
	Paid    decimal.Decimal
	Pending decimal.Decimal
	Status  ObligationStatus

	PaymentDate   TimePoint // zero until the first payment
	PaymentMethod PaymentMethod

	// Version guards read-modify-write updates; stores reject saves whose
	// version does not match the persisted row.
	Version   int64
	CreatedAt time.Time
}

// OtherChargesTotal sums the itemized extras.
func (o *Obligation) OtherChargesTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, c := range o.OtherCharges {
		sum = sum.Add(c.Amount)
	}
	return sum
}

// =============================================================================
// ELECTRICITY READING
// =============================================================================

// Reading is one electricity meter reading event, priced into a charge.
// Immutable after being merged into an obligation except for AddedToRent
// and ObligationID.
type Reading struct {
	ID       ReadingID
	RoomID   RoomID
	PlotID   PlotID
	TenantID TenantID // empty when the room is unoccupied

	Current     decimal.Decimal
	Previous    decimal.Decimal
	Units       decimal.Decimal // Current - Previous
	RatePerUnit decimal.Decimal
	Total       decimal.Decimal // Units * RatePerUnit

	ReadingDate TimePoint

	AddedToRent  bool
	ObligationID ObligationID

	CreatedAt time.Time
}

// DefaultRatePerUnit applies when a reading is recorded without a rate.
var DefaultRatePerUnit = decimal.NewFromInt(10)

// Price fills the derived Units and Total fields.
func (r *Reading) Price() {
	r.Units = r.Current.Sub(r.Previous)
	r.Total = r.Units.Mul(r.RatePerUnit)
}

// =============================================================================
// PAYMENT - Append-only audit trail
// =============================================================================

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// Payment is one payment event. Distinct from the cumulative
// Obligation.Paid accumulator: there is one Payment per event.
type Payment struct {
	ID        PaymentID
	TenantID  TenantID
	Amount    decimal.Decimal
	Date      TimePoint
	Method    PaymentMethod
	Status    PaymentStatus
	CreatedAt time.Time
}

// =============================================================================
// FINANCE - Derived income/expense ledger
// =============================================================================

type FinanceType string

const (
	FinanceIncome  FinanceType = "income"
	FinanceExpense FinanceType = "expense"
)

// FinanceEntry is an income or expense record tagged to the property
// hierarchy. Categories are free-form (rent, maintenance, tax).
type FinanceEntry struct {
	ID          string
	Type        FinanceType
	Amount      decimal.Decimal
	Description string
	Date        TimePoint
	Category    string
	PlotID      PlotID
	RoomID      RoomID
	TenantID    TenantID
	CreatedAt   time.Time
}

// =============================================================================
// NOTIFICATION - Fire-and-forget events toward the admin
// =============================================================================

const (
	NotifyRentGenerated = "rent_generated"
	NotifyRentPaid      = "rent_paid"
	NotifyReadingMerged = "reading_merged"
)

type Notification struct {
	ID          string
	Type        string
	Message     string
	RecipientID AdminID
	Date        time.Time
	Read        bool
}
