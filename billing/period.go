/*
period.go - Agreement terms and billing month resolution

PURPOSE:
  Determines which calendar months a tenancy agreement covers relative to
  a reference date. This is the input to schedule generation: one rent
  obligation is owed per covered month.

KEY CONCEPTS:
  - Agreement: the contract term (start, end, rent, deposit)
  - Month: a calendar-month identifier ("2024-02"), the key that makes
    obligations unique per tenant
  - RemainingMonths: the months still to bill, from max(start, reference)
    through the agreement end, inclusive

DESIGN:
  Everything here is a pure function of its inputs. The reference date is
  always explicit; nothing reads the wall clock. This keeps the resolver
  restartable and trivially testable.

SEE ALSO:
  - schedule.go: Consumes RemainingMonths to generate obligations
*/
package billing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONTH - Calendar-month identifier
// =============================================================================

// Month identifies a calendar month. It is the uniqueness key for
// obligations: at most one obligation exists per (tenant, month).
type Month struct {
	Year  int
	Month time.Month
}

func MonthOf(tp TimePoint) Month {
	return Month{Year: tp.Year(), Month: tp.Month()}
}

// ParseMonth parses a YYYY-MM string.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, fmt.Errorf("invalid month %q: %w", s, err)
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

// First returns the first day of the month, the default due date for the
// month's obligation.
func (m Month) First() TimePoint {
	return NewDate(m.Year, m.Month, 1)
}

func (m Month) Next() Month {
	return MonthOf(m.First().AddMonths(1))
}

func (m Month) Before(other Month) bool {
	if m.Year != other.Year {
		return m.Year < other.Year
	}
	return m.Month < other.Month
}

func (m Month) After(other Month) bool { return other.Before(m) }

func (m Month) String() string { return m.First().Time.Format("2006-01") }

// =============================================================================
// AGREEMENT - Tenancy contract term
// =============================================================================

// Agreement is the tenancy contract embedded in a tenant record.
// Invariant: Start <= End. Immutable once created except by explicit
// amendment.
type Agreement struct {
	Start   TimePoint
	End     TimePoint
	Rent    decimal.Decimal
	Deposit decimal.Decimal
}

// Validate reports a malformed agreement (end before start).
func (a Agreement) Validate() error {
	if a.End.Before(a.Start) {
		return ErrInvalidAgreement
	}
	return nil
}

// IsActive reports whether the agreement covers the reference date:
// Start <= ref <= End.
func (a Agreement) IsActive(ref TimePoint) bool {
	return a.Start.BeforeOrEqual(ref) && ref.BeforeOrEqual(a.End)
}

// RemainingMonths returns the ordered months still to bill as of ref:
// starting at max(Start, ref) truncated to month, ending at End's month,
// inclusive. Empty when the agreement is not active at ref.
func (a Agreement) RemainingMonths(ref TimePoint) []Month {
	if !a.IsActive(ref) {
		return nil
	}

	from := a.Start
	if ref.After(from) {
		from = ref
	}

	var months []Month
	last := MonthOf(a.End)
	for m := MonthOf(from); !m.After(last); m = m.Next() {
		months = append(months, m)
	}
	return months
}
