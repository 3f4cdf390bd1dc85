/*
charges.go - Charge aggregation and electricity merge

PURPOSE:
  The single place where an obligation's derived money fields are written.
  Recompute is applied after every mutation to any addend (base rent,
  electricity, previous dues, other charges) or to the paid accumulator:

    Total   = BaseRent + Electricity + PreviousDues + sum(OtherCharges)
    Pending = Total - Paid
    Status  = StatusFor(obligation, now)

  Nothing else in the codebase may assign Total, Pending, or Status.

OVERPAYMENT:
  Whether Pending may go negative (tracking a credit balance) or floors at
  zero is a product decision, so it is a policy knob rather than a
  hardcoded rule. The default keeps the credit visible.

SEE ALSO:
  - payment.go: Applies payments then recomputes through here
  - classify.go: Status derivation
*/
package billing

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// OVERPAYMENT POLICY
// =============================================================================

type OverpaymentPolicy string

const (
	// OverpayCredit lets Pending go negative, surfacing the overpaid
	// amount as a credit balance.
	OverpayCredit OverpaymentPolicy = "credit"

	// OverpayClamp floors Pending at zero.
	OverpayClamp OverpaymentPolicy = "clamp"
)

// =============================================================================
// AGGREGATOR
// =============================================================================

// Aggregator recomputes derived obligation fields.
type Aggregator struct {
	Overpayment OverpaymentPolicy
}

// Recompute rewrites Total, Pending, and Status from the addends. It is
// idempotent: with no field changes, a second call yields identical
// derived values.
func (a Aggregator) Recompute(o *Obligation, now TimePoint) {
	o.Total = o.BaseRent.Add(o.Electricity).Add(o.PreviousDues).Add(o.OtherChargesTotal())
	o.Pending = o.Total.Sub(o.Paid)
	if a.Overpayment == OverpayClamp && o.Pending.IsNegative() {
		o.Pending = decimal.Zero
	}
	o.Status = StatusFor(o, now)
}

// MergeReading sets the obligation's electricity charge from a reading,
// marks the reading as merged, and cross-links the two. Recompute runs
// before the caller persists either record.
//
// A reading that is already merged is rejected with a MergeConflictError:
// pricing the same units into two obligations would double count. Merging
// a different reading into an obligation that already carries electricity
// replaces the amount (the obligation bills the latest merged reading, it
// does not accumulate meters).
func (a Aggregator) MergeReading(o *Obligation, r *Reading, now TimePoint) error {
	if r.AddedToRent {
		return &MergeConflictError{ReadingID: r.ID, MergedInto: r.ObligationID}
	}

	o.Electricity = r.Total
	r.AddedToRent = true
	r.ObligationID = o.ID
	a.Recompute(o, now)
	return nil
}

// =============================================================================
// CHARGE SERVICE - Persisted merge operation
// =============================================================================

// ChargeService applies charge mutations against the stores.
type ChargeService struct {
	Obligations   ObligationStore
	Readings      ReadingStore
	Notifications NotificationStore // optional
	Aggregator    Aggregator
}

// MergeReading merges a stored reading into a stored obligation and
// persists both sides. The obligation save is the compare-and-swap; the
// reading back-reference is only written once the obligation commit
// succeeded, so a conflicting writer cannot strand a half-merged reading.
func (s *ChargeService) MergeReading(ctx context.Context, obligationID ObligationID, readingID ReadingID, now TimePoint) (*Obligation, error) {
	o, err := s.Obligations.GetObligation(ctx, obligationID)
	if err != nil {
		return nil, err
	}
	r, err := s.Readings.GetReading(ctx, readingID)
	if err != nil {
		return nil, err
	}

	if err := s.Aggregator.MergeReading(o, r, now); err != nil {
		return nil, err
	}

	if err := s.Obligations.UpdateObligation(ctx, o); err != nil {
		return nil, err
	}
	if err := s.Readings.UpdateReading(ctx, r); err != nil {
		return nil, fmt.Errorf("obligation updated but reading link failed: %w", err)
	}
	return o, nil
}

// AddCharge appends an itemized extra charge and recomputes.
func (s *ChargeService) AddCharge(ctx context.Context, obligationID ObligationID, charge OtherCharge, now TimePoint) (*Obligation, error) {
	o, err := s.Obligations.GetObligation(ctx, obligationID)
	if err != nil {
		return nil, err
	}

	o.OtherCharges = append(o.OtherCharges, charge)
	s.Aggregator.Recompute(o, now)

	if err := s.Obligations.UpdateObligation(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}
