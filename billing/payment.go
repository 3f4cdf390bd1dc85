/*
payment.go - Payment application and its side effects

PURPOSE:
  Records partial and full payments against an obligation. The paid
  amount accumulates across calls - multiple partial payments over time
  are the normal case - and every successful application emits the full
  audit trail:

    1. Obligation: Paid += amount, latest method/date, recompute
    2. Payment record: immutable, one per payment event
    3. Finance record: income, category rent, tagged tenant/room/plot
    4. Notification toward the owning admin (fire-and-forget)

VALIDATION:
  Non-positive amounts are rejected before any state changes. Overpayment
  is NOT rejected; what happens to the pending balance is the aggregator's
  overpayment policy.

CONCURRENCY:
  Apply is a read-mutate-save loop. The save is a compare-and-swap on the
  obligation's version; on conflict the whole loop re-reads and retries up
  to three times, so two concurrent payments both land instead of one
  silently overwriting the other.
*/
package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const applyRetries = 3

// =============================================================================
// PAYMENT LEDGER
// =============================================================================

// PaymentLedger applies payments to obligations and writes the derived
// payment, finance, and notification records.
type PaymentLedger struct {
	Obligations   ObligationStore
	Payments      PaymentStore
	Finance       FinanceStore
	Notifications NotificationStore // optional
	Aggregator    Aggregator
	Log           logrus.FieldLogger
}

// PaymentRequest describes one payment event.
type PaymentRequest struct {
	ObligationID ObligationID
	Amount       decimal.Decimal
	Method       PaymentMethod
	Date         TimePoint // zero means now's date

	// TenantName and OwnerID feed the notification message; empty values
	// only suppress the notification.
	TenantName string
	OwnerID    AdminID
}

// Apply records a payment and returns the updated obligation.
func (l *PaymentLedger) Apply(ctx context.Context, req PaymentRequest, now TimePoint) (*Obligation, error) {
	if !req.Amount.IsPositive() {
		return nil, &InvalidAmountError{Amount: req.Amount}
	}

	date := req.Date
	if date.IsZero() {
		date = now
	}

	var o *Obligation
	for attempt := 0; ; attempt++ {
		var err error
		o, err = l.Obligations.GetObligation(ctx, req.ObligationID)
		if err != nil {
			return nil, err
		}

		o.Paid = o.Paid.Add(req.Amount)
		o.PaymentMethod = req.Method
		o.PaymentDate = date
		l.Aggregator.Recompute(o, now)

		err = l.Obligations.UpdateObligation(ctx, o)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrConcurrentModification) || attempt+1 >= applyRetries {
			return nil, err
		}
	}

	payment := Payment{
		ID:        PaymentID(uuid.NewString()),
		TenantID:  o.TenantID,
		Amount:    req.Amount,
		Date:      date,
		Method:    req.Method,
		Status:    PaymentCompleted,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.Payments.AppendPayment(ctx, payment); err != nil {
		return nil, fmt.Errorf("payment applied but audit record failed: %w", err)
	}

	entry := FinanceEntry{
		ID:          uuid.NewString(),
		Type:        FinanceIncome,
		Amount:      req.Amount,
		Description: fmt.Sprintf("Rent payment - %s (%s)", req.TenantName, o.Month),
		Date:        date,
		Category:    "rent",
		PlotID:      o.PlotID,
		RoomID:      o.RoomID,
		TenantID:    o.TenantID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := l.Finance.AppendFinance(ctx, entry); err != nil {
		return nil, fmt.Errorf("payment applied but finance record failed: %w", err)
	}

	l.notify(ctx, req, o)
	return o, nil
}

func (l *PaymentLedger) notify(ctx context.Context, req PaymentRequest, o *Obligation) {
	if l.Notifications == nil || req.OwnerID == "" {
		return
	}
	n := Notification{
		ID:          uuid.NewString(),
		Type:        NotifyRentPaid,
		Message:     fmt.Sprintf("Rent payment of %s received from %s", req.Amount, req.TenantName),
		RecipientID: req.OwnerID,
		Date:        time.Now().UTC(),
	}
	if err := l.Notifications.AppendNotification(ctx, n); err != nil && l.Log != nil {
		l.Log.WithError(err).Warn("payment notification failed")
	}
}

// =============================================================================
// OVERDUE SWEEP
// =============================================================================

// ReclassifyOverdue flips stored pending statuses to overdue once their
// due date has passed, so status-filtered queries stay truthful between
// reads. Only pending records can flip here: partial and paid are already
// ahead of overdue in the status order.
func ReclassifyOverdue(ctx context.Context, store ObligationStore, agg Aggregator, now TimePoint) (int, error) {
	due := now.AddDays(-1)
	obs, err := store.ListObligations(ctx, ObligationFilter{
		Statuses: []ObligationStatus{StatusPending},
		DueTo:    &due,
	})
	if err != nil {
		return 0, err
	}

	flipped := 0
	for _, o := range obs {
		agg.Recompute(o, now)
		if o.Status != StatusOverdue {
			continue
		}
		if err := store.UpdateObligation(ctx, o); err != nil {
			// A concurrent payment beat the sweep; that writer already
			// reclassified.
			if errors.Is(err, ErrConcurrentModification) {
				continue
			}
			return flipped, err
		}
		flipped++
	}
	return flipped, nil
}
