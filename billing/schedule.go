/*
schedule.go - Rent schedule generation

PURPOSE:
  Ensures exactly one obligation exists per (tenant, month) for every
  month an agreement still covers. Generation is idempotent: running it
  twice never duplicates records and never resets payment progress on
  records that already exist.

CREATE vs UPDATE:
  - Absent month:  create with the tenancy's monthly rent, due on the
    first of the month, status pending, zero accumulators
  - Present month: leave financial fields alone; only backfill a missing
    due date

BATCH RUNS:
  A batch run walks all of an admin's tenancies sequentially. Inactive
  agreements are skipped silently; malformed agreements skip that tenant
  and continue. One tenant's failure never aborts the batch - the caller
  gets aggregate counts.
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

// =============================================================================
// TENANCY - Generator input
// =============================================================================

// Tenancy is the slice of a tenant record the generator needs: who owes
// rent, where, and under which agreement.
type Tenancy struct {
	TenantID    TenantID
	TenantName  string
	RoomID      RoomID
	PlotID      PlotID
	OwnerID     AdminID
	Agreement   Agreement
	MonthlyRent decimal.Decimal
}

// ScheduleResult reports what a generation run did.
type ScheduleResult struct {
	Created int
	Updated int
	Skipped int
}

func (r ScheduleResult) Add(other ScheduleResult) ScheduleResult {
	return ScheduleResult{
		Created: r.Created + other.Created,
		Updated: r.Updated + other.Updated,
		Skipped: r.Skipped + other.Skipped,
	}
}

// =============================================================================
// SCHEDULE GENERATOR
// =============================================================================

// ScheduleGenerator creates and backfills obligations.
type ScheduleGenerator struct {
	Obligations   ObligationStore
	Notifications NotificationStore // optional
	Log           logrus.FieldLogger
}

// Generate ensures one obligation per remaining agreement month for the
// tenancy. Returns zero counts (no error) when the agreement is not
// active at now.
func (g *ScheduleGenerator) Generate(ctx context.Context, t Tenancy, now TimePoint) (ScheduleResult, error) {
	var res ScheduleResult

	if err := t.Agreement.Validate(); err != nil {
		return res, err
	}

	for _, month := range t.Agreement.RemainingMonths(now) {
		existing, err := g.Obligations.GetObligationForMonth(ctx, t.TenantID, month)
		switch {
		case errors.Is(err, ErrObligationNotFound):
			if err := g.create(ctx, t, month, now); err != nil {
				// Lost a race with a concurrent run for the same month;
				// the obligation exists, which is all Generate promises.
				if errors.Is(err, ErrObligationExists) {
					continue
				}
				return res, err
			}
			res.Created++

		case err != nil:
			return res, err

		default:
			if existing.DueDate.IsZero() {
				existing.DueDate = month.First()
				if err := g.Obligations.UpdateObligation(ctx, existing); err != nil {
					return res, err
				}
				res.Updated++
			}
		}
	}

	if res.Created > 0 {
		g.notify(ctx, t, res)
	}
	return res, nil
}

func (g *ScheduleGenerator) create(ctx context.Context, t Tenancy, month Month, now TimePoint) error {
	o := &Obligation{
		ID:           ObligationID(uuid.NewString()),
		TenantID:     t.TenantID,
		RoomID:       t.RoomID,
		PlotID:       t.PlotID,
		Month:        month,
		DueDate:      month.First(),
		GeneratedAt:  now,
		BaseRent:     t.MonthlyRent,
		Electricity:  decimal.Zero,
		PreviousDues: decimal.Zero,
		Paid:         decimal.Zero,
		CreatedAt:    time.Now().UTC(),
	}
	Aggregator{}.Recompute(o, now)
	// A fresh month always starts pending, even when generated after its
	// due date; the overdue sweep handles the transition.
	o.Status = StatusPending
	return g.Obligations.InsertObligation(ctx, o)
}

// GenerateAll runs generation for every tenancy of one admin. Tenants
// whose agreement is malformed or whose writes fail are skipped and
// counted; the batch always completes.
func (g *ScheduleGenerator) GenerateAll(ctx context.Context, tenancies []Tenancy, now TimePoint) ScheduleResult {
	var total ScheduleResult
	for _, t := range tenancies {
		res, err := g.Generate(ctx, t, now)
		total = total.Add(res)
		if err != nil {
			total.Skipped++
			if g.Log != nil {
				g.Log.WithError(err).WithField("tenant_id", t.TenantID).
					Warn("schedule generation skipped tenant")
			}
		}
	}
	return total
}

// notify is fire-and-forget: a failed notification never fails the run.
func (g *ScheduleGenerator) notify(ctx context.Context, t Tenancy, res ScheduleResult) {
	if g.Notifications == nil || t.OwnerID == "" {
		return
	}
	n := Notification{
		ID:          uuid.NewString(),
		Type:        NotifyRentGenerated,
		Message:     fmt.Sprintf("Rent schedule generated for %s: %d obligation(s) created", t.TenantName, res.Created),
		RecipientID: t.OwnerID,
		Date:        time.Now().UTC(),
	}
	if err := g.Notifications.AppendNotification(ctx, n); err != nil && g.Log != nil {
		g.Log.WithError(err).Warn("notification append failed")
	}
}
