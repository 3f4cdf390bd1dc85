package billing_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/property-engine/billing"
)

// =============================================================================
// STATUS DERIVATION
// =============================================================================

func TestStatusFor_PaidWinsOverOverdue(t *testing.T) {
	// GIVEN: Due 2024-01-01, fully paid, now 2024-02-01
	// THEN: paid, not overdue - the paid check is evaluated first

	o := newObligation("ob-1", 1500, date(2024, time.January, 1))
	o.Paid = money(1500)
	assert.Equal(t, billing.StatusPaid, billing.StatusFor(o, date(2024, time.February, 1)))
}

func TestStatusFor_PartialWinsOverOverdue(t *testing.T) {
	o := newObligation("ob-1", 1500, date(2024, time.January, 1))
	o.Paid = money(500)
	assert.Equal(t, billing.StatusPartial, billing.StatusFor(o, date(2024, time.February, 1)))
}

func TestStatusFor_OverdueAfterDueDate(t *testing.T) {
	o := newObligation("ob-1", 1500, date(2024, time.January, 1))
	assert.Equal(t, billing.StatusOverdue, billing.StatusFor(o, date(2024, time.February, 1)))
}

func TestStatusFor_DueDateItselfIsPending(t *testing.T) {
	o := newObligation("ob-1", 1500, date(2024, time.February, 1))
	assert.Equal(t, billing.StatusPending, billing.StatusFor(o, date(2024, time.February, 1)))
}

func TestStatusFor_OverpaidIsPaid(t *testing.T) {
	o := newObligation("ob-1", 1500, date(2024, time.February, 1))
	o.Paid = money(2000)
	assert.Equal(t, billing.StatusPaid, billing.StatusFor(o, date(2024, time.January, 15)))
}

func TestStatusFor_ZeroTotalIsPaid(t *testing.T) {
	// A zero-rent obligation has nothing owed.
	o := newObligation("ob-1", 0, date(2024, time.February, 1))
	assert.Equal(t, billing.StatusPaid, billing.StatusFor(o, date(2024, time.January, 15)))
}

// =============================================================================
// BUCKETS
// =============================================================================

func TestClassify_Partitions(t *testing.T) {
	// GIVEN: Obligations due yesterday, today, in 3 days, in 10 days,
	//        plus a fully paid one
	// WHEN: Classifying with the default 7-day window at Feb 10
	// THEN: overdue / due-today / upcoming; paid and beyond-window excluded

	now := date(2024, time.February, 10)
	overdue := newObligation("ob-overdue", 1500, date(2024, time.February, 9))
	today := newObligation("ob-today", 1500, date(2024, time.February, 10))
	soon := newObligation("ob-soon", 1500, date(2024, time.February, 13))
	far := newObligation("ob-far", 1500, date(2024, time.February, 20))
	done := newObligation("ob-done", 1500, date(2024, time.February, 9))
	done.Paid = money(1500)
	billing.Aggregator{}.Recompute(done, now)

	b := billing.Classify([]*billing.Obligation{overdue, today, soon, far, done}, now, 0)

	require.Len(t, b.Overdue, 1)
	assert.Equal(t, billing.ObligationID("ob-overdue"), b.Overdue[0].ID)

	require.Len(t, b.DueToday, 1)
	assert.Equal(t, billing.ObligationID("ob-today"), b.DueToday[0].ID)

	require.Len(t, b.Upcoming, 1)
	assert.Equal(t, billing.ObligationID("ob-soon"), b.Upcoming[0].ID)
}

func TestClassify_WindowBoundaryInclusive(t *testing.T) {
	now := date(2024, time.February, 10)
	edge := newObligation("ob-edge", 1500, date(2024, time.February, 17)) // exactly now+7

	b := billing.Classify([]*billing.Obligation{edge}, now, 0)
	assert.Len(t, b.Upcoming, 1)
}

func TestClassify_PartialPastDue_Overdue(t *testing.T) {
	// A partial payment does not rescue a past-due obligation from the
	// overdue bucket.
	now := date(2024, time.February, 10)
	o := newObligation("ob-1", 1500, date(2024, time.February, 1))
	o.Paid = money(500)
	billing.Aggregator{}.Recompute(o, now)

	b := billing.Classify([]*billing.Obligation{o}, now, 0)
	require.Len(t, b.Overdue, 1)
}

func TestClassify_PartialFutureDue_NotUpcoming(t *testing.T) {
	// Upcoming is pending-only: a partially paid future obligation needs
	// no reminder.
	now := date(2024, time.February, 10)
	o := newObligation("ob-1", 1500, date(2024, time.February, 13))
	o.Paid = money(500)
	billing.Aggregator{}.Recompute(o, now)

	b := billing.Classify([]*billing.Obligation{o}, now, 0)
	assert.Empty(t, b.Upcoming)
	assert.Empty(t, b.Overdue)
	assert.Empty(t, b.DueToday)
}

func TestClassify_CustomWindow(t *testing.T) {
	now := date(2024, time.February, 10)
	o := newObligation("ob-1", 1500, date(2024, time.February, 25))

	assert.Empty(t, billing.Classify([]*billing.Obligation{o}, now, 7).Upcoming)
	assert.Len(t, billing.Classify([]*billing.Obligation{o}, now, 30).Upcoming, 1)
}

// =============================================================================
// DASHBOARD SUMMARY
// =============================================================================

func TestSummarize_CurrentMonthFinances(t *testing.T) {
	// GIVEN: Two current-month obligations (1500 paid 1500, 2000 paid 500)
	//        and one overdue January obligation pending 800
	// THEN: due 3500, collected 2000, pending 1500, collection rate
	//       57.14%; overdue balance spans ob-2 (1500) and ob-3 (800)

	now := date(2024, time.February, 10)

	full := newObligation("ob-1", 1500, date(2024, time.February, 1))
	full.Paid = money(1500)
	billing.Aggregator{}.Recompute(full, now)

	part := newObligation("ob-2", 2000, date(2024, time.February, 5))
	part.Paid = money(500)
	billing.Aggregator{}.Recompute(part, now)

	old := newObligation("ob-3", 800, date(2024, time.January, 1))
	billing.Aggregator{}.Recompute(old, now)

	dash := billing.Summarize(billing.DashboardInput{
		PlotCount:   2,
		RoomCount:   10,
		TenantCount: 3,
		Obligations: []*billing.Obligation{full, part, old},
		Now:         now,
	})

	assert.True(t, dash.Finances.TotalRentDue.Equal(money(3500)), "got %s", dash.Finances.TotalRentDue)
	assert.True(t, dash.Finances.TotalRentCollected.Equal(money(2000)))
	assert.True(t, dash.Finances.PendingRent.Equal(money(1500)))
	assert.True(t, dash.Finances.TotalOverdue.Equal(money(2300)))
	assert.Equal(t, "57.14", dash.Finances.CollectionRate.String())

	assert.Equal(t, 2, dash.Overview.TotalPlots)
	require.Len(t, dash.Buckets.Overdue, 2, "ob-2 past due and ob-3")
}

func TestSummarize_NoObligations_ZeroRate(t *testing.T) {
	dash := billing.Summarize(billing.DashboardInput{Now: date(2024, time.February, 10)})
	assert.True(t, dash.Finances.CollectionRate.IsZero())
	assert.True(t, dash.Finances.TotalRentDue.IsZero())
}
