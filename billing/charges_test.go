package billing_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/property-engine/billing"
	"github.com/warp/property-engine/billing/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newObligation(id string, baseRent int64, due billing.TimePoint) *billing.Obligation {
	o := &billing.Obligation{
		ID:       billing.ObligationID(id),
		TenantID: "t-1",
		RoomID:   "room-1",
		PlotID:   "plot-1",
		Month:    billing.MonthOf(due),
		DueDate:  due,
		BaseRent: money(baseRent),
	}
	billing.Aggregator{}.Recompute(o, due)
	return o
}

func newReading(id string, current, previous, rate int64) *billing.Reading {
	r := &billing.Reading{
		ID:          billing.ReadingID(id),
		RoomID:      "room-1",
		PlotID:      "plot-1",
		TenantID:    "t-1",
		Current:     money(current),
		Previous:    money(previous),
		RatePerUnit: money(rate),
		ReadingDate: date(2024, time.February, 10),
	}
	r.Price()
	return r
}

// =============================================================================
// RECOMPUTE
// =============================================================================

func TestRecompute_SumsAllAddends(t *testing.T) {
	// GIVEN: Base 1000, electricity 250, previous dues 200, extras 50+25
	// THEN: Total 1525, pending follows paid

	now := date(2024, time.February, 1)
	o := newObligation("ob-1", 1000, now)
	o.Electricity = money(250)
	o.PreviousDues = money(200)
	o.OtherCharges = []billing.OtherCharge{
		{Description: "parking", Amount: money(50)},
		{Description: "water", Amount: money(25)},
	}
	o.Paid = money(500)

	billing.Aggregator{}.Recompute(o, now)

	assert.True(t, o.Total.Equal(money(1525)), "got %s", o.Total)
	assert.True(t, o.Pending.Equal(money(1025)), "got %s", o.Pending)
	assert.Equal(t, billing.StatusPartial, o.Status)
}

func TestRecompute_Idempotent(t *testing.T) {
	now := date(2024, time.February, 1)
	o := newObligation("ob-1", 1000, now)
	o.Electricity = money(250)
	o.Paid = money(300)

	agg := billing.Aggregator{}
	agg.Recompute(o, now)
	total, pending, status := o.Total, o.Pending, o.Status

	agg.Recompute(o, now)
	assert.True(t, o.Total.Equal(total))
	assert.True(t, o.Pending.Equal(pending))
	assert.Equal(t, status, o.Status)
}

func TestRecompute_OverpaymentPolicies(t *testing.T) {
	// GIVEN: Paid exceeds total by 100
	// THEN: Credit policy shows -100 pending; clamp floors at zero

	now := date(2024, time.February, 1)

	o := newObligation("ob-1", 1000, now)
	o.Paid = money(1100)
	billing.Aggregator{Overpayment: billing.OverpayCredit}.Recompute(o, now)
	assert.True(t, o.Pending.Equal(money(-100)), "credit keeps the overpayment visible")
	assert.Equal(t, billing.StatusPaid, o.Status)

	o2 := newObligation("ob-2", 1000, now)
	o2.Paid = money(1100)
	billing.Aggregator{Overpayment: billing.OverpayClamp}.Recompute(o2, now)
	assert.True(t, o2.Pending.IsZero(), "clamp floors pending at zero")
	assert.Equal(t, billing.StatusPaid, o2.Status)
}

// =============================================================================
// READING PRICING
// =============================================================================

func TestReading_Price(t *testing.T) {
	r := newReading("rd-1", 1250, 1200, 5)
	assert.True(t, r.Units.Equal(money(50)))
	assert.True(t, r.Total.Equal(money(250)))
}

func TestReading_DefaultRate(t *testing.T) {
	r := &billing.Reading{Current: money(120), Previous: money(100), RatePerUnit: billing.DefaultRatePerUnit}
	r.Price()
	assert.True(t, r.Total.Equal(money(200)), "20 units at the default rate of 10")
}

// =============================================================================
// ELECTRICITY MERGE
// =============================================================================

func TestMergeReading_AddsElectricityToTotal(t *testing.T) {
	// GIVEN: Obligation of 1000, reading priced at 250
	// WHEN: Merging
	// THEN: Total 1250, reading linked and marked merged

	now := date(2024, time.February, 1)
	o := newObligation("ob-1", 1000, now)
	r := newReading("rd-1", 1250, 1200, 5)

	require.NoError(t, billing.Aggregator{}.MergeReading(o, r, now))

	assert.True(t, o.Electricity.Equal(money(250)))
	assert.True(t, o.Total.Equal(money(1250)))
	assert.True(t, r.AddedToRent)
	assert.Equal(t, o.ID, r.ObligationID)
}

func TestMergeReading_AlreadyMerged_Conflict(t *testing.T) {
	// GIVEN: A reading already merged into one obligation
	// WHEN: Merging it into another
	// THEN: MergeConflictError naming the first obligation

	now := date(2024, time.February, 1)
	first := newObligation("ob-1", 1000, now)
	second := newObligation("ob-2", 1000, now)
	r := newReading("rd-1", 1250, 1200, 5)

	agg := billing.Aggregator{}
	require.NoError(t, agg.MergeReading(first, r, now))

	err := agg.MergeReading(second, r, now)
	require.Error(t, err)

	var conflict *billing.MergeConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, billing.ObligationID("ob-1"), conflict.MergedInto)
	assert.ErrorIs(t, err, billing.ErrReadingAlreadyMerged)
	assert.True(t, second.Electricity.IsZero(), "conflicting merge must not touch the obligation")
}

func TestMergeReading_DifferentReading_ReplacesElectricity(t *testing.T) {
	// Merging a second, unmerged reading replaces the electricity amount
	// rather than accumulating meters.
	now := date(2024, time.February, 1)
	o := newObligation("ob-1", 1000, now)

	agg := billing.Aggregator{}
	require.NoError(t, agg.MergeReading(o, newReading("rd-1", 1250, 1200, 5), now))
	require.NoError(t, agg.MergeReading(o, newReading("rd-2", 1300, 1250, 5), now))

	assert.True(t, o.Electricity.Equal(money(250)), "latest reading's price, not the sum")
	assert.True(t, o.Total.Equal(money(1250)))
}

// =============================================================================
// CHARGE SERVICE (persisted)
// =============================================================================

func TestChargeService_MergeReading_PersistsBothSides(t *testing.T) {
	mem := store.NewMemory()
	svc := &billing.ChargeService{Obligations: mem, Readings: mem}
	ctx := context.Background()
	now := date(2024, time.February, 1)

	o := newObligation("ob-1", 1000, now)
	require.NoError(t, mem.InsertObligation(ctx, o))
	r := newReading("rd-1", 1250, 1200, 5)
	require.NoError(t, mem.InsertReading(ctx, r))

	updated, err := svc.MergeReading(ctx, o.ID, r.ID, now)
	require.NoError(t, err)
	assert.True(t, updated.Total.Equal(money(1250)))

	storedReading, err := mem.GetReading(ctx, r.ID)
	require.NoError(t, err)
	assert.True(t, storedReading.AddedToRent)
	assert.Equal(t, o.ID, storedReading.ObligationID)

	// Merging the persisted reading again conflicts.
	_, err = svc.MergeReading(ctx, o.ID, r.ID, now)
	assert.ErrorIs(t, err, billing.ErrReadingAlreadyMerged)
}

func TestChargeService_MergeReading_MissingRecords(t *testing.T) {
	mem := store.NewMemory()
	svc := &billing.ChargeService{Obligations: mem, Readings: mem}
	ctx := context.Background()
	now := date(2024, time.February, 1)

	_, err := svc.MergeReading(ctx, "missing", "rd-1", now)
	assert.ErrorIs(t, err, billing.ErrObligationNotFound)

	o := newObligation("ob-1", 1000, now)
	require.NoError(t, mem.InsertObligation(ctx, o))
	_, err = svc.MergeReading(ctx, o.ID, "missing", now)
	assert.ErrorIs(t, err, billing.ErrReadingNotFound)
}

func TestChargeService_AddCharge(t *testing.T) {
	mem := store.NewMemory()
	svc := &billing.ChargeService{Obligations: mem}
	ctx := context.Background()
	now := date(2024, time.February, 1)

	o := newObligation("ob-1", 1000, now)
	require.NoError(t, mem.InsertObligation(ctx, o))

	updated, err := svc.AddCharge(ctx, o.ID, billing.OtherCharge{Description: "parking", Amount: money(75)}, now)
	require.NoError(t, err)
	assert.True(t, updated.Total.Equal(money(1075)))

	stored, _ := mem.GetObligation(ctx, o.ID)
	require.Len(t, stored.OtherCharges, 1)
	assert.Equal(t, "parking", stored.OtherCharges[0].Description)
}
