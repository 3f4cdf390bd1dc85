package billing_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/property-engine/billing"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func date(year int, month time.Month, day int) billing.TimePoint {
	return billing.NewDate(year, month, day)
}

func money(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func agreement(start, end billing.TimePoint, rent int64) billing.Agreement {
	return billing.Agreement{Start: start, End: end, Rent: money(rent)}
}

// =============================================================================
// AGREEMENT VALIDATION
// =============================================================================

func TestAgreement_Validate_EndBeforeStart_Rejected(t *testing.T) {
	// GIVEN: An agreement that ends before it starts
	// WHEN: Validating
	// THEN: ErrInvalidAgreement

	a := agreement(date(2024, time.March, 1), date(2024, time.January, 1), 1500)
	err := a.Validate()
	assert.ErrorIs(t, err, billing.ErrInvalidAgreement)
}

func TestAgreement_Validate_SingleDay_Accepted(t *testing.T) {
	a := agreement(date(2024, time.March, 1), date(2024, time.March, 1), 1500)
	assert.NoError(t, a.Validate())
}

func TestAgreement_IsActive(t *testing.T) {
	a := agreement(date(2024, time.January, 1), date(2024, time.March, 31), 1500)

	assert.False(t, a.IsActive(date(2023, time.December, 31)), "before start")
	assert.True(t, a.IsActive(date(2024, time.January, 1)), "start day inclusive")
	assert.True(t, a.IsActive(date(2024, time.February, 15)), "mid term")
	assert.True(t, a.IsActive(date(2024, time.March, 31)), "end day inclusive")
	assert.False(t, a.IsActive(date(2024, time.April, 1)), "after end")
}

// =============================================================================
// REMAINING MONTHS
// =============================================================================

func TestAgreement_RemainingMonths_MidTerm(t *testing.T) {
	// GIVEN: Agreement 2024-01-01 .. 2024-03-31, reference date 2024-02-15
	// WHEN: Resolving the remaining months
	// THEN: 2024-02 and 2024-03, in order

	a := agreement(date(2024, time.January, 1), date(2024, time.March, 31), 1500)
	months := a.RemainingMonths(date(2024, time.February, 15))

	require.Len(t, months, 2)
	assert.Equal(t, "2024-02", months[0].String())
	assert.Equal(t, "2024-03", months[1].String())
}

func TestAgreement_RemainingMonths_BeforeStart_FullTerm(t *testing.T) {
	// Reference before the agreement begins yields nothing: the agreement
	// is not yet active.
	a := agreement(date(2024, time.March, 1), date(2024, time.May, 31), 1500)
	months := a.RemainingMonths(date(2024, time.January, 10))
	assert.Empty(t, months)
}

func TestAgreement_RemainingMonths_AtStart_FullTerm(t *testing.T) {
	a := agreement(date(2024, time.March, 1), date(2024, time.May, 31), 1500)
	months := a.RemainingMonths(date(2024, time.March, 1))

	require.Len(t, months, 3)
	assert.Equal(t, "2024-03", months[0].String())
	assert.Equal(t, "2024-05", months[2].String())
}

func TestAgreement_RemainingMonths_Expired_Empty(t *testing.T) {
	a := agreement(date(2024, time.January, 1), date(2024, time.March, 31), 1500)
	assert.Empty(t, a.RemainingMonths(date(2024, time.June, 1)))
}

func TestAgreement_RemainingMonths_NoGapsNoDuplicates(t *testing.T) {
	// GIVEN: A multi-year agreement spanning a year boundary
	// THEN: Consecutive months with no gaps and no duplicates

	a := agreement(date(2024, time.October, 15), date(2025, time.February, 10), 2000)
	months := a.RemainingMonths(date(2024, time.October, 15))

	require.Len(t, months, 5) // Oct, Nov, Dec, Jan, Feb
	for i := 1; i < len(months); i++ {
		assert.Equal(t, months[i-1].Next(), months[i], "months must be consecutive")
	}
	assert.Equal(t, "2024-10", months[0].String())
	assert.Equal(t, "2025-02", months[4].String())
}

func TestAgreement_RemainingMonths_LastMonthPartial_Included(t *testing.T) {
	// An agreement ending mid-month still owes that month's rent.
	a := agreement(date(2024, time.January, 1), date(2024, time.March, 10), 1500)
	months := a.RemainingMonths(date(2024, time.January, 1))

	require.Len(t, months, 3)
	assert.Equal(t, "2024-03", months[2].String())
}

// =============================================================================
// MONTH ARITHMETIC
// =============================================================================

func TestMonth_Next_YearRollover(t *testing.T) {
	m := billing.MonthOf(date(2024, time.December, 25))
	next := m.Next()
	assert.Equal(t, "2025-01", next.String())
}

func TestMonth_ParseRoundTrip(t *testing.T) {
	m, err := billing.ParseMonth("2024-07")
	require.NoError(t, err)
	assert.Equal(t, "2024-07", m.String())

	_, err = billing.ParseMonth("2024/07")
	assert.Error(t, err)
}

func TestMonth_First(t *testing.T) {
	m := billing.MonthOf(date(2024, time.February, 20))
	assert.Equal(t, date(2024, time.February, 1), m.First())
}
