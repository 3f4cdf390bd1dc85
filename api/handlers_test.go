package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/property-engine/billing"
	memstore "github.com/warp/property-engine/billing/store"
	"github.com/warp/property-engine/property"
)

// =============================================================================
// TEST FIXTURE
// =============================================================================

// fixture spins up the full router over in-memory stores with a frozen
// clock, pre-seeded with one admin owning a plot, a room, and a tenant
// whose agreement runs all of 2024. A second admin with no holdings
// probes the authorization boundary.
type fixture struct {
	t      *testing.T
	server *httptest.Server
	mem    *memstore.Memory
	props  *property.Memory
}

const (
	fxAdmin    = "admin-1"
	fxOutsider = "admin-2"
	fxPlot     = "plot-1"
	fxRoom     = "room-1"
	fxTenant   = "t-1"
)

// frozen mid-agreement: 2024-06-15
var fxNow = time.Date(2024, time.June, 15, 10, 0, 0, 0, time.UTC)

// requestClock freezes the handler clock at a fixed instant.
func requestClock(t time.Time) func() billing.TimePoint {
	return func() billing.TimePoint { return billing.DateOf(t) }
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	props := property.NewMemory()
	mem := memstore.NewMemory()

	log := logrus.New()
	log.SetOutput(io.Discard)

	h := NewHandler(Stores{
		Properties:    props,
		Obligations:   mem,
		Readings:      mem,
		Payments:      mem,
		Finance:       mem,
		Notifications: mem,
	}, log)
	h.Now = requestClock(fxNow)

	ctx := context.Background()
	require.NoError(t, props.SaveAdmin(ctx, property.Admin{ID: fxAdmin, Name: "Priya", Email: "priya@example.com"}))
	require.NoError(t, props.SaveAdmin(ctx, property.Admin{ID: fxOutsider, Name: "Rohan", Email: "rohan@example.com"}))
	require.NoError(t, props.SavePlot(ctx, property.Plot{ID: fxPlot, OwnerID: fxAdmin, Name: "Sunrise", Address: "12 Hill Rd"}))
	require.NoError(t, props.SaveRoom(ctx, property.Room{
		ID: fxRoom, PlotID: fxPlot, Number: "101", Type: "1BHK",
		Rent: dec(1500), Deposit: dec(3000), Status: property.RoomOccupied,
	}))
	require.NoError(t, props.SaveTenant(ctx, property.Tenant{
		ID: fxTenant, Name: "Asha", Mobile: "555-0101",
		RoomID: fxRoom, PlotID: fxPlot,
		Agreement: billing.Agreement{
			Start: billing.NewDate(2024, time.January, 1),
			End:   billing.NewDate(2024, time.December, 31),
			Rent:  dec(1500),
		},
		MonthlyRent: dec(1500),
	}))

	server := httptest.NewServer(NewRouter(h))
	t.Cleanup(server.Close)

	return &fixture{t: t, server: server, mem: mem, props: props}
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

// do issues a request with the admin header and decodes the JSON body.
func (f *fixture) do(method, path, admin string, body any, out any) *http.Response {
	f.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(f.t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, f.server.URL+path, reader)
	require.NoError(f.t, err)
	if admin != "" {
		req.Header.Set("X-Admin-ID", admin)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := f.server.Client().Do(req)
	require.NoError(f.t, err)
	f.t.Cleanup(func() { resp.Body.Close() })

	if out != nil {
		require.NoError(f.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

// seedObligation inserts an obligation for the fixture tenant directly
// into the store, bypassing schedule generation.
func (f *fixture) seedObligation(id string, month string, baseRent int64) *billing.Obligation {
	f.t.Helper()
	m, err := billing.ParseMonth(month)
	require.NoError(f.t, err)

	o := &billing.Obligation{
		ID:       billing.ObligationID(id),
		TenantID: fxTenant,
		RoomID:   fxRoom,
		PlotID:   fxPlot,
		Month:    m,
		DueDate:  m.First(),
		BaseRent: dec(baseRent),
	}
	billing.Aggregator{}.Recompute(o, billing.DateOf(fxNow))
	require.NoError(f.t, f.mem.InsertObligation(context.Background(), o))
	return o
}

// =============================================================================
// AUTHENTICATION / AUTHORIZATION
// =============================================================================

func TestAPI_MissingAdminHeader(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{"/api/plots", "/api/obligations", "/api/dashboard", "/api/payments"} {
		resp := f.do(http.MethodGet, path, "", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
	}
}

func TestAPI_CrossAdminAccessDenied(t *testing.T) {
	// GIVEN: admin-2 owns nothing in the fixture
	// THEN: admin-1's tenant and obligations are invisible to them

	f := newFixture(t)
	f.seedObligation("ob-1", "2024-06", 1500)

	resp := f.do(http.MethodGet, "/api/tenants/"+fxTenant, fxOutsider, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = f.do(http.MethodGet, "/api/obligations/ob-1", fxOutsider, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Scoped list comes back empty rather than denied
	var obs []ObligationDTO
	resp = f.do(http.MethodGet, "/api/obligations", fxOutsider, nil, &obs)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, obs)
}

func TestAPI_ScopedTenantFilterRejected(t *testing.T) {
	f := newFixture(t)

	resp := f.do(http.MethodGet, "/api/obligations?tenant_id="+fxTenant, fxOutsider, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// =============================================================================
// PROPERTY ENDPOINTS
// =============================================================================

func TestAPI_CreateAdmin(t *testing.T) {
	f := newFixture(t)

	var created AdminDTO
	resp := f.do(http.MethodPost, "/api/admins", "", CreateAdminRequest{
		Name: "Nina", Email: "nina@example.com",
	}, &created)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Nina", created.Name)

	// Bad email fails validation
	resp = f.do(http.MethodPost, "/api/admins", "", CreateAdminRequest{
		Name: "Nina", Email: "not-an-email",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_PlotRoomTenantFlow(t *testing.T) {
	f := newFixture(t)

	var plot PlotDTO
	resp := f.do(http.MethodPost, "/api/plots", fxAdmin, CreatePlotRequest{Name: "Hillview"}, &plot)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var room RoomDTO
	resp = f.do(http.MethodPost, "/api/rooms", fxAdmin, CreateRoomRequest{
		PlotID: plot.ID, Number: "201", Type: "2BHK", Rent: "2200",
	}, &room)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, string(property.RoomAvailable), room.Status)

	var tenant TenantDTO
	resp = f.do(http.MethodPost, "/api/tenants", fxAdmin, CreateTenantRequest{
		Name: "Vikram", RoomID: room.ID,
		AgreementStart: "2024-07-01", AgreementEnd: "2025-06-30",
		MonthlyRent: "2200",
	}, &tenant)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, room.ID, tenant.RoomID)

	// The room flipped to occupied
	var rooms []RoomDTO
	f.do(http.MethodGet, "/api/rooms?plot_id="+plot.ID, fxAdmin, nil, &rooms)
	require.Len(t, rooms, 1)
	assert.Equal(t, string(property.RoomOccupied), rooms[0].Status)
}

func TestAPI_CreateRoomOnForeignPlot(t *testing.T) {
	f := newFixture(t)

	resp := f.do(http.MethodPost, "/api/rooms", fxOutsider, CreateRoomRequest{
		PlotID: fxPlot, Number: "999", Rent: "1000",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPI_CreateTenantInvalidAgreement(t *testing.T) {
	// End before start fails the period check, not just validation
	f := newFixture(t)

	resp := f.do(http.MethodPost, "/api/tenants", fxAdmin, CreateTenantRequest{
		Name: "Vikram", RoomID: fxRoom,
		AgreementStart: "2024-12-01", AgreementEnd: "2024-01-01",
		MonthlyRent: "1500",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// SCHEDULE GENERATION
// =============================================================================

func TestAPI_GenerateTenantSchedule(t *testing.T) {
	// GIVEN: Agreement through 2024-12, clock frozen at 2024-06-15
	// WHEN: POST /api/tenants/{id}/schedule twice
	// THEN: Seven obligations (Jun..Dec) on the first run, zero on the second

	f := newFixture(t)

	var result ScheduleResultDTO
	resp := f.do(http.MethodPost, "/api/tenants/"+fxTenant+"/schedule", fxAdmin, nil, &result)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 7, result.Created)

	var again ScheduleResultDTO
	resp = f.do(http.MethodPost, "/api/tenants/"+fxTenant+"/schedule", fxAdmin, nil, &again)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0, again.Created)

	var obs []ObligationDTO
	f.do(http.MethodGet, "/api/obligations", fxAdmin, nil, &obs)
	require.Len(t, obs, 7)
	assert.Equal(t, "2024-12", obs[0].Month, "due date descending")
	assert.Equal(t, "1500", obs[0].BaseRent)
	assert.Equal(t, string(billing.StatusPending), obs[0].Status)
}

func TestAPI_GenerateAllSchedules(t *testing.T) {
	f := newFixture(t)

	var result ScheduleResultDTO
	resp := f.do(http.MethodPost, "/api/admin/schedule", fxAdmin, nil, &result)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 7, result.Created)

	// An admin with no tenants generates nothing
	var empty ScheduleResultDTO
	resp = f.do(http.MethodPost, "/api/admin/schedule", fxOutsider, nil, &empty)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0, empty.Created)
}

// =============================================================================
// PAYMENTS
// =============================================================================

func TestAPI_ApplyPayment(t *testing.T) {
	f := newFixture(t)
	f.seedObligation("ob-1", "2024-06", 1500)

	var updated ObligationDTO
	resp := f.do(http.MethodPost, "/api/obligations/ob-1/payments", fxAdmin, ApplyPaymentRequest{
		Amount: "600", Method: "cash",
	}, &updated)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "600", updated.Paid)
	assert.Equal(t, "900", updated.Pending)
	assert.Equal(t, string(billing.StatusPartial), updated.Status)

	resp = f.do(http.MethodPost, "/api/obligations/ob-1/payments", fxAdmin, ApplyPaymentRequest{
		Amount: "900", Method: "online",
	}, &updated)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, string(billing.StatusPaid), updated.Status)
	assert.Equal(t, "0", updated.Pending)

	// The audit trail is visible through the payments endpoint
	var payments []PaymentDTO
	f.do(http.MethodGet, "/api/payments", fxAdmin, nil, &payments)
	assert.Len(t, payments, 2)
}

func TestAPI_ApplyPaymentValidation(t *testing.T) {
	f := newFixture(t)
	f.seedObligation("ob-1", "2024-06", 1500)

	// Unknown method fails the oneof validation
	resp := f.do(http.MethodPost, "/api/obligations/ob-1/payments", fxAdmin, ApplyPaymentRequest{
		Amount: "600", Method: "barter",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Zero amount is rejected by the ledger
	resp = f.do(http.MethodPost, "/api/obligations/ob-1/payments", fxAdmin, ApplyPaymentRequest{
		Amount: "0", Method: "cash",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Unknown obligation
	resp = f.do(http.MethodPost, "/api/obligations/ghost/payments", fxAdmin, ApplyPaymentRequest{
		Amount: "600", Method: "cash",
	}, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// ELECTRICITY READINGS
// =============================================================================

func TestAPI_ReadingLifecycle(t *testing.T) {
	// Record two readings, merge the second into an obligation, and
	// verify a re-merge conflicts.

	f := newFixture(t)
	f.seedObligation("ob-1", "2024-06", 1500)

	var first ReadingDTO
	resp := f.do(http.MethodPost, "/api/rooms/"+fxRoom+"/readings", fxAdmin, CreateReadingRequest{
		CurrentReading: "1100",
	}, &first)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "0", first.Previous, "first reading baselines at zero")

	var second ReadingDTO
	resp = f.do(http.MethodPost, "/api/rooms/"+fxRoom+"/readings", fxAdmin, CreateReadingRequest{
		CurrentReading: "1125", RatePerUnit: "8",
	}, &second)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "1100", second.Previous, "previous chains from the latest reading")
	assert.Equal(t, "200", second.Total, "25 units at rate 8")

	var merged ObligationDTO
	resp = f.do(http.MethodPost, "/api/obligations/ob-1/electricity", fxAdmin, MergeReadingRequest{
		ReadingID: second.ID,
	}, &merged)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "200", merged.Electricity)
	assert.Equal(t, "1700", merged.Total)

	// Merging the same reading again conflicts
	resp = f.do(http.MethodPost, "/api/obligations/ob-1/electricity", fxAdmin, MergeReadingRequest{
		ReadingID: second.ID,
	}, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPI_ReadingBelowPrevious(t *testing.T) {
	f := newFixture(t)

	resp := f.do(http.MethodPost, "/api/rooms/"+fxRoom+"/readings", fxAdmin, CreateReadingRequest{
		CurrentReading: "1100",
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = f.do(http.MethodPost, "/api/rooms/"+fxRoom+"/readings", fxAdmin, CreateReadingRequest{
		CurrentReading: "900",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// CHARGES
// =============================================================================

func TestAPI_AddCharge(t *testing.T) {
	f := newFixture(t)
	f.seedObligation("ob-1", "2024-06", 1500)

	var updated ObligationDTO
	resp := f.do(http.MethodPost, "/api/obligations/ob-1/charges", fxAdmin, AddChargeRequest{
		Description: "parking", Amount: "75",
	}, &updated)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "1575", updated.Total)
	require.Len(t, updated.OtherCharges, 1)
	assert.Equal(t, "parking", updated.OtherCharges[0].Description)
}

// =============================================================================
// FINANCE LEDGER
// =============================================================================

func TestAPI_FinanceFlow(t *testing.T) {
	f := newFixture(t)

	resp := f.do(http.MethodPost, "/api/finances", fxAdmin, CreateFinanceRequest{
		Type: "expense", Amount: "300", Category: "maintenance",
		Description: "Plumbing", PlotID: fxPlot,
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Rent payments show up as income automatically
	f.seedObligation("ob-1", "2024-06", 1500)
	f.do(http.MethodPost, "/api/obligations/ob-1/payments", fxAdmin, ApplyPaymentRequest{
		Amount: "1500", Method: "cash",
	}, nil)

	var all []FinanceEntryDTO
	f.do(http.MethodGet, "/api/finances", fxAdmin, nil, &all)
	assert.Len(t, all, 2)

	var expenses []FinanceEntryDTO
	f.do(http.MethodGet, "/api/finances?type=expense", fxAdmin, nil, &expenses)
	require.Len(t, expenses, 1)
	assert.Equal(t, "Plumbing", expenses[0].Description)

	var rent []FinanceEntryDTO
	f.do(http.MethodGet, "/api/finances?category=rent", fxAdmin, nil, &rent)
	require.Len(t, rent, 1)
	assert.Equal(t, "income", rent[0].Type)
}

func TestAPI_FinanceValidation(t *testing.T) {
	f := newFixture(t)

	// Unknown type fails oneof
	resp := f.do(http.MethodPost, "/api/finances", fxAdmin, CreateFinanceRequest{
		Type: "loan", Amount: "300", Category: "misc", PlotID: fxPlot,
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Negative amount rejected
	resp = f.do(http.MethodPost, "/api/finances", fxAdmin, CreateFinanceRequest{
		Type: "expense", Amount: "-300", Category: "misc", PlotID: fxPlot,
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Foreign plot denied
	resp = f.do(http.MethodPost, "/api/finances", fxOutsider, CreateFinanceRequest{
		Type: "expense", Amount: "300", Category: "misc", PlotID: fxPlot,
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// =============================================================================
// DASHBOARD
// =============================================================================

func TestAPI_Dashboard(t *testing.T) {
	// GIVEN: One overdue month, the current month part-paid, future months
	// WHEN: GET /api/dashboard at 2024-06-15
	// THEN: Buckets, overview, and finances line up

	f := newFixture(t)
	f.seedObligation("ob-may", "2024-05", 1500)
	f.seedObligation("ob-jun", "2024-06", 1500)
	f.seedObligation("ob-jul", "2024-07", 1500)

	f.do(http.MethodPost, "/api/obligations/ob-jun/payments", fxAdmin, ApplyPaymentRequest{
		Amount: "500", Method: "cash",
	}, nil)

	var dash DashboardDTO
	resp := f.do(http.MethodGet, "/api/dashboard", fxAdmin, nil, &dash)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, 1, dash.Overview.TotalPlots)
	assert.Equal(t, 1, dash.Overview.TotalRooms)
	assert.Equal(t, 1, dash.Overview.OccupiedRooms)
	assert.Equal(t, 1, dash.Overview.TotalTenants)

	require.Len(t, dash.Overdue, 2, "May obligation and part-paid June are both past due")
	assert.Empty(t, dash.DueToday)
	assert.Empty(t, dash.Upcoming, "July is beyond the 7-day window")

	// Finances cover the current month only
	assert.Equal(t, "1500", dash.Finances.TotalRentDue)
	assert.Equal(t, "500", dash.Finances.TotalRentCollected)
	assert.Equal(t, "1000", dash.Finances.PendingRent)
	assert.Equal(t, "2500", dash.Finances.TotalOverdue, "May's 1500 plus June's 1000")

	require.Len(t, dash.RecentPayments, 1)
	assert.Equal(t, "500", dash.RecentPayments[0].Amount)
	require.NotEmpty(t, dash.Notifications, "the payment notified the owner")
}

func TestAPI_DashboardEmptyPortfolio(t *testing.T) {
	f := newFixture(t)

	var dash DashboardDTO
	resp := f.do(http.MethodGet, "/api/dashboard", fxOutsider, nil, &dash)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0, dash.Overview.TotalPlots)
	assert.Empty(t, dash.Overdue)
	assert.Empty(t, dash.RecentPayments)
}

// =============================================================================
// NOTIFICATIONS
// =============================================================================

func TestAPI_NotificationFlow(t *testing.T) {
	f := newFixture(t)

	// Schedule generation notifies the owner
	f.do(http.MethodPost, "/api/tenants/"+fxTenant+"/schedule", fxAdmin, nil, nil)

	var list []NotificationDTO
	resp := f.do(http.MethodGet, "/api/notifications", fxAdmin, nil, &list)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, list, 1)
	assert.Equal(t, billing.NotifyRentGenerated, list[0].Type)
	assert.False(t, list[0].Read)

	resp = f.do(http.MethodPut, "/api/notifications/"+list[0].ID+"/read", fxAdmin, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var unread []NotificationDTO
	f.do(http.MethodGet, "/api/notifications?read=false", fxAdmin, nil, &unread)
	assert.Empty(t, unread)

	// Another admin cannot mark it read
	resp = f.do(http.MethodPut, "/api/notifications/"+list[0].ID+"/read", fxOutsider, nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Nor see it
	var other []NotificationDTO
	f.do(http.MethodGet, "/api/notifications", fxOutsider, nil, &other)
	assert.Empty(t, other)
}
