/*
handlers.go - HTTP API handlers for the property billing engine

PURPOSE:
  Exposes the billing engine via REST API. Handles HTTP request/response,
  JSON serialization, validation, and delegates to domain logic.

ENDPOINTS:
  Property:
    POST   /api/admins                   Register admin
    GET    /api/plots                    List admin's plots
    POST   /api/plots                    Create plot
    GET    /api/rooms                    List rooms across admin's plots
    POST   /api/rooms                    Create room
    GET    /api/tenants                  List tenants across admin's plots
    POST   /api/tenants                  Create tenant (assigns room)
    GET    /api/tenants/{id}             Get tenant

  Billing:
    POST   /api/tenants/{id}/schedule    Generate rent schedule for tenant
    POST   /api/admin/schedule           Generate schedules for all tenancies
    GET    /api/obligations              List obligations (filterable)
    GET    /api/obligations/{id}         Get obligation
    POST   /api/obligations/{id}/payments    Record payment
    POST   /api/obligations/{id}/electricity Merge electricity reading
    POST   /api/obligations/{id}/charges     Add itemized charge

  Readings:
    POST   /api/rooms/{id}/readings      Record meter reading
    GET    /api/rooms/{id}/readings      List room's readings

  Ledgers:
    GET    /api/payments                 Payment history
    GET    /api/finances                 Finance ledger
    POST   /api/finances                 Record income/expense

  Dashboard:
    GET    /api/dashboard                Owner dashboard document

  Notifications:
    GET    /api/notifications            List notifications
    PUT    /api/notifications/{id}/read  Mark read

AUTHORIZATION:
  Every endpoint except admin registration requires an X-Admin-ID header.
  Reads are scoped to the admin's plots; writes walk the ownership chain
  (tenant -> room -> plot -> owner) and fail with 401 on mismatch.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 401: Missing or unauthorized admin
  - 404: Resource not found
  - 409: Conflict (duplicate month, concurrent update, double merge)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/warp/property-engine/billing"
	"github.com/warp/property-engine/property"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Stores bundles the persistence interfaces the handlers need. The
// SQLite store satisfies all of them; tests mix in memory stores.
type Stores struct {
	Properties    property.Store
	Obligations   billing.ObligationStore
	Readings      billing.ReadingStore
	Payments      billing.PaymentStore
	Finance       billing.FinanceStore
	Notifications billing.NotificationStore
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Stores Stores

	Schedule *billing.ScheduleGenerator
	Ledger   *billing.PaymentLedger
	Charges  *billing.ChargeService

	Auth     *property.Authorizer
	Validate *validator.Validate
	Log      logrus.FieldLogger

	// Now is the clock boundary; tests override it.
	Now func() billing.TimePoint
}

// NewHandler wires the billing services on top of the given stores.
func NewHandler(stores Stores, log logrus.FieldLogger) *Handler {
	agg := billing.Aggregator{}
	return &Handler{
		Stores: stores,
		Schedule: &billing.ScheduleGenerator{
			Obligations:   stores.Obligations,
			Notifications: stores.Notifications,
			Log:           log,
		},
		Ledger: &billing.PaymentLedger{
			Obligations:   stores.Obligations,
			Payments:      stores.Payments,
			Finance:       stores.Finance,
			Notifications: stores.Notifications,
			Aggregator:    agg,
			Log:           log,
		},
		Charges: &billing.ChargeService{
			Obligations:   stores.Obligations,
			Readings:      stores.Readings,
			Notifications: stores.Notifications,
			Aggregator:    agg,
		},
		Auth:     property.NewAuthorizer(stores.Properties),
		Validate: validator.New(),
		Log:      log,
		Now:      billing.Today,
	}
}

// adminFrom extracts the caller's admin id from the X-Admin-ID header.
func adminFrom(r *http.Request) (billing.AdminID, bool) {
	id := r.Header.Get("X-Admin-ID")
	return billing.AdminID(id), id != ""
}

// decodeAndValidate parses the JSON body into dst and runs validation.
func (h *Handler) decodeAndValidate(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return err
	}
	return h.Validate.Struct(dst)
}

// =============================================================================
// PROPERTY ENDPOINTS
// =============================================================================

// CreateAdmin registers an owner account.
// POST /api/admins
func (h *Handler) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	var req CreateAdminRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	admin := property.Admin{
		ID:    billing.AdminID(uuid.NewString()),
		Name:  req.Name,
		Email: req.Email,
	}
	if err := h.Stores.Properties.SaveAdmin(r.Context(), admin); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create admin", err)
		return
	}
	writeJSON(w, http.StatusCreated, AdminDTO{ID: string(admin.ID), Name: admin.Name, Email: admin.Email})
}

// ListPlots returns the caller's plots.
// GET /api/plots
func (h *Handler) ListPlots(w http.ResponseWriter, r *http.Request) {
	admin, ok := adminFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing X-Admin-ID header", nil)
		return
	}

	plots, err := h.Stores.Properties.ListPlots(r.Context(), admin)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list plots", err)
		return
	}

	dtos := make([]PlotDTO, 0, len(plots))
	for _, p := range plots {
		dtos = append(dtos, toPlotDTO(p))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreatePlot creates a plot owned by the caller.
// POST /api/plots
func (h *Handler) CreatePlot(w http.ResponseWriter, r *http.Request) {
	admin, ok := adminFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing X-Admin-ID header", nil)
		return
	}

	var req CreatePlotRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	plot := property.Plot{
		ID:      billing.PlotID(uuid.NewString()),
		OwnerID: admin,
		Name:    req.Name,
		Address: req.Address,
	}
	if err := h.Stores.Properties.SavePlot(r.Context(), plot); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create plot", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPlotDTO(plot))
}

// ListRooms returns rooms across the caller's plots, optionally narrowed
// to one plot via ?plot_id=.
// GET /api/rooms
func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	admin, ok := adminFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing X-Admin-ID header", nil)
		return
	}

	plotIDs, err := h.plotFilter(r, admin)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	rooms, err := h.Stores.Properties.ListRooms(r.Context(), plotIDs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list rooms", err)
		return
	}

	dtos := make([]RoomDTO, 0, len(rooms))
	for _, room := range rooms {
		dtos = append(dtos, toRoomDTO(room))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateRoom adds a room to one of the caller's plots.
// POST /api/rooms
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	admin, ok := adminFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing X-Admin-ID header", nil)
		return
	}

	var req CreateRoomRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if _, err := h.Auth.Plot(r.Context(), admin, billing.PlotID(req.PlotID)); err != nil {
		writeAuthError(w, err)
		return
	}

	rent, err := parseAmount(req.Rent)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid rent amount", err)
		return
	}
	deposit, err := parseOptionalAmount(req.Deposit, decimal.Zero)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid deposit amount", err)
		return
	}

	room := property.Room{
		ID:      billing.RoomID(uuid.NewString()),
		PlotID:  billing.PlotID(req.PlotID),
		Number:  req.Number,
		Type:    req.Type,
		Rent:    rent,
		Deposit: deposit,
		Status:  property.RoomAvailable,
	}
	if err := h.Stores.Properties.SaveRoom(r.Context(), room); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create room", err)
		return
	}
	writeJSON(w, http.StatusCreated, toRoomDTO(room))
}

// ListTenants returns tenants across the caller's plots.
// GET /api/tenants
func (h *Handler) ListTenants(w http.ResponseWriter, r *http.Request) {
	admin, ok := adminFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing X-Admin-ID header", nil)
		return
	}

	plotIDs, err := h.plotFilter(r, admin)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	tenants, err := h.Stores.Properties.ListTenants(r.Context(), plotIDs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list tenants", err)
		return
	}

	dtos := make([]TenantDTO, 0, len(tenants))
	for _, t := range tenants {
		dtos = append(dtos, toTenantDTO(t))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateTenant registers a tenant into a room the caller owns. The room
// flips to occupied.
// POST /api/tenants
func (h *Handler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	admin, ok := adminFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing X-Admin-ID header", nil)
		return
	}

	var req CreateTenantRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	room, err := h.Auth.Room(r.Context(), admin, billing.RoomID(req.RoomID))
	if err != nil {
		writeAuthError(w, err)
		return
	}

	start, _ := billing.ParseDate(req.AgreementStart)
	end, _ := billing.ParseDate(req.AgreementEnd)
	rent, err := parseAmount(req.MonthlyRent)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid monthly_rent amount", err)
		return
	}
	deposit, err := parseOptionalAmount(req.Deposit, decimal.Zero)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid deposit amount", err)
		return
	}

	agreement := billing.Agreement{Start: start, End: end, Rent: rent, Deposit: deposit}
	if err := agreement.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid agreement period", err)
		return
	}

	tenant := property.Tenant{
		ID:          billing.TenantID(uuid.NewString()),
		Name:        req.Name,
		Mobile:      req.Mobile,
		Email:       req.Email,
		RoomID:      room.ID,
		PlotID:      room.PlotID,
		Agreement:   agreement,
		MonthlyRent: rent,
		DocumentURL: req.DocumentURL,
	}
	if err := h.Stores.Properties.SaveTenant(r.Context(), tenant); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create tenant", err)
		return
	}

	room.Status = property.RoomOccupied
	if err := h.Stores.Properties.SaveRoom(r.Context(), *room); err != nil {
		h.Log.WithError(err).Warn("failed to mark room occupied")
	}

	writeJSON(w, http.StatusCreated, toTenantDTO(tenant))
}

// GetTenant returns one tenant the caller owns.
// GET /api/tenants/{id}
func (h *Handler) GetTenant(w http.ResponseWriter, r *http.Request) {
	admin, ok := adminFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing X-Admin-ID header", nil)
		return
	}

	tenant, err := h.Auth.Tenant(r.Context(), admin, billing.TenantID(chi.URLParam(r, "id")))
	if err != nil {
		writeAuthError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTenantDTO(*tenant))
}

// plotFilter resolves the plot scope for list queries: ?plot_id= narrows
// to one owned plot, otherwise all of the admin's plots.
func (h *Handler) plotFilter(r *http.Request, admin billing.AdminID) ([]billing.PlotID, error) {
	if plotID := r.URL.Query().Get("plot_id"); plotID != "" {
		plot, err := h.Auth.Plot(r.Context(), admin, billing.PlotID(plotID))
		if err != nil {
			return nil, err
		}
		return []billing.PlotID{plot.ID}, nil
	}
	scope, err := h.Auth.Scope(r.Context(), admin)
	if err != nil {
		return nil, err
	}
	return scope.PlotIDs, nil
}

// =============================================================================
// SCHEDULE ENDPOINTS
// =============================================================================

// GenerateTenantSchedule creates the remaining monthly obligations for
// one tenant's agreement. Idempotent: existing months are skipped.
// POST /api/tenants/{id}/schedule
func (h *Handler) GenerateTenantSchedule(w http.ResponseWriter, r *http.Request) {
	admin, ok := adminFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing X-Admin-ID header", nil)
		return
	}

	tenant, err := h.Auth.Tenant(r.Context(), admin, billing.TenantID(chi.URLParam(r, "id")))
	if err != nil {
		writeAuthError(w, err)
		return
	}

	result, err := h.Schedule.Generate(r.Context(), tenant.Tenancy(admin), h.Now())
	if err != nil {
		writeDomainError(w, "Failed to generate schedule", err)
		return
	}
	writeJSON(w, http.StatusOK, ScheduleResultDTO(result))
}

// GenerateAllSchedules runs schedule generation for every tenancy under
// the caller's plots. Per-tenancy failures are counted, not fatal.
// POST /api/admin/schedule
func (h *Handler) GenerateAllSchedules(w http.ResponseWriter, r *http.Request) {
	admin, ok := adminFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing X-Admin-ID header", nil)
		return
	}

	scope, err := h.Auth.Scope(r.Context(), admin)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	tenants, err := h.Stores.Properties.ListTenants(r.Context(), scope.PlotIDs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list tenants", err)
		return
	}

	tenancies := make([]billing.Tenancy, 0, len(tenants))
	for _, t := range tenants {
		tenancies = append(tenancies, t.Tenancy(admin))
	}

	result := h.Schedule.GenerateAll(r.Context(), tenancies, h.Now())
	writeJSON(w, http.StatusOK, ScheduleResultDTO(result))
}

// =============================================================================
// OBLIGATION ENDPOINTS
// =============================================================================

// ListObligations returns the caller's obligations, filterable by
// ?status=, ?tenant_id=, ?room_id=. Ordered by due date descending.
// GET /api/obligations
func (h *Handler) ListObligations(w http.ResponseWriter, r *http.Request) {
	admin, ok := adminFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing X-Admin-ID header", nil)
		return
	}

	scope, err := h.Auth.Scope(r.Context(), admin)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	filter := billing.ObligationFilter{PlotIDs: scope.PlotIDs}
	q := r.URL.Query()
	if status := q.Get("status"); status != "" {
		filter.Statuses = []billing.ObligationStatus{billing.ObligationStatus(status)}
	}
	if tenantID := q.Get("tenant_id"); tenantID != "" {
		if !scope.HasTenant(billing.TenantID(tenantID)) {
			writeError(w, http.StatusUnauthorized, "Not authorized for tenant", nil)
			return
		}
		filter.TenantIDs = []billing.TenantID{billing.TenantID(tenantID)}
	}
	if len(filter.PlotIDs) == 0 {
		writeJSON(w, http.StatusOK, []ObligationDTO{})
		return
	}
	if roomID := q.Get("room_id"); roomID != "" {
		filter.RoomIDs = []billing.RoomID{billing.RoomID(roomID)}
	}
	if from := q.Get("from"); from != "" {
		if tp, err := billing.ParseDate(from); err == nil {
			filter.DueFrom = &tp
		}
	}
	if to := q.Get("to"); to != "" {
		if tp, err := billing.ParseDate(to); err == nil {
			filter.DueTo = &tp
		}
	}

	obs, err := h.Stores.Obligations.ListObligations(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list obligations", err)
		return
	}
	writeJSON(w, http.StatusOK, toObligationDTOs(obs))
}

// GetObligation returns one obligation the caller owns.
// GET /api/obligations/{id}
func (h *Handler) GetObligation(w http.ResponseWriter, r *http.Request) {
	admin, ok := adminFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing X-Admin-ID header", nil)
		return
	}

	o, err := h.ownedObligation(r, admin)
	if err != nil {
		writeDomainError(w, "Failed to get obligation", err)
		return
	}
	writeJSON(w, http.StatusOK, toObligationDTO(o))
}

// ApplyPayment records a payment against an obligation.
// POST /api/obligations/{id}/payments
func (h *Handler) ApplyPayment(w http.ResponseWriter, r *http.Request) {
	admin, ok := adminFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing X-Admin-ID header", nil)
		return
	}

	o, err := h.ownedObligation(r, admin)
	if err != nil {
		writeDomainError(w, "Failed to get obligation", err)
		return
	}

	var req ApplyPaymentRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid payment amount", err)
		return
	}

	var payDate billing.TimePoint
	if req.Date != "" {
		payDate, _ = billing.ParseDate(req.Date)
	}

	tenant, err := h.Stores.Properties.GetTenant(r.Context(), o.TenantID)
	if err != nil {
		writeDomainError(w, "Failed to resolve tenant", err)
		return
	}

	updated, err := h.Ledger.Apply(r.Context(), billing.PaymentRequest{
		ObligationID: o.ID,
		Amount:       amount,
		Method:       billing.PaymentMethod(req.Method),
		Date:         payDate,
		TenantName:   tenant.Name,
		OwnerID:      admin,
	}, h.Now())
	if err != nil {
		writeDomainError(w, "Failed to record payment", err)
		return
	}
	writeJSON(w, http.StatusOK, toObligationDTO(updated))
}

// MergeElectricity merges a recorded meter reading into an obligation.
// POST /api/obligations/{id}/electricity
func (h *Handler) MergeElectricity(w http.ResponseWriter, r *http.Request) {
	admin, ok := adminFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing X-Admin-ID header", nil)
		return
	}

	o, err := h.ownedObligation(r, admin)
	if err != nil {
		writeDomainError(w, "Failed to get obligation", err)
		return
	}

	var req MergeReadingRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	updated, err := h.Charges.MergeReading(r.Context(), o.ID, billing.ReadingID(req.ReadingID), h.Now())
	if err != nil {
		writeDomainError(w, "Failed to merge reading", err)
		return
	}
	writeJSON(w, http.StatusOK, toObligationDTO(updated))
}

// AddCharge appends an itemized extra (parking, maintenance) to an
// obligation and recomputes its totals.
// POST /api/obligations/{id}/charges
func (h *Handler) AddCharge(w http.ResponseWriter, r *http.Request) {
	admin, ok := adminFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing X-Admin-ID header", nil)
		return
	}

	o, err := h.ownedObligation(r, admin)
	if err != nil {
		writeDomainError(w, "Failed to get obligation", err)
		return
	}

	var req AddChargeRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid charge amount", err)
		return
	}

	updated, err := h.Charges.AddCharge(r.Context(), o.ID,
		billing.OtherCharge{Description: req.Description, Amount: amount}, h.Now())
	if err != nil {
		writeDomainError(w, "Failed to add charge", err)
		return
	}
	writeJSON(w, http.StatusOK, toObligationDTO(updated))
}

// ownedObligation loads the obligation from the URL and verifies the
// caller owns the tenant it belongs to.
func (h *Handler) ownedObligation(r *http.Request, admin billing.AdminID) (*billing.Obligation, error) {
	o, err := h.Stores.Obligations.GetObligation(r.Context(), billing.ObligationID(chi.URLParam(r, "id")))
	if err != nil {
		return nil, err
	}
	if _, err := h.Auth.Tenant(r.Context(), admin, o.TenantID); err != nil {
		return nil, err
	}
	return o, nil
}

// =============================================================================
// READING ENDPOINTS
// =============================================================================

// CreateReading records a meter reading for a room. The previous reading
// is the room's latest recorded value, or zero for the first reading.
// POST /api/rooms/{id}/readings
func (h *Handler) CreateReading(w http.ResponseWriter, r *http.Request) {
	admin, ok := adminFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing X-Admin-ID header", nil)
		return
	}

	room, err := h.Auth.Room(r.Context(), admin, billing.RoomID(chi.URLParam(r, "id")))
	if err != nil {
		writeAuthError(w, err)
		return
	}

	var req CreateReadingRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	current, err := parseAmount(req.CurrentReading)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid current_reading", err)
		return
	}
	rate, err := parseOptionalAmount(req.RatePerUnit, billing.DefaultRatePerUnit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid rate_per_unit", err)
		return
	}

	previous := decimal.Zero
	if last, err := h.Stores.Readings.LatestReading(r.Context(), room.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to resolve previous reading", err)
		return
	} else if last != nil {
		previous = last.Current
	}
	if current.LessThan(previous) {
		writeError(w, http.StatusBadRequest, "current_reading below previous reading", nil)
		return
	}

	readingDate := h.Now()
	if req.ReadingDate != "" {
		readingDate, _ = billing.ParseDate(req.ReadingDate)
	}

	reading := billing.Reading{
		ID:          billing.ReadingID(uuid.NewString()),
		RoomID:      room.ID,
		PlotID:      room.PlotID,
		Current:     current,
		Previous:    previous,
		RatePerUnit: rate,
		ReadingDate: readingDate,
	}
	if tenant, err := h.Stores.Properties.GetTenantByRoom(r.Context(), room.ID); err == nil {
		reading.TenantID = tenant.ID
	}
	reading.Price()

	if err := h.Stores.Readings.InsertReading(r.Context(), &reading); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to record reading", err)
		return
	}
	writeJSON(w, http.StatusCreated, toReadingDTO(&reading))
}

// ListReadings returns a room's readings, newest first.
// GET /api/rooms/{id}/readings
func (h *Handler) ListReadings(w http.ResponseWriter, r *http.Request) {
	admin, ok := adminFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing X-Admin-ID header", nil)
		return
	}

	room, err := h.Auth.Room(r.Context(), admin, billing.RoomID(chi.URLParam(r, "id")))
	if err != nil {
		writeAuthError(w, err)
		return
	}

	readings, err := h.Stores.Readings.ListReadings(r.Context(), room.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list readings", err)
		return
	}

	dtos := make([]ReadingDTO, 0, len(readings))
	for _, reading := range readings {
		dtos = append(dtos, toReadingDTO(reading))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// PAYMENT / FINANCE ENDPOINTS
// =============================================================================

// ListPayments returns payment history across the caller's tenants,
// optionally narrowed by ?tenant_id= and ?limit=.
// GET /api/payments
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	admin, ok := adminFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing X-Admin-ID header", nil)
		return
	}

	scope, err := h.Auth.Scope(r.Context(), admin)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	filter := billing.PaymentFilter{TenantIDs: scope.TenantIDs}
	q := r.URL.Query()
	if tenantID := q.Get("tenant_id"); tenantID != "" {
		if !scope.HasTenant(billing.TenantID(tenantID)) {
			writeError(w, http.StatusUnauthorized, "Not authorized for tenant", nil)
			return
		}
		filter.TenantIDs = []billing.TenantID{billing.TenantID(tenantID)}
	}
	if status := q.Get("status"); status != "" {
		filter.Statuses = []billing.PaymentStatus{billing.PaymentStatus(status)}
	}
	if limit := q.Get("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil && n > 0 {
			filter.Limit = n
		}
	}

	if len(filter.TenantIDs) == 0 {
		writeJSON(w, http.StatusOK, []PaymentDTO{})
		return
	}

	payments, err := h.Stores.Payments.ListPayments(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list payments", err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentDTOs(payments))
}

// ListFinance returns the income/expense ledger across the caller's
// plots, filterable by ?type= and ?category=.
// GET /api/finances
func (h *Handler) ListFinance(w http.ResponseWriter, r *http.Request) {
	admin, ok := adminFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing X-Admin-ID header", nil)
		return
	}

	scope, err := h.Auth.Scope(r.Context(), admin)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	filter := billing.FinanceFilter{PlotIDs: scope.PlotIDs}
	q := r.URL.Query()
	if t := q.Get("type"); t != "" {
		filter.Types = []billing.FinanceType{billing.FinanceType(t)}
	}
	filter.Category = q.Get("category")

	if len(filter.PlotIDs) == 0 {
		writeJSON(w, http.StatusOK, []FinanceEntryDTO{})
		return
	}

	entries, err := h.Stores.Finance.ListFinance(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list finance entries", err)
		return
	}

	dtos := make([]FinanceEntryDTO, 0, len(entries))
	for _, e := range entries {
		dtos = append(dtos, toFinanceDTO(e))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateFinance records a manual income or expense entry (maintenance,
// tax). Rent income is recorded automatically by payments.
// POST /api/finances
func (h *Handler) CreateFinance(w http.ResponseWriter, r *http.Request) {
	admin, ok := adminFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing X-Admin-ID header", nil)
		return
	}

	var req CreateFinanceRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if _, err := h.Auth.Plot(r.Context(), admin, billing.PlotID(req.PlotID)); err != nil {
		writeAuthError(w, err)
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil || !amount.IsPositive() {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}

	entryDate := h.Now()
	if req.Date != "" {
		entryDate, _ = billing.ParseDate(req.Date)
	}

	entry := billing.FinanceEntry{
		ID:          uuid.NewString(),
		Type:        billing.FinanceType(req.Type),
		Amount:      amount,
		Description: req.Description,
		Date:        entryDate,
		Category:    req.Category,
		PlotID:      billing.PlotID(req.PlotID),
		RoomID:      billing.RoomID(req.RoomID),
		TenantID:    billing.TenantID(req.TenantID),
	}
	if err := h.Stores.Finance.AppendFinance(r.Context(), entry); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to record finance entry", err)
		return
	}
	writeJSON(w, http.StatusCreated, toFinanceDTO(entry))
}

// =============================================================================
// DASHBOARD ENDPOINT
// =============================================================================

const (
	dashboardPaymentLimit = 5
	dashboardNotifLimit   = 10
)

// GetDashboard assembles the owner dashboard: portfolio overview,
// current-month finances, due/upcoming/overdue buckets, recent activity.
// GET /api/dashboard
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	admin, ok := adminFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing X-Admin-ID header", nil)
		return
	}

	ctx := r.Context()
	scope, err := h.Auth.Scope(ctx, admin)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	rooms, err := h.Stores.Properties.ListRooms(ctx, scope.PlotIDs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load rooms", err)
		return
	}
	occupied, available := 0, 0
	for _, room := range rooms {
		switch room.Status {
		case property.RoomOccupied:
			occupied++
		case property.RoomAvailable:
			available++
		}
	}

	obs := []*billing.Obligation{}
	if len(scope.PlotIDs) > 0 {
		if obs, err = h.Stores.Obligations.ListObligations(ctx, billing.ObligationFilter{PlotIDs: scope.PlotIDs}); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load obligations", err)
			return
		}
	}

	var payments []billing.Payment
	if len(scope.TenantIDs) > 0 {
		if payments, err = h.Stores.Payments.ListPayments(ctx, billing.PaymentFilter{
			TenantIDs: scope.TenantIDs,
			Limit:     dashboardPaymentLimit,
		}); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load payments", err)
			return
		}
	}

	notifications, err := h.Stores.Notifications.ListNotifications(ctx, admin, nil, dashboardNotifLimit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load notifications", err)
		return
	}

	dash := billing.Summarize(billing.DashboardInput{
		PlotCount:      len(scope.PlotIDs),
		RoomCount:      len(rooms),
		OccupiedRooms:  occupied,
		AvailableRooms: available,
		TenantCount:    len(scope.TenantIDs),
		Obligations:    obs,
		RecentPayments: payments,
		Notifications:  notifications,
		Now:            h.Now(),
	})

	writeJSON(w, http.StatusOK, DashboardDTO{
		Overview: OverviewDTO{
			TotalPlots:     dash.Overview.TotalPlots,
			TotalRooms:     dash.Overview.TotalRooms,
			OccupiedRooms:  dash.Overview.OccupiedRooms,
			AvailableRooms: dash.Overview.AvailableRooms,
			TotalTenants:   dash.Overview.TotalTenants,
		},
		Finances:       toMonthFinancesDTO(dash.Finances),
		DueToday:       toObligationDTOs(dash.Buckets.DueToday),
		Upcoming:       toObligationDTOs(dash.Buckets.Upcoming),
		Overdue:        toObligationDTOs(dash.Buckets.Overdue),
		RecentPayments: toPaymentDTOs(dash.RecentPayments),
		Notifications:  toNotificationDTOs(dash.Notifications),
	})
}

// =============================================================================
// NOTIFICATION ENDPOINTS
// =============================================================================

// ListNotifications returns the caller's notifications, newest first.
// ?read=true|false filters by read state; ?limit= caps the count.
// GET /api/notifications
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	admin, ok := adminFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing X-Admin-ID header", nil)
		return
	}

	var read *bool
	q := r.URL.Query()
	if v := q.Get("read"); v != "" {
		b := v == "true"
		read = &b
	}
	limit := 0
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	notifications, err := h.Stores.Notifications.ListNotifications(r.Context(), admin, read, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list notifications", err)
		return
	}
	writeJSON(w, http.StatusOK, toNotificationDTOs(notifications))
}

// MarkNotificationRead flips one notification's read flag.
// PUT /api/notifications/{id}/read
func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	admin, ok := adminFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing X-Admin-ID header", nil)
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.Stores.Notifications.MarkNotificationRead(r.Context(), id, admin, true); err != nil {
		writeDomainError(w, "Failed to mark notification read", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeAuthError maps ownership-chain failures: unknown admin or
// not-owned resources come back as 401, missing resources as 404.
func writeAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, billing.ErrNotAuthorized):
		writeError(w, http.StatusUnauthorized, "Not authorized", nil)
	case billing.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	default:
		writeError(w, http.StatusInternalServerError, "Authorization check failed", err)
	}
}

// writeDomainError maps billing errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, billing.ErrNotAuthorized):
		writeError(w, http.StatusUnauthorized, "Not authorized", nil)
	case billing.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case billing.IsConflict(err), billing.IsRetryable(err):
		writeError(w, http.StatusConflict, message, err)
	case billing.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
