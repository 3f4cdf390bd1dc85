/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  All amounts cross the wire as decimal strings ("1500.00"). Handlers
  parse them with decimal.NewFromString; floats never enter the system.

VALIDATION:
  Request types carry go-playground/validator struct tags. Handlers run
  the validator before touching domain logic.

SEE ALSO:
  - handlers.go: Uses these types
  - billing/types.go: Domain model these project
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/warp/property-engine/billing"
	"github.com/warp/property-engine/property"
)

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// PROPERTY HIERARCHY
// =============================================================================

type AdminDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type CreateAdminRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

type PlotDTO struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
}

type CreatePlotRequest struct {
	Name    string `json:"name" validate:"required"`
	Address string `json:"address"`
}

type RoomDTO struct {
	ID      string `json:"id"`
	PlotID  string `json:"plot_id"`
	Number  string `json:"number"`
	Type    string `json:"type,omitempty"`
	Rent    string `json:"rent"`
	Deposit string `json:"deposit"`
	Status  string `json:"status"`
}

type CreateRoomRequest struct {
	PlotID  string `json:"plot_id" validate:"required"`
	Number  string `json:"number" validate:"required"`
	Type    string `json:"type"`
	Rent    string `json:"rent" validate:"required"`
	Deposit string `json:"deposit"`
}

type TenantDTO struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Mobile         string `json:"mobile,omitempty"`
	Email          string `json:"email,omitempty"`
	RoomID         string `json:"room_id"`
	PlotID         string `json:"plot_id"`
	AgreementStart string `json:"agreement_start"`
	AgreementEnd   string `json:"agreement_end"`
	MonthlyRent    string `json:"monthly_rent"`
	Deposit        string `json:"deposit"`
	DocumentURL    string `json:"document_url,omitempty"`
}

type CreateTenantRequest struct {
	Name           string `json:"name" validate:"required"`
	Mobile         string `json:"mobile"`
	Email          string `json:"email" validate:"omitempty,email"`
	RoomID         string `json:"room_id" validate:"required"`
	AgreementStart string `json:"agreement_start" validate:"required,datetime=2006-01-02"`
	AgreementEnd   string `json:"agreement_end" validate:"required,datetime=2006-01-02"`
	MonthlyRent    string `json:"monthly_rent" validate:"required"`
	Deposit        string `json:"deposit"`
	DocumentURL    string `json:"document_url"`
}

// =============================================================================
// OBLIGATIONS
// =============================================================================

type OtherChargeDTO struct {
	Description string `json:"description"`
	Amount      string `json:"amount"`
}

type ObligationDTO struct {
	ID            string           `json:"id"`
	TenantID      string           `json:"tenant_id"`
	RoomID        string           `json:"room_id"`
	PlotID        string           `json:"plot_id"`
	Month         string           `json:"month"`
	DueDate       string           `json:"due_date"`
	BaseRent      string           `json:"base_rent"`
	Electricity   string           `json:"electricity"`
	PreviousDues  string           `json:"previous_dues"`
	OtherCharges  []OtherChargeDTO `json:"other_charges,omitempty"`
	Total         string           `json:"total"`
	Paid          string           `json:"paid"`
	Pending       string           `json:"pending"`
	Status        string           `json:"status"`
	PaymentDate   string           `json:"payment_date,omitempty"`
	PaymentMethod string           `json:"payment_method,omitempty"`
}

type ScheduleResultDTO struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

type ApplyPaymentRequest struct {
	Amount string `json:"amount" validate:"required"`
	Method string `json:"method" validate:"required,oneof=cash online cheque"`
	Date   string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

type MergeReadingRequest struct {
	ReadingID string `json:"reading_id" validate:"required"`
}

type AddChargeRequest struct {
	Description string `json:"description" validate:"required"`
	Amount      string `json:"amount" validate:"required"`
}

// =============================================================================
// READINGS
// =============================================================================

type ReadingDTO struct {
	ID           string `json:"id"`
	RoomID       string `json:"room_id"`
	PlotID       string `json:"plot_id"`
	TenantID     string `json:"tenant_id,omitempty"`
	Current      string `json:"current_reading"`
	Previous     string `json:"previous_reading"`
	Units        string `json:"units"`
	RatePerUnit  string `json:"rate_per_unit"`
	Total        string `json:"total"`
	ReadingDate  string `json:"reading_date"`
	AddedToRent  bool   `json:"added_to_rent"`
	ObligationID string `json:"obligation_id,omitempty"`
}

type CreateReadingRequest struct {
	CurrentReading string `json:"current_reading" validate:"required"`
	RatePerUnit    string `json:"rate_per_unit"`
	ReadingDate    string `json:"reading_date" validate:"omitempty,datetime=2006-01-02"`
}

// =============================================================================
// PAYMENTS / FINANCE / NOTIFICATIONS
// =============================================================================

type PaymentDTO struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	Amount   string `json:"amount"`
	Date     string `json:"date"`
	Method   string `json:"method"`
	Status   string `json:"status"`
}

type FinanceEntryDTO struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Amount      string `json:"amount"`
	Description string `json:"description,omitempty"`
	Date        string `json:"date"`
	Category    string `json:"category"`
	PlotID      string `json:"plot_id"`
	RoomID      string `json:"room_id,omitempty"`
	TenantID    string `json:"tenant_id,omitempty"`
}

type CreateFinanceRequest struct {
	Type        string `json:"type" validate:"required,oneof=income expense"`
	Amount      string `json:"amount" validate:"required"`
	Description string `json:"description"`
	Date        string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Category    string `json:"category" validate:"required"`
	PlotID      string `json:"plot_id" validate:"required"`
	RoomID      string `json:"room_id"`
	TenantID    string `json:"tenant_id"`
}

type NotificationDTO struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Date    string `json:"date"`
	Read    bool   `json:"read"`
}

// =============================================================================
// DASHBOARD
// =============================================================================

type DashboardDTO struct {
	Overview       OverviewDTO       `json:"overview"`
	Finances       MonthFinancesDTO  `json:"finances"`
	DueToday       []ObligationDTO   `json:"due_today"`
	Upcoming       []ObligationDTO   `json:"upcoming"`
	Overdue        []ObligationDTO   `json:"overdue"`
	RecentPayments []PaymentDTO      `json:"recent_payments"`
	Notifications  []NotificationDTO `json:"notifications"`
}

type OverviewDTO struct {
	TotalPlots     int `json:"total_plots"`
	TotalRooms     int `json:"total_rooms"`
	OccupiedRooms  int `json:"occupied_rooms"`
	AvailableRooms int `json:"available_rooms"`
	TotalTenants   int `json:"total_tenants"`
}

type MonthFinancesDTO struct {
	TotalRentDue       string `json:"total_rent_due"`
	TotalRentCollected string `json:"total_rent_collected"`
	PendingRent        string `json:"pending_rent"`
	TotalOverdue       string `json:"total_overdue"`
	CollectionRate     string `json:"collection_rate"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func toObligationDTO(o *billing.Obligation) ObligationDTO {
	dto := ObligationDTO{
		ID:            string(o.ID),
		TenantID:      string(o.TenantID),
		RoomID:        string(o.RoomID),
		PlotID:        string(o.PlotID),
		Month:         o.Month.String(),
		DueDate:       o.DueDate.String(),
		BaseRent:      o.BaseRent.String(),
		Electricity:   o.Electricity.String(),
		PreviousDues:  o.PreviousDues.String(),
		Total:         o.Total.String(),
		Paid:          o.Paid.String(),
		Pending:       o.Pending.String(),
		Status:        string(o.Status),
		PaymentMethod: string(o.PaymentMethod),
	}
	if !o.PaymentDate.IsZero() {
		dto.PaymentDate = o.PaymentDate.String()
	}
	for _, c := range o.OtherCharges {
		dto.OtherCharges = append(dto.OtherCharges, OtherChargeDTO{
			Description: c.Description,
			Amount:      c.Amount.String(),
		})
	}
	return dto
}

func toObligationDTOs(obs []*billing.Obligation) []ObligationDTO {
	dtos := make([]ObligationDTO, 0, len(obs))
	for _, o := range obs {
		dtos = append(dtos, toObligationDTO(o))
	}
	return dtos
}

func toReadingDTO(r *billing.Reading) ReadingDTO {
	return ReadingDTO{
		ID:           string(r.ID),
		RoomID:       string(r.RoomID),
		PlotID:       string(r.PlotID),
		TenantID:     string(r.TenantID),
		Current:      r.Current.String(),
		Previous:     r.Previous.String(),
		Units:        r.Units.String(),
		RatePerUnit:  r.RatePerUnit.String(),
		Total:        r.Total.String(),
		ReadingDate:  r.ReadingDate.String(),
		AddedToRent:  r.AddedToRent,
		ObligationID: string(r.ObligationID),
	}
}

func toPaymentDTO(p billing.Payment) PaymentDTO {
	return PaymentDTO{
		ID:       string(p.ID),
		TenantID: string(p.TenantID),
		Amount:   p.Amount.String(),
		Date:     p.Date.String(),
		Method:   string(p.Method),
		Status:   string(p.Status),
	}
}

func toPaymentDTOs(payments []billing.Payment) []PaymentDTO {
	dtos := make([]PaymentDTO, 0, len(payments))
	for _, p := range payments {
		dtos = append(dtos, toPaymentDTO(p))
	}
	return dtos
}

func toFinanceDTO(e billing.FinanceEntry) FinanceEntryDTO {
	return FinanceEntryDTO{
		ID:          e.ID,
		Type:        string(e.Type),
		Amount:      e.Amount.String(),
		Description: e.Description,
		Date:        e.Date.String(),
		Category:    e.Category,
		PlotID:      string(e.PlotID),
		RoomID:      string(e.RoomID),
		TenantID:    string(e.TenantID),
	}
}

func toNotificationDTO(n billing.Notification) NotificationDTO {
	return NotificationDTO{
		ID:      n.ID,
		Type:    n.Type,
		Message: n.Message,
		Date:    n.Date.Format(timestampLayout),
		Read:    n.Read,
	}
}

func toNotificationDTOs(ns []billing.Notification) []NotificationDTO {
	dtos := make([]NotificationDTO, 0, len(ns))
	for _, n := range ns {
		dtos = append(dtos, toNotificationDTO(n))
	}
	return dtos
}

func toPlotDTO(p property.Plot) PlotDTO {
	return PlotDTO{
		ID:      string(p.ID),
		OwnerID: string(p.OwnerID),
		Name:    p.Name,
		Address: p.Address,
	}
}

func toRoomDTO(r property.Room) RoomDTO {
	return RoomDTO{
		ID:      string(r.ID),
		PlotID:  string(r.PlotID),
		Number:  r.Number,
		Type:    r.Type,
		Rent:    r.Rent.String(),
		Deposit: r.Deposit.String(),
		Status:  string(r.Status),
	}
}

func toTenantDTO(t property.Tenant) TenantDTO {
	return TenantDTO{
		ID:             string(t.ID),
		Name:           t.Name,
		Mobile:         t.Mobile,
		Email:          t.Email,
		RoomID:         string(t.RoomID),
		PlotID:         string(t.PlotID),
		AgreementStart: t.Agreement.Start.String(),
		AgreementEnd:   t.Agreement.End.String(),
		MonthlyRent:    t.MonthlyRent.String(),
		Deposit:        t.Agreement.Deposit.String(),
		DocumentURL:    t.DocumentURL,
	}
}

func toMonthFinancesDTO(f billing.MonthFinances) MonthFinancesDTO {
	return MonthFinancesDTO{
		TotalRentDue:       f.TotalRentDue.String(),
		TotalRentCollected: f.TotalRentCollected.String(),
		PendingRent:        f.PendingRent.String(),
		TotalOverdue:       f.TotalOverdue.String(),
		CollectionRate:     f.CollectionRate.String(),
	}
}

const timestampLayout = "2006-01-02T15:04:05Z07:00"

// parseAmount parses a decimal amount string ("1500.00").
func parseAmount(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}

// parseOptionalAmount returns the fallback when s is empty.
func parseOptionalAmount(s string, fallback decimal.Decimal) (decimal.Decimal, error) {
	if s == "" {
		return fallback, nil
	}
	return decimal.NewFromString(s)
}
