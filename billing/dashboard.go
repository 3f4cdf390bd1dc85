/*
dashboard.go - Admin dashboard summary

PURPOSE:
  Folds an admin's property and billing data into the single document the
  dashboard renders: occupancy overview, current-month collection
  figures, and the due-today / upcoming / overdue obligation buckets.

  Pure computation over inputs the caller has already loaded and
  authorized; the handler gathers, this summarizes.
*/
package billing

import "github.com/shopspring/decimal"

// DashboardInput is the pre-loaded, pre-authorized data for one admin.
type DashboardInput struct {
	PlotCount      int
	RoomCount      int
	OccupiedRooms  int
	AvailableRooms int
	TenantCount    int

	Obligations    []*Obligation  // all obligations under the admin's rooms
	RecentPayments []Payment      // newest first, already limited
	Notifications  []Notification // newest first, already limited

	Now        TimePoint
	WindowDays int // 0 = default upcoming window
}

type Overview struct {
	TotalPlots     int
	TotalRooms     int
	OccupiedRooms  int
	AvailableRooms int
	TotalTenants   int
}

// MonthFinances summarizes the current calendar month's collection.
type MonthFinances struct {
	TotalRentDue       decimal.Decimal
	TotalRentCollected decimal.Decimal
	PendingRent        decimal.Decimal
	TotalOverdue       decimal.Decimal // pending balance across all overdue records
	CollectionRate     decimal.Decimal // percentage, 2 decimal places
}

type Dashboard struct {
	Overview       Overview
	Finances       MonthFinances
	Buckets        Buckets
	RecentPayments []Payment
	Notifications  []Notification
}

var hundred = decimal.NewFromInt(100)

// Summarize builds the dashboard document.
func Summarize(in DashboardInput) Dashboard {
	buckets := Classify(in.Obligations, in.Now, in.WindowDays)

	currentMonth := MonthOf(in.Now)
	due := decimal.Zero
	collected := decimal.Zero
	for _, o := range in.Obligations {
		if o.Month == currentMonth {
			due = due.Add(o.Total)
			collected = collected.Add(o.Paid)
		}
	}

	overdueTotal := decimal.Zero
	for _, o := range buckets.Overdue {
		overdueTotal = overdueTotal.Add(o.Pending)
	}

	rate := decimal.Zero
	if due.IsPositive() {
		rate = collected.Div(due).Mul(hundred).Round(2)
	}

	return Dashboard{
		Overview: Overview{
			TotalPlots:     in.PlotCount,
			TotalRooms:     in.RoomCount,
			OccupiedRooms:  in.OccupiedRooms,
			AvailableRooms: in.AvailableRooms,
			TotalTenants:   in.TenantCount,
		},
		Finances: MonthFinances{
			TotalRentDue:       due,
			TotalRentCollected: collected,
			PendingRent:        due.Sub(collected),
			TotalOverdue:       overdueTotal,
			CollectionRate:     rate,
		},
		Buckets:        buckets,
		RecentPayments: in.RecentPayments,
		Notifications:  in.Notifications,
	}
}
