/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/admins           Admin registration
  /api/plots/*          Plot management
  /api/rooms/*          Room management and meter readings
  /api/tenants/*        Tenant management and schedule generation
  /api/obligations/*    Rent obligations, payments, charge merging
  /api/payments         Payment history
  /api/finances         Income/expense ledger
  /api/dashboard        Owner dashboard
  /api/notifications/*  Notification feed

AUTHORIZATION:
  Handlers read the X-Admin-ID header themselves; there is no session
  middleware. See handlers.go.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Admin-ID"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Post("/admins", h.CreateAdmin)

		r.Route("/plots", func(r chi.Router) {
			r.Get("/", h.ListPlots)
			r.Post("/", h.CreatePlot)
		})

		r.Route("/rooms", func(r chi.Router) {
			r.Get("/", h.ListRooms)
			r.Post("/", h.CreateRoom)
			r.Post("/{id}/readings", h.CreateReading)
			r.Get("/{id}/readings", h.ListReadings)
		})

		r.Route("/tenants", func(r chi.Router) {
			r.Get("/", h.ListTenants)
			r.Post("/", h.CreateTenant)
			r.Get("/{id}", h.GetTenant)
			r.Post("/{id}/schedule", h.GenerateTenantSchedule)
		})

		r.Route("/obligations", func(r chi.Router) {
			r.Get("/", h.ListObligations)
			r.Get("/{id}", h.GetObligation)
			r.Post("/{id}/payments", h.ApplyPayment)
			r.Post("/{id}/electricity", h.MergeElectricity)
			r.Post("/{id}/charges", h.AddCharge)
		})

		r.Post("/admin/schedule", h.GenerateAllSchedules)

		r.Get("/payments", h.ListPayments)
		r.Get("/finances", h.ListFinance)
		r.Post("/finances", h.CreateFinance)

		r.Get("/dashboard", h.GetDashboard)

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", h.ListNotifications)
			r.Put("/{id}/read", h.MarkNotificationRead)
		})
	})

	return r
}
