package routes

import (
	"net/http"

	"github.com/AnshRaj112/econex-backend/internal/handlers"
	"github.com/AnshRaj112/econex-backend/internal/middleware"
	"github.com/AnshRaj112/econex-backend/internal/models"
	"github.com/go-chi/chi/v5"
)

// SetupRoutes mounts the REST API under /api and the realtime gateway at /ws.
// The gateway authenticates its own upgrade request.
func SetupRoutes(r chi.Router, h *handlers.Handler, gateway http.Handler, auth *middleware.Auth) {
	r.Get("/health", handlers.Health)
	r.Method(http.MethodGet, "/ws", gateway)

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireAuth)

		// Pickup requests
		r.Route("/waste", func(r chi.Router) {
			r.With(middleware.RequireRole(models.RoleUser)).Post("/request", h.CreateRequest)
			r.With(middleware.RequireRole(models.RoleUser)).Get("/user/requests", h.UserRequests)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(models.RoleCollector))
				r.Get("/collector/requests", h.CollectorPending)
				r.Get("/collector/accepted", h.CollectorAccepted)
				r.Put("/accept/{id}", h.AcceptRequest)
				r.Put("/collect/{id}", h.CollectRequest)
				r.Put("/list/{id}", h.ListForSale)
			})
		})

		// Marketplace
		r.Route("/buyer", func(r chi.Router) {
			r.Use(middleware.RequireRole(models.RoleBuyer))
			r.Get("/listings", h.Listings)
			r.Post("/purchase/{id}", h.Purchase)
		})

		// Chat history, inboxes and read receipts; participant checks happen in the services
		r.Route("/chat", func(r chi.Router) {
			r.With(middleware.RequireRole(models.RoleUser)).Get("/logistics/inbox", h.LogisticsInbox)
			r.With(middleware.RequireRole(models.RoleCollector)).Get("/logistics/inbox/collector", h.CollectorLogisticsInbox)
			r.Put("/logistics/read/{chatId}", h.MarkLogisticsRead)
			r.Get("/logistics/{requestId}", h.LogisticsHistory)

			r.With(middleware.RequireRole(models.RoleBuyer)).Post("/sales/inquire/{requestId}", h.Inquire)
			r.With(middleware.RequireRole(models.RoleBuyer, models.RoleCollector)).Get("/sales/inbox", h.SalesInbox)
			r.Put("/sales/read/{chatId}", h.MarkSalesRead)
			r.Get("/sales/{chatId}", h.SalesHistory)
		})

		// Operator views
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(models.RoleAdmin))
			r.Get("/requests/{id}/events", h.RequestEvents)
			r.Get("/requests/{id}/dispatches", h.RequestDispatches)
			r.Get("/presence/{id}", h.PresenceSnapshot)
		})
	})
}
