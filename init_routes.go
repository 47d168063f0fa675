// Package main: HTTP route registration.
//
// initRoutes, tüm API endpoint'lerini mux'a bağlar.
package main

import (
	"net/http"

	"github.com/akinalp/adminpulse/middleware"
	"github.com/akinalp/adminpulse/pkg"
	"github.com/akinalp/adminpulse/repository"
	"github.com/akinalp/adminpulse/ws"
)

// initRoutes, middleware chain'i kurar ve tüm endpoint'leri mux'a bağlar.
//
// Route sıralama kuralı: literal path'ler parametrik path'lerden önce
// ("/api/notifications/read-all" → "/api/notifications/{id}/read").
func initRoutes(mux *http.ServeMux, h *Handlers, tokens ws.TokenValidator, adminRepo repository.AdminRepository, hub *ws.Hub) {
	authMw := middleware.NewAuthMiddleware(tokens, adminRepo)
	auth := func(handler http.HandlerFunc) http.Handler {
		return authMw.Require(handler)
	}

	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		pkg.JSON(w, http.StatusOK, map[string]any{
			"status":        "ok",
			"service":       "adminpulse-feed",
			"connections":   hub.ConnectionCount(),
			"subscriptions": hub.SubscriptionCount(),
		})
	})

	// Auth
	mux.HandleFunc("POST /api/auth/login", h.Auth.Login)
	mux.Handle("GET /api/auth/me", auth(h.Auth.Me))

	// Notifications
	mux.Handle("POST /api/notifications", auth(h.Notification.Create))
	mux.Handle("POST /api/notifications/read-all", auth(h.Notification.MarkAllRead))
	mux.Handle("POST /api/notifications/{id}/read", auth(h.Notification.MarkRead))
	mux.Handle("DELETE /api/notifications/{id}", auth(h.Notification.Delete))

	// Conversations & messages
	mux.Handle("POST /api/conversations", auth(h.Conversation.Create))
	mux.Handle("PATCH /api/conversations/{id}", auth(h.Conversation.UpdateStatus))
	mux.Handle("POST /api/conversations/{id}/messages", auth(h.Conversation.SendMessage))
	mux.Handle("POST /api/conversations/{id}/read", auth(h.Conversation.MarkRead))
	mux.Handle("DELETE /api/messages/{id}", auth(h.Conversation.DeleteMessage))

	// Orders & appointments
	mux.Handle("POST /api/orders", auth(h.Order.CreateOrder))
	mux.Handle("PATCH /api/orders/{id}", auth(h.Order.UpdateOrderStatus))
	mux.Handle("DELETE /api/orders/{id}", auth(h.Order.DeleteOrder))
	mux.Handle("POST /api/appointments", auth(h.Order.CreateAppointment))
	mux.Handle("PATCH /api/appointments/{id}", auth(h.Order.UpdateAppointmentStatus))
	mux.Handle("DELETE /api/appointments/{id}", auth(h.Order.DeleteAppointment))

	// Change feed: token query parameter ile authenticate edilir:
	//   ws://server/ws?token=JWT_TOKEN
	mux.HandleFunc("GET /ws", h.WS.HandleConnection)
}
