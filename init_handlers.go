// Package main: Handler katmanı başlatma.
//
// initHandlers, tüm HTTP handler'larını oluşturur.
// Handler'lar "thin"dir: HTTP parse + service call + response write.
package main

import (
	"github.com/akinalp/adminpulse/handlers"
	"github.com/akinalp/adminpulse/ws"
)

// Handlers, tüm handler instance'larını tutan container struct.
type Handlers struct {
	Auth         *handlers.AuthHandler
	Notification *handlers.NotificationHandler
	Conversation *handlers.ConversationHandler
	Order        *handlers.OrderHandler
	WS           *ws.Handler
}

// initHandlers, handler'ları service ve rate limiter dependency'leri ile oluşturur.
func initHandlers(svcs *Services, limiters *RateLimiters, hub *ws.Hub) *Handlers {
	return &Handlers{
		Auth:         handlers.NewAuthHandler(svcs.Auth, limiters.Login),
		Notification: handlers.NewNotificationHandler(svcs.Notification),
		Conversation: handlers.NewConversationHandler(svcs.Conversation),
		Order:        handlers.NewOrderHandler(svcs.Order, svcs.Appointment),
		WS:           ws.NewHandler(hub, svcs.Tokens),
	}
}
