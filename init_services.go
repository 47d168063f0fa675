// Package main: Service katmanı başlatma.
//
// initServices, tüm service implementasyonlarını oluşturur.
// Her service, ihtiyaç duyduğu repository interface'lerini ve publisher'ı
// constructor injection ile alır.
package main

import (
	"database/sql"
	"time"

	"github.com/juju/clock"

	"github.com/akinalp/adminpulse/config"
	"github.com/akinalp/adminpulse/pkg/ratelimit"
	"github.com/akinalp/adminpulse/services"
	"github.com/akinalp/adminpulse/ws"
)

// Services, tüm service instance'larını tutan container struct.
type Services struct {
	Auth         services.AuthService
	Tokens       *services.TokenIssuer
	Notification services.NotificationService
	Conversation services.ConversationService
	Order        services.OrderService
	Appointment  services.AppointmentService
}

// RateLimiters, rate limiter instance'larını tutan container.
type RateLimiters struct {
	Login *ratelimit.LoginRateLimiter
}

// initServices, service'leri ve rate limiter'ları oluşturur.
func initServices(db *sql.DB, repos *Repositories, pub ws.ChangePublisher, cfg *config.Config) (*Services, *RateLimiters) {
	clk := clock.WallClock
	tokens := services.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.AccessTokenTTL(), clk)

	svcs := &Services{
		Auth:         services.NewAuthService(repos.Admin, tokens),
		Tokens:       tokens,
		Notification: services.NewNotificationService(repos.Notification, pub, clk),
		Conversation: services.NewConversationService(db, pub, clk),
		Order:        services.NewOrderService(repos.Order, pub, clk),
		Appointment:  services.NewAppointmentService(repos.Appointment, pub, clk),
	}

	limiters := &RateLimiters{
		Login: ratelimit.NewLoginRateLimiter(clk, 5, 2*time.Minute),
	}

	return svcs, limiters
}
