// Package handlers, feed server'ın HTTP request/response katmanı.
//
// Handler ince olmalı:
//  1. Request body'yi parse et (JSON → struct)
//  2. Service katmanını çağır
//  3. Sonucu pkg.JSON / pkg.Error ile döndür
//
// İş mantığı ve change event yayını service'te yaşar.
package handlers

import (
	"context"

	"github.com/akinalp/adminpulse/models"
)

type contextKey string

// AdminContextKey, auth middleware'ın doğrulanmış admin'i context'e koyduğu anahtar.
const AdminContextKey contextKey = "admin"

// WithAdmin, admin'i context'e ekler.
func WithAdmin(ctx context.Context, admin *models.AdminUser) context.Context {
	return context.WithValue(ctx, AdminContextKey, admin)
}

// AdminFromContext, auth middleware'ın eklediği admin'i döner.
func AdminFromContext(ctx context.Context) (*models.AdminUser, bool) {
	admin, ok := ctx.Value(AdminContextKey).(*models.AdminUser)
	return admin, ok
}
