// Package middleware, HTTP request pipeline'ına eklenen ara katmanları barındırır.
//
// Go'da middleware bir fonksiyondur:
//
//	func(next http.Handler) http.Handler
//
// Middleware kendi işini yapar (ör: token doğrula), sonra next'i çağırır.
// Hata varsa next'i çağırmaz; request burada durur.
package middleware

import (
	"net/http"
	"strings"

	"github.com/akinalp/adminpulse/handlers"
	"github.com/akinalp/adminpulse/pkg"
	"github.com/akinalp/adminpulse/repository"
	"github.com/akinalp/adminpulse/ws"
)

// AuthMiddleware, JWT token doğrulama middleware'ı.
type AuthMiddleware struct {
	tokens    ws.TokenValidator
	adminRepo repository.AdminRepository
}

// NewAuthMiddleware, constructor.
func NewAuthMiddleware(tokens ws.TokenValidator, adminRepo repository.AdminRepository) *AuthMiddleware {
	return &AuthMiddleware{
		tokens:    tokens,
		adminRepo: adminRepo,
	}
}

// Require, JWT token zorunlu kılan middleware.
//
// Header formatı: Authorization: Bearer <token>
// Token geçerliyse admin DB'den getirilir ve context'e eklenir; token geçerli
// olsa bile hesap silinmişse 401 döner.
func (m *AuthMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, "authorization header required")
			return
		}

		tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok {
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, "invalid authorization format, use: Bearer <token>")
			return
		}

		claims, err := m.tokens.ValidateAccessToken(tokenString)
		if err != nil {
			pkg.Error(w, err)
			return
		}

		admin, err := m.adminRepo.GetByID(r.Context(), claims.UserID)
		if err != nil {
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, "admin not found")
			return
		}
		admin.PasswordHash = ""

		next.ServeHTTP(w, r.WithContext(handlers.WithAdmin(r.Context(), admin)))
	})
}
