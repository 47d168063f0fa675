package models

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AdminUser, dashboard'a giriş yapan yönetici.
// Realtime katmanında kimlik (identity) olarak sadece ID kullanılır.
type AdminUser struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	PasswordHash string    `json:"-"` // API response'a asla dahil edilmez
	CreatedAt    time.Time `json:"created_at"`
}

// LoginRequest, POST /api/auth/login body'si.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate, email formatını ve boş şifreyi kontrol eder.
func (r *LoginRequest) Validate() error {
	r.Email = strings.TrimSpace(strings.ToLower(r.Email))
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return fmt.Errorf("invalid email address")
	}
	if r.Password == "" {
		return fmt.Errorf("password is required")
	}
	return nil
}

// TokenClaims, JWT access token payload'ı.
//
// Feed server (ws bağlantısı, REST) ve dashboard daemon (session) aynı
// secret ile imzalanmış token'ı doğrular; UserID realtime identity olur.
type TokenClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// AuthTokens, login sonrası dönen token bilgisi.
type AuthTokens struct {
	AccessToken string     `json:"access_token"`
	ExpiresAt   time.Time  `json:"expires_at"`
	User        *AdminUser `json:"user"`
}
