// Package services, business logic katmanını barındırır.
//
// Handler (HTTP) ile Repository (DB) arasında oturur. Her yazma işlemi
// commit'ten sonra bir models.ChangeEvent yayınlar; dashboard daemon'ları
// bu event'leri ws hub'ı veya Pub/Sub üzerinden alır.
//
// Service ASLA http.Request/Response bilmez, ASLA doğrudan SQL çalıştırmaz.
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/akinalp/adminpulse/models"
	"github.com/akinalp/adminpulse/pkg"
	"github.com/akinalp/adminpulse/repository"
)

// bcryptCost, şifre hash maliyeti.
const bcryptCost = 12

// AuthService interface'i: dışarıya açık API.
type AuthService interface {
	Login(ctx context.Context, req *models.LoginRequest) (*models.AuthTokens, error)
	ValidateAccessToken(tokenString string) (*models.TokenClaims, error)
	// EnsureAdmin, tabloda hiç admin yoksa verilen bilgilerle ilk hesabı oluşturur.
	EnsureAdmin(ctx context.Context, email, password string) error
}

type authService struct {
	adminRepo repository.AdminRepository
	tokens    *TokenIssuer
}

// NewAuthService, constructor.
func NewAuthService(adminRepo repository.AdminRepository, tokens *TokenIssuer) AuthService {
	return &authService{adminRepo: adminRepo, tokens: tokens}
}

// Login, email + şifre ile giriş yapar ve access token döner.
// Email yok ve şifre yanlış aynı hatayı verir; hangisinin yanlış olduğu sızdırılmaz.
func (s *authService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthTokens, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	admin, err := s.adminRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid email or password", pkg.ErrUnauthorized)
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("%w: invalid email or password", pkg.ErrUnauthorized)
	}

	token, expiresAt, err := s.tokens.Issue(admin)
	if err != nil {
		return nil, err
	}
	admin.PasswordHash = ""

	return &models.AuthTokens{AccessToken: token, ExpiresAt: expiresAt, User: admin}, nil
}

func (s *authService) ValidateAccessToken(tokenString string) (*models.TokenClaims, error) {
	return s.tokens.ValidateAccessToken(tokenString)
}

func (s *authService) EnsureAdmin(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil
	}

	count, err := s.adminRepo.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if len(password) < 8 {
		return fmt.Errorf("%w: admin password must be at least 8 characters", pkg.ErrBadRequest)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	admin := &models.AdminUser{
		Email:        email,
		DisplayName:  strings.Split(email, "@")[0],
		PasswordHash: string(hash),
		CreatedAt:    s.tokens.clock.Now(),
	}
	if err := s.adminRepo.Create(ctx, admin); err != nil {
		return err
	}

	log.Printf("[auth] bootstrap admin created: %s (id=%s)", email, admin.ID)
	return nil
}
