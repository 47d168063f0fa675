package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/akinalp/adminpulse/database"
	"github.com/akinalp/adminpulse/models"
	"github.com/akinalp/adminpulse/pkg"
)

type sqliteAdminRepo struct {
	db database.TxQuerier
}

// NewSQLiteAdminRepo, constructor: interface döner.
func NewSQLiteAdminRepo(db database.TxQuerier) AdminRepository {
	return &sqliteAdminRepo{db: db}
}

func (r *sqliteAdminRepo) Create(ctx context.Context, admin *models.AdminUser) error {
	if admin.ID == "" {
		admin.ID = uuid.NewString()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO admin_users (id, email, display_name, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		admin.ID, admin.Email, admin.DisplayName, admin.PasswordHash, ts(admin.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: email already in use", pkg.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create admin: %w", err)
	}
	return nil
}

func (r *sqliteAdminRepo) GetByID(ctx context.Context, id string) (*models.AdminUser, error) {
	return r.getOne(ctx, "id", id)
}

func (r *sqliteAdminRepo) GetByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	return r.getOne(ctx, "email", email)
}

// getOne, tek bir admin'i verilen kolona göre getirir. column sabit string'lerden gelir.
func (r *sqliteAdminRepo) getOne(ctx context.Context, column, value string) (*models.AdminUser, error) {
	admin := &models.AdminUser{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, display_name, password_hash, created_at
		FROM admin_users WHERE `+column+` = ?`, value,
	).Scan(&admin.ID, &admin.Email, &admin.DisplayName, &admin.PasswordHash, scanTime(&admin.CreatedAt))

	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get admin by %s: %w", column, err)
	}
	return admin, nil
}

func (r *sqliteAdminRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM admin_users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count admins: %w", err)
	}
	return n, nil
}
