package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/akinalp/adminpulse/database"
	"github.com/akinalp/adminpulse/models"
	"github.com/akinalp/adminpulse/pkg"
)

type sqliteNotificationRepo struct {
	db database.TxQuerier
}

// NewSQLiteNotificationRepo, constructor: interface döner.
func NewSQLiteNotificationRepo(db database.TxQuerier) NotificationRepository {
	return &sqliteNotificationRepo{db: db}
}

const notificationColumns = `id, admin_user_id, title, message, type, priority, category,
	is_read, action_url, created_at, updated_at, read_at`

func scanNotification(row interface{ Scan(...any) error }) (*models.Notification, error) {
	n := &models.Notification{}
	var actionURL sql.NullString
	err := row.Scan(
		&n.ID, &n.AdminUserID, &n.Title, &n.Message, &n.Type, &n.Priority, &n.Category,
		&n.IsRead, &actionURL, scanTime(&n.CreatedAt), scanTime(&n.UpdatedAt), scanNullTime(&n.ReadAt),
	)
	if err != nil {
		return nil, err
	}
	if actionURL.Valid {
		n.ActionURL = &actionURL.String
	}
	return n, nil
}

func (r *sqliteNotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO admin_notifications (`+notificationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.AdminUserID, n.Title, n.Message, n.Type, string(n.Priority), n.Category,
		n.IsRead, n.ActionURL, ts(n.CreatedAt), ts(n.UpdatedAt), nullTS(n.ReadAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: notification %s", pkg.ErrAlreadyExists, n.ID)
		}
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: admin user %s", pkg.ErrNotFound, n.AdminUserID)
		}
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (r *sqliteNotificationRepo) GetByID(ctx context.Context, id string) (*models.Notification, error) {
	n, err := scanNotification(r.db.QueryRowContext(ctx,
		`SELECT `+notificationColumns+` FROM admin_notifications WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return n, nil
}

func (r *sqliteNotificationRepo) MarkRead(ctx context.Context, id string, at time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE admin_notifications SET is_read = 1, read_at = ?, updated_at = ?
		WHERE id = ? AND is_read = 0`,
		ts(at), ts(at), id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark notification read: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected > 0 {
		return true, nil
	}

	// Satır yok mu, yoksa zaten okunmuş mu?
	if _, err := r.GetByID(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (r *sqliteNotificationRepo) MarkAllRead(ctx context.Context, adminUserID string, at time.Time) ([]models.Notification, error) {
	rows, err := r.db.QueryContext(ctx, `
		UPDATE admin_notifications SET is_read = 1, read_at = ?, updated_at = ?
		WHERE admin_user_id = ? AND is_read = 0
		RETURNING `+notificationColumns,
		ts(at), ts(at), adminUserID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	defer rows.Close()

	var updated []models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification row: %w", err)
		}
		updated = append(updated, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notification rows: %w", err)
	}
	return updated, nil
}

func (r *sqliteNotificationRepo) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.db, "admin_notifications", id)
}

// deleteByID, tek satırı siler; satır yoksa ErrNotFound. table sabit string'lerden gelir.
func deleteByID(ctx context.Context, db database.TxQuerier, table, id string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return pkg.ErrNotFound
	}
	return nil
}
