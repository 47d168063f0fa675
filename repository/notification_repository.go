package repository

import (
	"context"
	"time"

	"github.com/akinalp/adminpulse/models"
)

// NotificationRepository, admin_notifications tablosu.
//
// MarkRead: bildirimi okundu işaretler; zaten okunmuşsa changed=false.
// MarkAllRead: admin'in tüm okunmamış bildirimlerini işaretler, değişen satırları döner
// (her biri için ayrı change event yayınlanır).
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	GetByID(ctx context.Context, id string) (*models.Notification, error)
	MarkRead(ctx context.Context, id string, at time.Time) (changed bool, err error)
	MarkAllRead(ctx context.Context, adminUserID string, at time.Time) ([]models.Notification, error)
	Delete(ctx context.Context, id string) error
}
