package services

import (
	"context"
	"fmt"

	"github.com/juju/clock"

	"github.com/akinalp/adminpulse/models"
	"github.com/akinalp/adminpulse/pkg"
	"github.com/akinalp/adminpulse/repository"
	"github.com/akinalp/adminpulse/ws"
)

// NotificationService, admin bildirimleri iş mantığı.
type NotificationService interface {
	Create(ctx context.Context, req *models.CreateNotificationRequest) (*models.Notification, error)
	MarkRead(ctx context.Context, adminID, id string) error
	MarkAllRead(ctx context.Context, adminID string) (int, error)
	Delete(ctx context.Context, adminID, id string) error
}

type notificationService struct {
	repo  repository.NotificationRepository
	pub   ws.ChangePublisher
	clock clock.Clock
}

// NewNotificationService, constructor.
func NewNotificationService(repo repository.NotificationRepository, pub ws.ChangePublisher, clk clock.Clock) NotificationService {
	return &notificationService{repo: repo, pub: pub, clock: clk}
}

func (s *notificationService) Create(ctx context.Context, req *models.CreateNotificationRequest) (*models.Notification, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	now := s.clock.Now()
	n := &models.Notification{
		AdminUserID: req.AdminUserID,
		Title:       req.Title,
		Message:     req.Message,
		Type:        req.Type,
		Priority:    req.Priority,
		Category:    req.Category,
		ActionURL:   req.ActionURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, err
	}

	s.pub.PublishChange(changeEvent(models.TableNotifications, models.OpInsert, n.Row(), nil, now))
	return n, nil
}

// owned, bildirimi getirir; başka admin'e aitse yokmuş gibi davranır.
func (s *notificationService) owned(ctx context.Context, adminID, id string) (*models.Notification, error) {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.AdminUserID != adminID {
		return nil, pkg.ErrNotFound
	}
	return n, nil
}

// MarkRead, bildirimi okundu yapar. Zaten okunmuşsa event yayınlanmaz.
func (s *notificationService) MarkRead(ctx context.Context, adminID, id string) error {
	before, err := s.owned(ctx, adminID, id)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	changed, err := s.repo.MarkRead(ctx, id, now)
	if err != nil || !changed {
		return err
	}

	after, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to reload notification: %w", err)
	}
	s.pub.PublishChange(changeEvent(models.TableNotifications, models.OpUpdate, after.Row(), before.Row(), now))
	return nil
}

// MarkAllRead, admin'in tüm okunmamış bildirimlerini okundu yapar; her satır
// için ayrı UPDATE event'i yayınlanır.
func (s *notificationService) MarkAllRead(ctx context.Context, adminID string) (int, error) {
	if adminID == "" {
		return 0, fmt.Errorf("%w: admin id is required", pkg.ErrBadRequest)
	}

	now := s.clock.Now()
	updated, err := s.repo.MarkAllRead(ctx, adminID, now)
	if err != nil {
		return 0, err
	}

	for i := range updated {
		n := &updated[i]
		old := n.Row()
		old["is_read"] = false
		old["read_at"] = nil
		s.pub.PublishChange(changeEvent(models.TableNotifications, models.OpUpdate, n.Row(), old, now))
	}
	return len(updated), nil
}

func (s *notificationService) Delete(ctx context.Context, adminID, id string) error {
	n, err := s.owned(ctx, adminID, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.pub.PublishChange(changeEvent(models.TableNotifications, models.OpDelete, nil, n.Row(), s.clock.Now()))
	return nil
}
