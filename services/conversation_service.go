package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/juju/clock"

	"github.com/akinalp/adminpulse/database"
	"github.com/akinalp/adminpulse/models"
	"github.com/akinalp/adminpulse/pkg"
	"github.com/akinalp/adminpulse/repository"
	"github.com/akinalp/adminpulse/ws"
)

// ConversationService, destek konuşmaları ve mesajları iş mantığı.
type ConversationService interface {
	Create(ctx context.Context, req *models.CreateConversationRequest) (*models.Conversation, error)
	SendMessage(ctx context.Context, conversationID string, req *models.CreateMessageRequest) (*models.Message, error)
	MarkRead(ctx context.Context, conversationID string) (int, error)
	UpdateStatus(ctx context.Context, id, status string) (*models.Conversation, error)
	DeleteMessage(ctx context.Context, id string) error
}

type conversationService struct {
	db    *sql.DB
	convs repository.ConversationRepository
	msgs  repository.MessageRepository
	pub   ws.ChangePublisher
	clock clock.Clock
}

// NewConversationService, constructor.
// db, mesaj ekleme + konuşma güncelleme transaction'ı için gerekir;
// transaction içinde repository'ler *sql.Tx ile yeniden oluşturulur.
func NewConversationService(db *sql.DB, pub ws.ChangePublisher, clk clock.Clock) ConversationService {
	return &conversationService{
		db:    db,
		convs: repository.NewSQLiteConversationRepo(db),
		msgs:  repository.NewSQLiteMessageRepo(db),
		pub:   pub,
		clock: clk,
	}
}

func (s *conversationService) Create(ctx context.Context, req *models.CreateConversationRequest) (*models.Conversation, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	now := s.clock.Now()
	c := &models.Conversation{
		UserID:        req.UserID,
		Status:        models.ConversationPending,
		Subject:       req.Subject,
		LastMessageAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.convs.Create(ctx, c); err != nil {
		return nil, err
	}

	s.pub.PublishChange(changeEvent(models.TableConversations, models.OpInsert, c.Row(), nil, now))
	return c, nil
}

// SendMessage, mesajı ekler ve konuşmanın last_message_at'ini aynı transaction'da günceller.
// Commit sonrası iki event yayınlanır: messages INSERT, conversations UPDATE.
func (s *conversationService) SendMessage(ctx context.Context, conversationID string, req *models.CreateMessageRequest) (*models.Message, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	now := s.clock.Now()
	msg := &models.Message{
		ConversationID: conversationID,
		SenderID:       req.SenderID,
		SenderType:     req.SenderType,
		Content:        req.Content,
		MessageType:    req.MessageType,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	var before, after *models.Conversation
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		convs := repository.NewSQLiteConversationRepo(tx)

		var err error
		if before, err = convs.GetByID(ctx, conversationID); err != nil {
			return err
		}
		if err := repository.NewSQLiteMessageRepo(tx).Create(ctx, msg); err != nil {
			return err
		}
		after, err = convs.Touch(ctx, conversationID, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.pub.PublishChange(changeEvent(models.TableMessages, models.OpInsert, msg.Row(), nil, now))
	s.pub.PublishChange(changeEvent(models.TableConversations, models.OpUpdate, after.Row(), before.Row(), now))
	return msg, nil
}

// MarkRead, konuşmadaki okunmamış müşteri mesajlarını okundu yapar.
func (s *conversationService) MarkRead(ctx context.Context, conversationID string) (int, error) {
	if _, err := s.convs.GetByID(ctx, conversationID); err != nil {
		return 0, err
	}

	now := s.clock.Now()
	updated, err := s.msgs.MarkConversationRead(ctx, conversationID, now)
	if err != nil {
		return 0, err
	}

	for i := range updated {
		m := &updated[i]
		old := m.Row()
		old["is_read"] = false
		old["read_at"] = nil
		s.pub.PublishChange(changeEvent(models.TableMessages, models.OpUpdate, m.Row(), old, now))
	}
	return len(updated), nil
}

func (s *conversationService) UpdateStatus(ctx context.Context, id, status string) (*models.Conversation, error) {
	if !models.ValidConversationStatus(status) {
		return nil, fmt.Errorf("%w: invalid conversation status %q", pkg.ErrBadRequest, status)
	}

	before, err := s.convs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if before.Status == status {
		return before, nil
	}

	now := s.clock.Now()
	after, err := s.convs.UpdateStatus(ctx, id, status, now)
	if err != nil {
		return nil, err
	}

	s.pub.PublishChange(changeEvent(models.TableConversations, models.OpUpdate, after.Row(), before.Row(), now))
	return after, nil
}

func (s *conversationService) DeleteMessage(ctx context.Context, id string) error {
	m, err := s.msgs.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.msgs.Delete(ctx, id); err != nil {
		return err
	}

	s.pub.PublishChange(changeEvent(models.TableMessages, models.OpDelete, nil, m.Row(), s.clock.Now()))
	return nil
}
