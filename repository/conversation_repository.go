package repository

import (
	"context"
	"time"

	"github.com/akinalp/adminpulse/models"
)

// ConversationRepository, müşteri destek konuşmaları.
type ConversationRepository interface {
	Create(ctx context.Context, c *models.Conversation) error
	GetByID(ctx context.Context, id string) (*models.Conversation, error)
	// Touch, yeni mesajdan sonra last_message_at ve updated_at'i ilerletir.
	Touch(ctx context.Context, id string, at time.Time) (*models.Conversation, error)
	UpdateStatus(ctx context.Context, id, status string, at time.Time) (*models.Conversation, error)
}

// MessageRepository, konuşma mesajları.
//
// MarkConversationRead: konuşmadaki okunmamış müşteri mesajlarını okundu işaretler
// ve değişen satırları döner.
type MessageRepository interface {
	Create(ctx context.Context, m *models.Message) error
	GetByID(ctx context.Context, id string) (*models.Message, error)
	MarkConversationRead(ctx context.Context, conversationID string, at time.Time) ([]models.Message, error)
	Delete(ctx context.Context, id string) error
}
