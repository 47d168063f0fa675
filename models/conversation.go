package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// SenderType, mesajı kimin yazdığı: müşteri (user) veya yönetici (admin).
// Okunmamış mesaj sayacına sadece user mesajları girer.
type SenderType string

const (
	SenderUser  SenderType = "user"
	SenderAdmin SenderType = "admin"
)

// Konuşma durumları.
const (
	ConversationPending  = "pending"
	ConversationActive   = "active"
	ConversationResolved = "resolved"
)

// ValidConversationStatus, durumun bilinen konuşma durumlarından biri olup olmadığını döner.
func ValidConversationStatus(s string) bool {
	switch s {
	case ConversationPending, ConversationActive, ConversationResolved:
		return true
	}
	return false
}

// Conversation, müşteri destek konuşması (conversations tablosu).
type Conversation struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Status        string    `json:"status"` // pending, active, resolved
	Subject       *string   `json:"subject"`
	LastMessageAt time.Time `json:"last_message_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Row, konuşmayı change event payload'ına çevirir.
// View kolonları (total_messages vb.) burada yok: sadece tablo kolonları.
func (c *Conversation) Row() Row {
	row := Row{
		"id":              c.ID,
		"user_id":         c.UserID,
		"status":          c.Status,
		"subject":         nil,
		"last_message_at": FormatTimestamp(c.LastMessageAt),
		"created_at":      FormatTimestamp(c.CreatedAt),
		"updated_at":      FormatTimestamp(c.UpdatedAt),
	}
	if c.Subject != nil {
		row["subject"] = *c.Subject
	}
	return row
}

// Message, bir konuşmadaki tek mesaj (messages tablosu).
type Message struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversation_id"`
	SenderID       string     `json:"sender_id"`
	SenderType     SenderType `json:"sender_type"`
	Content        string     `json:"message_content"`
	MessageType    string     `json:"message_type"` // text, image, file, system
	IsRead         bool       `json:"is_read"`
	ReadAt         *time.Time `json:"read_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Row, mesajı change event payload'ına çevirir.
func (m *Message) Row() Row {
	row := Row{
		"id":              m.ID,
		"conversation_id": m.ConversationID,
		"sender_id":       m.SenderID,
		"sender_type":     string(m.SenderType),
		"message_content": m.Content,
		"message_type":    m.MessageType,
		"is_read":         m.IsRead,
		"read_at":         nil,
		"created_at":      FormatTimestamp(m.CreatedAt),
		"updated_at":      FormatTimestamp(m.UpdatedAt),
	}
	if m.ReadAt != nil {
		row["read_at"] = FormatTimestamp(*m.ReadAt)
	}
	return row
}

// CreateMessageRequest, konuşmaya mesaj ekleme isteği.
// SenderType verilmezse admin kabul edilir (dashboard'dan cevap).
type CreateMessageRequest struct {
	SenderID    string     `json:"sender_id"`
	SenderType  SenderType `json:"sender_type"`
	Content     string     `json:"message_content"`
	MessageType string     `json:"message_type"`
}

// Validate, içerik uzunluğunu ve gönderici tipini kontrol eder.
func (r *CreateMessageRequest) Validate() error {
	r.Content = strings.TrimSpace(r.Content)
	if r.Content == "" || utf8.RuneCountInString(r.Content) > 4000 {
		return fmt.Errorf("message_content must be between 1 and 4000 characters")
	}
	switch r.SenderType {
	case "":
		r.SenderType = SenderAdmin
	case SenderUser, SenderAdmin:
	default:
		return fmt.Errorf("sender_type must be user or admin")
	}
	if r.MessageType == "" {
		r.MessageType = "text"
	}
	if r.SenderID == "" {
		return fmt.Errorf("sender_id is required")
	}
	return nil
}

// CreateConversationRequest, müşteri tarafından açılan yeni konuşma.
type CreateConversationRequest struct {
	UserID  string  `json:"user_id"`
	Subject *string `json:"subject"`
}

// Validate, kullanıcı kimliğini kontrol eder.
func (r *CreateConversationRequest) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return fmt.Errorf("user_id is required")
	}
	return nil
}
