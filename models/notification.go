package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// NotificationPriority, bildirimin önem derecesi.
// high ve medium bildirimler dashboard'da anlık uyarı (toast / e-posta) tetikler.
type NotificationPriority string

const (
	PriorityLow    NotificationPriority = "low"
	PriorityMedium NotificationPriority = "medium"
	PriorityHigh   NotificationPriority = "high"
)

// Notification, admin_notifications tablosundaki bir satır.
// Her bildirim tek bir admin'e aittir (AdminUserID).
type Notification struct {
	ID          string               `json:"id"`
	AdminUserID string               `json:"admin_user_id"`
	Title       string               `json:"title"`
	Message     string               `json:"message"`
	Type        string               `json:"type"`     // info, warning, error, success
	Priority    NotificationPriority `json:"priority"` // low, medium, high
	Category    string               `json:"category"` // system, orders, appointments, ...
	IsRead      bool                 `json:"is_read"`
	ActionURL   *string              `json:"action_url"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
	ReadAt      *time.Time           `json:"read_at"`
}

// Row, bildirimi change event payload'ına çevirir.
func (n *Notification) Row() Row {
	row := Row{
		"id":            n.ID,
		"admin_user_id": n.AdminUserID,
		"title":         n.Title,
		"message":       n.Message,
		"type":          n.Type,
		"priority":      string(n.Priority),
		"category":      n.Category,
		"is_read":       n.IsRead,
		"action_url":    nil,
		"created_at":    FormatTimestamp(n.CreatedAt),
		"updated_at":    FormatTimestamp(n.UpdatedAt),
		"read_at":       nil,
	}
	if n.ActionURL != nil {
		row["action_url"] = *n.ActionURL
	}
	if n.ReadAt != nil {
		row["read_at"] = FormatTimestamp(*n.ReadAt)
	}
	return row
}

// CreateNotificationRequest, yeni bildirim oluşturma isteği.
type CreateNotificationRequest struct {
	AdminUserID string               `json:"admin_user_id"`
	Title       string               `json:"title"`
	Message     string               `json:"message"`
	Type        string               `json:"type"`
	Priority    NotificationPriority `json:"priority"`
	Category    string               `json:"category"`
	ActionURL   *string              `json:"action_url"`
}

// Validate, zorunlu alanları kontrol eder ve varsayılanları doldurur.
func (r *CreateNotificationRequest) Validate() error {
	r.Title = strings.TrimSpace(r.Title)
	if r.AdminUserID == "" {
		return fmt.Errorf("admin_user_id is required")
	}
	if r.Title == "" || utf8.RuneCountInString(r.Title) > 200 {
		return fmt.Errorf("title must be between 1 and 200 characters")
	}
	if r.Type == "" {
		r.Type = "info"
	}
	if r.Category == "" {
		r.Category = "general"
	}
	switch r.Priority {
	case "":
		r.Priority = PriorityLow
	case PriorityLow, PriorityMedium, PriorityHigh:
	default:
		return fmt.Errorf("priority must be one of low, medium, high")
	}
	return nil
}
