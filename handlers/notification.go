package handlers

import (
	"net/http"

	"github.com/akinalp/adminpulse/models"
	"github.com/akinalp/adminpulse/pkg"
	"github.com/akinalp/adminpulse/services"
)

// NotificationHandler, bildirim endpoint'leri.
type NotificationHandler struct {
	service services.NotificationService
}

// NewNotificationHandler, constructor.
func NewNotificationHandler(service services.NotificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// Create godoc
// POST /api/notifications
// admin_user_id boşsa bildirim isteği yapan admin'e yazılır.
func (h *NotificationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateNotificationRequest
	if err := pkg.DecodeJSON(r, &req); err != nil {
		pkg.Error(w, err)
		return
	}
	if req.AdminUserID == "" {
		if admin, ok := AdminFromContext(r.Context()); ok {
			req.AdminUserID = admin.ID
		}
	}

	n, err := h.service.Create(r.Context(), &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusCreated, n)
}

// MarkRead godoc
// POST /api/notifications/{id}/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	admin, ok := AdminFromContext(r.Context())
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "admin not found in context")
		return
	}

	if err := h.service.MarkRead(r.Context(), admin.ID, r.PathValue("id")); err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, map[string]string{"message": "notification marked as read"})
}

// MarkAllRead godoc
// POST /api/notifications/read-all
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	admin, ok := AdminFromContext(r.Context())
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "admin not found in context")
		return
	}

	count, err := h.service.MarkAllRead(r.Context(), admin.ID)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, map[string]int{"updated": count})
}

// Delete godoc
// DELETE /api/notifications/{id}
func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	admin, ok := AdminFromContext(r.Context())
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "admin not found in context")
		return
	}

	if err := h.service.Delete(r.Context(), admin.ID, r.PathValue("id")); err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, map[string]string{"message": "notification deleted"})
}
