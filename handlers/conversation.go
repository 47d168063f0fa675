package handlers

import (
	"net/http"

	"github.com/akinalp/adminpulse/models"
	"github.com/akinalp/adminpulse/pkg"
	"github.com/akinalp/adminpulse/services"
)

// ConversationHandler, konuşma ve mesaj endpoint'leri.
type ConversationHandler struct {
	service services.ConversationService
}

// NewConversationHandler, constructor.
func NewConversationHandler(service services.ConversationService) *ConversationHandler {
	return &ConversationHandler{service: service}
}

// Create godoc
// POST /api/conversations
func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateConversationRequest
	if err := pkg.DecodeJSON(r, &req); err != nil {
		pkg.Error(w, err)
		return
	}

	conv, err := h.service.Create(r.Context(), &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusCreated, conv)
}

// SendMessage godoc
// POST /api/conversations/{id}/messages
// sender_id boşsa ve gönderici admin ise isteği yapan admin yazılır.
func (h *ConversationHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req models.CreateMessageRequest
	if err := pkg.DecodeJSON(r, &req); err != nil {
		pkg.Error(w, err)
		return
	}
	if req.SenderID == "" && req.SenderType != models.SenderUser {
		if admin, ok := AdminFromContext(r.Context()); ok {
			req.SenderID = admin.ID
		}
	}

	msg, err := h.service.SendMessage(r.Context(), r.PathValue("id"), &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusCreated, msg)
}

// MarkRead godoc
// POST /api/conversations/{id}/read
func (h *ConversationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.MarkRead(r.Context(), r.PathValue("id"))
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, map[string]int{"updated": count})
}

// UpdateStatus godoc
// PATCH /api/conversations/{id}
// Body: { "status": "resolved" }
func (h *ConversationHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateStatusRequest
	if err := pkg.DecodeJSON(r, &req); err != nil {
		pkg.Error(w, err)
		return
	}

	conv, err := h.service.UpdateStatus(r.Context(), r.PathValue("id"), req.Status)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, conv)
}

// DeleteMessage godoc
// DELETE /api/messages/{id}
func (h *ConversationHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteMessage(r.Context(), r.PathValue("id")); err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, map[string]string{"message": "message deleted"})
}
