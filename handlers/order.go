package handlers

import (
	"net/http"

	"github.com/akinalp/adminpulse/models"
	"github.com/akinalp/adminpulse/pkg"
	"github.com/akinalp/adminpulse/services"
)

// OrderHandler, sipariş ve randevu endpoint'leri.
// İkisi de aynı create / status / delete üçlüsünü sunar.
type OrderHandler struct {
	orders       services.OrderService
	appointments services.AppointmentService
}

// NewOrderHandler, constructor.
func NewOrderHandler(orders services.OrderService, appointments services.AppointmentService) *OrderHandler {
	return &OrderHandler{orders: orders, appointments: appointments}
}

// CreateOrder godoc
// POST /api/orders
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req models.CreateOrderRequest
	if err := pkg.DecodeJSON(r, &req); err != nil {
		pkg.Error(w, err)
		return
	}

	order, err := h.orders.Create(r.Context(), &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusCreated, order)
}

// UpdateOrderStatus godoc
// PATCH /api/orders/{id}
func (h *OrderHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateStatusRequest
	if err := pkg.DecodeJSON(r, &req); err != nil {
		pkg.Error(w, err)
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), r.PathValue("id"), req.Status)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, order)
}

// DeleteOrder godoc
// DELETE /api/orders/{id}
func (h *OrderHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.orders.Delete(r.Context(), r.PathValue("id")); err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, map[string]string{"message": "order deleted"})
}

// CreateAppointment godoc
// POST /api/appointments
func (h *OrderHandler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAppointmentRequest
	if err := pkg.DecodeJSON(r, &req); err != nil {
		pkg.Error(w, err)
		return
	}

	appt, err := h.appointments.Create(r.Context(), &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusCreated, appt)
}

// UpdateAppointmentStatus godoc
// PATCH /api/appointments/{id}
func (h *OrderHandler) UpdateAppointmentStatus(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateStatusRequest
	if err := pkg.DecodeJSON(r, &req); err != nil {
		pkg.Error(w, err)
		return
	}

	appt, err := h.appointments.UpdateStatus(r.Context(), r.PathValue("id"), req.Status)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, appt)
}

// DeleteAppointment godoc
// DELETE /api/appointments/{id}
func (h *OrderHandler) DeleteAppointment(w http.ResponseWriter, r *http.Request) {
	if err := h.appointments.Delete(r.Context(), r.PathValue("id")); err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, map[string]string{"message": "appointment deleted"})
}
