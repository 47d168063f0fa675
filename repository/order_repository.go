package repository

import (
	"context"
	"time"

	"github.com/akinalp/adminpulse/models"
)

// OrderRepository, orders tablosu.
type OrderRepository interface {
	Create(ctx context.Context, o *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	UpdateStatus(ctx context.Context, id, status string, at time.Time) (*models.Order, error)
	Delete(ctx context.Context, id string) error
}

// AppointmentRepository, appointments tablosu.
type AppointmentRepository interface {
	Create(ctx context.Context, a *models.Appointment) error
	GetByID(ctx context.Context, id string) (*models.Appointment, error)
	UpdateStatus(ctx context.Context, id, status string, at time.Time) (*models.Appointment, error)
	Delete(ctx context.Context, id string) error
}
