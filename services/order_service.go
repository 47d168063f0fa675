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

// OrderService, sipariş iş mantığı.
type OrderService interface {
	Create(ctx context.Context, req *models.CreateOrderRequest) (*models.Order, error)
	UpdateStatus(ctx context.Context, id, status string) (*models.Order, error)
	Delete(ctx context.Context, id string) error
}

type orderService struct {
	repo  repository.OrderRepository
	pub   ws.ChangePublisher
	clock clock.Clock
}

// NewOrderService, constructor.
func NewOrderService(repo repository.OrderRepository, pub ws.ChangePublisher, clk clock.Clock) OrderService {
	return &orderService{repo: repo, pub: pub, clock: clk}
}

// Create, yeni siparişi Pending durumunda oluşturur.
func (s *orderService) Create(ctx context.Context, req *models.CreateOrderRequest) (*models.Order, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	now := s.clock.Now()
	o := &models.Order{
		UserID:      req.UserID,
		Status:      models.OrderPending,
		TotalAmount: req.TotalAmount,
		Notes:       req.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, o); err != nil {
		return nil, err
	}

	s.pub.PublishChange(changeEvent(models.TableOrders, models.OpInsert, o.Row(), nil, now))
	return o, nil
}

func (s *orderService) UpdateStatus(ctx context.Context, id, status string) (*models.Order, error) {
	if !models.ValidOrderStatus(status) {
		return nil, fmt.Errorf("%w: invalid order status %q", pkg.ErrBadRequest, status)
	}

	before, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if before.Status == status {
		return before, nil
	}

	now := s.clock.Now()
	after, err := s.repo.UpdateStatus(ctx, id, status, now)
	if err != nil {
		return nil, err
	}

	s.pub.PublishChange(changeEvent(models.TableOrders, models.OpUpdate, after.Row(), before.Row(), now))
	return after, nil
}

func (s *orderService) Delete(ctx context.Context, id string) error {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.pub.PublishChange(changeEvent(models.TableOrders, models.OpDelete, nil, o.Row(), s.clock.Now()))
	return nil
}

// AppointmentService, randevu iş mantığı.
type AppointmentService interface {
	Create(ctx context.Context, req *models.CreateAppointmentRequest) (*models.Appointment, error)
	UpdateStatus(ctx context.Context, id, status string) (*models.Appointment, error)
	Delete(ctx context.Context, id string) error
}

type appointmentService struct {
	repo  repository.AppointmentRepository
	pub   ws.ChangePublisher
	clock clock.Clock
}

// NewAppointmentService, constructor.
func NewAppointmentService(repo repository.AppointmentRepository, pub ws.ChangePublisher, clk clock.Clock) AppointmentService {
	return &appointmentService{repo: repo, pub: pub, clock: clk}
}

func (s *appointmentService) Create(ctx context.Context, req *models.CreateAppointmentRequest) (*models.Appointment, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	now := s.clock.Now()
	a := &models.Appointment{
		UserID:          req.UserID,
		PetID:           req.PetID,
		AppointmentDate: req.AppointmentDate,
		AppointmentTime: req.AppointmentTime,
		Status:          models.AppointmentPending,
		Notes:           req.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}

	s.pub.PublishChange(changeEvent(models.TableAppointments, models.OpInsert, a.Row(), nil, now))
	return a, nil
}

func (s *appointmentService) UpdateStatus(ctx context.Context, id, status string) (*models.Appointment, error) {
	if !models.ValidAppointmentStatus(status) {
		return nil, fmt.Errorf("%w: invalid appointment status %q", pkg.ErrBadRequest, status)
	}

	before, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if before.Status == status {
		return before, nil
	}

	now := s.clock.Now()
	after, err := s.repo.UpdateStatus(ctx, id, status, now)
	if err != nil {
		return nil, err
	}

	s.pub.PublishChange(changeEvent(models.TableAppointments, models.OpUpdate, after.Row(), before.Row(), now))
	return after, nil
}

func (s *appointmentService) Delete(ctx context.Context, id string) error {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.pub.PublishChange(changeEvent(models.TableAppointments, models.OpDelete, nil, a.Row(), s.clock.Now()))
	return nil
}
