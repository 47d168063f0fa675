package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/akinalp/adminpulse/database"
	"github.com/akinalp/adminpulse/models"
	"github.com/akinalp/adminpulse/pkg"
)

type sqliteOrderRepo struct {
	db database.TxQuerier
}

// NewSQLiteOrderRepo, constructor: interface döner.
func NewSQLiteOrderRepo(db database.TxQuerier) OrderRepository {
	return &sqliteOrderRepo{db: db}
}

const orderColumns = `id, user_id, status, total_amount, notes, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (*models.Order, error) {
	o := &models.Order{}
	var notes sql.NullString
	if err := row.Scan(&o.ID, &o.UserID, &o.Status, &o.TotalAmount, &notes,
		scanTime(&o.CreatedAt), scanTime(&o.UpdatedAt)); err != nil {
		return nil, err
	}
	if notes.Valid {
		o.Notes = &notes.String
	}
	return o, nil
}

func (r *sqliteOrderRepo) Create(ctx context.Context, o *models.Order) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO orders (`+orderColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.UserID, o.Status, o.TotalAmount, o.Notes, ts(o.CreatedAt), ts(o.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (r *sqliteOrderRepo) GetByID(ctx context.Context, id string) (*models.Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return o, nil
}

func (r *sqliteOrderRepo) UpdateStatus(ctx context.Context, id, status string, at time.Time) (*models.Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, `
		UPDATE orders SET status = ?, updated_at = ? WHERE id = ?
		RETURNING `+orderColumns, status, ts(at), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update order: %w", err)
	}
	return o, nil
}

func (r *sqliteOrderRepo) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.db, "orders", id)
}

type sqliteAppointmentRepo struct {
	db database.TxQuerier
}

// NewSQLiteAppointmentRepo, constructor: interface döner.
func NewSQLiteAppointmentRepo(db database.TxQuerier) AppointmentRepository {
	return &sqliteAppointmentRepo{db: db}
}

const appointmentColumns = `id, user_id, pet_id, appointment_date, appointment_time, status, notes, created_at, updated_at`

func scanAppointment(row interface{ Scan(...any) error }) (*models.Appointment, error) {
	a := &models.Appointment{}
	var notes sql.NullString
	if err := row.Scan(&a.ID, &a.UserID, &a.PetID, &a.AppointmentDate, &a.AppointmentTime, &a.Status, &notes,
		scanTime(&a.CreatedAt), scanTime(&a.UpdatedAt)); err != nil {
		return nil, err
	}
	if notes.Valid {
		a.Notes = &notes.String
	}
	return a, nil
}

func (r *sqliteAppointmentRepo) Create(ctx context.Context, a *models.Appointment) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO appointments (`+appointmentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.PetID, a.AppointmentDate, a.AppointmentTime, a.Status, a.Notes,
		ts(a.CreatedAt), ts(a.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

func (r *sqliteAppointmentRepo) GetByID(ctx context.Context, id string) (*models.Appointment, error) {
	a, err := scanAppointment(r.db.QueryRowContext(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return a, nil
}

func (r *sqliteAppointmentRepo) UpdateStatus(ctx context.Context, id, status string, at time.Time) (*models.Appointment, error) {
	a, err := scanAppointment(r.db.QueryRowContext(ctx, `
		UPDATE appointments SET status = ?, updated_at = ? WHERE id = ?
		RETURNING `+appointmentColumns, status, ts(at), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update appointment: %w", err)
	}
	return a, nil
}

func (r *sqliteAppointmentRepo) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.db, "appointments", id)
}
