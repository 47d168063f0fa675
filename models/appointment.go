package models

import (
	"fmt"
	"time"
)

// Randevu durumları. Sadece Pending ve bugün veya sonrası olanlar
// "yaklaşan randevu" sayacına girer.
const (
	AppointmentPending   = "Pending"
	AppointmentConfirmed = "Confirmed"
	AppointmentCompleted = "Completed"
	AppointmentCancelled = "Cancelled"
)

// DateLayout, appointment_date kolonunun formatı (sadece tarih).
const DateLayout = "2006-01-02"

// Appointment, appointments tablosundaki bir randevu.
type Appointment struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	PetID           string    `json:"pet_id"`
	AppointmentDate string    `json:"appointment_date"` // YYYY-MM-DD
	AppointmentTime string    `json:"appointment_time"` // HH:MM
	Status          string    `json:"status"`
	Notes           *string   `json:"notes"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Row, randevuyu change event payload'ına çevirir.
func (a *Appointment) Row() Row {
	row := Row{
		"id":               a.ID,
		"user_id":          a.UserID,
		"pet_id":           a.PetID,
		"appointment_date": a.AppointmentDate,
		"appointment_time": a.AppointmentTime,
		"status":           a.Status,
		"notes":            nil,
		"created_at":       FormatTimestamp(a.CreatedAt),
		"updated_at":       FormatTimestamp(a.UpdatedAt),
	}
	if a.Notes != nil {
		row["notes"] = *a.Notes
	}
	return row
}

// CreateAppointmentRequest, yeni randevu isteği.
type CreateAppointmentRequest struct {
	UserID          string  `json:"user_id"`
	PetID           string  `json:"pet_id"`
	AppointmentDate string  `json:"appointment_date"`
	AppointmentTime string  `json:"appointment_time"`
	Notes           *string `json:"notes"`
}

// Validate, tarih/saat formatını kontrol eder.
func (r *CreateAppointmentRequest) Validate() error {
	if r.UserID == "" || r.PetID == "" {
		return fmt.Errorf("user_id and pet_id are required")
	}
	if _, err := time.Parse(DateLayout, r.AppointmentDate); err != nil {
		return fmt.Errorf("appointment_date must be YYYY-MM-DD")
	}
	if _, err := time.Parse("15:04", r.AppointmentTime); err != nil {
		return fmt.Errorf("appointment_time must be HH:MM")
	}
	return nil
}

// ValidAppointmentStatus, durumun bilinen randevu durumlarından biri olup olmadığını döner.
func ValidAppointmentStatus(s string) bool {
	switch s {
	case AppointmentPending, AppointmentConfirmed, AppointmentCompleted, AppointmentCancelled:
		return true
	}
	return false
}
