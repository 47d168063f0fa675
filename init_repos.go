// Package main: Repository katmanı başlatma.
//
// initRepositories, tüm repository implementasyonlarını oluşturur.
// Her repository aynı *sql.DB'yi alır ve interface döner.
package main

import (
	"database/sql"

	"github.com/akinalp/adminpulse/repository"
)

// Repositories, tüm repository instance'larını tutan container struct.
type Repositories struct {
	Admin        repository.AdminRepository
	Notification repository.NotificationRepository
	Order        repository.OrderRepository
	Appointment  repository.AppointmentRepository
}

// initRepositories, veritabanı bağlantısından repository'leri oluşturur.
// Konuşma ve mesaj repository'leri ConversationService içinde kurulur; mesaj
// ekleme transaction'ı onları *sql.Tx ile yeniden oluşturur.
func initRepositories(conn *sql.DB) *Repositories {
	return &Repositories{
		Admin:        repository.NewSQLiteAdminRepo(conn),
		Notification: repository.NewSQLiteNotificationRepo(conn),
		Order:        repository.NewSQLiteOrderRepo(conn),
		Appointment:  repository.NewSQLiteAppointmentRepo(conn),
	}
}
