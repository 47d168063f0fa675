// Package repository, veritabanı erişim katmanını tanımlar.
//
// Service katmanı doğrudan SQL yazmaz: entity başına bir repository interface'i
// üzerinden çalışır (sqlite_*.go implementasyonları). Realtime katmanının okuma
// sorguları ise tipli repository'ler yerine TableQuerier'dan geçer.
package repository

import (
	"context"

	"github.com/akinalp/adminpulse/models"
)

// AdminRepository, yönetici hesapları.
type AdminRepository interface {
	Create(ctx context.Context, admin *models.AdminUser) error
	GetByID(ctx context.Context, id string) (*models.AdminUser, error)
	GetByEmail(ctx context.Context, email string) (*models.AdminUser, error)
	Count(ctx context.Context) (int, error)
}
