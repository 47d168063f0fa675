package models

import (
	"fmt"
	"time"
)

// Sipariş durumları. Pending ve Preparing "bekleyen sipariş" sayacına girer.
const (
	OrderPending   = "Pending"
	OrderPreparing = "Preparing"
	OrderShipped   = "Shipped"
	OrderDelivered = "Delivered"
	OrderCancelled = "Cancelled"
)

// Order, orders tablosundaki bir sipariş.
type Order struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Status      string    `json:"status"`
	TotalAmount float64   `json:"total_amount"`
	Notes       *string   `json:"notes"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Row, siparişi change event payload'ına çevirir.
func (o *Order) Row() Row {
	row := Row{
		"id":           o.ID,
		"user_id":      o.UserID,
		"status":       o.Status,
		"total_amount": o.TotalAmount,
		"notes":        nil,
		"created_at":   FormatTimestamp(o.CreatedAt),
		"updated_at":   FormatTimestamp(o.UpdatedAt),
	}
	if o.Notes != nil {
		row["notes"] = *o.Notes
	}
	return row
}

// CreateOrderRequest, yeni sipariş isteği.
type CreateOrderRequest struct {
	UserID      string  `json:"user_id"`
	TotalAmount float64 `json:"total_amount"`
	Notes       *string `json:"notes"`
}

// Validate, kullanıcı ve tutarı kontrol eder.
func (r *CreateOrderRequest) Validate() error {
	if r.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if r.TotalAmount < 0 {
		return fmt.Errorf("total_amount cannot be negative")
	}
	return nil
}

// UpdateStatusRequest, sipariş ve randevu durum güncellemelerinde ortak body.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// ValidOrderStatus, durumun bilinen sipariş durumlarından biri olup olmadığını döner.
func ValidOrderStatus(s string) bool {
	switch s {
	case OrderPending, OrderPreparing, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}
