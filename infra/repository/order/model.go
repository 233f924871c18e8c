package order

import (
	"time"

	"github.com/google/uuid"
)

// Order is the order database record. The status history is stored as a
// jsonb document and only ever grows; gateway and fulfillment writes append
// with a jsonb concatenation so no path rewrites past entries.
type Order struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	InvoiceCode      string    `gorm:"size:64;not null;uniqueIndex"`
	CustomerEmail    string    `gorm:"size:255"`
	ServiceType      string    `gorm:"size:16;not null"`
	Category         string    `gorm:"size:16;not null"`
	Price            int64     `gorm:"not null"`
	PaymentStatus    string    `gorm:"size:16;not null;default:'pending';index"`
	Status           string    `gorm:"size:24;not null;default:'waiting_payment';index"`
	GamepassID       int64
	GamepassPrice    int64
	GamepassSellerID int64
	GamepassName     string     `gorm:"size:128"`
	FulfilledBy      *uuid.UUID `gorm:"type:uuid;index"`
	StatusHistory    []byte     `gorm:"type:jsonb;not null;default:'[]'"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TableName specifies the table name for the Order model.
func (Order) TableName() string {
	return "orders"
}
