// Package dto defines the create/read/update shapes passed between
// services, repositories and the web layer.
package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/rbxmart/rbxmart/pkg/domain/order"
)

// OrderCreate carries a new order into the repository.
type OrderCreate struct {
	ID            uuid.UUID
	InvoiceCode   string
	CustomerEmail string
	ServiceType   order.ServiceType
	Category      order.ServiceCategory
	Price         int64
	PaymentStatus order.PaymentStatus
	Status        order.Status
	Gamepass      *order.GamepassProduct
	StatusHistory []order.StatusEntry
}

// OrderUpdate carries partial order mutations. Nil fields are left as-is.
type OrderUpdate struct {
	PaymentStatus *order.PaymentStatus
	Status        *order.Status
	FulfilledBy   *uuid.UUID
	// AppendHistory entries are appended to the status history, never
	// replacing existing ones.
	AppendHistory []order.StatusEntry
}

// OrderRead is the read-optimized order projection.
type OrderRead struct {
	ID            uuid.UUID              `json:"id"`
	InvoiceCode   string                 `json:"invoice_code"`
	CustomerEmail string                 `json:"customer_email,omitempty"`
	ServiceType   order.ServiceType      `json:"service_type"`
	Category      order.ServiceCategory  `json:"category"`
	Price         int64                  `json:"price"`
	PaymentStatus order.PaymentStatus    `json:"payment_status"`
	Status        order.Status           `json:"status"`
	Gamepass      *order.GamepassProduct `json:"gamepass,omitempty"`
	FulfilledBy   *uuid.UUID             `json:"fulfilled_by,omitempty"`
	StatusHistory []order.StatusEntry    `json:"status_history"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}
