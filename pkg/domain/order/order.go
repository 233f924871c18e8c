// Package order holds the order aggregate: the customer-facing transaction
// record, its payment/fulfillment status machine and the append-only status
// history used as the audit trail.
package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rbxmart/rbxmart/pkg/domain"
)

// ServiceType identifies what the customer is buying.
type ServiceType string

const (
	// ServiceTypeRobux is an in-game currency top-up order.
	ServiceTypeRobux ServiceType = "robux"
	// ServiceTypeJoki is a boosting/account service order.
	ServiceTypeJoki ServiceType = "joki"
)

// ServiceCategory identifies how an order is fulfilled.
type ServiceCategory string

const (
	// CategoryGamepass orders are fulfilled automatically by buying a
	// gamepass from a stock account.
	CategoryGamepass ServiceCategory = "gamepass"
	// CategoryManual orders are fulfilled by an operator.
	CategoryManual ServiceCategory = "manual"
)

// PaymentStatus mirrors the payment gateway's view of the order.
type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentSettlement PaymentStatus = "settlement"
	PaymentExpired    PaymentStatus = "expired"
	PaymentCancelled  PaymentStatus = "cancelled"
	PaymentFailed     PaymentStatus = "failed"
)

// Status is the fulfillment state of the order.
type Status string

const (
	StatusWaitingPayment Status = "waiting_payment"
	StatusPending        Status = "pending"
	StatusProcessing     Status = "processing"
	StatusCompleted      Status = "completed"
	StatusCancelled      Status = "cancelled"
	StatusFailed         Status = "failed"
)

// Terminal reports whether no further transitions are expected.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusFailed
}

// GamepassProduct is the target item descriptor for an automatic purchase.
type GamepassProduct struct {
	ID       int64  `json:"id"`
	Price    int64  `json:"price"`
	SellerID int64  `json:"seller_id"`
	Name     string `json:"name"`
}

// StatusEntry is a single append-only status history record.
type StatusEntry struct {
	Status    Status    `json:"status"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Order is the customer transaction being paid for and fulfilled.
type Order struct {
	ID            uuid.UUID
	InvoiceCode   string
	CustomerEmail string
	ServiceType   ServiceType
	Category      ServiceCategory
	Price         int64
	PaymentStatus PaymentStatus
	Status        Status
	Gamepass      *GamepassProduct
	// FulfilledBy references the stock account that completed the order.
	FulfilledBy   *uuid.UUID
	StatusHistory []StatusEntry
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// New creates an order in the waiting_payment state with its first history
// entry already appended.
func New(
	invoiceCode, customerEmail string,
	serviceType ServiceType,
	category ServiceCategory,
	price int64,
	gamepass *GamepassProduct,
) (*Order, error) {
	if strings.TrimSpace(invoiceCode) == "" {
		return nil, fmt.Errorf("%w: invoice code is required", domain.ErrValidation)
	}
	if price <= 0 {
		return nil, fmt.Errorf("%w: price must be positive", domain.ErrValidation)
	}
	if category == CategoryGamepass && gamepass == nil {
		return nil, fmt.Errorf("%w: gamepass orders need a target gamepass", domain.ErrValidation)
	}
	o := &Order{
		ID:            uuid.New(),
		InvoiceCode:   invoiceCode,
		CustomerEmail: customerEmail,
		ServiceType:   serviceType,
		Category:      category,
		Price:         price,
		PaymentStatus: PaymentPending,
		Status:        StatusWaitingPayment,
		Gamepass:      gamepass,
		CreatedAt:     time.Now().UTC(),
	}
	o.AppendStatus(StatusWaitingPayment, "order created")
	return o, nil
}

// AppendStatus records a transition. History entries are only ever appended,
// never rewritten.
func (o *Order) AppendStatus(status Status, note string) {
	o.Status = status
	o.StatusHistory = append(o.StatusHistory, StatusEntry{
		Status:    status,
		Note:      note,
		CreatedAt: time.Now().UTC(),
	})
}

// ApplyGateway applies a mapped gateway notification to the order. A stale
// or replayed notification must not drag a paid order back to
// waiting_payment, so the order status only moves backwards when the
// payment itself failed. The same holds for the payment view: a late
// "pending" cannot undo settlement.
func (o *Order) ApplyGateway(ps PaymentStatus, status Status, note string) {
	if o.PaymentStatus != PaymentSettlement || ps != PaymentPending {
		o.PaymentStatus = ps
	}
	if status == StatusWaitingPayment &&
		(o.Status == StatusProcessing || o.Status == StatusCompleted || o.Status == StatusPending) {
		return
	}
	if o.Status == StatusCompleted && status != StatusCompleted {
		return
	}
	o.AppendStatus(status, note)
}

// Fulfillable reports whether the orchestrator may act on this order, with
// the violated precondition as the reason when it may not.
func (o *Order) Fulfillable() error {
	if o.Category != CategoryGamepass {
		return fmt.Errorf("%w: order %s is %s, not an automatic gamepass order",
			domain.ErrValidation, o.InvoiceCode, o.Category)
	}
	if o.Status.Terminal() {
		return fmt.Errorf("%w: order %s is already %s",
			domain.ErrOrderNotPayable, o.InvoiceCode, o.Status)
	}
	if o.PaymentStatus != PaymentSettlement {
		return fmt.Errorf("%w: order %s payment status is %s",
			domain.ErrOrderNotPayable, o.InvoiceCode, o.PaymentStatus)
	}
	if o.Gamepass == nil || o.Gamepass.ID == 0 {
		return fmt.Errorf("%w: order %s has no target gamepass",
			domain.ErrValidation, o.InvoiceCode)
	}
	return nil
}
