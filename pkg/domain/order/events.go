package order

import "github.com/google/uuid"

// PaidEvent is published when a gateway notification settles an order's
// payment. Subscribers trigger fulfillment and the confirmation email.
type PaidEvent struct {
	OrderID     uuid.UUID
	InvoiceCode string
}

// Type implements domain.Event.
func (PaidEvent) Type() string { return "order.paid" }

// CompletedEvent is published when fulfillment finishes an order.
type CompletedEvent struct {
	OrderID        uuid.UUID
	InvoiceCode    string
	StockAccountID uuid.UUID
}

// Type implements domain.Event.
func (CompletedEvent) Type() string { return "order.completed" }
