// Package payment processes payment gateway notifications: signature
// verification, status mapping and the settlement side effects.
package payment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rbxmart/rbxmart/pkg/domain"
	"github.com/rbxmart/rbxmart/pkg/domain/order"
	"github.com/rbxmart/rbxmart/pkg/dto"
	"github.com/rbxmart/rbxmart/pkg/eventbus"
	"github.com/rbxmart/rbxmart/pkg/provider"
	"github.com/rbxmart/rbxmart/pkg/repository"
)

// Notification is an inbound gateway webhook payload.
type Notification struct {
	OrderID           string
	StatusCode        string
	GrossAmount       string
	SignatureKey      string
	TransactionStatus string
	FraudStatus       string
	PaymentType       string
}

// Service applies gateway notifications to orders.
type Service struct {
	uow      repository.UnitOfWork
	gateway  provider.PaymentGateway
	notifier provider.Notifier
	bus      eventbus.Bus
	logger   *slog.Logger
}

// New creates a payment Service.
func New(
	uow repository.UnitOfWork,
	gateway provider.PaymentGateway,
	notifier provider.Notifier,
	bus eventbus.Bus,
	logger *slog.Logger,
) *Service {
	return &Service{
		uow:      uow,
		gateway:  gateway,
		notifier: notifier,
		bus:      bus,
		logger:   logger,
	}
}

// HandleNotification verifies and applies one gateway notification.
//
// A bad signature or an unknown status combination returns an error before
// any order is mutated. The confirmation email only fires on the first
// transition into settlement; replays re-append history (kept for audit)
// but never re-send the email or re-publish the paid event.
func (s *Service) HandleNotification(ctx context.Context, n Notification) (*order.Order, error) {
	if !s.gateway.VerifySignature(n.OrderID, n.StatusCode, n.GrossAmount, n.SignatureKey) {
		s.logger.Warn("webhook signature mismatch", "order_id", n.OrderID)
		return nil, fmt.Errorf("%w: webhook signature mismatch", domain.ErrUnauthorized)
	}

	ps, status, ok := order.MapGatewayStatus(n.TransactionStatus, n.FraudStatus)
	if !ok {
		return nil, fmt.Errorf("%w: unknown transaction status %q (fraud %q)",
			domain.ErrValidation, n.TransactionStatus, n.FraudStatus)
	}

	var o *order.Order
	var settledNow bool
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.OrderRepository()
		if err != nil {
			return err
		}
		o, err = repo.GetByInvoice(ctx, n.OrderID)
		if err != nil {
			return err
		}

		oldPaymentStatus := o.PaymentStatus
		before := len(o.StatusHistory)
		o.ApplyGateway(ps, status, fmt.Sprintf("payment %s via %s", n.TransactionStatus, n.PaymentType))
		settledNow = ps == order.PaymentSettlement && oldPaymentStatus != order.PaymentSettlement

		// ApplyGateway may refuse the mapped payment status (a late pending
		// after settlement); persist what the aggregate accepted.
		applied := o.PaymentStatus
		update := dto.OrderUpdate{PaymentStatus: &applied}
		if len(o.StatusHistory) > before {
			st := o.Status
			update.Status = &st
			update.AppendHistory = o.StatusHistory[before:]
		}
		return repo.Update(ctx, o.ID, update)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("gateway notification applied",
		"invoice_code", o.InvoiceCode,
		"transaction_status", n.TransactionStatus,
		"fraud_status", n.FraudStatus,
		"payment_status", o.PaymentStatus,
		"order_status", o.Status)

	if settledNow {
		if err := s.notifier.PaymentConfirmed(ctx, o.CustomerEmail, o.InvoiceCode, o.Price); err != nil {
			s.logger.Error("confirmation email failed",
				"invoice_code", o.InvoiceCode, "error", err)
		}
		if err := s.bus.Publish(ctx, order.PaidEvent{
			OrderID:     o.ID,
			InvoiceCode: o.InvoiceCode,
		}); err != nil {
			s.logger.Error("paid event publish failed",
				"invoice_code", o.InvoiceCode, "error", err)
		}
	}
	return o, nil
}
