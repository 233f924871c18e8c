// Package order provides checkout and order query business logic.
package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rbxmart/rbxmart/config"
	"github.com/rbxmart/rbxmart/pkg/domain"
	domainorder "github.com/rbxmart/rbxmart/pkg/domain/order"
	"github.com/rbxmart/rbxmart/pkg/dto"
	"github.com/rbxmart/rbxmart/pkg/provider"
	"github.com/rbxmart/rbxmart/pkg/repository"
)

// Service provides checkout and order operations.
type Service struct {
	uow     repository.UnitOfWork
	client  provider.RobloxClient
	gateway provider.PaymentGateway
	cache   provider.GamepassCache
	cfg     config.RobloxConfig
	logger  *slog.Logger
}

// New creates an order Service.
func New(
	uow repository.UnitOfWork,
	client provider.RobloxClient,
	gateway provider.PaymentGateway,
	cache provider.GamepassCache,
	cfg config.RobloxConfig,
	logger *slog.Logger,
) *Service {
	return &Service{
		uow:     uow,
		client:  client,
		gateway: gateway,
		cache:   cache,
		cfg:     cfg,
		logger:  logger,
	}
}

// CheckoutInput is the customer's checkout request.
type CheckoutInput struct {
	CustomerEmail string
	ServiceType   domainorder.ServiceType
	Category      domainorder.ServiceCategory
	GamepassID    int64
	// Price is the quoted price for manual (joki) orders; gamepass orders
	// take their price from the platform lookup.
	Price int64
}

// CheckoutResult is handed back to the customer to complete payment.
type CheckoutResult struct {
	Order      *dto.OrderRead
	PaymentURL string
}

// Checkout creates an order in waiting_payment and opens a gateway payment
// session for it.
func (s *Service) Checkout(ctx context.Context, in CheckoutInput) (*CheckoutResult, error) {
	var gp *domainorder.GamepassProduct
	price := in.Price
	if in.Category == domainorder.CategoryGamepass {
		var err error
		gp, err = s.LookupGamepass(ctx, in.GamepassID)
		if err != nil {
			return nil, err
		}
		price = gp.Price
		if err := s.ensureStock(ctx, price); err != nil {
			return nil, err
		}
	}

	o, err := domainorder.New(
		newInvoiceCode(), in.CustomerEmail, in.ServiceType, in.Category, price, gp)
	if err != nil {
		return nil, err
	}

	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.OrderRepository()
		if err != nil {
			return err
		}
		return repo.Create(ctx, dto.OrderCreate{
			ID:            o.ID,
			InvoiceCode:   o.InvoiceCode,
			CustomerEmail: o.CustomerEmail,
			ServiceType:   o.ServiceType,
			Category:      o.Category,
			Price:         o.Price,
			PaymentStatus: o.PaymentStatus,
			Status:        o.Status,
			Gamepass:      o.Gamepass,
			StatusHistory: o.StatusHistory,
		})
	})
	if err != nil {
		return nil, err
	}

	session, err := s.gateway.CreateSession(ctx, o.InvoiceCode, o.Price, o.CustomerEmail)
	if err != nil {
		s.logger.Error("payment session creation failed",
			"invoice_code", o.InvoiceCode, "error", err)
		return nil, err
	}
	s.logger.Info("order created",
		"invoice_code", o.InvoiceCode,
		"service_type", o.ServiceType,
		"price", o.Price)
	return &CheckoutResult{
		Order:      mapOrderToRead(o),
		PaymentURL: session.RedirectURL,
	}, nil
}

// ensureStock rejects a gamepass checkout the stock pool cannot cover, so
// the customer is not asked to pay for an order that would park immediately.
// Stock is not reserved here; the fulfillment run re-checks before spending.
func (s *Service) ensureStock(ctx context.Context, price int64) error {
	return s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.StockAccountRepository()
		if err != nil {
			return err
		}
		acct, err := repo.FindCheapestSufficient(ctx, price, nil)
		if err != nil {
			return err
		}
		if acct == nil {
			return fmt.Errorf("%w: no active stock account covers %d", domain.ErrInsufficientStock, price)
		}
		return nil
	})
}

// LookupGamepass resolves a gamepass against the platform, serving repeat
// lookups from cache. The upstream call runs under an explicit timeout with
// exponential backoff between attempts.
func (s *Service) LookupGamepass(ctx context.Context, gamepassID int64) (*domainorder.GamepassProduct, error) {
	if gamepassID <= 0 {
		return nil, fmt.Errorf("%w: gamepass id is required", domain.ErrValidation)
	}
	if cached, err := s.cache.Get(ctx, gamepassID); err == nil && cached != nil {
		return cached, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.GamepassTimeout)
	defer cancel()

	bo := backoff.NewExponentialBackOff()
	bo.MaxInterval = s.cfg.GamepassMaxDelay
	retries := uint64(0)
	if s.cfg.GamepassMaxRetries > 1 {
		retries = uint64(s.cfg.GamepassMaxRetries - 1)
	}

	var gp *domainorder.GamepassProduct
	err := backoff.Retry(func() error {
		var err error
		gp, err = s.client.Gamepass(ctx, gamepassID)
		if errors.Is(err, domain.ErrNotFound) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(bo, retries), ctx))
	if err != nil {
		s.logger.Warn("gamepass lookup failed", "gamepass_id", gamepassID, "error", err)
		return nil, err
	}

	if err := s.cache.Set(ctx, gp, s.cfg.GamepassCacheTTL); err != nil {
		s.logger.Warn("gamepass cache write failed", "gamepass_id", gamepassID, "error", err)
	}
	return gp, nil
}

// GetByInvoice returns an order by its public invoice code.
func (s *Service) GetByInvoice(ctx context.Context, invoiceCode string) (*dto.OrderRead, error) {
	var o *domainorder.Order
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.OrderRepository()
		if err != nil {
			return err
		}
		o, err = repo.GetByInvoice(ctx, invoiceCode)
		return err
	})
	if err != nil {
		return nil, err
	}
	return mapOrderToRead(o), nil
}

// List returns orders, optionally filtered by status.
func (s *Service) List(ctx context.Context, status domainorder.Status, limit int) ([]*dto.OrderRead, error) {
	var orders []*domainorder.Order
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.OrderRepository()
		if err != nil {
			return err
		}
		orders, err = repo.List(ctx, status, limit)
		return err
	})
	if err != nil {
		return nil, err
	}
	reads := make([]*dto.OrderRead, 0, len(orders))
	for _, o := range orders {
		reads = append(reads, mapOrderToRead(o))
	}
	return reads, nil
}

// ListByStockAccount returns every order fulfilled by the given account.
func (s *Service) ListByStockAccount(ctx context.Context, accountID uuid.UUID) ([]*dto.OrderRead, error) {
	var orders []*domainorder.Order
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.OrderRepository()
		if err != nil {
			return err
		}
		orders, err = repo.ListByStockAccount(ctx, accountID)
		return err
	})
	if err != nil {
		return nil, err
	}
	reads := make([]*dto.OrderRead, 0, len(orders))
	for _, o := range orders {
		reads = append(reads, mapOrderToRead(o))
	}
	return reads, nil
}

// Transition appends a manual status transition to an order. Used by the
// back office for joki orders and for closing out stuck ones.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, status domainorder.Status, note string) (*dto.OrderRead, error) {
	var o *domainorder.Order
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.OrderRepository()
		if err != nil {
			return err
		}
		o, err = repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if o.Status.Terminal() {
			return fmt.Errorf("%w: order %s already %s",
				domain.ErrOrderNotPayable, o.InvoiceCode, o.Status)
		}
		o.AppendStatus(status, note)
		return repo.Update(ctx, id, dto.OrderUpdate{
			Status:        &status,
			AppendHistory: o.StatusHistory[len(o.StatusHistory)-1:],
		})
	})
	if err != nil {
		return nil, err
	}
	return mapOrderToRead(o), nil
}

func newInvoiceCode() string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return fmt.Sprintf("RBX-%s-%s", time.Now().UTC().Format("20060102"), id[:10])
}

func mapOrderToRead(o *domainorder.Order) *dto.OrderRead {
	return &dto.OrderRead{
		ID:            o.ID,
		InvoiceCode:   o.InvoiceCode,
		CustomerEmail: o.CustomerEmail,
		ServiceType:   o.ServiceType,
		Category:      o.Category,
		Price:         o.Price,
		PaymentStatus: o.PaymentStatus,
		Status:        o.Status,
		Gamepass:      o.Gamepass,
		FulfilledBy:   o.FulfilledBy,
		StatusHistory: o.StatusHistory,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}
