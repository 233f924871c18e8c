// Package fulfillment orchestrates automatic order fulfillment: selecting a
// stock account with enough balance, re-validating it against the platform,
// reserving the balance and executing the gamepass purchase.
package fulfillment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/rbxmart/rbxmart/pkg/domain/order"
	"github.com/rbxmart/rbxmart/pkg/domain/stock"
	"github.com/rbxmart/rbxmart/pkg/dto"
	"github.com/rbxmart/rbxmart/pkg/eventbus"
	"github.com/rbxmart/rbxmart/pkg/provider"
	"github.com/rbxmart/rbxmart/pkg/repository"
)

// Outcome classifies how a fulfillment run ended.
type Outcome string

const (
	// OutcomeCompleted means the purchase went through and the order is
	// done.
	OutcomeCompleted Outcome = "completed"
	// OutcomeDeferred means the run soft-failed: the order was parked in
	// pending for an operator to re-trigger, no error was raised.
	OutcomeDeferred Outcome = "deferred"
)

// Result reports what a fulfillment run did.
type Result struct {
	Outcome        Outcome
	Reason         string
	StockAccountID *uuid.UUID
}

// Service runs the purchase orchestration for paid orders.
type Service struct {
	uow         repository.UnitOfWork
	client      provider.RobloxClient
	bus         eventbus.Bus
	maxAttempts int
	logger      *slog.Logger
}

// New creates a fulfillment Service. maxAttempts is how many stock accounts
// a single run may try before deferring; values below 1 are treated as 1.
func New(
	uow repository.UnitOfWork,
	client provider.RobloxClient,
	bus eventbus.Bus,
	maxAttempts int,
	logger *slog.Logger,
) *Service {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Service{
		uow:         uow,
		client:      client,
		bus:         bus,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// Fulfill runs the purchase flow for one order.
//
// Precondition violations (wrong category, cancelled or otherwise terminal
// order, unpaid order, missing gamepass) return an error without touching
// any stock account. Upstream failures never do: they park the order back
// in pending and return a deferred Result, leaving recovery to the
// operator.
func (s *Service) Fulfill(ctx context.Context, orderID uuid.UUID) (*Result, error) {
	o, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status == order.StatusCompleted {
		return &Result{Outcome: OutcomeCompleted, Reason: "already completed"}, nil
	}
	if err := o.Fulfillable(); err != nil {
		return nil, err
	}

	price := o.Gamepass.Price
	tried := make([]uuid.UUID, 0, s.maxAttempts)
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		acct, err := s.selectAccount(ctx, price, tried)
		if err != nil {
			return nil, err
		}
		if acct == nil {
			return s.park(ctx, o, "no stock account with sufficient balance")
		}
		tried = append(tried, acct.ID)
		log := s.logger.With(
			"invoice_code", o.InvoiceCode,
			"account_id", acct.ID,
			"display_name", acct.DisplayName,
			"attempt", attempt)

		// Balance may have drifted since the selection query: another
		// order or an external withdrawal can spend it in the meantime.
		if err := s.revalidate(ctx, acct); err != nil {
			log.Warn("stock account re-validation failed", "error", err)
			continue
		}
		if !acct.Sufficient(price) {
			log.Warn("stock account no longer sufficient",
				"balance", acct.Balance, "status", acct.Status, "price", price)
			continue
		}

		// Reserve the cached balance. The conditional update is the only
		// thing standing between two concurrent runs and the same funds.
		debited, err := s.debit(ctx, acct.ID, price)
		if err != nil {
			return nil, err
		}
		if !debited {
			log.Warn("balance reservation rejected, account contended")
			continue
		}

		if err := s.client.BuyGamepass(ctx, acct.Credential, *o.Gamepass); err != nil {
			log.Error("gamepass purchase failed", "error", err)
			// Resync the cached balance with the platform so the rejected
			// reservation does not understate the account.
			if rerr := s.revalidate(ctx, acct); rerr != nil {
				log.Warn("post-failure balance resync failed", "error", rerr)
			}
			return s.park(ctx, o, "purchase failed, awaiting retry")
		}

		if err := s.complete(ctx, o, acct); err != nil {
			return nil, err
		}
		// Refresh the post-purchase balance; failure here is cosmetic.
		if err := s.revalidate(ctx, acct); err != nil {
			log.Warn("post-purchase balance refresh failed", "error", err)
		}
		log.Info("order fulfilled", "price", price)
		if err := s.bus.Publish(ctx, order.CompletedEvent{
			OrderID:        o.ID,
			InvoiceCode:    o.InvoiceCode,
			StockAccountID: acct.ID,
		}); err != nil {
			log.Warn("completed event publish failed", "error", err)
		}
		id := acct.ID
		return &Result{Outcome: OutcomeCompleted, StockAccountID: &id}, nil
	}

	return s.park(ctx, o, fmt.Sprintf("no usable stock account after %d attempt(s)", len(tried)))
}

func (s *Service) getOrder(ctx context.Context, id uuid.UUID) (o *order.Order, err error) {
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.OrderRepository()
		if err != nil {
			return err
		}
		o, err = repo.Get(ctx, id)
		return err
	})
	return
}

// selectAccount picks the active account with the least sufficient balance,
// conserving high-balance accounts for larger orders.
func (s *Service) selectAccount(ctx context.Context, price int64, exclude []uuid.UUID) (acct *stock.Account, err error) {
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.StockAccountRepository()
		if err != nil {
			return err
		}
		acct, err = repo.FindCheapestSufficient(ctx, price, exclude)
		return err
	})
	return
}

// revalidate refreshes acct from the platform and persists the result. The
// record is not mutated when the identity call rejects the credential.
func (s *Service) revalidate(ctx context.Context, acct *stock.Account) error {
	identity, err := s.client.Authenticated(ctx, acct.Credential)
	if err != nil {
		return err
	}
	balance, err := s.client.Balance(ctx, acct.Credential)
	if err != nil {
		return err
	}
	acct.Refresh(identity.ExternalID, identity.DisplayName, balance)
	return s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.StockAccountRepository()
		if err != nil {
			return err
		}
		return repo.Update(ctx, acct.ID, dto.StockAccountUpdate{
			ExternalAccountID: &acct.ExternalAccountID,
			DisplayName:       &acct.DisplayName,
			Balance:           &acct.Balance,
			LastCheckedAt:     &acct.LastCheckedAt,
		})
	})
}

func (s *Service) debit(ctx context.Context, id uuid.UUID, amount int64) (ok bool, err error) {
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.StockAccountRepository()
		if err != nil {
			return err
		}
		ok, err = repo.DebitBalance(ctx, id, amount)
		return err
	})
	return
}

// park parks the order in pending for manual recovery and reports a
// deferred result. Soft fail: the caller gets no error.
func (s *Service) park(ctx context.Context, o *order.Order, note string) (*Result, error) {
	o.AppendStatus(order.StatusPending, note)
	status := order.StatusPending
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.OrderRepository()
		if err != nil {
			return err
		}
		return repo.Update(ctx, o.ID, dto.OrderUpdate{
			Status:        &status,
			AppendHistory: o.StatusHistory[len(o.StatusHistory)-1:],
		})
	})
	if err != nil {
		return nil, err
	}
	s.logger.Warn("order fulfillment deferred", "invoice_code", o.InvoiceCode, "reason", note)
	return &Result{Outcome: OutcomeDeferred, Reason: note}, nil
}

func (s *Service) complete(ctx context.Context, o *order.Order, acct *stock.Account) error {
	note := fmt.Sprintf("fulfilled by %s", acct.DisplayName)
	o.FulfilledBy = &acct.ID
	o.AppendStatus(order.StatusCompleted, note)
	status := order.StatusCompleted
	return s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.OrderRepository()
		if err != nil {
			return err
		}
		return repo.Update(ctx, o.ID, dto.OrderUpdate{
			Status:        &status,
			FulfilledBy:   &acct.ID,
			AppendHistory: o.StatusHistory[len(o.StatusHistory)-1:],
		})
	})
}
