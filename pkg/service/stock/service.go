// Package stock provides business logic for managing the pool of stock
// accounts: registering credentials, refreshing cached balances against the
// platform and toggling availability.
package stock

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/rbxmart/rbxmart/pkg/domain/stock"
	"github.com/rbxmart/rbxmart/pkg/dto"
	"github.com/rbxmart/rbxmart/pkg/provider"
	"github.com/rbxmart/rbxmart/pkg/repository"
)

// Service manages stock accounts.
type Service struct {
	uow    repository.UnitOfWork
	client provider.RobloxClient
	logger *slog.Logger
}

// New creates a stock Service.
func New(
	uow repository.UnitOfWork,
	client provider.RobloxClient,
	logger *slog.Logger,
) *Service {
	return &Service{uow: uow, client: client, logger: logger}
}

// AddAccount validates a credential against the platform and registers the
// account it belongs to. The credential is rejected before anything is
// persisted.
func (s *Service) AddAccount(
	ctx context.Context,
	credential string,
) (*dto.StockAccountRead, error) {
	acct, err := stock.New(credential)
	if err != nil {
		return nil, err
	}
	identity, err := s.client.Authenticated(ctx, credential)
	if err != nil {
		s.logger.Warn("stock account credential rejected",
			"credential", stock.MaskedCredential(credential), "error", err)
		return nil, err
	}
	balance, err := s.client.Balance(ctx, credential)
	if err != nil {
		return nil, err
	}
	acct.Refresh(identity.ExternalID, identity.DisplayName, balance)

	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.StockAccountRepository()
		if err != nil {
			return err
		}
		return repo.Create(ctx, dto.StockAccountCreate{
			ID:                acct.ID,
			ExternalAccountID: acct.ExternalAccountID,
			DisplayName:       acct.DisplayName,
			Credential:        acct.Credential,
			Balance:           acct.Balance,
			Status:            acct.Status,
			LastCheckedAt:     acct.LastCheckedAt,
		})
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("stock account registered",
		"account_id", acct.ID,
		"external_account_id", acct.ExternalAccountID,
		"display_name", acct.DisplayName,
		"balance", acct.Balance)
	return mapAccountToRead(acct), nil
}

// Validate refreshes the cached identity and balance of one account. On an
// invalid credential the record is left untouched and
// domain.ErrCredentialInvalid is returned; no retry happens at this layer.
func (s *Service) Validate(
	ctx context.Context,
	id uuid.UUID,
) (*dto.StockAccountRead, error) {
	var acct *stock.Account
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.StockAccountRepository()
		if err != nil {
			return err
		}
		acct, err = repo.Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	identity, err := s.client.Authenticated(ctx, acct.Credential)
	if err != nil {
		return nil, err
	}
	balance, err := s.client.Balance(ctx, acct.Credential)
	if err != nil {
		return nil, err
	}
	acct.Refresh(identity.ExternalID, identity.DisplayName, balance)

	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.StockAccountRepository()
		if err != nil {
			return err
		}
		return repo.Update(ctx, id, dto.StockAccountUpdate{
			ExternalAccountID: &acct.ExternalAccountID,
			DisplayName:       &acct.DisplayName,
			Balance:           &acct.Balance,
			LastCheckedAt:     &acct.LastCheckedAt,
		})
	})
	if err != nil {
		return nil, err
	}
	return mapAccountToRead(acct), nil
}

// ListAccounts returns every stock account, credentials excluded.
func (s *Service) ListAccounts(ctx context.Context) ([]*dto.StockAccountRead, error) {
	var accts []*stock.Account
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.StockAccountRepository()
		if err != nil {
			return err
		}
		accts, err = repo.List(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	reads := make([]*dto.StockAccountRead, 0, len(accts))
	for _, a := range accts {
		reads = append(reads, mapAccountToRead(a))
	}
	return reads, nil
}

// SetStatus activates or deactivates an account for selection.
func (s *Service) SetStatus(ctx context.Context, id uuid.UUID, status stock.Status) error {
	return s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.StockAccountRepository()
		if err != nil {
			return err
		}
		if _, err := repo.Get(ctx, id); err != nil {
			return err
		}
		return repo.Update(ctx, id, dto.StockAccountUpdate{Status: &status})
	})
}

// DeleteAccount removes an account from the pool.
func (s *Service) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	return s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.StockAccountRepository()
		if err != nil {
			return err
		}
		if _, err := repo.Get(ctx, id); err != nil {
			return err
		}
		return repo.Delete(ctx, id)
	})
}

func mapAccountToRead(a *stock.Account) *dto.StockAccountRead {
	return &dto.StockAccountRead{
		ID:                a.ID,
		ExternalAccountID: a.ExternalAccountID,
		DisplayName:       a.DisplayName,
		Balance:           a.Balance,
		Status:            a.Status,
		LastCheckedAt:     a.LastCheckedAt,
		CreatedAt:         a.CreatedAt,
	}
}
