// Package repository defines the data access contracts implemented by the
// infra layer and consumed by services through a UnitOfWork.
package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/rbxmart/rbxmart/pkg/domain/order"
	"github.com/rbxmart/rbxmart/pkg/domain/stock"
	"github.com/rbxmart/rbxmart/pkg/dto"
)

// OrderRepository defines order data access operations.
type OrderRepository interface {
	Create(ctx context.Context, create dto.OrderCreate) error
	Get(ctx context.Context, id uuid.UUID) (*order.Order, error)
	GetByInvoice(ctx context.Context, invoiceCode string) (*order.Order, error)
	List(ctx context.Context, status order.Status, limit int) ([]*order.Order, error)
	// ListByStockAccount returns orders fulfilled by the given stock
	// account, via the structured FulfilledBy reference.
	ListByStockAccount(ctx context.Context, accountID uuid.UUID) ([]*order.Order, error)
	Update(ctx context.Context, id uuid.UUID, update dto.OrderUpdate) error
}

// StockAccountRepository defines stock account data access operations.
type StockAccountRepository interface {
	Create(ctx context.Context, create dto.StockAccountCreate) error
	Get(ctx context.Context, id uuid.UUID) (*stock.Account, error)
	List(ctx context.Context) ([]*stock.Account, error)
	Update(ctx context.Context, id uuid.UUID, update dto.StockAccountUpdate) error
	Delete(ctx context.Context, id uuid.UUID) error

	// FindCheapestSufficient returns the active account with the smallest
	// balance still covering price, excluding the given IDs. Ascending
	// balance conserves high-balance accounts for large orders. Returns
	// (nil, nil) when no account qualifies.
	FindCheapestSufficient(ctx context.Context, price int64, exclude []uuid.UUID) (*stock.Account, error)

	// DebitBalance atomically decrements the cached balance, but only if
	// the stored balance still covers amount at write time. Returns false
	// when the conditional update is rejected.
	DebitBalance(ctx context.Context, id uuid.UUID, amount int64) (bool, error)
}
