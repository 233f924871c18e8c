// Package repository provides the GORM-backed UnitOfWork binding repository
// access to a shared transaction session.
package repository

import (
	"context"

	orderrepo "github.com/rbxmart/rbxmart/infra/repository/order"
	stockrepo "github.com/rbxmart/rbxmart/infra/repository/stock"
	"github.com/rbxmart/rbxmart/pkg/repository"
	"gorm.io/gorm"
)

// UoW implements repository.UnitOfWork on *gorm.DB. Repositories obtained
// inside Do share the transaction session, so a fulfillment write and its
// history append commit or roll back together.
type UoW struct {
	db *gorm.DB
	tx *gorm.DB
}

// NewUoW creates a UoW for the given *gorm.DB.
func NewUoW(db *gorm.DB) *UoW {
	return &UoW{db: db}
}

// Do runs fn inside a transaction boundary.
func (u *UoW) Do(ctx context.Context, fn func(uow repository.UnitOfWork) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&UoW{db: u.db, tx: tx})
	})
}

func (u *UoW) session() *gorm.DB {
	if u.tx != nil {
		return u.tx
	}
	return u.db
}

// OrderRepository implements repository.UnitOfWork.
func (u *UoW) OrderRepository() (repository.OrderRepository, error) {
	return orderrepo.New(u.session()), nil
}

// StockAccountRepository implements repository.UnitOfWork.
func (u *UoW) StockAccountRepository() (repository.StockAccountRepository, error) {
	return stockrepo.New(u.session()), nil
}
