// Package infra wires the service to its backing systems.
package infra

import (
	"errors"

	orderrepo "github.com/rbxmart/rbxmart/infra/repository/order"
	stockrepo "github.com/rbxmart/rbxmart/infra/repository/stock"
	"github.com/rbxmart/rbxmart/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewDBConnection opens the Postgres connection and migrates the schema.
func NewDBConnection(cfg config.DBConfig) (*gorm.DB, error) {
	if cfg.Url == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}
	db, err := gorm.Open(postgres.Open(cfg.Url), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&orderrepo.Order{}, &stockrepo.StockAccount{}); err != nil {
		return nil, err
	}
	return db, nil
}
