package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/rbxmart/rbxmart/pkg/domain/stock"
)

// StockAccountCreate carries a new stock account into the repository.
type StockAccountCreate struct {
	ID                uuid.UUID
	ExternalAccountID int64
	DisplayName       string
	Credential        string
	Balance           int64
	Status            stock.Status
	LastCheckedAt     time.Time
}

// StockAccountUpdate carries partial stock account mutations.
type StockAccountUpdate struct {
	ExternalAccountID *int64
	DisplayName       *string
	Balance           *int64
	Status            *stock.Status
	LastCheckedAt     *time.Time
}

// StockAccountRead is the admin-facing projection. The stored credential is
// deliberately absent; it never leaves the service layer.
type StockAccountRead struct {
	ID                uuid.UUID    `json:"id"`
	ExternalAccountID int64        `json:"external_account_id"`
	DisplayName       string       `json:"display_name"`
	Balance           int64        `json:"balance"`
	Status            stock.Status `json:"status"`
	LastCheckedAt     time.Time    `json:"last_checked_at"`
	CreatedAt         time.Time    `json:"created_at"`
}
