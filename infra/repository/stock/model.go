package stock

import (
	"time"

	"github.com/google/uuid"
)

// StockAccount is the stock account database record. The credential column
// holds the platform cookie as-is; access to this table is the trust
// boundary.
type StockAccount struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	ExternalAccountID int64     `gorm:"index"`
	DisplayName       string    `gorm:"size:64"`
	Credential        string    `gorm:"not null"`
	Balance           int64     `gorm:"not null;default:0"`
	Status            string    `gorm:"size:16;not null;default:'active';index"`
	LastCheckedAt     time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// TableName specifies the table name for the StockAccount model.
func (StockAccount) TableName() string {
	return "stock_accounts"
}
