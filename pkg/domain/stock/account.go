// Package stock holds the stock account aggregate: operator-owned platform
// accounts whose balance is spent to fulfill customer orders.
package stock

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rbxmart/rbxmart/pkg/domain"
)

// Status marks whether an account may be selected for fulfillment.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Account is a proxy account holding spendable platform currency.
//
// Balance is a cache of the external system as of LastCheckedAt, not a
// source of truth; it drifts between validations.
type Account struct {
	ID                uuid.UUID
	ExternalAccountID int64
	DisplayName       string
	Credential        string
	Balance           int64
	Status            Status
	LastCheckedAt     time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// New creates an account pending its first credential validation.
func New(credential string) (*Account, error) {
	if strings.TrimSpace(credential) == "" {
		return nil, fmt.Errorf("%w: credential is required", domain.ErrValidation)
	}
	return &Account{
		ID:         uuid.New(),
		Credential: credential,
		Status:     StatusActive,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// Refresh overwrites the cached identity and balance after a successful
// validation against the platform.
func (a *Account) Refresh(externalID int64, displayName string, balance int64) {
	a.ExternalAccountID = externalID
	a.DisplayName = displayName
	a.Balance = balance
	a.LastCheckedAt = time.Now().UTC()
}

// Sufficient reports whether the cached balance covers the given price.
func (a *Account) Sufficient(price int64) bool {
	return a.Status == StatusActive && a.Balance >= price
}

// MaskedCredential returns a redacted credential safe for logs.
func MaskedCredential(credential string) string {
	if len(credential) <= 8 {
		return "****"
	}
	return credential[:4] + "****" + credential[len(credential)-4:]
}
