// Package provider defines the contracts for the external systems this
// service talks to: the game platform economy API, the payment gateway and
// the transactional mailer. Implementations live in infra/provider.
package provider

import (
	"context"
	"time"

	"github.com/rbxmart/rbxmart/pkg/domain/order"
)

// AccountIdentity is the platform's answer to a who-am-I lookup.
type AccountIdentity struct {
	ExternalID  int64
	DisplayName string
}

// RobloxClient talks to the game platform's economy API on behalf of a
// stock account credential.
type RobloxClient interface {
	// Authenticated resolves the account behind a credential. A rejected
	// credential surfaces as domain.ErrCredentialInvalid.
	Authenticated(ctx context.Context, credential string) (*AccountIdentity, error)

	// Balance returns the spendable currency balance for the credential.
	Balance(ctx context.Context, credential string) (int64, error)

	// Gamepass looks up a gamepass by ID, returning its current price and
	// seller.
	Gamepass(ctx context.Context, gamepassID int64) (*order.GamepassProduct, error)

	// BuyGamepass spends the credential's balance on the given gamepass.
	BuyGamepass(ctx context.Context, credential string, gp order.GamepassProduct) error
}

// PaymentSession is a gateway checkout session handed back to the customer.
type PaymentSession struct {
	Token       string
	RedirectURL string
}

// PaymentGateway creates payment sessions and authenticates inbound
// notifications.
type PaymentGateway interface {
	CreateSession(ctx context.Context, invoiceCode string, grossAmount int64, customerEmail string) (*PaymentSession, error)

	// VerifySignature checks a webhook signature key against
	// order_id + status_code + gross_amount + the server key.
	VerifySignature(orderID, statusCode, grossAmount, signatureKey string) bool
}

// Notifier sends customer-facing transactional messages.
type Notifier interface {
	// PaymentConfirmed tells the customer their payment settled.
	PaymentConfirmed(ctx context.Context, email, invoiceCode string, amount int64) error
}

// GamepassCache caches gamepass lookups so checkout does not hammer the
// platform API for the same product.
type GamepassCache interface {
	Get(ctx context.Context, gamepassID int64) (*order.GamepassProduct, error)
	Set(ctx context.Context, gp *order.GamepassProduct, ttl time.Duration) error
}
