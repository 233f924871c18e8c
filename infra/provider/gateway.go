package provider

import (
	"bytes"
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/rbxmart/rbxmart/config"
	"github.com/rbxmart/rbxmart/pkg/domain"
	"github.com/rbxmart/rbxmart/pkg/provider"
)

// SnapGateway implements provider.PaymentGateway against a Midtrans-style
// Snap API: basic-auth session creation and a sha512 signature over
// order_id + status_code + gross_amount + server key on notifications.
type SnapGateway struct {
	baseURL    string
	serverKey  string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewSnapGateway creates a gateway client from config.
func NewSnapGateway(cfg config.GatewayConfig, logger *slog.Logger) *SnapGateway {
	return &SnapGateway{
		baseURL:    cfg.BaseURL,
		serverKey:  cfg.ServerKey,
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		logger:     logger,
	}
}

type snapRequest struct {
	TransactionDetails struct {
		OrderID     string `json:"order_id"`
		GrossAmount int64  `json:"gross_amount"`
	} `json:"transaction_details"`
	CustomerDetails struct {
		Email string `json:"email"`
	} `json:"customer_details"`
}

type snapResponse struct {
	Token         string   `json:"token"`
	RedirectURL   string   `json:"redirect_url"`
	ErrorMessages []string `json:"error_messages"`
}

// CreateSession opens a payment session for the invoice.
func (g *SnapGateway) CreateSession(ctx context.Context, invoiceCode string, grossAmount int64, customerEmail string) (*provider.PaymentSession, error) {
	var reqBody snapRequest
	reqBody.TransactionDetails.OrderID = invoiceCode
	reqBody.TransactionDetails.GrossAmount = grossAmount
	reqBody.CustomerDetails.Email = customerEmail
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/snap/v1/transactions", g.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(g.serverKey, "")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	var body snapResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		g.logger.Error("gateway session creation failed",
			"invoice_code", invoiceCode,
			"status", resp.StatusCode,
			"errors", body.ErrorMessages)
		return nil, fmt.Errorf("%w: gateway status %d", domain.ErrUpstreamUnavailable, resp.StatusCode)
	}
	return &provider.PaymentSession{Token: body.Token, RedirectURL: body.RedirectURL}, nil
}

// VerifySignature checks the notification signature key:
// hex(sha512(order_id + status_code + gross_amount + server_key)).
func (g *SnapGateway) VerifySignature(orderID, statusCode, grossAmount, signatureKey string) bool {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + g.serverKey))
	expected := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signatureKey)) == 1
}
