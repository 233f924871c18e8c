// Package provider implements the external system clients: the platform
// economy API, the payment gateway and the SMTP notifier.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/rbxmart/rbxmart/config"
	"github.com/rbxmart/rbxmart/pkg/domain"
	"github.com/rbxmart/rbxmart/pkg/domain/order"
	"github.com/rbxmart/rbxmart/pkg/provider"
)

const credentialCookie = ".ROBLOSECURITY"

// RobloxAPIClient implements provider.RobloxClient against the platform's
// users and economy APIs.
type RobloxAPIClient struct {
	economyURL string
	usersURL   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewRobloxAPIClient creates a platform API client from config.
func NewRobloxAPIClient(cfg config.RobloxConfig, logger *slog.Logger) *RobloxAPIClient {
	return &RobloxAPIClient{
		economyURL: cfg.BaseURL,
		usersURL:   cfg.UsersURL,
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		logger:     logger,
	}
}

type authenticatedResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

// Authenticated resolves the account behind a credential via the who-am-I
// endpoint. A 401 means the credential is revoked or expired.
func (c *RobloxAPIClient) Authenticated(ctx context.Context, credential string) (*provider.AccountIdentity, error) {
	url := fmt.Sprintf("%s/v1/users/authenticated", c.usersURL)
	var body authenticatedResponse
	if err := c.getJSON(ctx, url, credential, &body); err != nil {
		return nil, err
	}
	name := body.DisplayName
	if name == "" {
		name = body.Name
	}
	return &provider.AccountIdentity{ExternalID: body.ID, DisplayName: name}, nil
}

type currencyResponse struct {
	Robux int64 `json:"robux"`
}

// Balance returns the spendable currency balance for the credential.
func (c *RobloxAPIClient) Balance(ctx context.Context, credential string) (int64, error) {
	identity, err := c.Authenticated(ctx, credential)
	if err != nil {
		return 0, err
	}
	url := fmt.Sprintf("%s/v1/users/%d/currency", c.economyURL, identity.ExternalID)
	var body currencyResponse
	if err := c.getJSON(ctx, url, credential, &body); err != nil {
		return 0, err
	}
	return body.Robux, nil
}

type gamepassProductResponse struct {
	TargetID     int64  `json:"TargetId"`
	ProductID    int64  `json:"ProductId"`
	Name         string `json:"Name"`
	PriceInRobux int64  `json:"PriceInRobux"`
	Creator      struct {
		ID int64 `json:"Id"`
	} `json:"Creator"`
}

// Gamepass looks up a gamepass's current price and seller. No credential is
// needed; product info is public.
func (c *RobloxAPIClient) Gamepass(ctx context.Context, gamepassID int64) (*order.GamepassProduct, error) {
	url := fmt.Sprintf("%s/v1/game-pass/%d/game-pass-product-info", c.economyURL, gamepassID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: gamepass %d", domain.ErrNotFound, gamepassID)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, upstreamError(resp)
	}
	var body gamepassProductResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode gamepass response: %w", err)
	}
	return &order.GamepassProduct{
		ID:       gamepassID,
		Price:    body.PriceInRobux,
		SellerID: body.Creator.ID,
		Name:     body.Name,
	}, nil
}

type purchaseRequest struct {
	ExpectedCurrency int64 `json:"expectedCurrency"`
	ExpectedPrice    int64 `json:"expectedPrice"`
	ExpectedSellerID int64 `json:"expectedSellerId"`
}

type purchaseResponse struct {
	Purchased    bool   `json:"purchased"`
	Reason       string `json:"reason"`
	ErrorMessage string `json:"errorMsg"`
}

// BuyGamepass spends the credential's balance on the gamepass. The economy
// API requires a CSRF token, which is fetched with a throwaway request
// first.
func (c *RobloxAPIClient) BuyGamepass(ctx context.Context, credential string, gp order.GamepassProduct) error {
	product, err := c.Gamepass(ctx, gp.ID)
	if err != nil {
		return err
	}
	token, err := c.csrfToken(ctx, credential)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(purchaseRequest{
		ExpectedCurrency: 1,
		ExpectedPrice:    gp.Price,
		ExpectedSellerID: gp.SellerID,
	})
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/v1/purchases/products/%d", c.economyURL, product.ProductID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-CSRF-TOKEN", token)
	req.AddCookie(&http.Cookie{Name: credentialCookie, Value: credential})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w", domain.ErrCredentialInvalid)
	}
	if resp.StatusCode != http.StatusOK {
		return upstreamError(resp)
	}
	var body purchaseResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("failed to decode purchase response: %w", err)
	}
	if !body.Purchased {
		reason := body.Reason
		if reason == "" {
			reason = body.ErrorMessage
		}
		return fmt.Errorf("%w: purchase rejected: %s", domain.ErrUpstreamUnavailable, reason)
	}
	return nil
}

// csrfToken extracts a CSRF token from the 403 the economy API answers when
// a mutating request carries none.
func (c *RobloxAPIClient) csrfToken(ctx context.Context, credential string) (string, error) {
	url := fmt.Sprintf("%s/v1/purchases/products/0", c.economyURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return "", err
	}
	req.AddCookie(&http.Cookie{Name: credentialCookie, Value: credential})
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close() //nolint:errcheck
	token := resp.Header.Get("X-CSRF-TOKEN")
	if token == "" {
		return "", fmt.Errorf("%w: no CSRF token issued", domain.ErrUpstreamUnavailable)
	}
	return token, nil
}

func (c *RobloxAPIClient) getJSON(ctx context.Context, url, credential string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.AddCookie(&http.Cookie{Name: credentialCookie, Value: credential})
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w", domain.ErrCredentialInvalid)
	}
	if resp.StatusCode != http.StatusOK {
		return upstreamError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func upstreamError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("%w: status %d: %s", domain.ErrUpstreamUnavailable, resp.StatusCode, string(body))
}
