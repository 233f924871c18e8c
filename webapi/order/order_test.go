package order_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rbxmart/rbxmart/config"
	domainorder "github.com/rbxmart/rbxmart/pkg/domain/order"
	"github.com/rbxmart/rbxmart/pkg/domain/stock"
	"github.com/rbxmart/rbxmart/pkg/provider"
	"github.com/rbxmart/rbxmart/pkg/service/fulfillment"
	ordersvc "github.com/rbxmart/rbxmart/pkg/service/order"
	"github.com/rbxmart/rbxmart/pkg/testutils"
	orderwebapi "github.com/rbxmart/rbxmart/webapi/order"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const jwtSecret = "test-secret"

type OrderRoutesTestSuite struct {
	suite.Suite
	app    *fiber.App
	uow    *testutils.FakeUoW
	client *testutils.FakeRobloxClient
	pool   *stock.Account
}

func TestOrderRoutesTestSuite(t *testing.T) {
	suite.Run(t, new(OrderRoutesTestSuite))
}

func (s *OrderRoutesTestSuite) SetupTest() {
	s.uow = testutils.NewFakeUoW()
	s.client = &testutils.FakeRobloxClient{
		GamepassFunc: func(ctx context.Context, gamepassID int64) (*domainorder.GamepassProduct, error) {
			return &domainorder.GamepassProduct{ID: gamepassID, Price: 750, SellerID: 9}, nil
		},
		AuthenticatedFunc: func(ctx context.Context, credential string) (*provider.AccountIdentity, error) {
			return &provider.AccountIdentity{ExternalID: 1, DisplayName: "alpha"}, nil
		},
		BalanceFunc: func(ctx context.Context, credential string) (int64, error) {
			return 1000, nil
		},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.App{
		Auth: config.AuthConfig{
			Jwt: config.JwtConfig{Secret: jwtSecret, Expiry: time.Hour},
		},
		Roblox: config.RobloxConfig{
			GamepassTimeout:    5 * time.Second,
			GamepassMaxRetries: 1,
			GamepassMaxDelay:   10 * time.Millisecond,
			GamepassCacheTTL:   time.Minute,
		},
	}
	svc := ordersvc.New(
		s.uow, s.client, &testutils.FakeGateway{}, testutils.NewFakeGamepassCache(),
		cfg.Roblox, logger,
	)
	fulfillSvc := fulfillment.New(s.uow, s.client, &testutils.CaptureBus{}, 1, logger)

	s.app = fiber.New()
	orderwebapi.Routes(s.app, svc, fulfillSvc, cfg, logger)

	// Gamepass checkouts require a stock account able to cover the order.
	s.pool = &stock.Account{
		ID: uuid.New(), DisplayName: "pool", Credential: "cred-pool",
		Balance: 100_000, Status: stock.StatusActive,
	}
	s.uow.Stock.Seed(s.pool)
}

func (s *OrderRoutesTestSuite) adminToken() string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "admin@example.com",
		"role": "admin",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(jwtSecret))
	require.NoError(s.T(), err)
	return signed
}

func (s *OrderRoutesTestSuite) request(method, target string, payload any, token string) *http.Response {
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		s.Require().NoError(err)
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req)
	s.Require().NoError(err)
	return resp
}

func (s *OrderRoutesTestSuite) TestCheckoutGamepassOrder() {
	resp := s.request(http.MethodPost, "/orders", map[string]any{
		"customer_email": "buyer@example.com",
		"service_type":   "robux",
		"category":       "gamepass",
		"gamepass_id":    42,
	}, "")

	s.Equal(http.StatusCreated, resp.StatusCode)
	var envelope struct {
		Data struct {
			Order struct {
				InvoiceCode string `json:"invoice_code"`
				Price       int64  `json:"price"`
				Status      string `json:"status"`
			} `json:"order"`
			PaymentURL string `json:"payment_url"`
		} `json:"data"`
	}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&envelope))
	s.EqualValues(750, envelope.Data.Order.Price)
	s.Equal("waiting_payment", envelope.Data.Order.Status)
	s.NotEmpty(envelope.Data.PaymentURL)
	s.NotEmpty(envelope.Data.Order.InvoiceCode)
}

func (s *OrderRoutesTestSuite) TestCheckoutRejectedWhenOutOfStock() {
	s.Require().NoError(s.uow.Stock.Delete(context.Background(), s.pool.ID))

	resp := s.request(http.MethodPost, "/orders", map[string]any{
		"customer_email": "buyer@example.com",
		"service_type":   "robux",
		"category":       "gamepass",
		"gamepass_id":    42,
	}, "")

	s.Equal(http.StatusConflict, resp.StatusCode)
}

func (s *OrderRoutesTestSuite) TestCheckoutValidation() {
	// gamepass category without a gamepass id
	resp := s.request(http.MethodPost, "/orders", map[string]any{
		"customer_email": "buyer@example.com",
		"service_type":   "robux",
		"category":       "gamepass",
	}, "")
	s.Equal(http.StatusBadRequest, resp.StatusCode)

	// malformed email
	resp = s.request(http.MethodPost, "/orders", map[string]any{
		"customer_email": "not-an-email",
		"service_type":   "joki",
		"category":       "manual",
		"price":          250,
	}, "")
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *OrderRoutesTestSuite) TestGetByInvoice() {
	o := s.seedOrder()

	resp := s.request(http.MethodGet, "/orders/"+o.InvoiceCode, nil, "")
	s.Equal(http.StatusOK, resp.StatusCode)

	resp = s.request(http.MethodGet, "/orders/RBX-00000000-MISSING", nil, "")
	s.Equal(http.StatusNotFound, resp.StatusCode)
}

func (s *OrderRoutesTestSuite) TestAdminRoutesRequireJWT() {
	resp := s.request(http.MethodGet, "/admin/orders", nil, "")
	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	resp = s.request(http.MethodGet, "/admin/orders", nil, s.adminToken())
	s.Equal(http.StatusOK, resp.StatusCode)
}

func (s *OrderRoutesTestSuite) TestTransitionOrder() {
	o := s.seedOrder()

	resp := s.request(http.MethodPost, "/admin/orders/"+o.ID.String()+"/transition", map[string]any{
		"status": "processing",
		"note":   "operator started boosting",
	}, s.adminToken())
	s.Equal(http.StatusOK, resp.StatusCode)

	stored, err := s.uow.Orders.Get(context.Background(), o.ID)
	s.Require().NoError(err)
	s.Equal(domainorder.StatusProcessing, stored.Status)
}

func (s *OrderRoutesTestSuite) TestTransitionRejectsBadID() {
	resp := s.request(http.MethodPost, "/admin/orders/not-a-uuid/transition", map[string]any{
		"status": "processing",
	}, s.adminToken())
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *OrderRoutesTestSuite) TestFulfillEndpoint() {
	s.uow.Stock.Seed(&stock.Account{
		ID: uuid.New(), DisplayName: "alpha", Credential: "cred",
		Balance: 1000, Status: stock.StatusActive,
	})
	o := s.seedOrder()
	o.ApplyGateway(domainorder.PaymentSettlement, domainorder.StatusProcessing, "payment settled")
	s.uow.Orders.Seed(o)

	resp := s.request(http.MethodPost, "/admin/orders/"+o.ID.String()+"/fulfill", nil, s.adminToken())
	s.Equal(http.StatusOK, resp.StatusCode)

	var envelope struct {
		Data struct {
			Outcome string `json:"Outcome"`
		} `json:"data"`
	}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&envelope))
	s.Equal("completed", envelope.Data.Outcome)

	stored, err := s.uow.Orders.Get(context.Background(), o.ID)
	s.Require().NoError(err)
	s.Equal(domainorder.StatusCompleted, stored.Status)
}

func (s *OrderRoutesTestSuite) TestFulfillRejectsUnpaidOrder() {
	o := s.seedOrder()

	resp := s.request(http.MethodPost, "/admin/orders/"+o.ID.String()+"/fulfill", nil, s.adminToken())
	s.Equal(http.StatusConflict, resp.StatusCode)
}

func (s *OrderRoutesTestSuite) seedOrder() *domainorder.Order {
	o, err := domainorder.New(
		"RBX-20260830-ROUTE0001",
		"buyer@example.com",
		domainorder.ServiceTypeRobux,
		domainorder.CategoryGamepass,
		750,
		&domainorder.GamepassProduct{ID: 42, Price: 750, SellerID: 9},
	)
	require.NoError(s.T(), err)
	s.uow.Orders.Seed(o)
	return o
}
