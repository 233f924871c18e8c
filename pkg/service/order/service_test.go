package order_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rbxmart/rbxmart/config"
	"github.com/rbxmart/rbxmart/pkg/domain"
	domainorder "github.com/rbxmart/rbxmart/pkg/domain/order"
	"github.com/rbxmart/rbxmart/pkg/domain/stock"
	"github.com/rbxmart/rbxmart/pkg/service/order"
	"github.com/rbxmart/rbxmart/pkg/testutils"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type OrderServiceTestSuite struct {
	suite.Suite
	uow     *testutils.FakeUoW
	client  *testutils.FakeRobloxClient
	gateway *testutils.FakeGateway
	cache   *testutils.FakeGamepassCache
	svc     *order.Service
	pool    *stock.Account

	gamepassCalls int
}

func TestOrderServiceTestSuite(t *testing.T) {
	suite.Run(t, new(OrderServiceTestSuite))
}

func (s *OrderServiceTestSuite) SetupTest() {
	s.uow = testutils.NewFakeUoW()
	s.gateway = &testutils.FakeGateway{}
	s.cache = testutils.NewFakeGamepassCache()
	s.gamepassCalls = 0
	s.client = &testutils.FakeRobloxClient{
		GamepassFunc: func(ctx context.Context, gamepassID int64) (*domainorder.GamepassProduct, error) {
			s.gamepassCalls++
			return &domainorder.GamepassProduct{
				ID: gamepassID, Price: 750, SellerID: 9, Name: "750 Robux",
			}, nil
		},
	}
	cfg := config.RobloxConfig{
		GamepassTimeout:    5 * time.Second,
		GamepassMaxRetries: 3,
		GamepassMaxDelay:   10 * time.Millisecond,
		GamepassCacheTTL:   time.Minute,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.svc = order.New(s.uow, s.client, s.gateway, s.cache, cfg, logger)

	// A stock account rich enough for any gamepass checkout in this suite.
	s.pool = &stock.Account{
		ID: uuid.New(), DisplayName: "pool", Credential: "cred-pool",
		Balance: 100_000, Status: stock.StatusActive,
	}
	s.uow.Stock.Seed(s.pool)
}

func (s *OrderServiceTestSuite) TestCheckoutGamepassTakesPriceFromLookup() {
	res, err := s.svc.Checkout(context.Background(), order.CheckoutInput{
		CustomerEmail: "buyer@example.com",
		ServiceType:   domainorder.ServiceTypeRobux,
		Category:      domainorder.CategoryGamepass,
		GamepassID:    42,
		Price:         1, // customer-supplied price is ignored for gamepass orders
	})

	s.Require().NoError(err)
	s.EqualValues(750, res.Order.Price)
	s.Equal(domainorder.StatusWaitingPayment, res.Order.Status)
	s.Equal(domainorder.PaymentPending, res.Order.PaymentStatus)
	s.Require().NotNil(res.Order.Gamepass)
	s.EqualValues(42, res.Order.Gamepass.ID)
	s.NotEmpty(res.PaymentURL)
	s.Equal(1, s.gateway.SessionCalls)

	stored, gerr := s.uow.Orders.GetByInvoice(context.Background(), res.Order.InvoiceCode)
	s.Require().NoError(gerr)
	s.EqualValues(750, stored.Price)
	s.Require().Len(stored.StatusHistory, 1)
	s.Equal(domainorder.StatusWaitingPayment, stored.StatusHistory[0].Status)

	// The lookup result is cached for the next checkout.
	s.Equal(1, s.cache.Sets)
}

func (s *OrderServiceTestSuite) TestCheckoutManualUsesQuotedPrice() {
	res, err := s.svc.Checkout(context.Background(), order.CheckoutInput{
		CustomerEmail: "buyer@example.com",
		ServiceType:   domainorder.ServiceTypeJoki,
		Category:      domainorder.CategoryManual,
		Price:         250,
	})

	s.Require().NoError(err)
	s.EqualValues(250, res.Order.Price)
	s.Nil(res.Order.Gamepass)
	s.Zero(s.gamepassCalls)
}

func (s *OrderServiceTestSuite) TestCheckoutRejectedWhenPoolCannotCover() {
	err := s.uow.Stock.Delete(context.Background(), s.pool.ID)
	s.Require().NoError(err)

	_, cerr := s.svc.Checkout(context.Background(), order.CheckoutInput{
		CustomerEmail: "buyer@example.com",
		ServiceType:   domainorder.ServiceTypeRobux,
		Category:      domainorder.CategoryGamepass,
		GamepassID:    42,
	})

	s.ErrorIs(cerr, domain.ErrInsufficientStock)
	// No order is persisted and no payment session is opened.
	s.Zero(s.gateway.SessionCalls)
	orders, lerr := s.uow.Orders.List(context.Background(), "", 0)
	s.Require().NoError(lerr)
	s.Empty(orders)
}

func (s *OrderServiceTestSuite) TestCheckoutFailsWhenGamepassMissing() {
	s.client.GamepassFunc = func(ctx context.Context, gamepassID int64) (*domainorder.GamepassProduct, error) {
		s.gamepassCalls++
		return nil, domain.ErrNotFound
	}

	_, err := s.svc.Checkout(context.Background(), order.CheckoutInput{
		CustomerEmail: "buyer@example.com",
		ServiceType:   domainorder.ServiceTypeRobux,
		Category:      domainorder.CategoryGamepass,
		GamepassID:    42,
	})

	s.ErrorIs(err, domain.ErrNotFound)
	// Not found is permanent; the lookup must not be retried.
	s.Equal(1, s.gamepassCalls)
	s.Zero(s.gateway.SessionCalls)
}

func (s *OrderServiceTestSuite) TestLookupGamepassRetriesTransientFailures() {
	s.client.GamepassFunc = func(ctx context.Context, gamepassID int64) (*domainorder.GamepassProduct, error) {
		s.gamepassCalls++
		if s.gamepassCalls < 3 {
			return nil, domain.ErrUpstreamUnavailable
		}
		return &domainorder.GamepassProduct{ID: gamepassID, Price: 99}, nil
	}

	gp, err := s.svc.LookupGamepass(context.Background(), 42)

	s.Require().NoError(err)
	s.EqualValues(99, gp.Price)
	s.Equal(3, s.gamepassCalls)
}

func (s *OrderServiceTestSuite) TestLookupGamepassServedFromCache() {
	_, err := s.svc.LookupGamepass(context.Background(), 42)
	s.Require().NoError(err)
	_, err = s.svc.LookupGamepass(context.Background(), 42)
	s.Require().NoError(err)

	s.Equal(1, s.gamepassCalls)
}

func (s *OrderServiceTestSuite) TestLookupGamepassRejectsZeroID() {
	_, err := s.svc.LookupGamepass(context.Background(), 0)
	s.ErrorIs(err, domain.ErrValidation)
	s.Zero(s.gamepassCalls)
}

func (s *OrderServiceTestSuite) TestTransitionRejectsTerminalOrders() {
	o := s.seedOrder()
	o.AppendStatus(domainorder.StatusCompleted, "fulfilled")
	s.uow.Orders.Seed(o)

	_, err := s.svc.Transition(context.Background(), o.ID, domainorder.StatusProcessing, "reopen")
	s.ErrorIs(err, domain.ErrOrderNotPayable)
}

func (s *OrderServiceTestSuite) TestTransitionAppendsHistory() {
	o := s.seedOrder()

	read, err := s.svc.Transition(context.Background(), o.ID, domainorder.StatusProcessing, "operator started boosting")

	s.Require().NoError(err)
	s.Equal(domainorder.StatusProcessing, read.Status)

	stored, gerr := s.uow.Orders.Get(context.Background(), o.ID)
	s.Require().NoError(gerr)
	s.Equal(domainorder.StatusProcessing, stored.Status)
	s.Require().Len(stored.StatusHistory, 2)
	s.Equal("operator started boosting", stored.StatusHistory[1].Note)
}

func (s *OrderServiceTestSuite) TestGetByInvoice() {
	o := s.seedOrder()

	read, err := s.svc.GetByInvoice(context.Background(), o.InvoiceCode)
	s.Require().NoError(err)
	s.Equal(o.ID, read.ID)

	_, err = s.svc.GetByInvoice(context.Background(), "RBX-00000000-MISSING")
	s.ErrorIs(err, domain.ErrNotFound)
}

func (s *OrderServiceTestSuite) TestListByStockAccount() {
	o := s.seedOrder()
	acctID := uuid.New()
	o.FulfilledBy = &acctID
	s.uow.Orders.Seed(o)

	reads, err := s.svc.ListByStockAccount(context.Background(), acctID)
	s.Require().NoError(err)
	s.Require().Len(reads, 1)
	s.Equal(o.ID, reads[0].ID)
}

func (s *OrderServiceTestSuite) seedOrder() *domainorder.Order {
	o, err := domainorder.New(
		"RBX-20260830-ORDER0001",
		"buyer@example.com",
		domainorder.ServiceTypeJoki,
		domainorder.CategoryManual,
		250,
		nil,
	)
	require.NoError(s.T(), err)
	s.uow.Orders.Seed(o)
	return o
}
