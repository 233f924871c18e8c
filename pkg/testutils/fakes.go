// Package testutils provides in-memory fakes shared by the service and web
// layer tests.
package testutils

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rbxmart/rbxmart/pkg/domain"
	"github.com/rbxmart/rbxmart/pkg/domain/order"
	"github.com/rbxmart/rbxmart/pkg/domain/stock"
	"github.com/rbxmart/rbxmart/pkg/dto"
	"github.com/rbxmart/rbxmart/pkg/eventbus"
	"github.com/rbxmart/rbxmart/pkg/provider"
	"github.com/rbxmart/rbxmart/pkg/repository"
)

// FakeUoW is an in-memory repository.UnitOfWork. Do runs the callback
// against the same stores, without any transactional isolation.
type FakeUoW struct {
	Orders *InMemoryOrderRepo
	Stock  *InMemoryStockRepo
}

// NewFakeUoW creates a FakeUoW with empty stores.
func NewFakeUoW() *FakeUoW {
	return &FakeUoW{
		Orders: NewInMemoryOrderRepo(),
		Stock:  NewInMemoryStockRepo(),
	}
}

func (u *FakeUoW) Do(ctx context.Context, fn func(uow repository.UnitOfWork) error) error {
	return fn(u)
}

func (u *FakeUoW) OrderRepository() (repository.OrderRepository, error) {
	return u.Orders, nil
}

func (u *FakeUoW) StockAccountRepository() (repository.StockAccountRepository, error) {
	return u.Stock, nil
}

// InMemoryOrderRepo keeps orders in a map keyed by ID.
type InMemoryOrderRepo struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*order.Order
}

func NewInMemoryOrderRepo() *InMemoryOrderRepo {
	return &InMemoryOrderRepo{orders: make(map[uuid.UUID]*order.Order)}
}

// Seed stores an order directly, bypassing the create DTO.
func (r *InMemoryOrderRepo) Seed(o *order.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *o
	r.orders[o.ID] = &cp
}

func (r *InMemoryOrderRepo) Create(ctx context.Context, create dto.OrderCreate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	r.orders[create.ID] = &order.Order{
		ID:            create.ID,
		InvoiceCode:   create.InvoiceCode,
		CustomerEmail: create.CustomerEmail,
		ServiceType:   create.ServiceType,
		Category:      create.Category,
		Price:         create.Price,
		PaymentStatus: create.PaymentStatus,
		Status:        create.Status,
		Gamepass:      create.Gamepass,
		StatusHistory: append([]order.StatusEntry(nil), create.StatusHistory...),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	return nil
}

func (r *InMemoryOrderRepo) Get(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *InMemoryOrderRepo) GetByInvoice(ctx context.Context, invoiceCode string) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.InvoiceCode == invoiceCode {
			cp := *o
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *InMemoryOrderRepo) List(ctx context.Context, status order.Status, limit int) ([]*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*order.Order
	for _, o := range r.orders {
		if status != "" && o.Status != status {
			continue
		}
		cp := *o
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *InMemoryOrderRepo) ListByStockAccount(ctx context.Context, accountID uuid.UUID) ([]*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*order.Order
	for _, o := range r.orders {
		if o.FulfilledBy != nil && *o.FulfilledBy == accountID {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *InMemoryOrderRepo) Update(ctx context.Context, id uuid.UUID, update dto.OrderUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	if update.PaymentStatus != nil {
		o.PaymentStatus = *update.PaymentStatus
	}
	if update.Status != nil {
		o.Status = *update.Status
	}
	if update.FulfilledBy != nil {
		o.FulfilledBy = update.FulfilledBy
	}
	o.StatusHistory = append(o.StatusHistory, update.AppendHistory...)
	o.UpdatedAt = time.Now().UTC()
	return nil
}

// InMemoryStockRepo keeps stock accounts in a map keyed by ID.
type InMemoryStockRepo struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*stock.Account

	// DebitBalanceFunc, when set, replaces the default debit behavior.
	// Lets tests simulate a reservation lost to a concurrent run.
	DebitBalanceFunc func(ctx context.Context, id uuid.UUID, amount int64) (bool, error)
}

func NewInMemoryStockRepo() *InMemoryStockRepo {
	return &InMemoryStockRepo{accounts: make(map[uuid.UUID]*stock.Account)}
}

// Seed stores an account directly.
func (r *InMemoryStockRepo) Seed(a *stock.Account) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.accounts[a.ID] = &cp
}

func (r *InMemoryStockRepo) Create(ctx context.Context, create dto.StockAccountCreate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	r.accounts[create.ID] = &stock.Account{
		ID:                create.ID,
		ExternalAccountID: create.ExternalAccountID,
		DisplayName:       create.DisplayName,
		Credential:        create.Credential,
		Balance:           create.Balance,
		Status:            create.Status,
		LastCheckedAt:     create.LastCheckedAt,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	return nil
}

func (r *InMemoryStockRepo) Get(ctx context.Context, id uuid.UUID) (*stock.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *InMemoryStockRepo) List(ctx context.Context) ([]*stock.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*stock.Account
	for _, a := range r.accounts {
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *InMemoryStockRepo) Update(ctx context.Context, id uuid.UUID, update dto.StockAccountUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return domain.ErrNotFound
	}
	if update.ExternalAccountID != nil {
		a.ExternalAccountID = *update.ExternalAccountID
	}
	if update.DisplayName != nil {
		a.DisplayName = *update.DisplayName
	}
	if update.Balance != nil {
		a.Balance = *update.Balance
	}
	if update.Status != nil {
		a.Status = *update.Status
	}
	if update.LastCheckedAt != nil {
		a.LastCheckedAt = *update.LastCheckedAt
	}
	a.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *InMemoryStockRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.accounts, id)
	return nil
}

func (r *InMemoryStockRepo) FindCheapestSufficient(ctx context.Context, price int64, exclude []uuid.UUID) (*stock.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	excluded := make(map[uuid.UUID]bool, len(exclude))
	for _, id := range exclude {
		excluded[id] = true
	}
	var best *stock.Account
	for _, a := range r.accounts {
		if a.Status != stock.StatusActive || a.Balance < price || excluded[a.ID] {
			continue
		}
		if best == nil || a.Balance < best.Balance {
			best = a
		}
	}
	if best == nil {
		return nil, nil
	}
	cp := *best
	return &cp, nil
}

func (r *InMemoryStockRepo) DebitBalance(ctx context.Context, id uuid.UUID, amount int64) (bool, error) {
	if r.DebitBalanceFunc != nil {
		return r.DebitBalanceFunc(ctx, id, amount)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok || a.Balance < amount {
		return false, nil
	}
	a.Balance -= amount
	a.UpdatedAt = time.Now().UTC()
	return true, nil
}

// FakeRobloxClient stubs the platform client with overridable funcs. Unset
// funcs return zero values.
type FakeRobloxClient struct {
	AuthenticatedFunc func(ctx context.Context, credential string) (*provider.AccountIdentity, error)
	BalanceFunc       func(ctx context.Context, credential string) (int64, error)
	GamepassFunc      func(ctx context.Context, gamepassID int64) (*order.GamepassProduct, error)
	BuyGamepassFunc   func(ctx context.Context, credential string, gp order.GamepassProduct) error

	mu       sync.Mutex
	Buys     []order.GamepassProduct
	BuyCreds []string
}

func (f *FakeRobloxClient) Authenticated(ctx context.Context, credential string) (*provider.AccountIdentity, error) {
	if f.AuthenticatedFunc != nil {
		return f.AuthenticatedFunc(ctx, credential)
	}
	return &provider.AccountIdentity{}, nil
}

func (f *FakeRobloxClient) Balance(ctx context.Context, credential string) (int64, error) {
	if f.BalanceFunc != nil {
		return f.BalanceFunc(ctx, credential)
	}
	return 0, nil
}

func (f *FakeRobloxClient) Gamepass(ctx context.Context, gamepassID int64) (*order.GamepassProduct, error) {
	if f.GamepassFunc != nil {
		return f.GamepassFunc(ctx, gamepassID)
	}
	return &order.GamepassProduct{ID: gamepassID}, nil
}

func (f *FakeRobloxClient) BuyGamepass(ctx context.Context, credential string, gp order.GamepassProduct) error {
	f.mu.Lock()
	f.Buys = append(f.Buys, gp)
	f.BuyCreds = append(f.BuyCreds, credential)
	f.mu.Unlock()
	if f.BuyGamepassFunc != nil {
		return f.BuyGamepassFunc(ctx, credential, gp)
	}
	return nil
}

// FakeGateway is a PaymentGateway whose signature check compares against a
// fixed expected key.
type FakeGateway struct {
	Session      *provider.PaymentSession
	SessionErr   error
	ValidKey     string
	SessionCalls int
}

func (f *FakeGateway) CreateSession(ctx context.Context, invoiceCode string, grossAmount int64, customerEmail string) (*provider.PaymentSession, error) {
	f.SessionCalls++
	if f.SessionErr != nil {
		return nil, f.SessionErr
	}
	if f.Session != nil {
		return f.Session, nil
	}
	return &provider.PaymentSession{
		Token:       "tok-" + invoiceCode,
		RedirectURL: "https://pay.example/" + invoiceCode,
	}, nil
}

func (f *FakeGateway) VerifySignature(orderID, statusCode, grossAmount, signatureKey string) bool {
	return signatureKey == f.ValidKey
}

// FakeNotifier records confirmation emails.
type FakeNotifier struct {
	mu    sync.Mutex
	Sent  []string
	Err   error
	Calls int
}

func (f *FakeNotifier) PaymentConfirmed(ctx context.Context, email, invoiceCode string, amount int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls++
	f.Sent = append(f.Sent, invoiceCode)
	return f.Err
}

// FakeGamepassCache is a map-backed GamepassCache.
type FakeGamepassCache struct {
	mu      sync.Mutex
	entries map[int64]*order.GamepassProduct
	Sets    int
}

func NewFakeGamepassCache() *FakeGamepassCache {
	return &FakeGamepassCache{entries: make(map[int64]*order.GamepassProduct)}
}

func (f *FakeGamepassCache) Get(ctx context.Context, gamepassID int64) (*order.GamepassProduct, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	gp, ok := f.entries[gamepassID]
	if !ok {
		return nil, nil
	}
	cp := *gp
	return &cp, nil
}

func (f *FakeGamepassCache) Set(ctx context.Context, gp *order.GamepassProduct, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Sets++
	cp := *gp
	f.entries[gp.ID] = &cp
	return nil
}

// CaptureBus records published events without dispatching them.
type CaptureBus struct {
	mu        sync.Mutex
	Published []domain.Event
}

func (b *CaptureBus) Publish(ctx context.Context, e domain.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Published = append(b.Published, e)
	return nil
}

func (b *CaptureBus) Subscribe(eventType string, h eventbus.HandlerFunc) {}
