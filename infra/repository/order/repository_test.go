package order

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/rbxmart/rbxmart/pkg/domain"
	domainorder "github.com/rbxmart/rbxmart/pkg/domain/order"
	"github.com/rbxmart/rbxmart/pkg/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDb, mock, err := sqlmock.New()
	require.NoError(t, err)
	dialector := postgres.New(postgres.Config{
		Conn:       mockDb,
		DriverName: "postgres",
	})
	db, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func orderRow(t *testing.T, id uuid.UUID, history []domainorder.StatusEntry) *sqlmock.Rows {
	t.Helper()
	raw, err := json.Marshal(history)
	require.NoError(t, err)
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "invoice_code", "customer_email", "service_type", "category",
		"price", "payment_status", "status",
		"gamepass_id", "gamepass_price", "gamepass_seller_id", "gamepass_name",
		"fulfilled_by", "status_history", "created_at", "updated_at",
	}).AddRow(
		id, "RBX-20260830-REPO00001", "buyer@example.com", "robux", "gamepass",
		int64(500), "settlement", "processing",
		int64(42), int64(500), int64(7), "500 Robux",
		nil, raw, now, now,
	)
}

func TestCreate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repo{db: db}

	mock.ExpectExec(`INSERT INTO "orders" (.+) VALUES (.+)`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), dto.OrderCreate{
		ID:            uuid.New(),
		InvoiceCode:   "RBX-20260830-REPO00001",
		ServiceType:   domainorder.ServiceTypeRobux,
		Category:      domainorder.CategoryGamepass,
		Price:         500,
		PaymentStatus: domainorder.PaymentPending,
		Status:        domainorder.StatusWaitingPayment,
		Gamepass:      &domainorder.GamepassProduct{ID: 42, Price: 500, SellerID: 7},
		StatusHistory: []domainorder.StatusEntry{
			{Status: domainorder.StatusWaitingPayment, Note: "order created", CreatedAt: time.Now()},
		},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_RebuildsHistoryAndGamepass(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repo{db: db}
	id := uuid.New()
	history := []domainorder.StatusEntry{
		{Status: domainorder.StatusWaitingPayment, Note: "order created"},
		{Status: domainorder.StatusProcessing, Note: "payment settlement via qris"},
	}

	mock.ExpectQuery(`SELECT \* FROM "orders" WHERE id = \$1`).
		WillReturnRows(orderRow(t, id, history))

	o, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, o.ID)
	assert.Equal(t, domainorder.PaymentSettlement, o.PaymentStatus)
	assert.Equal(t, domainorder.StatusProcessing, o.Status)
	require.NotNil(t, o.Gamepass)
	assert.EqualValues(t, 42, o.Gamepass.ID)
	require.Len(t, o.StatusHistory, 2)
	assert.Equal(t, "payment settlement via qris", o.StatusHistory[1].Note)
}

func TestGetByInvoice_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repo{db: db}

	mock.ExpectQuery(`SELECT \* FROM "orders" WHERE invoice_code = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByInvoice(context.Background(), "RBX-00000000-MISSING")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdate_AppendsHistoryWithConcatenation(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repo{db: db}
	id := uuid.New()
	ps := domainorder.PaymentSettlement
	status := domainorder.StatusProcessing

	// The history column is appended with jsonb concatenation, never
	// replaced.
	mock.ExpectExec(`UPDATE "orders" SET .*"status_history"=status_history \|\| \$[0-9]+::jsonb.* WHERE id = \$[0-9]+`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), id, dto.OrderUpdate{
		PaymentStatus: &ps,
		Status:        &status,
		AppendHistory: []domainorder.StatusEntry{
			{Status: status, Note: "payment settlement via qris", CreatedAt: time.Now()},
		},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_MissingOrder(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repo{db: db}
	status := domainorder.StatusPending

	mock.ExpectExec(`UPDATE "orders" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), uuid.New(), dto.OrderUpdate{Status: &status})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestList_FiltersByStatus(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repo{db: db}
	id := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "orders" WHERE status = \$1 ORDER BY created_at DESC LIMIT \$2`).
		WithArgs("processing", 10).
		WillReturnRows(orderRow(t, id, nil))

	orders, err := repo.List(context.Background(), domainorder.StatusProcessing, 10)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, id, orders[0].ID)
}
