package stock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/rbxmart/rbxmart/pkg/domain"
	domainstock "github.com/rbxmart/rbxmart/pkg/domain/stock"
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

func accountRows(id uuid.UUID, name string, balance int64) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "external_account_id", "display_name", "credential",
		"balance", "status", "last_checked_at", "created_at", "updated_at",
	}).AddRow(id, int64(99), name, "cookie", balance, "active", now, now, now)
}

func TestCreate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repo{db: db}

	mock.ExpectExec(`INSERT INTO "stock_accounts" (.+) VALUES (.+)`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), dto.StockAccountCreate{
		ID:         uuid.New(),
		Credential: "cookie",
		Status:     domainstock.StatusActive,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repo{db: db}

	mock.ExpectQuery(`SELECT \* FROM "stock_accounts" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFindCheapestSufficient(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repo{db: db}
	id := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "stock_accounts" WHERE status = \$1 AND balance >= \$2 ORDER BY balance ASC`).
		WithArgs("active", int64(500), 1).
		WillReturnRows(accountRows(id, "alpha", 500))

	acct, err := repo.FindCheapestSufficient(context.Background(), 500, nil)
	require.NoError(t, err)
	require.NotNil(t, acct)
	assert.Equal(t, id, acct.ID)
	assert.EqualValues(t, 500, acct.Balance)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindCheapestSufficient_NoneQualifies(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repo{db: db}

	mock.ExpectQuery(`SELECT \* FROM "stock_accounts" WHERE status = \$1 AND balance >= \$2`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	acct, err := repo.FindCheapestSufficient(context.Background(), 500, nil)
	require.NoError(t, err)
	assert.Nil(t, acct)
}

func TestFindCheapestSufficient_Excludes(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repo{db: db}
	excluded := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "stock_accounts" WHERE \(status = \$1 AND balance >= \$2\) AND id NOT IN \(\$3\)`).
		WithArgs("active", int64(500), excluded, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	acct, err := repo.FindCheapestSufficient(context.Background(), 500, []uuid.UUID{excluded})
	require.NoError(t, err)
	assert.Nil(t, acct)
}

func TestDebitBalance(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repo{db: db}
	id := uuid.New()

	mock.ExpectExec(`UPDATE "stock_accounts" SET "balance"=balance - \$1`).
		WithArgs(int64(500), id, int64(500)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.DebitBalance(context.Background(), id, 500)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDebitBalance_RejectedWhenBalanceDropped(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repo{db: db}
	id := uuid.New()

	mock.ExpectExec(`UPDATE "stock_accounts" SET "balance"=balance - \$1`).
		WithArgs(int64(500), id, int64(500)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.DebitBalance(context.Background(), id, 500)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDebitBalance_Error(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repo{db: db}

	mock.ExpectExec(`UPDATE "stock_accounts"`).
		WillReturnError(errors.New("connection reset"))

	_, err := repo.DebitBalance(context.Background(), uuid.New(), 500)
	assert.Error(t, err)
}

func TestUpdate_PartialFields(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repo{db: db}
	id := uuid.New()
	balance := int64(950)

	mock.ExpectExec(`UPDATE "stock_accounts" SET "balance"=\$1,"updated_at"=\$2 WHERE id = \$3`).
		WithArgs(balance, sqlmock.AnyArg(), id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), id, dto.StockAccountUpdate{Balance: &balance})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_NoFieldsIsNoop(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repo{db: db}

	err := repo.Update(context.Background(), uuid.New(), dto.StockAccountUpdate{})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
