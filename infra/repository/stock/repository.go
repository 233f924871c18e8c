package stock

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rbxmart/rbxmart/pkg/domain"
	domainstock "github.com/rbxmart/rbxmart/pkg/domain/stock"
	"github.com/rbxmart/rbxmart/pkg/dto"
	"github.com/rbxmart/rbxmart/pkg/repository"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

// New creates a stock account repository on the given session.
func New(db *gorm.DB) repository.StockAccountRepository {
	return &repo{db: db}
}

func (r *repo) Create(ctx context.Context, create dto.StockAccountCreate) error {
	m := StockAccount{
		ID:                create.ID,
		ExternalAccountID: create.ExternalAccountID,
		DisplayName:       create.DisplayName,
		Credential:        create.Credential,
		Balance:           create.Balance,
		Status:            string(create.Status),
		LastCheckedAt:     create.LastCheckedAt,
	}
	return r.db.WithContext(ctx).Create(&m).Error
}

func (r *repo) Get(ctx context.Context, id uuid.UUID) (*domainstock.Account, error) {
	var m StockAccount
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, translate(err, id.String())
	}
	return mapModelToAccount(&m), nil
}

func (r *repo) List(ctx context.Context) ([]*domainstock.Account, error) {
	var ms []StockAccount
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&ms).Error; err != nil {
		return nil, err
	}
	accts := make([]*domainstock.Account, 0, len(ms))
	for i := range ms {
		accts = append(accts, mapModelToAccount(&ms[i]))
	}
	return accts, nil
}

func (r *repo) Update(ctx context.Context, id uuid.UUID, update dto.StockAccountUpdate) error {
	updates := make(map[string]any)
	if update.ExternalAccountID != nil {
		updates["external_account_id"] = *update.ExternalAccountID
	}
	if update.DisplayName != nil {
		updates["display_name"] = *update.DisplayName
	}
	if update.Balance != nil {
		updates["balance"] = *update.Balance
	}
	if update.Status != nil {
		updates["status"] = string(*update.Status)
	}
	if update.LastCheckedAt != nil {
		updates["last_checked_at"] = *update.LastCheckedAt
	}
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&StockAccount{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&StockAccount{}, "id = ?", id).Error
}

// FindCheapestSufficient returns the active account with the smallest
// sufficient balance, or (nil, nil) when none qualifies.
func (r *repo) FindCheapestSufficient(ctx context.Context, price int64, exclude []uuid.UUID) (*domainstock.Account, error) {
	q := r.db.WithContext(ctx).
		Where("status = ? AND balance >= ?", string(domainstock.StatusActive), price)
	if len(exclude) > 0 {
		q = q.Where("id NOT IN ?", exclude)
	}
	var m StockAccount
	err := q.Order("balance ASC").First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return mapModelToAccount(&m), nil
}

// DebitBalance decrements the cached balance only while it still covers
// amount. RowsAffected == 0 means the account was spent down concurrently.
func (r *repo) DebitBalance(ctx context.Context, id uuid.UUID, amount int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&StockAccount{}).
		Where("id = ? AND balance >= ?", id, amount).
		UpdateColumn("balance", gorm.Expr("balance - ?", amount))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func translate(err error, key string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: stock account %s", domain.ErrNotFound, key)
	}
	return err
}

func mapModelToAccount(m *StockAccount) *domainstock.Account {
	return &domainstock.Account{
		ID:                m.ID,
		ExternalAccountID: m.ExternalAccountID,
		DisplayName:       m.DisplayName,
		Credential:        m.Credential,
		Balance:           m.Balance,
		Status:            domainstock.Status(m.Status),
		LastCheckedAt:     m.LastCheckedAt,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}
