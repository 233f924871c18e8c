package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rbxmart/rbxmart/pkg/domain"
	domainorder "github.com/rbxmart/rbxmart/pkg/domain/order"
	"github.com/rbxmart/rbxmart/pkg/dto"
	"github.com/rbxmart/rbxmart/pkg/repository"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

// New creates an order repository on the given session.
func New(db *gorm.DB) repository.OrderRepository {
	return &repo{db: db}
}

func (r *repo) Create(ctx context.Context, create dto.OrderCreate) error {
	history, err := json.Marshal(create.StatusHistory)
	if err != nil {
		return fmt.Errorf("failed to encode status history: %w", err)
	}
	m := Order{
		ID:            create.ID,
		InvoiceCode:   create.InvoiceCode,
		CustomerEmail: create.CustomerEmail,
		ServiceType:   string(create.ServiceType),
		Category:      string(create.Category),
		Price:         create.Price,
		PaymentStatus: string(create.PaymentStatus),
		Status:        string(create.Status),
		StatusHistory: history,
	}
	if create.Gamepass != nil {
		m.GamepassID = create.Gamepass.ID
		m.GamepassPrice = create.Gamepass.Price
		m.GamepassSellerID = create.Gamepass.SellerID
		m.GamepassName = create.Gamepass.Name
	}
	return r.db.WithContext(ctx).Create(&m).Error
}

func (r *repo) Get(ctx context.Context, id uuid.UUID) (*domainorder.Order, error) {
	var m Order
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, translate(err, id.String())
	}
	return mapModelToOrder(&m)
}

func (r *repo) GetByInvoice(ctx context.Context, invoiceCode string) (*domainorder.Order, error) {
	var m Order
	if err := r.db.WithContext(ctx).First(&m, "invoice_code = ?", invoiceCode).Error; err != nil {
		return nil, translate(err, invoiceCode)
	}
	return mapModelToOrder(&m)
}

func (r *repo) List(ctx context.Context, status domainorder.Status, limit int) ([]*domainorder.Order, error) {
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", string(status))
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var ms []Order
	if err := q.Find(&ms).Error; err != nil {
		return nil, err
	}
	return mapModels(ms)
}

func (r *repo) ListByStockAccount(ctx context.Context, accountID uuid.UUID) ([]*domainorder.Order, error) {
	var ms []Order
	err := r.db.WithContext(ctx).
		Where("fulfilled_by = ?", accountID).
		Order("created_at DESC").
		Find(&ms).Error
	if err != nil {
		return nil, err
	}
	return mapModels(ms)
}

func (r *repo) Update(ctx context.Context, id uuid.UUID, update dto.OrderUpdate) error {
	updates := make(map[string]any)
	if update.PaymentStatus != nil {
		updates["payment_status"] = string(*update.PaymentStatus)
	}
	if update.Status != nil {
		updates["status"] = string(*update.Status)
	}
	if update.FulfilledBy != nil {
		updates["fulfilled_by"] = *update.FulfilledBy
	}
	if len(update.AppendHistory) > 0 {
		entries, err := json.Marshal(update.AppendHistory)
		if err != nil {
			return fmt.Errorf("failed to encode status history: %w", err)
		}
		updates["status_history"] = gorm.Expr("status_history || ?::jsonb", string(entries))
	}
	if len(updates) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).
		Model(&Order{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: order %s", domain.ErrNotFound, id)
	}
	return nil
}

func translate(err error, key string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: order %s", domain.ErrNotFound, key)
	}
	return err
}

func mapModels(ms []Order) ([]*domainorder.Order, error) {
	orders := make([]*domainorder.Order, 0, len(ms))
	for i := range ms {
		o, err := mapModelToOrder(&ms[i])
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func mapModelToOrder(m *Order) (*domainorder.Order, error) {
	var history []domainorder.StatusEntry
	if len(m.StatusHistory) > 0 {
		if err := json.Unmarshal(m.StatusHistory, &history); err != nil {
			return nil, fmt.Errorf("failed to decode status history for %s: %w", m.InvoiceCode, err)
		}
	}
	o := &domainorder.Order{
		ID:            m.ID,
		InvoiceCode:   m.InvoiceCode,
		CustomerEmail: m.CustomerEmail,
		ServiceType:   domainorder.ServiceType(m.ServiceType),
		Category:      domainorder.ServiceCategory(m.Category),
		Price:         m.Price,
		PaymentStatus: domainorder.PaymentStatus(m.PaymentStatus),
		Status:        domainorder.Status(m.Status),
		FulfilledBy:   m.FulfilledBy,
		StatusHistory: history,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
	if m.GamepassID != 0 {
		o.Gamepass = &domainorder.GamepassProduct{
			ID:       m.GamepassID,
			Price:    m.GamepassPrice,
			SellerID: m.GamepassSellerID,
			Name:     m.GamepassName,
		}
	}
	return o, nil
}
