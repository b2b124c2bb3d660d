package repository

import (
	"context"
	"errors"
	"time"

	"pickup-service/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OrderListFilter struct {
	MarketerIDs []uuid.UUID // nil: все заказы
	DealerID    *uuid.UUID
	From        *time.Time
	To          *time.Time
	Limit       int
	Offset      int
}

type OrderRepo interface {
	Create(ctx context.Context, o *models.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetByPickupID(ctx context.Context, pickupID uuid.UUID) (*models.Order, error)
	List(ctx context.Context, f OrderListFilter) ([]models.Order, int64, error)
}

type orderRepo struct{ db *gorm.DB }

func NewOrderRepo(db *gorm.DB) OrderRepo { return &orderRepo{db: db} }

func (r *orderRepo) Create(ctx context.Context, o *models.Order) error {
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *orderRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *orderRepo) GetByPickupID(ctx context.Context, pickupID uuid.UUID) (*models.Order, error) {
	return r.first(ctx, "pickup_id = ?", pickupID)
}

func (r *orderRepo) first(ctx context.Context, cond string, arg any) (*models.Order, error) {
	var o models.Order
	err := r.db.WithContext(ctx).First(&o, cond, arg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *orderRepo) List(ctx context.Context, f OrderListFilter) ([]models.Order, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Order{})
	if f.MarketerIDs != nil {
		q = q.Where("marketer_id IN ?", f.MarketerIDs)
	}
	if f.DealerID != nil {
		q = q.Where("dealer_id = ?", *f.DealerID)
	}
	if f.From != nil {
		q = q.Where("sale_date >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("sale_date < ?", *f.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	f.Limit, f.Offset = normalizePage(f.Limit, f.Offset)

	var list []models.Order
	err := q.Order("sale_date DESC").Limit(f.Limit).Offset(f.Offset).Find(&list).Error
	return list, total, err
}
