package repository

import (
	"context"
	"errors"
	"time"

	"pickup-service/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PickupListFilter struct {
	MarketerIDs []uuid.UUID // nil: без ограничения
	ProductID   *uuid.UUID
	Status      *models.PickupStatus
	Limit       int
	Offset      int
}

type PickupRepo interface {
	Create(ctx context.Context, p *models.Pickup) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Pickup, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Pickup, error)
	CountOpenByMarketer(ctx context.Context, marketerID uuid.UUID) (int64, error)
	SumOpenQuantity(ctx context.Context, productID uuid.UUID) (int64, error)

	// Transition меняет статус только если текущий равен from. false: строка уже ушла из from.
	Transition(ctx context.Context, id uuid.UUID, from, to models.PickupStatus, fields map[string]any) (bool, error)

	// ExpireOverdue переводит пачку просроченных pending-выдач в expired и возвращает именно их.
	ExpireOverdue(ctx context.Context, now time.Time, limit int) ([]models.Pickup, error)

	List(ctx context.Context, f PickupListFilter) ([]models.Pickup, int64, error)
}

type pickupRepo struct{ db *gorm.DB }

func NewPickupRepo(db *gorm.DB) PickupRepo { return &pickupRepo{db: db} }

func (r *pickupRepo) Create(ctx context.Context, p *models.Pickup) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *pickupRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Pickup, error) {
	return r.get(r.db.WithContext(ctx), id)
}

func (r *pickupRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Pickup, error) {
	return r.get(r.db.WithContext(ctx).Clauses(forUpdate), id)
}

func (r *pickupRepo) get(q *gorm.DB, id uuid.UUID) (*models.Pickup, error) {
	var p models.Pickup
	err := q.First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *pickupRepo) CountOpenByMarketer(ctx context.Context, marketerID uuid.UUID) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).
		Model(&models.Pickup{}).
		Where("marketer_id = ? AND status IN ?", marketerID, models.OpenPickupStatuses).
		Count(&cnt).Error
	return cnt, err
}

func (r *pickupRepo) SumOpenQuantity(ctx context.Context, productID uuid.UUID) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.Pickup{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("product_id = ? AND status IN ?", productID, models.OpenPickupStatuses).
		Scan(&total).Error
	return total, err
}

func (r *pickupRepo) Transition(ctx context.Context, id uuid.UUID, from, to models.PickupStatus, fields map[string]any) (bool, error) {
	upd := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		upd[k] = v
	}
	upd["status"] = to

	tx := r.db.WithContext(ctx).
		Model(&models.Pickup{}).
		Where("id = ? AND status = ?", id, from).
		Updates(upd)
	return tx.RowsAffected == 1, tx.Error
}

func (r *pickupRepo) ExpireOverdue(ctx context.Context, now time.Time, limit int) ([]models.Pickup, error) {
	if limit <= 0 {
		limit = 500
	}

	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Pickup{}).
		Clauses(forUpdateSkipLocked).
		Where("status = ? AND deadline < ?", models.PickupPending, now).
		Order("deadline ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	// повторная проверка status = pending: ручной переход, успевший закоммититься, выигрывает
	if err := r.db.WithContext(ctx).
		Model(&models.Pickup{}).
		Where("id IN ? AND status = ?", ids, models.PickupPending).
		Updates(map[string]any{
			"status":      models.PickupExpired,
			"expired_at":  now,
			"resolved_at": now,
			"updated_at":  now,
		}).Error; err != nil {
		return nil, err
	}

	var expired []models.Pickup
	err = r.db.WithContext(ctx).
		Where("id IN ? AND status = ? AND expired_at = ?", ids, models.PickupExpired, now).
		Order("deadline ASC").
		Find(&expired).Error
	return expired, err
}

func (r *pickupRepo) List(ctx context.Context, f PickupListFilter) ([]models.Pickup, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Pickup{})

	if f.MarketerIDs != nil {
		q = q.Where("marketer_id IN ?", f.MarketerIDs)
	}
	if f.ProductID != nil {
		q = q.Where("product_id = ?", *f.ProductID)
	}
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	f.Limit, f.Offset = normalizePage(f.Limit, f.Offset)

	var list []models.Pickup
	err := q.Order("created_at DESC").Limit(f.Limit).Offset(f.Offset).Find(&list).Error
	return list, total, err
}
