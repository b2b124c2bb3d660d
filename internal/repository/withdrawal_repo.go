package repository

import (
	"context"
	"errors"
	"time"

	"pickup-service/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WithdrawalListFilter struct {
	UserIDs []uuid.UUID // nil: все заявки
	Status  *models.RequestStatus
	Limit   int
	Offset  int
}

type WithdrawalRepo interface {
	Create(ctx context.Context, w *models.WithdrawalRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error)
	// MarkReviewed: pending -> approved|rejected. false: заявка уже рассмотрена.
	MarkReviewed(ctx context.Context, id uuid.UUID, status models.RequestStatus, reviewer uuid.UUID, note string, at time.Time) (bool, error)
	// PendingTotals: число и сумма заявок пользователя, ожидающих рассмотрения.
	PendingTotals(ctx context.Context, userID uuid.UUID) (count int64, amountCents int64, err error)
	List(ctx context.Context, f WithdrawalListFilter) ([]models.WithdrawalRequest, int64, error)
}

type withdrawalRepo struct{ db *gorm.DB }

func NewWithdrawalRepo(db *gorm.DB) WithdrawalRepo { return &withdrawalRepo{db: db} }

func (r *withdrawalRepo) Create(ctx context.Context, w *models.WithdrawalRequest) error {
	return r.db.WithContext(ctx).Create(w).Error
}

func (r *withdrawalRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error) {
	return r.get(r.db.WithContext(ctx), id)
}

func (r *withdrawalRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error) {
	return r.get(r.db.WithContext(ctx).Clauses(forUpdate), id)
}

func (r *withdrawalRepo) get(q *gorm.DB, id uuid.UUID) (*models.WithdrawalRequest, error) {
	var w models.WithdrawalRequest
	err := q.First(&w, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *withdrawalRepo) MarkReviewed(ctx context.Context, id uuid.UUID, status models.RequestStatus, reviewer uuid.UUID, note string, at time.Time) (bool, error) {
	upd := map[string]any{
		"status":      status,
		"reviewed_by": reviewer,
		"reviewed_at": at,
	}
	if note != "" {
		upd["note"] = note
	}
	tx := r.db.WithContext(ctx).
		Model(&models.WithdrawalRequest{}).
		Where("id = ? AND status = ?", id, models.RequestPending).
		Updates(upd)
	return tx.RowsAffected == 1, tx.Error
}

func (r *withdrawalRepo) PendingTotals(ctx context.Context, userID uuid.UUID) (int64, int64, error) {
	var res struct {
		N     int64
		Total int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.WithdrawalRequest{}).
		Select("COUNT(*) AS n, COALESCE(SUM(amount_cents), 0) AS total").
		Where("user_id = ? AND status = ?", userID, models.RequestPending).
		Scan(&res).Error
	return res.N, res.Total, err
}

func (r *withdrawalRepo) List(ctx context.Context, f WithdrawalListFilter) ([]models.WithdrawalRequest, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.WithdrawalRequest{})
	if f.UserIDs != nil {
		q = q.Where("user_id IN ?", f.UserIDs)
	}
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	f.Limit, f.Offset = normalizePage(f.Limit, f.Offset)

	var list []models.WithdrawalRequest
	err := q.Order("requested_at DESC").Limit(f.Limit).Offset(f.Offset).Find(&list).Error
	return list, total, err
}
