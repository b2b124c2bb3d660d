package repository

import (
	"context"
	"errors"
	"time"

	"pickup-service/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ExtraRequestFilter struct {
	MarketerID *uuid.UUID
	Status     *models.RequestStatus
	Limit      int
	Offset     int
}

type AllowanceRepo interface {
	// EnsureAndLock создаёт строку лимита со значением по умолчанию (если её нет)
	// и блокирует её до конца транзакции. Сериализует создание выдач одного маркетолога.
	EnsureAndLock(ctx context.Context, marketerID uuid.UUID, defaultMax int32, at time.Time) (*models.PickupAllowance, error)
	Get(ctx context.Context, marketerID uuid.UUID) (*models.PickupAllowance, error)
	SetMaxOpen(ctx context.Context, marketerID uuid.UUID, maxOpen int32, at time.Time) error

	CreateRequest(ctx context.Context, req *models.ExtraPickupRequest) error
	FindPendingRequest(ctx context.Context, marketerID uuid.UUID) (*models.ExtraPickupRequest, error)
	GetRequestForUpdate(ctx context.Context, id uuid.UUID) (*models.ExtraPickupRequest, error)
	// MarkRequestReviewed: pending -> approved|rejected. false: заявка уже рассмотрена.
	MarkRequestReviewed(ctx context.Context, id uuid.UUID, status models.RequestStatus, reviewer uuid.UUID, at time.Time) (bool, error)
	ListRequests(ctx context.Context, f ExtraRequestFilter) ([]models.ExtraPickupRequest, int64, error)
}

type allowanceRepo struct{ db *gorm.DB }

func NewAllowanceRepo(db *gorm.DB) AllowanceRepo { return &allowanceRepo{db: db} }

func (r *allowanceRepo) EnsureAndLock(ctx context.Context, marketerID uuid.UUID, defaultMax int32, at time.Time) (*models.PickupAllowance, error) {
	row := models.PickupAllowance{MarketerID: marketerID, MaxOpen: defaultMax, UpdatedAt: at}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error; err != nil {
		return nil, err
	}

	var a models.PickupAllowance
	if err := r.db.WithContext(ctx).
		Clauses(forUpdate).
		First(&a, "marketer_id = ?", marketerID).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *allowanceRepo) Get(ctx context.Context, marketerID uuid.UUID) (*models.PickupAllowance, error) {
	var a models.PickupAllowance
	err := r.db.WithContext(ctx).First(&a, "marketer_id = ?", marketerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *allowanceRepo) SetMaxOpen(ctx context.Context, marketerID uuid.UUID, maxOpen int32, at time.Time) error {
	row := models.PickupAllowance{MarketerID: marketerID, MaxOpen: maxOpen, UpdatedAt: at}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "marketer_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"max_open", "updated_at"}),
		}).
		Create(&row).Error
}

func (r *allowanceRepo) CreateRequest(ctx context.Context, req *models.ExtraPickupRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *allowanceRepo) FindPendingRequest(ctx context.Context, marketerID uuid.UUID) (*models.ExtraPickupRequest, error) {
	var req models.ExtraPickupRequest
	err := r.db.WithContext(ctx).
		Where("marketer_id = ? AND status = ?", marketerID, models.RequestPending).
		First(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *allowanceRepo) GetRequestForUpdate(ctx context.Context, id uuid.UUID) (*models.ExtraPickupRequest, error) {
	var req models.ExtraPickupRequest
	err := r.db.WithContext(ctx).Clauses(forUpdate).First(&req, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *allowanceRepo) MarkRequestReviewed(ctx context.Context, id uuid.UUID, status models.RequestStatus, reviewer uuid.UUID, at time.Time) (bool, error) {
	tx := r.db.WithContext(ctx).
		Model(&models.ExtraPickupRequest{}).
		Where("id = ? AND status = ?", id, models.RequestPending).
		Updates(map[string]any{
			"status":      status,
			"reviewed_by": reviewer,
			"reviewed_at": at,
		})
	return tx.RowsAffected == 1, tx.Error
}

func (r *allowanceRepo) ListRequests(ctx context.Context, f ExtraRequestFilter) ([]models.ExtraPickupRequest, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.ExtraPickupRequest{})
	if f.MarketerID != nil {
		q = q.Where("marketer_id = ?", *f.MarketerID)
	}
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	f.Limit, f.Offset = normalizePage(f.Limit, f.Offset)

	var list []models.ExtraPickupRequest
	err := q.Order("created_at DESC").Limit(f.Limit).Offset(f.Offset).Find(&list).Error
	return list, total, err
}
