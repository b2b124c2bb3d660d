package repository

import (
	"context"
	"errors"

	"pickup-service/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CatalogRepo: чтение справочников товаров и дилеров. Сам каталог ведёт внешний сервис,
// запись здесь нужна только для синхронизации и сидов.
type CatalogRepo interface {
	CreateProduct(ctx context.Context, p *models.Product) error
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	CreateDealer(ctx context.Context, d *models.Dealer) error
	GetDealer(ctx context.Context, id uuid.UUID) (*models.Dealer, error)
}

type catalogRepo struct{ db *gorm.DB }

func NewCatalogRepo(db *gorm.DB) CatalogRepo { return &catalogRepo{db: db} }

func (r *catalogRepo) CreateProduct(ctx context.Context, p *models.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *catalogRepo) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var p models.Product
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *catalogRepo) CreateDealer(ctx context.Context, d *models.Dealer) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *catalogRepo) GetDealer(ctx context.Context, id uuid.UUID) (*models.Dealer, error) {
	var d models.Dealer
	err := r.db.WithContext(ctx).First(&d, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}
