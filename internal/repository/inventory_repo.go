package repository

import (
	"context"
	"time"

	"pickup-service/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StockCounts struct {
	Available int64
	Reserved  int64
	Sold      int64
	Returned  int64
}

type InventoryRepo interface {
	// AddUnits заводит n единиц в статусе available (поступление из каталога).
	AddUnits(ctx context.Context, productID uuid.UUID, n int, at time.Time) ([]models.InventoryItem, error)

	// ClaimAvailable атомарно переводит qty самых старых available-единиц в reserved под выдачу.
	// Строки, заблокированные конкурентным резервом, пропускаются (SKIP LOCKED).
	// Возвращает число реально захваченных единиц.
	ClaimAvailable(ctx context.Context, productID, pickupID uuid.UUID, qty int32, at time.Time) (int64, error)

	// MarkSold: reserved -> sold для единиц выдачи
	MarkSold(ctx context.Context, pickupID uuid.UUID, at time.Time) (int64, error)
	// Restock: reserved -> available, связь с выдачей снимается
	Restock(ctx context.Context, pickupID uuid.UUID, at time.Time) (int64, error)
	// Repoint перевешивает зарезервированные единицы на другую выдачу, минуя available
	Repoint(ctx context.Context, fromPickupID, toPickupID uuid.UUID, at time.Time) (int64, error)

	ListByPickup(ctx context.Context, pickupID uuid.UUID) ([]models.InventoryItem, error)
	Counts(ctx context.Context, productID uuid.UUID) (StockCounts, error)
}

type inventoryRepo struct{ db *gorm.DB }

func NewInventoryRepo(db *gorm.DB) InventoryRepo { return &inventoryRepo{db: db} }

func (r *inventoryRepo) AddUnits(ctx context.Context, productID uuid.UUID, n int, at time.Time) ([]models.InventoryItem, error) {
	if n <= 0 {
		return nil, nil
	}
	items := make([]models.InventoryItem, n)
	for i := range items {
		items[i] = models.InventoryItem{
			ProductID: productID,
			Status:    models.ItemAvailable,
			// одинаковые created_at в пачке сортируются по id; сдвиг сохраняет порядок поступления
			CreatedAt: at.Add(time.Duration(i) * time.Microsecond),
			UpdatedAt: at,
		}
	}
	if err := r.db.WithContext(ctx).Create(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *inventoryRepo) ClaimAvailable(ctx context.Context, productID, pickupID uuid.UUID, qty int32, at time.Time) (int64, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Clauses(forUpdateSkipLocked).
		Where("product_id = ? AND status = ?", productID, models.ItemAvailable).
		Order("created_at ASC").
		Order("id ASC").
		Limit(int(qty)).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, err
	}
	if len(ids) < int(qty) {
		return int64(len(ids)), nil
	}

	// status = available в WHERE: токен захвата для хранилищ без SKIP LOCKED
	tx := r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("id IN ? AND status = ?", ids, models.ItemAvailable).
		Updates(map[string]any{
			"status":     models.ItemReserved,
			"pickup_id":  pickupID,
			"updated_at": at,
		})
	return tx.RowsAffected, tx.Error
}

func (r *inventoryRepo) MarkSold(ctx context.Context, pickupID uuid.UUID, at time.Time) (int64, error) {
	tx := r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("pickup_id = ? AND status = ?", pickupID, models.ItemReserved).
		Updates(map[string]any{"status": models.ItemSold, "updated_at": at})
	return tx.RowsAffected, tx.Error
}

func (r *inventoryRepo) Restock(ctx context.Context, pickupID uuid.UUID, at time.Time) (int64, error) {
	tx := r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("pickup_id = ? AND status = ?", pickupID, models.ItemReserved).
		Updates(map[string]any{"status": models.ItemAvailable, "pickup_id": nil, "updated_at": at})
	return tx.RowsAffected, tx.Error
}

func (r *inventoryRepo) Repoint(ctx context.Context, fromPickupID, toPickupID uuid.UUID, at time.Time) (int64, error) {
	tx := r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("pickup_id = ? AND status = ?", fromPickupID, models.ItemReserved).
		Updates(map[string]any{"pickup_id": toPickupID, "updated_at": at})
	return tx.RowsAffected, tx.Error
}

func (r *inventoryRepo) ListByPickup(ctx context.Context, pickupID uuid.UUID) ([]models.InventoryItem, error) {
	var list []models.InventoryItem
	err := r.db.WithContext(ctx).
		Where("pickup_id = ?", pickupID).
		Order("created_at ASC").
		Find(&list).Error
	return list, err
}

func (r *inventoryRepo) Counts(ctx context.Context, productID uuid.UUID) (StockCounts, error) {
	type row struct {
		Status models.ItemStatus
		N      int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Select("status, COUNT(*) AS n").
		Where("product_id = ?", productID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return StockCounts{}, err
	}

	var c StockCounts
	for _, rw := range rows {
		switch rw.Status {
		case models.ItemAvailable:
			c.Available = rw.N
		case models.ItemReserved:
			c.Reserved = rw.N
		case models.ItemSold:
			c.Sold = rw.N
		case models.ItemReturned:
			c.Returned = rw.N
		}
	}
	return c, nil
}
