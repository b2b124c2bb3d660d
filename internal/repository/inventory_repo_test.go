package repository_test

import (
	"context"
	"testing"
	"time"

	"pickup-service/internal/models"
	"pickup-service/internal/repository"
	"pickup-service/internal/testutil"

	"github.com/google/uuid"
)

func TestInventoryRepo_ClaimLifecycle(t *testing.T) {
	repo := repository.New(testutil.NewSQLiteDB(t))
	ctx := context.Background()
	product := testutil.SeedProduct(t, repo, 1000, 0)
	at := testutil.Base

	units, err := repo.Inventory.AddUnits(ctx, product.ID, 5, at.Add(-time.Hour))
	if err != nil {
		t.Fatalf("AddUnits: %v", err)
	}
	if len(units) != 5 {
		t.Fatalf("AddUnits returned %d units", len(units))
	}

	// ClaimAvailable: самые старые первыми
	p1 := uuid.New()
	n, err := repo.Inventory.ClaimAvailable(ctx, product.ID, p1, 2, at)
	if err != nil || n != 2 {
		t.Fatalf("ClaimAvailable = %d, %v", n, err)
	}
	claimed, err := repo.Inventory.ListByPickup(ctx, p1)
	if err != nil {
		t.Fatalf("ListByPickup: %v", err)
	}
	if len(claimed) != 2 || claimed[0].ID != units[0].ID || claimed[1].ID != units[1].ID {
		t.Fatalf("claim is not FIFO: %+v", claimed)
	}

	// нехватка: ничего не захвачено, возвращается сколько было доступно
	p2 := uuid.New()
	n, err = repo.Inventory.ClaimAvailable(ctx, product.ID, p2, 4, at)
	if err != nil || n != 3 {
		t.Fatalf("short ClaimAvailable = %d, %v", n, err)
	}
	if got, _ := repo.Inventory.ListByPickup(ctx, p2); len(got) != 0 {
		t.Fatalf("short claim must not reserve anything, got %d", len(got))
	}

	// Repoint переносит резерв на другую выдачу
	p3 := uuid.New()
	if n, err := repo.Inventory.Repoint(ctx, p1, p3, at); err != nil || n != 2 {
		t.Fatalf("Repoint = %d, %v", n, err)
	}

	// MarkSold / Restock трогают только reserved-единицы выдачи
	if n, err := repo.Inventory.MarkSold(ctx, p1, at); err != nil || n != 0 {
		t.Fatalf("MarkSold on old pickup = %d, %v", n, err)
	}
	if n, err := repo.Inventory.MarkSold(ctx, p3, at); err != nil || n != 2 {
		t.Fatalf("MarkSold = %d, %v", n, err)
	}
	if n, err := repo.Inventory.Restock(ctx, p3, at); err != nil || n != 0 {
		t.Fatalf("Restock of sold units = %d, %v", n, err)
	}

	c, err := repo.Inventory.Counts(ctx, product.ID)
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if c != (repository.StockCounts{Available: 3, Sold: 2}) {
		t.Fatalf("Counts = %+v", c)
	}
}

func TestInventoryRepo_RestockReleasesReservation(t *testing.T) {
	repo := repository.New(testutil.NewSQLiteDB(t))
	ctx := context.Background()
	product := testutil.SeedProduct(t, repo, 1000, 3)

	pickup := uuid.New()
	if _, err := repo.Inventory.ClaimAvailable(ctx, product.ID, pickup, 3, testutil.Base); err != nil {
		t.Fatalf("ClaimAvailable: %v", err)
	}
	n, err := repo.Inventory.Restock(ctx, pickup, testutil.Base)
	if err != nil || n != 3 {
		t.Fatalf("Restock = %d, %v", n, err)
	}
	items, err := repo.Inventory.ListByPickup(ctx, pickup)
	if err != nil {
		t.Fatalf("ListByPickup: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("restocked units still point at pickup: %d", len(items))
	}

	var avail int64
	repo.DB.Model(&models.InventoryItem{}).Where("status = ?", models.ItemAvailable).Count(&avail)
	if avail != 3 {
		t.Fatalf("available = %d", avail)
	}
}
