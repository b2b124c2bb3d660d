package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"pickup-service/internal/database"
	"pickup-service/internal/migrate"
	"pickup-service/internal/models"
	"pickup-service/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Base: фиксированная точка отсчёта времени в тестах (целые секунды, UTC).
var Base = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

// NewSQLiteDB: изолированная in-memory база с одним соединением.
// Блокировки строк SQLite игнорирует; корректность держится на условных UPDATE.
func NewSQLiteDB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := migrate.MigratePickupDB(context.Background(), db, zap.NewNop(), migrate.TablesOnly()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// NewPostgresDB поднимает Postgres в контейнере и накатывает полную миграцию.
// Пропускает тест при -short или без Docker.
func NewPostgresDB(t *testing.T) *gorm.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres integration test skipped in -short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("pickup"),
		tcpostgres.WithUsername("pickup"),
		tcpostgres.WithPassword("pickup"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = ctr.Terminate(context.Background()) })

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable", "TimeZone=UTC")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	t.Cleanup(func() { database.CloseDB(db, zap.NewNop()) })

	if err := migrate.MigratePickupDB(ctx, db, zap.NewNop(), migrate.DefaultMigrateOptions()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// Org: маркетолог с полной цепочкой руководителей и оператор.
type Org struct {
	Operator   models.User
	SuperAdmin models.User
	Admin      models.User
	Marketer   models.User
}

func SeedUser(t testing.TB, repo *repository.Repository, role models.Role, supervisor *uuid.UUID) models.User {
	t.Helper()
	u := models.User{Role: role, SupervisorID: supervisor, FullName: string(role), CreatedAt: Base}
	if err := repo.Users.Create(context.Background(), &u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedOrg(t testing.TB, repo *repository.Repository) Org {
	t.Helper()
	var o Org
	o.Operator = SeedUser(t, repo, models.RoleOperator, nil)
	o.SuperAdmin = SeedUser(t, repo, models.RoleSuperAdmin, &o.Operator.ID)
	o.Admin = SeedUser(t, repo, models.RoleAdmin, &o.SuperAdmin.ID)
	o.Marketer = SeedUser(t, repo, models.RoleMarketer, &o.Admin.ID)
	return o
}

func SeedDealer(t testing.TB, repo *repository.Repository) models.Dealer {
	t.Helper()
	d := models.Dealer{Name: "dealer", IsActive: true, CreatedAt: Base}
	if err := repo.Catalog.CreateDealer(context.Background(), &d); err != nil {
		t.Fatalf("seed dealer: %v", err)
	}
	return d
}

// SeedProduct создаёт активный товар и units доступных единиц.
func SeedProduct(t testing.TB, repo *repository.Repository, priceCents int64, units int) models.Product {
	t.Helper()
	ctx := context.Background()
	p := models.Product{SKU: "SKU-" + uuid.NewString()[:8], Name: "device", PriceCents: priceCents, IsActive: true, CreatedAt: Base, UpdatedAt: Base}
	if err := repo.Catalog.CreateProduct(ctx, &p); err != nil {
		t.Fatalf("seed product: %v", err)
	}
	if _, err := repo.Inventory.AddUnits(ctx, p.ID, units, Base.Add(-time.Hour)); err != nil {
		t.Fatalf("seed units: %v", err)
	}
	return p
}

// SeedWallet выставляет балансы кошелька напрямую (только для тестов).
func SeedWallet(t testing.TB, db *gorm.DB, userID uuid.UUID, available, withheld int64) {
	t.Helper()
	w := models.Wallet{UserID: userID, AvailableCents: available, WithheldCents: withheld, UpdatedAt: Base}
	if err := db.Save(&w).Error; err != nil {
		t.Fatalf("seed wallet: %v", err)
	}
}
