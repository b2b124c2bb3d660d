package migrate

import (
	"context"

	"pickup-service/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type MigrateOptions struct {
	CreateChecks    bool // CHECK-constraint'ы (Postgres)
	CreateIndexes   bool // частичные индексы и UNIQUE (Postgres)
	CreateFKsViaSQL bool // FK через Exec после AutoMigrate
}

func DefaultMigrateOptions() MigrateOptions {
	return MigrateOptions{
		CreateChecks:    true,
		CreateIndexes:   true,
		CreateFKsViaSQL: true,
	}
}

// TablesOnly: только AutoMigrate, без диалектного SQL (используется с SQLite в тестах).
func TablesOnly() MigrateOptions { return MigrateOptions{} }

type step struct {
	name string
	sql  string
}

var checkSteps = []step{
	{"chk inventory_items.status", `
ALTER TABLE inventory_items
	DROP CONSTRAINT IF EXISTS chk_inventory_items_status_allowed,
	ADD CONSTRAINT chk_inventory_items_status_allowed
	CHECK (status IN ('available','reserved','sold','returned'));`},
	{"chk inventory_items.pickup", `
ALTER TABLE inventory_items
	DROP CONSTRAINT IF EXISTS chk_inventory_items_pickup_ref,
	ADD CONSTRAINT chk_inventory_items_pickup_ref
	CHECK (status = 'available' OR pickup_id IS NOT NULL);`},
	{"chk pickups.quantity", `
ALTER TABLE pickups
	DROP CONSTRAINT IF EXISTS chk_pickups_quantity_gt_zero,
	ADD CONSTRAINT chk_pickups_quantity_gt_zero
	CHECK (quantity > 0);`},
	{"chk pickups.status", `
ALTER TABLE pickups
	DROP CONSTRAINT IF EXISTS chk_pickups_status_allowed,
	ADD CONSTRAINT chk_pickups_status_allowed
	CHECK (status IN ('pending','sold','transfer_requested','transferred','return_requested','returned','expired'));`},
	{"chk pickup_allowances.max_open", `
ALTER TABLE pickup_allowances
	DROP CONSTRAINT IF EXISTS chk_pickup_allowances_positive,
	ADD CONSTRAINT chk_pickup_allowances_positive
	CHECK (max_open > 0);`},
	{"chk orders.amount", `
ALTER TABLE orders
	DROP CONSTRAINT IF EXISTS chk_orders_sold_amount_positive,
	ADD CONSTRAINT chk_orders_sold_amount_positive
	CHECK (sold_amount_cents > 0);`},
	{"chk wallets.non_negative", `
ALTER TABLE wallets
	DROP CONSTRAINT IF EXISTS chk_wallets_non_negative,
	ADD CONSTRAINT chk_wallets_non_negative
	CHECK (available_cents >= 0 AND withheld_cents >= 0 AND total_withdrawn_cents >= 0);`},
	{"chk commission_credits.amount", `
ALTER TABLE commission_credits
	DROP CONSTRAINT IF EXISTS chk_commission_credits_amount_positive,
	ADD CONSTRAINT chk_commission_credits_amount_positive
	CHECK (amount_cents > 0);`},
	{"chk withdrawal_requests.amount", `
ALTER TABLE withdrawal_requests
	DROP CONSTRAINT IF EXISTS chk_withdrawal_requests_amount_positive,
	ADD CONSTRAINT chk_withdrawal_requests_amount_positive
	CHECK (amount_cents > 0);`},
	{"chk request statuses", `
ALTER TABLE withdrawal_requests
	DROP CONSTRAINT IF EXISTS chk_withdrawal_requests_status_allowed,
	ADD CONSTRAINT chk_withdrawal_requests_status_allowed
	CHECK (status IN ('pending','approved','rejected'));
ALTER TABLE extra_pickup_requests
	DROP CONSTRAINT IF EXISTS chk_extra_pickup_requests_status_allowed,
	ADD CONSTRAINT chk_extra_pickup_requests_status_allowed
	CHECK (status IN ('pending','approved','rejected'));`},
}

var indexSteps = []step{
	// Одна незакрытая заявка на расширение лимита на маркетолога
	{"ux extra_pickup_requests pending", `
CREATE UNIQUE INDEX IF NOT EXISTS ux_extra_pickup_requests_pending
ON extra_pickup_requests (marketer_id) WHERE status = 'pending';`},
	// Сканы свипера и релиза идут только по «живым» строкам
	{"ix pickups pending deadline", `
CREATE INDEX IF NOT EXISTS ix_pickups_pending_deadline
ON pickups (deadline) WHERE status = 'pending';`},
	{"ix credits withheld maturity", `
CREATE INDEX IF NOT EXISTS ix_commission_credits_withheld_maturity
ON commission_credits (matures_at) WHERE status = 'withheld';`},
}

var fkSteps = []step{
	{"fk inventory_items.product_id", `
ALTER TABLE inventory_items
  DROP CONSTRAINT IF EXISTS fk_inventory_items_product,
  ADD CONSTRAINT fk_inventory_items_product
    FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE RESTRICT;`},
	{"fk inventory_items.pickup_id", `
ALTER TABLE inventory_items
  DROP CONSTRAINT IF EXISTS fk_inventory_items_pickup,
  ADD CONSTRAINT fk_inventory_items_pickup
    FOREIGN KEY (pickup_id) REFERENCES pickups(id) ON DELETE RESTRICT;`},
	{"fk pickups refs", `
ALTER TABLE pickups
  DROP CONSTRAINT IF EXISTS fk_pickups_product,
  ADD CONSTRAINT fk_pickups_product
    FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE RESTRICT,
  DROP CONSTRAINT IF EXISTS fk_pickups_dealer,
  ADD CONSTRAINT fk_pickups_dealer
    FOREIGN KEY (dealer_id) REFERENCES dealers(id) ON DELETE RESTRICT;`},
	{"fk orders.pickup_id", `
ALTER TABLE orders
  DROP CONSTRAINT IF EXISTS fk_orders_pickup,
  ADD CONSTRAINT fk_orders_pickup
    FOREIGN KEY (pickup_id) REFERENCES pickups(id) ON DELETE RESTRICT;`},
	{"fk commission_credits.order_id", `
ALTER TABLE commission_credits
  DROP CONSTRAINT IF EXISTS fk_commission_credits_order,
  ADD CONSTRAINT fk_commission_credits_order
    FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE RESTRICT;`},
}

func MigratePickupDB(ctx context.Context, db *gorm.DB, log *zap.Logger, opt MigrateOptions) error {
	log.Info("Начало миграции базы выдач и кошельков")

	db = db.WithContext(ctx)

	log.Info("Создание таблиц")
	if err := db.AutoMigrate(
		&models.User{},
		&models.Dealer{},
		&models.Product{},
		&models.Pickup{},
		&models.InventoryItem{},
		&models.PickupAllowance{},
		&models.ExtraPickupRequest{},
		&models.Order{},
		&models.Wallet{},
		&models.CommissionCredit{},
		&models.WithdrawalRequest{},
		&models.LedgerEntry{},
	); err != nil {
		log.Error("AutoMigrate error", zap.Error(err))
		return err
	}
	log.Info("Таблицы созданы")

	if opt.CreateChecks {
		log.Info("Создание CHECK-ограничений")
		if err := run(db, log, checkSteps); err != nil {
			return err
		}
		log.Info("CHECK-и созданы")
	}

	if opt.CreateIndexes {
		log.Info("Создание частичных индексов")
		if err := run(db, log, indexSteps); err != nil {
			return err
		}
		log.Info("Индексы созданы")
	}

	if opt.CreateFKsViaSQL {
		log.Info("Создание внешних ключей")
		if err := run(db, log, fkSteps); err != nil {
			return err
		}
		log.Info("Внешние ключи созданы")
	}

	log.Info("Миграция базы выдач и кошельков успешно завершена")
	return nil
}

func run(db *gorm.DB, log *zap.Logger, steps []step) error {
	for _, s := range steps {
		if err := db.Exec(s.sql).Error; err != nil {
			log.Error(s.name, zap.Error(err))
			return err
		}
	}
	return nil
}
