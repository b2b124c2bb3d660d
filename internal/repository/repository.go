package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	DB          *gorm.DB
	Users       UserRepo
	Catalog     CatalogRepo
	Inventory   InventoryRepo
	Pickups     PickupRepo
	Allowances  AllowanceRepo
	Orders      OrderRepo
	Wallets     WalletRepo
	Withdrawals WithdrawalRepo
}

func buildRepository(db *gorm.DB) *Repository {
	return &Repository{
		DB:          db,
		Users:       NewUserRepo(db),
		Catalog:     NewCatalogRepo(db),
		Inventory:   NewInventoryRepo(db),
		Pickups:     NewPickupRepo(db),
		Allowances:  NewAllowanceRepo(db),
		Orders:      NewOrderRepo(db),
		Wallets:     NewWalletRepo(db),
		Withdrawals: NewWithdrawalRepo(db),
	}
}

func New(db *gorm.DB) *Repository { return buildRepository(db) }

// WithTx: одна транзакция на весь набор репозиториев. Ошибка из fn откатывает всё.
func (r *Repository) WithTx(ctx context.Context, fn func(tx *Repository) error) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(buildRepository(tx))
	})
}

var (
	// блокирующая блокировка строки: кошельки, лимиты, заявки
	forUpdate = clause.Locking{Strength: "UPDATE"}
	// неблокирующая: конкурирующие резервы пропускают занятые строки
	forUpdateSkipLocked = clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}
)

// IsUniqueViolation распознаёт нарушение уникальности и через TranslateError, и по коду Postgres.
func IsUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 200 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
