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

// ErrNegativeBalance: обновление отклонено, баланс ушёл бы в минус.
var ErrNegativeBalance = errors.New("wallet balance would become negative")

type WalletDelta struct {
	Available int64
	Withheld  int64
	Withdrawn int64
}

type WalletRepo interface {
	EnsureAndLock(ctx context.Context, userID uuid.UUID, at time.Time) (*models.Wallet, error)
	Get(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	// ApplyDelta меняет балансы одним UPDATE; ни одна колонка не может стать отрицательной.
	ApplyDelta(ctx context.Context, userID uuid.UUID, d WalletDelta, at time.Time) error

	CreateCredit(ctx context.Context, c *models.CommissionCredit) error
	GetCredit(ctx context.Context, id uuid.UUID) (*models.CommissionCredit, error)
	ListCreditsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.CommissionCredit, error)
	ListMaturedCreditIDs(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
	LockMaturedCredit(ctx context.Context, id uuid.UUID, now time.Time) (*models.CommissionCredit, error)
	// MarkCreditReleased: withheld -> released. false: кредит уже выпущен.
	MarkCreditReleased(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)

	AppendLedger(ctx context.Context, e *models.LedgerEntry) error
	ListLedger(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.LedgerEntry, int64, error)
}

type walletRepo struct{ db *gorm.DB }

func NewWalletRepo(db *gorm.DB) WalletRepo { return &walletRepo{db: db} }

func (r *walletRepo) EnsureAndLock(ctx context.Context, userID uuid.UUID, at time.Time) (*models.Wallet, error) {
	row := models.Wallet{UserID: userID, UpdatedAt: at}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error; err != nil {
		return nil, err
	}

	var w models.Wallet
	if err := r.db.WithContext(ctx).
		Clauses(forUpdate).
		First(&w, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *walletRepo) Get(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	var w models.Wallet
	err := r.db.WithContext(ctx).First(&w, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *walletRepo) ApplyDelta(ctx context.Context, userID uuid.UUID, d WalletDelta, at time.Time) error {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE wallets
		SET available_cents       = available_cents + @avail,
		    withheld_cents        = withheld_cents + @held,
		    total_withdrawn_cents = total_withdrawn_cents + @withdrawn,
		    updated_at            = @at
		WHERE user_id = @uid
		  AND available_cents + @avail >= 0
		  AND withheld_cents + @held >= 0`,
		map[string]any{
			"avail":     d.Available,
			"held":      d.Withheld,
			"withdrawn": d.Withdrawn,
			"at":        at,
			"uid":       userID,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNegativeBalance
	}
	return nil
}

func (r *walletRepo) CreateCredit(ctx context.Context, c *models.CommissionCredit) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *walletRepo) GetCredit(ctx context.Context, id uuid.UUID) (*models.CommissionCredit, error) {
	var c models.CommissionCredit
	err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *walletRepo) ListCreditsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.CommissionCredit, error) {
	var list []models.CommissionCredit
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&list).Error
	return list, err
}

func (r *walletRepo) ListMaturedCreditIDs(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	if limit <= 0 {
		limit = 500
	}
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.CommissionCredit{}).
		Where("status = ? AND matures_at <= ?", models.CreditWithheld, now).
		Order("matures_at ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}

// LockMaturedCredit берёт кредит под блокировку; занятый другим воркером пропускается (nil, nil).
func (r *walletRepo) LockMaturedCredit(ctx context.Context, id uuid.UUID, now time.Time) (*models.CommissionCredit, error) {
	var c models.CommissionCredit
	err := r.db.WithContext(ctx).
		Clauses(forUpdateSkipLocked).
		Where("id = ? AND status = ? AND matures_at <= ?", id, models.CreditWithheld, now).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *walletRepo) MarkCreditReleased(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	tx := r.db.WithContext(ctx).
		Model(&models.CommissionCredit{}).
		Where("id = ? AND status = ?", id, models.CreditWithheld).
		Updates(map[string]any{"status": models.CreditReleased, "released_at": at})
	return tx.RowsAffected == 1, tx.Error
}

func (r *walletRepo) AppendLedger(ctx context.Context, e *models.LedgerEntry) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *walletRepo) ListLedger(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.LedgerEntry, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.LedgerEntry{}).Where("user_id = ?", userID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit, offset = normalizePage(limit, offset)

	var list []models.LedgerEntry
	err := q.Order("created_at DESC").Order("id ASC").Limit(limit).Offset(offset).Find(&list).Error
	return list, total, err
}
