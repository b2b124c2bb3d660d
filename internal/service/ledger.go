package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pickup-service/internal/models"
	"pickup-service/internal/repository"

	"github.com/google/uuid"
)

// Все изменения балансов идут через эти функции: блокировка кошелька, изменение,
// строка журнала в той же транзакции.

func postWithheld(ctx context.Context, tx *repository.Repository, c *models.CommissionCredit, at time.Time) error {
	if c.AmountCents <= 0 {
		return ErrInvalidAmount
	}
	if _, err := tx.Wallets.EnsureAndLock(ctx, c.UserID, at); err != nil {
		return err
	}
	c.Status = models.CreditWithheld
	c.CreatedAt = at
	if err := tx.Wallets.CreateCredit(ctx, c); err != nil {
		if repository.IsUniqueViolation(err) {
			return fmt.Errorf("%w: commission for order %s already credited", ErrState, c.OrderID)
		}
		return err
	}
	if err := tx.Wallets.ApplyDelta(ctx, c.UserID, repository.WalletDelta{Withheld: c.AmountCents}, at); err != nil {
		return err
	}
	return tx.Wallets.AppendLedger(ctx, &models.LedgerEntry{
		UserID:        c.UserID,
		Kind:          models.LedgerCommissionWithheld,
		WithheldDelta: c.AmountCents,
		RefID:         c.ID,
		CreatedAt:     at,
	})
}

// releaseCredit переводит созревший кредит из withheld в available ровно один раз.
// nil без ошибки: кредит уже выпущен или занят другим воркером.
func releaseCredit(ctx context.Context, tx *repository.Repository, creditID uuid.UUID, now time.Time) (*models.CommissionCredit, error) {
	c, err := tx.Wallets.LockMaturedCredit(ctx, creditID, now)
	if err != nil || c == nil {
		return nil, err
	}
	if _, err := tx.Wallets.EnsureAndLock(ctx, c.UserID, now); err != nil {
		return nil, err
	}
	ok, err := tx.Wallets.MarkCreditReleased(ctx, c.ID, now)
	if err != nil || !ok {
		return nil, err
	}
	err = tx.Wallets.ApplyDelta(ctx, c.UserID, repository.WalletDelta{
		Available: c.AmountCents,
		Withheld:  -c.AmountCents,
	}, now)
	if err != nil {
		return nil, err
	}
	if err := tx.Wallets.AppendLedger(ctx, &models.LedgerEntry{
		UserID:         c.UserID,
		Kind:           models.LedgerCommissionReleased,
		AvailableDelta: c.AmountCents,
		WithheldDelta:  -c.AmountCents,
		RefID:          c.ID,
		CreatedAt:      now,
	}); err != nil {
		return nil, err
	}
	c.Status = models.CreditReleased
	c.ReleasedAt = &now
	return c, nil
}

// debitWithdrawal списывает одобренную заявку; доступный баланс перепроверяется под блокировкой.
func debitWithdrawal(ctx context.Context, tx *repository.Repository, req *models.WithdrawalRequest, at time.Time) error {
	w, err := tx.Wallets.EnsureAndLock(ctx, req.UserID, at)
	if err != nil {
		return err
	}
	if w.AvailableCents < req.AmountCents {
		return fmt.Errorf("%w: available %d < requested %d", ErrConcurrencyConflict, w.AvailableCents, req.AmountCents)
	}
	err = tx.Wallets.ApplyDelta(ctx, req.UserID, repository.WalletDelta{
		Available: -req.AmountCents,
		Withdrawn: req.AmountCents,
	}, at)
	if errors.Is(err, repository.ErrNegativeBalance) {
		return fmt.Errorf("%w: %v", ErrConcurrencyConflict, err)
	}
	if err != nil {
		return err
	}
	return tx.Wallets.AppendLedger(ctx, &models.LedgerEntry{
		UserID:         req.UserID,
		Kind:           models.LedgerWithdrawal,
		AvailableDelta: -req.AmountCents,
		RefID:          req.ID,
		CreatedAt:      at,
	})
}
