package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pickup-service/internal/clock"
	"pickup-service/internal/models"
	"pickup-service/internal/notify"
	"pickup-service/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type WalletSummary struct {
	UserID                 uuid.UUID `json:"user_id"`
	AvailableCents         int64     `json:"available_cents"`
	WithheldCents          int64     `json:"withheld_cents"`
	TotalWithdrawnCents    int64     `json:"total_withdrawn_cents"`
	PendingWithdrawals     int64     `json:"pending_withdrawals"`
	PendingWithdrawalCents int64     `json:"pending_withdrawal_cents"`
}

type WithdrawalQuery struct {
	Status *models.RequestStatus
	Limit  int
	Offset int
}

type WalletService struct {
	repo      *repository.Repository
	clock     clock.Clock
	notifier  Notifier
	log       *zap.Logger
	batchSize int
}

func NewWalletService(repo *repository.Repository, clk clock.Clock, n Notifier, log *zap.Logger, batchSize int) *WalletService {
	if n == nil {
		n = nopNotifier{}
	}
	if batchSize <= 0 {
		batchSize = 500
	}
	return &WalletService{repo: repo, clock: clk, notifier: n, log: log, batchSize: batchSize}
}

// CreditWithheld: служебное начисление удержанной суммы с датой созревания.
// Расчёт заказа делает то же самое внутри своей транзакции.
func (s *WalletService) CreditWithheld(ctx context.Context, userID, orderID uuid.UUID, tier models.Role, amountCents int64, maturesAt time.Time) (*models.CommissionCredit, error) {
	if amountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	c := &models.CommissionCredit{
		UserID:      userID,
		OrderID:     orderID,
		Tier:        tier,
		AmountCents: amountCents,
		MaturesAt:   maturesAt.UTC(),
	}
	now := s.clock.Now()
	err := s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		u, err := tx.Users.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if u == nil {
			return ErrUserNotFound
		}
		return postWithheld(ctx, tx, c, now)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ReleaseMatured переводит созревшие кредиты в доступный баланс, каждый в своей транзакции.
// Ошибка одного кредита логируется, остальные обрабатываются. Возвращает число выпущенных.
func (s *WalletService) ReleaseMatured(ctx context.Context) (int, error) {
	released, failed := 0, 0
	for {
		now := s.clock.Now()
		ids, err := s.repo.Wallets.ListMaturedCreditIDs(ctx, now, s.batchSize)
		if err != nil {
			return released, err
		}
		if len(ids) == 0 {
			break
		}

		progress := 0
		for _, id := range ids {
			if ctx.Err() != nil {
				return released, ctx.Err()
			}
			var c *models.CommissionCredit
			err := s.repo.WithTx(ctx, func(tx *repository.Repository) error {
				var err error
				c, err = releaseCredit(ctx, tx, id, now)
				return err
			})
			if err != nil {
				failed++
				s.log.Error("commission release failed", zap.String("credit_id", id.String()), zap.Error(err))
				continue
			}
			if c == nil {
				continue
			}
			released++
			progress++
			notifyAfterCommit(ctx, s.notifier, s.log, c.UserID, notify.Event{
				Type:     notify.EventCommissionReleased,
				EntityID: c.ID,
				Data: map[string]any{
					"order_id":     c.OrderID,
					"amount_cents": c.AmountCents,
				},
				OccurredAt: now,
			})
		}
		if len(ids) < s.batchSize || progress == 0 {
			break
		}
	}

	if released > 0 || failed > 0 {
		s.log.Info("matured commission released", zap.Int("count", released), zap.Int("failed", failed))
	}
	return released, nil
}

// RequestWithdrawal создаёт pending-заявку. Баланс не двигается до одобрения.
func (s *WalletService) RequestWithdrawal(ctx context.Context, amountCents int64, note string) (*models.WithdrawalRequest, error) {
	actor, err := authorize(ctx, CapRequestWithdrawal)
	if err != nil {
		return nil, err
	}
	if amountCents <= 0 {
		return nil, ErrInvalidAmount
	}

	w, err := s.repo.Wallets.Get(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if w == nil || w.AvailableCents < amountCents {
		return nil, ErrInsufficientBalance
	}

	now := s.clock.Now()
	req := &models.WithdrawalRequest{
		UserID:      actor.ID,
		AmountCents: amountCents,
		Status:      models.RequestPending,
		Note:        strings.TrimSpace(note),
		RequestedAt: now,
	}
	if err := s.repo.Withdrawals.Create(ctx, req); err != nil {
		return nil, err
	}

	s.log.Info("withdrawal requested",
		zap.String("request_id", req.ID.String()),
		zap.String("user_id", actor.ID.String()),
		zap.Int64("amount_cents", amountCents))
	notifyAfterCommit(ctx, s.notifier, s.log, actor.ID, notify.Event{
		Type:       notify.EventWithdrawalRequested,
		EntityID:   req.ID,
		Data:       map[string]any{"amount_cents": amountCents},
		OccurredAt: now,
	})
	return req, nil
}

// ReviewWithdrawal: решение оператора. При одобрении баланс перепроверяется под
// блокировкой кошелька; нехватка даёт ErrConcurrencyConflict, заявка остаётся pending.
func (s *WalletService) ReviewWithdrawal(ctx context.Context, requestID uuid.UUID, approve bool, note string) (*models.WithdrawalRequest, error) {
	actor, err := authorize(ctx, CapReviewWithdrawal)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	status := models.RequestRejected
	if approve {
		status = models.RequestApproved
	}
	note = strings.TrimSpace(note)

	var req *models.WithdrawalRequest
	err = s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		var err error
		if req, err = tx.Withdrawals.GetForUpdate(ctx, requestID); err != nil {
			return err
		}
		if req == nil {
			return ErrWithdrawalNotFound
		}
		if req.Status != models.RequestPending {
			return ErrAlreadyReviewed
		}
		if approve {
			if err := debitWithdrawal(ctx, tx, req, now); err != nil {
				return err
			}
		}
		ok, err := tx.Withdrawals.MarkReviewed(ctx, req.ID, status, actor.ID, note, now)
		if err != nil {
			return err
		}
		if !ok {
			return ErrAlreadyReviewed
		}
		req.Status, req.ReviewedBy, req.ReviewedAt = status, &actor.ID, &now
		if note != "" {
			req.Note = note
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("withdrawal reviewed",
		zap.String("request_id", req.ID.String()),
		zap.String("status", string(status)),
		zap.String("reviewer_id", actor.ID.String()))
	notifyAfterCommit(ctx, s.notifier, s.log, req.UserID, notify.Event{
		Type:       notify.EventWithdrawalReviewed,
		EntityID:   req.ID,
		Data:       map[string]any{"status": status, "amount_cents": req.AmountCents},
		OccurredAt: now,
	})
	return req, nil
}

func (s *WalletService) GetWalletSummary(ctx context.Context, userID uuid.UUID) (*WalletSummary, error) {
	if err := s.requireView(ctx, userID); err != nil {
		return nil, err
	}

	sum := &WalletSummary{UserID: userID}
	w, err := s.repo.Wallets.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if w != nil {
		sum.AvailableCents = w.AvailableCents
		sum.WithheldCents = w.WithheldCents
		sum.TotalWithdrawnCents = w.TotalWithdrawnCents
	}
	sum.PendingWithdrawals, sum.PendingWithdrawalCents, err = s.repo.Withdrawals.PendingTotals(ctx, userID)
	if err != nil {
		return nil, err
	}
	return sum, nil
}

func (s *WalletService) ListWithdrawals(ctx context.Context, q WithdrawalQuery) ([]models.WithdrawalRequest, int64, error) {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return nil, 0, err
	}
	f := repository.WithdrawalListFilter{Status: q.Status, Limit: q.Limit, Offset: q.Offset}
	if !Can(actor.Role, CapReviewWithdrawal) {
		f.UserIDs = []uuid.UUID{actor.ID}
	}
	return s.repo.Withdrawals.List(ctx, f)
}

func (s *WalletService) ListLedger(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.LedgerEntry, int64, error) {
	if err := s.requireView(ctx, userID); err != nil {
		return nil, 0, err
	}
	return s.repo.Wallets.ListLedger(ctx, userID, limit, offset)
}

func (s *WalletService) requireView(ctx context.Context, userID uuid.UUID) error {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return err
	}
	ok, err := canView(ctx, s.repo.Users, actor, userID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: wallet of %s", ErrForbidden, userID)
	}
	return nil
}
