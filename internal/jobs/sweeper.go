package jobs

import (
	"context"
	"time"

	"pickup-service/internal/clock"
	"pickup-service/internal/models"
	"pickup-service/internal/notify"
	"pickup-service/internal/repository"
	"pickup-service/internal/service"

	"go.uber.org/zap"
)

// Sweeper: единственный источник истечения выдач.
type Sweeper struct {
	repo      *repository.Repository
	clock     clock.Clock
	notifier  service.Notifier
	log       *zap.Logger
	batchSize int
}

func NewSweeper(repo *repository.Repository, clk clock.Clock, n service.Notifier, log *zap.Logger, batchSize int) *Sweeper {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Sweeper{repo: repo, clock: clk, notifier: n, log: log, batchSize: batchSize}
}

// Sweep переводит просроченные pending-выдачи в expired пачками, каждая пачка в своей
// транзакции, и после коммита рассылает по одному уведомлению на выдачу.
// Единицы остаются reserved: просрочка требует ручного разбора.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	total := 0
	for {
		// Postgres хранит микросекунды; отметка должна совпасть при повторном чтении
		now := s.clock.Now().Truncate(time.Microsecond)

		var expired []models.Pickup
		err := s.repo.WithTx(ctx, func(tx *repository.Repository) error {
			var err error
			expired, err = tx.Pickups.ExpireOverdue(ctx, now, s.batchSize)
			return err
		})
		if err != nil {
			s.log.Error("pickup sweep failed", zap.Int("expired_so_far", total), zap.Error(err))
			return total, err
		}

		for i := range expired {
			s.notify(ctx, &expired[i], now)
		}
		total += len(expired)

		if len(expired) < s.batchSize {
			break
		}
	}

	if total > 0 {
		s.log.Info("expired overdue pickups", zap.Int("count", total))
	}
	return total, nil
}

func (s *Sweeper) notify(ctx context.Context, p *models.Pickup, now time.Time) {
	if s.notifier == nil {
		return
	}
	err := s.notifier.Notify(ctx, p.MarketerID, notify.Event{
		Type:     notify.EventPickupExpired,
		EntityID: p.ID,
		Data: map[string]any{
			"pickup_id":  p.ID,
			"product_id": p.ProductID,
			"quantity":   p.Quantity,
			"deadline":   p.Deadline,
		},
		OccurredAt: now,
	})
	if err != nil {
		s.log.Warn("expiry notification failed",
			zap.String("pickup_id", p.ID.String()),
			zap.String("marketer_id", p.MarketerID.String()),
			zap.Error(err))
	}
}
