package service

import (
	"context"
	"fmt"
	"time"

	"pickup-service/internal/clock"
	"pickup-service/internal/models"
	"pickup-service/internal/notify"
	"pickup-service/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type PlaceOrderInput struct {
	PickupID        uuid.UUID
	SoldAmountCents int64
	SaleDate        *time.Time
}

type OrderQuery struct {
	DealerID *uuid.UUID
	From     *time.Time
	To       *time.Time
	Limit    int
	Offset   int
}

// Settlement описывает результат продажи: заказ и удержанные начисления по цепочке.
type Settlement struct {
	Order   *models.Order             `json:"order"`
	Credits []models.CommissionCredit `json:"credits"`
}

type SettlementService struct {
	repo     *repository.Repository
	policy   *CommissionPolicy
	clock    clock.Clock
	notifier Notifier
	log      *zap.Logger
}

func NewSettlementService(repo *repository.Repository, policy *CommissionPolicy, clk clock.Clock, n Notifier, log *zap.Logger) *SettlementService {
	if n == nil {
		n = nopNotifier{}
	}
	return &SettlementService{repo: repo, policy: policy, clock: clk, notifier: n, log: log}
}

// PlaceOrder превращает pending-выдачу в продажу одной транзакцией: единицы -> sold,
// выдача -> sold, заказ, удержанная комиссия по цепочке. Статус выдачи является единственным
// критерием, просроченную выдачу уже перевёл в expired свипер.
func (s *SettlementService) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*Settlement, error) {
	actor, err := authorize(ctx, CapSellPickup)
	if err != nil {
		return nil, err
	}
	if in.SoldAmountCents <= 0 {
		return nil, ErrInvalidAmount
	}

	now := s.clock.Now()
	saleDate := now
	if in.SaleDate != nil {
		saleDate = in.SaleDate.UTC()
	}

	res := &Settlement{}
	var pickup *models.Pickup
	err = s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		p, err := tx.Pickups.GetForUpdate(ctx, in.PickupID)
		if err != nil {
			return err
		}
		if p == nil {
			return ErrPickupNotFound
		}
		if p.MarketerID != actor.ID {
			return ErrForbidden
		}
		if p.Status != models.PickupPending {
			return pickupStateError("sell", p.Status)
		}
		pickup = p

		product, err := tx.Catalog.GetProduct(ctx, p.ProductID)
		if err != nil {
			return err
		}
		if product == nil {
			return ErrProductNotFound
		}

		sold, err := tx.Inventory.MarkSold(ctx, p.ID, now)
		if err != nil {
			return err
		}
		if sold != int64(p.Quantity) {
			return fmt.Errorf("pickup %s holds %d reserved items, expected %d", p.ID, sold, p.Quantity)
		}

		ok, err := tx.Pickups.Transition(ctx, p.ID, models.PickupPending, models.PickupSold, map[string]any{
			"resolved_at": now,
			"updated_at":  now,
		})
		if err != nil {
			return err
		}
		if !ok {
			return pickupStateError("sell", p.Status)
		}
		p.Status, p.ResolvedAt, p.UpdatedAt = models.PickupSold, &now, now

		order := &models.Order{
			PickupID:        p.ID,
			MarketerID:      p.MarketerID,
			DealerID:        p.DealerID,
			ProductID:       p.ProductID,
			Quantity:        p.Quantity,
			SoldAmountCents: in.SoldAmountCents,
			UnitPriceCents:  product.PriceCents,
			ListAmountCents: product.PriceCents * int64(p.Quantity),
			Status:          models.OrderPending,
			SaleDate:        saleDate,
			CreatedAt:       now,
		}
		if err := tx.Orders.Create(ctx, order); err != nil {
			if repository.IsUniqueViolation(err) {
				return fmt.Errorf("%w: pickup %s already settled", ErrState, p.ID)
			}
			return err
		}
		res.Order = order

		chain, err := tx.Users.Chain(ctx, p.MarketerID)
		if err != nil {
			return err
		}
		maturesAt := now.Add(s.policy.Hold())
		for _, share := range s.policy.Split(order.SoldAmountCents, chain) {
			c := &models.CommissionCredit{
				UserID:      share.User.ID,
				OrderID:     order.ID,
				Tier:        share.User.Role,
				AmountCents: share.AmountCents,
				MaturesAt:   maturesAt,
			}
			if err := postWithheld(ctx, tx, c, now); err != nil {
				return err
			}
			res.Credits = append(res.Credits, *c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("pickup settled",
		zap.String("pickup_id", pickup.ID.String()),
		zap.String("order_id", res.Order.ID.String()),
		zap.Int64("sold_amount_cents", res.Order.SoldAmountCents),
		zap.Int("credits", len(res.Credits)))
	notifyAfterCommit(ctx, s.notifier, s.log, pickup.MarketerID, notify.Event{
		Type:     notify.EventPickupSold,
		EntityID: pickup.ID,
		Data: map[string]any{
			"order_id":          res.Order.ID,
			"sold_amount_cents": res.Order.SoldAmountCents,
			"quantity":          pickup.Quantity,
		},
		OccurredAt: now,
	})
	return res, nil
}

func (s *SettlementService) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	o, err := s.repo.Orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, ErrOrderNotFound
	}
	ok, err := canView(ctx, s.repo.Users, actor, o.MarketerID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}
	return o, nil
}

func (s *SettlementService) ListOrders(ctx context.Context, q OrderQuery) ([]models.Order, int64, error) {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return nil, 0, err
	}
	ids, err := visibleUserIDs(ctx, s.repo.Users, actor)
	if err != nil {
		return nil, 0, err
	}
	return s.repo.Orders.List(ctx, repository.OrderListFilter{
		MarketerIDs: ids,
		DealerID:    q.DealerID,
		From:        q.From,
		To:          q.To,
		Limit:       q.Limit,
		Offset:      q.Offset,
	})
}
