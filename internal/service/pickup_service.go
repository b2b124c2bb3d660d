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

type PickupConfig struct {
	Window                 time.Duration
	DefaultAllowance       int32
	TransferResetsDeadline bool
}

type CreatePickupInput struct {
	DealerID  uuid.UUID
	ProductID uuid.UUID
	Quantity  int32
}

type PickupQuery struct {
	Status    *models.PickupStatus
	ProductID *uuid.UUID
	Limit     int
	Offset    int
}

type PickupService struct {
	repo     *repository.Repository
	cfg      PickupConfig
	clock    clock.Clock
	notifier Notifier
	log      *zap.Logger
}

func NewPickupService(repo *repository.Repository, cfg PickupConfig, clk clock.Clock, n Notifier, log *zap.Logger) *PickupService {
	if n == nil {
		n = nopNotifier{}
	}
	if cfg.DefaultAllowance <= 0 {
		cfg.DefaultAllowance = 1
	}
	return &PickupService{repo: repo, cfg: cfg, clock: clk, notifier: n, log: log}
}

// CreatePickup резервирует quantity самых старых доступных единиц под новую выдачу маркетолога.
// Лимит проверяется под блокировкой строки лимита, единицы захватываются с SKIP LOCKED.
func (s *PickupService) CreatePickup(ctx context.Context, in CreatePickupInput) (*models.Pickup, error) {
	actor, err := authorize(ctx, CapCreatePickup)
	if err != nil {
		return nil, err
	}
	if in.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	now := s.clock.Now()
	p := &models.Pickup{
		MarketerID: actor.ID,
		DealerID:   in.DealerID,
		ProductID:  in.ProductID,
		Quantity:   in.Quantity,
		Status:     models.PickupPending,
		CreatedAt:  now,
		Deadline:   now.Add(s.cfg.Window),
		UpdatedAt:  now,
	}

	err = s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		dealer, err := tx.Catalog.GetDealer(ctx, in.DealerID)
		if err != nil {
			return err
		}
		if dealer == nil || !dealer.IsActive {
			return ErrDealerNotFound
		}
		product, err := tx.Catalog.GetProduct(ctx, in.ProductID)
		if err != nil {
			return err
		}
		if product == nil {
			return ErrProductNotFound
		}
		if !product.IsActive {
			return ErrInactiveProduct
		}

		allowance, err := tx.Allowances.EnsureAndLock(ctx, actor.ID, s.cfg.DefaultAllowance, now)
		if err != nil {
			return err
		}
		open, err := tx.Pickups.CountOpenByMarketer(ctx, actor.ID)
		if err != nil {
			return err
		}
		if open >= int64(allowance.MaxOpen) {
			return fmt.Errorf("%w: %d of %d pickups open", ErrAllowanceExceeded, open, allowance.MaxOpen)
		}

		if err := tx.Pickups.Create(ctx, p); err != nil {
			return err
		}
		claimed, err := tx.Inventory.ClaimAvailable(ctx, p.ProductID, p.ID, p.Quantity, now)
		if err != nil {
			return err
		}
		if claimed < int64(p.Quantity) {
			return fmt.Errorf("%w: requested %d, available %d", ErrInsufficientStock, p.Quantity, claimed)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("pickup created",
		zap.String("pickup_id", p.ID.String()),
		zap.String("marketer_id", p.MarketerID.String()),
		zap.Int32("quantity", p.Quantity))
	s.emit(ctx, p.MarketerID, notify.EventPickupCreated, p, nil)
	return p, nil
}

func (s *PickupService) GetPickup(ctx context.Context, id uuid.UUID) (*models.Pickup, error) {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	p, err := s.repo.Pickups.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrPickupNotFound
	}
	if p.TransferTargetID != nil && *p.TransferTargetID == actor.ID {
		return p, nil
	}
	ok, err := canView(ctx, s.repo.Users, actor, p.MarketerID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}
	return p, nil
}

func (s *PickupService) ListPickups(ctx context.Context, q PickupQuery) ([]models.Pickup, int64, error) {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return nil, 0, err
	}
	ids, err := visibleUserIDs(ctx, s.repo.Users, actor)
	if err != nil {
		return nil, 0, err
	}
	return s.repo.Pickups.List(ctx, repository.PickupListFilter{
		MarketerIDs: ids,
		ProductID:   q.ProductID,
		Status:      q.Status,
		Limit:       q.Limit,
		Offset:      q.Offset,
	})
}

// RequestTransfer: pending -> transfer_requested. Единицы остаются за выдачей до принятия.
func (s *PickupService) RequestTransfer(ctx context.Context, pickupID, targetID uuid.UUID) (*models.Pickup, error) {
	actor, err := authorize(ctx, CapRequestTransfer)
	if err != nil {
		return nil, err
	}
	if targetID == actor.ID {
		return nil, ErrSelfTransfer
	}

	var p *models.Pickup
	err = s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		var err error
		if p, err = s.lockOwned(ctx, tx, pickupID, actor); err != nil {
			return err
		}
		target, err := tx.Users.GetByID(ctx, targetID)
		if err != nil {
			return err
		}
		if target == nil {
			return ErrUserNotFound
		}
		if target.Role != models.RoleMarketer {
			return ErrInvalidTransferPeer
		}
		return s.transition(ctx, tx, p, "transfer", models.PickupTransferRequested, map[string]any{
			"transfer_target_id": targetID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, p.MarketerID, notify.EventTransferRequested, p, map[string]any{"target_id": targetID})
	s.emit(ctx, targetID, notify.EventTransferRequested, p, map[string]any{"from_id": p.MarketerID})
	return p, nil
}

// AcceptTransfer завершает передачу: у получателя появляется новая pending-выдача,
// зарезервированные единицы перевешиваются на неё, минуя available.
func (s *PickupService) AcceptTransfer(ctx context.Context, pickupID uuid.UUID) (*models.Pickup, error) {
	actor, err := authorize(ctx, CapRespondTransfer)
	if err != nil {
		return nil, err
	}

	var src, dst *models.Pickup
	err = s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		var err error
		if src, err = tx.Pickups.GetForUpdate(ctx, pickupID); err != nil {
			return err
		}
		if src == nil {
			return ErrPickupNotFound
		}
		if src.Status != models.PickupTransferRequested || src.TransferTargetID == nil {
			return pickupStateError("accept transfer of", src.Status)
		}
		targetID := *src.TransferTargetID
		if actor.ID != targetID && !Can(actor.Role, CapViewAll) {
			return ErrForbidden
		}

		now := s.clock.Now()
		allowance, err := tx.Allowances.EnsureAndLock(ctx, targetID, s.cfg.DefaultAllowance, now)
		if err != nil {
			return err
		}
		open, err := tx.Pickups.CountOpenByMarketer(ctx, targetID)
		if err != nil {
			return err
		}
		if open >= int64(allowance.MaxOpen) {
			return fmt.Errorf("%w: target has %d of %d pickups open", ErrAllowanceExceeded, open, allowance.MaxOpen)
		}

		deadline := src.Deadline
		if s.cfg.TransferResetsDeadline {
			deadline = now.Add(s.cfg.Window)
		}
		dst = &models.Pickup{
			MarketerID:              targetID,
			DealerID:                src.DealerID,
			ProductID:               src.ProductID,
			Quantity:                src.Quantity,
			Status:                  models.PickupPending,
			TransferredFromPickupID: &src.ID,
			CreatedAt:               now,
			Deadline:                deadline,
			UpdatedAt:               now,
		}
		if err := tx.Pickups.Create(ctx, dst); err != nil {
			return err
		}

		moved, err := tx.Inventory.Repoint(ctx, src.ID, dst.ID, now)
		if err != nil {
			return err
		}
		if moved != int64(src.Quantity) {
			return fmt.Errorf("pickup %s holds %d reserved items, expected %d", src.ID, moved, src.Quantity)
		}

		return s.transition(ctx, tx, src, "complete transfer of", models.PickupTransferred, map[string]any{
			"transferred_to_pickup_id": dst.ID,
			"resolved_at":              now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("pickup transferred",
		zap.String("pickup_id", src.ID.String()),
		zap.String("new_pickup_id", dst.ID.String()),
		zap.String("from_id", src.MarketerID.String()),
		zap.String("to_id", dst.MarketerID.String()))
	s.emit(ctx, src.MarketerID, notify.EventTransferAccepted, src, map[string]any{"new_pickup_id": dst.ID})
	s.emit(ctx, dst.MarketerID, notify.EventTransferAccepted, dst, map[string]any{"from_pickup_id": src.ID})
	return dst, nil
}

// DeclineTransfer возвращает выдачу владельцу в pending. Может вызвать получатель, владелец или оператор.
func (s *PickupService) DeclineTransfer(ctx context.Context, pickupID uuid.UUID) (*models.Pickup, error) {
	actor, err := authorize(ctx, CapRespondTransfer)
	if err != nil {
		return nil, err
	}

	var p *models.Pickup
	var targetID uuid.UUID
	err = s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		var err error
		if p, err = tx.Pickups.GetForUpdate(ctx, pickupID); err != nil {
			return err
		}
		if p == nil {
			return ErrPickupNotFound
		}
		if p.Status != models.PickupTransferRequested || p.TransferTargetID == nil {
			return pickupStateError("decline transfer of", p.Status)
		}
		targetID = *p.TransferTargetID
		if actor.ID != targetID && actor.ID != p.MarketerID && !Can(actor.Role, CapViewAll) {
			return ErrForbidden
		}
		return s.transition(ctx, tx, p, "decline transfer of", models.PickupPending, map[string]any{
			"transfer_target_id": nil,
		})
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, p.MarketerID, notify.EventTransferDeclined, p, map[string]any{"target_id": targetID})
	return p, nil
}

// RequestReturn: pending -> return_requested, ждёт подтверждения оператора.
func (s *PickupService) RequestReturn(ctx context.Context, pickupID uuid.UUID) (*models.Pickup, error) {
	actor, err := authorize(ctx, CapRequestReturn)
	if err != nil {
		return nil, err
	}

	var p *models.Pickup
	err = s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		var err error
		if p, err = s.lockOwned(ctx, tx, pickupID, actor); err != nil {
			return err
		}
		return s.transition(ctx, tx, p, "request return of", models.PickupReturnRequested, nil)
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, p.MarketerID, notify.EventReturnRequested, p, nil)
	return p, nil
}

// ConfirmReturn возвращает ровно зарезервированные единицы выдачи в available.
func (s *PickupService) ConfirmReturn(ctx context.Context, pickupID uuid.UUID) (*models.Pickup, error) {
	if _, err := authorize(ctx, CapConfirmReturn); err != nil {
		return nil, err
	}

	var p *models.Pickup
	err := s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		var err error
		if p, err = tx.Pickups.GetForUpdate(ctx, pickupID); err != nil {
			return err
		}
		if p == nil {
			return ErrPickupNotFound
		}
		if p.Status != models.PickupReturnRequested {
			return pickupStateError("confirm return of", p.Status)
		}

		now := s.clock.Now()
		restocked, err := tx.Inventory.Restock(ctx, p.ID, now)
		if err != nil {
			return err
		}
		if restocked != int64(p.Quantity) {
			return fmt.Errorf("pickup %s holds %d reserved items, expected %d", p.ID, restocked, p.Quantity)
		}
		return s.transition(ctx, tx, p, "confirm return of", models.PickupReturned, map[string]any{
			"resolved_at": now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("pickup returned", zap.String("pickup_id", p.ID.String()), zap.Int32("quantity", p.Quantity))
	s.emit(ctx, p.MarketerID, notify.EventReturnConfirmed, p, nil)
	return p, nil
}

// RejectReturn: return_requested -> pending, выдача снова подчиняется сроку.
func (s *PickupService) RejectReturn(ctx context.Context, pickupID uuid.UUID) (*models.Pickup, error) {
	if _, err := authorize(ctx, CapConfirmReturn); err != nil {
		return nil, err
	}

	var p *models.Pickup
	err := s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		var err error
		if p, err = tx.Pickups.GetForUpdate(ctx, pickupID); err != nil {
			return err
		}
		if p == nil {
			return ErrPickupNotFound
		}
		if p.Status != models.PickupReturnRequested {
			return pickupStateError("reject return of", p.Status)
		}
		return s.transition(ctx, tx, p, "reject return of", models.PickupPending, nil)
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, p.MarketerID, notify.EventReturnRejected, p, nil)
	return p, nil
}

func (s *PickupService) lockOwned(ctx context.Context, tx *repository.Repository, id uuid.UUID, actor Actor) (*models.Pickup, error) {
	p, err := tx.Pickups.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrPickupNotFound
	}
	if p.MarketerID != actor.ID {
		return nil, ErrForbidden
	}
	return p, nil
}

// transition проверяет допустимость перехода и применяет его условным UPDATE.
// Повтор уже применённого перехода: ошибка состояния, а не успех.
func (s *PickupService) transition(ctx context.Context, tx *repository.Repository, p *models.Pickup, action string, to models.PickupStatus, fields map[string]any) error {
	if !p.Status.CanTransition(to) {
		return pickupStateError(action, p.Status)
	}
	if fields == nil {
		fields = map[string]any{}
	}
	now := s.clock.Now()
	fields["updated_at"] = now

	ok, err := tx.Pickups.Transition(ctx, p.ID, p.Status, to, fields)
	if err != nil {
		return err
	}
	if !ok {
		return pickupStateError(action, p.Status)
	}

	p.Status = to
	p.UpdatedAt = now
	applyPickupFields(p, fields)
	return nil
}

func applyPickupFields(p *models.Pickup, fields map[string]any) {
	for k, v := range fields {
		switch k {
		case "transfer_target_id":
			if id, ok := v.(uuid.UUID); ok {
				p.TransferTargetID = &id
			} else {
				p.TransferTargetID = nil
			}
		case "transferred_to_pickup_id":
			if id, ok := v.(uuid.UUID); ok {
				p.TransferredToPickupID = &id
			}
		case "resolved_at":
			if t, ok := v.(time.Time); ok {
				p.ResolvedAt = &t
			}
		}
	}
}

func (s *PickupService) emit(ctx context.Context, userID uuid.UUID, t notify.EventType, p *models.Pickup, extra map[string]any) {
	data := map[string]any{
		"pickup_id":  p.ID,
		"product_id": p.ProductID,
		"dealer_id":  p.DealerID,
		"quantity":   p.Quantity,
		"status":     p.Status,
		"deadline":   p.Deadline,
	}
	for k, v := range extra {
		data[k] = v
	}
	notifyAfterCommit(ctx, s.notifier, s.log, userID, notify.Event{
		Type:       t,
		EntityID:   p.ID,
		Data:       data,
		OccurredAt: s.clock.Now(),
	})
}
