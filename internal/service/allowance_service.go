package service

import (
	"context"
	"fmt"

	"pickup-service/internal/clock"
	"pickup-service/internal/models"
	"pickup-service/internal/notify"
	"pickup-service/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AllowanceConfig struct {
	DefaultAllowance int32
	ExtraAllowance   int32
}

type AllowanceView struct {
	MarketerID uuid.UUID `json:"marketer_id"`
	MaxOpen    int32     `json:"max_open"`
	OpenCount  int64     `json:"open_count"`
}

type ExtraRequestQuery struct {
	Status *models.RequestStatus
	Limit  int
	Offset int
}

type AllowanceService struct {
	repo     *repository.Repository
	cfg      AllowanceConfig
	clock    clock.Clock
	notifier Notifier
	log      *zap.Logger
}

func NewAllowanceService(repo *repository.Repository, cfg AllowanceConfig, clk clock.Clock, n Notifier, log *zap.Logger) *AllowanceService {
	if n == nil {
		n = nopNotifier{}
	}
	if cfg.DefaultAllowance <= 0 {
		cfg.DefaultAllowance = 1
	}
	if cfg.ExtraAllowance < cfg.DefaultAllowance {
		cfg.ExtraAllowance = cfg.DefaultAllowance
	}
	return &AllowanceService{repo: repo, cfg: cfg, clock: clk, notifier: n, log: log}
}

func (s *AllowanceService) GetAllowance(ctx context.Context, marketerID uuid.UUID) (*AllowanceView, error) {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	u, err := s.repo.Users.GetByID(ctx, marketerID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	ok, err := canView(ctx, s.repo.Users, actor, marketerID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}

	view := &AllowanceView{MarketerID: marketerID, MaxOpen: s.cfg.DefaultAllowance}
	a, err := s.repo.Allowances.Get(ctx, marketerID)
	if err != nil {
		return nil, err
	}
	if a != nil {
		view.MaxOpen = a.MaxOpen
	}
	if view.OpenCount, err = s.repo.Pickups.CountOpenByMarketer(ctx, marketerID); err != nil {
		return nil, err
	}
	return view, nil
}

// RequestExtraAllowance создаёт заявку на повышение лимита. Одна pending-заявка на маркетолога.
func (s *AllowanceService) RequestExtraAllowance(ctx context.Context) (*models.ExtraPickupRequest, error) {
	actor, err := authorize(ctx, CapRequestExtraAllowance)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	req := &models.ExtraPickupRequest{
		MarketerID: actor.ID,
		Status:     models.RequestPending,
		CreatedAt:  now,
	}
	err = s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		a, err := tx.Allowances.EnsureAndLock(ctx, actor.ID, s.cfg.DefaultAllowance, now)
		if err != nil {
			return err
		}
		if a.MaxOpen >= s.cfg.ExtraAllowance {
			return ErrAllowanceRaised
		}
		pending, err := tx.Allowances.FindPendingRequest(ctx, actor.ID)
		if err != nil {
			return err
		}
		if pending != nil {
			return ErrExtraRequestPending
		}
		if err := tx.Allowances.CreateRequest(ctx, req); err != nil {
			if repository.IsUniqueViolation(err) {
				return ErrExtraRequestPending
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("extra allowance requested", zap.String("request_id", req.ID.String()), zap.String("marketer_id", actor.ID.String()))
	notifyAfterCommit(ctx, s.notifier, s.log, actor.ID, notify.Event{
		Type:       notify.EventExtraAllowanceRequest,
		EntityID:   req.ID,
		OccurredAt: now,
	})
	return req, nil
}

// ReviewExtraAllowance: решение оператора. Одобрение поднимает лимит до ExtraAllowance.
func (s *AllowanceService) ReviewExtraAllowance(ctx context.Context, requestID uuid.UUID, approve bool) (*models.ExtraPickupRequest, error) {
	actor, err := authorize(ctx, CapReviewExtraAllowance)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	status := models.RequestRejected
	if approve {
		status = models.RequestApproved
	}

	var req *models.ExtraPickupRequest
	err = s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		var err error
		if req, err = tx.Allowances.GetRequestForUpdate(ctx, requestID); err != nil {
			return err
		}
		if req == nil {
			return ErrRequestNotFound
		}
		if req.Status != models.RequestPending {
			return ErrAlreadyReviewed
		}
		ok, err := tx.Allowances.MarkRequestReviewed(ctx, req.ID, status, actor.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			return ErrAlreadyReviewed
		}
		req.Status, req.ReviewedBy, req.ReviewedAt = status, &actor.ID, &now

		if !approve {
			return nil
		}
		a, err := tx.Allowances.EnsureAndLock(ctx, req.MarketerID, s.cfg.DefaultAllowance, now)
		if err != nil {
			return err
		}
		if a.MaxOpen >= s.cfg.ExtraAllowance {
			return nil
		}
		return tx.Allowances.SetMaxOpen(ctx, req.MarketerID, s.cfg.ExtraAllowance, now)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("extra allowance reviewed",
		zap.String("request_id", req.ID.String()),
		zap.String("status", string(status)),
		zap.String("reviewer_id", actor.ID.String()))
	notifyAfterCommit(ctx, s.notifier, s.log, req.MarketerID, notify.Event{
		Type:       notify.EventExtraAllowanceReviewed,
		EntityID:   req.ID,
		Data:       map[string]any{"status": status},
		OccurredAt: now,
	})
	return req, nil
}

func (s *AllowanceService) ListExtraAllowanceRequests(ctx context.Context, q ExtraRequestQuery) ([]models.ExtraPickupRequest, int64, error) {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return nil, 0, err
	}
	f := repository.ExtraRequestFilter{Status: q.Status, Limit: q.Limit, Offset: q.Offset}
	switch {
	case Can(actor.Role, CapReviewExtraAllowance):
	case Can(actor.Role, CapRequestExtraAllowance):
		f.MarketerID = &actor.ID
	default:
		return nil, 0, fmt.Errorf("%w: role %s cannot list extra allowance requests", ErrForbidden, actor.Role)
	}
	return s.repo.Allowances.ListRequests(ctx, f)
}
