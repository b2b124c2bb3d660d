package service

import (
	"context"
	"strings"

	"pickup-service/internal/models"
	"pickup-service/internal/repository"

	"github.com/google/uuid"
)

type Capability string

const (
	CapCreatePickup          Capability = "pickup:create"
	CapSellPickup            Capability = "pickup:sell"
	CapRequestTransfer       Capability = "pickup:transfer"
	CapRespondTransfer       Capability = "pickup:transfer_respond"
	CapRequestReturn         Capability = "pickup:return"
	CapConfirmReturn         Capability = "pickup:return_confirm"
	CapRequestExtraAllowance Capability = "allowance:request"
	CapReviewExtraAllowance  Capability = "allowance:review"
	CapRequestWithdrawal     Capability = "withdrawal:request"
	CapReviewWithdrawal      Capability = "withdrawal:review"
	CapViewTeam              Capability = "view:team"
	CapViewAll               Capability = "view:all"
)

var roleCapabilities = map[models.Role][]Capability{
	models.RoleMarketer: {
		CapCreatePickup, CapSellPickup, CapRequestTransfer, CapRespondTransfer,
		CapRequestReturn, CapRequestExtraAllowance, CapRequestWithdrawal,
	},
	models.RoleAdmin:      {CapRequestWithdrawal, CapViewTeam},
	models.RoleSuperAdmin: {CapRequestWithdrawal, CapViewTeam},
	models.RoleOperator: {
		CapRespondTransfer, CapConfirmReturn, CapReviewExtraAllowance,
		CapReviewWithdrawal, CapViewAll,
	},
}

// Can: единственная точка проверки прав роли.
func Can(role models.Role, c Capability) bool {
	for _, have := range roleCapabilities[role] {
		if have == c {
			return true
		}
	}
	return false
}

func ParseRole(s string) (models.Role, error) {
	r := models.Role(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := roleCapabilities[r]; !ok {
		return "", ErrInvalidRole
	}
	return r, nil
}

type Actor struct {
	ID   uuid.UUID
	Role models.Role
}

func actorFromContext(ctx context.Context) (Actor, error) {
	uid, ok := UserIDFromContext(ctx)
	if !ok || uid == uuid.Nil {
		return Actor{}, ErrUnauthorized
	}
	role, ok := RoleFromContext(ctx)
	if !ok {
		return Actor{}, ErrUnauthorized
	}
	if _, known := roleCapabilities[role]; !known {
		return Actor{}, ErrUnauthorized
	}
	return Actor{ID: uid, Role: role}, nil
}

func authorize(ctx context.Context, c Capability) (Actor, error) {
	a, err := actorFromContext(ctx)
	if err != nil {
		return Actor{}, err
	}
	if !Can(a.Role, c) {
		return Actor{}, ErrForbidden
	}
	return a, nil
}

// canView: сам пользователь, оператор, либо руководитель из цепочки владельца.
func canView(ctx context.Context, users repository.UserRepo, a Actor, ownerID uuid.UUID) (bool, error) {
	if a.ID == ownerID || Can(a.Role, CapViewAll) {
		return true, nil
	}
	if !Can(a.Role, CapViewTeam) {
		return false, nil
	}
	chain, err := users.Chain(ctx, ownerID)
	if err != nil {
		return false, err
	}
	for _, u := range chain[min(1, len(chain)):] {
		if u.ID == a.ID {
			return true, nil
		}
	}
	return false, nil
}

// visibleUserIDs возвращает nil, если ограничений нет.
func visibleUserIDs(ctx context.Context, users repository.UserRepo, a Actor) ([]uuid.UUID, error) {
	if Can(a.Role, CapViewAll) {
		return nil, nil
	}
	if !Can(a.Role, CapViewTeam) {
		return []uuid.UUID{a.ID}, nil
	}
	subs, err := users.SubordinateIDs(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	return append(subs, a.ID), nil
}
