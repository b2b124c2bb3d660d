package repository

import (
	"context"
	"errors"

	"pickup-service/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// maxChainDepth ограничивает обход иерархии: marketer -> admin -> superadmin -> operator.
const maxChainDepth = 4

type UserRepo interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListByRole(ctx context.Context, role models.Role) ([]models.User, error)
	// Chain возвращает пользователя и его руководителей снизу вверх.
	Chain(ctx context.Context, id uuid.UUID) ([]models.User, error)
	// SubordinateIDs: все пользователи, для которых id стоит в цепочке руководителей.
	SubordinateIDs(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error)
}

type userRepo struct{ db *gorm.DB }

func NewUserRepo(db *gorm.DB) UserRepo { return &userRepo{db: db} }

func (r *userRepo) Create(ctx context.Context, u *models.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) ListByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	var list []models.User
	err := r.db.WithContext(ctx).Where("role = ?", role).Order("created_at ASC").Find(&list).Error
	return list, err
}

func (r *userRepo) Chain(ctx context.Context, id uuid.UUID) ([]models.User, error) {
	chain := make([]models.User, 0, maxChainDepth)
	seen := make(map[uuid.UUID]struct{}, maxChainDepth)

	next := &id
	for next != nil && len(chain) < maxChainDepth {
		if _, ok := seen[*next]; ok {
			break
		}
		u, err := r.GetByID(ctx, *next)
		if err != nil {
			return nil, err
		}
		if u == nil {
			break
		}
		seen[u.ID] = struct{}{}
		chain = append(chain, *u)
		next = u.SupervisorID
	}
	return chain, nil
}

func (r *userRepo) SubordinateIDs(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	var out []uuid.UUID
	seen := map[uuid.UUID]struct{}{id: {}}
	level := []uuid.UUID{id}

	for depth := 0; depth < maxChainDepth && len(level) > 0; depth++ {
		var ids []uuid.UUID
		if err := r.db.WithContext(ctx).Model(&models.User{}).
			Where("supervisor_id IN ?", level).
			Pluck("id", &ids).Error; err != nil {
			return nil, err
		}
		level = level[:0]
		for _, sub := range ids {
			if _, ok := seen[sub]; ok {
				continue
			}
			seen[sub] = struct{}{}
			out = append(out, sub)
			level = append(level, sub)
		}
	}
	return out, nil
}
