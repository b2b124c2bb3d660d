package repository_test

import (
	"context"
	"testing"
	"time"

	"pickup-service/internal/models"
	"pickup-service/internal/repository"
	"pickup-service/internal/testutil"

	"github.com/google/uuid"
)

func newPickup(t *testing.T, repo *repository.Repository, marketerID uuid.UUID, deadline time.Time) *models.Pickup {
	t.Helper()
	p := &models.Pickup{
		MarketerID: marketerID,
		DealerID:   uuid.New(),
		ProductID:  uuid.New(),
		Quantity:   1,
		Status:     models.PickupPending,
		CreatedAt:  testutil.Base,
		Deadline:   deadline,
		UpdatedAt:  testutil.Base,
	}
	if err := repo.Pickups.Create(context.Background(), p); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return p
}

func TestPickupRepo_TransitionIsConditional(t *testing.T) {
	repo := repository.New(testutil.NewSQLiteDB(t))
	ctx := context.Background()
	p := newPickup(t, repo, uuid.New(), testutil.Base.Add(time.Hour))

	target := uuid.New()
	ok, err := repo.Pickups.Transition(ctx, p.ID, models.PickupPending, models.PickupTransferRequested, map[string]any{
		"transfer_target_id": target,
	})
	if err != nil || !ok {
		t.Fatalf("Transition = %v, %v", ok, err)
	}

	// повтор с устаревшим from не проходит
	ok, err = repo.Pickups.Transition(ctx, p.ID, models.PickupPending, models.PickupSold, nil)
	if err != nil || ok {
		t.Fatalf("stale Transition = %v, %v", ok, err)
	}

	got, err := repo.Pickups.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != models.PickupTransferRequested || got.TransferTargetID == nil || *got.TransferTargetID != target {
		t.Fatalf("unexpected pickup: %+v", got)
	}

	missing, err := repo.Pickups.GetByID(ctx, uuid.New())
	if err != nil || missing != nil {
		t.Fatalf("GetByID(missing) = %+v, %v", missing, err)
	}
}

func TestPickupRepo_ExpireOverdue(t *testing.T) {
	repo := repository.New(testutil.NewSQLiteDB(t))
	ctx := context.Background()
	m := uuid.New()

	overdue := newPickup(t, repo, m, testutil.Base.Add(-2*time.Hour))
	overdue2 := newPickup(t, repo, m, testutil.Base.Add(-time.Hour))
	fresh := newPickup(t, repo, m, testutil.Base.Add(time.Hour))
	returning := newPickup(t, repo, m, testutil.Base.Add(-3*time.Hour))
	if ok, err := repo.Pickups.Transition(ctx, returning.ID, models.PickupPending, models.PickupReturnRequested, nil); err != nil || !ok {
		t.Fatalf("Transition: %v %v", ok, err)
	}

	if n, err := repo.Pickups.CountOpenByMarketer(ctx, m); err != nil || n != 4 {
		t.Fatalf("CountOpenByMarketer = %d, %v", n, err)
	}

	now := testutil.Base
	expired, err := repo.Pickups.ExpireOverdue(ctx, now, 1)
	if err != nil {
		t.Fatalf("ExpireOverdue: %v", err)
	}
	if len(expired) != 1 || expired[0].ID != overdue.ID {
		t.Fatalf("first batch = %+v", expired)
	}
	if expired[0].ExpiredAt == nil || !expired[0].ExpiredAt.Equal(now) {
		t.Fatalf("expired_at = %v", expired[0].ExpiredAt)
	}

	expired, err = repo.Pickups.ExpireOverdue(ctx, now, 10)
	if err != nil {
		t.Fatalf("ExpireOverdue: %v", err)
	}
	if len(expired) != 1 || expired[0].ID != overdue2.ID {
		t.Fatalf("second batch = %+v", expired)
	}

	expired, err = repo.Pickups.ExpireOverdue(ctx, now, 10)
	if err != nil || len(expired) != 0 {
		t.Fatalf("third batch = %+v, %v", expired, err)
	}

	for id, want := range map[uuid.UUID]models.PickupStatus{
		fresh.ID:     models.PickupPending,
		returning.ID: models.PickupReturnRequested,
	} {
		got, _ := repo.Pickups.GetByID(ctx, id)
		if got.Status != want {
			t.Fatalf("pickup %s status = %s, want %s", id, got.Status, want)
		}
	}
	if n, _ := repo.Pickups.CountOpenByMarketer(ctx, m); n != 2 {
		t.Fatalf("open after sweep = %d", n)
	}
}

func TestPickupRepo_ListFilters(t *testing.T) {
	repo := repository.New(testutil.NewSQLiteDB(t))
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()
	newPickup(t, repo, a, testutil.Base)
	newPickup(t, repo, a, testutil.Base)
	pb := newPickup(t, repo, b, testutil.Base)

	list, total, err := repo.Pickups.List(ctx, repository.PickupListFilter{MarketerIDs: []uuid.UUID{b}})
	if err != nil || total != 1 || len(list) != 1 || list[0].ID != pb.ID {
		t.Fatalf("List(b) = %d %+v %v", total, list, err)
	}

	_, total, err = repo.Pickups.List(ctx, repository.PickupListFilter{Limit: 1})
	if err != nil || total != 3 {
		t.Fatalf("List(all) total = %d, %v", total, err)
	}

	// пустой набор видимых пользователей: пустой результат, а не все записи
	_, total, err = repo.Pickups.List(ctx, repository.PickupListFilter{MarketerIDs: []uuid.UUID{}})
	if err != nil || total != 0 {
		t.Fatalf("List(empty) total = %d, %v", total, err)
	}
}
