package repository_test

import (
	"context"
	"testing"

	"pickup-service/internal/models"
	"pickup-service/internal/repository"
	"pickup-service/internal/testutil"

	"github.com/google/uuid"
)

func TestUserRepo_ChainAndSubordinates(t *testing.T) {
	repo := repository.New(testutil.NewSQLiteDB(t))
	ctx := context.Background()
	org := testutil.SeedOrg(t, repo)
	peer := testutil.SeedUser(t, repo, models.RoleMarketer, &org.Admin.ID)

	chain, err := repo.Users.Chain(ctx, org.Marketer.ID)
	if err != nil {
		t.Fatalf("Chain: %v", err)
	}
	want := []uuid.UUID{org.Marketer.ID, org.Admin.ID, org.SuperAdmin.ID, org.Operator.ID}
	if len(chain) != len(want) {
		t.Fatalf("chain length = %d", len(chain))
	}
	for i, u := range chain {
		if u.ID != want[i] {
			t.Fatalf("chain[%d] = %s (%s), want %s", i, u.ID, u.Role, want[i])
		}
	}

	subs, err := repo.Users.SubordinateIDs(ctx, org.SuperAdmin.ID)
	if err != nil {
		t.Fatalf("SubordinateIDs: %v", err)
	}
	got := map[uuid.UUID]bool{}
	for _, id := range subs {
		got[id] = true
	}
	if len(subs) != 3 || !got[org.Admin.ID] || !got[org.Marketer.ID] || !got[peer.ID] {
		t.Fatalf("SubordinateIDs = %v", subs)
	}

	if chain, err := repo.Users.Chain(ctx, uuid.New()); err != nil || len(chain) != 0 {
		t.Fatalf("Chain(missing) = %v, %v", chain, err)
	}

	ops, err := repo.Users.ListByRole(ctx, models.RoleOperator)
	if err != nil || len(ops) != 1 || ops[0].ID != org.Operator.ID {
		t.Fatalf("ListByRole = %+v, %v", ops, err)
	}
}

func TestAllowanceRepo_EnsureAndRaise(t *testing.T) {
	repo := repository.New(testutil.NewSQLiteDB(t))
	ctx := context.Background()
	m := uuid.New()

	if a, err := repo.Allowances.Get(ctx, m); err != nil || a != nil {
		t.Fatalf("Get(missing) = %+v, %v", a, err)
	}
	a, err := repo.Allowances.EnsureAndLock(ctx, m, 1, testutil.Base)
	if err != nil || a.MaxOpen != 1 {
		t.Fatalf("EnsureAndLock = %+v, %v", a, err)
	}
	if err := repo.Allowances.SetMaxOpen(ctx, m, 3, testutil.Base); err != nil {
		t.Fatalf("SetMaxOpen: %v", err)
	}
	// повторный EnsureAndLock не сбрасывает поднятый лимит
	a, err = repo.Allowances.EnsureAndLock(ctx, m, 1, testutil.Base)
	if err != nil || a.MaxOpen != 3 {
		t.Fatalf("EnsureAndLock after raise = %+v, %v", a, err)
	}

	req := &models.ExtraPickupRequest{MarketerID: m, Status: models.RequestPending, CreatedAt: testutil.Base}
	if err := repo.Allowances.CreateRequest(ctx, req); err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	pending, err := repo.Allowances.FindPendingRequest(ctx, m)
	if err != nil || pending == nil || pending.ID != req.ID {
		t.Fatalf("FindPendingRequest = %+v, %v", pending, err)
	}
	ok, err := repo.Allowances.MarkRequestReviewed(ctx, req.ID, models.RequestApproved, uuid.New(), testutil.Base)
	if err != nil || !ok {
		t.Fatalf("MarkRequestReviewed = %v, %v", ok, err)
	}
	if pending, _ := repo.Allowances.FindPendingRequest(ctx, m); pending != nil {
		t.Fatalf("request still pending: %+v", pending)
	}
}
