package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pickup-service/internal/clock"
	"pickup-service/internal/models"
	"pickup-service/internal/notify"
	"pickup-service/internal/repository"
	"pickup-service/internal/service"
	"pickup-service/internal/testutil"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	window = 48 * time.Hour
	hold   = 7 * 24 * time.Hour
)

type sentEvent struct {
	UserID uuid.UUID
	Event  notify.Event
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []sentEvent
	fail   bool
}

func (n *recordingNotifier) Notify(_ context.Context, userID uuid.UUID, ev notify.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, sentEvent{UserID: userID, Event: ev})
	if n.fail {
		return errors.New("broker down")
	}
	return nil
}

func (n *recordingNotifier) count(t notify.EventType) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, e := range n.events {
		if e.Event.Type == t {
			c++
		}
	}
	return c
}

type fixture struct {
	db         *gorm.DB
	repo       *repository.Repository
	clk        *clock.Manual
	notes      *recordingNotifier
	org        testutil.Org
	dealer     models.Dealer
	pickups    *service.PickupService
	allowances *service.AllowanceService
	settlement *service.SettlementService
	wallets    *service.WalletService
}

type fixtureOpt func(*service.PickupConfig)

func withDeadlineReset() fixtureOpt {
	return func(c *service.PickupConfig) { c.TransferResetsDeadline = true }
}

func newFixture(t *testing.T, opts ...fixtureOpt) *fixture {
	t.Helper()
	return newFixtureOn(t, testutil.NewSQLiteDB(t), opts...)
}

func newFixtureOn(t *testing.T, db *gorm.DB, opts ...fixtureOpt) *fixture {
	t.Helper()
	repo := repository.New(db)
	f := &fixture{
		db:     db,
		repo:   repo,
		clk:    clock.NewManual(testutil.Base),
		notes:  &recordingNotifier{},
		org:    testutil.SeedOrg(t, repo),
		dealer: testutil.SeedDealer(t, repo),
	}

	pcfg := service.PickupConfig{Window: window, DefaultAllowance: 1}
	for _, o := range opts {
		o(&pcfg)
	}
	policy, err := service.NewCommissionPolicy(service.CommissionRates{
		MarketerPct:   "10",
		AdminPct:      "2.5",
		SuperAdminPct: "1",
	}, hold)
	if err != nil {
		t.Fatalf("policy: %v", err)
	}

	log := zap.NewNop()
	f.pickups = service.NewPickupService(repo, pcfg, f.clk, f.notes, log)
	f.allowances = service.NewAllowanceService(repo, service.AllowanceConfig{DefaultAllowance: 1, ExtraAllowance: 3}, f.clk, f.notes, log)
	f.settlement = service.NewSettlementService(repo, policy, f.clk, f.notes, log)
	f.wallets = service.NewWalletService(repo, f.clk, f.notes, log, 100)
	return f
}

func (f *fixture) as(u models.User) context.Context {
	return service.WithActor(context.Background(), u.ID, u.Role)
}

func (f *fixture) marketer(t *testing.T) models.User {
	t.Helper()
	return testutil.SeedUser(t, f.repo, models.RoleMarketer, &f.org.Admin.ID)
}

func (f *fixture) create(t *testing.T, u models.User, product models.Product, qty int32) *models.Pickup {
	t.Helper()
	p, err := f.pickups.CreatePickup(f.as(u), service.CreatePickupInput{
		DealerID:  f.dealer.ID,
		ProductID: product.ID,
		Quantity:  qty,
	})
	if err != nil {
		t.Fatalf("CreatePickup: %v", err)
	}
	return p
}

func (f *fixture) counts(t *testing.T, productID uuid.UUID) repository.StockCounts {
	t.Helper()
	c, err := f.repo.Inventory.Counts(context.Background(), productID)
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	return c
}

func (f *fixture) wallet(t *testing.T, userID uuid.UUID) models.Wallet {
	t.Helper()
	w, err := f.repo.Wallets.Get(context.Background(), userID)
	if err != nil {
		t.Fatalf("wallet: %v", err)
	}
	if w == nil {
		return models.Wallet{UserID: userID}
	}
	return *w
}

// reservedMatchesOpen: число reserved-единиц равно сумме quantity открытых выдач товара.
func (f *fixture) reservedMatchesOpen(t *testing.T, productID uuid.UUID) {
	t.Helper()
	open, err := f.repo.Pickups.SumOpenQuantity(context.Background(), productID)
	if err != nil {
		t.Fatalf("SumOpenQuantity: %v", err)
	}
	if c := f.counts(t, productID); c.Reserved != open {
		t.Fatalf("reserved=%d, open quantity=%d", c.Reserved, open)
	}
}

func zapNop() *zap.Logger { return zap.NewNop() }
