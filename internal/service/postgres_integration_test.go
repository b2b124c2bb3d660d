package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"pickup-service/internal/models"
	"pickup-service/internal/service"
	"pickup-service/internal/testutil"

	"github.com/stretchr/testify/require"
)

// Конкурентные сценарии на настоящих блокировках строк.

func TestPostgres_ConcurrentClaimsNeverOverlap(t *testing.T) {
	f := newFixtureOn(t, testutil.NewPostgresDB(t))
	product := testutil.SeedProduct(t, f.repo, 10000, 10)

	const workers = 8
	marketers := make([]models.User, workers)
	for i := range marketers {
		marketers[i] = f.marketer(t)
	}

	var wg sync.WaitGroup
	results := make([]error, workers)
	for i := range marketers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = f.pickups.CreatePickup(f.as(marketers[i]), service.CreatePickupInput{
				DealerID: f.dealer.ID, ProductID: product.ID, Quantity: 2,
			})
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, service.ErrInsufficientStock):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.LessOrEqual(t, ok, 5)
	c := f.counts(t, product.ID)
	require.Equal(t, int64(ok*2), c.Reserved)
	require.Equal(t, int64(10-ok*2), c.Available)
	f.reservedMatchesOpen(t, product.ID)
}

func TestPostgres_AllowanceHoldsUnderConcurrency(t *testing.T) {
	f := newFixtureOn(t, testutil.NewPostgresDB(t))
	product := testutil.SeedProduct(t, f.repo, 10000, 10)

	const attempts = 5
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.pickups.CreatePickup(f.as(f.org.Marketer), service.CreatePickupInput{
				DealerID: f.dealer.ID, ProductID: product.ID, Quantity: 1,
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		require.ErrorIs(t, err, service.ErrAllowanceExceeded)
	}
	require.Equal(t, 1, ok)
	require.Equal(t, int64(1), f.counts(t, product.ID).Reserved)
}

func TestPostgres_ConcurrentWithdrawalApprovals(t *testing.T) {
	f := newFixtureOn(t, testutil.NewPostgresDB(t))
	testutil.SeedWallet(t, f.db, f.org.Marketer.ID, 100, 0)

	a, err := f.wallets.RequestWithdrawal(f.as(f.org.Marketer), 80, "")
	require.NoError(t, err)
	b, err := f.wallets.RequestWithdrawal(f.as(f.org.Marketer), 80, "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, req := range []*models.WithdrawalRequest{a, b} {
		wg.Add(1)
		go func(i int, req *models.WithdrawalRequest) {
			defer wg.Done()
			_, errs[i] = f.wallets.ReviewWithdrawal(f.as(f.org.Operator), req.ID, true, "")
		}(i, req)
	}
	wg.Wait()

	ok, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, service.ErrConcurrencyConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, ok)
	require.Equal(t, 1, conflicts)

	w := f.wallet(t, f.org.Marketer.ID)
	require.Equal(t, int64(20), w.AvailableCents)
	require.Equal(t, int64(80), w.TotalWithdrawnCents)
}

func TestPostgres_ReleaseIsExactlyOnce(t *testing.T) {
	f := newFixtureOn(t, testutil.NewPostgresDB(t))
	ctx := context.Background()
	product := testutil.SeedProduct(t, f.repo, 10000, 5)
	p := f.create(t, f.org.Marketer, product, 1)
	_, err := f.settlement.PlaceOrder(f.as(f.org.Marketer), service.PlaceOrderInput{PickupID: p.ID, SoldAmountCents: 10000})
	require.NoError(t, err)
	f.clk.Advance(hold)

	var wg sync.WaitGroup
	counts := make([]int, 4)
	for i := range counts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			n, err := f.wallets.ReleaseMatured(ctx)
			if err != nil {
				t.Errorf("release: %v", err)
			}
			counts[i] = n
		}(i)
	}
	wg.Wait()

	total := 0
	for _, n := range counts {
		total += n
	}
	require.Equal(t, 3, total)
	require.Equal(t, int64(1000), f.wallet(t, f.org.Marketer.ID).AvailableCents)
}
