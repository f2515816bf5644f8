package stockManagerService

import (
	"context"
	"errors"
	"testing"

	"github.com/ijikeman/stockmanager/internal/model"
	"github.com/ijikeman/stockmanager/internal/service"
	"github.com/stretchr/testify/require"
)

func newTestService(repo *fakeRepo) (*StockManagerService, *fakeCache, *fakeFinanceApi, *fakeReportGenerator) {
	cache := newFakeCache()
	financeApi := newFakeFinanceApi()
	reportGen := &fakeReportGenerator{}
	return New(repo, cache, financeApi, reportGen), cache, financeApi, reportGen
}

// seedLot creates an owner, a stock and a lot with the given buy events,
// keeping lot open units consistent with the events.
func seedLot(t *testing.T, repo *fakeRepo, buys ...model.BuyEvent) (ownerID, stockID, lotID int64) {
	t.Helper()
	ctx := context.Background()

	ownerID, err := repo.CreateOwner(ctx, "alice")
	require.NoError(t, err)
	stockID, err = repo.CreateStock(ctx, model.Stock{
		Code:         "7203",
		Name:         "Toyota",
		CurrentPrice: dec(2500),
		MinimalUnit:  100,
	})
	require.NoError(t, err)

	total := 0
	for _, b := range buys {
		total += b.Units
	}
	lotID, err = repo.CreateLot(ctx, ownerID, stockID, total)
	require.NoError(t, err)
	for _, b := range buys {
		b.StockLotID = lotID
		_, err = repo.CreateBuyEvent(ctx, b)
		require.NoError(t, err)
	}
	return ownerID, stockID, lotID
}

func TestCreateOwner(t *testing.T) {
	repo := newFakeRepo()
	srv, _, _, _ := newTestService(repo)
	ctx := context.Background()

	t.Run("valid name", func(t *testing.T) {
		owner, err := srv.CreateOwner(ctx, "Bob")
		require.NoError(t, err)
		require.NotZero(t, owner.ID)
		require.Equal(t, "Bob", owner.Name)
	})

	t.Run("duplicate is rejected", func(t *testing.T) {
		_, err := srv.CreateOwner(ctx, "Bob")
		require.ErrorIs(t, err, service.ErrAlreadyExists)
	})

	t.Run("non alphabetic names are rejected", func(t *testing.T) {
		for _, name := range []string{"", "bob1", "太郎", "a b"} {
			_, err := srv.CreateOwner(ctx, name)
			require.ErrorIs(t, err, service.ErrInvalidOwnerName, name)
		}
	})
}

func TestBuyStock(t *testing.T) {
	repo := newFakeRepo()
	srv, _, _, _ := newTestService(repo)
	ctx := context.Background()

	ownerID, err := repo.CreateOwner(ctx, "alice")
	require.NoError(t, err)
	_, err = repo.CreateStock(ctx, model.Stock{Code: "7203", Name: "Toyota", MinimalUnit: 100})
	require.NoError(t, err)

	t.Run("first purchase creates the lot", func(t *testing.T) {
		lot, err := srv.BuyStock(ctx, ownerID, "7203", model.BuyRequest{
			Units: 3, Price: dec(2400), Fee: dec(250), TransactionDate: day(1),
		})
		require.NoError(t, err)
		require.Equal(t, 3, lot.OpenUnits)

		buys, err := repo.FindBuyEventsByLot(ctx, lot.ID)
		require.NoError(t, err)
		require.Len(t, buys, 1)
	})

	t.Run("repeat purchase appends to the same lot", func(t *testing.T) {
		lot, err := srv.BuyStock(ctx, ownerID, "7203", model.BuyRequest{
			Units: 2, Price: dec(2500), Fee: dec(250), IsNisa: true, TransactionDate: day(2),
		})
		require.NoError(t, err)
		require.Equal(t, 5, lot.OpenUnits)

		buys, err := repo.FindBuyEventsByLot(ctx, lot.ID)
		require.NoError(t, err)
		require.Len(t, buys, 2)
		require.Len(t, repo.lots, 1)
	})

	t.Run("unknown stock code", func(t *testing.T) {
		_, err := srv.BuyStock(ctx, ownerID, "0000", model.BuyRequest{Units: 1, Price: dec(100), TransactionDate: day(1)})
		require.ErrorIs(t, err, service.ErrNotFound)
	})

	t.Run("non positive units", func(t *testing.T) {
		_, err := srv.BuyStock(ctx, ownerID, "7203", model.BuyRequest{Units: 0, Price: dec(100), TransactionDate: day(1)})
		require.ErrorIs(t, err, service.ErrInvalidQuantity)
	})

	t.Run("lost lot create race retries onto the winner's lot", func(t *testing.T) {
		repo := newFakeRepo()
		srv, _, _, _ := newTestService(repo)
		ctx := context.Background()

		ownerID, err := repo.CreateOwner(ctx, "bob")
		require.NoError(t, err)
		stockID, err := repo.CreateStock(ctx, model.Stock{Code: "6758", Name: "Sony", MinimalUnit: 100})
		require.NoError(t, err)

		// a concurrent first purchase commits its lot after our lookup
		// misses but before our insert
		winnerLotID, err := repo.CreateLot(ctx, ownerID, stockID, 2)
		require.NoError(t, err)
		repo.missNextLotLookup = true

		lot, err := srv.BuyStock(ctx, ownerID, "6758", model.BuyRequest{
			Units: 3, Price: dec(1500), TransactionDate: day(1),
		})
		require.NoError(t, err)
		require.Equal(t, winnerLotID, lot.ID)
		require.Equal(t, 5, lot.OpenUnits)
		require.Len(t, repo.lots, 1)
	})
}

func TestSellLot(t *testing.T) {
	t.Run("sale spanning two buys produces one sell event each", func(t *testing.T) {
		repo := newFakeRepo()
		srv, _, _, _ := newTestService(repo)
		ctx := context.Background()

		_, _, lotID := seedLot(t, repo,
			model.BuyEvent{Units: 2, Price: dec(2400), Fee: dec(200), TransactionDate: day(1)},
			model.BuyEvent{Units: 3, Price: dec(2500), Fee: dec(300), TransactionDate: day(2)},
		)

		events, err := srv.SellLot(ctx, lotID, model.SellRequest{
			Units: 4, Price: dec(2600), Fee: dec(100), TransactionDate: day(10),
		})
		require.NoError(t, err)
		require.Len(t, events, 2)
		require.Equal(t, 2, events[0].Units)
		require.Equal(t, 2, events[1].Units)

		// fee split 2:2, both events carry the sale price
		require.True(t, events[0].Fee.Equal(dec(50)), events[0].Fee)
		require.True(t, events[1].Fee.Equal(dec(50)), events[1].Fee)
		require.True(t, events[0].Price.Equal(dec(2600)))

		lot, err := repo.GetLot(ctx, lotID)
		require.NoError(t, err)
		require.Equal(t, 1, lot.OpenUnits)
	})

	t.Run("exhausted buys are skipped on the next sale", func(t *testing.T) {
		repo := newFakeRepo()
		srv, _, _, _ := newTestService(repo)
		ctx := context.Background()

		_, _, lotID := seedLot(t, repo,
			model.BuyEvent{Units: 2, Price: dec(2400), TransactionDate: day(1)},
			model.BuyEvent{Units: 3, Price: dec(2500), TransactionDate: day(2)},
		)

		_, err := srv.SellLot(ctx, lotID, model.SellRequest{Units: 2, Price: dec(2600), TransactionDate: day(10)})
		require.NoError(t, err)

		events, err := srv.SellLot(ctx, lotID, model.SellRequest{Units: 2, Price: dec(2700), TransactionDate: day(11)})
		require.NoError(t, err)
		require.Len(t, events, 1)

		positions, err := repo.FindBuyPositionsByLot(ctx, lotID)
		require.NoError(t, err)
		require.Equal(t, 0, positions[0].Remaining)
		require.Equal(t, 1, positions[1].Remaining)
	})

	t.Run("oversell leaves the lot untouched", func(t *testing.T) {
		repo := newFakeRepo()
		srv, _, _, _ := newTestService(repo)
		ctx := context.Background()

		_, _, lotID := seedLot(t, repo,
			model.BuyEvent{Units: 3, Price: dec(2400), TransactionDate: day(1)},
		)

		_, err := srv.SellLot(ctx, lotID, model.SellRequest{Units: 4, Price: dec(2600), TransactionDate: day(10)})
		var insufficientErr *service.InsufficientUnitsError
		require.True(t, errors.As(err, &insufficientErr), err)
		require.Equal(t, 4, insufficientErr.Requested)
		require.Equal(t, 3, insufficientErr.Available)

		lot, err := repo.GetLot(ctx, lotID)
		require.NoError(t, err)
		require.Equal(t, 3, lot.OpenUnits)
		require.Empty(t, repo.sells)
	})

	t.Run("mid flight failure rolls everything back", func(t *testing.T) {
		repo := newFakeRepo()
		srv, _, _, _ := newTestService(repo)
		ctx := context.Background()

		_, _, lotID := seedLot(t, repo,
			model.BuyEvent{Units: 2, Price: dec(2400), TransactionDate: day(1)},
			model.BuyEvent{Units: 2, Price: dec(2500), TransactionDate: day(2)},
		)
		repo.failCreateSellEventAfter = 1

		_, err := srv.SellLot(ctx, lotID, model.SellRequest{Units: 4, Price: dec(2600), TransactionDate: day(10)})
		require.Error(t, err)

		lot, err := repo.GetLot(ctx, lotID)
		require.NoError(t, err)
		require.Equal(t, 4, lot.OpenUnits)
		require.Empty(t, repo.sells)
	})

	t.Run("lot history is copied onto every sell event", func(t *testing.T) {
		repo := newFakeRepo()
		srv, _, _, _ := newTestService(repo)
		ctx := context.Background()

		_, _, lotID := seedLot(t, repo,
			model.BuyEvent{Units: 2, Price: dec(2400), TransactionDate: day(1)},
			model.BuyEvent{Units: 2, Price: dec(2500), TransactionDate: day(2)},
		)

		_, err := srv.RegisterIncome(ctx, lotID, dec(500), day(5))
		require.NoError(t, err)
		_, err = srv.RegisterIncome(ctx, lotID, dec(700), day(6))
		require.NoError(t, err)
		_, err = srv.RegisterBenefit(ctx, lotID, dec(3000), day(7))
		require.NoError(t, err)

		events, err := srv.SellLot(ctx, lotID, model.SellRequest{Units: 4, Price: dec(2600), TransactionDate: day(10)})
		require.NoError(t, err)
		require.Len(t, events, 2)

		// 2 income originals + 2 copies per sell event
		require.Len(t, repo.incomes, 6)
		require.Len(t, repo.benefits, 3)

		for _, event := range events {
			incomes, err := repo.FindIncomeBySale(ctx, event.ID)
			require.NoError(t, err)
			require.Len(t, incomes, 2)
			benefits, err := repo.FindBenefitBySale(ctx, event.ID)
			require.NoError(t, err)
			require.Len(t, benefits, 1)
		}

		// originals stay attached to the lot
		originals, err := repo.FindIncomeByLot(ctx, lotID)
		require.NoError(t, err)
		require.Len(t, originals, 2)
	})

	t.Run("diverged lot counters abort the sale", func(t *testing.T) {
		repo := newFakeRepo()
		srv, _, _, _ := newTestService(repo)
		ctx := context.Background()

		_, _, lotID := seedLot(t, repo,
			model.BuyEvent{Units: 3, Price: dec(2400), TransactionDate: day(1)},
		)
		require.NoError(t, repo.UpdateLotUnits(ctx, lotID, 5))

		_, err := srv.SellLot(ctx, lotID, model.SellRequest{Units: 2, Price: dec(2600), TransactionDate: day(10)})
		require.ErrorIs(t, err, service.ErrInvariantViolation)
		require.Empty(t, repo.sells)
	})

	t.Run("unknown lot", func(t *testing.T) {
		repo := newFakeRepo()
		srv, _, _, _ := newTestService(repo)

		_, err := srv.SellLot(context.Background(), 99, model.SellRequest{Units: 1, Price: dec(100), TransactionDate: day(1)})
		require.ErrorIs(t, err, service.ErrNotFound)
	})

	t.Run("non positive units", func(t *testing.T) {
		repo := newFakeRepo()
		srv, _, _, _ := newTestService(repo)

		_, err := srv.SellLot(context.Background(), 1, model.SellRequest{Units: -1, Price: dec(100), TransactionDate: day(1)})
		require.ErrorIs(t, err, service.ErrInvalidQuantity)
	})
}

func TestRegisterIncome(t *testing.T) {
	repo := newFakeRepo()
	srv, _, _, _ := newTestService(repo)
	ctx := context.Background()

	_, _, lotID := seedLot(t, repo, model.BuyEvent{Units: 1, Price: dec(2400), TransactionDate: day(1)})

	record, err := srv.RegisterIncome(ctx, lotID, dec(500), day(5))
	require.NoError(t, err)
	gotLotID, ok := record.Owner.LotID()
	require.True(t, ok)
	require.Equal(t, lotID, gotLotID)

	_, err = srv.RegisterIncome(ctx, 99, dec(500), day(5))
	require.ErrorIs(t, err, service.ErrNotFound)
}

func TestListHoldings(t *testing.T) {
	repo := newFakeRepo()
	srv, _, _, _ := newTestService(repo)
	ctx := context.Background()

	_, _, lotID := seedLot(t, repo,
		model.BuyEvent{Units: 1, Price: dec(1000), Fee: dec(10), IsNisa: true, TransactionDate: day(1)},
		model.BuyEvent{Units: 1, Price: dec(1200), Fee: dec(10), IsNisa: true, TransactionDate: day(3)},
	)

	holdings, err := srv.ListHoldings(ctx, nil)
	require.NoError(t, err)
	require.Len(t, holdings, 1)

	holding := holdings[0]
	require.Equal(t, lotID, holding.Lot.ID)
	require.True(t, holding.AveragePrice.Equal(dec(1110)), holding.AveragePrice)
	require.NotNil(t, holding.PurchaseDate)
	require.True(t, holding.PurchaseDate.Equal(day(1)))
	require.True(t, holding.IsNisa)

	// fully sold lots disappear from holdings
	_, err = srv.SellLot(ctx, lotID, model.SellRequest{Units: 2, Price: dec(1300), TransactionDate: day(10)})
	require.NoError(t, err)

	holdings, err = srv.ListHoldings(ctx, nil)
	require.NoError(t, err)
	require.Empty(t, holdings)
}
