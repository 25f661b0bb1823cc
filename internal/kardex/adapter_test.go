package kardex

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/terra-erp/terra-erp/internal/masterdata/products"
	mdshared "github.com/terra-erp/terra-erp/internal/masterdata/shared"
)

func TestApplyCostCreatesTaggedExit(t *testing.T) {
	repo := newMemoryRepo()
	catalog := &memoryCatalog{products: map[int64]products.Product{1: agrochemical(1, mdshared.UnitLiter)}}
	svc := newTestService(repo, catalog, &memoryAudit{})
	ctx := context.Background()

	_, err := svc.RecordEntry(ctx, EntryInput{ProductID: 1, Quantity: dec("10")})
	require.NoError(t, err)

	date := time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC)
	outcome, err := svc.ApplyCost(ctx, CostApplication{
		CostID:    7,
		ProductID: 1,
		CropID:    3,
		Date:      date,
		Quantity:  dec("2000"),
		Unit:      mdshared.UnitMilliliter,
		Method:    "foliar spray",
	})
	require.NoError(t, err)
	require.NotNil(t, outcome)
	require.True(t, outcome.Created)
	require.True(t, outcome.Liters.Equal(dec("2")))

	tx, err := repo.Get(ctx, outcome.TransactionID)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(tx.Note, autoNotePrefix))
	require.NotNil(t, tx.ExitQty)
	require.True(t, tx.ExitQty.Equal(dec("2")))
	require.NotNil(t, tx.CropID)
	require.Equal(t, int64(3), *tx.CropID)

	balance, err := svc.GetBalance(ctx, 1)
	require.NoError(t, err)
	require.True(t, balance.Equal(dec("8")))
}

func TestApplyCostEditUpdatesLinkedExitInPlace(t *testing.T) {
	repo := newMemoryRepo()
	catalog := &memoryCatalog{products: map[int64]products.Product{1: agrochemical(1, mdshared.UnitLiter)}}
	svc := newTestService(repo, catalog, &memoryAudit{})
	ctx := context.Background()

	_, err := svc.RecordEntry(ctx, EntryInput{ProductID: 1, Quantity: dec("10")})
	require.NoError(t, err)

	date := time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC)
	first, err := svc.ApplyCost(ctx, CostApplication{
		CostID: 7, ProductID: 1, CropID: 3, Date: date,
		Quantity: dec("2000"), Unit: mdshared.UnitMilliliter,
	})
	require.NoError(t, err)
	require.True(t, first.Created)

	second, err := svc.ApplyCost(ctx, CostApplication{
		CostID: 7, ProductID: 1, CropID: 3, Date: date,
		Quantity: dec("3000"), Unit: mdshared.UnitMilliliter,
		LinkedTxID: &first.TransactionID,
		Previous:   &CostSnapshot{ProductID: 1, CropID: 3, Date: date},
	})
	require.NoError(t, err)
	require.False(t, second.Created)
	require.Equal(t, first.TransactionID, second.TransactionID)

	require.Equal(t, 2, repo.count(1))
	tx, err := repo.Get(ctx, second.TransactionID)
	require.NoError(t, err)
	require.True(t, tx.ExitQty.Equal(dec("3")))

	balance, err := svc.GetBalance(ctx, 1)
	require.NoError(t, err)
	require.True(t, balance.Equal(dec("7")))
}

func TestApplyCostEditFindsExitByNoteHeuristic(t *testing.T) {
	repo := newMemoryRepo()
	catalog := &memoryCatalog{products: map[int64]products.Product{1: agrochemical(1, mdshared.UnitLiter)}}
	svc := newTestService(repo, catalog, &memoryAudit{})
	ctx := context.Background()

	date := time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC)
	first, err := svc.ApplyCost(ctx, CostApplication{
		CostID: 7, ProductID: 1, CropID: 3, Date: date,
		Quantity: dec("4"), Unit: mdshared.UnitLiter,
	})
	require.NoError(t, err)

	// No explicit link, as for costs recorded before the link column existed.
	second, err := svc.ApplyCost(ctx, CostApplication{
		CostID: 7, ProductID: 1, CropID: 3, Date: date,
		Quantity: dec("6"), Unit: mdshared.UnitLiter,
		Previous: &CostSnapshot{ProductID: 1, CropID: 3, Date: date},
	})
	require.NoError(t, err)
	require.False(t, second.Created)
	require.Equal(t, first.TransactionID, second.TransactionID)
	require.Equal(t, 1, repo.count(1))
}

func TestApplyCostSkipsServiceProduct(t *testing.T) {
	repo := newMemoryRepo()
	catalog := &memoryCatalog{products: map[int64]products.Product{2: serviceProduct(2)}}
	svc := newTestService(repo, catalog, &memoryAudit{})

	outcome, err := svc.ApplyCost(context.Background(), CostApplication{
		CostID: 8, ProductID: 2, CropID: 3, Date: time.Now(),
		Quantity: dec("5"), Unit: mdshared.UnitHour,
	})
	require.NoError(t, err)
	require.Nil(t, outcome)
	require.Zero(t, repo.count(2))
}

func TestApplyCostSkipsUnconvertibleUnit(t *testing.T) {
	repo := newMemoryRepo()
	catalog := &memoryCatalog{products: map[int64]products.Product{1: agrochemical(1, mdshared.UnitKilogram)}}
	svc := newTestService(repo, catalog, &memoryAudit{})

	outcome, err := svc.ApplyCost(context.Background(), CostApplication{
		CostID: 9, ProductID: 1, CropID: 3, Date: time.Now(),
		Quantity: dec("5"), Unit: mdshared.UnitKilogram,
	})
	require.NoError(t, err)
	require.Nil(t, outcome)
	require.Zero(t, repo.count(1))
}

func TestApplyCostProductChangeReplaysBothLedgers(t *testing.T) {
	repo := newMemoryRepo()
	catalog := &memoryCatalog{products: map[int64]products.Product{
		1: agrochemical(1, mdshared.UnitLiter),
		2: agrochemical(2, mdshared.UnitLiter),
	}}
	svc := newTestService(repo, catalog, &memoryAudit{})
	ctx := context.Background()

	_, err := svc.RecordEntry(ctx, EntryInput{ProductID: 1, Quantity: dec("10")})
	require.NoError(t, err)
	_, err = svc.RecordEntry(ctx, EntryInput{ProductID: 2, Quantity: dec("10")})
	require.NoError(t, err)

	date := time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC)
	first, err := svc.ApplyCost(ctx, CostApplication{
		CostID: 7, ProductID: 1, CropID: 3, Date: date,
		Quantity: dec("4"), Unit: mdshared.UnitLiter,
	})
	require.NoError(t, err)

	// The cost edit moves the application to product 2.
	second, err := svc.ApplyCost(ctx, CostApplication{
		CostID: 7, ProductID: 2, CropID: 3, Date: date,
		Quantity: dec("4"), Unit: mdshared.UnitLiter,
		LinkedTxID: &first.TransactionID,
		Previous:   &CostSnapshot{ProductID: 1, CropID: 3, Date: date},
	})
	require.NoError(t, err)
	require.Equal(t, first.TransactionID, second.TransactionID)

	oldBalance, err := svc.GetBalance(ctx, 1)
	require.NoError(t, err)
	require.True(t, oldBalance.Equal(dec("10")))

	newBalance, err := svc.GetBalance(ctx, 2)
	require.NoError(t, err)
	require.True(t, newBalance.Equal(dec("6")))
}
