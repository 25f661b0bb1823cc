package costs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/terra-erp/terra-erp/internal/kardex"
	"github.com/terra-erp/terra-erp/internal/masterdata/products"
	mdshared "github.com/terra-erp/terra-erp/internal/masterdata/shared"
)

type memoryRepo struct {
	seq   int64
	costs map[int64]CropCycleCost
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{costs: make(map[int64]CropCycleCost)}
}

func (m *memoryRepo) List(ctx context.Context, f Filters) ([]CropCycleCost, int, error) {
	var out []CropCycleCost
	for _, c := range m.costs {
		out = append(out, c)
	}
	return out, len(out), nil
}

func (m *memoryRepo) ListForCrop(ctx context.Context, cropID int64) ([]CropCycleCost, error) {
	var out []CropCycleCost
	for _, c := range m.costs {
		if c.CropID == cropID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memoryRepo) Get(ctx context.Context, id int64) (CropCycleCost, error) {
	c, ok := m.costs[id]
	if !ok {
		return CropCycleCost{}, ErrNotFound
	}
	return c, nil
}

func (m *memoryRepo) Create(ctx context.Context, c CropCycleCost) (CropCycleCost, error) {
	m.seq++
	c.ID = m.seq
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	m.costs[c.ID] = c
	return c, nil
}

func (m *memoryRepo) Update(ctx context.Context, c CropCycleCost) error {
	if _, ok := m.costs[c.ID]; !ok {
		return ErrNotFound
	}
	m.costs[c.ID] = c
	return nil
}

func (m *memoryRepo) SetLedgerTx(ctx context.Context, id int64, txID *int64) error {
	c, ok := m.costs[id]
	if !ok {
		return ErrNotFound
	}
	c.LedgerTxID = txID
	m.costs[id] = c
	return nil
}

type fakeLedger struct {
	applications []kardex.CostApplication
	outcome      *kardex.ApplyOutcome
	err          error
}

func (f *fakeLedger) ApplyCost(ctx context.Context, app kardex.CostApplication) (*kardex.ApplyOutcome, error) {
	f.applications = append(f.applications, app)
	return f.outcome, f.err
}

type fakeCatalog struct {
	products map[int64]products.Product
}

func (c *fakeCatalog) GetProduct(ctx context.Context, id int64) (products.Product, error) {
	p, ok := c.products[id]
	if !ok {
		return products.Product{}, mdshared.ErrNotFound
	}
	return p, nil
}

func newTestService(repo *memoryRepo, ledger *fakeLedger, catalog *fakeCatalog) *Service {
	if catalog == nil {
		catalog = &fakeCatalog{products: map[int64]products.Product{}}
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(repo, ledger, catalog, logger)
}

func validCost() CropCycleCost {
	method := "foliar spray"
	total := decimal.NewFromInt(120)
	return CropCycleCost{
		CropID:          3,
		ProductID:       1,
		ApplicationDate: time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC),
		Quantity:        decimal.NewFromInt(2000),
		Unit:            mdshared.UnitMilliliter,
		Method:          &method,
		TotalCost:       &total,
	}
}

func TestCreateAppliesToLedgerAndStoresLink(t *testing.T) {
	repo := newMemoryRepo()
	ledger := &fakeLedger{outcome: &kardex.ApplyOutcome{TransactionID: 55, Created: true, Liters: decimal.NewFromInt(2)}}
	svc := newTestService(repo, ledger, nil)

	created, err := svc.Create(context.Background(), validCost(), 42)
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	require.NotNil(t, created.LedgerTxID)
	require.Equal(t, int64(55), *created.LedgerTxID)

	require.Len(t, ledger.applications, 1)
	app := ledger.applications[0]
	require.Equal(t, created.ID, app.CostID)
	require.Equal(t, int64(42), app.ActorID)
	require.Equal(t, "foliar spray", app.Method)
	require.Nil(t, app.Previous)

	stored, err := repo.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LedgerTxID)
}

func TestCreateSucceedsWhenLedgerSkips(t *testing.T) {
	repo := newMemoryRepo()
	ledger := &fakeLedger{outcome: nil}
	svc := newTestService(repo, ledger, nil)

	created, err := svc.Create(context.Background(), validCost(), 0)
	require.NoError(t, err)
	require.Nil(t, created.LedgerTxID)
}

func TestCreateSucceedsWhenLedgerFails(t *testing.T) {
	repo := newMemoryRepo()
	ledger := &fakeLedger{err: errors.New("ledger down")}
	svc := newTestService(repo, ledger, nil)

	created, err := svc.Create(context.Background(), validCost(), 0)
	require.NoError(t, err)
	require.Nil(t, created.LedgerTxID)

	_, err = repo.Get(context.Background(), created.ID)
	require.NoError(t, err)
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(newMemoryRepo(), &fakeLedger{}, nil)

	c := validCost()
	c.Quantity = decimal.Zero
	_, err := svc.Create(context.Background(), c, 0)
	require.ErrorIs(t, err, ErrValidation)

	c = validCost()
	c.CropID = 0
	_, err = svc.Create(context.Background(), c, 0)
	require.ErrorIs(t, err, ErrValidation)
}

func TestUpdateCarriesPreviousSnapshotAndLink(t *testing.T) {
	repo := newMemoryRepo()
	ledger := &fakeLedger{outcome: &kardex.ApplyOutcome{TransactionID: 55, Created: true}}
	svc := newTestService(repo, ledger, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, validCost(), 0)
	require.NoError(t, err)

	edited := validCost()
	edited.ProductID = 2
	edited.Quantity = decimal.NewFromInt(3000)
	ledger.outcome = &kardex.ApplyOutcome{TransactionID: 55, Created: false}

	updated, err := svc.Update(ctx, created.ID, edited, 0)
	require.NoError(t, err)
	require.NotNil(t, updated.LedgerTxID)
	require.Equal(t, int64(55), *updated.LedgerTxID)

	require.Len(t, ledger.applications, 2)
	app := ledger.applications[1]
	require.NotNil(t, app.LinkedTxID)
	require.Equal(t, int64(55), *app.LinkedTxID)
	require.NotNil(t, app.Previous)
	require.Equal(t, int64(1), app.Previous.ProductID)
	require.Equal(t, int64(3), app.Previous.CropID)
}

func TestUpdateUnknownCost(t *testing.T) {
	svc := newTestService(newMemoryRepo(), &fakeLedger{}, nil)

	_, err := svc.Update(context.Background(), 99, validCost(), 0)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSummaryGroupsByCategory(t *testing.T) {
	repo := newMemoryRepo()
	agro := products.CategoryAgrochemical
	fert := products.CategoryFertilizer
	catalog := &fakeCatalog{products: map[int64]products.Product{
		1: {ID: 1, Name: "Glyphosate", Kind: products.KindPhysical, Category: &agro},
		2: {ID: 2, Name: "Urea", Kind: products.KindPhysical, Category: &fert},
		3: {ID: 3, Name: "Tractor hours", Kind: products.KindService},
	}}
	svc := newTestService(repo, &fakeLedger{}, catalog)
	ctx := context.Background()

	add := func(productID int64, total int64) {
		c := validCost()
		c.ProductID = productID
		tc := decimal.NewFromInt(total)
		c.TotalCost = &tc
		_, err := svc.Create(ctx, c, 0)
		require.NoError(t, err)
	}
	add(1, 100)
	add(1, 50)
	add(2, 200)
	add(3, 80)

	totals, err := svc.Summary(ctx, 3)
	require.NoError(t, err)
	require.Len(t, totals, 3)

	byCategory := make(map[string]CategoryTotal)
	for _, tot := range totals {
		byCategory[tot.Category] = tot
	}
	require.True(t, byCategory[CategoryAgrochemicals].Total.Equal(decimal.NewFromInt(150)))
	require.Equal(t, 2, byCategory[CategoryAgrochemicals].Count)
	require.True(t, byCategory[CategoryFertilizers].Total.Equal(decimal.NewFromInt(200)))
	require.True(t, byCategory[CategoryTractor].Total.Equal(decimal.NewFromInt(80)))
}
