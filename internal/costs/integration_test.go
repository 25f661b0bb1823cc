package costs

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/terra-erp/terra-erp/internal/kardex"
	"github.com/terra-erp/terra-erp/internal/masterdata/products"
	mdshared "github.com/terra-erp/terra-erp/internal/masterdata/shared"
)

// ledgerStore is an in-memory kardex.RepositoryPort so the cost workflow can
// be exercised against the real ledger service.
type ledgerStore struct {
	mu    sync.Mutex
	seq   int64
	clock time.Time
	txs   map[int64]kardex.Transaction
}

func newLedgerStore() *ledgerStore {
	return &ledgerStore{
		clock: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
		txs:   make(map[int64]kardex.Transaction),
	}
}

func (s *ledgerStore) WithTx(ctx context.Context, fn func(context.Context, kardex.TxRepository) error) error {
	return fn(ctx, s)
}

func (s *ledgerStore) Get(ctx context.Context, id int64) (kardex.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.txs[id]
	if !ok {
		return kardex.Transaction{}, kardex.ErrTransactionNotFound
	}
	return t, nil
}

func (s *ledgerStore) Insert(ctx context.Context, t kardex.Transaction) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.clock = s.clock.Add(time.Second)
	t.ID = s.seq
	t.CreatedAt = s.clock
	t.UpdatedAt = s.clock
	s.txs[t.ID] = t
	return t.ID, nil
}

func (s *ledgerStore) Update(ctx context.Context, t kardex.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.txs[t.ID]
	if !ok {
		return kardex.ErrTransactionNotFound
	}
	t.CreatedAt = existing.CreatedAt
	t.Balance = existing.Balance
	s.txs[t.ID] = t
	return nil
}

func (s *ledgerStore) ListForProduct(ctx context.Context, productID int64) ([]kardex.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []kardex.Transaction
	for _, t := range s.txs {
		if t.ProductID == productID {
			out = append(out, t)
		}
	}
	kardex.SortCanonical(out)
	return out, nil
}

func (s *ledgerStore) UpdateBalances(ctx context.Context, txs []kardex.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range txs {
		stored, ok := s.txs[t.ID]
		if !ok {
			return kardex.ErrTransactionNotFound
		}
		stored.Balance = t.Balance
		s.txs[t.ID] = stored
	}
	return nil
}

func (s *ledgerStore) LastBalance(ctx context.Context, productID int64) (decimal.Decimal, error) {
	txs, _ := s.ListForProduct(ctx, productID)
	if len(txs) == 0 {
		return decimal.Zero, nil
	}
	return txs[len(txs)-1].Balance, nil
}

func (s *ledgerStore) ListProductIDs(ctx context.Context) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[int64]struct{})
	var ids []int64
	for _, t := range s.txs {
		if _, ok := seen[t.ProductID]; !ok {
			seen[t.ProductID] = struct{}{}
			ids = append(ids, t.ProductID)
		}
	}
	return ids, nil
}

func (s *ledgerStore) FindAutoExit(ctx context.Context, productID, cropID int64, exitDate time.Time) (kardex.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var found *kardex.Transaction
	for _, t := range s.txs {
		t := t
		if t.ProductID != productID || t.ExitQty == nil || t.CropID == nil || *t.CropID != cropID {
			continue
		}
		if t.ExitDate == nil || !t.ExitDate.Equal(exitDate) {
			continue
		}
		if !strings.Contains(t.Note, "crop cycle cost") {
			continue
		}
		if found == nil || t.CreatedAt.After(found.CreatedAt) {
			found = &t
		}
	}
	if found == nil {
		return kardex.Transaction{}, kardex.ErrTransactionNotFound
	}
	return *found, nil
}

func TestCostWorkflowDrivesLedger(t *testing.T) {
	store := newLedgerStore()
	agro := products.CategoryAgrochemical
	catalog := &fakeCatalog{products: map[int64]products.Product{
		1: {ID: 1, Name: "Glyphosate 480", Kind: products.KindPhysical, Category: &agro, Unit: mdshared.UnitLiter},
	}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ledger := kardex.NewService(store, catalog, nil, nil, logger)
	repo := newMemoryRepo()
	svc := NewService(repo, ledger, catalog, logger)
	ctx := context.Background()

	_, err := ledger.RecordEntry(ctx, kardex.EntryInput{ProductID: 1, Quantity: decimal.NewFromInt(10)})
	require.NoError(t, err)

	// A 2000 ml application lands in the ledger as a 2 liter exit.
	cost := validCost()
	created, err := svc.Create(ctx, cost, 0)
	require.NoError(t, err)
	require.NotNil(t, created.LedgerTxID)

	balance, err := ledger.GetBalance(ctx, 1)
	require.NoError(t, err)
	require.True(t, balance.Equal(decimal.NewFromInt(8)))

	// Editing the cost to 3000 ml rewrites the same exit, no duplicate.
	edited := validCost()
	edited.Quantity = decimal.NewFromInt(3000)
	updated, err := svc.Update(ctx, created.ID, edited, 0)
	require.NoError(t, err)
	require.Equal(t, *created.LedgerTxID, *updated.LedgerTxID)

	txs, err := ledger.ListTransactions(ctx, 1)
	require.NoError(t, err)
	require.Len(t, txs, 2)

	balance, err = ledger.GetBalance(ctx, 1)
	require.NoError(t, err)
	require.True(t, balance.Equal(decimal.NewFromInt(7)))
}
