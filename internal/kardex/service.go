package kardex

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/terra-erp/terra-erp/internal/masterdata/products"
	"github.com/terra-erp/terra-erp/internal/shared"
)

// CatalogPort provides read access to the product catalog.
type CatalogPort interface {
	GetProduct(ctx context.Context, id int64) (products.Product, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates ledger operations. Every mutation holds the product's
// key mutex across the write-then-replay sequence, so concurrent writers on
// the same product serialize while different products proceed in parallel.
type Service struct {
	repo     RepositoryPort
	catalog  CatalogPort
	audit    AuditPort
	balances *BalanceCache
	locks    *shared.KeyMutex
	logger   *slog.Logger
	group    singleflight.Group
}

// NewService builds Service.
func NewService(repo RepositoryPort, catalog CatalogPort, audit AuditPort, balances *BalanceCache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		catalog:  catalog,
		audit:    audit,
		balances: balances,
		locks:    shared.NewKeyMutex(),
		logger:   logger,
	}
}

// EntryInput describes a manual stock entry. Quantity is liters.
type EntryInput struct {
	ProductID int64
	Date      time.Time
	Quantity  decimal.Decimal
	Note      string
	ActorID   int64
}

// ExitInput describes a manual stock exit. Quantity is liters; CropID is the
// optional reason for the exit.
type ExitInput struct {
	ProductID int64
	Date      time.Time
	Quantity  decimal.Decimal
	CropID    *int64
	Note      string
	ActorID   int64
}

// UpdateInput replaces a transaction's quantities, dates and crop reference.
// A nil Note keeps the existing annotation.
type UpdateInput struct {
	EntryDate *time.Time
	EntryQty  *decimal.Decimal
	ExitDate  *time.Time
	ExitQty   *decimal.Decimal
	CropID    *int64
	Note      *string
	ActorID   int64
}

// RecordEntry appends a stock entry and replays the product's balances.
func (s *Service) RecordEntry(ctx context.Context, input EntryInput) (Transaction, error) {
	if err := s.requireEligible(ctx, input.ProductID); err != nil {
		return Transaction{}, err
	}
	if !input.Quantity.IsPositive() {
		return Transaction{}, ErrInvalidQuantity
	}
	date := input.Date
	if date.IsZero() {
		date = time.Now()
	}
	qty := input.Quantity
	t := Transaction{ProductID: input.ProductID, EntryDate: &date, EntryQty: &qty, Note: input.Note}

	id, err := s.mutate(ctx, input.ProductID, func(ctx context.Context, txr TxRepository) (int64, error) {
		return txr.Insert(ctx, t)
	})
	if err != nil {
		return Transaction{}, err
	}
	s.recordAudit(ctx, input.ActorID, "kardex:ENTRY", id, input.ProductID, input.Quantity)
	return s.repo.Get(ctx, id)
}

// RecordExit appends a stock exit and replays the product's balances.
func (s *Service) RecordExit(ctx context.Context, input ExitInput) (Transaction, error) {
	if err := s.requireEligible(ctx, input.ProductID); err != nil {
		return Transaction{}, err
	}
	if !input.Quantity.IsPositive() {
		return Transaction{}, ErrInvalidQuantity
	}
	date := input.Date
	if date.IsZero() {
		date = time.Now()
	}
	qty := input.Quantity
	t := Transaction{ProductID: input.ProductID, ExitDate: &date, ExitQty: &qty, CropID: input.CropID, Note: input.Note}

	id, err := s.mutate(ctx, input.ProductID, func(ctx context.Context, txr TxRepository) (int64, error) {
		return txr.Insert(ctx, t)
	})
	if err != nil {
		return Transaction{}, err
	}
	s.recordAudit(ctx, input.ActorID, "kardex:EXIT", id, input.ProductID, input.Quantity)
	return s.repo.Get(ctx, id)
}

// UpdateTransaction rewrites an existing transaction's quantities and dates.
// The retroactive edit ripples forward through the full balance replay.
func (s *Service) UpdateTransaction(ctx context.Context, id int64, input UpdateInput) (Transaction, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return Transaction{}, err
	}
	if err := s.requireEligible(ctx, existing.ProductID); err != nil {
		return Transaction{}, err
	}

	updated := existing
	updated.EntryDate = input.EntryDate
	updated.EntryQty = input.EntryQty
	updated.ExitDate = input.ExitDate
	updated.ExitQty = input.ExitQty
	updated.CropID = input.CropID
	if input.Note != nil {
		updated.Note = *input.Note
	}
	if err := updated.Validate(); err != nil {
		return Transaction{}, err
	}

	_, err = s.mutate(ctx, existing.ProductID, func(ctx context.Context, txr TxRepository) (int64, error) {
		if err := txr.Update(ctx, updated); err != nil {
			return 0, err
		}
		return id, nil
	})
	if err != nil {
		return Transaction{}, err
	}
	s.recordAudit(ctx, input.ActorID, "kardex:UPDATE", id, existing.ProductID, decimal.Zero)
	return s.repo.Get(ctx, id)
}

// ListTransactions returns the product's full history in (created_at, id)
// order, ready for kardex report rendering.
func (s *Service) ListTransactions(ctx context.Context, productID int64) ([]Transaction, error) {
	if productID <= 0 {
		return nil, fmt.Errorf("kardex: invalid product id %d", productID)
	}
	return s.repo.ListForProduct(ctx, productID)
}

// GetBalance returns the product's current stock in liters. Reads go through
// the Redis cache and concurrent lookups for the same product collapse into
// one repository query.
func (s *Service) GetBalance(ctx context.Context, productID int64) (decimal.Decimal, error) {
	v, err, _ := s.group.Do(strconv.FormatInt(productID, 10), func() (any, error) {
		cached, ok, err := s.balances.Get(ctx, productID)
		if err != nil {
			s.logger.Warn("balance cache read", slog.Int64("product_id", productID), slog.Any("error", err))
		} else if ok {
			return cached, nil
		}
		balance, err := s.repo.LastBalance(ctx, productID)
		if err != nil {
			return nil, err
		}
		if err := s.balances.Set(ctx, productID, balance); err != nil {
			s.logger.Warn("balance cache write", slog.Int64("product_id", productID), slog.Any("error", err))
		}
		return balance, nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return v.(decimal.Decimal), nil
}

// Recompute replays the product's full history and persists only the
// balances that changed, as one unit of work. Safe to re-run: a second pass
// over the same input finds nothing to update.
func (s *Service) Recompute(ctx context.Context, productID int64) (int, error) {
	unlock := s.lockProducts(productID)
	defer unlock()

	var changed int
	err := s.repo.WithTx(ctx, func(ctx context.Context, txr TxRepository) error {
		var err error
		changed, err = recompute(ctx, txr, productID)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.invalidate(ctx, productID)
	return changed, nil
}

// LedgerProductIDs lists products with at least one transaction.
func (s *Service) LedgerProductIDs(ctx context.Context) ([]int64, error) {
	return s.repo.ListProductIDs(ctx)
}

// mutate runs fn and the balance replay as one serialized unit of work for
// the product.
func (s *Service) mutate(ctx context.Context, productID int64, fn func(context.Context, TxRepository) (int64, error)) (int64, error) {
	unlock := s.lockProducts(productID)
	defer unlock()

	var id int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, txr TxRepository) error {
		var err error
		id, err = fn(ctx, txr)
		if err != nil {
			return err
		}
		_, err = recompute(ctx, txr, productID)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.invalidate(ctx, productID)
	return id, nil
}

func recompute(ctx context.Context, txr TxRepository, productID int64) (int, error) {
	txs, err := txr.ListForProduct(ctx, productID)
	if err != nil {
		return 0, err
	}
	changed := ReplayBalances(txs)
	if len(changed) == 0 {
		return 0, nil
	}
	if err := txr.UpdateBalances(ctx, changed); err != nil {
		return 0, err
	}
	return len(changed), nil
}

func (s *Service) requireEligible(ctx context.Context, productID int64) error {
	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return fmt.Errorf("kardex: load product %d: %w", productID, err)
	}
	if !product.StockEligible() {
		return ErrIneligibleProduct
	}
	return nil
}

// lockProducts acquires the key mutex for each product in ascending ID order
// so a cost edit touching two ledgers cannot deadlock against another writer.
func (s *Service) lockProducts(ids ...int64) func() {
	unique := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			unique = append(unique, id)
		}
	}
	sort.Slice(unique, func(i, j int) bool { return unique[i] < unique[j] })
	for _, id := range unique {
		s.locks.Lock(shared.ProductLockKey(id))
	}
	return func() {
		for i := len(unique) - 1; i >= 0; i-- {
			s.locks.Unlock(shared.ProductLockKey(unique[i]))
		}
	}
}

func (s *Service) invalidate(ctx context.Context, productID int64) {
	if err := s.balances.Invalidate(ctx, productID); err != nil {
		s.logger.Warn("balance cache invalidate", slog.Int64("product_id", productID), slog.Any("error", err))
	}
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, txID, productID int64, qty decimal.Decimal) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "inventory_tx",
		EntityID: strconv.FormatInt(txID, 10),
		Meta: map[string]any{
			"product_id": productID,
			"qty":        qty.String(),
		},
	})
}
