package costs

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/terra-erp/terra-erp/internal/kardex"
	"github.com/terra-erp/terra-erp/internal/masterdata/products"
)

// LedgerPort is the inventory ledger side of a cost application.
type LedgerPort interface {
	ApplyCost(ctx context.Context, app kardex.CostApplication) (*kardex.ApplyOutcome, error)
}

// CatalogPort provides product lookups for category reporting.
type CatalogPort interface {
	GetProduct(ctx context.Context, id int64) (products.Product, error)
}

// Service owns the cost workflow. Persisting the cost record is the primary
// effect; the ledger application is best effort and its failures are logged,
// never surfaced, so a ledger hiccup cannot block cost capture.
type Service struct {
	repo    Repository
	ledger  LedgerPort
	catalog CatalogPort
	logger  *slog.Logger
}

// NewService builds Service.
func NewService(repo Repository, ledger LedgerPort, catalog CatalogPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, ledger: ledger, catalog: catalog, logger: logger}
}

// List returns costs matching the filters with the total row count.
func (s *Service) List(ctx context.Context, f Filters) ([]CropCycleCost, int, error) {
	return s.repo.List(ctx, f)
}

// Get returns one cost record.
func (s *Service) Get(ctx context.Context, id int64) (CropCycleCost, error) {
	return s.repo.Get(ctx, id)
}

// Create persists the cost and derives its ledger exit.
func (s *Service) Create(ctx context.Context, c CropCycleCost, actorID int64) (CropCycleCost, error) {
	if err := s.validate(c); err != nil {
		return CropCycleCost{}, err
	}
	created, err := s.repo.Create(ctx, c)
	if err != nil {
		return CropCycleCost{}, err
	}
	s.applyToLedger(ctx, &created, nil, actorID)
	return created, nil
}

// Update rewrites the cost and reconciles its ledger exit. The previous
// product/crop/date triple travels along so the ledger can relocate the exit
// it created for the original values.
func (s *Service) Update(ctx context.Context, id int64, c CropCycleCost, actorID int64) (CropCycleCost, error) {
	if err := s.validate(c); err != nil {
		return CropCycleCost{}, err
	}
	previous, err := s.repo.Get(ctx, id)
	if err != nil {
		return CropCycleCost{}, err
	}
	c.ID = id
	c.LedgerTxID = previous.LedgerTxID
	if err := s.repo.Update(ctx, c); err != nil {
		return CropCycleCost{}, err
	}
	snapshot := &kardex.CostSnapshot{
		ProductID: previous.ProductID,
		CropID:    previous.CropID,
		Date:      previous.ApplicationDate,
	}
	s.applyToLedger(ctx, &c, snapshot, actorID)
	return c, nil
}

// Summary aggregates the crop cycle's spend per expense category.
func (s *Service) Summary(ctx context.Context, cropID int64) ([]CategoryTotal, error) {
	items, err := s.repo.ListForCrop(ctx, cropID)
	if err != nil {
		return nil, err
	}
	totals := make(map[string]*CategoryTotal)
	for _, c := range items {
		category := CategoryOther
		product, err := s.catalog.GetProduct(ctx, c.ProductID)
		if err == nil {
			category = Category(product)
		} else {
			s.logger.Warn("cost summary product lookup", slog.Int64("product_id", c.ProductID), slog.Any("error", err))
		}
		bucket, ok := totals[category]
		if !ok {
			bucket = &CategoryTotal{Category: category}
			totals[category] = bucket
		}
		bucket.Count++
		if c.TotalCost != nil {
			bucket.Total = bucket.Total.Add(*c.TotalCost)
		}
	}
	out := make([]CategoryTotal, 0, len(totals))
	for _, bucket := range totals {
		out = append(out, *bucket)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

func (s *Service) validate(c CropCycleCost) error {
	switch {
	case c.CropID <= 0:
		return fmt.Errorf("%w: crop is required", ErrValidation)
	case c.ProductID <= 0:
		return fmt.Errorf("%w: product is required", ErrValidation)
	case c.ApplicationDate.IsZero():
		return fmt.Errorf("%w: application date is required", ErrValidation)
	case !c.Quantity.IsPositive():
		return fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}
	if c.ApplicationCost != nil && c.ApplicationCost.LessThan(decimal.Zero) {
		return fmt.Errorf("%w: application cost cannot be negative", ErrValidation)
	}
	if c.TotalCost != nil && c.TotalCost.LessThan(decimal.Zero) {
		return fmt.Errorf("%w: total cost cannot be negative", ErrValidation)
	}
	return nil
}

func (s *Service) applyToLedger(ctx context.Context, c *CropCycleCost, previous *kardex.CostSnapshot, actorID int64) {
	app := kardex.CostApplication{
		CostID:     c.ID,
		ProductID:  c.ProductID,
		CropID:     c.CropID,
		Date:       c.ApplicationDate,
		Quantity:   c.Quantity,
		Unit:       c.Unit,
		LinkedTxID: c.LedgerTxID,
		Previous:   previous,
		ActorID:    actorID,
	}
	if c.Method != nil {
		app.Method = *c.Method
	}
	if c.Observations != nil {
		app.Note = *c.Observations
	}

	outcome, err := s.ledger.ApplyCost(ctx, app)
	if err != nil {
		s.logger.Error("ledger application failed", slog.Int64("cost_id", c.ID), slog.Any("error", err))
		return
	}
	if outcome == nil {
		return
	}
	if c.LedgerTxID == nil || *c.LedgerTxID != outcome.TransactionID {
		txID := outcome.TransactionID
		if err := s.repo.SetLedgerTx(ctx, c.ID, &txID); err != nil {
			s.logger.Error("store ledger link", slog.Int64("cost_id", c.ID), slog.Any("error", err))
			return
		}
		c.LedgerTxID = &txID
	}
}
