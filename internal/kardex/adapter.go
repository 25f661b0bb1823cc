package kardex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/terra-erp/terra-erp/internal/masterdata/shared"
	internalshared "github.com/terra-erp/terra-erp/internal/shared"
)

// CostApplication is the payload the cost workflow hands to the ledger when a
// crop cycle cost is created or edited. Quantity is in the cost's own unit;
// conversion to liters happens here.
type CostApplication struct {
	CostID     int64
	ProductID  int64
	CropID     int64
	Date       time.Time
	Quantity   decimal.Decimal
	Unit       shared.Unit
	Method     string
	Note       string
	LinkedTxID *int64
	Previous   *CostSnapshot
	ActorID    int64
}

// CostSnapshot captures the cost's previous product/crop/date so an edit can
// locate the exit it created earlier, even without an explicit link.
type CostSnapshot struct {
	ProductID int64
	CropID    int64
	Date      time.Time
}

// ApplyOutcome reports the ledger side effect of a cost application. A nil
// outcome from ApplyCost means the cost produced no ledger row.
type ApplyOutcome struct {
	TransactionID int64
	Created       bool
	Liters        decimal.Decimal
}

// ApplyCost derives an exit transaction from a crop cycle cost. Ineligible
// products and unconvertible units are skipped silently so the cost workflow
// never fails on ledger grounds. Edits update the previously created exit in
// place instead of stacking a duplicate, and when the edit moved the cost to
// a different product both ledgers are replayed.
func (s *Service) ApplyCost(ctx context.Context, app CostApplication) (*ApplyOutcome, error) {
	product, err := s.catalog.GetProduct(ctx, app.ProductID)
	if err != nil {
		return nil, fmt.Errorf("kardex: load product %d: %w", app.ProductID, err)
	}
	if !product.StockEligible() {
		s.logger.Debug("cost application skipped, product carries no inventory",
			slog.Int64("cost_id", app.CostID), slog.Int64("product_id", app.ProductID))
		return nil, nil
	}
	liters, ok := ToLiters(app.Quantity, app.Unit, product.Unit)
	if !ok || !liters.IsPositive() {
		s.logger.Info("cost application skipped, unit not convertible to liters",
			slog.Int64("cost_id", app.CostID), slog.Int64("product_id", app.ProductID),
			slog.String("unit", string(app.Unit)))
		return nil, nil
	}
	note := buildAutoNote(app.Method, app.Note)

	lockIDs := []int64{app.ProductID}
	if app.Previous != nil && app.Previous.ProductID != app.ProductID {
		lockIDs = append(lockIDs, app.Previous.ProductID)
	}
	unlock := s.lockProducts(lockIDs...)
	defer unlock()

	outcome := &ApplyOutcome{Liters: liters}
	var oldProductID int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, txr TxRepository) error {
		existing, found, err := s.findLinkedExit(ctx, txr, app)
		if err != nil {
			return err
		}
		date := app.Date
		cropID := app.CropID
		if found {
			oldProductID = existing.ProductID
			existing.ProductID = app.ProductID
			existing.ExitDate = &date
			existing.ExitQty = &liters
			existing.CropID = &cropID
			existing.Note = note
			if err := txr.Update(ctx, existing); err != nil {
				return err
			}
			outcome.TransactionID = existing.ID
		} else {
			id, err := txr.Insert(ctx, Transaction{
				ProductID: app.ProductID,
				ExitDate:  &date,
				ExitQty:   &liters,
				CropID:    &cropID,
				Note:      note,
			})
			if err != nil {
				return err
			}
			outcome.TransactionID = id
			outcome.Created = true
		}
		if _, err := recompute(ctx, txr, app.ProductID); err != nil {
			return err
		}
		// An edit can move the exit to another product; the old ledger
		// keeps a stale balance unless it is replayed too.
		if oldProductID != 0 && oldProductID != app.ProductID {
			if _, err := recompute(ctx, txr, oldProductID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, app.ProductID)
	if oldProductID != 0 && oldProductID != app.ProductID {
		s.invalidate(ctx, oldProductID)
	}
	s.auditApply(ctx, app, outcome)
	return outcome, nil
}

// findLinkedExit resolves the exit transaction a previous application of this
// cost created. The explicit link wins; costs recorded before the link column
// existed fall back to matching the adapter's note tag against the previous
// product/crop/date triple.
func (s *Service) findLinkedExit(ctx context.Context, txr TxRepository, app CostApplication) (Transaction, bool, error) {
	if app.LinkedTxID != nil {
		t, err := txr.Get(ctx, *app.LinkedTxID)
		if err == nil && strings.HasPrefix(t.Note, autoNotePrefix) {
			return t, true, nil
		}
		if err != nil && !errors.Is(err, ErrTransactionNotFound) {
			return Transaction{}, false, err
		}
	}
	if app.Previous != nil {
		t, err := txr.FindAutoExit(ctx, app.Previous.ProductID, app.Previous.CropID, app.Previous.Date)
		if err == nil {
			return t, true, nil
		}
		if !errors.Is(err, ErrTransactionNotFound) {
			return Transaction{}, false, err
		}
	}
	return Transaction{}, false, nil
}

func buildAutoNote(method, observations string) string {
	note := autoNotePrefix
	if method != "" {
		note += " - method: " + method
	}
	if observations != "" {
		note += " - notes: " + observations
	}
	return note
}

func (s *Service) auditApply(ctx context.Context, app CostApplication, outcome *ApplyOutcome) {
	if s.audit == nil {
		return
	}
	action := "kardex:APPLY_UPDATE"
	if outcome.Created {
		action = "kardex:APPLY_CREATE"
	}
	_ = s.audit.Record(ctx, internalshared.AuditLog{
		ActorID:  app.ActorID,
		Action:   action,
		Entity:   "inventory_tx",
		EntityID: strconv.FormatInt(outcome.TransactionID, 10),
		Meta: map[string]any{
			"cost_id":    app.CostID,
			"product_id": app.ProductID,
			"crop_id":    app.CropID,
			"liters":     outcome.Liters.String(),
		},
	})
}
