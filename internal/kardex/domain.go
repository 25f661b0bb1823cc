// Package kardex implements the physical inventory ledger for stock-eligible
// products: an append-biased log of entries and exits per product with a
// running balance recomputed by full replay after every write.
package kardex

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is a single ledger row. It records either an entry or an exit
// (or both, for corrections imported from legacy data); quantities are always
// expressed in liters.
type Transaction struct {
	ID        int64            `json:"id"`
	ProductID int64            `json:"product_id"`
	EntryDate *time.Time       `json:"entry_date,omitempty"`
	EntryQty  *decimal.Decimal `json:"entry_quantity,omitempty"`
	ExitDate  *time.Time       `json:"exit_date,omitempty"`
	ExitQty   *decimal.Decimal `json:"exit_quantity,omitempty"`
	CropID    *int64           `json:"crop_id,omitempty"`
	Balance   decimal.Decimal  `json:"balance"`
	Note      string           `json:"note,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Validate checks the transaction invariants: at least one quantity must be
// present and every present quantity must be strictly positive.
func (t Transaction) Validate() error {
	if t.EntryQty == nil && t.ExitQty == nil {
		return ErrEmptyTransaction
	}
	if t.EntryQty != nil && !t.EntryQty.IsPositive() {
		return ErrInvalidQuantity
	}
	if t.ExitQty != nil && !t.ExitQty.IsPositive() {
		return ErrInvalidQuantity
	}
	return nil
}

var (
	// ErrIneligibleProduct rejects ledger writes against services or
	// uncategorized products.
	ErrIneligibleProduct = errors.New("kardex: product cannot carry inventory")
	// ErrInvalidQuantity indicates a zero or negative quantity.
	ErrInvalidQuantity = errors.New("kardex: quantity must be positive")
	// ErrEmptyTransaction indicates a transaction with neither entry nor exit.
	ErrEmptyTransaction = errors.New("kardex: transaction needs an entry or exit quantity")
	// ErrTransactionNotFound indicates a missing ledger row.
	ErrTransactionNotFound = errors.New("kardex: transaction not found")
)

// autoNotePrefix tags exit transactions derived from crop cycle costs so the
// adapter can recognise its own rows when a cost is edited.
const autoNotePrefix = "Auto exit from crop cycle cost"
