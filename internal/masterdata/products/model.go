package products

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/terra-erp/terra-erp/internal/masterdata/shared"
)

// Kind distinguishes physical goods from contracted services.
type Kind string

const (
	KindPhysical Kind = "PHYSICAL"
	KindService  Kind = "SERVICE"
)

// Category classifies physical products that may carry stock.
type Category string

const (
	CategoryAgrochemical Category = "AGROCHEMICAL"
	CategoryFertilizer   Category = "FERTILIZER"
)

// Product represents a catalog item applied to crops or billed as a service.
type Product struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	Kind           Kind            `json:"kind"`
	Category       *Category       `json:"category,omitempty"`
	Brand          *string         `json:"brand,omitempty"`
	ExpirationDate *time.Time      `json:"expiration_date,omitempty"`
	Unit           shared.Unit     `json:"unit"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Observations   *string         `json:"observations,omitempty"`
	IsActive       bool            `json:"is_active"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// StockEligible reports whether the product may carry inventory transactions.
// Only physical products with a stock category qualify; services never do.
func (p Product) StockEligible() bool {
	return p.Kind == KindPhysical && p.Category != nil && *p.Category != ""
}
