// Package costs records product applications against crop cycles and feeds
// each one into the inventory ledger.
package costs

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/terra-erp/terra-erp/internal/masterdata/products"
	"github.com/terra-erp/terra-erp/internal/masterdata/shared"
)

// CropCycleCost is one application of a product or service to a crop cycle.
// Quantity stays in the unit it was applied in; the ledger converts to liters
// on its side.
type CropCycleCost struct {
	ID              int64            `json:"id"`
	CropID          int64            `json:"crop_id"`
	ProductID       int64            `json:"product_id"`
	ApplicationDate time.Time        `json:"application_date"`
	Quantity        decimal.Decimal  `json:"quantity"`
	Unit            shared.Unit      `json:"unit"`
	Method          *string          `json:"application_method,omitempty"`
	Dosage          *string          `json:"dosage,omitempty"`
	Weather         *string          `json:"weather_conditions,omitempty"`
	Observations    *string          `json:"observations,omitempty"`
	ApplicationCost *decimal.Decimal `json:"application_cost,omitempty"`
	TotalCost       *decimal.Decimal `json:"total_cost,omitempty"`
	LedgerTxID      *int64           `json:"ledger_tx_id,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

var (
	// ErrNotFound indicates a missing cost record.
	ErrNotFound = errors.New("costs: cost not found")
	// ErrValidation indicates an invalid cost payload.
	ErrValidation = errors.New("costs: validation failed")
)

// Expense categories for crop cycle reporting.
const (
	CategoryAgrochemicals = "AGROCHEMICALS"
	CategoryFertilizers   = "FERTILIZERS"
	CategoryTractor       = "TRACTOR"
	CategoryRental        = "RENTAL"
	CategoryLabor         = "LABOR"
	CategoryHarvest       = "HARVEST"
	CategoryElectrostatic = "ELECTROSTATIC"
	CategoryOther         = "OTHER"
)

// Category buckets a cost for expense reporting. Stocked products map from
// their catalog category; services fall back to keyword matching on the
// product name.
func Category(p products.Product) string {
	if p.Category != nil {
		switch *p.Category {
		case products.CategoryAgrochemical:
			return CategoryAgrochemicals
		case products.CategoryFertilizer:
			return CategoryFertilizers
		}
	}
	if p.Kind == products.KindService {
		name := strings.ToUpper(p.Name)
		switch {
		case strings.Contains(name, "TRACTOR"):
			return CategoryTractor
		case strings.Contains(name, "RENT"):
			return CategoryRental
		case strings.Contains(name, "LABOR"), strings.Contains(name, "CREW"), strings.Contains(name, "WAGE"):
			return CategoryLabor
		case strings.Contains(name, "HARVEST"):
			return CategoryHarvest
		case strings.Contains(name, "ELECTROSTATIC"):
			return CategoryElectrostatic
		}
	}
	return CategoryOther
}

// CategoryTotal aggregates a crop cycle's spend per expense category.
type CategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
	Count    int             `json:"count"`
}
