package products

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/terra-erp/terra-erp/internal/masterdata/shared"
)

// ProductForm is the create/update payload.
type ProductForm struct {
	Name           string          `json:"name" validate:"required"`
	Kind           string          `json:"kind" validate:"required,oneof=PHYSICAL SERVICE"`
	Category       *string         `json:"category,omitempty"`
	Brand          *string         `json:"brand,omitempty"`
	ExpirationDate *string         `json:"expiration_date,omitempty"`
	Unit           string          `json:"unit" validate:"required"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Observations   *string         `json:"observations,omitempty"`
	IsActive       bool            `json:"is_active"`
}

func (f ProductForm) toModel() (Product, error) {
	p := Product{
		Name:         f.Name,
		Kind:         Kind(f.Kind),
		Brand:        f.Brand,
		Unit:         shared.Unit(f.Unit),
		UnitPrice:    f.UnitPrice,
		Observations: f.Observations,
		IsActive:     f.IsActive,
	}
	if f.Category != nil && *f.Category != "" {
		category := Category(*f.Category)
		p.Category = &category
	}
	if f.ExpirationDate != nil && *f.ExpirationDate != "" {
		d, err := time.Parse("2006-01-02", *f.ExpirationDate)
		if err != nil {
			return Product{}, err
		}
		p.ExpirationDate = &d
	}
	return p, nil
}
