package products

import (
	"errors"
	"strings"

	"github.com/terra-erp/terra-erp/internal/masterdata/shared"
)

func (s *Service) validate(p Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("product name is required")
	}
	switch p.Kind {
	case KindPhysical, KindService:
	default:
		return errors.New("product kind must be PHYSICAL or SERVICE")
	}
	if p.Category != nil {
		if p.Kind != KindPhysical {
			return errors.New("only physical products carry a stock category")
		}
		switch *p.Category {
		case CategoryAgrochemical, CategoryFertilizer:
		default:
			return errors.New("unknown product category")
		}
	}
	if !shared.ValidUnit(p.Unit) {
		return errors.New("unknown unit of measure")
	}
	if p.UnitPrice.IsNegative() {
		return errors.New("unit price must not be negative")
	}
	return nil
}
