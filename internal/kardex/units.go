package kardex

import (
	"github.com/shopspring/decimal"

	"github.com/terra-erp/terra-erp/internal/masterdata/shared"
)

var thousand = decimal.NewFromInt(1000)

// ToLiters converts a quantity in the given unit to the ledger's canonical
// liters. Mass and package units (KG, G, BAG, SACK, CONTAINER) carry no
// density information, so the product's default unit is used as a hint: when
// the product is stocked in L or ML the applied quantity is assumed to be in
// that unit. Anything else is not convertible and the caller must skip
// automatic ledger creation.
//
// Manual entries and exits never pass through here; their inputs are liters
// by contract.
func ToLiters(qty decimal.Decimal, unit, productUnit shared.Unit) (decimal.Decimal, bool) {
	switch unit {
	case shared.UnitLiter:
		return qty, true
	case shared.UnitMilliliter:
		return qty.Div(thousand), true
	case shared.UnitKilogram, shared.UnitGram, shared.UnitBag, shared.UnitSack, shared.UnitContainer:
		switch productUnit {
		case shared.UnitLiter:
			return qty, true
		case shared.UnitMilliliter:
			return qty.Div(thousand), true
		}
	}
	return decimal.Zero, false
}
