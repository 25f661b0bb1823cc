package costs

import (
	"testing"

	"github.com/terra-erp/terra-erp/internal/masterdata/products"
)

func TestCategory(t *testing.T) {
	agro := products.CategoryAgrochemical
	fert := products.CategoryFertilizer
	cases := []struct {
		name    string
		product products.Product
		want    string
	}{
		{"agrochemical product", products.Product{Kind: products.KindPhysical, Category: &agro}, CategoryAgrochemicals},
		{"fertilizer product", products.Product{Kind: products.KindPhysical, Category: &fert}, CategoryFertilizers},
		{"tractor service", products.Product{Name: "Tractor plowing", Kind: products.KindService}, CategoryTractor},
		{"rental service", products.Product{Name: "Sprayer rental", Kind: products.KindService}, CategoryRental},
		{"labor service", products.Product{Name: "Harvest crew labor", Kind: products.KindService}, CategoryLabor},
		{"harvest service", products.Product{Name: "Harvest transport", Kind: products.KindService}, CategoryHarvest},
		{"electrostatic service", products.Product{Name: "Electrostatic spraying", Kind: products.KindService}, CategoryElectrostatic},
		{"unclassified service", products.Product{Name: "Soil analysis", Kind: products.KindService}, CategoryOther},
		{"uncategorized product", products.Product{Name: "Misc", Kind: products.KindPhysical}, CategoryOther},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Category(tc.product); got != tc.want {
				t.Fatalf("Category = %s, want %s", got, tc.want)
			}
		})
	}
}
