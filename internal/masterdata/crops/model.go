package crops

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status tracks a crop through its production cycle.
type Status string

const (
	StatusPreparation Status = "PREPARATION"
	StatusPlanting    Status = "PLANTING"
	StatusGrowth      Status = "GROWTH"
	StatusFlowering   Status = "FLOWERING"
	StatusFruiting    Status = "FRUITING"
	StatusHarvest     Status = "HARVEST"
	StatusFinished    Status = "FINISHED"
)

// Crop represents a production cycle on a plot. The inventory ledger only
// references it by identity as the reason for a stock exit.
type Crop struct {
	ID                   int64            `json:"id"`
	PlotName             string           `json:"plot_name"`
	CropType             string           `json:"crop_type"`
	Variety              *string          `json:"variety,omitempty"`
	PlantingDate         time.Time        `json:"planting_date"`
	EstimatedHarvestDate *time.Time       `json:"estimated_harvest_date,omitempty"`
	Status               Status           `json:"status"`
	PlantedArea          decimal.Decimal  `json:"planted_area"`
	ExpectedYield        *decimal.Decimal `json:"expected_yield,omitempty"`
	Observations         *string          `json:"observations,omitempty"`
	IsActive             bool             `json:"is_active"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
}
