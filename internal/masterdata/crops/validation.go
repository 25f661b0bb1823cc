package crops

import (
	"errors"
	"strings"
)

func (s *Service) validate(c Crop) error {
	if strings.TrimSpace(c.PlotName) == "" {
		return errors.New("plot name is required")
	}
	if strings.TrimSpace(c.CropType) == "" {
		return errors.New("crop type is required")
	}
	if c.PlantingDate.IsZero() {
		return errors.New("planting date is required")
	}
	switch c.Status {
	case StatusPreparation, StatusPlanting, StatusGrowth, StatusFlowering, StatusFruiting, StatusHarvest, StatusFinished:
	default:
		return errors.New("unknown crop status")
	}
	if !c.PlantedArea.IsPositive() {
		return errors.New("planted area must be positive")
	}
	return nil
}
