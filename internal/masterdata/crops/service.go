package crops

import (
	"context"
	"errors"

	"github.com/terra-erp/terra-erp/internal/masterdata/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Crop, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Crop, error) {
	if id <= 0 {
		return Crop{}, errors.New("invalid crop ID")
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, crop Crop) (Crop, error) {
	if crop.Status == "" {
		crop.Status = StatusPlanting
	}
	if err := s.validate(crop); err != nil {
		return Crop{}, err
	}
	return s.repo.Create(ctx, crop)
}

func (s *Service) Update(ctx context.Context, id int64, crop Crop) error {
	if id <= 0 {
		return errors.New("invalid crop ID")
	}
	if err := s.validate(crop); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, crop)
}
