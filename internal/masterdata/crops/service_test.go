package crops

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/terra-erp/terra-erp/internal/masterdata/shared"
)

type memoryRepo struct {
	seq   int64
	items map[int64]Crop
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{items: make(map[int64]Crop)}
}

func (m *memoryRepo) List(ctx context.Context, f shared.ListFilters) ([]Crop, int, error) {
	var out []Crop
	for _, c := range m.items {
		if f.Status != "" && string(c.Status) != f.Status {
			continue
		}
		out = append(out, c)
	}
	return out, len(out), nil
}

func (m *memoryRepo) Get(ctx context.Context, id int64) (Crop, error) {
	c, ok := m.items[id]
	if !ok {
		return Crop{}, shared.ErrNotFound
	}
	return c, nil
}

func (m *memoryRepo) Create(ctx context.Context, c Crop) (Crop, error) {
	m.seq++
	c.ID = m.seq
	c.IsActive = true
	m.items[c.ID] = c
	return c, nil
}

func (m *memoryRepo) Update(ctx context.Context, id int64, c Crop) error {
	if _, ok := m.items[id]; !ok {
		return shared.ErrNotFound
	}
	c.ID = id
	m.items[id] = c
	return nil
}

func validCrop() Crop {
	return Crop{
		PlotName:     "North field",
		CropType:     "Tomato",
		PlantingDate: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		PlantedArea:  decimal.NewFromFloat(2.5),
	}
}

func TestCreateCropDefaultsStatus(t *testing.T) {
	svc := NewService(newMemoryRepo())

	created, err := svc.Create(context.Background(), validCrop())
	require.NoError(t, err)
	require.Equal(t, StatusPlanting, created.Status)
}

func TestCreateCropValidation(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	c := validCrop()
	c.PlotName = "  "
	_, err := svc.Create(ctx, c)
	require.Error(t, err)

	c = validCrop()
	c.PlantingDate = time.Time{}
	_, err = svc.Create(ctx, c)
	require.Error(t, err)

	c = validCrop()
	c.Status = "SPROUTED"
	_, err = svc.Create(ctx, c)
	require.Error(t, err)

	c = validCrop()
	c.PlantedArea = decimal.Zero
	_, err = svc.Create(ctx, c)
	require.Error(t, err)
}

func TestUpdateCrop(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	created, err := svc.Create(ctx, validCrop())
	require.NoError(t, err)

	edited := validCrop()
	edited.Status = StatusHarvest
	require.NoError(t, svc.Update(ctx, created.ID, edited))

	stored, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, StatusHarvest, stored.Status)
}

func TestUpdateUnknownCrop(t *testing.T) {
	svc := NewService(newMemoryRepo())

	err := svc.Update(context.Background(), 42, validCrop())
	require.ErrorIs(t, err, shared.ErrNotFound)
}
