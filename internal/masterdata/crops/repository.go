package crops

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/terra-erp/terra-erp/internal/masterdata/shared"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Crop, int, error)
	Get(ctx context.Context, id int64) (Crop, error)
	Create(ctx context.Context, crop Crop) (Crop, error)
	Update(ctx context.Context, id int64, crop Crop) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const cropColumns = `id, plot_name, crop_type, variety, planting_date, estimated_harvest_date, status, planted_area, expected_yield, observations, is_active, created_at, updated_at`

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Crop, int, error) {
	query := `SELECT ` + cropColumns + ` FROM crops WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM crops WHERE 1=1`
	args := []interface{}{}
	argCount := 0

	appendFilter := func(clause string, value interface{}) {
		argCount++
		placeholder := `$` + strconv.Itoa(argCount)
		query += ` AND ` + clause + placeholder
		countQuery += ` AND ` + clause + placeholder
		args = append(args, value)
	}

	if filters.Status != "" {
		appendFilter(`status = `, filters.Status)
	}
	if filters.Search != "" {
		appendFilter(`(plot_name ILIKE `, "%"+filters.Search+"%")
		query += ` OR crop_type ILIKE $` + strconv.Itoa(argCount) + `)`
		countQuery += ` OR crop_type ILIKE $` + strconv.Itoa(argCount) + `)`
	}
	if filters.IsActive != nil {
		appendFilter(`is_active = `, *filters.IsActive)
	}

	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += ` ORDER BY planting_date DESC, id DESC`

	if filters.Limit > 0 {
		argCount++
		query += ` LIMIT $` + strconv.Itoa(argCount)
		args = append(args, filters.Limit)

		argCount++
		query += ` OFFSET $` + strconv.Itoa(argCount)
		offset := (filters.Page - 1) * filters.Limit
		if offset < 0 {
			offset = 0
		}
		args = append(args, offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var crops []Crop
	for rows.Next() {
		c, err := scanCrop(rows)
		if err != nil {
			return nil, 0, err
		}
		crops = append(crops, c)
	}
	return crops, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Crop, error) {
	row := r.db.QueryRow(ctx, `SELECT `+cropColumns+` FROM crops WHERE id = $1`, id)
	c, err := scanCrop(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Crop{}, shared.ErrNotFound
	}
	return c, err
}

func (r *repository) Create(ctx context.Context, crop Crop) (Crop, error) {
	query := `INSERT INTO crops (plot_name, crop_type, variety, planting_date, estimated_harvest_date, status, planted_area, expected_yield, observations, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING id`
	now := time.Now()
	err := r.db.QueryRow(ctx, query,
		crop.PlotName, crop.CropType, crop.Variety, crop.PlantingDate, crop.EstimatedHarvestDate,
		string(crop.Status), crop.PlantedArea, crop.ExpectedYield, crop.Observations, crop.IsActive, now, now,
	).Scan(&crop.ID)
	if err != nil {
		return Crop{}, err
	}
	crop.CreatedAt = now
	crop.UpdatedAt = now
	return crop, nil
}

func (r *repository) Update(ctx context.Context, id int64, crop Crop) error {
	query := `UPDATE crops SET plot_name = $1, crop_type = $2, variety = $3, planting_date = $4, estimated_harvest_date = $5, status = $6, planted_area = $7, expected_yield = $8, observations = $9, is_active = $10, updated_at = $11 WHERE id = $12`
	_, err := r.db.Exec(ctx, query,
		crop.PlotName, crop.CropType, crop.Variety, crop.PlantingDate, crop.EstimatedHarvestDate,
		string(crop.Status), crop.PlantedArea, crop.ExpectedYield, crop.Observations, crop.IsActive, time.Now(), id,
	)
	return err
}

func scanCrop(row pgx.Row) (Crop, error) {
	var c Crop
	err := row.Scan(&c.ID, &c.PlotName, &c.CropType, &c.Variety, &c.PlantingDate, &c.EstimatedHarvestDate, &c.Status, &c.PlantedArea, &c.ExpectedYield, &c.Observations, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}
