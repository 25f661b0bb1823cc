package costs

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Filters narrows cost listings.
type Filters struct {
	Page      int
	Limit     int
	CropID    *int64
	ProductID *int64
	From      *time.Time
	To        *time.Time
}

// Repository abstracts cost persistence.
type Repository interface {
	List(ctx context.Context, f Filters) ([]CropCycleCost, int, error)
	ListForCrop(ctx context.Context, cropID int64) ([]CropCycleCost, error)
	Get(ctx context.Context, id int64) (CropCycleCost, error)
	Create(ctx context.Context, c CropCycleCost) (CropCycleCost, error)
	Update(ctx context.Context, c CropCycleCost) error
	SetLedgerTx(ctx context.Context, id int64, txID *int64) error
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository builds the PostgreSQL-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const costColumns = `id, crop_id, product_id, application_date, quantity, unit, application_method, dosage, weather_conditions, observations, application_cost, total_cost, ledger_tx_id, created_at, updated_at`

func (r *pgRepository) List(ctx context.Context, f Filters) ([]CropCycleCost, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	appendFilter := func(clause string, value any) {
		args = append(args, value)
		where += ` AND ` + clause + ` $` + strconv.Itoa(len(args))
	}
	if f.CropID != nil {
		appendFilter(`crop_id =`, *f.CropID)
	}
	if f.ProductID != nil {
		appendFilter(`product_id =`, *f.ProductID)
	}
	if f.From != nil {
		appendFilter(`application_date >=`, *f.From)
	}
	if f.To != nil {
		appendFilter(`application_date <=`, *f.To)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM crop_cycle_costs`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit < 1 {
		limit = 10
	}
	page := f.Page
	if page < 1 {
		page = 1
	}
	args = append(args, limit, (page-1)*limit)
	query := `SELECT ` + costColumns + ` FROM crop_cycle_costs` + where +
		` ORDER BY application_date DESC, id DESC LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items, err := collectCosts(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *pgRepository) ListForCrop(ctx context.Context, cropID int64) ([]CropCycleCost, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+costColumns+` FROM crop_cycle_costs WHERE crop_id = $1 ORDER BY application_date DESC, id DESC`, cropID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCosts(rows)
}

func (r *pgRepository) Get(ctx context.Context, id int64) (CropCycleCost, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+costColumns+` FROM crop_cycle_costs WHERE id = $1`, id)
	c, err := scanCost(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return CropCycleCost{}, ErrNotFound
	}
	return c, err
}

func (r *pgRepository) Create(ctx context.Context, c CropCycleCost) (CropCycleCost, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO crop_cycle_costs (crop_id, product_id, application_date, quantity, unit, application_method, dosage, weather_conditions, observations, application_cost, total_cost, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW()) RETURNING id, created_at, updated_at`,
		c.CropID, c.ProductID, c.ApplicationDate, c.Quantity, c.Unit, c.Method, c.Dosage, c.Weather, c.Observations,
		nullDecimal(c.ApplicationCost), nullDecimal(c.TotalCost),
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *pgRepository) Update(ctx context.Context, c CropCycleCost) error {
	tag, err := r.pool.Exec(ctx, `UPDATE crop_cycle_costs SET crop_id = $1, product_id = $2, application_date = $3, quantity = $4, unit = $5, application_method = $6, dosage = $7, weather_conditions = $8, observations = $9, application_cost = $10, total_cost = $11, updated_at = NOW() WHERE id = $12`,
		c.CropID, c.ProductID, c.ApplicationDate, c.Quantity, c.Unit, c.Method, c.Dosage, c.Weather, c.Observations,
		nullDecimal(c.ApplicationCost), nullDecimal(c.TotalCost), c.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgRepository) SetLedgerTx(ctx context.Context, id int64, txID *int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE crop_cycle_costs SET ledger_tx_id = $1, updated_at = NOW() WHERE id = $2`, txID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func collectCosts(rows pgx.Rows) ([]CropCycleCost, error) {
	var items []CropCycleCost
	for rows.Next() {
		c, err := scanCost(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

func scanCost(row pgx.Row) (CropCycleCost, error) {
	var (
		c       CropCycleCost
		appCost decimal.NullDecimal
		totCost decimal.NullDecimal
	)
	err := row.Scan(&c.ID, &c.CropID, &c.ProductID, &c.ApplicationDate, &c.Quantity, &c.Unit, &c.Method, &c.Dosage,
		&c.Weather, &c.Observations, &appCost, &totCost, &c.LedgerTxID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return CropCycleCost{}, err
	}
	if appCost.Valid {
		c.ApplicationCost = &appCost.Decimal
	}
	if totCost.Valid {
		c.TotalCost = &totCost.Decimal
	}
	return c, nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}
