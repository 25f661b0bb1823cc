package products

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
	List(ctx context.Context, filters shared.ListFilters) ([]Product, int, error)
	Get(ctx context.Context, id int64) (Product, error)
	Create(ctx context.Context, product Product) (Product, error)
	Update(ctx context.Context, id int64, product Product) error
	Deactivate(ctx context.Context, id int64) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const productColumns = `id, name, kind, category, brand, expiration_date, unit, unit_price, observations, is_active, created_at, updated_at`

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Product, int, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM products WHERE 1=1`
	args := []interface{}{}
	argCount := 0

	appendFilter := func(clause string, value interface{}) {
		argCount++
		placeholder := `$` + strconv.Itoa(argCount)
		query += ` AND ` + clause + placeholder
		countQuery += ` AND ` + clause + placeholder
		args = append(args, value)
	}

	if filters.Kind != "" {
		appendFilter(`kind = `, filters.Kind)
	}
	if filters.Category != "" {
		appendFilter(`category = `, filters.Category)
	}
	if filters.Search != "" {
		appendFilter(`name ILIKE `, "%"+filters.Search+"%")
	}
	if filters.IsActive != nil {
		appendFilter(`is_active = `, *filters.IsActive)
	}

	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += ` ORDER BY ` + sortOrder(filters.SortBy, filters.SortDir)

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

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Product, error) {
	row := r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, shared.ErrNotFound
	}
	return p, err
}

func (r *repository) Create(ctx context.Context, product Product) (Product, error) {
	query := `INSERT INTO products (name, kind, category, brand, expiration_date, unit, unit_price, observations, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`
	now := time.Now()
	err := r.db.QueryRow(ctx, query,
		product.Name, string(product.Kind), product.Category, product.Brand, product.ExpirationDate,
		string(product.Unit), product.UnitPrice, product.Observations, product.IsActive, now, now,
	).Scan(&product.ID)
	if err != nil {
		return Product{}, err
	}
	product.CreatedAt = now
	product.UpdatedAt = now
	return product, nil
}

func (r *repository) Update(ctx context.Context, id int64, product Product) error {
	query := `UPDATE products SET name = $1, kind = $2, category = $3, brand = $4, expiration_date = $5, unit = $6, unit_price = $7, observations = $8, is_active = $9, updated_at = $10 WHERE id = $11`
	_, err := r.db.Exec(ctx, query,
		product.Name, string(product.Kind), product.Category, product.Brand, product.ExpirationDate,
		string(product.Unit), product.UnitPrice, product.Observations, product.IsActive, time.Now(), id,
	)
	return err
}

// Deactivate soft-deletes. Products are referenced by ledger transactions and
// crop cycle costs, so rows are never removed.
func (r *repository) Deactivate(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `UPDATE products SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	return err
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Kind, &p.Category, &p.Brand, &p.ExpirationDate, &p.Unit, &p.UnitPrice, &p.Observations, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func sortOrder(sortBy, sortDir string) string {
	dir := "ASC"
	if sortDir == shared.SortDesc {
		dir = "DESC"
	}
	switch sortBy {
	case "kind":
		return "kind " + dir
	case "category":
		return "category " + dir
	case "unit_price":
		return "unit_price " + dir
	case "created_at":
		return "created_at " + dir
	default:
		return "name " + dir
	}
}
