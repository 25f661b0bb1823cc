package kardex

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// RepositoryPort abstracts persistence for the ledger service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Transaction, error)
	ListForProduct(ctx context.Context, productID int64) ([]Transaction, error)
	LastBalance(ctx context.Context, productID int64) (decimal.Decimal, error)
	ListProductIDs(ctx context.Context) ([]int64, error)
}

// TxRepository exposes the operations available inside a ledger write
// transaction.
type TxRepository interface {
	Get(ctx context.Context, id int64) (Transaction, error)
	Insert(ctx context.Context, t Transaction) (int64, error)
	Update(ctx context.Context, t Transaction) error
	ListForProduct(ctx context.Context, productID int64) ([]Transaction, error)
	UpdateBalances(ctx context.Context, txs []Transaction) error
	FindAutoExit(ctx context.Context, productID, cropID int64, exitDate time.Time) (Transaction, error)
}

// Repository persists ledger transactions in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepository struct {
	tx pgx.Tx
}

const txColumns = `id, product_id, entry_date, entry_qty, exit_date, exit_qty, crop_id, balance, note, created_at, updated_at`

// WithTx executes the callback inside a repeatable-read transaction. The
// append-or-update and the balance replay for a product always share one
// transaction so balances are all-or-nothing.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("kardex repository not initialised")
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	wrapper := &txRepository{tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repository) Get(ctx context.Context, id int64) (Transaction, error) {
	if r == nil {
		return Transaction{}, errors.New("kardex repository not initialised")
	}
	row := r.pool.QueryRow(ctx, `SELECT `+txColumns+` FROM inventory_transactions WHERE id = $1`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Transaction{}, ErrTransactionNotFound
	}
	return t, err
}

func (r *Repository) ListForProduct(ctx context.Context, productID int64) ([]Transaction, error) {
	if r == nil {
		return nil, errors.New("kardex repository not initialised")
	}
	return listForProduct(ctx, r.pool, productID)
}

// LastBalance returns the balance of the product's latest transaction in
// canonical order, zero when the product has no history.
func (r *Repository) LastBalance(ctx context.Context, productID int64) (decimal.Decimal, error) {
	if r == nil {
		return decimal.Zero, errors.New("kardex repository not initialised")
	}
	var balance decimal.Decimal
	err := r.pool.QueryRow(ctx, `SELECT balance FROM inventory_transactions WHERE product_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1`, productID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

// ListProductIDs returns the distinct products holding ledger rows, used by
// the nightly integrity job.
func (r *Repository) ListProductIDs(ctx context.Context) ([]int64, error) {
	if r == nil {
		return nil, errors.New("kardex repository not initialised")
	}
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT product_id FROM inventory_transactions ORDER BY product_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *txRepository) Get(ctx context.Context, id int64) (Transaction, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+txColumns+` FROM inventory_transactions WHERE id = $1`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Transaction{}, ErrTransactionNotFound
	}
	return t, err
}

func (r *txRepository) Insert(ctx context.Context, t Transaction) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO inventory_transactions (product_id, entry_date, entry_qty, exit_date, exit_qty, crop_id, balance, note, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW()) RETURNING id`,
		t.ProductID, t.EntryDate, nullDecimal(t.EntryQty), t.ExitDate, nullDecimal(t.ExitQty), t.CropID, t.Balance, t.Note,
	).Scan(&id)
	return id, err
}

func (r *txRepository) Update(ctx context.Context, t Transaction) error {
	tag, err := r.tx.Exec(ctx, `UPDATE inventory_transactions SET product_id = $1, entry_date = $2, entry_qty = $3, exit_date = $4, exit_qty = $5, crop_id = $6, note = $7, updated_at = NOW() WHERE id = $8`,
		t.ProductID, t.EntryDate, nullDecimal(t.EntryQty), t.ExitDate, nullDecimal(t.ExitQty), t.CropID, t.Note, t.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

func (r *txRepository) ListForProduct(ctx context.Context, productID int64) ([]Transaction, error) {
	return listForProduct(ctx, r.tx, productID)
}

// UpdateBalances persists recomputed balances in a single batch.
func (r *txRepository) UpdateBalances(ctx context.Context, txs []Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, t := range txs {
		batch.Queue(`UPDATE inventory_transactions SET balance = $1, updated_at = NOW() WHERE id = $2`, t.Balance, t.ID)
	}
	results := r.tx.SendBatch(ctx, batch)
	defer results.Close()
	for range txs {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return results.Close()
}

// FindAutoExit locates the most recent adapter-created exit matching the
// product/crop/date triple. Legacy lookup used when a cost record predates
// the explicit ledger link.
func (r *txRepository) FindAutoExit(ctx context.Context, productID, cropID int64, exitDate time.Time) (Transaction, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+txColumns+` FROM inventory_transactions
WHERE product_id = $1 AND crop_id = $2 AND exit_date = $3 AND exit_qty IS NOT NULL AND note ILIKE $4
ORDER BY created_at DESC, id DESC LIMIT 1`,
		productID, cropID, exitDate, autoNotePrefix+"%")
	t, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Transaction{}, ErrTransactionNotFound
	}
	return t, err
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func listForProduct(ctx context.Context, q querier, productID int64) ([]Transaction, error) {
	rows, err := q.Query(ctx, `SELECT `+txColumns+` FROM inventory_transactions WHERE product_id = $1 ORDER BY created_at ASC, id ASC`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var txs []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func scanTransaction(row pgx.Row) (Transaction, error) {
	var (
		t        Transaction
		entryQty decimal.NullDecimal
		exitQty  decimal.NullDecimal
	)
	err := row.Scan(&t.ID, &t.ProductID, &t.EntryDate, &entryQty, &t.ExitDate, &exitQty, &t.CropID, &t.Balance, &t.Note, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return Transaction{}, err
	}
	if entryQty.Valid {
		t.EntryQty = &entryQty.Decimal
	}
	if exitQty.Valid {
		t.ExitQty = &exitQty.Decimal
	}
	return t, nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}
