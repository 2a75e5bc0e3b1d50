package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/therma-erp/therma-erp/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps callback in repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const itemColumns = `i.id, i.product_id, p.name, i.quantity, i.min_stock, COALESCE(i.price_per_unit,0), COALESCE(i.location,''), i.last_updated`

func scanItem(row pgx.Row) (InventoryItem, error) {
	var item InventoryItem
	err := row.Scan(&item.ID, &item.ProductID, &item.ProductName, &item.Quantity, &item.MinStock, &item.PricePerUnit, &item.Location, &item.LastUpdated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return InventoryItem{}, ErrNotFound
		}
		return InventoryItem{}, err
	}
	return item, nil
}

// ListItems returns stock records joined to their product names.
func (r *Repository) ListItems(ctx context.Context) ([]InventoryItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+itemColumns+`
		FROM inventory_items i JOIN products p ON p.id = i.product_id
		ORDER BY p.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []InventoryItem
	for rows.Next() {
		var item InventoryItem
		if err := rows.Scan(&item.ID, &item.ProductID, &item.ProductName, &item.Quantity, &item.MinStock, &item.PricePerUnit, &item.Location, &item.LastUpdated); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// GetItem fetches a stock record by ID.
func (r *Repository) GetItem(ctx context.Context, id int64) (InventoryItem, error) {
	return scanItem(r.pool.QueryRow(ctx, `
		SELECT `+itemColumns+`
		FROM inventory_items i JOIN products p ON p.id = i.product_id
		WHERE i.id=$1`, id))
}

// ListTransactions returns the most recent ledger rows.
func (r *Repository) ListTransactions(ctx context.Context, limit int) ([]InventoryTransaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, product_id, transaction_type, quantity, COALESCE(reason,''), created_at
		FROM inventory_transactions ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var transactions []InventoryTransaction
	for rows.Next() {
		var t InventoryTransaction
		if err := rows.Scan(&t.ID, &t.ProductID, &t.Type, &t.Quantity, &t.Reason, &t.CreatedAt); err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return transactions, nil
}

func (tx *txRepo) CreateItem(ctx context.Context, item InventoryItem) (int64, error) {
	var id int64
	err := tx.tx.QueryRow(ctx, `
		INSERT INTO inventory_items (product_id, quantity, min_stock, price_per_unit, location, last_updated)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id`,
		item.ProductID, item.Quantity, item.MinStock, item.PricePerUnit, item.Location, item.LastUpdated).
		Scan(&id)
	return id, err
}

// GetItemForUpdate locks the stock row for the movement.
func (tx *txRepo) GetItemForUpdate(ctx context.Context, id int64) (InventoryItem, error) {
	return scanItem(tx.tx.QueryRow(ctx, `
		SELECT `+itemColumns+`
		FROM inventory_items i JOIN products p ON p.id = i.product_id
		WHERE i.id=$1
		FOR UPDATE OF i`, id))
}

func (tx *txRepo) SetItemQuantity(ctx context.Context, id int64, quantity int64, at time.Time) error {
	_, err := tx.tx.Exec(ctx, `UPDATE inventory_items SET quantity=$2, last_updated=$3 WHERE id=$1`, id, quantity, at)
	return err
}

// InsertTransaction appends one ledger row. Rows are never updated or
// deleted.
func (tx *txRepo) InsertTransaction(ctx context.Context, t InventoryTransaction) (int64, error) {
	var id int64
	err := tx.tx.QueryRow(ctx, `
		INSERT INTO inventory_transactions (product_id, transaction_type, quantity, reason)
		VALUES ($1,$2,$3,$4)
		RETURNING id`,
		t.ProductID, t.Type, t.Quantity, t.Reason).
		Scan(&id)
	return id, err
}
