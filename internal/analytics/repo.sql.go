package analytics

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads aggregation inputs straight from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TransactionTotals sums the full ledger by direction.
func (r *Repository) TransactionTotals(ctx context.Context) (float64, float64, error) {
	var income, expense float64
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount) FILTER (WHERE transaction_type='income'), 0),
		       COALESCE(SUM(amount) FILTER (WHERE transaction_type='expense'), 0)
		FROM financial_transactions`).
		Scan(&income, &expense)
	return income, expense, err
}

// MonthlyTransactionTotals sums ledger entries created in the given month.
func (r *Repository) MonthlyTransactionTotals(ctx context.Context, year int, month time.Month) (float64, float64, error) {
	var income, expense float64
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount) FILTER (WHERE transaction_type='income'), 0),
		       COALESCE(SUM(amount) FILTER (WHERE transaction_type='expense'), 0)
		FROM financial_transactions
		WHERE EXTRACT(YEAR FROM created_at) = $1 AND EXTRACT(MONTH FROM created_at) = $2`,
		year, int(month)).
		Scan(&income, &expense)
	return income, expense, err
}

func (r *Repository) countsByStatus(ctx context.Context, query string) (map[string]int64, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[string]int64)
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// OrderCountsByStatus groups orders by status.
func (r *Repository) OrderCountsByStatus(ctx context.Context) (map[string]int64, error) {
	return r.countsByStatus(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status`)
}

// TaskCountsByStatus groups production tasks by status.
func (r *Repository) TaskCountsByStatus(ctx context.Context) (map[string]int64, error) {
	return r.countsByStatus(ctx, `SELECT status, COUNT(*) FROM production_tasks GROUP BY status`)
}

// RequestCountsByStatus groups resource requests by status.
func (r *Repository) RequestCountsByStatus(ctx context.Context) (map[string]int64, error) {
	return r.countsByStatus(ctx, `SELECT status, COUNT(*) FROM resource_requests GROUP BY status`)
}

// StockRows reads the inventory columns the health overview needs.
func (r *Repository) StockRows(ctx context.Context) ([]StockRow, error) {
	rows, err := r.pool.Query(ctx, `SELECT quantity, min_stock, COALESCE(price_per_unit,0) FROM inventory_items`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var stock []StockRow
	for rows.Next() {
		var row StockRow
		if err := rows.Scan(&row.Quantity, &row.MinStock, &row.PricePerUnit); err != nil {
			return nil, err
		}
		stock = append(stock, row)
	}
	return stock, rows.Err()
}
