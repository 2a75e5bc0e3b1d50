package orders

import (
	"context"
	"errors"

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

const orderColumns = `id, COALESCE(order_number,''), customer_name, COALESCE(customer_phone,''), COALESCE(customer_email,''), total_amount, status, order_date, delivery_date, COALESCE(notes,''), user_id`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.OrderNumber, &o.CustomerName, &o.CustomerPhone, &o.CustomerEmail, &o.TotalAmount, &o.Status, &o.OrderDate, &o.DeliveryDate, &o.Notes, &o.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, err
	}
	return o, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func loadOrderLines(ctx context.Context, q querier, order *Order) error {
	itemRows, err := q.Query(ctx, `
		SELECT id, order_id, product_id, COALESCE(quantity,0), COALESCE(unit_price,0), COALESCE(total_price,0)
		FROM order_items WHERE order_id=$1 ORDER BY id`, order.ID)
	if err != nil {
		return err
	}
	defer itemRows.Close()
	for itemRows.Next() {
		var item OrderItem
		if err := itemRows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.UnitPrice, &item.TotalPrice); err != nil {
			return err
		}
		order.Items = append(order.Items, item)
	}
	if err := itemRows.Err(); err != nil {
		return err
	}

	customRows, err := q.Query(ctx, `
		SELECT id, order_id, product_name, COALESCE(specifications,''), quantity, unit_price, total_price
		FROM custom_orders WHERE order_id=$1 ORDER BY id`, order.ID)
	if err != nil {
		return err
	}
	defer customRows.Close()
	for customRows.Next() {
		var custom CustomOrder
		if err := customRows.Scan(&custom.ID, &custom.OrderID, &custom.ProductName, &custom.Specifications, &custom.Quantity, &custom.UnitPrice, &custom.TotalPrice); err != nil {
			return err
		}
		order.CustomItems = append(order.CustomItems, custom)
	}
	return customRows.Err()
}

// ListOrders returns orders newest first, lines included.
func (r *Repository) ListOrders(ctx context.Context) ([]Order, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY order_date DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var orders []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.OrderNumber, &o.CustomerName, &o.CustomerPhone, &o.CustomerEmail, &o.TotalAmount, &o.Status, &o.OrderDate, &o.DeliveryDate, &o.Notes, &o.UserID); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range orders {
		if err := loadOrderLines(ctx, r.pool, &orders[i]); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

// GetOrder fetches an order with its lines.
func (r *Repository) GetOrder(ctx context.Context, id int64) (Order, error) {
	order, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id))
	if err != nil {
		return Order{}, err
	}
	if err := loadOrderLines(ctx, r.pool, &order); err != nil {
		return Order{}, err
	}
	return order, nil
}

func (tx *txRepo) CreateOrder(ctx context.Context, o Order) (int64, error) {
	var id int64
	err := tx.tx.QueryRow(ctx, `
		INSERT INTO orders (order_number, customer_name, customer_phone, customer_email, total_amount, status, order_date, delivery_date, notes, user_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING id`,
		o.OrderNumber, o.CustomerName, o.CustomerPhone, o.CustomerEmail, o.TotalAmount, o.Status, o.OrderDate, o.DeliveryDate, o.Notes, o.UserID).
		Scan(&id)
	return id, err
}

func (tx *txRepo) CreateOrderItem(ctx context.Context, item OrderItem) (int64, error) {
	var id int64
	err := tx.tx.QueryRow(ctx, `
		INSERT INTO order_items (order_id, product_id, quantity, unit_price, total_price)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id`,
		item.OrderID, item.ProductID, item.Quantity, item.UnitPrice, item.TotalPrice).
		Scan(&id)
	return id, err
}

func (tx *txRepo) CreateCustomOrder(ctx context.Context, custom CustomOrder) (int64, error) {
	var id int64
	err := tx.tx.QueryRow(ctx, `
		INSERT INTO custom_orders (order_id, product_name, specifications, quantity, unit_price, total_price)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id`,
		custom.OrderID, custom.ProductName, custom.Specifications, custom.Quantity, custom.UnitPrice, custom.TotalPrice).
		Scan(&id)
	return id, err
}

// GetOrderForUpdate locks the order row and loads its lines for the
// transition check.
func (tx *txRepo) GetOrderForUpdate(ctx context.Context, id int64) (Order, error) {
	order, err := scanOrder(tx.tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		return Order{}, err
	}
	if err := loadOrderLines(ctx, tx.tx, &order); err != nil {
		return Order{}, err
	}
	return order, nil
}

func (tx *txRepo) SetOrderStatus(ctx context.Context, id int64, status OrderStatus) error {
	_, err := tx.tx.Exec(ctx, `UPDATE orders SET status=$2 WHERE id=$1`, id, status)
	return err
}

// DeleteOrder removes the order and its dependent lines.
func (tx *txRepo) DeleteOrder(ctx context.Context, id int64) error {
	if _, err := tx.tx.Exec(ctx, `DELETE FROM order_items WHERE order_id=$1`, id); err != nil {
		return err
	}
	if _, err := tx.tx.Exec(ctx, `DELETE FROM custom_orders WHERE order_id=$1`, id); err != nil {
		return err
	}
	_, err := tx.tx.Exec(ctx, `DELETE FROM orders WHERE id=$1`, id)
	return err
}
