package orders

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockpilot/stockpilot/internal/activity"
	"github.com/stockpilot/stockpilot/internal/inventory"
	"github.com/stockpilot/stockpilot/internal/platform/db"
)

// ProductRef is the read-only view of a product the order flow needs.
type ProductRef struct {
	ID    int64
	Name  string
	Price float64
	Stock int64
}

// TxRepository exposes the transactional operations used by the service. It
// embeds the ledger and activity stores so stock effects and audit rows share
// the order transaction.
type TxRepository interface {
	inventory.LedgerStore
	activity.Store
	GetOrderForUpdate(ctx context.Context, id int64) (*Order, error)
	GetItems(ctx context.Context, orderID int64) ([]OrderItem, error)
	GetItem(ctx context.Context, orderID, itemID int64) (*OrderItem, error)
	GetProduct(ctx context.Context, productID int64) (ProductRef, error)
	InsertOrder(ctx context.Context, order Order) (int64, error)
	InsertItem(ctx context.Context, item OrderItem) (int64, error)
	UpdateItemQuantity(ctx context.Context, itemID, qty int64) error
	DeleteItem(ctx context.Context, itemID int64) error
	UpdateStatus(ctx context.Context, orderID int64, status Status) error
	UpdateTotal(ctx context.Context, orderID int64, total float64) error
}

// Repository persists orders in PostgreSQL.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (*Order, error)
	List(ctx context.Context) ([]Order, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		wrapper := &txRepository{
			tx:      tx,
			TxStore: &inventory.TxStore{Tx: tx},
			actTx:   &activity.TxStore{Tx: tx},
		}
		return fn(ctx, wrapper)
	})
}

func (r *repository) Get(ctx context.Context, id int64) (*Order, error) {
	var order Order
	err := r.pool.QueryRow(ctx, `SELECT id, order_number, status, total_amount, created_at
FROM orders WHERE id = $1`, id).
		Scan(&order.ID, &order.OrderNumber, &order.Status, &order.TotalAmount, &order.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	items, err := queryItems(ctx, r.pool, id)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return &order, nil
}

func (r *repository) List(ctx context.Context) ([]Order, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, order_number, status, total_amount, created_at
FROM orders ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := []Order{}
	for rows.Next() {
		var order Order
		if err := rows.Scan(&order.ID, &order.OrderNumber, &order.Status, &order.TotalAmount, &order.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range result {
		items, err := queryItems(ctx, r.pool, result[i].ID)
		if err != nil {
			return nil, err
		}
		result[i].Items = items
	}
	return result, nil
}

type rowQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryItems(ctx context.Context, q rowQuerier, orderID int64) ([]OrderItem, error) {
	rows, err := q.Query(ctx, `SELECT i.id, i.order_id, i.product_id, COALESCE(p.name, ''), i.quantity, i.unit_price
FROM order_items i
LEFT JOIN products p ON p.id = i.product_id
WHERE i.order_id = $1
ORDER BY i.id ASC`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []OrderItem{}
	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

type txRepository struct {
	tx pgx.Tx
	*inventory.TxStore
	actTx *activity.TxStore
}

func (r *txRepository) InsertActivity(ctx context.Context, act activity.Activity) error {
	return r.actTx.InsertActivity(ctx, act)
}

func (r *txRepository) GetOrderForUpdate(ctx context.Context, id int64) (*Order, error) {
	var order Order
	err := r.tx.QueryRow(ctx, `SELECT id, order_number, status, total_amount, created_at
FROM orders WHERE id = $1 FOR UPDATE`, id).
		Scan(&order.ID, &order.OrderNumber, &order.Status, &order.TotalAmount, &order.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (r *txRepository) GetItems(ctx context.Context, orderID int64) ([]OrderItem, error) {
	return queryItems(ctx, r.tx, orderID)
}

func (r *txRepository) GetItem(ctx context.Context, orderID, itemID int64) (*OrderItem, error) {
	var item OrderItem
	err := r.tx.QueryRow(ctx, `SELECT i.id, i.order_id, i.product_id, COALESCE(p.name, ''), i.quantity, i.unit_price
FROM order_items i
LEFT JOIN products p ON p.id = i.product_id
WHERE i.id = $1 AND i.order_id = $2`, itemID, orderID).
		Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName, &item.Quantity, &item.UnitPrice)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (r *txRepository) GetProduct(ctx context.Context, productID int64) (ProductRef, error) {
	var ref ProductRef
	err := r.tx.QueryRow(ctx, `SELECT id, name, price, stock_quantity FROM products WHERE id = $1`, productID).
		Scan(&ref.ID, &ref.Name, &ref.Price, &ref.Stock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProductRef{}, ErrProductNotFound
		}
		return ProductRef{}, err
	}
	return ref, nil
}

func (r *txRepository) InsertOrder(ctx context.Context, order Order) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO orders (order_number, status, total_amount, created_at)
VALUES ($1, $2, $3, NOW()) RETURNING id`, order.OrderNumber, string(order.Status), order.TotalAmount).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrDuplicateNumber
		}
		return 0, err
	}
	return id, nil
}

func (r *txRepository) InsertItem(ctx context.Context, item OrderItem) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO order_items (order_id, product_id, quantity, unit_price)
VALUES ($1, $2, $3, $4) RETURNING id`, item.OrderID, item.ProductID, item.Quantity, item.UnitPrice).Scan(&id)
	return id, err
}

func (r *txRepository) UpdateItemQuantity(ctx context.Context, itemID, qty int64) error {
	_, err := r.tx.Exec(ctx, `UPDATE order_items SET quantity = $2 WHERE id = $1`, itemID, qty)
	return err
}

func (r *txRepository) DeleteItem(ctx context.Context, itemID int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM order_items WHERE id = $1`, itemID)
	return err
}

func (r *txRepository) UpdateStatus(ctx context.Context, orderID int64, status Status) error {
	_, err := r.tx.Exec(ctx, `UPDATE orders SET status = $2 WHERE id = $1`, orderID, string(status))
	return err
}

func (r *txRepository) UpdateTotal(ctx context.Context, orderID int64, total float64) error {
	_, err := r.tx.Exec(ctx, `UPDATE orders SET total_amount = $2 WHERE id = $1`, orderID, total)
	return err
}
