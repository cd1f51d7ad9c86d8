package inventory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockpilot/stockpilot/internal/platform/db"
)

// Repository persists the stock ledger in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx executes the callback inside a repeatable-read transaction whose
// store satisfies LedgerStore.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, LedgerStore) error) error {
	if r == nil {
		return errors.New("inventory repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &TxStore{Tx: tx})
	})
}

// ListLogs returns ledger rows, newest first.
func (r *Repository) ListLogs(ctx context.Context, filter LogFilter) ([]LogEntry, error) {
	if r == nil {
		return nil, errors.New("inventory repository not initialised")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, `SELECT l.id, l.product_id, p.name, l.change_type, l.quantity_change, l.reason, l.created_at
FROM inventory_logs l
LEFT JOIN products p ON p.id = l.product_id
WHERE ($1 = 0 OR l.product_id = $1)
ORDER BY l.created_at DESC, l.id DESC
LIMIT $2`, filter.ProductID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := []LogEntry{}
	for rows.Next() {
		var entry LogEntry
		var name *string
		if err := rows.Scan(&entry.ID, &entry.ProductID, &name, &entry.ChangeType, &entry.QuantityChange, &entry.Reason, &entry.CreatedAt); err != nil {
			return nil, err
		}
		if name != nil {
			entry.ProductName = *name
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// TxStore adapts an open pgx transaction to LedgerStore. Exported so sibling
// packages running their own transaction can route stock effects through the
// same ledger discipline.
type TxStore struct {
	Tx pgx.Tx
}

func (s *TxStore) GetStockForUpdate(ctx context.Context, productID int64) (int64, error) {
	var stock int64
	err := s.Tx.QueryRow(ctx, `SELECT stock_quantity FROM products WHERE id = $1 FOR UPDATE`, productID).Scan(&stock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrProductNotFound
		}
		return 0, err
	}
	return stock, nil
}

func (s *TxStore) SetStock(ctx context.Context, productID, qty int64) error {
	_, err := s.Tx.Exec(ctx, `UPDATE products SET stock_quantity = $2 WHERE id = $1`, productID, qty)
	return err
}

func (s *TxStore) InsertLog(ctx context.Context, entry LogEntry) error {
	_, err := s.Tx.Exec(ctx, `INSERT INTO inventory_logs (product_id, change_type, quantity_change, reason, created_at)
VALUES ($1, $2, $3, $4, NOW())`, entry.ProductID, string(entry.ChangeType), entry.QuantityChange, entry.Reason)
	return err
}
