package activity

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockpilot/stockpilot/internal/inventory"
)

// Repository reads the two event sources backing the unified feed.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListOrderEvents returns order events newest first, tagged for the feed.
func (r *Repository) ListOrderEvents(ctx context.Context, limit int) ([]FeedEntry, error) {
	if r == nil {
		return nil, errors.New("activity repository not initialised")
	}
	rows, err := r.pool.Query(ctx, `SELECT a.order_id, o.order_number, a.activity_type, a.description, a.created_at
FROM order_activities a
JOIN orders o ON o.id = a.order_id
ORDER BY a.created_at DESC, a.id DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := []FeedEntry{}
	for rows.Next() {
		evt := OrderEvent{}
		entry := FeedEntry{Kind: KindOrder}
		if err := rows.Scan(&evt.OrderID, &evt.OrderNumber, &evt.ActivityType, &evt.Description, &entry.Timestamp); err != nil {
			return nil, err
		}
		entry.Order = &evt
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// ListInventoryEvents returns ledger events newest first, tagged for the feed.
func (r *Repository) ListInventoryEvents(ctx context.Context, limit int) ([]FeedEntry, error) {
	if r == nil {
		return nil, errors.New("activity repository not initialised")
	}
	rows, err := r.pool.Query(ctx, `SELECT l.product_id, COALESCE(p.name, ''), l.change_type, l.quantity_change, l.reason, l.created_at
FROM inventory_logs l
LEFT JOIN products p ON p.id = l.product_id
ORDER BY l.created_at DESC, l.id DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := []FeedEntry{}
	for rows.Next() {
		evt := InventoryEvent{}
		entry := FeedEntry{Kind: KindInventory}
		var changeType string
		if err := rows.Scan(&evt.ProductID, &evt.ProductName, &changeType, &evt.QuantityChange, &evt.Reason, &entry.Timestamp); err != nil {
			return nil, err
		}
		evt.ChangeType = inventory.ChangeType(changeType)
		entry.Inventory = &evt
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// ListByOrder returns the event trail of one order, newest first.
func (r *Repository) ListByOrder(ctx context.Context, orderID int64) ([]Activity, error) {
	if r == nil {
		return nil, errors.New("activity repository not initialised")
	}
	rows, err := r.pool.Query(ctx, `SELECT id, order_id, activity_type, description, created_at
FROM order_activities
WHERE order_id = $1
ORDER BY created_at DESC, id DESC`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	acts := []Activity{}
	for rows.Next() {
		var act Activity
		if err := rows.Scan(&act.ID, &act.OrderID, &act.ActivityType, &act.Description, &act.CreatedAt); err != nil {
			return nil, err
		}
		acts = append(acts, act)
	}
	return acts, rows.Err()
}

// TxStore adapts an open pgx transaction to Store.
type TxStore struct {
	Tx pgx.Tx
}

func (s *TxStore) InsertActivity(ctx context.Context, act Activity) error {
	_, err := s.Tx.Exec(ctx, `INSERT INTO order_activities (order_id, activity_type, description, created_at)
VALUES ($1, $2, $3, NOW())`, act.OrderID, act.ActivityType, act.Description)
	return err
}
