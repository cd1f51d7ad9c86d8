package dashboard

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockpilot/stockpilot/internal/catalog"
)

// Repository runs the aggregate queries against PostgreSQL.
type Repository struct {
	pool     *pgxpool.Pool
	products catalog.Repository
}

// NewRepository constructs Repository. The catalog repository serves the
// low-stock listing so both views share one query.
func NewRepository(pool *pgxpool.Pool, products catalog.Repository) *Repository {
	return &Repository{pool: pool, products: products}
}

func (r *Repository) CountOrders(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders`).Scan(&count)
	return count, err
}

// SumConfirmedRevenue derives revenue from currently-confirmed orders only.
// An order cancelled after confirmation drops out on the next recomputation.
func (r *Repository) SumConfirmedRevenue(ctx context.Context) (float64, error) {
	var revenue float64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(total_amount), 0) FROM orders WHERE status = 'confirmed'`).Scan(&revenue)
	return revenue, err
}

func (r *Repository) LowStock(ctx context.Context, threshold int64) ([]catalog.Product, error) {
	return r.products.LowStock(ctx, threshold)
}
