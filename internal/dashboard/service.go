// Package dashboard assembles on-demand statistics over orders and stock.
// Figures are always recomputed from the source tables, never accumulated in
// running counters, so concurrent confirmations can never leave them skewed.
package dashboard

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/stockpilot/stockpilot/internal/catalog"
)

// Stats is the dashboard payload.
type Stats struct {
	TotalOrders      int64             `json:"total_orders"`
	TotalRevenue     float64           `json:"total_revenue"`
	LowStockProducts []catalog.Product `json:"low_stock_products"`
}

// RepositoryPort abstracts the aggregate queries.
type RepositoryPort interface {
	CountOrders(ctx context.Context) (int64, error)
	SumConfirmedRevenue(ctx context.Context) (float64, error)
	LowStock(ctx context.Context, threshold int64) ([]catalog.Product, error)
}

// Service computes dashboard statistics.
type Service struct {
	repo      RepositoryPort
	cache     *Cache
	threshold int64
	group     singleflight.Group
}

const cacheKey = "dashboard:stats"

// DefaultLowStockThreshold applies when configuration supplies none.
const DefaultLowStockThreshold = 10

// NewService builds Service. threshold <= 0 falls back to the default.
func NewService(repo RepositoryPort, cache *Cache, threshold int64) *Service {
	if threshold <= 0 {
		threshold = DefaultLowStockThreshold
	}
	return &Service{repo: repo, cache: cache, threshold: threshold}
}

// Stats returns the current figures. Concurrent callers collapse onto one
// computation; results are cached with a short TTL.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	result, err, _ := s.group.Do(cacheKey, func() (any, error) {
		var stats Stats
		err := s.cache.FetchJSON(ctx, cacheKey, &stats, func(ctx context.Context) (any, error) {
			return s.compute(ctx)
		})
		return stats, err
	})
	if err != nil {
		return Stats{}, err
	}
	return result.(Stats), nil
}

func (s *Service) compute(ctx context.Context) (Stats, error) {
	var stats Stats
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		count, err := s.repo.CountOrders(ctx)
		stats.TotalOrders = count
		return err
	})
	g.Go(func() error {
		revenue, err := s.repo.SumConfirmedRevenue(ctx)
		stats.TotalRevenue = revenue
		return err
	})
	g.Go(func() error {
		products, err := s.repo.LowStock(ctx, s.threshold)
		stats.LowStockProducts = products
		return err
	})
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}
	if stats.LowStockProducts == nil {
		stats.LowStockProducts = []catalog.Product{}
	}
	return stats, nil
}
