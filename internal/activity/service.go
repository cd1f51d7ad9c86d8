package activity

import (
	"context"
)

// FeedRepositoryPort abstracts repository usage for the feed service.
type FeedRepositoryPort interface {
	ListOrderEvents(ctx context.Context, limit int) ([]FeedEntry, error)
	ListInventoryEvents(ctx context.Context, limit int) ([]FeedEntry, error)
	ListByOrder(ctx context.Context, orderID int64) ([]Activity, error)
}

// Service produces the unified activity feed.
type Service struct {
	repo FeedRepositoryPort
}

// NewService builds Service.
func NewService(repo FeedRepositoryPort) *Service {
	return &Service{repo: repo}
}

const defaultFeedLimit = 100

// Feed merges the order and inventory event streams into one
// descending-by-timestamp view. Each source is already sorted, so a single
// merge pass suffices.
func (s *Service) Feed(ctx context.Context, limit int) ([]FeedEntry, error) {
	if limit <= 0 {
		limit = defaultFeedLimit
	}
	orderEvents, err := s.repo.ListOrderEvents(ctx, limit)
	if err != nil {
		return nil, err
	}
	inventoryEvents, err := s.repo.ListInventoryEvents(ctx, limit)
	if err != nil {
		return nil, err
	}
	return mergeDesc(orderEvents, inventoryEvents, limit), nil
}

// History returns the event trail of a single order.
func (s *Service) History(ctx context.Context, orderID int64) ([]Activity, error) {
	return s.repo.ListByOrder(ctx, orderID)
}

// mergeDesc merges two streams sorted newest-first, keeping at most limit
// entries. Ties go to the order stream so a transition reads before the stock
// movement it caused.
func mergeDesc(a, b []FeedEntry, limit int) []FeedEntry {
	merged := make([]FeedEntry, 0, min(len(a)+len(b), limit))
	i, j := 0, 0
	for len(merged) < limit && (i < len(a) || j < len(b)) {
		switch {
		case i >= len(a):
			merged = append(merged, b[j])
			j++
		case j >= len(b):
			merged = append(merged, a[i])
			i++
		case a[i].Timestamp.Before(b[j].Timestamp):
			merged = append(merged, b[j])
			j++
		default:
			merged = append(merged, a[i])
			i++
		}
	}
	return merged
}
