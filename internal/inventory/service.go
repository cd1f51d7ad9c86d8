package inventory

import (
	"context"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, LedgerStore) error) error
	ListLogs(ctx context.Context, filter LogFilter) ([]LogEntry, error)
}

// Service coordinates standalone ledger operations that are not part of an
// order transition.
type Service struct {
	repo   RepositoryPort
	ledger *Ledger
}

// NewService builds Service.
func NewService(repo RepositoryPort, ledger *Ledger) *Service {
	return &Service{repo: repo, ledger: ledger}
}

// Adjust applies a signed stock correction in its own transaction. Positive
// delta restores, negative delta deducts; a deduction past zero fails with
// ErrInsufficientStock and nothing is written.
func (s *Service) Adjust(ctx context.Context, productID, delta int64, reason string) (int64, error) {
	if delta == 0 {
		return 0, ErrInvalidQuantity
	}
	var newStock int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, store LedgerStore) error {
		var err error
		if delta > 0 {
			newStock, err = s.ledger.Restore(ctx, store, productID, delta, reason)
		} else {
			newStock, err = s.ledger.Deduct(ctx, store, productID, -delta, reason)
		}
		return err
	})
	if err != nil {
		return 0, err
	}
	return newStock, nil
}

// Logs lists ledger rows for audit views.
func (s *Service) Logs(ctx context.Context, filter LogFilter) ([]LogEntry, error) {
	return s.repo.ListLogs(ctx, filter)
}
