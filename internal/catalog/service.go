package catalog

import (
	"context"
	"errors"

	"github.com/stockpilot/stockpilot/internal/inventory"
)

// Service coordinates product master data operations. Every stock side
// effect routes through the inventory ledger inside the same transaction as
// the product mutation, so a failure anywhere rolls back the whole edit.
type Service struct {
	repo   Repository
	ledger *inventory.Ledger
}

// NewService builds Service.
func NewService(repo Repository, ledger *inventory.Ledger) *Service {
	return &Service{repo: repo, ledger: ledger}
}

// Ledger reasons for product lifecycle stock movements.
const (
	createStockReason = "Product created"
	manualStockReason = "Stock manually updated"
	deleteStockReason = "Product deleted"
)

// Create inserts the product and books its opening balance through the
// ledger, so the audit trail accounts for every unit from day one.
func (s *Service) Create(ctx context.Context, req CreateProductRequest) (Product, error) {
	var created Product
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		product, err := tx.Create(ctx, Product{
			Name:        req.Name,
			Description: req.Description,
			Price:       req.Price,
		})
		if err != nil {
			return err
		}
		if req.StockQuantity > 0 {
			if _, err := s.ledger.Restore(ctx, tx, product.ID, req.StockQuantity, createStockReason); err != nil {
				return err
			}
			product.StockQuantity = req.StockQuantity
		}
		created = product
		return nil
	})
	if err != nil {
		return Product{}, err
	}
	return created, nil
}

func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	if id <= 0 {
		return Product{}, errors.New("catalog: invalid product id")
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Product, error) {
	return s.repo.List(ctx)
}

// Update edits name, description and price, and reconciles a stock change
// through the ledger. One transaction, product row locked before any read:
// the delta is computed against the locked stock value and either everything
// commits or nothing does.
func (s *Service) Update(ctx context.Context, id int64, req UpdateProductRequest) (Product, error) {
	var updated Product
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if req.Name != nil {
			current.Name = *req.Name
		}
		if req.Description != nil {
			current.Description = *req.Description
		}
		if req.Price != nil {
			current.Price = *req.Price
		}
		if err := tx.Update(ctx, id, current); err != nil {
			return err
		}
		if req.StockQuantity != nil && *req.StockQuantity != current.StockQuantity {
			delta := *req.StockQuantity - current.StockQuantity
			if delta > 0 {
				_, err = s.ledger.Restore(ctx, tx, id, delta, manualStockReason)
			} else {
				_, err = s.ledger.Deduct(ctx, tx, id, -delta, manualStockReason)
			}
			if err != nil {
				return err
			}
			current.StockQuantity = *req.StockQuantity
		}
		updated = current
		return nil
	})
	if err != nil {
		return Product{}, err
	}
	return updated, nil
}

// Delete removes a product. Deletion is blocked while order items still
// reference it. Remaining stock is written off through the ledger first, so
// the surviving log rows account for where the units went.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return errors.New("catalog: invalid product id")
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.StockQuantity > 0 {
			if _, err := s.ledger.Deduct(ctx, tx, id, current.StockQuantity, deleteStockReason); err != nil {
				return err
			}
		}
		return tx.Delete(ctx, id)
	})
}

// LowStock lists products under the threshold, lowest stock first.
func (s *Service) LowStock(ctx context.Context, threshold int64) ([]Product, error) {
	return s.repo.LowStock(ctx, threshold)
}
