package inventory

import (
	"context"
	"fmt"
)

// LedgerStore is the slice of an open transaction the ledger needs: an
// exclusive read of the product stock row plus the paired mutation and log
// write. Callers that orchestrate multi-product operations share one
// transaction across every ledger call so the whole batch commits or rolls
// back together.
type LedgerStore interface {
	GetStockForUpdate(ctx context.Context, productID int64) (int64, error)
	SetStock(ctx context.Context, productID, qty int64) error
	InsertLog(ctx context.Context, entry LogEntry) error
}

// Ledger owns the stock mutation discipline: every change is checked, applied
// and logged under the same row lock.
type Ledger struct{}

// NewLedger constructs a Ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Deduct subtracts qty from the product's stock under an exclusive row lock.
// The availability check and the mutation happen in the same lock scope, so
// no concurrent caller can act on stale stock between them. Returns the new
// stock value.
func (l *Ledger) Deduct(ctx context.Context, store LedgerStore, productID, qty int64, reason string) (int64, error) {
	if qty <= 0 {
		return 0, ErrInvalidQuantity
	}
	stock, err := store.GetStockForUpdate(ctx, productID)
	if err != nil {
		return 0, err
	}
	if stock < qty {
		return 0, fmt.Errorf("%w: product %d has %d, requested %d", ErrInsufficientStock, productID, stock, qty)
	}
	newStock := stock - qty
	if err := store.SetStock(ctx, productID, newStock); err != nil {
		return 0, err
	}
	if err := store.InsertLog(ctx, LogEntry{
		ProductID:      productID,
		ChangeType:     ChangeTypeDeduction,
		QuantityChange: qty,
		Reason:         reason,
	}); err != nil {
		return 0, err
	}
	return newStock, nil
}

// Restore adds qty back to the product's stock under the same lock
// discipline. Cannot fail on business grounds.
func (l *Ledger) Restore(ctx context.Context, store LedgerStore, productID, qty int64, reason string) (int64, error) {
	if qty <= 0 {
		return 0, ErrInvalidQuantity
	}
	stock, err := store.GetStockForUpdate(ctx, productID)
	if err != nil {
		return 0, err
	}
	newStock := stock + qty
	if err := store.SetStock(ctx, productID, newStock); err != nil {
		return 0, err
	}
	if err := store.InsertLog(ctx, LogEntry{
		ProductID:      productID,
		ChangeType:     ChangeTypeAddition,
		QuantityChange: qty,
		Reason:         reason,
	}); err != nil {
		return 0, err
	}
	return newStock, nil
}
