// Package catalog owns product master data. Stock corrections route through
// the inventory ledger so manual edits stay on the audit trail.
package catalog

import (
	"errors"
	"time"
)

// Product is a sellable item with finite stock.
type Product struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Price         float64   `json:"price"`
	StockQuantity int64     `json:"stock_quantity"`
	CreatedAt     time.Time `json:"created_at"`
}

var (
	// ErrNotFound indicates the product does not exist.
	ErrNotFound = errors.New("catalog: product not found")
	// ErrInUse indicates order items still reference the product.
	ErrInUse = errors.New("catalog: product is referenced by order items")
)
