package inventory

import (
	"errors"
	"time"
)

// ChangeType enumerates the two directions a stock mutation can take.
type ChangeType string

const (
	// ChangeTypeAddition records stock returning to inventory.
	ChangeTypeAddition ChangeType = "addition"
	// ChangeTypeDeduction records stock leaving inventory.
	ChangeTypeDeduction ChangeType = "deduction"
)

// LogEntry is one append-only row of the stock ledger. QuantityChange is
// always positive; ChangeType carries the sign.
type LogEntry struct {
	ID             int64      `json:"id"`
	ProductID      int64      `json:"product_id"`
	ProductName    string     `json:"product_name,omitempty"`
	ChangeType     ChangeType `json:"change_type"`
	QuantityChange int64      `json:"quantity_change"`
	Reason         string     `json:"reason"`
	CreatedAt      time.Time  `json:"created_at"`
}

// LogFilter narrows ledger listings.
type LogFilter struct {
	ProductID int64
	Limit     int
}

// ErrInsufficientStock triggered when a deduction exceeds available stock.
var ErrInsufficientStock = errors.New("inventory: insufficient stock")

// ErrInvalidQuantity indicates a non-positive quantity.
var ErrInvalidQuantity = errors.New("inventory: quantity must be positive")

// ErrProductNotFound indicates the product row does not exist.
var ErrProductNotFound = errors.New("inventory: product not found")
