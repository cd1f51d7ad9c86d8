package orders

import (
	"errors"
	"time"
)

// Status enumerates order lifecycle states.
type Status string

const (
	// StatusPending is the initial state; stock is not yet reserved.
	StatusPending Status = "pending"
	// StatusConfirmed means stock has been deducted for every item.
	StatusConfirmed Status = "confirmed"
	// StatusCancelled is terminal; no transition leaves it.
	StatusCancelled Status = "cancelled"
)

// Order aggregates its items. Items are owned by the order and deleted with
// it; products are referenced by id only.
type Order struct {
	ID          int64       `json:"id"`
	OrderNumber string      `json:"order_number"`
	Status      Status      `json:"status"`
	TotalAmount float64     `json:"total_amount"`
	CreatedAt   time.Time   `json:"created_at"`
	Items       []OrderItem `json:"items"`
}

// OrderItem is one line of an order. UnitPrice is captured from the product
// at order creation and never changes afterwards.
type OrderItem struct {
	ID          int64   `json:"id"`
	OrderID     int64   `json:"order_id"`
	ProductID   int64   `json:"product_id"`
	ProductName string  `json:"product_name,omitempty"`
	Quantity    int64   `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

// Total recomputes the order total from the given item set.
func Total(items []OrderItem) float64 {
	var total float64
	for _, item := range items {
		total += float64(item.Quantity) * item.UnitPrice
	}
	return total
}

var (
	// ErrNotFound indicates the order does not exist.
	ErrNotFound = errors.New("orders: order not found")
	// ErrItemNotFound indicates the item does not belong to the order.
	ErrItemNotFound = errors.New("orders: order item not found")
	// ErrInvalidTransition indicates the operation is illegal for the
	// order's current status.
	ErrInvalidTransition = errors.New("orders: invalid status transition")
	// ErrDuplicateNumber indicates the order number is already taken.
	ErrDuplicateNumber = errors.New("orders: order number already exists")
	// ErrProductNotFound indicates an item references a missing product.
	ErrProductNotFound = errors.New("orders: product not found")
)
