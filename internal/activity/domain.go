// Package activity owns the append-only order event trail and the unified
// activity feed merging order and inventory events.
package activity

import (
	"time"

	"github.com/stockpilot/stockpilot/internal/inventory"
)

// Activity is one append-only row of the order event trail.
type Activity struct {
	ID           int64     `json:"id"`
	OrderID      int64     `json:"order_id"`
	ActivityType string    `json:"activity_type"`
	Description  string    `json:"description"`
	CreatedAt    time.Time `json:"timestamp"`
}

// Activity types written by the order lifecycle and item editor.
const (
	TypeOrderCreated   = "Order Created"
	TypeOrderConfirmed = "Order Confirmed"
	TypeOrderCancelled = "Order Cancelled"
	TypeItemUpdated    = "Item Updated"
	TypeItemRemoved    = "Item Removed"
)

// Kind tags a feed entry with its origin.
type Kind string

const (
	// KindInventory marks entries sourced from the stock ledger.
	KindInventory Kind = "inventory"
	// KindOrder marks entries sourced from the order event trail.
	KindOrder Kind = "order"
)

// InventoryEvent carries the inventory-specific fields of a feed entry.
type InventoryEvent struct {
	ProductID      int64                `json:"product_id"`
	ProductName    string               `json:"product_name"`
	ChangeType     inventory.ChangeType `json:"change_type"`
	QuantityChange int64                `json:"quantity_change"`
	Reason         string               `json:"reason"`
}

// OrderEvent carries the order-specific fields of a feed entry.
type OrderEvent struct {
	OrderID      int64  `json:"order_id"`
	OrderNumber  string `json:"order_number"`
	ActivityType string `json:"activity_type"`
	Description  string `json:"description"`
}

// FeedEntry is a tagged variant: exactly one of Inventory or Order is set,
// matching Kind.
type FeedEntry struct {
	Kind      Kind            `json:"kind"`
	Timestamp time.Time       `json:"timestamp"`
	Inventory *InventoryEvent `json:"inventory,omitempty"`
	Order     *OrderEvent     `json:"order,omitempty"`
}
