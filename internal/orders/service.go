package orders

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/stockpilot/stockpilot/internal/activity"
	"github.com/stockpilot/stockpilot/internal/inventory"
)

// Service orchestrates the order lifecycle. Every transition runs as one
// transaction: locks first, then business reads, then stock effects through
// the ledger, then the status write and the activity row.
type Service struct {
	repo     Repository
	ledger   *inventory.Ledger
	recorder *activity.Recorder
}

// NewService builds Service.
func NewService(repo Repository, ledger *inventory.Ledger, recorder *activity.Recorder) *Service {
	return &Service{repo: repo, ledger: ledger, recorder: recorder}
}

// Create persists a pending order with its items. Unit prices are captured
// from the current product prices and frozen. The stock check here is
// advisory; the authoritative check happens at confirm time under row locks.
func (s *Service) Create(ctx context.Context, req CreateOrderRequest) (*MutationResponse, error) {
	number := req.OrderNumber
	if number == "" {
		number = generateOrderNumber()
	}

	var orderID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		required := make(map[int64]int64)
		products := make(map[int64]ProductRef)
		for _, line := range req.Items {
			if line.Quantity <= 0 {
				return inventory.ErrInvalidQuantity
			}
			if _, seen := products[line.ProductID]; !seen {
				ref, err := tx.GetProduct(ctx, line.ProductID)
				if err != nil {
					return err
				}
				products[line.ProductID] = ref
			}
			required[line.ProductID] += line.Quantity
		}
		for productID, qty := range required {
			if ref := products[productID]; ref.Stock < qty {
				return fmt.Errorf("%w: product %d has %d, requested %d", inventory.ErrInsufficientStock, productID, ref.Stock, qty)
			}
		}

		var total float64
		for _, line := range req.Items {
			total += float64(line.Quantity) * products[line.ProductID].Price
		}

		id, err := tx.InsertOrder(ctx, Order{OrderNumber: number, Status: StatusPending, TotalAmount: total})
		if err != nil {
			return err
		}
		orderID = id
		for _, line := range req.Items {
			item := OrderItem{
				OrderID:   orderID,
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				UnitPrice: products[line.ProductID].Price,
			}
			if _, err := tx.InsertItem(ctx, item); err != nil {
				return err
			}
		}
		return s.recorder.Record(ctx, tx, orderID, activity.TypeOrderCreated,
			fmt.Sprintf("Order %s created with %d item(s)", number, len(req.Items)))
	})
	if err != nil {
		return nil, err
	}

	order, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &MutationResponse{Message: fmt.Sprintf("Order %s created", number), Order: order}, nil
}

// Confirm transitions a pending order to confirmed, deducting stock for every
// item. Quantities for items sharing a product are summed before the check so
// a combined over-deduction cannot slip past two individually safe checks.
// Any failed check aborts the whole operation with no partial deduction.
func (s *Service) Confirm(ctx context.Context, id int64) (*MutationResponse, error) {
	var number string
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.GetOrderForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if order.Status != StatusPending {
			return fmt.Errorf("%w: cannot confirm %s order %s", ErrInvalidTransition, order.Status, order.OrderNumber)
		}
		number = order.OrderNumber

		items, err := tx.GetItems(ctx, id)
		if err != nil {
			return err
		}

		// Lock product rows in ascending id order and verify every
		// aggregated requirement before the first deduction.
		for _, req := range aggregateByProduct(items) {
			stock, err := tx.GetStockForUpdate(ctx, req.productID)
			if err != nil {
				return err
			}
			if stock < req.qty {
				return fmt.Errorf("%w: product %d has %d, order %s needs %d",
					inventory.ErrInsufficientStock, req.productID, stock, order.OrderNumber, req.qty)
			}
		}

		reason := fmt.Sprintf("Order %s confirmed", order.OrderNumber)
		for _, item := range items {
			if _, err := s.ledger.Deduct(ctx, tx, item.ProductID, item.Quantity, reason); err != nil {
				return err
			}
		}

		if err := tx.UpdateStatus(ctx, id, StatusConfirmed); err != nil {
			return err
		}
		return s.recorder.Record(ctx, tx, id, activity.TypeOrderConfirmed,
			fmt.Sprintf("Order %s confirmed, stock deducted for %d item(s)", order.OrderNumber, len(items)))
	})
	if err != nil {
		return nil, err
	}

	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &MutationResponse{Message: fmt.Sprintf("Order %s confirmed", number), Order: order}, nil
}

// Cancel transitions a pending or confirmed order to cancelled. Stock is
// restored only when the order was confirmed; a pending order never took
// stock out of inventory.
func (s *Service) Cancel(ctx context.Context, id int64) (*MutationResponse, error) {
	var number string
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.GetOrderForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if order.Status == StatusCancelled {
			return fmt.Errorf("%w: order %s is already cancelled", ErrInvalidTransition, order.OrderNumber)
		}
		number = order.OrderNumber

		if order.Status == StatusConfirmed {
			items, err := tx.GetItems(ctx, id)
			if err != nil {
				return err
			}
			reason := fmt.Sprintf("Order %s cancelled", order.OrderNumber)
			for _, item := range items {
				if _, err := s.ledger.Restore(ctx, tx, item.ProductID, item.Quantity, reason); err != nil {
					return err
				}
			}
		}

		if err := tx.UpdateStatus(ctx, id, StatusCancelled); err != nil {
			return err
		}
		return s.recorder.Record(ctx, tx, id, activity.TypeOrderCancelled,
			fmt.Sprintf("Order %s cancelled from %s", order.OrderNumber, order.Status))
	})
	if err != nil {
		return nil, err
	}

	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &MutationResponse{Message: fmt.Sprintf("Order %s cancelled", number), Order: order}, nil
}

// UpdateItem changes the quantity of one item on a confirmed order,
// reconciling the stock delta through the ledger. Quantity zero removes the
// item and restores its full reservation. The order total is recomputed from
// the surviving items. An order reduced to zero items stays confirmed with a
// zero total; cancellation remains an explicit caller decision.
func (s *Service) UpdateItem(ctx context.Context, orderID, itemID, newQty int64) (*MutationResponse, error) {
	if newQty < 0 {
		return nil, inventory.ErrInvalidQuantity
	}
	var message string
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status != StatusConfirmed {
			return fmt.Errorf("%w: items can only be edited on confirmed orders, order %s is %s",
				ErrInvalidTransition, order.OrderNumber, order.Status)
		}

		item, err := tx.GetItem(ctx, orderID, itemID)
		if err != nil {
			return err
		}
		reason := fmt.Sprintf("Order %s item updated", order.OrderNumber)

		switch {
		case newQty == 0:
			if _, err := s.ledger.Restore(ctx, tx, item.ProductID, item.Quantity, reason); err != nil {
				return err
			}
			if err := tx.DeleteItem(ctx, itemID); err != nil {
				return err
			}
			if err := s.recorder.Record(ctx, tx, orderID, activity.TypeItemRemoved,
				fmt.Sprintf("%s removed from order %s (quantity was %d)", item.ProductName, order.OrderNumber, item.Quantity)); err != nil {
				return err
			}
			message = fmt.Sprintf("Item removed from order %s", order.OrderNumber)
		case newQty > item.Quantity:
			if _, err := s.ledger.Deduct(ctx, tx, item.ProductID, newQty-item.Quantity, reason); err != nil {
				return err
			}
			if err := tx.UpdateItemQuantity(ctx, itemID, newQty); err != nil {
				return err
			}
			if err := s.recorder.Record(ctx, tx, orderID, activity.TypeItemUpdated,
				fmt.Sprintf("%s quantity changed from %d to %d on order %s", item.ProductName, item.Quantity, newQty, order.OrderNumber)); err != nil {
				return err
			}
			message = fmt.Sprintf("Item quantity updated on order %s", order.OrderNumber)
		case newQty < item.Quantity:
			if _, err := s.ledger.Restore(ctx, tx, item.ProductID, item.Quantity-newQty, reason); err != nil {
				return err
			}
			if err := tx.UpdateItemQuantity(ctx, itemID, newQty); err != nil {
				return err
			}
			if err := s.recorder.Record(ctx, tx, orderID, activity.TypeItemUpdated,
				fmt.Sprintf("%s quantity changed from %d to %d on order %s", item.ProductName, item.Quantity, newQty, order.OrderNumber)); err != nil {
				return err
			}
			message = fmt.Sprintf("Item quantity updated on order %s", order.OrderNumber)
		default:
			// Same quantity, nothing to reconcile.
			message = fmt.Sprintf("Item unchanged on order %s", order.OrderNumber)
			return nil
		}

		items, err := tx.GetItems(ctx, orderID)
		if err != nil {
			return err
		}
		return tx.UpdateTotal(ctx, orderID, Total(items))
	})
	if err != nil {
		return nil, err
	}

	order, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &MutationResponse{Message: message, Order: order}, nil
}

// Get returns the order aggregate.
func (s *Service) Get(ctx context.Context, id int64) (*Order, error) {
	return s.repo.Get(ctx, id)
}

// List returns all orders, newest first.
func (s *Service) List(ctx context.Context) ([]Order, error) {
	return s.repo.List(ctx)
}

type productRequirement struct {
	productID int64
	qty       int64
}

// aggregateByProduct sums item quantities per product and returns the pairs
// in ascending product id order so concurrent transactions take row locks in
// the same sequence.
func aggregateByProduct(items []OrderItem) []productRequirement {
	sums := make(map[int64]int64, len(items))
	for _, item := range items {
		sums[item.ProductID] += item.Quantity
	}
	result := make([]productRequirement, 0, len(sums))
	for productID, qty := range sums {
		result = append(result, productRequirement{productID: productID, qty: qty})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].productID < result[j].productID })
	return result
}

func generateOrderNumber() string {
	return "ORD-" + strings.ToUpper(uuid.NewString()[:8])
}
