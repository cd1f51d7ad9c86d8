package orders

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stockpilot/stockpilot/internal/activity"
	"github.com/stockpilot/stockpilot/internal/inventory"
)

type memoryRepo struct {
	products   map[int64]ProductRef
	orders     map[int64]Order
	items      map[int64]OrderItem
	logs       []inventory.LogEntry
	activities []activity.Activity
	numbers    map[string]bool

	nextOrderID int64
	nextItemID  int64
	nextLogID   int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		products: make(map[int64]ProductRef),
		orders:   make(map[int64]Order),
		items:    make(map[int64]OrderItem),
		numbers:  make(map[string]bool),
	}
}

func (r *memoryRepo) addProduct(id int64, name string, price float64, stock int64) {
	r.products[id] = ProductRef{ID: id, Name: name, Price: price, Stock: stock}
}

func (r *memoryRepo) setStock(id, stock int64) {
	ref := r.products[id]
	ref.Stock = stock
	r.products[id] = ref
}

// WithTx snapshots all state up front and restores it when fn fails, so a
// failed transition leaves no partial effect just like a rolled-back
// transaction would.
func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	products := make(map[int64]ProductRef, len(r.products))
	for k, v := range r.products {
		products[k] = v
	}
	orders := make(map[int64]Order, len(r.orders))
	for k, v := range r.orders {
		orders[k] = v
	}
	items := make(map[int64]OrderItem, len(r.items))
	for k, v := range r.items {
		items[k] = v
	}
	numbers := make(map[string]bool, len(r.numbers))
	for k := range r.numbers {
		numbers[k] = true
	}
	loggedRows, activityRows := len(r.logs), len(r.activities)

	if err := fn(ctx, (*memoryTx)(r)); err != nil {
		r.products, r.orders, r.items, r.numbers = products, orders, items, numbers
		r.logs = r.logs[:loggedRows]
		r.activities = r.activities[:activityRows]
		return err
	}
	return nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (*Order, error) {
	order, ok := r.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	order.Items = r.orderItems(id)
	return &order, nil
}

func (r *memoryRepo) List(ctx context.Context) ([]Order, error) {
	result := []Order{}
	for id := range r.orders {
		order, _ := r.Get(ctx, id)
		result = append(result, *order)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, nil
}

func (r *memoryRepo) orderItems(orderID int64) []OrderItem {
	items := []OrderItem{}
	for _, item := range r.items {
		if item.OrderID == orderID {
			item.ProductName = r.products[item.ProductID].Name
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items
}

type memoryTx memoryRepo

func (tx *memoryTx) GetStockForUpdate(ctx context.Context, productID int64) (int64, error) {
	ref, ok := tx.products[productID]
	if !ok {
		return 0, inventory.ErrProductNotFound
	}
	return ref.Stock, nil
}

func (tx *memoryTx) SetStock(ctx context.Context, productID, qty int64) error {
	ref := tx.products[productID]
	ref.Stock = qty
	tx.products[productID] = ref
	return nil
}

func (tx *memoryTx) InsertLog(ctx context.Context, entry inventory.LogEntry) error {
	tx.nextLogID++
	entry.ID = tx.nextLogID
	entry.CreatedAt = time.Now()
	tx.logs = append(tx.logs, entry)
	return nil
}

func (tx *memoryTx) InsertActivity(ctx context.Context, act activity.Activity) error {
	act.ID = int64(len(tx.activities) + 1)
	act.CreatedAt = time.Now()
	tx.activities = append(tx.activities, act)
	return nil
}

func (tx *memoryTx) GetOrderForUpdate(ctx context.Context, id int64) (*Order, error) {
	order, ok := tx.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &order, nil
}

func (tx *memoryTx) GetItems(ctx context.Context, orderID int64) ([]OrderItem, error) {
	return (*memoryRepo)(tx).orderItems(orderID), nil
}

func (tx *memoryTx) GetItem(ctx context.Context, orderID, itemID int64) (*OrderItem, error) {
	item, ok := tx.items[itemID]
	if !ok || item.OrderID != orderID {
		return nil, ErrItemNotFound
	}
	item.ProductName = tx.products[item.ProductID].Name
	return &item, nil
}

func (tx *memoryTx) GetProduct(ctx context.Context, productID int64) (ProductRef, error) {
	ref, ok := tx.products[productID]
	if !ok {
		return ProductRef{}, ErrProductNotFound
	}
	return ref, nil
}

func (tx *memoryTx) InsertOrder(ctx context.Context, order Order) (int64, error) {
	if tx.numbers[order.OrderNumber] {
		return 0, ErrDuplicateNumber
	}
	tx.nextOrderID++
	order.ID = tx.nextOrderID
	order.CreatedAt = time.Now()
	tx.orders[order.ID] = order
	tx.numbers[order.OrderNumber] = true
	return order.ID, nil
}

func (tx *memoryTx) InsertItem(ctx context.Context, item OrderItem) (int64, error) {
	tx.nextItemID++
	item.ID = tx.nextItemID
	tx.items[item.ID] = item
	return item.ID, nil
}

func (tx *memoryTx) UpdateItemQuantity(ctx context.Context, itemID, qty int64) error {
	item := tx.items[itemID]
	item.Quantity = qty
	tx.items[itemID] = item
	return nil
}

func (tx *memoryTx) DeleteItem(ctx context.Context, itemID int64) error {
	delete(tx.items, itemID)
	return nil
}

func (tx *memoryTx) UpdateStatus(ctx context.Context, orderID int64, status Status) error {
	order := tx.orders[orderID]
	order.Status = status
	tx.orders[orderID] = order
	return nil
}

func (tx *memoryTx) UpdateTotal(ctx context.Context, orderID int64, total float64) error {
	order := tx.orders[orderID]
	order.TotalAmount = total
	tx.orders[orderID] = order
	return nil
}

func newTestService(repo *memoryRepo) *Service {
	return NewService(repo, inventory.NewLedger(), activity.NewRecorder())
}

func activityTypes(repo *memoryRepo) []string {
	types := make([]string, 0, len(repo.activities))
	for _, act := range repo.activities {
		types = append(types, act.ActivityType)
	}
	return types
}

func TestCreatePendingOrder(t *testing.T) {
	repo := newMemoryRepo()
	repo.addProduct(1, "Widget", 5.00, 10)
	svc := newTestService(repo)

	resp, err := svc.Create(context.Background(), CreateOrderRequest{
		OrderNumber: "ORD-TEST1",
		Items:       []CreateOrderItemRequest{{ProductID: 1, Quantity: 3}},
	})
	require.NoError(t, err)
	require.Equal(t, StatusPending, resp.Order.Status)
	require.Equal(t, 15.00, resp.Order.TotalAmount)
	require.Len(t, resp.Order.Items, 1)
	require.Equal(t, 5.00, resp.Order.Items[0].UnitPrice)

	// Creation reserves nothing; stock moves only at confirm.
	require.Equal(t, int64(10), repo.products[1].Stock)
	require.Empty(t, repo.logs)
	require.Equal(t, []string{activity.TypeOrderCreated}, activityTypes(repo))
}

func TestCreateGeneratesOrderNumber(t *testing.T) {
	repo := newMemoryRepo()
	repo.addProduct(1, "Widget", 5.00, 10)
	svc := newTestService(repo)

	resp, err := svc.Create(context.Background(), CreateOrderRequest{
		Items: []CreateOrderItemRequest{{ProductID: 1, Quantity: 1}},
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(resp.Order.OrderNumber, "ORD-"))
	require.Len(t, resp.Order.OrderNumber, len("ORD-")+8)
}

func TestCreateDuplicateNumber(t *testing.T) {
	repo := newMemoryRepo()
	repo.addProduct(1, "Widget", 5.00, 10)
	svc := newTestService(repo)

	_, err := svc.Create(context.Background(), CreateOrderRequest{
		OrderNumber: "ORD-DUP",
		Items:       []CreateOrderItemRequest{{ProductID: 1, Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateOrderRequest{
		OrderNumber: "ORD-DUP",
		Items:       []CreateOrderItemRequest{{ProductID: 1, Quantity: 1}},
	})
	require.ErrorIs(t, err, ErrDuplicateNumber)
	require.Len(t, repo.orders, 1)
}

func TestCreateRejectsOverRequestedStock(t *testing.T) {
	repo := newMemoryRepo()
	repo.addProduct(1, "Widget", 5.00, 2)
	svc := newTestService(repo)

	_, err := svc.Create(context.Background(), CreateOrderRequest{
		Items: []CreateOrderItemRequest{{ProductID: 1, Quantity: 5}},
	})
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)
	require.Empty(t, repo.orders)
	require.Empty(t, repo.activities)
}

func TestCreateUnknownProduct(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	_, err := svc.Create(context.Background(), CreateOrderRequest{
		Items: []CreateOrderItemRequest{{ProductID: 99, Quantity: 1}},
	})
	require.ErrorIs(t, err, ErrProductNotFound)
}

func TestConfirmDeductsStockAndLogs(t *testing.T) {
	repo := newMemoryRepo()
	repo.addProduct(1, "Widget", 5.00, 10)
	svc := newTestService(repo)

	created, err := svc.Create(context.Background(), CreateOrderRequest{
		OrderNumber: "ORD-A",
		Items:       []CreateOrderItemRequest{{ProductID: 1, Quantity: 3}},
	})
	require.NoError(t, err)

	resp, err := svc.Confirm(context.Background(), created.Order.ID)
	require.NoError(t, err)
	require.Equal(t, StatusConfirmed, resp.Order.Status)
	require.Equal(t, 15.00, resp.Order.TotalAmount)
	require.Equal(t, int64(7), repo.products[1].Stock)

	require.Len(t, repo.logs, 1)
	entry := repo.logs[0]
	require.Equal(t, inventory.ChangeTypeDeduction, entry.ChangeType)
	require.Equal(t, int64(3), entry.QuantityChange)
	require.Equal(t, "Order ORD-A confirmed", entry.Reason)
	require.Equal(t, []string{activity.TypeOrderCreated, activity.TypeOrderConfirmed}, activityTypes(repo))
}

func TestConfirmInsufficientStockLeavesOrderPending(t *testing.T) {
	repo := newMemoryRepo()
	repo.addProduct(1, "Widget", 5.00, 10)
	svc := newTestService(repo)

	created, err := svc.Create(context.Background(), CreateOrderRequest{
		OrderNumber: "ORD-B",
		Items:       []CreateOrderItemRequest{{ProductID: 1, Quantity: 5}},
	})
	require.NoError(t, err)

	// Stock drained between creation and confirmation.
	repo.setStock(1, 2)

	_, err = svc.Confirm(context.Background(), created.Order.ID)
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)

	order, err := svc.Get(context.Background(), created.Order.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPending, order.Status)
	require.Equal(t, int64(2), repo.products[1].Stock)
	require.Empty(t, repo.logs)
	require.Equal(t, []string{activity.TypeOrderCreated}, activityTypes(repo))
}

func TestConfirmNoPartialEffect(t *testing.T) {
	repo := newMemoryRepo()
	repo.addProduct(1, "Widget", 5.00, 10)
	repo.addProduct(2, "Gadget", 2.00, 10)
	svc := newTestService(repo)

	created, err := svc.Create(context.Background(), CreateOrderRequest{
		OrderNumber: "ORD-PARTIAL",
		Items: []CreateOrderItemRequest{
			{ProductID: 1, Quantity: 3},
			{ProductID: 2, Quantity: 5},
		},
	})
	require.NoError(t, err)

	repo.setStock(2, 1)

	_, err = svc.Confirm(context.Background(), created.Order.ID)
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)

	// Neither product moved, including the one that had enough stock.
	require.Equal(t, int64(10), repo.products[1].Stock)
	require.Equal(t, int64(1), repo.products[2].Stock)
	require.Empty(t, repo.logs)
}

func TestConfirmAggregatesDuplicateProductLines(t *testing.T) {
	repo := newMemoryRepo()
	repo.addProduct(1, "Widget", 5.00, 20)
	svc := newTestService(repo)

	created, err := svc.Create(context.Background(), CreateOrderRequest{
		OrderNumber: "ORD-AGG",
		Items: []CreateOrderItemRequest{
			{ProductID: 1, Quantity: 6},
			{ProductID: 1, Quantity: 6},
		},
	})
	require.NoError(t, err)

	// Each line fits within 10 on its own; only the summed requirement of
	// 12 reveals the shortfall.
	repo.setStock(1, 10)

	_, err = svc.Confirm(context.Background(), created.Order.ID)
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)
	require.Equal(t, int64(10), repo.products[1].Stock)
	require.Empty(t, repo.logs)
}

func TestConfirmWritesOneLogRowPerItem(t *testing.T) {
	repo := newMemoryRepo()
	repo.addProduct(1, "Widget", 5.00, 20)
	svc := newTestService(repo)

	created, err := svc.Create(context.Background(), CreateOrderRequest{
		OrderNumber: "ORD-ROWS",
		Items: []CreateOrderItemRequest{
			{ProductID: 1, Quantity: 2},
			{ProductID: 1, Quantity: 3},
		},
	})
	require.NoError(t, err)

	_, err = svc.Confirm(context.Background(), created.Order.ID)
	require.NoError(t, err)
	require.Equal(t, int64(15), repo.products[1].Stock)
	require.Len(t, repo.logs, 2)
	require.Equal(t, int64(2), repo.logs[0].QuantityChange)
	require.Equal(t, int64(3), repo.logs[1].QuantityChange)
}

func TestConfirmTwice(t *testing.T) {
	repo := newMemoryRepo()
	repo.addProduct(1, "Widget", 5.00, 10)
	svc := newTestService(repo)

	created, err := svc.Create(context.Background(), CreateOrderRequest{
		OrderNumber: "ORD-TWICE",
		Items:       []CreateOrderItemRequest{{ProductID: 1, Quantity: 3}},
	})
	require.NoError(t, err)

	_, err = svc.Confirm(context.Background(), created.Order.ID)
	require.NoError(t, err)

	_, err = svc.Confirm(context.Background(), created.Order.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)

	// Stock was deducted exactly once.
	require.Equal(t, int64(7), repo.products[1].Stock)
	require.Len(t, repo.logs, 1)
}

func TestCancelConfirmedRestoresStock(t *testing.T) {
	repo := newMemoryRepo()
	repo.addProduct(1, "Widget", 5.00, 10)
	svc := newTestService(repo)

	created, err := svc.Create(context.Background(), CreateOrderRequest{
		OrderNumber: "ORD-A",
		Items:       []CreateOrderItemRequest{{ProductID: 1, Quantity: 3}},
	})
	require.NoError(t, err)
	_, err = svc.Confirm(context.Background(), created.Order.ID)
	require.NoError(t, err)
	require.Equal(t, int64(7), repo.products[1].Stock)

	resp, err := svc.Cancel(context.Background(), created.Order.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, resp.Order.Status)
	require.Equal(t, int64(10), repo.products[1].Stock)

	require.Len(t, repo.logs, 2)
	require.Equal(t, inventory.ChangeTypeAddition, repo.logs[1].ChangeType)
	require.Equal(t, int64(3), repo.logs[1].QuantityChange)
	require.Equal(t, "Order ORD-A cancelled", repo.logs[1].Reason)
	require.Equal(t, []string{activity.TypeOrderCreated, activity.TypeOrderConfirmed, activity.TypeOrderCancelled}, activityTypes(repo))
}

func TestCancelPendingDoesNotTouchStock(t *testing.T) {
	repo := newMemoryRepo()
	repo.addProduct(1, "Widget", 5.00, 10)
	svc := newTestService(repo)

	created, err := svc.Create(context.Background(), CreateOrderRequest{
		OrderNumber: "ORD-PEND",
		Items:       []CreateOrderItemRequest{{ProductID: 1, Quantity: 3}},
	})
	require.NoError(t, err)

	resp, err := svc.Cancel(context.Background(), created.Order.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, resp.Order.Status)
	require.Equal(t, int64(10), repo.products[1].Stock)
	require.Empty(t, repo.logs)
}

func TestCancelCancelledOrder(t *testing.T) {
	repo := newMemoryRepo()
	repo.addProduct(1, "Widget", 5.00, 10)
	svc := newTestService(repo)

	created, err := svc.Create(context.Background(), CreateOrderRequest{
		OrderNumber: "ORD-X",
		Items:       []CreateOrderItemRequest{{ProductID: 1, Quantity: 1}},
	})
	require.NoError(t, err)
	_, err = svc.Cancel(context.Background(), created.Order.ID)
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), created.Order.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func confirmedOrder(t *testing.T, svc *Service, qty int64) *Order {
	t.Helper()
	created, err := svc.Create(context.Background(), CreateOrderRequest{
		OrderNumber: "ORD-EDIT",
		Items:       []CreateOrderItemRequest{{ProductID: 1, Quantity: qty}},
	})
	require.NoError(t, err)
	resp, err := svc.Confirm(context.Background(), created.Order.ID)
	require.NoError(t, err)
	return resp.Order
}

func TestUpdateItemDecreaseRestoresDelta(t *testing.T) {
	repo := newMemoryRepo()
	repo.addProduct(1, "Widget", 5.00, 10)
	svc := newTestService(repo)

	order := confirmedOrder(t, svc, 4)
	require.Equal(t, int64(6), repo.products[1].Stock)

	resp, err := svc.UpdateItem(context.Background(), order.ID, order.Items[0].ID, 1)
	require.NoError(t, err)
	require.Equal(t, int64(9), repo.products[1].Stock)
	require.Equal(t, 5.00, resp.Order.TotalAmount)
	require.Equal(t, int64(1), resp.Order.Items[0].Quantity)

	last := repo.logs[len(repo.logs)-1]
	require.Equal(t, inventory.ChangeTypeAddition, last.ChangeType)
	require.Equal(t, int64(3), last.QuantityChange)
	require.Equal(t, "Order ORD-EDIT item updated", last.Reason)
	require.Equal(t, activity.TypeItemUpdated, repo.activities[len(repo.activities)-1].ActivityType)
}

func TestUpdateItemIncreaseDeductsDelta(t *testing.T) {
	repo := newMemoryRepo()
	repo.addProduct(1, "Widget", 5.00, 10)
	svc := newTestService(repo)

	order := confirmedOrder(t, svc, 2)
	require.Equal(t, int64(8), repo.products[1].Stock)

	resp, err := svc.UpdateItem(context.Background(), order.ID, order.Items[0].ID, 5)
	require.NoError(t, err)
	require.Equal(t, int64(5), repo.products[1].Stock)
	require.Equal(t, 25.00, resp.Order.TotalAmount)

	last := repo.logs[len(repo.logs)-1]
	require.Equal(t, inventory.ChangeTypeDeduction, last.ChangeType)
	require.Equal(t, int64(3), last.QuantityChange)
}

func TestUpdateItemIncreaseInsufficientStock(t *testing.T) {
	repo := newMemoryRepo()
	repo.addProduct(1, "Widget", 5.00, 10)
	svc := newTestService(repo)

	order := confirmedOrder(t, svc, 2)

	_, err := svc.UpdateItem(context.Background(), order.ID, order.Items[0].ID, 100)
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)

	// Item, total and stock are untouched.
	current, err := svc.Get(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2), current.Items[0].Quantity)
	require.Equal(t, 10.00, current.TotalAmount)
	require.Equal(t, int64(8), repo.products[1].Stock)
}

func TestUpdateItemZeroRemovesItem(t *testing.T) {
	repo := newMemoryRepo()
	repo.addProduct(1, "Widget", 5.00, 10)
	svc := newTestService(repo)

	order := confirmedOrder(t, svc, 4)
	require.Equal(t, int64(6), repo.products[1].Stock)

	resp, err := svc.UpdateItem(context.Background(), order.ID, order.Items[0].ID, 0)
	require.NoError(t, err)
	require.Equal(t, int64(10), repo.products[1].Stock)
	require.Empty(t, resp.Order.Items)
	require.Equal(t, 0.00, resp.Order.TotalAmount)
	// An order emptied by edits keeps its status; cancellation is a
	// separate, explicit call.
	require.Equal(t, StatusConfirmed, resp.Order.Status)
	require.Equal(t, activity.TypeItemRemoved, repo.activities[len(repo.activities)-1].ActivityType)
}

func TestUpdateItemSameQuantityIsNoOp(t *testing.T) {
	repo := newMemoryRepo()
	repo.addProduct(1, "Widget", 5.00, 10)
	svc := newTestService(repo)

	order := confirmedOrder(t, svc, 2)
	logged := len(repo.logs)

	resp, err := svc.UpdateItem(context.Background(), order.ID, order.Items[0].ID, 2)
	require.NoError(t, err)
	require.Equal(t, int64(8), repo.products[1].Stock)
	require.Len(t, repo.logs, logged)
	require.Equal(t, 10.00, resp.Order.TotalAmount)
}

func TestUpdateItemRejectsNonConfirmedOrder(t *testing.T) {
	repo := newMemoryRepo()
	repo.addProduct(1, "Widget", 5.00, 10)
	svc := newTestService(repo)

	created, err := svc.Create(context.Background(), CreateOrderRequest{
		OrderNumber: "ORD-PEND",
		Items:       []CreateOrderItemRequest{{ProductID: 1, Quantity: 2}},
	})
	require.NoError(t, err)

	_, err = svc.UpdateItem(context.Background(), created.Order.ID, created.Order.Items[0].ID, 5)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestUpdateItemNegativeQuantity(t *testing.T) {
	repo := newMemoryRepo()
	repo.addProduct(1, "Widget", 5.00, 10)
	svc := newTestService(repo)

	order := confirmedOrder(t, svc, 2)

	_, err := svc.UpdateItem(context.Background(), order.ID, order.Items[0].ID, -1)
	require.ErrorIs(t, err, inventory.ErrInvalidQuantity)
}

func TestUpdateItemUnknownItem(t *testing.T) {
	repo := newMemoryRepo()
	repo.addProduct(1, "Widget", 5.00, 10)
	svc := newTestService(repo)

	order := confirmedOrder(t, svc, 2)

	_, err := svc.UpdateItem(context.Background(), order.ID, 999, 5)
	require.ErrorIs(t, err, ErrItemNotFound)
}

func TestAggregateByProduct(t *testing.T) {
	items := []OrderItem{
		{ProductID: 3, Quantity: 1},
		{ProductID: 1, Quantity: 2},
		{ProductID: 3, Quantity: 4},
		{ProductID: 2, Quantity: 5},
	}
	got := aggregateByProduct(items)
	require.Equal(t, []productRequirement{
		{productID: 1, qty: 2},
		{productID: 2, qty: 5},
		{productID: 3, qty: 5},
	}, got)
}
