package activity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stockpilot/stockpilot/internal/inventory"
)

type fakeFeedRepo struct {
	orderEvents     []FeedEntry
	inventoryEvents []FeedEntry
	history         []Activity
}

func (f *fakeFeedRepo) ListOrderEvents(ctx context.Context, limit int) ([]FeedEntry, error) {
	if limit < len(f.orderEvents) {
		return f.orderEvents[:limit], nil
	}
	return f.orderEvents, nil
}

func (f *fakeFeedRepo) ListInventoryEvents(ctx context.Context, limit int) ([]FeedEntry, error) {
	if limit < len(f.inventoryEvents) {
		return f.inventoryEvents[:limit], nil
	}
	return f.inventoryEvents, nil
}

func (f *fakeFeedRepo) ListByOrder(ctx context.Context, orderID int64) ([]Activity, error) {
	return f.history, nil
}

func at(sec int) time.Time {
	return time.Date(2026, 3, 1, 12, 0, sec, 0, time.UTC)
}

func orderEntry(sec int, activityType string) FeedEntry {
	return FeedEntry{
		Kind:      KindOrder,
		Timestamp: at(sec),
		Order:     &OrderEvent{OrderID: 1, OrderNumber: "ORD-1", ActivityType: activityType},
	}
}

func inventoryEntry(sec int, change inventory.ChangeType) FeedEntry {
	return FeedEntry{
		Kind:      KindInventory,
		Timestamp: at(sec),
		Inventory: &InventoryEvent{ProductID: 1, ProductName: "Widget", ChangeType: change, QuantityChange: 3},
	}
}

func TestFeedMergesNewestFirst(t *testing.T) {
	repo := &fakeFeedRepo{
		orderEvents: []FeedEntry{
			orderEntry(50, TypeOrderConfirmed),
			orderEntry(10, TypeOrderCreated),
		},
		inventoryEvents: []FeedEntry{
			inventoryEntry(40, inventory.ChangeTypeDeduction),
			inventoryEntry(20, inventory.ChangeTypeAddition),
		},
	}
	svc := NewService(repo)

	feed, err := svc.Feed(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, feed, 4)
	require.Equal(t, []Kind{KindOrder, KindInventory, KindInventory, KindOrder},
		[]Kind{feed[0].Kind, feed[1].Kind, feed[2].Kind, feed[3].Kind})
	for i := 1; i < len(feed); i++ {
		require.False(t, feed[i].Timestamp.After(feed[i-1].Timestamp))
	}
}

func TestFeedTieGoesToOrderStream(t *testing.T) {
	repo := &fakeFeedRepo{
		orderEvents:     []FeedEntry{orderEntry(30, TypeOrderConfirmed)},
		inventoryEvents: []FeedEntry{inventoryEntry(30, inventory.ChangeTypeDeduction)},
	}
	svc := NewService(repo)

	feed, err := svc.Feed(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, feed, 2)
	require.Equal(t, KindOrder, feed[0].Kind)
	require.Equal(t, KindInventory, feed[1].Kind)
}

func TestFeedAppliesLimit(t *testing.T) {
	repo := &fakeFeedRepo{
		orderEvents: []FeedEntry{
			orderEntry(60, TypeOrderCancelled),
			orderEntry(50, TypeOrderConfirmed),
			orderEntry(40, TypeOrderCreated),
		},
		inventoryEvents: []FeedEntry{
			inventoryEntry(55, inventory.ChangeTypeAddition),
			inventoryEntry(45, inventory.ChangeTypeDeduction),
		},
	}
	svc := NewService(repo)

	feed, err := svc.Feed(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, feed, 3)
	require.Equal(t, at(60), feed[0].Timestamp)
	require.Equal(t, at(55), feed[1].Timestamp)
	require.Equal(t, at(50), feed[2].Timestamp)
}

func TestFeedDefaultLimit(t *testing.T) {
	repo := &fakeFeedRepo{
		orderEvents: []FeedEntry{orderEntry(10, TypeOrderCreated)},
	}
	svc := NewService(repo)

	feed, err := svc.Feed(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, feed, 1)
}

func TestRecorderRequiresOrderAndType(t *testing.T) {
	rec := NewRecorder()
	store := &captureStore{}

	require.Error(t, rec.Record(context.Background(), store, 0, TypeOrderCreated, "x"))
	require.Error(t, rec.Record(context.Background(), store, 1, "", "x"))
	require.NoError(t, rec.Record(context.Background(), store, 1, TypeOrderCreated, "Order ORD-1 created"))
	require.Len(t, store.rows, 1)
	require.Equal(t, TypeOrderCreated, store.rows[0].ActivityType)
}

type captureStore struct {
	rows []Activity
}

func (s *captureStore) InsertActivity(ctx context.Context, act Activity) error {
	s.rows = append(s.rows, act)
	return nil
}
