package activity

import (
	"context"
	"errors"
)

// Store is the slice of an open transaction the recorder needs. Lifecycle
// operations insert their activity row in the same transaction as the state
// change they describe.
type Store interface {
	InsertActivity(ctx context.Context, act Activity) error
}

// Recorder appends order events. Rows are never updated or deleted once
// written.
type Recorder struct{}

// NewRecorder constructs a Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record appends one activity row for the given order.
func (r *Recorder) Record(ctx context.Context, store Store, orderID int64, activityType, description string) error {
	if orderID == 0 || activityType == "" {
		return errors.New("activity: order id and activity type required")
	}
	return store.InsertActivity(ctx, Activity{
		OrderID:      orderID,
		ActivityType: activityType,
		Description:  description,
	})
}
