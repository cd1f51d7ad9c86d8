package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/stockpilot/stockpilot/internal/activity"
	"github.com/stockpilot/stockpilot/internal/inventory"
)

// TaskActivityDigest summarises recent order and inventory events.
const TaskActivityDigest = "activity:digest"

// ActivityDigestPayload parameterises a digest run. Limit zero falls back to
// the job default.
type ActivityDigestPayload struct {
	Limit int `json:"limit"`
}

// NewActivityDigestTask constructs an Asynq task.
func NewActivityDigestTask(payload ActivityDigestPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskActivityDigest, data), nil
}

// FeedSource provides the merged activity feed.
type FeedSource interface {
	Feed(ctx context.Context, limit int) ([]activity.FeedEntry, error)
}

// ActivityDigestJob logs a summary of the most recent feed entries, broken
// down by event kind and stock direction.
type ActivityDigestJob struct {
	feed  FeedSource
	limit int
	log   *slog.Logger
}

// NewActivityDigestJob constructs the job.
func NewActivityDigestJob(feed FeedSource, limit int, logger *slog.Logger) *ActivityDigestJob {
	if limit <= 0 {
		limit = 100
	}
	return &ActivityDigestJob{feed: feed, limit: limit, log: logger}
}

// Handle processes TaskActivityDigest tasks.
func (j *ActivityDigestJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload ActivityDigestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	limit := payload.Limit
	if limit <= 0 {
		limit = j.limit
	}
	entries, err := j.feed.Feed(ctx, limit)
	if err != nil {
		return err
	}

	var orderEvents, deductions, additions int
	for _, entry := range entries {
		switch entry.Kind {
		case activity.KindOrder:
			orderEvents++
		case activity.KindInventory:
			if entry.Inventory != nil && entry.Inventory.ChangeType == inventory.ChangeTypeDeduction {
				deductions++
			} else {
				additions++
			}
		}
	}
	j.logger().Info("activity digest",
		slog.Int("entries", len(entries)),
		slog.Int("order_events", orderEvents),
		slog.Int("stock_deductions", deductions),
		slog.Int("stock_additions", additions))
	return nil
}

func (j *ActivityDigestJob) logger() *slog.Logger {
	if j.log != nil {
		return j.log
	}
	return slog.Default()
}
