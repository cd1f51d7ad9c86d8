package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/stockpilot/stockpilot/internal/catalog"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLowStockScan scans for products running low on stock.
	TaskLowStockScan = "stock:lowscan"
)

// LowStockScanPayload parameterises a scan run. Threshold zero falls back to
// the job's configured default.
type LowStockScanPayload struct {
	Threshold int64 `json:"threshold"`
}

// NewLowStockScanTask constructs an Asynq task.
func NewLowStockScanTask(payload LowStockScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockScan, data), nil
}

// LowStockLister lists products below a stock threshold.
type LowStockLister interface {
	LowStock(ctx context.Context, threshold int64) ([]catalog.Product, error)
}

// LowStockScanJob reports products below the reorder threshold. The scan only
// reads; stock mutation stays with the request path.
type LowStockScanJob struct {
	products  LowStockLister
	threshold int64
	log       *slog.Logger
}

// NewLowStockScanJob constructs the job.
func NewLowStockScanJob(products LowStockLister, threshold int64, logger *slog.Logger) *LowStockScanJob {
	if threshold <= 0 {
		threshold = 10
	}
	return &LowStockScanJob{products: products, threshold: threshold, log: logger}
}

// Handle processes TaskLowStockScan tasks.
func (j *LowStockScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload LowStockScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	threshold := payload.Threshold
	if threshold <= 0 {
		threshold = j.threshold
	}
	products, err := j.products.LowStock(ctx, threshold)
	if err != nil {
		return err
	}
	if len(products) == 0 {
		j.logger().Info("low stock scan clean", slog.Int64("threshold", threshold))
		return nil
	}
	for _, p := range products {
		j.logger().Warn("product running low",
			slog.Int64("product_id", p.ID),
			slog.String("name", p.Name),
			slog.Int64("stock", p.StockQuantity),
			slog.Int64("threshold", threshold))
	}
	return nil
}

func (j *LowStockScanJob) logger() *slog.Logger {
	if j.log != nil {
		return j.log
	}
	return slog.Default()
}
