package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskStockLowScan sweeps every tenant for stock lines under threshold.
	TaskStockLowScan = "stock:low_scan"
	// TaskIdempotencyCleanup prunes expired idempotency keys.
	TaskIdempotencyCleanup = "maintenance:idempotency_cleanup"
)

// LowStockScanPayload parameterises a low-stock sweep.
type LowStockScanPayload struct {
	Threshold float64 `json:"threshold"`
}

// NewLowStockScanTask constructs the sweep task.
func NewLowStockScanTask(threshold float64) (*asynq.Task, error) {
	if threshold <= 0 {
		return nil, fmt.Errorf("jobs: low stock threshold must be positive, got %v", threshold)
	}
	data, err := json.Marshal(LowStockScanPayload{Threshold: threshold})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStockLowScan, data), nil
}

// IdempotencyCleanupPayload parameterises key pruning.
type IdempotencyCleanupPayload struct {
	RetentionHours int `json:"retention_hours"`
}

// NewIdempotencyCleanupTask constructs the cleanup task.
func NewIdempotencyCleanupTask(retentionHours int) (*asynq.Task, error) {
	if retentionHours <= 0 {
		return nil, fmt.Errorf("jobs: retention must be positive, got %d", retentionHours)
	}
	data, err := json.Marshal(IdempotencyCleanupPayload{RetentionHours: retentionHours})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data), nil
}
