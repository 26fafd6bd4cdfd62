package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/enstockapp/mono-stock/internal/jobs"
	"github.com/enstockapp/mono-stock/internal/shared"
)

// IdempotencyCleanupJob prunes idempotency keys past their retention window.
type IdempotencyCleanupJob struct {
	store   *shared.IdempotencyStore
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewIdempotencyCleanupJob constructs the job.
func NewIdempotencyCleanupJob(store *shared.IdempotencyStore, logger *slog.Logger, metrics *jobmetrics.Metrics) *IdempotencyCleanupJob {
	return &IdempotencyCleanupJob{store: store, logger: logger, metrics: metrics}
}

// Handle processes TaskIdempotencyCleanup tasks.
func (j *IdempotencyCleanupJob) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := j.metrics.Track("idempotency_cleanup")
	var payload IdempotencyCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.RetentionHours <= 0 {
		return asynq.SkipRetry
	}
	retention := time.Duration(payload.RetentionHours) * time.Hour
	err := j.store.Cleanup(ctx, retention)
	if err != nil {
		j.logger.Error("idempotency cleanup", slog.Any("error", err))
	} else {
		j.logger.Info("idempotency cleanup done", slog.Duration("retention", retention))
	}
	return tracker.End(err)
}
