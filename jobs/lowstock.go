package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	jobmetrics "github.com/enstockapp/mono-stock/internal/jobs"
)

// LowStockScanJob sweeps every active tenant and reports stock lines whose
// quantity sits under the configured threshold.
type LowStockScanJob struct {
	pool    *pgxpool.Pool
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewLowStockScanJob constructs the job.
func NewLowStockScanJob(pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *LowStockScanJob {
	return &LowStockScanJob{pool: pool, logger: logger, metrics: metrics}
}

// Handle processes TaskStockLowScan tasks.
func (j *LowStockScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := j.metrics.Track("stock_low_scan")
	var payload LowStockScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Threshold <= 0 {
		return asynq.SkipRetry
	}
	return tracker.End(j.scan(ctx, payload.Threshold))
}

func (j *LowStockScanJob) scan(ctx context.Context, threshold float64) error {
	clientIDs, err := j.activeClients(ctx)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, clientID := range clientIDs {
		g.Go(func() error {
			count, err := j.countLowLines(ctx, clientID, threshold)
			if err != nil {
				return err
			}
			j.metrics.SetLowStock(clientID.String(), count)
			if count > 0 {
				j.logger.Warn("low stock detected",
					slog.String("client_id", clientID.String()),
					slog.Int("lines", count),
					slog.Float64("threshold", threshold))
			}
			return nil
		})
	}
	return g.Wait()
}

func (j *LowStockScanJob) activeClients(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := j.pool.Query(ctx, `SELECT id FROM clients WHERE status = 'ACTIVE'`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (j *LowStockScanJob) countLowLines(ctx context.Context, clientID uuid.UUID, threshold float64) (int, error) {
	var count int
	err := j.pool.QueryRow(ctx, `
		SELECT count(*)
		FROM product_stocks s
		JOIN products p ON p.id = s.product_id
		WHERE p.client_id = $1
		  AND p.status = 'ACTIVE'
		  AND s.status = 'ACTIVE'
		  AND s.quantity < $2`, clientID, threshold).Scan(&count)
	return count, err
}
