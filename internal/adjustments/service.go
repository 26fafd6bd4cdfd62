package adjustments

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/enstockapp/mono-stock/internal/platform/httpx"
	"github.com/enstockapp/mono-stock/internal/shared"
	"github.com/enstockapp/mono-stock/internal/stock"
)

// Auditor records stock-affecting operations.
type Auditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service applies manual stock adjustments.
type Service struct {
	repo          RepositoryPort
	auditor       Auditor
	allowNegative bool
}

// NewService builds Service. auditor may be nil.
func NewService(repo RepositoryPort, auditor Auditor, allowNegative bool) *Service {
	return &Service{repo: repo, auditor: auditor, allowNegative: allowNegative}
}

// ApplyInput describes one manual correction.
type ApplyInput struct {
	StockID   int64
	Direction stock.Direction
	Quantity  float64
	Reason    string
}

// Apply mutates one SKU's on-hand quantity through the ledger and records the
// adjustment. Cost fields are never touched.
func (s *Service) Apply(ctx context.Context, actor shared.Actor, input ApplyInput) (Adjustment, error) {
	if input.Quantity <= 0 {
		return Adjustment{}, fmt.Errorf("%w: quantity must be positive", httpx.ErrValidation)
	}
	if input.Direction != stock.Increment && input.Direction != stock.Decrement {
		return Adjustment{}, fmt.Errorf("%w: unknown direction", httpx.ErrValidation)
	}
	if input.Reason == "" {
		return Adjustment{}, fmt.Errorf("%w: a reason is required", httpx.ErrValidation)
	}

	var applied Adjustment
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ok, err := tx.StockBelongsToClient(ctx, actor.ClientID, input.StockID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: sku %d", httpx.ErrNotFound, input.StockID)
		}

		level, err := tx.Ledger().ApplyDelta(ctx, input.StockID, input.Quantity, input.Direction)
		if err != nil {
			if err == stock.ErrStockNotFound {
				return fmt.Errorf("%w: sku %d", httpx.ErrNotFound, input.StockID)
			}
			return err
		}
		if !s.allowNegative && level.Quantity < 0 {
			return fmt.Errorf("%w: insufficient stock for sku %d", httpx.ErrValidation, input.StockID)
		}

		applied, err = tx.Insert(ctx, Adjustment{
			ClientID:          actor.ClientID,
			StockID:           input.StockID,
			Direction:         input.Direction,
			Quantity:          input.Quantity,
			Reason:            input.Reason,
			ResultingQuantity: level.Quantity,
			CreatedBy:         actor.UserID,
		})
		return err
	})
	if err != nil {
		return Adjustment{}, err
	}

	if s.auditor != nil {
		_ = s.auditor.Record(ctx, shared.AuditLog{
			ActorID:  actor.UserID,
			ClientID: actor.ClientID.String(),
			Action:   "stock.adjust",
			Entity:   "product_stock",
			EntityID: strconv.FormatInt(input.StockID, 10),
			Meta: map[string]any{
				"direction": int(input.Direction),
				"quantity":  input.Quantity,
				"reason":    input.Reason,
			},
		})
	}
	return applied, nil
}

// List pages through the tenant's adjustment history.
func (s *Service) List(ctx context.Context, clientID uuid.UUID, page shared.Pagination) ([]Adjustment, error) {
	return s.repo.List(ctx, clientID, page)
}
