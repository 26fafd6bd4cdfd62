package stock

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// TxLedger is the transactional mutation port shared by purchases, sales and
// adjustments. Implementations must make ApplyDelta an atomic in-place update
// and must serialise cost reads against concurrent writers, so two documents
// touching the same SKU or product never lose an increment.
type TxLedger interface {
	// ApplyDelta adds the signed quantity delta to a ProductStock row and
	// returns the resulting level. No floor at zero is applied.
	ApplyDelta(ctx context.Context, stockID int64, quantity float64, dir Direction) (StockLevel, error)
	// GetProductCostForUpdate loads the cost triad with a row lock held for
	// the remainder of the enclosing transaction.
	GetProductCostForUpdate(ctx context.Context, productID int64) (CostState, error)
	// UpdateProductCost persists a recomputed cost triad.
	UpdateProductCost(ctx context.Context, productID int64, state CostState) error
}

// PgLedger implements TxLedger on top of an open pgx transaction.
type PgLedger struct {
	tx pgx.Tx
}

// NewPgLedger wraps the transaction.
func NewPgLedger(tx pgx.Tx) *PgLedger {
	return &PgLedger{tx: tx}
}

func (l *PgLedger) ApplyDelta(ctx context.Context, stockID int64, quantity float64, dir Direction) (StockLevel, error) {
	// Single-statement increment: concurrent lines against the same SKU sum
	// instead of overwriting each other.
	row := l.tx.QueryRow(ctx,
		`UPDATE product_stocks SET quantity = quantity + $2, updated_at = NOW() WHERE id = $1 RETURNING id, product_id, quantity`,
		stockID, SignedDelta(quantity, dir))

	var level StockLevel
	if err := row.Scan(&level.StockID, &level.ProductID, &level.Quantity); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StockLevel{}, ErrStockNotFound
		}
		return StockLevel{}, err
	}
	return level, nil
}

func (l *PgLedger) GetProductCostForUpdate(ctx context.Context, productID int64) (CostState, error) {
	row := l.tx.QueryRow(ctx,
		`SELECT base_cost, average_cost, total_for_average_cost FROM products WHERE id = $1 FOR UPDATE`,
		productID)

	var state CostState
	if err := row.Scan(&state.BaseCost, &state.AverageCost, &state.TotalForAverageCost); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CostState{}, ErrProductNotFound
		}
		return CostState{}, err
	}
	return state, nil
}

func (l *PgLedger) UpdateProductCost(ctx context.Context, productID int64, state CostState) error {
	tag, err := l.tx.Exec(ctx,
		`UPDATE products SET base_cost = $2, average_cost = $3, total_for_average_cost = $4, updated_at = NOW() WHERE id = $1`,
		productID, state.BaseCost, state.AverageCost, state.TotalForAverageCost)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}
