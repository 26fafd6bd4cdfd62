package adjustments

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/enstockapp/mono-stock/internal/platform/db"
	"github.com/enstockapp/mono-stock/internal/shared"
	"github.com/enstockapp/mono-stock/internal/stock"
)

// TxRepository is the transactional slice of the repository.
type TxRepository interface {
	Insert(ctx context.Context, a Adjustment) (Adjustment, error)
	// StockBelongsToClient re-checks tenant ownership of the SKU inside the
	// transaction.
	StockBelongsToClient(ctx context.Context, clientID uuid.UUID, stockID int64) (bool, error)
	Ledger() stock.TxLedger
}

// RepositoryPort abstracts adjustment persistence for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error
	List(ctx context.Context, clientID uuid.UUID, page shared.Pagination) ([]Adjustment, error)
}

// Repository is the pgx-backed RepositoryPort.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx runs fn inside one RepeatableRead transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx, ledger: stock.NewPgLedger(tx)})
	})
}

// List pages through a tenant's adjustment history, newest first.
func (r *Repository) List(ctx context.Context, clientID uuid.UUID, page shared.Pagination) ([]Adjustment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, client_id, stock_id, direction, quantity, reason, resulting_quantity, created_by, created_at
		FROM stock_adjustments WHERE client_id = $1 ORDER BY id DESC LIMIT $2 OFFSET $3`,
		clientID, page.PerPage, page.Offset())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Adjustment
	for rows.Next() {
		var a Adjustment
		var dir int
		if err := rows.Scan(&a.ID, &a.ClientID, &a.StockID, &dir, &a.Quantity, &a.Reason,
			&a.ResultingQuantity, &a.CreatedBy, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Direction = stock.Direction(dir)
		out = append(out, a)
	}
	return out, rows.Err()
}

type txRepository struct {
	tx     pgx.Tx
	ledger *stock.PgLedger
}

func (r *txRepository) Insert(ctx context.Context, a Adjustment) (Adjustment, error) {
	row := r.tx.QueryRow(ctx, `
		INSERT INTO stock_adjustments (client_id, stock_id, direction, quantity, reason, resulting_quantity, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`,
		a.ClientID, a.StockID, int(a.Direction), a.Quantity, a.Reason, a.ResultingQuantity, a.CreatedBy)
	if err := row.Scan(&a.ID, &a.CreatedAt); err != nil {
		return Adjustment{}, err
	}
	return a, nil
}

func (r *txRepository) StockBelongsToClient(ctx context.Context, clientID uuid.UUID, stockID int64) (bool, error) {
	var exists bool
	err := r.tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM product_stocks s
			JOIN products p ON p.id = s.product_id
			WHERE p.client_id = $1 AND s.id = $2
		)`, clientID, stockID).Scan(&exists)
	return exists, err
}

func (r *txRepository) Ledger() stock.TxLedger {
	return r.ledger
}
