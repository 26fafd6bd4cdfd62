package sales

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/enstockapp/mono-stock/internal/platform/db"
	"github.com/enstockapp/mono-stock/internal/platform/httpx"
	"github.com/enstockapp/mono-stock/internal/shared"
	"github.com/enstockapp/mono-stock/internal/stock"
)

// SKU is a resolvable stock row with the owning product's current sale price.
type SKU struct {
	StockID   int64
	ProductID int64
	Price     float64
}

// TxRepository is the transactional slice of the repository.
type TxRepository interface {
	InsertHeader(ctx context.Context, s Sale) (Sale, error)
	InsertLine(ctx context.Context, line Line) (Line, error)
	LoadActive(ctx context.Context, clientID uuid.UUID, id int64) (Sale, error)
	Deactivate(ctx context.Context, clientID uuid.UUID, id int64) error
	ResolveSKUs(ctx context.Context, clientID uuid.UUID, stockIDs []int64) (map[int64]SKU, error)
	CustomerExists(ctx context.Context, clientID uuid.UUID, customerID int64) (bool, error)
	Ledger() stock.TxLedger
}

// RepositoryPort abstracts sale persistence for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error
	GetByID(ctx context.Context, clientID uuid.UUID, id int64) (Sale, error)
	List(ctx context.Context, clientID uuid.UUID, page shared.Pagination, includeInactive bool) ([]Sale, error)
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

// GetByID loads one document with all of its lines, tenant scoped.
func (r *Repository) GetByID(ctx context.Context, clientID uuid.UUID, id int64) (Sale, error) {
	row := r.pool.QueryRow(ctx, selectHeader+` WHERE client_id = $1 AND id = $2`, clientID, id)
	s, err := scanHeader(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Sale{}, fmt.Errorf("%w: sale %d", httpx.ErrNotFound, id)
		}
		return Sale{}, err
	}
	s.Lines, err = loadLines(ctx, r.pool, s.ID, true)
	return s, err
}

// List pages through a tenant's documents, active only unless includeInactive.
func (r *Repository) List(ctx context.Context, clientID uuid.UUID, page shared.Pagination, includeInactive bool) ([]Sale, error) {
	cond := `client_id = $1`
	if !includeInactive {
		cond += ` AND is_active`
	}
	rows, err := r.pool.Query(ctx, selectHeader+` WHERE `+cond+` ORDER BY date DESC, id DESC LIMIT $2 OFFSET $3`,
		clientID, page.PerPage, page.Offset())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Sale
	for rows.Next() {
		s, err := scanHeader(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

const selectHeader = `
	SELECT id, client_id, customer_id, document_type, invoice_number, control_number, date,
	       currency, exchange_from, exchange_to, exchange_rate, total, comment, is_active,
	       created_at, updated_at
	FROM sales`

func scanHeader(row pgx.Row) (Sale, error) {
	var s Sale
	err := row.Scan(&s.ID, &s.ClientID, &s.CustomerID, &s.DocumentType, &s.InvoiceNumber,
		&s.ControlNumber, &s.Date, &s.Currency, &s.Exchange.From, &s.Exchange.To,
		&s.Exchange.Rate, &s.Total, &s.Comment, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func loadLines(ctx context.Context, q querier, saleID int64, includeInactive bool) ([]Line, error) {
	cond := `sale_id = $1`
	if !includeInactive {
		cond += ` AND is_active`
	}
	rows, err := q.Query(ctx, `
		SELECT id, sale_id, stock_id, quantity, amount, is_active
		FROM sale_lines WHERE `+cond+` ORDER BY id`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.SaleID, &l.StockID, &l.Quantity, &l.Amount, &l.IsActive); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

type txRepository struct {
	tx     pgx.Tx
	ledger *stock.PgLedger
}

func (r *txRepository) InsertHeader(ctx context.Context, s Sale) (Sale, error) {
	row := r.tx.QueryRow(ctx, `
		INSERT INTO sales (client_id, customer_id, document_type, invoice_number, control_number, date,
		                   currency, exchange_from, exchange_to, exchange_rate, total, comment, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, TRUE)
		RETURNING id, created_at, updated_at`,
		s.ClientID, s.CustomerID, s.DocumentType, s.InvoiceNumber, s.ControlNumber, s.Date,
		s.Currency, s.Exchange.From, s.Exchange.To, s.Exchange.Rate, s.Total, s.Comment)
	if err := row.Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return Sale{}, err
	}
	s.IsActive = true
	return s, nil
}

func (r *txRepository) InsertLine(ctx context.Context, line Line) (Line, error) {
	row := r.tx.QueryRow(ctx, `
		INSERT INTO sale_lines (sale_id, stock_id, quantity, amount, is_active)
		VALUES ($1, $2, $3, $4, TRUE)
		RETURNING id`,
		line.SaleID, line.StockID, line.Quantity, line.Amount)
	if err := row.Scan(&line.ID); err != nil {
		return Line{}, err
	}
	line.IsActive = true
	return line, nil
}

func (r *txRepository) LoadActive(ctx context.Context, clientID uuid.UUID, id int64) (Sale, error) {
	row := r.tx.QueryRow(ctx, selectHeader+` WHERE client_id = $1 AND id = $2 AND is_active FOR UPDATE`, clientID, id)
	s, err := scanHeader(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Sale{}, fmt.Errorf("%w: active sale %d", httpx.ErrNotFound, id)
		}
		return Sale{}, err
	}
	s.Lines, err = loadLines(ctx, r.tx, s.ID, false)
	return s, err
}

func (r *txRepository) Deactivate(ctx context.Context, clientID uuid.UUID, id int64) error {
	tag, err := r.tx.Exec(ctx,
		`UPDATE sales SET is_active = FALSE, updated_at = NOW() WHERE client_id = $1 AND id = $2 AND is_active`,
		clientID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: active sale %d", httpx.ErrNotFound, id)
	}
	_, err = r.tx.Exec(ctx, `UPDATE sale_lines SET is_active = FALSE WHERE sale_id = $1`, id)
	return err
}

func (r *txRepository) ResolveSKUs(ctx context.Context, clientID uuid.UUID, stockIDs []int64) (map[int64]SKU, error) {
	rows, err := r.tx.Query(ctx, `
		SELECT s.id, s.product_id, p.price
		FROM product_stocks s
		JOIN products p ON p.id = s.product_id
		WHERE p.client_id = $1 AND s.id = ANY($2) AND s.status = 'ACTIVE' AND p.status = 'ACTIVE'`,
		clientID, stockIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	resolved := make(map[int64]SKU, len(stockIDs))
	for rows.Next() {
		var sku SKU
		if err := rows.Scan(&sku.StockID, &sku.ProductID, &sku.Price); err != nil {
			return nil, err
		}
		resolved[sku.StockID] = sku
	}
	return resolved, rows.Err()
}

func (r *txRepository) CustomerExists(ctx context.Context, clientID uuid.UUID, customerID int64) (bool, error) {
	var exists bool
	err := r.tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM customers WHERE client_id = $1 AND id = $2)`,
		clientID, customerID).Scan(&exists)
	return exists, err
}

func (r *txRepository) Ledger() stock.TxLedger {
	return r.ledger
}
