package purchases

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

// SKU is the orchestrator's view of a resolvable stock row. Only active rows
// of active products owned by the tenant resolve.
type SKU struct {
	StockID   int64
	ProductID int64
	Price     float64
}

// TxRepository is the transactional slice of the repository. Everything it
// does joins the document's single all-or-nothing unit of work.
type TxRepository interface {
	InsertHeader(ctx context.Context, p Purchase) (Purchase, error)
	InsertLine(ctx context.Context, line Line) (Line, error)
	// LoadActive resolves an active document with its active lines, tenant
	// scoped, locking the header row.
	LoadActive(ctx context.Context, clientID uuid.UUID, id int64) (Purchase, error)
	Deactivate(ctx context.Context, clientID uuid.UUID, id int64) error
	ResolveSKUs(ctx context.Context, clientID uuid.UUID, stockIDs []int64) (map[int64]SKU, error)
	SupplierExists(ctx context.Context, clientID uuid.UUID, supplierID int64) (bool, error)
	Ledger() stock.TxLedger
}

// RepositoryPort abstracts purchase persistence for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error
	GetByID(ctx context.Context, clientID uuid.UUID, id int64) (Purchase, error)
	List(ctx context.Context, clientID uuid.UUID, page shared.Pagination, includeInactive bool) ([]Purchase, error)
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
func (r *Repository) GetByID(ctx context.Context, clientID uuid.UUID, id int64) (Purchase, error) {
	row := r.pool.QueryRow(ctx, selectHeader+` WHERE client_id = $1 AND id = $2`, clientID, id)
	p, err := scanHeader(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Purchase{}, fmt.Errorf("%w: purchase %d", httpx.ErrNotFound, id)
		}
		return Purchase{}, err
	}
	p.Lines, err = loadLines(ctx, r.pool, p.ID, true)
	return p, err
}

// List pages through a tenant's documents, active only unless includeInactive.
func (r *Repository) List(ctx context.Context, clientID uuid.UUID, page shared.Pagination, includeInactive bool) ([]Purchase, error) {
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

	var out []Purchase
	for rows.Next() {
		p, err := scanHeader(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

const selectHeader = `
	SELECT id, client_id, supplier_id, document_type, invoice_number, control_number, date,
	       currency, exchange_from, exchange_to, exchange_rate, total, comment, is_active,
	       created_at, updated_at
	FROM purchases`

func scanHeader(row pgx.Row) (Purchase, error) {
	var p Purchase
	err := row.Scan(&p.ID, &p.ClientID, &p.SupplierID, &p.DocumentType, &p.InvoiceNumber,
		&p.ControlNumber, &p.Date, &p.Currency, &p.Exchange.From, &p.Exchange.To,
		&p.Exchange.Rate, &p.Total, &p.Comment, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func loadLines(ctx context.Context, q querier, purchaseID int64, includeInactive bool) ([]Line, error) {
	cond := `purchase_id = $1`
	if !includeInactive {
		cond += ` AND is_active`
	}
	rows, err := q.Query(ctx, `
		SELECT id, purchase_id, stock_id, product_id, quantity, amount, update_product_base_cost, is_active
		FROM purchase_lines WHERE `+cond+` ORDER BY id`, purchaseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.PurchaseID, &l.StockID, &l.ProductID, &l.Quantity,
			&l.Amount, &l.UpdateProductBaseCost, &l.IsActive); err != nil {
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

func (r *txRepository) InsertHeader(ctx context.Context, p Purchase) (Purchase, error) {
	row := r.tx.QueryRow(ctx, `
		INSERT INTO purchases (client_id, supplier_id, document_type, invoice_number, control_number, date,
		                       currency, exchange_from, exchange_to, exchange_rate, total, comment, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, TRUE)
		RETURNING id, created_at, updated_at`,
		p.ClientID, p.SupplierID, p.DocumentType, p.InvoiceNumber, p.ControlNumber, p.Date,
		p.Currency, p.Exchange.From, p.Exchange.To, p.Exchange.Rate, p.Total, p.Comment)
	if err := row.Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Purchase{}, err
	}
	p.IsActive = true
	return p, nil
}

func (r *txRepository) InsertLine(ctx context.Context, line Line) (Line, error) {
	row := r.tx.QueryRow(ctx, `
		INSERT INTO purchase_lines (purchase_id, stock_id, product_id, quantity, amount, update_product_base_cost, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE)
		RETURNING id`,
		line.PurchaseID, line.StockID, line.ProductID, line.Quantity, line.Amount, line.UpdateProductBaseCost)
	if err := row.Scan(&line.ID); err != nil {
		return Line{}, err
	}
	line.IsActive = true
	return line, nil
}

func (r *txRepository) LoadActive(ctx context.Context, clientID uuid.UUID, id int64) (Purchase, error) {
	row := r.tx.QueryRow(ctx, selectHeader+` WHERE client_id = $1 AND id = $2 AND is_active FOR UPDATE`, clientID, id)
	p, err := scanHeader(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Purchase{}, fmt.Errorf("%w: active purchase %d", httpx.ErrNotFound, id)
		}
		return Purchase{}, err
	}
	p.Lines, err = loadLines(ctx, r.tx, p.ID, false)
	return p, err
}

func (r *txRepository) Deactivate(ctx context.Context, clientID uuid.UUID, id int64) error {
	tag, err := r.tx.Exec(ctx,
		`UPDATE purchases SET is_active = FALSE, updated_at = NOW() WHERE client_id = $1 AND id = $2 AND is_active`,
		clientID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: active purchase %d", httpx.ErrNotFound, id)
	}
	_, err = r.tx.Exec(ctx, `UPDATE purchase_lines SET is_active = FALSE WHERE purchase_id = $1`, id)
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

func (r *txRepository) SupplierExists(ctx context.Context, clientID uuid.UUID, supplierID int64) (bool, error) {
	var exists bool
	err := r.tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM suppliers WHERE client_id = $1 AND id = $2)`,
		clientID, supplierID).Scan(&exists)
	return exists, err
}

func (r *txRepository) Ledger() stock.TxLedger {
	return r.ledger
}
