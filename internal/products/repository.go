package products

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/enstockapp/mono-stock/internal/platform/httpx"
	"github.com/enstockapp/mono-stock/internal/shared"
	"github.com/enstockapp/mono-stock/internal/variants"
)

// Repository persists products and their stock rows in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert stores a product, all of its stock rows and the dimension lock in a
// single transaction. lockDimensions freezes the listed variant dimensions so
// their option sets cannot change underneath the product's SKUs; a failure
// anywhere rolls back the product as well as the lock.
func (r *Repository) Insert(ctx context.Context, p Product, lockDimensions []int64) (Product, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Product{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		INSERT INTO products (client_id, name, description, kind, price, base_cost, average_cost, total_for_average_cost, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`,
		p.ClientID, p.Name, p.Description, p.Kind, p.Price, p.BaseCost, p.AverageCost, p.TotalForAverageCost, p.Status)
	if err := row.Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Product{}, classifyUnique(err, "product name")
	}

	for i := range p.Stocks {
		s := &p.Stocks[i]
		s.ProductID = p.ID
		stockRow := tx.QueryRow(ctx, `
			INSERT INTO product_stocks (product_id, option_combination, quantity, initial_quantity, cost, status)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`,
			p.ID, []int64(s.OptionCombination), s.Quantity, s.InitialQuantity, s.Cost, s.Status)
		if err := stockRow.Scan(&s.ID); err != nil {
			return Product{}, classifyUnique(err, "option combination")
		}
	}

	if len(lockDimensions) > 0 {
		if _, err := tx.Exec(ctx,
			`UPDATE variants SET can_edit = FALSE, updated_at = NOW() WHERE id = ANY($1)`,
			lockDimensions); err != nil {
			return Product{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Product{}, err
	}
	return p, nil
}

// GetByID loads a product with its stock rows, tenant scoped.
func (r *Repository) GetByID(ctx context.Context, clientID uuid.UUID, id int64) (Product, error) {
	return r.getBy(ctx, clientID, `id = $2`, id)
}

// GetByName loads a product by case-insensitive name, tenant scoped.
func (r *Repository) GetByName(ctx context.Context, clientID uuid.UUID, name string) (Product, error) {
	return r.getBy(ctx, clientID, `lower(name) = lower($2)`, name)
}

func (r *Repository) getBy(ctx context.Context, clientID uuid.UUID, cond string, arg any) (Product, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, client_id, name, description, kind, price, base_cost, average_cost, total_for_average_cost, status, created_at, updated_at
		FROM products WHERE client_id = $1 AND `+cond, clientID, arg)

	var p Product
	err := row.Scan(&p.ID, &p.ClientID, &p.Name, &p.Description, &p.Kind, &p.Price,
		&p.BaseCost, &p.AverageCost, &p.TotalForAverageCost, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, fmt.Errorf("%w: product %v", httpx.ErrNotFound, arg)
		}
		return Product{}, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, product_id, option_combination, quantity, initial_quantity, cost, status
		FROM product_stocks WHERE product_id = $1 ORDER BY id`, p.ID)
	if err != nil {
		return Product{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var s ProductStock
		var combo []int64
		if err := rows.Scan(&s.ID, &s.ProductID, &combo, &s.Quantity, &s.InitialQuantity, &s.Cost, &s.Status); err != nil {
			return Product{}, err
		}
		s.OptionCombination = variants.Canonical(combo)
		p.Stocks = append(p.Stocks, s)
	}
	return p, rows.Err()
}

// List pages through a tenant's products, active only unless includeInactive.
func (r *Repository) List(ctx context.Context, clientID uuid.UUID, page shared.Pagination, includeInactive bool) ([]Product, error) {
	cond := `client_id = $1`
	if !includeInactive {
		cond += ` AND status = 'ACTIVE'`
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, client_id, name, description, kind, price, base_cost, average_cost, total_for_average_cost, status, created_at, updated_at
		FROM products WHERE `+cond+` ORDER BY name LIMIT $2 OFFSET $3`,
		clientID, page.PerPage, page.Offset())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		err := rows.Scan(&p.ID, &p.ClientID, &p.Name, &p.Description, &p.Kind, &p.Price,
			&p.BaseCost, &p.AverageCost, &p.TotalForAverageCost, &p.Status, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Update persists mutable product fields.
func (r *Repository) Update(ctx context.Context, p Product) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE products SET name = $3, description = $4, price = $5, base_cost = $6, status = $7, updated_at = NOW()
		WHERE client_id = $1 AND id = $2`,
		p.ClientID, p.ID, p.Name, p.Description, p.Price, p.BaseCost, p.Status)
	if err != nil {
		return classifyUnique(err, "product name")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: product %d", httpx.ErrNotFound, p.ID)
	}
	return nil
}

// SetStockStatus activates or deactivates a single SKU, tenant scoped.
func (r *Repository) SetStockStatus(ctx context.Context, clientID uuid.UUID, stockID int64, status Status) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE product_stocks s SET status = $3
		FROM products p
		WHERE s.id = $2 AND p.id = s.product_id AND p.client_id = $1`,
		clientID, stockID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: sku %d", httpx.ErrNotFound, stockID)
	}
	return nil
}

func classifyUnique(err error, what string) error {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) && pgErr.SQLState() == "23505" {
		return fmt.Errorf("%w: %s already exists", httpx.ErrDuplicate, what)
	}
	return err
}
