package customers

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/enstockapp/mono-stock/internal/platform/httpx"
	"github.com/enstockapp/mono-stock/internal/shared"
)

// Repository persists customers in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const selectCols = `id, client_id, name, tax_id, phone, email, address, created_at, updated_at`

func scan(row pgx.Row) (Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.ClientID, &c.Name, &c.TaxID, &c.Phone, &c.Email, &c.Address, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// List pages through a tenant's customers ordered by name.
func (r *Repository) List(ctx context.Context, clientID uuid.UUID, page shared.Pagination) ([]Customer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+selectCols+` FROM customers WHERE client_id = $1 ORDER BY name LIMIT $2 OFFSET $3`,
		clientID, page.PerPage, page.Offset())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Customer
	for rows.Next() {
		c, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetByID loads one customer, tenant scoped.
func (r *Repository) GetByID(ctx context.Context, clientID uuid.UUID, id int64) (Customer, error) {
	c, err := scan(r.pool.QueryRow(ctx,
		`SELECT `+selectCols+` FROM customers WHERE client_id = $1 AND id = $2`, clientID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, fmt.Errorf("%w: customer %d", httpx.ErrNotFound, id)
	}
	return c, err
}

// GetByName loads one customer by case-insensitive name, tenant scoped.
func (r *Repository) GetByName(ctx context.Context, clientID uuid.UUID, name string) (Customer, error) {
	c, err := scan(r.pool.QueryRow(ctx,
		`SELECT `+selectCols+` FROM customers WHERE client_id = $1 AND lower(name) = lower($2)`, clientID, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, fmt.Errorf("%w: customer %q", httpx.ErrNotFound, name)
	}
	return c, err
}

// Create inserts a customer.
func (r *Repository) Create(ctx context.Context, c Customer) (Customer, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO customers (client_id, name, tax_id, phone, email, address)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		c.ClientID, c.Name, c.TaxID, c.Phone, c.Email, c.Address)
	if err := row.Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return Customer{}, classifyUnique(err)
	}
	return c, nil
}

// Update persists customer fields.
func (r *Repository) Update(ctx context.Context, c Customer) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE customers SET name = $3, tax_id = $4, phone = $5, email = $6, address = $7, updated_at = NOW()
		WHERE client_id = $1 AND id = $2`,
		c.ClientID, c.ID, c.Name, c.TaxID, c.Phone, c.Email, c.Address)
	if err != nil {
		return classifyUnique(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: customer %d", httpx.ErrNotFound, c.ID)
	}
	return nil
}

// Delete removes a customer.
func (r *Repository) Delete(ctx context.Context, clientID uuid.UUID, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM customers WHERE client_id = $1 AND id = $2`, clientID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: customer %d", httpx.ErrNotFound, id)
	}
	return nil
}

func classifyUnique(err error) error {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) && pgErr.SQLState() == "23505" {
		return fmt.Errorf("%w: customer name already exists", httpx.ErrDuplicate)
	}
	return err
}
