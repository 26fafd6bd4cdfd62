package suppliers

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

// Repository persists suppliers in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const selectCols = `id, client_id, name, tax_id, phone, email, address, created_at, updated_at`

func scan(row pgx.Row) (Supplier, error) {
	var s Supplier
	err := row.Scan(&s.ID, &s.ClientID, &s.Name, &s.TaxID, &s.Phone, &s.Email, &s.Address, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

// List pages through a tenant's suppliers ordered by name.
func (r *Repository) List(ctx context.Context, clientID uuid.UUID, page shared.Pagination) ([]Supplier, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+selectCols+` FROM suppliers WHERE client_id = $1 ORDER BY name LIMIT $2 OFFSET $3`,
		clientID, page.PerPage, page.Offset())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Supplier
	for rows.Next() {
		s, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetByID loads one supplier, tenant scoped.
func (r *Repository) GetByID(ctx context.Context, clientID uuid.UUID, id int64) (Supplier, error) {
	s, err := scan(r.pool.QueryRow(ctx,
		`SELECT `+selectCols+` FROM suppliers WHERE client_id = $1 AND id = $2`, clientID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Supplier{}, fmt.Errorf("%w: supplier %d", httpx.ErrNotFound, id)
	}
	return s, err
}

// GetByName loads one supplier by case-insensitive name, tenant scoped.
func (r *Repository) GetByName(ctx context.Context, clientID uuid.UUID, name string) (Supplier, error) {
	s, err := scan(r.pool.QueryRow(ctx,
		`SELECT `+selectCols+` FROM suppliers WHERE client_id = $1 AND lower(name) = lower($2)`, clientID, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return Supplier{}, fmt.Errorf("%w: supplier %q", httpx.ErrNotFound, name)
	}
	return s, err
}

// Create inserts a supplier.
func (r *Repository) Create(ctx context.Context, s Supplier) (Supplier, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO suppliers (client_id, name, tax_id, phone, email, address)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		s.ClientID, s.Name, s.TaxID, s.Phone, s.Email, s.Address)
	if err := row.Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return Supplier{}, classifyUnique(err)
	}
	return s, nil
}

// Update persists supplier fields.
func (r *Repository) Update(ctx context.Context, s Supplier) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE suppliers SET name = $3, tax_id = $4, phone = $5, email = $6, address = $7, updated_at = NOW()
		WHERE client_id = $1 AND id = $2`,
		s.ClientID, s.ID, s.Name, s.TaxID, s.Phone, s.Email, s.Address)
	if err != nil {
		return classifyUnique(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: supplier %d", httpx.ErrNotFound, s.ID)
	}
	return nil
}

// Delete removes a supplier.
func (r *Repository) Delete(ctx context.Context, clientID uuid.UUID, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM suppliers WHERE client_id = $1 AND id = $2`, clientID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: supplier %d", httpx.ErrNotFound, id)
	}
	return nil
}

func classifyUnique(err error) error {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) && pgErr.SQLState() == "23505" {
		return fmt.Errorf("%w: supplier name already exists", httpx.ErrDuplicate)
	}
	return err
}
