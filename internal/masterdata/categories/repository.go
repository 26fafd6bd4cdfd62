package categories

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

// Repository persists categories in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const selectCols = `id, client_id, name, description, created_at, updated_at`

func scan(row pgx.Row) (Category, error) {
	var c Category
	err := row.Scan(&c.ID, &c.ClientID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// List pages through a tenant's categories ordered by name.
func (r *Repository) List(ctx context.Context, clientID uuid.UUID, page shared.Pagination) ([]Category, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+selectCols+` FROM categories WHERE client_id = $1 ORDER BY name LIMIT $2 OFFSET $3`,
		clientID, page.PerPage, page.Offset())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		c, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetByID loads one category, tenant scoped.
func (r *Repository) GetByID(ctx context.Context, clientID uuid.UUID, id int64) (Category, error) {
	c, err := scan(r.pool.QueryRow(ctx,
		`SELECT `+selectCols+` FROM categories WHERE client_id = $1 AND id = $2`, clientID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Category{}, fmt.Errorf("%w: category %d", httpx.ErrNotFound, id)
	}
	return c, err
}

// GetByName loads one category by case-insensitive name, tenant scoped.
func (r *Repository) GetByName(ctx context.Context, clientID uuid.UUID, name string) (Category, error) {
	c, err := scan(r.pool.QueryRow(ctx,
		`SELECT `+selectCols+` FROM categories WHERE client_id = $1 AND lower(name) = lower($2)`, clientID, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return Category{}, fmt.Errorf("%w: category %q", httpx.ErrNotFound, name)
	}
	return c, err
}

// Create inserts a category.
func (r *Repository) Create(ctx context.Context, c Category) (Category, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO categories (client_id, name, description)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`,
		c.ClientID, c.Name, c.Description)
	if err := row.Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return Category{}, classifyUnique(err)
	}
	return c, nil
}

// Update persists category fields.
func (r *Repository) Update(ctx context.Context, c Category) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE categories SET name = $3, description = $4, updated_at = NOW()
		WHERE client_id = $1 AND id = $2`,
		c.ClientID, c.ID, c.Name, c.Description)
	if err != nil {
		return classifyUnique(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: category %d", httpx.ErrNotFound, c.ID)
	}
	return nil
}

// Delete removes a category.
func (r *Repository) Delete(ctx context.Context, clientID uuid.UUID, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE client_id = $1 AND id = $2`, clientID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: category %d", httpx.ErrNotFound, id)
	}
	return nil
}

func classifyUnique(err error) error {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) && pgErr.SQLState() == "23505" {
		return fmt.Errorf("%w: category name already exists", httpx.ErrDuplicate)
	}
	return err
}
