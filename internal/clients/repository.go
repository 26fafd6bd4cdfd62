package clients

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/enstockapp/mono-stock/internal/platform/httpx"
)

// Repository persists clients in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get loads one client by id.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Client, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, name, main_currency, status, created_at, updated_at FROM clients WHERE id = $1`, id)

	var c Client
	if err := row.Scan(&c.ID, &c.Name, &c.MainCurrency, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Client{}, fmt.Errorf("%w: client %s", httpx.ErrNotFound, id)
		}
		return Client{}, err
	}
	return c, nil
}

// Create inserts a new client.
func (r *Repository) Create(ctx context.Context, c Client) (Client, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO clients (id, name, main_currency, status) VALUES ($1, $2, $3, $4) RETURNING created_at, updated_at`,
		c.ID, c.Name, c.MainCurrency, c.Status)
	if err := row.Scan(&c.CreatedAt, &c.UpdatedAt); err != nil {
		return Client{}, err
	}
	return c, nil
}
