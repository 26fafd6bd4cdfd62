package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/enstockapp/mono-stock/internal/platform/httpx"
)

// Repository persists users in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userCols = `id, client_id, email, name, password_hash, status, created_at, updated_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.ClientID, &u.Email, &u.Name, &u.PasswordHash, &u.Status, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// GetByEmail loads a user by case-insensitive email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE lower(email) = lower($1)`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, fmt.Errorf("%w: user %q", httpx.ErrNotFound, email)
	}
	return u, err
}

// GetByID loads a user by id.
func (r *Repository) GetByID(ctx context.Context, id int64) (User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, fmt.Errorf("%w: user %d", httpx.ErrNotFound, id)
	}
	return u, err
}

// Create inserts a user.
func (r *Repository) Create(ctx context.Context, u User) (User, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (client_id, email, name, password_hash, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`,
		u.ClientID, u.Email, u.Name, u.PasswordHash, u.Status)
	if err := row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		var pgErr interface{ SQLState() string }
		if errors.As(err, &pgErr) && pgErr.SQLState() == "23505" {
			return User{}, fmt.Errorf("%w: email already registered", httpx.ErrDuplicate)
		}
		return User{}, err
	}
	return u, nil
}

// UpdatePassword swaps the stored hash.
func (r *Repository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, hash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: user %d", httpx.ErrNotFound, id)
	}
	return nil
}
