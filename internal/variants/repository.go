package variants

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/enstockapp/mono-stock/internal/platform/httpx"
)

// Repository persists variant dimensions and options in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListByClient loads all dimensions with their options for a tenant.
func (r *Repository) ListByClient(ctx context.Context, clientID uuid.UUID) ([]Variant, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, client_id, name, description, can_edit, created_at, updated_at FROM variants WHERE client_id = $1 ORDER BY id`,
		clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dims []Variant
	byID := map[int64]int{}
	for rows.Next() {
		var v Variant
		if err := rows.Scan(&v.ID, &v.ClientID, &v.Name, &v.Description, &v.CanEdit, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, err
		}
		byID[v.ID] = len(dims)
		dims = append(dims, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(dims) == 0 {
		return nil, nil
	}

	optRows, err := r.pool.Query(ctx,
		`SELECT o.id, o.variant_id, o.name FROM variant_options o JOIN variants v ON v.id = o.variant_id WHERE v.client_id = $1 ORDER BY o.id`,
		clientID)
	if err != nil {
		return nil, err
	}
	defer optRows.Close()

	for optRows.Next() {
		var opt Option
		if err := optRows.Scan(&opt.ID, &opt.VariantID, &opt.Name); err != nil {
			return nil, err
		}
		if idx, ok := byID[opt.VariantID]; ok {
			dims[idx].Options = append(dims[idx].Options, opt)
		}
	}
	return dims, optRows.Err()
}

// GetByID loads one dimension with options, tenant scoped.
func (r *Repository) GetByID(ctx context.Context, clientID uuid.UUID, id int64) (Variant, error) {
	return r.getBy(ctx, clientID, `id = $2`, id)
}

// GetByName loads one dimension by case-insensitive name, tenant scoped.
func (r *Repository) GetByName(ctx context.Context, clientID uuid.UUID, name string) (Variant, error) {
	return r.getBy(ctx, clientID, `lower(name) = lower($2)`, name)
}

func (r *Repository) getBy(ctx context.Context, clientID uuid.UUID, cond string, arg any) (Variant, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, client_id, name, description, can_edit, created_at, updated_at FROM variants WHERE client_id = $1 AND `+cond,
		clientID, arg)

	var v Variant
	if err := row.Scan(&v.ID, &v.ClientID, &v.Name, &v.Description, &v.CanEdit, &v.CreatedAt, &v.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Variant{}, fmt.Errorf("%w: variant %v", httpx.ErrNotFound, arg)
		}
		return Variant{}, err
	}

	rows, err := r.pool.Query(ctx, `SELECT id, variant_id, name FROM variant_options WHERE variant_id = $1 ORDER BY id`, v.ID)
	if err != nil {
		return Variant{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var opt Option
		if err := rows.Scan(&opt.ID, &opt.VariantID, &opt.Name); err != nil {
			return Variant{}, err
		}
		v.Options = append(v.Options, opt)
	}
	return v, rows.Err()
}

// Insert stores a dimension and its options atomically.
func (r *Repository) Insert(ctx context.Context, v Variant, optionNames []string) (Variant, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Variant{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx,
		`INSERT INTO variants (client_id, name, description, can_edit) VALUES ($1, $2, $3, TRUE) RETURNING id, created_at, updated_at`,
		v.ClientID, v.Name, v.Description)
	if err := row.Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt); err != nil {
		return Variant{}, classifyUnique(err, "variant name")
	}
	v.CanEdit = true

	for _, name := range optionNames {
		var opt Option
		optRow := tx.QueryRow(ctx,
			`INSERT INTO variant_options (variant_id, name) VALUES ($1, $2) RETURNING id`, v.ID, name)
		if err := optRow.Scan(&opt.ID); err != nil {
			return Variant{}, classifyUnique(err, "option name")
		}
		opt.VariantID = v.ID
		opt.Name = name
		v.Options = append(v.Options, opt)
	}

	if err := tx.Commit(ctx); err != nil {
		return Variant{}, err
	}
	return v, nil
}

// UpdateMeta renames a dimension or its description.
func (r *Repository) UpdateMeta(ctx context.Context, clientID uuid.UUID, id int64, name, description string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE variants SET name = COALESCE(NULLIF($3, ''), name), description = $4, updated_at = NOW() WHERE client_id = $1 AND id = $2`,
		clientID, id, name, description)
	if err != nil {
		return classifyUnique(err, "variant name")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: variant %d", httpx.ErrNotFound, id)
	}
	return nil
}

// InsertOption adds an option to an unlocked dimension.
func (r *Repository) InsertOption(ctx context.Context, variantID int64, name string) (Option, error) {
	opt := Option{VariantID: variantID, Name: name}
	row := r.pool.QueryRow(ctx, `INSERT INTO variant_options (variant_id, name) VALUES ($1, $2) RETURNING id`, variantID, name)
	if err := row.Scan(&opt.ID); err != nil {
		return Option{}, classifyUnique(err, "option name")
	}
	return opt, nil
}

// RenameOption renames an option in place.
func (r *Repository) RenameOption(ctx context.Context, variantID, optionID int64, name string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE variant_options SET name = $3 WHERE variant_id = $1 AND id = $2`, variantID, optionID, name)
	if err != nil {
		return classifyUnique(err, "option name")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: option %d", httpx.ErrNotFound, optionID)
	}
	return nil
}

// DeleteOption removes an option from an unlocked dimension.
func (r *Repository) DeleteOption(ctx context.Context, variantID, optionID int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM variant_options WHERE variant_id = $1 AND id = $2`, variantID, optionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: option %d", httpx.ErrNotFound, optionID)
	}
	return nil
}

// Delete removes a dimension and, by cascade, its options.
func (r *Repository) Delete(ctx context.Context, clientID uuid.UUID, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM variants WHERE client_id = $1 AND id = $2`, clientID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: variant %d", httpx.ErrNotFound, id)
	}
	return nil
}

// classifyUnique reclassifies storage unique-violations into the Duplicate
// taxonomy kind instead of leaking raw driver errors to callers.
func classifyUnique(err error, what string) error {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) && pgErr.SQLState() == "23505" {
		return fmt.Errorf("%w: %s already exists", httpx.ErrDuplicate, what)
	}
	return err
}
