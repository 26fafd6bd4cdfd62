package rbac

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/enstockapp/mono-stock/internal/platform/httpx"
)

// Service orchestrates RBAC storage.
type Service struct {
	pool *pgxpool.Pool
}

// NewService constructs a Service backed by the provided pool.
func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

// EffectivePermissions returns the distinct permission names granted to a user
// through its roles. Called once at login; the result travels with the session.
func (s *Service) EffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT p.name
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		JOIN user_roles ur ON ur.role_id = rp.role_id
		WHERE ur.user_id = $1
		ORDER BY p.name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		perms = append(perms, strings.ToLower(name))
	}
	return perms, rows.Err()
}

// ListRoles returns all roles ordered by name.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, description, created_at, updated_at FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		var r Role
		if err := rows.Scan(&r.ID, &r.Name, &r.Description, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	return roles, rows.Err()
}

// CreateRole inserts a new role.
func (s *Service) CreateRole(ctx context.Context, name, description string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, fmt.Errorf("%w: role name required", httpx.ErrValidation)
	}
	r := Role{Name: name, Description: strings.TrimSpace(description)}
	row := s.pool.QueryRow(ctx,
		`INSERT INTO roles (name, description) VALUES ($1, $2) RETURNING id, created_at, updated_at`,
		r.Name, r.Description)
	if err := row.Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return Role{}, err
	}
	return r, nil
}

// AssignRole links a user to a role.
func (s *Service) AssignRole(ctx context.Context, userID, roleID int64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		userID, roleID)
	return err
}

// GrantPermission attaches a permission to a role.
func (s *Service) GrantPermission(ctx context.Context, roleID, permissionID int64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		roleID, permissionID)
	return err
}

// EnsurePermission upserts a permission by name.
func (s *Service) EnsurePermission(ctx context.Context, name, description string) (Permission, error) {
	p := Permission{Name: strings.ToLower(strings.TrimSpace(name)), Description: strings.TrimSpace(description)}
	if p.Name == "" {
		return Permission{}, fmt.Errorf("%w: permission name required", httpx.ErrValidation)
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO permissions (name, description) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET description = EXCLUDED.description
		RETURNING id`, p.Name, p.Description)
	if err := row.Scan(&p.ID); err != nil {
		return Permission{}, err
	}
	return p, nil
}

// GetRole fetches a role by id.
func (s *Service) GetRole(ctx context.Context, id int64) (Role, error) {
	var r Role
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, description, created_at, updated_at FROM roles WHERE id = $1`, id)
	if err := row.Scan(&r.ID, &r.Name, &r.Description, &r.CreatedAt, &r.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, fmt.Errorf("%w: role %d", httpx.ErrNotFound, id)
		}
		return Role{}, err
	}
	return r, nil
}
