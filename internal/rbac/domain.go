// Package rbac provides role-based access control for tenant users.
package rbac

import "time"

// Role represents a high-level permission grouping.
type Role struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Permission represents an atomic capability such as "stock.edit".
type Permission struct {
	ID          int64
	Name        string
	Description string
}
