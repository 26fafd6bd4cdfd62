// Package categories manages product categories, tenant scoped.
package categories

import (
	"time"

	"github.com/google/uuid"
)

// Category groups products for listing and reporting. Name is unique per
// tenant, case-insensitive.
type Category struct {
	ID          int64
	ClientID    uuid.UUID
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
