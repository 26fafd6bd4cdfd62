// Package suppliers manages the tenant's supplier directory. Suppliers are
// the parties referenced by purchase documents.
package suppliers

import (
	"time"

	"github.com/google/uuid"
)

// Supplier is one supplier record, tenant scoped. Name is unique per tenant,
// case-insensitive.
type Supplier struct {
	ID        int64
	ClientID  uuid.UUID
	Name      string
	TaxID     string
	Phone     string
	Email     string
	Address   string
	CreatedAt time.Time
	UpdatedAt time.Time
}
