// Package customers manages the tenant's customer directory. Customers are
// the parties referenced by sale documents.
package customers

import (
	"time"

	"github.com/google/uuid"
)

// Customer is one customer record, tenant scoped. Name is unique per tenant,
// case-insensitive.
type Customer struct {
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
