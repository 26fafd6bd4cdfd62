// Package clients manages tenant accounts. Every other entity in the system
// hangs off a client, and all core computations are scoped to exactly one.
package clients

import (
	"time"

	"github.com/google/uuid"

	"github.com/enstockapp/mono-stock/internal/currency"
)

// Status is the two-state entity lifecycle used across the system.
// Inactive is terminal; queries filter it out unless asked otherwise.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
)

// Client is a tenant account.
type Client struct {
	ID           uuid.UUID
	Name         string
	MainCurrency currency.Code
	Status       Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
