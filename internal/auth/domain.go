package auth

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// User is an account that can authenticate against the API. Every user
// belongs to exactly one client tenant.
type User struct {
	ID           int64
	ClientID     uuid.UUID
	Email        string
	Name         string
	PasswordHash string
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// User status values.
const (
	UserActive   = "ACTIVE"
	UserInactive = "INACTIVE"
)

// ErrInvalidCredentials is returned for unknown emails and wrong passwords
// alike, so a caller cannot probe which accounts exist.
var ErrInvalidCredentials = errors.New("invalid credentials")
