package clients

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/enstockapp/mono-stock/internal/currency"
	"github.com/enstockapp/mono-stock/internal/platform/httpx"
)

// RepositoryPort abstracts persistence for the service.
type RepositoryPort interface {
	Get(ctx context.Context, id uuid.UUID) (Client, error)
	Create(ctx context.Context, c Client) (Client, error)
}

// Service manages tenant accounts.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// RegisterInput describes a new tenant.
type RegisterInput struct {
	Name         string
	MainCurrency currency.Code
}

// Register creates a tenant account. The main currency defaults to USD and is
// immutable afterwards: every stored cost and total is denominated in it.
func (s *Service) Register(ctx context.Context, input RegisterInput) (Client, error) {
	if input.Name == "" {
		return Client{}, fmt.Errorf("%w: client name is required", httpx.ErrValidation)
	}
	if input.MainCurrency == "" {
		input.MainCurrency = currency.USD
	}
	if !input.MainCurrency.Valid() {
		return Client{}, fmt.Errorf("%w: unsupported currency %q", httpx.ErrValidation, input.MainCurrency)
	}
	return s.repo.Create(ctx, Client{
		ID:           uuid.New(),
		Name:         input.Name,
		MainCurrency: input.MainCurrency,
		Status:       StatusActive,
	})
}

// Get loads one tenant.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Client, error) {
	return s.repo.Get(ctx, id)
}
