package customers

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/enstockapp/mono-stock/internal/platform/httpx"
	"github.com/enstockapp/mono-stock/internal/shared"
)

// RepositoryPort abstracts persistence for the service.
type RepositoryPort interface {
	List(ctx context.Context, clientID uuid.UUID, page shared.Pagination) ([]Customer, error)
	GetByID(ctx context.Context, clientID uuid.UUID, id int64) (Customer, error)
	GetByName(ctx context.Context, clientID uuid.UUID, name string) (Customer, error)
	Create(ctx context.Context, c Customer) (Customer, error)
	Update(ctx context.Context, c Customer) error
	Delete(ctx context.Context, clientID uuid.UUID, id int64) error
}

// Service manages the customer directory.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// List pages through the tenant's customers.
func (s *Service) List(ctx context.Context, clientID uuid.UUID, page shared.Pagination) ([]Customer, error) {
	return s.repo.List(ctx, clientID, page)
}

// GetByID resolves one customer.
func (s *Service) GetByID(ctx context.Context, clientID uuid.UUID, id int64) (Customer, error) {
	return s.repo.GetByID(ctx, clientID, id)
}

// GetByName resolves one customer by case-insensitive name.
func (s *Service) GetByName(ctx context.Context, clientID uuid.UUID, name string) (Customer, error) {
	return s.repo.GetByName(ctx, clientID, name)
}

// Create registers a customer after checking name uniqueness.
func (s *Service) Create(ctx context.Context, clientID uuid.UUID, input Customer) (Customer, error) {
	if input.Name == "" {
		return Customer{}, fmt.Errorf("%w: customer name is required", httpx.ErrValidation)
	}
	if err := s.ensureNameFree(ctx, clientID, input.Name); err != nil {
		return Customer{}, err
	}
	input.ClientID = clientID
	return s.repo.Create(ctx, input)
}

// Update edits a customer, re-checking name uniqueness on rename.
func (s *Service) Update(ctx context.Context, clientID uuid.UUID, id int64, input Customer) (Customer, error) {
	current, err := s.repo.GetByID(ctx, clientID, id)
	if err != nil {
		return Customer{}, err
	}
	if input.Name != "" && shared.NameKey(input.Name) != shared.NameKey(current.Name) {
		if err := s.ensureNameFree(ctx, clientID, input.Name); err != nil {
			return Customer{}, err
		}
		current.Name = input.Name
	}
	if input.TaxID != "" {
		current.TaxID = input.TaxID
	}
	if input.Phone != "" {
		current.Phone = input.Phone
	}
	if input.Email != "" {
		current.Email = input.Email
	}
	if input.Address != "" {
		current.Address = input.Address
	}
	if err := s.repo.Update(ctx, current); err != nil {
		return Customer{}, err
	}
	return current, nil
}

// Delete removes a customer.
func (s *Service) Delete(ctx context.Context, clientID uuid.UUID, id int64) error {
	return s.repo.Delete(ctx, clientID, id)
}

func (s *Service) ensureNameFree(ctx context.Context, clientID uuid.UUID, name string) error {
	_, err := s.repo.GetByName(ctx, clientID, name)
	if err == nil {
		return fmt.Errorf("%w: a customer named %q already exists", httpx.ErrDuplicate, name)
	}
	if errors.Is(err, httpx.ErrNotFound) {
		return nil
	}
	return err
}
