package suppliers

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
	List(ctx context.Context, clientID uuid.UUID, page shared.Pagination) ([]Supplier, error)
	GetByID(ctx context.Context, clientID uuid.UUID, id int64) (Supplier, error)
	GetByName(ctx context.Context, clientID uuid.UUID, name string) (Supplier, error)
	Create(ctx context.Context, s Supplier) (Supplier, error)
	Update(ctx context.Context, s Supplier) error
	Delete(ctx context.Context, clientID uuid.UUID, id int64) error
}

// Service manages the supplier directory.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// List pages through the tenant's suppliers.
func (s *Service) List(ctx context.Context, clientID uuid.UUID, page shared.Pagination) ([]Supplier, error) {
	return s.repo.List(ctx, clientID, page)
}

// GetByID resolves one supplier.
func (s *Service) GetByID(ctx context.Context, clientID uuid.UUID, id int64) (Supplier, error) {
	return s.repo.GetByID(ctx, clientID, id)
}

// GetByName resolves one supplier by case-insensitive name.
func (s *Service) GetByName(ctx context.Context, clientID uuid.UUID, name string) (Supplier, error) {
	return s.repo.GetByName(ctx, clientID, name)
}

// Create registers a supplier after checking name uniqueness.
func (s *Service) Create(ctx context.Context, clientID uuid.UUID, input Supplier) (Supplier, error) {
	if input.Name == "" {
		return Supplier{}, fmt.Errorf("%w: supplier name is required", httpx.ErrValidation)
	}
	if err := s.ensureNameFree(ctx, clientID, input.Name); err != nil {
		return Supplier{}, err
	}
	input.ClientID = clientID
	return s.repo.Create(ctx, input)
}

// Update edits a supplier, re-checking name uniqueness on rename.
func (s *Service) Update(ctx context.Context, clientID uuid.UUID, id int64, input Supplier) (Supplier, error) {
	current, err := s.repo.GetByID(ctx, clientID, id)
	if err != nil {
		return Supplier{}, err
	}
	if input.Name != "" && shared.NameKey(input.Name) != shared.NameKey(current.Name) {
		if err := s.ensureNameFree(ctx, clientID, input.Name); err != nil {
			return Supplier{}, err
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
		return Supplier{}, err
	}
	return current, nil
}

// Delete removes a supplier.
func (s *Service) Delete(ctx context.Context, clientID uuid.UUID, id int64) error {
	return s.repo.Delete(ctx, clientID, id)
}

func (s *Service) ensureNameFree(ctx context.Context, clientID uuid.UUID, name string) error {
	_, err := s.repo.GetByName(ctx, clientID, name)
	if err == nil {
		return fmt.Errorf("%w: a supplier named %q already exists", httpx.ErrDuplicate, name)
	}
	if errors.Is(err, httpx.ErrNotFound) {
		return nil
	}
	return err
}
