package categories

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
	List(ctx context.Context, clientID uuid.UUID, page shared.Pagination) ([]Category, error)
	GetByID(ctx context.Context, clientID uuid.UUID, id int64) (Category, error)
	GetByName(ctx context.Context, clientID uuid.UUID, name string) (Category, error)
	Create(ctx context.Context, c Category) (Category, error)
	Update(ctx context.Context, c Category) error
	Delete(ctx context.Context, clientID uuid.UUID, id int64) error
}

// Service manages product categories.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// List pages through the tenant's categories.
func (s *Service) List(ctx context.Context, clientID uuid.UUID, page shared.Pagination) ([]Category, error) {
	return s.repo.List(ctx, clientID, page)
}

// GetByID resolves one category.
func (s *Service) GetByID(ctx context.Context, clientID uuid.UUID, id int64) (Category, error) {
	return s.repo.GetByID(ctx, clientID, id)
}

// GetByName resolves one category by case-insensitive name.
func (s *Service) GetByName(ctx context.Context, clientID uuid.UUID, name string) (Category, error) {
	return s.repo.GetByName(ctx, clientID, name)
}

// Create registers a category after checking name uniqueness.
func (s *Service) Create(ctx context.Context, clientID uuid.UUID, input Category) (Category, error) {
	if input.Name == "" {
		return Category{}, fmt.Errorf("%w: category name is required", httpx.ErrValidation)
	}
	if err := s.ensureNameFree(ctx, clientID, input.Name); err != nil {
		return Category{}, err
	}
	input.ClientID = clientID
	return s.repo.Create(ctx, input)
}

// Update edits a category, re-checking name uniqueness on rename.
func (s *Service) Update(ctx context.Context, clientID uuid.UUID, id int64, input Category) (Category, error) {
	current, err := s.repo.GetByID(ctx, clientID, id)
	if err != nil {
		return Category{}, err
	}
	if input.Name != "" && shared.NameKey(input.Name) != shared.NameKey(current.Name) {
		if err := s.ensureNameFree(ctx, clientID, input.Name); err != nil {
			return Category{}, err
		}
		current.Name = input.Name
	}
	if input.Description != "" {
		current.Description = input.Description
	}
	if err := s.repo.Update(ctx, current); err != nil {
		return Category{}, err
	}
	return current, nil
}

// Delete removes a category.
func (s *Service) Delete(ctx context.Context, clientID uuid.UUID, id int64) error {
	return s.repo.Delete(ctx, clientID, id)
}

func (s *Service) ensureNameFree(ctx context.Context, clientID uuid.UUID, name string) error {
	_, err := s.repo.GetByName(ctx, clientID, name)
	if err == nil {
		return fmt.Errorf("%w: a category named %q already exists", httpx.ErrDuplicate, name)
	}
	if errors.Is(err, httpx.ErrNotFound) {
		return nil
	}
	return err
}
