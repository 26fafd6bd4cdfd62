package variants

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/enstockapp/mono-stock/internal/platform/httpx"
	"github.com/enstockapp/mono-stock/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	ListByClient(ctx context.Context, clientID uuid.UUID) ([]Variant, error)
	GetByID(ctx context.Context, clientID uuid.UUID, id int64) (Variant, error)
	GetByName(ctx context.Context, clientID uuid.UUID, name string) (Variant, error)
	Insert(ctx context.Context, v Variant, optionNames []string) (Variant, error)
	UpdateMeta(ctx context.Context, clientID uuid.UUID, id int64, name, description string) error
	InsertOption(ctx context.Context, variantID int64, name string) (Option, error)
	RenameOption(ctx context.Context, variantID, optionID int64, name string) error
	DeleteOption(ctx context.Context, variantID, optionID int64) error
	Delete(ctx context.Context, clientID uuid.UUID, id int64) error
}

// Service coordinates variant-dimension operations.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ErrLocked indicates the dimension is referenced by a product and frozen.
var ErrLocked = fmt.Errorf("%w: variant is in use and cannot be modified", httpx.ErrValidation)

// CreateInput describes a new dimension.
type CreateInput struct {
	Name        string
	Description string
	Options     []string
}

// Create registers a dimension with its initial option set.
func (s *Service) Create(ctx context.Context, clientID uuid.UUID, input CreateInput) (Variant, error) {
	if input.Name == "" {
		return Variant{}, fmt.Errorf("%w: variant name is required", httpx.ErrValidation)
	}
	if len(input.Options) == 0 {
		return Variant{}, fmt.Errorf("%w: at least one option is required", httpx.ErrValidation)
	}
	if !shared.AllNamesDifferent(input.Options) {
		return Variant{}, fmt.Errorf("%w: all option names must be different", httpx.ErrValidation)
	}
	if err := s.ensureNameFree(ctx, clientID, input.Name); err != nil {
		return Variant{}, err
	}
	return s.repo.Insert(ctx, Variant{ClientID: clientID, Name: input.Name, Description: input.Description}, input.Options)
}

// List returns all dimensions configured for the tenant.
func (s *Service) List(ctx context.Context, clientID uuid.UUID) ([]Variant, error) {
	return s.repo.ListByClient(ctx, clientID)
}

// GetByID resolves one dimension by id.
func (s *Service) GetByID(ctx context.Context, clientID uuid.UUID, id int64) (Variant, error) {
	return s.repo.GetByID(ctx, clientID, id)
}

// GetByName resolves one dimension by case-insensitive name.
func (s *Service) GetByName(ctx context.Context, clientID uuid.UUID, name string) (Variant, error) {
	return s.repo.GetByName(ctx, clientID, name)
}

// OptionUpdate mutates one option of an unlocked dimension. A zero ID adds a
// new option, an empty name deletes the option, otherwise it renames.
type OptionUpdate struct {
	ID   int64
	Name string
}

// UpdateInput carries dimension updates.
type UpdateInput struct {
	Name        string
	Description string
	Options     []OptionUpdate
}

// Update edits a dimension. Locked dimensions reject any change since their
// option set defines the identity of existing SKUs.
func (s *Service) Update(ctx context.Context, clientID uuid.UUID, id int64, input UpdateInput) (Variant, error) {
	current, err := s.repo.GetByID(ctx, clientID, id)
	if err != nil {
		return Variant{}, err
	}
	if !current.CanEdit {
		return Variant{}, ErrLocked
	}
	if input.Name != "" && shared.NameKey(input.Name) != shared.NameKey(current.Name) {
		if err := s.ensureNameFree(ctx, clientID, input.Name); err != nil {
			return Variant{}, err
		}
	}

	existing := make(map[int64]bool, len(current.Options))
	for _, opt := range current.Options {
		existing[opt.ID] = true
	}
	for _, update := range input.Options {
		switch {
		case update.ID == 0 || !existing[update.ID]:
			if _, err := s.repo.InsertOption(ctx, id, update.Name); err != nil {
				return Variant{}, err
			}
		case update.Name == "":
			if err := s.repo.DeleteOption(ctx, id, update.ID); err != nil {
				return Variant{}, err
			}
		default:
			if err := s.repo.RenameOption(ctx, id, update.ID, update.Name); err != nil {
				return Variant{}, err
			}
		}
	}

	if err := s.repo.UpdateMeta(ctx, clientID, id, input.Name, input.Description); err != nil {
		return Variant{}, err
	}
	return s.repo.GetByID(ctx, clientID, id)
}

// Delete removes an unlocked dimension.
func (s *Service) Delete(ctx context.Context, clientID uuid.UUID, id int64) error {
	current, err := s.repo.GetByID(ctx, clientID, id)
	if err != nil {
		return err
	}
	if !current.CanEdit {
		return ErrLocked
	}
	return s.repo.Delete(ctx, clientID, id)
}

// ValidateCombinations checks client-supplied option combinations against the
// tenant's configured dimensions and returns all of them. Every combination
// must cover the full dimension set, and the caller enumerates the full
// combination space from the returned dimensions.
func (s *Service) ValidateCombinations(ctx context.Context, clientID uuid.UUID, combinations [][]int64) ([]Variant, error) {
	dims, err := s.repo.ListByClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if len(dims) == 0 {
		return nil, fmt.Errorf("%w: the client has no variants configured", httpx.ErrNotFound)
	}
	return CheckCombinations(dims, combinations)
}

func (s *Service) ensureNameFree(ctx context.Context, clientID uuid.UUID, name string) error {
	_, err := s.repo.GetByName(ctx, clientID, name)
	if err == nil {
		return fmt.Errorf("%w: a variant named %q already exists", httpx.ErrDuplicate, name)
	}
	if errors.Is(err, httpx.ErrNotFound) {
		return nil
	}
	return err
}
