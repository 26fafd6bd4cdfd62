package products

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/enstockapp/mono-stock/internal/platform/httpx"
	"github.com/enstockapp/mono-stock/internal/shared"
	"github.com/enstockapp/mono-stock/internal/variants"
)

// RepositoryPort abstracts persistence for the service. Insert persists the
// product, its stock rows and the dimension lock as one unit of work.
type RepositoryPort interface {
	Insert(ctx context.Context, p Product, lockDimensions []int64) (Product, error)
	GetByID(ctx context.Context, clientID uuid.UUID, id int64) (Product, error)
	GetByName(ctx context.Context, clientID uuid.UUID, name string) (Product, error)
	List(ctx context.Context, clientID uuid.UUID, page shared.Pagination, includeInactive bool) ([]Product, error)
	Update(ctx context.Context, p Product) error
	SetStockStatus(ctx context.Context, clientID uuid.UUID, stockID int64, status Status) error
}

// VariantEngine is the slice of the variants service the product flow needs.
type VariantEngine interface {
	ValidateCombinations(ctx context.Context, clientID uuid.UUID, combinations [][]int64) ([]variants.Variant, error)
}

// Service coordinates product creation and updates.
type Service struct {
	repo     RepositoryPort
	variants VariantEngine
}

// NewService builds Service.
func NewService(repo RepositoryPort, engine VariantEngine) *Service {
	return &Service{repo: repo, variants: engine}
}

// CreateUniqueInput describes a single-SKU product.
type CreateUniqueInput struct {
	Name            string
	Description     string
	Price           float64
	BaseCost        float64
	InitialQuantity float64
	Status          Status
}

// CreateUnique registers a product with exactly one stock row. The average
// cost starts at the base cost and the weighting total at the initial
// quantity, so the first purchase line folds into a meaningful average.
func (s *Service) CreateUnique(ctx context.Context, clientID uuid.UUID, input CreateUniqueInput) (Product, error) {
	if err := s.checkCommon(ctx, clientID, input.Name, input.Price, input.BaseCost); err != nil {
		return Product{}, err
	}
	if input.InitialQuantity < 0 {
		return Product{}, fmt.Errorf("%w: initial quantity cannot be negative", httpx.ErrValidation)
	}
	status := input.Status
	if status == "" {
		status = StatusActive
	}

	return s.repo.Insert(ctx, Product{
		ClientID:            clientID,
		Name:                input.Name,
		Description:         input.Description,
		Kind:                KindUnique,
		Price:               input.Price,
		BaseCost:            input.BaseCost,
		AverageCost:         input.BaseCost,
		TotalForAverageCost: input.InitialQuantity,
		Status:              StatusActive,
		Stocks: []ProductStock{{
			Quantity:        input.InitialQuantity,
			InitialQuantity: input.InitialQuantity,
			Cost:            input.BaseCost,
			Status:          status,
		}},
	}, nil)
}

// CombinationInput is one client-supplied SKU of a parent product.
type CombinationInput struct {
	OptionIDs       []int64
	InitialQuantity float64
	Status          Status
}

// CreateParentInput describes a variant-bearing product.
type CreateParentInput struct {
	Name         string
	Description  string
	Price        float64
	BaseCost     float64
	Combinations []CombinationInput
}

// CreateParent registers a product whose SKU set is the full cartesian product
// of the tenant's configured dimensions. Supplied combinations keep their
// initial quantity and status; every other combination is materialised with
// quantity zero and inactive status so the SKU set is never a subset of the
// enumeration. The dimensions are locked in the same transaction as the
// insert, so a failed insert leaves them editable.
func (s *Service) CreateParent(ctx context.Context, clientID uuid.UUID, input CreateParentInput) (Product, error) {
	if err := s.checkCommon(ctx, clientID, input.Name, input.Price, input.BaseCost); err != nil {
		return Product{}, err
	}
	if len(input.Combinations) == 0 {
		return Product{}, fmt.Errorf("%w: at least one option combination is required", httpx.ErrValidation)
	}

	raw := make([][]int64, len(input.Combinations))
	for i, c := range input.Combinations {
		if c.InitialQuantity < 0 {
			return Product{}, fmt.Errorf("%w: initial quantity cannot be negative", httpx.ErrValidation)
		}
		raw[i] = c.OptionIDs
	}
	dims, err := s.variants.ValidateCombinations(ctx, clientID, raw)
	if err != nil {
		return Product{}, err
	}

	supplied := make(map[string]CombinationInput, len(input.Combinations))
	for _, c := range input.Combinations {
		supplied[variants.Canonical(c.OptionIDs).Key()] = c
	}

	var totalInitial float64
	var stocks []ProductStock
	for _, combo := range variants.Enumerate(dims) {
		stockRow := ProductStock{
			OptionCombination: combo,
			Cost:              input.BaseCost,
			Status:            StatusInactive,
		}
		if c, ok := supplied[combo.Key()]; ok {
			stockRow.Quantity = c.InitialQuantity
			stockRow.InitialQuantity = c.InitialQuantity
			stockRow.Status = StatusActive
			if c.Status != "" {
				stockRow.Status = c.Status
			}
			totalInitial += c.InitialQuantity
		}
		stocks = append(stocks, stockRow)
	}

	dimIDs := make([]int64, len(dims))
	for i, d := range dims {
		dimIDs[i] = d.ID
	}

	return s.repo.Insert(ctx, Product{
		ClientID:            clientID,
		Name:                input.Name,
		Description:         input.Description,
		Kind:                KindParent,
		Price:               input.Price,
		BaseCost:            input.BaseCost,
		AverageCost:         input.BaseCost,
		TotalForAverageCost: totalInitial,
		Status:              StatusActive,
		Stocks:              stocks,
	}, dimIDs)
}

// GetByID resolves one product with its SKUs.
func (s *Service) GetByID(ctx context.Context, clientID uuid.UUID, id int64) (Product, error) {
	return s.repo.GetByID(ctx, clientID, id)
}

// GetByName resolves one product by case-insensitive name.
func (s *Service) GetByName(ctx context.Context, clientID uuid.UUID, name string) (Product, error) {
	return s.repo.GetByName(ctx, clientID, name)
}

// List pages through the tenant's products.
func (s *Service) List(ctx context.Context, clientID uuid.UUID, page shared.Pagination, includeInactive bool) ([]Product, error) {
	return s.repo.List(ctx, clientID, page, includeInactive)
}

// UpdateInput carries the manually editable product fields. Cost-triad fields
// other than BaseCost are owned by purchase lines and not updatable here.
type UpdateInput struct {
	Name        string
	Description string
	Price       *float64
	BaseCost    *float64
	Status      Status
}

// Update edits a product's metadata, price, base cost or status.
func (s *Service) Update(ctx context.Context, clientID uuid.UUID, id int64, input UpdateInput) (Product, error) {
	current, err := s.repo.GetByID(ctx, clientID, id)
	if err != nil {
		return Product{}, err
	}
	if input.Name != "" && shared.NameKey(input.Name) != shared.NameKey(current.Name) {
		if err := s.ensureNameFree(ctx, clientID, input.Name); err != nil {
			return Product{}, err
		}
		current.Name = input.Name
	}
	if input.Description != "" {
		current.Description = input.Description
	}
	if input.Price != nil {
		if *input.Price < 0 {
			return Product{}, fmt.Errorf("%w: price cannot be negative", httpx.ErrValidation)
		}
		current.Price = *input.Price
	}
	if input.BaseCost != nil {
		if *input.BaseCost < 0 {
			return Product{}, fmt.Errorf("%w: base cost cannot be negative", httpx.ErrValidation)
		}
		current.BaseCost = *input.BaseCost
	}
	if input.Status != "" {
		current.Status = input.Status
	}
	if err := s.repo.Update(ctx, current); err != nil {
		return Product{}, err
	}
	return s.repo.GetByID(ctx, clientID, id)
}

// SetStockStatus activates or deactivates one SKU.
func (s *Service) SetStockStatus(ctx context.Context, clientID uuid.UUID, stockID int64, status Status) error {
	if status != StatusActive && status != StatusInactive {
		return fmt.Errorf("%w: unknown status %q", httpx.ErrValidation, status)
	}
	return s.repo.SetStockStatus(ctx, clientID, stockID, status)
}

func (s *Service) checkCommon(ctx context.Context, clientID uuid.UUID, name string, price, baseCost float64) error {
	if name == "" {
		return fmt.Errorf("%w: product name is required", httpx.ErrValidation)
	}
	if price < 0 {
		return fmt.Errorf("%w: price cannot be negative", httpx.ErrValidation)
	}
	if baseCost < 0 {
		return fmt.Errorf("%w: base cost cannot be negative", httpx.ErrValidation)
	}
	return s.ensureNameFree(ctx, clientID, name)
}

func (s *Service) ensureNameFree(ctx context.Context, clientID uuid.UUID, name string) error {
	_, err := s.repo.GetByName(ctx, clientID, name)
	if err == nil {
		return fmt.Errorf("%w: a product named %q already exists", httpx.ErrDuplicate, name)
	}
	if errors.Is(err, httpx.ErrNotFound) {
		return nil
	}
	return err
}
