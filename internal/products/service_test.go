package products

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/enstockapp/mono-stock/internal/platform/httpx"
	"github.com/enstockapp/mono-stock/internal/shared"
	"github.com/enstockapp/mono-stock/internal/variants"
)

type fakeRepo struct {
	products   map[int64]Product
	nextID     int64
	nextStock  int64
	locked     []int64
	insertFail error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{products: map[int64]Product{}, nextID: 1, nextStock: 1}
}

func (f *fakeRepo) Insert(_ context.Context, p Product, lockDimensions []int64) (Product, error) {
	if f.insertFail != nil {
		return Product{}, f.insertFail
	}
	p.ID = f.nextID
	f.nextID++
	for i := range p.Stocks {
		p.Stocks[i].ID = f.nextStock
		p.Stocks[i].ProductID = p.ID
		f.nextStock++
	}
	f.products[p.ID] = p
	f.locked = append(f.locked, lockDimensions...)
	return p, nil
}

func (f *fakeRepo) GetByID(_ context.Context, clientID uuid.UUID, id int64) (Product, error) {
	p, ok := f.products[id]
	if !ok || p.ClientID != clientID {
		return Product{}, fmt.Errorf("%w: product %d", httpx.ErrNotFound, id)
	}
	return p, nil
}

func (f *fakeRepo) GetByName(_ context.Context, clientID uuid.UUID, name string) (Product, error) {
	for _, p := range f.products {
		if p.ClientID == clientID && shared.NameKey(p.Name) == shared.NameKey(name) {
			return p, nil
		}
	}
	return Product{}, fmt.Errorf("%w: product %q", httpx.ErrNotFound, name)
}

func (f *fakeRepo) List(_ context.Context, clientID uuid.UUID, _ shared.Pagination, includeInactive bool) ([]Product, error) {
	var out []Product
	for id := int64(1); id < f.nextID; id++ {
		p, ok := f.products[id]
		if !ok || p.ClientID != clientID {
			continue
		}
		if !includeInactive && p.Status != StatusActive {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeRepo) Update(_ context.Context, p Product) error {
	if _, ok := f.products[p.ID]; !ok {
		return fmt.Errorf("%w: product %d", httpx.ErrNotFound, p.ID)
	}
	f.products[p.ID] = p
	return nil
}

func (f *fakeRepo) SetStockStatus(_ context.Context, clientID uuid.UUID, stockID int64, status Status) error {
	for id, p := range f.products {
		if p.ClientID != clientID {
			continue
		}
		for i, s := range p.Stocks {
			if s.ID == stockID {
				p.Stocks[i].Status = status
				f.products[id] = p
				return nil
			}
		}
	}
	return fmt.Errorf("%w: sku %d", httpx.ErrNotFound, stockID)
}

type fakeEngine struct {
	dims []variants.Variant
}

func (f *fakeEngine) ValidateCombinations(_ context.Context, _ uuid.UUID, combinations [][]int64) ([]variants.Variant, error) {
	if len(f.dims) == 0 {
		return nil, fmt.Errorf("%w: the client has no variants configured", httpx.ErrNotFound)
	}
	return variants.CheckCombinations(f.dims, combinations)
}

func twoDimensions() []variants.Variant {
	return []variants.Variant{
		{ID: 1, Name: "Size", Options: []variants.Option{{ID: 11, VariantID: 1}, {ID: 12, VariantID: 1}}},
		{ID: 2, Name: "Color", Options: []variants.Option{{ID: 21, VariantID: 2}, {ID: 22, VariantID: 2}, {ID: 23, VariantID: 2}}},
	}
}

func TestCreateUniqueSeedsCostTriad(t *testing.T) {
	svc := NewService(newFakeRepo(), &fakeEngine{})

	p, err := svc.CreateUnique(context.Background(), uuid.New(), CreateUniqueInput{
		Name:            "Standalone",
		Price:           19.99,
		BaseCost:        7.50,
		InitialQuantity: 12,
	})
	require.NoError(t, err)
	require.Equal(t, KindUnique, p.Kind)
	require.Equal(t, 7.50, p.BaseCost)
	require.Equal(t, 7.50, p.AverageCost)
	require.Equal(t, 12.0, p.TotalForAverageCost)
	require.Len(t, p.Stocks, 1)
	require.Empty(t, p.Stocks[0].OptionCombination)
	require.Equal(t, 12.0, p.Stocks[0].Quantity)
	require.Equal(t, 12.0, p.Stocks[0].InitialQuantity)
	require.Equal(t, 7.50, p.Stocks[0].Cost)
	require.Equal(t, StatusActive, p.Stocks[0].Status)
}

func TestCreateUniqueRejectsDuplicateNameCaseInsensitive(t *testing.T) {
	svc := NewService(newFakeRepo(), &fakeEngine{})
	clientID := uuid.New()

	_, err := svc.CreateUnique(context.Background(), clientID, CreateUniqueInput{Name: "Widget"})
	require.NoError(t, err)

	_, err = svc.CreateUnique(context.Background(), clientID, CreateUniqueInput{Name: "WIDGET"})
	require.ErrorIs(t, err, httpx.ErrDuplicate)
}

func TestCreateUniqueAllowsSameNameAcrossTenants(t *testing.T) {
	svc := NewService(newFakeRepo(), &fakeEngine{})

	_, err := svc.CreateUnique(context.Background(), uuid.New(), CreateUniqueInput{Name: "Widget"})
	require.NoError(t, err)
	_, err = svc.CreateUnique(context.Background(), uuid.New(), CreateUniqueInput{Name: "Widget"})
	require.NoError(t, err)
}

func TestCreateParentExpandsFullCartesianProduct(t *testing.T) {
	engine := &fakeEngine{dims: twoDimensions()}
	svc := NewService(newFakeRepo(), engine)

	p, err := svc.CreateParent(context.Background(), uuid.New(), CreateParentInput{
		Name:     "Shirt",
		Price:    25,
		BaseCost: 10,
		Combinations: []CombinationInput{
			{OptionIDs: []int64{11, 21}, InitialQuantity: 4},
			{OptionIDs: []int64{12, 22}, InitialQuantity: 6},
		},
	})
	require.NoError(t, err)
	require.Equal(t, KindParent, p.Kind)
	require.Len(t, p.Stocks, 6)
	require.Equal(t, 10.0, p.TotalForAverageCost)
	require.Equal(t, 10.0, p.AverageCost)

	byKey := map[string]ProductStock{}
	for _, s := range p.Stocks {
		require.Equal(t, 10.0, s.Cost)
		byKey[s.OptionCombination.Key()] = s
	}

	supplied := byKey[variants.Canonical([]int64{11, 21}).Key()]
	require.Equal(t, 4.0, supplied.Quantity)
	require.Equal(t, 4.0, supplied.InitialQuantity)
	require.Equal(t, StatusActive, supplied.Status)

	generated := byKey[variants.Canonical([]int64{11, 22}).Key()]
	require.Equal(t, 0.0, generated.Quantity)
	require.Equal(t, 0.0, generated.InitialQuantity)
	require.Equal(t, StatusInactive, generated.Status)
}

func TestCreateParentLocksDimensionsWithInsert(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, &fakeEngine{dims: twoDimensions()})

	_, err := svc.CreateParent(context.Background(), uuid.New(), CreateParentInput{
		Name:     "Shirt",
		BaseCost: 10,
		Combinations: []CombinationInput{
			{OptionIDs: []int64{11, 21}, InitialQuantity: 1},
		},
	})
	require.NoError(t, err)
	require.ElementsMatch(t, []int64{1, 2}, repo.locked)
}

func TestCreateParentInsertFailureLeavesDimensionsUnlocked(t *testing.T) {
	repo := newFakeRepo()
	repo.insertFail = fmt.Errorf("%w: option combination already exists", httpx.ErrDuplicate)
	svc := NewService(repo, &fakeEngine{dims: twoDimensions()})

	_, err := svc.CreateParent(context.Background(), uuid.New(), CreateParentInput{
		Name:     "Shirt",
		BaseCost: 10,
		Combinations: []CombinationInput{
			{OptionIDs: []int64{11, 21}, InitialQuantity: 1},
		},
	})
	require.ErrorIs(t, err, httpx.ErrDuplicate)
	require.Empty(t, repo.locked)
}

func TestCreateParentRejectsInvalidCombinations(t *testing.T) {
	engine := &fakeEngine{dims: twoDimensions()}
	svc := NewService(newFakeRepo(), engine)

	_, err := svc.CreateParent(context.Background(), uuid.New(), CreateParentInput{
		Name:     "Shirt",
		BaseCost: 10,
		Combinations: []CombinationInput{
			{OptionIDs: []int64{11, 21}, InitialQuantity: 1},
			{OptionIDs: []int64{21, 11}, InitialQuantity: 2},
		},
	})
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestCreateParentRejectsCombinationCoveringOneDimension(t *testing.T) {
	svc := NewService(newFakeRepo(), &fakeEngine{dims: twoDimensions()})

	_, err := svc.CreateParent(context.Background(), uuid.New(), CreateParentInput{
		Name:     "Shirt",
		BaseCost: 10,
		Combinations: []CombinationInput{
			{OptionIDs: []int64{11}, InitialQuantity: 1},
		},
	})
	require.ErrorIs(t, err, httpx.ErrValidation)
	require.Contains(t, err.Error(), "length 2")
}

func TestCreateParentRejectsEmptyCombination(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, &fakeEngine{dims: twoDimensions()})

	// An empty combination must not slip through and produce a parent
	// product with no stock rows.
	_, err := svc.CreateParent(context.Background(), uuid.New(), CreateParentInput{
		Name:         "Shirt",
		BaseCost:     10,
		Combinations: []CombinationInput{{OptionIDs: []int64{}}},
	})
	require.ErrorIs(t, err, httpx.ErrValidation)
	require.Empty(t, repo.products)
}

func TestCreateParentNoDimensionsConfigured(t *testing.T) {
	svc := NewService(newFakeRepo(), &fakeEngine{})

	_, err := svc.CreateParent(context.Background(), uuid.New(), CreateParentInput{
		Name:         "Shirt",
		BaseCost:     10,
		Combinations: []CombinationInput{{OptionIDs: []int64{11}, InitialQuantity: 1}},
	})
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestUpdateRenameChecksUniqueness(t *testing.T) {
	svc := NewService(newFakeRepo(), &fakeEngine{})
	clientID := uuid.New()

	first, err := svc.CreateUnique(context.Background(), clientID, CreateUniqueInput{Name: "First"})
	require.NoError(t, err)
	_, err = svc.CreateUnique(context.Background(), clientID, CreateUniqueInput{Name: "Second"})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), clientID, first.ID, UpdateInput{Name: "second"})
	require.ErrorIs(t, err, httpx.ErrDuplicate)

	price := 99.0
	updated, err := svc.Update(context.Background(), clientID, first.ID, UpdateInput{Name: "Renamed", Price: &price})
	require.NoError(t, err)
	require.Equal(t, "Renamed", updated.Name)
	require.Equal(t, 99.0, updated.Price)
}

func TestUpdateDoesNotTouchAverageCost(t *testing.T) {
	svc := NewService(newFakeRepo(), &fakeEngine{})
	clientID := uuid.New()

	p, err := svc.CreateUnique(context.Background(), clientID, CreateUniqueInput{Name: "Widget", BaseCost: 5, InitialQuantity: 3})
	require.NoError(t, err)

	base := 8.0
	updated, err := svc.Update(context.Background(), clientID, p.ID, UpdateInput{BaseCost: &base})
	require.NoError(t, err)
	require.Equal(t, 8.0, updated.BaseCost)
	require.Equal(t, 5.0, updated.AverageCost)
	require.Equal(t, 3.0, updated.TotalForAverageCost)
}

func TestSetStockStatusValidatesStatus(t *testing.T) {
	svc := NewService(newFakeRepo(), &fakeEngine{})

	err := svc.SetStockStatus(context.Background(), uuid.New(), 1, Status("PAUSED"))
	require.ErrorIs(t, err, httpx.ErrValidation)
}
