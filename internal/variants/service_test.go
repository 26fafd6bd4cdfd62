package variants

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/enstockapp/mono-stock/internal/platform/httpx"
	"github.com/enstockapp/mono-stock/internal/shared"
)

type fakeRepo struct {
	variants    map[int64]Variant
	nextVariant int64
	nextOption  int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{variants: map[int64]Variant{}, nextVariant: 1, nextOption: 1}
}

func (f *fakeRepo) ListByClient(_ context.Context, clientID uuid.UUID) ([]Variant, error) {
	var out []Variant
	for id := int64(1); id < f.nextVariant; id++ {
		v, ok := f.variants[id]
		if ok && v.ClientID == clientID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeRepo) GetByID(_ context.Context, clientID uuid.UUID, id int64) (Variant, error) {
	v, ok := f.variants[id]
	if !ok || v.ClientID != clientID {
		return Variant{}, fmt.Errorf("%w: variant %d", httpx.ErrNotFound, id)
	}
	return v, nil
}

func (f *fakeRepo) GetByName(_ context.Context, clientID uuid.UUID, name string) (Variant, error) {
	for _, v := range f.variants {
		if v.ClientID == clientID && shared.NameKey(v.Name) == shared.NameKey(name) {
			return v, nil
		}
	}
	return Variant{}, fmt.Errorf("%w: variant %q", httpx.ErrNotFound, name)
}

func (f *fakeRepo) Insert(_ context.Context, v Variant, optionNames []string) (Variant, error) {
	v.ID = f.nextVariant
	f.nextVariant++
	v.CanEdit = true
	for _, name := range optionNames {
		v.Options = append(v.Options, Option{ID: f.nextOption, VariantID: v.ID, Name: name})
		f.nextOption++
	}
	f.variants[v.ID] = v
	return v, nil
}

func (f *fakeRepo) UpdateMeta(_ context.Context, clientID uuid.UUID, id int64, name, description string) error {
	v, err := f.GetByID(context.Background(), clientID, id)
	if err != nil {
		return err
	}
	if name != "" {
		v.Name = name
	}
	v.Description = description
	f.variants[id] = v
	return nil
}

// SetCanEdit seeds locked dimensions for tests; in production the lock is
// written by the product-insert transaction.
func (f *fakeRepo) SetCanEdit(_ context.Context, ids []int64, canEdit bool) error {
	for _, id := range ids {
		v, ok := f.variants[id]
		if ok {
			v.CanEdit = canEdit
			f.variants[id] = v
		}
	}
	return nil
}

func (f *fakeRepo) InsertOption(_ context.Context, variantID int64, name string) (Option, error) {
	v, ok := f.variants[variantID]
	if !ok {
		return Option{}, fmt.Errorf("%w: variant %d", httpx.ErrNotFound, variantID)
	}
	opt := Option{ID: f.nextOption, VariantID: variantID, Name: name}
	f.nextOption++
	v.Options = append(v.Options, opt)
	f.variants[variantID] = v
	return opt, nil
}

func (f *fakeRepo) RenameOption(_ context.Context, variantID, optionID int64, name string) error {
	v := f.variants[variantID]
	for i, opt := range v.Options {
		if opt.ID == optionID {
			v.Options[i].Name = name
			f.variants[variantID] = v
			return nil
		}
	}
	return fmt.Errorf("%w: option %d", httpx.ErrNotFound, optionID)
}

func (f *fakeRepo) DeleteOption(_ context.Context, variantID, optionID int64) error {
	v := f.variants[variantID]
	for i, opt := range v.Options {
		if opt.ID == optionID {
			v.Options = append(v.Options[:i], v.Options[i+1:]...)
			f.variants[variantID] = v
			return nil
		}
	}
	return fmt.Errorf("%w: option %d", httpx.ErrNotFound, optionID)
}

func (f *fakeRepo) Delete(_ context.Context, clientID uuid.UUID, id int64) error {
	if _, err := f.GetByID(context.Background(), clientID, id); err != nil {
		return err
	}
	delete(f.variants, id)
	return nil
}

func seedDimensions(t *testing.T, repo *fakeRepo, clientID uuid.UUID, optionCounts ...int) []Variant {
	t.Helper()
	svc := NewService(repo)
	var dims []Variant
	for i, count := range optionCounts {
		names := make([]string, count)
		for j := range names {
			names[j] = fmt.Sprintf("dim%d-opt%d", i, j)
		}
		v, err := svc.Create(context.Background(), clientID, CreateInput{
			Name:    fmt.Sprintf("Dimension %d", i),
			Options: names,
		})
		require.NoError(t, err)
		dims = append(dims, v)
	}
	return dims
}

func TestCreateRejectsDuplicateNameCaseInsensitive(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	clientID := uuid.New()

	_, err := svc.Create(context.Background(), clientID, CreateInput{Name: "Size", Options: []string{"S", "M"}})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), clientID, CreateInput{Name: "SIZE", Options: []string{"XL"}})
	require.ErrorIs(t, err, httpx.ErrDuplicate)
}

func TestCreateRejectsRepeatedOptionNames(t *testing.T) {
	svc := NewService(newFakeRepo())

	_, err := svc.Create(context.Background(), uuid.New(), CreateInput{Name: "Color", Options: []string{"Red", "red"}})
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestUpdateAndDeleteRejectLockedDimension(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	clientID := uuid.New()
	dims := seedDimensions(t, repo, clientID, 2)

	require.NoError(t, repo.SetCanEdit(context.Background(), []int64{dims[0].ID}, false))

	_, err := svc.Update(context.Background(), clientID, dims[0].ID, UpdateInput{Name: "Renamed"})
	require.ErrorIs(t, err, httpx.ErrValidation)

	err = svc.Delete(context.Background(), clientID, dims[0].ID)
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestUpdateAddsRenamesAndRemovesOptions(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	clientID := uuid.New()
	dims := seedDimensions(t, repo, clientID, 2)
	orig := dims[0]

	updated, err := svc.Update(context.Background(), clientID, orig.ID, UpdateInput{
		Description: "sizes",
		Options: []OptionUpdate{
			{ID: orig.Options[0].ID, Name: "Small"},
			{ID: orig.Options[1].ID, Name: ""},
			{Name: "Large"},
		},
	})
	require.NoError(t, err)
	require.Len(t, updated.Options, 2)
	require.Equal(t, "Small", updated.Options[0].Name)
	require.Equal(t, "Large", updated.Options[1].Name)
	require.Equal(t, "sizes", updated.Description)
}

func TestValidateCombinationsNoDimensionsConfigured(t *testing.T) {
	svc := NewService(newFakeRepo())

	_, err := svc.ValidateCombinations(context.Background(), uuid.New(), [][]int64{{1, 2}})
	require.ErrorIs(t, err, httpx.ErrNotFound)
	require.Contains(t, err.Error(), "no variants configured")
}

func TestValidateCombinationsUnknownOption(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	clientID := uuid.New()
	seedDimensions(t, repo, clientID, 2, 3)

	_, err := svc.ValidateCombinations(context.Background(), clientID, [][]int64{{1, 999}})
	require.ErrorIs(t, err, httpx.ErrNotFound)
	require.Contains(t, err.Error(), "999")
}

func TestValidateCombinationsArityMismatch(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	clientID := uuid.New()
	dims := seedDimensions(t, repo, clientID, 2, 3)

	// Two configured dimensions make length 2 mandatory for every combination,
	// even when the input only references one of them.
	_, err := svc.ValidateCombinations(context.Background(), clientID, [][]int64{
		{dims[0].Options[0].ID},
	})
	require.ErrorIs(t, err, httpx.ErrValidation)
	require.Contains(t, err.Error(), "length 2")
	require.Contains(t, err.Error(), "length 1")
}

func TestValidateCombinationsRejectsEmptyCombination(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	clientID := uuid.New()
	seedDimensions(t, repo, clientID, 2, 3)

	_, err := svc.ValidateCombinations(context.Background(), clientID, [][]int64{{}})
	require.ErrorIs(t, err, httpx.ErrValidation)
	require.Contains(t, err.Error(), "length 2")
	require.Contains(t, err.Error(), "length 0")
}

func TestValidateCombinationsSameDimensionTwice(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	clientID := uuid.New()
	dims := seedDimensions(t, repo, clientID, 2, 2)

	_, err := svc.ValidateCombinations(context.Background(), clientID, [][]int64{
		{dims[0].Options[0].ID, dims[0].Options[1].ID},
	})
	require.ErrorIs(t, err, httpx.ErrValidation)
	require.Contains(t, err.Error(), "same dimension")
}

func TestValidateCombinationsOrderInsensitiveDuplicates(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	clientID := uuid.New()
	dims := seedDimensions(t, repo, clientID, 2, 2)

	a := dims[0].Options[0].ID
	b := dims[1].Options[0].ID
	_, err := svc.ValidateCombinations(context.Background(), clientID, [][]int64{{a, b}, {b, a}})
	require.ErrorIs(t, err, httpx.ErrValidation)
	require.Contains(t, err.Error(), "identical")
}

func TestValidateCombinationsReturnsAllConfiguredDimensions(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	clientID := uuid.New()
	dims := seedDimensions(t, repo, clientID, 2, 3, 2)

	got, err := svc.ValidateCombinations(context.Background(), clientID, [][]int64{
		{dims[0].Options[0].ID, dims[1].Options[0].ID, dims[2].Options[0].ID},
		{dims[0].Options[1].ID, dims[1].Options[1].ID, dims[2].Options[1].ID},
	})
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, dim := range dims {
		require.Equal(t, dim.ID, got[i].ID)
	}
}

func TestValidateCombinationsRejectsPartialDimensionCoverage(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	clientID := uuid.New()
	dims := seedDimensions(t, repo, clientID, 2, 3, 2)

	// Covering two of three configured dimensions is not enough.
	_, err := svc.ValidateCombinations(context.Background(), clientID, [][]int64{
		{dims[0].Options[0].ID, dims[2].Options[0].ID},
	})
	require.ErrorIs(t, err, httpx.ErrValidation)
	require.Contains(t, err.Error(), "length 3")
	require.Contains(t, err.Error(), "length 2")
}

func TestEnumerateCartesianProduct(t *testing.T) {
	dims := []Variant{
		{ID: 1, Options: []Option{{ID: 11}, {ID: 12}}},
		{ID: 2, Options: []Option{{ID: 21}, {ID: 22}, {ID: 23}}},
	}

	combos := Enumerate(dims)
	require.Len(t, combos, 6)
	seen := map[string]bool{}
	for _, c := range combos {
		require.Len(t, c, 2)
		require.False(t, seen[c.Key()], "duplicate combination %v", c)
		seen[c.Key()] = true
	}
	require.True(t, seen[Canonical([]int64{11, 21}).Key()])
	require.True(t, seen[Canonical([]int64{12, 23}).Key()])
}

func TestEnumerateZeroDimensions(t *testing.T) {
	require.Nil(t, Enumerate(nil))
}

func TestCombinationEqualIgnoresInputOrder(t *testing.T) {
	require.True(t, Canonical([]int64{3, 1, 2}).Equal(Canonical([]int64{2, 3, 1})))
	require.False(t, Canonical([]int64{1, 2}).Equal(Canonical([]int64{1, 3})))
}

func TestLockedErrorIsValidationKind(t *testing.T) {
	require.True(t, errors.Is(ErrLocked, httpx.ErrValidation))
}
