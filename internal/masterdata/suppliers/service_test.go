package suppliers

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/enstockapp/mono-stock/internal/platform/httpx"
	"github.com/enstockapp/mono-stock/internal/shared"
)

type fakeRepo struct {
	suppliers map[int64]Supplier
	nextID    int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{suppliers: map[int64]Supplier{}, nextID: 1}
}

func (f *fakeRepo) List(_ context.Context, clientID uuid.UUID, _ shared.Pagination) ([]Supplier, error) {
	var out []Supplier
	for id := int64(1); id < f.nextID; id++ {
		if s, ok := f.suppliers[id]; ok && s.ClientID == clientID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeRepo) GetByID(_ context.Context, clientID uuid.UUID, id int64) (Supplier, error) {
	s, ok := f.suppliers[id]
	if !ok || s.ClientID != clientID {
		return Supplier{}, fmt.Errorf("%w: supplier %d", httpx.ErrNotFound, id)
	}
	return s, nil
}

func (f *fakeRepo) GetByName(_ context.Context, clientID uuid.UUID, name string) (Supplier, error) {
	for _, s := range f.suppliers {
		if s.ClientID == clientID && shared.NameKey(s.Name) == shared.NameKey(name) {
			return s, nil
		}
	}
	return Supplier{}, fmt.Errorf("%w: supplier %q", httpx.ErrNotFound, name)
}

func (f *fakeRepo) Create(_ context.Context, s Supplier) (Supplier, error) {
	s.ID = f.nextID
	f.nextID++
	f.suppliers[s.ID] = s
	return s, nil
}

func (f *fakeRepo) Update(_ context.Context, s Supplier) error {
	if _, ok := f.suppliers[s.ID]; !ok {
		return fmt.Errorf("%w: supplier %d", httpx.ErrNotFound, s.ID)
	}
	f.suppliers[s.ID] = s
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, clientID uuid.UUID, id int64) error {
	s, ok := f.suppliers[id]
	if !ok || s.ClientID != clientID {
		return fmt.Errorf("%w: supplier %d", httpx.ErrNotFound, id)
	}
	delete(f.suppliers, id)
	return nil
}

func TestCreateRejectsDuplicateNameCaseInsensitive(t *testing.T) {
	svc := NewService(newFakeRepo())
	clientID := uuid.New()

	_, err := svc.Create(context.Background(), clientID, Supplier{Name: "Acme"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), clientID, Supplier{Name: "ACME"})
	require.ErrorIs(t, err, httpx.ErrDuplicate)

	// Same name under another tenant is fine.
	_, err = svc.Create(context.Background(), uuid.New(), Supplier{Name: "Acme"})
	require.NoError(t, err)
}

func TestUpdateRenameAndPartialFields(t *testing.T) {
	svc := NewService(newFakeRepo())
	clientID := uuid.New()

	created, err := svc.Create(context.Background(), clientID, Supplier{Name: "Acme", Phone: "111"})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), clientID, created.ID, Supplier{Name: "Acme Corp"})
	require.NoError(t, err)
	require.Equal(t, "Acme Corp", updated.Name)
	require.Equal(t, "111", updated.Phone)
}

func TestGetScopedToTenant(t *testing.T) {
	svc := NewService(newFakeRepo())
	clientID := uuid.New()

	created, err := svc.Create(context.Background(), clientID, Supplier{Name: "Acme"})
	require.NoError(t, err)

	_, err = svc.GetByID(context.Background(), uuid.New(), created.ID)
	require.ErrorIs(t, err, httpx.ErrNotFound)
}
